package dao

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/lk2023060901/maskpack/app/maskpack/internal/metrics"
	"github.com/lk2023060901/maskpack/pkg/database/postgres"
)

// 表名
const (
	tableUsers        = "users"
	tableUserMasks    = "user_masks"
	tablePackProgress = "user_pack_progress"
	tablePackOpens    = "pack_opens"
	tablePackPulls    = "pack_open_pulls"
	tableEvents       = "events"
)

// observe 记录查询耗时，未查到数据不算失败
func observe(m *metrics.GameMetrics, operation string, start time.Time, err *error) {
	success := *err == nil || errors.Is(*err, postgres.ErrNoRows)
	m.RecordDBQuery(operation, success, time.Since(start).Seconds())
}
