package dao

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/lk2023060901/maskpack/app/maskpack/internal/metrics"
	"github.com/lk2023060901/maskpack/app/maskpack/internal/model"
	"github.com/lk2023060901/maskpack/pkg/database/postgres"
	"github.com/lk2023060901/maskpack/pkg/logger"
	"github.com/lk2023060901/maskpack/pkg/serializer"
)

// EventDAO 审计事件数据访问对象
type EventDAO struct {
	db      postgres.Querier
	codec   serializer.Serializer
	logger  logger.Logger
	metrics *metrics.GameMetrics
}

// NewEventDAO 创建事件 DAO
func NewEventDAO(db postgres.Querier, l logger.Logger, m *metrics.GameMetrics) *EventDAO {
	return &EventDAO{
		db:      db,
		codec:   serializer.NewJSON(),
		logger:  l.Named("dao.event"),
		metrics: m,
	}
}

// With 绑定到事务
func (d *EventDAO) With(q postgres.Querier) *EventDAO {
	c := *d
	c.db = q
	return &c
}

func buildInsertEvent(evt *model.Event, payload []byte) (string, []any, error) {
	return postgres.QueryBuilder.
		Insert(tableEvents).
		Columns("user_id", "kind", "payload", "created_at").
		Values(evt.UserID, string(evt.Kind), payload, evt.CreatedAt).
		Suffix("RETURNING id").
		ToSql()
}

// Append 追加事件，回填自增 ID
func (d *EventDAO) Append(ctx context.Context, evt *model.Event) (err error) {
	start := time.Now()
	defer observe(d.metrics, "insert", start, &err)

	payload, err := d.codec.Serialize(evt.Payload)
	if err != nil {
		return errors.Wrap(err, "encode event payload")
	}

	query, args, err := buildInsertEvent(evt, payload)
	if err != nil {
		return errors.Wrap(err, "build query")
	}
	if err = d.db.QueryRow(ctx, query, args...).Scan(&evt.ID); err != nil {
		return errors.Wrap(err, "insert event")
	}
	return nil
}
