package dao

import (
	"context"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/cockroachdb/errors"
	"github.com/lk2023060901/maskpack/app/maskpack/internal/metrics"
	"github.com/lk2023060901/maskpack/app/maskpack/internal/model"
	"github.com/lk2023060901/maskpack/pkg/database/postgres"
	"github.com/lk2023060901/maskpack/pkg/logger"
)

var packProgressColumns = []string{
	"user_id", "pack_id", "fractional_units", "last_unit_ts", "pity_counter", "last_pack_claim_ts",
}

// PackProgressDAO 卡包进度数据访问对象
type PackProgressDAO struct {
	db      postgres.Querier
	logger  logger.Logger
	metrics *metrics.GameMetrics
}

// NewPackProgressDAO 创建卡包进度 DAO
func NewPackProgressDAO(db postgres.Querier, l logger.Logger, m *metrics.GameMetrics) *PackProgressDAO {
	return &PackProgressDAO{
		db:      db,
		logger:  l.Named("dao.pack_progress"),
		metrics: m,
	}
}

// With 绑定到事务
func (d *PackProgressDAO) With(q postgres.Querier) *PackProgressDAO {
	c := *d
	c.db = q
	return &c
}

func buildSelectProgress(userID, packID string, forUpdate bool) (string, []any, error) {
	b := postgres.QueryBuilder.
		Select(packProgressColumns...).
		From(tablePackProgress).
		Where(squirrel.Eq{"user_id": userID, "pack_id": packID})
	if forUpdate {
		b = b.Suffix("FOR UPDATE")
	}
	return b.ToSql()
}

func buildUpsertProgress(p *model.UserPackProgress) (string, []any, error) {
	return postgres.QueryBuilder.
		Insert(tablePackProgress).
		Columns(packProgressColumns...).
		Values(p.UserID, p.PackID, p.FractionalUnits, p.LastUnitTS, p.PityCounter, p.LastPackClaimTS).
		Suffix(`ON CONFLICT (user_id, pack_id) DO UPDATE SET
			fractional_units = EXCLUDED.fractional_units,
			last_unit_ts = EXCLUDED.last_unit_ts,
			pity_counter = EXCLUDED.pity_counter,
			last_pack_claim_ts = EXCLUDED.last_pack_claim_ts`).
		ToSql()
}

// Get 查询进度，不存在返回 postgres.ErrNoRows
func (d *PackProgressDAO) Get(ctx context.Context, userID, packID string) (*model.UserPackProgress, error) {
	return d.get(ctx, userID, packID, false)
}

// GetForUpdate 查询并锁定进度行，需在事务内调用
func (d *PackProgressDAO) GetForUpdate(ctx context.Context, userID, packID string) (*model.UserPackProgress, error) {
	return d.get(ctx, userID, packID, true)
}

func (d *PackProgressDAO) get(ctx context.Context, userID, packID string, forUpdate bool) (_ *model.UserPackProgress, err error) {
	op := "select"
	if forUpdate {
		op = "lock"
	}
	start := time.Now()
	defer observe(d.metrics, op, start, &err)

	query, args, err := buildSelectProgress(userID, packID, forUpdate)
	if err != nil {
		return nil, errors.Wrap(err, "build query")
	}

	var p model.UserPackProgress
	err = d.db.QueryRow(ctx, query, args...).Scan(
		&p.UserID, &p.PackID, &p.FractionalUnits, &p.LastUnitTS, &p.PityCounter, &p.LastPackClaimTS,
	)
	if err != nil {
		if errors.Is(err, postgres.ErrNoRows) {
			return nil, err
		}
		return nil, errors.Wrap(err, "get pack progress")
	}
	return &p, nil
}

// Upsert 保存进度
func (d *PackProgressDAO) Upsert(ctx context.Context, p *model.UserPackProgress) (err error) {
	start := time.Now()
	defer observe(d.metrics, "upsert", start, &err)

	query, args, err := buildUpsertProgress(p)
	if err != nil {
		return errors.Wrap(err, "build query")
	}
	if _, err = d.db.Exec(ctx, query, args...); err != nil {
		return errors.Wrap(err, "upsert pack progress")
	}
	return nil
}
