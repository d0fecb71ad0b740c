package dao

import (
	"context"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5"
	"github.com/lk2023060901/maskpack/app/maskpack/internal/metrics"
	"github.com/lk2023060901/maskpack/app/maskpack/internal/model"
	"github.com/lk2023060901/maskpack/pkg/database/postgres"
	"github.com/lk2023060901/maskpack/pkg/logger"
)

var userMaskColumns = []string{
	"user_id", "mask_id", "owned_count", "essence", "level",
	"equipped_slot", "unlocked_colors", "equipped_color", "last_acquired_at",
}

// UserMaskDAO 玩家面具数据访问对象
type UserMaskDAO struct {
	db      postgres.Querier
	logger  logger.Logger
	metrics *metrics.GameMetrics
}

// NewUserMaskDAO 创建玩家面具 DAO
func NewUserMaskDAO(db postgres.Querier, l logger.Logger, m *metrics.GameMetrics) *UserMaskDAO {
	return &UserMaskDAO{
		db:      db,
		logger:  l.Named("dao.user_mask"),
		metrics: m,
	}
}

// With 绑定到事务
func (d *UserMaskDAO) With(q postgres.Querier) *UserMaskDAO {
	c := *d
	c.db = q
	return &c
}

func buildSelectUserMasks(userID string, maskID string) (string, []any, error) {
	where := squirrel.Eq{"user_id": userID}
	if maskID != "" {
		where["mask_id"] = maskID
	}
	return postgres.QueryBuilder.
		Select(userMaskColumns...).
		From(tableUserMasks).
		Where(where).
		OrderBy("mask_id").
		ToSql()
}

func buildUpsertUserMask(m *model.UserMask) (string, []any, error) {
	colors := m.UnlockedColors
	if colors == nil {
		colors = []string{}
	}
	return postgres.QueryBuilder.
		Insert(tableUserMasks).
		Columns(userMaskColumns...).
		Values(m.UserID, m.MaskID, m.OwnedCount, m.Essence, m.Level,
			string(m.EquippedSlot), colors, m.EquippedColor, m.LastAcquiredAt).
		Suffix(`ON CONFLICT (user_id, mask_id) DO UPDATE SET
			owned_count = EXCLUDED.owned_count,
			essence = EXCLUDED.essence,
			level = EXCLUDED.level,
			equipped_slot = EXCLUDED.equipped_slot,
			unlocked_colors = EXCLUDED.unlocked_colors,
			equipped_color = EXCLUDED.equipped_color,
			last_acquired_at = EXCLUDED.last_acquired_at`).
		ToSql()
}

func scanUserMask(row pgx.Row) (*model.UserMask, error) {
	var m model.UserMask
	var slot string
	if err := row.Scan(&m.UserID, &m.MaskID, &m.OwnedCount, &m.Essence, &m.Level,
		&slot, &m.UnlockedColors, &m.EquippedColor, &m.LastAcquiredAt); err != nil {
		return nil, err
	}
	m.EquippedSlot = model.Slot(slot)
	if m.UnlockedColors == nil {
		m.UnlockedColors = []string{}
	}
	return &m, nil
}

// Get 查询单个面具，不存在返回 postgres.ErrNoRows
func (d *UserMaskDAO) Get(ctx context.Context, userID, maskID string) (_ *model.UserMask, err error) {
	start := time.Now()
	defer observe(d.metrics, "select", start, &err)

	query, args, err := buildSelectUserMasks(userID, maskID)
	if err != nil {
		return nil, errors.Wrap(err, "build query")
	}

	m, err := scanUserMask(d.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, postgres.ErrNoRows) {
			return nil, err
		}
		return nil, errors.Wrap(err, "get user mask")
	}
	return m, nil
}

// ListByUser 查询玩家全部面具，按 mask_id 排序
func (d *UserMaskDAO) ListByUser(ctx context.Context, userID string) (_ []*model.UserMask, err error) {
	start := time.Now()
	defer observe(d.metrics, "select", start, &err)

	query, args, err := buildSelectUserMasks(userID, "")
	if err != nil {
		return nil, errors.Wrap(err, "build query")
	}

	rows, err := d.db.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "list user masks")
	}
	defer rows.Close()

	var masks []*model.UserMask
	for rows.Next() {
		m, err := scanUserMask(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan user mask")
		}
		masks = append(masks, m)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate user masks")
	}
	return masks, nil
}

// Upsert 保存面具
func (d *UserMaskDAO) Upsert(ctx context.Context, m *model.UserMask) (err error) {
	start := time.Now()
	defer observe(d.metrics, "upsert", start, &err)

	query, args, err := buildUpsertUserMask(m)
	if err != nil {
		return errors.Wrap(err, "build query")
	}
	if _, err = d.db.Exec(ctx, query, args...); err != nil {
		return errors.Wrap(err, "upsert user mask")
	}
	return nil
}
