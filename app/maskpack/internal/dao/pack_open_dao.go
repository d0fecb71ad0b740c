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

var (
	packOpenColumns = []string{"id", "user_id", "pack_id", "client_request_id", "seed", "pity_after", "created_at"}
	packPullColumns = []string{
		"pack_open_id", "pull_index", "mask_id", "name", "rarity", "color", "is_new", "was_color_new",
		"essence_awarded", "essence_remaining", "final_essence_remaining",
		"level_before", "level_after", "final_level_after", "unlocked_colors",
	}
)

// PackOpenDAO 开包记录数据访问对象
type PackOpenDAO struct {
	db      postgres.Querier
	logger  logger.Logger
	metrics *metrics.GameMetrics
}

// NewPackOpenDAO 创建开包记录 DAO
func NewPackOpenDAO(db postgres.Querier, l logger.Logger, m *metrics.GameMetrics) *PackOpenDAO {
	return &PackOpenDAO{
		db:      db,
		logger:  l.Named("dao.pack_open"),
		metrics: m,
	}
}

// With 绑定到事务
func (d *PackOpenDAO) With(q postgres.Querier) *PackOpenDAO {
	c := *d
	c.db = q
	return &c
}

func buildSelectPackOpen(userID, clientRequestID string) (string, []any, error) {
	return postgres.QueryBuilder.
		Select(packOpenColumns...).
		From(tablePackOpens).
		Where(squirrel.Eq{"user_id": userID, "client_request_id": clientRequestID}).
		ToSql()
}

func buildSelectPulls(packOpenID int64) (string, []any, error) {
	return postgres.QueryBuilder.
		Select(packPullColumns...).
		From(tablePackPulls).
		Where(squirrel.Eq{"pack_open_id": packOpenID}).
		OrderBy("pull_index").
		ToSql()
}

func buildInsertPackOpen(o *model.PackOpen) (string, []any, error) {
	return postgres.QueryBuilder.
		Insert(tablePackOpens).
		Columns(packOpenColumns...).
		Values(o.ID, o.UserID, o.PackID, o.ClientRequestID, o.Seed, o.PityAfter, o.CreatedAt).
		ToSql()
}

func buildInsertPulls(o *model.PackOpen) (string, []any, error) {
	b := postgres.QueryBuilder.
		Insert(tablePackPulls).
		Columns(packPullColumns...)
	for _, p := range o.Pulls {
		colors := p.UnlockedColors
		if colors == nil {
			colors = []string{}
		}
		b = b.Values(o.ID, p.Index, p.MaskID, p.Name, string(p.Rarity), p.Color, p.IsNew, p.WasColorNew,
			p.EssenceAwarded, p.EssenceRemaining, p.FinalEssenceRemaining,
			p.LevelBefore, p.LevelAfter, p.FinalLevelAfter, colors)
	}
	return b.ToSql()
}

// Get 按幂等键查询开包记录及明细，不存在返回 postgres.ErrNoRows
func (d *PackOpenDAO) Get(ctx context.Context, userID, clientRequestID string) (_ *model.PackOpen, err error) {
	start := time.Now()
	defer observe(d.metrics, "select", start, &err)

	query, args, err := buildSelectPackOpen(userID, clientRequestID)
	if err != nil {
		return nil, errors.Wrap(err, "build query")
	}

	var o model.PackOpen
	err = d.db.QueryRow(ctx, query, args...).Scan(
		&o.ID, &o.UserID, &o.PackID, &o.ClientRequestID, &o.Seed, &o.PityAfter, &o.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, postgres.ErrNoRows) {
			return nil, err
		}
		return nil, errors.Wrap(err, "get pack open")
	}

	if o.Pulls, err = d.listPulls(ctx, o.ID); err != nil {
		return nil, err
	}
	return &o, nil
}

func (d *PackOpenDAO) listPulls(ctx context.Context, packOpenID int64) ([]model.PackOpenPull, error) {
	query, args, err := buildSelectPulls(packOpenID)
	if err != nil {
		return nil, errors.Wrap(err, "build query")
	}

	rows, err := d.db.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "list pack pulls")
	}
	defer rows.Close()

	var pulls []model.PackOpenPull
	for rows.Next() {
		var p model.PackOpenPull
		var rarity string
		if err := rows.Scan(&p.PackOpenID, &p.Index, &p.MaskID, &p.Name, &rarity, &p.Color, &p.IsNew, &p.WasColorNew,
			&p.EssenceAwarded, &p.EssenceRemaining, &p.FinalEssenceRemaining,
			&p.LevelBefore, &p.LevelAfter, &p.FinalLevelAfter, &p.UnlockedColors); err != nil {
			return nil, errors.Wrap(err, "scan pack pull")
		}
		p.Rarity = model.Rarity(rarity)
		if p.UnlockedColors == nil {
			p.UnlockedColors = []string{}
		}
		pulls = append(pulls, p)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate pack pulls")
	}
	return pulls, nil
}

// Create 写入开包记录与明细，需在事务内调用
// 幂等键冲突时返回原始 unique_violation 错误
func (d *PackOpenDAO) Create(ctx context.Context, o *model.PackOpen) (err error) {
	start := time.Now()
	defer observe(d.metrics, "insert", start, &err)

	query, args, err := buildInsertPackOpen(o)
	if err != nil {
		return errors.Wrap(err, "build query")
	}
	if _, err = d.db.Exec(ctx, query, args...); err != nil {
		return errors.Wrap(err, "insert pack open")
	}

	if len(o.Pulls) == 0 {
		return nil
	}
	query, args, err = buildInsertPulls(o)
	if err != nil {
		return errors.Wrap(err, "build query")
	}
	if _, err = d.db.Exec(ctx, query, args...); err != nil {
		return errors.Wrap(err, "insert pack pulls")
	}
	return nil
}
