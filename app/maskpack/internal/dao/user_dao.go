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

var userColumns = []string{"user_id", "is_guest", "created_at"}

// UserDAO 玩家数据访问对象
type UserDAO struct {
	db      postgres.Querier
	logger  logger.Logger
	metrics *metrics.GameMetrics
}

// NewUserDAO 创建玩家 DAO
func NewUserDAO(db postgres.Querier, l logger.Logger, m *metrics.GameMetrics) *UserDAO {
	return &UserDAO{
		db:      db,
		logger:  l.Named("dao.user"),
		metrics: m,
	}
}

// With 绑定到事务
func (d *UserDAO) With(q postgres.Querier) *UserDAO {
	c := *d
	c.db = q
	return &c
}

func buildInsertUser(userID string, isGuest bool, now time.Time) (string, []any, error) {
	return postgres.QueryBuilder.
		Insert(tableUsers).
		Columns(userColumns...).
		Values(userID, isGuest, now).
		Suffix("ON CONFLICT (user_id) DO NOTHING RETURNING user_id, is_guest, created_at").
		ToSql()
}

func buildSelectUser(userID string) (string, []any, error) {
	return postgres.QueryBuilder.
		Select(userColumns...).
		From(tableUsers).
		Where(squirrel.Eq{"user_id": userID}).
		ToSql()
}

// GetOrCreate 获取玩家，不存在时创建
func (d *UserDAO) GetOrCreate(ctx context.Context, userID string, isGuest bool, now time.Time) (_ *model.User, _ bool, err error) {
	start := time.Now()
	defer observe(d.metrics, "upsert", start, &err)

	query, args, err := buildInsertUser(userID, isGuest, now)
	if err != nil {
		return nil, false, errors.Wrap(err, "build query")
	}

	var u model.User
	err = d.db.QueryRow(ctx, query, args...).Scan(&u.UserID, &u.IsGuest, &u.CreatedAt)
	if err == nil {
		return &u, true, nil
	}
	if !errors.Is(err, postgres.ErrNoRows) {
		return nil, false, errors.Wrap(err, "insert user")
	}

	query, args, err = buildSelectUser(userID)
	if err != nil {
		return nil, false, errors.Wrap(err, "build query")
	}
	if err = d.db.QueryRow(ctx, query, args...).Scan(&u.UserID, &u.IsGuest, &u.CreatedAt); err != nil {
		return nil, false, errors.Wrap(err, "select user")
	}
	return &u, false, nil
}
