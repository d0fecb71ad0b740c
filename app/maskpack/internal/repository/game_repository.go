package repository

import (
	"context"
	_ "embed"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/lk2023060901/maskpack/app/maskpack/internal/dao"
	"github.com/lk2023060901/maskpack/app/maskpack/internal/metrics"
	"github.com/lk2023060901/maskpack/app/maskpack/internal/model"
	"github.com/lk2023060901/maskpack/app/maskpack/internal/store"
	"github.com/lk2023060901/maskpack/pkg/database/postgres"
	"github.com/lk2023060901/maskpack/pkg/logger"
)

//go:embed schema.sql
var schema string

// Statements 建表语句，按顺序执行
func Statements() []string {
	var stmts []string
	for _, s := range strings.Split(schema, ";") {
		if s = strings.TrimSpace(s); s != "" {
			stmts = append(stmts, s)
		}
	}
	return stmts
}

// Migrate 创建缺失的表
func Migrate(ctx context.Context, db postgres.Querier) error {
	for _, stmt := range Statements() {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return errors.Wrapf(err, "migrate: %s", firstLine(stmt))
		}
	}
	return nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

// daos 一组绑定到同一 Querier 的 DAO
type daos struct {
	users    *dao.UserDAO
	masks    *dao.UserMaskDAO
	progress *dao.PackProgressDAO
	opens    *dao.PackOpenDAO
	events   *dao.EventDAO
}

func (d *daos) with(q postgres.Querier) *daos {
	return &daos{
		users:    d.users.With(q),
		masks:    d.masks.With(q),
		progress: d.progress.With(q),
		opens:    d.opens.With(q),
		events:   d.events.With(q),
	}
}

// GameRepository PostgreSQL 实现的 store.Store
type GameRepository struct {
	db     *postgres.Client
	daos   *daos
	logger logger.Logger
	now    func() time.Time
}

var _ store.Store = (*GameRepository)(nil)

// NewGameRepository 创建仓储
func NewGameRepository(db *postgres.Client, l logger.Logger, m *metrics.GameMetrics) *GameRepository {
	return &GameRepository{
		db: db,
		daos: &daos{
			users:    dao.NewUserDAO(db, l, m),
			masks:    dao.NewUserMaskDAO(db, l, m),
			progress: dao.NewPackProgressDAO(db, l, m),
			opens:    dao.NewPackOpenDAO(db, l, m),
			events:   dao.NewEventDAO(db, l, m),
		},
		logger: l.Named("repository.game"),
		now:    time.Now,
	}
}

// WithTx 在数据库事务中执行 fn
func (r *GameRepository) WithTx(ctx context.Context, fn store.TxFunc) error {
	return r.db.WithTx(ctx, func(tx postgres.Tx) error {
		return fn(ctx, &gameStore{daos: r.daos.with(tx), now: r.now})
	})
}

func (r *GameRepository) direct() *gameStore {
	return &gameStore{daos: r.daos, now: r.now}
}

func (r *GameRepository) GetOrCreateUser(ctx context.Context, userID string, isGuest bool) (*model.User, bool, error) {
	return r.direct().GetOrCreateUser(ctx, userID, isGuest)
}

func (r *GameRepository) GetUserMask(ctx context.Context, userID, maskID string) (*model.UserMask, error) {
	return r.direct().GetUserMask(ctx, userID, maskID)
}

func (r *GameRepository) GetUserMasks(ctx context.Context, userID string) ([]*model.UserMask, error) {
	return r.direct().GetUserMasks(ctx, userID)
}

func (r *GameRepository) UpsertUserMask(ctx context.Context, m *model.UserMask) error {
	return r.direct().UpsertUserMask(ctx, m)
}

func (r *GameRepository) GetUserPackProgress(ctx context.Context, userID, packID string) (*model.UserPackProgress, error) {
	return r.direct().GetUserPackProgress(ctx, userID, packID)
}

// LockUserPackProgress 不在事务中时锁在语句结束即释放
func (r *GameRepository) LockUserPackProgress(ctx context.Context, userID, packID string) (*model.UserPackProgress, error) {
	return r.direct().LockUserPackProgress(ctx, userID, packID)
}

func (r *GameRepository) UpsertUserPackProgress(ctx context.Context, p *model.UserPackProgress) error {
	return r.direct().UpsertUserPackProgress(ctx, p)
}

func (r *GameRepository) GetPackOpen(ctx context.Context, userID, clientRequestID string) (*model.PackOpen, error) {
	return r.direct().GetPackOpen(ctx, userID, clientRequestID)
}

// CreatePackOpen 记录与明细需要同一事务
func (r *GameRepository) CreatePackOpen(ctx context.Context, o *model.PackOpen) error {
	return r.WithTx(ctx, func(ctx context.Context, tx store.GameStore) error {
		return tx.CreatePackOpen(ctx, o)
	})
}

func (r *GameRepository) AppendEvent(ctx context.Context, evt *model.Event) error {
	return r.direct().AppendEvent(ctx, evt)
}

// gameStore 绑定到某个 Querier 的 GameStore
type gameStore struct {
	daos *daos
	now  func() time.Time
}

// notFound 将 postgres.ErrNoRows 转为 store.ErrNotFound
func notFound(err error, format string, args ...any) error {
	if errors.Is(err, postgres.ErrNoRows) {
		return errors.Wrapf(store.ErrNotFound, format, args...)
	}
	return err
}

func (s *gameStore) GetOrCreateUser(ctx context.Context, userID string, isGuest bool) (*model.User, bool, error) {
	if userID == "" {
		return nil, false, errors.New("repository: user id is required")
	}
	return s.daos.users.GetOrCreate(ctx, userID, isGuest, s.now())
}

func (s *gameStore) GetUserMask(ctx context.Context, userID, maskID string) (*model.UserMask, error) {
	m, err := s.daos.masks.Get(ctx, userID, maskID)
	if err != nil {
		return nil, notFound(err, "user mask %s/%s", userID, maskID)
	}
	return m, nil
}

func (s *gameStore) GetUserMasks(ctx context.Context, userID string) ([]*model.UserMask, error) {
	return s.daos.masks.ListByUser(ctx, userID)
}

func (s *gameStore) UpsertUserMask(ctx context.Context, m *model.UserMask) error {
	return s.daos.masks.Upsert(ctx, m)
}

func (s *gameStore) GetUserPackProgress(ctx context.Context, userID, packID string) (*model.UserPackProgress, error) {
	p, err := s.daos.progress.Get(ctx, userID, packID)
	if err != nil {
		return nil, notFound(err, "pack progress %s/%s", userID, packID)
	}
	return p, nil
}

func (s *gameStore) LockUserPackProgress(ctx context.Context, userID, packID string) (*model.UserPackProgress, error) {
	p, err := s.daos.progress.GetForUpdate(ctx, userID, packID)
	if err != nil {
		return nil, notFound(err, "pack progress %s/%s", userID, packID)
	}
	return p, nil
}

func (s *gameStore) UpsertUserPackProgress(ctx context.Context, p *model.UserPackProgress) error {
	return s.daos.progress.Upsert(ctx, p)
}

func (s *gameStore) GetPackOpen(ctx context.Context, userID, clientRequestID string) (*model.PackOpen, error) {
	o, err := s.daos.opens.Get(ctx, userID, clientRequestID)
	if err != nil {
		return nil, notFound(err, "pack open %s/%s", userID, clientRequestID)
	}
	return o, nil
}

func (s *gameStore) CreatePackOpen(ctx context.Context, o *model.PackOpen) error {
	if err := s.daos.opens.Create(ctx, o); err != nil {
		if postgres.IsUniqueViolation(err) {
			return errors.Wrapf(store.ErrDuplicateRequest, "user=%s request=%s", o.UserID, o.ClientRequestID)
		}
		return err
	}
	return nil
}

func (s *gameStore) AppendEvent(ctx context.Context, evt *model.Event) error {
	return s.daos.events.Append(ctx, evt)
}
