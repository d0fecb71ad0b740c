package memory

import (
	"context"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/lk2023060901/maskpack/app/maskpack/internal/model"
	"github.com/lk2023060901/maskpack/app/maskpack/internal/store"
)

type maskKey struct{ userID, maskID string }

type progressKey struct{ userID, packID string }

type openKey struct{ userID, requestID string }

// Option 内存存储选项
type Option func(*Store)

// WithClock 设置创建时间使用的时钟
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// Store 内存实现
// 事务内写入先暂存，提交时整体生效；行锁用按键的互斥实现
type Store struct {
	mu       sync.Mutex
	users    map[string]*model.User
	masks    map[maskKey]*model.UserMask
	progress map[progressKey]*model.UserPackProgress
	opens    map[openKey]*model.PackOpen
	events   []*model.Event
	locks    map[string]chan struct{}
	eventSeq int64
	now      func() time.Time
}

var _ store.Store = (*Store)(nil)

// New 创建内存存储
func New(opts ...Option) *Store {
	s := &Store{
		users:    make(map[string]*model.User),
		masks:    make(map[maskKey]*model.UserMask),
		progress: make(map[progressKey]*model.UserPackProgress),
		opens:    make(map[openKey]*model.PackOpen),
		locks:    make(map[string]chan struct{}),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// WithTx 在事务中执行 fn
func (s *Store) WithTx(ctx context.Context, fn store.TxFunc) error {
	if err := ctx.Err(); err != nil {
		return errors.Wrap(err, "begin memory transaction")
	}

	t := newTx(s)
	defer t.release()

	if err := fn(ctx, t); err != nil {
		return err
	}
	return t.commit()
}

// Events 已提交的事件
func (s *Store) Events() []*model.Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*model.Event, len(s.events))
	for i, e := range s.events {
		c := *e
		c.Payload = maps.Clone(e.Payload)
		out[i] = &c
	}
	return out
}

func (s *Store) autoCommit(ctx context.Context, fn func(t *tx) error) error {
	return s.WithTx(ctx, func(_ context.Context, g store.GameStore) error {
		return fn(g.(*tx))
	})
}

func (s *Store) GetOrCreateUser(ctx context.Context, userID string, isGuest bool) (user *model.User, created bool, err error) {
	err = s.autoCommit(ctx, func(t *tx) error {
		user, created, err = t.GetOrCreateUser(ctx, userID, isGuest)
		return err
	})
	return user, created, err
}

func (s *Store) GetUserMask(ctx context.Context, userID, maskID string) (m *model.UserMask, err error) {
	err = s.autoCommit(ctx, func(t *tx) error {
		m, err = t.GetUserMask(ctx, userID, maskID)
		return err
	})
	return m, err
}

func (s *Store) GetUserMasks(ctx context.Context, userID string) (ms []*model.UserMask, err error) {
	err = s.autoCommit(ctx, func(t *tx) error {
		ms, err = t.GetUserMasks(ctx, userID)
		return err
	})
	return ms, err
}

func (s *Store) UpsertUserMask(ctx context.Context, mask *model.UserMask) error {
	return s.autoCommit(ctx, func(t *tx) error {
		return t.UpsertUserMask(ctx, mask)
	})
}

func (s *Store) GetUserPackProgress(ctx context.Context, userID, packID string) (p *model.UserPackProgress, err error) {
	err = s.autoCommit(ctx, func(t *tx) error {
		p, err = t.GetUserPackProgress(ctx, userID, packID)
		return err
	})
	return p, err
}

func (s *Store) LockUserPackProgress(ctx context.Context, userID, packID string) (p *model.UserPackProgress, err error) {
	err = s.autoCommit(ctx, func(t *tx) error {
		p, err = t.LockUserPackProgress(ctx, userID, packID)
		return err
	})
	return p, err
}

func (s *Store) UpsertUserPackProgress(ctx context.Context, progress *model.UserPackProgress) error {
	return s.autoCommit(ctx, func(t *tx) error {
		return t.UpsertUserPackProgress(ctx, progress)
	})
}

func (s *Store) GetPackOpen(ctx context.Context, userID, clientRequestID string) (o *model.PackOpen, err error) {
	err = s.autoCommit(ctx, func(t *tx) error {
		o, err = t.GetPackOpen(ctx, userID, clientRequestID)
		return err
	})
	return o, err
}

func (s *Store) CreatePackOpen(ctx context.Context, open *model.PackOpen) error {
	return s.autoCommit(ctx, func(t *tx) error {
		return t.CreatePackOpen(ctx, open)
	})
}

func (s *Store) AppendEvent(ctx context.Context, evt *model.Event) error {
	return s.autoCommit(ctx, func(t *tx) error {
		return t.AppendEvent(ctx, evt)
	})
}

// lock 获取按键互斥，等待期间响应 ctx 取消
func (s *Store) lock(ctx context.Context, key string) error {
	s.mu.Lock()
	ch, ok := s.locks[key]
	if !ok {
		ch = make(chan struct{}, 1)
		s.locks[key] = ch
	}
	s.mu.Unlock()

	select {
	case ch <- struct{}{}:
		return nil
	case <-ctx.Done():
		return errors.Wrapf(ctx.Err(), "acquire lock %s", key)
	}
}

func (s *Store) unlock(key string) {
	s.mu.Lock()
	ch := s.locks[key]
	s.mu.Unlock()
	<-ch
}

func lockKey(parts ...string) string {
	return strings.Join(parts, "\x00")
}

// tx 内存事务
type tx struct {
	s        *Store
	held     []string
	users    map[string]*model.User
	masks    map[maskKey]*model.UserMask
	progress map[progressKey]*model.UserPackProgress
	opens    map[openKey]*model.PackOpen
	events   []*model.Event
}

var _ store.GameStore = (*tx)(nil)

func newTx(s *Store) *tx {
	return &tx{
		s:        s,
		users:    make(map[string]*model.User),
		masks:    make(map[maskKey]*model.UserMask),
		progress: make(map[progressKey]*model.UserPackProgress),
		opens:    make(map[openKey]*model.PackOpen),
	}
}

func (t *tx) acquire(ctx context.Context, key string) error {
	if slices.Contains(t.held, key) {
		return nil
	}
	if err := t.s.lock(ctx, key); err != nil {
		return err
	}
	t.held = append(t.held, key)
	return nil
}

func (t *tx) release() {
	for i := len(t.held) - 1; i >= 0; i-- {
		t.s.unlock(t.held[i])
	}
	t.held = nil
}

func (t *tx) commit() error {
	s := t.s
	s.mu.Lock()
	defer s.mu.Unlock()

	for k := range t.opens {
		if _, exists := s.opens[k]; exists {
			return errors.Wrapf(store.ErrDuplicateRequest, "user=%s request=%s", k.userID, k.requestID)
		}
	}

	maps.Copy(s.users, t.users)
	maps.Copy(s.masks, t.masks)
	maps.Copy(s.progress, t.progress)
	maps.Copy(s.opens, t.opens)
	for _, e := range t.events {
		s.eventSeq++
		e.ID = s.eventSeq
		s.events = append(s.events, e)
	}
	return nil
}

func (t *tx) GetOrCreateUser(ctx context.Context, userID string, isGuest bool) (*model.User, bool, error) {
	if userID == "" {
		return nil, false, errors.New("memory: user id is required")
	}
	if err := t.acquire(ctx, lockKey("user", userID)); err != nil {
		return nil, false, err
	}

	if u, ok := t.users[userID]; ok {
		c := *u
		return &c, false, nil
	}

	t.s.mu.Lock()
	u, ok := t.s.users[userID]
	now := t.s.now()
	t.s.mu.Unlock()
	if ok {
		c := *u
		return &c, false, nil
	}

	created := &model.User{UserID: userID, IsGuest: isGuest, CreatedAt: now}
	t.users[userID] = created
	c := *created
	return &c, true, nil
}

func (t *tx) GetUserMask(_ context.Context, userID, maskID string) (*model.UserMask, error) {
	k := maskKey{userID, maskID}
	if m, ok := t.masks[k]; ok {
		return m.Clone(), nil
	}

	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if m, ok := t.s.masks[k]; ok {
		return m.Clone(), nil
	}
	return nil, errors.Wrapf(store.ErrNotFound, "user mask %s/%s", userID, maskID)
}

func (t *tx) GetUserMasks(_ context.Context, userID string) ([]*model.UserMask, error) {
	merged := make(map[string]*model.UserMask)

	t.s.mu.Lock()
	for k, m := range t.s.masks {
		if k.userID == userID {
			merged[k.maskID] = m
		}
	}
	t.s.mu.Unlock()

	for k, m := range t.masks {
		if k.userID == userID {
			merged[k.maskID] = m
		}
	}

	ids := slices.Sorted(maps.Keys(merged))
	out := make([]*model.UserMask, 0, len(ids))
	for _, id := range ids {
		out = append(out, merged[id].Clone())
	}
	return out, nil
}

func (t *tx) UpsertUserMask(_ context.Context, mask *model.UserMask) error {
	if mask == nil {
		return errors.New("memory: user mask is nil")
	}
	t.masks[maskKey{mask.UserID, mask.MaskID}] = mask.Clone()
	return nil
}

func (t *tx) GetUserPackProgress(_ context.Context, userID, packID string) (*model.UserPackProgress, error) {
	k := progressKey{userID, packID}
	if p, ok := t.progress[k]; ok {
		return p.Clone(), nil
	}

	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if p, ok := t.s.progress[k]; ok {
		return p.Clone(), nil
	}
	return nil, errors.Wrapf(store.ErrNotFound, "pack progress %s/%s", userID, packID)
}

func (t *tx) LockUserPackProgress(ctx context.Context, userID, packID string) (*model.UserPackProgress, error) {
	if err := t.acquire(ctx, lockKey("progress", userID, packID)); err != nil {
		return nil, err
	}
	return t.GetUserPackProgress(ctx, userID, packID)
}

func (t *tx) UpsertUserPackProgress(_ context.Context, progress *model.UserPackProgress) error {
	if progress == nil {
		return errors.New("memory: pack progress is nil")
	}
	t.progress[progressKey{progress.UserID, progress.PackID}] = progress.Clone()
	return nil
}

func (t *tx) GetPackOpen(_ context.Context, userID, clientRequestID string) (*model.PackOpen, error) {
	k := openKey{userID, clientRequestID}
	if o, ok := t.opens[k]; ok {
		return o.Clone(), nil
	}

	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if o, ok := t.s.opens[k]; ok {
		return o.Clone(), nil
	}
	return nil, errors.Wrapf(store.ErrNotFound, "pack open %s/%s", userID, clientRequestID)
}

func (t *tx) CreatePackOpen(_ context.Context, open *model.PackOpen) error {
	if open == nil {
		return errors.New("memory: pack open is nil")
	}
	k := openKey{open.UserID, open.ClientRequestID}
	if _, ok := t.opens[k]; ok {
		return errors.Wrapf(store.ErrDuplicateRequest, "user=%s request=%s", k.userID, k.requestID)
	}

	t.s.mu.Lock()
	_, exists := t.s.opens[k]
	t.s.mu.Unlock()
	if exists {
		return errors.Wrapf(store.ErrDuplicateRequest, "user=%s request=%s", k.userID, k.requestID)
	}

	t.opens[k] = open.Clone()
	return nil
}

func (t *tx) AppendEvent(_ context.Context, evt *model.Event) error {
	if evt == nil {
		return errors.New("memory: event is nil")
	}
	c := *evt
	c.Payload = maps.Clone(evt.Payload)
	t.events = append(t.events, &c)
	return nil
}
