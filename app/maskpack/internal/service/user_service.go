package service

import (
	"context"
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/lk2023060901/maskpack/app/maskpack/internal/engine"
	"github.com/lk2023060901/maskpack/app/maskpack/internal/events"
	"github.com/lk2023060901/maskpack/app/maskpack/internal/gameconfig"
	"github.com/lk2023060901/maskpack/app/maskpack/internal/model"
	"github.com/lk2023060901/maskpack/app/maskpack/internal/store"
	"github.com/lk2023060901/maskpack/pkg/logger"
)

const guestPrefix = "guest-"

// UserService 玩家开户与收藏查询
type UserService struct {
	store     store.Store
	catalog   *gameconfig.Catalog
	publisher events.Publisher
	logger    logger.Logger
	now       Clock
}

// NewUserService 创建玩家服务
func NewUserService(cfg *Config, d *Deps) (*UserService, error) {
	newCfg, err := MergeConfig(cfg)
	if err != nil {
		return nil, err
	}
	deps, err := d.normalize(newCfg)
	if err != nil {
		return nil, err
	}
	return &UserService{
		store:     deps.Store,
		catalog:   deps.Catalog,
		publisher: deps.Publisher,
		logger:    deps.Logger.Named("service.user"),
		now:       deps.Clock,
	}, nil
}

// Provision 获取或创建玩家，userID 为空的游客分配随机 ID
// 新玩家获得每个卡包的初始充能和新手面具
func (s *UserService) Provision(ctx context.Context, userID string, isGuest bool) (*model.User, bool, error) {
	if userID == "" {
		if !isGuest {
			return nil, false, invalidArgument("user_id is required")
		}
		userID = guestPrefix + uuid.NewString()
	}

	var (
		user    *model.User
		created bool
		evt     *model.Event
	)
	err := s.store.WithTx(ctx, func(ctx context.Context, tx store.GameStore) error {
		var err error
		user, created, err = tx.GetOrCreateUser(ctx, userID, isGuest)
		if err != nil {
			return errors.Wrap(err, "get or create user")
		}
		if !created {
			return nil
		}
		evt, err = s.provisionTx(ctx, tx, user)
		return err
	})
	if err != nil {
		if errors.IsAssertionFailure(err) {
			s.logger.ErrorContext(ctx, "provision invariant violated", "user_id", userID, "error", err)
		}
		return nil, false, err
	}

	if created {
		s.publisher.Publish(ctx, evt)
		s.logger.InfoContext(ctx, "user created", "user_id", user.UserID, "is_guest", user.IsGuest)
	}
	return user, created, nil
}

func (s *UserService) provisionTx(ctx context.Context, tx store.GameStore, user *model.User) (*model.Event, error) {
	b := s.catalog.Balance()
	now := s.now()

	for _, pack := range s.catalog.Packs() {
		progress := &model.UserPackProgress{
			UserID:          user.UserID,
			PackID:          pack.PackID,
			FractionalUnits: b.UnitsPerPack * b.StarterPacks,
			LastUnitTS:      now,
		}
		if err := tx.UpsertUserPackProgress(ctx, progress); err != nil {
			return nil, errors.Wrapf(err, "create progress %s", pack.PackID)
		}
	}

	for i, maskID := range s.catalog.StarterMasks() {
		def, ok := s.catalog.Mask(maskID)
		if !ok {
			return nil, errors.AssertionFailedf("starter mask %s missing from catalog", maskID)
		}
		m := model.NewUserMask(user.UserID, def.MaskID)
		m.OwnedCount = 1
		m.UnlockColor(def.OriginalColor)
		m.EquippedColor = def.OriginalColor
		m.LastAcquiredAt = now
		if i == 0 {
			m.EquippedSlot = model.SlotToa
		}
		if err := tx.UpsertUserMask(ctx, m); err != nil {
			return nil, errors.Wrapf(err, "grant starter mask %s", maskID)
		}
	}

	evt := model.NewEvent(user.UserID, model.EventUserCreated, map[string]string{
		"is_guest": strconv.FormatBool(user.IsGuest),
	}, now)
	if err := tx.AppendEvent(ctx, evt); err != nil {
		return nil, errors.Wrap(err, "append event")
	}
	return evt, nil
}

// Collection 玩家持有的面具及当前加成
func (s *UserService) Collection(ctx context.Context, userID string) (*model.Collection, error) {
	if userID == "" {
		return nil, invalidArgument("user_id is required")
	}

	masks, err := s.store.GetUserMasks(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "get user masks")
	}

	out := &model.Collection{
		Masks: make([]model.CollectionEntry, 0, len(masks)),
		Buffs: engine.AggregateBuffs(masks, s.catalog.Mask, s.catalog.Balance()),
	}
	for _, m := range masks {
		if !m.Owned() {
			continue
		}
		def, ok := s.catalog.Mask(m.MaskID)
		if !ok {
			s.logger.WarnContext(ctx, "owned mask missing from catalog", "user_id", userID, "mask_id", m.MaskID)
			continue
		}
		out.Masks = append(out.Masks, model.CollectionEntry{Mask: m, Definition: def})
	}
	return out, nil
}
