package service

import (
	"context"
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/lk2023060901/maskpack/app/maskpack/internal/engine"
	"github.com/lk2023060901/maskpack/app/maskpack/internal/events"
	"github.com/lk2023060901/maskpack/app/maskpack/internal/gameconfig"
	"github.com/lk2023060901/maskpack/app/maskpack/internal/metrics"
	"github.com/lk2023060901/maskpack/app/maskpack/internal/model"
	"github.com/lk2023060901/maskpack/app/maskpack/internal/store"
	"github.com/lk2023060901/maskpack/pkg/logger"
	"github.com/lk2023060901/maskpack/pkg/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	opEquip    = "equip"
	opSetColor = "set_color"
)

// EquipRequest 装备请求，Slot 为 NONE 表示卸下
type EquipRequest struct {
	UserID string
	MaskID string
	Slot   model.Slot
	// Confirm 确认丢弃超出新容量的卡包
	Confirm bool
}

// StorageTrim 被截断的储存
type StorageTrim struct {
	PackID       string
	TrimmedUnits int
	PackCap      int
}

// EquipResult 装备结果
type EquipResult struct {
	Buffs   model.BuffTotals
	Trimmed []StorageTrim
}

// EquipService 装备与换色
type EquipService struct {
	store     store.Store
	catalog   *gameconfig.Catalog
	publisher events.Publisher
	metrics   *metrics.GameMetrics
	tracer    trace.Tracer
	logger    logger.Logger
	now       Clock
}

// NewEquipService 创建装备服务
func NewEquipService(cfg *Config, d *Deps) (*EquipService, error) {
	newCfg, err := MergeConfig(cfg)
	if err != nil {
		return nil, err
	}
	deps, err := d.normalize(newCfg)
	if err != nil {
		return nil, err
	}
	return &EquipService{
		store:     deps.Store,
		catalog:   deps.Catalog,
		publisher: deps.Publisher,
		metrics:   deps.Metrics,
		tracer:    deps.Tracer,
		logger:    deps.Logger.Named("service.equip"),
		now:       deps.Clock,
	}, nil
}

// Equip 装备或卸下面具
// 变更前按旧加成结算全部卡包充能；新容量放不下已储存的卡包时需要确认
func (s *EquipService) Equip(ctx context.Context, req EquipRequest) (_ *EquipResult, err error) {
	ctx, span := s.tracer.Start(ctx, "EquipService.Equip", trace.WithAttributes(
		attribute.String("user_id", req.UserID),
		attribute.String("mask_id", req.MaskID),
		attribute.String("slot", string(req.Slot)),
		attribute.Bool("confirm", req.Confirm),
	))
	defer func() {
		otel.EndSpan(span, err)
		s.metrics.RecordMutation(opEquip, err == nil)
	}()

	if req.UserID == "" || req.MaskID == "" {
		return nil, invalidArgument("user_id and mask_id are required")
	}
	if !req.Slot.Valid() {
		return nil, invalidArgument("invalid slot %q", req.Slot)
	}

	var (
		result  *EquipResult
		pending []*model.Event
	)
	err = s.store.WithTx(ctx, func(ctx context.Context, tx store.GameStore) error {
		var err error
		result, pending, err = s.equipTx(ctx, tx, req)
		return err
	})
	if err != nil {
		if errors.IsAssertionFailure(err) {
			s.logger.ErrorContext(ctx, "equip invariant violated", "user_id", req.UserID, "error", err)
		}
		return nil, err
	}

	s.publisher.Publish(ctx, pending...)
	s.logger.InfoContext(ctx, "mask equipped",
		"user_id", req.UserID,
		"mask_id", req.MaskID,
		"slot", req.Slot,
		"trimmed", len(result.Trimmed),
	)
	return result, nil
}

func (s *EquipService) equipTx(ctx context.Context, tx store.GameStore, req EquipRequest) (*EquipResult, []*model.Event, error) {
	b := s.catalog.Balance()
	now := s.now()

	progresses, err := lockUserProgress(ctx, tx, s.catalog, req.UserID)
	if err != nil {
		return nil, nil, err
	}

	target, err := ownedMask(ctx, tx, req.UserID, req.MaskID)
	if err != nil {
		return nil, nil, err
	}
	masks, err := tx.GetUserMasks(ctx, req.UserID)
	if err != nil {
		return nil, nil, errors.Wrap(err, "get user masks")
	}

	// 已经过的时间按旧速度结算
	oldBuffs := engine.AggregateBuffs(masks, s.catalog.Mask, b)
	for _, p := range progresses {
		engine.Refresh(p, oldBuffs, b, now)
	}

	previousSlot := target.EquippedSlot
	next, changed := applySlot(masks, target.MaskID, req.Slot)
	newBuffs := engine.AggregateBuffs(next, s.catalog.Mask, b)
	newCap := engine.PackCap(newBuffs, b)

	var pending []*model.Event
	result := &EquipResult{Buffs: newBuffs}
	for _, p := range progresses {
		excess := engine.ExcessPacks(p, newCap, b)
		if excess == 0 {
			continue
		}
		if !req.Confirm {
			return nil, nil, &ConfirmationRequiredError{
				PackID:      p.PackID,
				StoredPacks: p.FractionalUnits / b.UnitsPerPack,
				NextCap:     newCap,
				Excess:      excess,
			}
		}
		trimmed := engine.ClampToCap(p, newCap, b)
		result.Trimmed = append(result.Trimmed, StorageTrim{PackID: p.PackID, TrimmedUnits: trimmed, PackCap: newCap})
		pending = append(pending, model.NewEvent(req.UserID, model.EventStorageTrimmed, map[string]string{
			"pack_id":       p.PackID,
			"trimmed_units": strconv.Itoa(trimmed),
			"pack_cap":      strconv.Itoa(newCap),
		}, now))
	}

	for _, p := range progresses {
		if err := tx.UpsertUserPackProgress(ctx, p); err != nil {
			return nil, nil, errors.Wrapf(err, "save progress %s", p.PackID)
		}
	}
	for _, m := range changed {
		if err := tx.UpsertUserMask(ctx, m); err != nil {
			return nil, nil, errors.Wrapf(err, "save mask %s", m.MaskID)
		}
	}

	// 槽位没有变化时不记装备事件
	switch {
	case len(changed) == 0:
	case req.Slot == model.SlotNone:
		pending = append(pending, model.NewEvent(req.UserID, model.EventMaskUnequipped, map[string]string{
			"mask_id": req.MaskID,
			"slot":    string(previousSlot),
		}, now))
	default:
		pending = append(pending, model.NewEvent(req.UserID, model.EventMaskEquipped, map[string]string{
			"mask_id": req.MaskID,
			"slot":    string(req.Slot),
		}, now))
	}
	for _, evt := range pending {
		if err := tx.AppendEvent(ctx, evt); err != nil {
			return nil, nil, errors.Wrap(err, "append event")
		}
	}
	return result, pending, nil
}

// applySlot 返回变更后的全部面具与发生变化的面具
// 目标槽位原来的持有者被卸下
func applySlot(masks []*model.UserMask, maskID string, slot model.Slot) (all, changed []*model.UserMask) {
	all = make([]*model.UserMask, 0, len(masks))
	for _, src := range masks {
		m := src.Clone()
		switch {
		case m.MaskID == maskID:
			m.EquippedSlot = slot
		case slot != model.SlotNone && m.EquippedSlot == slot:
			m.EquippedSlot = model.SlotNone
		}
		if m.EquippedSlot != src.EquippedSlot {
			changed = append(changed, m)
		}
		all = append(all, m)
	}
	return all, changed
}

// SetColor 切换面具颜色，只能选择已解锁的颜色
func (s *EquipService) SetColor(ctx context.Context, userID, maskID, color string) (_ *model.UserMask, err error) {
	ctx, span := s.tracer.Start(ctx, "EquipService.SetColor", trace.WithAttributes(
		attribute.String("user_id", userID),
		attribute.String("mask_id", maskID),
		attribute.String("color", color),
	))
	defer func() {
		otel.EndSpan(span, err)
		s.metrics.RecordMutation(opSetColor, err == nil)
	}()

	if userID == "" || maskID == "" || color == "" {
		return nil, invalidArgument("user_id, mask_id and color are required")
	}

	var (
		updated *model.UserMask
		evt     *model.Event
	)
	err = s.store.WithTx(ctx, func(ctx context.Context, tx store.GameStore) error {
		if _, err := lockUserProgress(ctx, tx, s.catalog, userID); err != nil {
			return err
		}
		m, err := ownedMask(ctx, tx, userID, maskID)
		if err != nil {
			return err
		}
		if !m.HasColor(color) {
			return errors.Wrapf(ErrColorLocked, "mask %s color %s", maskID, color)
		}

		previous := m.EquippedColor
		m.EquippedColor = color
		if err := tx.UpsertUserMask(ctx, m); err != nil {
			return errors.Wrap(err, "save mask")
		}

		evt = model.NewEvent(userID, model.EventColorChanged, map[string]string{
			"mask_id":  maskID,
			"color":    color,
			"previous": previous,
		}, s.now())
		if err := tx.AppendEvent(ctx, evt); err != nil {
			return errors.Wrap(err, "append event")
		}
		updated = m
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publisher.Publish(ctx, evt)
	s.logger.DebugContext(ctx, "mask color changed", "user_id", userID, "mask_id", maskID, "color", color)
	return updated, nil
}
