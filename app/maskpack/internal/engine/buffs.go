package engine

import (
	"math"

	"github.com/lk2023060901/maskpack/app/maskpack/internal/gameconfig"
	"github.com/lk2023060901/maskpack/app/maskpack/internal/model"
)

// SlotMultiplier 槽位效果倍率
func SlotMultiplier(slot model.Slot) float64 {
	switch slot {
	case model.SlotToa:
		return 1.0
	case model.SlotTuraga:
		return 0.5
	default:
		return 0
	}
}

// DefinitionFunc 按 ID 查找面具配置
type DefinitionFunc func(maskID string) (*model.MaskDefinition, bool)

// AggregateBuffs 汇总已装备面具的效果并应用上限
// 找不到配置的面具不计入；好友加成固定为 0
func AggregateBuffs(masks []*model.UserMask, lookup DefinitionFunc, b *gameconfig.BalanceConfig) model.BuffTotals {
	var t model.BuffTotals
	for _, m := range masks {
		if m == nil || m.EquippedSlot == model.SlotNone || m.EquippedSlot == "" {
			continue
		}
		def, ok := lookup(m.MaskID)
		if !ok {
			continue
		}

		value := def.BuffBaseValue * float64(m.Level) * SlotMultiplier(m.EquippedSlot)
		switch def.BuffType {
		case model.BuffRarityOdds:
			t.PackLuck += value
		case model.BuffCDReduction:
			t.TimerSpeed += value
		case model.BuffProtodermis:
			t.DuplicateEff += value
		case model.BuffDiscovery:
			t.Discovery += value
		case model.BuffInspection:
			t.Inspection += value
		case model.BuffColorVariants:
			t.ColorVariants += value
		case model.BuffFriendBonus:
			t.FriendBonus += value
		case model.BuffPackStacking:
			t.PackStacking += value
		}
	}

	t.PackLuck = math.Min(t.PackLuck, b.PackLuckCap)
	t.TimerSpeed = math.Min(t.TimerSpeed, b.PackCDCap)
	t.ColorVariants = math.Min(t.ColorVariants, b.ColorBuffCap)
	t.FriendBonus = 0
	return t
}
