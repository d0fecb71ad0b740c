package engine

import (
	"math"
	"slices"
	"time"

	"github.com/lk2023060901/maskpack/app/maskpack/internal/gameconfig"
	"github.com/lk2023060901/maskpack/app/maskpack/internal/model"
)

// Ledger 单次开包内的面具养成账本
// 读取已有状态，按抽取顺序修改，记录被修改的面具
type Ledger struct {
	userID  string
	masks   map[string]*model.UserMask
	touched []string
}

// NewLedger 以玩家当前面具创建账本，入参会被拷贝
func NewLedger(userID string, masks []*model.UserMask) *Ledger {
	l := &Ledger{
		userID: userID,
		masks:  make(map[string]*model.UserMask, len(masks)),
	}
	for _, m := range masks {
		l.masks[m.MaskID] = m.Clone()
	}
	return l
}

// Owned 是否已拥有
func (l *Ledger) Owned(maskID string) bool {
	return l.masks[maskID].Owned()
}

// Mask 当前状态，不存在时返回 nil
func (l *Ledger) Mask(maskID string) *model.UserMask {
	return l.masks[maskID]
}

// Touched 本次被修改的面具，按首次修改顺序
func (l *Ledger) Touched() []*model.UserMask {
	out := make([]*model.UserMask, 0, len(l.touched))
	for _, id := range l.touched {
		out = append(out, l.masks[id])
	}
	return out
}

// Apply 记一次抽取：重复获得转化精华、解锁颜色、自动升级
func (l *Ledger) Apply(
	def *model.MaskDefinition,
	color string,
	duplicateEff float64,
	b *gameconfig.BalanceConfig,
	now time.Time,
) model.DrawResultItem {
	m, ok := l.masks[def.MaskID]
	if !ok {
		m = model.NewUserMask(l.userID, def.MaskID)
		l.masks[def.MaskID] = m
	}
	if !slices.Contains(l.touched, def.MaskID) {
		l.touched = append(l.touched, def.MaskID)
	}

	isNew := m.OwnedCount == 0
	levelBefore := m.Level

	awarded := 0
	if !isNew {
		awarded = int(math.Round(float64(b.DuplicateEssenceBase.Of(def.BaseRarity)) * (1 + duplicateEff)))
		m.Essence += awarded
	}

	m.OwnedCount++
	wasColorNew := m.UnlockColor(color)
	if m.EquippedColor == "" {
		m.EquippedColor = color
	}
	m.LastAcquiredAt = now

	levelUp(m, MaxLevel(def, b), b.LevelBase.Of(def.BaseRarity))

	return model.DrawResultItem{
		MaskID:                def.MaskID,
		Name:                  def.Name,
		Rarity:                def.BaseRarity,
		Color:                 color,
		IsNew:                 isNew,
		WasColorNew:           wasColorNew,
		EssenceAwarded:        awarded,
		EssenceRemaining:      m.Essence,
		FinalEssenceRemaining: m.Essence,
		LevelBefore:           levelBefore,
		LevelAfter:            m.Level,
		FinalLevelAfter:       m.Level,
		UnlockedColors:        slices.Clone(m.UnlockedColors),
	}
}

// MaxLevel 面具等级上限，不超过稀有度上限
func MaxLevel(def *model.MaskDefinition, b *gameconfig.BalanceConfig) int {
	limit := b.MaxLevelByRarity.Of(def.BaseRarity)
	if def.MaxLevel > 0 && def.MaxLevel < limit {
		return def.MaxLevel
	}
	return limit
}

// levelUp 精华足够时连续升级，每级消耗 levelBase*当前等级
func levelUp(m *model.UserMask, maxLevel, levelBase int) {
	for m.Level < maxLevel && m.Essence >= levelBase*m.Level {
		m.Essence -= levelBase * m.Level
		m.Level++
	}
}

// Backfill 将同一面具的最终精华与等级回填到每条结果
func (l *Ledger) Backfill(items []model.DrawResultItem) {
	for i := range items {
		if m, ok := l.masks[items[i].MaskID]; ok {
			items[i].FinalEssenceRemaining = m.Essence
			items[i].FinalLevelAfter = m.Level
		}
	}
}
