package gameconfig

import (
	"slices"

	"github.com/cockroachdb/errors"
	"github.com/lk2023060901/maskpack/app/maskpack/internal/model"
)

// Catalog 静态配置：面具、卡包、新手面具
// 创建后只读，可并发访问
type Catalog struct {
	balance  *BalanceConfig
	masks    []*model.MaskDefinition
	maskByID map[string]*model.MaskDefinition
	byRarity map[model.Rarity][]*model.MaskDefinition
	packs    []*model.Pack
	packByID map[string]*model.Pack
	starters []string
}

// NewCatalog 校验并构建配置
// max_level 为 0 的面具取稀有度上限，超过上限视为配置错误
func NewCatalog(balance *BalanceConfig, masks []*model.MaskDefinition, packs []*model.Pack, starters []string) (*Catalog, error) {
	if balance == nil {
		return nil, errors.New("gameconfig: balance config is nil")
	}
	if err := balance.Validate(); err != nil {
		return nil, err
	}

	c := &Catalog{
		balance:  balance,
		maskByID: make(map[string]*model.MaskDefinition, len(masks)),
		byRarity: make(map[model.Rarity][]*model.MaskDefinition),
		packByID: make(map[string]*model.Pack, len(packs)),
		starters: slices.Clone(starters),
	}

	for _, src := range masks {
		def, err := c.normalizeMask(src)
		if err != nil {
			return nil, err
		}
		if _, dup := c.maskByID[def.MaskID]; dup {
			return nil, errors.Newf("gameconfig: duplicate mask %q", def.MaskID)
		}
		c.masks = append(c.masks, def)
		c.maskByID[def.MaskID] = def
		c.byRarity[def.BaseRarity] = append(c.byRarity[def.BaseRarity], def)
	}

	for _, src := range packs {
		if src == nil || src.PackID == "" {
			return nil, errors.New("gameconfig: pack id is required")
		}
		if src.MasksPerPack < 1 {
			return nil, errors.Newf("gameconfig: pack %q masks_per_pack must be >= 1", src.PackID)
		}
		if _, dup := c.packByID[src.PackID]; dup {
			return nil, errors.Newf("gameconfig: duplicate pack %q", src.PackID)
		}
		p := *src
		c.packs = append(c.packs, &p)
		c.packByID[p.PackID] = &p
	}
	if len(c.packs) == 0 {
		return nil, errors.New("gameconfig: at least one pack is required")
	}

	return c, nil
}

func (c *Catalog) normalizeMask(src *model.MaskDefinition) (*model.MaskDefinition, error) {
	if src == nil || src.MaskID == "" {
		return nil, errors.New("gameconfig: mask id is required")
	}
	if !src.BaseRarity.Valid() {
		return nil, errors.Newf("gameconfig: mask %q has unknown rarity %q", src.MaskID, src.BaseRarity)
	}
	if !src.BuffType.Valid() {
		return nil, errors.Newf("gameconfig: mask %q has unknown buff type %q", src.MaskID, src.BuffType)
	}
	if src.OriginalColor == "" {
		return nil, errors.Newf("gameconfig: mask %q original_color is required", src.MaskID)
	}

	rarityCap := c.balance.MaxLevelByRarity.Of(src.BaseRarity)
	def := *src
	switch {
	case def.MaxLevel == 0:
		def.MaxLevel = rarityCap
	case def.MaxLevel < 0 || def.MaxLevel > rarityCap:
		return nil, errors.Newf("gameconfig: mask %q max_level %d out of range 1..%d", def.MaskID, def.MaxLevel, rarityCap)
	}

	def.BaseColorDistribution = make(map[string]float64, len(src.BaseColorDistribution))
	for color, w := range src.BaseColorDistribution {
		if w < 0 {
			return nil, errors.Newf("gameconfig: mask %q color %q has negative weight", def.MaskID, color)
		}
		def.BaseColorDistribution[color] = w
	}
	return &def, nil
}

// Balance 数值配置
func (c *Catalog) Balance() *BalanceConfig {
	return c.balance
}

// Mask 按 ID 查找面具
func (c *Catalog) Mask(maskID string) (*model.MaskDefinition, bool) {
	def, ok := c.maskByID[maskID]
	return def, ok
}

// Masks 全部面具，配置顺序
func (c *Catalog) Masks() []*model.MaskDefinition {
	return c.masks
}

// MasksOfRarity 指定稀有度的面具，配置顺序
func (c *Catalog) MasksOfRarity(r model.Rarity) []*model.MaskDefinition {
	return c.byRarity[r]
}

// Pack 按 ID 查找卡包
func (c *Catalog) Pack(packID string) (*model.Pack, bool) {
	p, ok := c.packByID[packID]
	return p, ok
}

// Packs 全部卡包，配置顺序（也是加锁顺序）
func (c *Catalog) Packs() []*model.Pack {
	return c.packs
}

// StarterMasks 新手赠送面具 ID，第一个装备在 TOA
func (c *Catalog) StarterMasks() []string {
	return c.starters
}
