package model

// Rarity 稀有度
type Rarity string

const (
	RarityCommon Rarity = "COMMON"
	RarityRare   Rarity = "RARE"
	RarityMythic Rarity = "MYTHIC"
)

// Rarities 全部稀有度，从低到高
var Rarities = []Rarity{RarityCommon, RarityRare, RarityMythic}

// Valid 是否为已知稀有度
func (r Rarity) Valid() bool {
	switch r {
	case RarityCommon, RarityRare, RarityMythic:
		return true
	}
	return false
}

// IsRarePlus RARE 及以上
func (r Rarity) IsRarePlus() bool {
	return r == RarityRare || r == RarityMythic
}

// BuffType 面具效果类型
type BuffType string

const (
	BuffRarityOdds    BuffType = "RARITY_ODDS"
	BuffCDReduction   BuffType = "CD_REDUCTION"
	BuffProtodermis   BuffType = "PROTODERMIS"
	BuffDiscovery     BuffType = "DISCOVERY"
	BuffInspection    BuffType = "INSPECTION"
	BuffColorVariants BuffType = "COLOR_VARIANTS"
	BuffFriendBonus   BuffType = "FRIEND_BONUS"
	BuffPackStacking  BuffType = "PACK_STACKING"
	BuffVisual        BuffType = "VISUAL"
)

// Valid 是否为已知效果类型
func (b BuffType) Valid() bool {
	switch b {
	case BuffRarityOdds, BuffCDReduction, BuffProtodermis, BuffDiscovery, BuffInspection,
		BuffColorVariants, BuffFriendBonus, BuffPackStacking, BuffVisual:
		return true
	}
	return false
}

// Slot 装备槽位
type Slot string

const (
	SlotNone   Slot = "NONE"
	SlotToa    Slot = "TOA"
	SlotTuraga Slot = "TURAGA"
)

// Valid 是否为已知槽位
func (s Slot) Valid() bool {
	return s == SlotNone || s == SlotToa || s == SlotTuraga
}

// MaskDefinition 面具配置（静态，加载后只读）
type MaskDefinition struct {
	MaskID                string             `json:"mask_id"`
	Generation            int                `json:"generation"`
	Name                  string             `json:"name"`
	BaseRarity            Rarity             `json:"base_rarity"`
	BaseColorDistribution map[string]float64 `json:"base_color_distribution"`
	BuffType              BuffType           `json:"buff_type"`
	BuffBaseValue         float64            `json:"buff_base_value"`
	MaxLevel              int                `json:"max_level"`
	OriginalColor         string             `json:"original_color"`
	Transparent           bool               `json:"transparent"`
	Origin                string             `json:"origin"`
}

// Pack 卡包配置
type Pack struct {
	PackID             string `json:"pack_id"`
	Name               string `json:"name"`
	MasksPerPack       int    `json:"masks_per_pack"`
	FeaturedGeneration int    `json:"featured_generation"`
}
