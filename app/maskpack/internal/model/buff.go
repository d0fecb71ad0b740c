package model

// BuffTotals 已装备面具的效果汇总，按需计算，不落库
type BuffTotals struct {
	PackLuck      float64 `json:"pack_luck"`
	TimerSpeed    float64 `json:"timer_speed"`
	DuplicateEff  float64 `json:"duplicate_eff"`
	Discovery     float64 `json:"discovery"`
	Inspection    float64 `json:"inspection"`
	ColorVariants float64 `json:"color_variants"`
	FriendBonus   float64 `json:"friend_bonus"`
	PackStacking  float64 `json:"pack_stacking"`
}

// CollectionEntry 玩家图鉴条目
type CollectionEntry struct {
	Mask       *UserMask       `json:"mask"`
	Definition *MaskDefinition `json:"definition"`
}

// Collection 玩家图鉴
type Collection struct {
	Masks []CollectionEntry `json:"masks"`
	Buffs BuffTotals        `json:"buffs"`
}
