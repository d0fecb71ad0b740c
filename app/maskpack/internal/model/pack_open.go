package model

import (
	"slices"
	"time"
)

// DrawResultItem 单次抽取结果
type DrawResultItem struct {
	MaskID                string   `json:"mask_id"`
	Name                  string   `json:"name"`
	Rarity                Rarity   `json:"rarity"`
	Color                 string   `json:"color"`
	IsNew                 bool     `json:"is_new"`
	WasColorNew           bool     `json:"was_color_new"`
	EssenceAwarded        int      `json:"essence_awarded"`
	EssenceRemaining      int      `json:"essence_remaining"`
	FinalEssenceRemaining int      `json:"final_essence_remaining"`
	LevelBefore           int      `json:"level_before"`
	LevelAfter            int      `json:"level_after"`
	FinalLevelAfter       int      `json:"final_level_after"`
	UnlockedColors        []string `json:"unlocked_colors"`
}

// OpenResult 开包结果
type OpenResult struct {
	Masks       []DrawResultItem `json:"masks"`
	PityCounter int              `json:"pity_counter"`
}

// PackOpen 开包记录（幂等键 user_id + client_request_id）
// 对应表：pack_opens
type PackOpen struct {
	ID              int64          `db:"id"`
	UserID          string         `db:"user_id"`
	PackID          string         `db:"pack_id"`
	ClientRequestID string         `db:"client_request_id"`
	Seed            string         `db:"seed"`
	PityAfter       int            `db:"pity_after"`
	CreatedAt       time.Time      `db:"created_at"`
	Pulls           []PackOpenPull `db:"-"`
}

// PackOpenPull 开包明细，按 Index 有序
// 对应表：pack_open_pulls
type PackOpenPull struct {
	PackOpenID int64 `db:"pack_open_id"`
	Index      int   `db:"pull_index"`
	DrawResultItem
}

// Result 按持久化内容重放开包结果
func (o *PackOpen) Result() *OpenResult {
	pulls := slices.Clone(o.Pulls)
	slices.SortFunc(pulls, func(a, b PackOpenPull) int { return a.Index - b.Index })

	masks := make([]DrawResultItem, 0, len(pulls))
	for _, p := range pulls {
		item := p.DrawResultItem
		item.UnlockedColors = slices.Clone(item.UnlockedColors)
		masks = append(masks, item)
	}
	return &OpenResult{Masks: masks, PityCounter: o.PityAfter}
}

// Clone 深拷贝
func (o *PackOpen) Clone() *PackOpen {
	if o == nil {
		return nil
	}
	c := *o
	c.Pulls = make([]PackOpenPull, len(o.Pulls))
	for i, p := range o.Pulls {
		p.UnlockedColors = slices.Clone(p.UnlockedColors)
		c.Pulls[i] = p
	}
	return &c
}

// PackStatus 卡包充能状态
type PackStatus struct {
	PackID          string `json:"pack_id"`
	PackReady       bool   `json:"pack_ready"`
	TimeToReady     *int64 `json:"time_to_ready"`     // 秒，已满时为 nil
	TimeToNextPack  *int64 `json:"time_to_next_pack"` // 秒，已满时为 nil
	FractionalUnits int    `json:"fractional_units"`
	PityCounter     int    `json:"pity_counter"`
	PackCap         int    `json:"pack_cap"`
	StoredPacks     int    `json:"stored_packs"`
	EarningPaused   bool   `json:"earning_paused"`
	UnitsPerPack    int    `json:"units_per_pack"`
}
