package model

import (
	"slices"
	"time"
)

// User 玩家
// 对应表：users
type User struct {
	UserID    string    `db:"user_id"`
	IsGuest   bool      `db:"is_guest"`
	CreatedAt time.Time `db:"created_at"`
}

// UserMask 玩家面具养成状态
// 对应表：user_masks
type UserMask struct {
	UserID         string    `db:"user_id"`
	MaskID         string    `db:"mask_id"`
	OwnedCount     int       `db:"owned_count"`
	Essence        int       `db:"essence"`
	Level          int       `db:"level"`
	EquippedSlot   Slot      `db:"equipped_slot"`
	UnlockedColors []string  `db:"unlocked_colors"` // 有序集合，只增不减
	EquippedColor  string    `db:"equipped_color"`
	LastAcquiredAt time.Time `db:"last_acquired_at"`
}

// NewUserMask 首次获得前的初始状态
func NewUserMask(userID, maskID string) *UserMask {
	return &UserMask{
		UserID:         userID,
		MaskID:         maskID,
		Level:          1,
		EquippedSlot:   SlotNone,
		UnlockedColors: []string{},
	}
}

// Owned 是否已拥有
func (m *UserMask) Owned() bool {
	return m != nil && m.OwnedCount > 0
}

// HasColor 颜色是否已解锁
func (m *UserMask) HasColor(color string) bool {
	_, found := slices.BinarySearch(m.UnlockedColors, color)
	return found
}

// UnlockColor 解锁颜色，返回是否为新颜色
func (m *UserMask) UnlockColor(color string) bool {
	idx, found := slices.BinarySearch(m.UnlockedColors, color)
	if found {
		return false
	}
	m.UnlockedColors = slices.Insert(m.UnlockedColors, idx, color)
	return true
}

// Clone 深拷贝
func (m *UserMask) Clone() *UserMask {
	if m == nil {
		return nil
	}
	c := *m
	c.UnlockedColors = slices.Clone(m.UnlockedColors)
	if c.UnlockedColors == nil {
		c.UnlockedColors = []string{}
	}
	return &c
}

// UserPackProgress 玩家卡包充能进度
// 对应表：user_pack_progress
type UserPackProgress struct {
	UserID          string     `db:"user_id"`
	PackID          string     `db:"pack_id"`
	FractionalUnits int        `db:"fractional_units"`
	LastUnitTS      time.Time  `db:"last_unit_ts"`
	PityCounter     int        `db:"pity_counter"`
	LastPackClaimTS *time.Time `db:"last_pack_claim_ts"`
}

// Clone 拷贝
func (p *UserPackProgress) Clone() *UserPackProgress {
	if p == nil {
		return nil
	}
	c := *p
	if p.LastPackClaimTS != nil {
		ts := *p.LastPackClaimTS
		c.LastPackClaimTS = &ts
	}
	return &c
}
