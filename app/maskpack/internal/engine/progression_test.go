package engine

import (
	"testing"
	"time"

	"github.com/lk2023060901/maskpack/app/maskpack/internal/gameconfig"
	"github.com/lk2023060901/maskpack/app/maskpack/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestLedgerFirstDraw(t *testing.T) {
	b := gameconfig.DefaultBalance()
	def := mask("hau", model.RarityCommon, model.BuffVisual, 0)
	l := NewLedger("u1", nil)

	item := l.Apply(def, "red", 0, b, testNow)

	assert.True(t, item.IsNew)
	assert.True(t, item.WasColorNew)
	assert.Equal(t, 0, item.EssenceAwarded)
	assert.Equal(t, 1, item.LevelBefore)
	assert.Equal(t, 1, item.LevelAfter)
	assert.Equal(t, []string{"red"}, item.UnlockedColors)

	m := l.Mask("hau")
	require.NotNil(t, m)
	assert.Equal(t, 1, m.OwnedCount)
	assert.Equal(t, "red", m.EquippedColor)
	assert.Equal(t, model.SlotNone, m.EquippedSlot)
	assert.Equal(t, testNow, m.LastAcquiredAt)
	assert.True(t, l.Owned("hau"))
}

func TestLedgerDuplicateEssence(t *testing.T) {
	b := gameconfig.DefaultBalance()
	def := mask("hau", model.RarityCommon, model.BuffVisual, 0)
	existing := &model.UserMask{UserID: "u1", MaskID: "hau", OwnedCount: 1, Level: 1, UnlockedColors: []string{"red"}}
	l := NewLedger("u1", []*model.UserMask{existing})

	// round(5 * 1.5) = 8
	item := l.Apply(def, "red", 0.5, b, testNow)

	assert.False(t, item.IsNew)
	assert.False(t, item.WasColorNew)
	assert.Equal(t, 8, item.EssenceAwarded)
	assert.Equal(t, 8, item.EssenceRemaining)
	assert.Equal(t, 2, l.Mask("hau").OwnedCount)
	// 入参不被修改
	assert.Equal(t, 1, existing.OwnedCount)
}

func TestLedgerMultiLevelUp(t *testing.T) {
	b := gameconfig.DefaultBalance()
	def := mask("hau", model.RarityCommon, model.BuffVisual, 0)
	l := NewLedger("u1", []*model.UserMask{
		{UserID: "u1", MaskID: "hau", OwnedCount: 3, Essence: 29, Level: 1, UnlockedColors: []string{"red"}},
	})

	// 29+5=34，升 2 级消耗 10，升 3 级消耗 20，剩 4
	item := l.Apply(def, "blue", 0, b, testNow)

	assert.Equal(t, 1, item.LevelBefore)
	assert.Equal(t, 3, item.LevelAfter)
	assert.Equal(t, 4, item.EssenceRemaining)
	assert.True(t, item.WasColorNew)
	assert.Equal(t, []string{"blue", "red"}, item.UnlockedColors)
}

func TestLedgerMaxLevel(t *testing.T) {
	b := gameconfig.DefaultBalance()
	def := mask("vahi", model.RarityMythic, model.BuffVisual, 0)
	l := NewLedger("u1", []*model.UserMask{
		{UserID: "u1", MaskID: "vahi", OwnedCount: 5, Essence: 1000, Level: 3, UnlockedColors: []string{"red"}},
	})

	item := l.Apply(def, "red", 0, b, testNow)

	assert.Equal(t, 3, item.LevelAfter)
	assert.Equal(t, 1050, item.EssenceRemaining)
}

func TestLedgerDefinitionMaxLevel(t *testing.T) {
	b := gameconfig.DefaultBalance()
	def := mask("hau", model.RarityCommon, model.BuffVisual, 0)
	def.MaxLevel = 2
	assert.Equal(t, 2, MaxLevel(def, b))

	def.MaxLevel = 0
	assert.Equal(t, 5, MaxLevel(def, b))
}

func TestLedgerBackfill(t *testing.T) {
	b := gameconfig.DefaultBalance()
	def := mask("hau", model.RarityCommon, model.BuffVisual, 0)
	other := mask("miru", model.RarityCommon, model.BuffVisual, 0)
	l := NewLedger("u1", []*model.UserMask{
		{UserID: "u1", MaskID: "hau", OwnedCount: 1, Essence: 6, Level: 1, UnlockedColors: []string{"red"}},
	})

	items := []model.DrawResultItem{
		l.Apply(def, "red", 0, b, testNow),
		l.Apply(other, "red", 0, b, testNow),
		l.Apply(def, "red", 0, b, testNow),
	}
	l.Backfill(items)

	// 第一次 6+5=11 升级剩 1，第二次 1+5=6
	assert.Equal(t, 1, items[0].EssenceRemaining)
	assert.Equal(t, 2, items[0].LevelAfter)
	assert.Equal(t, 6, items[0].FinalEssenceRemaining)
	assert.Equal(t, 2, items[0].FinalLevelAfter)
	assert.Equal(t, items[2].EssenceRemaining, items[0].FinalEssenceRemaining)
	assert.Equal(t, 0, items[1].FinalEssenceRemaining)

	touched := l.Touched()
	require.Len(t, touched, 2)
	assert.Equal(t, "hau", touched[0].MaskID)
	assert.Equal(t, "miru", touched[1].MaskID)
}
