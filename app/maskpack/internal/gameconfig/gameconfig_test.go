package gameconfig

import (
	"testing"
	"testing/fstest"

	"github.com/lk2023060901/maskpack/app/maskpack/internal/model"
	"github.com/lk2023060901/maskpack/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEmbedded(t *testing.T) {
	c, err := Load("", DefaultBalance(), logger.NewNoopLogger())
	require.NoError(t, err)

	assert.NotEmpty(t, c.Masks())
	assert.Len(t, c.Packs(), 2)
	assert.Equal(t, []string{"hau", "kakama"}, c.StarterMasks())

	for _, id := range c.StarterMasks() {
		_, ok := c.Mask(id)
		assert.True(t, ok, "starter %s must exist", id)
	}
	for _, r := range model.Rarities {
		assert.NotEmpty(t, c.MasksOfRarity(r), "rarity %s", r)
	}

	hau, ok := c.Mask("hau")
	require.True(t, ok)
	assert.Equal(t, 5, hau.MaxLevel)

	vahi, ok := c.Mask("vahi")
	require.True(t, ok)
	assert.Equal(t, 3, vahi.MaxLevel)
}

func TestLoadFSMissingStarters(t *testing.T) {
	fsys := fstest.MapFS{
		"masks.json": {Data: []byte(`[{"mask_id":"a","base_rarity":"COMMON","buff_type":"VISUAL","original_color":"red","base_color_distribution":{"red":1}}]`)},
		"packs.json": {Data: []byte(`[{"pack_id":"p","masks_per_pack":1}]`)},
	}

	c, err := LoadFS(fsys, DefaultBalance(), logger.NewNoopLogger())
	require.NoError(t, err)
	assert.Empty(t, c.StarterMasks())
}

func TestLoadFSMissingMasks(t *testing.T) {
	fsys := fstest.MapFS{
		"packs.json": {Data: []byte(`[{"pack_id":"p","masks_per_pack":1}]`)},
	}

	_, err := LoadFS(fsys, DefaultBalance(), logger.NewNoopLogger())
	assert.Error(t, err)
}

func TestNewCatalogValidation(t *testing.T) {
	packs := []*model.Pack{{PackID: "p", MasksPerPack: 2}}
	mask := func(mutate func(m *model.MaskDefinition)) *model.MaskDefinition {
		m := &model.MaskDefinition{
			MaskID:        "m",
			BaseRarity:    model.RarityRare,
			BuffType:      model.BuffDiscovery,
			OriginalColor: "red",
		}
		if mutate != nil {
			mutate(m)
		}
		return m
	}

	tests := []struct {
		name    string
		masks   []*model.MaskDefinition
		packs   []*model.Pack
		wantErr bool
	}{
		{name: "valid", masks: []*model.MaskDefinition{mask(nil)}, packs: packs},
		{name: "max level at cap", masks: []*model.MaskDefinition{mask(func(m *model.MaskDefinition) { m.MaxLevel = 4 })}, packs: packs},
		{name: "max level above cap", masks: []*model.MaskDefinition{mask(func(m *model.MaskDefinition) { m.MaxLevel = 5 })}, packs: packs, wantErr: true},
		{name: "unknown rarity", masks: []*model.MaskDefinition{mask(func(m *model.MaskDefinition) { m.BaseRarity = "EPIC" })}, packs: packs, wantErr: true},
		{name: "unknown buff", masks: []*model.MaskDefinition{mask(func(m *model.MaskDefinition) { m.BuffType = "SPEED" })}, packs: packs, wantErr: true},
		{name: "negative color weight", masks: []*model.MaskDefinition{mask(func(m *model.MaskDefinition) {
			m.BaseColorDistribution = map[string]float64{"red": -1}
		})}, packs: packs, wantErr: true},
		{name: "duplicate mask", masks: []*model.MaskDefinition{mask(nil), mask(nil)}, packs: packs, wantErr: true},
		{name: "no packs", masks: []*model.MaskDefinition{mask(nil)}, wantErr: true},
		{name: "empty pack", masks: []*model.MaskDefinition{mask(nil)}, packs: []*model.Pack{{PackID: "p"}}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewCatalog(DefaultBalance(), tt.masks, tt.packs, nil)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			def, ok := c.Mask("m")
			require.True(t, ok)
			assert.Equal(t, 4, def.MaxLevel)
		})
	}
}

func TestMergeBalance(t *testing.T) {
	b, err := MergeBalance(&BalanceConfig{UnitsPerPack: 4, LevelBase: RarityTable{Mythic: 100}})
	require.NoError(t, err)

	assert.Equal(t, 4, b.UnitsPerPack)
	assert.Equal(t, 600, b.UnitSeconds)
	assert.Equal(t, 100, b.LevelBase.Of(model.RarityMythic))
	assert.Equal(t, 10, b.LevelBase.Of(model.RarityCommon))
	assert.Equal(t, 24, b.StorageCapUnits(6))
}

func TestBalanceValidate(t *testing.T) {
	b := DefaultBalance()
	b.BaseRare = 1.5
	assert.Error(t, b.Validate())

	b = DefaultBalance()
	b.MaxLevelByRarity.Rare = 0
	assert.Error(t, b.Validate())
}
