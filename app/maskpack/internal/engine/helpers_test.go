package engine

import (
	"testing"

	"github.com/lk2023060901/maskpack/app/maskpack/internal/gameconfig"
	"github.com/lk2023060901/maskpack/app/maskpack/internal/model"
	"github.com/stretchr/testify/require"
)

// scripted 按顺序返回给定值，用尽时测试失败
func scripted(t *testing.T, values ...float64) RandFunc {
	t.Helper()
	i := 0
	return func() float64 {
		if i >= len(values) {
			t.Fatalf("scripted rand exhausted after %d values", len(values))
		}
		v := values[i]
		i++
		return v
	}
}

func mask(id string, rarity model.Rarity, buff model.BuffType, value float64) *model.MaskDefinition {
	return &model.MaskDefinition{
		MaskID:                id,
		Name:                  id,
		BaseRarity:            rarity,
		BuffType:              buff,
		BuffBaseValue:         value,
		OriginalColor:         "red",
		BaseColorDistribution: map[string]float64{"red": 0.7, "blue": 0.3},
	}
}

func newCatalog(t *testing.T, b *gameconfig.BalanceConfig, masks ...*model.MaskDefinition) *gameconfig.Catalog {
	t.Helper()
	if b == nil {
		b = gameconfig.DefaultBalance()
	}
	c, err := gameconfig.NewCatalog(b, masks, []*model.Pack{{PackID: "p", MasksPerPack: 2}}, nil)
	require.NoError(t, err)
	return c
}

func ownedSet(ids ...string) OwnedFunc {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return func(maskID string) bool { return set[maskID] }
}
