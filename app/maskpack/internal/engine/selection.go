package engine

import (
	"math"
	"sort"

	"github.com/cockroachdb/errors"
	"github.com/lk2023060901/maskpack/app/maskpack/internal/gameconfig"
	"github.com/lk2023060901/maskpack/app/maskpack/internal/model"
)

// OwnedFunc 查询玩家是否已拥有面具
type OwnedFunc func(maskID string) bool

var (
	normalRarities = []model.Rarity{model.RarityMythic, model.RarityRare, model.RarityCommon}
	pityRarities   = []model.Rarity{model.RarityMythic, model.RarityRare}
)

// SampleRarity 抽取稀有度
// pityForced 时只在 MYTHIC 与 RARE 之间选择
func SampleRarity(rnd RandFunc, luck float64, pityForced bool, b *gameconfig.BalanceConfig) (model.Rarity, error) {
	mythic := b.BaseMythic * (1 + luck)
	rare := b.BaseRare * (1 + luck)

	if pityForced {
		return WeightedSample(pityRarities, []float64{mythic, rare}, rnd)
	}
	common := math.Max(1-(rare+mythic), b.CommonEpsilon)
	return WeightedSample(normalRarities, []float64{mythic, rare, common}, rnd)
}

// SampleMask 在同稀有度候选中抽取面具
// 已拥有权重为 ownedWeight，未拥有为 1；排除后为空视为配置错误
func SampleMask(
	rnd RandFunc,
	candidates []*model.MaskDefinition,
	exclude map[string]struct{},
	owned OwnedFunc,
	ownedWeight float64,
) (*model.MaskDefinition, error) {
	pool := filterPool(candidates, exclude)
	if len(pool) == 0 {
		return nil, errors.AssertionFailedf("empty candidate pool (candidates=%d, excluded=%d)", len(candidates), len(exclude))
	}

	weights := make([]float64, len(pool))
	for i, def := range pool {
		weights[i] = 1
		if owned(def.MaskID) {
			weights[i] = ownedWeight
		}
	}
	return WeightedSample(pool, weights, rnd)
}

func filterPool(candidates []*model.MaskDefinition, exclude map[string]struct{}) []*model.MaskDefinition {
	if len(exclude) == 0 {
		return candidates
	}
	pool := make([]*model.MaskDefinition, 0, len(candidates))
	for _, def := range candidates {
		if _, skip := exclude[def.MaskID]; !skip {
			pool = append(pool, def)
		}
	}
	return pool
}

// SampleColor 按颜色分布抽取颜色
// colorBonus 放大非原色权重；分布为空时返回原色
func SampleColor(rnd RandFunc, def *model.MaskDefinition, colorBonus float64) (string, error) {
	if len(def.BaseColorDistribution) == 0 {
		return def.OriginalColor, nil
	}

	colors := make([]string, 0, len(def.BaseColorDistribution))
	for color := range def.BaseColorDistribution {
		colors = append(colors, color)
	}
	sort.Strings(colors)

	weights := make([]float64, len(colors))
	for i, color := range colors {
		w := def.BaseColorDistribution[color]
		if color != def.OriginalColor {
			w *= 1 + colorBonus
		}
		weights[i] = w
	}
	return WeightedSample(colors, weights, rnd)
}
