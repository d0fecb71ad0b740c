package engine

import (
	"math"

	"github.com/lk2023060901/maskpack/app/maskpack/internal/gameconfig"
	"github.com/lk2023060901/maskpack/app/maskpack/internal/model"
)

// Discover 发现加成重抽
// 只在当前结果已拥有时重抽；命中后排除当前结果重新抽取，
// 抽到未拥有的立即停止，抽到已拥有的同样替换当前结果并继续。
// 排除后候选为空时保留当前结果。
func Discover(
	rnd RandFunc,
	selected *model.MaskDefinition,
	candidates []*model.MaskDefinition,
	owned OwnedFunc,
	bonus float64,
	b *gameconfig.BalanceConfig,
) (*model.MaskDefinition, error) {
	chance := math.Min(bonus, b.RerollCap)
	if chance <= 0 {
		return selected, nil
	}

	for pass := 0; pass < b.RerollPasses && owned(selected.MaskID); pass++ {
		if rnd() >= chance {
			continue
		}

		exclude := map[string]struct{}{selected.MaskID: {}}
		if len(filterPool(candidates, exclude)) == 0 {
			break
		}

		candidate, err := SampleMask(rnd, candidates, exclude, owned, b.OwnedWeight)
		if err != nil {
			return nil, err
		}
		selected = candidate
	}
	return selected, nil
}
