package engine

import "github.com/cockroachdb/errors"

var (
	// ErrEmptyItems 候选集为空
	ErrEmptyItems = errors.New("engine: weighted sample of empty items")

	// ErrWeightMismatch 权重与候选数量不一致
	ErrWeightMismatch = errors.New("engine: weights length mismatch")
)

// WeightedSample 按权重选择一个元素
// 负权重按 0 处理；累加因精度不足时返回最后一个元素
func WeightedSample[T any](items []T, weights []float64, rnd RandFunc) (T, error) {
	var zero T
	if len(items) == 0 {
		return zero, ErrEmptyItems
	}
	if len(weights) != len(items) {
		return zero, errors.Wrapf(ErrWeightMismatch, "items=%d weights=%d", len(items), len(weights))
	}

	total := 0.0
	for _, w := range weights {
		if w > 0 {
			total += w
		}
	}

	target := rnd() * total
	acc := 0.0
	for i, w := range weights {
		if w <= 0 {
			continue
		}
		acc += w
		if target < acc {
			return items[i], nil
		}
	}
	return items[len(items)-1], nil
}
