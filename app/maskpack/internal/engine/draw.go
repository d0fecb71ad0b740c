package engine

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/lk2023060901/maskpack/app/maskpack/internal/gameconfig"
	"github.com/lk2023060901/maskpack/app/maskpack/internal/model"
)

// PackDraw 开包抽取参数
type PackDraw struct {
	Seed        string
	Pack        *model.Pack
	Buffs       model.BuffTotals
	PityCounter int
	Now         time.Time
}

// PackOutcome 开包抽取结果
type PackOutcome struct {
	Items      []model.DrawResultItem
	PityAfter  int
	RarePlus   bool
	PityForced bool
}

// DrawPack 执行一次开包的全部抽取，并修改账本
// 结果只取决于配置、加成、种子与账本初始状态
func DrawPack(catalog *gameconfig.Catalog, ledger *Ledger, in PackDraw) (*PackOutcome, error) {
	if in.Pack == nil || in.Pack.MasksPerPack < 1 {
		return nil, errors.AssertionFailedf("invalid pack for draw")
	}

	b := catalog.Balance()
	rnd := SeededRandom(in.Seed)
	out := &PackOutcome{
		Items:      make([]model.DrawResultItem, 0, in.Pack.MasksPerPack),
		PityForced: in.PityCounter >= b.PityThreshold,
	}

	for i := 0; i < in.Pack.MasksPerPack; i++ {
		forced := i == 0 && out.PityForced

		rarity, err := SampleRarity(rnd, in.Buffs.PackLuck, forced, b)
		if err != nil {
			return nil, errors.Wrapf(err, "draw %d: sample rarity", i)
		}

		candidates := catalog.MasksOfRarity(rarity)
		def, err := SampleMask(rnd, candidates, nil, ledger.Owned, b.OwnedWeight)
		if err != nil {
			return nil, errors.Wrapf(err, "draw %d: sample %s mask", i, rarity)
		}

		def, err = Discover(rnd, def, candidates, ledger.Owned, in.Buffs.Discovery, b)
		if err != nil {
			return nil, errors.Wrapf(err, "draw %d: discovery reroll", i)
		}

		color, err := SampleColor(rnd, def, in.Buffs.ColorVariants)
		if err != nil {
			return nil, errors.Wrapf(err, "draw %d: sample color", i)
		}

		if rarity.IsRarePlus() {
			out.RarePlus = true
		}
		out.Items = append(out.Items, ledger.Apply(def, color, in.Buffs.DuplicateEff, b, in.Now))
	}

	ledger.Backfill(out.Items)

	out.PityAfter = in.PityCounter + 1
	if out.RarePlus {
		out.PityAfter = 0
	}
	return out, nil
}
