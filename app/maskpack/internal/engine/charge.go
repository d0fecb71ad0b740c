package engine

import (
	"math"
	"time"

	"github.com/lk2023060901/maskpack/app/maskpack/internal/gameconfig"
	"github.com/lk2023060901/maskpack/app/maskpack/internal/model"
)

// PackCap 可储存卡包数，pack_stacking 向下取整
func PackCap(buffs model.BuffTotals, b *gameconfig.BalanceConfig) int {
	return b.BasePackStorageCap + int(math.Floor(buffs.PackStacking))
}

// SpeedMultiplier 充能速度倍率
func SpeedMultiplier(buffs model.BuffTotals) float64 {
	return 1 + buffs.TimerSpeed
}

// Refresh 按经过时间结算充能，返回获得的单位数
// 已满时不累积，锚点移到 now；超过上限的部分直接丢弃
func Refresh(p *model.UserPackProgress, buffs model.BuffTotals, b *gameconfig.BalanceConfig, now time.Time) int {
	capUnits := b.StorageCapUnits(PackCap(buffs, b))

	if b.UnitSeconds <= 0 {
		gained := max(capUnits-p.FractionalUnits, 0)
		p.FractionalUnits = max(p.FractionalUnits, capUnits)
		p.LastUnitTS = now
		return gained
	}
	if p.FractionalUnits >= capUnits {
		// 与未满时按 floor(gained*UnitSeconds/speed) 推进不同，满仓时丢弃不足一个单位的余量
		p.LastUnitTS = now
		return 0
	}

	speed := SpeedMultiplier(buffs)
	elapsed := math.Max(now.Sub(p.LastUnitTS).Seconds(), 0)
	gained := int(math.Floor(elapsed * speed / float64(b.UnitSeconds)))
	if gained <= 0 {
		return 0
	}

	before := p.FractionalUnits
	p.FractionalUnits = min(p.FractionalUnits+gained, capUnits)
	advance := math.Floor(float64(gained) * float64(b.UnitSeconds) / speed)
	p.LastUnitTS = p.LastUnitTS.Add(time.Duration(advance) * time.Second)
	return p.FractionalUnits - before
}

// Ready 是否可以开包
func Ready(p *model.UserPackProgress, b *gameconfig.BalanceConfig) bool {
	return p.FractionalUnits >= b.UnitsPerPack
}

// Consume 扣除一个卡包的充能
func Consume(p *model.UserPackProgress, b *gameconfig.BalanceConfig, now time.Time) {
	p.FractionalUnits -= b.UnitsPerPack
	claimed := now
	p.LastPackClaimTS = &claimed
}

// TimeToReady 距离可开包的秒数，已可开为 0，已满为 nil
func TimeToReady(p *model.UserPackProgress, buffs model.BuffTotals, b *gameconfig.BalanceConfig, now time.Time) *int64 {
	if p.FractionalUnits >= b.StorageCapUnits(PackCap(buffs, b)) {
		return nil
	}
	if Ready(p, b) {
		zero := int64(0)
		return &zero
	}
	return secondsUntil(p, b.UnitsPerPack-p.FractionalUnits, buffs, b, now)
}

// TimeToNextPack 距离储存数加一的秒数，已满为 nil
func TimeToNextPack(p *model.UserPackProgress, buffs model.BuffTotals, b *gameconfig.BalanceConfig, now time.Time) *int64 {
	if p.FractionalUnits >= b.StorageCapUnits(PackCap(buffs, b)) {
		return nil
	}
	stored := p.FractionalUnits / b.UnitsPerPack
	return secondsUntil(p, (stored+1)*b.UnitsPerPack-p.FractionalUnits, buffs, b, now)
}

// secondsUntil 向上取整的所需时间减去当前周期已经过的时间
func secondsUntil(p *model.UserPackProgress, unitsNeeded int, buffs model.BuffTotals, b *gameconfig.BalanceConfig, now time.Time) *int64 {
	var secs int64
	if b.UnitSeconds > 0 {
		need := int64(math.Ceil(float64(unitsNeeded) * float64(b.UnitSeconds) / SpeedMultiplier(buffs)))
		elapsed := int64(math.Floor(math.Max(now.Sub(p.LastUnitTS).Seconds(), 0)))
		secs = max(need-elapsed, 0)
	}
	return &secs
}

// Status 结算后（不落库）的卡包状态
func Status(src *model.UserPackProgress, buffs model.BuffTotals, b *gameconfig.BalanceConfig, now time.Time) model.PackStatus {
	p := src.Clone()
	Refresh(p, buffs, b, now)

	packCap := PackCap(buffs, b)
	return model.PackStatus{
		PackID:          p.PackID,
		PackReady:       Ready(p, b),
		TimeToReady:     TimeToReady(p, buffs, b, now),
		TimeToNextPack:  TimeToNextPack(p, buffs, b, now),
		FractionalUnits: p.FractionalUnits,
		PityCounter:     p.PityCounter,
		PackCap:         packCap,
		StoredPacks:     p.FractionalUnits / b.UnitsPerPack,
		EarningPaused:   p.FractionalUnits >= b.StorageCapUnits(packCap),
		UnitsPerPack:    b.UnitsPerPack,
	}
}

// ExcessPacks 超出新容量的卡包数，向上取整
func ExcessPacks(p *model.UserPackProgress, packCap int, b *gameconfig.BalanceConfig) int {
	excess := p.FractionalUnits - b.StorageCapUnits(packCap)
	if excess <= 0 {
		return 0
	}
	return (excess + b.UnitsPerPack - 1) / b.UnitsPerPack
}

// ClampToCap 将充能截断到容量上限，返回被截掉的单位数
func ClampToCap(p *model.UserPackProgress, packCap int, b *gameconfig.BalanceConfig) int {
	capUnits := b.StorageCapUnits(packCap)
	if p.FractionalUnits <= capUnits {
		return 0
	}
	trimmed := p.FractionalUnits - capUnits
	p.FractionalUnits = capUnits
	return trimmed
}
