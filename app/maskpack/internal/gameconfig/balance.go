package gameconfig

import (
	"github.com/cockroachdb/errors"
	"github.com/lk2023060901/maskpack/app/maskpack/internal/model"
	"github.com/lk2023060901/maskpack/pkg/config"
)

// RarityTable 按稀有度配置的整数值
type RarityTable struct {
	Common int `mapstructure:"common" json:"common" yaml:"common" validate:"gte=0"`
	Rare   int `mapstructure:"rare" json:"rare" yaml:"rare" validate:"gte=0"`
	Mythic int `mapstructure:"mythic" json:"mythic" yaml:"mythic" validate:"gte=0"`
}

// Of 取指定稀有度的值
func (t RarityTable) Of(r model.Rarity) int {
	switch r {
	case model.RarityRare:
		return t.Rare
	case model.RarityMythic:
		return t.Mythic
	default:
		return t.Common
	}
}

// BalanceConfig 数值配置
type BalanceConfig struct {
	// UnitsPerPack 一个卡包所需充能单位
	UnitsPerPack int `mapstructure:"units_per_pack" json:"units_per_pack" yaml:"units_per_pack" validate:"gte=1"`
	// UnitSeconds 每个充能单位的秒数，<=0 时视为立即充满
	UnitSeconds int `mapstructure:"unit_seconds" json:"unit_seconds" yaml:"unit_seconds"`
	// BasePackStorageCap 基础可储存卡包数
	BasePackStorageCap int `mapstructure:"base_pack_storage_cap" json:"base_pack_storage_cap" yaml:"base_pack_storage_cap" validate:"gte=1"`
	// PityThreshold 保底阈值
	PityThreshold int `mapstructure:"pity_threshold" json:"pity_threshold" yaml:"pity_threshold" validate:"gte=1"`

	BaseRare   float64 `mapstructure:"base_rare" json:"base_rare" yaml:"base_rare" validate:"gte=0,lte=1"`
	BaseMythic float64 `mapstructure:"base_mythic" json:"base_mythic" yaml:"base_mythic" validate:"gte=0,lte=1"`

	PackLuckCap   float64 `mapstructure:"pack_luck_cap" json:"pack_luck_cap" yaml:"pack_luck_cap" validate:"gte=0"`
	PackCDCap     float64 `mapstructure:"pack_cd_cap" json:"pack_cd_cap" yaml:"pack_cd_cap" validate:"gte=0"`
	ColorBuffCap  float64 `mapstructure:"color_buff_cap" json:"color_buff_cap" yaml:"color_buff_cap" validate:"gte=0"`
	RerollCap     float64 `mapstructure:"reroll_cap" json:"reroll_cap" yaml:"reroll_cap" validate:"gte=0,lte=1"`
	RerollPasses  int     `mapstructure:"reroll_passes" json:"reroll_passes" yaml:"reroll_passes" validate:"gte=0"`
	OwnedWeight   float64 `mapstructure:"owned_weight" json:"owned_weight" yaml:"owned_weight" validate:"gte=0"`
	CommonEpsilon float64 `mapstructure:"common_epsilon" json:"common_epsilon" yaml:"common_epsilon" validate:"gt=0"`

	DuplicateEssenceBase RarityTable `mapstructure:"duplicate_essence_base" json:"duplicate_essence_base" yaml:"duplicate_essence_base"`
	LevelBase            RarityTable `mapstructure:"level_base" json:"level_base" yaml:"level_base"`
	MaxLevelByRarity     RarityTable `mapstructure:"max_level_by_rarity" json:"max_level_by_rarity" yaml:"max_level_by_rarity"`

	// StarterPacks 新玩家每个卡包初始可开数量
	StarterPacks int `mapstructure:"starter_packs" json:"starter_packs" yaml:"starter_packs" validate:"gte=0"`
}

// DefaultBalance 默认数值
func DefaultBalance() *BalanceConfig {
	return &BalanceConfig{
		UnitsPerPack:         6,
		UnitSeconds:          600,
		BasePackStorageCap:   2,
		PityThreshold:        10,
		BaseRare:             0.20,
		BaseMythic:           0.03,
		PackLuckCap:          0.5,
		PackCDCap:            0.5,
		ColorBuffCap:         0.5,
		RerollCap:            0.5,
		RerollPasses:         3,
		OwnedWeight:          0.2,
		CommonEpsilon:        1e-6,
		DuplicateEssenceBase: RarityTable{Common: 5, Rare: 15, Mythic: 50},
		LevelBase:            RarityTable{Common: 10, Rare: 25, Mythic: 60},
		MaxLevelByRarity:     RarityTable{Common: 5, Rare: 4, Mythic: 3},
		StarterPacks:         1,
	}
}

// MergeBalance 以默认数值为底合并配置
func MergeBalance(cfg *BalanceConfig) (*BalanceConfig, error) {
	merged, err := config.MergeConfig(DefaultBalance(), cfg)
	if err != nil {
		return nil, errors.Wrap(err, "merge balance config")
	}
	if err := merged.Validate(); err != nil {
		return nil, err
	}
	return merged, nil
}

// Validate 验证数值配置
func (c *BalanceConfig) Validate() error {
	if err := config.Validate(c); err != nil {
		return errors.Wrap(err, "invalid balance config")
	}
	for _, r := range model.Rarities {
		if c.MaxLevelByRarity.Of(r) < 1 {
			return errors.Newf("invalid balance config: max level for %s must be >= 1", r)
		}
	}
	return nil
}

// StorageCapUnits 指定卡包容量对应的充能单位上限
func (c *BalanceConfig) StorageCapUnits(packCap int) int {
	return packCap * c.UnitsPerPack
}
