package idgen

import (
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/sony/sonyflake"
)

// Generator ID 生成器接口
type Generator interface {
	NextID() (int64, error)
}

// Config ID 生成器配置
type Config struct {
	// MachineID 机器 ID (0-65535)，多实例部署时必须互不相同
	MachineID uint16 `mapstructure:"machine_id"`
}

// epoch sonyflake 起始时间
var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

type sonyflakeGenerator struct {
	sf *sonyflake.Sonyflake
}

// NewSonyflake 创建基于 Sonyflake 的 ID 生成器
func NewSonyflake(cfg *Config) (Generator, error) {
	var machineID uint16
	if cfg != nil {
		machineID = cfg.MachineID
	}

	sf := sonyflake.NewSonyflake(sonyflake.Settings{
		StartTime: epoch,
		MachineID: func() (uint16, error) { return machineID, nil },
	})
	if sf == nil {
		return nil, errors.New("failed to create sonyflake generator")
	}
	return &sonyflakeGenerator{sf: sf}, nil
}

func (g *sonyflakeGenerator) NextID() (int64, error) {
	id, err := g.sf.NextID()
	if err != nil {
		return 0, errors.Wrap(err, "failed to generate id")
	}
	return int64(id), nil
}

// Sequence 进程内自增 ID，单测与内存存储使用
type Sequence struct {
	n atomic.Int64
}

// NewSequence 从 start 开始递增
func NewSequence(start int64) *Sequence {
	s := &Sequence{}
	s.n.Store(start - 1)
	return s
}

func (s *Sequence) NextID() (int64, error) {
	return s.n.Add(1), nil
}
