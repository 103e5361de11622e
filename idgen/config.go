package idgen

import (
	"strings"
	"time"

	"github.com/ceyewan/idalloc/machine"
	"github.com/ceyewan/idalloc/segment"
	"github.com/ceyewan/idalloc/xerrors"
)

// ========================================
// 号段生成器配置
// ========================================

// SegmentConfig SegmentID 配置
type SegmentConfig struct {
	// TTL 号段过期时间，默认 segment.TTLForever
	TTL time.Duration `yaml:"ttl" json:"ttl" mapstructure:"ttl"`
}

func (c *SegmentConfig) setDefaults() {
	if c.TTL <= 0 {
		c.TTL = segment.TTLForever
	}
}

// ChainConfig SegmentChainID 配置
type ChainConfig struct {
	// TTL 号段过期时间，默认 segment.TTLForever
	TTL time.Duration `yaml:"ttl" json:"ttl" mapstructure:"ttl"`

	// SafeDistance 当前号段之后至少保持的可用号段数，默认 10
	SafeDistance int `yaml:"safe_distance" json:"safe_distance" mapstructure:"safe_distance"`

	// Batch 同步补充时一次获取的段数，默认 segment.DefaultSegments
	Batch int `yaml:"batch" json:"batch" mapstructure:"batch"`

	// PrefetchInterval 后台预取的检查周期，默认 1s
	PrefetchInterval time.Duration `yaml:"prefetch_interval" json:"prefetch_interval" mapstructure:"prefetch_interval"`
}

func (c *ChainConfig) setDefaults() {
	if c.TTL <= 0 {
		c.TTL = segment.TTLForever
	}
	if c.SafeDistance == 0 {
		c.SafeDistance = 10
	}
	if c.Batch == 0 {
		c.Batch = segment.DefaultSegments
	}
	if c.PrefetchInterval <= 0 {
		c.PrefetchInterval = time.Second
	}
}

func (c *ChainConfig) validate() error {
	if c.SafeDistance < 0 {
		return xerrors.WithCode(ErrInvalidInput, "safe_distance_cannot_be_negative")
	}
	if c.Batch < 0 {
		return xerrors.WithCode(ErrInvalidInput, "batch_cannot_be_negative")
	}
	return nil
}

// ========================================
// Snowflake 配置
// ========================================

// DefaultEpoch Snowflake 默认纪元 2019-12-24T16:00:00Z
var DefaultEpoch = time.UnixMilli(1577203200000)

const (
	timestampBit       = 41
	defaultSequenceBit = 12
	// defaultMaxDrift 微小回拨阈值，在此范围内复用 lastTime
	defaultMaxDrift = 5 * time.Millisecond
	// defaultMaxWait 回拨等待上限，超过直接返回 ErrClockBackwards
	defaultMaxWait = time.Second
)

// SnowflakeConfig Snowflake 配置
type SnowflakeConfig struct {
	// Namespace 机器号命名空间，必填
	Namespace string `yaml:"namespace" json:"namespace" mapstructure:"namespace"`

	// Instance 实例标识，默认 machine.NewInstanceID()
	Instance machine.InstanceID `yaml:"instance" json:"instance" mapstructure:"instance"`

	// MachineBit 机器号位宽，默认 machine.DefaultMachineBit
	MachineBit int `yaml:"machine_bit" json:"machine_bit" mapstructure:"machine_bit"`

	// SequenceBit 毫秒内序列号位宽，默认 12
	SequenceBit int `yaml:"sequence_bit" json:"sequence_bit" mapstructure:"sequence_bit"`

	// Epoch 时间戳起点，默认 DefaultEpoch
	Epoch time.Time `yaml:"epoch" json:"epoch" mapstructure:"epoch"`

	// MaxDrift 允许复用上一毫秒的回拨幅度，默认 5ms
	MaxDrift time.Duration `yaml:"max_drift" json:"max_drift" mapstructure:"max_drift"`

	// MaxWait 回拨时最长等待时间，默认 1s
	MaxWait time.Duration `yaml:"max_wait" json:"max_wait" mapstructure:"max_wait"`
}

func (c *SnowflakeConfig) setDefaults() {
	if c.Instance == "" {
		c.Instance = machine.NewInstanceID()
	}
	if c.MachineBit == 0 {
		c.MachineBit = machine.DefaultMachineBit
	}
	if c.SequenceBit == 0 {
		c.SequenceBit = defaultSequenceBit
	}
	if c.Epoch.IsZero() {
		c.Epoch = DefaultEpoch
	}
	if c.MaxDrift == 0 {
		c.MaxDrift = defaultMaxDrift
	}
	if c.MaxWait == 0 {
		c.MaxWait = defaultMaxWait
	}
}

func (c *SnowflakeConfig) validate() error {
	if strings.TrimSpace(c.Namespace) == "" {
		return xerrors.WithCode(ErrInvalidInput, "namespace_required")
	}
	if c.MachineBit < machine.MinMachineBit || c.MachineBit > machine.MaxMachineBit {
		return xerrors.WithCode(ErrInvalidInput, "machine_bit_out_of_range")
	}
	if c.SequenceBit < 1 {
		return xerrors.WithCode(ErrInvalidInput, "sequence_bit_out_of_range")
	}
	if timestampBit+c.MachineBit+c.SequenceBit > 63 {
		return xerrors.WithCode(ErrInvalidInput, "bits_exceed_63")
	}
	if c.MaxDrift < 0 || c.MaxWait < 0 {
		return xerrors.WithCode(ErrInvalidInput, "drift_cannot_be_negative")
	}
	return nil
}
