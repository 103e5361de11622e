package segment

import (
	"strings"

	"github.com/ceyewan/idalloc/breaker"
	"github.com/ceyewan/idalloc/xerrors"
)

// 后端类型
const (
	DriverMemory = "memory"
	DriverRedis  = "redis"
	DriverEtcd   = "etcd"
	DriverGorm   = "gorm"
)

const (
	defaultRedisKeyPrefix = "idalloc:segment"
	defaultEtcdKeyPrefix  = "/idalloc/segment"
	defaultTable          = "segment_counters"
)

// Config 号段分配器配置
type Config struct {
	// Driver 后端类型: "memory" | "redis" | "etcd" | "gorm"，默认 "memory"
	Driver string `yaml:"driver" json:"driver" mapstructure:"driver"`

	// Namespace 与 Name 共同确定计数器，NamespacedName 为 "<namespace>.<name>"
	Namespace string `yaml:"namespace" json:"namespace" mapstructure:"namespace"`
	Name      string `yaml:"name" json:"name" mapstructure:"name"`

	// Step 单段宽度，默认 DefaultStep
	Step int64 `yaml:"step" json:"step" mapstructure:"step"`

	// Offset 计数器初始值，首段为 (Offset, Offset+Step]
	Offset int64 `yaml:"offset" json:"offset" mapstructure:"offset"`

	// KeyPrefix 计数器键前缀，redis 默认 "idalloc:segment"，etcd 默认 "/idalloc/segment"
	KeyPrefix string `yaml:"key_prefix" json:"key_prefix" mapstructure:"key_prefix"`

	// Table gorm 后端的计数表名，默认 "segment_counters"
	Table string `yaml:"table" json:"table" mapstructure:"table"`

	// Breaker 非空时对后端调用启用熔断
	Breaker *breaker.Config `yaml:"breaker" json:"breaker" mapstructure:"breaker"`
}

func (c *Config) setDefaults() {
	if c.Driver == "" {
		c.Driver = DriverMemory
	}
	if c.Step == 0 {
		c.Step = DefaultStep
	}
	if c.KeyPrefix == "" {
		switch c.Driver {
		case DriverRedis:
			c.KeyPrefix = defaultRedisKeyPrefix
		case DriverEtcd:
			c.KeyPrefix = defaultEtcdKeyPrefix
		}
	}
	if c.Table == "" {
		c.Table = defaultTable
	}
}

func (c *Config) validate() error {
	switch c.Driver {
	case DriverMemory, DriverRedis, DriverEtcd, DriverGorm:
	default:
		return xerrors.WithCode(ErrInvalidInput, codeUnsupportedDrive)
	}
	if strings.TrimSpace(c.Namespace) == "" {
		return xerrors.WithCode(ErrInvalidInput, "namespace_required")
	}
	if strings.TrimSpace(c.Name) == "" {
		return xerrors.WithCode(ErrInvalidInput, "name_required")
	}
	if c.Step <= 0 {
		return xerrors.WithCode(ErrInvalidInput, codeStepNotPositive)
	}
	if c.Offset < 0 {
		return xerrors.WithCode(ErrInvalidInput, "offset_must_not_be_negative")
	}
	return nil
}

func (c *Config) namespacedName() string {
	return c.Namespace + "." + c.Name
}
