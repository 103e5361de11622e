package machine

import (
	"time"

	"github.com/ceyewan/idalloc/breaker"
	"github.com/ceyewan/idalloc/xerrors"
)

// 后端类型
const (
	DriverMemory = "memory"
	DriverRedis  = "redis"
	DriverEtcd   = "etcd"
)

const (
	defaultRedisKeyPrefix = "idalloc:machine"
	defaultEtcdKeyPrefix  = "/idalloc/machine"
	defaultLeaseTTL       = 30 * time.Second
)

// Config 机器号分配器配置
type Config struct {
	// Driver 后端类型: "memory" | "redis" | "etcd"，默认 "memory"
	Driver string `yaml:"driver" json:"driver" mapstructure:"driver"`

	// KeyPrefix 键前缀，redis 默认 "idalloc:machine"，etcd 默认 "/idalloc/machine"
	KeyPrefix string `yaml:"key_prefix" json:"key_prefix" mapstructure:"key_prefix"`

	// LeaseTTL etcd 绑定的租约时长，默认 30s，负数表示不使用租约
	LeaseTTL time.Duration `yaml:"lease_ttl" json:"lease_ttl" mapstructure:"lease_ttl"`

	// Breaker 非空时对后端调用启用熔断
	Breaker *breaker.Config `yaml:"breaker" json:"breaker" mapstructure:"breaker"`
}

func (c *Config) setDefaults() {
	if c.Driver == "" {
		c.Driver = DriverMemory
	}
	if c.KeyPrefix == "" {
		switch c.Driver {
		case DriverRedis:
			c.KeyPrefix = defaultRedisKeyPrefix
		case DriverEtcd:
			c.KeyPrefix = defaultEtcdKeyPrefix
		}
	}
	if c.LeaseTTL == 0 {
		c.LeaseTTL = defaultLeaseTTL
	}
}

func (c *Config) validate() error {
	switch c.Driver {
	case DriverMemory, DriverRedis, DriverEtcd:
	default:
		return xerrors.WithCode(ErrInvalidInput, "unsupported_driver")
	}
	if c.LeaseTTL > 0 && c.LeaseTTL < time.Second {
		return xerrors.WithCode(ErrInvalidInput, "lease_ttl_too_short")
	}
	return nil
}
