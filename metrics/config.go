package metrics

import "time"

// Config 指标配置
//
//	metrics:
//	  enabled: true
//	  service_name: "idalloc"
//	  version: "v0.1.0"
//	  port: 9090
//	  path: "/metrics"
//	  enable_runtime: true
type Config struct {
	// Enabled 为 false 时 New 返回 Discard()
	Enabled bool `mapstructure:"enabled"`

	ServiceName string `mapstructure:"service_name"`
	Version     string `mapstructure:"version"`

	// Port 大于 0 时启动 Prometheus HTTP 服务
	Port int    `mapstructure:"port"`
	Path string `mapstructure:"path"`

	// EnableRuntime 采集 Go runtime 指标（GC、goroutine、内存）
	EnableRuntime bool `mapstructure:"enable_runtime"`
	// RuntimeReadInterval runtime.ReadMemStats 最小间隔，默认 15s
	RuntimeReadInterval time.Duration `mapstructure:"runtime_read_interval"`
}

func (c *Config) setDefaults() {
	if c.ServiceName == "" {
		c.ServiceName = "idalloc"
	}
	if c.Path == "" {
		c.Path = "/metrics"
	}
	if c.RuntimeReadInterval <= 0 {
		c.RuntimeReadInterval = 15 * time.Second
	}
}
