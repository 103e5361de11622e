package trace

import "github.com/ceyewan/idalloc/xerrors"

// Config 追踪配置
//
//	trace:
//	  service_name: idalloc
//	  endpoint: localhost:4317
//	  sampler: 0.1
//	  batcher: batch
//	  insecure: true
type Config struct {
	ServiceName string  `mapstructure:"service_name"`
	Endpoint    string  `mapstructure:"endpoint"` // OTLP gRPC 地址
	Sampler     float64 `mapstructure:"sampler"`  // 采样率 [0, 1]
	Batcher     string  `mapstructure:"batcher"`  // batch|simple
	Insecure    bool    `mapstructure:"insecure"`
}

// DefaultConfig 返回本地开发配置
func DefaultConfig(serviceName string) *Config {
	return &Config{
		ServiceName: serviceName,
		Endpoint:    "localhost:4317",
		Sampler:     1.0,
		Batcher:     "batch",
		Insecure:    true,
	}
}

func (c *Config) validate() error {
	if c == nil {
		return xerrors.Wrap(xerrors.ErrInvalidInput, "trace: config is required")
	}
	if c.ServiceName == "" {
		return xerrors.Wrap(xerrors.ErrInvalidInput, "trace: service_name is required")
	}
	if c.Endpoint == "" {
		return xerrors.Wrap(xerrors.ErrInvalidInput, "trace: endpoint is required")
	}
	if c.Sampler < 0 || c.Sampler > 1 {
		return xerrors.Wrapf(xerrors.ErrInvalidInput, "trace: sampler must be in [0, 1], got %v", c.Sampler)
	}
	switch c.Batcher {
	case "", "batch", "simple":
	default:
		return xerrors.Wrapf(xerrors.ErrInvalidInput, "trace: batcher must be batch or simple, got %q", c.Batcher)
	}
	return nil
}
