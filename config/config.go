package config

import (
	"context"
	"strings"

	"github.com/ceyewan/idalloc/clog"
)

// DefaultEnvPrefix 环境变量默认前缀
const DefaultEnvPrefix = "IDALLOC"

// Config 加载器配置
type Config struct {
	Name      string   // 配置文件名（不含扩展名），默认 idalloc
	Paths     []string // 搜索路径，默认 [".", "./config"]
	FileType  string   // yaml|json|toml，默认 yaml
	EnvPrefix string   // 环境变量前缀，默认 IDALLOC
}

func (c *Config) setDefaults() {
	if c.Name == "" {
		c.Name = "idalloc"
	}
	if c.Paths == nil {
		c.Paths = []string{".", "./config"}
	}
	if c.FileType == "" {
		c.FileType = "yaml"
	}
	if c.EnvPrefix == "" {
		c.EnvPrefix = DefaultEnvPrefix
	}
	c.EnvPrefix = strings.ToUpper(c.EnvPrefix)
}

// Option 加载器选项
type Option func(*options)

type options struct {
	logger clog.Logger
}

// WithLogger 注入日志记录器，命名空间追加 "config"
func WithLogger(l clog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l.WithNamespace("config")
		}
	}
}

// New 创建配置加载器，cfg 为 nil 时使用默认值
func New(cfg *Config, opts ...Option) (Loader, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	cfg.setDefaults()

	o := &options{logger: clog.Discard()}
	for _, opt := range opts {
		opt(o)
	}
	return newLoader(cfg, o), nil
}

// MustLoad 创建并加载配置，失败时 panic
func MustLoad(cfg *Config, opts ...Option) Loader {
	l, err := New(cfg, opts...)
	if err != nil {
		panic(err)
	}
	if err := l.Load(context.Background()); err != nil {
		panic(err)
	}
	return l
}
