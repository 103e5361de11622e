// Package config 基于 Viper 加载 idalloc 的运行配置。
//
// 加载顺序（后者覆盖前者）：
//   - 基础配置文件 {Name}.{FileType}
//   - 环境特定配置 {Name}.{$IDALLOC_ENV}.{FileType}
//   - .env 文件
//   - 环境变量 IDALLOC_*，层级以 "_" 分隔，如 IDALLOC_SEGMENT_STEP
//
// 基本使用：
//
//	loader, _ := config.New(&config.Config{Paths: []string{"./config"}})
//	if err := loader.Load(ctx); err != nil {
//		return err
//	}
//	var segCfg segment.Config
//	_ = loader.UnmarshalKey("segment", &segCfg)
//
//	ch, _ := loader.Watch(ctx, "logger.level")
//	for ev := range ch {
//		if lvl, err := clog.ParseLevel(fmt.Sprint(ev.Value)); err == nil {
//			_ = logger.SetLevel(lvl)
//		}
//	}
package config

import (
	"context"
	"time"
)

// Loader 配置加载器
type Loader interface {
	// Load 从文件、.env 和环境变量加载配置，并开始监听文件变化
	Load(ctx context.Context) error

	// Get 获取原始配置值
	Get(key string) any

	// Unmarshal 将整个配置解码到结构体（mapstructure 标签）
	Unmarshal(v any) error

	// UnmarshalKey 将指定 key 下的配置解码到结构体
	UnmarshalKey(key string, v any) error

	// Watch 监听 key 的变化，ctx 取消后通道关闭
	Watch(ctx context.Context, key string) (<-chan Event, error)

	// Validate 检查已加载配置是否可用
	Validate() error
}

// Event 配置变更事件
type Event struct {
	Key       string
	Value     any
	OldValue  any
	Source    string // file
	Timestamp time.Time
}
