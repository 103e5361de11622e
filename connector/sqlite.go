package connector

import (
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// NewSQLite 创建 SQLite 连接器
//
// SQLite 只允许单写者，连接池固定为 1，避免 "database is locked"。
func NewSQLite(cfg *SQLiteConfig, opts ...Option) (SQLiteConnector, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	path := cfg.Path
	return newGormConnector("sqlite", cfg.Name,
		func() gorm.Dialector { return sqlite.Open(path) },
		&poolConfig{maxIdle: 1, maxOpen: 1},
		applyOptions(opts),
	)
}
