package connector

import (
	"fmt"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// NewMySQL 创建 MySQL 连接器，连接在 Connect 时建立
func NewMySQL(cfg *MySQLConfig, opts ...Option) (MySQLConnector, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	dsn := cfg.DSN
	if dsn == "" {
		dsn = fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=True&loc=Local",
			cfg.Username, cfg.Password, cfg.Host, cfg.Port, cfg.Database, cfg.Charset)
	}

	return newGormConnector("mysql", cfg.Name,
		func() gorm.Dialector { return mysql.Open(dsn) },
		&poolConfig{maxIdle: cfg.MaxIdleConns, maxOpen: cfg.MaxOpenConns, maxLifetime: cfg.ConnMaxLifetime},
		applyOptions(opts),
	)
}
