package connector

import (
	"context"
	"sync"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/ceyewan/idalloc/clog"
	"github.com/ceyewan/idalloc/xerrors"
)

type poolConfig struct {
	maxIdle     int
	maxOpen     int
	maxLifetime time.Duration
}

// gormConnector MySQL 与 SQLite 共用的 GORM 连接器，首次 Connect 时打开连接
type gormConnector struct {
	*base
	dialector func() gorm.Dialector
	pool      *poolConfig
	tracing   bool

	mu sync.RWMutex
	db *gorm.DB
}

func newGormConnector(kind, name string, dialector func() gorm.Dialector, pool *poolConfig, o *options) (*gormConnector, error) {
	b, err := newBase(kind, name, o)
	if err != nil {
		return nil, err
	}
	return &gormConnector{base: b, dialector: dialector, pool: pool, tracing: o.tracing}, nil
}

func (c *gormConnector) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.db != nil {
		return nil
	}

	db, err := c.open(ctx)
	c.recordConnect(ctx, err)
	if err != nil {
		c.logger.ErrorContext(ctx, "connect database failed", clog.Error(err))
		return xerrors.Wrapf(ErrConnection, "%s connector[%s]: %v", c.kind, c.name, err)
	}

	c.db = db
	c.logger.InfoContext(ctx, "database connected")
	return nil
}

func (c *gormConnector) open(ctx context.Context) (*gorm.DB, error) {
	db, err := gorm.Open(c.dialector(), &gorm.Config{
		Logger: gormlogger.Discard,
	})
	if err != nil {
		return nil, err
	}
	if c.tracing {
		if err := db.Use(otelgorm.NewPlugin()); err != nil {
			return nil, err
		}
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if c.pool != nil {
		sqlDB.SetMaxIdleConns(c.pool.maxIdle)
		sqlDB.SetMaxOpenConns(c.pool.maxOpen)
		sqlDB.SetConnMaxLifetime(c.pool.maxLifetime)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return db, nil
}

func (c *gormConnector) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.db == nil {
		return nil
	}
	c.setHealthy(context.Background(), false)

	sqlDB, err := c.db.DB()
	c.db = nil
	if err != nil {
		return err
	}
	if err := sqlDB.Close(); err != nil {
		c.logger.Error("close database failed", clog.Error(err))
		return err
	}
	c.logger.Info("database closed")
	return nil
}

func (c *gormConnector) HealthCheck(ctx context.Context) error {
	db := c.GetClient()
	if db == nil {
		c.setHealthy(ctx, false)
		return xerrors.Wrapf(ErrClientNil, "%s connector[%s]", c.kind, c.name)
	}

	sqlDB, err := db.DB()
	if err == nil {
		err = sqlDB.PingContext(ctx)
	}
	if err != nil {
		c.setHealthy(ctx, false)
		c.logger.WarnContext(ctx, "database health check failed", clog.Error(err))
		return xerrors.Wrapf(ErrHealthCheck, "%s connector[%s]: %v", c.kind, c.name, err)
	}
	c.setHealthy(ctx, true)
	return nil
}

func (c *gormConnector) GetClient() *gorm.DB {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.db
}
