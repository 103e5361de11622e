package segment

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ceyewan/idalloc/connector"
	"github.com/ceyewan/idalloc/xerrors"
)

// counterRow 计数表的一行，一个序列一行
type counterRow struct {
	Name      string    `gorm:"column:name;primaryKey;size:191"`
	LastMaxID int64     `gorm:"column:last_max_id;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

// gormStore 在同一事务里插入（已存在则忽略）、行锁更新、再读回
type gormStore struct {
	conn  connector.TypedConnector[*gorm.DB]
	table string
}

func newGormStore(conn connector.TypedConnector[*gorm.DB], table string) (*gormStore, error) {
	s := &gormStore{conn: conn, table: table}
	db, err := s.db()
	if err != nil {
		return nil, err
	}
	if err := db.Table(table).AutoMigrate(&counterRow{}); err != nil {
		return nil, xerrors.Wrapf(err, "migrate table %s", table)
	}
	return s, nil
}

func (s *gormStore) db() (*gorm.DB, error) {
	db := s.conn.GetClient()
	if db == nil {
		return nil, connector.ErrClientNil
	}
	return db, nil
}

func (s *gormStore) IncrBy(ctx context.Context, key string, offset, step int64) (int64, error) {
	db, err := s.db()
	if err != nil {
		return 0, err
	}

	var maxID int64
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		seed := counterRow{Name: key, LastMaxID: offset, UpdatedAt: time.Now()}
		if err := tx.Table(s.table).Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
			return err
		}

		res := tx.Table(s.table).Where("name = ?", key).Updates(map[string]any{
			"last_max_id": gorm.Expr("last_max_id + ?", step),
			"updated_at":  time.Now(),
		})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != 1 {
			return xerrors.Wrapf(xerrors.ErrNotFound, "counter %s", key)
		}

		var row counterRow
		if err := tx.Table(s.table).Where("name = ?", key).Take(&row).Error; err != nil {
			return err
		}
		maxID = row.LastMaxID
		return nil
	})
	if err != nil {
		return 0, err
	}
	return maxID, nil
}
