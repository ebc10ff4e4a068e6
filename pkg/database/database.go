package database

import (
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/d60-Lab/microfeed/config"
)

// InitDB 打开主库连接并配置连接池
func InitDB(cfg *config.Config) (*gorm.DB, error) {
	return open(cfg.Database.DSN, cfg)
}

// InitShards 按 sharding.shards 打开全部分片库；未开启时退化为单库
func InitShards(cfg *config.Config) ([]*gorm.DB, error) {
	if !cfg.Sharding.Enabled || len(cfg.Sharding.Shards) == 0 {
		db, err := InitDB(cfg)
		if err != nil {
			return nil, err
		}
		return []*gorm.DB{db}, nil
	}
	dbs := make([]*gorm.DB, 0, len(cfg.Sharding.Shards))
	for i, dsn := range cfg.Sharding.Shards {
		db, err := open(dsn, cfg)
		if err != nil {
			return nil, fmt.Errorf("open shard %d: %w", i, err)
		}
		dbs = append(dbs, db)
	}
	return dbs, nil
}

func open(dsn string, cfg *config.Config) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.Database.ConnMaxLifetime) * time.Minute)
	return db, nil
}
