package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/LENAX/roadmap-engine/pkg/config"
	"github.com/LENAX/roadmap-engine/pkg/storage"
	"github.com/LENAX/roadmap-engine/pkg/storage/mysql"
	"github.com/LENAX/roadmap-engine/pkg/storage/postgres"
	"github.com/LENAX/roadmap-engine/pkg/storage/sqlite"
	"github.com/LENAX/roadmap-engine/pkg/storage/sqlstore"
)

// NewDialect 根据数据库类型选择方言（内部方法）
// dbType: 数据库类型（sqlite/mysql/postgres/postgresql）
func NewDialect(dbType string) (storage.Dialect, error) {
	switch dbType {
	case "sqlite":
		return sqlite.NewDialect(), nil
	case "mysql":
		return mysql.NewDialect(), nil
	case "postgres", "postgresql":
		return postgres.NewDialect(), nil
	default:
		return nil, fmt.Errorf("不支持的数据库类型: %s", dbType)
	}
}

// NewRepository 根据配置创建路线图Repository（内部方法）
func NewRepository(cfg *config.ServiceConfig) (*sqlstore.RoadmapRepo, error) {
	dbCfg := cfg.RoadmapEngine.Storage.Database
	dialect, err := NewDialect(dbCfg.Type)
	if err != nil {
		return nil, err
	}

	dsn, err := prepareDSN(dialect.Name(), dbCfg.DSN)
	if err != nil {
		return nil, err
	}

	repo, err := sqlstore.Open(dialect, dsn)
	if err != nil {
		return nil, fmt.Errorf("创建%s存储失败: %w", dialect.Name(), err)
	}

	db := repo.DB()
	db.SetMaxOpenConns(dbCfg.MaxOpenConns)
	db.SetMaxIdleConns(dbCfg.MaxIdleConns)
	db.SetConnMaxLifetime(dbCfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(dbCfg.ConnMaxIdleTime)
	return repo, nil
}

// prepareDSN 按数据库类型整理DSN
// SQLite文件库需要先创建所在目录，MySQL需要打开parseTime
func prepareDSN(name, dsn string) (string, error) {
	switch name {
	case "sqlite":
		if dsn == ":memory:" || strings.HasPrefix(dsn, "file:") {
			return dsn, nil
		}
		if dir := filepath.Dir(dsn); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return "", fmt.Errorf("创建数据目录失败: %w", err)
			}
		}
		return dsn, nil
	case "mysql":
		return mysql.NormalizeDSN(dsn)
	default:
		return dsn, nil
	}
}
