package sqlite

import (
	"fmt"
	"strings"

	"github.com/LENAX/roadmap-engine/pkg/storage"
	_ "github.com/mattn/go-sqlite3"
)

// Dialect SQLite方言实现（对外导出）
type Dialect struct{}

// NewDialect 创建SQLite方言实例
func NewDialect() *Dialect {
	return &Dialect{}
}

// Name 返回方言名称
func (d *Dialect) Name() string {
	return "sqlite"
}

// DriverName 返回mattn/go-sqlite3注册的驱动名
func (d *Dialect) DriverName() string {
	return "sqlite3"
}

// UpsertSQL 返回SQLite的UPSERT语句
// 使用 INSERT OR REPLACE 兼容较老版本的SQLite
func (d *Dialect) UpsertSQL(tableName string, columns []string, conflictColumn string, updateColumns []string) string {
	named := make([]string, len(columns))
	for i, col := range columns {
		named[i] = ":" + col
	}
	return fmt.Sprintf(
		"INSERT OR REPLACE INTO %s (%s) VALUES (%s)",
		tableName,
		strings.Join(columns, ", "),
		strings.Join(named, ", "),
	)
}

// CreateTableSQL 原样返回
func (d *Dialect) CreateTableSQL(schema string) string {
	return schema
}

// ConfigureDB 返回SQLite的PRAGMA配置
func (d *Dialect) ConfigureDB() []string {
	return []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA busy_timeout=30000;",
		"PRAGMA wal_autocheckpoint=1000;",
		"PRAGMA synchronous=NORMAL;",
	}
}

var _ storage.Dialect = (*Dialect)(nil)
