package postgres

import (
	"fmt"
	"strings"

	"github.com/LENAX/roadmap-engine/pkg/storage"
	_ "github.com/lib/pq"
)

// Dialect PostgreSQL方言实现（对外导出）
type Dialect struct{}

// NewDialect 创建PostgreSQL方言实例
func NewDialect() *Dialect {
	return &Dialect{}
}

// Name 返回方言名称
func (d *Dialect) Name() string {
	return "postgres"
}

// DriverName 返回lib/pq注册的驱动名
// sqlx据此把?重写为$1, $2, ...
func (d *Dialect) DriverName() string {
	return "postgres"
}

// UpsertSQL 返回PostgreSQL的UPSERT语句（ON CONFLICT DO UPDATE）
func (d *Dialect) UpsertSQL(tableName string, columns []string, conflictColumn string, updateColumns []string) string {
	named := make([]string, len(columns))
	for i, col := range columns {
		named[i] = ":" + col
	}
	updates := make([]string, len(updateColumns))
	for i, col := range updateColumns {
		updates[i] = fmt.Sprintf("%s = EXCLUDED.%s", col, col)
	}
	return fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s) DO UPDATE SET %s",
		tableName,
		strings.Join(columns, ", "),
		strings.Join(named, ", "),
		conflictColumn,
		strings.Join(updates, ", "),
	)
}

// CreateTableSQL 转换DDL为PostgreSQL兼容格式
func (d *Dialect) CreateTableSQL(schema string) string {
	result := strings.ReplaceAll(schema, "DATETIME", "TIMESTAMP")
	// 布尔列在SQLite中以INTEGER DEFAULT 0表示
	result = strings.ReplaceAll(result, "INTEGER NOT NULL DEFAULT 0", "BOOLEAN NOT NULL DEFAULT FALSE")
	return result
}

// ConfigureDB 返回PostgreSQL会话配置
func (d *Dialect) ConfigureDB() []string {
	return []string{"SET timezone = 'UTC';"}
}

var _ storage.Dialect = (*Dialect)(nil)
