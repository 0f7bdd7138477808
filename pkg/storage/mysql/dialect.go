package mysql

import (
	"fmt"
	"strings"

	"github.com/LENAX/roadmap-engine/pkg/storage"
	gomysql "github.com/go-sql-driver/mysql"
)

// Dialect MySQL方言实现（对外导出）
type Dialect struct{}

// NewDialect 创建MySQL方言实例
func NewDialect() *Dialect {
	return &Dialect{}
}

// Name 返回方言名称
func (d *Dialect) Name() string {
	return "mysql"
}

// DriverName 返回go-sql-driver/mysql注册的驱动名
func (d *Dialect) DriverName() string {
	return "mysql"
}

// UpsertSQL 返回MySQL的UPSERT语句（ON DUPLICATE KEY UPDATE）
func (d *Dialect) UpsertSQL(tableName string, columns []string, conflictColumn string, updateColumns []string) string {
	named := make([]string, len(columns))
	for i, col := range columns {
		named[i] = ":" + col
	}
	updates := make([]string, len(updateColumns))
	for i, col := range updateColumns {
		updates[i] = fmt.Sprintf("%s = VALUES(%s)", col, col)
	}
	return fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) ON DUPLICATE KEY UPDATE %s",
		tableName,
		strings.Join(columns, ", "),
		strings.Join(named, ", "),
		strings.Join(updates, ", "),
	)
}

// CreateTableSQL 转换DDL为MySQL兼容格式
func (d *Dialect) CreateTableSQL(schema string) string {
	result := strings.ReplaceAll(schema, "INTEGER NOT NULL DEFAULT 0", "TINYINT(1) NOT NULL DEFAULT 0")
	result = strings.ReplaceAll(result, "document TEXT", "document LONGTEXT")
	if !strings.Contains(result, "ENGINE=") && strings.Contains(result, "CREATE TABLE") {
		result = strings.TrimRight(strings.TrimSpace(result), ";") + " ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;"
	}
	return result
}

// ConfigureDB 返回MySQL会话配置
func (d *Dialect) ConfigureDB() []string {
	return []string{
		"SET SESSION sql_mode='STRICT_TRANS_TABLES,NO_ZERO_IN_DATE,NO_ZERO_DATE,ERROR_FOR_DIVISION_BY_ZERO,NO_ENGINE_SUBSTITUTION';",
	}
}

// NormalizeDSN 打开parseTime，使DATETIME列可以扫描为time.Time
func NormalizeDSN(dsn string) (string, error) {
	cfg, err := gomysql.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("解析MySQL DSN失败: %w", err)
	}
	cfg.ParseTime = true
	return cfg.FormatDSN(), nil
}

var _ storage.Dialect = (*Dialect)(nil)
