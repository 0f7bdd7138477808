package storage

// Dialect SQL方言接口（对外导出）
// 封装不同数据库的SQL语法差异
type Dialect interface {
	// Name 返回方言名称（如 "sqlite", "mysql", "postgres"）
	Name() string

	// DriverName 返回database/sql注册的驱动名，sqlx据此选择占位符风格
	DriverName() string

	// UpsertSQL 返回INSERT或UPDATE的命名参数SQL语句
	// conflictColumn: 冲突判断列（通常是主键）
	// updateColumns: 冲突时需要更新的列（不含主键）
	UpsertSQL(tableName string, columns []string, conflictColumn string, updateColumns []string) string

	// CreateTableSQL 将SQLite语法的DDL转换为当前数据库的DDL
	CreateTableSQL(schema string) string

	// ConfigureDB 返回建立连接后需要执行的SQL语句
	ConfigureDB() []string
}

// Schema 路线图表结构（SQLite语法，由Dialect.CreateTableSQL转换）
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS roadmap (
		id VARCHAR(64) PRIMARY KEY,
		title VARCHAR(255) NOT NULL,
		description TEXT,
		document TEXT NOT NULL,
		phase_count INTEGER NOT NULL,
		task_count INTEGER NOT NULL,
		estimated_time INTEGER NOT NULL,
		valid INTEGER NOT NULL DEFAULT 0,
		create_time DATETIME NOT NULL,
		update_time DATETIME NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS roadmap_phase (
		roadmap_id VARCHAR(64) NOT NULL,
		seq INTEGER NOT NULL,
		phase_id VARCHAR(255) NOT NULL,
		title VARCHAR(255) NOT NULL,
		dependencies TEXT NOT NULL,
		PRIMARY KEY (roadmap_id, seq)
	);`,
}
