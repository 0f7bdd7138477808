// Package sqlstore 基于sqlx的路线图存储实现，通过Dialect适配SQLite、PostgreSQL和MySQL
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/LENAX/roadmap-engine/pkg/core/dag"
	"github.com/LENAX/roadmap-engine/pkg/core/roadmap"
	"github.com/LENAX/roadmap-engine/pkg/storage"
	"github.com/LENAX/roadmap-engine/pkg/storage/dao"
	"github.com/jmoiron/sqlx"
)

var roadmapColumns = []string{
	"id", "title", "description", "document",
	"phase_count", "task_count", "estimated_time", "valid", "create_time", "update_time",
}

var phaseColumns = []string{"roadmap_id", "seq", "phase_id", "title", "dependencies"}

// RoadmapRepo 路线图Repository的SQL实现（对外导出）
type RoadmapRepo struct {
	db      *sqlx.DB
	dialect storage.Dialect
}

// NewRoadmapRepo 创建路线图Repository实例（对外导出）
// 执行方言配置语句并初始化表结构
func NewRoadmapRepo(db *sqlx.DB, dialect storage.Dialect) (*RoadmapRepo, error) {
	repo := &RoadmapRepo{db: db, dialect: dialect}
	for _, stmt := range dialect.ConfigureDB() {
		if _, err := db.Exec(stmt); err != nil {
			return nil, fmt.Errorf("配置%s失败: %w", dialect.Name(), err)
		}
	}
	if err := repo.initSchema(); err != nil {
		return nil, fmt.Errorf("初始化表结构失败: %w", err)
	}
	return repo, nil
}

// Open 通过DSN打开数据库并创建Repository（对外导出）
func Open(dialect storage.Dialect, dsn string) (*RoadmapRepo, error) {
	db, err := sqlx.Open(dialect.DriverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("打开数据库失败: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("数据库连接失败: %w", err)
	}
	repo, err := NewRoadmapRepo(db, dialect)
	if err != nil {
		db.Close()
		return nil, err
	}
	return repo, nil
}

// DB 获取底层数据库连接
func (r *RoadmapRepo) DB() *sqlx.DB {
	return r.db
}

// Close 关闭数据库连接（对外导出）
func (r *RoadmapRepo) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *RoadmapRepo) initSchema() error {
	for _, stmt := range storage.Schema {
		if _, err := r.db.Exec(r.dialect.CreateTableSQL(stmt)); err != nil {
			return err
		}
	}
	return nil
}

// Save 保存路线图及其阶段（事务）
// 阶段行先全部删除再按顺序重新写入
func (r *RoadmapRepo) Save(ctx context.Context, rm *roadmap.Roadmap, valid bool) error {
	if rm == nil || rm.ID == "" {
		return fmt.Errorf("路线图ID不能为空")
	}
	document, err := json.Marshal(rm)
	if err != nil {
		return fmt.Errorf("序列化路线图失败: %w", err)
	}

	row := dao.RoadmapDAO{
		ID:          rm.ID,
		Title:       rm.Title,
		Description: sql.NullString{String: rm.Description, Valid: rm.Description != ""},
		Document:    string(document),
		PhaseCount:  len(rm.Phases),
		TaskCount:   rm.TaskCount(),
		Hours:       rm.TotalEstimatedTime(),
		Valid:       valid,
		CreateTime:  rm.CreatedAt,
		UpdateTime:  rm.UpdatedAt,
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("开始事务失败: %w", err)
	}
	defer tx.Rollback()

	upsert := r.dialect.UpsertSQL("roadmap", roadmapColumns, "id", roadmapColumns[1:])
	if _, err := tx.NamedExecContext(ctx, upsert, row); err != nil {
		return fmt.Errorf("保存路线图失败: %w", err)
	}

	if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM roadmap_phase WHERE roadmap_id = ?`), rm.ID); err != nil {
		return fmt.Errorf("删除旧阶段失败: %w", err)
	}

	insertPhase := fmt.Sprintf("INSERT INTO roadmap_phase (%s) VALUES (:%s)",
		strings.Join(phaseColumns, ", "), strings.Join(phaseColumns, ", :"))
	for i, phase := range rm.Phases {
		deps := phase.Dependencies
		if deps == nil {
			deps = []string{}
		}
		depsJSON, err := json.Marshal(deps)
		if err != nil {
			return fmt.Errorf("序列化阶段依赖失败: %w", err)
		}
		phaseRow := dao.RoadmapPhaseDAO{
			RoadmapID:    rm.ID,
			Seq:          i,
			PhaseID:      phase.ID,
			Title:        phase.Title,
			Dependencies: string(depsJSON),
		}
		if _, err := tx.NamedExecContext(ctx, insertPhase, phaseRow); err != nil {
			return fmt.Errorf("保存阶段 %s 失败: %w", phase.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("提交事务失败: %w", err)
	}
	return nil
}

// GetByID 根据ID获取完整路线图
func (r *RoadmapRepo) GetByID(ctx context.Context, id string) (*roadmap.Roadmap, error) {
	var document string
	query := r.db.Rebind(`SELECT document FROM roadmap WHERE id = ?`)
	if err := r.db.GetContext(ctx, &document, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", storage.ErrRoadmapNotFound, id)
		}
		return nil, fmt.Errorf("查询路线图失败: %w", err)
	}

	var rm roadmap.Roadmap
	if err := json.Unmarshal([]byte(document), &rm); err != nil {
		return nil, fmt.Errorf("解析路线图文档失败: %w", err)
	}
	return &rm, nil
}

// List 分页查询路线图摘要
func (r *RoadmapRepo) List(ctx context.Context, limit, offset int) ([]*storage.RoadmapSummary, int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM roadmap`); err != nil {
		return nil, 0, fmt.Errorf("统计路线图数量失败: %w", err)
	}

	var rows []dao.RoadmapDAO
	query := r.db.Rebind(`SELECT id, title, description, phase_count, task_count, estimated_time, valid, create_time, update_time
		FROM roadmap ORDER BY update_time DESC, id ASC LIMIT ? OFFSET ?`)
	if err := r.db.SelectContext(ctx, &rows, query, limit, offset); err != nil {
		return nil, 0, fmt.Errorf("查询路线图列表失败: %w", err)
	}

	summaries := make([]*storage.RoadmapSummary, 0, len(rows))
	for _, row := range rows {
		summaries = append(summaries, &storage.RoadmapSummary{
			ID:          row.ID,
			Title:       row.Title,
			Description: row.Description.String,
			PhaseCount:  row.PhaseCount,
			TaskCount:   row.TaskCount,
			Hours:       row.Hours,
			Valid:       row.Valid,
			CreateTime:  row.CreateTime,
			UpdateTime:  row.UpdateTime,
		})
	}
	return summaries, total, nil
}

// ListAll 查询所有路线图ID
func (r *RoadmapRepo) ListAll(ctx context.Context) ([]string, error) {
	ids := make([]string, 0)
	if err := r.db.SelectContext(ctx, &ids, `SELECT id FROM roadmap ORDER BY id`); err != nil {
		return nil, fmt.Errorf("查询路线图ID失败: %w", err)
	}
	return ids, nil
}

// PhaseGraph 读取阶段依赖图
func (r *RoadmapRepo) PhaseGraph(ctx context.Context, id string) ([]dag.Node, error) {
	var exists int
	if err := r.db.GetContext(ctx, &exists, r.db.Rebind(`SELECT COUNT(*) FROM roadmap WHERE id = ?`), id); err != nil {
		return nil, fmt.Errorf("查询路线图失败: %w", err)
	}
	if exists == 0 {
		return nil, fmt.Errorf("%w: %s", storage.ErrRoadmapNotFound, id)
	}

	var rows []dao.RoadmapPhaseDAO
	query := r.db.Rebind(`SELECT roadmap_id, seq, phase_id, title, dependencies
		FROM roadmap_phase WHERE roadmap_id = ? ORDER BY seq`)
	if err := r.db.SelectContext(ctx, &rows, query, id); err != nil {
		return nil, fmt.Errorf("查询阶段失败: %w", err)
	}

	nodes := make([]dag.Node, 0, len(rows))
	for _, row := range rows {
		var deps []string
		if err := json.Unmarshal([]byte(row.Dependencies), &deps); err != nil {
			return nil, fmt.Errorf("解析阶段 %s 的依赖失败: %w", row.PhaseID, err)
		}
		nodes = append(nodes, dag.Node{ID: row.PhaseID, Dependencies: deps})
	}
	return nodes, nil
}

// Delete 删除路线图及其阶段（事务）
func (r *RoadmapRepo) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("开始事务失败: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM roadmap_phase WHERE roadmap_id = ?`), id); err != nil {
		return fmt.Errorf("删除阶段失败: %w", err)
	}
	res, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM roadmap WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("删除路线图失败: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("获取影响行数失败: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", storage.ErrRoadmapNotFound, id)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("提交事务失败: %w", err)
	}
	return nil
}

var _ storage.RoadmapRepository = (*RoadmapRepo)(nil)
