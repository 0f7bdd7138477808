// Package engine 组合校验、存储、缓存、事件和巡检，对外提供路线图服务
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/LENAX/roadmap-engine/pkg/config"
	"github.com/LENAX/roadmap-engine/pkg/core/audit"
	"github.com/LENAX/roadmap-engine/pkg/core/cache"
	"github.com/LENAX/roadmap-engine/pkg/core/dag"
	"github.com/LENAX/roadmap-engine/pkg/core/events"
	"github.com/LENAX/roadmap-engine/pkg/core/roadmap"
	"github.com/LENAX/roadmap-engine/pkg/storage"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrRoadmapRejected 路线图未通过校验，未被保存
var ErrRoadmapRejected = errors.New("路线图校验未通过")

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Engine 路线图服务引擎（对外导出）
type Engine struct {
	cfg      *config.ServiceConfig
	repo     storage.RoadmapRepository
	ownsRepo bool
	cache    *cache.ReportCache
	bus      *events.Bus
	auditor  *audit.Auditor
	logger   *zap.Logger
	options  roadmap.CheckOptions

	mu      sync.Mutex
	running bool
	stopped bool
}

// NewEngine 创建引擎（对外导出）
// repo的生命周期由调用方管理
func NewEngine(cfg *config.ServiceConfig, repo storage.RoadmapRepository, logger *zap.Logger) (*Engine, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	cfg.ApplyDefaults()
	if repo == nil {
		return nil, fmt.Errorf("路线图存储不能为空")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	e := &Engine{
		cfg:     cfg,
		repo:    repo,
		bus:     events.NewBus(logger),
		logger:  logger,
		options: roadmap.CheckOptions{StrictIDs: cfg.RoadmapEngine.Validation.StrictIDs},
	}

	cacheCfg := cfg.RoadmapEngine.Storage.Cache
	if cacheCfg.Enabled {
		e.cache = cache.NewReportCache(cacheCfg.DefaultTTL, cacheCfg.CleanInterval)
	}

	auditor, err := audit.NewAuditor(repo, e.bus, logger.Named("audit"), cfg.RoadmapEngine.Audit.Cron, e.options)
	if err != nil {
		e.release()
		return nil, err
	}
	e.auditor = auditor
	return e, nil
}

// Config 返回引擎使用的配置
func (e *Engine) Config() *config.ServiceConfig {
	return e.cfg
}

// Bus 返回事件总线
func (e *Engine) Bus() *events.Bus {
	return e.bus
}

// Start 启动引擎，配置开启时启动定时巡检
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running {
		return nil
	}
	if e.stopped {
		return fmt.Errorf("引擎已停止，不能再次启动")
	}

	if e.cfg.RoadmapEngine.Audit.Enabled {
		if err := e.auditor.Start(ctx); err != nil {
			return fmt.Errorf("启动巡检失败: %w", err)
		}
	}
	e.running = true
	e.logger.Info("路线图引擎已启动", zap.String("instance", e.cfg.RoadmapEngine.General.InstanceName))
	return nil
}

// Stop 停止巡检并释放引擎持有的资源，可重复调用
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stopped {
		return
	}
	e.auditor.Stop()
	e.release()
	e.running = false
	e.stopped = true
	e.logger.Info("路线图引擎已停止")
}

func (e *Engine) release() {
	if e.cache != nil {
		e.cache.Close()
	}
	if err := e.bus.Close(); err != nil {
		e.logger.Warn("关闭事件总线失败", zap.Error(err))
	}
	if e.ownsRepo {
		if err := e.repo.Close(); err != nil {
			e.logger.Warn("关闭存储失败", zap.Error(err))
		}
	}
}

// Check 校验路线图，不做持久化
func (e *Engine) Check(r *roadmap.Roadmap) *roadmap.Report {
	return roadmap.CheckWithOptions(r, e.options)
}

// Submit 校验并保存路线图（对外导出）
// 校验失败时返回报告和ErrRoadmapRejected；成功时就地补全ID和时间戳
func (e *Engine) Submit(ctx context.Context, r *roadmap.Roadmap) (*roadmap.Report, error) {
	report := e.Check(r)
	if !report.Valid {
		id := ""
		title := ""
		if r != nil {
			id, title = r.ID, r.Title
		}
		e.publish(events.NewEvent(events.EventRoadmapRejected, id, events.NewIssuesPayload(title, report)))
		e.logger.Info("拒绝路线图", zap.String("roadmap_id", id), zap.Int("issues", len(report.Issues)))
		return report, fmt.Errorf("%w: %w", ErrRoadmapRejected, report.Err())
	}

	now := time.Now().UTC()
	if r.ID == "" {
		r.ID = "roadmap-" + uuid.NewString()
	} else if existing, err := e.repo.GetByID(ctx, r.ID); err == nil {
		r.CreatedAt = existing.CreatedAt
	} else if !errors.Is(err, storage.ErrRoadmapNotFound) {
		return nil, err
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	r.UpdatedAt = now

	if err := e.repo.Save(ctx, r, true); err != nil {
		return nil, fmt.Errorf("保存路线图失败: %w", err)
	}
	if e.cache != nil {
		e.cache.Invalidate(r.ID)
		e.cache.Set(cache.Key(r.ID, r.UpdatedAt), report)
	}

	e.publish(events.NewEvent(events.EventRoadmapAccepted, r.ID, events.NewIssuesPayload(r.Title, report)))
	e.logger.Info("路线图已保存",
		zap.String("roadmap_id", r.ID),
		zap.Int("phases", len(r.Phases)),
		zap.Int("tasks", r.TaskCount()),
	)
	return report, nil
}

// Get 获取路线图
func (e *Engine) Get(ctx context.Context, id string) (*roadmap.Roadmap, error) {
	return e.repo.GetByID(ctx, id)
}

// List 分页查询路线图摘要，limit非法时使用默认页大小
func (e *Engine) List(ctx context.Context, limit, offset int) ([]*storage.RoadmapSummary, int, error) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return e.repo.List(ctx, limit, offset)
}

// Delete 删除路线图
func (e *Engine) Delete(ctx context.Context, id string) error {
	if err := e.repo.Delete(ctx, id); err != nil {
		return err
	}
	if e.cache != nil {
		e.cache.Invalidate(id)
	}
	e.publish(events.NewEvent(events.EventRoadmapDeleted, id, nil))
	e.logger.Info("路线图已删除", zap.String("roadmap_id", id))
	return nil
}

// Order 返回已存储路线图的阶段分层拓扑顺序
func (e *Engine) Order(ctx context.Context, id string) (*dag.TopologicalOrder, error) {
	nodes, err := e.repo.PhaseGraph(ctx, id)
	if err != nil {
		return nil, err
	}
	return dag.TopologicalSort(nodes)
}

// Graph 构建已存储路线图的阶段依赖图，可查询每个阶段的上下游
func (e *Engine) Graph(ctx context.Context, id string) (*dag.Graph, error) {
	nodes, err := e.repo.PhaseGraph(ctx, id)
	if err != nil {
		return nil, err
	}
	return dag.BuildDAG(nodes)
}

// CheckStored 重新校验已存储的路线图，结果按更新时间缓存
func (e *Engine) CheckStored(ctx context.Context, id string) (*roadmap.Report, error) {
	r, err := e.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	key := cache.Key(r.ID, r.UpdatedAt)
	if e.cache != nil {
		if report, ok := e.cache.Get(key); ok {
			return report, nil
		}
	}
	report := e.Check(r)
	if e.cache != nil {
		e.cache.Set(key, report)
	}
	return report, nil
}

// Audit 立即执行一次巡检
func (e *Engine) Audit(ctx context.Context) (*audit.AuditResult, error) {
	return e.auditor.RunOnce(ctx)
}

func (e *Engine) publish(event *events.Event) {
	if err := e.bus.Publish(event); err != nil {
		e.logger.Warn("发布事件失败", zap.String("type", string(event.Type)), zap.Error(err))
	}
}
