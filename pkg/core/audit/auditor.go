// Package audit 定期巡检已存储路线图的依赖图完整性
package audit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/LENAX/roadmap-engine/pkg/core/events"
	"github.com/LENAX/roadmap-engine/pkg/core/roadmap"
	"github.com/LENAX/roadmap-engine/pkg/storage"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// DefaultSchedule 默认巡检周期：每10分钟
const DefaultSchedule = "0 */10 * * * *"

// Publisher 事件发布接口
type Publisher interface {
	Publish(event *events.Event) error
}

// AuditResult 一次巡检的结果
type AuditResult struct {
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
	Checked    int       `json:"checked"`
	Invalid    []string  `json:"invalid"`
}

// Auditor 定时巡检器（对外导出）
type Auditor struct {
	repo      storage.RoadmapRepository
	publisher Publisher
	logger    *zap.Logger
	options   roadmap.CheckOptions

	cron     *cron.Cron
	schedule string
	entryID  cron.EntryID

	mu      sync.Mutex
	running bool
	last    *AuditResult
}

// NewAuditor 创建巡检器（对外导出）
// schedule为空时使用DefaultSchedule；publisher可以为nil
func NewAuditor(repo storage.RoadmapRepository, publisher Publisher, logger *zap.Logger, schedule string, opts roadmap.CheckOptions) (*Auditor, error) {
	if schedule == "" {
		schedule = DefaultSchedule
	}
	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	if _, err := parser.Parse(schedule); err != nil {
		return nil, fmt.Errorf("巡检Cron表达式无效: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Auditor{
		repo:      repo,
		publisher: publisher,
		logger:    logger,
		options:   opts,
		cron:      cron.New(cron.WithSeconds()), // 支持秒级精度
		schedule:  schedule,
	}, nil
}

// Start 注册定时任务并启动
func (a *Auditor) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.running {
		return nil
	}

	entryID, err := a.cron.AddFunc(a.schedule, func() {
		if _, err := a.RunOnce(ctx); err != nil {
			a.logger.Error("路线图巡检失败", zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("添加Cron任务失败: %w", err)
	}
	a.entryID = entryID
	a.cron.Start()
	a.running = true
	a.logger.Info("路线图巡检已启动", zap.String("schedule", a.schedule))
	return nil
}

// Stop 停止调度并等待正在执行的巡检结束
func (a *Auditor) Stop() {
	a.mu.Lock()
	if !a.running {
		a.mu.Unlock()
		return
	}
	a.running = false
	a.cron.Remove(a.entryID)
	a.mu.Unlock()

	<-a.cron.Stop().Done()
	a.logger.Info("路线图巡检已停止")
}

// LastResult 返回最近一次巡检结果，尚未巡检时返回nil
func (a *Auditor) LastResult() *AuditResult {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.last
}

// RunOnce 执行一次巡检
// 单个路线图读取失败只记录日志，不中断整轮巡检
func (a *Auditor) RunOnce(ctx context.Context) (*AuditResult, error) {
	result := &AuditResult{StartedAt: time.Now(), Invalid: make([]string, 0)}

	ids, err := a.repo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("查询路线图失败: %w", err)
	}

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rm, err := a.repo.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, storage.ErrRoadmapNotFound) {
				continue // 巡检期间被删除
			}
			a.logger.Warn("读取路线图失败", zap.String("roadmap_id", id), zap.Error(err))
			continue
		}

		result.Checked++
		report := roadmap.CheckWithOptions(rm, a.options)
		if report.Valid {
			continue
		}

		result.Invalid = append(result.Invalid, id)
		a.logger.Warn("巡检发现不合法的路线图",
			zap.String("roadmap_id", id),
			zap.Int("issues", len(report.Issues)),
		)
		a.publish(id, rm.Title, report)
	}

	result.FinishedAt = time.Now()
	a.mu.Lock()
	a.last = result
	a.mu.Unlock()

	a.logger.Info("路线图巡检完成",
		zap.Int("checked", result.Checked),
		zap.Int("invalid", len(result.Invalid)),
		zap.Duration("elapsed", result.FinishedAt.Sub(result.StartedAt)),
	)
	return result, nil
}

func (a *Auditor) publish(id, title string, report *roadmap.Report) {
	if a.publisher == nil {
		return
	}
	event := events.NewEvent(events.EventRoadmapAuditFailed, id, events.NewIssuesPayload(title, report)).WithMetadata("source", "audit")
	if err := a.publisher.Publish(event); err != nil {
		a.logger.Warn("发布巡检事件失败", zap.String("roadmap_id", id), zap.Error(err))
	}
}
