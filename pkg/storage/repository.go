package storage

import (
	"context"
	"errors"
	"time"

	"github.com/LENAX/roadmap-engine/pkg/core/dag"
	"github.com/LENAX/roadmap-engine/pkg/core/roadmap"
)

// ErrRoadmapNotFound 路线图不存在
var ErrRoadmapNotFound = errors.New("路线图不存在")

// RoadmapSummary 路线图摘要（对外导出）
// 列表查询只返回摘要，不解码完整文档
type RoadmapSummary struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	PhaseCount  int       `json:"phaseCount"`
	TaskCount   int       `json:"taskCount"`
	Hours       int       `json:"estimatedTime"`
	Valid       bool      `json:"valid"`
	CreateTime  time.Time `json:"createTime"`
	UpdateTime  time.Time `json:"updateTime"`
}

// RoadmapRepository 路线图存储接口（对外导出）
type RoadmapRepository interface {
	// Save 保存路线图（创建或更新），valid记录保存时的校验结果
	Save(ctx context.Context, r *roadmap.Roadmap, valid bool) error
	// GetByID 根据ID查询完整路线图，不存在时返回ErrRoadmapNotFound
	GetByID(ctx context.Context, id string) (*roadmap.Roadmap, error)
	// List 分页查询摘要，按更新时间倒序，同时返回总数
	List(ctx context.Context, limit, offset int) ([]*RoadmapSummary, int, error)
	// ListAll 查询所有路线图ID
	ListAll(ctx context.Context) ([]string, error)
	// PhaseGraph 按保存顺序返回阶段依赖图，不解码文档
	PhaseGraph(ctx context.Context, id string) ([]dag.Node, error)
	// Delete 删除路线图及其阶段，不存在时返回ErrRoadmapNotFound
	Delete(ctx context.Context, id string) error
	// Close 关闭底层连接
	Close() error
}
