// Package roadmap 定义项目路线图文档（阶段 -> 任务 -> 子任务）及其校验
package roadmap

import (
	"time"
)

// Priority 优先级
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Category 阶段分类
type Category string

const (
	CategorySetup       Category = "setup"
	CategoryDevelopment Category = "development"
	CategoryTesting     Category = "testing"
	CategoryDeployment  Category = "deployment"
	CategoryMaintenance Category = "maintenance"
)

// TaskStatus 任务/阶段状态
type TaskStatus string

const (
	StatusPending    TaskStatus = "pending"
	StatusInProgress TaskStatus = "in-progress"
	StatusCompleted  TaskStatus = "completed"
	StatusFailed     TaskStatus = "failed"
	StatusNeedHelp   TaskStatus = "need-help"
)

// Valid 判断优先级是否合法
func (p Priority) Valid() bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

// Valid 判断分类是否合法
func (c Category) Valid() bool {
	switch c {
	case CategorySetup, CategoryDevelopment, CategoryTesting, CategoryDeployment, CategoryMaintenance:
		return true
	}
	return false
}

// Valid 判断状态是否合法
func (s TaskStatus) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted, StatusFailed, StatusNeedHelp:
		return true
	}
	return false
}

// ToolReference 工具引用
type ToolReference struct {
	ToolID           string   `json:"toolId" yaml:"toolId"`
	Context          string   `json:"context,omitempty" yaml:"context,omitempty"`
	RequiredFeatures []string `json:"requiredFeatures,omitempty" yaml:"requiredFeatures,omitempty"`
}

// Subtask 子任务，依赖只能指向同一任务下的其他子任务
type Subtask struct {
	ID            string     `json:"id" yaml:"id"`
	ParentID      string     `json:"parentId" yaml:"parentId"`
	Title         string     `json:"title" yaml:"title"`
	Description   string     `json:"description,omitempty" yaml:"description,omitempty"`
	Status        TaskStatus `json:"status,omitempty" yaml:"status,omitempty"`
	Priority      Priority   `json:"priority,omitempty" yaml:"priority,omitempty"`
	EstimatedTime int        `json:"estimatedTime,omitempty" yaml:"estimatedTime,omitempty"`
	Order         int        `json:"order" yaml:"order"`
	Dependencies  []string   `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
}

// GetID 实现dag.Vertex接口
func (s Subtask) GetID() string { return s.ID }

// GetDependencies 实现dag.Vertex接口
func (s Subtask) GetDependencies() []string { return s.Dependencies }

// Task 阶段下的任务
type Task struct {
	ID            string                 `json:"id" yaml:"id"`
	Title         string                 `json:"title" yaml:"title"`
	Description   string                 `json:"description,omitempty" yaml:"description,omitempty"`
	Status        TaskStatus             `json:"status,omitempty" yaml:"status,omitempty"`
	Priority      Priority               `json:"priority,omitempty" yaml:"priority,omitempty"`
	EstimatedTime int                    `json:"estimatedTime,omitempty" yaml:"estimatedTime,omitempty"`
	Tools         []ToolReference        `json:"tools,omitempty" yaml:"tools,omitempty"`
	Subtasks      []Subtask              `json:"subtasks,omitempty" yaml:"subtasks,omitempty"`
	Metadata      map[string]interface{} `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// Phase 路线图阶段，是依赖图中的节点
type Phase struct {
	ID            string                 `json:"id" yaml:"id"`
	Title         string                 `json:"title" yaml:"title"`
	Description   string                 `json:"description,omitempty" yaml:"description,omitempty"`
	Priority      Priority               `json:"priority,omitempty" yaml:"priority,omitempty"`
	Category      Category               `json:"category,omitempty" yaml:"category,omitempty"`
	EstimatedTime int                    `json:"estimatedTime,omitempty" yaml:"estimatedTime,omitempty"`
	Dependencies  []string               `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
	Tasks         []Task                 `json:"tasks" yaml:"tasks"`
	Tools         []ToolReference        `json:"tools,omitempty" yaml:"tools,omitempty"`
	IsExpanded    bool                   `json:"isExpanded,omitempty" yaml:"isExpanded,omitempty"`
	Status        TaskStatus             `json:"status,omitempty" yaml:"status,omitempty"`
	Metadata      map[string]interface{} `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// GetID 实现dag.Vertex接口
func (p Phase) GetID() string { return p.ID }

// GetDependencies 实现dag.Vertex接口
func (p Phase) GetDependencies() []string { return p.Dependencies }

// Roadmap 完整路线图
type Roadmap struct {
	ID          string                 `json:"id" yaml:"id"`
	Title       string                 `json:"title" yaml:"title"`
	Description string                 `json:"description,omitempty" yaml:"description,omitempty"`
	Phases      []Phase                `json:"phases" yaml:"phases"`
	CreatedAt   time.Time              `json:"createdAt" yaml:"createdAt"`
	UpdatedAt   time.Time              `json:"updatedAt" yaml:"updatedAt"`
	Metadata    map[string]interface{} `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// TaskCount 返回任务总数
func (r *Roadmap) TaskCount() int {
	total := 0
	for _, phase := range r.Phases {
		total += len(phase.Tasks)
	}
	return total
}

// TotalEstimatedTime 返回所有阶段预计耗时之和（小时）
func (r *Roadmap) TotalEstimatedTime() int {
	total := 0
	for _, phase := range r.Phases {
		total += phase.EstimatedTime
	}
	return total
}

// FindPhase 按ID查找阶段，重复ID以首次出现为准
func (r *Roadmap) FindPhase(id string) (*Phase, bool) {
	for i := range r.Phases {
		if r.Phases[i].ID == id {
			return &r.Phases[i], true
		}
	}
	return nil, false
}
