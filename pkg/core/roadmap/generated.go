package roadmap

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// generatedTask 生成器输出的任务格式（工具以ID列表给出）
type generatedTask struct {
	ID            string                 `json:"id"`
	Title         string                 `json:"title"`
	Description   string                 `json:"description"`
	Status        TaskStatus             `json:"status"`
	Priority      Priority               `json:"priority"`
	EstimatedTime int                    `json:"estimatedTime"`
	Tools         []string               `json:"tools"`
	Metadata      map[string]interface{} `json:"metadata"`
}

// generatedPhase 生成器输出的阶段格式
type generatedPhase struct {
	ID            string                 `json:"id"`
	Title         string                 `json:"title"`
	Description   string                 `json:"description"`
	Priority      Priority               `json:"priority"`
	Category      Category               `json:"category"`
	EstimatedTime int                    `json:"estimatedTime"`
	Dependencies  []string               `json:"dependencies"`
	Tasks         []generatedTask        `json:"tasks"`
	Tools         []string               `json:"tools"`
	Status        TaskStatus             `json:"status"`
	Metadata      map[string]interface{} `json:"metadata"`
}

type generatedRoadmap struct {
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Phases      []generatedPhase `json:"phases"`
}

// ParseGenerated 将生成器输出的JSON转换为路线图并补全默认值（对外导出）
// projectTitle: JSON中未提供title时使用的项目名称
func ParseGenerated(data []byte, projectTitle string) (*Roadmap, error) {
	var parsed generatedRoadmap
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("解析生成的路线图失败: %w", err)
	}
	if parsed.Phases == nil {
		return nil, fmt.Errorf("解析生成的路线图失败: 缺少phases字段")
	}
	if projectTitle == "" {
		projectTitle = "New Project"
	}

	phases := make([]Phase, 0, len(parsed.Phases))
	totalTasks := 0
	for i, p := range parsed.Phases {
		phases = append(phases, transformPhase(p, i))
		totalTasks += len(p.Tasks)
	}

	now := time.Now().UTC()
	r := &Roadmap{
		ID:          "roadmap-" + uuid.NewString(),
		Title:       parsed.Title,
		Description: parsed.Description,
		Phases:      phases,
		CreatedAt:   now,
		UpdatedAt:   now,
		Metadata: map[string]interface{}{
			"source":      "generated",
			"version":     "1.0",
			"generatedAt": now.Format(time.RFC3339),
			"totalPhases": len(phases),
			"totalTasks":  totalTasks,
		},
	}
	if r.Title == "" {
		r.Title = projectTitle
	}
	if r.Description == "" {
		r.Description = "Generated roadmap for " + projectTitle
	}
	return r, nil
}

func transformPhase(p generatedPhase, index int) Phase {
	tasks := make([]Task, 0, len(p.Tasks))
	for _, t := range p.Tasks {
		tasks = append(tasks, transformTask(t))
	}

	metadata := copyMetadata(p.Metadata)
	if _, ok := metadata["complexity"]; !ok {
		metadata["complexity"] = "low"
	}
	if _, ok := metadata["order"]; !ok {
		metadata["order"] = index
	}

	deps := p.Dependencies
	if deps == nil {
		deps = []string{}
	}

	return Phase{
		ID:            p.ID,
		Title:         p.Title,
		Description:   p.Description,
		Priority:      p.Priority,
		Category:      p.Category,
		EstimatedTime: p.EstimatedTime,
		Dependencies:  deps,
		Tasks:         tasks,
		Tools:         toolReferences(p.Tools),
		IsExpanded:    index == 0,
		Status:        statusOrPending(p.Status),
		Metadata:      metadata,
	}
}

func transformTask(t generatedTask) Task {
	metadata := copyMetadata(t.Metadata)
	if _, ok := metadata["complexity"]; !ok {
		metadata["complexity"] = "low"
	}
	if _, ok := metadata["requiredSkills"]; !ok {
		metadata["requiredSkills"] = []string{}
	}
	// 默认要求全部子任务完成
	metadata["percentageRequired"] = 100

	estimated := t.EstimatedTime
	if estimated <= 0 {
		estimated = 1
	}

	return Task{
		ID:            t.ID,
		Title:         t.Title,
		Description:   t.Description,
		Status:        statusOrPending(t.Status),
		Priority:      t.Priority,
		EstimatedTime: estimated,
		Tools:         toolReferences(t.Tools),
		Subtasks:      []Subtask{},
		Metadata:      metadata,
	}
}

func toolReferences(ids []string) []ToolReference {
	refs := make([]ToolReference, 0, len(ids))
	for _, id := range ids {
		refs = append(refs, ToolReference{ToolID: id, RequiredFeatures: []string{}})
	}
	return refs
}

func statusOrPending(s TaskStatus) TaskStatus {
	if s == "" {
		return StatusPending
	}
	return s
}

func copyMetadata(src map[string]interface{}) map[string]interface{} {
	dst := make(map[string]interface{}, len(src)+2)
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
