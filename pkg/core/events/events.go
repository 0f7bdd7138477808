// Package events 提供路线图生命周期事件的发布与订阅
package events

import (
	"time"

	"github.com/LENAX/roadmap-engine/pkg/core/roadmap"
	"github.com/google/uuid"
)

// EventType 事件类型，同时作为watermill的topic
type EventType string

const (
	EventRoadmapAccepted    EventType = "roadmap.accepted"     // 路线图校验通过并保存
	EventRoadmapRejected    EventType = "roadmap.rejected"     // 路线图校验失败被拒绝
	EventRoadmapDeleted     EventType = "roadmap.deleted"      // 路线图被删除
	EventRoadmapAuditFailed EventType = "roadmap.audit_failed" // 巡检发现已存储的路线图不合法
)

// AllEventTypes 全部事件类型
var AllEventTypes = []EventType{
	EventRoadmapAccepted,
	EventRoadmapRejected,
	EventRoadmapDeleted,
	EventRoadmapAuditFailed,
}

// Event 事件基础结构
type Event struct {
	ID        string            `json:"id"`         // 事件ID（UUID）
	Type      EventType         `json:"type"`       // 事件类型
	RoadmapID string            `json:"roadmap_id"` // 关联路线图ID
	Timestamp time.Time         `json:"timestamp"`  // 事件时间
	Payload   interface{}       `json:"payload,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// NewEvent 创建事件
func NewEvent(eventType EventType, roadmapID string, payload interface{}) *Event {
	return &Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		RoadmapID: roadmapID,
		Timestamp: time.Now(),
		Payload:   payload,
		Metadata:  make(map[string]string),
	}
}

// WithMetadata 添加元数据
func (e *Event) WithMetadata(key, value string) *Event {
	if e.Metadata == nil {
		e.Metadata = make(map[string]string)
	}
	e.Metadata[key] = value
	return e
}

// IssuesPayload 携带校验问题的事件负载
type IssuesPayload struct {
	Title  string   `json:"title,omitempty"`
	Codes  []string `json:"codes"`
	Errors []string `json:"errors"`
}

// NewIssuesPayload 从校验报告生成事件负载
func NewIssuesPayload(title string, report *roadmap.Report) IssuesPayload {
	payload := IssuesPayload{Title: title, Codes: []string{}, Errors: []string{}}
	for _, issue := range report.Issues {
		payload.Codes = append(payload.Codes, string(issue.Code))
		payload.Errors = append(payload.Errors, issue.Message)
	}
	return payload
}
