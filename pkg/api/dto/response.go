package dto

import (
	"github.com/LENAX/roadmap-engine/pkg/core/roadmap"
)

// APIResponse 通用API响应结构
type APIResponse[T any] struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    T      `json:"data,omitempty"`
}

// NewSuccessResponse 创建成功响应
func NewSuccessResponse[T any](data T) APIResponse[T] {
	return APIResponse[T]{
		Code:    0,
		Message: "success",
		Data:    data,
	}
}

// NewErrorResponse 创建错误响应
func NewErrorResponse(code int, message string) APIResponse[any] {
	return APIResponse[any]{
		Code:    code,
		Message: message,
	}
}

// HealthResponse 健康检查响应
type HealthResponse struct {
	Status    string `json:"status"`
	Version   string `json:"version"`
	Uptime    string `json:"uptime"`
	Timestamp string `json:"timestamp"`
}

// ListResponse 列表响应
type ListResponse[T any] struct {
	Total   int  `json:"total"`
	Items   []T  `json:"items"`
	HasMore bool `json:"has_more"`
}

// SubmitResponse 提交路线图响应
type SubmitResponse struct {
	ID     string          `json:"id"`
	Report *roadmap.Report `json:"report"`
}

// OrderResponse 阶段拓扑顺序响应
type OrderResponse struct {
	RoadmapID string     `json:"roadmap_id"`
	Levels    [][]string `json:"levels"`
	Order     []string   `json:"order"`
}

// GraphPhase 阶段的直接上下游
type GraphPhase struct {
	ID           string   `json:"id"`
	Dependencies []string `json:"dependencies"`
	Dependents   []string `json:"dependents"`
}

// GraphResponse 阶段依赖图响应
type GraphResponse struct {
	RoadmapID string       `json:"roadmap_id"`
	Roots     []string     `json:"roots"`
	Phases    []GraphPhase `json:"phases"`
}
