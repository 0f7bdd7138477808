package dto

// GeneratedRoadmapRequest 提交生成器输出的请求
type GeneratedRoadmapRequest struct {
	Content      string `json:"content" binding:"required"`
	ProjectTitle string `json:"project_title"`
}

// ListQueryRequest 通用列表查询请求
type ListQueryRequest struct {
	Limit  int `form:"limit" binding:"omitempty,min=1,max=100"`
	Offset int `form:"offset" binding:"omitempty,min=0"`
}

// GetDefaultLimit 获取默认limit
func (r *ListQueryRequest) GetDefaultLimit() int {
	if r.Limit <= 0 {
		return 20
	}
	return r.Limit
}
