package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/LENAX/roadmap-engine/pkg/api/dto"
	"github.com/LENAX/roadmap-engine/pkg/core/dag"
	"github.com/LENAX/roadmap-engine/pkg/core/engine"
	"github.com/LENAX/roadmap-engine/pkg/core/roadmap"
	"github.com/LENAX/roadmap-engine/pkg/storage"
	"github.com/gin-gonic/gin"
)

// RoadmapHandler 路线图API处理器
type RoadmapHandler struct {
	engine *engine.Engine
}

// NewRoadmapHandler 创建RoadmapHandler
func NewRoadmapHandler(eng *engine.Engine) *RoadmapHandler {
	return &RoadmapHandler{engine: eng}
}

// Validate 只校验不保存
// POST /api/v1/roadmaps/validate
func (h *RoadmapHandler) Validate(c *gin.Context) {
	var r roadmap.Roadmap
	if err := c.ShouldBindJSON(&r); err != nil {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse(400, fmt.Sprintf("请求体格式错误: %v", err)))
		return
	}
	c.JSON(http.StatusOK, dto.NewSuccessResponse(h.engine.Check(&r)))
}

// Submit 校验并保存路线图
// POST /api/v1/roadmaps
func (h *RoadmapHandler) Submit(c *gin.Context) {
	var r roadmap.Roadmap
	if err := c.ShouldBindJSON(&r); err != nil {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse(400, fmt.Sprintf("请求体格式错误: %v", err)))
		return
	}
	h.submit(c, &r)
}

// SubmitGenerated 解析生成器输出后提交
// POST /api/v1/roadmaps/generated
func (h *RoadmapHandler) SubmitGenerated(c *gin.Context) {
	var req dto.GeneratedRoadmapRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse(400, fmt.Sprintf("请求参数错误: %v", err)))
		return
	}
	r, err := roadmap.ParseGenerated([]byte(req.Content), req.ProjectTitle)
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse(400, err.Error()))
		return
	}
	h.submit(c, r)
}

func (h *RoadmapHandler) submit(c *gin.Context, r *roadmap.Roadmap) {
	report, err := h.engine.Submit(c.Request.Context(), r)
	switch {
	case err == nil:
		c.JSON(http.StatusCreated, dto.NewSuccessResponse(dto.SubmitResponse{ID: r.ID, Report: report}))
	case errors.Is(err, engine.ErrRoadmapRejected):
		c.JSON(http.StatusUnprocessableEntity, dto.APIResponse[*roadmap.Report]{
			Code:    422,
			Message: engine.ErrRoadmapRejected.Error(),
			Data:    report,
		})
	default:
		c.JSON(http.StatusInternalServerError, dto.NewErrorResponse(500, fmt.Sprintf("保存路线图失败: %v", err)))
	}
}

// List 分页列出路线图摘要
// GET /api/v1/roadmaps
func (h *RoadmapHandler) List(c *gin.Context) {
	var req dto.ListQueryRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse(400, fmt.Sprintf("请求参数错误: %v", err)))
		return
	}

	items, total, err := h.engine.List(c.Request.Context(), req.GetDefaultLimit(), req.Offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, dto.NewErrorResponse(500, fmt.Sprintf("查询路线图失败: %v", err)))
		return
	}

	c.JSON(http.StatusOK, dto.NewSuccessResponse(dto.ListResponse[*storage.RoadmapSummary]{
		Total:   total,
		Items:   items,
		HasMore: req.Offset+len(items) < total,
	}))
}

// Get 获取路线图详情
// GET /api/v1/roadmaps/:id
func (h *RoadmapHandler) Get(c *gin.Context) {
	r, err := h.engine.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeLookupError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewSuccessResponse(r))
}

// Delete 删除路线图
// DELETE /api/v1/roadmaps/:id
func (h *RoadmapHandler) Delete(c *gin.Context) {
	id := c.Param("id")
	if err := h.engine.Delete(c.Request.Context(), id); err != nil {
		writeLookupError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewSuccessResponse(map[string]string{"id": id}))
}

// Order 获取阶段分层拓扑顺序
// GET /api/v1/roadmaps/:id/order
func (h *RoadmapHandler) Order(c *gin.Context) {
	id := c.Param("id")
	order, err := h.engine.Order(c.Request.Context(), id)
	if err != nil {
		writeLookupError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewSuccessResponse(dto.OrderResponse{
		RoadmapID: id,
		Levels:    order.Levels,
		Order:     order.Flatten(),
	}))
}

// Graph 获取阶段依赖图
// GET /api/v1/roadmaps/:id/graph
func (h *RoadmapHandler) Graph(c *gin.Context) {
	id := c.Param("id")
	g, err := h.engine.Graph(c.Request.Context(), id)
	if err != nil {
		writeLookupError(c, err)
		return
	}

	resp := dto.GraphResponse{RoadmapID: id, Roots: g.Roots(), Phases: make([]dto.GraphPhase, 0, g.Order())}
	for _, phaseID := range g.IDs() {
		deps, err := g.Dependencies(phaseID)
		if err != nil {
			writeLookupError(c, err)
			return
		}
		dependents, err := g.Dependents(phaseID)
		if err != nil {
			writeLookupError(c, err)
			return
		}
		resp.Phases = append(resp.Phases, dto.GraphPhase{ID: phaseID, Dependencies: deps, Dependents: dependents})
	}
	c.JSON(http.StatusOK, dto.NewSuccessResponse(resp))
}

// Validation 重新校验已存储的路线图
// GET /api/v1/roadmaps/:id/validation
func (h *RoadmapHandler) Validation(c *gin.Context) {
	report, err := h.engine.CheckStored(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeLookupError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewSuccessResponse(report))
}

// Export 导出CSV
// GET /api/v1/roadmaps/:id/export
func (h *RoadmapHandler) Export(c *gin.Context) {
	r, err := h.engine.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeLookupError(c, err)
		return
	}
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, roadmap.ExportFileName(r)))
	c.Status(http.StatusOK)
	if err := roadmap.ExportCSV(c.Writer, r); err != nil {
		_ = c.Error(err)
	}
}

// writeLookupError 路线图不存在返回404，阶段成环或依赖悬空返回409，其余返回500
func writeLookupError(c *gin.Context, err error) {
	if errors.Is(err, storage.ErrRoadmapNotFound) {
		c.JSON(http.StatusNotFound, dto.NewErrorResponse(404, err.Error()))
		return
	}
	if errors.Is(err, dag.ErrCircularDependency) || errors.Is(err, dag.ErrDanglingDependency) {
		c.JSON(http.StatusConflict, dto.NewErrorResponse(409, err.Error()))
		return
	}
	c.JSON(http.StatusInternalServerError, dto.NewErrorResponse(500, err.Error()))
}
