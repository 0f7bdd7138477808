package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/LENAX/roadmap-engine/pkg/api/dto"
	"github.com/LENAX/roadmap-engine/pkg/core/engine"
	"github.com/LENAX/roadmap-engine/pkg/core/events"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// EventsHandler 事件推送处理器
type EventsHandler struct {
	engine   *engine.Engine
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

// NewEventsHandler 创建EventsHandler
func NewEventsHandler(eng *engine.Engine, logger *zap.Logger) *EventsHandler {
	return &EventsHandler{
		engine: eng,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Stream 通过websocket推送事件
// GET /api/v1/events?types=roadmap.accepted,roadmap.deleted
func (h *EventsHandler) Stream(c *gin.Context) {
	types, err := parseEventTypes(c.Query("types"))
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse(400, err.Error()))
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket升级失败", zap.Error(err))
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	stream, err := h.engine.Bus().Subscribe(ctx, types...)
	if err != nil {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, err.Error()),
			time.Now().Add(writeWait))
		return
	}

	// 读协程只处理控制帧，连接断开时取消订阅
	go func() {
		defer cancel()
		conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-stream:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, ""),
					time.Now().Add(writeWait))
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(event); err != nil {
				h.logger.Debug("推送事件失败", zap.Error(err))
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

// parseEventTypes 解析逗号分隔的事件类型，空串表示全部类型，出现未知类型时返回错误
func parseEventTypes(raw string) ([]events.EventType, error) {
	if raw == "" {
		return nil, nil
	}
	known := make(map[events.EventType]bool, len(events.AllEventTypes))
	for _, t := range events.AllEventTypes {
		known[t] = true
	}
	out := make([]events.EventType, 0)
	for _, part := range strings.Split(raw, ",") {
		t := events.EventType(strings.TrimSpace(part))
		if t == "" {
			continue
		}
		if !known[t] {
			return nil, fmt.Errorf("未知的事件类型: %s", t)
		}
		out = append(out, t)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("事件类型不能为空")
	}
	return out, nil
}
