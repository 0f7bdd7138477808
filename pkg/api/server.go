// Package api 提供路线图服务的HTTP接口
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/LENAX/roadmap-engine/pkg/core/engine"
	"go.uber.org/zap"
)

// APIServer HTTP API服务器
type APIServer struct {
	engine     *engine.Engine
	httpServer *http.Server
	logger     *zap.Logger
	version    string
}

// NewAPIServer 创建API服务器，监听地址和超时取自引擎配置
func NewAPIServer(eng *engine.Engine, logger *zap.Logger, version string) *APIServer {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg := eng.Config()
	return &APIServer{
		engine:  eng,
		logger:  logger,
		version: version,
		httpServer: &http.Server{
			Addr:         cfg.GetAPIAddr(),
			Handler:      SetupRouter(eng, logger, version),
			ReadTimeout:  cfg.RoadmapEngine.API.ReadTimeout,
			WriteTimeout: cfg.RoadmapEngine.API.WriteTimeout,
		},
	}
}

// Handler 返回路由，供测试使用
func (s *APIServer) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start 启动服务器，阻塞直到服务器关闭
func (s *APIServer) Start() error {
	s.logger.Info("Roadmap Engine API Server starting", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server listen failed: %w", err)
	}
	return nil
}

// Shutdown 优雅关闭服务器
func (s *APIServer) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down API Server...")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	s.logger.Info("API Server stopped")
	return nil
}

// Addr 获取服务器地址
func (s *APIServer) Addr() string {
	return s.httpServer.Addr
}
