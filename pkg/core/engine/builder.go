package engine

import (
	"fmt"

	internalstorage "github.com/LENAX/roadmap-engine/internal/storage"
	"github.com/LENAX/roadmap-engine/pkg/config"
	"github.com/LENAX/roadmap-engine/pkg/logging"
	"github.com/LENAX/roadmap-engine/pkg/storage"
	"go.uber.org/zap"
)

// EngineBuilder 引擎构建器（链式调用）
type EngineBuilder struct {
	configPath string
	cfg        *config.ServiceConfig
	repo       storage.RoadmapRepository
	logger     *zap.Logger
}

// NewEngineBuilder 创建引擎构建器（入口）
// configPath为空或文件不存在时使用默认配置
func NewEngineBuilder(configPath string) *EngineBuilder {
	return &EngineBuilder{configPath: configPath}
}

// WithConfig 直接指定配置，跳过配置文件（链式）
func (b *EngineBuilder) WithConfig(cfg *config.ServiceConfig) *EngineBuilder {
	b.cfg = cfg
	return b
}

// WithRepository 指定存储实现，引擎不负责关闭（链式）
func (b *EngineBuilder) WithRepository(repo storage.RoadmapRepository) *EngineBuilder {
	b.repo = repo
	return b
}

// WithLogger 指定日志器（链式）
func (b *EngineBuilder) WithLogger(logger *zap.Logger) *EngineBuilder {
	b.logger = logger
	return b
}

// Build 构建引擎
func (b *EngineBuilder) Build() (*Engine, error) {
	// 1. 加载配置
	cfg := b.cfg
	if cfg == nil {
		loaded, err := config.Load(b.configPath)
		if err != nil {
			return nil, fmt.Errorf("加载配置失败: %w", err)
		}
		cfg = loaded
	} else {
		cfg.ApplyDefaults()
		if err := config.Validate(cfg); err != nil {
			return nil, fmt.Errorf("配置校验失败: %w", err)
		}
	}

	// 2. 初始化日志
	logger := b.logger
	if logger == nil {
		built, err := logging.New(cfg.RoadmapEngine.General.LogLevel, cfg.RoadmapEngine.General.Env)
		if err != nil {
			return nil, err
		}
		logger = built
	}

	// 3. 初始化存储层
	repo := b.repo
	ownsRepo := false
	if repo == nil {
		created, err := internalstorage.NewRepository(cfg)
		if err != nil {
			return nil, fmt.Errorf("初始化存储失败: %w", err)
		}
		repo = created
		ownsRepo = true
	}

	// 4. 创建Engine实例
	eng, err := NewEngine(cfg, repo, logger)
	if err != nil {
		if ownsRepo {
			repo.Close()
		}
		return nil, err
	}
	eng.ownsRepo = ownsRepo

	logger.Info("路线图引擎构建完成",
		zap.String("database", cfg.GetDatabaseType()),
		zap.Bool("cache", cfg.RoadmapEngine.Storage.Cache.Enabled),
		zap.Bool("audit", cfg.RoadmapEngine.Audit.Enabled),
	)
	return eng, nil
}
