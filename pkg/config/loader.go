package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"
)

// EnvDSN 覆盖数据库DSN的环境变量
const EnvDSN = "ROADMAP_ENGINE_DSN"

// Load 加载配置文件（对外导出）
// 文件不存在时返回默认配置；加载后依次应用环境变量覆盖、默认值和校验
func Load(path string) (*ServiceConfig, error) {
	cfg := &ServiceConfig{}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("解析配置文件失败: %w", err)
		}
	case errors.Is(err, fs.ErrNotExist):
		// 使用默认配置
	default:
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	if dsn := os.Getenv(EnvDSN); dsn != "" {
		cfg.RoadmapEngine.Storage.Database.DSN = dsn
	}

	cfg.ApplyDefaults()
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("配置校验失败: %w", err)
	}
	return cfg, nil
}

// Default 返回应用了默认值的配置
func Default() *ServiceConfig {
	cfg := &ServiceConfig{}
	cfg.ApplyDefaults()
	return cfg
}
