package config

import (
	"fmt"

	"github.com/robfig/cron/v3"
)

// Validate 校验服务配置合法性
func Validate(cfg *ServiceConfig) error {
	if cfg == nil {
		return fmt.Errorf("配置不能为空")
	}
	c := &cfg.RoadmapEngine

	// 校验General
	if c.General.InstanceName == "" {
		return fmt.Errorf("instance_name不能为空")
	}
	if c.General.LogLevel != "" {
		validLevels := map[string]bool{
			"debug": true,
			"info":  true,
			"warn":  true,
			"error": true,
		}
		if !validLevels[c.General.LogLevel] {
			return fmt.Errorf("log_level必须是debug/info/warn/error之一")
		}
	}

	// 校验Storage.Database
	validDBTypes := map[string]bool{
		"sqlite":     true,
		"postgres":   true,
		"postgresql": true,
		"mysql":      true,
	}
	if !validDBTypes[c.Storage.Database.Type] {
		return fmt.Errorf("database.type必须是sqlite/postgres/mysql之一")
	}
	if c.Storage.Database.DSN == "" {
		return fmt.Errorf("database.dsn不能为空")
	}
	if c.Storage.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns必须大于0")
	}
	if c.Storage.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns不能为负数")
	}

	// 校验API
	if c.API.Port <= 0 || c.API.Port > 65535 {
		return fmt.Errorf("api.port必须在1-65535之间")
	}

	// 校验Audit
	if c.Audit.Enabled {
		parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
		if _, err := parser.Parse(c.Audit.Cron); err != nil {
			return fmt.Errorf("audit.cron表达式无效: %w", err)
		}
	}

	return nil
}
