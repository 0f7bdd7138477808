package config

import (
	"fmt"
	"time"
)

// ServiceConfig 服务配置（对外导出）
type ServiceConfig struct {
	RoadmapEngine struct {
		General struct {
			InstanceName string `yaml:"instance_name"`
			LogLevel     string `yaml:"log_level"`
			Env          string `yaml:"env"`
		} `yaml:"general"`
		Storage struct {
			Database struct {
				Type            string        `yaml:"type"`
				DSN             string        `yaml:"dsn"`
				MaxOpenConns    int           `yaml:"max_open_conns"`
				MaxIdleConns    int           `yaml:"max_idle_conns"`
				ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
				ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time"`
			} `yaml:"database"`
			Cache struct {
				Enabled       bool          `yaml:"enabled"`
				DefaultTTL    time.Duration `yaml:"default_ttl"`
				CleanInterval time.Duration `yaml:"clean_interval"`
			} `yaml:"cache"`
		} `yaml:"storage"`
		API struct {
			Host         string        `yaml:"host"`
			Port         int           `yaml:"port"`
			ReadTimeout  time.Duration `yaml:"read_timeout"`
			WriteTimeout time.Duration `yaml:"write_timeout"`
		} `yaml:"api"`
		Validation struct {
			StrictIDs bool `yaml:"strict_ids"`
		} `yaml:"validation"`
		Audit struct {
			Enabled bool   `yaml:"enabled"`
			Cron    string `yaml:"cron"`
		} `yaml:"audit"`
	} `yaml:"roadmap-engine"`
}

// GetDatabaseType 获取数据库类型
func (c *ServiceConfig) GetDatabaseType() string {
	return c.RoadmapEngine.Storage.Database.Type
}

// GetDatabaseDSN 获取数据库DSN
func (c *ServiceConfig) GetDatabaseDSN() string {
	return c.RoadmapEngine.Storage.Database.DSN
}

// GetAPIAddr 获取API监听地址
func (c *ServiceConfig) GetAPIAddr() string {
	return fmt.Sprintf("%s:%d", c.RoadmapEngine.API.Host, c.RoadmapEngine.API.Port)
}

// ApplyDefaults 应用默认值
func (c *ServiceConfig) ApplyDefaults() {
	// General默认值
	if c.RoadmapEngine.General.InstanceName == "" {
		c.RoadmapEngine.General.InstanceName = "roadmap-engine"
	}
	if c.RoadmapEngine.General.LogLevel == "" {
		c.RoadmapEngine.General.LogLevel = "info"
	}
	if c.RoadmapEngine.General.Env == "" {
		c.RoadmapEngine.General.Env = "dev"
	}

	// Database默认值
	if c.RoadmapEngine.Storage.Database.Type == "" {
		c.RoadmapEngine.Storage.Database.Type = "sqlite"
	}
	if c.RoadmapEngine.Storage.Database.DSN == "" && c.RoadmapEngine.Storage.Database.Type == "sqlite" {
		c.RoadmapEngine.Storage.Database.DSN = "./data/roadmap.db"
	}
	if c.RoadmapEngine.Storage.Database.MaxOpenConns <= 0 {
		c.RoadmapEngine.Storage.Database.MaxOpenConns = 10
	}
	if c.RoadmapEngine.Storage.Database.MaxIdleConns <= 0 {
		c.RoadmapEngine.Storage.Database.MaxIdleConns = 5
	}
	if c.RoadmapEngine.Storage.Database.ConnMaxLifetime <= 0 {
		c.RoadmapEngine.Storage.Database.ConnMaxLifetime = 2 * time.Hour
	}
	if c.RoadmapEngine.Storage.Database.ConnMaxIdleTime <= 0 {
		c.RoadmapEngine.Storage.Database.ConnMaxIdleTime = 1 * time.Hour
	}

	// Cache默认值
	if c.RoadmapEngine.Storage.Cache.DefaultTTL <= 0 {
		c.RoadmapEngine.Storage.Cache.DefaultTTL = 1 * time.Hour
	}
	if c.RoadmapEngine.Storage.Cache.CleanInterval <= 0 {
		c.RoadmapEngine.Storage.Cache.CleanInterval = 1 * time.Minute
	}

	// API默认值
	if c.RoadmapEngine.API.Host == "" {
		c.RoadmapEngine.API.Host = "0.0.0.0"
	}
	if c.RoadmapEngine.API.Port <= 0 {
		c.RoadmapEngine.API.Port = 8080
	}
	if c.RoadmapEngine.API.ReadTimeout <= 0 {
		c.RoadmapEngine.API.ReadTimeout = 30 * time.Second
	}
	if c.RoadmapEngine.API.WriteTimeout <= 0 {
		c.RoadmapEngine.API.WriteTimeout = 30 * time.Second
	}

	// Audit默认值：每10分钟
	if c.RoadmapEngine.Audit.Cron == "" {
		c.RoadmapEngine.Audit.Cron = "0 */10 * * * *"
	}
}
