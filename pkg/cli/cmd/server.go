package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/LENAX/roadmap-engine/pkg/api"
	"github.com/LENAX/roadmap-engine/pkg/cli/output"
	"github.com/LENAX/roadmap-engine/pkg/config"
	"github.com/LENAX/roadmap-engine/pkg/core/engine"
	"github.com/LENAX/roadmap-engine/pkg/logging"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	serverPort int
	configPath string
	serverHost string
)

// defaultConfigPaths 未指定--config时依次查找
var defaultConfigPaths = []string{
	"./configs/roadmap-engine.yaml",
	"./config/roadmap-engine.yaml",
	"./roadmap-engine.yaml",
}

// ServerOptions 服务启动参数，Host/Port为零值时使用配置文件中的值
type ServerOptions struct {
	ConfigPath string
	Host       string
	Port       int
	Version    string
}

// serverCmd server子命令
var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "服务管理命令",
	Long:  `管理Roadmap Engine HTTP API服务。`,
}

// serverStartCmd 启动服务
var serverStartCmd = &cobra.Command{
	Use:   "start",
	Short: "启动HTTP API服务",
	Long: `启动Roadmap Engine HTTP API服务，收到SIGINT/SIGTERM后优雅关闭。

示例：
  # 使用默认配置启动
  roadmap-engine server start

  # 指定端口启动
  roadmap-engine server start --port 8080

  # 指定配置文件启动
  roadmap-engine server start --config ./configs/roadmap-engine.yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := ServerOptions{ConfigPath: configPath, Version: Version}
		if cmd.Flags().Changed("host") {
			opts.Host = serverHost
		}
		if cmd.Flags().Changed("port") {
			opts.Port = serverPort
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := RunServer(ctx, opts); err != nil {
			output.Error("%v", err)
			return err
		}
		output.Success("服务已停止")
		return nil
	},
}

func init() {
	serverStartCmd.Flags().IntVarP(&serverPort, "port", "p", 8080, "监听端口")
	serverStartCmd.Flags().StringVarP(&serverHost, "host", "H", "0.0.0.0", "监听地址")
	serverStartCmd.Flags().StringVarP(&configPath, "config", "c", "", "配置文件路径")

	serverCmd.AddCommand(serverStartCmd)
}

// LoadConfig 加载配置，path为空时查找默认路径，都不存在时使用默认配置
func LoadConfig(path string) (*config.ServiceConfig, error) {
	if path == "" {
		for _, p := range defaultConfigPaths {
			if _, err := os.Stat(p); err == nil {
				path = p
				break
			}
		}
	}
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

// RunServer 构建引擎并运行API服务，阻塞直到ctx取消
func RunServer(ctx context.Context, opts ServerOptions) error {
	cfg, err := LoadConfig(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("加载配置失败: %w", err)
	}
	if opts.Host != "" {
		cfg.RoadmapEngine.API.Host = opts.Host
	}
	if opts.Port != 0 {
		cfg.RoadmapEngine.API.Port = opts.Port
	}

	logger, err := logging.New(cfg.RoadmapEngine.General.LogLevel, cfg.RoadmapEngine.General.Env)
	if err != nil {
		return err
	}
	defer logger.Sync()

	// 1. 构建并启动Engine
	eng, err := engine.NewEngineBuilder(opts.ConfigPath).WithConfig(cfg).WithLogger(logger).Build()
	if err != nil {
		return fmt.Errorf("创建Engine失败: %w", err)
	}
	defer eng.Stop()

	if err := eng.Start(ctx); err != nil {
		return fmt.Errorf("启动Engine失败: %w", err)
	}

	// 2. 在goroutine中启动API服务器
	apiServer := api.NewAPIServer(eng, logger, opts.Version)
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- apiServer.Start()
	}()
	logger.Info("Roadmap Engine Server started",
		zap.String("addr", apiServer.Addr()),
		zap.String("version", opts.Version),
	)

	// 3. 等待退出信号或服务器异常退出
	select {
	case err := <-serveErr:
		if err != nil {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	// 4. 优雅关闭
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.RoadmapEngine.API.WriteTimeout)
	defer cancel()
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("关闭API服务器失败", zap.Error(err))
	}
	return nil
}
