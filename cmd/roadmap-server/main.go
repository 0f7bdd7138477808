package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"github.com/LENAX/roadmap-engine/pkg/cli/cmd"
)

var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

func main() {
	// 命令行参数，host/port未指定时使用配置文件中的值
	configPath := flag.String("config", "", "引擎配置文件路径")
	host := flag.String("host", "", "监听地址")
	port := flag.Int("port", 0, "监听端口")
	flag.Parse()

	log.Printf("Roadmap Engine Server v%s (%s, %s)", Version, GitCommit, BuildTime)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cmd.RunServer(ctx, cmd.ServerOptions{
		ConfigPath: *configPath,
		Host:       *host,
		Port:       *port,
		Version:    Version,
	}); err != nil {
		log.Fatalf("服务异常退出: %v", err)
	}
	log.Println("✅ 服务已停止")
}
