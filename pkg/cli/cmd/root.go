// Package cmd 路线图引擎命令行
package cmd

import (
	"os"

	"github.com/LENAX/roadmap-engine/pkg/cli/client"
	"github.com/spf13/cobra"
)

var (
	// 全局变量
	serverURL  string
	outputJSON bool
)

// rootCmd 根命令
var rootCmd = &cobra.Command{
	Use:   "roadmap-engine",
	Short: "Roadmap Engine CLI - 路线图依赖校验命令行工具",
	Long: `Roadmap Engine CLI 用于校验项目路线图的阶段依赖图。

支持的功能：
  - 本地校验路线图文件（引用完整性、循环依赖、结构）
  - 计算阶段分层执行顺序、导出CSV
  - 管理服务端保存的路线图（提交、列出、查看、删除）
  - 订阅服务端事件、执行巡检
  - 启动HTTP API服务

使用示例：
  # 校验本地文件
  roadmap-engine validate ./roadmap.yaml

  # 提交到服务端
  roadmap-engine roadmap push ./roadmap.yaml

  # 查看阶段执行顺序
  roadmap-engine roadmap order <roadmap-id>

  # 启动HTTP服务
  roadmap-engine server start --port 8080`,
	SilenceUsage: true,
}

// Execute 执行根命令
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newClient() *client.Client {
	return client.New(serverURL)
}

func init() {
	// 全局参数
	rootCmd.PersistentFlags().StringVarP(&serverURL, "server", "s", "http://localhost:8080", "Roadmap Engine服务器地址")
	rootCmd.PersistentFlags().BoolVarP(&outputJSON, "json", "j", false, "使用JSON格式输出")

	// 添加子命令
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(orderCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(roadmapCmd)
	rootCmd.AddCommand(eventsCmd)
	rootCmd.AddCommand(auditCmd)
	rootCmd.AddCommand(serverCmd)
	rootCmd.AddCommand(versionCmd)
}
