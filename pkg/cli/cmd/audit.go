package cmd

import (
	"errors"

	"github.com/LENAX/roadmap-engine/pkg/cli/output"
	"github.com/LENAX/roadmap-engine/pkg/core/engine"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var errAuditFailed = errors.New("存在不合法的路线图")

// auditCmd 直接连接存储执行一次巡检
var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "重新校验存储中的全部路线图",
	Long: `按配置文件直接连接数据库，对已保存的每个路线图重新执行完整校验。

存在不合法的路线图时以非零状态退出，可用于定时任务。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := LoadConfig(configPath)
		if err != nil {
			output.Error("加载配置失败: %v", err)
			return err
		}
		eng, err := engine.NewEngineBuilder(configPath).WithConfig(cfg).WithLogger(zap.NewNop()).Build()
		if err != nil {
			output.Error("创建Engine失败: %v", err)
			return err
		}
		defer eng.Stop()

		result, err := eng.Audit(cmd.Context())
		if err != nil {
			output.Error("巡检失败: %v", err)
			return err
		}

		if outputJSON {
			if err := output.PrintJSON(result); err != nil {
				return err
			}
		} else {
			output.Info("已检查 %d 个路线图，耗时 %s", result.Checked, result.FinishedAt.Sub(result.StartedAt))
			for _, id := range result.Invalid {
				output.Warning("不合法: %s", id)
			}
		}
		if len(result.Invalid) > 0 {
			return errAuditFailed
		}
		output.Success("全部路线图校验通过")
		return nil
	},
}

func init() {
	auditCmd.Flags().StringVarP(&configPath, "config", "c", "", "配置文件路径")
}
