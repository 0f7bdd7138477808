package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/LENAX/roadmap-engine/pkg/api/dto"
	"github.com/LENAX/roadmap-engine/pkg/cli/client"
	"github.com/LENAX/roadmap-engine/pkg/cli/output"
	"github.com/LENAX/roadmap-engine/pkg/core/roadmap"
	"github.com/spf13/cobra"
)

var (
	listLimit  int
	listOffset int
	getFormat  string
)

// roadmapCmd roadmap子命令
var roadmapCmd = &cobra.Command{
	Use:   "roadmap",
	Short: "服务端路线图管理命令",
	Long:  `管理服务端保存的路线图，包括提交、列出、查看、删除和重新校验。`,
}

// roadmapPushCmd 提交路线图
var roadmapPushCmd = &cobra.Command{
	Use:   "push <file>",
	Short: "校验并提交路线图",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := newClient()
		ctx := cmd.Context()

		var (
			result *dto.SubmitResponse
			err    error
		)
		if fromGenerated {
			data, readErr := os.ReadFile(args[0])
			if readErr != nil {
				output.Error("读取文件失败: %v", readErr)
				return readErr
			}
			result, err = c.SubmitGenerated(ctx, string(data), projectTitle)
		} else {
			r, readErr := readRoadmap(args[0])
			if readErr != nil {
				output.Error("%v", readErr)
				return readErr
			}
			result, err = c.Submit(ctx, r)
		}

		var rejected *client.RejectedError
		if errors.As(err, &rejected) {
			if outputJSON {
				_ = output.PrintJSON(rejected.Report)
			} else {
				printReport(rejected.Report)
			}
			return err
		}
		if err != nil {
			output.Error("提交失败: %v", err)
			return err
		}

		if outputJSON {
			return output.PrintJSON(result)
		}
		output.Success("路线图已保存: %s", result.ID)
		return nil
	},
}

// roadmapListCmd 列出路线图
var roadmapListCmd = &cobra.Command{
	Use:   "list",
	Short: "列出所有路线图",
	RunE: func(cmd *cobra.Command, args []string) error {
		result, err := newClient().List(cmd.Context(), listLimit, listOffset)
		if err != nil {
			output.Error("查询失败: %v", err)
			return err
		}

		if outputJSON {
			return output.PrintJSON(result)
		}

		if len(result.Items) == 0 {
			output.Info("暂无路线图")
			return nil
		}

		table := output.NewTable([]string{"ROADMAP_ID", "TITLE", "PHASES", "TASKS", "HOURS", "VALID", "UPDATED"})
		for _, item := range result.Items {
			table.AddRow([]string{
				item.ID,
				item.Title,
				strconv.Itoa(item.PhaseCount),
				strconv.Itoa(item.TaskCount),
				strconv.Itoa(item.Hours),
				formatValid(item.Valid),
				item.UpdateTime.Local().Format("2006-01-02 15:04:05"),
			})
		}
		table.Render()
		fmt.Fprintf(output.Writer, "\n总计: %d 条记录\n", result.Total)
		return nil
	},
}

// roadmapGetCmd 查看路线图
var roadmapGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "查看路线图文档",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := newClient().Get(cmd.Context(), args[0])
		if err != nil {
			output.Error("查询失败: %v", err)
			return err
		}
		format := roadmap.Format(getFormat)
		if outputJSON {
			format = roadmap.FormatJSON
		}
		data, err := roadmap.Encode(r, format)
		if err != nil {
			output.Error("%v", err)
			return err
		}
		fmt.Fprintln(output.Writer, strings.TrimRight(string(data), "\n"))
		return nil
	},
}

// roadmapDeleteCmd 删除路线图
var roadmapDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "删除路线图",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := newClient().Delete(cmd.Context(), args[0]); err != nil {
			output.Error("删除失败: %v", err)
			return err
		}
		output.Success("路线图已删除: %s", args[0])
		return nil
	},
}

// roadmapOrderCmd 查看阶段执行顺序
var roadmapOrderCmd = &cobra.Command{
	Use:   "order <id>",
	Short: "查看阶段分层执行顺序",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		order, err := newClient().Order(cmd.Context(), args[0])
		if err != nil {
			output.Error("查询失败: %v", err)
			return err
		}
		if outputJSON {
			return output.PrintJSON(order)
		}
		table := output.NewTable([]string{"LEVEL", "PHASES"})
		for i, level := range order.Levels {
			table.AddRow([]string{strconv.Itoa(i + 1), strings.Join(level, ", ")})
		}
		table.Render()
		return nil
	},
}

// roadmapGraphCmd 查看阶段依赖图
var roadmapGraphCmd = &cobra.Command{
	Use:   "graph <id>",
	Short: "查看每个阶段的直接依赖和被依赖关系",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		graph, err := newClient().Graph(cmd.Context(), args[0])
		if err != nil {
			output.Error("查询失败: %v", err)
			return err
		}
		if outputJSON {
			return output.PrintJSON(graph)
		}
		table := output.NewTable([]string{"PHASE", "DEPENDS_ON", "DEPENDENTS"})
		for _, phase := range graph.Phases {
			table.AddRow([]string{phase.ID, joinOrDash(phase.Dependencies), joinOrDash(phase.Dependents)})
		}
		table.Render()
		fmt.Fprintf(output.Writer, "\n起始阶段: %s\n", joinOrDash(graph.Roots))
		return nil
	},
}

// roadmapCheckCmd 重新校验已保存的路线图
var roadmapCheckCmd = &cobra.Command{
	Use:   "check <id>",
	Short: "重新校验已保存的路线图",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		report, err := newClient().Validation(cmd.Context(), args[0])
		if err != nil {
			output.Error("校验失败: %v", err)
			return err
		}
		if outputJSON {
			return output.PrintJSON(report)
		}
		printReport(report)
		if !report.Valid {
			return report.Err()
		}
		return nil
	},
}

// roadmapExportCmd 从服务端导出CSV
var roadmapExportCmd = &cobra.Command{
	Use:   "export <id>",
	Short: "从服务端导出CSV",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := newClient()
		if exportOutput == "-" {
			_, err := c.Export(cmd.Context(), args[0], output.Writer)
			return err
		}

		// 先写入目标目录下的临时文件，成功后再改名
		dir := "."
		if exportOutput != "" {
			dir = filepath.Dir(exportOutput)
		}
		tmp, err := os.CreateTemp(dir, ".roadmap-export-*")
		if err != nil {
			output.Error("创建文件失败: %v", err)
			return err
		}
		defer os.Remove(tmp.Name())

		name, err := c.Export(cmd.Context(), args[0], tmp)
		closeErr := tmp.Close()
		if err == nil {
			err = closeErr
		}
		if err != nil {
			output.Error("导出失败: %v", err)
			return err
		}

		path := exportOutput
		if path == "" {
			path = name
		}
		if path == "" {
			path = args[0] + "_roadmap.csv"
		}
		if err := os.Rename(tmp.Name(), path); err != nil {
			output.Error("保存文件失败: %v", err)
			return err
		}
		output.Success("已导出: %s", path)
		return nil
	},
}

func init() {
	roadmapListCmd.Flags().IntVar(&listLimit, "limit", 20, "返回记录数量限制")
	roadmapListCmd.Flags().IntVar(&listOffset, "offset", 0, "跳过的记录数")

	roadmapPushCmd.Flags().BoolVar(&fromGenerated, "generated", false, "文件为生成器输出的JSON")
	roadmapPushCmd.Flags().StringVar(&projectTitle, "title", "", "生成器输出缺少title时使用的项目名称")

	roadmapGetCmd.Flags().StringVarP(&getFormat, "format", "f", "yaml", "输出格式 (yaml/json)")
	roadmapExportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "输出文件路径，- 表示标准输出")

	// 添加子命令
	roadmapCmd.AddCommand(roadmapPushCmd)
	roadmapCmd.AddCommand(roadmapListCmd)
	roadmapCmd.AddCommand(roadmapGetCmd)
	roadmapCmd.AddCommand(roadmapDeleteCmd)
	roadmapCmd.AddCommand(roadmapOrderCmd)
	roadmapCmd.AddCommand(roadmapGraphCmd)
	roadmapCmd.AddCommand(roadmapCheckCmd)
	roadmapCmd.AddCommand(roadmapExportCmd)
}

// formatValid 格式化校验状态
func formatValid(valid bool) string {
	if valid {
		return "✅ valid"
	}
	return "❌ invalid"
}
