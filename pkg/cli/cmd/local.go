package cmd

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/LENAX/roadmap-engine/pkg/cli/output"
	"github.com/LENAX/roadmap-engine/pkg/core/roadmap"
	"github.com/spf13/cobra"
)

var (
	fromGenerated bool
	projectTitle  string
	strictIDs     bool
	exportOutput  string
)

// validateCmd 本地校验路线图文件
var validateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "校验本地路线图文件",
	Long: `校验路线图的结构、阶段依赖的引用完整性和无环性，不连接服务端。

支持JSON和YAML（按扩展名识别），--generated 表示文件为生成器输出。
存在问题时以非零状态退出。`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := readRoadmap(args[0])
		if err != nil {
			output.Error("%v", err)
			return err
		}
		report := roadmap.CheckWithOptions(r, roadmap.CheckOptions{StrictIDs: strictIDs})
		if outputJSON {
			if err := output.PrintJSON(report); err != nil {
				return err
			}
		} else {
			printReport(report)
		}
		if !report.Valid {
			return report.Err()
		}
		return nil
	},
}

// orderCmd 本地计算阶段执行顺序
var orderCmd = &cobra.Command{
	Use:   "order <file>",
	Short: "按依赖分层输出阶段执行顺序",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := readRoadmap(args[0])
		if err != nil {
			output.Error("%v", err)
			return err
		}
		levels, err := roadmap.OrderedPhases(r)
		if err != nil {
			output.Error("%v", err)
			return err
		}

		if outputJSON {
			ids := make([][]string, 0, len(levels))
			for _, level := range levels {
				row := make([]string, 0, len(level))
				for _, phase := range level {
					row = append(row, phase.ID)
				}
				ids = append(ids, row)
			}
			return output.PrintJSON(map[string]interface{}{"levels": ids})
		}

		table := output.NewTable([]string{"LEVEL", "PHASE", "TITLE", "DEPENDS_ON"})
		for i, level := range levels {
			for _, phase := range level {
				table.AddRow([]string{strconv.Itoa(i + 1), phase.ID, phase.Title, joinOrDash(phase.Dependencies)})
			}
		}
		table.Render()
		return nil
	},
}

// exportCmd 本地导出CSV
var exportCmd = &cobra.Command{
	Use:   "export <file>",
	Short: "将路线图导出为CSV",
	Long: `导出CSV：每个阶段一行，随后是该阶段的任务行。

--output 未指定时写入 <标题>_roadmap.csv，指定为 - 时写到标准输出。`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := readRoadmap(args[0])
		if err != nil {
			output.Error("%v", err)
			return err
		}
		if exportOutput == "-" {
			return roadmap.ExportCSV(output.Writer, r)
		}

		path := exportOutput
		if path == "" {
			path = roadmap.ExportFileName(r)
		}
		f, err := os.Create(path)
		if err != nil {
			output.Error("创建文件失败: %v", err)
			return err
		}
		defer f.Close()
		if err := roadmap.ExportCSV(f, r); err != nil {
			output.Error("导出失败: %v", err)
			return err
		}
		output.Success("已导出: %s", path)
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{validateCmd, orderCmd, exportCmd} {
		c.Flags().BoolVar(&fromGenerated, "generated", false, "文件为生成器输出的JSON")
		c.Flags().StringVar(&projectTitle, "title", "", "生成器输出缺少title时使用的项目名称")
	}
	validateCmd.Flags().BoolVar(&strictIDs, "strict", false, "要求阶段ID为phase-<n>、任务ID为task-<n>-<m>")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "输出文件路径，- 表示标准输出")
}

// readRoadmap 读取路线图文件
func readRoadmap(path string) (*roadmap.Roadmap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取文件失败: %w", err)
	}
	if fromGenerated {
		return roadmap.ParseGenerated(data, projectTitle)
	}
	return roadmap.Decode(data, roadmap.FormatFromPath(path))
}

// printReport 以表格输出校验报告
func printReport(report *roadmap.Report) {
	if report.Valid {
		output.Success("校验通过")
		return
	}
	table := output.NewTable([]string{"CODE", "PHASE", "TASK", "MESSAGE"})
	for _, issue := range report.Issues {
		table.AddRow([]string{string(issue.Code), orDash(issue.PhaseID), orDash(issue.TaskID), issue.Message})
	}
	table.Render()
	output.Error("发现 %d 个问题", len(report.Issues))
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func joinOrDash(ids []string) string {
	return orDash(strings.Join(ids, ","))
}
