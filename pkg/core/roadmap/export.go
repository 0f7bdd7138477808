package roadmap

import (
	"encoding/csv"
	"fmt"
	"io"
	"regexp"
	"strconv"

	"github.com/LENAX/roadmap-engine/pkg/core/dag"
)

var csvHeader = []string{"Phase", "Task", "Description", "Priority", "Estimated Time (h)", "Category"}

var unsafeFileChars = regexp.MustCompile(`[^a-zA-Z0-9]`)

// ExportCSV 导出路线图为CSV：每个阶段一行，随后是该阶段的任务行
func ExportCSV(w io.Writer, r *Roadmap) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, phase := range r.Phases {
		row := []string{
			phase.Title,
			"",
			phase.Description,
			string(phase.Priority),
			strconv.Itoa(phase.EstimatedTime),
			string(phase.Category),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
		for _, task := range phase.Tasks {
			row := []string{
				"",
				task.Title,
				task.Description,
				string(task.Priority),
				strconv.Itoa(task.EstimatedTime),
				"",
			}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

// ExportFileName 导出文件名，非字母数字字符替换为下划线
func ExportFileName(r *Roadmap) string {
	return unsafeFileChars.ReplaceAllString(r.Title, "_") + "_roadmap.csv"
}

// OrderedPhases 按依赖顺序返回阶段分层（对外导出）
// 同一层内的阶段互不依赖，层内顺序与文档中的顺序一致
func OrderedPhases(r *Roadmap) ([][]Phase, error) {
	order, err := dag.TopologicalSort(r.Phases)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCircularDependency, err)
	}
	levels := make([][]Phase, 0, len(order.Levels))
	for _, ids := range order.Levels {
		level := make([]Phase, 0, len(ids))
		for _, id := range ids {
			phase, _ := r.FindPhase(id)
			level = append(level, *phase)
		}
		levels = append(levels, level)
	}
	return levels, nil
}
