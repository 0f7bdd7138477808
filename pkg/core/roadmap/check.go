package roadmap

import (
	"errors"
	"fmt"
	"strings"

	"github.com/LENAX/roadmap-engine/pkg/core/dag"
)

var (
	// ErrInvalidStructure 路线图结构不合法
	ErrInvalidStructure = errors.New("路线图结构不合法")
	// ErrDuplicatePhaseID 阶段ID重复
	ErrDuplicatePhaseID = errors.New("阶段ID重复")
	// ErrDanglingDependency 依赖指向不存在的节点
	ErrDanglingDependency = errors.New("存在悬空依赖")
	// ErrCircularDependency 存在循环依赖
	ErrCircularDependency = errors.New("存在循环依赖")
)

// IssueCode 问题类型
type IssueCode string

const (
	IssueInvalidStructure   IssueCode = "invalid_structure"
	IssueDuplicateID        IssueCode = "duplicate_id"
	IssueDanglingDependency IssueCode = "dangling_dependency"
	IssueCircularDependency IssueCode = "circular_dependency"
)

// Issue 单条校验问题
type Issue struct {
	Code    IssueCode `json:"code"`
	Message string    `json:"message"`
	PhaseID string    `json:"phase_id,omitempty"`
	TaskID  string    `json:"task_id,omitempty"`
	Refs    []string  `json:"refs,omitempty"` // 相关ID：悬空依赖ID或环路径
}

// Report 校验报告
type Report struct {
	Valid  bool    `json:"valid"`
	Issues []Issue `json:"issues"`
}

// CheckOptions 校验选项
type CheckOptions struct {
	StrictIDs bool // 要求阶段ID为 phase-<n>、任务ID为 task-<n>-<m>
}

// Check 使用默认选项校验路线图
func Check(r *Roadmap) *Report {
	return CheckWithOptions(r, CheckOptions{})
}

// CheckWithOptions 校验路线图（对外导出）
// 依次检查结构、重复阶段ID、阶段依赖的引用完整性和无环性，以及每个任务内子任务的依赖
func CheckWithOptions(r *Roadmap, opts CheckOptions) *Report {
	report := &Report{Issues: make([]Issue, 0)}
	if r == nil {
		report.add(Issue{Code: IssueInvalidStructure, Message: "路线图不能为空"})
		return report
	}

	report.Issues = append(report.Issues, ValidateStructure(r, opts)...)

	for _, id := range dag.DuplicateIDs(r.Phases) {
		report.add(Issue{
			Code:    IssueDuplicateID,
			Message: fmt.Sprintf("阶段ID %s 重复出现", id),
			PhaseID: id,
		})
	}

	if !dag.ValidateDependencies(r.Phases) {
		for _, ref := range dag.DanglingReferences(r.Phases) {
			report.add(Issue{
				Code:    IssueDanglingDependency,
				Message: fmt.Sprintf("阶段 %s 依赖的阶段 %s 不存在", ref.NodeID, ref.Dependency),
				PhaseID: ref.NodeID,
				Refs:    []string{ref.Dependency},
			})
		}
	}

	if dag.HasCircularDependencies(r.Phases) {
		cycle := dag.FindCycle(r.Phases)
		report.add(Issue{
			Code:    IssueCircularDependency,
			Message: fmt.Sprintf("阶段之间存在循环依赖: %s", strings.Join(cycle, " -> ")),
			PhaseID: cycle[0],
			Refs:    cycle,
		})
	}

	for _, phase := range r.Phases {
		for _, task := range phase.Tasks {
			checkSubtasks(report, phase.ID, task)
		}
	}

	report.Valid = len(report.Issues) == 0
	return report
}

// checkSubtasks 校验同一任务下子任务之间的依赖
func checkSubtasks(report *Report, phaseID string, task Task) {
	if len(task.Subtasks) == 0 {
		return
	}
	for _, ref := range dag.DanglingReferences(task.Subtasks) {
		report.add(Issue{
			Code:    IssueDanglingDependency,
			Message: fmt.Sprintf("子任务 %s 依赖的子任务 %s 不存在于任务 %s 中", ref.NodeID, ref.Dependency, task.ID),
			PhaseID: phaseID,
			TaskID:  task.ID,
			Refs:    []string{ref.Dependency},
		})
	}
	if cycle := dag.FindCycle(task.Subtasks); cycle != nil {
		report.add(Issue{
			Code:    IssueCircularDependency,
			Message: fmt.Sprintf("任务 %s 的子任务之间存在循环依赖: %s", task.ID, strings.Join(cycle, " -> ")),
			PhaseID: phaseID,
			TaskID:  task.ID,
			Refs:    cycle,
		})
	}
}

func (r *Report) add(issue Issue) {
	r.Issues = append(r.Issues, issue)
}

// IssuesOf 返回指定类型的问题
func (r *Report) IssuesOf(code IssueCode) []Issue {
	result := make([]Issue, 0)
	for _, issue := range r.Issues {
		if issue.Code == code {
			result = append(result, issue)
		}
	}
	return result
}

// Err 将报告转换为错误，报告合法时返回nil
// 每条问题都包装对应的哨兵错误，可用errors.Is判断
func (r *Report) Err() error {
	if r == nil || len(r.Issues) == 0 {
		return nil
	}
	errs := make([]error, 0, len(r.Issues))
	for _, issue := range r.Issues {
		errs = append(errs, fmt.Errorf("%w: %s", issue.Code.sentinel(), issue.Message))
	}
	return errors.Join(errs...)
}

func (c IssueCode) sentinel() error {
	switch c {
	case IssueDuplicateID:
		return ErrDuplicatePhaseID
	case IssueDanglingDependency:
		return ErrDanglingDependency
	case IssueCircularDependency:
		return ErrCircularDependency
	default:
		return ErrInvalidStructure
	}
}
