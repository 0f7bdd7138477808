package roadmap

import (
	"fmt"
	"regexp"
)

var (
	phaseIDPattern = regexp.MustCompile(`^phase-\d+$`)
	taskIDPattern  = regexp.MustCompile(`^task-\d+-\d+$`)
)

// ValidateStructure 校验路线图的结构完整性（对外导出）
// 必填字段、枚举取值、子任务的parentId；StrictIDs开启时额外校验ID格式
func ValidateStructure(r *Roadmap, opts CheckOptions) []Issue {
	issues := make([]Issue, 0)
	fail := func(phaseID, taskID, format string, args ...interface{}) {
		issues = append(issues, Issue{
			Code:    IssueInvalidStructure,
			Message: fmt.Sprintf(format, args...),
			PhaseID: phaseID,
			TaskID:  taskID,
		})
	}

	if r.Title == "" {
		fail("", "", "路线图title不能为空")
	}

	for i, phase := range r.Phases {
		if phase.ID == "" {
			fail("", "", "phases[%d].id不能为空", i)
		} else if opts.StrictIDs && !phaseIDPattern.MatchString(phase.ID) {
			fail(phase.ID, "", "phases[%d].id %s 不符合 phase-<n> 格式", i, phase.ID)
		}
		if phase.Title == "" {
			fail(phase.ID, "", "phases[%d].title不能为空", i)
		}
		if phase.Priority != "" && !phase.Priority.Valid() {
			fail(phase.ID, "", "phases[%d].priority必须是high/medium/low之一", i)
		}
		if phase.Category != "" && !phase.Category.Valid() {
			fail(phase.ID, "", "phases[%d].category %s 不合法", i, phase.Category)
		}
		if phase.Status != "" && !phase.Status.Valid() {
			fail(phase.ID, "", "phases[%d].status %s 不合法", i, phase.Status)
		}
		if phase.EstimatedTime < 0 {
			fail(phase.ID, "", "phases[%d].estimatedTime不能为负数", i)
		}

		for j, task := range phase.Tasks {
			if task.ID == "" {
				fail(phase.ID, "", "phases[%d].tasks[%d].id不能为空", i, j)
			} else if opts.StrictIDs && !taskIDPattern.MatchString(task.ID) {
				fail(phase.ID, task.ID, "phases[%d].tasks[%d].id %s 不符合 task-<n>-<m> 格式", i, j, task.ID)
			}
			if task.Title == "" {
				fail(phase.ID, task.ID, "phases[%d].tasks[%d].title不能为空", i, j)
			}
			if task.Status != "" && !task.Status.Valid() {
				fail(phase.ID, task.ID, "phases[%d].tasks[%d].status %s 不合法", i, j, task.Status)
			}
			if task.Priority != "" && !task.Priority.Valid() {
				fail(phase.ID, task.ID, "phases[%d].tasks[%d].priority必须是high/medium/low之一", i, j)
			}

			for k, subtask := range task.Subtasks {
				if subtask.ID == "" || subtask.Title == "" {
					fail(phase.ID, task.ID, "phases[%d].tasks[%d].subtasks[%d]的id和title不能为空", i, j, k)
				}
				if subtask.ParentID != task.ID {
					fail(phase.ID, task.ID, "phases[%d].tasks[%d].subtasks[%d].parentId %s 与所属任务 %s 不一致",
						i, j, k, subtask.ParentID, task.ID)
				}
			}
		}
	}
	return issues
}
