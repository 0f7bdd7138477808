package dao

import (
	"database/sql"
	"time"
)

// RoadmapDAO roadmap表的数据访问对象（内部使用）
type RoadmapDAO struct {
	ID          string         `db:"id"`
	Title       string         `db:"title"`
	Description sql.NullString `db:"description"`
	Document    string         `db:"document"` // JSON格式存储完整路线图
	PhaseCount  int            `db:"phase_count"`
	TaskCount   int            `db:"task_count"`
	Hours       int            `db:"estimated_time"` // 各阶段预计耗时之和
	Valid       bool           `db:"valid"`
	CreateTime  time.Time      `db:"create_time"`
	UpdateTime  time.Time      `db:"update_time"`
}

// RoadmapPhaseDAO roadmap_phase表的数据访问对象（内部使用）
type RoadmapPhaseDAO struct {
	RoadmapID    string `db:"roadmap_id"`
	Seq          int    `db:"seq"`
	PhaseID      string `db:"phase_id"`
	Title        string `db:"title"`
	Dependencies string `db:"dependencies"` // JSON数组
}
