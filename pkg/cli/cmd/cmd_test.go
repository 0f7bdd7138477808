package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/LENAX/roadmap-engine/internal/storage"
	"github.com/LENAX/roadmap-engine/pkg/api"
	"github.com/LENAX/roadmap-engine/pkg/cli/output"
	"github.com/LENAX/roadmap-engine/pkg/config"
	"github.com/LENAX/roadmap-engine/pkg/core/engine"
	"github.com/LENAX/roadmap-engine/pkg/core/roadmap"
	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const fixtures = "../../core/roadmap/testdata/"

// run 重置全局参数后执行命令，返回标准输出
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	stdout, _, err := runCapture(t, args...)
	return stdout, err
}

// runCapture 分别返回标准输出和cobra写入的错误输出
func runCapture(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	serverURL = "http://localhost:8080"
	outputJSON = false
	fromGenerated, projectTitle, strictIDs, exportOutput = false, "", false, ""
	listLimit, listOffset, getFormat = 20, 0, "yaml"
	configPath = ""

	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	prevWriter, prevNoColor := output.Writer, color.NoColor
	output.Writer, color.NoColor = stdout, true
	defer func() { output.Writer, color.NoColor = prevWriter, prevNoColor }()

	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)
	err := rootCmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func startServer(t *testing.T) string {
	t.Helper()
	cfg := config.Default()
	cfg.RoadmapEngine.Storage.Database.DSN = "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	cfg.RoadmapEngine.Storage.Database.MaxOpenConns = 1

	eng, err := engine.NewEngineBuilder("").WithConfig(cfg).WithLogger(zap.NewNop()).Build()
	require.NoError(t, err)
	t.Cleanup(eng.Stop)

	server := httptest.NewServer(api.NewAPIServer(eng, zap.NewNop(), "test").Handler())
	t.Cleanup(server.Close)
	return server.URL
}

func TestValidateCommand(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr bool
		want    string
	}{
		{name: "合法YAML", args: []string{"validate", fixtures + "valid.yaml"}, want: "校验通过"},
		{name: "循环依赖", args: []string{"validate", fixtures + "cyclic.json"}, wantErr: true, want: "circular_dependency"},
		{name: "生成器输出", args: []string{"validate", "--generated", fixtures + "generated.json"}, want: "校验通过"},
		{name: "文件不存在", args: []string{"validate", fixtures + "missing.json"}, wantErr: true, want: "读取文件失败"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := run(t, tt.args...)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Contains(t, out, tt.want)
		})
	}
}

func TestValidateCommand_JSON(t *testing.T) {
	out, stderr, err := runCapture(t, "validate", "-j", fixtures+"cyclic.json")
	require.Error(t, err)
	assert.ErrorIs(t, err, roadmap.ErrCircularDependency)
	assert.ErrorIs(t, err, roadmap.ErrDanglingDependency)

	// 标准输出只有报告JSON，错误信息写入stderr
	var report roadmap.Report
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.False(t, report.Valid)
	assert.Contains(t, stderr, "Error:")
	assert.NotContains(t, out, "Error:")
}

func TestOrderCommand(t *testing.T) {
	out, err := run(t, "order", "--json", fixtures+"valid.yaml")
	require.NoError(t, err)
	assert.JSONEq(t, `{"levels": [["phase-1"], ["phase-2", "phase-3"], ["phase-4"]]}`, out)

	out, err = run(t, "order", fixtures+"valid.yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "LEVEL")
	assert.Contains(t, out, "phase-2,phase-3")

	_, err = run(t, "order", fixtures+"cyclic.json")
	assert.ErrorIs(t, err, roadmap.ErrCircularDependency)
}

func TestExportCommand(t *testing.T) {
	out, err := run(t, "export", "-o", "-", fixtures+"valid.yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "Phase,Task,Description")

	path := filepath.Join(t.TempDir(), "out.csv")
	_, err = run(t, "export", "--output", path, fixtures+"valid.yaml")
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Provision database")
}

func TestRoadmapCommands(t *testing.T) {
	url := startServer(t)

	out, err := run(t, "-s", url, "roadmap", "push", fixtures+"valid.yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "路线图已保存: roadmap-demo")

	out, err = run(t, "-s", url, "roadmap", "push", fixtures+"cyclic.json")
	require.Error(t, err)
	assert.Contains(t, out, "circular_dependency")

	out, err = run(t, "-s", url, "roadmap", "push", "--generated", "--title", "Policy", fixtures+"generated.json")
	require.NoError(t, err)
	assert.Contains(t, out, "路线图已保存: roadmap-")

	out, err = run(t, "-s", url, "roadmap", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "roadmap-demo")
	assert.Contains(t, out, "总计: 2 条记录")
	assert.Contains(t, out, "HOURS")
	assert.Contains(t, out, " 52 ")

	out, err = run(t, "-s", url, "roadmap", "get", "roadmap-demo")
	require.NoError(t, err)
	assert.Contains(t, out, "title: Insurance Comparison MVP")

	out, err = run(t, "-s", url, "roadmap", "order", "-j", "roadmap-demo")
	require.NoError(t, err)
	assert.Contains(t, out, `"phase-4"`)

	out, err = run(t, "-s", url, "roadmap", "graph", "roadmap-demo")
	require.NoError(t, err)
	assert.Contains(t, out, "DEPENDENTS")
	assert.Contains(t, out, "phase-2,phase-3")
	assert.Contains(t, out, "起始阶段: phase-1")

	out, err = run(t, "-s", url, "roadmap", "graph", "-j", "roadmap-demo")
	require.NoError(t, err)
	var graph struct {
		Roots  []string `json:"roots"`
		Phases []struct {
			ID         string   `json:"id"`
			Dependents []string `json:"dependents"`
		} `json:"phases"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &graph))
	assert.Equal(t, []string{"phase-1"}, graph.Roots)
	require.Len(t, graph.Phases, 4)
	assert.Equal(t, []string{"phase-2", "phase-3"}, graph.Phases[0].Dependents)
	assert.Empty(t, graph.Phases[3].Dependents)

	out, err = run(t, "-s", url, "roadmap", "check", "roadmap-demo")
	require.NoError(t, err)
	assert.Contains(t, out, "校验通过")

	csvPath := filepath.Join(t.TempDir(), "demo.csv")
	_, err = run(t, "-s", url, "roadmap", "export", "-o", csvPath, "roadmap-demo")
	require.NoError(t, err)
	assert.FileExists(t, csvPath)

	out, err = run(t, "-s", url, "roadmap", "delete", "roadmap-demo")
	require.NoError(t, err)
	assert.Contains(t, out, "路线图已删除")

	out, err = run(t, "-s", url, "roadmap", "get", "roadmap-demo")
	require.Error(t, err)
	assert.Contains(t, out, "查询失败")
}

func TestAuditCommand(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "roadmap-engine.yaml")
	dbPath := filepath.Join(dir, "roadmap.db")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`
roadmap-engine:
  storage:
    database:
      type: sqlite
      dsn: "`+dbPath+`"
`), 0o644))

	out, err := run(t, "audit", "-c", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "已检查 0 个路线图")

	cfg, err := config.Load(cfgPath)
	require.NoError(t, err)
	repo, err := storage.NewRepository(cfg)
	require.NoError(t, err)
	data, err := os.ReadFile(fixtures + "cyclic.json")
	require.NoError(t, err)
	cyclic, err := roadmap.Decode(data, roadmap.FormatJSON)
	require.NoError(t, err)
	require.NoError(t, repo.Save(context.Background(), cyclic, false))
	require.NoError(t, repo.Close())

	out, err = run(t, "audit", "-c", cfgPath)
	assert.ErrorIs(t, err, errAuditFailed)
	assert.Contains(t, out, "不合法: roadmap-cyclic")
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "Roadmap Engine CLI")
	assert.Contains(t, out, Version)

	out, err = run(t, "version", "-j")
	require.NoError(t, err)
	assert.Contains(t, out, `"version": "`+Version+`"`)
}

func TestLoadConfig_默认配置(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.GetDatabaseType())
}
