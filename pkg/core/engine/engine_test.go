package engine

import (
	"context"
	"os"
	"testing"
	"time"

	internalstorage "github.com/LENAX/roadmap-engine/internal/storage"
	"github.com/LENAX/roadmap-engine/pkg/config"
	"github.com/LENAX/roadmap-engine/pkg/core/events"
	"github.com/LENAX/roadmap-engine/pkg/core/roadmap"
	"github.com/LENAX/roadmap-engine/pkg/storage"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testConfig() *config.ServiceConfig {
	cfg := config.Default()
	cfg.RoadmapEngine.Storage.Database.DSN = "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	cfg.RoadmapEngine.Storage.Database.MaxOpenConns = 1
	cfg.RoadmapEngine.Storage.Cache.Enabled = true
	return cfg
}

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	eng, err := NewEngineBuilder("").WithConfig(testConfig()).WithLogger(zap.NewNop()).Build()
	require.NoError(t, err)
	t.Cleanup(eng.Stop)
	return eng
}

func loadFixture(t *testing.T, name string) *roadmap.Roadmap {
	t.Helper()
	path := "../roadmap/testdata/" + name
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	r, err := roadmap.Decode(data, roadmap.FormatFromPath(path))
	require.NoError(t, err)
	return r
}

func subscribe(t *testing.T, eng *Engine, types ...events.EventType) <-chan *events.Event {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	ch, err := eng.Bus().Subscribe(ctx, types...)
	require.NoError(t, err)
	return ch
}

func nextEvent(t *testing.T, ch <-chan *events.Event) *events.Event {
	t.Helper()
	select {
	case e := <-ch:
		require.NotNil(t, e)
		return e
	case <-time.After(2 * time.Second):
		t.Fatal("等待事件超时")
		return nil
	}
}

func TestEngine_SubmitValid(t *testing.T) {
	eng := newTestEngine(t)
	ctx := context.Background()
	accepted := subscribe(t, eng, events.EventRoadmapAccepted)

	r := loadFixture(t, "valid.yaml")
	r.ID = ""
	report, err := eng.Submit(ctx, r)
	require.NoError(t, err)
	assert.True(t, report.Valid)
	assert.Contains(t, r.ID, "roadmap-")
	assert.False(t, r.CreatedAt.IsZero())

	event := nextEvent(t, accepted)
	assert.Equal(t, r.ID, event.RoadmapID)

	stored, err := eng.Get(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, r.Title, stored.Title)
	assert.Len(t, stored.Phases, 4)

	summaries, total, err := eng.List(ctx, 0, -1)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, summaries, 1)
	assert.True(t, summaries[0].Valid)
}

func TestEngine_SubmitRejected(t *testing.T) {
	eng := newTestEngine(t)
	ctx := context.Background()
	rejected := subscribe(t, eng, events.EventRoadmapRejected)

	report, err := eng.Submit(ctx, loadFixture(t, "cyclic.json"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRoadmapRejected)
	assert.ErrorIs(t, err, roadmap.ErrCircularDependency)
	assert.ErrorIs(t, err, roadmap.ErrDanglingDependency)
	assert.False(t, report.Valid)

	event := nextEvent(t, rejected)
	assert.Equal(t, "roadmap-cyclic", event.RoadmapID)

	_, err = eng.Get(ctx, "roadmap-cyclic")
	assert.ErrorIs(t, err, storage.ErrRoadmapNotFound)

	report, err = eng.Submit(ctx, nil)
	assert.ErrorIs(t, err, ErrRoadmapRejected)
	assert.False(t, report.Valid)
}

func TestEngine_ResubmitKeepsCreatedAt(t *testing.T) {
	eng := newTestEngine(t)
	ctx := context.Background()

	r := loadFixture(t, "valid.yaml")
	_, err := eng.Submit(ctx, r)
	require.NoError(t, err)
	created := r.CreatedAt

	again := loadFixture(t, "valid.yaml")
	again.Title = "第二版"
	again.CreatedAt = time.Time{}
	_, err = eng.Submit(ctx, again)
	require.NoError(t, err)
	assert.True(t, created.Equal(again.CreatedAt))
	assert.False(t, again.UpdatedAt.Before(r.UpdatedAt))

	_, total, err := eng.List(ctx, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
}

func TestEngine_Order(t *testing.T) {
	eng := newTestEngine(t)
	ctx := context.Background()

	r := loadFixture(t, "valid.yaml")
	_, err := eng.Submit(ctx, r)
	require.NoError(t, err)

	order, err := eng.Order(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"phase-1"}, {"phase-2", "phase-3"}, {"phase-4"}}, order.Levels)

	_, err = eng.Order(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrRoadmapNotFound)
}

func TestEngine_Graph(t *testing.T) {
	eng := newTestEngine(t)
	ctx := context.Background()

	r := loadFixture(t, "valid.yaml")
	_, err := eng.Submit(ctx, r)
	require.NoError(t, err)

	g, err := eng.Graph(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, g.Order())
	assert.Equal(t, []string{"phase-1", "phase-2", "phase-3", "phase-4"}, g.IDs())
	assert.Equal(t, []string{"phase-1"}, g.Roots())

	dependents, err := g.Dependents("phase-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"phase-2", "phase-3"}, dependents)

	deps, err := g.Dependencies("phase-4")
	require.NoError(t, err)
	assert.Equal(t, []string{"phase-2", "phase-3"}, deps)

	_, err = eng.Graph(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrRoadmapNotFound)
}

func TestEngine_CheckStoredCached(t *testing.T) {
	eng := newTestEngine(t)
	ctx := context.Background()

	r := loadFixture(t, "valid.yaml")
	submitted, err := eng.Submit(ctx, r)
	require.NoError(t, err)

	first, err := eng.CheckStored(ctx, r.ID)
	require.NoError(t, err)
	assert.Same(t, submitted, first)

	second, err := eng.CheckStored(ctx, r.ID)
	require.NoError(t, err)
	assert.Same(t, first, second)

	_, err = eng.CheckStored(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrRoadmapNotFound)
}

func TestEngine_Delete(t *testing.T) {
	eng := newTestEngine(t)
	ctx := context.Background()
	deleted := subscribe(t, eng, events.EventRoadmapDeleted)

	r := loadFixture(t, "valid.yaml")
	_, err := eng.Submit(ctx, r)
	require.NoError(t, err)

	require.NoError(t, eng.Delete(ctx, r.ID))
	assert.Equal(t, r.ID, nextEvent(t, deleted).RoadmapID)
	assert.ErrorIs(t, eng.Delete(ctx, r.ID), storage.ErrRoadmapNotFound)
}

func TestEngine_Audit(t *testing.T) {
	eng := newTestEngine(t)
	ctx := context.Background()

	_, err := eng.Submit(ctx, loadFixture(t, "valid.yaml"))
	require.NoError(t, err)

	result, err := eng.Audit(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Checked)
	assert.Empty(t, result.Invalid)
}

func TestEngine_StartStop(t *testing.T) {
	cfg := testConfig()
	cfg.RoadmapEngine.Audit.Enabled = true
	cfg.RoadmapEngine.Audit.Cron = "@every 1h"
	eng, err := NewEngineBuilder("").WithConfig(cfg).WithLogger(zap.NewNop()).Build()
	require.NoError(t, err)

	require.NoError(t, eng.Start(context.Background()))
	require.NoError(t, eng.Start(context.Background()))
	eng.Stop()
	eng.Stop()
	assert.Error(t, eng.Start(context.Background()))
}

func TestNewEngine_AppliesDefaults(t *testing.T) {
	cfg := testConfig()
	repo, err := internalstorage.NewRepository(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	// 零值的清理间隔会让缓存的ticker panic
	cfg.RoadmapEngine.Storage.Cache.DefaultTTL = 0
	cfg.RoadmapEngine.Storage.Cache.CleanInterval = 0
	cfg.RoadmapEngine.Audit.Cron = ""

	eng, err := NewEngine(cfg, repo, nil)
	require.NoError(t, err)
	t.Cleanup(eng.Stop)
	assert.Equal(t, time.Minute, cfg.RoadmapEngine.Storage.Cache.CleanInterval)
	assert.Equal(t, time.Hour, cfg.RoadmapEngine.Storage.Cache.DefaultTTL)
	assert.NotEmpty(t, cfg.RoadmapEngine.Audit.Cron)

	ctx := context.Background()
	r := loadFixture(t, "valid.yaml")
	_, err = eng.Submit(ctx, r)
	require.NoError(t, err)
	report, err := eng.CheckStored(ctx, r.ID)
	require.NoError(t, err)
	assert.True(t, report.Valid)
}

func TestEngineBuilder_InvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.RoadmapEngine.Storage.Database.Type = "oracle"
	_, err := NewEngineBuilder("").WithConfig(cfg).Build()
	assert.Error(t, err)

	_, err = NewEngine(config.Default(), nil, nil)
	assert.Error(t, err)
}
