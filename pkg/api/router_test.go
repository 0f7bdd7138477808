package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/LENAX/roadmap-engine/pkg/config"
	"github.com/LENAX/roadmap-engine/pkg/core/engine"
	"github.com/LENAX/roadmap-engine/pkg/core/events"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestServer(t *testing.T) (*APIServer, *engine.Engine) {
	t.Helper()
	cfg := config.Default()
	cfg.RoadmapEngine.Storage.Database.DSN = "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	cfg.RoadmapEngine.Storage.Database.MaxOpenConns = 1
	cfg.RoadmapEngine.Storage.Cache.Enabled = true

	eng, err := engine.NewEngineBuilder("").WithConfig(cfg).WithLogger(zap.NewNop()).Build()
	require.NoError(t, err)
	t.Cleanup(eng.Stop)
	return NewAPIServer(eng, zap.NewNop(), "test"), eng
}

func fixtureJSON(t *testing.T, name string) []byte {
	t.Helper()
	data, err := os.ReadFile("../core/roadmap/testdata/" + name)
	require.NoError(t, err)
	return data
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func do(t *testing.T, s *APIServer, method, path string, body []byte) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	var env envelope
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w, env
}

const validRoadmap = `{
  "id": "rm-api",
  "title": "API Plan",
  "phases": [
    {"id": "phase-1", "title": "Setup", "dependencies": [], "tasks": []},
    {"id": "phase-2", "title": "Build", "dependencies": ["phase-1"], "tasks": []},
    {"id": "phase-3", "title": "Docs", "dependencies": ["phase-1"], "tasks": []}
  ]
}`

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t)

	w, env := do(t, s, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, env.Code)
	assert.Contains(t, string(env.Data), `"version":"test"`)

	w, _ = do(t, s, http.MethodGet, "/ready", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestValidate(t *testing.T) {
	s, _ := newTestServer(t)

	tests := []struct {
		name      string
		body      []byte
		wantCode  int
		wantValid bool
	}{
		{name: "合法路线图", body: []byte(validRoadmap), wantCode: http.StatusOK, wantValid: true},
		{name: "循环依赖", body: fixtureJSON(t, "cyclic.json"), wantCode: http.StatusOK, wantValid: false},
		{name: "JSON格式错误", body: []byte(`{"phases": [`), wantCode: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, env := do(t, s, http.MethodPost, "/api/v1/roadmaps/validate", tt.body)
			require.Equal(t, tt.wantCode, w.Code)
			if tt.wantCode != http.StatusOK {
				return
			}
			var report struct {
				Valid bool `json:"valid"`
			}
			require.NoError(t, json.Unmarshal(env.Data, &report))
			assert.Equal(t, tt.wantValid, report.Valid)
		})
	}

	// 只校验不保存
	_, env := do(t, s, http.MethodGet, "/api/v1/roadmaps", nil)
	assert.Contains(t, string(env.Data), `"total":0`)
}

func TestSubmitAndQuery(t *testing.T) {
	s, _ := newTestServer(t)

	w, env := do(t, s, http.MethodPost, "/api/v1/roadmaps", []byte(validRoadmap))
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, string(env.Data), `"id":"rm-api"`)

	w, env = do(t, s, http.MethodGet, "/api/v1/roadmaps/rm-api", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), `"title":"API Plan"`)

	w, env = do(t, s, http.MethodGet, "/api/v1/roadmaps?limit=10", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Total   int  `json:"total"`
		HasMore bool `json:"has_more"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &list))
	assert.Equal(t, 1, list.Total)
	assert.False(t, list.HasMore)

	w, env = do(t, s, http.MethodGet, "/api/v1/roadmaps/rm-api/order", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var order struct {
		Levels [][]string `json:"levels"`
		Order  []string   `json:"order"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &order))
	assert.Equal(t, [][]string{{"phase-1"}, {"phase-2", "phase-3"}}, order.Levels)
	assert.Equal(t, []string{"phase-1", "phase-2", "phase-3"}, order.Order)

	w, env = do(t, s, http.MethodGet, "/api/v1/roadmaps/rm-api/graph", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var graph struct {
		Roots  []string `json:"roots"`
		Phases []struct {
			ID           string   `json:"id"`
			Dependencies []string `json:"dependencies"`
			Dependents   []string `json:"dependents"`
		} `json:"phases"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &graph))
	assert.Equal(t, []string{"phase-1"}, graph.Roots)
	require.Len(t, graph.Phases, 3)
	assert.Equal(t, "phase-1", graph.Phases[0].ID)
	assert.Equal(t, []string{"phase-2", "phase-3"}, graph.Phases[0].Dependents)
	assert.Equal(t, []string{"phase-1"}, graph.Phases[2].Dependencies)
	assert.Empty(t, graph.Phases[2].Dependents)

	w, env = do(t, s, http.MethodGet, "/api/v1/roadmaps/rm-api/validation", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), `"valid":true`)

	w, _ = do(t, s, http.MethodGet, "/api/v1/roadmaps/rm-api/export", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `attachment; filename="API_Plan_roadmap.csv"`, w.Header().Get("Content-Disposition"))
	assert.True(t, strings.HasPrefix(w.Body.String(), "Phase,Task,Description"))

	w, _ = do(t, s, http.MethodDelete, "/api/v1/roadmaps/rm-api", nil)
	require.Equal(t, http.StatusOK, w.Code)

	for _, path := range []string{
		"/api/v1/roadmaps/rm-api",
		"/api/v1/roadmaps/rm-api/order",
		"/api/v1/roadmaps/rm-api/graph",
		"/api/v1/roadmaps/rm-api/validation",
		"/api/v1/roadmaps/rm-api/export",
	} {
		w, env = do(t, s, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusNotFound, w.Code, path)
		assert.Equal(t, 404, env.Code, path)
	}
	w, _ = do(t, s, http.MethodDelete, "/api/v1/roadmaps/rm-api", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSubmitRejected(t *testing.T) {
	s, _ := newTestServer(t)

	w, env := do(t, s, http.MethodPost, "/api/v1/roadmaps", fixtureJSON(t, "cyclic.json"))
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, 422, env.Code)
	assert.Contains(t, string(env.Data), `"circular_dependency"`)
	assert.Contains(t, string(env.Data), `"dangling_dependency"`)

	w, _ = do(t, s, http.MethodPost, "/api/v1/roadmaps", []byte(`not json`))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = do(t, s, http.MethodGet, "/api/v1/roadmaps?limit=1000", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSubmitGenerated(t *testing.T) {
	s, _ := newTestServer(t)

	body, err := json.Marshal(map[string]string{
		"content":       string(fixtureJSON(t, "generated.json")),
		"project_title": "Policy Analyzer",
	})
	require.NoError(t, err)

	w, env := do(t, s, http.MethodPost, "/api/v1/roadmaps/generated", body)
	require.Equal(t, http.StatusCreated, w.Code)
	var resp struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	assert.True(t, strings.HasPrefix(resp.ID, "roadmap-"))

	w, _ = do(t, s, http.MethodPost, "/api/v1/roadmaps/generated", []byte(`{"content": "{oops"}`))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = do(t, s, http.MethodPost, "/api/v1/roadmaps/generated", []byte(`{}`))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCORSPreflight(t *testing.T) {
	s, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/roadmaps", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestEventsStream(t *testing.T) {
	s, eng := newTestServer(t)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/events?types=roadmap.deleted"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	// 等待订阅建立后再发布
	require.Eventually(t, func() bool {
		if err := eng.Bus().Publish(events.NewEvent(events.EventRoadmapDeleted, "rm-ws", nil)); err != nil {
			return false
		}
		conn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
		var event events.Event
		if err := conn.ReadJSON(&event); err != nil {
			return false
		}
		return event.RoadmapID == "rm-ws" && event.Type == events.EventRoadmapDeleted
	}, 3*time.Second, 50*time.Millisecond)
}

func TestEventsStream_InvalidTypes(t *testing.T) {
	s, _ := newTestServer(t)

	tests := []struct {
		name  string
		query string
	}{
		{name: "未知类型", query: "types=bogus"},
		{name: "已知与未知混合", query: "types=roadmap.deleted,bogus"},
		{name: "只有分隔符", query: "types=,"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, env := do(t, s, http.MethodGet, "/api/v1/events?"+tt.query, nil)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, 400, env.Code)
		})
	}
}
