package server_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kode4food/weave"
	"github.com/kode4food/weave/internal/assert/helpers"
	"github.com/kode4food/weave/internal/cache"
	"github.com/kode4food/weave/internal/server"
	"github.com/kode4food/weave/pkg/api"
)

const helloMessages = `_fun = function(env)
  return {{role = "user", content = "hi"}}
end`

func init() {
	gin.SetMode(gin.TestMode)
}

func newServer(disp api.Dispatcher) *server.Server {
	return server.NewServer(
		helpers.NewTestRuntime(disp), cache.NewMemoryStore(8),
	)
}

func chatRequest(cfg map[string]any) api.RunRequest {
	env := helpers.NewTestEnv(map[api.Name]any{"CHAT": cfg})
	return api.RunRequest{
		Spec: *helpers.NewBlockSpec(api.BlockTypeChat, "CHAT",
			"temperature", "0.7",
			"messages_code", helloMessages,
		),
		Config:  env.Config,
		Project: api.Project{ID: 3},
	}
}

func post(
	t *testing.T, s *server.Server, path string, body any,
) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.SetupRoutes().ServeHTTP(w, req)
	return w
}

func TestHealthEndpoint(t *testing.T) {
	s := newServer(helpers.NewMockDispatcher())
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	s.SetupRoutes().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var res api.HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, weave.Name, res.Service)
	assert.Equal(t, weave.Version, res.Version)
	assert.Equal(t, "healthy", res.Status)
}

func TestHashEndpoint(t *testing.T) {
	s := newServer(helpers.NewMockDispatcher())
	spec := helpers.NewBlockSpec(api.BlockTypeCode, "CODE", "code", "x")

	w := post(t, s, "/hash", spec)
	assert.Equal(t, http.StatusOK, w.Code)

	var res api.HashResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, api.BlockTypeCode, res.Type)
	assert.Equal(t, api.Name("CODE"), res.Name)
	assert.Equal(t, helpers.ParseBlock(t, spec).InnerHash(), res.Hash)
}

func TestHashInvalidSpec(t *testing.T) {
	s := newServer(helpers.NewMockDispatcher())
	w := post(t, s, "/hash",
		helpers.NewBlockSpec(api.BlockTypeCode, "CODE", "nope", "x"),
	)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRunEndpoint(t *testing.T) {
	disp := helpers.NewMockDispatcher()
	s := newServer(disp)

	w := post(t, s, "/run", chatRequest(map[string]any{
		"provider_id": "openai",
		"model_id":    "m",
	}))
	require.Equal(t, http.StatusOK, w.Code)

	var res struct {
		RunID  string `json:"run_id"`
		Result struct {
			Value struct {
				Message api.ChatMessage `json:"message"`
			} `json:"value"`
		} `json:"result"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, "mock completion", *res.Result.Value.Message.Content)

	calls := disp.CachedCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, api.Project{ID: 3}, calls[0].Project)
	assert.NotNil(t, calls[0].Store)
}

func TestRunErrorStatus(t *testing.T) {
	tests := []struct {
		name   string
		req    api.RunRequest
		status int
	}{
		{
			name: "construction",
			req: api.RunRequest{
				Spec: *helpers.NewBlockSpec(api.BlockTypeChat, "CHAT"),
			},
			status: http.StatusBadRequest,
		},
		{
			name:   "configuration",
			req:    chatRequest(map[string]any{"provider_id": "openai"}),
			status: http.StatusBadRequest,
		},
		{
			name: "guest",
			req: api.RunRequest{
				Spec: *helpers.NewBlockSpec(api.BlockTypeCode, "CODE",
					"code", `_fun = function(env) error("boom") end`,
				),
			},
			status: http.StatusUnprocessableEntity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newServer(helpers.NewMockDispatcher())
			w := post(t, s, "/run", tt.req)
			assert.Equal(t, tt.status, w.Code)

			var res api.ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
			assert.Equal(t, tt.status, res.Status)
			assert.NotEmpty(t, res.Error)
		})
	}
}

func TestRunDispatchError(t *testing.T) {
	disp := helpers.NewMockDispatcher()
	disp.SetError(assert.AnError)
	s := newServer(disp)

	w := post(t, s, "/run", chatRequest(map[string]any{
		"provider_id": "openai",
		"model_id":    "m",
	}))
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestRunInvalidJSON(t *testing.T) {
	s := newServer(helpers.NewMockDispatcher())
	req := httptest.NewRequest(
		http.MethodPost, "/run", strings.NewReader("{"),
	)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.SetupRoutes().ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func dialRun(
	t *testing.T, s *server.Server, req any,
) []map[string]any {
	t.Helper()
	ts := httptest.NewServer(s.SetupRoutes())
	t.Cleanup(ts.Close)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/run/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()

	require.NoError(t, conn.WriteJSON(req))

	var events []map[string]any
	for {
		var ev map[string]any
		if err := conn.ReadJSON(&ev); err != nil {
			break
		}
		events = append(events, ev)
	}
	return events
}

func TestWebSocketStreams(t *testing.T) {
	disp := helpers.NewMockDispatcher()
	disp.SetEvents(
		api.Event{
			Type:    api.EventTypeTokens,
			Content: map[string]any{"text": "mock"},
		},
		api.Event{
			Type:    api.EventTypeTokens,
			Content: map[string]any{"text": " completion"},
		},
	)
	s := newServer(disp)

	events := dialRun(t, s, chatRequest(map[string]any{
		"provider_id": "openai",
		"model_id":    "m",
		"use_stream":  true,
	}))
	require.Len(t, events, 3)

	assert.Equal(t, "tokens", events[0]["type"])
	content := events[0]["content"].(map[string]any)
	assert.Equal(t, "CHAT", content["block_name"])
	assert.Equal(t, map[string]any{"text": "mock"}, content["tokens"])

	assert.Equal(t, "tokens", events[1]["type"])
	assert.Equal(t, "final", events[2]["type"])
	assert.Len(t, disp.StreamedRequests(), 1)
}

func TestWebSocketError(t *testing.T) {
	s := newServer(helpers.NewMockDispatcher())
	events := dialRun(t, s, chatRequest(map[string]any{
		"provider_id": "openai",
	}))
	require.Len(t, events, 1)
	assert.Equal(t, "error", events[0]["type"])

	content := events[0]["content"].(map[string]any)
	assert.Equal(t, float64(http.StatusBadRequest), content["status"])
}

func TestWebSocketInvalidRequest(t *testing.T) {
	s := newServer(helpers.NewMockDispatcher())
	events := dialRun(t, s, "not a request")
	require.Len(t, events, 1)
	assert.Equal(t, "error", events[0]["type"])
}

func TestWebSocketContractViolation(t *testing.T) {
	disp := helpers.NewMockDispatcher()
	disp.SetGeneration(helpers.NewGeneration())
	s := newServer(disp)

	events := dialRun(t, s, chatRequest(map[string]any{
		"provider_id": "openai",
		"model_id":    "m",
	}))
	require.Len(t, events, 1)
	assert.Equal(t, "error", events[0]["type"])
	content := events[0]["content"].(map[string]any)
	assert.Contains(t, content["error"], "block run panicked")
}
