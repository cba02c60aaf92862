package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skylightai/skylight/agent"
	"github.com/skylightai/skylight/core"
	"github.com/skylightai/skylight/model"
	"github.com/skylightai/skylight/session"
	"github.com/skylightai/skylight/stream"
	"github.com/skylightai/skylight/tool"
)

type staticTool struct {
	name   string
	result any
	err    error
}

func (s *staticTool) Name() string { return s.name }

func (s *staticTool) Description() string { return "static " + s.name }

func (s *staticTool) Parameters() map[string]any { return map[string]any{"type": "object"} }
func (s *staticTool) Call(context.Context, map[string]any) (any, error) {
	return s.result, s.err
}

func newTestServer(t *testing.T, m model.Model, tools ...tool.Tool) (*Server, *session.InMemoryStore) {
	t.Helper()
	registry := tool.NewRegistry(nil)
	for _, tl := range tools {
		require.NoError(t, registry.Register(tl))
	}
	store := session.NewInMemoryStore()
	orch := agent.New("skylight", m, registry)
	return New(":0", orch, store), store
}

func postChat(t *testing.T, srv *Server, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(body))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeEvents(t *testing.T, body io.Reader) []core.Event {
	t.Helper()
	dec := stream.NewDecoder(body)
	var events []core.Event
	for {
		ev, err := dec.Next()
		if err == io.EOF {
			return events
		}
		require.NoError(t, err)
		events = append(events, ev)
	}
}

func TestChatStreamsEvents(t *testing.T) {
	m := model.NewScriptedModel(
		model.Step{Calls: []core.FunctionCall{{ID: "call-1", Name: "weather", Arguments: `{"location":"Paris"}`}}},
		model.Step{Text: "Weather in Paris: Clear sky, 21°C (feels 20°C)."},
	)
	srv, _ := newTestServer(t, m, &staticTool{name: "weather", result: map[string]any{"conditions": "Clear sky"}})

	rec := postChat(t, srv, `{"session_id":"s1","message":"weather in Paris?"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))

	events := decodeEvents(t, rec.Body)
	require.NotEmpty(t, events)
	assert.Equal(t, core.KindToolCall, events[0].Kind())
	assert.Equal(t, core.KindToolResult, events[1].Kind())
	assert.Equal(t, core.KindDone, events[len(events)-1].Kind())

	var text string
	for _, ev := range events {
		if delta, ok := ev.(core.TextDeltaEvent); ok {
			text += delta.Text
		}
	}
	assert.Equal(t, "Weather in Paris: Clear sky, 21°C (feels 20°C).", text)
}

func TestChatPersistsSessionHistory(t *testing.T) {
	m := model.NewScriptedModel(
		model.Step{Text: "Hello!"},
		model.Step{Text: "Still here."},
	)
	srv, store := newTestServer(t, m)

	postChat(t, srv, `{"session_id":"s1","message":"hi"}`)
	postChat(t, srv, `{"session_id":"s1","message":"you there?"}`)

	history, err := store.History("s1")
	require.NoError(t, err)
	// user, assistant, user, assistant
	require.Len(t, history, 4)
	assert.Equal(t, "hi", history[0].Text())
	assert.Equal(t, "Hello!", history[1].Text())
	assert.Equal(t, "you there?", history[2].Text())
	assert.Equal(t, "Still here.", history[3].Text())

	// The second turn's model request carried the first turn's exchange.
	reqs := m.Requests()
	require.Len(t, reqs, 2)
	assert.Len(t, reqs[1].Contents, 3)
}

func TestChatSessionsAreIsolated(t *testing.T) {
	m := model.NewScriptedModel(
		model.Step{Text: "one"},
		model.Step{Text: "two"},
	)
	srv, store := newTestServer(t, m)

	postChat(t, srv, `{"session_id":"a","message":"first"}`)
	postChat(t, srv, `{"session_id":"b","message":"second"}`)

	historyA, err := store.History("a")
	require.NoError(t, err)
	assert.Len(t, historyA, 2)

	historyB, err := store.History("b")
	require.NoError(t, err)
	assert.Len(t, historyB, 2)
}

func TestChatRequestValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"malformed json", `{broken`, "invalid request body"},
		{"missing session", `{"message":"hi"}`, "session_id is required"},
		{"missing message", `{"session_id":"s1"}`, "message is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newTestServer(t, model.NewScriptedModel())
			rec := postChat(t, srv, tt.body)
			require.Equal(t, http.StatusBadRequest, rec.Code)

			var body errorBody
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
			assert.Equal(t, tt.want, body.Error)
		})
	}
}

func TestChatStreamErrorInBand(t *testing.T) {
	m := model.NewScriptedModel(
		model.Step{Calls: []core.FunctionCall{{ID: "call-1", Name: "movie", Arguments: `{"title":"Inception"}`}}},
	)
	srv, _ := newTestServer(t, m, &staticTool{
		name: "movie",
		err:  tool.NewError("movie", tool.CodeConfiguration, "movie API key is not set"),
	})

	rec := postChat(t, srv, `{"session_id":"s1","message":"tell me about Inception"}`)
	// The stream already started, so the failure arrives as an event.
	require.Equal(t, http.StatusOK, rec.Code)

	events := decodeEvents(t, rec.Body)
	last := events[len(events)-1]
	streamErr, ok := last.(core.StreamErrorEvent)
	require.True(t, ok)
	assert.Equal(t, tool.CodeConfiguration, streamErr.Code)
}

func TestHealthz(t *testing.T) {
	srv, _ := newTestServer(t, model.NewScriptedModel())

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
}

func TestChatMethodRouting(t *testing.T) {
	srv, _ := newTestServer(t, model.NewScriptedModel())

	req := httptest.NewRequest(http.MethodGet, "/chat", bytes.NewReader(nil))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
