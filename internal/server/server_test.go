package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scrypster/cortex/internal/alerts"
	"github.com/scrypster/cortex/internal/config"
	"github.com/scrypster/cortex/internal/llm"
	"github.com/scrypster/cortex/internal/pipeline"
	"github.com/scrypster/cortex/internal/router"
	"github.com/scrypster/cortex/internal/search"
	"github.com/scrypster/cortex/internal/store/sqlite"
	"github.com/scrypster/cortex/pkg/types"
)

type scriptedModel struct {
	responses []string
	calls     int
}

func (m *scriptedModel) Complete(_ context.Context, _, _ string) (string, error) {
	i := m.calls
	if i >= len(m.responses) {
		i = len(m.responses) - 1
	}
	m.calls++
	return m.responses[i], nil
}

func (m *scriptedModel) GetModel() string { return "scripted" }

type fakeEmbedder struct{}

func (fakeEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	return []float32{0.1, 0.2, 0.3}, nil
}
func (fakeEmbedder) GetModel() string { return "fake-embed" }

type rig struct {
	server *httptest.Server
	store  *sqlite.KnowledgeStore
	router *router.Router
}

func newRig(t *testing.T) *rig {
	t.Helper()
	st, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	rt := router.New(config.LLMConfig{
		OpenAIAPIKey:    "test",
		AnthropicAPIKey: "test",
		CloudRateLimit:  1000,
	})
	se := search.New(fakeEmbedder{}, st)
	p := pipeline.New(rt, st, se, nil, nil, time.Minute)

	sink, err := alerts.NewSink(st, "")
	require.NoError(t, err)

	srv := httptest.NewServer(New(p, rt, st, sink).Handler())
	t.Cleanup(srv.Close)
	return &rig{server: srv, store: st, router: rt}
}

func (r *rig) post(t *testing.T, path, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(r.server.URL+path, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	return resp
}

func (r *rig) get(t *testing.T, path string) *http.Response {
	t.Helper()
	resp, err := http.Get(r.server.URL + path)
	require.NoError(t, err)
	return resp
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func TestHealth(t *testing.T) {
	r := newRig(t)
	r.router.SetClient(router.TierReflex, llm.NewOllamaClient(llm.OllamaConfig{}))

	resp := r.get(t, "/api/health")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))

	var body struct {
		Status string                       `json:"status"`
		Models map[string]llm.BreakerHealth `json:"models"`
	}
	decode(t, resp, &body)
	assert.Equal(t, "healthy", body.Status)
	require.Contains(t, body.Models, "reflex")
	assert.Equal(t, "closed", body.Models["reflex"].State)
}

func TestThinkGreeting(t *testing.T) {
	r := newRig(t)
	r.router.SetClient(router.TierReflex,
		&scriptedModel{responses: []string{"Hey! What's on your mind?"}})

	resp := r.post(t, "/api/think", `{"thought": "hi"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body pipeline.Result
	decode(t, resp, &body)
	assert.Equal(t, types.IntentSimple, body.Intent)
	assert.Equal(t, "Hey! What's on your mind?", body.Response)
}

func TestThinkRejectsBadInput(t *testing.T) {
	r := newRig(t)

	resp := r.post(t, "/api/think", `{"thought": "   "}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	resp = r.post(t, "/api/think", `not json`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestClassifyDebugDoesNotPersist(t *testing.T) {
	r := newRig(t)
	r.router.SetClient(router.TierReflex, &scriptedModel{responses: []string{
		`{"intent": "THOUGHT", "urgency": 6, "privacy_level": "public", "entities": {}}`,
	}})

	resp := r.get(t, "/api/classify?input=met+with+the+design+team+today")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Intent types.Intent `json:"intent"`
	}
	decode(t, resp, &body)
	assert.Equal(t, types.IntentThought, body.Intent)

	// Debug endpoint: nothing was written.
	recent, err := r.store.RecentThoughts(context.Background(), time.Time{}, 10)
	require.NoError(t, err)
	assert.Empty(t, recent)
}

func TestClassifyRequiresInput(t *testing.T) {
	r := newRig(t)
	resp := r.get(t, "/api/classify")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestResolveClarificationFlow(t *testing.T) {
	r := newRig(t)
	ctx := context.Background()
	require.NoError(t, r.store.CreateClarification(ctx, &types.Clarification{
		ID: "c1", Type: types.ClarificationAmbiguity, Description: "Which John?",
	}))

	resp := r.post(t, "/api/clarifications/c1/resolve", `{"response": "John from finance"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	got, err := r.store.GetClarification(ctx, "c1")
	require.NoError(t, err)
	assert.True(t, got.Resolved)
	assert.Equal(t, "John from finance", got.Response)

	// Second resolution conflicts.
	resp = r.post(t, "/api/clarifications/c1/resolve", `{"response": "someone else"}`)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()

	// Unknown id.
	resp = r.post(t, "/api/clarifications/missing/resolve", `{"response": "x"}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	// Empty response body is rejected.
	resp = r.post(t, "/api/clarifications/c1/resolve", `{"response": ""}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestAlertsListAndDismiss(t *testing.T) {
	r := newRig(t)
	ctx := context.Background()
	require.NoError(t, r.store.CreateAlert(ctx, &types.Alert{
		ID: "a1", Type: types.AlertGhostDependency, Title: "Ghosted", Urgency: types.UrgencyMedium,
	}))
	require.NoError(t, r.store.CreateAlert(ctx, &types.Alert{
		ID: "a2", Type: types.AlertScheduleOptimization, Title: "Fragmented", Urgency: types.UrgencyHigh,
	}))

	resp := r.get(t, "/api/alerts")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Alerts []types.Alert `json:"alerts"`
	}
	decode(t, resp, &body)
	require.Len(t, body.Alerts, 2)
	assert.Equal(t, "a2", body.Alerts[0].ID, "high urgency first")

	resp = r.post(t, "/api/alerts/a1/dismiss", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = r.get(t, "/api/alerts")
	decode(t, resp, &body)
	require.Len(t, body.Alerts, 1)
	assert.Equal(t, "a2", body.Alerts[0].ID)

	resp = r.post(t, "/api/alerts/missing/dismiss", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestBriefing(t *testing.T) {
	r := newRig(t)
	ctx := context.Background()

	require.NoError(t, r.store.CreateAlert(ctx, &types.Alert{
		ID: "a1", Type: types.AlertGhostDependency, Title: "Ghosted", Urgency: types.UrgencyHigh,
	}))
	require.NoError(t, r.store.CreateClarification(ctx, &types.Clarification{
		ID: "c1", Type: types.ClarificationAmbiguity, Description: "Which John?",
	}))

	resp := r.get(t, "/api/briefing")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		UrgentRisks    []types.Alert         `json:"urgent_risks"`
		Clarifications []types.Clarification `json:"clarification_queue"`
		TodaysMeetings []types.CalendarEvent `json:"todays_meetings"`
	}
	decode(t, resp, &body)
	require.Len(t, body.UrgentRisks, 1)
	assert.Equal(t, "a1", body.UrgentRisks[0].ID)
	require.Len(t, body.Clarifications, 1)
	assert.Equal(t, "c1", body.Clarifications[0].ID)
	assert.NotNil(t, body.TodaysMeetings, "empty sections are arrays, not null")
}

func TestMethodRouting(t *testing.T) {
	r := newRig(t)

	// GET on a POST-only route.
	resp := r.get(t, "/api/think")
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	resp.Body.Close()

	// Unknown route.
	resp = r.get(t, "/api/nope")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}
