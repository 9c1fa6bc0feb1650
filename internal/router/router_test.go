package router

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scrypster/cortex/internal/config"
	"github.com/scrypster/cortex/internal/llm"
	"github.com/scrypster/cortex/pkg/types"
)

// mockGenerator records what it was asked and returns a canned response.
type mockGenerator struct {
	response   string
	err        error
	lastPrompt string
	lastSystem string
	calls      int
}

func (m *mockGenerator) Complete(_ context.Context, prompt, systemPrompt string) (string, error) {
	m.calls++
	m.lastPrompt = prompt
	m.lastSystem = systemPrompt
	return m.response, m.err
}

func (m *mockGenerator) GetModel() string { return "mock" }

func testConfig() config.LLMConfig {
	return config.LLMConfig{
		OpenAIAPIKey:    "test-openai",
		AnthropicAPIKey: "test-anthropic",
		CloudRateLimit:  1000,
	}
}

func TestSelectTier(t *testing.T) {
	tests := []struct {
		name    string
		intent  types.Intent
		urgency int
		privacy string
		want    Tier
	}{
		{"private content stays local", types.IntentQuestion, 8, types.PrivacyPrivate, TierPrivate},
		{"journal stays local even when public", types.IntentJournal, 8, types.PrivacyPublic, TierPrivate},
		{"private beats schedule", types.IntentSchedule, 8, types.PrivacyPrivate, TierPrivate},
		{"schedule routes to logic", types.IntentSchedule, 8, types.PrivacyPublic, TierLogic},
		{"social routes to empathy", types.IntentSocial, 8, types.PrivacyPublic, TierEmpathy},
		{"simple routes to reflex", types.IntentSimple, 8, types.PrivacyPublic, TierReflex},
		{"low urgency routes to reflex", types.IntentQuestion, 3, types.PrivacyPublic, TierReflex},
		{"default is logic", types.IntentThought, 7, types.PrivacyPublic, TierLogic},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SelectTier(tt.intent, tt.urgency, tt.privacy))
		})
	}
}

func TestInvokeSanitizesCloudPrompt(t *testing.T) {
	r := New(testConfig())
	mock := &mockGenerator{response: "Noted, I will email [REDACTED_EMAIL_1]."}
	r.SetClient(TierLogic, mock)

	resp, err := r.Invoke(context.Background(), TierLogic, "req-1",
		"remind me to email sarah@example.com", "")
	require.NoError(t, err)

	assert.NotContains(t, mock.lastPrompt, "sarah@example.com")
	assert.Contains(t, mock.lastPrompt, "[REDACTED_EMAIL_1]")
	assert.Equal(t, "Noted, I will email sarah@example.com.", resp)
}

func TestInvokeLocalTierSkipsSanitization(t *testing.T) {
	r := New(testConfig())
	mock := &mockGenerator{response: "ok"}
	r.SetClient(TierPrivate, mock)

	_, err := r.Invoke(context.Background(), TierPrivate, "req-1",
		"my email is sarah@example.com", "")
	require.NoError(t, err)
	assert.Contains(t, mock.lastPrompt, "sarah@example.com")
}

func TestInvokeMissingCredentialFallsBackToPrivate(t *testing.T) {
	cfg := testConfig()
	cfg.OpenAIAPIKey = ""
	cfg.AnthropicAPIKey = ""
	r := New(cfg)

	private := &mockGenerator{response: "served locally"}
	r.SetClient(TierPrivate, private)

	resp, err := r.Invoke(context.Background(), TierLogic, "req-1", "plan my day", "")
	require.NoError(t, err)
	assert.Equal(t, "served locally", resp)

	resp, err = r.Invoke(context.Background(), TierEmpathy, "req-2", "how is Sarah", "")
	require.NoError(t, err)
	assert.Equal(t, "served locally", resp)
	assert.Equal(t, 2, private.calls)
}

func TestHealthReportsConstructedClients(t *testing.T) {
	r := New(testConfig())
	assert.Empty(t, r.Health(), "no clients before the first call")

	r.SetClient(TierReflex, llm.NewOllamaClient(llm.OllamaConfig{}))
	r.SetClient(TierLogic, &mockGenerator{response: "ok"})

	health := r.Health()
	require.Contains(t, health, "reflex")
	assert.Equal(t, "closed", health["reflex"].State)
	assert.NotContains(t, health, "logic", "clients without a breaker are skipped")
}

func TestClassifyIntentFastPath(t *testing.T) {
	r := New(testConfig())
	mock := &mockGenerator{response: `{"intent": "THOUGHT", "urgency": 5}`}
	r.SetClient(TierReflex, mock)

	for _, input := range []string{"hi", "ok", "Hello!", "thanks", "yo"} {
		result, err := r.ClassifyIntent(context.Background(), "req-1", input)
		require.NoError(t, err)
		assert.Equal(t, types.IntentSimple, result.Intent, "input %q", input)
		assert.Equal(t, 1, result.Urgency, "input %q", input)
	}
	assert.Zero(t, mock.calls, "trivial inputs must not hit the model")
}

func TestClassifyIntentUsesModel(t *testing.T) {
	r := New(testConfig())
	mock := &mockGenerator{response: `{"intent": "SCHEDULE", "urgency": 6, "privacy_level": "public"}`}
	r.SetClient(TierReflex, mock)

	result, err := r.ClassifyIntent(context.Background(), "req-1", "meet Sarah for coffee tomorrow at 3pm")
	require.NoError(t, err)
	assert.Equal(t, types.IntentSchedule, result.Intent)
	assert.Equal(t, 6, result.Urgency)
	assert.Equal(t, 1, mock.calls)
}

func TestClassifyIntentGarbageFallsBack(t *testing.T) {
	r := New(testConfig())
	r.SetClient(TierReflex, &mockGenerator{response: "no json here at all"})

	result, err := r.ClassifyIntent(context.Background(), "req-1", "something ambiguous happened")
	require.NoError(t, err)
	assert.Equal(t, types.IntentQuery, result.Intent)
	assert.Equal(t, 5, result.Urgency)
}
