// Package router implements tiered model routing: every model call goes
// through the router, which selects a tier from privacy and intent,
// sanitizes PII before any cloud call, and falls back to the local
// Private tier when a cloud credential is missing.
package router

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"

	"golang.org/x/time/rate"

	"github.com/scrypster/cortex/internal/config"
	"github.com/scrypster/cortex/internal/llm"
	"github.com/scrypster/cortex/internal/pii"
	"github.com/scrypster/cortex/pkg/types"
)

// Tier identifies a model capability class.
type Tier string

const (
	// TierReflex is the small local model: classification, greetings,
	// low-stakes replies.
	TierReflex Tier = "reflex"
	// TierPrivate is the higher-capacity local model. Private content
	// never leaves it.
	TierPrivate Tier = "private"
	// TierLogic is the deterministic cloud tier (temperature 0).
	TierLogic Tier = "logic"
	// TierEmpathy is the cloud tier tuned for social and emotional
	// reasoning (higher temperature).
	TierEmpathy Tier = "empathy"
)

// isCloud reports whether the tier sends content off the machine.
func (t Tier) isCloud() bool {
	return t == TierLogic || t == TierEmpathy
}

// Router selects and invokes model tiers. Clients are constructed lazily
// on first use and cached per tier.
type Router struct {
	cfg       config.LLMConfig
	sanitizer *pii.Sanitizer
	vault     *pii.Vault

	// cloudLimiter throttles all cloud tiers together so a burst of
	// requests cannot blow through API quotas.
	cloudLimiter *rate.Limiter

	mu      sync.Mutex
	clients map[Tier]llm.TextGenerator
}

// New creates a router over the given model configuration.
func New(cfg config.LLMConfig) *Router {
	return &Router{
		cfg:          cfg,
		sanitizer:    pii.NewSanitizer(),
		vault:        pii.NewVault(),
		cloudLimiter: rate.NewLimiter(rate.Limit(cfg.CloudRateLimit), 1),
		clients:      make(map[Tier]llm.TextGenerator),
	}
}

// SelectTier maps classification output to a tier. The rules are a fixed
// priority order, checked top to bottom:
//
//  1. private content or JOURNAL intent -> Private (never leaves machine)
//  2. SCHEDULE -> Logic (deterministic temporal reasoning)
//  3. SOCIAL -> Empathy
//  4. SIMPLE or urgency <= 3 -> Reflex
//  5. everything else -> Logic
func SelectTier(intent types.Intent, urgency int, privacyLevel string) Tier {
	switch {
	case privacyLevel == types.PrivacyPrivate || intent == types.IntentJournal:
		return TierPrivate
	case intent == types.IntentSchedule:
		return TierLogic
	case intent == types.IntentSocial:
		return TierEmpathy
	case intent == types.IntentSimple || urgency <= 3:
		return TierReflex
	default:
		return TierLogic
	}
}

// Invoke runs a completion on the requested tier. For cloud tiers the
// prompt is PII-sanitized before sending and the response is restored
// from the per-request mapping afterwards; the mapping is held only for
// the duration of the call, keyed by requestID.
func (r *Router) Invoke(ctx context.Context, tier Tier, requestID, prompt, systemPrompt string) (string, error) {
	tier = r.resolveTier(tier)

	if tier.isCloud() {
		if err := r.cloudLimiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("router: rate limit wait: %w", err)
		}
		sanitized, mapping := r.sanitizer.Sanitize(prompt)
		r.vault.Put(requestID, mapping)
		prompt = sanitized
	}

	client, err := r.client(tier)
	if err != nil {
		return "", err
	}

	response, err := client.Complete(ctx, prompt, systemPrompt)
	if tier.isCloud() {
		// Always consume the mapping, even on error, so the vault
		// cannot accumulate stale entries.
		mapping := r.vault.Take(requestID)
		if err == nil {
			response = r.sanitizer.Restore(response, mapping)
		}
	}
	if err != nil {
		return "", fmt.Errorf("router: %s tier: %w", tier, err)
	}
	return response, nil
}

// ClassifyIntent classifies input on the Reflex tier. Trivial inputs are
// short-circuited without a model call: anything under 4 characters or a
// bare greeting is SIMPLE with urgency 1. Unparseable model output falls
// back to the default classification rather than failing the request.
func (r *Router) ClassifyIntent(ctx context.Context, requestID, input string) (*llm.ClassificationResult, error) {
	if isTrivial(input) {
		return &llm.ClassificationResult{
			Intent:       types.IntentSimple,
			Urgency:      1,
			PrivacyLevel: types.PrivacyPublic,
			Entities:     map[string][]string{},
		}, nil
	}

	raw, err := r.Invoke(ctx, TierReflex, requestID, llm.ClassifyPrompt(input), llm.ClassifySystemPrompt)
	if err != nil {
		return nil, err
	}

	result, err := llm.ParseClassification(raw)
	if err != nil {
		log.Printf("router: unparseable classification, using default: %v", err)
		return llm.DefaultClassification(), nil
	}
	return result, nil
}

var greetings = map[string]bool{
	"hi": true, "hey": true, "hello": true, "yo": true, "sup": true,
	"thanks": true, "thank you": true, "ok": true, "okay": true,
	"good morning": true, "good night": true, "bye": true,
}

// isTrivial reports whether input can skip model classification.
func isTrivial(input string) bool {
	trimmed := strings.TrimSpace(input)
	if len(trimmed) < 4 {
		return true
	}
	normalized := strings.ToLower(strings.TrimRight(trimmed, "!.?, "))
	return greetings[normalized]
}

// resolveTier downgrades a cloud tier to Private when its credential is
// missing. The fallback is logged so it is visible, not silent.
func (r *Router) resolveTier(tier Tier) Tier {
	switch tier {
	case TierLogic:
		if r.cfg.OpenAIAPIKey == "" {
			log.Printf("router: no OpenAI credential, serving logic tier locally")
			return TierPrivate
		}
	case TierEmpathy:
		if r.cfg.AnthropicAPIKey == "" {
			log.Printf("router: no Anthropic credential, serving empathy tier locally")
			return TierPrivate
		}
	}
	return tier
}

// client returns the cached client for a tier, constructing it on first
// use.
func (r *Router) client(tier Tier) (llm.TextGenerator, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c, ok := r.clients[tier]; ok {
		return c, nil
	}

	var c llm.TextGenerator
	switch tier {
	case TierReflex:
		c = llm.NewOllamaClient(llm.OllamaConfig{
			BaseURL: r.cfg.OllamaURL,
			Model:   r.cfg.ReflexModel,
			Timeout: r.cfg.RequestTimeout,
		})
	case TierPrivate:
		c = llm.NewOllamaClient(llm.OllamaConfig{
			BaseURL: r.cfg.OllamaURL,
			Model:   r.cfg.PrivateModel,
			Timeout: r.cfg.RequestTimeout,
		})
	case TierLogic:
		c = llm.NewOpenAIClient(llm.OpenAIConfig{
			APIKey:  r.cfg.OpenAIAPIKey,
			Model:   r.cfg.OpenAIModel,
			Timeout: r.cfg.RequestTimeout,
		})
	case TierEmpathy:
		c = llm.NewAnthropicClient(llm.AnthropicConfig{
			APIKey:  r.cfg.AnthropicAPIKey,
			Model:   r.cfg.AnthropicModel,
			Timeout: r.cfg.RequestTimeout,
		})
	default:
		return nil, fmt.Errorf("router: unknown tier %q", tier)
	}

	r.clients[tier] = c
	return c, nil
}

// Health reports circuit breaker state for every constructed client,
// keyed by tier. Tiers that have not served a request yet are absent.
func (r *Router) Health() map[string]llm.BreakerHealth {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[string]llm.BreakerHealth, len(r.clients))
	for tier, c := range r.clients {
		if reporter, ok := c.(llm.HealthReporter); ok {
			out[string(tier)] = reporter.BreakerHealth()
		}
	}
	return out
}

// SetClient installs a client for a tier, replacing lazy construction.
// Used by tests and by callers that need a custom backend.
func (r *Router) SetClient(tier Tier, client llm.TextGenerator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[tier] = client
}
