package pipeline

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/scrypster/cortex/internal/llm"
	"github.com/scrypster/cortex/internal/router"
	"github.com/scrypster/cortex/pkg/types"
)

// analyst handles knowledge-bearing intents: THOUGHT, QUESTION, QUERY,
// JOURNAL. It extracts structured knowledge, persists capture intents,
// and generates the user-facing reply.
func (p *Pipeline) analyst(ctx context.Context, requestID string, state *types.ConversationState) error {
	extractTier := router.SelectTier(state.Intent, state.Urgency, state.PrivacyLevel)
	if extractTier == router.TierReflex {
		// Extraction needs more capability than the reflex model offers.
		extractTier = router.TierPrivate
	}

	raw, err := p.router.Invoke(ctx, extractTier, requestID,
		llm.ExtractionPrompt(state.SanitizedInput, contextLines(state.Context)),
		llm.ExtractionSystemPrompt)
	if err != nil {
		return fmt.Errorf("analyst extraction: %w", err)
	}

	extraction, err := llm.ParseExtraction(raw)
	if err != nil {
		log.Printf("pipeline: extraction unparseable, using minimal default: %v", err)
		extraction = llm.DefaultExtraction(state.SanitizedInput)
	}
	state.Extraction = extraction

	if extraction.Ambiguous && extraction.ClarificationQuestion != "" {
		state.NeedsClarification = true
		state.ClarificationRequest = extraction.ClarificationQuestion
		return nil
	}

	isCapture := state.Intent == types.IntentThought || state.Intent == types.IntentJournal
	if isCapture {
		if err := p.persistThought(ctx, state); err != nil {
			return fmt.Errorf("analyst persistence: %w", err)
		}
	}

	// QUESTION replies lean on the empathy tier for natural phrasing;
	// everything else answers on the tier that did the extraction.
	responseTier := extractTier
	if state.Intent == types.IntentQuestion && state.PrivacyLevel != types.PrivacyPrivate {
		responseTier = router.TierEmpathy
	}

	prompt := p.responsePrompt(state)
	response, err := p.router.Invoke(ctx, responseTier, requestID, prompt, llm.AnalystResponsePrompt)
	if err != nil {
		return fmt.Errorf("analyst response: %w", err)
	}
	state.Response = strings.TrimSpace(response)
	return nil
}

func (p *Pipeline) responsePrompt(state *types.ConversationState) string {
	var b strings.Builder
	if lines := contextLines(state.Context); len(lines) > 0 {
		b.WriteString("What you know:\n")
		for _, line := range lines {
			b.WriteString("- ")
			b.WriteString(line)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	if state.Extraction != nil && state.Extraction.Summary != "" {
		fmt.Fprintf(&b, "You just noted: %s\n\n", state.Extraction.Summary)
	}
	fmt.Fprintf(&b, "The user said: %s\n\nReply:", state.SanitizedInput)
	return b.String()
}

// persistThought writes the thought and its extracted satellites. The
// thought row goes first so a partial failure never orphans links.
func (p *Pipeline) persistThought(ctx context.Context, state *types.ConversationState) error {
	now := p.now()
	thought := &types.Thought{
		ID:        p.newID(),
		Content:   state.SanitizedInput,
		Summary:   state.Extraction.Summary,
		CreatedAt: now,
		Salience:  salienceFor(state),
	}
	if err := p.store.CreateThought(ctx, thought); err != nil {
		return err
	}
	state.ThoughtID = thought.ID

	for _, draft := range state.Extraction.Entities {
		entity := &types.Entity{Name: draft.Name, Type: draft.Type, Description: draft.Description}
		if err := p.store.UpsertEntity(ctx, entity); err != nil {
			return err
		}
		if err := p.store.LinkEntity(ctx, thought.ID, draft.Name); err != nil {
			return err
		}
	}
	for _, category := range state.Extraction.Categories {
		if err := p.store.LinkCategory(ctx, thought.ID, category); err != nil {
			return err
		}
	}
	for _, draft := range state.Extraction.ActionItems {
		item := &types.ActionItem{
			ID:       p.newID(),
			Task:     draft.Task,
			Urgency:  draft.Urgency,
			Deadline: parseDeadline(now, draft.Deadline),
		}
		if err := p.store.CreateActionItem(ctx, item); err != nil {
			return err
		}
	}

	p.indexAsync(thought.ID, thought.Content)
	return nil
}

// indexAsync queues embedding generation, or runs it inline when no queue
// is wired (tests, single-shot tools).
func (p *Pipeline) indexAsync(thoughtID, content string) {
	index := func(ctx context.Context) error {
		return p.search.IndexThought(ctx, thoughtID, content)
	}
	if p.queue != nil {
		if !p.queue.Enqueue("embed:"+thoughtID, index) {
			log.Printf("pipeline: embedding queue full, dropping index job for %s", thoughtID)
		}
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := index(ctx); err != nil {
		log.Printf("pipeline: inline embedding failed for %s: %v", thoughtID, err)
	}
}

// salienceFor scores how worth-remembering an input is. Urgent or
// emotionally charged thoughts surface in the review queue sooner.
func salienceFor(state *types.ConversationState) float64 {
	s := 0.4 + float64(state.Urgency)*0.04
	if state.Extraction != nil {
		switch state.Extraction.EmotionalTone {
		case "anxious", "excited":
			s += 0.15
		case "positive", "negative":
			s += 0.05
		}
		if len(state.Extraction.ActionItems) > 0 {
			s += 0.1
		}
	}
	if s > 1 {
		s = 1
	}
	return s
}

// scheduler handles SCHEDULE intents on the logic tier. A question mark
// in the model's reply is treated as a clarification request.
func (p *Pipeline) scheduler(ctx context.Context, requestID string, state *types.ConversationState) error {
	now := p.now()

	var b strings.Builder
	for _, note := range profileNotes(state.Profile) {
		b.WriteString(note)
		b.WriteString("\n")
	}
	if b.Len() > 0 {
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "Request: %s", state.SanitizedInput)

	tier := router.SelectTier(state.Intent, state.Urgency, state.PrivacyLevel)
	response, err := p.router.Invoke(ctx, tier, requestID, b.String(), llm.SchedulerSystemPrompt(now))
	if err != nil {
		return fmt.Errorf("scheduler: %w", err)
	}
	response = strings.TrimSpace(response)

	if strings.Contains(response, "?") {
		state.NeedsClarification = true
		state.ClarificationRequest = response
		return nil
	}
	state.Response = response

	// A concrete time plus a person is enough to anchor a reminder.
	if at := parseTimeMention(now, state.SanitizedInput, state.Entities["times"]); at != nil &&
		len(state.Entities["people"]) > 0 {
		reminder := &types.Reminder{
			ID:        p.newID(),
			Title:     state.SanitizedInput,
			At:        *at,
			CreatedAt: now,
		}
		if err := p.store.CreateReminder(ctx, reminder); err != nil {
			return fmt.Errorf("scheduler reminder: %w", err)
		}
	}
	return nil
}

// social handles SOCIAL intents on the empathy tier, feeding it what the
// graph knows about the people involved.
func (p *Pipeline) social(ctx context.Context, requestID string, state *types.ConversationState) error {
	var b strings.Builder
	if lines := contextLines(state.Context); len(lines) > 0 {
		b.WriteString("What you know about the people involved:\n")
		for _, line := range lines {
			b.WriteString("- ")
			b.WriteString(line)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "The user said: %s", state.SanitizedInput)

	tier := router.SelectTier(state.Intent, state.Urgency, state.PrivacyLevel)
	response, err := p.router.Invoke(ctx, tier, requestID, b.String(), llm.SocialSystemPrompt)
	if err != nil {
		return fmt.Errorf("social: %w", err)
	}
	state.Response = strings.TrimSpace(response)
	return nil
}

// simple handles greetings on the reflex tier.
func (p *Pipeline) simple(ctx context.Context, requestID string, state *types.ConversationState) error {
	response, err := p.router.Invoke(ctx, router.TierReflex, requestID,
		state.SanitizedInput, llm.SimpleSystemPrompt)
	if err != nil {
		return fmt.Errorf("simple: %w", err)
	}
	state.Response = strings.TrimSpace(response)
	return nil
}
