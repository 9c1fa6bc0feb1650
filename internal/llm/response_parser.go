package llm

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/scrypster/cortex/pkg/types"
)

// Model output is untrusted: models add prose around JSON despite
// instructions, invent field values, and occasionally return garbage.
// Every parser in this file either returns validated data or a
// deterministic default - call sites never scan for braces themselves.

// ClassificationResult is the parsed output of the intent classification
// prompt.
type ClassificationResult struct {
	Intent       types.Intent        `json:"intent"`
	Urgency      int                 `json:"urgency"`
	PrivacyLevel string              `json:"privacy_level"`
	Entities     map[string][]string `json:"entities"`
}

// extractJSON extracts the first complete JSON object from a string that
// may contain extra text. Handles markdown code fences and brace matching
// inside string literals.
func extractJSON(text string) string {
	text = strings.ReplaceAll(text, "```json", "")
	text = strings.ReplaceAll(text, "```", "")
	text = strings.TrimSpace(text)

	start := strings.Index(text, "{")
	if start == -1 {
		return text // No JSON found; let the caller's parser fail
	}

	braceCount := 0
	inString := false
	escape := false

	for i := start; i < len(text); i++ {
		char := text[i]

		if escape {
			escape = false
			continue
		}
		if char == '\\' {
			escape = true
			continue
		}
		if char == '"' {
			inString = !inString
			continue
		}
		if !inString {
			switch char {
			case '{':
				braceCount++
			case '}':
				braceCount--
				if braceCount == 0 {
					return text[start : i+1]
				}
			}
		}
	}

	return text // No complete JSON object found
}

// ParseClassification parses the classification prompt output. Invalid or
// missing fields are normalized rather than failing: unknown intents map
// to QUERY, urgency is clamped to [1,10], privacy defaults to public.
// An error is returned only when the payload contains no parseable JSON.
func ParseClassification(raw string) (*ClassificationResult, error) {
	cleanJSON := extractJSON(raw)

	var result ClassificationResult
	if err := json.Unmarshal([]byte(cleanJSON), &result); err != nil {
		return nil, fmt.Errorf("failed to parse classification JSON: %w", err)
	}

	result.Intent = normalizeIntent(string(result.Intent))
	if result.Urgency < 1 {
		result.Urgency = 1
	}
	if result.Urgency > 10 {
		result.Urgency = 10
	}
	if result.PrivacyLevel != types.PrivacyPrivate {
		result.PrivacyLevel = types.PrivacyPublic
	}
	if result.Entities == nil {
		result.Entities = map[string][]string{}
	}
	return &result, nil
}

// DefaultClassification is the deterministic fallback when classification
// output is unusable: treat the input as a general query of middling
// urgency with nothing extracted.
func DefaultClassification() *ClassificationResult {
	return &ClassificationResult{
		Intent:       types.IntentQuery,
		Urgency:      5,
		PrivacyLevel: types.PrivacyPublic,
		Entities:     map[string][]string{},
	}
}

// normalizeIntent maps a raw intent string onto the known enum, accepting
// the SCHEDULING variant some models produce. Unknown values become QUERY.
func normalizeIntent(raw string) types.Intent {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "THOUGHT":
		return types.IntentThought
	case "QUESTION":
		return types.IntentQuestion
	case "SCHEDULE", "SCHEDULING":
		return types.IntentSchedule
	case "SOCIAL":
		return types.IntentSocial
	case "SIMPLE":
		return types.IntentSimple
	case "JOURNAL":
		return types.IntentJournal
	case "QUERY":
		return types.IntentQuery
	default:
		return types.IntentQuery
	}
}

// ParseExtraction parses the analyst extraction output. Entities with
// unknown types are skipped (logged, not fatal); the tone is normalized.
// Returns an error only when the JSON itself is malformed - callers fall
// back to DefaultExtraction in that case.
func ParseExtraction(raw string) (*types.Extraction, error) {
	cleanJSON := extractJSON(raw)

	var extraction types.Extraction
	if err := json.Unmarshal([]byte(cleanJSON), &extraction); err != nil {
		return nil, fmt.Errorf("failed to parse extraction JSON: %w", err)
	}

	valid := make([]types.EntityDraft, 0, len(extraction.Entities))
	for _, e := range extraction.Entities {
		if e.Name == "" {
			continue
		}
		if !types.IsValidEntityType(e.Type) {
			log.Printf("response_parser: skipping entity %q with unknown type %q", e.Name, e.Type)
			continue
		}
		valid = append(valid, e)
	}
	extraction.Entities = valid

	if extraction.Categories == nil {
		extraction.Categories = []string{}
	}
	if extraction.ActionItems == nil {
		extraction.ActionItems = []types.ActionItemDraft{}
	}
	extraction.EmotionalTone = normalizeTone(extraction.EmotionalTone)

	return &extraction, nil
}

// DefaultExtraction is the deterministic minimal extraction used when the
// model output cannot be parsed: a truncated summary, empty entity and
// category lists, and a neutral tone.
func DefaultExtraction(input string) *types.Extraction {
	summary := input
	if len(summary) > 100 {
		summary = summary[:100]
	}
	return &types.Extraction{
		Summary:       summary,
		Entities:      []types.EntityDraft{},
		Categories:    []string{},
		ActionItems:   []types.ActionItemDraft{},
		EmotionalTone: "neutral",
	}
}

// normalizeTone restricts the emotional tone to the known set; anything
// else becomes neutral.
func normalizeTone(tone string) string {
	switch strings.ToLower(strings.TrimSpace(tone)) {
	case "positive", "negative", "anxious", "excited", "neutral":
		return strings.ToLower(strings.TrimSpace(tone))
	default:
		return "neutral"
	}
}
