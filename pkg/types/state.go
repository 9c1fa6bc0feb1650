package types

// Intent is the classified purpose of a user input.
type Intent string

// Known intents. QUERY and JOURNAL are accepted from the classifier and
// handled by the analyst stage; JOURNAL additionally forces the private
// model tier.
const (
	IntentThought  Intent = "THOUGHT"
	IntentQuestion Intent = "QUESTION"
	IntentSchedule Intent = "SCHEDULE"
	IntentSocial   Intent = "SOCIAL"
	IntentSimple   Intent = "SIMPLE"
	IntentQuery    Intent = "QUERY"
	IntentJournal  Intent = "JOURNAL"
)

// Privacy levels assigned during classification.
const (
	PrivacyPublic  = "public"
	PrivacyPrivate = "private"
)

// ContextItem is a single piece of retrieved memory context: either a
// semantic-search hit or a graph-traversal hit for a mentioned entity.
type ContextItem struct {
	ThoughtID string  `json:"thought_id,omitempty"`
	Entity    string  `json:"entity,omitempty"` // Set for graph-traversal hits
	Content   string  `json:"content"`
	Summary   string  `json:"summary,omitempty"`
	Score     float64 `json:"score,omitempty"` // Similarity score for search hits
}

// ActionItemDraft is an action item as extracted from a thought, before it
// is persisted with an ID.
type ActionItemDraft struct {
	Task     string `json:"task"`
	Urgency  string `json:"urgency"`
	Deadline string `json:"deadline,omitempty"`
}

// EntityDraft is an entity mention as extracted from a thought.
type EntityDraft struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
}

// Extraction is the structured knowledge record produced by the analyst
// stage. On a parse failure it is replaced by a deterministic minimal
// default (truncated summary, empty lists, neutral tone).
type Extraction struct {
	Summary               string            `json:"summary"`
	Entities              []EntityDraft     `json:"entities"`
	Categories            []string          `json:"categories"`
	ActionItems           []ActionItemDraft `json:"action_items"`
	EmotionalTone         string            `json:"emotional_tone"`
	Ambiguous             bool              `json:"ambiguous"`
	ClarificationQuestion string            `json:"clarification_question,omitempty"`
}

// ConversationState is the transient record threaded through every
// pipeline stage for one request. It is a closed struct rather than an
// open map so each stage's required fields are type-checked.
type ConversationState struct {
	// Input. PII placeholder substitutions are not carried here: the
	// router holds them in its vault for the duration of one model call.
	RawInput       string
	SanitizedInput string

	// Classification
	Intent       Intent
	Urgency      int // 1-10
	PrivacyLevel string
	Entities     map[string][]string // category -> names (persons, times, projects, ...)

	// Memory
	Context []ContextItem
	Profile *UserProfile

	// Reasoning output
	Extraction *Extraction
	Response   string
	ThoughtID  string

	// Clarification
	NeedsClarification   bool
	ClarificationRequest string

	// Diagnostics. RoutePath is append-only; no stage branches on it.
	RoutePath []string
	Err       string
}

// Visit appends a stage name to the route path audit trail.
func (s *ConversationState) Visit(stage string) {
	s.RoutePath = append(s.RoutePath, stage)
}
