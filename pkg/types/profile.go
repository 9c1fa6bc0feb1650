package types

// Chronotype is the user's natural energy rhythm.
type Chronotype string

// Chronotypes.
const (
	ChronotypeLark      Chronotype = "LARK"       // Morning peak
	ChronotypeOwl       Chronotype = "OWL"        // Evening peak
	ChronotypeThirdBird Chronotype = "THIRD_BIRD" // In between
)

// RelationshipTier ranks a contact's importance to the user.
type RelationshipTier string

// Relationship tiers.
const (
	TierVIP         RelationshipTier = "VIP"
	TierInnerCircle RelationshipTier = "INNER_CIRCLE"
	TierCore        RelationshipTier = "CORE"
	TierPeripheral  RelationshipTier = "PERIPHERAL"
)

// CommunicationStyle is the user's preferred response register.
type CommunicationStyle string

// Communication styles.
const (
	StyleDirect         CommunicationStyle = "DIRECT"
	StyleConversational CommunicationStyle = "CONVERSATIONAL"
	StyleStructured     CommunicationStyle = "STRUCTURED"
)

// TimeRange is a window within a day, "HH:MM" to "HH:MM".
type TimeRange struct {
	Start string `json:"start" yaml:"start"`
	End   string `json:"end" yaml:"end"`
}

// EnergyZones describes the user's energy profile across the day.
type EnergyZones struct {
	Peak     TimeRange `json:"peak" yaml:"peak"`         // Reserved for high cognitive load
	Trough   TimeRange `json:"trough" yaml:"trough"`     // Meetings, email, admin
	Recovery TimeRange `json:"recovery" yaml:"recovery"` // No work notifications
}

// BiologicalProfile is the first profile layer: hard physical constraints.
type BiologicalProfile struct {
	Chronotype  Chronotype  `json:"chronotype" yaml:"chronotype"`
	EnergyZones EnergyZones `json:"energy_zones" yaml:"energy_zones"`
	Timezone    string      `json:"timezone" yaml:"timezone"`
	WorkStart   string      `json:"work_start" yaml:"work_start"` // "HH:MM"
	WorkEnd     string      `json:"work_end" yaml:"work_end"`
}

// Goal is a north-star objective.
type Goal struct {
	ID       string  `json:"id" yaml:"id"`
	Title    string  `json:"title" yaml:"title"`
	Deadline string  `json:"deadline,omitempty" yaml:"deadline,omitempty"`
	Progress float64 `json:"progress" yaml:"progress"` // 0-100
	Active   bool    `json:"active" yaml:"active"`
}

// AntiGoal is an explicit hard constraint: something the user refuses to do.
type AntiGoal struct {
	ID          string `json:"id" yaml:"id"`
	Description string `json:"description" yaml:"description"`
}

// StrategicProfile is the second layer: goals and hard constraints.
type StrategicProfile struct {
	Goals          []Goal     `json:"goals" yaml:"goals"`
	AntiGoals      []AntiGoal `json:"anti_goals" yaml:"anti_goals"`
	ValueHierarchy []string   `json:"value_hierarchy" yaml:"value_hierarchy"`
}

// Contact is a person in the user's network with a relationship tier.
type Contact struct {
	Name string           `json:"name" yaml:"name"`
	Tier RelationshipTier `json:"tier" yaml:"tier"`
	Role string           `json:"role,omitempty" yaml:"role,omitempty"`
}

// SocialProfile is the third layer: the user's network.
type SocialProfile struct {
	Contacts []Contact `json:"contacts" yaml:"contacts"`
}

// PsychologicalProfile is the fourth layer: how the user wants to be
// spoken to.
type PsychologicalProfile struct {
	CommunicationStyle CommunicationStyle `json:"communication_style" yaml:"communication_style"`
}

// UserProfile is the four-layer user knowledge model. It is built
// incrementally during onboarding, read-mostly afterward, and referenced
// (never duplicated) by every pipeline stage that personalizes output.
type UserProfile struct {
	Name          string               `json:"name" yaml:"name"`
	Biological    BiologicalProfile    `json:"biological" yaml:"biological"`
	Strategic     StrategicProfile     `json:"strategic" yaml:"strategic"`
	Social        SocialProfile        `json:"social" yaml:"social"`
	Psychological PsychologicalProfile `json:"psychological" yaml:"psychological"`
}

// VIPs returns the names of contacts in the VIP tier.
func (p *UserProfile) VIPs() []string {
	var names []string
	for _, c := range p.Social.Contacts {
		if c.Tier == TierVIP {
			names = append(names, c.Name)
		}
	}
	return names
}

// AntiGoalDescriptions returns the flat list of hard-constraint texts,
// used to build scheduling prompts.
func (p *UserProfile) AntiGoalDescriptions() []string {
	var out []string
	for _, ag := range p.Strategic.AntiGoals {
		out = append(out, ag.Description)
	}
	return out
}
