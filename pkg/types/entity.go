package types

import "time"

// Entity is a named, typed knowledge-graph node (person, project, topic,
// tool, location, event). Entities are shared: multiple thoughts reference
// the same entity by name, and their lifetime is indefinite.
type Entity struct {
	Name        string     `json:"name"`                  // Unique name (natural key)
	Type        string     `json:"type"`                  // Entity type (Person, Project, Topic, ...)
	Description string     `json:"description,omitempty"` // Free text, append-only via "|" joins
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`

	// Profile refresh fields, recomputed by consolidation over a trailing
	// 7-day window.
	RecentActivity int        `json:"recent_activity"`     // Mentions in the window
	LastSeen       *time.Time `json:"last_seen,omitempty"` // Most recent mention timestamp
}

// Valid entity types produced by the extraction prompt.
const (
	EntityPerson   = "Person"
	EntityProject  = "Project"
	EntityTopic    = "Topic"
	EntityTool     = "Tool"
	EntityLocation = "Location"
	EntityEvent    = "Event"
)

// IsValidEntityType reports whether t is one of the known entity types.
func IsValidEntityType(t string) bool {
	switch t {
	case EntityPerson, EntityProject, EntityTopic, EntityTool, EntityLocation, EntityEvent:
		return true
	}
	return false
}

// EntityConnection is a weighted, undirected relationship between two
// entities. Consolidation creates or strengthens connections for entity
// pairs that co-occur across thoughts; the weight is the co-occurrence
// count.
type EntityConnection struct {
	From      string    `json:"from"`
	To        string    `json:"to"`
	Weight    int       `json:"weight"`
	UpdatedAt time.Time `json:"updated_at"`
}

// EntityPair is an unordered pair of entity names with a co-occurrence
// count, as produced by the consolidation co-occurrence query.
type EntityPair struct {
	A     string `json:"a"`
	B     string `json:"b"`
	Count int    `json:"count"` // Distinct thoughts mentioning both
}

// EntityProfile is the read model returned by entity profile queries:
// the entity plus its interaction history and connected entities.
type EntityProfile struct {
	Entity           Entity   `json:"entity"`
	InteractionCount int      `json:"interaction_count"`
	Connections      []string `json:"connections"`
}
