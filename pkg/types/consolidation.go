package types

import "time"

// ConsolidationRun is the persisted summary of one nightly consolidation
// cycle: per-sub-task counts plus any sub-task errors.
type ConsolidationRun struct {
	RanAt                   time.Time `json:"ran_at"`
	ProfilesUpdated         int       `json:"profiles_updated"`
	ConnectionsStrengthened int       `json:"connections_strengthened"`
	RedundantMarked         int       `json:"redundant_marked"`
	ReviewQueueUpdated      int       `json:"review_queue_updated"`
	Errors                  []string  `json:"errors,omitempty"`
}

// SimilarPair is a pair of near-duplicate thoughts found by the
// similarity-pair finder, ordered so that A was created before B.
type SimilarPair struct {
	A          string  `json:"a"` // Earlier thought ID
	B          string  `json:"b"` // Later thought ID
	Similarity float64 `json:"similarity"`
}
