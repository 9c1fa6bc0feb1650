package pii

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
)

// Sanitizer redacts personally identifiable information and credentials
// before text leaves the machine for a cloud model tier. Redaction is
// reversible per request: Sanitize returns a placeholder mapping that
// Restore applies to the model's response, and the mapping is never
// persisted.
type Sanitizer struct {
	patterns []pattern
}

type pattern struct {
	label string
	re    *regexp.Regexp
}

// Ordering matters: credentials before generic patterns so an API key
// containing digits is not partially eaten by the phone number rule.
var defaultPatterns = []pattern{
	{"OPENAI_KEY", regexp.MustCompile(`\bsk-[A-Za-z0-9_-]{20,}\b`)},
	{"AWS_KEY", regexp.MustCompile(`\bAKIA[0-9A-Z]{16}\b`)},
	{"BEARER_TOKEN", regexp.MustCompile(`(?i)\bbearer\s+[A-Za-z0-9._~+/-]{16,}=*`)},
	{"CREDIT_CARD", regexp.MustCompile(`\b(?:\d[ -]?){13,16}\b`)},
	{"SSN", regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`)},
	{"EMAIL", regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)},
	{"PHONE", regexp.MustCompile(`\b(?:\+?1[ .-]?)?\(?\d{3}\)?[ .-]?\d{3}[ .-]?\d{4}\b`)},
}

// NewSanitizer creates a sanitizer with the default pattern set.
func NewSanitizer() *Sanitizer {
	return &Sanitizer{patterns: defaultPatterns}
}

// Sanitize replaces every PII match in text with a numbered placeholder
// like [REDACTED_EMAIL_1] and returns the sanitized text plus the
// placeholder -> original mapping. Identical values share a placeholder
// so the model sees consistent references.
func (s *Sanitizer) Sanitize(text string) (string, map[string]string) {
	mapping := make(map[string]string)
	seen := make(map[string]string) // original -> placeholder
	counters := make(map[string]int)

	out := text
	for _, p := range s.patterns {
		out = p.re.ReplaceAllStringFunc(out, func(match string) string {
			if ph, ok := seen[match]; ok {
				return ph
			}
			counters[p.label]++
			ph := fmt.Sprintf("[REDACTED_%s_%d]", p.label, counters[p.label])
			seen[match] = ph
			mapping[ph] = match
			return ph
		})
	}
	return out, mapping
}

// Restore substitutes placeholders in text back to their original values.
// Placeholders the model dropped are simply absent; placeholders it
// echoed are restored verbatim.
func (s *Sanitizer) Restore(text string, mapping map[string]string) string {
	if len(mapping) == 0 {
		return text
	}
	for placeholder, original := range mapping {
		text = strings.ReplaceAll(text, placeholder, original)
	}
	return text
}

// Vault holds in-flight PII mappings keyed by request ID for the round
// trip through a cloud tier. Entries are consumed exactly once.
type Vault struct {
	mu       sync.Mutex
	mappings map[string]map[string]string
}

// NewVault creates an empty vault.
func NewVault() *Vault {
	return &Vault{mappings: make(map[string]map[string]string)}
}

// Put stores the mapping for a request. A nil or empty mapping is not
// stored.
func (v *Vault) Put(requestID string, mapping map[string]string) {
	if len(mapping) == 0 {
		return
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.mappings[requestID] = mapping
}

// Take removes and returns the mapping for a request, or nil if none was
// stored.
func (v *Vault) Take(requestID string) map[string]string {
	v.mu.Lock()
	defer v.mu.Unlock()
	m := v.mappings[requestID]
	delete(v.mappings, requestID)
	return m
}
