package pii

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeRedactsCredentialsAndPII(t *testing.T) {
	s := NewSanitizer()

	input := "email sarah@example.com my key sk-abcdefghij1234567890abcd and call 415-555-0142"
	sanitized, mapping := s.Sanitize(input)

	assert.NotContains(t, sanitized, "sarah@example.com")
	assert.NotContains(t, sanitized, "sk-abcdefghij1234567890abcd")
	assert.NotContains(t, sanitized, "415-555-0142")
	assert.Contains(t, sanitized, "[REDACTED_EMAIL_1]")
	assert.Contains(t, sanitized, "[REDACTED_OPENAI_KEY_1]")
	assert.Contains(t, sanitized, "[REDACTED_PHONE_1]")
	assert.Len(t, mapping, 3)
}

func TestSanitizeRepeatedValueSharesPlaceholder(t *testing.T) {
	s := NewSanitizer()

	sanitized, mapping := s.Sanitize("ping bob@work.io then cc bob@work.io again")
	assert.Equal(t, 2, strings.Count(sanitized, "[REDACTED_EMAIL_1]"))
	assert.Len(t, mapping, 1)
}

func TestSanitizeCleanTextUntouched(t *testing.T) {
	s := NewSanitizer()

	input := "remember to water the plants on Tuesday"
	sanitized, mapping := s.Sanitize(input)
	assert.Equal(t, input, sanitized)
	assert.Empty(t, mapping)
}

func TestRestoreRoundTrip(t *testing.T) {
	s := NewSanitizer()

	input := "SSN is 123-45-6789, card 4111 1111 1111 1111"
	sanitized, mapping := s.Sanitize(input)
	require.NotEqual(t, input, sanitized)

	restored := s.Restore(sanitized, mapping)
	assert.Equal(t, input, restored)
}

func TestRestoreModelEchoesPlaceholder(t *testing.T) {
	s := NewSanitizer()

	_, mapping := s.Sanitize("reach me at dev@corp.net")
	response := "I will send the reminder to [REDACTED_EMAIL_1] tonight."
	assert.Equal(t, "I will send the reminder to dev@corp.net tonight.",
		s.Restore(response, mapping))
}

func TestVaultTakeConsumesMapping(t *testing.T) {
	v := NewVault()
	v.Put("req-1", map[string]string{"[REDACTED_EMAIL_1]": "a@b.co"})

	m := v.Take("req-1")
	require.NotNil(t, m)
	assert.Equal(t, "a@b.co", m["[REDACTED_EMAIL_1]"])
	assert.Nil(t, v.Take("req-1"))

	v.Put("req-2", nil)
	assert.Nil(t, v.Take("req-2"))
}
