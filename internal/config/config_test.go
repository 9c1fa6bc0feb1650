package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scrypster/cortex/pkg/types"
)

func TestLoadProfileMissingFileIsNil(t *testing.T) {
	profile, err := LoadProfile(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Nil(t, profile)
}

func TestProfileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.yaml")

	saved := DefaultProfile()
	saved.Name = "Alex"
	saved.Biological.Chronotype = types.ChronotypeOwl
	require.NoError(t, SaveProfile(path, saved))

	loaded, err := LoadProfile(path)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, "Alex", loaded.Name)
	assert.Equal(t, types.ChronotypeOwl, loaded.Biological.Chronotype)
	assert.Equal(t, "09:00", loaded.Biological.WorkStart)
}

func TestDefaultProfileFillsDefaults(t *testing.T) {
	p := DefaultProfile()
	assert.Equal(t, types.ChronotypeThirdBird, p.Biological.Chronotype)
	assert.Equal(t, "09:00", p.Biological.WorkStart)
	assert.Equal(t, "18:00", p.Biological.WorkEnd)
	assert.Equal(t, "UTC", p.Biological.Timezone)
	assert.Equal(t, types.StyleDirect, p.Psychological.CommunicationStyle)
}

func TestLoadProfileRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.yaml")
	require.NoError(t, os.WriteFile(path, []byte("{not yaml: ["), 0o600))

	_, err := LoadProfile(path)
	assert.Error(t, err)
}
