package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/b-harvest/relbuild/internal/infrastructure/tomlutil"
)

func TestRender_CanonicalLayout(t *testing.T) {
	for name, cfg := range map[string]*FileConfig{
		"empty": {},
		"populated": {
			Platform:      strPtr("linux-arm64"),
			RequireChecks: boolPtr(true),
			Jobs:          intPtr(2),
			Include:       []string{"README.md", "assets/*"},
		},
	} {
		t.Run(name, func(t *testing.T) {
			assert.Empty(t, tomlutil.Check([]byte(Render(cfg))))
		})
	}
}

func TestConfigWriter_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	w := NewConfigWriter(dir)
	assert.False(t, w.Exists())

	in := &FileConfig{
		Platform:  strPtr("darwin-arm64"),
		OutputDir: strPtr("dist"),
		Jobs:      intPtr(0),
		Include:   []string{"LICENSE"},
	}
	require.NoError(t, w.Write(in))
	assert.True(t, w.Exists())

	got, err := LoadFile(w.Path())
	require.NoError(t, err)
	assert.Equal(t, "darwin-arm64", *got.Platform)
	assert.Equal(t, "dist", *got.OutputDir)
	assert.Equal(t, 0, *got.Jobs)
	assert.Equal(t, []string{"LICENSE"}, got.Include)
	assert.Nil(t, got.RequireChecks, "unset keys stay commented out")
}
