package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skdltmxn/cxxfilt-go/demangle"
)

func mapLookup(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestDefault(t *testing.T) {
	cfg, err := FromLookup(mapLookup(nil))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, 1, cfg.Jobs)
	assert.Equal(t, ColorAuto, cfg.Color)
	assert.Empty(t, cfg.DemangleOptions())
}

func TestFromLookup(t *testing.T) {
	cfg, err := FromLookup(mapLookup(map[string]string{
		EnvShowElided:      "true",
		EnvNoParams:        "1",
		EnvStripUnderscore: "false",
		EnvJobs:            "4",
		EnvColor:           "never",
		EnvExpandStd:       "",
	}))
	require.NoError(t, err)
	assert.True(t, cfg.ShowElided)
	assert.True(t, cfg.NoParams)
	assert.False(t, cfg.StripUnderscore)
	assert.False(t, cfg.ExpandStd)
	assert.Equal(t, 4, cfg.Jobs)
	assert.Equal(t, ColorNever, cfg.Color)
	assert.Len(t, cfg.DemangleOptions(), 2)
	assert.Equal(t, demangle.Options{ShowElided: true, NoParams: true}, cfg.RenderOptions())
}

func TestFromLookupInvalid(t *testing.T) {
	tests := map[string]string{
		EnvVerbose: "maybe",
		EnvJobs:    "0",
		EnvColor:   "sometimes",
	}
	for key, value := range tests {
		_, err := FromLookup(mapLookup(map[string]string{key: value}))
		require.ErrorIs(t, err, ErrInvalidValue, key)
		assert.Contains(t, err.Error(), value)
	}
}

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("CXXFILT_EXPAND_STD=true\nCXXFILT_JOBS=3\n"), 0o644))
	t.Setenv(EnvJobs, "8")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.True(t, cfg.ExpandStd)
	// the real environment wins over the file
	assert.Equal(t, 8, cfg.Jobs)

	got, err := demangle.Demangle("_Z1fSs", cfg.DemangleOptions()...)
	require.NoError(t, err)
	assert.Equal(t, "f(std::basic_string<char, std::char_traits<char>, std::allocator<char>>)", got)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.env"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
