package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{EnvDatabase, EnvLogLevel, EnvLogFormat, EnvCompensation} {
		t.Setenv(k, "")
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, DefaultDatabase, cfg.Database)
	assert.Equal(t, "transaction", cfg.Compensation)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_NoFile(t *testing.T) {
	clearEnv(t)
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_YAML(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join("testdata", "drillstore.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "show.db", cfg.Database)
	assert.Equal(t, "replay", cfg.Compensation)
	assert.Equal(t, []string{"marchers", "pages"}, cfg.Tables)
	assert.Len(t, cfg.Bootstrap, 2)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_CUE(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join("testdata", "drillstore.cue"))
	require.NoError(t, err)

	assert.Equal(t, "show.db", cfg.Database)
	assert.Equal(t, "transaction", cfg.Compensation)
	assert.Equal(t, []string{"marchers", "pages"}, cfg.Tables)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoad_CUEConstraintViolation(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "bad.cue")
	require.NoError(t, os.WriteFile(path, []byte(`
#Table: =~"^[a-z_]+$"
tables: [...#Table] & ["Marchers"]
`), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvDatabase, "/tmp/override.db")
	t.Setenv(EnvCompensation, "transaction")
	t.Setenv(EnvLogLevel, "error")

	cfg, err := Load(filepath.Join("testdata", "drillstore.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "/tmp/override.db", cfg.Database)
	assert.Equal(t, "transaction", cfg.Compensation)
	assert.Equal(t, "error", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format, "unset variables leave the file value")
}

func TestLoad_UnknownFieldRejected(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "typo.yaml")
	require.NoError(t, os.WriteFile(path, []byte("databse: x.db\n"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_MissingFile(t *testing.T) {
	clearEnv(t)
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidate_CollectsAllFailures(t *testing.T) {
	cfg := &Config{
		Database:     "x.db",
		Compensation: "hope",
		Tables:       []string{"pages", "pages", " "},
		Log:          LogConfig{Level: "loud", Format: "xml"},
	}

	err := cfg.Validate()
	require.Error(t, err)
	for _, want := range []string{"compensation", "log.level", "log.format", "listed twice", "empty table name"} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestParse_EmptyYAML(t *testing.T) {
	cfg, err := Parse([]byte("  \n"), ".yaml")
	require.NoError(t, err)
	assert.Equal(t, &Config{}, cfg)
}
