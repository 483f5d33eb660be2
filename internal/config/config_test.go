package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(old) }) //nolint:errcheck
}

func TestLoad_Defaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "ottawa", cfg.City)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "liveability.db", cfg.Store.DatabaseURL)
	assert.Equal(t, "geojson", cfg.Data.Boundaries.Format)
	assert.Equal(t, "ONS_ID", cfg.Data.Boundaries.IDProperty)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 8, cfg.Build.Concurrency)
	assert.Equal(t, 4, cfg.Fetch.Concurrency)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	yaml := `
city: toronto
store:
  driver: postgres
  database_url: postgres://localhost/liveability
data:
  mapping: custom/mapping.yaml
  datasets:
    - category: park
      path: data/parks.csv
      lat_column: LATITUDE
      lon_column: LONGITUDE
      name_column: NAME
    - category: crime
      path: data/crime.csv
      lat_column: lat
      lon_column: lon
      attr_columns:
        offense: OFFENSE_CATEGORY
      years: 3
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))
	chdir(t, dir)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "toronto", cfg.City)
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "custom/mapping.yaml", cfg.Data.Mapping)
	require.Len(t, cfg.Data.Datasets, 2)
	assert.Equal(t, "crime", cfg.Data.Datasets[1].Category)
	assert.Equal(t, "OFFENSE_CATEGORY", cfg.Data.Datasets[1].AttrCols["offense"])
	assert.InDelta(t, 3.0, cfg.Data.Datasets[1].Years, 1e-9)

	// Untouched keys keep defaults.
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_EnvOverride(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("LIVEABILITY_SERVER_PORT", "9999")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9999, cfg.Server.Port)
}

func TestInitLogger_RejectsBadLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "shout", Format: "json"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse log level")
}

func TestInitLogger_Console(t *testing.T) {
	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
}
