package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "dapd.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadResolvesRelativePaths(t *testing.T) {
	path := writeConfig(t, `
addr = ":8001"

[[datasets]]
route = "coads"
path = "coads.nc4"

[[datasets]]
route = "svim"
ncml = "svim/aggregate.ncml"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, ":8001", cfg.Addr)
	require.Len(t, cfg.Datasets, 2)
	require.Equal(t, filepath.Join(filepath.Dir(path), "coads.nc4"), cfg.Datasets[0].Path)
	require.False(t, cfg.Datasets[0].IsAggregate())
	require.Equal(t, filepath.Join(filepath.Dir(path), "svim/aggregate.ncml"), cfg.Datasets[1].NCML)
	require.True(t, cfg.Datasets[1].IsAggregate())
}

func TestLoadRejectsBothPathAndNcml(t *testing.T) {
	path := writeConfig(t, `
[[datasets]]
route = "bad"
path = "a.nc4"
ncml = "a.ncml"
`)
	_, err := Load(path)
	require.ErrorIs(t, err, ErrDatasetSource)
}

func TestLoadRejectsNeitherPathNorNcml(t *testing.T) {
	path := writeConfig(t, `
[[datasets]]
route = "bad"
`)
	_, err := Load(path)
	require.ErrorIs(t, err, ErrDatasetSource)
}

func TestLoadRejectsMissingRoute(t *testing.T) {
	path := writeConfig(t, `
[[datasets]]
path = "a.nc4"
`)
	_, err := Load(path)
	require.ErrorIs(t, err, ErrMissingRoute)
}

func TestLoadRejectsDuplicateRoute(t *testing.T) {
	path := writeConfig(t, `
[[datasets]]
route = "a"
path = "a.nc4"

[[datasets]]
route = "a"
path = "b.nc4"
`)
	_, err := Load(path)
	require.ErrorIs(t, err, ErrDuplicateRoute)
}

func TestLoadAbsolutePathsUnchanged(t *testing.T) {
	path := writeConfig(t, `
[[datasets]]
route = "abs"
path = "/data/abs.nc4"
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "/data/abs.nc4", cfg.Datasets[0].Path)
}
