// Package config loads the TOML server configuration: the listen address
// plus one entry per dataset route, backed either by a single container
// file or an NcML join-existing aggregation descriptor.
package config

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// ErrDatasetSource is returned when a dataset entry names neither or both
// of path/ncml: exactly one backing source must be configured.
var ErrDatasetSource = errors.New("config: dataset must set exactly one of path or ncml")

// ErrMissingRoute is returned when a dataset entry has no route.
var ErrMissingRoute = errors.New("config: dataset entry has no route")

// ErrDuplicateRoute is returned when two dataset entries share a route.
var ErrDuplicateRoute = errors.New("config: duplicate dataset route")

// Dataset is one `[[datasets]]` entry.
type Dataset struct {
	Route string `toml:"route"`
	Path  string `toml:"path"`
	NCML  string `toml:"ncml"`
}

// IsAggregate reports whether this entry is backed by an NcML descriptor
// rather than a single container file.
func (d Dataset) IsAggregate() bool {
	return d.NCML != ""
}

// Source returns the path this entry's backing store is opened from,
// whichever of Path/NCML is set.
func (d Dataset) Source() string {
	if d.IsAggregate() {
		return d.NCML
	}
	return d.Path
}

// Config is the top-level server configuration.
type Config struct {
	Addr     string    `toml:"addr"`
	Datasets []Dataset `toml:"datasets"`
	// Roots are directories the catalog scans for additional .nc/.h5/.ncml
	// files, beyond the explicitly declared Datasets entries.
	Roots []string `toml:"roots"`
}

// Load reads and validates a TOML config file at path, resolving every
// dataset's relative path/ncml against the config file's own directory.
func Load(path string) (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	base := filepath.Dir(path)
	seen := make(map[string]bool, len(cfg.Datasets))

	for i, d := range cfg.Datasets {
		if d.Route == "" {
			return nil, fmt.Errorf("%w: entry %d", ErrMissingRoute, i)
		}
		if seen[d.Route] {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateRoute, d.Route)
		}
		seen[d.Route] = true

		if (d.Path == "") == (d.NCML == "") {
			return nil, fmt.Errorf("%w: route %q", ErrDatasetSource, d.Route)
		}

		if d.Path != "" && !filepath.IsAbs(d.Path) {
			d.Path = filepath.Join(base, d.Path)
		}
		if d.NCML != "" && !filepath.IsAbs(d.NCML) {
			d.NCML = filepath.Join(base, d.NCML)
		}
		cfg.Datasets[i] = d
	}

	for i, root := range cfg.Roots {
		if !filepath.IsAbs(root) {
			cfg.Roots[i] = filepath.Join(base, root)
		}
	}

	return &cfg, nil
}
