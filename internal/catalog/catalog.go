// Package catalog discovers dataset files under a directory root the way
// the NcML member scanner discovers aggregation members (§4.8): a
// filepath.WalkDir sweep filtered by suffix, skipping dot-files, each hit
// becoming a route derived from its path relative to the root.
package catalog

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
)

// Kind distinguishes a discovered file's backing store.
type Kind int

// The two kinds of route a scan can discover.
const (
	KindDataset Kind = iota
	KindAggregate
)

// extensions maps a recognized file suffix to the kind of route it backs.
var extensions = map[string]Kind{
	".nc":   KindDataset,
	".h5":   KindDataset,
	".ncml": KindAggregate,
}

// Entry is one discovered file: its catalog route and its path (root
// joined with the file's path relative to root).
type Entry struct {
	Route string
	Path  string
	Kind  Kind
}

// Scan walks root for files whose extension is recognized, returning one
// Entry per hit, sorted by route. A file's route is its path
// relative to root with the extension stripped and path separators
// normalized to "/".
func Scan(root string) ([]Entry, error) {
	var entries []Entry

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") {
			return nil
		}

		kind, ok := extensions[strings.ToLower(filepath.Ext(path))]
		if !ok {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return fmt.Errorf("catalog: relative path for %s: %w", path, err)
		}

		entries = append(entries, Entry{
			Route: routeName(rel),
			Path:  path,
			Kind:  kind,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("catalog: scan %s: %w", root, err)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Route < entries[j].Route })
	return entries, nil
}

func routeName(rel string) string {
	rel = strings.TrimSuffix(rel, filepath.Ext(rel))
	return filepath.ToSlash(rel)
}

// Render produces the plain-text dataset index body served at GET /data:
// one route per line, in the order given.
func Render(entries []Entry) string {
	var b strings.Builder
	for _, e := range entries {
		b.WriteString(e.Route)
		b.WriteByte('\n')
	}
	return b.String()
}
