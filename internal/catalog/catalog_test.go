package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, nil, 0o644))
}

func TestScanFindsRecognizedExtensions(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "coads.nc"))
	touch(t, filepath.Join(root, "sub", "svim.h5"))
	touch(t, filepath.Join(root, "sub", "aggregate.ncml"))
	touch(t, filepath.Join(root, "notes.txt"))
	touch(t, filepath.Join(root, ".hidden.nc"))

	entries, err := Scan(root)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	byRoute := make(map[string]Entry, len(entries))
	for _, e := range entries {
		byRoute[e.Route] = e
	}

	require.Equal(t, KindDataset, byRoute["coads"].Kind)
	require.Equal(t, KindDataset, byRoute["sub/svim"].Kind)
	require.Equal(t, KindAggregate, byRoute["sub/aggregate"].Kind)
}

func TestScanSkipsDotDirectories(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, ".git", "hidden.nc"))
	touch(t, filepath.Join(root, "visible.nc"))

	entries, err := Scan(root)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "visible", entries[0].Route)
}

func TestScanResultsAreSorted(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "zed.nc"))
	touch(t, filepath.Join(root, "alpha.nc"))

	entries, err := Scan(root)
	require.NoError(t, err)
	require.Equal(t, []string{"alpha", "zed"}, []string{entries[0].Route, entries[1].Route})
}

func TestRenderListsOneRoutePerLine(t *testing.T) {
	text := Render([]Entry{{Route: "a"}, {Route: "b"}})
	require.Equal(t, "a\nb\n", text)
}
