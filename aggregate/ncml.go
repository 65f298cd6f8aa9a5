package aggregate

import (
	"encoding/xml"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// descriptor is the subset of an NcML document this package understands:
// a single joinExisting aggregation element naming its dimension and
// member files, explicit or discovered by directory scan.
//
// Reference: https://www.unidata.ucar.edu/software/netcdf-java/current/ncml/Aggregation.html
type descriptor struct {
	Aggregation aggregationElement `xml:"aggregation"`
}

type aggregationElement struct {
	Type    string           `xml:"type,attr"`
	DimName string           `xml:"dimName,attr"`
	Netcdf  []netcdfElement  `xml:"netcdf"`
	Scan    []scanElement    `xml:"scan"`
}

type netcdfElement struct {
	Location string `xml:"location,attr"`
}

type scanElement struct {
	Location string `xml:"location,attr"`
	Suffix   string `xml:"suffix,attr"`
	Ignore   string `xml:"ignore,attr"`
}

// parseDescriptor reads an NcML file at path and returns its aggregation
// dimension and the resolved, ordered list of member file paths. Relative
// netcdf/scan locations resolve against path's own directory.
func parseDescriptor(path string) (dimension string, members []string, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", nil, fmt.Errorf("aggregate: read %s: %w", path, err)
	}

	var doc descriptor
	if err := xml.Unmarshal(data, &doc); err != nil {
		return "", nil, fmt.Errorf("aggregate: parse %s: %w", path, err)
	}

	agg := doc.Aggregation
	if agg.Type != "joinExisting" {
		return "", nil, fmt.Errorf("%w: %q", ErrAggregationType, agg.Type)
	}
	if agg.DimName == "" {
		return "", nil, fmt.Errorf("%w: %s", ErrNoDimension, path)
	}

	base := filepath.Dir(path)

	for _, n := range agg.Netcdf {
		if n.Location == "" {
			continue
		}
		members = append(members, resolveMemberPath(base, n.Location))
	}

	for _, s := range agg.Scan {
		if s.Suffix == "" {
			return "", nil, fmt.Errorf("aggregate: scan in %s has no suffix", path)
		}
		found, err := scanMembers(resolveMemberPath(base, s.Location), s.Suffix, s.Ignore)
		if err != nil {
			return "", nil, err
		}
		members = append(members, found...)
	}

	if len(members) == 0 {
		return "", nil, fmt.Errorf("%w: %s", ErrNoMembers, path)
	}

	return agg.DimName, members, nil
}

func resolveMemberPath(base, location string) string {
	if filepath.IsAbs(location) {
		return location
	}
	return filepath.Join(base, location)
}

// scanMembers walks dir for regular files whose name ends in suffix,
// skipping dot-files/dot-directories and any path containing ignore.
// Results are returned in lexical order for deterministic member lists.
func scanMembers(dir, suffix, ignore string) ([]string, error) {
	var found []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		if !strings.HasSuffix(path, suffix) {
			return nil
		}
		if ignore != "" && strings.Contains(path, ignore) {
			return nil
		}
		found = append(found, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("aggregate: scan %s: %w", dir, err)
	}
	sort.Strings(found)
	return found, nil
}
