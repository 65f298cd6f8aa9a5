package aggregate

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/scigolib/dapd/dap2"
	"github.com/scigolib/dapd/dap2/das"
	"github.com/scigolib/dapd/dap2/dds"
	"github.com/scigolib/dapd/dataset"
)

// memberSource is the subset of *dataset.Dataset's API an aggregate member
// needs. It is satisfied structurally so tests can substitute a fake
// without opening a real file.
type memberSource interface {
	Das() *das.Model
	Dds() *dds.Dataset
	dap2.Source
}

// Member is one file joined into an aggregate: its backing dataset plus
// the bookkeeping the join-existing algorithm needs to route and
// freshness-check reads against it.
type Member struct {
	Path    string
	Source  memberSource
	ModTime time.Time
	N       uint64  // size of the aggregation dimension in this member
	Rank    float64 // value[0] of the aggregation dimension's coordinate variable
}

// openMember opens path as a dataset and records its aggregation-relevant
// metadata: mtime, the aggregation dimension's size, and its rank (the
// coordinate variable's first value).
func openMember(path, dimension string) (*Member, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("aggregate: stat %s: %w", path, err)
	}

	ds, err := dataset.Open(path, path)
	if err != nil {
		return nil, fmt.Errorf("aggregate: open member %s: %w", path, err)
	}

	n, ok := ds.Dds().DimSize(dimension)
	if !ok {
		ds.Close()
		return nil, fmt.Errorf("aggregate: %s: dimension %q not found", path, dimension)
	}

	rank, err := readRank(ds, dimension)
	if err != nil {
		ds.Close()
		return nil, fmt.Errorf("aggregate: %s: %w", path, err)
	}

	return &Member{
		Path:    path,
		Source:  ds,
		ModTime: info.ModTime(),
		N:       n,
		Rank:    rank,
	}, nil
}

// readRank streams the first element of dimension's coordinate variable
// and decodes it as a float64, matching the original importer's reliance
// on numeric coordinate ordering regardless of the variable's wire type.
func readRank(ds memberSource, dimension string) (float64, error) {
	v, ok := ds.Dds().Lookup(dimension)
	if !ok {
		return 0, fmt.Errorf("aggregate: no coordinate variable named %q", dimension)
	}

	bigEndian, elementSize, stream, err := ds.StreamVariable(context.Background(), dds.VariableDetails{
		Name:    dimension,
		VarType: v.VarType,
		Axes:    []dds.Axis{{Name: dimension, Start: 0, Count: 1, Stride: 1}},
	})
	if err != nil {
		return 0, fmt.Errorf("reading rank: %w", err)
	}

	buf := make([]byte, 0, elementSize)
	for stream.Next() {
		buf = append(buf, stream.Bytes()...)
	}
	if err := stream.Err(); err != nil {
		return 0, fmt.Errorf("reading rank: %w", err)
	}
	if len(buf) < elementSize {
		return 0, fmt.Errorf("reading rank: short read: got %d bytes, want %d", len(buf), elementSize)
	}

	return decodeRank(v.VarType, bigEndian, buf)
}

func decodeRank(vt dds.VarType, bigEndian bool, data []byte) (float64, error) {
	order := byteOrder(bigEndian)

	switch vt {
	case dds.Byte:
		return float64(data[0]), nil
	case dds.Int16:
		//nolint:gosec // wire format requires uint16 to int16 conversion
		return float64(int16(order.Uint16(data))), nil
	case dds.UInt16:
		return float64(order.Uint16(data)), nil
	case dds.Int32:
		//nolint:gosec // wire format requires uint32 to int32 conversion
		return float64(int32(order.Uint32(data))), nil
	case dds.UInt32:
		return float64(order.Uint32(data)), nil
	case dds.Int64:
		//nolint:gosec // wire format requires uint64 to int64 conversion
		return float64(int64(order.Uint64(data))), nil
	case dds.UInt64:
		return float64(order.Uint64(data)), nil
	case dds.Float32:
		return float64(math.Float32frombits(order.Uint32(data))), nil
	case dds.Float64:
		return math.Float64frombits(order.Uint64(data)), nil
	default:
		return 0, fmt.Errorf("aggregate: coordinate variable has unsupported type %s", vt)
	}
}

func byteOrder(bigEndian bool) binary.ByteOrder {
	if bigEndian {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

// validateMembersConsistent checks that every member after the first
// declares the same variables, in the same order, with the same types and
// dimension names, and agrees with the first member on every dimension's
// size except dimension.
func validateMembersConsistent(members []*Member, dimension string) error {
	first := members[0].Source.Dds()
	firstVars := first.Variables()

	for _, m := range members[1:] {
		vars := m.Source.Dds().Variables()
		if len(vars) != len(firstVars) {
			return fmt.Errorf("%w: %s has %d variables, first member has %d", ErrInconsistentMembers, m.Path, len(vars), len(firstVars))
		}
		for i, v := range vars {
			want := firstVars[i]
			if v.Name != want.Name || v.VarType != want.VarType || !sameNames(v.Dims, want.Dims) {
				return fmt.Errorf("%w: %s: variable %q does not match first member's %q", ErrInconsistentMembers, m.Path, v.Name, want.Name)
			}
		}
	}

	for _, dim := range dimensionNames(firstVars) {
		if dim == dimension {
			continue
		}
		want, _ := first.DimSize(dim)
		for _, m := range members[1:] {
			got, ok := m.Source.Dds().DimSize(dim)
			if !ok || got != want {
				return fmt.Errorf("%w: %s: dimension %q size %d, first member has %d", ErrInconsistentMembers, m.Path, dim, got, want)
			}
		}
	}

	return nil
}

func sameNames(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func dimensionNames(vars []dds.Variable) []string {
	seen := make(map[string]bool)
	var out []string
	for _, v := range vars {
		for _, d := range v.Dims {
			if !seen[d] {
				seen[d] = true
				out = append(out, d)
			}
		}
	}
	return out
}
