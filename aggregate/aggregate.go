// Package aggregate implements NcML "joinExisting" aggregation: presenting
// an ordered set of same-shaped member files as a single virtual dataset
// whose aggregation dimension is the concatenation of each member's.
package aggregate

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/scigolib/dapd/dap2"
	"github.com/scigolib/dapd/dap2/das"
	"github.com/scigolib/dapd/dap2/dds"
)

// Aggregate is a join-existing aggregation of member datasets along a
// single dimension. It satisfies the same Das/Dds/StreamVariable contract
// as *dataset.Dataset so it can be registered and served identically.
type Aggregate struct {
	dimension string
	members   []*Member

	// offsets[i] is the aggregation dimension's cumulative size across
	// members[0:i]; offsets[len(members)] is the aggregate's total size.
	offsets []uint64

	das *das.Model
	dds *dds.Dataset

	// coordCache holds the concatenated, native-endian bytes of the
	// aggregation dimension's coordinate variable, computed once at load.
	// It is always requested and otherwise would require touching every
	// member on every request for it.
	coordCache       []byte
	coordBigEndian   bool
	coordElementSize int
}

// Open loads an NcML join-existing aggregation descriptor at path: it
// discovers member files, opens and ranks them, validates they share a
// variable set, and builds the combined DAS/DDS and coordinate cache. name
// is the catalog route this aggregate is served under; it becomes the
// combined DDS's top-level Dataset name, mirroring dataset.Open.
func Open(path, name string) (*Aggregate, error) {
	dimension, paths, err := parseDescriptor(path)
	if err != nil {
		return nil, err
	}

	members := make([]*Member, 0, len(paths))
	for _, p := range paths {
		m, err := openMember(p, dimension)
		if err != nil {
			closeMembers(members)
			return nil, err
		}
		members = append(members, m)
	}

	sort.SliceStable(members, func(i, j int) bool { return members[i].Rank < members[j].Rank })

	if err := validateMembersConsistent(members, dimension); err != nil {
		closeMembers(members)
		return nil, err
	}

	a := &Aggregate{dimension: dimension, members: members}
	a.offsets = cumulativeOffsets(members)

	a.das = members[0].Source.Das()
	a.dds = buildAggregateDDS(members[0].Source.Dds(), dimension, a.totalN())
	a.dds.Name = name

	if err := a.buildCoordinateCache(); err != nil {
		closeMembers(members)
		return nil, err
	}

	return a, nil
}

func closeMembers(members []*Member) {
	for _, m := range members {
		if c, ok := m.Source.(io.Closer); ok {
			c.Close()
		}
	}
}

// cumulativeOffsets returns offsets[i] = sum of members[0:i].N, with one
// trailing entry equal to the grand total.
func cumulativeOffsets(members []*Member) []uint64 {
	offsets := make([]uint64, len(members)+1)
	var sum uint64
	for i, m := range members {
		offsets[i] = sum
		sum += m.N
	}
	offsets[len(members)] = sum
	return offsets
}

func (a *Aggregate) totalN() uint64 {
	return a.offsets[len(a.offsets)-1]
}

// buildAggregateDDS copies first's variable declarations verbatim and its
// dimension sizes, except dimension's size is replaced by total.
func buildAggregateDDS(first *dds.Dataset, dimension string, total uint64) *dds.Dataset {
	vars := first.Variables()
	dimSize := make(map[string]uint64, len(vars))
	for _, dim := range dimensionNames(vars) {
		n, _ := first.DimSize(dim)
		dimSize[dim] = n
	}
	dimSize[dimension] = total

	return dds.NewDataset(first.Name, append([]dds.Variable(nil), vars...), dimSize)
}

func (a *Aggregate) buildCoordinateCache() error {
	v, ok := a.dds.Lookup(a.dimension)
	if !ok {
		return fmt.Errorf("aggregate: no coordinate variable named %q", a.dimension)
	}

	var buf []byte
	for _, m := range a.members {
		bigEndian, elementSize, stream, err := m.Source.StreamVariable(context.Background(), dds.VariableDetails{
			Name:    a.dimension,
			VarType: v.VarType,
			Axes:    []dds.Axis{{Name: a.dimension, Start: 0, Count: m.N, Stride: 1}},
		})
		if err != nil {
			return fmt.Errorf("aggregate: caching coordinates from %s: %w", m.Path, err)
		}
		a.coordBigEndian, a.coordElementSize = bigEndian, elementSize
		for stream.Next() {
			buf = append(buf, stream.Bytes()...)
		}
		if err := stream.Err(); err != nil {
			return fmt.Errorf("aggregate: caching coordinates from %s: %w", m.Path, err)
		}
	}

	a.coordCache = buf
	return nil
}

// Das returns the aggregate's attribute model: the first member's DAS,
// per the join-existing assumption that members share global metadata.
func (a *Aggregate) Das() *das.Model { return a.das }

// Dds returns the aggregate's variable/dimension graph, with the
// aggregation dimension's size widened to the sum across members.
func (a *Aggregate) Dds() *dds.Dataset { return a.dds }

// Close releases every member's underlying file handle.
func (a *Aggregate) Close() error {
	var first error
	for _, m := range a.members {
		c, ok := m.Source.(io.Closer)
		if !ok {
			continue
		}
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// StreamVariable implements dap2.Source, routing a request either to the
// coordinate cache, across the member files whose aggregation-axis slabs
// it spans, or directly to the first member when the variable does not
// carry the aggregation dimension as its outermost axis.
func (a *Aggregate) StreamVariable(ctx context.Context, details dds.VariableDetails) (bool, int, dap2.ByteStream, error) {
	v, ok := a.dds.Lookup(details.Name)
	if !ok {
		return false, 0, nil, fmt.Errorf("%w: %s", dds.ErrUnknownVariable, details.Name)
	}

	if details.Name == a.dimension && len(details.Axes) == 1 {
		return a.streamFromCoordCache(details.Axes[0])
	}

	if len(v.Dims) > 0 && v.Dims[0] == a.dimension {
		return a.streamAggregatedAxis(ctx, details)
	}

	if err := a.checkFreshness(a.members[0]); err != nil {
		return false, 0, nil, err
	}
	return a.members[0].Source.StreamVariable(ctx, details)
}

func (a *Aggregate) streamFromCoordCache(axis dds.Axis) (bool, int, dap2.ByteStream, error) {
	if axis.Stride != 1 {
		return false, 0, nil, fmt.Errorf("%w: %s", ErrStridedAxis, a.dimension)
	}

	start := axis.Start * uint64(a.coordElementSize)
	n := axis.Count * uint64(a.coordElementSize)
	if start+n > uint64(len(a.coordCache)) {
		return false, 0, nil, fmt.Errorf("%w: %s: requested range exceeds cached coordinates", dap2.ErrRead, a.dimension)
	}

	return a.coordBigEndian, a.coordElementSize, dap2.NewSliceStream(a.coordCache[start:start+n], 0), nil
}

func (a *Aggregate) streamAggregatedAxis(ctx context.Context, details dds.VariableDetails) (bool, int, dap2.ByteStream, error) {
	axis0 := details.Axes[0]
	if axis0.Stride != 1 {
		return false, 0, nil, fmt.Errorf("%w: %s", ErrStridedAxis, details.Name)
	}

	first, last, err := a.memberRange(axis0.Start, axis0.Count)
	if err != nil {
		return false, 0, nil, err
	}

	var buf []byte
	var bigEndian bool
	var elementSize int
	cur, remaining := axis0.Start, axis0.Count

	for i := first; i <= last; i++ {
		m := a.members[i]
		if err := a.checkFreshness(m); err != nil {
			return false, 0, nil, err
		}

		localStart, localCount := a.localSelection(i, cur, remaining)
		axes := make([]dds.Axis, len(details.Axes))
		axes[0] = dds.Axis{Name: axis0.Name, Start: localStart, Count: localCount, Stride: 1}
		copy(axes[1:], details.Axes[1:])

		be, es, stream, err := m.Source.StreamVariable(ctx, dds.VariableDetails{
			Name:    details.Name,
			VarType: details.VarType,
			Axes:    axes,
		})
		if err != nil {
			return false, 0, nil, fmt.Errorf("%w: member %s: %v", dap2.ErrRead, m.Path, err)
		}
		bigEndian, elementSize = be, es

		for stream.Next() {
			buf = append(buf, stream.Bytes()...)
		}
		if err := stream.Err(); err != nil {
			return false, 0, nil, fmt.Errorf("%w: member %s: %v", dap2.ErrRead, m.Path, err)
		}

		cur += localCount
		remaining -= localCount
	}

	return bigEndian, elementSize, dap2.NewSliceStream(buf, 0), nil
}

// memberRange returns the inclusive index range of members overlapping
// the half-open selection [start, start+count) on the aggregation axis.
func (a *Aggregate) memberRange(start, count uint64) (first, last int, err error) {
	end := start + count
	if count == 0 || end > a.totalN() {
		return 0, 0, fmt.Errorf("%w: %s: [%d:%d) exceeds total size %d", dds.ErrSlabOutOfBounds, a.dimension, start, end, a.totalN())
	}

	first = -1
	for i := 0; i < len(a.members); i++ {
		if start < a.offsets[i+1] {
			first = i
			break
		}
	}
	if first == -1 {
		return 0, 0, fmt.Errorf("%w: %s: start %d out of range", dds.ErrSlabOutOfBounds, a.dimension, start)
	}

	last = first
	for last+1 < len(a.members) && end > a.offsets[last+1] {
		last++
	}
	return first, last, nil
}

// localSelection translates a global [cur, cur+remaining) selection into
// member i's own local start/count on the aggregation axis.
func (a *Aggregate) localSelection(i int, cur, remaining uint64) (localStart, localCount uint64) {
	localStart = cur - a.offsets[i]
	available := a.members[i].N - localStart
	localCount = remaining
	if available < localCount {
		localCount = available
	}
	return localStart, localCount
}

func (a *Aggregate) checkFreshness(m *Member) error {
	info, statErr := os.Stat(m.Path)
	if statErr != nil {
		return fmt.Errorf("%w: %s: %v", ErrMemberChanged, m.Path, statErr)
	}
	if !info.ModTime().Equal(m.ModTime) {
		return fmt.Errorf("%w: %s", ErrMemberChanged, m.Path)
	}
	return nil
}
