package aggregate

import (
	"context"
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/scigolib/dapd/dap2"
	"github.com/scigolib/dapd/dap2/das"
	"github.com/scigolib/dapd/dap2/dds"
)

// fakeSource is a canned memberSource for tests that don't need a real
// HDF5 file: Dds/Das return fixed models, StreamVariable serves bytes
// from a per-variable table keyed by variable name.
type fakeSource struct {
	das  *das.Model
	dds  *dds.Dataset
	data map[string][]byte

	bigEndian   bool
	elementSize int
	streamErr   error
}

func (f *fakeSource) Das() *das.Model   { return f.das }
func (f *fakeSource) Dds() *dds.Dataset { return f.dds }

func (f *fakeSource) StreamVariable(_ context.Context, details dds.VariableDetails) (bool, int, dap2.ByteStream, error) {
	if f.streamErr != nil {
		return false, 0, nil, f.streamErr
	}
	raw, ok := f.data[details.Name]
	if !ok {
		return false, 0, nil, errors.New("fakeSource: no data for " + details.Name)
	}

	if len(details.Axes) == 0 {
		return f.bigEndian, f.elementSize, dap2.NewSliceStream(raw, 0), nil
	}

	es := f.elementSize
	start := details.Axes[0].Start * uint64(es)
	n := details.Axes[0].Count * uint64(es)
	return f.bigEndian, es, dap2.NewSliceStream(raw[start:start+n], 0), nil
}

func (f *fakeSource) Close() error { return nil }

func newTimeDataset(name string, n int) *dds.Dataset {
	return dds.NewDataset(name, []dds.Variable{
		{Name: "time", VarType: dds.Float64, Dims: []string{"time"}},
		{Name: "temp", VarType: dds.Float32, Dims: []string{"time"}},
		{Name: "station_id", VarType: dds.Byte},
	}, map[string]uint64{"time": uint64(n)})
}

func TestDecodeRankFloat64BigEndian(t *testing.T) {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, math.Float64bits(31.0))
	got, err := decodeRank(dds.Float64, true, buf)
	require.NoError(t, err)
	require.Equal(t, 31.0, got)
}

func TestDecodeRankInt32LittleEndian(t *testing.T) {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, uint32(42))
	got, err := decodeRank(dds.Int32, false, buf)
	require.NoError(t, err)
	require.Equal(t, 42.0, got)
}

func TestDecodeRankUnsupportedType(t *testing.T) {
	_, err := decodeRank(dds.String, false, nil)
	require.Error(t, err)
}

func TestReadRankUsesFirstElement(t *testing.T) {
	buf := make([]byte, 16)
	binary.LittleEndian.PutUint64(buf[0:8], math.Float64bits(0))
	binary.LittleEndian.PutUint64(buf[8:16], math.Float64bits(31))

	src := &fakeSource{
		dds:         newTimeDataset("jan", 2),
		data:        map[string][]byte{"time": buf},
		elementSize: 8,
	}

	rank, err := readRank(src, "time")
	require.NoError(t, err)
	require.Equal(t, 0.0, rank)
}

func TestValidateMembersConsistentDetectsVariableMismatch(t *testing.T) {
	m1 := &Member{Path: "jan", Source: &fakeSource{dds: newTimeDataset("jan", 31)}}
	other := dds.NewDataset("feb", []dds.Variable{
		{Name: "time", VarType: dds.Float64, Dims: []string{"time"}},
	}, map[string]uint64{"time": 28})
	m2 := &Member{Path: "feb", Source: &fakeSource{dds: other}}

	err := validateMembersConsistent([]*Member{m1, m2}, "time")
	require.ErrorIs(t, err, ErrInconsistentMembers)
}

func TestValidateMembersConsistentAllowsDifferingAggregationDimSize(t *testing.T) {
	m1 := &Member{Path: "jan", Source: &fakeSource{dds: newTimeDataset("jan", 31)}}
	m2 := &Member{Path: "feb", Source: &fakeSource{dds: newTimeDataset("feb", 28)}}

	require.NoError(t, validateMembersConsistent([]*Member{m1, m2}, "time"))
}

func TestValidateMembersConsistentRejectsDifferingOtherDimSize(t *testing.T) {
	m1 := &Member{Path: "a", Source: &fakeSource{dds: dds.NewDataset("a", []dds.Variable{
		{Name: "x", VarType: dds.Float32, Dims: []string{"time", "lat"}},
	}, map[string]uint64{"time": 10, "lat": 5})}}
	m2 := &Member{Path: "b", Source: &fakeSource{dds: dds.NewDataset("b", []dds.Variable{
		{Name: "x", VarType: dds.Float32, Dims: []string{"time", "lat"}},
	}, map[string]uint64{"time": 12, "lat": 6})}}

	err := validateMembersConsistent([]*Member{m1, m2}, "time")
	require.ErrorIs(t, err, ErrInconsistentMembers)
}

func TestDimensionNamesDeduplicates(t *testing.T) {
	names := dimensionNames([]dds.Variable{
		{Name: "x", Dims: []string{"time", "lat"}},
		{Name: "y", Dims: []string{"time", "lon"}},
	})
	require.Equal(t, []string{"time", "lat", "lon"}, names)
}
