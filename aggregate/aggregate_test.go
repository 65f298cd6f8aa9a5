package aggregate

import (
	"context"
	"encoding/binary"
	"math"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/scigolib/dapd/dap2/das"
	"github.com/scigolib/dapd/dap2/dds"
)

func float64Bytes(values ...float64) []byte {
	buf := make([]byte, 8*len(values))
	for i, v := range values {
		binary.BigEndian.PutUint64(buf[i*8:i*8+8], math.Float64bits(v))
	}
	return buf
}

func newAggregateForTest(t *testing.T, janN, febN uint64) (*Aggregate, string, string) {
	t.Helper()

	janDds := newTimeDataset("jan", int(janN))
	febDds := newTimeDataset("feb", int(febN))

	janPath := t.TempDir() + "/jan.nc4"
	febPath := t.TempDir() + "/feb.nc4"
	require.NoError(t, os.WriteFile(janPath, nil, 0o644))
	require.NoError(t, os.WriteFile(febPath, nil, 0o644))
	janInfo, err := os.Stat(janPath)
	require.NoError(t, err)
	febInfo, err := os.Stat(febPath)
	require.NoError(t, err)

	janTimes := make([]float64, janN)
	for i := range janTimes {
		janTimes[i] = float64(i)
	}
	febTimes := make([]float64, febN)
	for i := range febTimes {
		febTimes[i] = float64(janN) + float64(i)
	}
	janTemps := make([]float64, janN)
	febTemps := make([]float64, febN)
	for i := range janTemps {
		janTemps[i] = 100 + float64(i)
	}
	for i := range febTemps {
		febTemps[i] = 200 + float64(i)
	}

	janSrc := &fakeSource{
		das: &das.Model{},
		dds: janDds,
		data: map[string][]byte{
			"time":       float64Bytes(janTimes...),
			"temp":       float64Bytes(janTemps...),
			"station_id": {7},
		},
		bigEndian:   true,
		elementSize: 8,
	}
	febSrc := &fakeSource{
		das: &das.Model{},
		dds: febDds,
		data: map[string][]byte{
			"time":       float64Bytes(febTimes...),
			"temp":       float64Bytes(febTemps...),
			"station_id": {9},
		},
		bigEndian:   true,
		elementSize: 8,
	}

	members := []*Member{
		{Path: janPath, Source: janSrc, ModTime: janInfo.ModTime(), N: janN, Rank: 0},
		{Path: febPath, Source: febSrc, ModTime: febInfo.ModTime(), N: febN, Rank: float64(janN)},
	}

	a := &Aggregate{dimension: "time", members: members}
	a.offsets = cumulativeOffsets(members)
	a.das = members[0].Source.Das()
	a.dds = buildAggregateDDS(members[0].Source.Dds(), "time", a.totalN())
	require.NoError(t, a.buildCoordinateCache())

	return a, janPath, febPath
}

func TestCumulativeOffsets(t *testing.T) {
	members := []*Member{{N: 31}, {N: 28}, {N: 31}}
	offsets := cumulativeOffsets(members)
	require.Equal(t, []uint64{0, 31, 59, 90}, offsets)
}

func TestBuildAggregateDDSWidensAggregationDimension(t *testing.T) {
	first := newTimeDataset("jan", 31)
	out := buildAggregateDDS(first, "time", 59)
	n, ok := out.DimSize("time")
	require.True(t, ok)
	require.Equal(t, uint64(59), n)
}

func TestMemberRangeWithinSingleMember(t *testing.T) {
	a := &Aggregate{offsets: []uint64{0, 31, 59}, members: make([]*Member, 2)}
	first, last, err := a.memberRange(5, 10)
	require.NoError(t, err)
	require.Equal(t, 0, first)
	require.Equal(t, 0, last)
}

func TestMemberRangeSpansTwoMembers(t *testing.T) {
	a := &Aggregate{offsets: []uint64{0, 31, 59}, members: make([]*Member, 2)}
	first, last, err := a.memberRange(25, 10)
	require.NoError(t, err)
	require.Equal(t, 0, first)
	require.Equal(t, 1, last)
}

func TestMemberRangeOutOfBounds(t *testing.T) {
	a := &Aggregate{offsets: []uint64{0, 31, 59}, members: make([]*Member, 2)}
	_, _, err := a.memberRange(50, 20)
	require.ErrorIs(t, err, dds.ErrSlabOutOfBounds)
}

func TestLocalSelectionClampsToMemberExtent(t *testing.T) {
	a := &Aggregate{offsets: []uint64{0, 31, 59}, members: []*Member{{N: 31}, {N: 28}}}
	localStart, localCount := a.localSelection(0, 25, 10)
	require.Equal(t, uint64(25), localStart)
	require.Equal(t, uint64(6), localCount)
}

func TestStreamVariableDelegatesNonAggregatedVariableToFirstMember(t *testing.T) {
	a, _, _ := newAggregateForTest(t, 3, 2)
	be, es, stream, err := a.StreamVariable(context.Background(), dds.VariableDetails{
		Name:    "station_id",
		VarType: dds.Byte,
	})
	require.NoError(t, err)
	require.True(t, be)
	require.Equal(t, 8, es)

	var got []byte
	for stream.Next() {
		got = append(got, stream.Bytes()...)
	}
	require.NoError(t, stream.Err())
	require.Equal(t, []byte{7}, got)
}

func TestStreamVariableAggregatedAxisWithinSingleMember(t *testing.T) {
	a, _, _ := newAggregateForTest(t, 3, 2)
	_, _, stream, err := a.StreamVariable(context.Background(), dds.VariableDetails{
		Name:    "temp",
		VarType: dds.Float64,
		Axes:    []dds.Axis{{Name: "time", Start: 0, Count: 3, Stride: 1}},
	})
	require.NoError(t, err)

	var got []byte
	for stream.Next() {
		got = append(got, stream.Bytes()...)
	}
	require.NoError(t, stream.Err())
	require.Equal(t, float64Bytes(100, 101, 102), got)
}

func TestStreamVariableSpansMembersForAggregatedAxis(t *testing.T) {
	a, _, _ := newAggregateForTest(t, 3, 2)
	_, _, stream, err := a.StreamVariable(context.Background(), dds.VariableDetails{
		Name:    "temp",
		VarType: dds.Float64,
		Axes:    []dds.Axis{{Name: "time", Start: 2, Count: 2, Stride: 1}},
	})
	require.NoError(t, err)

	var got []byte
	for stream.Next() {
		got = append(got, stream.Bytes()...)
	}
	require.NoError(t, stream.Err())
	require.Equal(t, float64Bytes(102, 200), got)
}

func TestStreamVariableCoordinateCacheServesDirectly(t *testing.T) {
	a, _, _ := newAggregateForTest(t, 3, 2)
	_, _, stream, err := a.StreamVariable(context.Background(), dds.VariableDetails{
		Name:    "time",
		VarType: dds.Float64,
		Axes:    []dds.Axis{{Name: "time", Start: 1, Count: 3, Stride: 1}},
	})
	require.NoError(t, err)

	var got []byte
	for stream.Next() {
		got = append(got, stream.Bytes()...)
	}
	require.NoError(t, stream.Err())
	require.Equal(t, float64Bytes(1, 2, 3), got)
}

func TestStreamVariableRejectsStridedAggregationAxis(t *testing.T) {
	a, _, _ := newAggregateForTest(t, 3, 2)
	_, _, _, err := a.StreamVariable(context.Background(), dds.VariableDetails{
		Name:    "temp",
		VarType: dds.Float64,
		Axes:    []dds.Axis{{Name: "time", Start: 0, Count: 2, Stride: 2}},
	})
	require.ErrorIs(t, err, ErrStridedAxis)
}

func TestStreamVariableDetectsMemberChanged(t *testing.T) {
	a, janPath, _ := newAggregateForTest(t, 3, 2)

	future := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(janPath, future, future))

	_, _, _, err := a.StreamVariable(context.Background(), dds.VariableDetails{
		Name:    "temp",
		VarType: dds.Float64,
		Axes:    []dds.Axis{{Name: "time", Start: 0, Count: 1, Stride: 1}},
	})
	require.ErrorIs(t, err, ErrMemberChanged)
}

func TestStreamVariableUnknownVariable(t *testing.T) {
	a, _, _ := newAggregateForTest(t, 3, 2)
	_, _, _, err := a.StreamVariable(context.Background(), dds.VariableDetails{Name: "nope"})
	require.ErrorIs(t, err, dds.ErrUnknownVariable)
}
