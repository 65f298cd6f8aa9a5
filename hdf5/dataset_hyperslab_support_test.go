package hdf5

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFillHyperslabDefaults(t *testing.T) {
	sel := &HyperslabSelection{Start: []uint64{0, 0}, Count: []uint64{5, 5}}
	fillHyperslabDefaults(sel, 2)
	require.Equal(t, []uint64{1, 1}, sel.Stride)
	require.Equal(t, []uint64{1, 1}, sel.Block)
}

func TestValidateHyperslabSelectionOutOfBounds(t *testing.T) {
	sel := &HyperslabSelection{Start: []uint64{8}, Count: []uint64{5}}
	err := validateHyperslabSelection(sel, []uint64{10})
	require.Error(t, err)
}

func TestValidateHyperslabSelectionDimensionMismatch(t *testing.T) {
	sel := &HyperslabSelection{Start: []uint64{0, 0}, Count: []uint64{1, 1}}
	err := validateHyperslabSelection(sel, []uint64{10})
	require.Error(t, err)
}

func TestValidateHyperslabSelectionOK(t *testing.T) {
	sel := &HyperslabSelection{Start: []uint64{2}, Count: []uint64{3}}
	err := validateHyperslabSelection(sel, []uint64{10})
	require.NoError(t, err)
	require.Equal(t, []uint64{1}, sel.Stride)
}

func TestCalculateHyperslabOutputSize(t *testing.T) {
	sel := &HyperslabSelection{Count: []uint64{2, 3}, Block: []uint64{2, 1}}
	require.Equal(t, uint64(12), calculateHyperslabOutputSize(sel))
}

func TestCalculateHyperslabOutputSizeEmpty(t *testing.T) {
	sel := &HyperslabSelection{}
	require.Equal(t, uint64(0), calculateHyperslabOutputSize(sel))
}

func TestCalculateLinearOffset(t *testing.T) {
	require.Equal(t, uint64(23), calculateLinearOffset([]uint64{2, 3}, []uint64{10, 10}))
}

func TestExtractHyperslabRecursiveOneD(t *testing.T) {
	raw := []byte{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}
	out := make([]byte, 3)
	idx := uint64(0)
	sel := &HyperslabSelection{Start: []uint64{2}, Count: []uint64{3}, Stride: []uint64{1}, Block: []uint64{1}}
	extractHyperslabRecursive(raw, out, []uint64{10}, sel, []uint64{2}, 0, 1, &idx)
	require.Equal(t, []byte{2, 3, 4}, out)
	require.Equal(t, uint64(3), idx)
}

func TestExtractHyperslabRecursiveStrided(t *testing.T) {
	raw := []byte{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}
	out := make([]byte, 3)
	idx := uint64(0)
	sel := &HyperslabSelection{Start: []uint64{0}, Count: []uint64{3}, Stride: []uint64{3}, Block: []uint64{1}}
	extractHyperslabRecursive(raw, out, []uint64{10}, sel, []uint64{0}, 0, 1, &idx)
	require.Equal(t, []byte{0, 3, 6}, out)
}

func TestFindOverlappingChunksSingleChunk(t *testing.T) {
	sel := &HyperslabSelection{Start: []uint64{0, 0}, Count: []uint64{2, 2}, Stride: []uint64{1, 1}, Block: []uint64{1, 1}}
	chunks := findOverlappingChunks(sel, []uint32{4, 4}, []uint64{8, 8})
	require.Len(t, chunks, 1)
	require.Equal(t, []uint64{0, 0}, chunks[0])
}

func TestFindOverlappingChunksSpansTwo(t *testing.T) {
	sel := &HyperslabSelection{Start: []uint64{3}, Count: []uint64{4}, Stride: []uint64{1}, Block: []uint64{1}}
	chunks := findOverlappingChunks(sel, []uint32{4}, []uint64{16})
	require.Len(t, chunks, 2)
	require.Equal(t, []uint64{0}, chunks[0])
	require.Equal(t, []uint64{1}, chunks[1])
}

func TestChunkCoordsToKey(t *testing.T) {
	require.Equal(t, "1,2,3", chunkCoordsToKey([]uint64{1, 2, 3}))
}

func TestExtractChunkPortionCopiesOverlap(t *testing.T) {
	chunkData := []byte{10, 11, 12, 13}
	out := make([]byte, 4)
	idx := uint64(0)
	sel := &HyperslabSelection{Start: []uint64{0}, Count: []uint64{4}, Stride: []uint64{1}, Block: []uint64{1}}
	extractChunkPortion(chunkData, []uint64{0}, []uint32{4}, []uint64{4}, sel, 1, out, &idx)
	require.Equal(t, []byte{10, 11, 12, 13}, out)
	require.Equal(t, uint64(4), idx)
}
