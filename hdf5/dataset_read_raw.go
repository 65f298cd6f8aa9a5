package hdf5

import (
	"fmt"

	"github.com/scigolib/dapd/hdf5/internal/core"
)

// ReadHyperslabRaw reads a hyperslab selection and returns its elements as
// raw native-endian bytes, preserving the dataset's on-disk datatype instead
// of converting the values to float64. Callers that
// need to stream a variable's exact wire representation (rather than inspect
// its values) should use this instead.
func (d *Dataset) ReadHyperslabRaw(selection *HyperslabSelection) ([]byte, error) {
	header, err := core.ReadObjectHeader(d.file.osFile, d.address, d.file.sb)
	if err != nil {
		return nil, fmt.Errorf("failed to read object header: %w", err)
	}

	msgs, err := extractHyperslabMessages(header)
	if err != nil {
		return nil, err
	}
	parsed, err := parseHyperslabMessages(msgs, d.file.sb)
	if err != nil {
		return nil, err
	}

	fillHyperslabDefaults(selection, len(parsed.dataspace.Dimensions))
	if err := validateHyperslabSelection(selection, parsed.dataspace.Dimensions); err != nil {
		return nil, err
	}

	elementSize := uint64(parsed.datatype.Size)
	outputElements := calculateHyperslabOutputSize(selection)
	if outputElements == 0 {
		return []byte{}, nil
	}
	outputData := make([]byte, outputElements*elementSize)

	switch {
	case parsed.layout.IsCompact():
		coords := make([]uint64, len(parsed.dataspace.Dimensions))
		copy(coords, selection.Start)
		outputIdx := uint64(0)
		extractHyperslabRecursive(parsed.layout.CompactData, outputData, parsed.dataspace.Dimensions,
			selection, coords, 0, elementSize, &outputIdx)
		return outputData, nil

	case parsed.layout.IsContiguous():
		return d.readContiguousRaw(selection, parsed, elementSize, outputData)

	case parsed.layout.IsChunked():
		return d.readChunkedRaw(selection, parsed, elementSize, outputData)

	default:
		return nil, fmt.Errorf("unsupported layout class: %d", parsed.layout.Class)
	}
}

func (d *Dataset) readContiguousRaw(
	selection *HyperslabSelection,
	parsed *parsedHyperslabMessages,
	elementSize uint64,
	outputData []byte,
) ([]byte, error) {
	dims := parsed.dataspace.Dimensions

	total := uint64(1)
	for _, size := range dims {
		total *= size
	}

	rawData := make([]byte, total*elementSize)
	//nolint:gosec // G115: HDF5 addresses fit in int64 for io.ReaderAt interface
	if _, err := d.file.osFile.ReadAt(rawData, int64(parsed.layout.DataAddress)); err != nil {
		return nil, fmt.Errorf("failed to read contiguous data: %w", err)
	}

	coords := make([]uint64, len(dims))
	copy(coords, selection.Start)
	outputIdx := uint64(0)
	extractHyperslabRecursive(rawData, outputData, dims, selection, coords, 0, elementSize, &outputIdx)
	return outputData, nil
}

func (d *Dataset) readChunkedRaw(
	selection *HyperslabSelection,
	parsed *parsedHyperslabMessages,
	elementSize uint64,
	outputData []byte,
) ([]byte, error) {
	dims := parsed.dataspace.Dimensions
	chunkDims := parsed.layout.ChunkSize

	overlapping := findOverlappingChunks(selection, chunkDims, dims)
	if len(overlapping) == 0 {
		return outputData, nil
	}

	btreeNode, err := core.ParseBTreeV1Node(d.file.osFile, parsed.layout.DataAddress, d.file.sb.OffsetSize, len(chunkDims), chunkDims)
	if err != nil {
		return nil, fmt.Errorf("failed to parse chunk B-tree: %w", err)
	}

	chunkIndex := make(map[string]chunkIndexEntry)
	allChunks, err := btreeNode.CollectAllChunks(d.file.osFile, d.file.sb.OffsetSize, chunkDims)
	if err != nil {
		return nil, fmt.Errorf("failed to get chunk index: %w", err)
	}
	for _, chunk := range allChunks {
		key := chunkCoordsToKey(chunk.Key.Scaled[:len(dims)])
		chunkIndex[key] = chunkIndexEntry{address: chunk.Address, nbytes: uint64(chunk.Key.Nbytes)}
	}

	outputIdx := uint64(0)
	for _, chunkCoord := range overlapping {
		err := d.extractFromChunk(chunkCoord, chunkIndex, chunkDims, dims, selection,
			parsed.datatype, parsed.filterPipeline, outputData, &outputIdx)
		if err != nil {
			return nil, fmt.Errorf("failed to extract from chunk %v: %w", chunkCoord, err)
		}
	}
	return outputData, nil
}
