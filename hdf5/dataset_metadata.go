package hdf5

import (
	"github.com/scigolib/dapd/hdf5/internal/core"
)

// Metadata describes a dataset's shape and storage without reading any
// element values; it is what a DAP/2 facade needs to build DAS/DDS entries.
type Metadata struct {
	Datatype  *core.DatatypeMessage
	Dataspace *core.DataspaceMessage
	Layout    *core.DataLayoutMessage
}

// Dims returns the dataset's extents, one entry per dimension.
func (m *Metadata) Dims() []uint64 {
	return m.Dataspace.Dimensions
}

// Allocated reports whether the dataset's storage has actually been written.
// A contiguous dataset that was declared but never filled has its data
// address set to the HDF5 "undefined address" sentinel; a chunked dataset
// with no B-tree address has no chunks at all.
func (m *Metadata) Allocated() bool {
	const undefinedAddress = ^uint64(0)

	switch {
	case m.Layout.IsContiguous():
		return m.Layout.DataAddress != undefinedAddress
	case m.Layout.IsChunked():
		return m.Layout.DataAddress != undefinedAddress
	default:
		return true
	}
}

// Metadata reads and parses this dataset's datatype, dataspace and layout
// messages without reading its data.
func (d *Dataset) Metadata() (*Metadata, error) {
	header, err := core.ReadObjectHeader(d.file.osFile, d.address, d.file.sb)
	if err != nil {
		return nil, err
	}

	info, err := core.ReadDatasetInfo(header, d.file.sb)
	if err != nil {
		return nil, err
	}

	return &Metadata{
		Datatype:  info.Datatype,
		Dataspace: info.Dataspace,
		Layout:    info.Layout,
	}, nil
}
