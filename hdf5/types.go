package hdf5

import "github.com/scigolib/dapd/hdf5/internal/core"

// Attribute is an HDF5 attribute as read from an object header: its name,
// datatype, dataspace and raw value bytes.
type Attribute = core.Attribute

// DatatypeMessage describes an HDF5 datatype: its class, size and
// class-specific bit field.
type DatatypeMessage = core.DatatypeMessage

// DatatypeClass identifies the broad family an HDF5 datatype belongs to.
type DatatypeClass = core.DatatypeClass

// DataspaceMessage describes an HDF5 dataspace: its rank and per-dimension
// extents.
type DataspaceMessage = core.DataspaceMessage

// The datatype classes a DAP/2 server needs to distinguish when mapping a
// container's on-disk types to DDS vartypes.
const (
	DatatypeFixed  = core.DatatypeFixed
	DatatypeFloat  = core.DatatypeFloat
	DatatypeString = core.DatatypeString
)
