package dataset

import (
	"fmt"

	"github.com/scigolib/dapd/dap2/dds"
	"github.com/scigolib/dapd/hdf5"
)

// errUnsupportedDatatype marks a container's on-disk datatype as having no
// DAP/2 wire equivalent (compound, enum, opaque, reference, ...).
var errUnsupportedDatatype = fmt.Errorf("dataset: unsupported datatype")

func varTypeOf(dt *hdf5.DatatypeMessage) (dds.VarType, error) {
	switch dt.Class {
	case hdf5.DatatypeFixed:
		switch dt.Size {
		case 1:
			return dds.Byte, nil
		case 2:
			if dt.Signed() {
				return dds.Int16, nil
			}
			return dds.UInt16, nil
		case 4:
			if dt.Signed() {
				return dds.Int32, nil
			}
			return dds.UInt32, nil
		case 8:
			if dt.Signed() {
				return dds.Int64, nil
			}
			return dds.UInt64, nil
		}
	case hdf5.DatatypeFloat:
		switch dt.Size {
		case 4:
			return dds.Float32, nil
		case 8:
			return dds.Float64, nil
		}
	case hdf5.DatatypeString:
		return dds.String, nil
	}
	return 0, fmt.Errorf("%w: class %d size %d", errUnsupportedDatatype, dt.Class, dt.Size)
}
