package dataset

import (
	"fmt"
	"math"

	"github.com/scigolib/dapd/dap2/das"
	"github.com/scigolib/dapd/hdf5"
)

func attrToValue(a *hdf5.Attribute) das.Value {
	if a.Datatype == nil || a.Dataspace == nil {
		return das.UnimplementedValue("Unknown")
	}

	switch a.Datatype.Class {
	case hdf5.DatatypeFixed:
		return fixedAttrValue(a)
	case hdf5.DatatypeFloat:
		return floatAttrValue(a)
	case hdf5.DatatypeString:
		return stringAttrValue(a)
	default:
		return das.UnimplementedValue(fmt.Sprintf("Class%d", a.Datatype.Class))
	}
}

func fixedAttrValue(a *hdf5.Attribute) das.Value {
	n := a.Dataspace.TotalElements()
	order := a.Datatype.GetByteOrder()
	signed := a.Datatype.Signed()

	switch a.Datatype.Size {
	case 1:
		v := make([]uint8, n)
		copy(v, a.Data)
		return das.ByteValue(v)
	case 2:
		if signed {
			v := make([]int16, n)
			for i := range v {
				//nolint:gosec // HDF5 binary format requires uint16 to int16 conversion
				v[i] = int16(order.Uint16(a.Data[i*2 : i*2+2]))
			}
			return das.Int16Value(v)
		}
		v := make([]uint16, n)
		for i := range v {
			v[i] = order.Uint16(a.Data[i*2 : i*2+2])
		}
		return das.UInt16Value(v)
	case 4:
		if signed {
			v := make([]int32, n)
			for i := range v {
				//nolint:gosec // HDF5 binary format requires uint32 to int32 conversion
				v[i] = int32(order.Uint32(a.Data[i*4 : i*4+4]))
			}
			return das.Int32Value(v)
		}
		v := make([]uint32, n)
		for i := range v {
			v[i] = order.Uint32(a.Data[i*4 : i*4+4])
		}
		return das.UInt32Value(v)
	default:
		return das.UnimplementedValue(fmt.Sprintf("Fixed%d", a.Datatype.Size*8))
	}
}

func floatAttrValue(a *hdf5.Attribute) das.Value {
	n := a.Dataspace.TotalElements()
	order := a.Datatype.GetByteOrder()

	switch a.Datatype.Size {
	case 4:
		v := make([]float32, n)
		for i := range v {
			v[i] = math.Float32frombits(order.Uint32(a.Data[i*4 : i*4+4]))
		}
		return das.Float32Value(v)
	case 8:
		v := make([]float64, n)
		for i := range v {
			v[i] = math.Float64frombits(order.Uint64(a.Data[i*8 : i*8+8]))
		}
		return das.Float64Value(v)
	default:
		return das.UnimplementedValue(fmt.Sprintf("Float%d", a.Datatype.Size*8))
	}
}

func stringAttrValue(a *hdf5.Attribute) das.Value {
	if !a.Datatype.IsFixedString() {
		return das.UnimplementedValue("VarString")
	}

	v, err := a.ReadValue()
	if err != nil {
		return das.UnimplementedValue("String")
	}

	switch s := v.(type) {
	case string:
		return das.StringValue(s)
	case []string:
		if len(s) == 0 {
			return das.StringValue("")
		}
		return das.StringValue(s[0])
	default:
		return das.UnimplementedValue("String")
	}
}
