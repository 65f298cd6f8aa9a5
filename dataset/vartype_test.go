package dataset

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/scigolib/dapd/dap2/dds"
	"github.com/scigolib/dapd/hdf5"
)

func TestVarTypeOfFixedSizes(t *testing.T) {
	cases := []struct {
		size    uint32
		signed  bool
		want    dds.VarType
	}{
		{1, true, dds.Byte},
		{1, false, dds.Byte},
		{2, true, dds.Int16},
		{2, false, dds.UInt16},
		{4, true, dds.Int32},
		{4, false, dds.UInt32},
		{8, true, dds.Int64},
		{8, false, dds.UInt64},
	}
	for _, c := range cases {
		dt := &hdf5.DatatypeMessage{Class: hdf5.DatatypeFixed, Size: c.size}
		if c.signed {
			dt.ClassBitField = 0x08
		}
		got, err := varTypeOf(dt)
		require.NoError(t, err)
		require.Equal(t, c.want, got)
	}
}

func TestVarTypeOfFloatSizes(t *testing.T) {
	f32, err := varTypeOf(&hdf5.DatatypeMessage{Class: hdf5.DatatypeFloat, Size: 4})
	require.NoError(t, err)
	require.Equal(t, dds.Float32, f32)

	f64, err := varTypeOf(&hdf5.DatatypeMessage{Class: hdf5.DatatypeFloat, Size: 8})
	require.NoError(t, err)
	require.Equal(t, dds.Float64, f64)
}

func TestVarTypeOfString(t *testing.T) {
	got, err := varTypeOf(&hdf5.DatatypeMessage{Class: hdf5.DatatypeString, Size: 16})
	require.NoError(t, err)
	require.Equal(t, dds.String, got)
}

func TestVarTypeOfUnsupportedClass(t *testing.T) {
	_, err := varTypeOf(&hdf5.DatatypeMessage{Class: hdf5.DatatypeClass(6), Size: 0})
	require.True(t, errors.Is(err, errUnsupportedDatatype))
}

func TestVarTypeOfUnsupportedFixedSize(t *testing.T) {
	_, err := varTypeOf(&hdf5.DatatypeMessage{Class: hdf5.DatatypeFixed, Size: 3})
	require.True(t, errors.Is(err, errUnsupportedDatatype))
}
