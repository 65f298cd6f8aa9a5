// Package xdr implements the DAP/2 wire codec: length-prefix framing,
// 16-bit widening, and big-endian normalization of in-memory element
// buffers ahead of streaming.
package xdr

import (
	"encoding/binary"

	"github.com/scigolib/dapd/dap2/dds"
)

// Length returns the DAP/2 array length prefix: two big-endian copies of n,
// back to back.
func Length(n uint32) [8]byte {
	var out [8]byte
	binary.BigEndian.PutUint32(out[0:4], n)
	binary.BigEndian.PutUint32(out[4:8], n)
	return out
}

// WidenAndEncode16 widens a buffer of native-endian 16-bit elements to
// 32-bit big-endian elements, sign- or zero-extending per signed.
func WidenAndEncode16(buf []byte, signed bool) []byte {
	n := len(buf) / 2
	out := make([]byte, n*4)
	for i := 0; i < n; i++ {
		u16 := binary.NativeEndian.Uint16(buf[i*2 : i*2+2])

		var wide uint32
		if signed {
			wide = uint32(int32(int16(u16)))
		} else {
			wide = uint32(u16)
		}

		binary.BigEndian.PutUint32(out[i*4:i*4+4], wide)
	}
	return out
}

// ToBigEndianSized performs an in-place byte swap of every element_size-sized
// word in buf if the host is not already big-endian. element_size must be
// one of 1, 2, 4, 8.
func ToBigEndianSized(buf []byte, nativeIsBigEndian bool, elementSize int) {
	if nativeIsBigEndian || elementSize == 1 {
		return
	}
	for off := 0; off+elementSize <= len(buf); off += elementSize {
		word := buf[off : off+elementSize]
		for i, j := 0, elementSize-1; i < j; i, j = i+1, j-1 {
			word[i], word[j] = word[j], word[i]
		}
	}
}

// Serialize converts one chunk of native-endian bytes for vartype into its
// DAP/2 wire form: 16-bit types widen to 32-bit big-endian, everything else
// is byte-swapped to big-endian in place (Byte is a pass-through).
func Serialize(vartype dds.VarType, nativeIsBigEndian bool, buf []byte) []byte {
	switch vartype {
	case dds.Int16:
		return WidenAndEncode16(buf, true)
	case dds.UInt16:
		return WidenAndEncode16(buf, false)
	case dds.Byte:
		return buf
	default:
		out := make([]byte, len(buf))
		copy(out, buf)
		ToBigEndianSized(out, nativeIsBigEndian, vartype.WireSize())
		return out
	}
}
