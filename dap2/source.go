// Package dap2 ties together the constraint, DDS, DAS and DODS codecs into
// the contract a dataset backend must satisfy to be served.
package dap2

import (
	"context"
	"errors"

	"github.com/scigolib/dapd/dap2/dds"
)

// ErrRead is returned when a Source's underlying storage fails mid-stream.
// The content-length header the assembler computed up front is no longer
// trustworthy once this happens; the caller should abort the connection
// rather than attempt to pad the response.
var ErrRead = errors.New("dap2: read error")

// ErrUnsupportedType is returned when a caller asks the XDR/streaming core
// to move a String-typed variable: DAP/2 string payloads are not framed
// the way numeric arrays are and this core does not encode them.
var ErrUnsupportedType = errors.New("dap2: unsupported type")

// ByteStream yields the native-endian bytes of one variable's data in
// row-major order, in chunks of arbitrary length. Callers must call Next
// before each Bytes and check Err once Next returns false.
type ByteStream interface {
	Next() bool
	Bytes() []byte
	Err() error
}

// Source adapts a dataset backend to the DODS assembler. Implementations
// must be cheap to reuse across concurrent variables of the same dataset.
type Source interface {
	// StreamVariable opens a byte stream for details, reporting whether the
	// backend's native byte order is already big-endian and the on-disk
	// size of one element. The returned stream's total byte count is
	// exactly details.Len() * elementSize.
	StreamVariable(ctx context.Context, details dds.VariableDetails) (nativeBigEndian bool, elementSize int, stream ByteStream, err error)
}

// SliceStream is a ByteStream over an already-materialized buffer, split
// into chunks of at most chunkSize bytes. It is the adapter most backends
// use when they read a whole selection into memory before streaming it.
type SliceStream struct {
	data      []byte
	chunkSize int
	pos       int
	cur       []byte
}

// NewSliceStream wraps data as a ByteStream, yielding chunks of at most
// chunkSize bytes (the whole buffer in one chunk if chunkSize <= 0).
func NewSliceStream(data []byte, chunkSize int) *SliceStream {
	if chunkSize <= 0 {
		chunkSize = len(data)
		if chunkSize == 0 {
			chunkSize = 1
		}
	}
	return &SliceStream{data: data, chunkSize: chunkSize}
}

// Next advances to the next chunk, returning false once data is exhausted.
func (s *SliceStream) Next() bool {
	if s.pos >= len(s.data) {
		s.cur = nil
		return false
	}
	end := s.pos + s.chunkSize
	if end > len(s.data) {
		end = len(s.data)
	}
	s.cur = s.data[s.pos:end]
	s.pos = end
	return true
}

// Bytes returns the current chunk.
func (s *SliceStream) Bytes() []byte { return s.cur }

// Err always returns nil: a SliceStream cannot fail once constructed.
func (s *SliceStream) Err() error { return nil }
