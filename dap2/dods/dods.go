// Package dods assembles a constrained DDS and a data source into the DODS
// wire format: DDS text, the "Data:" separator, then one length-prefixed
// XDR payload per projected variable.
package dods

import (
	"context"
	"fmt"

	"github.com/scigolib/dapd/dap2"
	"github.com/scigolib/dapd/dap2/dds"
	"github.com/scigolib/dapd/dap2/xdr"
)

const separator = "\n\nData:\n"

type state int

const (
	stateWriteDDS state = iota
	stateWriteSeparator
	stateNextVariable
	stateWriteLengthPrefix
	stateWritePayload
	stateDone
	stateFailed
)

// leaf is one emitted payload: a single variable's details, already
// flattened out of its Plain/Structure/Grid wrapper.
type leaf struct {
	details dds.VariableDetails
}

// Assembler pulls the DODS byte stream for one projection, one chunk at a
// time. It is not safe for concurrent use by multiple goroutines.
type Assembler struct {
	ctx    context.Context
	source dap2.Source

	ddsText string
	leaves  []leaf

	state           state
	leafIdx         int
	cur             dap2.ByteStream
	curLeaf         leaf
	nativeBigEndian bool
	pending         []byte
	err             error
}

// New builds an Assembler for projected against source. The constrained DDS
// text it emits first is rendered here once, via projected.Render().
func New(ctx context.Context, projected *dds.Projected, source dap2.Source) *Assembler {
	return &Assembler{
		ctx:     ctx,
		source:  source,
		ddsText: projected.Render(),
		leaves:  flatten(projected),
	}
}

func flatten(p *dds.Projected) []leaf {
	var leaves []leaf
	for _, cv := range p.Variables {
		switch cv.Kind {
		case dds.KindPlain:
			leaves = append(leaves, leaf{details: cv.Plain})
		case dds.KindStructure:
			leaves = append(leaves, leaf{details: cv.Member})
		case dds.KindGrid:
			leaves = append(leaves, leaf{details: cv.Array})
			for _, m := range cv.Maps {
				leaves = append(leaves, leaf{details: m})
			}
		}
	}
	return leaves
}

// ContentLength is the exact total byte count the assembler will produce:
// the DDS text, the separator, and every payload's framed size.
func ContentLength(p *dds.Projected) int64 {
	return int64(len(p.Render())) + int64(len(separator)) + int64(p.DodsSize())
}

// Next advances to the next chunk. It returns false once the stream is
// exhausted or a read error has occurred; check Err to distinguish the two.
func (a *Assembler) Next() bool {
	for {
		switch a.state {
		case stateWriteDDS:
			a.pending = []byte(a.ddsText)
			a.state = stateWriteSeparator
			return true

		case stateWriteSeparator:
			a.pending = []byte(separator)
			a.state = stateNextVariable
			return true

		case stateNextVariable:
			if a.leafIdx >= len(a.leaves) {
				a.state = stateDone
				continue
			}
			a.curLeaf = a.leaves[a.leafIdx]
			a.leafIdx++

			if a.curLeaf.details.VarType == dds.String {
				return a.fail(fmt.Errorf("%w: %s", dap2.ErrUnsupportedType, a.curLeaf.details.Name))
			}

			if a.curLeaf.details.IsScalar() {
				if err := a.openStream(); err != nil {
					return a.fail(err)
				}
				a.state = stateWritePayload
				continue
			}
			a.state = stateWriteLengthPrefix
			continue

		case stateWriteLengthPrefix:
			prefix := xdr.Length(uint32(a.curLeaf.details.Len()))
			a.pending = prefix[:]
			if err := a.openStream(); err != nil {
				return a.fail(err)
			}
			a.state = stateWritePayload
			return true

		case stateWritePayload:
			if a.cur.Next() {
				chunk := a.cur.Bytes()
				a.pending = xdr.Serialize(a.curLeaf.details.VarType, a.nativeBigEndian, chunk)
				return true
			}
			if err := a.cur.Err(); err != nil {
				return a.fail(fmt.Errorf("%w: %s: %v", dap2.ErrRead, a.curLeaf.details.Name, err))
			}
			a.state = stateNextVariable
			continue

		case stateDone, stateFailed:
			return false
		}
	}
}

func (a *Assembler) openStream() error {
	nativeBE, _, stream, err := a.source.StreamVariable(a.ctx, a.curLeaf.details)
	if err != nil {
		return err
	}
	a.cur = stream
	a.nativeBigEndian = nativeBE
	return nil
}

func (a *Assembler) fail(err error) bool {
	a.err = err
	a.state = stateFailed
	return false
}

// Bytes returns the chunk most recently produced by Next.
func (a *Assembler) Bytes() []byte { return a.pending }

// Err reports the read error that terminated the stream, if any.
func (a *Assembler) Err() error { return a.err }
