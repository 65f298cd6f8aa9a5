package dds

import (
	"errors"
	"fmt"

	"github.com/scigolib/dapd/dap2/constraint"
	"github.com/scigolib/dapd/dap2/hyperslab"
)

// ErrSlabOutOfBounds is returned when a hyperslab's span exceeds the
// dimension it is applied to.
var ErrSlabOutOfBounds = errors.New("slab out of bounds")

// Axis is one dimension's resolved selection: start, element count and
// stride, all in element units.
type Axis struct {
	Name   string
	Start  uint64
	Count  uint64
	Stride uint64
}

// VariableDetails fully describes one leaf of a constrained DDS: the wire
// type and the per-dimension selection to read.
type VariableDetails struct {
	Name    string
	VarType VarType
	Axes    []Axis
}

// IsScalar reports whether this leaf carries no axes.
func (v VariableDetails) IsScalar() bool {
	return len(v.Axes) == 0
}

// Len returns the total element count: the product of every axis's count.
func (v VariableDetails) Len() uint64 {
	n := uint64(1)
	for _, a := range v.Axes {
		n *= a.Count
	}
	return n
}

// Kind distinguishes the three shapes a projected variable can take.
type Kind int

// The three ConstrainedVariable shapes.
const (
	KindPlain Kind = iota
	KindStructure
	KindGrid
)

// ConstrainedVariable is one projected entry, in DDS declaration order.
type ConstrainedVariable struct {
	Kind Kind

	// Plain.
	Plain VariableDetails

	// Structure.
	Parent string
	Member VariableDetails

	// Grid.
	Array VariableDetails
	Maps  []VariableDetails
}

// DodsSize returns the number of data bytes this entry contributes to a
// DODS payload: sum of len*wire_size, plus 8 bytes per non-scalar array for
// its repeated length prefix.
func (cv ConstrainedVariable) DodsSize() uint64 {
	switch cv.Kind {
	case KindPlain:
		return leafSize(cv.Plain)
	case KindStructure:
		return leafSize(cv.Member)
	case KindGrid:
		total := leafSize(cv.Array)
		for _, m := range cv.Maps {
			total += leafSize(m)
		}
		return total
	default:
		return 0
	}
}

func leafSize(v VariableDetails) uint64 {
	size := v.Len() * uint64(v.VarType.WireSize())
	if !v.IsScalar() {
		size += 8
	}
	return size
}

// Projected is the ordered result of projecting a Dataset against a
// constraint.
type Projected struct {
	Dataset   *Dataset
	Variables []ConstrainedVariable
}

// DodsSize sums DodsSize across every projected variable.
func (p *Projected) DodsSize() uint64 {
	var total uint64
	for _, v := range p.Variables {
		total += v.DodsSize()
	}
	return total
}

// Project applies a parsed constraint against the dataset, honoring
// declaration order and first-mention-wins deduplication.
func (d *Dataset) Project(items []constraint.Item) (*Projected, error) {
	if len(items) == 0 {
		return d.projectAll(), nil
	}

	seen := make(map[string]bool, len(items))
	var out []ConstrainedVariable

	for _, item := range items {
		name := item.Variable
		if item.IsStructureMember() {
			name = item.Parent
		}
		if seen[name] {
			continue
		}

		v, ok := d.Lookup(name)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownVariable, name)
		}

		cv, err := d.projectItem(item, v)
		if err != nil {
			return nil, err
		}

		seen[name] = true
		out = append(out, cv)
	}

	// Re-sort into declaration order: the loop above appended in
	// constraint order, which need not match DDS order.
	ordered := make([]ConstrainedVariable, 0, len(out))
	for _, v := range d.variables {
		for _, cv := range out {
			if leafName(cv) == v.Name {
				ordered = append(ordered, cv)
				break
			}
		}
	}

	return &Projected{Dataset: d, Variables: ordered}, nil
}

func leafName(cv ConstrainedVariable) string {
	switch cv.Kind {
	case KindStructure:
		return cv.Parent
	case KindGrid:
		return cv.Array.Name
	default:
		return cv.Plain.Name
	}
}

func (d *Dataset) projectAll() *Projected {
	out := make([]ConstrainedVariable, 0, len(d.variables))
	for _, v := range d.variables {
		cv, err := d.projectItem(constraint.Item{Variable: v.Name}, v)
		if err != nil {
			// Every unconstrained variable is projectable by construction.
			continue
		}
		out = append(out, cv)
	}
	return &Projected{Dataset: d, Variables: out}
}

func (d *Dataset) projectItem(item constraint.Item, v Variable) (ConstrainedVariable, error) {
	if item.IsStructureMember() {
		return d.projectStructureMember(item, v)
	}

	if d.IsGrid(v) {
		return d.projectGrid(v, item.Slab)
	}

	axes, err := d.resolveAxes(v.Dims, item.Slab)
	if err != nil {
		return ConstrainedVariable{}, err
	}

	return ConstrainedVariable{
		Kind: KindPlain,
		Plain: VariableDetails{
			Name:    v.Name,
			VarType: v.VarType,
			Axes:    axes,
		},
	}, nil
}

func (d *Dataset) projectStructureMember(item constraint.Item, parent Variable) (ConstrainedVariable, error) {
	var member Variable
	switch {
	case item.Member == parent.Name:
		member = parent
	default:
		m, ok := d.Lookup(item.Member)
		if !ok || !containsDim(parent.Dims, item.Member) {
			return ConstrainedVariable{}, fmt.Errorf("%w: %q is not a member of %q", ErrUnknownVariable, item.Member, parent.Name)
		}
		member = m
	}

	axes, err := d.resolveAxes(member.Dims, item.Slab)
	if err != nil {
		return ConstrainedVariable{}, err
	}

	return ConstrainedVariable{
		Kind:   KindStructure,
		Parent: parent.Name,
		Member: VariableDetails{
			Name:    member.Name,
			VarType: member.VarType,
			Axes:    axes,
		},
	}, nil
}

func containsDim(dims []string, name string) bool {
	for _, d := range dims {
		if d == name {
			return true
		}
	}
	return false
}

func (d *Dataset) projectGrid(array Variable, slab []hyperslab.Slab) (ConstrainedVariable, error) {
	axes, err := d.resolveAxes(array.Dims, slab)
	if err != nil {
		return ConstrainedVariable{}, err
	}

	maps := make([]VariableDetails, 0, len(array.Dims))
	for i, dim := range array.Dims {
		mapVar, ok := d.Lookup(dim)
		if !ok {
			return ConstrainedVariable{}, fmt.Errorf("%w: %q", ErrUnknownVariable, dim)
		}
		maps = append(maps, VariableDetails{
			Name:    mapVar.Name,
			VarType: mapVar.VarType,
			Axes:    []Axis{axes[i]},
		})
	}

	return ConstrainedVariable{
		Kind: KindGrid,
		Array: VariableDetails{
			Name:    array.Name,
			VarType: array.VarType,
			Axes:    axes,
		},
		Maps: maps,
	}, nil
}

// resolveAxes computes the (start, count, stride) selection for each named
// dimension, applying slab positionally. A nil slab selects the full
// extent of every dimension with stride 1; a non-nil slab must name exactly
// one spec per dimension.
func (d *Dataset) resolveAxes(dims []string, slab []hyperslab.Slab) ([]Axis, error) {
	if slab != nil && len(slab) != len(dims) {
		return nil, fmt.Errorf("%w: %d slab entries for %d dimensions", hyperslab.ErrBadHyperslab, len(slab), len(dims))
	}

	axes := make([]Axis, len(dims))
	for i, dim := range dims {
		size, ok := d.DimSize(dim)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownVariable, dim)
		}

		if slab == nil {
			axes[i] = Axis{Name: dim, Start: 0, Count: size, Stride: 1}
			continue
		}

		s := slab[i]
		if s.End() >= size {
			return nil, fmt.Errorf("%w: dimension %q size %d, end %d", ErrSlabOutOfBounds, dim, size, s.End())
		}
		count, err := s.Count()
		if err != nil {
			return nil, err
		}

		axes[i] = Axis{Name: dim, Start: s.Start(), Count: count, Stride: s.Stride()}
	}

	return axes, nil
}
