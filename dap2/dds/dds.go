// Package dds models the OPeNDAP Data Description Structure: the graph of
// variables and dimensions a dataset exposes, its unconstrained rendering,
// and its projection against a parsed constraint.
package dds

import (
	"errors"
	"fmt"
	"strings"
)

// VarType is the wire vocabulary of a DDS variable.
type VarType int

// The ten vartypes a DDS variable can declare.
const (
	Byte VarType = iota
	Int16
	UInt16
	Int32
	UInt32
	Int64
	UInt64
	Float32
	Float64
	String
)

// String renders the DAP/2 type keyword, as used in both DAS and DDS text.
func (t VarType) String() string {
	switch t {
	case Byte:
		return "Byte"
	case Int16:
		return "Int16"
	case UInt16:
		return "UInt16"
	case Int32:
		return "Int32"
	case UInt32:
		return "UInt32"
	case Int64:
		return "Int64"
	case UInt64:
		return "UInt64"
	case Float32:
		return "Float32"
	case Float64:
		return "Float64"
	case String:
		return "String"
	default:
		return "Unknown"
	}
}

// WireSize is the per-element size of this type once on the wire: 16-bit
// integers are widened to 32 bits, everything else keeps its native size.
func (t VarType) WireSize() int {
	switch t {
	case Byte:
		return 1
	case Int16, UInt16, Int32, UInt32, Float32:
		return 4
	case Int64, UInt64, Float64:
		return 8
	default:
		return 0
	}
}

// ErrUnknownVariable is returned when a constraint references a name absent
// from the dataset.
var ErrUnknownVariable = errors.New("unknown variable")

// Variable is one declared array or scalar in a dataset, in the order it
// was added to the Dataset.
type Variable struct {
	Name    string
	VarType VarType
	Dims    []string // dimension names, outermost first; empty for scalars.
}

// IsScalar reports whether the variable carries no dimensions.
func (v Variable) IsScalar() bool {
	return len(v.Dims) == 0
}

// Dataset is an ordered collection of variables plus the sizes of every
// dimension name they reference.
type Dataset struct {
	Name      string
	variables []Variable
	byName    map[string]int
	dimSize   map[string]uint64
}

// NewDataset builds a Dataset from variables in declaration order and a
// dimension-name-to-size map (typically gathered from each dimension's own
// coordinate variable, or supplied directly by the caller).
func NewDataset(name string, variables []Variable, dimSize map[string]uint64) *Dataset {
	ds := &Dataset{
		Name:      name,
		variables: variables,
		byName:    make(map[string]int, len(variables)),
		dimSize:   dimSize,
	}
	for i, v := range variables {
		if _, exists := ds.byName[v.Name]; !exists {
			ds.byName[v.Name] = i
		}
	}
	return ds
}

// Variables returns the dataset's variables in declaration order.
func (d *Dataset) Variables() []Variable {
	return d.variables
}

// DimSize returns a dimension's declared size and whether it is known.
func (d *Dataset) DimSize(name string) (uint64, bool) {
	n, ok := d.dimSize[name]
	return n, ok
}

// Lookup returns the variable named name and whether it exists.
func (d *Dataset) Lookup(name string) (Variable, bool) {
	i, ok := d.byName[name]
	if !ok {
		return Variable{}, false
	}
	return d.variables[i], true
}

// IsCoordinate reports whether v is a coordinate variable: rank 1 and its
// single dimension shares its own name.
func (d *Dataset) IsCoordinate(v Variable) bool {
	return len(v.Dims) == 1 && v.Dims[0] == v.Name
}

// IsGrid reports whether v qualifies as a grid: rank > 1 and every one of
// its dimension names also names a variable in the dataset.
func (d *Dataset) IsGrid(v Variable) bool {
	if len(v.Dims) <= 1 {
		return false
	}
	for _, dim := range v.Dims {
		if _, ok := d.byName[dim]; !ok {
			return false
		}
	}
	return true
}

const indentUnit = "    "

// All renders the dataset's unconstrained DDS text: one declaration block
// per variable in declaration order, wrapped in a top-level "Dataset { }".
func (d *Dataset) All() string {
	var b strings.Builder
	b.WriteString("Dataset {\n")
	for _, v := range d.variables {
		b.WriteString(d.renderVariable(v, nil))
	}
	b.WriteString("} " + d.Name + ";\n")
	return b.String()
}

// renderVariable renders one declaration the way Dataset.All/project does,
// with an optional override of each dimension's rendered size (nil means
// use the full declared size).
func (d *Dataset) renderVariable(v Variable, sizes map[string]uint64) string {
	switch {
	case v.IsScalar():
		return fmt.Sprintf("%s%s %s;\n", indentUnit, v.VarType, v.Name)
	case d.IsGrid(v):
		return d.renderGrid(v, sizes)
	default:
		return fmt.Sprintf("%s%s %s%s;\n", indentUnit, v.VarType, v.Name, d.renderDimBrackets(v, sizes))
	}
}

func (d *Dataset) renderDimBrackets(v Variable, sizes map[string]uint64) string {
	var b strings.Builder
	for _, dim := range v.Dims {
		size := sizes[dim]
		if size == 0 {
			size, _ = d.DimSize(dim)
		}
		fmt.Fprintf(&b, "[%s = %d]", dim, size)
	}
	return b.String()
}

func (d *Dataset) renderGrid(v Variable, sizes map[string]uint64) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%sGrid {\n", indentUnit)
	fmt.Fprintf(&b, "%s ARRAY:\n", indentUnit)
	fmt.Fprintf(&b, "%s%s%s %s%s;\n", indentUnit, indentUnit, v.VarType, v.Name, d.renderDimBrackets(v, sizes))
	fmt.Fprintf(&b, "%s MAPS:\n", indentUnit)
	for _, dim := range v.Dims {
		mapVar, ok := d.byName[dim]
		if !ok {
			continue
		}
		b.WriteString(d.renderVariable(d.variables[mapVar], sizes))
	}
	fmt.Fprintf(&b, "%s} %s;\n", indentUnit, v.Name)
	return b.String()
}
