package dds

import (
	"fmt"
	"strings"
)

// Render produces the DDS text for a projection, using the same grammar as
// Dataset.All but with the projected (possibly sliced) sizes.
func (p *Projected) Render() string {
	var b strings.Builder
	b.WriteString("Dataset {\n")
	for _, cv := range p.Variables {
		b.WriteString(p.renderOne(cv))
	}
	b.WriteString("} " + p.Dataset.Name + ";\n")
	return b.String()
}

func (p *Projected) renderOne(cv ConstrainedVariable) string {
	switch cv.Kind {
	case KindPlain:
		return p.renderPlain(cv.Plain)
	case KindStructure:
		return p.renderStructure(cv.Parent, cv.Member)
	case KindGrid:
		return p.renderProjectedGrid(cv)
	default:
		return ""
	}
}

func sizesOf(axes []Axis) map[string]uint64 {
	sizes := make(map[string]uint64, len(axes))
	for _, a := range axes {
		sizes[a.Name] = a.Count
	}
	return sizes
}

func (p *Projected) renderPlain(v VariableDetails) string {
	if v.IsScalar() {
		return fmt.Sprintf("%s%s %s;\n", indentUnit, v.VarType, v.Name)
	}

	dims, ok := p.Dataset.Lookup(v.Name)
	var dimNames []string
	if ok {
		dimNames = dims.Dims
	} else {
		for _, a := range v.Axes {
			dimNames = append(dimNames, a.Name)
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s%s %s", indentUnit, v.VarType, v.Name)
	sizes := sizesOf(v.Axes)
	for _, dim := range dimNames {
		fmt.Fprintf(&b, "[%s = %d]", dim, sizes[dim])
	}
	b.WriteString(";\n")
	return b.String()
}

func (p *Projected) renderStructure(parent string, member VariableDetails) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%sStructure {\n", indentUnit)
	fmt.Fprintf(&b, "%s%s%s %s", indentUnit, indentUnit, member.VarType, member.Name)
	for _, a := range member.Axes {
		fmt.Fprintf(&b, "[%s = %d]", a.Name, a.Count)
	}
	b.WriteString(";\n")
	fmt.Fprintf(&b, "%s} %s;\n", indentUnit, parent)
	return b.String()
}

func (p *Projected) renderProjectedGrid(cv ConstrainedVariable) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%sGrid {\n", indentUnit)
	fmt.Fprintf(&b, "%s ARRAY:\n", indentUnit)
	fmt.Fprintf(&b, "%s%s%s %s", indentUnit, indentUnit, cv.Array.VarType, cv.Array.Name)
	for _, a := range cv.Array.Axes {
		fmt.Fprintf(&b, "[%s = %d]", a.Name, a.Count)
	}
	b.WriteString(";\n")
	fmt.Fprintf(&b, "%s MAPS:\n", indentUnit)
	for _, m := range cv.Maps {
		fmt.Fprintf(&b, "%s%s %s", indentUnit, m.VarType, m.Name)
		for _, a := range m.Axes {
			fmt.Fprintf(&b, "[%s = %d]", a.Name, a.Count)
		}
		b.WriteString(";\n")
	}
	fmt.Fprintf(&b, "%s} %s;\n", indentUnit, cv.Array.Name)
	return b.String()
}
