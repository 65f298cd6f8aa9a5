package das

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderEmpty(t *testing.T) {
	m := &Model{}
	assert.Equal(t, "Attributes {\n}", m.Render())
}

func TestRenderGlobalAndVariableBlocks(t *testing.T) {
	m := &Model{
		Global: []Attribute{
			{Name: "history", Value: StringValue("From coads_climatology")},
		},
		Variables: []Variable{
			{
				Name: "AIRT",
				Attributes: []Attribute{
					{Name: "_FillValue", Value: Float32Value([]float32{-1e34})},
					{Name: "history", Value: StringValue("From coads_climatology")},
				},
			},
		},
	}

	want := "Attributes {\n" +
		"    NC_GLOBAL {\n" +
		"        String history \"From coads_climatology\";\n" +
		"    }\n" +
		"    AIRT {\n" +
		"        Float32 _FillValue -1.0E34;\n" +
		"        String history \"From coads_climatology\";\n" +
		"    }\n" +
		"}"

	assert.Equal(t, want, m.Render())
}

func TestRenderVectorAttribute(t *testing.T) {
	m := &Model{
		Variables: []Variable{
			{
				Name: "SST",
				Attributes: []Attribute{
					{Name: "actual_range", Value: Float32Value([]float32{-1.8, 35.6})},
				},
			},
		},
	}

	want := "Attributes {\n" +
		"    SST {\n" +
		"        Float32 actual_range -1.8E0, +3.56E1;\n" +
		"    }\n" +
		"}"

	assert.Equal(t, want, m.Render())
}

func TestRenderUnimplemented(t *testing.T) {
	m := &Model{
		Variables: []Variable{
			{
				Name: "SST",
				Attributes: []Attribute{
					{Name: "weird_attr", Value: UnimplementedValue("Compound")},
				},
			},
		},
	}

	want := "Attributes {\n" +
		"    SST {\n" +
		"        Unimplemented weird_attr Compound;\n" +
		"    }\n" +
		"}"

	assert.Equal(t, want, m.Render())
}

func TestRenderIntegerAttribute(t *testing.T) {
	m := &Model{
		Variables: []Variable{
			{
				Name: "SST",
				Attributes: []Attribute{
					{Name: "valid_range", Value: Int16Value([]int16{-500, 4000})},
				},
			},
		},
	}

	want := "Attributes {\n" +
		"    SST {\n" +
		"        Int16 valid_range -500, 4000;\n" +
		"    }\n" +
		"}"

	assert.Equal(t, want, m.Render())
}

func TestEscapeStringQuotesAndBackslashes(t *testing.T) {
	assert.Equal(t, `a \"quoted\" \\ value`, escapeString(`a "quoted" \ value`))
}

func TestFormatFloatE(t *testing.T) {
	assert.Equal(t, "-1.0E34", formatFloatE(-1e34, 32))
	assert.Equal(t, "+1.0E34", formatFloatE(1e34, 32))
	assert.Equal(t, "+0.0E0", formatFloatE(0, 32))
}

func TestKnownStructuralAttributesFilterList(t *testing.T) {
	for _, name := range []string{
		"DIMENSION_LIST", "REFERENCE_LIST", "_Netcdf4Dimid",
		"_NCProperties", "CLASS", "NAME", "_nc3_strict",
	} {
		assert.True(t, KnownStructuralAttributes[name], name)
	}
	assert.False(t, KnownStructuralAttributes["history"])
}
