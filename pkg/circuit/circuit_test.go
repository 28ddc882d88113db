package circuit

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCircuit = `project = "demo"

# Voltage divider feeding the ADC input.
sheet "root" {
  component "R1" {
    symbol    = "Device:R"
    value     = "10k"
    footprint = "Resistor_SMD:R_0603_1608Metric"
    properties = { MPN = "RC0603FR-0710KL" }
  }

  component "R2" {
    symbol    = "Device:R"
    value     = "22k" # bottom leg
    footprint = "Resistor_SMD:R_0603_1608Metric"
    dnp       = true
    at        = [63.5, 44.45]
    rotation  = 90
  }

  net "DIV" {
    connect = ["R1.2", "R2.1"]
  }

  sheet "power" {
    component "C1" {
      symbol    = "Device:C"
      value     = "100n"
      footprint = "Capacitor_SMD:C_0603_1608Metric"
    }

    net "VCC" {
      connect = ["R1.1", "C1.1"]
    }
  }
}
`

func TestLoadSource(t *testing.T) {
	design, err := LoadSource([]byte(sampleCircuit), "demo.ecl")
	require.NoError(t, err)

	assert.Equal(t, "demo", design.Project)
	require.NotNil(t, design.Root)
	assert.Equal(t, "root", design.Root.Name)
	require.Len(t, design.Root.Components, 2)

	r1 := design.Root.Components[0]
	assert.Equal(t, "R1", r1.Reference)
	assert.Equal(t, "Device:R", r1.Symbol)
	assert.Equal(t, "10k", r1.Value)
	assert.Equal(t, "RC0603FR-0710KL", r1.Properties["MPN"])
	assert.Nil(t, r1.Placement, "never-placed component must have no placement")
	assert.Empty(t, r1.Identity, "identity is empty until first persistence")

	r2 := design.Root.Components[1]
	assert.True(t, r2.DNP)
	require.NotNil(t, r2.Placement)
	assert.Equal(t, 63.5, r2.Placement.X)
	assert.Equal(t, 44.45, r2.Placement.Y)
	assert.Equal(t, 90.0, r2.Placement.Rotation)

	require.Len(t, design.Root.Children, 1)
	assert.Equal(t, "power", design.Root.Children[0].Name)

	nets := design.AllNets()
	require.Len(t, nets, 2)
	assert.Equal(t, "DIV", nets[0].Name)
	assert.Equal(t, []Endpoint{{"R1", "2"}, {"R2", "1"}}, nets[0].Endpoints)
	assert.Equal(t, "VCC", nets[1].Name)
}

func TestFindComponent(t *testing.T) {
	design, err := LoadSource([]byte(sampleCircuit), "demo.ecl")
	require.NoError(t, err)

	comp, host := design.FindComponent("C1")
	require.NotNil(t, comp)
	assert.Equal(t, "power", host.Name)

	comp, host = design.FindComponent("R9")
	assert.Nil(t, comp)
	assert.Nil(t, host)
}

func TestParseEndpoint(t *testing.T) {
	ep, err := ParseEndpoint("U1.12")
	require.NoError(t, err)
	assert.Equal(t, Endpoint{Reference: "U1", Pin: "12"}, ep)

	// Pin names can themselves contain dots; the last dot splits
	ep, err = ParseEndpoint("U1.VDD.1")
	require.NoError(t, err)
	assert.Equal(t, "U1.VDD", ep.Reference)

	for _, bad := range []string{"R1", ".1", "R1.", ""} {
		_, err := ParseEndpoint(bad)
		assert.Error(t, err, "expected error for %q", bad)
	}
}

func TestLoadSourceErrors(t *testing.T) {
	_, err := LoadSource([]byte(`project = `), "broken.ecl")
	assert.Error(t, err)

	_, err = LoadSource([]byte(`project = "x"`), "nosheet.ecl")
	assert.Error(t, err, "missing top-level sheet must be rejected")

	bad := `sheet "root" {
	  net "N" { connect = ["R1"] }
	}`
	_, err = LoadSource([]byte(bad), "badnet.ecl")
	assert.Error(t, err)
}

func TestRewritePreservesComments(t *testing.T) {
	edits := []SourceEdit{
		{SheetPath: []string{"root"}, Reference: "R1", SetIdentity: "tok-r1"},
		{SheetPath: []string{"root", "power"}, Reference: "C1", SetIdentity: "tok-c1"},
	}

	out, err := Rewrite([]byte(sampleCircuit), "demo.ecl", edits)
	require.NoError(t, err)

	text := string(out)
	assert.Contains(t, text, `identity = "tok-r1"`)
	assert.Contains(t, text, `identity = "tok-c1"`)

	// Every comment survives, wherever the rewrite landed
	assert.Contains(t, text, "# Voltage divider feeding the ADC input.")
	assert.Contains(t, text, "# bottom leg")

	// Unrelated literals keep their exact source text
	assert.Contains(t, text, `value     = "10k"`)

	// The rewritten source still loads, now with identities carried over
	design, err := LoadSource(out, "demo.ecl")
	require.NoError(t, err)
	comp, _ := design.FindComponent("R1")
	assert.Equal(t, "tok-r1", comp.Identity)
}

func TestRewriteValueAndDNP(t *testing.T) {
	newVal := "47k"
	dnp := true
	out, err := Rewrite([]byte(sampleCircuit), "demo.ecl", []SourceEdit{
		{SheetPath: []string{"root"}, Reference: "R1", SetValue: &newVal, SetDNP: &dnp},
	})
	require.NoError(t, err)

	design, err := LoadSource(out, "demo.ecl")
	require.NoError(t, err)
	comp, _ := design.FindComponent("R1")
	assert.Equal(t, "47k", comp.Value)
	assert.True(t, comp.DNP)
}

func TestRewriteRename(t *testing.T) {
	src := strings.Replace(sampleCircuit, `component "R2"`, `component "R?"`, 1)
	out, err := Rewrite([]byte(src), "demo.ecl", []SourceEdit{
		{SheetPath: []string{"root"}, Reference: "R?", NewReference: "R2"},
	})
	require.NoError(t, err)
	assert.Contains(t, string(out), `component "R2"`)
}

func TestRewriteUnknownComponent(t *testing.T) {
	_, err := Rewrite([]byte(sampleCircuit), "demo.ecl", []SourceEdit{
		{SheetPath: []string{"root"}, Reference: "R99", SetIdentity: "x"},
	})
	assert.Error(t, err)
}
