package toolbridge

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const netlistFixture = `(export (version "E")
  (nets
    (net (code "1") (name "EN")
      (node (ref "R1") (pin "2"))
      (node (ref "C1") (pin "1")))
    (net (code "2") (name "GND")
      (node (ref "R1") (pin "1"))
      (node (ref "C1") (pin "2"))
      (node (ref "U1") (pin "3")))))
`

const ercFixture = `{
  "sheets": [
    {
      "uuid_path": "/",
      "violations": [
        {"severity": "error", "type": "pin_not_driven", "description": "Input pin not driven"},
        {"severity": "warning", "type": "lib_symbol_mismatch", "description": "Symbol differs from library"}
      ]
    },
    {"uuid_path": "/abc", "violations": []}
  ]
}`

const partsFixture = `Reference,Value,Footprint,DNP
R1,10k,Resistor_SMD:R_0603_1608Metric,
R2,10k,Resistor_SMD:R_0603_1608Metric,DNP
C1,100n,Capacitor_SMD:C_0603_1608Metric,
`

// fakeRunner writes fixture content to the --output path instead of
// shelling out
func fakeRunner(t *testing.T, content string, fail error) Runner {
	t.Helper()
	return func(ctx context.Context, name string, args ...string) ([]byte, error) {
		for i, arg := range args {
			if arg == "--output" && i+1 < len(args) {
				require.NoError(t, os.WriteFile(args[i+1], []byte(content), 0o644))
			}
		}
		return nil, fail
	}
}

func TestExportNetlist(t *testing.T) {
	b := New("kicad-cli", time.Second)
	b.Run = fakeRunner(t, netlistFixture, nil)

	out := filepath.Join(t.TempDir(), "demo.net")
	netlist, err := b.ExportNetlist(context.Background(), "main.kicad_sch", out)
	require.NoError(t, err)
	require.Len(t, netlist.Nets, 2)

	en := netlist.Net("EN")
	require.NotNil(t, en)
	assert.Equal(t, []NetlistNode{{"R1", "2"}, {"C1", "1"}}, en.Nodes)
	assert.Len(t, netlist.Net("GND").Nodes, 3)
	assert.Nil(t, netlist.Net("MISSING"))
}

func TestExportNetlistToolFailure(t *testing.T) {
	b := New("kicad-cli", time.Second)
	toolErr := &ToolError{Tool: "kicad-cli", Err: fmt.Errorf("exit status 2"), Stderr: "no such file"}
	b.Run = func(ctx context.Context, name string, args ...string) ([]byte, error) {
		return nil, toolErr
	}

	_, err := b.ExportNetlist(context.Background(), "main.kicad_sch", filepath.Join(t.TempDir(), "x.net"))
	var te *ToolError
	require.ErrorAs(t, err, &te)
	assert.Contains(t, te.Error(), "no such file")
}

func TestToolNotFound(t *testing.T) {
	b := New("kicad-cli", time.Second)
	b.Run = func(ctx context.Context, name string, args ...string) ([]byte, error) {
		return nil, fmt.Errorf("%w: kicad-cli", ErrToolNotFound)
	}

	_, err := b.RunERC(context.Background(), "main.kicad_sch", filepath.Join(t.TempDir(), "erc.json"))
	assert.ErrorIs(t, err, ErrToolNotFound)
}

func TestRunERC(t *testing.T) {
	b := New("kicad-cli", time.Second)
	// Violations make the tool exit non-zero while still writing a
	// usable report
	b.Run = fakeRunner(t, ercFixture, &ToolError{Tool: "kicad-cli", Err: fmt.Errorf("exit status 5")})

	report, err := b.RunERC(context.Background(), "main.kicad_sch", filepath.Join(t.TempDir(), "erc.json"))
	require.NoError(t, err)
	require.Len(t, report.Violations, 2)
	assert.Equal(t, 1, report.Errors())
	assert.Equal(t, "pin_not_driven", report.Violations[0].Type)
}

func TestRunERCNoReport(t *testing.T) {
	b := New("kicad-cli", time.Second)
	b.Run = func(ctx context.Context, name string, args ...string) ([]byte, error) {
		return nil, &ToolError{Tool: "kicad-cli", Err: fmt.Errorf("exit status 2")}
	}

	_, err := b.RunERC(context.Background(), "main.kicad_sch", filepath.Join(t.TempDir(), "erc.json"))
	var te *ToolError
	assert.ErrorAs(t, err, &te)
}

func TestExportParts(t *testing.T) {
	b := New("kicad-cli", time.Second)
	b.Run = fakeRunner(t, partsFixture, nil)

	rows, err := b.ExportParts(context.Background(), "main.kicad_sch", filepath.Join(t.TempDir(), "bom.csv"))
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, PartRow{Reference: "R1", Value: "10k", Footprint: "Resistor_SMD:R_0603_1608Metric"}, rows[0])
	assert.True(t, rows[1].DNP)
	assert.False(t, rows[2].DNP)
}

func TestParsePartsCSVMissingReference(t *testing.T) {
	_, err := ParsePartsCSV([]byte("Value,Footprint\n10k,R_0603\n"))
	assert.Error(t, err)
}

func TestParseNetlistErrors(t *testing.T) {
	_, err := ParseNetlist([]byte("(something_else)"))
	assert.Error(t, err)

	_, err = ParseNetlist([]byte("(export (nets"))
	assert.Error(t, err)

	netlist, err := ParseNetlist([]byte(`(export (version "E"))`))
	require.NoError(t, err)
	assert.Empty(t, netlist.Nets)
}

func TestToolErrorUnwrap(t *testing.T) {
	base := errors.New("exit status 1")
	te := &ToolError{Tool: "kicad-cli", Args: []string{"sch", "erc"}, Err: base}
	assert.ErrorIs(t, te, base)
	assert.Contains(t, te.Error(), "sch erc")
}
