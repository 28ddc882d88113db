package schematic

import (
	"strings"
	"testing"
)

func TestParseMinimalSchematic(t *testing.T) {
	input := `(kicad_sch
		(version 20250114)
		(generator "eeschema")
		(generator_version "9.0")
		(uuid "862335ee-c981-4fe1-9eb9-84db19301dd4")
		(paper "A4")
		(lib_symbols)
		(sheet_instances
			(path "/"
				(page "1")
			)
		)
	)`

	sch, err := Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Failed to parse schematic: %v", err)
	}

	if sch.Version != 20250114 {
		t.Errorf("Expected version 20250114, got %d", sch.Version)
	}

	if sch.Generator != "eeschema" {
		t.Errorf("Expected generator 'eeschema', got '%s'", sch.Generator)
	}

	if sch.GeneratorVer != "9.0" {
		t.Errorf("Expected generator version '9.0', got '%s'", sch.GeneratorVer)
	}

	if sch.Paper != "A4" {
		t.Errorf("Expected paper 'A4', got '%s'", sch.Paper)
	}

	if len(sch.SheetInstances()) != 1 {
		t.Errorf("Expected 1 sheet instance, got %d", len(sch.SheetInstances()))
	}
}

func TestParseSchematicWithSymbol(t *testing.T) {
	input := `(kicad_sch
		(version 20231120)
		(generator "eeschema")
		(uuid "test-uuid")
		(paper "A4")
		(lib_symbols
			(symbol "Device:R"
				(property "Reference" "R" (at 0 0 0))
				(property "Value" "R" (at 0 0 0))
			)
		)
		(symbol
			(lib_id "Device:R")
			(at 100 50 0)
			(unit 1)
			(dnp yes)
			(uuid "sym-uuid-1")
			(property "Reference" "R1" (at 100 45 0))
			(property "Value" "10k" (at 100 55 0))
			(property "Footprint" "Resistor_SMD:R_0603_1608Metric" (at 100 50 0))
			(property "MPN" "RC0603FR-0710KL" (at 100 50 0))
			(instances
				(project "demo"
					(path "/root-uuid"
						(reference "R1")
						(unit 1)
					)
				)
			)
		)
	)`

	sch, err := Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Failed to parse schematic: %v", err)
	}

	syms := sch.Symbols()
	if len(syms) != 1 {
		t.Fatalf("Expected 1 symbol instance, got %d", len(syms))
	}

	sym := syms[0]
	if sym.LibID != "Device:R" {
		t.Errorf("Expected lib_id 'Device:R', got '%s'", sym.LibID)
	}
	if sym.UUID != "sym-uuid-1" {
		t.Errorf("Expected uuid 'sym-uuid-1', got '%s'", sym.UUID)
	}
	if sym.Reference() != "R1" {
		t.Errorf("Expected reference 'R1', got '%s'", sym.Reference())
	}
	if sym.Value() != "10k" {
		t.Errorf("Expected value '10k', got '%s'", sym.Value())
	}
	if sym.Footprint() != "Resistor_SMD:R_0603_1608Metric" {
		t.Errorf("Unexpected footprint '%s'", sym.Footprint())
	}
	if !sym.DNP() {
		t.Error("Expected DNP flag set")
	}
	if mpn, ok := sym.Property("MPN"); !ok || mpn != "RC0603FR-0710KL" {
		t.Errorf("Unexpected MPN property: %q (found %v)", mpn, ok)
	}

	pos := sym.Position()
	if pos.X != 100 || pos.Y != 50 {
		t.Errorf("Unexpected position %+v", pos)
	}

	project, path, ok := sym.InstancePath()
	if !ok || project != "demo" || path != "/root-uuid" {
		t.Errorf("Unexpected instance data: %q %q %v", project, path, ok)
	}

	if !sch.HasLibSymbol("Device:R") {
		t.Error("Expected embedded lib symbol Device:R")
	}
	if sch.HasLibSymbol("Device:C") {
		t.Error("Unexpected lib symbol Device:C")
	}

	// GetSymbol helper
	if sch.GetSymbol("R1") == nil {
		t.Error("GetSymbol('R1') returned nil")
	}

	refs := sch.References()
	if len(refs) != 1 || refs[0] != "R1" {
		t.Errorf("Expected refs ['R1'], got %v", refs)
	}
}

func TestParseSchematicWithLabels(t *testing.T) {
	input := `(kicad_sch
		(version 20231120)
		(generator "eeschema")
		(uuid "test-uuid")
		(paper "A4")
		(lib_symbols)
		(label "SENSE" (at 100 50 0)
			(effects (font (size 1.27 1.27)))
			(uuid "label-1")
		)
		(global_label "SPI_CLK" (shape bidirectional) (at 100 100 0)
			(effects (font (size 1.27 1.27)))
			(uuid "glabel-1")
		)
		(hierarchical_label "VIN" (shape input) (at 100 150 0)
			(effects (font (size 1.27 1.27)))
			(uuid "hlabel-1")
		)
	)`

	sch, err := Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Failed to parse schematic: %v", err)
	}

	if n := len(sch.Labels(LabelLocal)); n != 1 {
		t.Errorf("Expected 1 local label, got %d", n)
	}
	if n := len(sch.Labels(LabelGlobal)); n != 1 {
		t.Errorf("Expected 1 global label, got %d", n)
	}
	if n := len(sch.Labels(LabelHier)); n != 1 {
		t.Errorf("Expected 1 hierarchical label, got %d", n)
	}

	if sch.Labels(LabelGlobal)[0].Text != "SPI_CLK" {
		t.Errorf("Unexpected global label text '%s'", sch.Labels(LabelGlobal)[0].Text)
	}

	if len(sch.AllLabels()) != 3 {
		t.Errorf("Expected 3 total labels, got %d", len(sch.AllLabels()))
	}

	if sch.LabelCount(LabelGlobal, "SPI_CLK") != 1 {
		t.Error("LabelCount mismatch for SPI_CLK")
	}
}

func TestPowerSymbolsExcludedFromComponents(t *testing.T) {
	input := `(kicad_sch
		(version 20231120)
		(generator "eeschema")
		(uuid "test-uuid")
		(paper "A4")
		(lib_symbols)
		(symbol
			(lib_id "power:GND")
			(at 50 50 0)
			(uuid "pwr-1")
			(property "Reference" "#PWR01" (at 50 52 0))
			(property "Value" "GND" (at 50 54 0))
		)
		(symbol
			(lib_id "Device:R")
			(at 100 50 0)
			(uuid "sym-1")
			(property "Reference" "R1" (at 100 45 0))
			(property "Value" "10k" (at 100 55 0))
		)
	)`

	sch, err := Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Failed to parse schematic: %v", err)
	}

	if len(sch.Symbols()) != 2 {
		t.Fatalf("Expected 2 symbols, got %d", len(sch.Symbols()))
	}
	if len(sch.Components()) != 1 {
		t.Fatalf("Expected 1 component, got %d", len(sch.Components()))
	}
	if sch.Components()[0].Reference() != "R1" {
		t.Errorf("Unexpected component %s", sch.Components()[0].Reference())
	}

	pwr := sch.PowerSymbols("GND")
	if len(pwr) != 1 || pwr[0].Value() != "GND" {
		t.Errorf("Unexpected power symbols: %v", len(pwr))
	}
}

func TestParseSheetRefs(t *testing.T) {
	input := `(kicad_sch
		(version 20231120)
		(generator "eeschema")
		(uuid "root-uuid")
		(paper "A4")
		(lib_symbols)
		(sheet
			(at 100 50)
			(size 30 20)
			(uuid "sheet-uuid-1")
			(property "Sheetname" "power")
			(property "Sheetfile" "power.kicad_sch")
			(pin "VIN" input (at 100 55 0)
				(uuid "pin-1")
			)
		)
	)`

	sch, err := Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Failed to parse schematic: %v", err)
	}

	refs := sch.SheetRefs()
	if len(refs) != 1 {
		t.Fatalf("Expected 1 sheet ref, got %d", len(refs))
	}
	if refs[0].Name != "power" || refs[0].File != "power.kicad_sch" {
		t.Errorf("Unexpected sheet ref %+v", refs[0])
	}
	if refs[0].UUID != "sheet-uuid-1" {
		t.Errorf("Unexpected sheet uuid %s", refs[0].UUID)
	}

	pins := refs[0].Pins()
	if len(pins) != 1 || pins[0].Name != "VIN" || pins[0].Shape != "input" {
		t.Errorf("Unexpected sheet pins %+v", pins)
	}
}

func TestParseInvalidRoot(t *testing.T) {
	input := `(kicad_pcb (version 20231120))`

	_, err := Parse(strings.NewReader(input))
	if err == nil {
		t.Error("Expected error for wrong root node type")
	}
}

func TestParseUnsupportedVersion(t *testing.T) {
	input := `(kicad_sch (version 20200310))`

	_, err := Parse(strings.NewReader(input))
	if err == nil {
		t.Error("Expected error for pre-6.0 version")
	}
}

func TestNewSheet(t *testing.T) {
	sch := New("fresh-uuid", "0.1.0")

	if sch.UUID != "fresh-uuid" {
		t.Errorf("Unexpected uuid %s", sch.UUID)
	}
	if sch.Generator != GeneratorName {
		t.Errorf("Unexpected generator %s", sch.Generator)
	}
	insts := sch.SheetInstances()
	if len(insts) != 1 || insts[0].Path != "/" || insts[0].Page != "1" {
		t.Errorf("Unexpected sheet instances %+v", insts)
	}
}
