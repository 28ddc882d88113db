package circuit

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

// HCL circuit description schema:
//
//	project = "demo"
//
//	sheet "root" {
//	  component "R1" {
//	    symbol    = "Device:R"
//	    value     = "10k"
//	    footprint = "Resistor_SMD:R_0603_1608Metric"
//	    dnp       = false
//	    properties = { MPN = "RC0603FR-0710KL" }
//	    at        = [63.5, 44.45]
//	    rotation  = 90
//	    identity  = "..."   # written back by the synchronizer
//	  }
//	  net "VCC" {
//	    connect = ["R1.1", "C1.1"]
//	  }
//	  sheet "power" { ... }
//	}

type hclFile struct {
	Project string      `hcl:"project,optional"`
	Sheets  []*hclSheet `hcl:"sheet,block"`
}

type hclSheet struct {
	Name       string          `hcl:"name,label"`
	Components []*hclComponent `hcl:"component,block"`
	Nets       []*hclNet       `hcl:"net,block"`
	Sheets     []*hclSheet     `hcl:"sheet,block"`
}

type hclComponent struct {
	Reference  string            `hcl:"reference,label"`
	Symbol     string            `hcl:"symbol"`
	Value      string            `hcl:"value,optional"`
	Footprint  string            `hcl:"footprint,optional"`
	DNP        bool              `hcl:"dnp,optional"`
	Properties map[string]string `hcl:"properties,optional"`
	At         []float64         `hcl:"at,optional"`
	Rotation   float64           `hcl:"rotation,optional"`
	Identity   string            `hcl:"identity,optional"`
}

type hclNet struct {
	Name    string   `hcl:"name,label"`
	Connect []string `hcl:"connect"`
}

// LoadFile parses an HCL circuit description into a Design
func LoadFile(path string) (*Design, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse circuit file %s: %w", path, diags)
	}

	var parsed hclFile
	if diags := gohcl.DecodeBody(file.Body, nil, &parsed); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode circuit file %s: %w", path, diags)
	}

	return buildDesign(&parsed, path)
}

// LoadSource parses an in-memory HCL circuit description. The filename is
// used for diagnostics only.
func LoadSource(src []byte, filename string) (*Design, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse circuit source %s: %w", filename, diags)
	}

	var parsed hclFile
	if diags := gohcl.DecodeBody(file.Body, nil, &parsed); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode circuit source %s: %w", filename, diags)
	}

	return buildDesign(&parsed, filename)
}

func buildDesign(parsed *hclFile, path string) (*Design, error) {
	if len(parsed.Sheets) != 1 {
		return nil, fmt.Errorf("circuit file %s must declare exactly one top-level sheet, found %d", path, len(parsed.Sheets))
	}

	root, err := buildSheet(parsed.Sheets[0])
	if err != nil {
		return nil, err
	}

	project := parsed.Project
	if project == "" {
		base := filepath.Base(path)
		project = strings.TrimSuffix(base, filepath.Ext(base))
	}

	return &Design{
		Project:    project,
		Root:       root,
		SourcePath: path,
	}, nil
}

func buildSheet(h *hclSheet) (*Sheet, error) {
	sheet := &Sheet{Name: h.Name}

	for _, hc := range h.Components {
		comp := &Component{
			Reference:  hc.Reference,
			Symbol:     hc.Symbol,
			Value:      hc.Value,
			Footprint:  hc.Footprint,
			Properties: hc.Properties,
			DNP:        hc.DNP,
			Identity:   hc.Identity,
		}
		if len(hc.At) > 0 {
			if len(hc.At) != 2 {
				return nil, fmt.Errorf("component %s: at wants [x, y], got %d values", hc.Reference, len(hc.At))
			}
			comp.Placement = &Placement{X: hc.At[0], Y: hc.At[1], Rotation: hc.Rotation}
		}
		sheet.Components = append(sheet.Components, comp)
	}

	for _, hn := range h.Nets {
		net := &Net{Name: hn.Name}
		for _, ep := range hn.Connect {
			endpoint, err := ParseEndpoint(ep)
			if err != nil {
				return nil, fmt.Errorf("net %s: %w", hn.Name, err)
			}
			net.Endpoints = append(net.Endpoints, endpoint)
		}
		sheet.Nets = append(sheet.Nets, net)
	}

	for _, hs := range h.Sheets {
		child, err := buildSheet(hs)
		if err != nil {
			return nil, err
		}
		sheet.Children = append(sheet.Children, child)
	}

	return sheet, nil
}
