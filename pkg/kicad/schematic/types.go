// Package schematic provides typed access to KiCad schematic files
// (.kicad_sch) on top of the lossless sexp document model. Typed views keep
// a handle to their backing node, so mutations rewrite single atoms in
// place and everything the synchronizer does not own survives byte-for-byte.
package schematic

import (
	"github.com/schemaforge/esync/pkg/kicad/sexp"
)

// Re-export shared types from sexp package for convenience
type Position = sexp.Position
type Angle = sexp.Angle
type PositionAngle = sexp.PositionAngle
type Size = sexp.Size

// Well-known property keys
const (
	PropReference = "Reference"
	PropValue     = "Value"
	PropFootprint = "Footprint"
)

// PowerLibPrefix marks symbols that are power ports rather than components
const PowerLibPrefix = "power:"

// Schematic represents one parsed KiCad schematic file
type Schematic struct {
	Doc  *sexp.Document
	root *sexp.List

	Version      int    // File format version
	Generator    string // Generator info (e.g., "eeschema")
	GeneratorVer string // Generator version
	UUID         string // Schematic UUID
	Paper        string // Paper size (e.g., "A4")
}

// SymbolInstance is a symbol placed on the schematic, bound to its node
type SymbolInstance struct {
	node  *sexp.List
	LibID string
	UUID  string
}

// LabelKind distinguishes the three label flavors
type LabelKind int

const (
	LabelLocal LabelKind = iota
	LabelGlobal
	LabelHier
)

func (k LabelKind) String() string {
	switch k {
	case LabelGlobal:
		return "global"
	case LabelHier:
		return "hierarchical"
	default:
		return "local"
	}
}

// nodeKey returns the sexp list key for a label kind
func (k LabelKind) nodeKey() string {
	switch k {
	case LabelGlobal:
		return "global_label"
	case LabelHier:
		return "hierarchical_label"
	default:
		return "label"
	}
}

// LabelNode is a net label on the schematic, bound to its node
type LabelNode struct {
	node *sexp.List
	Kind LabelKind
	Text string
	UUID string
}

// Position returns the label position and rotation
func (l *LabelNode) Position() PositionAngle {
	if atNode, found := sexp.FindNode(l.node, "at"); found {
		pos, _ := sexp.GetPosition(atNode)
		return pos
	}
	return PositionAngle{}
}

// SheetRef is a hierarchical sheet reference placed on a parent sheet
type SheetRef struct {
	node *sexp.List
	Name string
	File string
	UUID string
}

// SheetPin is a hierarchical pin on a sheet reference
type SheetPin struct {
	node  *sexp.List
	Name  string
	Shape string
}

// Pins returns the hierarchical pins of the sheet reference
func (r *SheetRef) Pins() []SheetPin {
	var pins []SheetPin
	for _, pn := range sexp.FindAllNodes(r.node, "pin") {
		pin := SheetPin{node: pn}
		pin.Name, _ = sexp.GetString(pn, 1)
		pin.Shape, _ = sexp.GetString(pn, 2)
		pins = append(pins, pin)
	}
	return pins
}

// SheetInstance is a (path ...) entry under sheet_instances
type SheetInstance struct {
	Path string
	Page string
}
