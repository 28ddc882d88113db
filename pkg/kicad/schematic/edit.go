package schematic

import (
	"fmt"
	"sort"

	"github.com/schemaforge/esync/pkg/kicad/sexp"
)

// Mutators. Every edit here touches only the nodes it creates or names;
// the rest of the document is reproduced byte-for-byte.

// SymbolSpec describes a new symbol instance to place
type SymbolSpec struct {
	LibID      string
	Reference  string
	Value      string
	Footprint  string
	Properties map[string]string
	At         PositionAngle
	DNP        bool
	UUID       string
	Project    string
	Path       string
}

// AddSymbol places a new symbol instance on the schematic
func (s *Schematic) AddSymbol(spec SymbolSpec) (*SymbolInstance, error) {
	if spec.UUID == "" {
		return nil, fmt.Errorf("symbol %s needs a uuid before first write", spec.Reference)
	}

	node := sexp.Block(sexp.NewList("symbol",
		sexp.Block(sexp.NewList("lib_id", sexp.Str(spec.LibID))),
		sexp.Block(atNode(spec.At)),
		sexp.Block(sexp.NewList("unit", sexp.Sym("1"))),
		sexp.Block(sexp.NewList("in_bom", sexp.Sym("yes"))),
		sexp.Block(sexp.NewList("on_board", sexp.Sym("yes"))),
		sexp.Block(sexp.NewList("dnp", sexp.Sym(yesNo(spec.DNP)))),
		sexp.Block(sexp.NewList("uuid", sexp.Str(spec.UUID))),
	))

	node.Items = append(node.Items,
		propertyNode(PropReference, spec.Reference, Position{X: spec.At.X, Y: spec.At.Y - 5.08}, false),
		propertyNode(PropValue, spec.Value, Position{X: spec.At.X, Y: spec.At.Y + 2.54}, false),
		propertyNode(PropFootprint, spec.Footprint, Position{X: spec.At.X, Y: spec.At.Y}, true),
	)
	for _, key := range sortedKeys(spec.Properties) {
		node.Items = append(node.Items,
			propertyNode(key, spec.Properties[key], Position{X: spec.At.X, Y: spec.At.Y}, true))
	}

	node.Items = append(node.Items, instancesNode(spec.Project, spec.Path, spec.Reference))

	s.insertTopLevel(node)
	return newSymbolInstance(node), nil
}

// RemoveSymbol deletes a symbol instance from the schematic
func (s *Schematic) RemoveSymbol(sym *SymbolInstance) bool {
	return sexp.RemoveChild(s.root, sym.node)
}

// SetProperty updates or adds a property on the symbol. Updating an
// existing property rewrites a single atom.
func (sym *SymbolInstance) SetProperty(key, value string) error {
	for _, pn := range sexp.FindAllNodes(sym.node, "property") {
		k, _ := sexp.GetString(pn, 1)
		if k == key {
			return sexp.SetAtom(pn, 2, value)
		}
	}

	// New property, hidden by default
	pos := sym.Position()
	prop := propertyNode(key, value, Position{X: pos.X, Y: pos.Y}, true)
	if instNode, found := sexp.FindNode(sym.node, "instances"); found {
		sexp.InsertBefore(sym.node, prop, instNode)
	} else {
		sexp.AppendChild(sym.node, prop)
	}
	return nil
}

// SetDNP sets the do-not-populate flag
func (sym *SymbolInstance) SetDNP(dnp bool) error {
	if dnpNode, found := sexp.FindNode(sym.node, "dnp"); found {
		return sexp.SetAtom(dnpNode, 1, yesNo(dnp))
	}

	node := sexp.Block(sexp.NewList("dnp", sexp.Sym(yesNo(dnp))))
	if uuidNode, found := sexp.FindNode(sym.node, "uuid"); found {
		sexp.InsertBefore(sym.node, node, uuidNode)
	} else {
		sexp.AppendChild(sym.node, node)
	}
	return nil
}

// SetInstancePath records (project, hierarchical path) instance data. The
// path must match the sheet's real position in the tree or the host tool
// renders the reference as unresolved.
func (sym *SymbolInstance) SetInstancePath(project, path string) {
	if instNode, found := sexp.FindNode(sym.node, "instances"); found {
		if projNode, found := sexp.FindNode(instNode, "project"); found {
			_ = sexp.SetAtom(projNode, 1, project)
			if pathNode, found := sexp.FindNode(projNode, "path"); found {
				_ = sexp.SetAtom(pathNode, 1, path)
				if refNode, found := sexp.FindNode(pathNode, "reference"); found {
					_ = sexp.SetAtom(refNode, 1, sym.Reference())
				}
				return
			}
		}
		sexp.RemoveChild(sym.node, instNode)
	}
	sexp.AppendChild(sym.node, instancesNode(project, path, sym.Reference()))
}

// AddLabel places a net label. Shape is used for global and hierarchical
// labels ("input", "output", "bidirectional", "passive") and ignored for
// local ones.
func (s *Schematic) AddLabel(kind LabelKind, text, shape string, at PositionAngle, uuid string) *LabelNode {
	node := sexp.Block(sexp.NewList(kind.nodeKey(), sexp.Str(text)))
	if kind != LabelLocal {
		if shape == "" {
			shape = "bidirectional"
		}
		node.Items = append(node.Items, sexp.Block(sexp.NewList("shape", sexp.Sym(shape))))
	}
	node.Items = append(node.Items,
		sexp.Block(atNode(at)),
		sexp.Block(sexp.NewList("effects",
			sexp.Block(sexp.NewList("font",
				sexp.NewList("size", sexp.Num(1.27), sexp.Num(1.27)))),
			sexp.Block(sexp.NewList("justify", sexp.Sym("left"), sexp.Sym("bottom"))),
		)),
		sexp.Block(sexp.NewList("uuid", sexp.Str(uuid))),
	)

	s.insertTopLevel(node)

	label := &LabelNode{node: node, Kind: kind, Text: text, UUID: uuid}
	return label
}

// RemoveLabel deletes a label from the schematic
func (s *Schematic) RemoveLabel(l *LabelNode) bool {
	return sexp.RemoveChild(s.root, l.node)
}

// AddPowerSymbol places a power port for the given net. Power ports are
// symbol instances from the power library whose Value is the net name.
func (s *Schematic) AddPowerSymbol(net, ref string, at PositionAngle, uuid, project, path string) *SymbolInstance {
	node := sexp.Block(sexp.NewList("symbol",
		sexp.Block(sexp.NewList("lib_id", sexp.Str(PowerLibPrefix+net))),
		sexp.Block(atNode(at)),
		sexp.Block(sexp.NewList("unit", sexp.Sym("1"))),
		sexp.Block(sexp.NewList("in_bom", sexp.Sym("no"))),
		sexp.Block(sexp.NewList("on_board", sexp.Sym("no"))),
		sexp.Block(sexp.NewList("uuid", sexp.Str(uuid))),
	))
	node.Items = append(node.Items,
		propertyNode(PropReference, ref, Position{X: at.X, Y: at.Y + 2.54}, true),
		propertyNode(PropValue, net, Position{X: at.X, Y: at.Y - 2.54}, false),
		instancesNode(project, path, ref),
	)

	s.insertTopLevel(node)
	return newSymbolInstance(node)
}

// AddSheetRef places a hierarchical sheet reference on this schematic
func (s *Schematic) AddSheetRef(name, file string, at Position, size Size, uuid string) *SheetRef {
	node := sexp.Block(sexp.NewList("sheet",
		sexp.Block(sexp.NewList("at", sexp.Num(at.X), sexp.Num(at.Y))),
		sexp.Block(sexp.NewList("size", sexp.Num(size.Width), sexp.Num(size.Height))),
		sexp.Block(sexp.NewList("uuid", sexp.Str(uuid))),
	))
	node.Items = append(node.Items,
		propertyNode("Sheetname", name, Position{X: at.X, Y: at.Y - 1.27}, false),
		propertyNode("Sheetfile", file, Position{X: at.X, Y: at.Y + size.Height + 1.27}, true),
	)

	s.insertTopLevel(node)

	ref := &SheetRef{node: node, Name: name, File: file, UUID: uuid}
	return ref
}

// AddPin adds a hierarchical pin to the sheet reference
func (r *SheetRef) AddPin(name, shape string, at PositionAngle, uuid string) SheetPin {
	if shape == "" {
		shape = "bidirectional"
	}
	node := sexp.Block(sexp.NewList("pin", sexp.Str(name), sexp.Sym(shape),
		sexp.Block(atNode(at)),
		sexp.Block(sexp.NewList("effects",
			sexp.Block(sexp.NewList("font",
				sexp.NewList("size", sexp.Num(1.27), sexp.Num(1.27)))),
		)),
		sexp.Block(sexp.NewList("uuid", sexp.Str(uuid))),
	))
	sexp.AppendChild(r.node, node)
	return SheetPin{node: node, Name: name, Shape: shape}
}

// RemovePin removes the named hierarchical pin from the sheet reference
func (r *SheetRef) RemovePin(name string) bool {
	for _, pn := range sexp.FindAllNodes(r.node, "pin") {
		n, _ := sexp.GetString(pn, 1)
		if n == name {
			return sexp.RemoveChild(r.node, pn)
		}
	}
	return false
}

// Position returns the sheet reference position
func (r *SheetRef) Position() Position {
	if atNode, found := sexp.FindNode(r.node, "at"); found {
		x, _ := sexp.GetFloat(atNode, 1)
		y, _ := sexp.GetFloat(atNode, 2)
		return Position{X: x, Y: y}
	}
	return Position{}
}

// EnsureSheetInstance records a page number for a hierarchical path
func (s *Schematic) EnsureSheetInstance(path, page string) {
	instNode, found := sexp.FindNode(s.root, "sheet_instances")
	if !found {
		instNode = sexp.Block(sexp.NewList("sheet_instances"))
		sexp.AppendChild(s.root, instNode)
	}

	for _, pn := range sexp.FindAllNodes(instNode, "path") {
		p, _ := sexp.GetString(pn, 1)
		if p == path {
			if pageNode, found := sexp.FindNode(pn, "page"); found {
				_ = sexp.SetAtom(pageNode, 1, page)
			}
			return
		}
	}

	sexp.AppendChild(instNode, sexp.Block(sexp.NewList("path", sexp.Str(path),
		sexp.Block(sexp.NewList("page", sexp.Str(page))),
	)))
}

// insertTopLevel places a node at the end of the schematic body, before
// the sheet_instances block so the file keeps KiCad's section order.
func (s *Schematic) insertTopLevel(node *sexp.List) {
	if instNode, found := sexp.FindNode(s.root, "sheet_instances"); found {
		sexp.InsertBefore(s.root, node, instNode)
		return
	}
	sexp.AppendChild(s.root, node)
}

func atNode(at PositionAngle) *sexp.List {
	return sexp.NewList("at", sexp.Num(at.X), sexp.Num(at.Y), sexp.Num(float64(at.Angle)))
}

func propertyNode(key, value string, at Position, hidden bool) *sexp.List {
	effects := sexp.Block(sexp.NewList("effects",
		sexp.Block(sexp.NewList("font",
			sexp.NewList("size", sexp.Num(1.27), sexp.Num(1.27)))),
	))
	if hidden {
		effects.Items = append(effects.Items, sexp.Sym("hide"))
	}
	return sexp.Block(sexp.NewList("property", sexp.Str(key), sexp.Str(value),
		sexp.Block(sexp.NewList("at", sexp.Num(at.X), sexp.Num(at.Y), sexp.Num(0))),
		effects,
	))
}

func instancesNode(project, path, reference string) *sexp.List {
	return sexp.Block(sexp.NewList("instances",
		sexp.Block(sexp.NewList("project", sexp.Str(project),
			sexp.Block(sexp.NewList("path", sexp.Str(path),
				sexp.Block(sexp.NewList("reference", sexp.Str(reference))),
				sexp.Block(sexp.NewList("unit", sexp.Sym("1"))),
			)),
		)),
	))
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
