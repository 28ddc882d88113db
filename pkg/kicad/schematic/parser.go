package schematic

import (
	"fmt"
	"io"
	"os"

	"github.com/schemaforge/esync/pkg/kicad/sexp"
)

// Minimum supported KiCad version for schematics (6.0 = 20211014)
const MinSupportedVersion = 20211014

// ParseFile reads and parses a KiCad schematic file
func ParseFile(filename string) (*Schematic, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	return Parse(file)
}

// Parse reads and parses a KiCad schematic from an io.Reader
func Parse(r io.Reader) (*Schematic, error) {
	doc, err := sexp.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse s-expression: %w", err)
	}

	root := doc.Root()
	if root == nil {
		return nil, fmt.Errorf("empty file or no valid s-expressions found")
	}

	if root.Name() != "kicad_sch" {
		return nil, fmt.Errorf("not a KiCad schematic file: expected 'kicad_sch', got '%s'", root.Name())
	}

	sch := &Schematic{Doc: doc, root: root}

	if err := parseHeader(root, sch); err != nil {
		return nil, fmt.Errorf("failed to parse header: %w", err)
	}

	if uuidNode, found := sexp.FindNode(root, "uuid"); found {
		sch.UUID, _ = sexp.GetString(uuidNode, 1)
	}

	if paperNode, found := sexp.FindNode(root, "paper"); found {
		sch.Paper, _ = sexp.GetString(paperNode, 1)
	}

	return sch, nil
}

// parseHeader extracts version and generator information
func parseHeader(root *sexp.List, sch *Schematic) error {
	versionNode, found := sexp.FindNode(root, "version")
	if !found {
		return fmt.Errorf("missing required 'version' field")
	}

	ver, err := sexp.GetInt(versionNode, 1)
	if err != nil {
		return fmt.Errorf("failed to parse version: %w", err)
	}

	if ver < MinSupportedVersion {
		return fmt.Errorf("unsupported KiCad version: %d (minimum required: %d / KiCad 6.0)", ver, MinSupportedVersion)
	}
	sch.Version = ver

	if genNode, found := sexp.FindNode(root, "generator"); found {
		sch.Generator, _ = sexp.GetString(genNode, 1)
	}

	if genVerNode, found := sexp.FindNode(root, "generator_version"); found {
		sch.GeneratorVer, _ = sexp.GetString(genVerNode, 1)
	}

	return nil
}

// Bytes serializes the schematic. An unmodified schematic reproduces its
// input exactly.
func (s *Schematic) Bytes() []byte {
	return s.Doc.Bytes()
}

// Symbols returns all symbol instances on the schematic, in file order.
// Views are recomputed from the tree so they never go stale after edits.
func (s *Schematic) Symbols() []*SymbolInstance {
	nodes := sexp.FindAllNodes(s.root, "symbol")
	symbols := make([]*SymbolInstance, 0, len(nodes))
	for _, n := range nodes {
		symbols = append(symbols, newSymbolInstance(n))
	}
	return symbols
}

// Components returns symbol instances excluding power ports
func (s *Schematic) Components() []*SymbolInstance {
	var result []*SymbolInstance
	for _, sym := range s.Symbols() {
		if !sym.IsPower() {
			result = append(result, sym)
		}
	}
	return result
}

func newSymbolInstance(n *sexp.List) *SymbolInstance {
	sym := &SymbolInstance{node: n}
	if libNode, found := sexp.FindNode(n, "lib_id"); found {
		sym.LibID, _ = sexp.GetString(libNode, 1)
	}
	if uuidNode, found := sexp.FindNode(n, "uuid"); found {
		sym.UUID, _ = sexp.GetString(uuidNode, 1)
	}
	return sym
}

// GetSymbol returns a symbol by reference designator
func (s *Schematic) GetSymbol(ref string) *SymbolInstance {
	for _, sym := range s.Symbols() {
		if sym.Reference() == ref {
			return sym
		}
	}
	return nil
}

// References returns all non-power reference designators in file order
func (s *Schematic) References() []string {
	var refs []string
	for _, sym := range s.Components() {
		if ref := sym.Reference(); ref != "" {
			refs = append(refs, ref)
		}
	}
	return refs
}

// Labels returns all labels of the given kind, in file order
func (s *Schematic) Labels(kind LabelKind) []*LabelNode {
	nodes := sexp.FindAllNodes(s.root, kind.nodeKey())
	labels := make([]*LabelNode, 0, len(nodes))
	for _, n := range nodes {
		label := &LabelNode{node: n, Kind: kind}
		label.Text, _ = sexp.GetString(n, 1)
		if uuidNode, found := sexp.FindNode(n, "uuid"); found {
			label.UUID, _ = sexp.GetString(uuidNode, 1)
		}
		labels = append(labels, label)
	}
	return labels
}

// AllLabels returns local, global and hierarchical labels together
func (s *Schematic) AllLabels() []*LabelNode {
	var all []*LabelNode
	for _, kind := range []LabelKind{LabelLocal, LabelGlobal, LabelHier} {
		all = append(all, s.Labels(kind)...)
	}
	return all
}

// LabelCount returns how many labels of the given kind carry the given text
func (s *Schematic) LabelCount(kind LabelKind, text string) int {
	count := 0
	for _, l := range s.Labels(kind) {
		if l.Text == text {
			count++
		}
	}
	return count
}

// PowerSymbols returns power-port symbol instances for the given net name.
// An empty name returns all power ports.
func (s *Schematic) PowerSymbols(net string) []*SymbolInstance {
	var result []*SymbolInstance
	for _, sym := range s.Symbols() {
		if !sym.IsPower() {
			continue
		}
		if net == "" || sym.Value() == net {
			result = append(result, sym)
		}
	}
	return result
}

// SheetRefs returns the hierarchical sheet references on this schematic
func (s *Schematic) SheetRefs() []*SheetRef {
	var refs []*SheetRef
	for _, sn := range sexp.FindAllNodes(s.root, "sheet") {
		ref := &SheetRef{node: sn}
		if uuidNode, found := sexp.FindNode(sn, "uuid"); found {
			ref.UUID, _ = sexp.GetString(uuidNode, 1)
		}
		for _, pn := range sexp.FindAllNodes(sn, "property") {
			key, _ := sexp.GetString(pn, 1)
			val, _ := sexp.GetString(pn, 2)
			switch key {
			case "Sheetname":
				ref.Name = val
			case "Sheetfile":
				ref.File = val
			}
		}
		refs = append(refs, ref)
	}
	return refs
}

// SheetInstances returns the (path ...) entries under sheet_instances
func (s *Schematic) SheetInstances() []SheetInstance {
	var instances []SheetInstance
	instNode, found := sexp.FindNode(s.root, "sheet_instances")
	if !found {
		return instances
	}
	for _, pn := range sexp.FindAllNodes(instNode, "path") {
		inst := SheetInstance{}
		inst.Path, _ = sexp.GetString(pn, 1)
		if pageNode, found := sexp.FindNode(pn, "page"); found {
			inst.Page, _ = sexp.GetString(pageNode, 1)
		}
		instances = append(instances, inst)
	}
	return instances
}

// HasLibSymbol reports whether the embedded library contains the symbol
func (s *Schematic) HasLibSymbol(name string) bool {
	libNode, found := sexp.FindNode(s.root, "lib_symbols")
	if !found {
		return false
	}
	for _, sn := range sexp.FindAllNodes(libNode, "symbol") {
		n, _ := sexp.GetString(sn, 1)
		if n == name {
			return true
		}
	}
	return false
}

// Symbol accessors

// Reference returns the reference designator property
func (sym *SymbolInstance) Reference() string {
	v, _ := sym.Property(PropReference)
	return v
}

// Value returns the value property
func (sym *SymbolInstance) Value() string {
	v, _ := sym.Property(PropValue)
	return v
}

// Footprint returns the footprint property
func (sym *SymbolInstance) Footprint() string {
	v, _ := sym.Property(PropFootprint)
	return v
}

// Property returns a property value by key
func (sym *SymbolInstance) Property(key string) (string, bool) {
	for _, pn := range sexp.FindAllNodes(sym.node, "property") {
		k, _ := sexp.GetString(pn, 1)
		if k == key {
			v, _ := sexp.GetString(pn, 2)
			return v, true
		}
	}
	return "", false
}

// Properties returns all property key/value pairs
func (sym *SymbolInstance) Properties() map[string]string {
	props := make(map[string]string)
	for _, pn := range sexp.FindAllNodes(sym.node, "property") {
		k, _ := sexp.GetString(pn, 1)
		v, _ := sexp.GetString(pn, 2)
		props[k] = v
	}
	return props
}

// Position returns the symbol position and rotation
func (sym *SymbolInstance) Position() PositionAngle {
	if atNode, found := sexp.FindNode(sym.node, "at"); found {
		pos, _ := sexp.GetPosition(atNode)
		return pos
	}
	return PositionAngle{}
}

// DNP reports the do-not-populate flag
func (sym *SymbolInstance) DNP() bool {
	if dnpNode, found := sexp.FindNode(sym.node, "dnp"); found {
		v, _ := sexp.GetString(dnpNode, 1)
		return v == "yes"
	}
	return false
}

// IsPower reports whether this symbol is a power port
func (sym *SymbolInstance) IsPower() bool {
	return len(sym.LibID) > len(PowerLibPrefix) && sym.LibID[:len(PowerLibPrefix)] == PowerLibPrefix
}

// InstancePath returns the (project, path) instance data recorded on the
// symbol, if any. A path that does not match the sheet's real position in
// the tree makes the host tool display an unresolved reference.
func (sym *SymbolInstance) InstancePath() (project string, path string, ok bool) {
	instNode, found := sexp.FindNode(sym.node, "instances")
	if !found {
		return "", "", false
	}
	projNode, found := sexp.FindNode(instNode, "project")
	if !found {
		return "", "", false
	}
	project, _ = sexp.GetString(projNode, 1)
	if pathNode, found := sexp.FindNode(projNode, "path"); found {
		path, _ = sexp.GetString(pathNode, 1)
		return project, path, true
	}
	return project, "", false
}
