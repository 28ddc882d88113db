package esync

import (
	"fmt"
	"strconv"

	"github.com/schemaforge/esync/pkg/circuit"
	"github.com/schemaforge/esync/pkg/kicad/schematic"
)

// Result is what a full Apply leaves behind for the caller: which
// documents changed and what must flow back into the declarative source.
type Result struct {
	// Dirty lists the sheet nodes whose documents were modified
	Dirty []*SheetNode

	// SourceEdits carries identity assignments and annotation renames
	// back to the declarative source file
	SourceEdits []circuit.SourceEdit

	Warnings []string
}

// Apply mutates the sheet documents per the edit sets and label plan.
// Component edits land first, then labels, then instance bookkeeping, so
// a label position can account for every symbol of the run. Nothing is
// written to disk here.
func Apply(root *SheetNode, sets []*EditSet, plan *LabelPlan, opts Options) (*Result, error) {
	opts = opts.withDefaults()
	res := &Result{}
	dirty := make(map[*SheetNode]bool)

	for _, set := range sets {
		changed, err := applySet(set, opts, res)
		if err != nil {
			return nil, err
		}
		if changed {
			dirty[set.Node] = true
		}
		res.Warnings = append(res.Warnings, set.Warnings...)
	}

	if plan != nil {
		for _, act := range applyPlan(plan, opts) {
			dirty[act] = true
		}
		res.Warnings = append(res.Warnings, plan.Warnings...)
	}

	ensureInstances(root, opts, dirty)

	root.Walk(func(n *SheetNode) {
		if dirty[n] {
			res.Dirty = append(res.Dirty, n)
		}
	})
	return res, nil
}

func applySet(set *EditSet, opts Options, res *Result) (bool, error) {
	node := set.Node
	changed := false

	for _, sym := range set.Removes {
		if !node.Doc.RemoveSymbol(sym) {
			return changed, fmt.Errorf("sheet %s: failed to remove symbol %s", node.Name, sym.Reference())
		}
		changed = true
	}

	for _, up := range set.Updates {
		if err := applyUpdate(node, up); err != nil {
			return changed, err
		}
		changed = true
	}

	for _, add := range set.Adds {
		comp := add.Component
		_, err := node.Doc.AddSymbol(schematic.SymbolSpec{
			LibID:      comp.Symbol,
			Reference:  comp.Reference,
			Value:      comp.Value,
			Footprint:  comp.Footprint,
			Properties: comp.Properties,
			At:         add.At,
			DNP:        comp.DNP,
			UUID:       add.Token,
			Project:    opts.Project,
			Path:       node.Path,
		})
		if err != nil {
			return changed, fmt.Errorf("sheet %s: %w", node.Name, err)
		}
		changed = true
	}

	// A symbol the embedded library does not define renders blank in the
	// host tool until the editor caches it from its own libraries
	seenLib := make(map[string]bool)
	for _, add := range set.Adds {
		id := add.Component.Symbol
		if seenLib[id] || node.Doc.HasLibSymbol(id) {
			continue
		}
		seenLib[id] = true
		res.Warnings = append(res.Warnings, fmt.Sprintf(
			"sheet %s: no embedded library definition for %s, open the sheet in the editor to cache it",
			node.Name, id))
	}

	path := sheetNamePath(node)
	for _, id := range set.Identities {
		res.SourceEdits = append(res.SourceEdits, circuit.SourceEdit{
			SheetPath:   path,
			Reference:   id.Reference,
			SetIdentity: id.Token,
		})
	}

	return changed, nil
}

func applyUpdate(node *SheetNode, up UpdateEdit) error {
	sym := up.Symbol
	if up.Reference != nil {
		if err := sym.SetProperty(schematic.PropReference, *up.Reference); err != nil {
			return fmt.Errorf("sheet %s: %w", node.Name, err)
		}
	}
	if up.Value != nil {
		if err := sym.SetProperty(schematic.PropValue, *up.Value); err != nil {
			return fmt.Errorf("sheet %s: %w", node.Name, err)
		}
	}
	if up.Footprint != nil {
		if err := sym.SetProperty(schematic.PropFootprint, *up.Footprint); err != nil {
			return fmt.Errorf("sheet %s: %w", node.Name, err)
		}
	}
	if up.DNP != nil {
		if err := sym.SetDNP(*up.DNP); err != nil {
			return fmt.Errorf("sheet %s: %w", node.Name, err)
		}
	}
	for key, value := range up.Properties {
		if err := sym.SetProperty(key, value); err != nil {
			return fmt.Errorf("sheet %s: %w", node.Name, err)
		}
	}
	return nil
}

// applyPlan executes the label actions and returns the touched nodes.
// Added labels march along a fixed row from the sheet's left edge so the
// same plan lands them on the same spots every run.
func applyPlan(plan *LabelPlan, opts Options) []*SheetNode {
	var touched []*SheetNode
	labelSlot := make(map[*SheetNode]int)
	powerSlot := make(map[*SheetNode]int)

	nextLabelAt := func(node *SheetNode) schematic.PositionAngle {
		i := labelSlot[node]
		labelSlot[node]++
		return schematic.PositionAngle{Position: schematic.Position{
			X: *opts.GridOriginX + float64(i)*opts.GridSpacing,
			Y: *opts.GridOriginY - opts.GridSpacing,
		}}
	}
	nextPowerAt := func(node *SheetNode) schematic.PositionAngle {
		i := powerSlot[node]
		powerSlot[node]++
		return schematic.PositionAngle{Position: schematic.Position{
			X: *opts.GridOriginX + float64(i)*opts.GridSpacing,
			Y: *opts.GridOriginY + 8*opts.GridSpacing,
		}}
	}

	for _, act := range plan.Actions {
		node := act.Node
		switch act.Op {
		case OpAddLabel:
			node.Doc.AddLabel(act.Kind, act.Net, "", nextLabelAt(node), opts.NewToken())

		case OpRemoveLabel:
			if !node.Doc.RemoveLabel(act.Label) {
				continue
			}

		case OpAddPower:
			ref := nextPowerRef(node.Doc)
			node.Doc.AddPowerSymbol(act.Net, ref, nextPowerAt(node), opts.NewToken(), opts.Project, node.Path)

		case OpAddSheetPin:
			ref := sheetRefFor(node, act.Child)
			if ref == nil {
				continue
			}
			at := ref.Position()
			at.Y += 2.54 * float64(len(ref.Pins())+1)
			ref.AddPin(act.Net, "bidirectional",
				schematic.PositionAngle{Position: at}, opts.NewToken())

		case OpRemoveSheetPin:
			ref := sheetRefFor(node, act.Child)
			if ref == nil || !ref.RemovePin(act.Net) {
				continue
			}
		}
		touched = append(touched, node)
	}
	return touched
}

// nextPowerRef mints the next free #PWR reference on a sheet
func nextPowerRef(doc *schematic.Schematic) string {
	used := make(map[string]bool)
	for _, pwr := range doc.PowerSymbols("") {
		used[pwr.Reference()] = true
	}
	for i := 1; ; i++ {
		ref := "#PWR" + pad2(i)
		if !used[ref] {
			return ref
		}
	}
}

func pad2(i int) string {
	s := strconv.Itoa(i)
	if len(s) < 2 {
		return "0" + s
	}
	return s
}

func sheetRefFor(parent, child *SheetNode) *schematic.SheetRef {
	for _, ref := range parent.Doc.SheetRefs() {
		if ref.File == child.File {
			return ref
		}
	}
	return nil
}

// ensureInstances repairs per-component instance data and the root's page
// table. A component whose recorded path does not match its sheet's real
// position renders as an unresolved reference in the host tool, so every
// symbol is checked on every run.
func ensureInstances(root *SheetNode, opts Options, dirty map[*SheetNode]bool) {
	page := 0
	root.Walk(func(node *SheetNode) {
		page++
		// The page table keys the root sheet as "/", matching the files
		// the host tool itself writes
		instPath := node.Path
		if node == root {
			instPath = "/"
		}
		if !hasInstancePage(root.Doc, instPath, strconv.Itoa(page)) {
			root.Doc.EnsureSheetInstance(instPath, strconv.Itoa(page))
			dirty[root] = true
		}

		for _, sym := range node.Doc.Symbols() {
			project, path, ok := sym.InstancePath()
			if ok && path == node.Path && project == opts.Project {
				continue
			}
			sym.SetInstancePath(opts.Project, node.Path)
			dirty[node] = true
		}
	})
}

func hasInstancePage(doc *schematic.Schematic, path, page string) bool {
	for _, inst := range doc.SheetInstances() {
		if inst.Path == path {
			return inst.Page == page
		}
	}
	return false
}
