// Package esync is the bidirectional synchronization engine. It reconciles
// a declarative circuit model against the parsed on-disk schematics,
// producing per-sheet edit sets and a whole-tree label plan, then applies
// both with minimal edits so that everything the engine does not own
// (placement, hand-drawn labels, comments, formatting) survives untouched.
//
// A run is two passes over the sheet tree. The first pass diffs each sheet
// independently (Reconcile). The second pass resolves net connectivity
// across the whole tree (ResolveNets), because a net's labeling strategy
// depends on which sheets its endpoints land on. Only Apply mutates the
// documents; writing them to disk is the caller's concern.
package esync

import (
	"strings"

	"github.com/google/uuid"

	"github.com/schemaforge/esync/pkg/circuit"
	"github.com/schemaforge/esync/pkg/kicad/schematic"
)

// Options carries the run-wide configuration for a synchronization pass
type Options struct {
	// Project is the name recorded in per-component instance data
	Project string

	// NewToken mints identity tokens for components on first persistence.
	// Defaults to a random UUID; tests inject a sequential generator.
	NewToken func() string

	// Placement grid for never-placed components. Slots fill left to
	// right, top to bottom, starting at (GridOriginX, GridOriginY). Nil
	// origins default to 25.4mm; zero is a legitimate origin.
	GridOriginX *float64
	GridOriginY *float64
	GridSpacing float64
	GridColumns int

	// PowerNets names nets realized as power ports instead of labels
	PowerNets []string

	// TieBreak picks among several existing symbols that all carry the
	// same placeholder reference. Nil means declaration (file) order.
	TieBreak func(candidates []*schematic.SymbolInstance) *schematic.SymbolInstance
}

func (o Options) withDefaults() Options {
	if o.NewToken == nil {
		o.NewToken = uuid.NewString
	}
	if o.GridOriginX == nil {
		v := 25.4
		o.GridOriginX = &v
	}
	if o.GridOriginY == nil {
		v := 25.4
		o.GridOriginY = &v
	}
	if o.GridSpacing == 0 {
		o.GridSpacing = 12.7
	}
	if o.GridColumns == 0 {
		o.GridColumns = 8
	}
	return o
}

func (o Options) isPowerNet(name string) bool {
	for _, n := range o.PowerNets {
		if n == name {
			return true
		}
	}
	return false
}

// SheetNode pairs one declarative sheet with its on-disk schematic and its
// position in the hierarchy. The Path is the instance path recorded on
// every component of this sheet ("/root-uuid/child-uuid/...", "/root-uuid"
// for the root itself).
type SheetNode struct {
	Name   string
	Target *circuit.Sheet
	Doc    *schematic.Schematic
	Path   string
	File   string // on-disk file name, e.g. "power.kicad_sch"

	Parent   *SheetNode
	Children []*SheetNode
}

// Walk visits the node and all descendants, parents before children
func (n *SheetNode) Walk(fn func(*SheetNode)) {
	fn(n)
	for _, c := range n.Children {
		c.Walk(fn)
	}
}

// Child returns the direct child with the given sheet name, or nil
func (n *SheetNode) Child(name string) *SheetNode {
	for _, c := range n.Children {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// sheetNamePath returns the chain of sheet names from the root down to n
func sheetNamePath(n *SheetNode) []string {
	var path []string
	for ; n != nil; n = n.Parent {
		path = append([]string{n.Name}, path...)
	}
	return path
}

// hostsOf returns every node whose target sheet declares the reference.
// References are unique within a sheet, not across the tree, so more than
// one host means a net endpoint naming this reference cannot be resolved.
func hostsOf(root *SheetNode, ref string) []*SheetNode {
	var hosts []*SheetNode
	root.Walk(func(n *SheetNode) {
		if n.Target == nil {
			return
		}
		for _, c := range n.Target.Components {
			if c.Reference == ref {
				hosts = append(hosts, n)
				return
			}
		}
	})
	return hosts
}

// isPlaceholderRef reports whether a reference is still unannotated
// ("R?", "U?"). Placeholders may legally collide within a sheet.
func isPlaceholderRef(ref string) bool {
	return strings.ContainsRune(ref, '?')
}
