package esync

import (
	"fmt"

	"github.com/schemaforge/esync/pkg/circuit"
	"github.com/schemaforge/esync/pkg/kicad/schematic"
)

// AddEdit places a new component with a freshly minted identity token
type AddEdit struct {
	Component *circuit.Component
	Token     string
	At        schematic.PositionAngle
}

// UpdateEdit rewrites changed mutable fields on a matched symbol. Identity,
// position and rotation are never part of an update.
type UpdateEdit struct {
	Symbol    *schematic.SymbolInstance
	Component *circuit.Component

	Value      *string
	Footprint  *string
	DNP        *bool
	Properties map[string]string // changed or new keys only
	Reference  *string           // annotation rename, placeholder -> real
}

// IdentityAssignment records a token minted or discovered during the run,
// for writing back into the declarative source.
type IdentityAssignment struct {
	Reference string
	Token     string
}

// EditSet is the outcome of diffing one sheet
type EditSet struct {
	Node *SheetNode

	Adds    []AddEdit
	Updates []UpdateEdit
	Removes []*schematic.SymbolInstance
	Keeps   []*schematic.SymbolInstance

	Identities []IdentityAssignment
	Warnings   []string
}

// Dirty reports whether applying the set would change the document
func (e *EditSet) Dirty() bool {
	return len(e.Adds) > 0 || len(e.Updates) > 0 || len(e.Removes) > 0
}

// Reconcile diffs one sheet's target components against its schematic.
// Matching is by identity token first, then by reference; existing symbols
// with no match are removals, target components with no match are
// additions. The schematic is not modified; Apply consumes the result.
func Reconcile(node *SheetNode, opts Options) (*EditSet, error) {
	opts = opts.withDefaults()
	set := &EditSet{Node: node}

	existing := node.Doc.Components()

	// Token index for the common case: the target carries identities from
	// a previous run and matching is O(1) per component.
	byToken := make(map[string]*schematic.SymbolInstance, len(existing))
	byRef := make(map[string][]*schematic.SymbolInstance)
	for _, sym := range existing {
		if sym.UUID != "" {
			byToken[sym.UUID] = sym
		}
		ref := sym.Reference()
		byRef[ref] = append(byRef[ref], sym)
	}

	seenRefs := make(map[string]int)
	matched := make(map[*schematic.SymbolInstance]bool)

	for _, comp := range node.Target.Components {
		if n := seenRefs[comp.Reference]; n > 0 {
			if !isPlaceholderRef(comp.Reference) {
				return nil, fmt.Errorf("sheet %s: duplicate reference %q in target model", node.Name, comp.Reference)
			}
			// Unannotated parts may collide; annotation happens later
			set.Warnings = append(set.Warnings, fmt.Sprintf(
				"sheet %s: placeholder reference %q declared %d times, matching by declaration order",
				node.Name, comp.Reference, n+1))
		}
		seenRefs[comp.Reference]++

		sym := matchSymbol(comp, byToken, byRef, matched, opts, set)
		if sym == nil {
			token := comp.Identity
			if token == "" {
				token = opts.NewToken()
			}
			set.Adds = append(set.Adds, AddEdit{
				Component: comp,
				Token:     token,
				At:        placeFor(node, len(set.Adds), comp, opts),
			})
			set.Identities = append(set.Identities, IdentityAssignment{
				Reference: comp.Reference,
				Token:     token,
			})
			continue
		}

		matched[sym] = true
		if comp.Identity == "" {
			// Matched by reference: the source never learned the token
			set.Identities = append(set.Identities, IdentityAssignment{
				Reference: comp.Reference,
				Token:     sym.UUID,
			})
		}

		if update, changed := diffSymbol(sym, comp); changed {
			set.Updates = append(set.Updates, update)
		} else {
			set.Keeps = append(set.Keeps, sym)
		}
	}

	for _, sym := range existing {
		if !matched[sym] {
			set.Removes = append(set.Removes, sym)
		}
	}

	return set, nil
}

// matchSymbol finds the existing symbol for a target component: identity
// token first, then (reference, sheet scope). Duplicate placeholder
// references are resolved by declaration order unless a TieBreak hook is
// installed, and flagged as a warning.
func matchSymbol(comp *circuit.Component, byToken map[string]*schematic.SymbolInstance,
	byRef map[string][]*schematic.SymbolInstance, matched map[*schematic.SymbolInstance]bool,
	opts Options, set *EditSet) *schematic.SymbolInstance {

	if comp.Identity != "" {
		if sym, ok := byToken[comp.Identity]; ok && !matched[sym] {
			return sym
		}
	}

	candidates := byRef[comp.Reference]
	var free []*schematic.SymbolInstance
	for _, sym := range candidates {
		if !matched[sym] {
			free = append(free, sym)
		}
	}
	if len(free) == 0 {
		return nil
	}
	if len(free) > 1 {
		set.Warnings = append(set.Warnings, fmt.Sprintf(
			"sheet %s: %d symbols share reference %q, matching by declaration order",
			set.Node.Name, len(free), comp.Reference))
		if opts.TieBreak != nil {
			if pick := opts.TieBreak(free); pick != nil {
				return pick
			}
		}
	}
	return free[0]
}

// diffSymbol compares the mutable fields of a matched pair
func diffSymbol(sym *schematic.SymbolInstance, comp *circuit.Component) (UpdateEdit, bool) {
	update := UpdateEdit{Symbol: sym, Component: comp}
	changed := false

	if sym.Value() != comp.Value {
		v := comp.Value
		update.Value = &v
		changed = true
	}
	if sym.Footprint() != comp.Footprint {
		f := comp.Footprint
		update.Footprint = &f
		changed = true
	}
	if sym.DNP() != comp.DNP {
		d := comp.DNP
		update.DNP = &d
		changed = true
	}
	for key, want := range comp.Properties {
		if got, ok := sym.Property(key); !ok || got != want {
			if update.Properties == nil {
				update.Properties = make(map[string]string)
			}
			update.Properties[key] = want
			changed = true
		}
	}
	if ref := sym.Reference(); ref != comp.Reference {
		r := comp.Reference
		update.Reference = &r
		changed = true
	}

	return update, changed
}

// placeFor computes the deterministic default placement for an addition.
// Components with an explicit placement in the target use it; the rest
// fill a fixed grid so repeated runs with the same additions land every
// component on the same spot.
func placeFor(node *SheetNode, addIndex int, comp *circuit.Component, opts Options) schematic.PositionAngle {
	if comp.Placement != nil {
		return schematic.PositionAngle{
			Position: schematic.Position{X: comp.Placement.X, Y: comp.Placement.Y},
			Angle:    schematic.Angle(comp.Placement.Rotation),
		}
	}

	slot := len(node.Doc.Components()) + addIndex
	col := slot % opts.GridColumns
	row := slot / opts.GridColumns
	return schematic.PositionAngle{
		Position: schematic.Position{
			X: *opts.GridOriginX + float64(col)*opts.GridSpacing,
			Y: *opts.GridOriginY + float64(row)*opts.GridSpacing,
		},
	}
}
