// Package validate is the round-trip validation layer: it proves that a
// synchronization cycle preserved semantics and documentation. Structural
// comparison is order-independent and tolerant of sub-millimeter float
// noise; comment comparison treats loss as failure and addition as a
// warning only.
package validate

import (
	"bytes"
	"fmt"
	"math"
	"sort"

	"github.com/schemaforge/esync/pkg/kicad/schematic"
	"github.com/schemaforge/esync/pkg/kicad/sexp"
)

// PositionTolerance absorbs float rounding in position comparisons (mm)
const PositionTolerance = 0.01

// Diff accumulates comparison findings
type Diff struct {
	Failures []string
	Warnings []string
}

// OK reports whether the comparison found no failures
func (d *Diff) OK() bool { return len(d.Failures) == 0 }

func (d *Diff) failf(format string, args ...interface{}) {
	d.Failures = append(d.Failures, fmt.Sprintf(format, args...))
}

func (d *Diff) warnf(format string, args ...interface{}) {
	d.Warnings = append(d.Warnings, fmt.Sprintf(format, args...))
}

// Identity verifies the round-trip identity law: parsing and immediately
// serializing the given file content reproduces it byte for byte.
func Identity(data []byte) error {
	doc, err := sexp.ParseString(string(data))
	if err != nil {
		return err
	}
	if !bytes.Equal(doc.Bytes(), data) {
		return fmt.Errorf("round trip is not byte-identical")
	}
	return nil
}

// CompareSchematics structurally compares two sheets: same component set
// with the same mutable fields and positions, same labels of each kind.
// File order and formatting are irrelevant.
func CompareSchematics(a, b *schematic.Schematic) *Diff {
	diff := &Diff{}
	compareComponents(diff, a, b)
	compareLabels(diff, a, b)
	return diff
}

func compareComponents(diff *Diff, a, b *schematic.Schematic) {
	bySide := func(s *schematic.Schematic) map[string]*schematic.SymbolInstance {
		m := make(map[string]*schematic.SymbolInstance)
		for _, sym := range s.Components() {
			m[sym.Reference()] = sym
		}
		return m
	}
	left, right := bySide(a), bySide(b)

	for _, ref := range sortedRefs(left) {
		la := left[ref]
		lb, ok := right[ref]
		if !ok {
			diff.failf("component %s missing from second schematic", ref)
			continue
		}
		if la.Value() != lb.Value() {
			diff.failf("component %s: value %q != %q", ref, la.Value(), lb.Value())
		}
		if la.Footprint() != lb.Footprint() {
			diff.failf("component %s: footprint %q != %q", ref, la.Footprint(), lb.Footprint())
		}
		if la.DNP() != lb.DNP() {
			diff.failf("component %s: dnp %v != %v", ref, la.DNP(), lb.DNP())
		}
		pa, pb := la.Position(), lb.Position()
		if math.Abs(pa.X-pb.X) > PositionTolerance || math.Abs(pa.Y-pb.Y) > PositionTolerance {
			diff.failf("component %s: position (%g, %g) != (%g, %g)", ref, pa.X, pa.Y, pb.X, pb.Y)
		}
		for key, want := range la.Properties() {
			if got, ok := lb.Property(key); !ok || got != want {
				diff.failf("component %s: property %s %q != %q", ref, key, want, got)
			}
		}
	}
	for _, ref := range sortedRefs(right) {
		if _, ok := left[ref]; !ok {
			diff.failf("component %s only in second schematic", ref)
		}
	}
}

func compareLabels(diff *Diff, a, b *schematic.Schematic) {
	for _, kind := range []schematic.LabelKind{schematic.LabelLocal, schematic.LabelGlobal, schematic.LabelHier} {
		counts := func(s *schematic.Schematic) map[string]int {
			m := make(map[string]int)
			for _, l := range s.Labels(kind) {
				m[l.Text]++
			}
			return m
		}
		left, right := counts(a), counts(b)
		for text, n := range left {
			if right[text] != n {
				diff.failf("%s label %q: count %d != %d", kind, text, n, right[text])
			}
		}
		for text, n := range right {
			if _, ok := left[text]; !ok {
				diff.failf("%s label %q: count 0 != %d", kind, text, n)
			}
		}
	}
}

func sortedRefs(m map[string]*schematic.SymbolInstance) []string {
	refs := make([]string, 0, len(m))
	for ref := range m {
		refs = append(refs, ref)
	}
	sort.Strings(refs)
	return refs
}
