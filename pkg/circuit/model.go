// Package circuit holds the declarative circuit model consumed by the
// synchronizer: a tree of sheets, each with components and nets. The model
// is produced by an evaluation layer outside this repo (here: loaded from
// HCL circuit descriptions) and is read-only input for a synchronization
// run. Nets do not own components and components do not own nets; a net is
// a name plus a set of (reference, pin) endpoints.
package circuit

import (
	"fmt"
	"strings"
)

// Design is a complete declarative circuit: a project name and a sheet tree
type Design struct {
	Project    string
	Root       *Sheet
	SourcePath string // originating declarative source, for reverse sync
}

// Sheet is one node of the hierarchy
type Sheet struct {
	Name       string
	Components []*Component
	Nets       []*Net
	Children   []*Sheet
}

// Component is one declared part
type Component struct {
	Reference  string
	Symbol     string
	Value      string
	Footprint  string
	Properties map[string]string
	Placement  *Placement // nil for never-placed components
	DNP        bool

	// Identity is the durable token minted on first persistence and
	// carried back into the declarative source; empty until assigned.
	Identity string
}

// Placement is an explicit position carried by the declarative model
type Placement struct {
	X        float64
	Y        float64
	Rotation float64
}

// Endpoint joins a component pin to a net
type Endpoint struct {
	Reference string
	Pin       string
}

func (e Endpoint) String() string {
	return e.Reference + "." + e.Pin
}

// ParseEndpoint parses "R1.1" into an Endpoint
func ParseEndpoint(s string) (Endpoint, error) {
	i := strings.LastIndexByte(s, '.')
	if i <= 0 || i == len(s)-1 {
		return Endpoint{}, fmt.Errorf("invalid endpoint %q: want \"REF.PIN\"", s)
	}
	return Endpoint{Reference: s[:i], Pin: s[i+1:]}, nil
}

// Net is a named set of endpoints
type Net struct {
	Name      string
	Endpoints []Endpoint
}

// Walk visits the sheet and all descendants depth-first, parents before
// children. The visitor receives each sheet's name path, root first.
func (s *Sheet) Walk(fn func(path []string, sheet *Sheet)) {
	s.walk(nil, fn)
}

func (s *Sheet) walk(prefix []string, fn func(path []string, sheet *Sheet)) {
	path := append(append([]string{}, prefix...), s.Name)
	fn(path, s)
	for _, child := range s.Children {
		child.walk(path, fn)
	}
}

// FindComponent locates a component by reference anywhere in the tree and
// returns the sheet hosting it.
func (d *Design) FindComponent(ref string) (*Component, *Sheet) {
	var comp *Component
	var host *Sheet
	d.Root.Walk(func(_ []string, sheet *Sheet) {
		if comp != nil {
			return
		}
		for _, c := range sheet.Components {
			if c.Reference == ref {
				comp = c
				host = sheet
				return
			}
		}
	})
	return comp, host
}

// AllNets returns every net in the tree in declaration order, root first.
// Duplicate names are preserved: two same-named nets with disjoint endpoint
// groups signal a net split (resolved downstream).
func (d *Design) AllNets() []*Net {
	var nets []*Net
	d.Root.Walk(func(_ []string, sheet *Sheet) {
		nets = append(nets, sheet.Nets...)
	})
	return nets
}
