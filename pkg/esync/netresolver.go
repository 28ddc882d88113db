package esync

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/schemaforge/esync/pkg/circuit"
	"github.com/schemaforge/esync/pkg/kicad/schematic"
)

// NetClass is the connectivity strategy chosen for one resolved net
type NetClass int

const (
	// NetLocal nets live on a single sheet and need no label
	NetLocal NetClass = iota
	// NetHier nets span exactly a parent and one direct child
	NetHier
	// NetGlobal nets span sheets with no direct parent/child relationship
	NetGlobal
	// NetPower nets are realized as power ports on every touched sheet
	NetPower
)

func (c NetClass) String() string {
	switch c {
	case NetHier:
		return "hierarchical"
	case NetGlobal:
		return "global"
	case NetPower:
		return "power"
	default:
		return "local"
	}
}

// ResolvedNet is one net after split detection and classification
type ResolvedNet struct {
	Name      string
	Endpoints []circuit.Endpoint
	Class     NetClass
	Sheets    []*SheetNode // sheets hosting at least one endpoint

	// SplitFrom names the original net when this one was carved out of a
	// previously single net whose endpoint groups became disjoint.
	SplitFrom string
}

// LabelOp is one planned label mutation
type LabelOp int

const (
	OpAddLabel LabelOp = iota
	OpRemoveLabel
	OpAddPower
	OpAddSheetPin
	OpRemoveSheetPin
)

// LabelAction is one entry of the label plan: a label, power port or sheet
// pin to add, or a stale label to remove.
type LabelAction struct {
	Node *SheetNode
	Op   LabelOp
	Kind schematic.LabelKind
	Net  string

	// Remove target, set for OpRemoveLabel
	Label *schematic.LabelNode

	// Child sheet whose boundary gets the pin, set for OpAddSheetPin
	Child *SheetNode
}

// LabelPlan is the whole-tree outcome of net resolution
type LabelPlan struct {
	Nets     []*ResolvedNet
	Actions  []LabelAction
	Warnings []string
}

// ResolveNets classifies every net of the target tree and plans the label
// work. Existing labels connecting the same net are reused, never
// duplicated. A global or hierarchical label survives only where the
// resolved net of that name actually reaches, with that class: when a net
// regroups so it no longer touches a sheet, or shrinks to local, the old
// labels there still join the sheet's wiring into the net and must go.
// Sheet pins follow the same rule. Local labels and power ports are never
// removed.
func ResolveNets(root *SheetNode, opts Options) (*LabelPlan, error) {
	opts = opts.withDefaults()
	plan := &LabelPlan{}

	nets, err := splitNets(root, plan)
	if err != nil {
		return nil, err
	}
	plan.Nets = nets

	live := make(map[string]bool, len(nets))
	for _, net := range nets {
		live[net.Name] = true
	}

	claims := newClaimSet()
	for _, net := range nets {
		if err := classify(root, net, opts); err != nil {
			return nil, err
		}
		planNet(plan, net, opts, claims)
	}

	planRemovals(root, plan, live, claims, opts)
	return plan, nil
}

// claimSet records which managed labels and sheet pins the resolved nets
// legitimately occupy. Anything of a managed kind holding no claim is
// stale connectivity.
type claimSet struct {
	labels map[labelClaim]bool
	pins   map[pinClaim]bool
}

type labelClaim struct {
	node *SheetNode
	kind schematic.LabelKind
	net  string
}

type pinClaim struct {
	parent *SheetNode
	file   string // child sheet file the pinned reference points at
	net    string
}

func newClaimSet() *claimSet {
	return &claimSet{
		labels: make(map[labelClaim]bool),
		pins:   make(map[pinClaim]bool),
	}
}

// splitNets groups the target's nets by name and detects splits: a name
// declared with disjoint endpoint groups keeps its name for the first
// group and gets a synthesized name per further group. Groups declared on
// different sheets under one name are one net (that is how hierarchical
// and global connectivity is expressed), so only explicit disjoint
// declarations on the same sheet count as splits; the declarative layer
// signals a split by declaring the name twice.
func splitNets(root *SheetNode, plan *LabelPlan) ([]*ResolvedNet, error) {
	type group struct {
		sheet     *SheetNode
		endpoints []circuit.Endpoint
	}
	byName := make(map[string][]group)
	var order []string

	root.Walk(func(n *SheetNode) {
		if n.Target == nil {
			return
		}
		for _, net := range n.Target.Nets {
			if _, seen := byName[net.Name]; !seen {
				order = append(order, net.Name)
			}
			byName[net.Name] = append(byName[net.Name], group{sheet: n, endpoints: net.Endpoints})
		}
	})

	taken := make(map[string]bool, len(order))
	for _, name := range order {
		taken[name] = true
	}

	var nets []*ResolvedNet
	for _, name := range order {
		groups := byName[name]

		// Same-sheet redeclarations are splits; cross-sheet declarations
		// under one name merge into a single net.
		merged := map[*SheetNode][]circuit.Endpoint{}
		var splitGroups []group
		for _, g := range groups {
			if _, dup := merged[g.sheet]; dup {
				splitGroups = append(splitGroups, g)
				continue
			}
			merged[g.sheet] = g.endpoints
		}

		// Deterministic endpoint order: walk groups as declared
		first := &ResolvedNet{Name: name}
		seenSheet := map[*SheetNode]bool{}
		for _, g := range groups {
			if seenSheet[g.sheet] {
				continue
			}
			seenSheet[g.sheet] = true
			first.Endpoints = append(first.Endpoints, merged[g.sheet]...)
		}
		nets = append(nets, first)

		for _, g := range splitGroups {
			newName := synthesizeNetName(name, taken)
			taken[newName] = true
			plan.Warnings = append(plan.Warnings, fmt.Sprintf(
				"net %s split: group %v renamed to %s", name, g.endpoints, newName))
			nets = append(nets, &ResolvedNet{
				Name:      newName,
				Endpoints: g.endpoints,
				SplitFrom: name,
			})
		}
	}
	return nets, nil
}

// synthesizeNetName derives a fresh name for a split-off endpoint group.
// A trailing integer is incremented (NET1 -> NET2); otherwise "_2" is
// appended. The result is bumped until it collides with nothing.
func synthesizeNetName(base string, taken map[string]bool) string {
	prefix := base
	n := 0
	i := len(base)
	for i > 0 && base[i-1] >= '0' && base[i-1] <= '9' {
		i--
	}
	if i < len(base) {
		prefix = base[:i]
		n, _ = strconv.Atoi(base[i:])
	} else {
		prefix = base + "_"
		n = 1
	}
	for {
		n++
		candidate := prefix + strconv.Itoa(n)
		if !taken[candidate] {
			return candidate
		}
	}
}

// classify decides the net's labeling strategy from the sheets its
// endpoints land on.
func classify(root *SheetNode, net *ResolvedNet, opts Options) error {
	seen := map[*SheetNode]bool{}
	for _, ep := range net.Endpoints {
		hosts := hostsOf(root, ep.Reference)
		switch {
		case len(hosts) == 0:
			return fmt.Errorf("net %s: endpoint %s references an undeclared component", net.Name, ep)
		case len(hosts) > 1:
			return fmt.Errorf("net %s: endpoint %s is ambiguous, %s is declared on sheets %s and %s",
				net.Name, ep, ep.Reference, hosts[0].Name, hosts[1].Name)
		}
		host := hosts[0]
		if !seen[host] {
			seen[host] = true
			net.Sheets = append(net.Sheets, host)
		}
	}

	switch {
	case opts.isPowerNet(net.Name):
		net.Class = NetPower
	case len(net.Sheets) <= 1:
		net.Class = NetLocal
	case len(net.Sheets) == 2 && isParentChild(net.Sheets[0], net.Sheets[1]):
		net.Class = NetHier
	default:
		net.Class = NetGlobal
	}
	return nil
}

func isParentChild(a, b *SheetNode) bool {
	return a.Parent == b || b.Parent == a
}

// planNet emits the add actions for one net, reusing existing nodes, and
// claims every label and pin the net occupies. A label already connecting
// the net on a sheet satisfies the requirement; adding components to a
// labeled net must not duplicate its label.
func planNet(plan *LabelPlan, net *ResolvedNet, opts Options, claims *claimSet) {
	switch net.Class {
	case NetLocal:
		// A local label names the sheet's wiring so the endpoints join up
		// in the host tool
		for _, node := range net.Sheets {
			if node.Doc.LabelCount(schematic.LabelLocal, net.Name) > 0 {
				continue
			}
			plan.Actions = append(plan.Actions, LabelAction{
				Node: node, Op: OpAddLabel, Kind: schematic.LabelLocal, Net: net.Name,
			})
		}

	case NetPower:
		for _, node := range net.Sheets {
			if len(node.Doc.PowerSymbols(net.Name)) > 0 {
				continue
			}
			plan.Actions = append(plan.Actions, LabelAction{
				Node: node, Op: OpAddPower, Net: net.Name,
			})
		}

	case NetHier:
		parent, child := net.Sheets[0], net.Sheets[1]
		if child.Parent != parent {
			parent, child = child, parent
		}
		claims.labels[labelClaim{child, schematic.LabelHier, net.Name}] = true
		claims.pins[pinClaim{parent, child.File, net.Name}] = true
		if child.Doc.LabelCount(schematic.LabelHier, net.Name) == 0 {
			plan.Actions = append(plan.Actions, LabelAction{
				Node: child, Op: OpAddLabel, Kind: schematic.LabelHier, Net: net.Name,
			})
		}
		if !hasSheetPin(parent, child, net.Name) {
			plan.Actions = append(plan.Actions, LabelAction{
				Node: parent, Op: OpAddSheetPin, Net: net.Name, Child: child,
			})
		}
		if parent.Doc.LabelCount(schematic.LabelLocal, net.Name) == 0 {
			plan.Actions = append(plan.Actions, LabelAction{
				Node: parent, Op: OpAddLabel, Kind: schematic.LabelLocal, Net: net.Name,
			})
		}

	case NetGlobal:
		for _, node := range net.Sheets {
			claims.labels[labelClaim{node, schematic.LabelGlobal, net.Name}] = true
			if node.Doc.LabelCount(schematic.LabelGlobal, net.Name) > 0 {
				continue
			}
			plan.Actions = append(plan.Actions, LabelAction{
				Node: node, Op: OpAddLabel, Kind: schematic.LabelGlobal, Net: net.Name,
			})
		}
	}
}

func hasSheetPin(parent, child *SheetNode, net string) bool {
	for _, ref := range parent.Doc.SheetRefs() {
		if ref.File != child.File {
			continue
		}
		for _, pin := range ref.Pins() {
			if pin.Name == net {
				return true
			}
		}
	}
	return false
}

// planRemovals finds managed labels and sheet pins holding no claim from
// any resolved net and plans their removal. Liveness is per sheet and per
// kind, not per name: a global label for a net that regrouped away from
// this sheet still joins the sheet's wiring into the net, so the name
// alone proves nothing. Local labels are left alone: they are how humans
// annotate wires, and removing one the engine did not place would discard
// work.
func planRemovals(root *SheetNode, plan *LabelPlan, live map[string]bool, claims *claimSet, opts Options) {
	root.Walk(func(node *SheetNode) {
		for _, kind := range []schematic.LabelKind{schematic.LabelGlobal, schematic.LabelHier} {
			for _, label := range node.Doc.Labels(kind) {
				if claims.labels[labelClaim{node, kind, label.Text}] {
					continue
				}
				plan.Actions = append(plan.Actions, LabelAction{
					Node: node, Op: OpRemoveLabel, Kind: kind, Net: label.Text, Label: label,
				})
			}
		}
		for _, child := range node.Children {
			ref := sheetRefFor(node, child)
			if ref == nil {
				continue
			}
			for _, pin := range ref.Pins() {
				if claims.pins[pinClaim{node, child.File, pin.Name}] {
					continue
				}
				plan.Actions = append(plan.Actions, LabelAction{
					Node: node, Op: OpRemoveSheetPin, Net: pin.Name, Child: child,
				})
			}
		}
		for _, pwr := range node.Doc.PowerSymbols("") {
			name := strings.TrimPrefix(pwr.LibID, schematic.PowerLibPrefix)
			if live[name] && opts.isPowerNet(name) {
				continue
			}
			if !live[name] {
				plan.Warnings = append(plan.Warnings, fmt.Sprintf(
					"sheet %s: power port %s names no declared net, left in place", node.Name, name))
			}
		}
	})
}
