package toolbridge

import (
	"context"
	"fmt"
	"os"

	"github.com/schemaforge/esync/pkg/kicad/sexp"
)

// Netlist is the parsed connectivity export
type Netlist struct {
	Nets []NetlistNet
}

// NetlistNet is one net with its connected pins
type NetlistNet struct {
	Code  string
	Name  string
	Nodes []NetlistNode
}

// NetlistNode is one (reference, pin) connection
type NetlistNode struct {
	Ref string
	Pin string
}

// Net returns the net with the given name, or nil
func (n *Netlist) Net(name string) *NetlistNet {
	for i := range n.Nets {
		if n.Nets[i].Name == name {
			return &n.Nets[i]
		}
	}
	return nil
}

// ExportNetlist exports the project's netlist through the external tool
// and parses the result. The export file is left at outPath for the
// caller.
func (b *Bridge) ExportNetlist(ctx context.Context, rootSheet, outPath string) (*Netlist, error) {
	_, err := b.run(ctx, "sch", "export", "netlist",
		"--format", "kicadsexpr", "--output", outPath, rootSheet)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		return nil, fmt.Errorf("netlist export produced no readable file: %w", err)
	}
	return ParseNetlist(data)
}

// ParseNetlist parses a KiCad s-expression netlist export
func ParseNetlist(data []byte) (*Netlist, error) {
	doc, err := sexp.ParseString(string(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse netlist: %w", err)
	}
	root := doc.Root()
	if root == nil || root.Name() != "export" {
		return nil, fmt.Errorf("not a netlist export: missing 'export' root")
	}

	netlist := &Netlist{}
	netsNode, found := sexp.FindNode(root, "nets")
	if !found {
		return netlist, nil
	}

	for _, netNode := range sexp.FindAllNodes(netsNode, "net") {
		net := NetlistNet{}
		if codeNode, ok := sexp.FindNode(netNode, "code"); ok {
			net.Code, _ = sexp.GetString(codeNode, 1)
		}
		if nameNode, ok := sexp.FindNode(netNode, "name"); ok {
			net.Name, _ = sexp.GetString(nameNode, 1)
		}
		for _, nodeNode := range sexp.FindAllNodes(netNode, "node") {
			node := NetlistNode{}
			if refNode, ok := sexp.FindNode(nodeNode, "ref"); ok {
				node.Ref, _ = sexp.GetString(refNode, 1)
			}
			if pinNode, ok := sexp.FindNode(nodeNode, "pin"); ok {
				node.Pin, _ = sexp.GetString(pinNode, 1)
			}
			net.Nodes = append(net.Nodes, node)
		}
		netlist.Nets = append(netlist.Nets, net)
	}
	return netlist, nil
}
