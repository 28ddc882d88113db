package sexp

import (
	"fmt"
	"strconv"
	"strings"
)

// S-expression navigation helpers

// FindNode searches for a child list with the given key (first symbol).
// Example: FindNode(node, "at") finds (at 100 50) in a list.
func FindNode(s Node, key string) (*List, bool) {
	l, ok := s.(*List)
	if !ok {
		return nil, false
	}

	for _, item := range l.Items {
		if sub, ok := item.(*List); ok && sub.Name() == key {
			return sub, true
		}
	}

	return nil, false
}

// FindAllNodes finds all child lists with the given key
func FindAllNodes(s Node, key string) []*List {
	var results []*List

	l, ok := s.(*List)
	if !ok {
		return results
	}

	for _, item := range l.Items {
		if sub, ok := item.(*List); ok && sub.Name() == key {
			results = append(results, sub)
		}
	}

	return results
}

// GetString extracts a decoded string value at the given index in a list.
// Index 0 is the key, 1 is the first value, etc.
func GetString(s Node, index int) (string, error) {
	l, ok := s.(*List)
	if !ok {
		return "", fmt.Errorf("expected list, got atom")
	}

	if index < 0 || index >= len(l.Items) {
		return "", fmt.Errorf("index %d out of bounds (length %d)", index, len(l.Items))
	}

	if a, ok := l.Items[index].(*Atom); ok {
		return a.Value(), nil
	}

	return "", fmt.Errorf("expected atom at index %d, got list", index)
}

// GetFloat extracts a float64 value at the given index
func GetFloat(s Node, index int) (float64, error) {
	str, err := GetString(s, index)
	if err != nil {
		return 0, err
	}

	val, err := strconv.ParseFloat(str, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse float %q: %w", str, err)
	}

	return val, nil
}

// GetInt extracts an int value at the given index
func GetInt(s Node, index int) (int, error) {
	str, err := GetString(s, index)
	if err != nil {
		return 0, err
	}

	val, err := strconv.Atoi(str)
	if err != nil {
		return 0, fmt.Errorf("failed to parse int %q: %w", str, err)
	}

	return val, nil
}

// HasFlag checks if a list contains a bare symbol (e.g. "hide")
func HasFlag(s Node, flag string) bool {
	l, ok := s.(*List)
	if !ok {
		return false
	}

	for _, item := range l.Items {
		if a, ok := item.(*Atom); ok && !a.IsQuoted() && a.Raw == flag {
			return true
		}
	}

	return false
}

// NodeName returns the first symbol of a list (the node type/name)
func NodeName(s Node) (string, error) {
	switch v := s.(type) {
	case *Atom:
		return v.Value(), nil
	case *List:
		if name := v.Name(); name != "" {
			return name, nil
		}
		return "", fmt.Errorf("expected symbol at head of list")
	}
	return "", fmt.Errorf("unknown node type %T", s)
}

// GetPosition extracts X, Y and optional angle from an (at X Y [angle]) node.
// Schematic files store coordinates in millimeters and angles in degrees.
func GetPosition(s Node) (PositionAngle, error) {
	key, err := GetString(s, 0)
	if err != nil {
		return PositionAngle{}, err
	}
	if key != "at" {
		return PositionAngle{}, fmt.Errorf("expected 'at', got %q", key)
	}

	x, err := GetFloat(s, 1)
	if err != nil {
		return PositionAngle{}, fmt.Errorf("failed to parse X coordinate: %w", err)
	}

	y, err := GetFloat(s, 2)
	if err != nil {
		return PositionAngle{}, fmt.Errorf("failed to parse Y coordinate: %w", err)
	}

	result := PositionAngle{Position: Position{X: x, Y: y}}

	// Angle is optional
	if angle, err := GetFloat(s, 3); err == nil {
		result.Angle = Angle(angle)
	}

	return result, nil
}

// Mutation helpers. Every function here edits only the nodes it names;
// sibling nodes and their trivia stay untouched.

// Sym builds a bare-symbol atom with a single leading space.
func Sym(v string) *Atom {
	return &Atom{Trivia: " ", Raw: v}
}

// Str builds a quoted-string atom with a single leading space.
func Str(v string) *Atom {
	return &Atom{Trivia: " ", Raw: Quote(v)}
}

// Num builds a numeric atom with a single leading space.
func Num(v float64) *Atom {
	return &Atom{Trivia: " ", Raw: FormatFloat(v)}
}

// FormatFloat renders a float the way KiCad writes coordinates: shortest
// decimal form, no exponent.
func FormatFloat(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if s == "-0" {
		return "0"
	}
	return s
}

// NewList builds a (key items...) list with a single leading space.
func NewList(key string, items ...Node) *List {
	l := &List{Trivia: " "}
	l.Items = append(l.Items, &Atom{Raw: key})
	l.Items = append(l.Items, items...)
	return l
}

// Block marks a freshly built list as line-breaking: when reindented it is
// placed on its own line instead of inline with its parent.
func Block(l *List) *List {
	l.Trivia = "\n"
	return l
}

// SetAtom replaces the value of the atom at index, keeping quoting style.
func SetAtom(l *List, index int, value string) error {
	if index < 0 || index >= len(l.Items) {
		return fmt.Errorf("index %d out of bounds (length %d)", index, len(l.Items))
	}
	a, ok := l.Items[index].(*Atom)
	if !ok {
		return fmt.Errorf("expected atom at index %d", index)
	}
	a.SetValue(value)
	return nil
}

// RemoveChild removes the given child node from the list. The removed
// node's trivia disappears with it.
func RemoveChild(l *List, child Node) bool {
	for i, item := range l.Items {
		if item == child {
			l.Items = append(l.Items[:i], l.Items[i+1:]...)
			return true
		}
	}
	return false
}

// AppendChild inserts a node at the end of the list, indented one level
// deeper than the list itself. The closing paren moves to its own line if
// it was not on one already.
func AppendChild(l *List, child Node) {
	indent := childIndent(l)
	setTrivia(child, "\n"+indent)
	l.Items = append(l.Items, child)
	if !strings.Contains(l.CloseTrivia, "\n") {
		l.CloseTrivia = "\n" + listIndent(l)
	}
	Reindent(child, indent)
}

// InsertBefore inserts a node immediately before the given sibling,
// borrowing the sibling's indentation.
func InsertBefore(l *List, child, sibling Node) bool {
	for i, item := range l.Items {
		if item == sibling {
			indent := indentOf(triviaOf(sibling))
			setTrivia(child, "\n"+indent)
			l.Items = append(l.Items[:i], append([]Node{child}, l.Items[i:]...)...)
			Reindent(child, indent)
			return true
		}
	}
	return false
}

// Reindent rewrites the line breaks inside a freshly built subtree so
// nested block lists sit one level deeper than their parent. Inline nodes
// (single-space trivia) stay inline; only nodes whose trivia contains a
// newline are moved.
func Reindent(n Node, indent string) {
	l, ok := n.(*List)
	if !ok {
		return
	}
	child := indent + "\t"
	hasBlock := false
	for _, item := range l.Items {
		if sub, ok := item.(*List); ok {
			if strings.Contains(sub.Trivia, "\n") {
				sub.Trivia = "\n" + child
				hasBlock = true
			}
			Reindent(sub, child)
		}
	}
	// A list with block children closes on its own line
	if hasBlock || strings.Contains(l.CloseTrivia, "\n") {
		l.CloseTrivia = "\n" + indent
	}
}

func triviaOf(n Node) string {
	switch v := n.(type) {
	case *Atom:
		return v.Trivia
	case *List:
		return v.Trivia
	}
	return ""
}

func setTrivia(n Node, t string) {
	switch v := n.(type) {
	case *Atom:
		v.Trivia = t
	case *List:
		v.Trivia = t
	}
}

// indentOf extracts the indentation after the last newline of a trivia run.
func indentOf(trivia string) string {
	if i := strings.LastIndexByte(trivia, '\n'); i >= 0 {
		return trivia[i+1:]
	}
	return ""
}

// listIndent infers the indentation the list itself sits at.
func listIndent(l *List) string {
	return indentOf(l.Trivia)
}

// childIndent infers the indentation used by the list's existing block
// children, falling back to one level deeper than the list itself.
func childIndent(l *List) string {
	for i := len(l.Items) - 1; i >= 1; i-- {
		t := triviaOf(l.Items[i])
		if strings.Contains(t, "\n") {
			return indentOf(t)
		}
	}
	return listIndent(l) + "\t"
}
