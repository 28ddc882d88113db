// Package sexp provides a lossless S-expression document model for KiCad
// files. Every token carries the whitespace and comments that preceded it in
// the source, so a document that is parsed and serialized without
// modification reproduces the original bytes exactly. Structural nodes the
// caller does not understand are simply never touched and survive verbatim.
package sexp

import (
	"bytes"
	"io"
	"strings"
)

// Node is a single S-expression node: either an Atom or a List.
type Node interface {
	// IsLeaf returns true if this is an atom (not a list)
	IsLeaf() bool

	// writeTo reproduces the node, including its leading trivia
	writeTo(w io.Writer) error
}

// Atom is a single token: a bare symbol, a number, or a quoted string.
// Raw holds the token text exactly as it appeared in the file, quotes and
// escapes included. Trivia holds the whitespace and comments that preceded
// the token.
type Atom struct {
	Trivia string
	Raw    string
}

func (a *Atom) IsLeaf() bool { return true }

func (a *Atom) writeTo(w io.Writer) error {
	if _, err := io.WriteString(w, a.Trivia); err != nil {
		return err
	}
	_, err := io.WriteString(w, a.Raw)
	return err
}

// IsQuoted reports whether the atom is a quoted string token.
func (a *Atom) IsQuoted() bool {
	return strings.HasPrefix(a.Raw, `"`)
}

// Value returns the decoded token text: quotes stripped and escape
// sequences resolved for string tokens, the raw text otherwise.
func (a *Atom) Value() string {
	if !a.IsQuoted() {
		return a.Raw
	}
	return Unquote(a.Raw)
}

// SetValue replaces the token text, keeping the quoting style and the
// leading trivia untouched.
func (a *Atom) SetValue(v string) {
	if a.IsQuoted() {
		a.Raw = Quote(v)
	} else {
		a.Raw = v
	}
}

// List is a parenthesized sequence of nodes. Trivia precedes the opening
// paren; CloseTrivia sits between the last element and the closing paren.
type List struct {
	Trivia      string
	Items       []Node
	CloseTrivia string
}

func (l *List) IsLeaf() bool { return false }

func (l *List) writeTo(w io.Writer) error {
	if _, err := io.WriteString(w, l.Trivia); err != nil {
		return err
	}
	if _, err := io.WriteString(w, "("); err != nil {
		return err
	}
	for _, item := range l.Items {
		if err := item.writeTo(w); err != nil {
			return err
		}
	}
	if _, err := io.WriteString(w, l.CloseTrivia); err != nil {
		return err
	}
	_, err := io.WriteString(w, ")")
	return err
}

// Len returns the number of elements in the list
func (l *List) Len() int { return len(l.Items) }

// Get returns the element at the given index, or nil if out of range
func (l *List) Get(index int) Node {
	if index < 0 || index >= len(l.Items) {
		return nil
	}
	return l.Items[index]
}

// Name returns the first symbol of the list (the node type), or "".
func (l *List) Name() string {
	if len(l.Items) == 0 {
		return ""
	}
	if a, ok := l.Items[0].(*Atom); ok {
		return a.Value()
	}
	return ""
}

// Document is a parsed file: top-level nodes plus any trailing trivia.
type Document struct {
	Nodes []Node
	Tail  string
}

// Root returns the first top-level list, or nil.
func (d *Document) Root() *List {
	for _, n := range d.Nodes {
		if l, ok := n.(*List); ok {
			return l
		}
	}
	return nil
}

// WriteTo serializes the document byte-for-byte.
func (d *Document) WriteTo(w io.Writer) error {
	for _, n := range d.Nodes {
		if err := n.writeTo(w); err != nil {
			return err
		}
	}
	_, err := io.WriteString(w, d.Tail)
	return err
}

// Bytes returns the serialized document.
func (d *Document) Bytes() []byte {
	var buf bytes.Buffer
	// bytes.Buffer writes cannot fail
	_ = d.WriteTo(&buf)
	return buf.Bytes()
}

// String renders a node without its leading trivia, in compact form.
// Intended for diagnostics, not for file output.
func String(n Node) string {
	switch v := n.(type) {
	case *Atom:
		return v.Raw
	case *List:
		parts := make([]string, 0, len(v.Items))
		for _, item := range v.Items {
			parts = append(parts, String(item))
		}
		return "(" + strings.Join(parts, " ") + ")"
	}
	return ""
}

// Quote encodes a string as a KiCad quoted token.
func Quote(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}

// Unquote decodes a quoted token into its text.
func Unquote(raw string) string {
	s := strings.TrimPrefix(raw, `"`)
	s = strings.TrimSuffix(s, `"`)
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			i++
			switch s[i] {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case 'r':
				b.WriteByte('\r')
			default:
				b.WriteByte(s[i])
			}
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}
