package sexp

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// Parser builds a lossless node tree from a lexer
type Parser struct {
	lexer   *Lexer
	current Token
}

// NewParser creates a new parser from an io.Reader
func NewParser(r io.Reader) *Parser {
	return &Parser{
		lexer: NewLexer(r),
	}
}

// Parse parses a complete document from an io.Reader.
func Parse(r io.Reader) (*Document, error) {
	return NewParser(r).ParseDocument()
}

// ParseString parses a document from a string (convenience function)
func ParseString(s string) (*Document, error) {
	return Parse(strings.NewReader(s))
}

// ParseFile reads and parses a file.
func ParseFile(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	doc, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return doc, nil
}

// ParseDocument parses all top-level S-expressions plus trailing trivia
func (p *Parser) ParseDocument() (*Document, error) {
	doc := &Document{}

	tok, err := p.lexer.NextToken()
	if err != nil {
		return nil, err
	}
	p.current = tok

	for p.current.Type != TokenEOF {
		expr, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		doc.Nodes = append(doc.Nodes, expr)

		tok, err := p.lexer.NextToken()
		if err != nil {
			return nil, err
		}
		p.current = tok
	}

	doc.Tail = p.current.Trivia
	return doc, nil
}

// parseExpr parses a single S-expression
func (p *Parser) parseExpr() (Node, error) {
	switch p.current.Type {
	case TokenLeftParen:
		return p.parseList()

	case TokenAtom:
		return &Atom{Trivia: p.current.Trivia, Raw: p.current.Raw}, nil

	case TokenRightParen:
		return nil, fmt.Errorf("unexpected ')'")

	case TokenEOF:
		return nil, fmt.Errorf("unexpected EOF")

	default:
		return nil, fmt.Errorf("unexpected token type: %v", p.current.Type)
	}
}

// parseList parses a list: ( ... )
func (p *Parser) parseList() (Node, error) {
	if p.current.Type != TokenLeftParen {
		return nil, fmt.Errorf("expected '(', got %v", p.current.Type)
	}

	list := &List{Trivia: p.current.Trivia}

	for {
		tok, err := p.lexer.NextToken()
		if err != nil {
			return nil, err
		}
		p.current = tok

		if p.current.Type == TokenRightParen {
			list.CloseTrivia = p.current.Trivia
			break
		}

		if p.current.Type == TokenEOF {
			return nil, fmt.Errorf("unexpected EOF in list")
		}

		elem, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		list.Items = append(list.Items, elem)
	}

	return list, nil
}
