package sexp

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"unicode"
)

// TokenType represents the type of a token
type TokenType int

const (
	TokenEOF TokenType = iota
	TokenLeftParen
	TokenRightParen
	TokenAtom
)

// Token represents a lexical token. Raw is the exact source text of the
// token; Trivia is the whitespace and comments that preceded it.
type Token struct {
	Type   TokenType
	Raw    string
	Trivia string
}

// Lexer tokenizes S-expressions from an io.Reader without discarding a
// single byte: everything between tokens is handed back as trivia.
type Lexer struct {
	reader *bufio.Reader
	peeked *rune
}

// NewLexer creates a new lexer
func NewLexer(r io.Reader) *Lexer {
	return &Lexer{
		reader: bufio.NewReader(r),
	}
}

// NextToken reads the next token from the input
func (l *Lexer) NextToken() (Token, error) {
	var trivia strings.Builder

	// Collect whitespace and comments verbatim
	for {
		ch, err := l.peek()
		if err != nil {
			if err == io.EOF {
				return Token{Type: TokenEOF, Trivia: trivia.String()}, nil
			}
			return Token{}, err
		}

		if unicode.IsSpace(ch) {
			l.read()
			trivia.WriteRune(ch)
			continue
		}

		// Comments run from # to end of line
		if ch == '#' {
			for {
				c, err := l.read()
				if err != nil {
					break
				}
				trivia.WriteRune(c)
				if c == '\n' {
					break
				}
			}
			continue
		}

		break
	}

	ch, err := l.peek()
	if err != nil {
		if err == io.EOF {
			return Token{Type: TokenEOF, Trivia: trivia.String()}, nil
		}
		return Token{}, err
	}

	switch ch {
	case '(':
		l.read()
		return Token{Type: TokenLeftParen, Raw: "(", Trivia: trivia.String()}, nil

	case ')':
		l.read()
		return Token{Type: TokenRightParen, Raw: ")", Trivia: trivia.String()}, nil

	case '"':
		tok, err := l.readString()
		tok.Trivia = trivia.String()
		return tok, err

	default:
		tok, err := l.readSymbol()
		tok.Trivia = trivia.String()
		return tok, err
	}
}

// peek looks at the next rune without consuming it
func (l *Lexer) peek() (rune, error) {
	if l.peeked != nil {
		return *l.peeked, nil
	}

	ch, _, err := l.reader.ReadRune()
	if err != nil {
		return 0, err
	}

	l.peeked = &ch
	return ch, nil
}

// read consumes and returns the next rune
func (l *Lexer) read() (rune, error) {
	if l.peeked != nil {
		ch := *l.peeked
		l.peeked = nil
		return ch, nil
	}

	ch, _, err := l.reader.ReadRune()
	return ch, err
}

// readString reads a quoted string, keeping quotes and escapes in Raw so
// the token can be reproduced exactly.
func (l *Lexer) readString() (Token, error) {
	var raw strings.Builder

	// Opening quote
	ch, _ := l.read()
	raw.WriteRune(ch)

	for {
		ch, err := l.read()
		if err != nil {
			if err == io.EOF {
				return Token{}, fmt.Errorf("unexpected EOF in string")
			}
			return Token{}, err
		}
		raw.WriteRune(ch)

		if ch == '\\' {
			// Keep the escaped rune as-is
			next, err := l.read()
			if err != nil {
				return Token{}, fmt.Errorf("unexpected EOF after backslash")
			}
			raw.WriteRune(next)
			continue
		}

		if ch == '"' {
			break
		}
	}

	return Token{Type: TokenAtom, Raw: raw.String()}, nil
}

// readSymbol reads an unquoted symbol (identifier, number, etc.)
func (l *Lexer) readSymbol() (Token, error) {
	var raw strings.Builder

	for {
		ch, err := l.peek()
		if err != nil {
			if err == io.EOF {
				break
			}
			return Token{}, err
		}

		// Stop at delimiters
		if unicode.IsSpace(ch) || ch == '(' || ch == ')' || ch == '"' {
			break
		}

		l.read()
		raw.WriteRune(ch)
	}

	if raw.Len() == 0 {
		return Token{}, fmt.Errorf("empty symbol")
	}

	return Token{Type: TokenAtom, Raw: raw.String()}, nil
}
