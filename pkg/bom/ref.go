package bom

import (
	"fmt"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// RefDes is a parsed reference designator: an alphabetic prefix plus a
// numeric index ("R12"), or a placeholder awaiting annotation ("R?").
type RefDes struct {
	Prefix      string `parser:"@Prefix"`
	Index       int    `parser:"( @Index"`
	Placeholder bool   `parser:"  | @Quest )"`
}

func (r RefDes) String() string {
	if r.Placeholder {
		return r.Prefix + "?"
	}
	return fmt.Sprintf("%s%d", r.Prefix, r.Index)
}

var refLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Prefix", Pattern: `#?[A-Za-z_]+`},
	{Name: "Index", Pattern: `\d+`},
	{Name: "Quest", Pattern: `\?`},
})

var refParser = participle.MustBuild[RefDes](
	participle.Lexer(refLexer),
)

// ParseRef parses a reference designator
func ParseRef(s string) (RefDes, error) {
	ref, err := refParser.ParseString("", s)
	if err != nil {
		return RefDes{}, fmt.Errorf("invalid reference %q: %w", s, err)
	}
	return *ref, nil
}

// refLess orders references by prefix, then numerically by index, so
// "R2" sorts before "R10". Placeholders sort after annotated parts of
// the same prefix.
func refLess(a, b string) bool {
	ra, errA := ParseRef(a)
	rb, errB := ParseRef(b)
	if errA != nil || errB != nil {
		return a < b
	}
	if ra.Prefix != rb.Prefix {
		return ra.Prefix < rb.Prefix
	}
	if ra.Placeholder != rb.Placeholder {
		return rb.Placeholder
	}
	return ra.Index < rb.Index
}
