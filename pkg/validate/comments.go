package validate

import (
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
)

// ExtractComments returns the normalized text of every comment in an HCL
// source, position-independent. Normalization strips the comment markers
// and surrounding whitespace so reflowed sources still compare equal.
func ExtractComments(src []byte, filename string) ([]string, error) {
	tokens, diags := hclsyntax.LexConfig(src, filename, hcl.InitialPos)
	if diags.HasErrors() {
		return nil, diags
	}

	var comments []string
	for _, tok := range tokens {
		if tok.Type != hclsyntax.TokenComment {
			continue
		}
		if text := normalizeComment(string(tok.Bytes)); text != "" {
			comments = append(comments, text)
		}
	}
	return comments, nil
}

func normalizeComment(raw string) string {
	text := strings.TrimSpace(raw)
	switch {
	case strings.HasPrefix(text, "#"):
		text = text[1:]
	case strings.HasPrefix(text, "//"):
		text = text[2:]
	case strings.HasPrefix(text, "/*"):
		text = strings.TrimSuffix(text[2:], "*/")
	}
	return strings.TrimSpace(text)
}

// CompareComments checks that every comment of the original source
// survives in the regenerated one. Lost comments are failures; comments
// only present in the regenerated source are warnings.
func CompareComments(original, regenerated []byte, filename string) (*Diff, error) {
	diff := &Diff{}

	origComments, err := ExtractComments(original, filename)
	if err != nil {
		return nil, err
	}
	regenComments, err := ExtractComments(regenerated, filename)
	if err != nil {
		return nil, err
	}

	regenSet := make(map[string]bool, len(regenComments))
	for _, c := range regenComments {
		regenSet[c] = true
	}
	origSet := make(map[string]bool, len(origComments))
	for _, c := range origComments {
		origSet[c] = true
		if !regenSet[c] {
			diff.failf("comment lost: %q", c)
		}
	}
	for _, c := range regenComments {
		if !origSet[c] {
			diff.warnf("comment added: %q", c)
		}
	}
	return diff, nil
}

// CompareSourceStructure compares the declared block skeletons of two
// sources as a code-quality signal. Differences are warnings, never
// failures; the structural gate is the schematic comparison.
func CompareSourceStructure(a, b []byte, filename string) (*Diff, error) {
	diff := &Diff{}

	sigA, err := blockSignatures(a, filename)
	if err != nil {
		return nil, err
	}
	sigB, err := blockSignatures(b, filename)
	if err != nil {
		return nil, err
	}

	setB := make(map[string]bool, len(sigB))
	for _, s := range sigB {
		setB[s] = true
	}
	setA := make(map[string]bool, len(sigA))
	for _, s := range sigA {
		setA[s] = true
		if !setB[s] {
			diff.warnf("block missing from second source: %s", s)
		}
	}
	for _, s := range sigB {
		if !setA[s] {
			diff.warnf("block only in second source: %s", s)
		}
	}
	return diff, nil
}

func blockSignatures(src []byte, filename string) ([]string, error) {
	file, diags := hclsyntax.ParseConfig(src, filename, hcl.InitialPos)
	if diags.HasErrors() {
		return nil, diags
	}
	body, ok := file.Body.(*hclsyntax.Body)
	if !ok {
		return nil, nil
	}

	var sigs []string
	var walk func(prefix string, body *hclsyntax.Body)
	walk = func(prefix string, body *hclsyntax.Body) {
		for _, block := range body.Blocks {
			sig := prefix + block.Type
			if len(block.Labels) > 0 {
				sig += " " + strings.Join(block.Labels, " ")
			}
			sigs = append(sigs, sig)
			walk(sig+" / ", block.Body)
		}
	}
	walk("", body)
	return sigs, nil
}
