package circuit

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/zclconf/go-cty/cty"
)

// Reverse synchronization: push literal changes back into the declarative
// source. hclwrite edits tokens in place, so comments and unrelated code
// come through verbatim; only the attributes named in an edit change.

// SourceEdit targets one component block in the declarative source.
// SheetPath is the chain of sheet names from the root sheet down to the
// block's host sheet.
type SourceEdit struct {
	SheetPath []string
	Reference string

	SetIdentity  string  // assign/refresh the identity token
	NewReference string  // annotation: rename the block label
	SetValue     *string // reverse-sync a value edited in the GUI
	SetFootprint *string
	SetDNP       *bool
}

// Rewrite applies source edits to an HCL circuit description and returns
// the updated text. Unmatched edits are an error: silently dropping a
// write-back would lose the identity assignment forever.
func Rewrite(src []byte, filename string, edits []SourceEdit) ([]byte, error) {
	file, diags := hclwrite.ParseConfig(src, filename, hcl.InitialPos)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse circuit source %s: %w", filename, diags)
	}

	for _, edit := range edits {
		block, err := findComponentBlock(file.Body(), edit.SheetPath, edit.Reference)
		if err != nil {
			return nil, err
		}
		applyEdit(block, edit)
	}

	return file.Bytes(), nil
}

func findComponentBlock(body *hclwrite.Body, sheetPath []string, reference string) (*hclwrite.Block, error) {
	current := body
	for _, name := range sheetPath {
		sheet := findBlock(current, "sheet", name)
		if sheet == nil {
			return nil, fmt.Errorf("sheet %q not found in declarative source", name)
		}
		current = sheet.Body()
	}

	comp := findBlock(current, "component", reference)
	if comp == nil {
		return nil, fmt.Errorf("component %q not found under sheet path %v", reference, sheetPath)
	}
	return comp, nil
}

func findBlock(body *hclwrite.Body, typeName, label string) *hclwrite.Block {
	for _, block := range body.Blocks() {
		if block.Type() != typeName {
			continue
		}
		labels := block.Labels()
		if len(labels) == 1 && labels[0] == label {
			return block
		}
	}
	return nil
}

func applyEdit(block *hclwrite.Block, edit SourceEdit) {
	if edit.NewReference != "" {
		block.SetLabels([]string{edit.NewReference})
	}
	if edit.SetIdentity != "" {
		block.Body().SetAttributeValue("identity", cty.StringVal(edit.SetIdentity))
	}
	if edit.SetValue != nil {
		block.Body().SetAttributeValue("value", cty.StringVal(*edit.SetValue))
	}
	if edit.SetFootprint != nil {
		block.Body().SetAttributeValue("footprint", cty.StringVal(*edit.SetFootprint))
	}
	if edit.SetDNP != nil {
		block.Body().SetAttributeValue("dnp", cty.BoolVal(*edit.SetDNP))
	}
}
