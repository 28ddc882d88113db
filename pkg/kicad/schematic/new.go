package schematic

import (
	"fmt"
	"strings"
)

// GeneratorName is written into files this package creates
const GeneratorName = "esync"

// newSheetTemplate is the skeleton for a freshly created sheet file
const newSheetTemplate = `(kicad_sch
	(version 20231120)
	(generator "%s")
	(generator_version "%s")
	(uuid "%s")
	(paper "A4")
	(lib_symbols)
	(sheet_instances
		(path "/"
			(page "1")
		)
	)
)
`

// New creates an empty schematic for a sheet that has never been written.
// The caller supplies the sheet uuid so hierarchy paths stay stable.
func New(uuid, version string) *Schematic {
	src := fmt.Sprintf(newSheetTemplate, GeneratorName, version, uuid)
	sch, err := Parse(strings.NewReader(src))
	if err != nil {
		// The template is constant; a parse failure is a programming error
		panic(fmt.Sprintf("invalid sheet template: %v", err))
	}
	return sch
}
