// Package bom turns ungrouped part rows into procurement-ready bill of
// materials rows: parts grouped by a caller-selected key, references
// collapsed into ranges, do-not-populate parts included or excluded on
// request.
package bom

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/schemaforge/esync/pkg/toolbridge"
)

// GroupKey selects the grouping criterion
type GroupKey int

const (
	// GroupByValueFootprint groups parts sharing value and footprint
	GroupByValueFootprint GroupKey = iota
	// GroupByValue groups parts sharing a value regardless of footprint
	GroupByValue
)

// Options controls BOM generation
type Options struct {
	GroupBy GroupKey

	// IncludeDNP keeps do-not-populate parts, grouped separately from
	// populated ones and marked as such
	IncludeDNP bool
}

// Row is one grouped BOM row
type Row struct {
	Refs       string // collapsed range string, e.g. "R1-R4,R7"
	References []string
	Value      string
	Footprint  string
	Quantity   int
	DNP        bool
}

// Build groups part rows into BOM rows. Output order is deterministic:
// rows sort by their first reference, references within a row sort
// numerically.
func Build(parts []toolbridge.PartRow, opts Options) []Row {
	type key struct {
		value     string
		footprint string
		dnp       bool
	}

	groups := make(map[key]*Row)
	var order []key
	for _, part := range parts {
		if part.DNP && !opts.IncludeDNP {
			continue
		}
		k := key{value: part.Value, dnp: part.DNP}
		if opts.GroupBy == GroupByValueFootprint {
			k.footprint = part.Footprint
		}
		row, ok := groups[k]
		if !ok {
			row = &Row{Value: part.Value, Footprint: part.Footprint, DNP: part.DNP}
			groups[k] = row
			order = append(order, k)
		}
		row.References = append(row.References, part.Reference)
		row.Quantity++
	}

	rows := make([]Row, 0, len(order))
	for _, k := range order {
		row := groups[k]
		sort.Slice(row.References, func(i, j int) bool {
			return refLess(row.References[i], row.References[j])
		})
		row.Refs = CollapseRefs(row.References)
		rows = append(rows, *row)
	}
	sort.Slice(rows, func(i, j int) bool {
		return refLess(rows[i].References[0], rows[j].References[0])
	})
	return rows
}

// CollapseRefs renders a sorted reference list as a range string:
// consecutive indexes with one prefix fold into "R1-R4", the rest join
// with commas. Placeholder and non-standard references pass through.
func CollapseRefs(refs []string) string {
	var out []string

	i := 0
	for i < len(refs) {
		start, err := ParseRef(refs[i])
		if err != nil || start.Placeholder {
			out = append(out, refs[i])
			i++
			continue
		}

		j := i
		last := start
		for j+1 < len(refs) {
			next, err := ParseRef(refs[j+1])
			if err != nil || next.Placeholder || next.Prefix != start.Prefix || next.Index != last.Index+1 {
				break
			}
			last = next
			j++
		}

		if j-i >= 2 {
			out = append(out, fmt.Sprintf("%s-%s", start, last))
		} else {
			for ; i <= j; i++ {
				out = append(out, refs[i])
			}
			continue
		}
		i = j + 1
	}
	return strings.Join(out, ",")
}

// WriteCSV writes the grouped rows as CSV with a header
func WriteCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"References", "Value", "Footprint", "Quantity", "DNP"}); err != nil {
		return err
	}
	for _, row := range rows {
		dnp := ""
		if row.DNP {
			dnp = "DNP"
		}
		record := []string{row.Refs, row.Value, row.Footprint, strconv.Itoa(row.Quantity), dnp}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
