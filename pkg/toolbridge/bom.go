package toolbridge

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strings"
)

// PartRow is one ungrouped BOM export row, a single component. Grouping
// into procurement rows happens downstream.
type PartRow struct {
	Reference string
	Value     string
	Footprint string
	DNP       bool
}

// bomFields is the column set requested from the export
const bomFields = "Reference,Value,Footprint,${DNP}"

// ExportParts exports the project's parts list through the external tool
// and parses the CSV into ungrouped rows.
func (b *Bridge) ExportParts(ctx context.Context, rootSheet, outPath string) ([]PartRow, error) {
	_, err := b.run(ctx, "sch", "export", "bom",
		"--fields", bomFields,
		"--group-by", "",
		"--output", outPath, rootSheet)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		return nil, fmt.Errorf("parts export produced no readable file: %w", err)
	}
	return ParsePartsCSV(data)
}

// ParsePartsCSV parses an ungrouped CSV parts export. The header row
// names the columns; unknown columns are ignored.
func ParsePartsCSV(data []byte) ([]PartRow, error) {
	reader := csv.NewReader(strings.NewReader(string(data)))
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse parts export: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	col := make(map[string]int)
	for i, name := range records[0] {
		col[strings.ToLower(strings.TrimSpace(name))] = i
	}
	refCol, ok := col["reference"]
	if !ok {
		return nil, fmt.Errorf("parts export has no Reference column")
	}

	field := func(record []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	var rows []PartRow
	for _, record := range records[1:] {
		if refCol >= len(record) || record[refCol] == "" {
			continue
		}
		dnp := field(record, "dnp")
		rows = append(rows, PartRow{
			Reference: strings.TrimSpace(record[refCol]),
			Value:     field(record, "value"),
			Footprint: field(record, "footprint"),
			DNP:       dnp != "" && !strings.EqualFold(dnp, "no") && dnp != "0",
		})
	}
	return rows, nil
}
