package toolbridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// Violation is one electrical rule finding
type Violation struct {
	Severity    string `json:"severity"`
	Type        string `json:"type"`
	Description string `json:"description"`
}

// ERCReport is the flattened rule-check outcome
type ERCReport struct {
	Violations []Violation
}

// Errors counts violations with error severity
func (r *ERCReport) Errors() int {
	n := 0
	for _, v := range r.Violations {
		if v.Severity == "error" {
			n++
		}
	}
	return n
}

// ercJSON mirrors the tool's JSON report layout
type ercJSON struct {
	Sheets []struct {
		Path       string      `json:"uuid_path"`
		Violations []Violation `json:"violations"`
	} `json:"sheets"`
}

// RunERC runs the electrical rule check over the project and parses the
// JSON report. A non-zero exit with a usable report is a successful check
// that found violations; a non-zero exit without one is a tool failure.
func (b *Bridge) RunERC(ctx context.Context, rootSheet, outPath string) (*ERCReport, error) {
	_, runErr := b.run(ctx, "sch", "erc",
		"--format", "json", "--output", outPath,
		"--exit-code-violations", rootSheet)

	if runErr != nil && errors.Is(runErr, ErrToolNotFound) {
		return nil, runErr
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		if runErr != nil {
			return nil, runErr
		}
		return nil, fmt.Errorf("rule check produced no readable report: %w", err)
	}

	report, err := ParseERCReport(data)
	if err != nil {
		if runErr != nil {
			return nil, runErr
		}
		return nil, err
	}
	return report, nil
}

// ParseERCReport parses the tool's JSON rule-check report
func ParseERCReport(data []byte) (*ERCReport, error) {
	var raw ercJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse rule-check report: %w", err)
	}

	report := &ERCReport{}
	for _, sheet := range raw.Sheets {
		report.Violations = append(report.Violations, sheet.Violations...)
	}
	return report, nil
}
