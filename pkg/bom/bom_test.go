package bom

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schemaforge/esync/pkg/toolbridge"
)

func TestParseRef(t *testing.T) {
	ref, err := ParseRef("R12")
	require.NoError(t, err)
	assert.Equal(t, "R", ref.Prefix)
	assert.Equal(t, 12, ref.Index)
	assert.False(t, ref.Placeholder)

	ref, err = ParseRef("U?")
	require.NoError(t, err)
	assert.Equal(t, "U", ref.Prefix)
	assert.True(t, ref.Placeholder)

	ref, err = ParseRef("#PWR07")
	require.NoError(t, err)
	assert.Equal(t, "#PWR", ref.Prefix)
	assert.Equal(t, 7, ref.Index)

	for _, bad := range []string{"", "12", "R1x2"} {
		_, err := ParseRef(bad)
		assert.Error(t, err, "expected error for %q", bad)
	}
}

func TestRefLessNumericOrder(t *testing.T) {
	assert.True(t, refLess("R2", "R10"), "indexes compare numerically, not lexically")
	assert.True(t, refLess("C1", "R1"))
	assert.True(t, refLess("R1", "R?"), "placeholders sort last")
}

func TestCollapseRefs(t *testing.T) {
	assert.Equal(t, "R1-R4,R7", CollapseRefs([]string{"R1", "R2", "R3", "R4", "R7"}))
	assert.Equal(t, "R1,R2", CollapseRefs([]string{"R1", "R2"}))
	assert.Equal(t, "C1-C3,R9", CollapseRefs([]string{"C1", "C2", "C3", "R9"}))
	assert.Equal(t, "R?,R1", CollapseRefs([]string{"R?", "R1"}))
	assert.Equal(t, "", CollapseRefs(nil))
}

func parts(n int) []toolbridge.PartRow {
	var rows []toolbridge.PartRow
	for i := 1; i <= n; i++ {
		rows = append(rows, toolbridge.PartRow{
			Reference: fmt.Sprintf("R%d", i),
			Value:     "10k",
			Footprint: "Resistor_SMD:R_0603_1608Metric",
		})
	}
	return rows
}

func TestBuildGroupsIdenticalParts(t *testing.T) {
	input := append(parts(10), toolbridge.PartRow{
		Reference: "C1", Value: "100n", Footprint: "Capacitor_SMD:C_0603_1608Metric",
	})

	rows := Build(input, Options{})
	require.Len(t, rows, 2)

	assert.Equal(t, "C1", rows[0].Refs)
	assert.Equal(t, 10, rows[1].Quantity)
	assert.Equal(t, "R1-R10", rows[1].Refs)
	assert.Len(t, rows[1].References, 10)

	// An eleventh identical part grows that row and nothing else
	input = append(input, toolbridge.PartRow{
		Reference: "R11", Value: "10k", Footprint: "Resistor_SMD:R_0603_1608Metric",
	})
	rows = Build(input, Options{})
	require.Len(t, rows, 2)
	assert.Equal(t, 11, rows[1].Quantity)
	assert.Equal(t, "R1-R11", rows[1].Refs)
	assert.Equal(t, 1, rows[0].Quantity)
}

func TestBuildGroupKeySeparatesFootprints(t *testing.T) {
	input := []toolbridge.PartRow{
		{Reference: "R1", Value: "10k", Footprint: "R_0603"},
		{Reference: "R2", Value: "10k", Footprint: "R_0805"},
	}

	rows := Build(input, Options{GroupBy: GroupByValueFootprint})
	assert.Len(t, rows, 2)

	rows = Build(input, Options{GroupBy: GroupByValue})
	require.Len(t, rows, 1)
	assert.Equal(t, 2, rows[0].Quantity)
}

func TestBuildDNPHandling(t *testing.T) {
	input := []toolbridge.PartRow{
		{Reference: "R1", Value: "10k", Footprint: "R_0603"},
		{Reference: "R2", Value: "10k", Footprint: "R_0603", DNP: true},
	}

	rows := Build(input, Options{})
	require.Len(t, rows, 1)
	assert.Equal(t, "R1", rows[0].Refs)

	// Included DNP parts group apart from populated ones
	rows = Build(input, Options{IncludeDNP: true})
	require.Len(t, rows, 2)
	assert.False(t, rows[0].DNP)
	assert.True(t, rows[1].DNP)
	assert.Equal(t, "R2", rows[1].Refs)
}

func TestWriteCSV(t *testing.T) {
	rows := Build(append(parts(3), toolbridge.PartRow{
		Reference: "C5", Value: "1u", Footprint: "C_0805", DNP: true,
	}), Options{IncludeDNP: true})

	var sb strings.Builder
	require.NoError(t, WriteCSV(&sb, rows))

	lines := strings.Split(strings.TrimSpace(sb.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "References,Value,Footprint,Quantity,DNP", lines[0])
	assert.Equal(t, "C5,1u,C_0805,1,DNP", lines[1])
	assert.Equal(t, "R1-R3,10k,Resistor_SMD:R_0603_1608Metric,3,", lines[2])
}
