package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/schemaforge/esync/pkg/bom"
	"github.com/schemaforge/esync/pkg/project"
)

var (
	bomOutput     string
	bomGroupBy    string
	bomIncludeDNP bool
)

var bomCmd = &cobra.Command{
	Use:   "bom",
	Short: "Export a grouped bill of materials",
	Long: `Export the parts list via the external tool, group it into BOM rows
and write CSV. Grouping is by value and footprint unless --group-by
selects value only.`,
	Args: cobra.NoArgs,
	RunE: runBOM,
}

func init() {
	rootCmd.AddCommand(bomCmd)
	bomCmd.Flags().StringVarP(&bomOutput, "output", "o", "", "CSV output file (default stdout)")
	bomCmd.Flags().StringVar(&bomGroupBy, "group-by", "value-footprint", "grouping key: value-footprint or value")
	bomCmd.Flags().BoolVar(&bomIncludeDNP, "include-dnp", false, "include do-not-populate parts as separate rows")
}

func runBOM(cmd *cobra.Command, args []string) error {
	var groupBy bom.GroupKey
	switch bomGroupBy {
	case "value-footprint":
		groupBy = bom.GroupByValueFootprint
	case "value":
		groupBy = bom.GroupByValue
	default:
		return fmt.Errorf("unknown grouping key %q", bomGroupBy)
	}

	p, err := project.Open(projectDir)
	if err != nil {
		return err
	}

	tmp := filepath.Join(os.TempDir(), p.Design.Project+"-parts.csv")
	parts, err := bridgeFor(p).ExportParts(context.Background(), p.RootSheetFile(), tmp)
	if err != nil {
		return err
	}
	defer os.Remove(tmp)

	rows := bom.Build(parts, bom.Options{GroupBy: groupBy, IncludeDNP: bomIncludeDNP})

	out := os.Stdout
	if bomOutput != "" {
		f, err := os.Create(bomOutput)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}
	return bom.WriteCSV(out, rows)
}
