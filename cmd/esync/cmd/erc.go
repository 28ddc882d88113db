package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/schemaforge/esync/pkg/project"
)

var ercCmd = &cobra.Command{
	Use:   "erc",
	Short: "Run the electrical rule check",
	Args:  cobra.NoArgs,
	RunE:  runERC,
}

func init() {
	rootCmd.AddCommand(ercCmd)
}

func runERC(cmd *cobra.Command, args []string) error {
	p, err := project.Open(projectDir)
	if err != nil {
		return err
	}

	tmp := filepath.Join(os.TempDir(), p.Design.Project+"-erc.json")
	report, err := bridgeFor(p).RunERC(context.Background(), p.RootSheetFile(), tmp)
	if err != nil {
		return err
	}
	defer os.Remove(tmp)

	if len(report.Violations) == 0 {
		fmt.Println("No violations")
		return nil
	}

	for _, v := range report.Violations {
		fmt.Printf("%-8s %-24s %s\n", v.Severity, v.Type, v.Description)
	}
	if n := report.Errors(); n > 0 {
		return fmt.Errorf("%d error(s) reported", n)
	}
	return nil
}
