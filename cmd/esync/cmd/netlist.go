package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/schemaforge/esync/pkg/project"
	"github.com/schemaforge/esync/pkg/toolbridge"
)

var netlistOutput string

var netlistCmd = &cobra.Command{
	Use:   "netlist",
	Short: "Export the project netlist via the external tool",
	Args:  cobra.NoArgs,
	RunE:  runNetlist,
}

func init() {
	rootCmd.AddCommand(netlistCmd)
	netlistCmd.Flags().StringVarP(&netlistOutput, "output", "o", "", "netlist output file (default <project>.net)")
}

func bridgeFor(p *project.Project) *toolbridge.Bridge {
	return toolbridge.New(p.Config.KicadCLI, time.Duration(p.Config.ToolTimeout))
}

func runNetlist(cmd *cobra.Command, args []string) error {
	p, err := project.Open(projectDir)
	if err != nil {
		return err
	}

	out := netlistOutput
	if out == "" {
		out = filepath.Join(projectDir, p.Design.Project+".net")
	}

	netlist, err := bridgeFor(p).ExportNetlist(context.Background(), p.RootSheetFile(), out)
	if err != nil {
		return err
	}

	fmt.Printf("Exported %d nets to %s\n", len(netlist.Nets), out)
	for _, net := range netlist.Nets {
		nodes := make([]string, 0, len(net.Nodes))
		for _, n := range net.Nodes {
			nodes = append(nodes, n.Ref+"."+n.Pin)
		}
		fmt.Printf("  %s: [%s]\n", net.Name, strings.Join(nodes, ", "))
	}
	return nil
}
