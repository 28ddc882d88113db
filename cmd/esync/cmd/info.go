package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/schemaforge/esync/pkg/esync"
	"github.com/schemaforge/esync/pkg/project"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show the project's sheet tree, components and net resolution",
	Args:  cobra.NoArgs,
	RunE:  runInfo,
}

func init() {
	rootCmd.AddCommand(infoCmd)
}

func runInfo(cmd *cobra.Command, args []string) error {
	p, err := project.Open(projectDir)
	if err != nil {
		return err
	}

	fmt.Printf("Project: %s\n", p.Design.Project)
	fmt.Printf("Source: %s\n", p.SourceFile())
	fmt.Println()

	fmt.Println("Sheets:")
	p.Root.Walk(func(n *esync.SheetNode) {
		depth := strings.Count(n.Path, "/") - 1
		onDisk := "new"
		if _, err := os.Stat(p.Dir + string(os.PathSeparator) + n.File); err == nil {
			onDisk = fmt.Sprintf("%d placed", len(n.Doc.Components()))
		}
		fmt.Printf("  %s%s (%s, %d declared, %s)\n",
			strings.Repeat("  ", depth), n.Name, n.File, len(n.Target.Components), onDisk)
	})
	fmt.Println()

	if len(p.BoardFiles) > 0 {
		fmt.Println("Boards:")
		for _, board := range p.BoardFiles {
			fmt.Printf("  %s\n", filepath.Base(board))
		}
		fmt.Println()
	}

	plan, err := esync.ResolveNets(p.Root, p.Options())
	if err != nil {
		return err
	}
	fmt.Println("Nets:")
	for _, net := range plan.Nets {
		detail := ""
		if net.SplitFrom != "" {
			detail = fmt.Sprintf(" (split from %s)", net.SplitFrom)
		}
		fmt.Printf("  %-16s %-12s %d endpoint(s)%s\n",
			net.Name, net.Class, len(net.Endpoints), detail)
	}
	for _, warning := range plan.Warnings {
		fmt.Fprintf(os.Stderr, "warning: %s\n", warning)
	}
	return nil
}
