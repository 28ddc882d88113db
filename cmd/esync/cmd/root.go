package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	projectDir string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "esync",
	Short: "esync - bidirectional declarative schematic synchronization",
	Long: `esync keeps a declarative circuit description and a KiCad project in
sync, in both directions. Regenerating never discards work done in the
GUI: placement, hand-drawn labels, DNP flags and comments all survive.

Examples:
  esync sync                       # Reconcile the project in the current directory
  esync sync --watch               # Re-sync whenever the circuit source changes
  esync netlist -o demo.net        # Export the netlist via kicad-cli
  esync bom --include-dnp          # Grouped bill of materials
  esync erc                        # Electrical rule check
  esync info                       # Project summary`,
	Version: "1.0.0",
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&projectDir, "dir", "C", ".", "project directory")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	cobra.OnInitialize(func() {
		level := slog.LevelWarn
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	})
}
