package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/schemaforge/esync/pkg/project"
)

var (
	syncDryRun bool
	syncWatch  bool
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Reconcile the project files against the circuit source",
	Long: `Parse the project's sheet files, diff them against the declarative
circuit source, and write back the minimal set of edits. Identity tokens
minted for new components flow back into the circuit source.`,
	Args: cobra.NoArgs,
	RunE: runSync,
}

func init() {
	rootCmd.AddCommand(syncCmd)
	syncCmd.Flags().BoolVarP(&syncDryRun, "dry-run", "n", false, "compute and report edits without writing")
	syncCmd.Flags().BoolVarP(&syncWatch, "watch", "w", false, "re-sync whenever the circuit source changes")
}

func runSync(cmd *cobra.Command, args []string) error {
	if !syncWatch {
		return syncOnce()
	}

	p, err := project.Open(projectDir)
	if err != nil {
		return err
	}
	source := p.SourceFile()
	fmt.Printf("Watching %s\n", source)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := syncOnce(); err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
	err = project.Watch(ctx, source, 250*time.Millisecond, func() error {
		// Failures inside the loop are reported, not fatal: a half-typed
		// source must not kill the watcher
		if err := syncOnce(); err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
		return nil
	})
	if err == context.Canceled {
		return nil
	}
	return err
}

func syncOnce() error {
	p, err := project.Open(projectDir)
	if err != nil {
		return err
	}

	res, err := p.Sync()
	if err != nil {
		return err
	}

	for _, warning := range res.Warnings {
		fmt.Fprintf(os.Stderr, "warning: %s\n", warning)
	}

	if len(res.Dirty) == 0 {
		fmt.Println("Up to date")
	} else {
		for _, node := range res.Dirty {
			slog.Debug("sheet changed", "file", node.File)
			fmt.Printf("  %s\n", node.File)
		}
	}

	if syncDryRun {
		fmt.Printf("Dry run: %d sheet(s) would change, %d source edit(s) pending\n",
			len(res.Dirty), len(res.SourceEdits))
		return nil
	}
	return p.Commit(res)
}
