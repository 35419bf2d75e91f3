package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jward/reviewgate/internal/walk"
)

var flagForce bool

var indexCmd = &cobra.Command{
	Use:   "index [path]",
	Short: "Index a project incrementally",
	Long:  "Walks the project honoring .gitignore and the configured excludes, and re-extracts every file whose content changed since the last run.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runIndex,
}

func init() {
	indexCmd.Flags().BoolVar(&flagForce, "force", false, "delete the database and reindex from scratch")
}

func runIndex(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	root, err := resolveTargetDir(cfg, args)
	if err != nil {
		return err
	}
	dbPath := resolveDBPath(cfg)

	if flagForce {
		if err := os.Remove(dbPath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("removing database for --force: %w", err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Cleared database: %s\n", dbPath)
	}

	engine, err := openEngine(cfg, false)
	if err != nil {
		return err
	}
	defer engine.Close()

	files, err := walk.ListFiles(root, walkOptions(cfg))
	if err != nil {
		return fmt.Errorf("listing files: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, err := engine.IndexProject(ctx, keyRoot(cfg, root), files, cfg.Index.Extensions)
	if err != nil {
		return outputError(cmd, "index", err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Database: %s\n", dbPath)
	return outputResult(cmd, CLIResult{Command: "index", Results: toCLIScanReport(report)})
}
