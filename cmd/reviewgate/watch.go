package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/jward/reviewgate/internal/mcpserver"
	"github.com/jward/reviewgate/internal/walk"
	"github.com/jward/reviewgate/internal/watch"
)

var watchCmd = &cobra.Command{
	Use:   "watch [path]",
	Short: "Index the project, then keep the index current as files change",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runWatch,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve index queries and file checks over MCP on stdio",
	Long:  "Starts an MCP server on stdin/stdout. The project is indexed in the background; queries answer from whatever is indexed so far.",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	dir, err := resolveTargetDir(cfg, args)
	if err != nil {
		return err
	}
	// Keys stay relative to the project root, so the whole root is watched.
	root := keyRoot(cfg, dir)

	engine, err := openEngine(cfg, false)
	if err != nil {
		return err
	}
	defer engine.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	files, err := walk.ListFiles(root, walkOptions(cfg))
	if err != nil {
		return fmt.Errorf("listing files: %w", err)
	}
	report, err := engine.IndexProject(ctx, root, files, cfg.Index.Extensions)
	if err != nil {
		return outputError(cmd, "watch", err)
	}
	stderr := cmd.ErrOrStderr()
	formatScanText(stderr, toCLIScanReport(report))

	w, err := watch.New(root, engine, watch.Options{
		Walk:     walkOptions(cfg),
		Debounce: cfg.Watch.Debounce,
		DBPath:   resolveDBPath(cfg),
		Logger:   log.Default(),
		OnResult: func(r watch.Result) {
			switch {
			case r.Err != nil:
				// already logged by the watcher
			case r.Removed:
				fmt.Fprintf(stderr, "removed %s\n", r.Path)
			case r.Indexed:
				fmt.Fprintf(stderr, "indexed %s\n", r.Path)
			}
		},
	})
	if err != nil {
		return err
	}
	defer w.Close()

	fmt.Fprintf(stderr, "Watching %s (Ctrl-C to stop)\n", root)
	return w.Run(ctx)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	engine, err := openEngine(cfg, false)
	if err != nil {
		return err
	}
	defer engine.Close()

	rulesEngine, err := newRulesEngine(cfg, engine)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	files, err := walk.ListFiles(cfg.Root, walkOptions(cfg))
	if err != nil {
		return fmt.Errorf("listing files: %w", err)
	}
	scan := engine.StartScan(ctx, cfg.Root, files, cfg.Index.Extensions)
	go func() {
		report, err := scan.Wait()
		if err != nil {
			log.Printf("reviewgate: background index: %v", err)
			return
		}
		log.Printf("reviewgate: indexed %d of %d files (%d unchanged, %d failed) in %s",
			report.Indexed, report.Considered, report.Unchanged, len(report.Failed), report.Duration)
	}()

	s := mcpserver.New(mcpserver.Deps{
		Query:  engine.Query(),
		Rules:  rulesEngine,
		Config: cfg,
		Root:   cfg.Root,
	})
	if err := server.ServeStdio(s); err != nil {
		return err
	}
	stop()
	<-scan.Done()
	return nil
}
