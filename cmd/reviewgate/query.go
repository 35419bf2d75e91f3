package main

import (
	"github.com/spf13/cobra"

	"github.com/jward/reviewgate"
	"github.com/jward/reviewgate/internal/config"
)

var flagLimit int

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Query the index",
}

var querySymbolCmd = &cobra.Command{
	Use:   "symbol <name>",
	Short: "Find declarations by exact name",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runQuery(cmd, "symbol", func(_ *config.Config, q *reviewgate.QueryBuilder) (any, error) {
			syms, err := q.FindSymbol(args[0])
			return toCLISymbols(syms), err
		})
	},
}

var queryFileCmd = &cobra.Command{
	Use:   "file <path>",
	Short: "List the declarations of a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runQuery(cmd, "file", func(cfg *config.Config, q *reviewgate.QueryBuilder) (any, error) {
			rel, err := relToRoot(cfg, args[0])
			if err != nil {
				return nil, err
			}
			syms, err := q.FileSymbols(rel)
			return toCLISymbols(syms), err
		})
	},
}

var queryDeadCmd = &cobra.Command{
	Use:   "dead [path]",
	Short: "List functions no indexed call refers to",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runQuery(cmd, "dead", func(cfg *config.Config, q *reviewgate.QueryBuilder) (any, error) {
			rel := ""
			if len(args) > 0 {
				var err error
				if rel, err = relToRoot(cfg, args[0]); err != nil {
					return nil, err
				}
			}
			syms, err := q.DeadCode(rel)
			return toCLISymbols(syms), err
		})
	},
}

var queryUnusedImportsCmd = &cobra.Command{
	Use:   "unused-imports <path>",
	Short: "List the imports of a file not marked as used",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runQuery(cmd, "unused-imports", func(cfg *config.Config, q *reviewgate.QueryBuilder) (any, error) {
			rel, err := relToRoot(cfg, args[0])
			if err != nil {
				return nil, err
			}
			imps, err := q.UnusedImports(rel)
			return toCLIImports(imps), err
		})
	},
}

var queryCallersCmd = &cobra.Command{
	Use:   "callers <name>",
	Short: "List call sites of a name",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runQuery(cmd, "callers", func(_ *config.Config, q *reviewgate.QueryBuilder) (any, error) {
			edges, err := q.Callers(args[0])
			return toCLICallEdges(edges), err
		})
	},
}

var queryHistoryCmd = &cobra.Command{
	Use:   "history <path>",
	Short: "Show recorded quality snapshots of a file with their trend",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runQuery(cmd, "history", func(cfg *config.Config, q *reviewgate.QueryBuilder) (any, error) {
			rel, err := relToRoot(cfg, args[0])
			if err != nil {
				return nil, err
			}
			snaps, err := q.History(rel, flagLimit)
			if err != nil {
				return nil, err
			}
			trend, err := q.Trend(rel, flagLimit)
			if err != nil {
				return nil, err
			}
			return toCLIHistory(snaps, trend), nil
		})
	},
}

var queryMarkUsedCmd = &cobra.Command{
	Use:   "mark-used <path> <import>",
	Short: "Mark an import of a file as used",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runQuery(cmd, "mark-used", func(cfg *config.Config, q *reviewgate.QueryBuilder) (any, error) {
			rel, err := relToRoot(cfg, args[0])
			if err != nil {
				return nil, err
			}
			return q.MarkAsUsed(rel, args[1])
		})
	},
}

func init() {
	queryHistoryCmd.Flags().IntVar(&flagLimit, "limit", 10, "max snapshots")

	queryCmd.AddCommand(querySymbolCmd)
	queryCmd.AddCommand(queryFileCmd)
	queryCmd.AddCommand(queryDeadCmd)
	queryCmd.AddCommand(queryUnusedImportsCmd)
	queryCmd.AddCommand(queryCallersCmd)
	queryCmd.AddCommand(queryHistoryCmd)
	queryCmd.AddCommand(queryMarkUsedCmd)
}

// runQuery opens an existing index, runs fn and prints its result.
func runQuery(cmd *cobra.Command, command string, fn func(*config.Config, *reviewgate.QueryBuilder) (any, error)) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	engine, err := openEngine(cfg, true)
	if err != nil {
		return outputError(cmd, command, err)
	}
	defer engine.Close()

	res, err := fn(cfg, engine.Query())
	if err != nil {
		return outputError(cmd, command, err)
	}
	return outputResult(cmd, CLIResult{Command: command, Results: res})
}
