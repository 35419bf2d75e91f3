package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/jward/reviewgate"
	"github.com/jward/reviewgate/internal/analyzer"
)

var validFormats = []string{"json", "text"}

func validateFormat(format string) error {
	for _, f := range validFormats {
		if format == f {
			return nil
		}
	}
	return fmt.Errorf("invalid format %q: must be %s", format, strings.Join(validFormats, " or "))
}

// CLIResult is the top-level JSON envelope for every command.
type CLIResult struct {
	Command string `json:"command"`
	Results any    `json:"results"`
	Error   string `json:"error,omitempty"`
}

// CLISymbol is a JSON-friendly symbol. Lines are 1-based.
type CLISymbol struct {
	Name      string `json:"name"`
	Kind      string `json:"kind"`
	Language  string `json:"language"`
	File      string `json:"file"`
	StartLine int    `json:"start_line"`
	EndLine   int    `json:"end_line"`
}

// CLICallEdge is a JSON-friendly call site. Line is 1-based.
type CLICallEdge struct {
	Callee string `json:"callee"`
	Caller string `json:"caller"`
	File   string `json:"file"`
	Line   int    `json:"line"`
}

// CLIImport is a JSON-friendly import row.
type CLIImport struct {
	File   string `json:"file"`
	Name   string `json:"name"`
	Source string `json:"source"`
	Used   bool   `json:"used"`
}

// CLIFileReport holds the violations of one checked file.
type CLIFileReport struct {
	File       string               `json:"file"`
	Violations []analyzer.Violation `json:"violations"`
}

// CLIScanReport summarizes an index run.
type CLIScanReport struct {
	Root       string   `json:"root"`
	Considered int      `json:"considered"`
	Indexed    int      `json:"indexed"`
	Unchanged  int      `json:"unchanged"`
	Failed     []string `json:"failed"`
	DurationMS int64    `json:"duration_ms"`
}

// CLISnapshot is a JSON-friendly quality snapshot.
type CLISnapshot struct {
	Timestamp       time.Time `json:"timestamp"`
	File            string    `json:"file"`
	DeadFunctions   int       `json:"dead_functions"`
	UnusedImports   int       `json:"unused_imports"`
	ComplexityScore float64   `json:"complexity_score"`
	ViolationsCount int       `json:"violations_count"`
	TestsPassing    bool      `json:"tests_passing"`
}

// CLITrend is the change across a history window.
type CLITrend struct {
	Samples         int     `json:"samples"`
	Direction       string  `json:"direction"`
	DeadFunctions   int     `json:"dead_functions"`
	UnusedImports   int     `json:"unused_imports"`
	ComplexityScore float64 `json:"complexity_score"`
	ViolationsCount int     `json:"violations_count"`
}

// CLIHistory is quality history, most recent first, with its trend.
type CLIHistory struct {
	Snapshots []CLISnapshot `json:"snapshots"`
	Trend     *CLITrend     `json:"trend"`
}

func toCLISnapshot(s *reviewgate.QualitySnapshot) CLISnapshot {
	return CLISnapshot{
		Timestamp: s.Timestamp.UTC(), File: s.FilePath, DeadFunctions: s.DeadFunctions,
		UnusedImports: s.UnusedImports, ComplexityScore: s.ComplexityScore,
		ViolationsCount: s.ViolationsCount, TestsPassing: s.TestsPassing,
	}
}

func toCLIHistory(snaps []*reviewgate.QualitySnapshot, t *reviewgate.Trend) CLIHistory {
	h := CLIHistory{Snapshots: make([]CLISnapshot, 0, len(snaps))}
	for _, s := range snaps {
		h.Snapshots = append(h.Snapshots, toCLISnapshot(s))
	}
	if t != nil {
		h.Trend = &CLITrend{
			Samples: t.Samples, Direction: string(t.Direction), DeadFunctions: t.DeadFunctions,
			UnusedImports: t.UnusedImports, ComplexityScore: t.ComplexityScore, ViolationsCount: t.ViolationsCount,
		}
	}
	return h
}

func toCLISymbols(syms []*reviewgate.Symbol) []CLISymbol {
	out := make([]CLISymbol, 0, len(syms))
	for _, s := range syms {
		out = append(out, CLISymbol{
			Name: s.Name, Kind: s.Kind, Language: s.Language, File: s.FilePath,
			StartLine: s.LineStart + 1, EndLine: s.LineEnd + 1,
		})
	}
	return out
}

func toCLICallEdges(edges []*reviewgate.CallEdge) []CLICallEdge {
	out := make([]CLICallEdge, 0, len(edges))
	for _, e := range edges {
		out = append(out, CLICallEdge{Callee: e.CalleeSymbol, Caller: e.CallerSymbol, File: e.CallerFile, Line: e.LineNumber + 1})
	}
	return out
}

func toCLIImports(imps []*reviewgate.ImportUsage) []CLIImport {
	out := make([]CLIImport, 0, len(imps))
	for _, i := range imps {
		out = append(out, CLIImport{File: i.FilePath, Name: i.ImportName, Source: i.ImportSrc, Used: i.IsUsed})
	}
	return out
}

func toCLIScanReport(r *reviewgate.ScanReport) CLIScanReport {
	out := CLIScanReport{
		Root: r.Root, Considered: r.Considered, Indexed: r.Indexed, Unchanged: r.Unchanged,
		Failed: []string{}, DurationMS: r.Duration.Milliseconds(),
	}
	for _, f := range r.Failed {
		out.Failed = append(out.Failed, f.Error())
	}
	return out
}

// outputResult writes a CLIResult to the command's stdout in the selected
// format.
func outputResult(cmd *cobra.Command, result CLIResult) error {
	w := cmd.OutOrStdout()
	if flagFormat == "text" {
		return outputResultText(w, result)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// outputError writes an error in the selected format and returns it so RunE
// can propagate it to Cobra. In JSON mode the error is written to stdout as a
// CLIResult envelope. In text mode it goes to stderr.
func outputError(cmd *cobra.Command, command string, err error) error {
	errorHandled = true
	if flagFormat == "text" {
		fmt.Fprintf(cmd.ErrOrStderr(), "Error: %s\n", err)
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	_ = enc.Encode(CLIResult{Command: command, Error: err.Error()})
	return err
}

func outputResultText(w io.Writer, result CLIResult) error {
	switch v := result.Results.(type) {
	case []CLISymbol:
		formatSymbolsText(w, v)
	case []CLICallEdge:
		formatCallEdgesText(w, v)
	case []CLIImport:
		formatImportsText(w, v)
	case []CLIFileReport:
		formatViolationsText(w, v)
	case CLIScanReport:
		formatScanText(w, v)
	case CLIHistory:
		formatHistoryText(w, v)
	case CLISnapshot:
		formatHistoryText(w, CLIHistory{Snapshots: []CLISnapshot{v}})
	case int64:
		fmt.Fprintln(w, v)
	case nil:
	default:
		return fmt.Errorf("unsupported result type for text format: %T", v)
	}
	return nil
}

func formatSymbolsText(w io.Writer, syms []CLISymbol) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tKIND\tLANGUAGE\tFILE\tLINES")
	for _, s := range syms {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d-%d\n", s.Name, s.Kind, s.Language, s.File, s.StartLine, s.EndLine)
	}
	tw.Flush()
}

func formatCallEdgesText(w io.Writer, edges []CLICallEdge) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CALLEE\tFILE\tLINE")
	for _, e := range edges {
		fmt.Fprintf(tw, "%s\t%s\t%d\n", e.Callee, e.File, e.Line)
	}
	tw.Flush()
}

func formatImportsText(w io.Writer, imps []CLIImport) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tFILE\tUSED")
	for _, i := range imps {
		fmt.Fprintf(tw, "%s\t%s\t%t\n", i.Name, i.File, i.Used)
	}
	tw.Flush()
}

func formatViolationsText(w io.Writer, reports []CLIFileReport) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "FILE\tLINE\tLEVEL\tRULE\tMESSAGE")
	for _, r := range reports {
		for _, v := range r.Violations {
			line := "-"
			if v.Line != nil {
				line = fmt.Sprint(*v.Line)
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", r.File, line, v.Level, v.RuleName, v.Message)
		}
	}
	tw.Flush()
}

func formatScanText(w io.Writer, r CLIScanReport) {
	fmt.Fprintf(w, "Indexed %d of %d files under %s (%d unchanged, %d failed) in %s\n",
		r.Indexed, r.Considered, r.Root, r.Unchanged, len(r.Failed),
		(time.Duration(r.DurationMS) * time.Millisecond).String())
	for _, f := range r.Failed {
		fmt.Fprintf(w, "  failed: %s\n", f)
	}
}

func formatHistoryText(w io.Writer, h CLIHistory) {
	if h.Trend != nil {
		fmt.Fprintf(w, "Trend over %d snapshots: %s (violations %+d, dead %+d, unused imports %+d)\n",
			h.Trend.Samples, h.Trend.Direction, h.Trend.ViolationsCount, h.Trend.DeadFunctions, h.Trend.UnusedImports)
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tFILE\tVIOLATIONS\tDEAD\tUNUSED_IMPORTS\tCOMPLEXITY\tTESTS")
	for _, s := range h.Snapshots {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%.1f\t%t\n",
			s.Timestamp.Format(time.RFC3339), s.File, s.ViolationsCount,
			s.DeadFunctions, s.UnusedImports, s.ComplexityScore, s.TestsPassing)
	}
	tw.Flush()
}
