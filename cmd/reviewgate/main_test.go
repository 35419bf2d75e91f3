package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/reviewgate/internal/analyzer"
	"github.com/jward/reviewgate/internal/config"
)

const mainGo = `package main

import "fmt"

func main() {
	fmt.Println(helper())
}

func helper() string { return "ok" }

func orphan() {}
`

type envelope struct {
	Command string          `json:"command"`
	Results json.RawMessage `json:"results"`
	Error   string          `json:"error"`
}

func resetFlags() {
	flagDB = ""
	flagFormat = "json"
	flagConfig = ""
	flagForce = false
	flagTestsPassing = false
	flagLimit = 10
	errorHandled = false
}

// run executes the CLI in-process and returns what it wrote to stdout.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags()
	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func decode(t *testing.T, out string) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal([]byte(out), &env), out)
	return env
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// newProject creates a project holding main.go and a config file with
// the given body; an empty body writes the defaults through init.
func newProject(t *testing.T, configBody string) (root, cfgPath string) {
	t.Helper()
	root = t.TempDir()
	writeFile(t, root, "main.go", mainGo)
	cfgPath = filepath.Join(root, config.ConfigDirName, config.ConfigFileName)
	if configBody == "" {
		_, err := run(t, "init", root)
		require.NoError(t, err)
		require.FileExists(t, cfgPath)
	} else {
		writeFile(t, root, filepath.Join(config.ConfigDirName, config.ConfigFileName), configBody)
	}
	return root, cfgPath
}

func TestValidateFormat(t *testing.T) {
	assert.NoError(t, validateFormat("json"))
	assert.NoError(t, validateFormat("text"))
	assert.ErrorContains(t, validateFormat("xml"), `invalid format "xml"`)
}

func TestInit_RefusesToOverwrite(t *testing.T) {
	root, _ := newProject(t, "")
	_, err := run(t, "init", root)
	assert.ErrorContains(t, err, "already exists")
}

func TestIndex_ThenQuery(t *testing.T) {
	root, cfg := newProject(t, "")

	out, err := run(t, "--config", cfg, "index", root)
	require.NoError(t, err)
	env := decode(t, out)
	assert.Equal(t, "index", env.Command)
	var report CLIScanReport
	require.NoError(t, json.Unmarshal(env.Results, &report))
	assert.Equal(t, 1, report.Considered)
	assert.Equal(t, 1, report.Indexed)
	assert.FileExists(t, filepath.Join(root, ".reviewgate", "index.db"))

	// Unchanged files are skipped on the next run.
	out, err = run(t, "--config", cfg, "index", root)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(decode(t, out).Results, &report))
	assert.Equal(t, 0, report.Indexed)
	assert.Equal(t, 1, report.Unchanged)

	out, err = run(t, "--config", cfg, "query", "symbol", "helper")
	require.NoError(t, err)
	var syms []CLISymbol
	require.NoError(t, json.Unmarshal(decode(t, out).Results, &syms))
	require.Len(t, syms, 1)
	assert.Equal(t, "main.go", syms[0].File)
	assert.Equal(t, 9, syms[0].StartLine)

	out, err = run(t, "--config", cfg, "query", "dead", filepath.Join(root, "main.go"))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(decode(t, out).Results, &syms))
	var names []string
	for _, s := range syms {
		names = append(names, s.Name)
	}
	assert.Contains(t, names, "orphan")
	assert.NotContains(t, names, "helper")

	out, err = run(t, "--config", cfg, "query", "callers", "helper")
	require.NoError(t, err)
	var edges []CLICallEdge
	require.NoError(t, json.Unmarshal(decode(t, out).Results, &edges))
	require.Len(t, edges, 1)
	assert.Equal(t, 6, edges[0].Line)
}

func TestIndex_Force(t *testing.T) {
	root, cfg := newProject(t, "")
	_, err := run(t, "--config", cfg, "index", root)
	require.NoError(t, err)

	out, err := run(t, "--config", cfg, "index", "--force", root)
	require.NoError(t, err)
	var report CLIScanReport
	require.NoError(t, json.Unmarshal(decode(t, out).Results, &report))
	assert.Equal(t, 1, report.Indexed)
}

func TestIndex_MissingDirectory(t *testing.T) {
	_, cfg := newProject(t, "")
	_, err := run(t, "--config", cfg, "index", filepath.Join(t.TempDir(), "nope"))
	assert.ErrorContains(t, err, "directory not found")
}

func TestQuery_WithoutIndex(t *testing.T) {
	_, cfg := newProject(t, "")
	out, err := run(t, "--config", cfg, "query", "symbol", "helper")
	require.Error(t, err)
	assert.True(t, errorHandled)
	assert.Contains(t, decode(t, out).Error, "run 'reviewgate index' first")
}

func TestQuery_TextFormat(t *testing.T) {
	root, cfg := newProject(t, "")
	_, err := run(t, "--config", cfg, "index", root)
	require.NoError(t, err)

	out, err := run(t, "--config", cfg, "--format", "text", "query", "symbol", "helper")
	require.NoError(t, err)
	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, "main.go")
	assert.Contains(t, out, "9-9")
}

func TestInvalidFormat(t *testing.T) {
	_, cfg := newProject(t, "")
	_, err := run(t, "--config", cfg, "--format", "xml", "query", "symbol", "x")
	assert.ErrorContains(t, err, "invalid format")
}

func TestCheck_ReportsWarnings(t *testing.T) {
	root, cfg := newProject(t, "")

	out, err := run(t, "--config", cfg, "check", filepath.Join(root, "main.go"))
	require.NoError(t, err)
	var reports []CLIFileReport
	require.NoError(t, json.Unmarshal(decode(t, out).Results, &reports))
	require.Len(t, reports, 1)
	assert.Equal(t, "main.go", reports[0].File)
	require.Len(t, reports[0].Violations, 1)
	v := reports[0].Violations[0]
	assert.Equal(t, analyzer.RuleDeadCode, v.RuleName)
	assert.Equal(t, analyzer.LevelWarning, v.Level)
	require.NotNil(t, v.Line)
	assert.Equal(t, 11, *v.Line)
}

func TestCheck_DisabledRules(t *testing.T) {
	root, cfg := newProject(t, "rules:\n  disabled: [DEAD_CODE]\n")

	out, err := run(t, "--config", cfg, "check", filepath.Join(root, "main.go"))
	require.NoError(t, err)
	var reports []CLIFileReport
	require.NoError(t, json.Unmarshal(decode(t, out).Results, &reports))
	require.Len(t, reports, 1)
	assert.Empty(t, reports[0].Violations)
}

func TestCheck_ErrorLevelFails(t *testing.T) {
	root, cfg := newProject(t, "rules:\n  framework_file: house.yaml\n")
	writeFile(t, root, "house.yaml", `framework: house
language: go
rules:
  - name: NO_PANIC
    description: panics are not allowed
    forbidden_patterns: ["panic("]
    level: error
`)
	bad := writeFile(t, root, "bad.go", "package main\n\nfunc Boom() {\n\tpanic(\"x\")\n}\n")

	out, err := run(t, "--config", cfg, "check", filepath.Join(root, "main.go"), bad)
	require.ErrorIs(t, err, errFailed)
	var reports []CLIFileReport
	require.NoError(t, json.Unmarshal(decode(t, out).Results, &reports))
	require.Len(t, reports, 2)
	require.NotEmpty(t, reports[1].Violations)
	v := reports[1].Violations[0]
	assert.Equal(t, "NO_PANIC", v.RuleName)
	assert.Equal(t, analyzer.LevelError, v.Level)
	require.NotNil(t, v.Line)
	assert.Equal(t, 4, *v.Line)
}

func TestCheck_MissingFile(t *testing.T) {
	root, cfg := newProject(t, "")
	out, err := run(t, "--config", cfg, "check", filepath.Join(root, "gone.go"))
	require.Error(t, err)
	assert.Contains(t, decode(t, out).Error, "reading")
}

func TestRecord_ThenHistory(t *testing.T) {
	root, cfg := newProject(t, "")
	file := filepath.Join(root, "main.go")

	out, err := run(t, "--config", cfg, "record", "--tests-passing", file)
	require.NoError(t, err)
	var snap CLISnapshot
	require.NoError(t, json.Unmarshal(decode(t, out).Results, &snap))
	assert.Equal(t, "main.go", snap.File)
	assert.Equal(t, 1, snap.DeadFunctions)
	assert.Equal(t, 1, snap.ViolationsCount)
	assert.True(t, snap.TestsPassing)

	_, err = run(t, "--config", cfg, "record", file)
	require.NoError(t, err)

	out, err = run(t, "--config", cfg, "query", "history", file)
	require.NoError(t, err)
	var h CLIHistory
	require.NoError(t, json.Unmarshal(decode(t, out).Results, &h))
	assert.Len(t, h.Snapshots, 2)
	require.NotNil(t, h.Trend)
	assert.Equal(t, 2, h.Trend.Samples)
	assert.Equal(t, "steady", h.Trend.Direction)
}

func TestSnapshotOf(t *testing.T) {
	line := 3
	v := func(rule string, value *int) analyzer.Violation {
		return analyzer.Violation{RuleName: rule, Level: analyzer.LevelWarning, Line: &line, Value: value}
	}
	ten, twenty := 10, 20
	snap := snapshotOf(CLIFileReport{File: "a.go", Violations: []analyzer.Violation{
		v(analyzer.RuleDeadCode, nil),
		v(analyzer.RuleDeadCode, nil),
		v(analyzer.RuleUnusedImport, nil),
		v(analyzer.RuleHighComplexity, &ten),
		v(analyzer.RuleHighComplexity, &twenty),
	}}, true)
	assert.Equal(t, "a.go", snap.FilePath)
	assert.Equal(t, 2, snap.DeadFunctions)
	assert.Equal(t, 1, snap.UnusedImports)
	assert.Equal(t, 15.0, snap.ComplexityScore)
	assert.Equal(t, 5, snap.ViolationsCount)
	assert.True(t, snap.TestsPassing)

	assert.Zero(t, snapshotOf(CLIFileReport{File: "b.go"}, false).ComplexityScore)
}

func TestKeyRoot(t *testing.T) {
	root := t.TempDir()
	cfg := &config.Config{Root: root}
	assert.Equal(t, root, keyRoot(cfg, filepath.Join(root, "sub")))

	other := t.TempDir()
	assert.Equal(t, other, keyRoot(cfg, other))
}

func TestRelToRoot(t *testing.T) {
	root := t.TempDir()
	cfg := &config.Config{Root: root}
	rel, err := relToRoot(cfg, filepath.Join(root, "pkg", "a.go"))
	require.NoError(t, err)
	assert.Equal(t, "pkg/a.go", rel)
}
