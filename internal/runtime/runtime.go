// Package runtime runs user-supplied Risor scripts as analyzers. A scripts
// directory holds one rule per *.risor file; files starting with "_" are
// import-only helper modules.
package runtime

import (
	"bufio"
	"context"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/risor-io/risor"
	"github.com/risor-io/risor/importer"

	"github.com/jward/reviewgate/internal/analyzer"
	"github.com/jward/reviewgate/internal/lang"
	"github.com/jward/reviewgate/internal/store"
	"github.com/jward/reviewgate/internal/syntax"
)

// ScriptExt is the extension of rule scripts.
const ScriptExt = ".risor"

// Script is one loaded rule script. An empty Language applies the script
// to every supported language.
type Script struct {
	Name     string
	Language string
	Path     string
	Source   string
}

// Applies reports whether the script targets language, given either as a
// canonical language name or as a family name.
func (s *Script) Applies(language string) bool {
	if s.Language == "" || s.Language == language {
		return true
	}
	fam, ok := lang.FamilyOf(language)
	return ok && string(fam) == s.Language
}

// ScriptSet is the set of rule scripts loaded from one directory.
type ScriptSet struct {
	dir     string
	fsys    fs.FS
	store   *store.Store
	logger  *log.Logger
	scripts []*Script
}

// Option configures a ScriptSet.
type Option func(*ScriptSet)

// WithFS loads scripts and resolves imports from fsys instead of disk.
func WithFS(fsys fs.FS) Option {
	return func(ss *ScriptSet) {
		ss.fsys = fsys
	}
}

// WithStore exposes index lookups to scripts.
func WithStore(s *store.Store) Option {
	return func(ss *ScriptSet) {
		ss.store = s
	}
}

// WithLogger sets the logger used for script failures and script log calls.
func WithLogger(l *log.Logger) Option {
	return func(ss *ScriptSet) {
		ss.logger = l
	}
}

// Load reads every rule script in dir. With WithFS, dir is a path inside
// the FS ("." for its root).
func Load(dir string, opts ...Option) (*ScriptSet, error) {
	ss := &ScriptSet{dir: dir, logger: log.Default()}
	for _, opt := range opts {
		opt(ss)
	}

	fsys := ss.fsys
	root := dir
	if fsys == nil {
		fsys = os.DirFS(dir)
		root = "."
	}
	entries, err := fs.ReadDir(fsys, root)
	if err != nil {
		return nil, fmt.Errorf("runtime: reading scripts dir %s: %w", dir, err)
	}

	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ScriptExt) || strings.HasPrefix(name, "_") {
			continue
		}
		p := path.Join(root, name)
		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			return nil, fmt.Errorf("runtime: loading script %s: %w", p, err)
		}
		display := p
		if ss.fsys == nil {
			display = filepath.Join(dir, name)
		}
		ss.scripts = append(ss.scripts, parseScript(name, display, string(data)))
	}
	sort.Slice(ss.scripts, func(i, j int) bool { return ss.scripts[i].Name < ss.scripts[j].Name })
	return ss, nil
}

// parseScript derives name and target language from the file name
// ("rule.<language>.risor") or, failing that, from a "// language: x"
// header comment.
func parseScript(file, p, src string) *Script {
	s := &Script{Name: strings.TrimSuffix(file, ScriptExt), Path: p, Source: src}
	if i := strings.LastIndex(s.Name, "."); i > 0 && isLanguageName(s.Name[i+1:]) {
		s.Language = s.Name[i+1:]
		s.Name = s.Name[:i]
		return s
	}
	s.Language = headerLanguage(src)
	return s
}

func isLanguageName(name string) bool {
	if _, ok := lang.FamilyOf(name); ok {
		return true
	}
	switch lang.Family(name) {
	case lang.FamilyECMAScript, lang.FamilyGo, lang.FamilyPython:
		return true
	}
	return false
}

func headerLanguage(src string) string {
	sc := bufio.NewScanner(strings.NewReader(src))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if !strings.HasPrefix(line, "//") && !strings.HasPrefix(line, "#") {
			break
		}
		line = strings.TrimSpace(strings.TrimLeft(line, "/#"))
		if v, ok := strings.CutPrefix(line, "language:"); ok {
			v = strings.TrimSpace(v)
			if isLanguageName(v) {
				return v
			}
		}
	}
	return ""
}

// Scripts returns the loaded scripts sorted by name.
func (ss *ScriptSet) Scripts() []*Script {
	return ss.scripts
}

// Len is the number of loaded scripts.
func (ss *ScriptSet) Len() int {
	if ss == nil {
		return 0
	}
	return len(ss.scripts)
}

// ForLanguage returns an analyzer for every script that applies to
// language.
func (ss *ScriptSet) ForLanguage(language string) []analyzer.Analyzer {
	if ss == nil {
		return nil
	}
	var out []analyzer.Analyzer
	for _, s := range ss.scripts {
		if s.Applies(language) {
			out = append(out, &scriptAnalyzer{set: ss, script: s})
		}
	}
	return out
}

// scriptAnalyzer adapts a Script to the analyzer contract.
type scriptAnalyzer struct {
	set    *ScriptSet
	script *Script
}

func (a *scriptAnalyzer) Name() string { return "script:" + a.script.Name }

// Analyze runs the script against tree. A failing script is logged and
// contributes no violations, including any it reported before failing.
func (a *scriptAnalyzer) Analyze(ctx context.Context, tree *syntax.Tree) []analyzer.Violation {
	vs, err := a.set.Run(ctx, a.script, tree)
	if err != nil {
		a.set.logger.Printf("reviewgate: %v", err)
		return nil
	}
	return vs
}

// Run evaluates script against tree and returns what it reported.
func (ss *ScriptSet) Run(ctx context.Context, script *Script, tree *syntax.Tree) ([]analyzer.Violation, error) {
	rep := &reporter{defaultRule: script.Name}
	globals := ss.buildGlobals(tree, rep)

	opts := make([]risor.Option, 0, len(globals)+1)
	for name, val := range globals {
		opts = append(opts, risor.WithGlobal(name, val))
	}
	if imp := ss.buildImporter(globals); imp != nil {
		opts = append(opts, risor.WithImporter(imp))
	}

	if _, err := risor.Eval(ctx, script.Source, opts...); err != nil {
		return nil, fmt.Errorf("runtime: script %s on %s: %w", script.Name, tree.Path, err)
	}
	return rep.violations, nil
}

// buildImporter lets scripts import helper modules from the scripts
// directory.
func (ss *ScriptSet) buildImporter(globals map[string]any) importer.Importer {
	names := make([]string, 0, len(globals))
	for name := range globals {
		names = append(names, name)
	}
	if ss.fsys != nil {
		src := ss.fsys
		if ss.dir != "" && ss.dir != "." {
			sub, err := fs.Sub(ss.fsys, ss.dir)
			if err != nil {
				return nil
			}
			src = sub
		}
		return importer.NewFSImporter(importer.FSImporterOptions{
			GlobalNames: names,
			SourceFS:    src,
			Extensions:  []string{ScriptExt},
		})
	}
	if ss.dir != "" {
		return importer.NewLocalImporter(importer.LocalImporterOptions{
			GlobalNames: names,
			SourceDir:   ss.dir,
			Extensions:  []string{ScriptExt},
		})
	}
	return nil
}

// buildGlobals constructs the globals visible to one script run.
func (ss *ScriptSet) buildGlobals(tree *syntax.Tree, rep *reporter) map[string]any {
	globals := map[string]any{
		"source":     string(tree.Source),
		"language":   tree.Language,
		"file_path":  tree.Path,
		"root":       mustProxy(tree.Root),
		"query":      makeQueryFn(tree),
		"node_text":  makeNodeTextFn(tree),
		"node_line":  makeNodeLineFn(),
		"node_child": makeNodeChildFn(),
		"report":     makeReportFn(rep),
		"log":        mustProxy(&logObject{logger: ss.logger, script: rep.defaultRule}),
	}
	if ss.store != nil {
		globals["symbols_by_name"] = makeSymbolsByNameFn(ss.store)
		globals["callers"] = makeCallersFn(ss.store)
	}
	return globals
}
