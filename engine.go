package draftlint

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/gobwas/glob"

	"github.com/jward/draftlint/internal/rule"
	"github.com/jward/draftlint/internal/runtime"
	"github.com/jward/draftlint/internal/store"
	"github.com/jward/draftlint/internal/syntax"
)

// configHashKey is the metadata key under which the configuration hash of
// the cached results is stored.
const configHashKey = "config_hash"

// ErrInvalidPattern indicates an exclude pattern could not be compiled.
var ErrInvalidPattern = errors.New("invalid exclude pattern")

// Engine orchestrates the lint pipeline: file discovery, change detection,
// analysis with the built-in rule and script rules, and result persistence.
type Engine struct {
	store      *store.Store
	runtime    *runtime.Runtime
	rule       *rule.Rule
	ruleOpts   rule.Options
	scriptsDir string
	scriptsFS  fs.FS
	languages  map[string]bool // nil means all languages
	logger     *slog.Logger

	excludePatterns []string
	excludes        []glob.Glob

	// useParallel enables the parallel lint pipeline.
	useParallel bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithRuleOptions configures the built-in rule.
func WithRuleOptions(opts RuleOptions) Option {
	return func(e *Engine) {
		e.ruleOpts = opts
	}
}

// WithLanguages restricts which languages the Engine will process.
func WithLanguages(languages ...string) Option {
	return func(e *Engine) {
		e.languages = make(map[string]bool, len(languages))
		for _, lang := range languages {
			e.languages[lang] = true
		}
	}
}

// WithParallel controls parallel linting. When true (default), LintFiles
// analyzes files on a worker pool, with a single writer committing results
// to SQLite. Set to false for serial mode.
func WithParallel(parallel bool) Option {
	return func(e *Engine) {
		e.useParallel = parallel
	}
}

// WithScriptsDir loads script rules from dir on disk.
func WithScriptsDir(dir string) Option {
	return func(e *Engine) {
		e.scriptsDir = dir
	}
}

// WithScriptsFS loads script rules from fsys instead of from disk. This
// enables embedding scripts via go:embed. It takes precedence over
// WithScriptsDir.
func WithScriptsFS(fsys fs.FS) Option {
	return func(e *Engine) {
		e.scriptsFS = fsys
	}
}

// WithExclude skips files whose path relative to the linted directory
// matches one of patterns. Patterns use '/' as the separator and "**" to
// cross directories, e.g. "generated/**" or "**/*.test.js".
func WithExclude(patterns ...string) Option {
	return func(e *Engine) {
		e.excludePatterns = append(e.excludePatterns, patterns...)
	}
}

// WithLogger sets the Engine's logger. The default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// New creates an Engine backed by a SQLite database at dbPath.
func New(dbPath string, opts ...Option) (*Engine, error) {
	s, err := store.NewStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("draftlint: create store: %w", err)
	}
	if err := s.Migrate(); err != nil {
		s.Close()
		return nil, fmt.Errorf("draftlint: migrate: %w", err)
	}

	e := &Engine{
		store:       s,
		ruleOpts:    rule.DefaultOptions(),
		logger:      slog.Default(),
		useParallel: true,
	}
	for _, opt := range opts {
		opt(e)
	}

	excludes, err := compileGlobs(e.excludePatterns)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("draftlint: %w", err)
	}
	e.excludes = excludes

	e.rule = rule.New(e.ruleOpts, e.logger)
	e.ruleOpts = e.rule.Options()

	rtOpts := []runtime.RuntimeOption{runtime.WithLogger(e.logger)}
	if e.scriptsFS != nil {
		rtOpts = append(rtOpts, runtime.WithRuntimeFS(e.scriptsFS))
	}
	e.runtime = runtime.NewRuntime(e.scriptsDir, rtOpts...)

	return e, nil
}

// Close releases the Engine's database resources.
func (e *Engine) Close() error {
	return e.store.Close()
}

// Store returns the underlying Store for direct access.
func (e *Engine) Store() *Store {
	return e.store
}

// Query returns a new QueryBuilder wrapping the Store.
func (e *Engine) Query() *QueryBuilder {
	return &QueryBuilder{store: e.store}
}

// RuleOptions returns the effective options of the built-in rule.
func (e *Engine) RuleOptions() RuleOptions {
	return e.ruleOpts
}

// ScriptRules returns the ids of the configured script rules.
func (e *Engine) ScriptRules() ([]string, error) {
	scripts, err := e.runtime.Scripts()
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(scripts))
	for i, s := range scripts {
		ids[i] = runtime.RuleName(s)
	}
	return ids, nil
}

// configHash computes the hash of everything besides file content that
// affects lint results.
func (e *Engine) configHash() (string, error) {
	sources, err := e.runtime.ScriptSources()
	if err != nil {
		return "", fmt.Errorf("config hash: %w", err)
	}
	return store.ComputeConfigHash(e.ruleOpts.Target, e.ruleOpts.Modules, e.ruleOpts.RequireImport, sources), nil
}

// ConfigChanged reports whether the rule options or script rules differ
// from those that produced the cached results. It returns true when the
// database has no stored hash (first run).
func (e *Engine) ConfigChanged() (bool, error) {
	current, err := e.configHash()
	if err != nil {
		return false, err
	}
	stored, err := e.store.GetMetadata(configHashKey)
	if err != nil {
		return false, fmt.Errorf("config changed: %w", err)
	}
	return stored != current, nil
}

// syncConfig discards cached results produced under a different
// configuration and records the current one.
func (e *Engine) syncConfig() error {
	current, err := e.configHash()
	if err != nil {
		return err
	}
	stored, err := e.store.GetMetadata(configHashKey)
	if err != nil {
		return fmt.Errorf("read config hash: %w", err)
	}
	if stored == current {
		return nil
	}
	if stored != "" {
		e.logger.Info("draftlint: configuration changed, discarding cached results")
	}
	if err := e.store.Reset(); err != nil {
		return fmt.Errorf("reset store: %w", err)
	}
	return e.store.SetMetadata(configHashKey, current)
}

// Stats summarizes one LintFiles or LintDirectory run.
type Stats struct {
	// Files is the number of files in a supported, enabled language.
	Files int
	// Linted is the number of files analyzed; the rest were unchanged.
	Linted int
	// Diagnostics is the number of diagnostics produced by analyzed files.
	Diagnostics int
}

// Cached returns the number of files skipped because they were unchanged.
func (s Stats) Cached() int { return s.Files - s.Linted }

// LintFiles lints the given file paths. When WithParallel is enabled, uses
// a worker pool for analysis with batched SQLite writes. Otherwise falls
// back to the serial path.
//
// For each file:
//  1. Detect language from extension
//  2. Skip unsupported or filtered-out languages
//  3. Skip unchanged files (same content hash)
//  4. Delete the stale file record and its diagnostics
//  5. Run the built-in rule and every script rule
//  6. Store the new diagnostics
//
// Errors on individual files are collected; processing continues and the
// first error is returned wrapped.
func (e *Engine) LintFiles(ctx context.Context, paths []string) (Stats, error) {
	if err := e.syncConfig(); err != nil {
		return Stats{}, fmt.Errorf("draftlint: %w", err)
	}
	start := time.Now()

	var stats Stats
	var err error
	if e.useParallel {
		stats, err = e.lintFilesParallel(ctx, paths)
	} else {
		stats, err = e.lintFilesSerial(ctx, paths)
	}

	e.logger.Info("draftlint: lint complete",
		slog.Int("files", stats.Files),
		slog.Int("linted", stats.Linted),
		slog.Int("cached", stats.Cached()),
		slog.Int("diagnostics", stats.Diagnostics),
		slog.Duration("elapsed", time.Since(start)),
	)
	return stats, err
}

func (e *Engine) lintFilesSerial(ctx context.Context, paths []string) (Stats, error) {
	var stats Stats
	var errs []error
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		item, skip, err := e.prepareFile(path, &stats)
		if err != nil {
			errs = append(errs, fmt.Errorf("prepare %s: %w", path, err))
			continue
		}
		if skip {
			continue
		}

		n, err := e.lintFile(ctx, item, e.store)
		if err != nil {
			errs = append(errs, fmt.Errorf("lint %s: %w", path, err))
			e.discard(item)
			continue
		}
		stats.Linted++
		stats.Diagnostics += n
	}
	if len(errs) > 0 {
		return stats, fmt.Errorf("linting had %d error(s): %w", len(errs), errs[0])
	}
	return stats, nil
}

// workItem holds everything needed to analyze one changed file.
type workItem struct {
	path    string
	lang    string
	content []byte
	fileID  int64
	batch   *store.BatchedStore
}

// prepareFile does the serial part of linting one file: language
// detection, hash check, cleanup and a fresh file record. It returns
// skip=true for unsupported, filtered-out and unchanged files.
func (e *Engine) prepareFile(path string, stats *Stats) (workItem, bool, error) {
	lang, ok := syntax.LanguageForFile(path)
	if !ok {
		return workItem{}, true, nil
	}
	if e.languages != nil && !e.languages[lang] {
		return workItem{}, true, nil
	}
	stats.Files++

	content, err := os.ReadFile(path)
	if err != nil {
		return workItem{}, false, fmt.Errorf("read file: %w", err)
	}
	hash := fmt.Sprintf("%x", sha256.Sum256(content))

	existing, err := e.store.FileByPath(path)
	if err != nil {
		return workItem{}, false, fmt.Errorf("lookup file: %w", err)
	}
	if existing != nil && existing.Hash == hash {
		return workItem{}, true, nil // unchanged
	}
	if existing != nil {
		if err := e.store.DeleteFile(existing.ID); err != nil {
			return workItem{}, false, fmt.Errorf("delete old data: %w", err)
		}
	}

	fileID, err := e.store.InsertFile(&store.File{
		Path:       path,
		Language:   lang,
		Hash:       hash,
		LineCount:  bytes.Count(content, []byte{'\n'}) + 1,
		LastLinted: time.Now(),
	})
	if err != nil {
		return workItem{}, false, fmt.Errorf("insert file: %w", err)
	}

	return workItem{
		path:    path,
		lang:    lang,
		content: content,
		fileID:  fileID,
	}, false, nil
}

// discard removes the file record of an item whose analysis failed, so the
// next run retries it instead of treating it as unchanged.
func (e *Engine) discard(item workItem) {
	if err := e.store.DeleteFile(item.fileID); err != nil {
		e.logger.Warn("draftlint: discard file record",
			slog.String("path", item.path),
			slog.Any("error", err),
		)
	}
}

// lintFile analyzes one prepared file and writes its diagnostics to ds.
// It returns the number of diagnostics written.
func (e *Engine) lintFile(ctx context.Context, item workItem, ds store.DataStore) (int, error) {
	diags, err := e.analyze(ctx, item.path, item.lang, item.content)
	if err != nil {
		return 0, err
	}
	for _, d := range diags {
		_, err := ds.InsertDiagnostic(&store.Diagnostic{
			FileID:    item.fileID,
			Rule:      d.Rule,
			Kind:      d.Kind,
			Message:   d.Message,
			StartLine: d.Span.StartLine,
			StartCol:  d.Span.StartCol,
			EndLine:   d.Span.EndLine,
			EndCol:    d.Span.EndCol,
		})
		if err != nil {
			return 0, err
		}
	}
	return len(diags), nil
}

// analyze parses src and runs the built-in rule followed by every script
// rule. Script rules see the built-in rule's findings. Suppression comments
// apply to all of them.
func (e *Engine) analyze(ctx context.Context, path, lang string, src []byte) ([]rule.Diagnostic, error) {
	f, err := syntax.Parse(ctx, path, src, lang)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	diags, err := e.rule.Check(ctx, f)
	if err != nil {
		return nil, err
	}

	scripts, err := e.runtime.Scripts()
	if err != nil {
		return nil, err
	}
	if len(scripts) == 0 {
		return diags, nil
	}

	var extra []rule.Diagnostic
	for _, script := range scripts {
		found, err := e.runtime.RunRule(ctx, script, runtime.Target{File: f, Prior: diags})
		if err != nil {
			return nil, err
		}
		extra = append(extra, found...)
	}
	extra, err = rule.Suppress(ctx, f, extra)
	if err != nil {
		return nil, err
	}
	return append(diags, extra...), nil
}

// LintSource analyzes in-memory source without reading or writing the
// cache. The language is detected from path.
func (e *Engine) LintSource(ctx context.Context, path string, src []byte) ([]Diagnostic, error) {
	lang, ok := syntax.LanguageForFile(path)
	if !ok {
		return nil, fmt.Errorf("draftlint: unsupported file type: %s", path)
	}
	diags, err := e.analyze(ctx, path, lang, src)
	if err != nil {
		return nil, fmt.Errorf("draftlint: lint %s: %w", path, err)
	}
	out := make([]Diagnostic, len(diags))
	for i, d := range diags {
		out[i] = newDiagnostic(path, d.Rule, d.Kind, d.Message, d.Span)
	}
	return out, nil
}

// skipDirs are directories excluded from the filesystem walk.
var skipDirs = map[string]bool{
	"node_modules": true,
	"vendor":       true,
	"dist":         true,
}

// LintDirectory lints every supported file under root and forgets cached
// files under root that no longer exist. If root is inside a git
// repository, uses git ls-files to respect .gitignore. Falls back to a
// filesystem walk (skipping hidden dirs, node_modules, vendor and dist) if
// git is unavailable.
func (e *Engine) LintDirectory(ctx context.Context, root string) (Stats, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return Stats{}, fmt.Errorf("draftlint: resolve %s: %w", root, err)
	}

	paths, err := e.gitListFiles(absRoot)
	if err != nil {
		e.logger.Debug("draftlint: git ls-files unavailable, walking directory",
			slog.String("root", absRoot),
			slog.Any("error", err),
		)
		paths, err = e.walkListFiles(absRoot)
		if err != nil {
			return Stats{}, fmt.Errorf("draftlint: %w", err)
		}
	}

	paths = e.filterExcluded(absRoot, paths)

	stats, err := e.LintFiles(ctx, paths)
	if err != nil {
		return stats, err
	}

	pruned, err := e.store.PruneFiles(absRoot+string(filepath.Separator), paths)
	if err != nil {
		return stats, fmt.Errorf("draftlint: prune: %w", err)
	}
	if pruned > 0 {
		e.logger.Debug("draftlint: pruned removed files", slog.Int("count", pruned))
	}
	return stats, nil
}

// gitListFiles uses git ls-files to discover tracked and untracked (but not
// ignored) files under root, filtered to supported languages.
func (e *Engine) gitListFiles(root string) ([]string, error) {
	// --cached: tracked files, --others: untracked files,
	// --exclude-standard: respect .gitignore, .git/info/exclude, global excludes.
	cmd := exec.Command("git", "ls-files", "--cached", "--others", "--exclude-standard")
	cmd.Dir = root
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("git ls-files: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	var paths []string
	for _, line := range strings.Split(stdout.String(), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		absPath := filepath.Join(root, line)
		if _, ok := syntax.LanguageForFile(absPath); ok {
			paths = append(paths, absPath)
		}
	}
	return paths, nil
}

// walkListFiles discovers files by walking the filesystem, used as a
// fallback when git is not available.
func (e *Engine) walkListFiles(root string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if path != root && (strings.HasPrefix(name, ".") || skipDirs[name] || e.excluded(root, path)) {
				return filepath.SkipDir
			}
			return nil
		}
		if _, ok := syntax.LanguageForFile(path); ok {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk directory: %w", err)
	}
	return paths, nil
}

// compileGlobs compiles a slice of glob pattern strings into matchers.
func compileGlobs(patterns []string) ([]glob.Glob, error) {
	matchers := make([]glob.Glob, 0, len(patterns))
	for _, pattern := range patterns {
		matcher, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, errors.Join(ErrInvalidPattern, fmt.Errorf("%q: %w", pattern, err))
		}
		matchers = append(matchers, matcher)
	}
	return matchers, nil
}

// excluded reports whether path, relative to root, matches an exclude
// pattern.
func (e *Engine) excluded(root, path string) bool {
	if len(e.excludes) == 0 {
		return false
	}
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	rel = filepath.ToSlash(rel)
	for _, g := range e.excludes {
		if g.Match(rel) {
			return true
		}
	}
	return false
}

func (e *Engine) filterExcluded(root string, paths []string) []string {
	if len(e.excludes) == 0 {
		return paths
	}
	kept := paths[:0]
	for _, p := range paths {
		if !e.excluded(root, p) {
			kept = append(kept, p)
		}
	}
	return kept
}
