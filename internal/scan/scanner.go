// # internal/scan/scanner.go
package scan

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"reqsift/internal/core/errors"
	"reqsift/internal/shared/observability"

	"github.com/charmbracelet/log"
	"github.com/gobwas/glob"
	ignore "github.com/sabhiram/go-gitignore"
	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"
)

// Options controls which files a Scanner visits and how strict parsing is.
type Options struct {
	Extensions        []string
	ExcludeDirs       []string
	ExcludeFiles      []string
	RespectGitignore  bool
	IgnoreParseErrors bool
}

// Result partitions the discovered module names. The two sets are disjoint:
// a name is either defined somewhere inside the scanned tree or it is not.
type Result struct {
	ImportedOnly       map[string]bool
	ImportedAndDefined map[string]bool
}

type Scanner struct {
	log               *log.Logger
	language          *sitter.Language
	extensions        map[string]bool
	excludeDirs       []glob.Glob
	excludeFiles      []glob.Glob
	respectGitignore  bool
	ignoreParseErrors bool
}

func NewScanner(opts Options, logger *log.Logger) (*Scanner, error) {
	s := &Scanner{
		log:               logger,
		language:          sitter.NewLanguage(tree_sitter_python.Language()),
		extensions:        make(map[string]bool, len(opts.Extensions)),
		respectGitignore:  opts.RespectGitignore,
		ignoreParseErrors: opts.IgnoreParseErrors,
	}

	for _, ext := range opts.Extensions {
		s.extensions[strings.ToLower(ext)] = true
	}
	if len(s.extensions) == 0 {
		s.extensions[".py"] = true
	}

	for _, pattern := range opts.ExcludeDirs {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid exclude dir pattern %q: %w", pattern, err)
		}
		s.excludeDirs = append(s.excludeDirs, g)
	}

	for _, pattern := range opts.ExcludeFiles {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid exclude file pattern %q: %w", pattern, err)
		}
		s.excludeFiles = append(s.excludeFiles, g)
	}

	return s, nil
}

// Scan walks the tree under root and returns every imported module name,
// split into names the tree defines itself and names it only imports.
// Standard-library names are removed from both sets.
func (s *Scanner) Scan(ctx context.Context, root string) (Result, error) {
	ctx, span := observability.Tracer.Start(ctx, "scan.Scan")
	defer span.End()

	var gi *ignore.GitIgnore
	if s.respectGitignore {
		if compiled, err := ignore.CompileIgnoreFile(filepath.Join(root, ".gitignore")); err == nil {
			gi = compiled
		}
	}

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(s.language)

	rawImports := make(map[string]bool)
	candidates := make(map[string]bool)

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		base := filepath.Base(path)
		if d.IsDir() {
			if path != root {
				for _, g := range s.excludeDirs {
					if g.Match(base) {
						return filepath.SkipDir
					}
				}
			}
			candidates[base] = true
			return nil
		}

		ext := strings.ToLower(filepath.Ext(base))
		if !s.extensions[ext] {
			return nil
		}

		for _, g := range s.excludeFiles {
			if g.Match(base) {
				return nil
			}
		}

		if gi != nil {
			if rel, relErr := filepath.Rel(root, path); relErr == nil && gi.MatchesPath(rel) {
				return nil
			}
		}

		// A file that fails to parse still names a local module.
		candidates[strings.TrimSuffix(base, filepath.Ext(base))] = true

		content, err := os.ReadFile(path)
		if err != nil {
			return errors.Wrap(err, errors.CodeInternal, "read source file").WithContext(errors.CtxPath, path)
		}

		imports, err := s.parseFile(parser, path, content)
		if err != nil {
			if s.ignoreParseErrors {
				s.log.Warn("failed on file", "path", path, "error", err)
				return nil
			}
			s.log.Error("failed on file", "path", path)
			return err
		}

		for _, imp := range imports {
			if imp.IsRelative {
				s.log.Debug("ignoring relative import", "path", path, "module", imp.Module, "line", imp.Line)
				continue
			}
			s.log.Debug("found import", "path", path, "module", imp.Module, "line", imp.Line)
			rawImports[imp.Module] = true
		}
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	// Only the first dot-segment identifies an importable unit.
	// Ex: django.conf -> django.
	imports := make(map[string]bool, len(rawImports))
	for name := range rawImports {
		cleaned, _, _ := strings.Cut(name, ".")
		if cleaned != "" {
			imports[cleaned] = true
		}
	}

	result := Result{
		ImportedOnly:       make(map[string]bool),
		ImportedAndDefined: make(map[string]bool),
	}
	for name := range imports {
		if IsStdlib(name) {
			continue
		}
		if candidates[name] {
			result.ImportedAndDefined[name] = true
		} else {
			result.ImportedOnly[name] = true
		}
	}

	return result, nil
}

func (s *Scanner) parseFile(parser *sitter.Parser, path string, content []byte) ([]Import, error) {
	start := time.Now()
	tree := parser.Parse(content, nil)
	if tree == nil {
		return nil, errors.New(errors.CodeParseFailure, "parse failed").WithContext(errors.CtxPath, path)
	}
	defer tree.Close()
	observability.ParseSeconds.Observe(time.Since(start).Seconds())
	observability.FilesParsedTotal.Inc()

	root := tree.RootNode()
	if root.HasError() {
		return nil, errors.New(errors.CodeParseFailure, "syntax error in source file").WithContext(errors.CtxPath, path)
	}

	extractor := &importExtractor{}
	return extractor.Extract(root, content), nil
}
