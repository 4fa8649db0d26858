// # internal/scan/scanner_test.go
package scan

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"reqsift/internal/core/errors"

	"github.com/charmbracelet/log"
)

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(root, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

func newTestScanner(t *testing.T, opts Options) *Scanner {
	t.Helper()
	s, err := NewScanner(opts, log.New(io.Discard))
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestScanPartitionsLocalAndExternal(t *testing.T) {
	root := writeTree(t, map[string]string{
		"app/main.py":        "import requests\nimport django\nfrom django.conf import settings\n",
		"django/__init__.py": "",
	})

	s := newTestScanner(t, Options{})
	result, err := s.Scan(context.Background(), root)
	if err != nil {
		t.Fatal(err)
	}

	if !result.ImportedOnly["requests"] {
		t.Errorf("Expected requests in imported-only set, got %v", result.ImportedOnly)
	}
	if result.ImportedOnly["django"] {
		t.Error("django is defined locally, should not be imported-only")
	}
	if !result.ImportedAndDefined["django"] {
		t.Errorf("Expected django in defined set, got %v", result.ImportedAndDefined)
	}

	for name := range result.ImportedOnly {
		if result.ImportedAndDefined[name] {
			t.Errorf("Sets must be disjoint, %s is in both", name)
		}
	}
}

func TestScanLocalFileModule(t *testing.T) {
	root := writeTree(t, map[string]string{
		"main.py":  "import utils\nimport requests\n",
		"utils.py": "import json\n",
	})

	s := newTestScanner(t, Options{})
	result, err := s.Scan(context.Background(), root)
	if err != nil {
		t.Fatal(err)
	}

	if !result.ImportedAndDefined["utils"] {
		t.Errorf("Expected utils in defined set, got %v", result.ImportedAndDefined)
	}
	if !result.ImportedOnly["requests"] {
		t.Errorf("Expected requests in imported-only set, got %v", result.ImportedOnly)
	}
}

func TestScanExcludesStdlib(t *testing.T) {
	root := writeTree(t, map[string]string{
		"main.py": "import os\nimport sys\nimport collections.abc\nimport requests\n",
	})

	s := newTestScanner(t, Options{})
	result, err := s.Scan(context.Background(), root)
	if err != nil {
		t.Fatal(err)
	}

	for _, name := range []string{"os", "sys", "collections"} {
		if result.ImportedOnly[name] || result.ImportedAndDefined[name] {
			t.Errorf("Standard library module %s should not be reported", name)
		}
	}
	if !result.ImportedOnly["requests"] {
		t.Errorf("Expected requests in imported-only set, got %v", result.ImportedOnly)
	}
}

func TestScanSkipsRelativeImports(t *testing.T) {
	root := writeTree(t, map[string]string{
		"pkg/__init__.py": "",
		"pkg/a.py":        "from . import b\nfrom .helpers import c\n",
	})

	s := newTestScanner(t, Options{})
	result, err := s.Scan(context.Background(), root)
	if err != nil {
		t.Fatal(err)
	}

	if len(result.ImportedOnly) != 0 {
		t.Errorf("Expected no imported-only modules, got %v", result.ImportedOnly)
	}
	if len(result.ImportedAndDefined) != 0 {
		t.Errorf("Expected no defined modules, got %v", result.ImportedAndDefined)
	}
}

func TestScanNormalizesDottedImports(t *testing.T) {
	root := writeTree(t, map[string]string{
		"main.py": "import sklearn.linear_model\nfrom google.cloud import storage\n",
	})

	s := newTestScanner(t, Options{})
	result, err := s.Scan(context.Background(), root)
	if err != nil {
		t.Fatal(err)
	}

	want := map[string]bool{"sklearn": true, "google": true}
	for name := range want {
		if !result.ImportedOnly[name] {
			t.Errorf("Expected %s in imported-only set, got %v", name, result.ImportedOnly)
		}
	}
	if result.ImportedOnly["sklearn.linear_model"] {
		t.Error("Dotted module names must be reduced to their first segment")
	}
}

func TestScanExcludedDirs(t *testing.T) {
	root := writeTree(t, map[string]string{
		"main.py":          "import requests\n",
		"venv/lib/site.py": "import hidden_dep\n",
	})

	s := newTestScanner(t, Options{ExcludeDirs: []string{"venv"}})
	result, err := s.Scan(context.Background(), root)
	if err != nil {
		t.Fatal(err)
	}

	if result.ImportedOnly["hidden_dep"] {
		t.Error("Imports inside excluded directories must not be collected")
	}
	if !result.ImportedOnly["requests"] {
		t.Errorf("Expected requests in imported-only set, got %v", result.ImportedOnly)
	}
}

func TestScanExcludedFiles(t *testing.T) {
	root := writeTree(t, map[string]string{
		"main.py":    "import requests\n",
		"ignored.py": "import hidden_dep\n",
	})

	s := newTestScanner(t, Options{ExcludeFiles: []string{"ignored*"}})
	result, err := s.Scan(context.Background(), root)
	if err != nil {
		t.Fatal(err)
	}

	if result.ImportedOnly["hidden_dep"] {
		t.Error("Imports inside excluded files must not be collected")
	}
}

func TestScanRespectsGitignore(t *testing.T) {
	files := map[string]string{
		".gitignore":   "generated.py\n",
		"main.py":      "import requests\n",
		"generated.py": "import hidden_dep\n",
	}

	root := writeTree(t, files)
	s := newTestScanner(t, Options{RespectGitignore: true})
	result, err := s.Scan(context.Background(), root)
	if err != nil {
		t.Fatal(err)
	}
	if result.ImportedOnly["hidden_dep"] {
		t.Error("Gitignored files must not be scanned")
	}

	root = writeTree(t, files)
	s = newTestScanner(t, Options{RespectGitignore: false})
	result, err = s.Scan(context.Background(), root)
	if err != nil {
		t.Fatal(err)
	}
	if !result.ImportedOnly["hidden_dep"] {
		t.Error("With gitignore disabled the file must be scanned")
	}
}

func TestScanParseFailureIsFatal(t *testing.T) {
	root := writeTree(t, map[string]string{
		"bad.py": "def broken(:\n",
	})

	s := newTestScanner(t, Options{})
	_, err := s.Scan(context.Background(), root)
	if err == nil {
		t.Fatal("Expected a parse failure")
	}
	if !errors.IsCode(err, errors.CodeParseFailure) {
		t.Errorf("Expected PARSE_FAILURE, got %v", err)
	}
}

func TestScanParseFailureTolerated(t *testing.T) {
	root := writeTree(t, map[string]string{
		"bad.py":  "def broken(:\n",
		"main.py": "import requests\n",
	})

	s := newTestScanner(t, Options{IgnoreParseErrors: true})
	result, err := s.Scan(context.Background(), root)
	if err != nil {
		t.Fatal(err)
	}
	if !result.ImportedOnly["requests"] {
		t.Errorf("Healthy files must still be scanned, got %v", result.ImportedOnly)
	}
}

func TestScanIgnoresOtherExtensions(t *testing.T) {
	root := writeTree(t, map[string]string{
		"main.py":   "import requests\n",
		"README.md": "import not_python\n",
		"data.json": "{}",
	})

	s := newTestScanner(t, Options{})
	result, err := s.Scan(context.Background(), root)
	if err != nil {
		t.Fatal(err)
	}

	if result.ImportedOnly["not_python"] {
		t.Error("Non-Python files must not be parsed")
	}
}

func TestNewScannerRejectsBadGlob(t *testing.T) {
	_, err := NewScanner(Options{ExcludeDirs: []string{"[unclosed"}}, log.New(io.Discard))
	if err == nil {
		t.Error("Expected an error for an invalid glob pattern")
	}
}
