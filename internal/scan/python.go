// # internal/scan/python.go
package scan

import (
	sitter "github.com/tree-sitter/go-tree-sitter"
)

// Import is a single import statement found in a Python source file.
type Import struct {
	Module     string
	IsRelative bool
	Line       int
}

type importExtractor struct{}

func (e *importExtractor) Extract(root *sitter.Node, source []byte) []Import {
	var imports []Import
	e.walk(root, source, &imports)
	return imports
}

func (e *importExtractor) walk(node *sitter.Node, source []byte, imports *[]Import) {
	switch node.Kind() {
	case "import_statement":
		e.extractImport(node, source, imports)
	case "import_from_statement":
		e.extractFromImport(node, source, imports)
	}

	// Recurse
	for i := uint(0); i < node.ChildCount(); i++ {
		e.walk(node.Child(i), source, imports)
	}
}

// extractImport handles "import a.b, c as d" forms: every dotted_name
// directly under the statement names a module, and aliased imports carry
// the module in their name field.
func (e *importExtractor) extractImport(node *sitter.Node, source []byte, imports *[]Import) {
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)

		switch child.Kind() {
		case "dotted_name", "identifier":
			*imports = append(*imports, Import{
				Module: e.getText(child, source),
				Line:   e.getLine(child),
			})
		case "aliased_import":
			if name := child.ChildByFieldName("name"); name != nil {
				*imports = append(*imports, Import{
					Module: e.getText(name, source),
					Line:   e.getLine(name),
				})
			}
		}
	}
}

// extractFromImport handles "from X import ..." forms. Only the module part
// matters here; imported names never identify an installable unit on their
// own. Relative forms ("from . import x") are tagged so the scanner can
// drop them.
func (e *importExtractor) extractFromImport(node *sitter.Node, source []byte, imports *[]Import) {
	module := node.ChildByFieldName("module_name")
	if module == nil {
		return
	}

	if module.Kind() == "relative_import" {
		*imports = append(*imports, Import{
			Module:     e.getText(module, source),
			IsRelative: true,
			Line:       e.getLine(module),
		})
		return
	}

	*imports = append(*imports, Import{
		Module: e.getText(module, source),
		Line:   e.getLine(module),
	})
}

func (e *importExtractor) getLine(node *sitter.Node) int {
	return int(node.StartPosition().Row) + 1
}

func (e *importExtractor) getText(node *sitter.Node, source []byte) string {
	return string(source[node.StartByte():node.EndByte()])
}
