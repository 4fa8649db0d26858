// # internal/scan/stdlib.go
package scan

import (
	_ "embed"
	"strings"
)

//go:embed stdlib/python.txt
var pythonStdlibData string

var pythonStdlib = map[string]bool{}

func init() {
	for _, line := range strings.Split(pythonStdlibData, "\n") {
		line = strings.TrimSpace(line)
		if line != "" && !strings.HasPrefix(line, "#") {
			pythonStdlib[line] = true
			// Add base name: e.g. urllib.request -> urllib
			parts := strings.Split(line, ".")
			pythonStdlib[parts[0]] = true
		}
	}
}

// IsStdlib reports whether name ships with the Python interpreter and can
// therefore never correspond to an installable package.
func IsStdlib(name string) bool {
	return pythonStdlib[name]
}
