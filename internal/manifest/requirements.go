package manifest

import (
	"os"
	"strings"
)

// nameTerminators are the characters that end a package name on a
// requirements line: whitespace, comments, version constraints, extras,
// environment markers.
const nameTerminators = " \t#~=<>[;!("

// ParseRequirements reads a requirements-style manifest and returns the set
// of declared package names, with version constraints and extras stripped.
func ParseRequirements(path string) (map[string]bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	packages := make(map[string]bool)
	for _, line := range strings.Split(string(data), "\n") {
		if name := packageInLine(line); name != "" {
			packages[name] = true
		}
	}
	return packages, nil
}

// packageInLine extracts the package name a requirements line declares, or
// "" when the line declares none (blank, comment, pip option).
func packageInLine(line string) string {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || strings.HasPrefix(trimmed, "#") || strings.HasPrefix(trimmed, "-") {
		return ""
	}
	if end := strings.IndexAny(trimmed, nameTerminators); end >= 0 {
		trimmed = trimmed[:end]
	}
	return trimmed
}

// Apply rewrites a requirements manifest in place: lines declaring an
// unused package are dropped, missing names are appended one per line.
// Comments, constraints, and option lines survive untouched.
func Apply(path string, missing, unused []string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	drop := make(map[string]bool, len(unused))
	for _, name := range unused {
		drop[name] = true
	}

	lines := strings.Split(string(data), "\n")
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		if name := packageInLine(line); name != "" && drop[name] {
			continue
		}
		kept = append(kept, line)
	}

	content := strings.Join(kept, "\n")
	if len(missing) > 0 {
		if content != "" && !strings.HasSuffix(content, "\n") {
			content += "\n"
		}
		content += strings.Join(missing, "\n") + "\n"
	}

	return os.WriteFile(path, []byte(content), 0o644)
}
