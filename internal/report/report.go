package report

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	headingStyle = lipgloss.NewStyle().
			Bold(true).
			Render

	cleanStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981")).
			Render
)

// Writer renders reconciliation results for humans.
type Writer struct {
	out io.Writer

	// HasManifest switches the missing-packages heading: with a declared
	// manifest the list is a diff, without one it is the full dependency set.
	HasManifest bool
}

func NewWriter(out io.Writer) *Writer {
	return &Writer{out: out}
}

// Write prints the missing and unused sections, or a green all-clear when
// both are empty. Returns true when a diff was printed.
func (w *Writer) Write(missing, unused []string) (bool, error) {
	if len(missing) == 0 && len(unused) == 0 {
		if _, err := fmt.Fprintln(w.out, cleanStyle("\nAll good")); err != nil {
			return false, err
		}
		return false, nil
	}

	if len(missing) > 0 {
		heading := "Dependencies:"
		if w.HasManifest {
			heading = "Potential missing packages:"
		}
		if err := w.section(heading, missing); err != nil {
			return true, err
		}
	}
	if len(unused) > 0 {
		if err := w.section("Unused packages:", unused); err != nil {
			return true, err
		}
	}
	return true, nil
}

func (w *Writer) section(heading string, names []string) error {
	sorted := make([]string, len(names))
	copy(sorted, names)
	sort.Strings(sorted)

	if _, err := fmt.Fprintf(w.out, "\n%s\n\n", headingStyle(heading)); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w.out, strings.Join(sorted, "\n"))
	return err
}
