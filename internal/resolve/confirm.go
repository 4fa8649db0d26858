package resolve

import (
	goerrors "errors"
	"strings"

	"reqsift/internal/core/errors"

	"github.com/charmbracelet/log"
)

// Strategy names the resolution step that produced a candidate, so a
// confirmer can decide how much to trust it.
type Strategy string

const (
	StrategyExplicit     Strategy = "explicit-mapping"
	StrategyRequirements Strategy = "requirements"
	StrategyIndexSearch  Strategy = "index-search"
	StrategySameName     Strategy = "same-name"
)

// Control signals a Confirmer can return instead of a package name.
var (
	// ErrRejected moves the resolver on to the next candidate.
	ErrRejected = goerrors.New("candidate rejected")
	// ErrModuleIgnored aborts the whole chain and marks the module ignored.
	ErrModuleIgnored = goerrors.New("module ignored")
	// ErrAborted stops the run at the user's request.
	ErrAborted = goerrors.New("resolution aborted")
)

// Confirmer validates a proposed module-to-package mapping. It returns the
// accepted package name (possibly different from candidate), one of the
// control signals above, or a terminal error.
type Confirmer interface {
	Confirm(strategy Strategy, module, candidate string) (string, error)
}

// AutoConfirmer validates candidates without asking anyone. It accepts only
// the degenerate case where a declared requirement is the module itself up
// to case and dash style; everything else is a hard failure, which keeps
// unattended runs from looping forever.
type AutoConfirmer struct {
	Log *log.Logger
}

func (a *AutoConfirmer) Confirm(strategy Strategy, module, candidate string) (string, error) {
	if AutoAccept(strategy, module, candidate) {
		a.Log.Debug("accepted candidate without interaction", "module", module, "package", candidate)
		return candidate, nil
	}
	return "", errors.New(errors.CodeNeedsInteraction, "interaction required to validate a candidate").
		WithContext(errors.CtxModule, module).
		WithContext(errors.CtxPackage, candidate)
}

// AutoAccept reports whether candidate can be taken for module without
// confirmation: it came from the declared requirements and differs only by
// case or dash style.
func AutoAccept(strategy Strategy, module, candidate string) bool {
	return strategy == StrategyRequirements && normalizeName(module) == normalizeName(candidate)
}

func normalizeName(name string) string {
	return strings.ReplaceAll(strings.ToLower(name), "-", "_")
}
