package resolve

import (
	"context"
	goerrors "errors"
	"sort"

	"reqsift/internal/core/errors"
	"reqsift/internal/shared/observability"
	"reqsift/internal/textdist"

	"github.com/charmbracelet/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// IgnoredMarker is the mapping value recorded for modules the user chose to
// ignore. It flows through persisted mappings like a package name, so the
// reconciliation layer can tell a decision from an absence.
const IgnoredMarker = "module-ignored"

// truncatedResults is the index search size above which the best candidate
// is flagged as coming from a truncated basis.
const truncatedResults = 100

// errNoCandidate moves the chain on to the next strategy.
var errNoCandidate = goerrors.New("no candidate")

// Index is the remote package index surface the resolver needs.
type Index interface {
	Exists(ctx context.Context, pkg string) (bool, error)
	Search(ctx context.Context, query string) ([]string, error)
}

// Resolver maps a Python module name to an installable package name by
// trying a fixed chain of strategies, each gated by a Confirmer.
type Resolver struct {
	Index   Index
	Confirm Confirmer
	Log     *log.Logger

	// Threshold is the absolute distance a fuzzy candidate must stay
	// strictly below. Defaults to 20.
	Threshold float64
	// MaxPasses bounds how many times the whole chain is retried before
	// giving up. Defaults to 3.
	MaxPasses int
}

// Resolve returns the package name for module, or IgnoredMarker when the
// user chose to ignore it. mappings are trusted lookups tried first,
// declared are the manifest names used for fuzzy matching, and remote
// gates every network call.
func (r *Resolver) Resolve(ctx context.Context, module string, mappings map[string]string, declared map[string]bool, remote bool) (string, error) {
	ctx, span := observability.Tracer.Start(ctx, "resolve.Resolve",
		trace.WithAttributes(attribute.String("module", module)))
	defer span.End()

	threshold := r.Threshold
	if threshold <= 0 {
		threshold = 20
	}
	passes := r.MaxPasses
	if passes <= 0 {
		passes = 3
	}

	for pass := 0; pass < passes; pass++ {
		pkg, err := r.fromMapping(ctx, module, mappings, remote)
		if !errors.Is(err, errNoCandidate) {
			return r.outcome(StrategyExplicit, pkg, err)
		}

		pkg, err = r.fromRequirements(module, declared, threshold)
		if !errors.Is(err, errNoCandidate) {
			return r.outcome(StrategyRequirements, pkg, err)
		}

		if remote {
			pkg, err = r.fromIndexSearch(ctx, module, threshold)
			if !errors.Is(err, errNoCandidate) {
				return r.outcome(StrategyIndexSearch, pkg, err)
			}
		}

		pkg, err = r.fromSameName(ctx, module, remote)
		if !errors.Is(err, errNoCandidate) {
			return r.outcome(StrategySameName, pkg, err)
		}

		r.Log.Info("all options proposed, consider adding the correct package yourself with the --extra-module option", "module", module)
	}

	return "", errors.New(errors.CodeNoPackageFound, "unable to find a suitable package").
		WithContext(errors.CtxModule, module)
}

// outcome maps a strategy result onto the resolver's return contract:
// an ignore signal becomes the marker, everything else passes through.
func (r *Resolver) outcome(strategy Strategy, pkg string, err error) (string, error) {
	if err == nil {
		observability.ResolutionsTotal.WithLabelValues(string(strategy)).Inc()
		return pkg, nil
	}
	if errors.Is(err, ErrModuleIgnored) {
		observability.ResolutionsTotal.WithLabelValues("ignored").Inc()
		return IgnoredMarker, nil
	}
	return "", err
}

// fromMapping resolves through the caller-supplied mapping table. Explicit
// mappings are trusted: a failed remote verification is logged, never
// blocking.
func (r *Resolver) fromMapping(ctx context.Context, module string, mappings map[string]string, remote bool) (string, error) {
	pkg, ok := mappings[module]
	if !ok || pkg == "" {
		return "", errNoCandidate
	}

	if pkg == IgnoredMarker || !remote {
		r.Log.Debug("mapped module through an explicit mapping", "module", module, "package", pkg)
		return pkg, nil
	}

	exists, err := r.Index.Exists(ctx, pkg)
	switch {
	case err != nil:
		r.Log.Warn("mapping found but the package could not be verified", "module", module, "package", pkg, "error", err)
	case !exists:
		r.Log.Warn("mapping found but the package does not seem to exist", "module", module, "package", pkg)
	default:
		r.Log.Debug("mapped module through an explicit mapping", "module", module, "package", pkg)
	}
	return pkg, nil
}

// fromRequirements offers the declared requirement closest to module, once
// per distance measure. A candidate already offered in this pass is not
// offered again.
func (r *Resolver) fromRequirements(module string, declared map[string]bool, threshold float64) (string, error) {
	if len(declared) == 0 {
		return "", errNoCandidate
	}

	names := make([]string, 0, len(declared))
	for name := range declared {
		names = append(names, name)
	}
	sort.Strings(names)

	offered := make(map[string]bool)
	for _, measure := range textdist.Measures() {
		best := names[0]
		bestRank := measure.Normalized(best, module)
		for _, name := range names[1:] {
			if rank := measure.Normalized(name, module); rank < bestRank {
				best, bestRank = name, rank
			}
		}

		distance := measure.Distance(best, module)
		if distance >= threshold {
			r.Log.Debug("no declared package within an acceptable distance", "measure", measure.Name, "module", module)
			continue
		}
		if offered[best] {
			continue
		}
		offered[best] = true

		r.Log.Debug("candidate found in the declared requirements", "module", module, "package", best, "measure", measure.Name, "distance", distance)
		accepted, err := r.Confirm.Confirm(StrategyRequirements, module, best)
		if err == nil {
			return accepted, nil
		}
		if errors.Is(err, ErrRejected) {
			continue
		}
		return "", err
	}
	return "", errNoCandidate
}

// fromIndexSearch offers the best-ranked result of a remote index search.
// Search failures degrade to no candidate so a flaky index never kills a
// run.
func (r *Resolver) fromIndexSearch(ctx context.Context, module string, threshold float64) (string, error) {
	results, err := r.Index.Search(ctx, module)
	if err != nil {
		r.Log.Warn("index search failed", "module", module, "error", err)
		return "", errNoCandidate
	}
	if len(results) == 0 {
		return "", errNoCandidate
	}
	sort.Strings(results)

	best := results[0]
	bestDist := textdist.HammingDistance(best, module)
	for _, name := range results[1:] {
		if d := textdist.HammingDistance(name, module); d < bestDist {
			best, bestDist = name, d
		}
	}
	if bestDist >= threshold {
		return "", errNoCandidate
	}

	if len(results) >= truncatedResults {
		r.Log.Warn("candidate found through an index search over a truncated result set", "module", module, "package", best, "distance", bestDist, "results", len(results))
	} else {
		r.Log.Debug("candidate found through an index search", "module", module, "package", best, "distance", bestDist)
	}

	accepted, err := r.Confirm.Confirm(StrategyIndexSearch, module, best)
	if err == nil {
		return accepted, nil
	}
	if errors.Is(err, ErrRejected) {
		return "", errNoCandidate
	}
	return "", err
}

// fromSameName assumes the package carries the module's own name. With
// remote calls enabled the name must exist on the index; an errored check
// falls back to the remote-disabled behavior.
func (r *Resolver) fromSameName(ctx context.Context, module string, remote bool) (string, error) {
	if remote {
		exists, err := r.Index.Exists(ctx, module)
		if err != nil {
			r.Log.Warn("existence check failed, treating the index as unavailable", "module", module, "error", err)
		} else if !exists {
			return "", errNoCandidate
		}
	}

	r.Log.Warn("assuming the package is named after the module", "module", module)
	accepted, err := r.Confirm.Confirm(StrategySameName, module, module)
	if err == nil {
		return accepted, nil
	}
	if errors.Is(err, ErrRejected) {
		return "", errNoCandidate
	}
	return "", err
}
