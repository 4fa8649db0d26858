package inspect

import (
	"context"
	"strings"
	"time"

	"reqsift/internal/recorder"
	"reqsift/internal/resolve"
	"reqsift/internal/shared/observability"
	"reqsift/internal/shared/util"

	"github.com/charmbracelet/log"
)

// Request is one reconciliation job: the discovered module sets plus
// everything the user declared about them.
type Request struct {
	ImportedOnly       map[string]bool
	ImportedAndDefined map[string]bool
	Context            *Context
	Declared           map[string]bool
	ExtraModules       []string
	ExtraPackages      []string
	IgnoreModules      []string
	KeepPackages       []string
	// Mappings is the merged explicit mapping table: recovered decisions,
	// then the context mapping, then command line mappings.
	Mappings map[string]string
	Remote   bool
}

// Result is what a run reports and what it persists.
type Result struct {
	Missing []string
	Unused  []string
	Context *Context
}

type Inspector struct {
	Resolver *resolve.Resolver
	Recorder recorder.Recorder
	Log      *log.Logger
}

// Reconcile resolves every discovered module to a package and diffs the
// outcome against the declared requirements.
func (ins *Inspector) Reconcile(ctx context.Context, req Request) (Result, error) {
	ctx, span := observability.Tracer.Start(ctx, "inspect.Reconcile")
	defer span.End()
	start := time.Now()
	defer func() {
		observability.ReconcileSeconds.Observe(time.Since(start).Seconds())
	}()

	ignored := make(map[string]bool)
	for _, module := range req.Context.IgnoredModules {
		ignored[module] = true
	}
	for _, module := range req.IgnoreModules {
		ignored[module] = true
	}

	extraModules := make(map[string]bool)
	for _, module := range append(append([]string{}, req.ExtraModules...), req.Context.ExtraModules...) {
		first, _, _ := strings.Cut(module, ".")
		if first != "" && !ignored[first] {
			extraModules[first] = true
		}
	}

	importedOnly := subtract(req.ImportedOnly, ignored)
	importedAndDefined := subtract(req.ImportedAndDefined, ignored)

	required := union(importedOnly, extraModules)

	extraPackages := make(map[string]bool)
	for _, pkg := range req.Context.ExtraPackages {
		extraPackages[pkg] = true
	}
	for _, pkg := range req.ExtraPackages {
		extraPackages[pkg] = true
	}

	ins.Log.Info("mapping all the modules with the corresponding packages")

	requiredMapping := make(map[string]string, len(required))
	for _, module := range util.SortedStringKeys(required) {
		pkg, err := ins.resolveAndRecord(ctx, module, req.Mappings, req)
		if err != nil {
			return Result{}, err
		}
		requiredMapping[module] = pkg
	}
	requiredPackages := packagesOf(requiredMapping)

	// Modules the codebase both imports and defines are resolved against a
	// table that already contains this run's decisions, so a local module
	// shadowing an external one reuses the prior answer instead of raising
	// a second round of questions.
	augmented := make(map[string]string, len(req.Mappings)+len(requiredMapping))
	for module, pkg := range req.Mappings {
		augmented[module] = pkg
	}
	for module, pkg := range requiredMapping {
		augmented[module] = pkg
	}

	conflictingMapping := make(map[string]string, len(importedAndDefined))
	for _, module := range util.SortedStringKeys(importedAndDefined) {
		pkg, err := ins.resolveAndRecord(ctx, module, augmented, req)
		if err != nil {
			return Result{}, err
		}
		conflictingMapping[module] = pkg
	}
	conflictingPackages := packagesOf(conflictingMapping)

	ins.Log.Info("mapping done")

	finalMapping := make(map[string]string, len(requiredMapping)+len(conflictingMapping))
	for module, pkg := range requiredMapping {
		finalMapping[module] = pkg
	}
	for module, pkg := range conflictingMapping {
		finalMapping[module] = pkg
	}

	cleanedMapping := make(map[string]string, len(finalMapping))
	for module, pkg := range finalMapping {
		if pkg == resolve.IgnoredMarker {
			ignored[module] = true
			continue
		}
		cleanedMapping[module] = pkg
	}

	for pkg := range extraPackages {
		requiredPackages[pkg] = true
	}
	extraModules = subtract(extraModules, ignored)

	missing := subtract(requiredPackages, req.Declared)

	keep := make(map[string]bool)
	for pkg := range conflictingPackages {
		if req.Declared[pkg] {
			keep[pkg] = true
		}
	}
	for _, pkg := range req.KeepPackages {
		keep[pkg] = true
	}

	unused := subtract(subtract(req.Declared, requiredPackages), keep)

	updated := &Context{
		Mapping:        cleanedMapping,
		IgnoredModules: util.SortedStringKeys(ignored),
		ExtraModules:   util.SortedStringKeys(extraModules),
		ExtraPackages:  util.SortedStringKeys(extraPackages),
	}

	return Result{
		Missing: util.SortedStringKeys(missing),
		Unused:  util.SortedStringKeys(unused),
		Context: updated,
	}, nil
}

func (ins *Inspector) resolveAndRecord(ctx context.Context, module string, mappings map[string]string, req Request) (string, error) {
	pkg, err := ins.Resolver.Resolve(ctx, module, mappings, req.Declared, req.Remote)
	if err != nil {
		return "", err
	}
	return ins.Recorder.Record(module, pkg)
}

func packagesOf(mapping map[string]string) map[string]bool {
	packages := make(map[string]bool, len(mapping))
	for _, pkg := range mapping {
		if pkg != resolve.IgnoredMarker {
			packages[pkg] = true
		}
	}
	return packages
}

func subtract(src, drop map[string]bool) map[string]bool {
	out := make(map[string]bool, len(src))
	for name := range src {
		if !drop[name] {
			out[name] = true
		}
	}
	return out
}

func union(a, b map[string]bool) map[string]bool {
	out := make(map[string]bool, len(a)+len(b))
	for name := range a {
		out[name] = true
	}
	for name := range b {
		out[name] = true
	}
	return out
}
