package cli

import (
	"context"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"reqsift/internal/core/errors"
	"reqsift/internal/resolve"
	"reqsift/internal/shared/observability"
	"reqsift/internal/watch"
)

// watchLoop runs one inspection up front, then re-runs on source changes.
// The initial run may still ask questions; every re-run is unattended, so a
// mapping that would need interaction is logged and the loop keeps going.
func (p *pipeline) watchLoop(ctx context.Context, cmd *cobra.Command) error {
	result, err := p.inspect(ctx, p.log, p.confirmer(p.log))
	observability.RunsTotal.WithLabelValues(outcomeLabel(result, err)).Inc()
	if err != nil {
		return p.fail(cmd, err)
	}
	p.report(cmd, result)

	trigger := make(chan []string, 1)
	watcher, err := watch.NewWatcher(watch.Options{
		Debounce:     p.cfg.Watch.Debounce,
		ExcludeDirs:  p.cfg.Scan.Exclude.Dirs,
		ExcludeFiles: p.cfg.Scan.Exclude.Files,
		Extensions:   p.cfg.Scan.Extensions,
		ExtraFiles:   p.manifestBases(),
	}, p.log, func(paths []string) {
		select {
		case trigger <- paths:
		default:
		}
	})
	if err != nil {
		p.log.Error("failed to create the watcher", "error", err)
		return silentExit(cmd, 1)
	}
	defer watcher.Close()

	if err := watcher.Watch([]string{p.root}); err != nil {
		p.log.Error("failed to watch the codebase", "path", p.root, "error", err)
		return silentExit(cmd, 1)
	}
	p.log.Info("watching for changes", "path", p.root, "debounce", p.cfg.Watch.Debounce)

	for {
		select {
		case <-ctx.Done():
			p.log.Info("stopping")
			return nil
		case paths := <-trigger:
			runLog := p.log.With("run", shortRunID())
			runLog.Info("change detected", "files", len(paths))

			result, err := p.inspect(ctx, runLog, &resolve.AutoConfirmer{Log: runLog})
			observability.RunsTotal.WithLabelValues(outcomeLabel(result, err)).Inc()
			if err != nil {
				if errors.IsCode(err, errors.CodeNeedsInteraction) {
					p.reportInteractionNeeded(err)
				} else {
					runLog.Error("inspection failed", "error", err)
				}
				continue
			}
			p.report(cmd, result)
		}
	}
}

func (p *pipeline) manifestBases() []string {
	var files []string
	if p.opts.requirements != "" {
		files = append(files, p.opts.requirements)
	}
	if p.opts.pipfile != "" {
		files = append(files, p.opts.pipfile)
	}
	return files
}

func shortRunID() string {
	return uuid.NewString()[:8]
}
