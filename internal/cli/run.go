package cli

import (
	"context"
	goerrors "errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"reqsift/internal/config"
	"reqsift/internal/core/errors"
	"reqsift/internal/inspect"
	"reqsift/internal/manifest"
	"reqsift/internal/pypi"
	"reqsift/internal/recorder"
	"reqsift/internal/report"
	"reqsift/internal/resolve"
	"reqsift/internal/scan"
	"reqsift/internal/shared/observability"
	"reqsift/internal/ui/prompt"
)

func run(cmd *cobra.Command, opts options, args []string) error {
	ctx := cmd.Context()
	logger := newLogger(opts.verbose)

	root := "."
	if len(args) == 1 {
		root = args[0]
	}

	cfg, err := loadConfig(opts.configPath, logger)
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		return silentExit(cmd, 1)
	}
	config.ApplyEnvOverrides(cfg, logger)

	if cfg.Observability.Enabled {
		server := observability.NewServer(cfg.Observability.Port, logger)
		if err := server.Start(ctx); err != nil {
			logger.Warn("observability server not started", "error", err)
		} else {
			defer server.Stop(context.Background())
		}
	}
	if endpoint := cfg.Observability.OTLPEndpoint; endpoint != "" {
		shutdown, err := observability.InitTracing(ctx, endpoint)
		if err != nil {
			logger.Warn("tracing disabled", "endpoint", endpoint, "error", err)
		} else {
			defer shutdown(context.Background())
		}
	}

	p, err := newPipeline(opts, cfg, logger, root)
	if err != nil {
		logger.Error("failed to initialize", "error", err)
		return silentExit(cmd, 1)
	}

	if opts.watch {
		return p.watchLoop(ctx, cmd)
	}
	return p.runOnce(ctx, cmd)
}

func newLogger(verbose bool) *log.Logger {
	level := log.InfoLevel
	if verbose {
		level = log.DebugLevel
	}
	return log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Level:           level,
	})
}

// loadConfig reads the named config file, or the default one when present,
// or falls back to built-in defaults. Only a named file is required to exist.
func loadConfig(path string, logger *log.Logger) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}
	if _, err := os.Stat(config.DefaultPath); err == nil {
		logger.Debug("using config file", "path", config.DefaultPath)
		return config.Load(config.DefaultPath)
	}
	return config.Default(), nil
}

// pipeline holds the pieces that live for the whole process. The index
// client is shared across watch-mode runs so its caches keep paying off.
type pipeline struct {
	opts         options
	cfg          *config.Config
	log          *log.Logger
	root         string
	index        *pypi.Client
	flagMappings map[string]string
	current      *inspect.Context
}

func newPipeline(opts options, cfg *config.Config, logger *log.Logger, root string) (*pipeline, error) {
	current, err := inspect.LoadContext(opts.contextFile)
	if err != nil {
		return nil, err
	}

	index, err := pypi.NewClient(pypi.Options{
		BaseURL:    cfg.PyPI.BaseURL,
		SimpleURL:  cfg.PyPI.SimpleURL,
		Timeout:    cfg.PyPI.Timeout,
		RatePerSec: cfg.PyPI.RatePerSec,
		Burst:      cfg.PyPI.Burst,
		CacheSize:  cfg.PyPI.CacheSize,
	}, logger)
	if err != nil {
		return nil, err
	}

	return &pipeline{
		opts:         opts,
		cfg:          cfg,
		log:          logger,
		root:         root,
		index:        index,
		flagMappings: parseMappings(opts.mappings, logger),
		current:      current,
	}, nil
}

func parseMappings(args []string, logger *log.Logger) map[string]string {
	mappings := make(map[string]string, len(args))
	for _, arg := range args {
		module, pkg, ok := strings.Cut(arg, ":")
		if !ok || module == "" || pkg == "" {
			logger.Warn("ignoring malformed mapping, want module:package", "mapping", arg)
			continue
		}
		mappings[module] = pkg
	}
	return mappings
}

func (p *pipeline) runOnce(ctx context.Context, cmd *cobra.Command) error {
	result, err := p.inspect(ctx, p.log, p.confirmer(p.log))
	observability.RunsTotal.WithLabelValues(outcomeLabel(result, err)).Inc()
	if err != nil {
		return p.fail(cmd, err)
	}

	diff := p.report(cmd, result)

	if p.opts.apply {
		if err := p.applyResults(result); err != nil {
			return p.fail(cmd, err)
		}
	}

	if diff && p.opts.errorOnDiff {
		return silentExit(cmd, 1)
	}
	return nil
}

// inspect performs one scan-resolve-reconcile cycle. The declared manifest
// is re-read every time so watch-mode runs see edits to it, and the journal
// lives exactly from the first decision to the context write.
func (p *pipeline) inspect(ctx context.Context, runLog *log.Logger, confirm resolve.Confirmer) (inspect.Result, error) {
	ctx, span := observability.Tracer.Start(ctx, "pipeline.inspect",
		trace.WithAttributes(attribute.String("path", p.root)))
	defer span.End()

	declared, err := p.loadDeclared()
	if err != nil {
		return inspect.Result{}, err
	}

	scanner, err := scan.NewScanner(scan.Options{
		Extensions:        p.cfg.Scan.Extensions,
		ExcludeDirs:       p.cfg.Scan.Exclude.Dirs,
		ExcludeFiles:      p.cfg.Scan.Exclude.Files,
		RespectGitignore:  p.cfg.Scan.GitignoreEnabled(),
		IgnoreParseErrors: p.cfg.Scan.IgnoreParseErrors,
	}, runLog)
	if err != nil {
		return inspect.Result{}, err
	}

	rec, err := p.openRecorder(runLog)
	if err != nil {
		return inspect.Result{}, err
	}
	defer rec.Close()

	runLog.Info("discovering all the modules of the codebase", "path", p.root)
	scanRes, err := scanner.Scan(ctx, p.root)
	if err != nil {
		return inspect.Result{}, err
	}
	runLog.Info("module discovery done",
		"imported_only", len(scanRes.ImportedOnly),
		"imported_and_defined", len(scanRes.ImportedAndDefined))

	// Decisions recovered from a crashed run seed the table, the context
	// mapping overrides them, and command line mappings win over both.
	mappings := make(map[string]string)
	for module, pkg := range rec.Seed() {
		mappings[module] = pkg
	}
	for module, pkg := range p.current.Mapping {
		mappings[module] = pkg
	}
	for module, pkg := range p.flagMappings {
		mappings[module] = pkg
	}

	resolver := &resolve.Resolver{
		Index:     p.index,
		Confirm:   confirm,
		Log:       runLog,
		Threshold: p.cfg.Resolve.DistanceThreshold,
		MaxPasses: p.cfg.Resolve.MaxPasses,
	}
	inspector := &inspect.Inspector{Resolver: resolver, Recorder: rec, Log: runLog}

	result, err := inspector.Reconcile(ctx, inspect.Request{
		ImportedOnly:       scanRes.ImportedOnly,
		ImportedAndDefined: scanRes.ImportedAndDefined,
		Context:            p.current,
		Declared:           declared,
		ExtraModules:       p.opts.extraModules,
		ExtraPackages:      p.opts.extraPackages,
		IgnoreModules:      p.opts.ignoreModules,
		KeepPackages:       p.opts.keepPackages,
		Mappings:           mappings,
		Remote:             p.opts.pypiCalls,
	})
	if err != nil {
		return inspect.Result{}, err
	}

	if p.opts.updateContext {
		if err := inspect.SaveContext(p.opts.contextFile, result.Context); err != nil {
			return inspect.Result{}, err
		}
		runLog.Debug("context saved", "path", p.opts.contextFile)
	}

	// The journal covers the window between a decision and the context
	// write; once the run completed it has nothing left to protect.
	if err := rec.Clear(); err != nil {
		runLog.Warn("could not clear the decision journal", "error", err)
	}

	p.current = result.Context
	return result, nil
}

func (p *pipeline) loadDeclared() (map[string]bool, error) {
	switch {
	case p.opts.requirements != "":
		return manifest.ParseRequirements(p.opts.requirements)
	case p.opts.pipfile != "":
		return manifest.ParsePipfile(p.opts.pipfile)
	default:
		return map[string]bool{}, nil
	}
}

func (p *pipeline) openRecorder(runLog *log.Logger) (recorder.Recorder, error) {
	if !p.opts.record {
		return recorder.Null{}, nil
	}
	return recorder.OpenJournal(p.cfg.Recorder.JournalPath, runLog)
}

func (p *pipeline) confirmer(runLog *log.Logger) resolve.Confirmer {
	if p.opts.interaction {
		return &prompt.Prompter{}
	}
	return &resolve.AutoConfirmer{Log: runLog}
}

func (p *pipeline) report(cmd *cobra.Command, result inspect.Result) bool {
	writer := report.NewWriter(cmd.OutOrStdout())
	writer.HasManifest = p.opts.requirements != "" || p.opts.pipfile != ""
	diff, err := writer.Write(result.Missing, result.Unused)
	if err != nil {
		p.log.Warn("could not write the report", "error", err)
	}
	return diff
}

func (p *pipeline) applyResults(result inspect.Result) error {
	switch {
	case p.opts.requirements != "":
		return manifest.Apply(p.opts.requirements, result.Missing, result.Unused)
	case p.opts.pipfile != "":
		return manifest.ApplyPipfile(p.opts.pipfile)
	default:
		return nil
	}
}

func (p *pipeline) fail(cmd *cobra.Command, err error) error {
	if goerrors.Is(err, resolve.ErrAborted) {
		p.log.Info("aborted")
		return silentExit(cmd, 130)
	}
	if errors.IsCode(err, errors.CodeNeedsInteraction) {
		p.reportInteractionNeeded(err)
		return silentExit(cmd, 1)
	}
	p.log.Error("inspection failed", "error", err)
	return silentExit(cmd, 1)
}

// reportInteractionNeeded explains how to unblock an unattended run that hit
// a mapping no rule could decide.
func (p *pipeline) reportInteractionNeeded(err error) {
	module := ""
	var de *errors.DomainError
	if errors.As(err, &de) {
		if v, ok := de.Context[errors.CtxModule].(string); ok {
			module = v
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Unable to find the mapping for the python module %s.", module)
	fmt.Fprintf(&b, "\nWe couldn't find any explicit mapping in %s.", p.opts.contextFile)
	if path := p.manifestPath(); path != "" {
		fmt.Fprintf(&b, "\nAnd we couldn't find any package with the same name in %s.", path)
	}
	b.WriteString("\n\nTry to run reqsift manually to update your context file.")
	p.log.Error(b.String())
}

func (p *pipeline) manifestPath() string {
	if p.opts.requirements != "" {
		return p.opts.requirements
	}
	return p.opts.pipfile
}

func outcomeLabel(result inspect.Result, err error) string {
	switch {
	case goerrors.Is(err, resolve.ErrAborted):
		return "aborted"
	case err != nil:
		return "failed"
	case len(result.Missing) > 0 || len(result.Unused) > 0:
		return "diff"
	default:
		return "clean"
	}
}

// silentExit returns a bare exit code after the failure has already been
// reported through the logger.
func silentExit(cmd *cobra.Command, code int) error {
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true
	return &ExitError{Code: code}
}
