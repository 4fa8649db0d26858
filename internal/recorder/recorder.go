// # internal/recorder/recorder.go
package recorder

// Recorder persists every module-to-package decision as soon as it is made,
// so an interrupted run can seed the next one instead of asking the same
// questions again.
type Recorder interface {
	// Record stores the decision and passes the package name through.
	Record(module, pkg string) (string, error)
	// Seed returns the decisions recovered from a previous run.
	Seed() map[string]string
	// Clear discards the journal after a run completed cleanly.
	Clear() error
	Close() error
}

// Null drops every decision. Used when journaling is disabled.
type Null struct{}

func (Null) Record(module, pkg string) (string, error) { return pkg, nil }

func (Null) Seed() map[string]string { return map[string]string{} }

func (Null) Clear() error { return nil }

func (Null) Close() error { return nil }
