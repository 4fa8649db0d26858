package prompt

import (
	"strings"
	"testing"

	goerrors "errors"

	tea "github.com/charmbracelet/bubbletea"

	"reqsift/internal/resolve"
)

func keyRune(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func TestModel_Accept(t *testing.T) {
	m := newModel(resolve.StrategyIndexSearch, "bs4", "beautifulsoup4")

	updated, cmd := m.Update(keyRune('y'))
	state, ok := updated.(model)
	if !ok {
		t.Fatalf("expected model type, got %T", updated)
	}
	if cmd == nil {
		t.Fatal("expected the program to quit after an answer")
	}

	pkg, err := state.result()
	if err != nil {
		t.Fatal(err)
	}
	if pkg != "beautifulsoup4" {
		t.Errorf("Expected beautifulsoup4, got %s", pkg)
	}
}

func TestModel_Reject(t *testing.T) {
	m := newModel(resolve.StrategyRequirements, "yaml", "pyaml")

	updated, _ := m.Update(keyRune('n'))
	_, err := updated.(model).result()
	if !goerrors.Is(err, resolve.ErrRejected) {
		t.Errorf("Expected ErrRejected, got %v", err)
	}
}

func TestModel_Ignore(t *testing.T) {
	m := newModel(resolve.StrategySameName, "internal_tool", "internal_tool")

	updated, _ := m.Update(keyRune('i'))
	_, err := updated.(model).result()
	if !goerrors.Is(err, resolve.ErrModuleIgnored) {
		t.Errorf("Expected ErrModuleIgnored, got %v", err)
	}
}

func TestModel_Abort(t *testing.T) {
	for _, msg := range []tea.KeyMsg{keyRune('q'), {Type: tea.KeyCtrlC}} {
		m := newModel(resolve.StrategySameName, "requests", "requests")

		updated, _ := m.Update(msg)
		_, err := updated.(model).result()
		if !goerrors.Is(err, resolve.ErrAborted) {
			t.Errorf("Expected ErrAborted for %v, got %v", msg, err)
		}
	}
}

func TestModel_ExplicitName(t *testing.T) {
	m := newModel(resolve.StrategyIndexSearch, "bs4", "bs4-stubs")

	updated, _ := m.Update(keyRune('e'))
	state := updated.(model)
	if !state.editing {
		t.Fatal("expected edit mode after 'e'")
	}

	for _, r := range "beautifulsoup4" {
		updated, _ = state.Update(keyRune(r))
		state = updated.(model)
	}
	updated, cmd := state.Update(tea.KeyMsg{Type: tea.KeyEnter})
	state = updated.(model)
	if cmd == nil {
		t.Fatal("expected the program to quit after entering a name")
	}

	pkg, err := state.result()
	if err != nil {
		t.Fatal(err)
	}
	if pkg != "beautifulsoup4" {
		t.Errorf("Expected beautifulsoup4, got %s", pkg)
	}
}

func TestModel_ExplicitEmptyKeepsEditing(t *testing.T) {
	m := newModel(resolve.StrategyIndexSearch, "bs4", "bs4-stubs")

	updated, _ := m.Update(keyRune('e'))
	state := updated.(model)

	updated, cmd := state.Update(tea.KeyMsg{Type: tea.KeyEnter})
	state = updated.(model)
	if cmd != nil {
		t.Fatal("an empty name must not be accepted")
	}
	if !state.editing {
		t.Error("expected to stay in edit mode")
	}
}

func TestModel_ExplicitEscGoesBack(t *testing.T) {
	m := newModel(resolve.StrategyIndexSearch, "bs4", "bs4-stubs")

	updated, _ := m.Update(keyRune('e'))
	state := updated.(model)

	updated, _ = state.Update(tea.KeyMsg{Type: tea.KeyEsc})
	state = updated.(model)
	if state.editing {
		t.Error("expected esc to leave edit mode")
	}

	updated, _ = state.Update(keyRune('y'))
	pkg, err := updated.(model).result()
	if err != nil {
		t.Fatal(err)
	}
	if pkg != "bs4-stubs" {
		t.Errorf("Expected the original candidate, got %s", pkg)
	}
}

func TestModel_HelpToggle(t *testing.T) {
	m := newModel(resolve.StrategyIndexSearch, "bs4", "beautifulsoup4")

	updated, _ := m.Update(keyRune('?'))
	state := updated.(model)
	if !strings.Contains(state.View(), "accept the proposed mapping") {
		t.Error("expected help text after '?'")
	}

	updated, _ = state.Update(keyRune('?'))
	state = updated.(model)
	if strings.Contains(state.View(), "accept the proposed mapping") {
		t.Error("expected help to toggle off")
	}
}

func TestModel_ViewNamesBothSides(t *testing.T) {
	m := newModel(resolve.StrategyIndexSearch, "bs4", "beautifulsoup4")

	view := m.View()
	if !strings.Contains(view, "bs4") || !strings.Contains(view, "beautifulsoup4") {
		t.Errorf("Expected module and candidate in the view, got %q", view)
	}
	if !strings.Contains(view, "What should we do (y/n/i/e/q/?)?") {
		t.Errorf("Expected the question line, got %q", view)
	}
}

func TestModel_UnansweredCountsAsAbort(t *testing.T) {
	m := newModel(resolve.StrategySameName, "requests", "requests")
	_, err := m.result()
	if !goerrors.Is(err, resolve.ErrAborted) {
		t.Errorf("Expected ErrAborted for an unanswered prompt, got %v", err)
	}
}
