package prompt

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"reqsift/internal/resolve"
)

var (
	nameStyle = lipgloss.NewStyle().
			Bold(true).
			Render

	questionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#3B82F6")).
			Bold(true).
			Render
)

const helpText = `y: accept the proposed mapping
n: do not accept the proposed mapping and try another one
i: ignore the module (it will be added to the list of ignored modules)
e: explicitly add the name of the corresponding package
q: exit the program
?: display this help`

// Prompter validates candidates by asking the user. Degenerate matches are
// accepted without a question. One program runs per question on stderr so
// report output on stdout stays machine readable.
type Prompter struct{}

var _ resolve.Confirmer = (*Prompter)(nil)

func (p *Prompter) Confirm(strategy resolve.Strategy, module, candidate string) (string, error) {
	if resolve.AutoAccept(strategy, module, candidate) {
		return candidate, nil
	}

	prog := tea.NewProgram(newModel(strategy, module, candidate), tea.WithOutput(os.Stderr))
	final, err := prog.Run()
	if err != nil {
		return "", err
	}
	return final.(model).result()
}

type choice int

const (
	choicePending choice = iota
	choiceAccept
	choiceReject
	choiceIgnore
	choiceAbort
	choiceExplicit
)

type model struct {
	strategy  resolve.Strategy
	module    string
	candidate string

	input    textinput.Model
	editing  bool
	showHelp bool

	choice   choice
	explicit string
}

func newModel(strategy resolve.Strategy, module, candidate string) model {
	ti := textinput.New()
	ti.Prompt = "Specify the package name: "
	ti.CharLimit = 128
	return model{
		strategy:  strategy,
		module:    module,
		candidate: candidate,
		input:     ti,
	}
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	if m.editing {
		return m.updateEditing(key)
	}

	switch key.String() {
	case "y":
		m.choice = choiceAccept
		return m, tea.Quit
	case "n":
		m.choice = choiceReject
		return m, tea.Quit
	case "i":
		m.choice = choiceIgnore
		return m, tea.Quit
	case "e":
		m.editing = true
		return m, m.input.Focus()
	case "q", "ctrl+c":
		m.choice = choiceAbort
		return m, tea.Quit
	case "?":
		m.showHelp = !m.showHelp
		return m, nil
	}
	return m, nil
}

func (m model) updateEditing(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key.Type {
	case tea.KeyEnter:
		name := strings.TrimSpace(m.input.Value())
		if name == "" {
			return m, nil
		}
		m.explicit = name
		m.choice = choiceExplicit
		return m, tea.Quit
	case tea.KeyEsc:
		m.editing = false
		m.input.Reset()
		return m, nil
	case tea.KeyCtrlC:
		m.choice = choiceAbort
		return m, tea.Quit
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(key)
	return m, cmd
}

func (m model) View() string {
	var b strings.Builder
	fmt.Fprintf(&b, "\nMap the module [%s] with the package [%s] (%s)\n\n",
		nameStyle(m.module), nameStyle(m.candidate), m.strategy)

	if m.editing {
		b.WriteString(m.input.View())
		b.WriteString("\n")
		return b.String()
	}

	b.WriteString(questionStyle("What should we do (y/n/i/e/q/?)?"))
	b.WriteString("\n")
	if m.showHelp {
		b.WriteString("\n" + helpText + "\n")
	}
	return b.String()
}

// result translates the final state into the confirmer contract.
func (m model) result() (string, error) {
	switch m.choice {
	case choiceAccept:
		return m.candidate, nil
	case choiceExplicit:
		return m.explicit, nil
	case choiceReject:
		return "", resolve.ErrRejected
	case choiceIgnore:
		return "", resolve.ErrModuleIgnored
	default:
		return "", resolve.ErrAborted
	}
}
