// Package prompt asks the user how to handle resolution errors and which
// action list to run, using terminal UIs.
package prompt

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/raaihank/textrules/internal/action"
	"github.com/raaihank/textrules/internal/config"
	"github.com/raaihank/textrules/internal/logger"
	"go.uber.org/zap"
	"golang.org/x/term"
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	buttonStyle   = lipgloss.NewStyle().Padding(0, 2).Foreground(lipgloss.Color("252")).Background(lipgloss.Color("238"))
	selectedStyle = buttonStyle.Foreground(lipgloss.Color("230")).Background(lipgloss.Color("62")).Bold(true)
	helpStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// Terminal prompts on a terminal. It implements action.Prompter and
// action.Selector.
type Terminal struct {
	in  io.Reader
	out io.Writer
}

// NewTerminal creates a prompter reading keys from in and drawing on out
func NewTerminal(in io.Reader, out io.Writer) *Terminal {
	return &Terminal{in: in, out: out}
}

// Interactive reports whether stdin and stderr are both terminals
func Interactive() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stderr.Fd()))
}

// ForPolicy returns the prompter for an on_error policy. The prompt policy
// falls back to aborting when there is no terminal to ask on.
func ForPolicy(policy string, log *logger.Logger) action.Prompter {
	switch policy {
	case config.OnErrorContinue:
		return &action.StaticPrompter{Decision: action.Continue, Logger: log}
	case config.OnErrorPrompt:
		if Interactive() {
			return NewTerminal(os.Stdin, os.Stderr)
		}
		if log != nil {
			log.Debug("No terminal available, resolution errors will abort", zap.String("policy", policy))
		}
	}
	return &action.StaticPrompter{Decision: action.Abort, Logger: log}
}

// Decide implements action.Prompter
func (t *Terminal) Decide(ctx context.Context, err error) (action.Decision, error) {
	final, runErr := t.run(ctx, newDecisionModel(err))
	if runErr != nil {
		return action.Abort, fmt.Errorf("decision prompt failed: %w", runErr)
	}
	return final.(decisionModel).decision, nil
}

func (t *Terminal) run(ctx context.Context, model tea.Model) (tea.Model, error) {
	program := tea.NewProgram(model,
		tea.WithContext(ctx),
		tea.WithInput(t.in),
		tea.WithOutput(t.out),
	)
	return program.Run()
}

// decisionModel shows an error and asks whether to abort or continue.
// Leaving the prompt without choosing aborts.
type decisionModel struct {
	message  string
	kind     string
	focus    action.Decision
	decision action.Decision
	done     bool
}

func newDecisionModel(err error) decisionModel {
	return decisionModel{
		message:  err.Error(),
		kind:     action.ErrorKind(err),
		focus:    action.Abort,
		decision: action.Abort,
	}
}

func (m decisionModel) Init() tea.Cmd {
	return nil
}

func (m decisionModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch key.String() {
	case "left", "right", "tab", "shift+tab", "h", "l":
		if m.focus == action.Abort {
			m.focus = action.Continue
		} else {
			m.focus = action.Abort
		}
	case "a":
		return m.choose(action.Abort)
	case "c":
		return m.choose(action.Continue)
	case "enter":
		return m.choose(m.focus)
	case "esc", "ctrl+c", "q":
		return m.choose(action.Abort)
	}
	return m, nil
}

func (m decisionModel) choose(d action.Decision) (tea.Model, tea.Cmd) {
	m.decision = d
	m.done = true
	return m, tea.Quit
}

func (m decisionModel) View() string {
	if m.done {
		return ""
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("Resolution error") + " " + helpStyle.Render("("+m.kind+")"))
	b.WriteString("\n\n")
	b.WriteString(errorStyle.Render(m.message))
	b.WriteString("\n\n")

	abort, cont := buttonStyle, buttonStyle
	if m.focus == action.Abort {
		abort = selectedStyle
	} else {
		cont = selectedStyle
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, abort.Render("Abort"), "  ", cont.Render("Continue")))
	b.WriteString("\n\n")
	b.WriteString(helpStyle.Render("←/→ switch • enter confirm • a abort • c continue"))
	b.WriteString("\n")
	return b.String()
}
