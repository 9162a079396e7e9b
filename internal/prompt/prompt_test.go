package prompt

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/raaihank/textrules/internal/action"
	"github.com/raaihank/textrules/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func decide(t *testing.T, keys ...string) decisionModel {
	t.Helper()
	var m tea.Model = newDecisionModel(&action.MissingReferenceError{Names: []string{"x"}})
	for _, k := range keys {
		m, _ = m.Update(key(k))
	}
	return m.(decisionModel)
}

func TestDecisionModel(t *testing.T) {
	tests := []struct {
		name     string
		keys     []string
		expected action.Decision
		done     bool
	}{
		{"Enter on default focus aborts", []string{"enter"}, action.Abort, true},
		{"Switch then enter continues", []string{"right", "enter"}, action.Continue, true},
		{"Shortcut continue", []string{"c"}, action.Continue, true},
		{"Shortcut abort", []string{"right", "a"}, action.Abort, true},
		{"Escape aborts", []string{"right", "esc"}, action.Abort, true},
		{"Undecided", []string{"right"}, action.Abort, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := decide(t, tt.keys...)
			assert.Equal(t, tt.done, m.done)
			assert.Equal(t, tt.expected, m.decision)
		})
	}

	t.Run("View", func(t *testing.T) {
		m := decide(t)
		view := m.View()
		assert.Contains(t, view, "missing_reference")
		assert.Contains(t, view, "Continue")
		assert.Empty(t, decide(t, "c").View())
	})
}

func TestSelectModel(t *testing.T) {
	options := []action.Option{
		{Name: "alpha", Description: "first"},
		{Name: "beta", Description: "second"},
	}

	run := func(keys ...string) selectModel {
		var m tea.Model = newSelectModel("Action List", options)
		m, _ = m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
		for _, k := range keys {
			m, _ = m.Update(key(k))
		}
		return m.(selectModel)
	}

	m := run("enter")
	require.True(t, m.done)
	assert.True(t, m.ok)
	assert.Equal(t, "alpha", m.chosen)

	m = run("down", "enter")
	assert.True(t, m.ok)
	assert.Equal(t, "beta", m.chosen)

	m = run("esc")
	assert.True(t, m.done)
	assert.False(t, m.ok)

	assert.Contains(t, run().View(), "Action List")
}

func TestForPolicy(t *testing.T) {
	p, ok := ForPolicy(config.OnErrorContinue, nil).(*action.StaticPrompter)
	require.True(t, ok)
	assert.Equal(t, action.Continue, p.Decision)

	p, ok = ForPolicy(config.OnErrorAbort, nil).(*action.StaticPrompter)
	require.True(t, ok)
	assert.Equal(t, action.Abort, p.Decision)

	// Test binaries do not run on a terminal.
	if !Interactive() {
		p, ok = ForPolicy(config.OnErrorPrompt, nil).(*action.StaticPrompter)
		require.True(t, ok)
		assert.Equal(t, action.Abort, p.Decision)
	}
}
