package prompt

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/raaihank/textrules/internal/action"
)

// optionItem adapts action.Option to list.Item
type optionItem struct {
	option action.Option
}

func (i optionItem) Title() string       { return i.option.Name }
func (i optionItem) Description() string { return i.option.Description }
func (i optionItem) FilterValue() string { return i.option.Name + " " + i.option.Description }

// Select implements action.Selector
func (t *Terminal) Select(ctx context.Context, title string, options []action.Option) (string, bool, error) {
	final, err := t.run(ctx, newSelectModel(title, options))
	if err != nil {
		return "", false, fmt.Errorf("selection prompt failed: %w", err)
	}
	m := final.(selectModel)
	return m.chosen, m.ok, nil
}

type selectModel struct {
	list   list.Model
	chosen string
	ok     bool
	done   bool
}

func newSelectModel(title string, options []action.Option) selectModel {
	items := make([]list.Item, 0, len(options))
	for _, o := range options {
		items = append(items, optionItem{option: o})
	}

	l := list.New(items, list.NewDefaultDelegate(), 60, 20)
	l.Title = title
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(true)
	l.Styles.Title = titleStyle

	return selectModel{list: l}
}

func (m selectModel) Init() tea.Cmd {
	return nil
}

func (m selectModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.list.SetSize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		// While filtering, enter and esc belong to the filter input.
		if m.list.FilterState() != list.Filtering {
			switch msg.String() {
			case "enter":
				if item, ok := m.list.SelectedItem().(optionItem); ok {
					m.chosen = item.option.Name
					m.ok = true
				}
				m.done = true
				return m, tea.Quit
			case "esc":
				if m.list.FilterState() == list.FilterApplied {
					break
				}
				m.done = true
				return m, tea.Quit
			case "ctrl+c", "q":
				m.done = true
				return m, tea.Quit
			}
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m selectModel) View() string {
	if m.done {
		return ""
	}
	return m.list.View()
}
