package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// The prompt models are one-shot programs: each asks a single question,
// quits, and leaves the answered line in the scrollback.

type inputModel struct {
	label     string
	def       string
	input     textinput.Model
	value     string
	done      bool
	cancelled bool
}

func newInputModel(label, def string, candidates []string) inputModel {
	in := textinput.New()
	in.Prompt = "> "
	in.Placeholder = def
	in.PlaceholderStyle = defaultInputStyle
	in.TextStyle = answerStyle
	if len(candidates) > 0 {
		in.ShowSuggestions = true
		in.SetSuggestions(candidates)
	}
	in.Focus()
	return inputModel{label: label, def: def, input: in}
}

func (m inputModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m inputModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.cancelled = true
			return m, tea.Quit
		case tea.KeyEnter:
			m.value = m.input.Value()
			if strings.TrimSpace(m.value) == "" {
				m.value = m.def
			}
			m.done = true
			return m, tea.Quit
		}
	}
	if ws, ok := msg.(tea.WindowSizeMsg); ok {
		m.input.Width = max(10, ws.Width-4)
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m inputModel) View() string {
	if m.done {
		return questionLine(m.label, "") + " " + answerStyle.Render(m.value) + "\n"
	}
	if m.cancelled {
		return questionLine(m.label, "") + "\n"
	}
	return questionLine(m.label, m.def) + "\n" + m.input.View() + "\n"
}

type confirmModel struct {
	label     string
	value     bool
	done      bool
	cancelled bool
}

func (m confirmModel) Init() tea.Cmd { return nil }

func (m confirmModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch strings.ToLower(key.String()) {
	case "ctrl+c", "esc":
		m.cancelled = true
		return m, tea.Quit
	case "y":
		m.value, m.done = true, true
		return m, tea.Quit
	case "n":
		m.value, m.done = false, true
		return m, tea.Quit
	case "enter":
		m.done = true
		return m, tea.Quit
	case "left", "right", "tab":
		m.value = !m.value
	}
	return m, nil
}

func (m confirmModel) View() string {
	if m.done {
		return questionLine(m.label, "") + " " + answerStyle.Render(yesNo(m.value)) + "\n"
	}
	hint := "y/N"
	if m.value {
		hint = "Y/n"
	}
	return questionLine(m.label, "") + " " + defaultInputStyle.Render("("+hint+")") + "\n"
}

type choiceItem string

func (c choiceItem) Title() string       { return string(c) }
func (c choiceItem) Description() string { return "" }
func (c choiceItem) FilterValue() string { return string(c) }

type chooseModel struct {
	label     string
	list      list.Model
	value     string
	done      bool
	cancelled bool
}

const maxVisibleChoices = 10

func newChooseModel(label string, options []string, defIdx int) chooseModel {
	items := make([]list.Item, 0, len(options))
	for _, o := range options {
		items = append(items, choiceItem(o))
	}
	delegate := list.NewDefaultDelegate()
	delegate.ShowDescription = false
	delegate.SetSpacing(0)
	delegate.Styles.SelectedTitle = delegate.Styles.SelectedTitle.Foreground(selectedStyle.GetForeground()).Bold(true)

	height := min(len(options), maxVisibleChoices) + 2
	l := list.New(items, delegate, 60, height)
	l.Title = questionLine(label, "")
	l.SetShowHelp(false)
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(len(options) > maxVisibleChoices)
	l.SetShowPagination(len(options) > maxVisibleChoices)
	if defIdx >= 0 && defIdx < len(options) {
		l.Select(defIdx)
	}
	return chooseModel{label: label, list: l}
}

func (m chooseModel) Init() tea.Cmd { return nil }

func (m chooseModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.list.SetWidth(msg.Width)
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC:
			m.cancelled = true
			return m, tea.Quit
		case tea.KeyEsc:
			if m.list.FilterState() == list.Unfiltered {
				m.cancelled = true
				return m, tea.Quit
			}
		case tea.KeyEnter:
			if m.list.FilterState() != list.Filtering {
				if item, ok := m.list.SelectedItem().(choiceItem); ok {
					m.value = string(item)
					m.done = true
					return m, tea.Quit
				}
			}
		}
	}
	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m chooseModel) View() string {
	if m.done {
		return questionLine(m.label, "") + " " + answerStyle.Render(m.value) + "\n"
	}
	if m.cancelled {
		return questionLine(m.label, "") + "\n"
	}
	return m.list.View() + "\n"
}

func questionLine(label, def string) string {
	out := questionStyle.Render(strings.TrimSpace(label))
	if def != "" {
		out += " " + defaultInputStyle.Render(fmt.Sprintf("[%s]", def))
	}
	return out
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
