package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

// MenuOption is one entry of a menu. Hint is shown next to the entry under
// the cursor.
type MenuOption struct {
	Label string
	Value string
	Hint  string
}

// MenuModel is the bubbletea model for the main menu
type MenuModel struct {
	title    string
	header   string
	options  []MenuOption
	cursor   int
	selected string
}

// NewMenuModel creates a new menu. header is shown above the title, for
// example the signed-in account.
func NewMenuModel(title, header string, options []MenuOption) MenuModel {
	return MenuModel{
		title:   title,
		header:  header,
		options: options,
	}
}

func (m MenuModel) Init() tea.Cmd {
	return nil
}

func (m MenuModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.options)-1 {
				m.cursor++
			}
		case "enter":
			if len(m.options) > 0 {
				m.selected = m.options[m.cursor].Value
			}
			return m, tea.Quit
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		default:
			// 1-9 pick an entry directly
			if k := msg.String(); len(k) == 1 && k[0] >= '1' && k[0] <= '9' {
				if i := int(k[0] - '1'); i < len(m.options) {
					m.cursor = i
					m.selected = m.options[i].Value
					return m, tea.Quit
				}
			}
		}
	}
	return m, nil
}

func (m MenuModel) View() string {
	var sb strings.Builder

	if m.header != "" {
		sb.WriteString(mutedStyle.Render(m.header))
		sb.WriteString("\n\n")
	}
	sb.WriteString(fmt.Sprintf("? %s\n\n", m.title))

	for i, opt := range m.options {
		cursor := "  "
		style := normalStyle
		if i == m.cursor {
			cursor = "> "
			style = selectedStyle
		}
		fmt.Fprintf(&sb, "%s%d. %s", cursor, i+1, style.Render(opt.Label))
		if i == m.cursor && opt.Hint != "" {
			sb.WriteString("  " + mutedStyle.Render(opt.Hint))
		}
		sb.WriteString("\n")
	}

	sb.WriteString("\n(up/down or 1-9 to choose, enter to select, q to quit)\n")
	return sb.String()
}

// Selected returns the selected value
func (m MenuModel) Selected() string {
	return m.selected
}

// RunMenu displays the menu and returns the selection
func RunMenu(title, header string, options []MenuOption) (string, error) {
	model := NewMenuModel(title, header, options)
	p := tea.NewProgram(model)

	finalModel, err := p.Run()
	if err != nil {
		return "", err
	}

	return finalModel.(MenuModel).Selected(), nil
}
