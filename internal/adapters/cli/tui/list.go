package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/devbush/poser/internal/domain"
)

// ListAction represents what the user chose to do with the highlighted analysis
type ListAction string

const (
	ActionNone     ListAction = ""
	ActionOpen     ListAction = "open"
	ActionDownload ListAction = "download"
	ActionDelete   ListAction = "delete"
	ActionNew      ListAction = "new"
	ActionCancel   ListAction = "cancel"
)

const listTitleWidth = 32

// AnalysisListModel is the bubbletea model for the past analyses sidebar
type AnalysisListModel struct {
	items  []domain.AnalysisSummary
	cursor int
	action ListAction

	// Menu items are after the analyses: New analysis
	menuStart int
}

// NewAnalysisListModel creates a new analysis list
func NewAnalysisListModel(items []domain.AnalysisSummary) AnalysisListModel {
	return AnalysisListModel{
		items:     items,
		menuStart: len(items),
	}
}

func (m AnalysisListModel) Init() tea.Cmd {
	return nil
}

func (m AnalysisListModel) totalItems() int {
	return len(m.items) + 1
}

func (m AnalysisListModel) onAnalysis() bool {
	return m.cursor < m.menuStart
}

func (m AnalysisListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < m.totalItems()-1 {
				m.cursor++
			}
		case "enter":
			if m.onAnalysis() {
				m.action = ActionOpen
			} else {
				m.action = ActionNew
			}
			return m, tea.Quit
		case "d":
			if m.onAnalysis() {
				m.action = ActionDelete
				return m, tea.Quit
			}
		case "s":
			if m.onAnalysis() && m.items[m.cursor].Status == domain.StatusComplete {
				m.action = ActionDownload
				return m, tea.Quit
			}
		case "n":
			m.action = ActionNew
			return m, tea.Quit
		case "q", "ctrl+c", "esc":
			m.action = ActionCancel
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m AnalysisListModel) View() string {
	var sb strings.Builder

	sb.WriteString(titleStyle.Render("Past analyses"))
	sb.WriteString("\n\n")

	if len(m.items) == 0 {
		sb.WriteString(mutedStyle.Render("  No analyses yet"))
		sb.WriteString("\n")
	}

	for i := range m.items {
		cursor := "  "
		style := normalStyle
		if i == m.cursor {
			cursor = "> "
			style = selectedStyle
		}
		line := cursor + FormatAnalysisLine(&m.items[i], listTitleWidth)
		sb.WriteString(style.Render(line))
		sb.WriteString("\n")
	}

	// Separator and menu items
	sb.WriteString("────────────────────────────────────────────────────────────────\n")

	cursor := "  "
	if m.cursor == m.menuStart {
		cursor = "> "
	}
	sb.WriteString(fmt.Sprintf("%s[New analysis]\n", cursor))

	sb.WriteString("\n(enter=open, s=download, d=delete, n=new, q=back)\n")

	return sb.String()
}

// Action returns what action the user took
func (m AnalysisListModel) Action() ListAction {
	return m.action
}

// Current returns the highlighted analysis, if the cursor is on one
func (m AnalysisListModel) Current() (domain.AnalysisSummary, bool) {
	if !m.onAnalysis() {
		return domain.AnalysisSummary{}, false
	}
	return m.items[m.cursor], true
}

// RunAnalysisList displays the list and returns the chosen action and analysis
func RunAnalysisList(items []domain.AnalysisSummary) (ListAction, domain.AnalysisSummary, error) {
	model := NewAnalysisListModel(items)
	p := tea.NewProgram(model)

	finalModel, err := p.Run()
	if err != nil {
		return ActionCancel, domain.AnalysisSummary{}, err
	}

	result := finalModel.(AnalysisListModel)
	current, _ := result.Current()
	return result.Action(), current, nil
}
