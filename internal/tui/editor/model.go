// Package editor содержит модель ввода имени отрезка для TUI
package editor

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/hazadus/go-abloop/internal/loop"
	"github.com/hazadus/go-abloop/internal/utils"
)

var (
	titleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true).Margin(1, 0)
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Width(15)
	focusedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	helpStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Margin(1, 0)
)

// NameEnteredMsg отправляется после подтверждения имени.
// Пустое имя означает имя по умолчанию.
type NameEnteredMsg struct {
	Name string
}

// GoBackMsg отправляется при отмене ввода
type GoBackMsg struct{}

// Model представляет модель ввода имени отрезка
type Model struct {
	input textinput.Model
	loop  loop.State
}

// NewModel создает форму для отрезка с границами текущего цикла
func NewModel(state loop.State) *Model {
	input := textinput.New()
	input.Placeholder = "Имя отрезка (пусто - по умолчанию)"
	input.CharLimit = 64
	input.Focus()
	input.PromptStyle = focusedStyle
	input.TextStyle = focusedStyle

	return &Model{
		input: input,
		loop:  state,
	}
}

// Init инициализирует модель
func (m *Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update обрабатывает сообщения и обновляет модель
func (m *Model) Update(msg tea.Msg) (*Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			// Отменяем ввод
			return m, func() tea.Msg {
				return GoBackMsg{}
			}

		case "enter":
			name := strings.TrimSpace(m.input.Value())
			return m, func() tea.Msg {
				return NameEnteredMsg{Name: name}
			}
		}

	case tea.WindowSizeMsg:
		m.input.Width = msg.Width - 20
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View отображает модель
func (m *Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Новый отрезок"))
	b.WriteString("\n\n")

	b.WriteString(labelStyle.Render("Границы:"))
	b.WriteString(" ")
	b.WriteString(utils.FormatPrecise(m.loop.A.At) + " - " + utils.FormatPrecise(m.loop.B.At))
	b.WriteString("\n\n")

	b.WriteString(labelStyle.Render("Имя:"))
	b.WriteString(" ")
	b.WriteString(m.input.View())
	b.WriteString("\n")

	b.WriteString(helpStyle.Render("Enter: сохранить • Esc: отмена"))
	return b.String()
}
