// Package segments содержит модель списка сохраненных отрезков для TUI
package segments

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/hazadus/go-abloop/internal/segment"
	"github.com/hazadus/go-abloop/internal/utils"
)

var (
	titleStyle        = lipgloss.NewStyle().MarginLeft(2)
	itemStyle         = lipgloss.NewStyle().PaddingLeft(4)
	selectedItemStyle = lipgloss.NewStyle().PaddingLeft(2).Foreground(lipgloss.Color("170"))
	paginationStyle   = list.DefaultStyles().PaginationStyle.PaddingLeft(4)
	emptyStyle        = lipgloss.NewStyle().PaddingLeft(4).Foreground(lipgloss.Color("241"))
)

// ApplyMsg отправляется при выборе отрезка для цикла
type ApplyMsg struct {
	Segment segment.Segment
}

// RemoveMsg отправляется при удалении отрезка
type RemoveMsg struct {
	Segment segment.Segment
}

// segmentItem реализует интерфейс list.Item для отрезка
type segmentItem struct {
	segment segment.Segment
}

func (i segmentItem) FilterValue() string {
	return i.segment.Name
}

// segmentItemDelegate реализует отображение элементов списка
type segmentItemDelegate struct{}

func (d segmentItemDelegate) Height() int                             { return 1 }
func (d segmentItemDelegate) Spacing() int                            { return 0 }
func (d segmentItemDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }
func (d segmentItemDelegate) Render(w io.Writer, m list.Model, index int, listItem list.Item) {
	i, ok := listItem.(segmentItem)
	if !ok {
		return
	}

	// Форматируем строку в виде таблицы: Название | Начало | Конец | Длина
	s := i.segment
	str := fmt.Sprintf("%-30s %s - %s  (%s)",
		utils.TruncateString(s.Name, 30),
		utils.FormatPrecise(s.Start),
		utils.FormatPrecise(s.End),
		utils.FormatDuration(s.Duration()))

	fn := itemStyle.Render
	if index == m.Index() {
		fn = func(s ...string) string {
			return selectedItemStyle.Render("> " + strings.Join(s, " "))
		}
	}

	fmt.Fprint(w, fn(str))
}

// Model представляет модель списка отрезков
type Model struct {
	list list.Model
}

// NewModel создает новую модель списка отрезков
func NewModel(segs []segment.Segment) *Model {
	l := list.New(toItems(segs), segmentItemDelegate{}, 0, 8)
	l.Title = "Отрезки"
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.DisableQuitKeybindings()
	l.Styles.Title = titleStyle
	l.Styles.PaginationStyle = paginationStyle

	return &Model{list: l}
}

func toItems(segs []segment.Segment) []list.Item {
	items := make([]list.Item, len(segs))
	for i, s := range segs {
		items[i] = segmentItem{segment: s}
	}
	return items
}

// SetSegments обновляет данные модели без пересоздания
func (m *Model) SetSegments(segs []segment.Segment) {
	m.list.SetItems(toItems(segs))
}

// Len возвращает количество отрезков в списке
func (m *Model) Len() int {
	return len(m.list.Items())
}

// Selected возвращает выбранный отрезок
func (m *Model) Selected() (segment.Segment, bool) {
	item, ok := m.list.SelectedItem().(segmentItem)
	if !ok {
		return segment.Segment{}, false
	}
	return item.segment, true
}

// Update обрабатывает сообщения и обновляет модель
func (m *Model) Update(msg tea.Msg) (*Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.list.SetWidth(msg.Width)
		m.list.SetHeight(max(4, msg.Height/3))
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "enter":
			if s, ok := m.Selected(); ok {
				return m, func() tea.Msg {
					return ApplyMsg{Segment: s}
				}
			}
			return m, nil

		case "x":
			if s, ok := m.Selected(); ok {
				return m, func() tea.Msg {
					return RemoveMsg{Segment: s}
				}
			}
			return m, nil
		}
	}

	// Обновляем список
	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// View отображает модель
func (m *Model) View() string {
	if m.Len() == 0 {
		return titleStyle.Render("Отрезки") + "\n\n" + emptyStyle.Render("Нет сохраненных отрезков. Задайте A и B и нажмите n.")
	}
	return m.list.View()
}
