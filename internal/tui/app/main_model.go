// Package app содержит основную логику TUI приложения
package app

import (
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/hazadus/go-abloop/internal/metadata"
	"github.com/hazadus/go-abloop/internal/session"
	"github.com/hazadus/go-abloop/internal/tui/editor"
	tuiPlayer "github.com/hazadus/go-abloop/internal/tui/player"
	"github.com/hazadus/go-abloop/internal/tui/segments"
)

// ScreenType определяет тип текущего экрана
type ScreenType int

// Константы для типов экранов
const (
	// PlayerScreen - экран плеера со списком отрезков
	PlayerScreen ScreenType = iota
	// EditorScreen - ввод имени отрезка
	EditorScreen
)

// EventMsg доставляет событие сессии в цикл bubbletea
type EventMsg struct {
	Event session.Event
}

// MainModel представляет главную модель TUI
type MainModel struct {
	ctrl          tuiPlayer.Controller
	events        <-chan session.Event
	currentScreen ScreenType
	playerModel   *tuiPlayer.Model
	segmentsModel *segments.Model
	editorModel   *editor.Model
}

// NewMainModel создает новую главную модель
func NewMainModel(ctrl tuiPlayer.Controller, events <-chan session.Event, track metadata.TrackMetadata, interval time.Duration) *MainModel {
	return &MainModel{
		ctrl:          ctrl,
		events:        events,
		currentScreen: PlayerScreen,
		playerModel:   tuiPlayer.NewModel(ctrl, track, interval),
		segmentsModel: segments.NewModel(ctrl.Snapshot().SegmentList),
	}
}

// Init инициализирует модель
func (m *MainModel) Init() tea.Cmd {
	return tea.Batch(m.playerModel.Init(), m.listen())
}

// listen ждет следующее событие сессии
func (m *MainModel) listen() tea.Cmd {
	if m.events == nil {
		return nil
	}
	return func() tea.Msg {
		event, ok := <-m.events
		if !ok {
			return nil
		}
		return EventMsg{Event: event}
	}
}

// Update обрабатывает сообщения
func (m *MainModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		// Глобальные горячие клавиши
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		if m.currentScreen == EditorScreen {
			var cmd tea.Cmd
			m.editorModel, cmd = m.editorModel.Update(msg)
			return m, cmd
		}
		switch msg.String() {
		case "up", "down", "enter", "x", "pgup", "pgdown":
			var cmd tea.Cmd
			m.segmentsModel, cmd = m.segmentsModel.Update(msg)
			return m, cmd
		}
		return m.updatePlayer(msg)

	case EventMsg:
		if changed, ok := msg.Event.(session.SegmentsChanged); ok {
			m.segmentsModel.SetSegments(changed.Segments)
		}
		return m, tea.Batch(m.playerModel.HandleEvent(msg.Event), m.listen())

	case tuiPlayer.RequestSegmentNameMsg:
		// Переключаемся на ввод имени отрезка
		m.currentScreen = EditorScreen
		m.editorModel = editor.NewModel(m.ctrl.Snapshot().Loop)
		return m, m.editorModel.Init()

	case editor.NameEnteredMsg:
		m.currentScreen = PlayerScreen
		m.editorModel = nil
		return m, m.playerModel.Dispatch(session.SaveSegment{Name: msg.Name})

	case editor.GoBackMsg:
		m.currentScreen = PlayerScreen
		m.editorModel = nil
		return m, nil

	case segments.ApplyMsg:
		return m, m.playerModel.Dispatch(session.ApplySegment{ID: msg.Segment.ID})

	case segments.RemoveMsg:
		return m, m.playerModel.Dispatch(session.RemoveSegment{ID: msg.Segment.ID})

	case tea.WindowSizeMsg:
		// Размеры окна нужны всем моделям
		var cmds []tea.Cmd
		_, cmd := m.playerModel.Update(msg)
		cmds = append(cmds, cmd)
		m.segmentsModel, cmd = m.segmentsModel.Update(msg)
		cmds = append(cmds, cmd)
		if m.editorModel != nil {
			m.editorModel, cmd = m.editorModel.Update(msg)
			cmds = append(cmds, cmd)
		}
		return m, tea.Batch(cmds...)
	}

	if m.currentScreen == EditorScreen && m.editorModel != nil {
		switch msg.(type) {
		case tuiPlayer.TickMsg, progress.FrameMsg:
		default:
			var cmd tea.Cmd
			m.editorModel, cmd = m.editorModel.Update(msg)
			return m, cmd
		}
	}

	// Такты и кадры прогресс-бара идут плееру на любом экране
	return m.updatePlayer(msg)
}

func (m *MainModel) updatePlayer(msg tea.Msg) (tea.Model, tea.Cmd) {
	updatedModel, cmd := m.playerModel.Update(msg)
	if playerModel, ok := updatedModel.(*tuiPlayer.Model); ok {
		m.playerModel = playerModel
	}
	return m, cmd
}

// View отображает интерфейс
func (m *MainModel) View() string {
	switch m.currentScreen {
	case PlayerScreen:
		return m.playerModel.View() + "\n\n" + m.segmentsModel.View()

	case EditorScreen:
		if m.editorModel != nil {
			return m.editorModel.View()
		}
		return "Ошибка: модель редактора не инициализирована"

	default:
		return "Неизвестный экран"
	}
}
