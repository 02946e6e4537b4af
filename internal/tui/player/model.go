// Package player содержит модель экрана воспроизведения для TUI
package player

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/hazadus/go-abloop/internal/loop"
	"github.com/hazadus/go-abloop/internal/metadata"
	"github.com/hazadus/go-abloop/internal/session"
	"github.com/hazadus/go-abloop/internal/utils"
)

// Шаг перемотки и громкости
const (
	SeekStep   = 5 * time.Second
	VolumeStep = 5
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#0000ff")).
			MarginBottom(1)

	trackInfoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			MarginBottom(1)

	statusStyle = lipgloss.NewStyle().
			Bold(true).
			MarginTop(1)

	loopStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("170"))

	messageStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00aa00"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#ff0000")).
			Bold(true)
)

// Controller - то, что экрану нужно от сессии
type Controller interface {
	Dispatch(intent session.Intent) error
	Snapshot() session.Snapshot
	Tick()
}

// RequestSegmentNameMsg просит открыть ввод имени нового отрезка
type RequestSegmentNameMsg struct{}

// TickMsg - очередной такт опроса позиции
type TickMsg time.Time

type keyMap struct {
	Toggle   key.Binding
	Stop     key.Binding
	Back     key.Binding
	Forward  key.Binding
	VolUp    key.Binding
	VolDown  key.Binding
	PointA   key.Binding
	PointB   key.Binding
	Clear    key.Binding
	Loop     key.Binding
	Save     key.Binding
	Segments key.Binding
	Quit     key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Toggle, k.PointA, k.PointB, k.Loop, k.Save, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Toggle, k.Stop, k.Back, k.Forward, k.VolUp, k.VolDown},
		{k.PointA, k.PointB, k.Clear, k.Loop},
		{k.Save, k.Segments, k.Quit},
	}
}

var keys = keyMap{
	Toggle:   key.NewBinding(key.WithKeys(" ", "space"), key.WithHelp("пробел", "пауза/воспроизведение")),
	Stop:     key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "стоп")),
	Back:     key.NewBinding(key.WithKeys("left"), key.WithHelp("←", "-5с")),
	Forward:  key.NewBinding(key.WithKeys("right"), key.WithHelp("→", "+5с")),
	VolUp:    key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "громче")),
	VolDown:  key.NewBinding(key.WithKeys("-"), key.WithHelp("-", "тише")),
	PointA:   key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "точка A")),
	PointB:   key.NewBinding(key.WithKeys("b"), key.WithHelp("b", "точка B")),
	Clear:    key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "сбросить цикл")),
	Loop:     key.NewBinding(key.WithKeys("l"), key.WithHelp("l", "цикл вкл/выкл")),
	Save:     key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "сохранить отрезок")),
	Segments: key.NewBinding(key.WithKeys("up", "down", "enter", "x"), key.WithHelp("↑/↓ enter x", "отрезки")),
	Quit:     key.NewBinding(key.WithKeys("q"), key.WithHelp("q", "выход")),
}

// Model представляет модель экрана воспроизведения
type Model struct {
	ctrl        Controller
	track       metadata.TrackMetadata
	interval    time.Duration
	progressBar progress.Model
	help        help.Model
	snapshot    session.Snapshot
	message     string
	err         string
	width       int
	height      int
}

// NewModel создает новую модель плеера
func NewModel(ctrl Controller, track metadata.TrackMetadata, interval time.Duration) *Model {
	// Создаем прогресс-бар
	prog := progress.New(progress.WithDefaultGradient())
	prog.Width = 40

	if interval <= 0 {
		interval = 100 * time.Millisecond
	}

	return &Model{
		ctrl:        ctrl,
		track:       track,
		interval:    interval,
		progressBar: prog,
		help:        help.New(),
		snapshot:    ctrl.Snapshot(),
	}
}

// Init запускает опрос позиции
func (m *Model) Init() tea.Cmd {
	return m.tick()
}

func (m *Model) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

// Update обрабатывает сообщения и обновляет модель
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		// Обновляем ширину прогресс-бара
		m.progressBar.Width = min(60, msg.Width-10)
		m.help.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		return m, m.handleKey(msg)

	case TickMsg:
		m.ctrl.Tick()
		return m, tea.Batch(m.refresh(), m.tick())

	case progress.FrameMsg:
		// Обновляем прогресс-бар
		progressModel, cmd := m.progressBar.Update(msg)
		m.progressBar = progressModel.(progress.Model)
		return m, cmd
	}

	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, keys.Quit):
		return tea.Quit
	case key.Matches(msg, keys.Toggle):
		m.dispatch(session.TogglePlay{})
	case key.Matches(msg, keys.Stop):
		m.dispatch(session.Stop{})
	case key.Matches(msg, keys.Back):
		m.dispatch(session.SeekBy{Delta: -SeekStep})
	case key.Matches(msg, keys.Forward):
		m.dispatch(session.SeekBy{Delta: SeekStep})
	case key.Matches(msg, keys.VolUp):
		m.dispatch(session.SetVolume{Volume: m.snapshot.Volume + VolumeStep})
	case key.Matches(msg, keys.VolDown):
		m.dispatch(session.SetVolume{Volume: m.snapshot.Volume - VolumeStep})
	case key.Matches(msg, keys.PointA):
		m.dispatch(session.SetPointA{})
	case key.Matches(msg, keys.PointB):
		m.dispatch(session.SetPointB{})
	case key.Matches(msg, keys.Clear):
		m.dispatch(session.ClearLoop{})
	case key.Matches(msg, keys.Loop):
		m.dispatch(session.ToggleLoop{})
	case key.Matches(msg, keys.Save):
		return func() tea.Msg { return RequestSegmentNameMsg{} }
	case msg.String() == "?":
		m.help.ShowAll = !m.help.ShowAll
		return nil
	default:
		return nil
	}
	return m.refresh()
}

// Dispatch передает команду сессии и показывает ошибку, если она отклонена
func (m *Model) Dispatch(intent session.Intent) tea.Cmd {
	m.dispatch(intent)
	return m.refresh()
}

func (m *Model) dispatch(intent session.Intent) {
	if err := m.ctrl.Dispatch(intent); err != nil {
		m.err = err.Error()
		m.message = ""
		return
	}
	m.err = ""
}

// HandleEvent показывает сообщения сессии
func (m *Model) HandleEvent(event session.Event) tea.Cmd {
	switch e := event.(type) {
	case session.StatusMessage:
		m.message = e.Text
	case session.ErrorOccurred:
		m.err = e.Text
		m.message = ""
	case session.FileOpened:
		m.err = ""
	}
	return m.refresh()
}

// refresh перечитывает состояние сессии и обновляет прогресс-бар
func (m *Model) refresh() tea.Cmd {
	m.snapshot = m.ctrl.Snapshot()

	var percent float64
	if m.snapshot.Duration > 0 {
		percent = float64(m.snapshot.Position) / float64(m.snapshot.Duration)
	}
	return m.progressBar.SetPercent(percent)
}

// View отображает модель
func (m *Model) View() string {
	// Заголовок
	title := titleStyle.Render("🎵 A-B практика")

	// Информация о треке
	trackInfo := trackInfoStyle.Render(fmt.Sprintf(
		"🎤 %s\n🎵 %s\n💿 %s",
		m.track.Artist,
		m.track.Title,
		m.track.Album,
	))

	// Статус воспроизведения
	var statusIcon string
	if m.snapshot.Playing {
		statusIcon = "▶️"
	} else {
		statusIcon = "⏸️"
	}
	statusText := statusStyle.Render(fmt.Sprintf("%s %s  🔊 %d%%",
		statusIcon, formatStatus(m.snapshot.Playing), m.snapshot.Volume))

	// Время
	timeText := fmt.Sprintf(
		"%s / %s",
		utils.FormatPrecise(m.snapshot.Position),
		utils.FormatDuration(m.snapshot.Duration),
	)

	var b strings.Builder
	b.WriteString(title + "\n\n")
	b.WriteString(trackInfo + "\n\n")
	b.WriteString(statusText + "\n\n")
	b.WriteString(m.progressBar.View() + "\n")
	b.WriteString(timeText + "\n\n")
	b.WriteString(loopStyle.Render(formatLoop(m.snapshot.Loop)) + "\n")

	switch {
	case m.err != "":
		b.WriteString("\n" + errorStyle.Render("❌ "+m.err) + "\n")
	case m.message != "":
		b.WriteString("\n" + messageStyle.Render(m.message) + "\n")
	}

	b.WriteString("\n" + m.help.View(keys))
	return b.String()
}

// Вспомогательные функции

func formatStatus(isPlaying bool) string {
	if isPlaying {
		return "Воспроизведение"
	}
	return "Пауза"
}

func formatPoint(p loop.Point) string {
	if !p.Set {
		return "--:--.---"
	}
	return utils.FormatPrecise(p.At)
}

// formatLoop описывает цикл одной строкой: точки и фаза
func formatLoop(state loop.State) string {
	var phase string
	switch state.Phase() {
	case loop.Idle:
		phase = "не задан"
	case loop.ArmedIncomplete:
		phase = "ожидает точку B"
	case loop.Ready:
		phase = "готов"
	case loop.Active:
		phase = "🔁 активен"
	}
	return fmt.Sprintf("A %s  B %s  цикл: %s", formatPoint(state.A), formatPoint(state.B), phase)
}
