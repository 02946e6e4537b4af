// Package tui содержит компоненты для текстового пользовательского интерфейса
package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/hazadus/go-abloop/internal/metadata"
	"github.com/hazadus/go-abloop/internal/session"
	"github.com/hazadus/go-abloop/internal/tui/app"
	tuiPlayer "github.com/hazadus/go-abloop/internal/tui/player"
)

// eventBuffer - сколько событий ждут отрисовки; лишние отбрасываются, состояние догоняет следующий такт
const eventBuffer = 64

// Session - сессия, которой управляет интерфейс
type Session interface {
	tuiPlayer.Controller
	Subscribe(fn func(session.Event)) (unsubscribe func())
}

// App представляет основное TUI приложение
type App struct {
	session  Session
	track    metadata.TrackMetadata
	interval time.Duration
}

// NewApp создает новый экземпляр TUI приложения
func NewApp(sess Session, track metadata.TrackMetadata, interval time.Duration) *App {
	return &App{
		session:  sess,
		track:    track,
		interval: interval,
	}
}

// Run запускает TUI приложение и блокируется до выхода
func (tuiApp *App) Run() error {
	events, unsubscribe := subscribe(tuiApp.session)
	defer unsubscribe()

	// Создаем модель для Bubble Tea
	model := app.NewMainModel(tuiApp.session, events, tuiApp.track, tuiApp.interval)

	// Создаем программу Bubble Tea
	p := tea.NewProgram(model, tea.WithAltScreen())

	// Запускаем программу
	_, err := p.Run()
	return err
}

// subscribe переносит события сессии в канал без блокировки отправителя
func subscribe(sess Session) (<-chan session.Event, func()) {
	events := make(chan session.Event, eventBuffer)
	unsubscribe := sess.Subscribe(func(event session.Event) {
		select {
		case events <- event:
		default:
		}
	})
	return events, unsubscribe
}
