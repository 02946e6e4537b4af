package player

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/hazadus/go-abloop/internal/loop"
	"github.com/hazadus/go-abloop/internal/metadata"
	"github.com/hazadus/go-abloop/internal/session"
)

type fakeController struct {
	intents  []session.Intent
	snapshot session.Snapshot
	ticks    int
	err      error
}

func (f *fakeController) Dispatch(intent session.Intent) error {
	f.intents = append(f.intents, intent)
	return f.err
}

func (f *fakeController) Snapshot() session.Snapshot { return f.snapshot }

func (f *fakeController) Tick() { f.ticks++ }

func runeKey(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func newTestModel() (*Model, *fakeController) {
	ctrl := &fakeController{snapshot: session.Snapshot{
		Volume:   50,
		Position: 30 * time.Second,
		Duration: 2 * time.Minute,
	}}
	track := metadata.TrackMetadata{Artist: "Test Artist", Title: "Test Title", Album: "Test Album"}
	return NewModel(ctrl, track, 100*time.Millisecond), ctrl
}

func TestNewModel(t *testing.T) {
	model, _ := newTestModel()

	if model == nil {
		t.Fatal("NewModel returned nil")
	}

	if model.snapshot.Volume != 50 {
		t.Errorf("Ожидалась громкость 50 из снимка, получено %d", model.snapshot.Volume)
	}

	if model.interval != 100*time.Millisecond {
		t.Errorf("Ожидался интервал 100ms, получено %v", model.interval)
	}

	// Нулевой интервал заменяется значением по умолчанию
	other := NewModel(&fakeController{}, metadata.TrackMetadata{}, 0)
	if other.interval <= 0 {
		t.Error("Интервал по умолчанию должен быть положительным")
	}
}

func TestKeyDispatch(t *testing.T) {
	tests := []struct {
		name string
		msg  tea.KeyMsg
		want session.Intent
	}{
		{"пробел", runeKey(' '), session.TogglePlay{}},
		{"стоп", runeKey('s'), session.Stop{}},
		{"назад", tea.KeyMsg{Type: tea.KeyLeft}, session.SeekBy{Delta: -SeekStep}},
		{"вперед", tea.KeyMsg{Type: tea.KeyRight}, session.SeekBy{Delta: SeekStep}},
		{"громче", runeKey('+'), session.SetVolume{Volume: 55}},
		{"тише", runeKey('-'), session.SetVolume{Volume: 45}},
		{"точка A", runeKey('a'), session.SetPointA{}},
		{"точка B", runeKey('b'), session.SetPointB{}},
		{"сброс", runeKey('c'), session.ClearLoop{}},
		{"цикл", runeKey('l'), session.ToggleLoop{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			model, ctrl := newTestModel()
			model.Update(tt.msg)

			if len(ctrl.intents) != 1 {
				t.Fatalf("Ожидалась одна команда, получено %d", len(ctrl.intents))
			}
			if ctrl.intents[0] != tt.want {
				t.Errorf("Ожидалась команда %#v, получено %#v", tt.want, ctrl.intents[0])
			}
		})
	}
}

func TestSaveKeyRequestsName(t *testing.T) {
	model, ctrl := newTestModel()

	_, cmd := model.Update(runeKey('n'))
	if cmd == nil {
		t.Fatal("Ожидалась команда для клавиши 'n'")
	}
	if _, ok := cmd().(RequestSegmentNameMsg); !ok {
		t.Error("Ожидалось сообщение RequestSegmentNameMsg")
	}
	if len(ctrl.intents) != 0 {
		t.Error("Клавиша 'n' не должна сразу отправлять команду")
	}
}

func TestQuitKey(t *testing.T) {
	model, _ := newTestModel()

	_, cmd := model.Update(runeKey('q'))
	if cmd == nil {
		t.Fatal("Ожидалась команда для клавиши 'q'")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("Ожидалось сообщение tea.QuitMsg")
	}
}

func TestRejectedIntentShowsError(t *testing.T) {
	model, ctrl := newTestModel()
	ctrl.err = errors.New("точка A не задана")

	model.Update(runeKey('l'))
	if !strings.Contains(model.View(), "точка A не задана") {
		t.Error("Ошибка должна отображаться на экране")
	}

	// Успешная команда убирает ошибку
	ctrl.err = nil
	model.Update(runeKey('c'))
	if strings.Contains(model.View(), "точка A не задана") {
		t.Error("Ошибка должна исчезнуть после успешной команды")
	}
}

func TestTickPollsSession(t *testing.T) {
	model, ctrl := newTestModel()

	ctrl.snapshot.Position = 45 * time.Second
	_, cmd := model.Update(TickMsg(time.Now()))

	if ctrl.ticks != 1 {
		t.Errorf("Ожидался один вызов Tick, получено %d", ctrl.ticks)
	}
	if cmd == nil {
		t.Error("Такт должен планировать следующий такт")
	}
	if model.snapshot.Position != 45*time.Second {
		t.Errorf("Позиция не обновилась: %v", model.snapshot.Position)
	}
}

func TestHandleEvent(t *testing.T) {
	model, _ := newTestModel()

	model.HandleEvent(session.StatusMessage{Text: "💾 Отрезок сохранен"})
	if !strings.Contains(model.View(), "Отрезок сохранен") {
		t.Error("Сообщение сессии должно отображаться")
	}

	model.HandleEvent(session.ErrorOccurred{Kind: session.KindFileNotFound, Text: "файл не найден"})
	view := model.View()
	if !strings.Contains(view, "файл не найден") {
		t.Error("Ошибка сессии должна отображаться")
	}
	if strings.Contains(view, "Отрезок сохранен") {
		t.Error("Ошибка должна заменять сообщение")
	}
}

func TestUpdateWindowSize(t *testing.T) {
	model, _ := newTestModel()

	// Тестируем обновление размера окна
	msg := tea.WindowSizeMsg{Width: 100, Height: 40}
	updatedModel, _ := model.Update(msg)

	// Приводим к нужному типу
	playerModel := updatedModel.(*Model)

	if playerModel.width != 100 {
		t.Errorf("Expected width 100, got %d", playerModel.width)
	}

	if playerModel.height != 40 {
		t.Errorf("Expected height 40, got %d", playerModel.height)
	}
}

func TestFormatStatus(t *testing.T) {
	if formatStatus(true) != "Воспроизведение" {
		t.Error("Expected 'Воспроизведение' for playing status")
	}

	if formatStatus(false) != "Пауза" {
		t.Error("Expected 'Пауза' for paused status")
	}
}

func TestFormatLoop(t *testing.T) {
	tests := []struct {
		state    loop.State
		expected string
	}{
		{loop.State{}, "A --:--.---  B --:--.---  цикл: не задан"},
		{loop.State{A: loop.At(1500 * time.Millisecond)}, "A 00:01.500  B --:--.---  цикл: ожидает точку B"},
		{loop.State{A: loop.At(time.Second), B: loop.At(2 * time.Second)}, "A 00:01.000  B 00:02.000  цикл: готов"},
		{loop.State{A: loop.At(time.Second), B: loop.At(2 * time.Second), Enabled: true}, "A 00:01.000  B 00:02.000  цикл: 🔁 активен"},
	}

	for _, test := range tests {
		result := formatLoop(test.state)
		if result != test.expected {
			t.Errorf("formatLoop(%+v) = %q, expected %q", test.state, result, test.expected)
		}
	}
}
