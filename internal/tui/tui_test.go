package tui

import (
	"testing"

	"github.com/hazadus/go-abloop/internal/metadata"
	"github.com/hazadus/go-abloop/internal/session"
)

type fakeSession struct {
	subscribers  []func(session.Event)
	unsubscribed bool
}

func (f *fakeSession) Dispatch(session.Intent) error { return nil }
func (f *fakeSession) Snapshot() session.Snapshot   { return session.Snapshot{} }
func (f *fakeSession) Tick()                        {}

func (f *fakeSession) Subscribe(fn func(session.Event)) func() {
	f.subscribers = append(f.subscribers, fn)
	return func() { f.unsubscribed = true }
}

func TestSubscribeForwardsEvents(t *testing.T) {
	sess := &fakeSession{}
	events, unsubscribe := subscribe(sess)

	if len(sess.subscribers) != 1 {
		t.Fatalf("Ожидалась одна подписка, получено %d", len(sess.subscribers))
	}

	sess.subscribers[0](session.StatusMessage{Text: "привет"})
	got := <-events
	if got != (session.StatusMessage{Text: "привет"}) {
		t.Errorf("Получено неожиданное событие: %#v", got)
	}

	unsubscribe()
	if !sess.unsubscribed {
		t.Error("Отписка должна передаваться сессии")
	}
}

func TestSubscribeDropsWhenFull(t *testing.T) {
	sess := &fakeSession{}
	events, _ := subscribe(sess)

	// Переполнение буфера не блокирует отправителя
	for i := 0; i < eventBuffer+10; i++ {
		sess.subscribers[0](session.PositionChanged{})
	}
	if len(events) != eventBuffer {
		t.Errorf("Ожидалось %d событий в буфере, получено %d", eventBuffer, len(events))
	}
}

func TestNewApp(t *testing.T) {
	app := NewApp(&fakeSession{}, metadata.TrackMetadata{Title: "Test Track"}, 0)
	if app == nil || app.session == nil {
		t.Fatal("NewApp должен сохранять сессию")
	}
}
