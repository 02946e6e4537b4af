package session

import (
	"encoding/json"
	"time"

	"github.com/hazadus/go-abloop/internal/loop"
	"github.com/hazadus/go-abloop/internal/segment"
)

// Event - уведомление ядра для слоя представления
type Event interface {
	EventType() string
}

// PositionChanged - новая позиция воспроизведения
type PositionChanged struct{ Position time.Duration }

// DurationKnown - длительность открытого файла
type DurationKnown struct{ Duration time.Duration }

// LoopStateChanged - новое состояние цикла
type LoopStateChanged struct{ State loop.State }

// StatusMessage - текст для строки состояния
type StatusMessage struct{ Text string }

// ErrorOccurred - ошибка, показанная пользователю; сессия продолжает работу
type ErrorOccurred struct {
	Kind ErrorKind
	Text string
}

// SegmentsChanged - новый список отрезков текущего файла
type SegmentsChanged struct{ Segments []segment.Segment }

// PlaybackChanged - изменились воспроизведение или громкость
type PlaybackChanged struct {
	Playing bool
	Volume  int
}

// FileOpened - открыт новый файл
type FileOpened struct {
	Path string
	Key  string
}

func (PositionChanged) EventType() string { return "position_changed" }
func (DurationKnown) EventType() string { return "duration_known" }
func (LoopStateChanged) EventType() string { return "loop_state_changed" }
func (StatusMessage) EventType() string { return "status_message" }
func (ErrorOccurred) EventType() string { return "error" }
func (SegmentsChanged) EventType() string { return "segments_changed" }
func (PlaybackChanged) EventType() string { return "playback_changed" }
func (FileOpened) EventType() string { return "file_opened" }

// SegmentView - JSON представление отрезка
type SegmentView struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	StartMs int64  `json:"start_ms"`
	EndMs   int64  `json:"end_ms"`
}

// Views преобразует отрезки для JSON
func Views(segments []segment.Segment) []SegmentView {
	views := make([]SegmentView, 0, len(segments))
	for _, s := range segments {
		views = append(views, SegmentView{
			ID:      s.ID,
			Name:    s.Name,
			StartMs: s.Start.Milliseconds(),
			EndMs:   s.End.Milliseconds(),
		})
	}
	return views
}

// eventWire - JSON представление события
type eventWire struct {
	Type       string         `json:"type"`
	PositionMs *int64         `json:"position_ms,omitempty"`
	DurationMs *int64         `json:"duration_ms,omitempty"`
	Loop       *loop.State    `json:"loop,omitempty"`
	Text       string         `json:"text,omitempty"`
	Kind       ErrorKind      `json:"kind,omitempty"`
	Segments   *[]SegmentView `json:"segments,omitempty"`
	Playing    *bool          `json:"playing,omitempty"`
	Volume     *int           `json:"volume,omitempty"`
	Path       string         `json:"path,omitempty"`
	Key        string         `json:"key,omitempty"`
}

// EncodeEvent сериализует событие в JSON вида {"type": ..., ...}
func EncodeEvent(event Event) ([]byte, error) {
	w := eventWire{Type: event.EventType()}
	switch e := event.(type) {
	case PositionChanged:
		w.PositionMs = msPtr(e.Position)
	case DurationKnown:
		w.DurationMs = msPtr(e.Duration)
	case LoopStateChanged:
		w.Loop = &e.State
	case StatusMessage:
		w.Text = e.Text
	case ErrorOccurred:
		w.Kind = e.Kind
		w.Text = e.Text
	case SegmentsChanged:
		views := Views(e.Segments)
		w.Segments = &views
	case PlaybackChanged:
		w.Playing = &e.Playing
		w.Volume = &e.Volume
	case FileOpened:
		w.Path = e.Path
		w.Key = e.Key
	}
	return json.Marshal(w)
}
