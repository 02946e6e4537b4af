package session

import (
	"encoding/json"
	"fmt"
	"time"
)

// Intent - команда слоя представления к ядру
type Intent interface {
	IntentType() string
}

// OpenFile открывает аудиофайл
type OpenFile struct{ Path string }

// Play запускает воспроизведение
type Play struct{}

// Pause приостанавливает воспроизведение
type Pause struct{}

// TogglePlay переключает паузу
type TogglePlay struct{}

// Stop останавливает воспроизведение и возвращает позицию в начало
type Stop struct{}

// SeekTo переходит к абсолютной позиции
type SeekTo struct{ Position time.Duration }

// SeekBy сдвигает позицию
type SeekBy struct{ Delta time.Duration }

// SetVolume задает громкость 0..100
type SetVolume struct{ Volume int }

// SetPointA ставит точку A в At или, если At не задан, в текущую позицию
type SetPointA struct{ At *time.Duration }

// SetPointB ставит точку B в At или, если At не задан, в текущую позицию
type SetPointB struct{ At *time.Duration }

// ClearLoop сбрасывает обе точки
type ClearLoop struct{}

// ToggleLoop включает или выключает цикл
type ToggleLoop struct{}

// SaveSegment сохраняет текущий диапазон A-B как отрезок
type SaveSegment struct{ Name string }

// ApplySegment переносит отрезок в точки цикла и включает цикл
type ApplySegment struct{ ID string }

// RemoveSegment удаляет отрезок
type RemoveSegment struct{ ID string }

func (OpenFile) IntentType() string { return "open_file" }
func (Play) IntentType() string { return "play" }
func (Pause) IntentType() string { return "pause" }
func (TogglePlay) IntentType() string { return "toggle_play" }
func (Stop) IntentType() string { return "stop" }
func (SeekTo) IntentType() string { return "seek_to" }
func (SeekBy) IntentType() string { return "seek_by" }
func (SetVolume) IntentType() string { return "set_volume" }
func (SetPointA) IntentType() string { return "set_point_a" }
func (SetPointB) IntentType() string { return "set_point_b" }
func (ClearLoop) IntentType() string { return "clear_loop" }
func (ToggleLoop) IntentType() string { return "toggle_loop" }
func (SaveSegment) IntentType() string { return "save_segment" }
func (ApplySegment) IntentType() string { return "apply_segment" }
func (RemoveSegment) IntentType() string { return "remove_segment" }

// intentWire - JSON представление команды
type intentWire struct {
	Type       string `json:"type"`
	Path       string `json:"path,omitempty"`
	PositionMs *int64 `json:"position_ms,omitempty"`
	DeltaMs    *int64 `json:"delta_ms,omitempty"`
	Volume     *int   `json:"volume,omitempty"`
	AtMs       *int64 `json:"at_ms,omitempty"`
	Name       string `json:"name,omitempty"`
	ID         string `json:"id,omitempty"`
}

func msPtr(d time.Duration) *int64 {
	v := d.Milliseconds()
	return &v
}

func fromMs(ms int64) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

// EncodeIntent сериализует команду в JSON
func EncodeIntent(intent Intent) ([]byte, error) {
	w := intentWire{Type: intent.IntentType()}
	switch in := intent.(type) {
	case OpenFile:
		w.Path = in.Path
	case SeekTo:
		w.PositionMs = msPtr(in.Position)
	case SeekBy:
		w.DeltaMs = msPtr(in.Delta)
	case SetVolume:
		w.Volume = &in.Volume
	case SetPointA:
		if in.At != nil {
			w.AtMs = msPtr(*in.At)
		}
	case SetPointB:
		if in.At != nil {
			w.AtMs = msPtr(*in.At)
		}
	case SaveSegment:
		w.Name = in.Name
	case ApplySegment:
		w.ID = in.ID
	case RemoveSegment:
		w.ID = in.ID
	}
	return json.Marshal(w)
}

// DecodeIntent разбирает команду из JSON; ошибки оборачивают ErrInvalidIntent
func DecodeIntent(data []byte) (Intent, error) {
	var w intentWire
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidIntent, err)
	}

	missing := func(field string) error {
		return fmt.Errorf("%w: %s требует поле %s", ErrInvalidIntent, w.Type, field)
	}
	optionalAt := func() *time.Duration {
		if w.AtMs == nil {
			return nil
		}
		at := fromMs(*w.AtMs)
		return &at
	}

	switch w.Type {
	case "open_file":
		if w.Path == "" {
			return nil, missing("path")
		}
		return OpenFile{Path: w.Path}, nil
	case "play":
		return Play{}, nil
	case "pause":
		return Pause{}, nil
	case "toggle_play":
		return TogglePlay{}, nil
	case "stop":
		return Stop{}, nil
	case "seek_to":
		if w.PositionMs == nil {
			return nil, missing("position_ms")
		}
		return SeekTo{Position: fromMs(*w.PositionMs)}, nil
	case "seek_by":
		if w.DeltaMs == nil {
			return nil, missing("delta_ms")
		}
		return SeekBy{Delta: fromMs(*w.DeltaMs)}, nil
	case "set_volume":
		if w.Volume == nil {
			return nil, missing("volume")
		}
		return SetVolume{Volume: *w.Volume}, nil
	case "set_point_a":
		return SetPointA{At: optionalAt()}, nil
	case "set_point_b":
		return SetPointB{At: optionalAt()}, nil
	case "clear_loop":
		return ClearLoop{}, nil
	case "toggle_loop":
		return ToggleLoop{}, nil
	case "save_segment":
		return SaveSegment{Name: w.Name}, nil
	case "apply_segment":
		if w.ID == "" {
			return nil, missing("id")
		}
		return ApplySegment{ID: w.ID}, nil
	case "remove_segment":
		if w.ID == "" {
			return nil, missing("id")
		}
		return RemoveSegment{ID: w.ID}, nil
	case "":
		return nil, fmt.Errorf("%w: не указан тип", ErrInvalidIntent)
	default:
		return nil, fmt.Errorf("%w: неизвестный тип %q", ErrInvalidIntent, w.Type)
	}
}
