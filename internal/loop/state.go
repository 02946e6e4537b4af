// Package loop содержит A–B цикл: точки A и B, флаг включения и проверку границы на каждом тике
package loop

import (
	"encoding/json"
	"time"
)

// Phase описывает состояние цикла
type Phase int

const (
	// Idle - ни одна точка не задана
	Idle Phase = iota
	// ArmedIncomplete - задана только одна точка
	ArmedIncomplete
	// Ready - заданы обе точки, цикл выключен
	Ready
	// Active - цикл включен и соблюдается
	Active
)

// String возвращает имя фазы для логов и JSON
func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case ArmedIncomplete:
		return "armed_incomplete"
	case Ready:
		return "ready"
	case Active:
		return "active"
	default:
		return "unknown"
	}
}

// Point - необязательная отметка времени
type Point struct {
	At  time.Duration
	Set bool
}

// At создает заданную точку
func At(d time.Duration) Point {
	return Point{At: d, Set: true}
}

// State - снимок состояния цикла
type State struct {
	A       Point
	B       Point
	Enabled bool
}

// Phase вычисляет фазу по состоянию
func (s State) Phase() Phase {
	switch {
	case s.Enabled:
		return Active
	case s.A.Set && s.B.Set:
		return Ready
	case s.A.Set || s.B.Set:
		return ArmedIncomplete
	default:
		return Idle
	}
}

// Valid проверяет инвариант: включенный цикл требует A < B, заданные точки неотрицательны
func (s State) Valid() bool {
	if s.A.Set && s.A.At < 0 || s.B.Set && s.B.At < 0 {
		return false
	}
	if s.A.Set && s.B.Set && s.A.At >= s.B.At {
		return false
	}
	if s.Enabled && !(s.A.Set && s.B.Set) {
		return false
	}
	return true
}

type stateJSON struct {
	AMillis *int64 `json:"a_ms"`
	BMillis *int64 `json:"b_ms"`
	Enabled bool   `json:"enabled"`
	Phase   string `json:"phase"`
}

// MarshalJSON удовлетворяет json.Marshaler; незаданные точки кодируются как null
func (s State) MarshalJSON() ([]byte, error) {
	out := stateJSON{
		Enabled: s.Enabled,
		Phase:   s.Phase().String(),
	}
	if s.A.Set {
		ms := s.A.At.Milliseconds()
		out.AMillis = &ms
	}
	if s.B.Set {
		ms := s.B.At.Milliseconds()
		out.BMillis = &ms
	}
	return json.Marshal(out)
}

// UnmarshalJSON удовлетворяет json.Unmarshaler
func (s *State) UnmarshalJSON(data []byte) error {
	var in stateJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*s = State{Enabled: in.Enabled}
	if in.AMillis != nil {
		s.A = At(time.Duration(*in.AMillis) * time.Millisecond)
	}
	if in.BMillis != nil {
		s.B = At(time.Duration(*in.BMillis) * time.Millisecond)
	}
	return nil
}
