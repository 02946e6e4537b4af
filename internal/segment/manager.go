package segment

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/hazadus/go-abloop/internal/utils"
)

// Manager управляет отрезками одного аудиофайла в порядке добавления
type Manager struct {
	segments []Segment
	created  int // Счетчик для имен по умолчанию
}

// NewManager создает пустой менеджер отрезков
func NewManager() *Manager {
	return &Manager{
		segments: make([]Segment, 0),
	}
}

// Add добавляет отрезок и возвращает его ID
func (m *Manager) Add(s Segment) (string, error) {
	s.Start, s.End = utils.ToMillis(s.Start), utils.ToMillis(s.End)
	if err := s.Validate(); err != nil {
		return "", err
	}

	m.created++
	if s.Name == "" {
		s.Name = fmt.Sprintf("Segment %d", m.created)
	}

	if lo.ContainsBy(m.segments, s.sameAs) {
		return "", fmt.Errorf("%w: %q %v-%v", ErrDuplicate, s.Name, s.Start, s.End)
	}

	// Сохраненные ID переиспользуем, если они не конфликтуют
	if s.ID == "" || m.indexOf(s.ID) >= 0 {
		s.ID = uuid.NewString()
	}

	m.segments = append(m.segments, s)
	return s.ID, nil
}

// Remove удаляет отрезок по ID; отсутствующий ID игнорируется
func (m *Manager) Remove(id string) {
	m.segments = lo.Reject(m.segments, func(s Segment, _ int) bool {
		return s.ID == id
	})
}

// Get возвращает отрезок по ID
func (m *Manager) Get(id string) (Segment, bool) {
	return lo.Find(m.segments, func(s Segment) bool {
		return s.ID == id
	})
}

// FindByName возвращает первый отрезок с указанным именем
func (m *Manager) FindByName(name string) (Segment, bool) {
	return lo.Find(m.segments, func(s Segment) bool {
		return s.Name == name
	})
}

// Rename меняет имя отрезка
func (m *Manager) Rename(id, name string) error {
	i := m.indexOf(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	renamed := m.segments[i]
	renamed.Name = name
	if m.conflicts(renamed, i) {
		return fmt.Errorf("%w: %q", ErrDuplicate, name)
	}
	m.segments[i] = renamed
	return nil
}

// Update меняет границы отрезка с той же проверкой, что и при создании
func (m *Manager) Update(id string, start, end time.Duration) error {
	i := m.indexOf(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	start, end = utils.ToMillis(start), utils.ToMillis(end)
	if err := ValidateRange(start, end); err != nil {
		return err
	}

	updated := m.segments[i]
	updated.Start, updated.End = start, end
	if m.conflicts(updated, i) {
		return fmt.Errorf("%w: %q %v-%v", ErrDuplicate, updated.Name, start, end)
	}
	m.segments[i] = updated
	return nil
}

// List возвращает копию списка отрезков в порядке добавления
func (m *Manager) List() []Segment {
	out := make([]Segment, len(m.segments))
	copy(out, m.segments)
	return out
}

// Len возвращает количество отрезков
func (m *Manager) Len() int {
	return len(m.segments)
}

// Clear удаляет все отрезки
func (m *Manager) Clear() {
	m.segments = make([]Segment, 0)
	m.created = 0
}

// Replace заменяет содержимое менеджера; некорректные и повторяющиеся отрезки
// пропускаются и возвращаются вместе с причиной
func (m *Manager) Replace(segments []Segment) []error {
	m.Clear()

	var rejected []error
	for _, s := range segments {
		if _, err := m.Add(s); err != nil {
			rejected = append(rejected, fmt.Errorf("отрезок %q пропущен: %w", s.Name, err))
		}
	}
	return rejected
}

func (m *Manager) indexOf(id string) int {
	_, i, ok := lo.FindIndexOf(m.segments, func(s Segment) bool {
		return s.ID == id
	})
	if !ok {
		return -1
	}
	return i
}

// conflicts проверяет дубликаты, исключая позицию skip
func (m *Manager) conflicts(s Segment, skip int) bool {
	for i, existing := range m.segments {
		if i != skip && existing.sameAs(s) {
			return true
		}
	}
	return false
}
