// Package segment содержит модель A–B отрезка и менеджер отрезков текущего файла
package segment

import (
	"errors"
	"fmt"
	"time"

	"github.com/hazadus/go-abloop/internal/utils"
)

var (
	// ErrInvalidRange возвращается для отрезков с отрицательным началом или end <= start
	ErrInvalidRange = errors.New("неверный диапазон отрезка")
	// ErrDuplicate возвращается при добавлении отрезка, совпадающего по имени и границам с существующим
	ErrDuplicate = errors.New("такой отрезок уже существует")
	// ErrNotFound возвращается, когда отрезок с указанным ID отсутствует
	ErrNotFound = errors.New("отрезок не найден")
)

// Segment представляет именованный A–B отрезок внутри аудиофайла
type Segment struct {
	ID    string        // Идентификатор, назначается менеджером
	Name  string        // Название, например "Куплет 1"
	Start time.Duration // Начало отрезка
	End   time.Duration // Конец отрезка
}

// New создает отрезок и проверяет его границы.
// Границы хранятся с точностью до миллисекунды, как и в сохраненной библиотеке.
func New(name string, start, end time.Duration) (Segment, error) {
	s := Segment{Name: name, Start: utils.ToMillis(start), End: utils.ToMillis(end)}
	if err := s.Validate(); err != nil {
		return Segment{}, err
	}
	return s, nil
}

// Validate проверяет инвариант start >= 0 && end > start
func (s Segment) Validate() error {
	return ValidateRange(s.Start, s.End)
}

// ValidateRange проверяет границы диапазона
func ValidateRange(start, end time.Duration) error {
	if start < 0 {
		return fmt.Errorf("%w: начало %v меньше нуля", ErrInvalidRange, start)
	}
	if end <= start {
		return fmt.Errorf("%w: конец %v должен быть больше начала %v", ErrInvalidRange, end, start)
	}
	return nil
}

// Duration возвращает длительность отрезка
func (s Segment) Duration() time.Duration {
	if s.End < s.Start {
		return 0
	}
	return s.End - s.Start
}

// Contains сообщает, попадает ли позиция внутрь отрезка [Start, End)
func (s Segment) Contains(pos time.Duration) bool {
	return pos >= s.Start && pos < s.End
}

// sameAs сравнивает отрезки по имени и границам, без учета ID
func (s Segment) sameAs(other Segment) bool {
	return s.Name == other.Name && s.Start == other.Start && s.End == other.End
}
