package loop

import (
	"errors"
	"fmt"
	"time"

	"github.com/hazadus/go-abloop/internal/utils"
)

var (
	// ErrInvalidLoopRange возвращается, когда новая точка нарушает A < B
	ErrInvalidLoopRange = errors.New("неверный диапазон цикла")
	// ErrLoopPointsIncomplete возвращается при включении цикла без обеих точек
	ErrLoopPointsIncomplete = errors.New("точки A и B не заданы")
)

// Transport - то, что нужно циклу от плеера для корректирующего перехода
type Transport interface {
	Seek(pos time.Duration) error
	Play() error
	IsPlaying() bool
}

// Controller хранит точки A/B и возвращает воспроизведение к A при достижении B.
// Не потокобезопасен: вызывающий код сериализует обращения (см. session).
type Controller struct {
	state     State
	transport Transport
	ticking   bool // Защита от повторного входа в OnTick
}

// NewController создает цикл в состоянии Idle
func NewController(transport Transport) *Controller {
	return &Controller{transport: transport}
}

// State возвращает снимок текущего состояния
func (c *Controller) State() State {
	return c.state
}

// Phase возвращает текущую фазу
func (c *Controller) Phase() Phase {
	return c.state.Phase()
}

// SetPointA задает точку A; если B уже задана и t >= B, состояние не меняется.
// Точки хранятся с точностью до миллисекунды.
func (c *Controller) SetPointA(t time.Duration) error {
	t = utils.ToMillis(t)
	if t < 0 {
		return fmt.Errorf("%w: A=%v меньше нуля", ErrInvalidLoopRange, t)
	}
	if c.state.B.Set && t >= c.state.B.At {
		return fmt.Errorf("%w: A=%v не меньше B=%v", ErrInvalidLoopRange, t, c.state.B.At)
	}
	c.state.A = At(t)
	return nil
}

// SetPointB задает точку B; если A уже задана и t <= A, состояние не меняется
func (c *Controller) SetPointB(t time.Duration) error {
	t = utils.ToMillis(t)
	if t < 0 {
		return fmt.Errorf("%w: B=%v меньше нуля", ErrInvalidLoopRange, t)
	}
	if c.state.A.Set && t <= c.state.A.At {
		return fmt.Errorf("%w: B=%v не больше A=%v", ErrInvalidLoopRange, t, c.state.A.At)
	}
	c.state.B = At(t)
	return nil
}

// Apply задает обе точки сразу (например, из сохраненного отрезка), флаг включения сохраняется
func (c *Controller) Apply(start, end time.Duration) error {
	start, end = utils.ToMillis(start), utils.ToMillis(end)
	if start < 0 || end <= start {
		return fmt.Errorf("%w: %v-%v", ErrInvalidLoopRange, start, end)
	}
	c.state.A = At(start)
	c.state.B = At(end)
	return nil
}

// Clear сбрасывает обе точки и выключает цикл
func (c *Controller) Clear() {
	c.state = State{}
}

// Reset вызывается при открытии нового файла
func (c *Controller) Reset() {
	c.Clear()
}

// SetEnabled включает или выключает цикл; выключение оставляет точки на месте
func (c *Controller) SetEnabled(enabled bool) error {
	if !enabled {
		c.state.Enabled = false
		return nil
	}
	if !c.state.A.Set || !c.state.B.Set {
		return ErrLoopPointsIncomplete
	}
	c.state.Enabled = true
	return nil
}

// Toggle переключает флаг включения
func (c *Controller) Toggle() error {
	return c.SetEnabled(!c.state.Enabled)
}

// OnTick проверяет позицию воспроизведения. При pos >= B выполняется один переход к A
// и, если плеер не играет, возобновление. Нижняя граница не соблюдается: ручной переход
// до A не корректируется.
func (c *Controller) OnTick(pos time.Duration) (bool, error) {
	if !c.state.Enabled || c.ticking {
		return false, nil
	}
	if pos < c.state.B.At {
		return false, nil
	}

	c.ticking = true
	defer func() { c.ticking = false }()

	if err := c.transport.Seek(c.state.A.At); err != nil {
		return false, fmt.Errorf("ошибка перехода к точке A: %w", err)
	}
	if !c.transport.IsPlaying() {
		if err := c.transport.Play(); err != nil {
			return true, fmt.Errorf("ошибка возобновления воспроизведения: %w", err)
		}
	}
	return true, nil
}
