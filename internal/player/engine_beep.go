//go:build (linux && cgo) || windows || darwin

package player

import (
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"
	"github.com/gopxl/beep/speaker"
)

// EngineAvailable сообщает, поддерживается ли вывод звука в этой сборке
const EngineAvailable = true

// Частота вывода; файлы с другой частотой передискретизируются
const outputRate = beep.SampleRate(44100)

var (
	speakerOnce sync.Once
	speakerErr  error
)

// BeepEngine воспроизводит локальные файлы через gopxl/beep
type BeepEngine struct {
	mu sync.Mutex

	decoded *Decoded
	ctrl    *beep.Ctrl
	volume  *effects.Volume
	level   int

	queued     bool
	paused     bool
	generation atomic.Uint64
	finished   atomic.Bool
}

// NewBeepEngine инициализирует динамики и создает движок
func NewBeepEngine() (Engine, error) {
	speakerOnce.Do(func() {
		speakerErr = speaker.Init(outputRate, outputRate.N(time.Second/10))
	})
	if speakerErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrEngineUnavailable, speakerErr)
	}
	return &BeepEngine{level: 100, paused: true}, nil
}

// Open декодирует новый файл; предыдущий освобождается только после успеха
func (e *BeepEngine) Open(path string) (time.Duration, error) {
	decoded, err := Decode(path)
	if err != nil {
		return 0, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	_ = e.releaseLocked()
	e.decoded = decoded
	e.paused = true
	return decoded.Duration(), nil
}

// Play запускает или возобновляет воспроизведение
func (e *BeepEngine) Play() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.decoded == nil {
		return ErrNoMediaLoaded
	}

	e.paused = false
	if e.queued && !e.finished.Load() {
		speaker.Lock()
		e.ctrl.Paused = false
		speaker.Unlock()
		return nil
	}

	// Поток закончился или еще не запускался: собираем заново
	speaker.Lock()
	if e.decoded.Streamer.Position() >= e.decoded.Streamer.Len() {
		if err := e.decoded.Streamer.Seek(0); err != nil {
			speaker.Unlock()
			return fmt.Errorf("ошибка перемотки в начало: %w", err)
		}
	}
	speaker.Unlock()
	e.queueLocked()
	return nil
}

// queueLocked строит цепочку поток - передискретизация - громкость - пауза и отдает ее динамикам
func (e *BeepEngine) queueLocked() {
	resampled := beep.Resample(4, e.decoded.Format.SampleRate, outputRate, e.decoded.Streamer)
	e.volume = &effects.Volume{Streamer: resampled, Base: 2}
	applyLevel(e.volume, e.level)
	e.ctrl = &beep.Ctrl{Streamer: e.volume, Paused: e.paused}

	gen := e.generation.Add(1)
	e.finished.Store(false)
	speaker.Play(beep.Seq(e.ctrl, beep.Callback(func() {
		// Колбэк старой цепочки не должен влиять на новую
		if e.generation.Load() == gen {
			e.finished.Store(true)
		}
	})))
	e.queued = true
}

// Pause приостанавливает воспроизведение
func (e *BeepEngine) Pause() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.decoded == nil {
		return ErrNoMediaLoaded
	}
	e.paused = true
	if e.ctrl != nil {
		speaker.Lock()
		e.ctrl.Paused = true
		speaker.Unlock()
	}
	return nil
}

// Stop ставит на паузу и возвращает позицию в начало
func (e *BeepEngine) Stop() error {
	if err := e.Pause(); err != nil {
		return err
	}
	return e.Seek(0)
}

// Seek переходит к позиции; значение уже ограничено фасадом
func (e *BeepEngine) Seek(pos time.Duration) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.decoded == nil {
		return ErrNoMediaLoaded
	}

	speaker.Lock()
	defer speaker.Unlock()

	samples := e.decoded.Format.SampleRate.N(pos)
	samples = max(0, min(samples, e.decoded.Streamer.Len()))
	if err := e.decoded.Streamer.Seek(samples); err != nil {
		return fmt.Errorf("ошибка перехода к позиции %v: %w", pos, err)
	}
	return nil
}

// SetVolume задает громкость 0..100
func (e *BeepEngine) SetVolume(level int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.level = level
	if e.volume != nil {
		speaker.Lock()
		applyLevel(e.volume, level)
		speaker.Unlock()
	}
	return nil
}

// applyLevel переводит линейную громкость в степень двойки для effects.Volume
func applyLevel(v *effects.Volume, level int) {
	if level <= 0 {
		v.Silent = true
		return
	}
	v.Silent = false
	v.Volume = math.Log2(float64(level) / 100)
}

// Position возвращает текущую позицию
func (e *BeepEngine) Position() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.decoded == nil {
		return 0
	}

	speaker.Lock()
	pos := e.decoded.Streamer.Position()
	speaker.Unlock()

	return e.decoded.Format.SampleRate.D(pos)
}

// Duration возвращает длительность открытого файла
func (e *BeepEngine) Duration() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.decoded == nil {
		return 0
	}
	return e.decoded.Duration()
}

// IsPlaying возвращает true, если звук сейчас выводится
func (e *BeepEngine) IsPlaying() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.decoded != nil && e.queued && !e.paused && !e.finished.Load()
}

// Close останавливает вывод и освобождает файл
func (e *BeepEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.releaseLocked()
}

// releaseLocked снимает текущую цепочку с динамиков (должен вызываться под мьютексом)
func (e *BeepEngine) releaseLocked() error {
	if e.queued {
		speaker.Clear()
	}
	e.generation.Add(1)
	e.queued = false
	e.ctrl = nil
	e.volume = nil

	if e.decoded == nil {
		return nil
	}
	err := e.decoded.Close()
	e.decoded = nil
	return err
}
