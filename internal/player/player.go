// Package player содержит компоненты для управления воспроизведением аудио
package player

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

var (
	// ErrFileNotFound возвращается, если аудиофайл не существует
	ErrFileNotFound = errors.New("файл не найден")
	// ErrUnsupportedFormat возвращается для неизвестных или поврежденных форматов
	ErrUnsupportedFormat = errors.New("неподдерживаемый формат")
	// ErrNoMediaLoaded возвращается при управлении воспроизведением до открытия файла
	ErrNoMediaLoaded = errors.New("файл не открыт")
	// ErrEngineUnavailable возвращается, если звуковой движок не удалось запустить
	ErrEngineUnavailable = errors.New("звуковой движок недоступен")
)

// Engine - нативный движок воспроизведения, которым управляет Player
type Engine interface {
	Open(path string) (time.Duration, error)
	Play() error
	Pause() error
	Stop() error
	Seek(pos time.Duration) error
	SetVolume(level int) error
	Position() time.Duration
	Duration() time.Duration
	IsPlaying() bool
	Close() error
}

// Status - снимок состояния плеера
type Status struct {
	Path      string
	Current   time.Duration // Текущая позиция
	Total     time.Duration // Общая продолжительность
	IsPlaying bool          // Воспроизводится ли трек
	Volume    int
}

// Player управляет воспроизведением одного файла
type Player struct {
	mutex    sync.Mutex
	engine   Engine
	path     string
	duration time.Duration
	volume   int
	loaded   bool
	logger   *slog.Logger
}

// NewPlayer создает плеер поверх движка
func NewPlayer(engine Engine) *Player {
	return &Player{
		engine: engine,
		volume: 100,
		logger: slog.Default(),
	}
}

// Open загружает файл. При ошибке ранее открытый файл остается доступным.
// Если движок открыл файл, Open успешен: сбои сброса позиции и громкости
// только записываются в журнал, новый файл уже загружен.
func (p *Player) Open(path string) (time.Duration, error) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	duration, err := p.engine.Open(path)
	if err != nil {
		return 0, fmt.Errorf("ошибка открытия %s: %w", path, err)
	}

	p.path = path
	p.duration = duration
	p.loaded = true

	if err := p.engine.Seek(0); err != nil {
		p.logger.Warn("ошибка сброса позиции", "path", path, "error", err)
	}
	// Громкость сохраняется между файлами
	if err := p.engine.SetVolume(p.volume); err != nil {
		p.logger.Warn("ошибка установки громкости", "path", path, "error", err)
	}
	return duration, nil
}

// Play начинает или возобновляет воспроизведение
func (p *Player) Play() error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if !p.loaded {
		return ErrNoMediaLoaded
	}
	return p.engine.Play()
}

// Pause приостанавливает воспроизведение
func (p *Player) Pause() error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if !p.loaded {
		return ErrNoMediaLoaded
	}
	return p.engine.Pause()
}

// Toggle переключает паузу и воспроизведение
func (p *Player) Toggle() error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if !p.loaded {
		return ErrNoMediaLoaded
	}
	if p.engine.IsPlaying() {
		return p.engine.Pause()
	}
	return p.engine.Play()
}

// Stop останавливает воспроизведение и возвращает позицию в начало
func (p *Player) Stop() error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if !p.loaded {
		return ErrNoMediaLoaded
	}
	return p.engine.Stop()
}

// Seek переходит к позиции; значения вне [0, длительность] ограничиваются
func (p *Player) Seek(pos time.Duration) error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if !p.loaded {
		return ErrNoMediaLoaded
	}
	return p.engine.Seek(p.clamp(pos))
}

// SeekBy сдвигает позицию на delta относительно текущей
func (p *Player) SeekBy(delta time.Duration) error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if !p.loaded {
		return ErrNoMediaLoaded
	}
	return p.engine.Seek(p.clamp(p.engine.Position() + delta))
}

func (p *Player) clamp(pos time.Duration) time.Duration {
	return max(0, min(pos, p.duration))
}

// SetVolume задает громкость; значения вне [0, 100] ограничиваются.
// Работает и без открытого файла, значение применится при открытии.
func (p *Player) SetVolume(volume int) error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	p.volume = max(0, min(100, volume))
	if !p.loaded {
		return nil
	}
	return p.engine.SetVolume(p.volume)
}

// Volume возвращает текущую громкость
func (p *Player) Volume() int {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.volume
}

// Position возвращает текущую позицию воспроизведения
func (p *Player) Position() time.Duration {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if !p.loaded {
		return 0
	}
	return p.clamp(p.engine.Position())
}

// Duration возвращает длительность открытого файла
func (p *Player) Duration() time.Duration {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.duration
}

// IsPlaying возвращает true, если трек воспроизводится
func (p *Player) IsPlaying() bool {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.loaded && p.engine.IsPlaying()
}

// Loaded сообщает, открыт ли файл
func (p *Player) Loaded() bool {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.loaded
}

// Path возвращает путь к открытому файлу
func (p *Player) Path() string {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.path
}

// Status возвращает снимок состояния
func (p *Player) Status() Status {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	status := Status{
		Path:   p.path,
		Total:  p.duration,
		Volume: p.volume,
	}
	if p.loaded {
		status.Current = p.clamp(p.engine.Position())
		status.IsPlaying = p.engine.IsPlaying()
	}
	return status
}

// Close закрывает плеер и освобождает ресурсы
func (p *Player) Close() error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	p.loaded = false
	p.path = ""
	p.duration = 0
	return p.engine.Close()
}
