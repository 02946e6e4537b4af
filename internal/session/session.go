// Package session связывает плеер, A–B цикл и отрезки в одну сессию, которой управляет слой представления
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/hazadus/go-abloop/internal/loop"
	"github.com/hazadus/go-abloop/internal/player"
	"github.com/hazadus/go-abloop/internal/segment"
	"github.com/hazadus/go-abloop/internal/settings"
	"github.com/hazadus/go-abloop/internal/utils"
)

// SegmentStore сохраняет отрезки по ключу файла
type SegmentStore interface {
	LoadSegments(key string) ([]segment.Segment, error)
	SaveSegments(key, audioPath string, segments []segment.Segment) error
}

// SettingsStore сохраняет пользовательские настройки
type SettingsStore interface {
	Load() (settings.Settings, error)
	Save(settings.Settings) error
}

// KeyFunc вычисляет ключ файла для библиотеки отрезков
type KeyFunc func(path string) (string, error)

// Options - зависимости сессии
type Options struct {
	Player   *player.Player
	Segments SegmentStore
	Settings SettingsStore
	FileKey  KeyFunc
	Logger   *slog.Logger
}

// Snapshot - состояние сессии для отображения
type Snapshot struct {
	Path       string            `json:"path"`
	Key        string            `json:"key"`
	PositionMs int64             `json:"position_ms"`
	DurationMs int64             `json:"duration_ms"`
	Playing    bool              `json:"playing"`
	Volume     int               `json:"volume"`
	Loop       loop.State        `json:"loop"`
	Segments   []SegmentView     `json:"segments"`
	Settings   settings.Settings `json:"settings"`

	// Значения для Go-клиентов, в JSON не попадают
	Position    time.Duration     `json:"-"`
	Duration    time.Duration     `json:"-"`
	SegmentList []segment.Segment `json:"-"`
}

// Session владеет всем изменяемым состоянием: плеером, циклом и отрезками.
// Все изменения выполняются под одним мьютексом, поэтому тики не пересекаются.
type Session struct {
	mu sync.Mutex

	player   *player.Player
	loop     *loop.Controller
	segments *segment.Manager
	segStore SegmentStore
	setStore SettingsStore
	fileKey  KeyFunc
	logger   *slog.Logger

	settings    settings.Settings
	path        string
	key         string
	dirty       bool // Отрезки изменены после загрузки
	lastPos     time.Duration
	lastPlaying bool
	pending     []Event
	closed      bool

	subsMu  sync.Mutex
	subs    map[int]func(Event)
	nextSub int
}

// New создает сессию и загружает настройки. Поврежденные настройки заменяются значениями по умолчанию.
func New(opts Options) *Session {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	keyFn := opts.FileKey
	if keyFn == nil {
		keyFn = func(path string) (string, error) {
			abs, err := filepath.Abs(path)
			return "path:" + abs, err
		}
	}

	s := &Session{
		player:   opts.Player,
		loop:     loop.NewController(opts.Player),
		segments: segment.NewManager(),
		segStore: opts.Segments,
		setStore: opts.Settings,
		fileKey:  keyFn,
		logger:   logger,
		settings: settings.Defaults(),
		subs:     make(map[int]func(Event)),
	}

	if s.setStore != nil {
		loaded, err := s.setStore.Load()
		if err != nil {
			s.logger.Warn("настройки не загружены, используются значения по умолчанию", "error", err)
		}
		s.settings = loaded
	}
	if err := s.player.SetVolume(s.settings.DefaultVolume); err != nil {
		s.logger.Warn("не удалось установить громкость", "error", err)
	}
	return s
}

// Subscribe регистрирует получателя событий. События доставляются после снятия блокировки сессии.
func (s *Session) Subscribe(fn func(Event)) (unsubscribe func()) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()

	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	return func() {
		s.subsMu.Lock()
		defer s.subsMu.Unlock()
		delete(s.subs, id)
	}
}

func (s *Session) emitLocked(events ...Event) {
	s.pending = append(s.pending, events...)
}

// unlockAndFlush снимает блокировку и доставляет накопленные события
func (s *Session) unlockAndFlush() {
	events := s.pending
	s.pending = nil
	s.mu.Unlock()

	if len(events) == 0 {
		return
	}
	s.subsMu.Lock()
	receivers := lo.Values(s.subs)
	s.subsMu.Unlock()

	for _, event := range events {
		for _, fn := range receivers {
			fn(event)
		}
	}
}

// Dispatch выполняет команду. Отклоненная команда возвращает ошибку и оставляет состояние как было;
// та же ошибка публикуется событием ErrorOccurred.
func (s *Session) Dispatch(intent Intent) error {
	s.mu.Lock()
	defer s.unlockAndFlush()

	if s.closed {
		return fmt.Errorf("%w: сессия закрыта", player.ErrNoMediaLoaded)
	}

	err := s.handleLocked(intent)
	if err != nil {
		s.logger.Debug("команда отклонена", "intent", intent.IntentType(), "error", err)
		s.emitLocked(ErrorOccurred{Kind: KindOf(err), Text: err.Error()})
	}
	return err
}

func (s *Session) handleLocked(intent Intent) error {
	switch in := intent.(type) {
	case OpenFile:
		return s.openLocked(in.Path)

	case Play:
		return s.transportLocked(s.player.Play, "▶️ Воспроизведение")
	case Pause:
		return s.transportLocked(s.player.Pause, "⏸️ Пауза")
	case TogglePlay:
		if err := s.player.Toggle(); err != nil {
			return err
		}
		s.emitPlaybackLocked()
		return nil
	case Stop:
		if err := s.transportLocked(s.player.Stop, "⏹️ Остановлено"); err != nil {
			return err
		}
		s.emitPositionLocked(true)
		return nil

	case SeekTo:
		if err := s.player.Seek(in.Position); err != nil {
			return err
		}
		s.emitPositionLocked(true)
		return nil
	case SeekBy:
		if err := s.player.SeekBy(in.Delta); err != nil {
			return err
		}
		s.emitPositionLocked(true)
		return nil

	case SetVolume:
		return s.setVolumeLocked(in.Volume)

	case SetPointA:
		return s.setPointLocked(in.At, s.loop.SetPointA, "A")
	case SetPointB:
		return s.setPointLocked(in.At, s.loop.SetPointB, "B")
	case ClearLoop:
		s.loop.Clear()
		s.emitLocked(LoopStateChanged{State: s.loop.State()}, StatusMessage{Text: "🔁 Точки цикла сброшены"})
		return nil
	case ToggleLoop:
		if err := s.loop.Toggle(); err != nil {
			return err
		}
		text := "🔁 Цикл выключен"
		if s.loop.State().Enabled {
			text = "🔁 Цикл включен"
		}
		s.emitLocked(LoopStateChanged{State: s.loop.State()}, StatusMessage{Text: text})
		return nil

	case SaveSegment:
		return s.saveSegmentLocked(in.Name)
	case ApplySegment:
		return s.applySegmentLocked(in.ID)
	case RemoveSegment:
		return s.removeSegmentLocked(in.ID)

	default:
		return fmt.Errorf("%w: %T", ErrInvalidIntent, intent)
	}
}

func (s *Session) transportLocked(action func() error, text string) error {
	if err := action(); err != nil {
		return err
	}
	s.emitPlaybackLocked()
	s.emitLocked(StatusMessage{Text: text})
	return nil
}

func (s *Session) emitPlaybackLocked() {
	s.lastPlaying = s.player.IsPlaying()
	s.emitLocked(PlaybackChanged{Playing: s.lastPlaying, Volume: s.player.Volume()})
}

// emitPositionLocked публикует позицию; без force только при изменении
func (s *Session) emitPositionLocked(force bool) {
	pos := s.player.Position()
	if !force && pos == s.lastPos {
		return
	}
	s.lastPos = pos
	s.emitLocked(PositionChanged{Position: pos})
}

// openLocked открывает файл. При ошибке открытия прежний файл и его состояние остаются без изменений.
func (s *Session) openLocked(path string) error {
	duration, err := s.player.Open(path)
	if err != nil {
		return err
	}

	// Прежний файл уже закрыт движком, его отрезки сохраняем до сброса
	s.persistSegmentsLocked()

	key, err := s.fileKey(path)
	if err != nil {
		s.logger.Warn("ключ файла не вычислен, используется путь", "path", path, "error", err)
		key = "path:" + path
	}

	s.loop.Reset()
	s.segments.Clear()
	s.path = path
	s.key = key
	s.dirty = false
	s.lastPos = 0

	s.loadSegmentsLocked()

	if err := s.player.SetVolume(s.settings.DefaultVolume); err != nil {
		s.logger.Warn("не удалось установить громкость", "error", err)
	}

	if abs, err := filepath.Abs(path); err == nil {
		s.settings.LastFolder = filepath.Dir(abs)
	}
	s.persistSettingsLocked()

	s.logger.Info("файл открыт", "path", path, "key", key, "duration", duration)
	s.emitLocked(
		FileOpened{Path: path, Key: key},
		DurationKnown{Duration: duration},
		PositionChanged{Position: 0},
		LoopStateChanged{State: s.loop.State()},
		SegmentsChanged{Segments: s.segments.List()},
	)
	s.emitPlaybackLocked()
	s.emitLocked(StatusMessage{Text: fmt.Sprintf("🎵 Открыт %s (%s)", filepath.Base(path), utils.FormatDuration(duration))})
	return nil
}

func (s *Session) loadSegmentsLocked() {
	if s.segStore == nil {
		return
	}
	loaded, err := s.segStore.LoadSegments(s.key)
	if err != nil {
		// Поврежденные данные не мешают работе, показываем предупреждение
		s.logger.Warn("отрезки загружены с ошибкой", "key", s.key, "error", err)
		s.emitLocked(ErrorOccurred{Kind: KindOf(err), Text: err.Error()})
	}
	for _, rejected := range s.segments.Replace(loaded) {
		s.logger.Warn("сохраненный отрезок пропущен", "key", s.key, "error", rejected)
	}
}

func (s *Session) persistSegmentsLocked() {
	if s.segStore == nil || s.key == "" || !s.dirty {
		return
	}
	if err := s.segStore.SaveSegments(s.key, s.path, s.segments.List()); err != nil {
		s.logger.Warn("отрезки не сохранены", "key", s.key, "error", err)
		s.emitLocked(ErrorOccurred{Kind: KindOf(err), Text: err.Error()})
		return
	}
	s.dirty = false
}

func (s *Session) persistSettingsLocked() {
	if s.setStore == nil {
		return
	}
	if err := s.setStore.Save(s.settings); err != nil {
		s.logger.Warn("настройки не сохранены", "error", err)
		s.emitLocked(ErrorOccurred{Kind: KindOf(err), Text: err.Error()})
	}
}

func (s *Session) setVolumeLocked(volume int) error {
	if err := s.player.SetVolume(volume); err != nil {
		return err
	}
	applied := s.player.Volume()
	if applied != s.settings.DefaultVolume {
		s.settings.DefaultVolume = applied
		s.persistSettingsLocked()
	}
	s.emitPlaybackLocked()
	s.emitLocked(StatusMessage{Text: fmt.Sprintf("🔊 Громкость %d%%", applied)})
	return nil
}

func (s *Session) setPointLocked(at *time.Duration, set func(time.Duration) error, name string) error {
	if !s.player.Loaded() {
		return player.ErrNoMediaLoaded
	}
	t := s.player.Position()
	if at != nil {
		t = *at
		// Позиция не уходит дальше конца файла, такая точка никогда не сработает
		if d := s.player.Duration(); t > d {
			return fmt.Errorf("%w: точка %s=%v за концом файла %v", loop.ErrInvalidLoopRange, name, t, d)
		}
	}
	if err := set(t); err != nil {
		return err
	}
	s.emitLocked(
		LoopStateChanged{State: s.loop.State()},
		StatusMessage{Text: fmt.Sprintf("📍 Точка %s: %s", name, utils.FormatPrecise(t))},
	)
	return nil
}

func (s *Session) saveSegmentLocked(name string) error {
	if !s.player.Loaded() {
		return player.ErrNoMediaLoaded
	}
	state := s.loop.State()
	if !state.A.Set || !state.B.Set {
		return loop.ErrLoopPointsIncomplete
	}
	seg, err := segment.New(name, state.A.At, state.B.At)
	if err != nil {
		return err
	}
	id, err := s.segments.Add(seg)
	if err != nil {
		return err
	}
	s.dirty = true

	saved, _ := s.segments.Get(id)
	s.emitLocked(
		SegmentsChanged{Segments: s.segments.List()},
		StatusMessage{Text: fmt.Sprintf("💾 Отрезок %q сохранен", saved.Name)},
	)
	return nil
}

func (s *Session) applySegmentLocked(id string) error {
	seg, ok := s.segments.Get(id)
	if !ok {
		return fmt.Errorf("%w: %s", segment.ErrNotFound, id)
	}
	if err := s.loop.Apply(seg.Start, seg.End); err != nil {
		return err
	}
	if err := s.loop.SetEnabled(true); err != nil {
		return err
	}
	if err := s.player.Seek(seg.Start); err != nil {
		return err
	}
	s.emitLocked(LoopStateChanged{State: s.loop.State()})
	s.emitPositionLocked(true)
	s.emitLocked(StatusMessage{Text: fmt.Sprintf("🔁 Отрезок %q: %s - %s",
		seg.Name, utils.FormatPrecise(seg.Start), utils.FormatPrecise(seg.End))})
	return nil
}

func (s *Session) removeSegmentLocked(id string) error {
	seg, ok := s.segments.Get(id)
	if !ok {
		return fmt.Errorf("%w: %s", segment.ErrNotFound, id)
	}
	s.segments.Remove(id)
	s.dirty = true
	s.emitLocked(
		SegmentsChanged{Segments: s.segments.List()},
		StatusMessage{Text: fmt.Sprintf("🗑️ Отрезок %q удален", seg.Name)},
	)
	return nil
}

// Tick опрашивает позицию, передает ее циклу и публикует изменения.
// Файлы на диск здесь не пишутся.
func (s *Session) Tick() {
	s.mu.Lock()
	defer s.unlockAndFlush()

	if s.closed || !s.player.Loaded() {
		return
	}

	pos := s.player.Position()
	corrected, err := s.loop.OnTick(pos)
	if err != nil {
		s.logger.Warn("ошибка корректирующего перехода", "error", err)
		s.emitLocked(ErrorOccurred{Kind: KindOf(err), Text: err.Error()})
	}
	if corrected {
		s.logger.Debug("возврат к точке A", "from", pos, "to", s.loop.State().A.At)
	}
	s.emitPositionLocked(corrected)

	if playing := s.player.IsPlaying(); playing != s.lastPlaying {
		s.emitPlaybackLocked()
	}
}

// Run вызывает Tick с заданным интервалом до отмены ctx
func (s *Session) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()
		case <-ticker.C:
			s.Tick()
		}
	}
}

// ApplySettings принимает настройки, измененные вне сессии (например, через settings set)
func (s *Session) ApplySettings(updated settings.Settings) {
	s.mu.Lock()
	defer s.unlockAndFlush()

	if updated == s.settings {
		return
	}
	s.settings = updated
	s.emitLocked(StatusMessage{Text: "⚙️ Настройки обновлены"})
}

// Snapshot возвращает текущее состояние
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := s.player.Status()
	list := s.segments.List()
	return Snapshot{
		Path:        s.path,
		Key:         s.key,
		PositionMs:  status.Current.Milliseconds(),
		DurationMs:  status.Total.Milliseconds(),
		Playing:     status.IsPlaying,
		Volume:      status.Volume,
		Loop:        s.loop.State(),
		Segments:    Views(list),
		Settings:    s.settings,
		Position:    status.Current,
		Duration:    status.Total,
		SegmentList: list,
	}
}

// Close сохраняет отрезки и настройки и освобождает плеер. Повторный вызов ничего не делает.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.unlockAndFlush()

	if s.closed {
		return nil
	}
	s.closed = true

	s.persistSegmentsLocked()
	s.persistSettingsLocked()
	return s.player.Close()
}
