// Package settings хранит пользовательские настройки: последнюю папку и громкость по умолчанию
package settings

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/hazadus/go-abloop/internal/storage"
)

// DefaultVolume - громкость для новой сессии, если настройки отсутствуют
const DefaultVolume = 80

// Settings - пользовательские настройки приложения
type Settings struct {
	LastFolder    string `yaml:"last_folder" json:"last_folder"`
	DefaultVolume int    `yaml:"default_volume" json:"default_volume"`
}

// Defaults возвращает настройки по умолчанию
func Defaults() Settings {
	return Settings{
		LastFolder:    "",
		DefaultVolume: DefaultVolume,
	}
}

// ClampVolume ограничивает громкость диапазоном [0, 100]
func ClampVolume(v int) int {
	return max(0, min(100, v))
}

// Store загружает и сохраняет настройки в YAML файл
type Store struct {
	path   string
	logger *slog.Logger
}

// NewStore создает хранилище настроек
func NewStore(path string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{path: path, logger: logger}
}

// Path возвращает путь к файлу настроек
func (s *Store) Path() string {
	return s.path
}

// Load загружает настройки. Отсутствующие поля получают значения по умолчанию.
// При повреждении файла возвращаются значения по умолчанию и ошибка storage.ErrCorrupt.
func (s *Store) Load() (Settings, error) {
	loaded := Defaults()
	if _, err := storage.ReadYAML(s.path, &loaded); err != nil {
		return Defaults(), err
	}
	loaded.DefaultVolume = ClampVolume(loaded.DefaultVolume)
	return loaded, nil
}

// Save перезаписывает файл настроек
func (s *Store) Save(settings Settings) error {
	settings.DefaultVolume = ClampVolume(settings.DefaultVolume)
	if err := storage.WriteYAML(s.path, settings); err != nil {
		return fmt.Errorf("ошибка сохранения настроек: %w", err)
	}
	return nil
}

// Watch следит за файлом настроек и вызывает onChange после каждого изменения.
// Следим за каталогом, так как запись через rename заменяет сам файл.
// Блокируется до отмены ctx.
func (s *Store) Watch(ctx context.Context, onChange func(Settings)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("ошибка создания наблюдателя: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	dir := filepath.Dir(s.path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("ошибка наблюдения за %s: %w", dir, err)
	}

	const debounce = 100 * time.Millisecond
	var timer *time.Timer
	var fire <-chan time.Time
	name := filepath.Clean(s.path)

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != name {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			// Редакторы пишут файл в несколько шагов, ждем паузу
			if timer == nil {
				timer = time.NewTimer(debounce)
			} else {
				timer.Reset(debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			loaded, err := s.Load()
			if err != nil {
				s.logger.Warn("не удалось перечитать настройки", "path", s.path, "error", err)
				continue
			}
			onChange(loaded)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn("ошибка наблюдателя настроек", "error", err)
		}
	}
}
