package storage

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/hazadus/go-abloop/internal/segment"
)

// SegmentRecord - сохраненный отрезок
type SegmentRecord struct {
	ID      string `yaml:"id,omitempty"`
	Name    string `yaml:"name"`
	StartMs int64  `yaml:"start_ms"`
	EndMs   int64  `yaml:"end_ms"`
}

// FileEntry - отрезки одного аудиофайла
type FileEntry struct {
	Path      string          `yaml:"path,omitempty"` // Последний известный путь, только для информации
	UpdatedAt time.Time       `yaml:"updated_at"`
	Segments  []SegmentRecord `yaml:"segments"`
}

// Library - все сохраненные отрезки, по ключу файла
type Library struct {
	Files map[string]FileEntry `yaml:"files"`
}

// NewLibrary создает пустую библиотеку
func NewLibrary() *Library {
	return &Library{
		Files: make(map[string]FileEntry),
	}
}

// Keys возвращает ключи файлов в отсортированном порядке
func (l *Library) Keys() []string {
	keys := make([]string, 0, len(l.Files))
	for k := range l.Files {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Merge добавляет записи из other. Существующие ключи перезаписываются только при overwrite.
// Возвращает количество добавленных или замененных записей.
func (l *Library) Merge(other *Library, overwrite bool) int {
	if l.Files == nil {
		l.Files = make(map[string]FileEntry)
	}
	changed := 0
	for key, entry := range other.Files {
		if _, exists := l.Files[key]; exists && !overwrite {
			continue
		}
		l.Files[key] = entry
		changed++
	}
	return changed
}

// ToRecords преобразует отрезки в записи для сохранения
func ToRecords(segments []segment.Segment) []SegmentRecord {
	records := make([]SegmentRecord, 0, len(segments))
	for _, s := range segments {
		records = append(records, SegmentRecord{
			ID:      s.ID,
			Name:    s.Name,
			StartMs: s.Start.Milliseconds(),
			EndMs:   s.End.Milliseconds(),
		})
	}
	return records
}

// FromRecords преобразует записи в отрезки; некорректные записи пропускаются и возвращаются ошибкой
func FromRecords(records []SegmentRecord) ([]segment.Segment, error) {
	segments := make([]segment.Segment, 0, len(records))
	var errs []error
	for i, r := range records {
		s := segment.Segment{
			ID:    r.ID,
			Name:  r.Name,
			Start: time.Duration(r.StartMs) * time.Millisecond,
			End:   time.Duration(r.EndMs) * time.Millisecond,
		}
		if err := s.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("запись %d (%q): %w", i, r.Name, err))
			continue
		}
		segments = append(segments, s)
	}
	if len(errs) > 0 {
		return segments, fmt.Errorf("%w: %w", ErrCorrupt, errors.Join(errs...))
	}
	return segments, nil
}

// SegmentStore хранит библиотеку отрезков в одном YAML файле
type SegmentStore struct {
	path   string
	logger *slog.Logger
	now    func() time.Time
}

// NewSegmentStore создает хранилище отрезков по указанному пути
func NewSegmentStore(path string, logger *slog.Logger) *SegmentStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &SegmentStore{
		path:   path,
		logger: logger,
		now:    time.Now,
	}
}

// Path возвращает путь к файлу библиотеки
func (s *SegmentStore) Path() string {
	return s.path
}

// LoadLibrary загружает всю библиотеку. При повреждении возвращается пустая библиотека и ошибка ErrCorrupt.
func (s *SegmentStore) LoadLibrary() (*Library, error) {
	lib := NewLibrary()
	if _, err := ReadYAML(s.path, lib); err != nil {
		return NewLibrary(), err
	}
	if lib.Files == nil {
		lib.Files = make(map[string]FileEntry)
	}
	return lib, nil
}

// SaveLibrary перезаписывает библиотеку целиком
func (s *SegmentStore) SaveLibrary(lib *Library) error {
	return WriteYAML(s.path, lib)
}

// LoadSegments возвращает отрезки файла. Отсутствие записи - пустой список без ошибки.
// Поврежденные данные дают пустой (или частичный) список и ошибку ErrCorrupt.
func (s *SegmentStore) LoadSegments(key string) ([]segment.Segment, error) {
	lib, err := s.LoadLibrary()
	if err != nil {
		return []segment.Segment{}, err
	}

	entry, ok := lib.Files[key]
	if !ok {
		return []segment.Segment{}, nil
	}
	return FromRecords(entry.Segments)
}

// SaveSegments сохраняет отрезки файла; пустой список удаляет запись
func (s *SegmentStore) SaveSegments(key, audioPath string, segments []segment.Segment) error {
	lib, err := s.LoadLibrary()
	if err != nil {
		if !errors.Is(err, ErrCorrupt) {
			return fmt.Errorf("%w: %v", ErrWriteFailed, err)
		}
		// Поврежденный файл откладываем в сторону и начинаем с чистой библиотеки
		moved, qErr := QuarantineCorrupt(s.path)
		if qErr != nil {
			return fmt.Errorf("%w: %v", ErrWriteFailed, qErr)
		}
		s.logger.Warn("библиотека отрезков повреждена, создается новая", "path", s.path, "moved_to", moved, "error", err)
		lib = NewLibrary()
	}

	if len(segments) == 0 {
		if _, exists := lib.Files[key]; !exists {
			return nil
		}
		delete(lib.Files, key)
	} else {
		lib.Files[key] = FileEntry{
			Path:      audioPath,
			UpdatedAt: s.now().UTC(),
			Segments:  ToRecords(segments),
		}
	}

	return s.SaveLibrary(lib)
}
