// Package metadata предоставляет функционал для извлечения метаданных из аудио файлов
package metadata

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dhowden/tag"

	"github.com/hazadus/go-abloop/internal/config"
	"github.com/hazadus/go-abloop/internal/player"
)

// TrackMetadata хранит метаданные трека
type TrackMetadata struct {
	Artist string
	Title  string
	Album  string
}

// Display возвращает строку "Artist - Title" для заголовка экрана
func (m TrackMetadata) Display() string {
	if m.Artist == "" {
		return m.Title
	}
	return m.Artist + " - " + m.Title
}

// FileInfo содержит информацию о файле
type FileInfo struct {
	Size     int64
	Format   string
	Duration time.Duration
}

// Extractor извлекает метаданные из аудио файлов
type Extractor struct{}

// NewExtractor создает новый экстрактор метаданных
func NewExtractor() *Extractor {
	return &Extractor{}
}

// ExtractFromReader извлекает метаданные из io.Reader
func (e *Extractor) ExtractFromReader(reader io.ReadSeeker, source string) TrackMetadata {
	// Сбрасываем reader в начало
	if _, err := reader.Seek(0, io.SeekStart); err != nil {
		return e.getDefaultMetadata(source)
	}

	metadata, err := tag.ReadFrom(reader)
	if err != nil {
		return e.getDefaultMetadata(source)
	}

	result := TrackMetadata{
		Artist: metadata.Artist(),
		Title:  metadata.Title(),
		Album:  metadata.Album(),
	}
	// Теги без названия бесполезны, берем имя файла
	if result.Title == "" {
		fallback := e.getDefaultMetadata(source)
		result.Title = fallback.Title
		if result.Artist == "" {
			result.Artist = fallback.Artist
		}
	}
	return result
}

// ExtractFromFile извлекает метаданные из файла
func (e *Extractor) ExtractFromFile(filePath string) TrackMetadata {
	file, err := os.Open(filePath)
	if err != nil {
		return e.getDefaultMetadata(filePath)
	}
	defer file.Close()

	return e.ExtractFromReader(file, filePath)
}

// GetDuration получает длительность файла любого поддерживаемого формата
func (e *Extractor) GetDuration(filePath string) (time.Duration, error) {
	duration, err := player.ProbeDuration(filePath)
	if err != nil {
		return 0, fmt.Errorf("ошибка получения длительности: %w", err)
	}
	return duration, nil
}

// GetFileInfo получает информацию о файле (размер, формат и длительность)
func (e *Extractor) GetFileInfo(filePath string) (*FileInfo, error) {
	// Получаем размер файла
	fileInfo, err := os.Stat(filePath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", player.ErrFileNotFound, filePath)
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка получения информации о файле: %w", err)
	}

	// Получаем длительность
	duration, err := e.GetDuration(filePath)
	if err != nil {
		return nil, err
	}

	return &FileInfo{
		Size:     fileInfo.Size(),
		Format:   strings.TrimPrefix(strings.ToLower(filepath.Ext(filePath)), "."),
		Duration: duration,
	}, nil
}

// FileKey вычисляет ключ файла для библиотеки отрезков.
// Схема content - хеш аудиоданных без тегов, переживает переименование и смену тегов.
// Схема path - абсолютный путь к файлу.
func FileKey(filePath, scheme string) (string, error) {
	switch scheme {
	case config.SegmentKeyPath:
		abs, err := filepath.Abs(filePath)
		if err != nil {
			return "", fmt.Errorf("ошибка получения абсолютного пути: %w", err)
		}
		return "path:" + filepath.Clean(abs), nil

	case config.SegmentKeyContent, "":
		file, err := os.Open(filePath)
		if err != nil {
			return "", fmt.Errorf("ошибка открытия файла: %w", err)
		}
		defer file.Close()

		sum, err := tag.Sum(file)
		if err != nil {
			// Файлы без распознаваемой структуры хешируем целиком
			if _, serr := file.Seek(0, io.SeekStart); serr != nil {
				return "", fmt.Errorf("ошибка чтения файла: %w", serr)
			}
			sum, err = tag.SumAll(file)
			if err != nil {
				return "", fmt.Errorf("ошибка вычисления хеша: %w", err)
			}
		}
		return "sha1:" + sum, nil

	default:
		return "", fmt.Errorf("неизвестная схема ключа файла: %q", scheme)
	}
}

// getDefaultMetadata возвращает метаданные по умолчанию на основе имени файла
func (e *Extractor) getDefaultMetadata(source string) TrackMetadata {
	fileName := filepath.Base(source)
	nameWithoutExt := strings.TrimSuffix(fileName, filepath.Ext(fileName))

	// Пытаемся разобрать имя файла в формате "Artist - Title"
	parts := strings.Split(nameWithoutExt, " - ")
	if len(parts) >= 2 {
		return TrackMetadata{
			Artist: strings.TrimSpace(parts[0]),
			Title:  strings.TrimSpace(strings.Join(parts[1:], " - ")),
			Album:  "",
		}
	}

	// Если не удалось разобрать, используем имя файла как название
	return TrackMetadata{
		Artist: "Unknown Artist",
		Title:  nameWithoutExt,
		Album:  "",
	}
}
