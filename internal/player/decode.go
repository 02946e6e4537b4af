package player

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/flac"
	"github.com/gopxl/beep/mp3"
	"github.com/gopxl/beep/vorbis"
	"github.com/gopxl/beep/wav"
)

// SupportedExtensions - расширения файлов, для которых есть декодер
var SupportedExtensions = []string{".mp3", ".wav", ".flac", ".ogg"}

// IsSupported проверяет расширение файла
func IsSupported(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range SupportedExtensions {
		if e == ext {
			return true
		}
	}
	return false
}

// Decoded - декодированный поток вместе с открытым файлом
type Decoded struct {
	Streamer beep.StreamSeekCloser
	Format   beep.Format
	file     *os.File
}

// Duration возвращает длительность потока
func (d *Decoded) Duration() time.Duration {
	return d.Format.SampleRate.D(d.Streamer.Len())
}

// Close закрывает поток и файл
func (d *Decoded) Close() error {
	err := d.Streamer.Close()
	// Часть декодеров не закрывает исходный файл сама
	if cerr := d.file.Close(); cerr != nil && !errors.Is(cerr, os.ErrClosed) && err == nil {
		err = cerr
	}
	return err
}

// Decode открывает аудиофайл и подбирает декодер по расширению.
// Отсутствующий файл дает ErrFileNotFound, неизвестный формат или ошибка декодирования - ErrUnsupportedFormat.
func Decode(path string) (*Decoded, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return nil, fmt.Errorf("ошибка получения информации о файле: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s - это каталог", ErrFileNotFound, path)
	}
	if !IsSupported(path) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("ошибка открытия файла: %w", err)
	}

	var (
		streamer beep.StreamSeekCloser
		format   beep.Format
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp3":
		streamer, format, err = mp3.Decode(file)
	case ".wav":
		streamer, format, err = wav.Decode(file)
	case ".flac":
		streamer, format, err = flac.Decode(file)
	case ".ogg":
		streamer, format, err = vorbis.Decode(file)
	}
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("%w: ошибка декодирования %s: %v", ErrUnsupportedFormat, filepath.Base(path), err)
	}

	return &Decoded{Streamer: streamer, Format: format, file: file}, nil
}

// ProbeDuration декодирует файл только для определения длительности
func ProbeDuration(path string) (time.Duration, error) {
	decoded, err := Decode(path)
	if err != nil {
		return 0, err
	}
	defer decoded.Close()
	return decoded.Duration(), nil
}
