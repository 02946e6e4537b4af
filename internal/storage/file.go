// Package storage содержит сохранение данных приложения на диск в формате YAML
package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	// ErrCorrupt возвращается, когда сохраненные данные не удалось разобрать
	ErrCorrupt = errors.New("сохраненные данные повреждены")
	// ErrWriteFailed возвращается, когда данные не удалось записать на диск
	ErrWriteFailed = errors.New("не удалось сохранить данные")
)

// ExpandPath раскрывает тильду в начале пути
func ExpandPath(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return strings.Replace(path, "~", home, 1), nil
}

// ReadYAML читает YAML файл в v. Отсутствующий или пустой файл - не ошибка, found=false.
// Ошибки разбора оборачивают ErrCorrupt.
func ReadYAML(path string, v any) (found bool, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("ошибка чтения файла %s: %w", path, err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return false, nil
	}
	if err := yaml.Unmarshal(data, v); err != nil {
		return true, fmt.Errorf("%w: %s: %v", ErrCorrupt, path, err)
	}
	return true, nil
}

// WriteYAML атомарно записывает v в файл: сначала во временный файл рядом, затем rename.
// Ошибки оборачивают ErrWriteFailed.
func WriteYAML(path string, v any) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("%w: ошибка сериализации данных: %v", ErrWriteFailed, err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // после успешного rename файла уже нет

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: ошибка записи файла данных: %v", ErrWriteFailed, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		return fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}
	return nil
}

// QuarantineCorrupt переименовывает поврежденный файл в <path>.corrupt, чтобы не потерять его при перезаписи
func QuarantineCorrupt(path string) (string, error) {
	target := path + ".corrupt"
	if err := os.Rename(path, target); err != nil {
		return "", fmt.Errorf("ошибка переименования поврежденного файла: %w", err)
	}
	return target, nil
}
