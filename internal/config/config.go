// Package config содержит функции для загрузки конфигурации приложения
package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/hazadus/go-abloop/internal/storage"
)

// DefaultPath - путь к файлу конфигурации по умолчанию
const DefaultPath = "~/.abloop/config.yaml"

// Схемы ключа файла для библиотеки отрезков
const (
	SegmentKeyContent = "content"
	SegmentKeyPath    = "path"
)

const (
	defaultDataDir      = "~/.abloop"
	defaultTickInterval = 100
	minTickInterval     = 50
	maxTickInterval     = 1000
	defaultListenAddr   = "127.0.0.1:8765"
	defaultBackupPrefix = "abloop"
)

// Config структура для хранения конфигурации приложения
type Config struct {
	DataDir        string `yaml:"data_dir"`
	TickIntervalMs int    `yaml:"tick_interval_ms"`
	SegmentKey     string `yaml:"segment_key"`
	ListenAddr     string `yaml:"listen_addr"`

	AwsBucketName string `yaml:"aws_bucket_name"`
	AwsAccessKey  string `yaml:"aws_access_key"`
	AwsSecretKey  string `yaml:"aws_secret_key"`
	AwsRegion     string `yaml:"aws_region"`
	AwsEndpoint   string `yaml:"aws_endpoint"`
	BackupPrefix  string `yaml:"backup_prefix"`
}

// Default возвращает конфигурацию по умолчанию с раскрытыми путями
func Default() (*Config, error) {
	config := &Config{}
	if err := config.applyDefaults(); err != nil {
		return nil, err
	}
	return config, nil
}

// LoadConfig загружает конфигурацию приложения из указанного файла.
// Если файла нет, возвращается конфигурация по умолчанию.
func LoadConfig(filePath string) (*Config, error) {
	path, err := storage.ExpandPath(filePath)
	if err != nil {
		return nil, err
	}

	config := &Config{}
	if _, err := storage.ReadYAML(path, config); err != nil {
		return nil, fmt.Errorf("ошибка чтения конфигурации: %w", err)
	}

	if err := config.applyDefaults(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) applyDefaults() error {
	// Устанавливаем значения по умолчанию, если они не заданы
	if c.DataDir == "" {
		c.DataDir = defaultDataDir
	}
	if c.TickIntervalMs == 0 {
		c.TickIntervalMs = defaultTickInterval
	}
	c.TickIntervalMs = max(minTickInterval, min(maxTickInterval, c.TickIntervalMs))

	switch c.SegmentKey {
	case "":
		c.SegmentKey = SegmentKeyContent
	case SegmentKeyContent, SegmentKeyPath:
	default:
		return fmt.Errorf("неизвестная схема ключа файла: %q (ожидается %s или %s)",
			c.SegmentKey, SegmentKeyContent, SegmentKeyPath)
	}

	if c.ListenAddr == "" {
		c.ListenAddr = defaultListenAddr
	}
	if c.BackupPrefix == "" {
		c.BackupPrefix = defaultBackupPrefix
	}

	// Раскрываем тильду в каталоге данных
	dir, err := storage.ExpandPath(c.DataDir)
	if err != nil {
		return err
	}
	c.DataDir = dir
	return nil
}

// TickInterval возвращает период опроса позиции
func (c *Config) TickInterval() time.Duration {
	return time.Duration(c.TickIntervalMs) * time.Millisecond
}

// SettingsPath возвращает путь к файлу пользовательских настроек
func (c *Config) SettingsPath() string {
	return filepath.Join(c.DataDir, "settings.yaml")
}

// SegmentsPath возвращает путь к библиотеке отрезков
func (c *Config) SegmentsPath() string {
	return filepath.Join(c.DataDir, "segments.yaml")
}

// LogPath возвращает путь к файлу журнала
func (c *Config) LogPath() string {
	return filepath.Join(c.DataDir, "abloop.log")
}

// BackupConfigured сообщает, заданы ли параметры S3 для резервного копирования
func (c *Config) BackupConfigured() bool {
	return c.AwsBucketName != "" && c.AwsRegion != ""
}
