package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/hazadus/go-abloop/internal/config"
	"github.com/hazadus/go-abloop/internal/metadata"
	"github.com/hazadus/go-abloop/internal/player"
	"github.com/hazadus/go-abloop/internal/session"
	"github.com/hazadus/go-abloop/internal/settings"
	"github.com/hazadus/go-abloop/internal/storage"
)

// Application содержит зависимости, общие для всех команд
type Application struct {
	Config    *config.Config
	Logger    *slog.Logger
	Settings  *settings.Store
	Segments  *storage.SegmentStore
	Extractor *metadata.Extractor

	// NewEngine создает звуковой движок; в тестах подменяется
	NewEngine func() (player.Engine, error)

	logFile *os.File
}

// NewApplication создает приложение с хранилищами в каталоге данных
func NewApplication(cfg *config.Config, logger *slog.Logger) *Application {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Application{
		Config:    cfg,
		Logger:    logger,
		Settings:  settings.NewStore(cfg.SettingsPath(), logger),
		Segments:  storage.NewSegmentStore(cfg.SegmentsPath(), logger),
		Extractor: metadata.NewExtractor(),
		NewEngine: player.NewBeepEngine,
	}
}

// setupLogging направляет журнал в файл и, если нужно, в stderr
func (app *Application) setupLogging(toStderr bool) error {
	if err := os.MkdirAll(filepath.Dir(app.Config.LogPath()), 0o755); err != nil {
		return fmt.Errorf("ошибка создания каталога данных: %w", err)
	}

	logFile, err := os.OpenFile(app.Config.LogPath(), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("ошибка открытия журнала: %w", err)
	}
	app.logFile = logFile

	var w io.Writer = logFile
	level := slog.LevelDebug
	if toStderr {
		w = io.MultiWriter(logFile, &levelWriter{w: os.Stderr})
	}

	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
	app.Logger = logger
	app.Settings = settings.NewStore(app.Config.SettingsPath(), logger)
	app.Segments = storage.NewSegmentStore(app.Config.SegmentsPath(), logger)
	slog.SetDefault(logger)
	return nil
}

// levelWriter пропускает в stderr только предупреждения и ошибки
type levelWriter struct {
	w io.Writer
}

func (lw *levelWriter) Write(p []byte) (int, error) {
	if containsAny(p, "level=WARN", "level=ERROR") {
		if _, err := lw.w.Write(p); err != nil {
			return 0, err
		}
	}
	return len(p), nil
}

// Close закрывает файл журнала
func (app *Application) Close() error {
	if app.logFile != nil {
		return app.logFile.Close()
	}
	return nil
}

// fileKey вычисляет ключ файла по схеме из конфигурации
func (app *Application) fileKey(path string) (string, error) {
	return metadata.FileKey(path, app.Config.SegmentKey)
}

// newSession создает сессию поверх нового звукового движка
func (app *Application) newSession() (*session.Session, error) {
	engine, err := app.NewEngine()
	if err != nil {
		return nil, err
	}

	return session.New(session.Options{
		Player:   player.NewPlayer(engine),
		Segments: app.Segments,
		Settings: app.Settings,
		FileKey:  app.fileKey,
		Logger:   app.Logger,
	}), nil
}

func main() {
	// Загружаем конфигурацию
	configPath := os.Getenv("ABLOOP_CONFIG")
	if configPath == "" {
		configPath = config.DefaultPath
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Ошибка загрузки конфигурации: %v\n", err)
		os.Exit(1)
	}

	app := NewApplication(cfg, nil)
	defer app.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := app.createRootCommand(ctx).ExecuteContext(ctx); err != nil {
		cancel()
		app.Close()
		os.Exit(1)
	}
}
