package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hazadus/go-abloop/internal/session"
	"github.com/hazadus/go-abloop/internal/tui"
)

// createPlayCommand создает команду play с привязкой к экземпляру приложения
func (app *Application) createPlayCommand(ctx context.Context) *cobra.Command {
	return &cobra.Command{
		Use:   "play [file path]",
		Short: "Open an audio file in the interactive loop player",
		Long: `Open an audio file in the terminal player. Mark points A and B, toggle the loop,
save named segments and recall them later. Segments are saved when the player exits.`,
		Args: cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return app.play(ctx, args[0])
		},
	}
}

func (app *Application) play(ctx context.Context, path string) (err error) {
	sess, err := app.newSession()
	if err != nil {
		return fmt.Errorf("❌ звук недоступен: %w", err)
	}
	defer func() {
		if cerr := sess.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	if err := sess.Dispatch(session.OpenFile{Path: path}); err != nil {
		return fmt.Errorf("❌ не удалось открыть файл: %w", err)
	}
	if err := sess.Dispatch(session.Play{}); err != nil {
		app.Logger.Warn("не удалось начать воспроизведение", "error", err)
	}

	// Изменения настроек из другого процесса применяются на лету
	watchCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		if err := app.Settings.Watch(watchCtx, sess.ApplySettings); err != nil && !errors.Is(err, context.Canceled) {
			app.Logger.Warn("наблюдение за настройками остановлено", "error", err)
		}
	}()

	track := app.Extractor.ExtractFromFile(path)
	app.Logger.Info("открыт файл", "path", path, "title", track.Title)

	return tui.NewApp(sess, track, app.Config.TickInterval()).Run()
}
