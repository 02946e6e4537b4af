package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hazadus/go-abloop/internal/storage"
	"github.com/hazadus/go-abloop/internal/utils"
)

// createInfoCommand создает команду info с привязкой к экземпляру приложения
func (app *Application) createInfoCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "info [file path]",
		Short: "Show track metadata, duration and saved segments count",
		Long:  `Display tags, format, duration, file key and the number of saved segments for an audio file.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return app.showInfo(args[0])
		},
	}
}

func (app *Application) showInfo(path string) error {
	info, err := app.Extractor.GetFileInfo(path)
	if err != nil {
		return fmt.Errorf("❌ %w", err)
	}
	track := app.Extractor.ExtractFromFile(path)

	key, err := app.fileKey(path)
	if err != nil {
		return fmt.Errorf("❌ %w", err)
	}

	segs, err := app.Segments.LoadSegments(key)
	if err != nil && !errors.Is(err, storage.ErrCorrupt) {
		return fmt.Errorf("❌ %w", err)
	}

	fmt.Printf("🎵 %s\n", track.Display())
	fmt.Printf("   Исполнитель: %s\n", track.Artist)
	fmt.Printf("   Название: %s\n", track.Title)
	fmt.Printf("   Альбом: %s\n", track.Album)
	fmt.Printf("   Формат: %s\n", info.Format)
	fmt.Printf("   Размер: %s\n", utils.FormatFileSize(info.Size))
	fmt.Printf("   Продолжительность: %s\n", utils.FormatDuration(info.Duration))
	fmt.Printf("   Ключ: %s\n", key)
	fmt.Printf("   Сохраненных отрезков: %d\n", len(segs))
	if err != nil {
		fmt.Printf("⚠️  Библиотека отрезков повреждена: %v\n", err)
	}
	return nil
}
