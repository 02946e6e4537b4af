package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/hazadus/go-abloop/internal/settings"
	"github.com/hazadus/go-abloop/internal/storage"
)

// createSettingsCommand создает группу команд settings
func (app *Application) createSettingsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change user settings",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current settings",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return app.showSettings()
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set [key] [value]",
		Short: "Change a setting (default_volume, last_folder)",
		Long: `Change a setting. A running player picks up the change automatically.
Keys: default_volume (0-100), last_folder (path).`,
		Args: cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			return app.setSetting(args[0], args[1])
		},
	})

	return cmd
}

func (app *Application) loadSettings() settings.Settings {
	current, err := app.Settings.Load()
	if err != nil && errors.Is(err, storage.ErrCorrupt) {
		fmt.Printf("⚠️  Файл настроек поврежден, используются значения по умолчанию: %v\n", err)
	} else if err != nil {
		fmt.Printf("⚠️  Настройки не загружены: %v\n", err)
	}
	return current
}

func (app *Application) showSettings() error {
	current := app.loadSettings()

	fmt.Printf("⚙️  Настройки (%s)\n", app.Settings.Path())
	fmt.Printf("   default_volume: %d\n", current.DefaultVolume)
	fmt.Printf("   last_folder: %s\n", current.LastFolder)
	return nil
}

func (app *Application) setSetting(key, value string) error {
	current := app.loadSettings()

	switch key {
	case "default_volume":
		volume, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("❌ громкость должна быть числом: %q", value)
		}
		current.DefaultVolume = settings.ClampVolume(volume)
	case "last_folder":
		path, err := storage.ExpandPath(value)
		if err != nil {
			return fmt.Errorf("❌ %w", err)
		}
		current.LastFolder = path
	default:
		return fmt.Errorf("❌ неизвестная настройка: %q (доступны default_volume, last_folder)", key)
	}

	if err := app.Settings.Save(current); err != nil {
		return fmt.Errorf("❌ %w", err)
	}

	fmt.Printf("✅ %s = %s\n", key, value)
	return nil
}
