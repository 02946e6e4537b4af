package main

import (
	"bytes"
	"context"

	"github.com/spf13/cobra"
)

// createRootCommand создает корневую команду с настроенными подкомандами
func (app *Application) createRootCommand(ctx context.Context) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "abloop",
		Short: "Practice audio passages with A-B loops",
		Long: `abloop plays local audio files (mp3, wav, flac, ogg), loops the section between
two marked points and remembers named segments for every file.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// Интерфейс занимает терминал, поэтому play пишет журнал только в файл
			return app.setupLogging(cmd.Name() != "play")
		},
	}

	// Добавляем команды, передавая в них экземпляр приложения и контекст
	rootCmd.AddCommand(app.createPlayCommand(ctx))
	rootCmd.AddCommand(app.createServeCommand(ctx))
	rootCmd.AddCommand(app.createInfoCommand())
	rootCmd.AddCommand(app.createSegmentsCommand())
	rootCmd.AddCommand(app.createSettingsCommand())
	rootCmd.AddCommand(app.createBackupCommand(ctx))

	return rootCmd
}

func containsAny(p []byte, subs ...string) bool {
	for _, s := range subs {
		if bytes.Contains(p, []byte(s)) {
			return true
		}
	}
	return false
}
