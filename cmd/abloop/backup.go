package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/hazadus/go-abloop/internal/backup"
	"github.com/hazadus/go-abloop/internal/config"
)

// createBackupCommand создает группу команд backup
func (app *Application) createBackupCommand(ctx context.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Back up segments and settings to S3",
		Long:  `Push the segment library and settings to an S3 bucket, or pull them back and merge.`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "push",
		Short: "Upload segments.yaml and settings.yaml to S3",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			client, err := app.backupClient()
			if err != nil {
				return err
			}
			return app.pushBackup(ctx, client)
		},
	})

	var overwrite, withSettings bool
	pull := &cobra.Command{
		Use:   "pull",
		Short: "Download segments from S3 and merge them into the local library",
		Long: `Download the segment library from S3 and merge it into the local one.
Files missing locally are added; files present locally are kept unless --overwrite is set.`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			client, err := app.backupClient()
			if err != nil {
				return err
			}
			return app.pullBackup(ctx, client, overwrite, withSettings)
		},
	}
	pull.Flags().BoolVar(&overwrite, "overwrite", false, "replace local segments of files present in both libraries")
	pull.Flags().BoolVar(&withSettings, "settings", false, "also replace local settings")
	cmd.AddCommand(pull)

	return cmd
}

func (app *Application) backupClient() (*backup.Client, error) {
	if !app.Config.BackupConfigured() {
		return nil, fmt.Errorf("❌ резервное копирование не настроено: укажите aws_bucket_name и aws_region в %s", config.DefaultPath)
	}

	client, err := backup.NewClient(&backup.Config{
		Region:     app.Config.AwsRegion,
		AccessKey:  app.Config.AwsAccessKey,
		SecretKey:  app.Config.AwsSecretKey,
		Endpoint:   app.Config.AwsEndpoint,
		BucketName: app.Config.AwsBucketName,
		Prefix:     app.Config.BackupPrefix,
	})
	if err != nil {
		return nil, fmt.Errorf("❌ %w", err)
	}
	return client, nil
}

func (app *Application) pushBackup(ctx context.Context, client *backup.Client) error {
	files := []struct {
		path string
		name string
	}{
		{app.Segments.Path(), backup.SegmentsObject},
		{app.Settings.Path(), backup.SettingsObject},
	}

	pushed := 0
	for _, f := range files {
		info, err := os.Stat(f.path)
		if errors.Is(err, os.ErrNotExist) {
			fmt.Printf("⏭️  %s отсутствует, пропускаем\n", f.name)
			continue
		}
		if err != nil {
			return fmt.Errorf("❌ %w", err)
		}

		bar := progressbar.DefaultBytes(info.Size(), "📤 "+f.name)
		key, err := client.PushFile(ctx, f.path, f.name, bar)
		_ = bar.Finish()
		if err != nil {
			return fmt.Errorf("❌ %w", err)
		}

		app.Logger.Info("резервная копия загружена", "file", f.path, "key", key)
		fmt.Printf("✅ s3://%s/%s\n", app.Config.AwsBucketName, key)
		pushed++
	}

	if pushed == 0 {
		fmt.Println("📭 Нечего копировать: данные еще не созданы.")
	}
	return nil
}

func (app *Application) pullBackup(ctx context.Context, client *backup.Client, overwrite, withSettings bool) error {
	changed, err := client.PullSegments(ctx, app.Segments, overwrite)
	switch {
	case errors.Is(err, backup.ErrNotFound):
		fmt.Println("📭 В бакете нет библиотеки отрезков.")
	case err != nil:
		return fmt.Errorf("❌ %w", err)
	default:
		fmt.Printf("✅ Обновлено файлов: %d\n", changed)
	}

	if !withSettings {
		return nil
	}

	pulled, err := client.PullSettings(ctx, app.Settings)
	switch {
	case errors.Is(err, backup.ErrNotFound):
		fmt.Println("📭 В бакете нет настроек.")
	case err != nil:
		return fmt.Errorf("❌ %w", err)
	default:
		fmt.Printf("✅ Настройки восстановлены: громкость %d, папка %s\n", pulled.DefaultVolume, pulled.LastFolder)
	}
	return nil
}
