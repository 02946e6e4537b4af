package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/hazadus/go-abloop/internal/segment"
	"github.com/hazadus/go-abloop/internal/storage"
	"github.com/hazadus/go-abloop/internal/utils"
)

// createSegmentsCommand создает группу команд segments
func (app *Application) createSegmentsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "segments",
		Short: "Manage saved segments without opening the player",
	}

	cmd.AddCommand(app.createSegmentsListCommand())
	cmd.AddCommand(app.createSegmentsAddCommand())
	cmd.AddCommand(app.createSegmentsRemoveCommand())
	cmd.AddCommand(app.createSegmentsFilesCommand())
	return cmd
}

func (app *Application) createSegmentsListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list [file path]",
		Short: "List segments saved for a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return app.listSegments(args[0])
		},
	}
}

func (app *Application) createSegmentsAddCommand() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "add [file path] [start] [end]",
		Short: "Save a segment for a file",
		Long: `Save a named segment for a file. Start and end accept seconds ("90"),
minutes ("1:30"), milliseconds ("1:30.250") or hours ("01:02:03").`,
		Args: cobra.ExactArgs(3),
		RunE: func(_ *cobra.Command, args []string) error {
			return app.addSegment(args[0], args[1], args[2], name)
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "segment name (default \"Segment N\")")
	return cmd
}

func (app *Application) createSegmentsRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "remove [file path] [id or name]",
		Short: "Remove a saved segment",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			return app.removeSegment(args[0], args[1])
		},
	}
}

func (app *Application) createSegmentsFilesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "files",
		Short: "List files that have saved segments",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return app.listSegmentFiles()
		},
	}
}

// loadManager загружает отрезки файла в менеджер
func (app *Application) loadManager(path string) (*segment.Manager, string, error) {
	key, err := app.fileKey(path)
	if err != nil {
		return nil, "", fmt.Errorf("❌ %w", err)
	}

	segs, err := app.Segments.LoadSegments(key)
	if err != nil {
		if !errors.Is(err, storage.ErrCorrupt) {
			return nil, "", fmt.Errorf("❌ %w", err)
		}
		fmt.Printf("⚠️  Часть отрезков не загружена: %v\n", err)
	}

	manager := segment.NewManager()
	for _, rejected := range manager.Replace(segs) {
		app.Logger.Warn("отрезок пропущен", "path", path, "error", rejected)
	}
	return manager, key, nil
}

func (app *Application) listSegments(path string) error {
	manager, _, err := app.loadManager(path)
	if err != nil {
		return err
	}

	if manager.Len() == 0 {
		fmt.Println("📭 Для этого файла нет сохраненных отрезков.")
		return nil
	}

	fmt.Printf("✂️  Найдено отрезков: %d\n\n", manager.Len())

	// Выводим заголовок таблицы
	fmt.Printf("%-36s  %-30s %-10s %-10s %s\n", "ID", "Название", "Начало", "Конец", "Длина")
	fmt.Println(strings.Repeat("-", 104))

	for _, s := range manager.List() {
		fmt.Printf("%-36s  %-30s %-10s %-10s %s\n",
			s.ID,
			utils.TruncateString(s.Name, 30),
			utils.FormatPrecise(s.Start),
			utils.FormatPrecise(s.End),
			utils.FormatDuration(s.Duration()))
	}
	return nil
}

func (app *Application) addSegment(path, startArg, endArg, name string) error {
	start, err := utils.ParseTimestamp(startArg)
	if err != nil {
		return fmt.Errorf("❌ начало: %w", err)
	}
	end, err := utils.ParseTimestamp(endArg)
	if err != nil {
		return fmt.Errorf("❌ конец: %w", err)
	}

	duration, err := app.Extractor.GetDuration(path)
	if err != nil {
		return fmt.Errorf("❌ %w", err)
	}
	if end > duration {
		return fmt.Errorf("❌ %w: конец %s за пределами файла (%s)",
			segment.ErrInvalidRange, utils.FormatPrecise(end), utils.FormatPrecise(duration))
	}

	manager, key, err := app.loadManager(path)
	if err != nil {
		return err
	}

	seg, err := segment.New(name, start, end)
	if err != nil {
		return fmt.Errorf("❌ %w", err)
	}
	id, err := manager.Add(seg)
	if err != nil {
		return fmt.Errorf("❌ %w", err)
	}

	if err := app.Segments.SaveSegments(key, path, manager.List()); err != nil {
		return fmt.Errorf("❌ %w", err)
	}

	added, _ := manager.Get(id)
	fmt.Printf("✅ Отрезок %q сохранен: %s - %s\n", added.Name, utils.FormatPrecise(added.Start), utils.FormatPrecise(added.End))
	return nil
}

func (app *Application) removeSegment(path, ref string) error {
	manager, key, err := app.loadManager(path)
	if err != nil {
		return err
	}

	seg, ok := manager.Get(ref)
	if !ok {
		seg, ok = manager.FindByName(ref)
	}
	if !ok {
		return fmt.Errorf("❌ %w: %s", segment.ErrNotFound, ref)
	}

	manager.Remove(seg.ID)
	if err := app.Segments.SaveSegments(key, path, manager.List()); err != nil {
		return fmt.Errorf("❌ %w", err)
	}

	fmt.Printf("🗑️  Отрезок %q удален\n", seg.Name)
	return nil
}

func (app *Application) listSegmentFiles() error {
	lib, err := app.Segments.LoadLibrary()
	if err != nil {
		return fmt.Errorf("❌ %w", err)
	}

	if len(lib.Files) == 0 {
		fmt.Println("📚 Библиотека пуста. Сохраните отрезок в плеере или командой 'segments add'.")
		return nil
	}

	total := lo.SumBy(lo.Values(lib.Files), func(e storage.FileEntry) int { return len(e.Segments) })
	fmt.Printf("📚 Файлов: %d, отрезков: %d\n\n", len(lib.Files), total)

	for _, key := range lib.Keys() {
		entry := lib.Files[key]
		fmt.Printf("%-50s %3d  %s\n",
			utils.TruncateString(entry.Path, 50),
			len(entry.Segments),
			entry.UpdatedAt.Local().Format("2006-01-02 15:04"))
	}
	return nil
}
