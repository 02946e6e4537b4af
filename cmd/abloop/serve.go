package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/hazadus/go-abloop/internal/remote"
	"github.com/hazadus/go-abloop/internal/session"
)

// createServeCommand создает команду serve с привязкой к экземпляру приложения
func (app *Application) createServeCommand(ctx context.Context) *cobra.Command {
	var listen string
	var origins []string

	cmd := &cobra.Command{
		Use:   "serve [file path]",
		Short: "Expose the player over HTTP and WebSocket",
		Long: `Start a headless player session and expose it over HTTP (GET /api/state,
POST /api/intents) and WebSocket (/api/ws) so another front-end can drive it.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			if listen == "" {
				listen = app.Config.ListenAddr
			}
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			return app.serve(ctx, path, listen, origins)
		},
	}

	cmd.Flags().StringVarP(&listen, "listen", "l", "", "address to listen on (default from config)")
	cmd.Flags().StringSliceVar(&origins, "allow-origin", nil, "allowed CORS origins")
	return cmd
}

func (app *Application) serve(ctx context.Context, path, listen string, origins []string) (err error) {
	sess, err := app.newSession()
	if err != nil {
		return fmt.Errorf("❌ звук недоступен: %w", err)
	}
	defer func() {
		if cerr := sess.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	if path != "" {
		if err := sess.Dispatch(session.OpenFile{Path: path}); err != nil {
			return fmt.Errorf("❌ не удалось открыть файл: %w", err)
		}
	}

	server := remote.NewServer(sess, remote.Options{
		AllowOrigins: origins,
		Logger:       app.Logger,
	})

	fmt.Printf("🌐 Сервер слушает http://%s\n", listen)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return sess.Run(gctx, app.Config.TickInterval())
	})
	g.Go(func() error {
		return server.ListenAndServe(gctx, listen)
	})
	return g.Wait()
}
