package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shouni/headshot-studio/pkg/generator"
	"github.com/shouni/headshot-studio/pkg/session"
	"github.com/shouni/headshot-studio/pkg/upload"
	"github.com/shouni/headshot-studio/pkg/web"

	"github.com/shouni/go-http-kit/pkg/httpkit"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const (
	shutdownTimeout = 10 * time.Second
	sweepInterval   = time.Minute
	fetchTimeout    = 30 * time.Second
)

func newServeCmd(newClient generator.ClientFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the headshot web UI",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}

			gen, err := generator.NewGeminiGenerator(cfg.GeneratorConfig(), newClient)
			if err != nil {
				return err
			}
			if cfg.GeminiAPIKey == "" {
				slog.Warn("GEMINI_API_KEY が未設定です。生成時にエラーになります")
			}

			store := session.NewStore(gen, cfg.LoadingInterval, cfg.SessionTTL, session.WithMaxSessions(cfg.MaxSessions))
			defer store.Close()

			loader := upload.NewAdapter(
				upload.Options{
					Compress:    cfg.UploadCompress,
					JPEGQuality: cfg.UploadJPEGQuality,
					MaxBytes:    cfg.MaxUploadBytes,
				},
				httpkit.New(fetchTimeout),
			)
			handler, err := web.NewHandler(store, loader, cfg.MaxUploadBytes)
			if err != nil {
				return err
			}

			srv := web.NewServer(web.ServerConfig{
				Addr:         cfg.Addr(),
				ReadTimeout:  cfg.HTTPReadTimeout,
				WriteTimeout: cfg.HTTPWriteTimeout,
				IdleTimeout:  cfg.HTTPIdleTimeout,
			}, web.NewRouter(handler, logger))

			return run(cmd.Context(), srv, store)
		},
	}
}

// run はサーバーとセッションの掃除を並行して動かし、ctx の終了で停止します。
func run(ctx context.Context, srv *web.Server, store *session.Store) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("HTTP サーバーを起動します", "addr", srv.Addr())
		if err := srv.Start(); err != nil {
			return fmt.Errorf("HTTP サーバーが異常終了しました: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return store.Run(ctx, sweepInterval)
	})
	g.Go(func() error {
		<-ctx.Done()
		slog.Info("HTTP サーバーを停止します")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
