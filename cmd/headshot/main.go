package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/shouni/headshot-studio/pkg/config"
	"github.com/shouni/headshot-studio/pkg/generator"
	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(generator.NewGenAIClient, newIOFactory).ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(newClient generator.ClientFactory, newIO ioFactoryFunc) *cobra.Command {
	root := &cobra.Command{
		Use:          "headshot",
		Short:        "AI-powered professional headshot generator",
		SilenceUsage: true,
	}
	root.AddCommand(newServeCmd(newClient), newGenerateCmd(newClient, newIO))
	return root
}

// newLogger は LOG_FORMAT と LOG_LEVEL に従って slog のロガーを作成します。
func newLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}
	var h slog.Handler
	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	return slog.New(h)
}

// setup は設定を読み込み、デフォルトロガーを差し替えます。
func setup() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	logger := newLogger(cfg, os.Stderr)
	slog.SetDefault(logger)
	return cfg, logger, nil
}
