package main

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shouni/headshot-studio/pkg/domain"
	"github.com/shouni/headshot-studio/pkg/generator"
	"github.com/shouni/headshot-studio/pkg/session"
	"github.com/shouni/headshot-studio/pkg/upload"
	"github.com/spf13/cobra"
)

func newGenerateCmd(newClient generator.ClientFactory, newIO ioFactoryFunc) *cobra.Command {
	var (
		input  string
		style  string
		output string
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate one headshot from a local, gs:// or s3:// photo",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := domain.ParseStyle(style)
			if err != nil {
				return err
			}
			cfg, _, err := setup()
			if err != nil {
				return err
			}

			gen, err := generator.NewGeminiGenerator(cfg.GeneratorConfig(), newClient)
			if err != nil {
				return err
			}
			o, err := session.NewOrchestrator(gen, cfg.LoadingInterval)
			if err != nil {
				return err
			}
			defer o.Close()

			ctx := cmd.Context()
			remote := &storage{newIO: newIO}
			defer remote.Close()

			reader, err := remote.reader(ctx, input)
			if err != nil {
				return err
			}
			loader := upload.NewAdapter(upload.Options{Compress: cfg.UploadCompress, JPEGQuality: cfg.UploadJPEGQuality}, nil)
			img, err := loader.FromFile(ctx, reader, input)
			if err != nil {
				return fmt.Errorf("元画像の読み込みに失敗しました: %w", err)
			}
			o.SetImage(*img)
			if err := o.SetStyle(st); err != nil {
				return err
			}

			slog.Info("ヘッドショットを生成します", "input", input, "style", st.String(), "model", gen.Model())
			if err := o.Generate(ctx); err != nil {
				return err
			}

			snap := o.Snapshot()
			if snap.Status != domain.StatusSuccess {
				return errors.New(snap.Error)
			}
			data, err := snap.Result.Bytes()
			if err != nil {
				return err
			}
			writer, err := remote.writer(ctx, output)
			if err != nil {
				return err
			}
			if err := writer.Write(ctx, output, bytes.NewReader(data), domain.GeneratedMediaType); err != nil {
				return fmt.Errorf("出力ファイルの書き込みに失敗しました: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\n", output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "source photo path or gs:// / s3:// URI")
	cmd.Flags().StringVarP(&style, "style", "s", domain.DefaultStyle.String(), "style preset")
	cmd.Flags().StringVarP(&output, "output", "o", domain.DownloadFilename, "output PNG path or gs:// / s3:// URI")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}
