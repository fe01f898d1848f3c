package generator

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"

	"github.com/shouni/headshot-studio/pkg/domain"
	"google.golang.org/genai"
)

// toPart は base64 の元画像を InlineData パーツに変換します。
func toPart(img domain.SelectedImage) (*genai.Part, error) {
	data, err := base64.StdEncoding.DecodeString(img.EncodedData)
	if err != nil {
		return nil, fmt.Errorf("元画像の base64 デコードに失敗しました: %w", err)
	}
	mimeType := img.MediaType
	if mimeType == "" {
		mimeType = domain.DefaultMediaType
	}
	return &genai.Part{InlineData: &genai.Blob{MIMEType: mimeType, Data: data}}, nil
}

// parseToResponse は最初の候補のパーツを順に走査し、最初の画像データを PNG データURIとして返します。
// 画像が無ければ nil です（エラーではありません）。
func parseToResponse(ctx context.Context, resp *genai.GenerateContentResponse) *domain.GeneratedImage {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0] == nil {
		slog.WarnContext(ctx, "Geminiからの候補がありませんでした")
		return nil
	}

	// 最初の候補 (Candidate) のみを利用する。
	candidate := resp.Candidates[0]
	if candidate.Content != nil {
		for _, part := range candidate.Content.Parts {
			if part != nil && part.InlineData != nil && len(part.InlineData.Data) > 0 {
				return domain.NewGeneratedImage(part.InlineData.Data)
			}
		}
	}

	// 安全フィルター等によるブロックはログに残すだけ
	switch candidate.FinishReason {
	case "", genai.FinishReasonUnspecified, genai.FinishReasonStop:
		slog.WarnContext(ctx, "画像データが見つかりませんでした")
	default:
		slog.WarnContext(ctx, "画像生成が異常終了しました", "finish_reason", candidate.FinishReason)
	}
	return nil
}
