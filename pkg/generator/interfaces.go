package generator

import (
	"context"

	"github.com/shouni/headshot-studio/pkg/domain"
	"google.golang.org/genai"
)

// ImageGenerator はオーケストレーターが利用する統合窓口です。
type ImageGenerator interface {
	// Generate は元画像とスタイルからヘッドショットを生成します。
	// 画像パーツが返らなかった場合は nil, nil を返します。
	Generate(ctx context.Context, img domain.SelectedImage, style domain.Style) (*domain.GeneratedImage, error)
}

// ContentGenerator は genai の Models が満たす最小限の通信インターフェースです。
type ContentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// ClientFactory は API キーから ContentGenerator を作成します。
type ClientFactory func(ctx context.Context, apiKey string) (ContentGenerator, error)
