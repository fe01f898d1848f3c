package generator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/shouni/headshot-studio/pkg/domain"
	"google.golang.org/genai"
)

// GeminiGenerator は Gemini の画像モデルでヘッドショットを生成するアダプターです。
// genai クライアントは最初の生成時に一度だけ作成します。
type GeminiGenerator struct {
	cfg       Config
	newClient ClientFactory

	mu     sync.Mutex
	client ContentGenerator
}

// NewGeminiGenerator は設定とクライアントファクトリを注入して初期化します。
func NewGeminiGenerator(cfg Config, newClient ClientFactory) (*GeminiGenerator, error) {
	if newClient == nil {
		return nil, fmt.Errorf("newClient (ClientFactory) is required")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	return &GeminiGenerator{
		cfg:       cfg,
		newClient: newClient,
	}, nil
}

// NewGenAIClient は Gemini API バックエンドの genai クライアントを作成します。
func NewGenAIClient(ctx context.Context, apiKey string) (ContentGenerator, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}
	return client.Models, nil
}

// Model は使用するモデル名を返します。
func (g *GeminiGenerator) Model() string {
	return g.cfg.Model
}

// Generate は元画像と指示文を1回のリクエストで送り、最初の画像パーツを返します。
// 通信エラーはラップせずにそのまま返します。
func (g *GeminiGenerator) Generate(ctx context.Context, img domain.SelectedImage, style domain.Style) (*domain.GeneratedImage, error) {
	client, err := g.aiClient(ctx)
	if err != nil {
		return nil, err
	}

	imgPart, err := toPart(img)
	if err != nil {
		return nil, err
	}
	parts := []*genai.Part{imgPart, {Text: BuildPrompt(style)}}
	contents := []*genai.Content{{Role: "user", Parts: parts}}

	var config *genai.GenerateContentConfig
	if g.cfg.Seed != nil {
		config = &genai.GenerateContentConfig{Seed: seedToPtrInt32(g.cfg.Seed)}
	}

	slog.InfoContext(ctx, "Geminiにヘッドショット生成をリクエストします",
		"model", g.cfg.Model, "style", style.String(), "mime_type", img.MediaType)

	resp, err := client.GenerateContent(ctx, g.cfg.Model, contents, config)
	if err != nil {
		return nil, err
	}
	return parseToResponse(ctx, resp), nil
}

// aiClient は API キーを確認した上でクライアントを返します。
// キーが無い場合はクライアントを作らずに ErrMissingAPIKey を返します。
func (g *GeminiGenerator) aiClient(ctx context.Context) (ContentGenerator, error) {
	if g.cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.client != nil {
		return g.client, nil
	}
	client, err := g.newClient(ctx, g.cfg.APIKey)
	if err != nil {
		return nil, err
	}
	g.client = client
	return client, nil
}

var _ ImageGenerator = (*GeminiGenerator)(nil)
