package generator

import "errors"

// DefaultModel は画像入出力に対応した Gemini モデルです。
const DefaultModel = "gemini-2.5-flash-image"

// ErrMissingAPIKey は API キー未設定時に通信前に返されるエラーです。
// メッセージはそのまま画面に表示されます。
var ErrMissingAPIKey = errors.New("API Key is missing. Please ensure it is configured.")

// Config は GeminiGenerator の設定です。
type Config struct {
	APIKey string
	Model  string
	Seed   *int64 // nil でランダム
}
