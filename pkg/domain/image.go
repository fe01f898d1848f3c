package domain

import (
	"encoding/base64"
	"fmt"
	"strings"
)

const (
	// DefaultMediaType はメディアタイプが判定できなかった場合に使うフォールバックです。
	DefaultMediaType = "image/png"
	// GeneratedMediaType は生成画像のデータURIに付与するメディアタイプです。
	GeneratedMediaType = "image/png"
	// DownloadFilename はダウンロード時に提示する固定ファイル名です。
	DownloadFilename = "pro-headshot.png"
)

// SelectedImage はユーザーが選択した元画像です。
// EncodedData はヘッダを含まない base64 文字列です。
type SelectedImage struct {
	EncodedData string
	MediaType   string
}

// DataURI はプレビュー表示用のデータURIを返します。
func (s SelectedImage) DataURI() string {
	return DataURI(s.MediaType, s.EncodedData)
}

// GeneratedImage はそのまま表示可能な生成画像（PNGのデータURI）です。
// 生成結果なしは nil で表現します。
type GeneratedImage struct {
	DataURI string
}

// NewGeneratedImage は生の画像バイト列を PNG データURIに包み直します。
func NewGeneratedImage(data []byte) *GeneratedImage {
	return &GeneratedImage{
		DataURI: DataURI(GeneratedMediaType, base64.StdEncoding.EncodeToString(data)),
	}
}

// EncodedData はデータURIからヘッダを除いた base64 部分を返します。
func (g *GeneratedImage) EncodedData() string {
	_, payload, ok := strings.Cut(g.DataURI, ",")
	if !ok {
		return ""
	}
	return payload
}

// Bytes はダウンロード用に base64 部分をデコードします。
func (g *GeneratedImage) Bytes() ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(g.EncodedData())
	if err != nil {
		return nil, fmt.Errorf("生成画像のデコードに失敗しました: %w", err)
	}
	return data, nil
}

// DataURI は mediaType と base64 ペイロードからデータURIを組み立てます。
func DataURI(mediaType, encoded string) string {
	return "data:" + mediaType + ";base64," + encoded
}
