package upload

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/shouni/headshot-studio/pkg/domain"
	"github.com/shouni/headshot-studio/pkg/imgutil"

	"github.com/shouni/go-http-kit/pkg/httpkit"
	"github.com/shouni/go-remote-io/pkg/remoteio"
)

// ErrNoFile はファイルが選ばれていない（空の入力）ことを示します。呼び出し側では何もしません。
var ErrNoFile = errors.New("no file selected")

// ErrInvalidDataURI はデータURIの形式が不正な場合のエラーです。
var ErrInvalidDataURI = errors.New("invalid data URI")

// HTTPClient は、URLからデータを取得するためのインターフェースです。
// httpkit.Client は接続直前にも解決先 IP を検証します。
type HTTPClient interface {
	FetchBytes(ctx context.Context, url string) ([]byte, error)
	IsSafeURL(urlStr string) (bool, error)
}

var _ HTTPClient = (*httpkit.Client)(nil)

// Options はアップロード画像の前処理設定です。
type Options struct {
	Compress    bool // true なら JPEG に再圧縮する
	JPEGQuality int
	MaxBytes    int64 // FromURL で受け付ける最大サイズ。0 なら無制限
}

// Adapter はユーザーが選んだ画像を base64 とメディアタイプの組に変換します。
type Adapter struct {
	opts       Options
	httpClient HTTPClient
}

// NewAdapter は Adapter を初期化します。httpClient が nil の場合 FromURL は使えません。
func NewAdapter(opts Options, httpClient HTTPClient) *Adapter {
	return &Adapter{opts: opts, httpClient: httpClient}
}

// FromReader は r の内容をすべて読み込み SelectedImage を作ります。
// declaredType はブラウザが申告した Content-Type で、判定のヒントとしてだけ使います。
func (a *Adapter) FromReader(r io.Reader, declaredType string) (*domain.SelectedImage, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("画像の読み込みに失敗しました: %w", err)
	}
	return a.fromBytes(data, declaredType)
}

// FromFile はローカルファイル、または reader が扱える gs:// や s3:// のオブジェクトから SelectedImage を作ります。
// reader が nil ならローカルファイルだけを読みます。
func (a *Adapter) FromFile(ctx context.Context, reader remoteio.InputReader, path string) (*domain.SelectedImage, error) {
	if reader == nil {
		if remoteio.IsRemoteURI(path) {
			return nil, fmt.Errorf("リモートの入力を読むクライアントがありません: %s", path)
		}
		reader = remoteio.NewUniversalInputReader(nil, nil)
	}
	rc, err := reader.Open(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("画像ファイルを開けません: %w", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("画像の読み込みに失敗しました: %w", err)
	}
	return a.fromBytes(data, mime.TypeByExtension(filepath.Ext(path)))
}

// FromDataURI は "data:<mime>;base64,<data>" 形式の文字列から SelectedImage を作ります。
func (a *Adapter) FromDataURI(uri string) (*domain.SelectedImage, error) {
	if uri == "" {
		return nil, ErrNoFile
	}
	encoded, mediaType, err := ParseDataURI(uri)
	if err != nil {
		return nil, err
	}
	if !a.opts.Compress {
		return &domain.SelectedImage{EncodedData: encoded, MediaType: mediaType}, nil
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDataURI, err)
	}
	return a.fromBytes(data, mediaType)
}

// FromURL はリモートの画像を取得して SelectedImage を作ります。
// プライベートネットワーク宛ての URL は取得前に拒否します。
func (a *Adapter) FromURL(ctx context.Context, rawURL string) (*domain.SelectedImage, error) {
	if a.httpClient == nil {
		return nil, fmt.Errorf("URLからの取得は無効です")
	}
	if u, err := url.Parse(rawURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, fmt.Errorf("http(s) 以外のURLは取得できません: %s", rawURL)
	}
	safe, err := a.httpClient.IsSafeURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("URLの検証に失敗しました: %w", err)
	}
	if !safe {
		return nil, fmt.Errorf("安全ではないURLが指定されました: %s", rawURL)
	}
	data, err := a.httpClient.FetchBytes(ctx, rawURL)
	if err != nil {
		return nil, fmt.Errorf("画像のダウンロードに失敗しました: %w", err)
	}
	if a.opts.MaxBytes > 0 && int64(len(data)) > a.opts.MaxBytes {
		return nil, fmt.Errorf("画像サイズが上限 (%d bytes) を超えています", a.opts.MaxBytes)
	}
	return a.fromBytes(data, "")
}

func (a *Adapter) fromBytes(data []byte, declaredType string) (*domain.SelectedImage, error) {
	if len(data) == 0 {
		return nil, ErrNoFile
	}

	mediaType := DetectMediaType(data, declaredType)
	if a.opts.Compress {
		if compressed, err := imgutil.CompressToJPEG(data, a.opts.JPEGQuality); err == nil {
			data = compressed
			mediaType = imgutil.JPEGMediaType
		} else {
			slog.Warn("画像の再圧縮に失敗しました。元データのまま続行します", "media_type", mediaType, "error", err)
		}
	}

	return &domain.SelectedImage{
		EncodedData: base64.StdEncoding.EncodeToString(data),
		MediaType:   mediaType,
	}, nil
}

// DetectMediaType はバイト列から画像のメディアタイプを判定します。
// 判定できない場合は declaredType、それも画像でなければ image/png を返します。
func DetectMediaType(data []byte, declaredType string) string {
	if sniffed := http.DetectContentType(data); strings.HasPrefix(sniffed, "image/") {
		return sniffed
	}
	if format, err := imgutil.Format(data); err == nil {
		return "image/" + format
	}
	if mt, _, err := mime.ParseMediaType(declaredType); err == nil && strings.HasPrefix(mt, "image/") {
		return mt
	}
	return domain.DefaultMediaType
}

// ParseDataURI はデータURIを base64 部分とメディアタイプに分解します。
// ヘッダからメディアタイプが取れない場合は image/png を使います。
func ParseDataURI(uri string) (encoded, mediaType string, err error) {
	header, payload, ok := strings.Cut(uri, ",")
	if !ok || !strings.HasPrefix(header, "data:") {
		return "", "", ErrInvalidDataURI
	}
	if !strings.HasSuffix(header, ";base64") {
		return "", "", fmt.Errorf("%w: base64 エンコードではありません", ErrInvalidDataURI)
	}

	mediaType = strings.TrimSuffix(strings.TrimPrefix(header, "data:"), ";base64")
	if mt, _, perr := mime.ParseMediaType(mediaType); perr == nil && mt != "" {
		mediaType = mt
	} else {
		mediaType = domain.DefaultMediaType
	}

	if payload == "" {
		return "", "", ErrNoFile
	}
	if _, derr := base64.StdEncoding.DecodeString(payload); derr != nil {
		return "", "", fmt.Errorf("%w: %v", ErrInvalidDataURI, derr)
	}
	return payload, mediaType, nil
}
