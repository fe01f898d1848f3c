package session

import (
	"context"
	"errors"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/shouni/headshot-studio/pkg/domain"
	"github.com/shouni/headshot-studio/pkg/generator"
)

var (
	// ErrNoImage は元画像が未選択のまま生成しようとした場合のエラーです。
	ErrNoImage = errors.New("no source image selected")
	// ErrInProgress は生成中に再度生成しようとした場合のエラーです。
	ErrInProgress = errors.New("generation already in progress")
	// ErrClosed は破棄済みのオーケストレーターを操作した場合のエラーです。
	ErrClosed = errors.New("session closed")

	errGeneratePanic = errors.New("generator panicked")
)

// DefaultLoadingInterval はローディングメッセージの切り替え間隔です。
const DefaultLoadingInterval = 3 * time.Second

// Orchestrator は1セッション分の生成ライフサイクル（選択画像、スタイル、状態、結果）を管理します。
// 同時に走る生成リクエストは最大1つです。
type Orchestrator struct {
	gen             generator.ImageGenerator
	loadingInterval time.Duration

	mu        sync.Mutex
	image     *domain.SelectedImage
	style     domain.Style
	status    domain.Status
	result    *domain.GeneratedImage
	errMsg    string
	carousel  *carousel
	closed    bool
	touchedAt time.Time
}

// NewOrchestrator は生成アダプターを注入して Orchestrator を初期化します。
// loadingInterval が 0 以下ならデフォルト値を使います。
func NewOrchestrator(gen generator.ImageGenerator, loadingInterval time.Duration) (*Orchestrator, error) {
	if gen == nil {
		return nil, errors.New("gen (generator.ImageGenerator) is required")
	}
	if loadingInterval <= 0 {
		loadingInterval = DefaultLoadingInterval
	}
	return &Orchestrator{
		gen:             gen,
		loadingInterval: loadingInterval,
		style:           domain.DefaultStyle,
		status:          domain.StatusIdle,
		touchedAt:       time.Now(),
	}, nil
}

// SetImage は元画像を差し替え、前回の生成結果とエラーを消去します。
func (o *Orchestrator) SetImage(img domain.SelectedImage) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.image = &img
	o.result = nil
	o.errMsg = ""
	o.touchedAt = time.Now()
}

// SetStyle はスタイルを変更します。
func (o *Orchestrator) SetStyle(style domain.Style) error {
	if !style.Valid() {
		return domain.ErrUnknownStyle
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.style = style
	o.touchedAt = time.Now()
	return nil
}

// Submit は前提条件を確認して Generating に遷移し、生成をバックグラウンドで開始します。
// 返されるチャネルは結果が確定した時点で閉じられます。
// 条件を満たさない場合は状態を一切変えずにエラーを返します。
func (o *Orchestrator) Submit(ctx context.Context) (<-chan struct{}, error) {
	o.mu.Lock()
	switch {
	case o.closed:
		o.mu.Unlock()
		return nil, ErrClosed
	case o.image == nil:
		o.mu.Unlock()
		return nil, ErrNoImage
	case o.status == domain.StatusGenerating:
		o.mu.Unlock()
		return nil, ErrInProgress
	}

	img, style := *o.image, o.style
	o.status = domain.StatusGenerating
	o.errMsg = ""
	o.touchedAt = time.Now()
	o.carousel = startCarousel(o.loadingInterval)
	o.mu.Unlock()

	done := make(chan struct{})
	go func() {
		defer close(done)
		result, err := o.generate(ctx, img, style)
		o.settle(ctx, result, err)
	}()
	return done, nil
}

// generate はアダプターの panic を errGeneratePanic に変換します。表示は汎用メッセージになります。
func (o *Orchestrator) generate(ctx context.Context, img domain.SelectedImage, style domain.Style) (result *domain.GeneratedImage, err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "生成中に panic が発生しました", "panic", r, "stack", string(debug.Stack()))
			result, err = nil, errGeneratePanic
		}
	}()
	return o.gen.Generate(ctx, img, style)
}

// Generate は Submit して結果が確定するまで待ちます。
func (o *Orchestrator) Generate(ctx context.Context) error {
	done, err := o.Submit(ctx)
	if err != nil {
		return err
	}
	<-done
	return nil
}

// settle は生成結果を状態に反映し、ローディング表示を止めます。
func (o *Orchestrator) settle(ctx context.Context, result *domain.GeneratedImage, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.stopCarouselLocked()
	o.touchedAt = time.Now()

	switch {
	case err != nil:
		slog.ErrorContext(ctx, "ヘッドショットの生成に失敗しました", "error", err)
		o.errMsg = err.Error()
		if o.errMsg == "" || errors.Is(err, errGeneratePanic) {
			o.errMsg = domain.MsgGenericFailure
		}
		o.status = domain.StatusError
	case result == nil:
		slog.WarnContext(ctx, "画像が生成されませんでした")
		o.errMsg = domain.MsgNoImageGenerated
		o.status = domain.StatusError
	default:
		o.result = result
		o.status = domain.StatusSuccess
	}
}

// Close はローディング表示のタイマーを解放し、以降の生成を拒否します。
// 実行中のリクエストは中断しません。
func (o *Orchestrator) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.closed = true
	o.stopCarouselLocked()
}

func (o *Orchestrator) stopCarouselLocked() {
	if o.carousel != nil {
		o.carousel.stop()
		o.carousel = nil
	}
}

// Snapshot は表示用に現在の状態を複製して返します。
func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()

	s := Snapshot{
		Status:      o.status,
		Style:       o.style,
		Result:      o.result,
		Error:       o.errMsg,
		CanGenerate: o.image != nil && o.status != domain.StatusGenerating && !o.closed,
	}
	if o.image != nil {
		s.Preview = o.image.DataURI()
	}
	if o.carousel != nil {
		s.LoadingIndex = o.carousel.index()
		s.LoadingMessage = domain.LoadingMessages[s.LoadingIndex]
	}
	return s
}

// expired は cutoff 以降操作されておらず、生成中でもない場合に true を返します。
func (o *Orchestrator) expired(cutoff time.Time) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.status != domain.StatusGenerating && o.touchedAt.Before(cutoff)
}

// IdleSnapshot はセッションがまだ作られていない利用者に見せる初期状態です。
func IdleSnapshot() Snapshot {
	return Snapshot{Status: domain.StatusIdle, Style: domain.DefaultStyle}
}

// Snapshot は Orchestrator のある時点の状態です。
type Snapshot struct {
	Status         domain.Status
	Style          domain.Style
	Preview        string
	Result         *domain.GeneratedImage
	Error          string
	LoadingIndex   int
	LoadingMessage string
	CanGenerate    bool
}
