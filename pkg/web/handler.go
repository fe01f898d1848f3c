package web

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/shouni/headshot-studio/pkg/domain"
	"github.com/shouni/headshot-studio/pkg/session"
	"github.com/shouni/headshot-studio/pkg/upload"
)

//go:embed templates/*.html
var templateFS embed.FS

// SessionCookieName はセッションIDを保持する Cookie 名です。
const SessionCookieName = "headshot_session"

// ImageLoader はリクエストから元画像を取り込みます。
type ImageLoader interface {
	FromReader(r io.Reader, declaredType string) (*domain.SelectedImage, error)
	FromURL(ctx context.Context, rawURL string) (*domain.SelectedImage, error)
}

// Handler は画面・API の各エンドポイントを提供します。
type Handler struct {
	store          *session.Store
	loader         ImageLoader
	maxUploadBytes int64
	tmpl           *template.Template
}

// NewHandler は Handler を初期化し、埋め込みテンプレートを読み込みます。
func NewHandler(store *session.Store, loader ImageLoader, maxUploadBytes int64) (*Handler, error) {
	if store == nil {
		return nil, errors.New("store (session.Store) is required")
	}
	if loader == nil {
		return nil, errors.New("loader (ImageLoader) is required")
	}
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("テンプレートの読み込みに失敗しました: %w", err)
	}
	return &Handler{
		store:          store,
		loader:         loader,
		maxUploadBytes: maxUploadBytes,
		tmpl:           tmpl,
	}, nil
}

type styleOption struct {
	Name     string
	Selected bool
}

type pageData struct {
	Status         string
	Styles         []styleOption
	Preview        template.URL
	Result         template.URL
	Error          string
	UploadError    string
	LoadingMessage string
	Generating     bool
	CanGenerate    bool
	DownloadName   string
}

type statusResponse struct {
	Status         string `json:"status"`
	Style          string `json:"style"`
	LoadingIndex   int    `json:"loadingIndex"`
	LoadingMessage string `json:"loadingMessage,omitempty"`
	Error          string `json:"error,omitempty"`
	HasResult      bool   `json:"hasResult"`
	CanGenerate    bool   `json:"canGenerate"`
}

// Index は画面を表示します。セッションは作成しません。
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, h.snapshot(r), "")
}

// UploadImage は multipart の photo フィールド、または image_url から元画像を取り込みます。
// ファイルが選ばれていない場合は何もしません。
func (h *Handler) UploadImage(w http.ResponseWriter, r *http.Request) {
	o, err := h.session(w, r)
	if err != nil {
		h.sessionError(w, r, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	img, err := h.readImage(r)
	switch {
	case errors.Is(err, upload.ErrNoFile):
		redirectHome(w, r)
		return
	case err != nil:
		status := http.StatusBadRequest
		msg := "画像を読み込めませんでした"
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			status = http.StatusRequestEntityTooLarge
			msg = fmt.Sprintf("画像が大きすぎます（上限 %d バイト）", mbe.Limit)
		}
		slog.WarnContext(r.Context(), "画像の取り込みに失敗しました", "error", err)
		h.render(w, r, status, o.Snapshot(), msg)
		return
	}

	o.SetImage(*img)
	slog.InfoContext(r.Context(), "元画像を受け付けました", "media_type", img.MediaType, "encoded_len", len(img.EncodedData))
	redirectHome(w, r)
}

func (h *Handler) readImage(r *http.Request) (*domain.SelectedImage, error) {
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return nil, err
	}

	file, header, err := r.FormFile("photo")
	switch {
	case err == nil:
		defer file.Close()
		return h.loader.FromReader(file, header.Header.Get("Content-Type"))
	case !errors.Is(err, http.ErrMissingFile) && !errors.Is(err, http.ErrNotMultipart):
		return nil, err
	}

	if rawURL := strings.TrimSpace(r.FormValue("image_url")); rawURL != "" {
		return h.loader.FromURL(r.Context(), rawURL)
	}
	return nil, upload.ErrNoFile
}

// SetStyle はフォームの style を反映します。未知の値は 400 です。
func (h *Handler) SetStyle(w http.ResponseWriter, r *http.Request) {
	style, err := domain.ParseStyle(r.FormValue("style"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	o, err := h.session(w, r)
	if err != nil {
		h.sessionError(w, r, err)
		return
	}
	if err := o.SetStyle(style); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	redirectHome(w, r)
}

// Generate は生成を開始します。条件を満たさない場合は何もしません。
// 生成はリクエストから切り離したコンテキストで続行されます。
func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	o, ok := h.existing(r)
	if !ok {
		slog.InfoContext(r.Context(), "生成リクエストを無視しました", "reason", session.ErrNoImage)
		redirectHome(w, r)
		return
	}

	if _, err := o.Submit(context.WithoutCancel(r.Context())); err != nil {
		slog.InfoContext(r.Context(), "生成リクエストを無視しました", "reason", err)
	}
	redirectHome(w, r)
}

// Status は現在の状態を JSON で返します。生成中の画面から定期的に呼ばれます。
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	snap := h.snapshot(r)
	writeJSON(w, http.StatusOK, statusResponse{
		Status:         snap.Status.String(),
		Style:          snap.Style.String(),
		LoadingIndex:   snap.LoadingIndex,
		LoadingMessage: snap.LoadingMessage,
		Error:          snap.Error,
		HasResult:      snap.Result != nil,
		CanGenerate:    snap.CanGenerate,
	})
}

// Download は生成画像を PNG として返します。
func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	snap := h.snapshot(r)
	if snap.Result == nil {
		http.Error(w, "生成画像がありません", http.StatusNotFound)
		return
	}

	data, err := snap.Result.Bytes()
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", domain.GeneratedMediaType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", domain.DownloadFilename))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	_, _ = w.Write(data)
}

// Health はヘルスチェック用のエンドポイントです。
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "sessions": h.store.Len()})
}

// existing は Cookie のセッションを作成せずに探します。
func (h *Handler) existing(r *http.Request) (*session.Orchestrator, bool) {
	c, err := r.Cookie(SessionCookieName)
	if err != nil {
		return nil, false
	}
	return h.store.Lookup(c.Value)
}

// snapshot は既存セッションの状態を返します。セッションが無ければ初期状態です。
func (h *Handler) snapshot(r *http.Request) session.Snapshot {
	if o, ok := h.existing(r); ok {
		return o.Snapshot()
	}
	return session.IdleSnapshot()
}

// session は Cookie のセッションを取得し、新規作成した場合は Cookie を発行します。
// 状態を書き換えるリクエストだけが呼び出します。
func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*session.Orchestrator, error) {
	var current string
	if c, err := r.Cookie(SessionCookieName); err == nil {
		current = c.Value
	}
	id, o, err := h.store.Get(current)
	if err != nil {
		return nil, err
	}
	if id != current {
		http.SetCookie(w, &http.Cookie{
			Name:     SessionCookieName,
			Value:    id,
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}
	return o, nil
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, snap session.Snapshot, uploadErr string) {
	data := pageData{
		Status:         snap.Status.String(),
		Error:          snap.Error,
		UploadError:    uploadErr,
		LoadingMessage: snap.LoadingMessage,
		Generating:     snap.Status == domain.StatusGenerating,
		CanGenerate:    snap.CanGenerate,
		DownloadName:   domain.DownloadFilename,
		// data URI は html/template の URL サニタイズ対象外として扱う
		Preview: template.URL(snap.Preview),
	}
	if snap.Result != nil {
		data.Result = template.URL(snap.Result.DataURI)
	}
	for _, s := range domain.Styles() {
		data.Styles = append(data.Styles, styleOption{Name: s.String(), Selected: s == snap.Style})
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := h.tmpl.ExecuteTemplate(w, "index.html", data); err != nil {
		slog.ErrorContext(r.Context(), "画面の描画に失敗しました", "error", err)
	}
}

func (h *Handler) sessionError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, session.ErrStoreFull) {
		slog.WarnContext(r.Context(), "セッション数が上限に達しています", "sessions", h.store.Len())
		http.Error(w, "混み合っています。しばらくしてから再度お試しください", http.StatusServiceUnavailable)
		return
	}
	h.internalError(w, r, err)
}

func (h *Handler) internalError(w http.ResponseWriter, r *http.Request, err error) {
	slog.ErrorContext(r.Context(), "リクエストの処理に失敗しました", "path", r.URL.Path, "error", err)
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

func redirectHome(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
