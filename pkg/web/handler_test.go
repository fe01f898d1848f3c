package web

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/shouni/headshot-studio/pkg/domain"
	"github.com/shouni/headshot-studio/pkg/session"
	"github.com/shouni/headshot-studio/pkg/upload"

	"github.com/shouni/go-http-kit/pkg/httpkit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	gen    *mockGenerator
	store  *session.Store
	server *httptest.Server
	client *http.Client
}

func newTestEnv(t *testing.T, gen *mockGenerator, maxUpload int64, opts ...session.StoreOption) *testEnv {
	t.Helper()
	store := session.NewStore(gen, 5*time.Millisecond, time.Minute, opts...)
	h, err := NewHandler(store, upload.NewAdapter(upload.Options{MaxBytes: maxUpload}, httpkit.New(time.Second)), maxUpload)
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := httptest.NewServer(NewRouter(h, logger))

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	client := &http.Client{
		Jar: jar,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	t.Cleanup(func() {
		srv.Close()
		store.Close()
	})
	return &testEnv{gen: gen, store: store, server: srv, client: client}
}

func (e *testEnv) get(t *testing.T, path string) (*http.Response, string) {
	t.Helper()
	resp, err := e.client.Get(e.server.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func (e *testEnv) postForm(t *testing.T, path string, form url.Values) *http.Response {
	t.Helper()
	resp, err := e.client.PostForm(e.server.URL+path, form)
	require.NoError(t, err)
	resp.Body.Close()
	return resp
}

func (e *testEnv) uploadPhoto(t *testing.T, data []byte) (*http.Response, string) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("photo", "selfie.png")
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	resp, err := e.client.Post(e.server.URL+"/image", mw.FormDataContentType(), &body)
	require.NoError(t, err)
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(b)
}

func (e *testEnv) status(t *testing.T) statusResponse {
	t.Helper()
	resp, body := e.get(t, "/status")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var s statusResponse
	require.NoError(t, json.Unmarshal([]byte(body), &s))
	return s
}

func TestIndex(t *testing.T) {
	env := newTestEnv(t, &mockGenerator{}, 1<<20)

	resp, body := env.get(t, "/")

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, resp.Header.Get("Set-Cookie"), "表示だけではセッションを作らないのだ")
	for _, s := range domain.Styles() {
		assert.Contains(t, body, s.String())
	}
	assert.Contains(t, body, `value="Corporate Executive" class="selected"`)
	assert.Contains(t, body, "Generate My Headshot")
	assert.Contains(t, body, `class="generate" disabled`, "画像未選択では生成ボタンが無効なのだ")

	for _, path := range []string{"/", "/status", "/download"} {
		_, _ = env.get(t, path)
	}
	env.postForm(t, "/generate", nil)
	assert.Zero(t, env.store.Len(), "読み取りと空の生成ではセッションが増えない")

	env.uploadPhoto(t, pngBytes(t))
	assert.Equal(t, 1, env.store.Len())
	_, _ = env.get(t, "/")
	env.uploadPhoto(t, pngBytes(t))
	assert.Equal(t, 1, env.store.Len(), "同じ Cookie なら同じセッションを使うのだ")
}

func TestSessionLimit(t *testing.T) {
	env := newTestEnv(t, &mockGenerator{}, 1<<20, session.WithMaxSessions(1))

	resp, _ := env.uploadPhoto(t, pngBytes(t))
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)

	other := &http.Client{CheckRedirect: env.client.CheckRedirect}
	resp, err := other.PostForm(env.server.URL+"/style", url.Values{"style": {"Tech Entrepreneur"}})
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, 1, env.store.Len())
	assert.True(t, env.status(t).CanGenerate, "既存のセッションはそのまま使えるのだ")
}

func TestUploadImage(t *testing.T) {
	t.Run("写真を選ぶとプレビューが表示され生成可能になる", func(t *testing.T) {
		env := newTestEnv(t, &mockGenerator{}, 1<<20)

		resp, _ := env.uploadPhoto(t, pngBytes(t))
		assert.Equal(t, http.StatusSeeOther, resp.StatusCode)

		_, body := env.get(t, "/")
		assert.Contains(t, body, `src="data:image/png;base64,`)
		assert.True(t, env.status(t).CanGenerate)
	})

	t.Run("ファイル未選択は何もしないのだ", func(t *testing.T) {
		env := newTestEnv(t, &mockGenerator{}, 1<<20)

		resp, _ := env.uploadPhoto(t, nil)
		assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
		assert.False(t, env.status(t).CanGenerate)

		resp = env.postForm(t, "/image", url.Values{})
		assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
		assert.False(t, env.status(t).CanGenerate)
	})

	t.Run("上限を超える画像はエラーを表示する", func(t *testing.T) {
		env := newTestEnv(t, &mockGenerator{}, 512)

		resp, body := env.uploadPhoto(t, bytes.Repeat([]byte{0xff}, 4096))
		assert.GreaterOrEqual(t, resp.StatusCode, http.StatusBadRequest)
		assert.Contains(t, body, `id="upload-error"`)
		assert.False(t, env.status(t).CanGenerate)
	})

	t.Run("内部アドレスの URL は拒否されるのだ", func(t *testing.T) {
		env := newTestEnv(t, &mockGenerator{}, 1<<20)

		resp := env.postForm(t, "/image", url.Values{"image_url": {"http://127.0.0.1/selfie.png"}})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.False(t, env.status(t).CanGenerate)
	})
}

func TestSetStyle(t *testing.T) {
	env := newTestEnv(t, &mockGenerator{}, 1<<20)

	resp := env.postForm(t, "/style", url.Values{"style": {"Tech Entrepreneur"}})
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "Tech Entrepreneur", env.status(t).Style)

	resp = env.postForm(t, "/style", url.Values{"style": {"Astronaut"}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Tech Entrepreneur", env.status(t).Style)
}

func TestGenerate(t *testing.T) {
	t.Run("画像未選択なら生成しない", func(t *testing.T) {
		gen := &mockGenerator{}
		env := newTestEnv(t, gen, 1<<20)

		resp := env.postForm(t, "/generate", nil)

		assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
		assert.Zero(t, gen.callCount())
		assert.Equal(t, "idle", env.status(t).Status)
	})

	t.Run("生成からダウンロードまで通しで動くのだ", func(t *testing.T) {
		gen := &mockGenerator{
			release: make(chan struct{}),
			result:  domain.NewGeneratedImage([]byte("png-bytes")),
		}
		env := newTestEnv(t, gen, 1<<20)
		env.uploadPhoto(t, pngBytes(t))
		env.postForm(t, "/style", url.Values{"style": {"Medical Professional"}})

		resp := env.postForm(t, "/generate", nil)
		assert.Equal(t, http.StatusSeeOther, resp.StatusCode)

		s := env.status(t)
		assert.Equal(t, "generating", s.Status)
		assert.False(t, s.CanGenerate)
		assert.Contains(t, domain.LoadingMessages, s.LoadingMessage)

		_, body := env.get(t, "/")
		assert.Contains(t, body, "Generating Headshot...")
		assert.Contains(t, body, `id="loading-message"`)

		// 生成中の連打は無視されるのだ
		env.postForm(t, "/generate", nil)

		close(gen.release)
		require.Eventually(t, func() bool {
			return env.status(t).Status == "success"
		}, 2*time.Second, 5*time.Millisecond)
		assert.Equal(t, 1, gen.callCount())
		assert.Equal(t, domain.StyleMedicalProfessional, gen.lastStyle)

		_, body = env.get(t, "/")
		assert.Contains(t, body, `download="pro-headshot.png"`)
		assert.Contains(t, body, `src="data:image/png;base64,`)

		resp, body = env.get(t, "/download")
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
		assert.Equal(t, `attachment; filename="pro-headshot.png"`, resp.Header.Get("Content-Disposition"))
		assert.Equal(t, "png-bytes", body)
	})

	t.Run("失敗時はエラーメッセージを表示する", func(t *testing.T) {
		gen := &mockGenerator{err: errors.New("quota exceeded")}
		env := newTestEnv(t, gen, 1<<20)
		env.uploadPhoto(t, pngBytes(t))

		env.postForm(t, "/generate", nil)
		require.Eventually(t, func() bool {
			return env.status(t).Status == "error"
		}, 2*time.Second, 5*time.Millisecond)

		s := env.status(t)
		assert.Equal(t, "quota exceeded", s.Error)
		assert.False(t, s.HasResult)

		_, body := env.get(t, "/")
		assert.Contains(t, body, "quota exceeded")
	})
}

func TestDownload_NoResult(t *testing.T) {
	env := newTestEnv(t, &mockGenerator{}, 1<<20)

	resp, _ := env.get(t, "/download")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	env.get(t, "/")
	resp, _ = env.get(t, "/download")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, &mockGenerator{}, 1<<20)

	resp, body := env.get(t, "/healthz")

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json"))
	assert.Contains(t, body, `"status":"ok"`)
}

func TestNewHandler_Validation(t *testing.T) {
	_, err := NewHandler(nil, upload.NewAdapter(upload.Options{}, nil), 1)
	assert.Error(t, err)

	_, err = NewHandler(session.NewStore(&mockGenerator{}, time.Second, 0), nil, 1)
	assert.Error(t, err)
}
