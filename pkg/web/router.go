package web

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter はすべてのエンドポイントを登録した chi ルーターを返します。
func NewRouter(h *Handler, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, RequestLogger(logger), middleware.Recoverer)

	r.Get("/healthz", h.Health)

	r.Get("/", h.Index)
	r.Post("/image", h.UploadImage)
	r.Post("/style", h.SetStyle)
	r.Post("/generate", h.Generate)
	r.Get("/status", h.Status)
	r.Get("/download", h.Download)

	return r
}
