package web

import (
	"context"
	"errors"
	"net/http"
	"time"
)

// ServerConfig は HTTP サーバーのタイムアウト設定です。
type ServerConfig struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// Server は http.Server を包み、起動と停止を提供します。
type Server struct {
	server *http.Server
}

// NewServer は設定済みの Server を返します。
func NewServer(cfg ServerConfig, handler http.Handler) *Server {
	return &Server{server: &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}}
}

// Addr は待ち受けアドレスを返します。
func (s *Server) Addr() string {
	return s.server.Addr
}

// Start は現在のゴルーチンでサーバーを起動します。Shutdown による終了はエラーにしません。
func (s *Server) Start() error {
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown はサーバーを穏やかに停止します。
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
