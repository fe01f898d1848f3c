package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shouni/headshot-studio/pkg/generator"
)

// ErrStoreFull はセッション数が上限に達していて新規作成できない場合のエラーです。
var ErrStoreFull = errors.New("too many sessions")

// Store はブラウザセッションごとの Orchestrator をメモリ上で保持します。
type Store struct {
	gen             generator.ImageGenerator
	loadingInterval time.Duration
	ttl             time.Duration
	maxSessions     int

	mu       sync.Mutex
	sessions map[string]*Orchestrator
}

// StoreOption は Store の設定を行うための関数型です。
type StoreOption func(*Store)

// WithMaxSessions は同時に保持するセッション数の上限を設定します。0 以下なら無制限です。
func WithMaxSessions(n int) StoreOption {
	return func(s *Store) {
		s.maxSessions = n
	}
}

// NewStore は Store を初期化します。ttl が 0 以下なら期限切れの削除を行いません。
func NewStore(gen generator.ImageGenerator, loadingInterval, ttl time.Duration, opts ...StoreOption) *Store {
	s := &Store{
		gen:             gen,
		loadingInterval: loadingInterval,
		ttl:             ttl,
		sessions:        make(map[string]*Orchestrator),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get は id のセッションを返します。存在しない場合は新しい ID で作成します。
// 返される ID が引数と異なる場合、呼び出し側は Cookie を更新する必要があります。
// 上限に達している場合は ErrStoreFull を返します。
func (s *Store) Get(id string) (string, *Orchestrator, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if o, ok := s.sessions[id]; ok {
		return id, o, nil
	}
	if s.maxSessions > 0 && len(s.sessions) >= s.maxSessions {
		return "", nil, ErrStoreFull
	}

	o, err := NewOrchestrator(s.gen, s.loadingInterval)
	if err != nil {
		return "", nil, err
	}
	newID := uuid.NewString()
	s.sessions[newID] = o
	return newID, o, nil
}

// Lookup は既存のセッションだけを返します。
func (s *Store) Lookup(id string) (*Orchestrator, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.sessions[id]
	return o, ok
}

// Len は保持しているセッション数を返します。
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Sweep は now - ttl より古いセッションを破棄し、破棄した数を返します。
func (s *Store) Sweep(now time.Time) int {
	if s.ttl <= 0 {
		return 0
	}
	cutoff := now.Add(-s.ttl)

	s.mu.Lock()
	var expired []*Orchestrator
	for id, o := range s.sessions {
		if o.expired(cutoff) {
			expired = append(expired, o)
			delete(s.sessions, id)
		}
	}
	s.mu.Unlock()

	for _, o := range expired {
		o.Close()
	}
	return len(expired)
}

// Run は ctx が終わるまで定期的に Sweep を実行します。
func (s *Store) Run(ctx context.Context, interval time.Duration) error {
	if s.ttl <= 0 || interval <= 0 {
		<-ctx.Done()
		return nil
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			if n := s.Sweep(now); n > 0 {
				slog.Info("期限切れのセッションを破棄しました", "count", n, "remaining", s.Len())
			}
		}
	}
}

// Close はすべてのセッションを破棄します。
func (s *Store) Close() {
	s.mu.Lock()
	sessions := s.sessions
	s.sessions = make(map[string]*Orchestrator)
	s.mu.Unlock()

	for _, o := range sessions {
		o.Close()
	}
}
