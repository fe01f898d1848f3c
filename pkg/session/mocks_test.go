package session

import (
	"context"
	"sync"

	"github.com/shouni/headshot-studio/pkg/domain"
)

// mockGenerator は generator.ImageGenerator のテスト用モックなのだ。
// release が nil でなければ、閉じられるまで Generate をブロックするのだ。
type mockGenerator struct {
	mu        sync.Mutex
	calls     int
	lastImage domain.SelectedImage
	lastStyle domain.Style

	release   chan struct{}
	result    *domain.GeneratedImage
	err       error
	panicWith any
}

func (m *mockGenerator) Generate(ctx context.Context, img domain.SelectedImage, style domain.Style) (*domain.GeneratedImage, error) {
	m.mu.Lock()
	m.calls++
	m.lastImage = img
	m.lastStyle = style
	release := m.release
	m.mu.Unlock()

	if release != nil {
		<-release
	}
	if m.panicWith != nil {
		panic(m.panicWith)
	}
	return m.result, m.err
}

func (m *mockGenerator) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

type emptyError struct{}

func (emptyError) Error() string { return "" }
