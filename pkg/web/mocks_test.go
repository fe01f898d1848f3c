package web

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"sync"
	"testing"

	"github.com/shouni/headshot-studio/pkg/domain"
)

// mockGenerator は生成アダプターのモックなのだ。release を閉じるまで Generate をブロックできる。
type mockGenerator struct {
	mu        sync.Mutex
	calls     int
	lastStyle domain.Style
	release   chan struct{}
	result    *domain.GeneratedImage
	err       error
}

func (m *mockGenerator) Generate(ctx context.Context, img domain.SelectedImage, style domain.Style) (*domain.GeneratedImage, error) {
	m.mu.Lock()
	m.calls++
	m.lastStyle = style
	release := m.release
	m.mu.Unlock()

	if release != nil {
		<-release
	}
	return m.result, m.err
}

func (m *mockGenerator) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for x := range 4 {
		for y := range 4 {
			img.Set(x, y, color.RGBA{R: uint8(x * 60), G: uint8(y * 60), B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode: %v", err)
	}
	return buf.Bytes()
}
