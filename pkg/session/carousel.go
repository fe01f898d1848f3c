package session

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/shouni/headshot-studio/pkg/domain"
)

// carousel は生成中だけ動くローディングメッセージの切り替えタイマーです。
// 開始時は必ず先頭のメッセージから始まります。
type carousel struct {
	idx      atomic.Int64
	quit     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

func startCarousel(interval time.Duration) *carousel {
	c := &carousel{
		quit: make(chan struct{}),
		done: make(chan struct{}),
	}
	go c.run(interval)
	return c
}

func (c *carousel) run(interval time.Duration) {
	defer close(c.done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.quit:
			return
		case <-ticker.C:
			c.idx.Store(int64(domain.NextLoadingIndex(int(c.idx.Load()))))
		}
	}
}

func (c *carousel) index() int {
	return int(c.idx.Load())
}

// stop はタイマーを止め、ゴルーチンの終了まで待ちます。何度呼んでも安全です。
func (c *carousel) stop() {
	c.stopOnce.Do(func() { close(c.quit) })
	<-c.done
}
