package events

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// PostPublished fires after every platform accepted a scheduled post.
type PostPublished struct {
	PostID      int64
	UserID      int64
	PublishedAt time.Time
}

type PostPublishedHandler func(ctx context.Context, event PostPublished)

// Bus is a small in-process dispatcher. Subscribers are best-effort: a
// failing or panicking handler never reaches the publishing path.
type Bus struct {
	mu       sync.RWMutex
	handlers []PostPublishedHandler
}

func NewBus() *Bus {
	return &Bus{}
}

func (b *Bus) Subscribe(handler PostPublishedHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, handler)
}

func (b *Bus) Publish(ctx context.Context, event PostPublished) {
	b.mu.RLock()
	handlers := make([]PostPublishedHandler, len(b.handlers))
	copy(handlers, b.handlers)
	b.mu.RUnlock()

	for _, handler := range handlers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					slog.Error("post published handler panicked", "post_id", event.PostID, "panic", r)
				}
			}()
			handler(ctx, event)
		}()
	}
}
