package cache

import (
	"context"
	"log/slog"
	"time"
)

// Cache is a keyed store with per-entry expiry.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, data T)
	Delete(key string)
	Size() int
}

// Cleaner is implemented by caches that can drop expired entries in bulk.
type Cleaner interface {
	CleanExpired() int
}

// Janitor periodically sweeps expired entries from registered caches.
type Janitor struct {
	caches []Cleaner
	stop   chan struct{}
	done   chan struct{}
}

func NewJanitor(caches ...Cleaner) *Janitor {
	return &Janitor{
		caches: caches,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Start runs the sweep loop until Stop is called or ctx is cancelled.
func (j *Janitor) Start(ctx context.Context, interval time.Duration) {
	go j.run(ctx, interval)
}

func (j *Janitor) run(ctx context.Context, interval time.Duration) {
	defer close(j.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			removed := j.Sweep()
			if removed > 0 {
				slog.DebugContext(ctx, "Cache sweep", "removed", removed)
			}
		case <-j.stop:
			return
		case <-ctx.Done():
			return
		}
	}
}

// Sweep cleans every registered cache once and returns the number of entries removed.
func (j *Janitor) Sweep() int {
	total := 0
	for _, c := range j.caches {
		total += c.CleanExpired()
	}
	return total
}

// Stop ends the sweep loop and waits for it to exit.
func (j *Janitor) Stop() {
	select {
	case <-j.stop:
		return
	default:
		close(j.stop)
	}
	<-j.done
}
