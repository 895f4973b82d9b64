// Package cache holds the in-process caches used for monthly summaries.
package cache

import (
	"log/slog"
	"sync"
	"time"
)

type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, data T)
	Delete(key string)
	Purge()
	Size() int
}

var _ Cache[int] = (*LRUCache[int])(nil)

// Cleaner is implemented by caches with expiring entries.
type Cleaner interface {
	CleanExpired() int
}

// Janitor periodically sweeps expired entries from registered caches.
type Janitor struct {
	mu     sync.Mutex
	caches []Cleaner
	stop   chan struct{}
	done   chan struct{}
	once   sync.Once

	started bool
}

func NewJanitor() *Janitor {
	return &Janitor{stop: make(chan struct{}), done: make(chan struct{})}
}

func (j *Janitor) Register(c Cleaner) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.caches = append(j.caches, c)
}

// Sweep runs one cleanup pass and returns the number of entries removed.
func (j *Janitor) Sweep() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	n := 0
	for _, c := range j.caches {
		n += c.CleanExpired()
	}
	return n
}

// Start sweeps every interval until Stop is called.
func (j *Janitor) Start(interval time.Duration) {
	j.mu.Lock()
	j.started = true
	j.mu.Unlock()
	go func() {
		defer close(j.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if n := j.Sweep(); n > 0 {
					slog.Debug("Swept expired cache entries", "count", n)
				}
			case <-j.stop:
				return
			}
		}
	}()
}

// Stop ends the sweep loop started by Start and waits for it to exit.
func (j *Janitor) Stop() {
	j.once.Do(func() {
		close(j.stop)
		j.mu.Lock()
		started := j.started
		j.mu.Unlock()
		if started {
			<-j.done
		}
	})
}

// Noop never stores anything. Processes that do not see every write use it
// to always read through to the store.
type Noop[T any] struct{}

func (Noop[T]) Get(string) (T, bool) {
	var zero T
	return zero, false
}
func (Noop[T]) Set(string, T) {}
func (Noop[T]) Delete(string) {}
func (Noop[T]) Purge()        {}
func (Noop[T]) Size() int     { return 0 }
