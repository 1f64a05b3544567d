package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

type memoryEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// MemoryLimiter is an in-process token bucket per key. The bucket holds
// Limit tokens and refills at Limit per Window.
type MemoryLimiter struct {
	config Config

	mu      sync.Mutex
	entries map[string]*memoryEntry

	now    func() time.Time
	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewMemoryLimiter creates a new in-memory limiter
func NewMemoryLimiter(config Config) *MemoryLimiter {
	return &MemoryLimiter{
		config:  config,
		entries: make(map[string]*memoryEntry),
		now:     time.Now,
	}
}

func (m *MemoryLimiter) refillRate() rate.Limit {
	return rate.Limit(float64(m.config.Limit) / m.config.Window.Seconds())
}

// Allow checks if a request is allowed
func (m *MemoryLimiter) Allow(ctx context.Context, key string) (*LimitInfo, error) {
	now := m.now()

	m.mu.Lock()
	entry, ok := m.entries[key]
	if !ok {
		entry = &memoryEntry{
			limiter: rate.NewLimiter(m.refillRate(), int(m.config.Limit)),
		}
		m.entries[key] = entry
	}
	entry.lastSeen = now
	m.mu.Unlock()

	allowed := entry.limiter.AllowN(now, 1)
	tokens := entry.limiter.TokensAt(now)

	remaining := int64(tokens)
	if remaining < 0 {
		remaining = 0
	}

	perToken := time.Duration(float64(time.Second) / float64(m.refillRate()))
	missing := float64(m.config.Limit) - tokens

	info := &LimitInfo{
		Allowed:   allowed,
		Limit:     m.config.Limit,
		Remaining: remaining,
		Reset:     now.Add(time.Duration(missing * float64(perToken))),
	}

	if !allowed {
		info.RetryAfter = time.Duration((1 - tokens) * float64(perToken))
		if info.RetryAfter < time.Second {
			info.RetryAfter = time.Second
		}
	}

	return info, nil
}

// Reset resets the limit for a key
func (m *MemoryLimiter) Reset(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

// Len returns the number of tracked keys
func (m *MemoryLimiter) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Cleanup removes keys idle for longer than one window. An idle key has
// a full bucket again, so dropping it does not change any decision.
func (m *MemoryLimiter) Cleanup() int {
	cutoff := m.now().Add(-m.config.Window)

	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for key, entry := range m.entries {
		if entry.lastSeen.Before(cutoff) {
			delete(m.entries, key)
			removed++
		}
	}
	return removed
}

// Start runs Cleanup periodically until Stop is called
func (m *MemoryLimiter) Start(interval time.Duration) {
	m.stopCh = make(chan struct{})
	ticker := time.NewTicker(interval)

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if n := m.Cleanup(); n > 0 {
					log.Debug().Int("removed", n).Msg("Rate limiter cleanup")
				}
			case <-m.stopCh:
				return
			}
		}
	}()
}

// Stop stops the cleanup loop
func (m *MemoryLimiter) Stop() {
	if m.stopCh == nil {
		return
	}
	close(m.stopCh)
	m.wg.Wait()
	m.stopCh = nil
}
