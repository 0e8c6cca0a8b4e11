package ratelimit

import (
	"sync"
	"time"

	"github.com/tinyvault/tinyvault-go/internal/metrics"
)

// KeyedConfig configures a KeyedLimiter instance.
type KeyedConfig struct {
	// Name identifies this limiter for metrics (e.g., "user")
	Name string

	// Token bucket settings
	Burst      float64 // Maximum tokens (burst capacity)
	RefillRate float64 // Tokens refilled per second

	// CleanupPeriod controls how often inactive buckets are released.
	CleanupPeriod time.Duration

	// Optional metrics reporter
	Metrics *metrics.Metrics
}

// KeyedLimiter tracks rate limits per key (one bucket per Telegram user
// id). Buckets that have fully refilled are cleaned up periodically so
// the map does not grow with every user ever seen.
type KeyedLimiter struct {
	mu      sync.RWMutex
	buckets map[int64]*Limiter
	config  KeyedConfig
	onDrop  func()
	stopCh  chan struct{}
	stopped sync.Once
}

// NewKeyedLimiter creates a new per-user rate limiter and starts its
// cleanup loop. Call Stop on shutdown.
func NewKeyedLimiter(cfg KeyedConfig) *KeyedLimiter {
	if cfg.CleanupPeriod <= 0 {
		cfg.CleanupPeriod = 5 * time.Minute
	}

	kl := &KeyedLimiter{
		buckets: make(map[int64]*Limiter),
		config:  cfg,
		stopCh:  make(chan struct{}),
	}

	if cfg.Metrics != nil {
		kl.onDrop = func() {
			cfg.Metrics.RecordRateLimiterDrop(cfg.Name)
		}
	}

	go kl.cleanupLoop()
	return kl
}

// Allow reports whether a request for the key may proceed, consuming a
// token if so.
func (kl *KeyedLimiter) Allow(key int64) bool {
	kl.mu.RLock()
	bucket, ok := kl.buckets[key]
	kl.mu.RUnlock()

	if !ok {
		kl.mu.Lock()
		// Re-check after acquiring the write lock
		bucket, ok = kl.buckets[key]
		if !ok {
			bucket = New(kl.config.Burst, kl.config.RefillRate)
			kl.buckets[key] = bucket
		}
		kl.mu.Unlock()
	}

	allowed := bucket.Allow()
	if !allowed && kl.onDrop != nil {
		kl.onDrop()
	}
	return allowed
}

// Len returns the number of live buckets (diagnostics only).
func (kl *KeyedLimiter) Len() int {
	kl.mu.RLock()
	defer kl.mu.RUnlock()
	return len(kl.buckets)
}

// Stop terminates the cleanup loop. Safe to call more than once.
func (kl *KeyedLimiter) Stop() {
	kl.stopped.Do(func() { close(kl.stopCh) })
}

func (kl *KeyedLimiter) cleanupLoop() {
	ticker := time.NewTicker(kl.config.CleanupPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-kl.stopCh:
			return
		case <-ticker.C:
			kl.cleanup()
		}
	}
}

// cleanup removes buckets that are back at full capacity.
func (kl *KeyedLimiter) cleanup() {
	kl.mu.Lock()
	defer kl.mu.Unlock()

	for key, bucket := range kl.buckets {
		if bucket.IsFull() {
			delete(kl.buckets, key)
		}
	}
}
