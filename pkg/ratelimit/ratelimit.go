// Package ratelimit, kullanıcı bazlı mesaj spam koruması.
//
// Her kullanıcı için ayrı bir token bucket (golang.org/x/time/rate) tutulur:
// burst kadar mesaj hemen geçer, sonrası saniyede perSecond hızında dolar.
// Uzun süre sessiz kalan kullanıcıların bucket'ı arka planda silinir.
package ratelimit

import (
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// MessageRateLimiter, kullanıcı ID'si → token bucket.
//
// Kullanım:
//
//	limiter := NewMessageRateLimiter(1, 5, time.Minute)
//	if !limiter.Allow(userID) { return 429 }
type MessageRateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	every   rate.Limit
	burst   int
	idle    time.Duration
	now     func() time.Time
	stop    chan struct{}
	once    sync.Once
}

// NewMessageRateLimiter, limiter oluşturur ve temizlik goroutine'ini başlatır.
// idle: bu kadar süre mesaj atmayan kullanıcının bucket'ı unutulur.
func NewMessageRateLimiter(perSecond float64, burst int, idle time.Duration) *MessageRateLimiter {
	rl := &MessageRateLimiter{
		buckets: make(map[string]*bucket),
		every:   rate.Limit(perSecond),
		burst:   burst,
		idle:    idle,
		now:     time.Now,
		stop:    make(chan struct{}),
	}
	go rl.cleanupLoop()
	return rl
}

// Allow, kullanıcının şu an mesaj gönderip gönderemeyeceğini döner ve bir token tüketir.
func (rl *MessageRateLimiter) Allow(userID string) bool {
	now := rl.now()

	rl.mu.Lock()
	b, ok := rl.buckets[userID]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(rl.every, rl.burst)}
		rl.buckets[userID] = b
	}
	b.lastSeen = now
	rl.mu.Unlock()

	return b.limiter.AllowN(now, 1)
}

// RetryAfterSeconds, bir sonraki token'a kadar beklenecek süre (Retry-After header'ı).
func (rl *MessageRateLimiter) RetryAfterSeconds(userID string) int {
	rl.mu.Lock()
	b, ok := rl.buckets[userID]
	rl.mu.Unlock()
	if !ok {
		return 0
	}

	now := rl.now()
	r := b.limiter.ReserveN(now, 1)
	delay := r.DelayFrom(now)
	r.CancelAt(now)
	if delay <= 0 {
		return 0
	}
	return int(math.Ceil(delay.Seconds()))
}

// Stop, temizlik goroutine'ini durdurur.
func (rl *MessageRateLimiter) Stop() {
	rl.once.Do(func() { close(rl.stop) })
}

func (rl *MessageRateLimiter) cleanupLoop() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanup()
		case <-rl.stop:
			return
		}
	}
}

func (rl *MessageRateLimiter) cleanup() {
	cutoff := rl.now().Add(-rl.idle)

	rl.mu.Lock()
	defer rl.mu.Unlock()
	for userID, b := range rl.buckets {
		if b.lastSeen.Before(cutoff) {
			delete(rl.buckets, userID)
		}
	}
}
