package ratelimiter

import (
	"sync"
	"time"
)

// Limiter は推論リクエストの頻度を制限するインターフェースです。
type Limiter interface {
	// Allow は呼び出しを許可するかどうかと、拒否時に待つべき時間を返します。
	Allow() (bool, time.Duration)
}

// RateLimiter は固定ウィンドウ方式でリクエスト数を制限します。
// 待機はせず、上限超過時は即座に拒否します。
type RateLimiter struct {
	mu        sync.Mutex
	limit     int           // ウィンドウあたりの上限
	interval  time.Duration // どの単位でリセットするか
	count     int
	lastReset time.Time
	now       func() time.Time
}

var _ Limiter = (*RateLimiter)(nil)

// NewRateLimiter は新しいRateLimiterのインスタンスを生成します。
// limit が0以下の場合は nil を返し、制限なしを表します。
func NewRateLimiter(limit int, interval time.Duration) *RateLimiter {
	if limit <= 0 || interval <= 0 {
		return nil
	}
	return &RateLimiter{
		limit:     limit,
		interval:  interval,
		lastReset: time.Now(),
		now:       time.Now,
	}
}

// Allow はウィンドウ内の呼び出し回数を数え、上限以内なら true を返します。
// nil の RateLimiter は常に許可します。
func (rl *RateLimiter) Allow() (bool, time.Duration) {
	if rl == nil {
		return true, 0
	}
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	// interval を過ぎたらカウントリセット
	if now.Sub(rl.lastReset) >= rl.interval {
		rl.count = 0
		rl.lastReset = now
	}

	if rl.count >= rl.limit {
		return false, rl.interval - now.Sub(rl.lastReset)
	}
	rl.count++
	return true, 0
}
