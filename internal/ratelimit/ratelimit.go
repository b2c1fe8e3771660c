package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// Limiter decides whether a chat may send another message now.
type Limiter interface {
	Allow(ctx context.Context, chatID int64) (bool, error)
}

// Local keeps a token bucket per chat in process memory.
type Local struct {
	mu      sync.Mutex
	perMin  int
	buckets map[int64]*rate.Limiter
}

func NewLocal(perMinute int) *Local {
	return &Local{perMin: perMinute, buckets: make(map[int64]*rate.Limiter)}
}

func (l *Local) Allow(_ context.Context, chatID int64) (bool, error) {
	l.mu.Lock()
	lim, ok := l.buckets[chatID]
	if !ok {
		lim = rate.NewLimiter(rate.Every(time.Minute/time.Duration(l.perMin)), l.perMin)
		l.buckets[chatID] = lim
	}
	l.mu.Unlock()
	return lim.Allow(), nil
}

// Redis counts messages per chat in fixed one-minute windows shared by every replica.
type Redis struct {
	db     *redis.Client
	perMin int
	now    func() time.Time
}

func NewRedis(db *redis.Client, perMinute int) *Redis {
	return &Redis{db: db, perMin: perMinute, now: time.Now}
}

func (r *Redis) Allow(ctx context.Context, chatID int64) (bool, error) {
	window := r.now().Unix() / 60
	key := "ratelimit:" + strconv.FormatInt(chatID, 10) + ":" + strconv.FormatInt(window, 10)

	pipe := r.db.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, 2*time.Minute)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("rate limit incr: %w", err)
	}
	return incr.Val() <= int64(r.perMin), nil
}
