package ratelimit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// tokenBucketScript refills and consumes the bucket atomically in Redis.
// KEYS[1] = bucket key, ARGV[1] = refill rate (tokens/sec), ARGV[2] =
// capacity, ARGV[3] = cost, ARGV[4] = current unix time (seconds).
var tokenBucketScript = redis.NewScript(`
local key = KEYS[1]
local rate = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2])
local cost = tonumber(ARGV[3])
local now = tonumber(ARGV[4])

local state = redis.call("HMGET", key, "tokens", "last_refill")
local tokens = tonumber(state[1])
local last_refill = tonumber(state[2])

if not tokens or not last_refill then
    tokens = capacity
    last_refill = now
end

local elapsed = now - last_refill
if elapsed > 0 then
    tokens = tokens + elapsed * rate
    if tokens > capacity then
        tokens = capacity
    end
    last_refill = now
end

local allowed = 0
if tokens >= cost then
    tokens = tokens - cost
    allowed = 1
end

redis.call("HMSET", key, "tokens", tokens, "last_refill", last_refill)
redis.call("EXPIRE", key, 60)

return allowed
`)

type Config struct {
	Addr     string `split_words:"true" required:"true"`
	Password string `split_words:"true"`
	DB       int    `split_words:"true" default:"0"`
	RPM      int    `split_words:"true" default:"60"`
	Burst    int    `split_words:"true" default:"10"`
}

// Gate admits run creation per actor using a Redis-backed token bucket.
type Gate struct {
	client    *redis.Client
	keyPrefix string
	rpm       int
	burst     int
	now       func() time.Time
}

type Option func(*Gate)

func WithKeyPrefix(prefix string) Option {
	return func(g *Gate) {
		trimmed := strings.TrimSpace(prefix)
		if trimmed != "" {
			g.keyPrefix = trimmed
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(g *Gate) {
		if now != nil {
			g.now = now
		}
	}
}

func New(cfg Config, opts ...Option) *Gate {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return NewFromClient(client, cfg.RPM, cfg.Burst, opts...)
}

// NewFromClient builds a gate on an existing client. Used by tests to
// point the gate at miniredis.
func NewFromClient(client *redis.Client, rpm, burst int, opts ...Option) *Gate {
	if rpm <= 0 {
		rpm = 60
	}
	if burst <= 0 {
		burst = 1
	}
	g := &Gate{
		client:    client,
		keyPrefix: "shopagent:ratelimit:",
		rpm:       rpm,
		burst:     burst,
		now:       time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}
	return g
}

// Allow consumes one token for actorID, returning false when the bucket
// is exhausted.
func (g *Gate) Allow(ctx context.Context, actorID string) (bool, error) {
	key := g.keyPrefix + actorID
	rate := float64(g.rpm) / 60.0
	now := float64(g.now().UnixMicro()) / 1e6

	res, err := tokenBucketScript.Run(ctx, g.client, []string{key}, rate, g.burst, 1, now).Result()
	if err != nil {
		return false, fmt.Errorf("ratelimit script: %w", err)
	}

	allowed, ok := res.(int64)
	if !ok {
		return false, fmt.Errorf("ratelimit script returned %T, want int64", res)
	}
	return allowed == 1, nil
}
