package ratelimit

import (
	"context"
	"errors"
	"math"
	"strconv"
	"time"

	redis "github.com/redis/go-redis/v9"
)

var (
	ErrLimiterDisabled = errors.New("rate limiter not configured")
	ErrEmptyBucketKey  = errors.New("rate limiter key is empty")
	ErrInvalidRule     = errors.New("rate limiter rate and burst must be positive")
	errScriptReply     = errors.New("unexpected token bucket reply")
)

// takeScript refills the bucket from the redis clock, takes one token when
// available and replies {allowed, tokens_left, now_ms}.
var takeScript = redis.NewScript(`
local rate = tonumber(ARGV[1])
local burst = tonumber(ARGV[2])
local t = redis.call("TIME")
local now = t[1] * 1000 + math.floor(t[2] / 1000)

local state = redis.call("HMGET", KEYS[1], "tokens", "ts")
local tokens = tonumber(state[1]) or burst
local last = tonumber(state[2]) or now
if now > last then
  tokens = math.min(burst, tokens + (now - last) / 1000 * rate)
end

local ok = 0
if tokens >= 1 then
  ok = 1
  tokens = tokens - 1
end
redis.call("HSET", KEYS[1], "tokens", tokens, "ts", now)
redis.call("PEXPIRE", KEYS[1], ARGV[3])
return {ok, tostring(tokens), now}
`)

// Rule is a refill rate in tokens per second and a bucket capacity.
type Rule struct {
	Rate  float64
	Burst int
}

func (r Rule) valid() bool { return r.Rate > 0 && r.Burst > 0 }

// ttl keeps idle buckets around for twice the time a full refill takes.
func (r Rule) ttl() time.Duration {
	if !r.valid() {
		return time.Second
	}
	return time.Duration(math.Max(1, math.Ceil(2*float64(r.Burst)/r.Rate))) * time.Second
}

type RateLimitResult struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetTime  time.Time
	RetryAfter time.Duration
}

// TokenBucket is a redis backed bucket shared by every api replica.
type TokenBucket struct {
	client *redis.Client
}

func NewTokenBucket(client *redis.Client) *TokenBucket {
	if client == nil {
		return nil
	}
	return &TokenBucket{client: client}
}

func (t *TokenBucket) Allow(ctx context.Context, key string, rate float64, burst int) (*RateLimitResult, error) {
	return t.Take(ctx, key, Rule{Rate: rate, Burst: burst})
}

// Take consumes one token from the bucket at key.
func (t *TokenBucket) Take(ctx context.Context, key string, rule Rule) (*RateLimitResult, error) {
	denied := &RateLimitResult{Limit: rule.Burst}
	switch {
	case t == nil || t.client == nil:
		return denied, ErrLimiterDisabled
	case key == "":
		return denied, ErrEmptyBucketKey
	case !rule.valid():
		return denied, ErrInvalidRule
	}

	reply, err := takeScript.Run(ctx, t.client, []string{key}, rule.Rate, rule.Burst, rule.ttl().Milliseconds()).Slice()
	if err != nil {
		return denied, err
	}
	if len(reply) != 3 {
		return denied, errScriptReply
	}

	left := castToFloat(reply[1])
	res := &RateLimitResult{
		Allowed:   castToInt(reply[0]) == 1,
		Limit:     rule.Burst,
		Remaining: int(math.Floor(left)),
	}
	if !res.Allowed && left < 1 {
		res.RetryAfter = time.Duration((1 - left) / rule.Rate * float64(time.Second))
	}
	res.ResetTime = time.UnixMilli(castToInt(reply[2])).Add(res.RetryAfter)
	return res, nil
}

func defaultBucketTTL(rate float64, burst int) time.Duration {
	return Rule{Rate: rate, Burst: burst}.ttl()
}

func castToInt(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	case string:
		parsed, _ := strconv.ParseInt(n, 10, 64)
		return parsed
	}
	return 0
}

func castToFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int64:
		return float64(n)
	case string:
		parsed, _ := strconv.ParseFloat(n, 64)
		return parsed
	}
	return 0
}
