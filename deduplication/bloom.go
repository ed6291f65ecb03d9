package deduplication

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"newswire/config"
)

const bloomCommandTimeout = 5 * time.Second

// RedisBloom is a probabilistic seen-URL filter backed by the RedisBloom
// module. It can say "definitely not stored" (no false negatives), which
// lets the classifier skip the exact-match lookup for unseen URLs.
type RedisBloom struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

// NewRedisBloom connects to Redis and reserves the filter if it does not
// exist yet. A failed BF.RESERVE is non-fatal; BF.ADD can auto-create the
// filter depending on module settings.
func NewRedisBloom(cfg config.Redis) (*RedisBloom, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), bloomCommandTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}

	exists, err := client.Exists(ctx, cfg.BloomKey).Result()
	if err == nil && exists == 0 {
		// BF.RESERVE <key> <error_rate> <capacity>
		_ = client.Do(ctx, "BF.RESERVE", cfg.BloomKey, "0.001", 100000).Err()
	}

	return &RedisBloom{client: client, key: cfg.BloomKey, ttl: cfg.TTL}, nil
}

// Close closes the underlying Redis client.
func (r *RedisBloom) Close() error {
	return r.client.Close()
}

// MightContain reports whether the hash may have been added. False means
// definitely not added.
func (r *RedisBloom) MightContain(ctx context.Context, hash string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, bloomCommandTimeout)
	defer cancel()

	res, err := r.client.Do(ctx, "BF.EXISTS", r.key, hash).Result()
	if err != nil {
		return false, err
	}

	switch v := res.(type) {
	case int64:
		return v == 1, nil
	case string:
		return v == "1", nil
	default:
		return false, fmt.Errorf("unexpected BF.EXISTS response type %T: %v", res, res)
	}
}

// Add inserts the hash and refreshes the filter TTL, keeping the filter
// alive for ttl after the most recent insertion.
func (r *RedisBloom) Add(ctx context.Context, hash string) error {
	ctx, cancel := context.WithTimeout(ctx, bloomCommandTimeout)
	defer cancel()

	if err := r.client.Do(ctx, "BF.ADD", r.key, hash).Err(); err != nil {
		return err
	}
	if r.ttl > 0 {
		if err := r.client.Expire(ctx, r.key, r.ttl).Err(); err != nil {
			return err
		}
	}
	return nil
}

// HashURL returns the sha256 hex digest of the normalized URL.
func HashURL(raw string) string {
	h := sha256.Sum256([]byte(NormalizeURL(raw)))
	return hex.EncodeToString(h[:])
}

// NormalizeURL canonicalizes a URL before hashing: lowercase scheme and
// host, fragment removed, common tracking parameters (utm_*, fbclid,
// gclid) stripped, trailing slash trimmed.
func NormalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return strings.ToLower(raw)
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""

	q := u.Query()
	for k := range q {
		lk := strings.ToLower(k)
		if strings.HasPrefix(lk, "utm_") || lk == "fbclid" || lk == "gclid" {
			q.Del(k)
		}
	}
	u.RawQuery = q.Encode()

	return strings.TrimRight(u.String(), "/")
}
