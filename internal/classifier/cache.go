package classifier

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// CachedClassifier memoizes Categorize and DetectSpam results in Redis keyed
// on a hash of the input text. Redis failures fall straight through to the
// wrapped classifier; the cache is an optimization, never a dependency.
type CachedClassifier struct {
	inner  Classifier
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedClassifier wraps inner with a Redis cache. A nil client disables
// caching entirely.
func NewCachedClassifier(inner Classifier, client *redis.Client, ttl time.Duration, logger *zap.Logger) *CachedClassifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedClassifier{inner: inner, client: client, ttl: ttl, logger: logger}
}

func textKey(prefix, text string) string {
	sum := sha256.Sum256([]byte(text))
	return prefix + hex.EncodeToString(sum[:16])
}

func (c *CachedClassifier) Categorize(ctx context.Context, text, extra string) (Classification, error) {
	key := textKey("classifier:cat:", text+"\x00"+extra)
	var cached Classification
	if c.lookup(ctx, key, &cached) {
		return cached, nil
	}
	result, err := c.inner.Categorize(ctx, text, extra)
	if err != nil {
		return result, err
	}
	c.store(ctx, key, result)
	return result, nil
}

func (c *CachedClassifier) Rephrase(ctx context.Context, text string) (string, error) {
	return c.inner.Rephrase(ctx, text)
}

func (c *CachedClassifier) DetectSpam(ctx context.Context, text string) (SpamVerdict, error) {
	key := textKey("classifier:spam:", text)
	var cached SpamVerdict
	if c.lookup(ctx, key, &cached) {
		return cached, nil
	}
	result, err := c.inner.DetectSpam(ctx, text)
	if err != nil {
		return result, err
	}
	c.store(ctx, key, result)
	return result, nil
}

func (c *CachedClassifier) lookup(ctx context.Context, key string, out any) bool {
	if c.client == nil {
		return false
	}
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Debug("classifier cache read failed", zap.Error(err))
		}
		return false
	}
	return json.Unmarshal(raw, out) == nil
}

func (c *CachedClassifier) store(ctx context.Context, key string, value any) {
	if c.client == nil {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		c.logger.Debug("classifier cache write failed", zap.Error(err))
	}
}
