package verifier

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Deduper replays verification outcomes for repeated Idempotency-Key values so
// client retries do not append duplicate check-in records.
type Deduper struct {
	client *redis.Client
	ttl    time.Duration
}

// NewDeduper constructs a Deduper. Entries expire after ttl.
func NewDeduper(client *redis.Client, ttl time.Duration) *Deduper {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Deduper{client: client, ttl: ttl}
}

func dedupKey(key string) string {
	return "verifier:verify:idem:" + key
}

// Lookup returns the stored outcome for key, nil when unseen.
func (d *Deduper) Lookup(ctx context.Context, key string) (*VerifyResult, error) {
	raw, err := d.client.Get(ctx, dedupKey(key)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("verifier: dedup read: %w", err)
	}
	var result VerifyResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("verifier: dedup decode: %w", err)
	}
	return &result, nil
}

// Store records the outcome for key.
func (d *Deduper) Store(ctx context.Context, key string, result *VerifyResult) error {
	raw, err := json.Marshal(result)
	if err != nil {
		return err
	}
	if err := d.client.Set(ctx, dedupKey(key), raw, d.ttl).Err(); err != nil {
		return fmt.Errorf("verifier: dedup write: %w", err)
	}
	return nil
}
