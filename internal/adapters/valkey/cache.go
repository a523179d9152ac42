package valkey

import (
	"context"
	"fmt"
	"time"

	"github.com/valkey-io/valkey-go"

	"github.com/emberline/faregate/internal/pkg/metrics"
)

// Cache implements ports.CacheService using Valkey (Redis-compatible). It
// doubles as the open-journey snapshot store: snapshots are written with no
// TTL so they survive until the next restart consumes them.
type Cache struct {
	client valkey.Client
}

// New creates a new Valkey cache client.
func New(addr string) (*Cache, error) {
	client, err := valkey.NewClient(valkey.ClientOption{
		InitAddress: []string{addr},
	})
	if err != nil {
		return nil, fmt.Errorf("valkey connect: %w", err)
	}
	return &Cache{client: client}, nil
}

// Get retrieves a value by key.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, error) {
	cmd := c.client.Do(ctx, c.client.B().Get().Key(key).Build())
	if cmd.Error() != nil {
		metrics.CacheMisses.WithLabelValues("get").Inc()
		return nil, cmd.Error()
	}
	metrics.CacheHits.WithLabelValues("get").Inc()
	return cmd.AsBytes()
}

// Set stores a value. ttlSeconds <= 0 stores without expiry.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttlSeconds int) error {
	b := c.client.B().Set().Key(key).Value(string(value))
	if ttlSeconds > 0 {
		return c.client.Do(ctx, b.Ex(time.Duration(ttlSeconds)*time.Second).Build()).Error()
	}
	return c.client.Do(ctx, b.Build()).Error()
}

// Delete removes a key.
func (c *Cache) Delete(ctx context.Context, key string) error {
	cmd := c.client.Do(ctx, c.client.B().Del().Key(key).Build())
	return cmd.Error()
}

// Close releases the client.
func (c *Cache) Close() {
	c.client.Close()
}
