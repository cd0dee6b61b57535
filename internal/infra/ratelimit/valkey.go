package ratelimit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/valkey-io/valkey-go"
)

const window = time.Minute

// ValkeyLimiter counts requests per key in fixed one minute windows shared by
// every replica pointing at the same Valkey instance.
type ValkeyLimiter struct {
	client valkey.Client
	prefix string
	limit  int64
	now    func() time.Time
}

// NewValkeyLimiter allows requestsPerMinute plus burst requests per window.
func NewValkeyLimiter(client valkey.Client, prefix string, requestsPerMinute, burst int) *ValkeyLimiter {
	if prefix == "" {
		prefix = "gistflow"
	}
	return &ValkeyLimiter{
		client: client,
		prefix: prefix,
		limit:  int64(requestsPerMinute + burst),
		now:    time.Now,
	}
}

func (l *ValkeyLimiter) Allow(ctx context.Context, key string) (bool, error) {
	windowKey := l.windowKey(key, l.now())
	count, err := l.client.Do(ctx, l.client.B().Incr().Key(windowKey).Build()).AsInt64()
	if err != nil {
		return false, fmt.Errorf("incr rate limit counter: %w", err)
	}
	if count == 1 {
		expire := l.client.B().Expire().Key(windowKey).Seconds(int64(2 * window / time.Second)).Build()
		if err := l.client.Do(ctx, expire).Error(); err != nil {
			return false, fmt.Errorf("expire rate limit counter: %w", err)
		}
	}
	return count <= l.limit, nil
}

func (l *ValkeyLimiter) windowKey(key string, now time.Time) string {
	key = strings.ReplaceAll(key, ":", "_")
	return fmt.Sprintf("%s:ratelimit:%s:%d", l.prefix, key, now.Unix()/int64(window/time.Second))
}

// NewValkeyClient connects to addr, which may be a host:port pair or a
// redis:// style URL.
func NewValkeyClient(addr string) (valkey.Client, error) {
	var (
		opt valkey.ClientOption
		err error
	)
	if strings.Contains(addr, "://") {
		opt, err = valkey.ParseURL(addr)
	} else {
		opt = valkey.ClientOption{InitAddress: []string{addr}}
	}
	if err != nil {
		return nil, err
	}
	return valkey.NewClient(opt)
}
