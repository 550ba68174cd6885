package upstash

import (
	"bytes"
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

const defaultLockPrefix = "kcart:lock:"

// releaseScript deletes the key only while it still holds our token.
const releaseScript = `if redis.call("GET", KEYS[1]) == ARGV[1] then return redis.call("DEL", KEYS[1]) else return 0 end`

// Lock is a single-holder lease stored under one redis key.
type Lock struct {
	client *Client
	prefix string
}

func NewLock(client *Client) *Lock {
	return &Lock{client: client, prefix: defaultLockPrefix}
}

// Acquire returns ok=false when another holder owns the key. The lease expires after ttl.
func (l *Lock) Acquire(ctx context.Context, name string, ttl time.Duration) (release func(context.Context) error, ok bool, err error) {
	key := l.prefix + strings.TrimSpace(name)
	token := uuid.NewString()

	result, err := l.client.Do(ctx, "SET", key, token, "NX", "EX", ttlSeconds(ttl))
	if err != nil {
		return nil, false, err
	}
	if len(result) == 0 || bytes.Equal(result, []byte("null")) {
		return nil, false, nil
	}

	release = func(ctx context.Context) error {
		_, err := l.client.Do(ctx, "EVAL", releaseScript, 1, key, token)
		return err
	}
	return release, true, nil
}
