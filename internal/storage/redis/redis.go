// Package redis is the production CounterStore. A single Lua script
// performs the compare-and-increment so two concurrent requests can
// never both take the last slot in a window.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Counter keys expire with the window, so the increment path sets the
// TTL only when it creates the key.
var incrScript = redis.NewScript(`
local count = tonumber(redis.call("GET", KEYS[1]) or "0")
if count >= tonumber(ARGV[1]) then
  return {count, 0}
end
count = redis.call("INCR", KEYS[1])
if count == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return {count, 1}
`)

type Store struct {
	client *redis.Client
}

func NewStore(client *redis.Client) *Store {
	return &Store{client: client}
}

func (s *Store) Incr(ctx context.Context, key string, limit int64, ttl time.Duration) (int64, bool, error) {
	res, err := incrScript.Run(ctx, s.client, []string{key}, limit, ttl.Milliseconds()).Result()
	if err != nil {
		return 0, false, fmt.Errorf("redis incr script: %w", err)
	}

	values, ok := res.([]interface{})
	if !ok || len(values) != 2 {
		return 0, false, fmt.Errorf("redis incr script: unexpected reply %v", res)
	}

	count, _ := values[0].(int64)
	allowedFlag, _ := values[1].(int64)
	return count, allowedFlag == 1, nil
}
