package redisx

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript hanya menghapus lock kalau token masih milik kita,
// supaya lock yang sudah expire + diambil proses lain tidak ikut terhapus.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

var ErrLockHeld = fmt.Errorf("lock sedang dipegang proses lain")

// Lock adalah advisory lock kooperatif di atas SET NX PX.
// Bukan mutex kuat; cukup untuk serialisasi reconciliation per order.
type Lock struct {
	rdb *redis.Client
	key string
	tok string
}

// AcquireLock mencoba mengambil lock, retry dengan backoff pendek sampai ctx habis
// atau maxWait terlewati. Return ErrLockHeld kalau tetap gagal.
func AcquireLock(ctx context.Context, rdb *redis.Client, key string, ttl, maxWait time.Duration) (*Lock, error) {
	tok := uuid.NewString()
	deadline := time.Now().Add(maxWait)
	for {
		ok, err := rdb.SetNX(ctx, key, tok, ttl).Result()
		if err != nil {
			return nil, err
		}
		if ok {
			return &Lock{rdb: rdb, key: key, tok: tok}, nil
		}
		if time.Now().After(deadline) {
			return nil, ErrLockHeld
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(50 * time.Millisecond):
		}
	}
}

func (l *Lock) Release(ctx context.Context) error {
	return releaseScript.Run(ctx, l.rdb, []string{l.key}, l.tok).Err()
}
