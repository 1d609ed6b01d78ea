package redis

import (
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestStore_HashKey(t *testing.T) {
	s := NewStore(goredis.NewClient(&goredis.Options{Addr: "localhost:0"}), "marketsync")

	assert.Equal(t, "marketsync:objects:listing", s.hashKey("listing"))
	assert.Equal(t, "marketsync:objects:publish_job", s.hashKey("publish_job"))
}

func TestLocker_LockKey(t *testing.T) {
	l := NewLocker(goredis.NewClient(&goredis.Options{Addr: "localhost:0"}), "marketsync", time.Second, zerolog.Nop())

	assert.Equal(t, "marketsync:lock:token-refresh:ebay", l.lockKey("token-refresh:ebay"))
}

func TestDistributedLock_ReleaseWithoutAcquire(t *testing.T) {
	lock := NewDistributedLock(goredis.NewClient(&goredis.Options{Addr: "localhost:0"}), "k", time.Second)

	assert.NoError(t, lock.Release(t.Context()))
}
