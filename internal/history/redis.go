package history

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// Store persists single movements. The Redis implementation is the default;
// the writer only depends on this interface.
type Store interface {
	SaveMovement(ctx context.Context, m Movement) error
}

// RedisStore keeps per-room geo sets and per-user last positions in Redis.
// Entries expire so the history store never accumulates stale presence.
type RedisStore struct {
	rdb *goredis.Client

	roomsKey string
	ttl      time.Duration

	opTimeout time.Duration
	inflight  chan struct{}

	saveScript *goredis.Script
}

const saveMovementLua = `
-- KEYS[1] = geoKey
-- KEYS[2] = userKey
-- KEYS[3] = lastSeenKey
-- KEYS[4] = roomsKey
-- ARGV[1] = userID
-- ARGV[2] = lng
-- ARGV[3] = lat
-- ARGV[4] = ts
-- ARGV[5] = ttlMs
-- ARGV[6] = roomID

redis.call('GEOADD', KEYS[1], ARGV[2], ARGV[3], ARGV[1])

redis.call('HSET', KEYS[2],
  'lat', ARGV[3],
  'lng', ARGV[2],
  'ts', ARGV[4]
)

local ttl = tonumber(ARGV[5])
if ttl and ttl > 0 then
  redis.call('PEXPIRE', KEYS[2], ttl)
else
  redis.call('PERSIST', KEYS[2])
end

redis.call('ZADD', KEYS[3], ARGV[4], ARGV[1])
redis.call('SADD', KEYS[4], ARGV[6])

return 1
`

func NewRedisStore(addr, password string, db int, ttl time.Duration) *RedisStore {
	poolSize := runtime.GOMAXPROCS(0) * 16
	if poolSize < 32 {
		poolSize = 32
	}
	if poolSize > 128 {
		poolSize = 128
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,

		PoolSize:     poolSize,
		MinIdleConns: poolSize / 4,

		PoolTimeout: 1 * time.Second,

		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,

		MaxRetries:      1,
		MinRetryBackoff: 25 * time.Millisecond,
		MaxRetryBackoff: 250 * time.Millisecond,
	})

	return &RedisStore{
		rdb:      rdb,
		roomsKey: "history:rooms",
		ttl:      ttl,

		opTimeout: 5 * time.Second,

		inflight: make(chan struct{}, poolSize),

		saveScript: goredis.NewScript(saveMovementLua),
	}
}

func (s *RedisStore) Close() error {
	return s.rdb.Close()
}

func geoKey(roomID string) string      { return fmt.Sprintf("room:%s:geo", roomID) }
func lastSeenKey(roomID string) string { return fmt.Sprintf("room:%s:last_seen", roomID) }
func userKey(roomID string, userID int64) string {
	return fmt.Sprintf("loc:%s:%d", roomID, userID)
}

func (s *RedisStore) SaveMovement(ctx context.Context, m Movement) error {
	if ctx == nil {
		ctx = context.Background()
	}

	if _, hasDeadline := ctx.Deadline(); !hasDeadline && s.opTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opTimeout)
		defer cancel()
	}

	select {
	case s.inflight <- struct{}{}:
		defer func() { <-s.inflight }()
	case <-ctx.Done():
		return ctx.Err()
	}

	keys := []string{
		geoKey(m.RoomID),
		userKey(m.RoomID, m.UserID),
		lastSeenKey(m.RoomID),
		s.roomsKey,
	}
	err := s.saveScript.Run(
		ctx,
		s.rdb,
		keys,
		m.UserID,
		m.Lng,
		m.Lat,
		m.TS,
		s.ttl.Milliseconds(),
		m.RoomID,
	).Err()

	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return fmt.Errorf("redis SaveMovement timeout/cancel: %w", err)
		}
		return fmt.Errorf("redis SaveMovement failed: %w", err)
	}

	return nil
}
