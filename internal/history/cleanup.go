package history

import (
	"context"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// StartCleanupLoop periodically drops users from a room's geo set when they
// have not reported a position within the store TTL.
func (s *RedisStore) StartCleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)

	go func() {
		for range ticker.C {
			s.cleanupStaleUsers()
		}
	}()
}

func (s *RedisStore) cleanupStaleUsers() {
	ctx := context.Background()

	rooms, err := s.rdb.SMembers(ctx, s.roomsKey).Result()
	if err != nil || len(rooms) == 0 {
		return
	}

	cutoff := time.Now().Unix() - int64(s.ttl.Seconds())
	for _, roomID := range rooms {
		s.cleanupRoom(ctx, roomID, cutoff)
	}
}

func (s *RedisStore) cleanupRoom(ctx context.Context, roomID string, cutoff int64) {
	lastSeen := lastSeenKey(roomID)

	stale, err := s.rdb.ZRangeByScore(ctx, lastSeen, &goredis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(cutoff, 10),
	}).Result()
	if err != nil || len(stale) == 0 {
		return
	}

	pipe := s.rdb.Pipeline()

	pipe.ZRem(ctx, geoKey(roomID), stale)
	pipe.ZRem(ctx, lastSeen, stale)

	_, _ = pipe.Exec(ctx)

	if n, err := s.rdb.ZCard(ctx, lastSeen).Result(); err == nil && n == 0 {
		_ = s.rdb.SRem(ctx, s.roomsKey, roomID).Err()
	}
}
