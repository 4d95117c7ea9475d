package redis

import (
	"context"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

const lastSeenKeyPrefix = "last_seen:"

// LastSeenStore records when a user was last connected. Live presence is
// derived from the in-process registry; this store only backs the
// "last seen at" annotation on contact listings, so it survives hub
// restarts.
type LastSeenStore struct {
	client *goredis.Client
	ttl    time.Duration
}

func NewLastSeenStore(client *goredis.Client, ttl time.Duration) *LastSeenStore {
	if ttl == 0 {
		ttl = 30 * 24 * time.Hour
	}
	return &LastSeenStore{client: client, ttl: ttl}
}

// Touch records the user as seen now.
func (s *LastSeenStore) Touch(ctx context.Context, userID uuid.UUID) error {
	key := lastSeenKeyPrefix + userID.String()
	return s.client.Set(ctx, key, time.Now().UTC().Format(time.RFC3339), s.ttl).Err()
}

// Get returns the user's last-seen time, reporting false when none is
// recorded.
func (s *LastSeenStore) Get(ctx context.Context, userID uuid.UUID) (time.Time, bool, error) {
	key := lastSeenKeyPrefix + userID.String()
	value, err := s.client.Get(ctx, key).Result()
	if err == goredis.Nil {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, false, nil
	}
	return t, true, nil
}

// GetMany returns last-seen times for several users in one round trip.
func (s *LastSeenStore) GetMany(ctx context.Context, userIDs []uuid.UUID) (map[uuid.UUID]time.Time, error) {
	result := make(map[uuid.UUID]time.Time, len(userIDs))
	if len(userIDs) == 0 {
		return result, nil
	}

	pipe := s.client.Pipeline()
	cmds := make(map[uuid.UUID]*goredis.StringCmd, len(userIDs))
	for _, id := range userIDs {
		cmds[id] = pipe.Get(ctx, lastSeenKeyPrefix+id.String())
	}
	if _, err := pipe.Exec(ctx); err != nil && err != goredis.Nil {
		return nil, err
	}

	for id, cmd := range cmds {
		value, err := cmd.Result()
		if err != nil {
			continue
		}
		if t, err := time.Parse(time.RFC3339, value); err == nil {
			result[id] = t
		}
	}
	return result, nil
}
