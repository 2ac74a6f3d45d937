// Persistence of serialized per-conversation state
package sessions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"habitbot/types"

	jsoniter "github.com/json-iterator/go"
	"github.com/redis/go-redis/v9"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Store persists one SessionState blob per conversation. Put is a full
// overwrite, a failed Put leaves the previously stored state untouched.
//
// Callers serialize access per conversation, implementations need not.
type Store interface {
	Get(ctx context.Context, id types.ConversationID) (types.SessionState, bool, error)
	Put(ctx context.Context, id types.ConversationID, state types.SessionState) error
	Delete(ctx context.Context, id types.ConversationID) error
}

// ErrCorrupt marks a stored blob that can't be decoded. Retrying won't help,
// the blob has to be overwritten.
var ErrCorrupt = errors.New("corrupt session state")

func Encode(state types.SessionState) ([]byte, error) {
	state.Normalize()
	return json.Marshal(state)
}

func Decode(b []byte) (types.SessionState, error) {
	var state types.SessionState

	if err := json.Unmarshal(b, &state); err != nil {
		return types.SessionState{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	if state.ScreenID == "" {
		state.ScreenID = types.ScreenRoot
	}

	state.Normalize()
	return state, nil
}

const keyPrefix = "session:"

// RedisStore keeps each state under session:<conversation id>
type RedisStore struct {
	Redis *redis.Client
	// Zero keeps sessions forever
	TTL time.Duration
}

func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{Redis: rdb, TTL: ttl}
}

func key(id types.ConversationID) string {
	return keyPrefix + string(id)
}

func (s *RedisStore) Get(ctx context.Context, id types.ConversationID) (types.SessionState, bool, error) {
	b, err := s.Redis.Get(ctx, key(id)).Bytes()

	if errors.Is(err, redis.Nil) {
		return types.SessionState{}, false, nil
	}

	if err != nil {
		return types.SessionState{}, false, fmt.Errorf("failed to get session %s: %w", id, err)
	}

	state, err := Decode(b)

	if err != nil {
		return types.SessionState{}, false, err
	}

	return state, true, nil
}

func (s *RedisStore) Put(ctx context.Context, id types.ConversationID, state types.SessionState) error {
	b, err := Encode(state)

	if err != nil {
		return fmt.Errorf("encode session state: %w", err)
	}

	// A single SET replaces the blob atomically
	err = s.Redis.Set(ctx, key(id), b, s.TTL).Err()

	if err != nil {
		return fmt.Errorf("failed to put session %s: %w", id, err)
	}

	return nil
}

func (s *RedisStore) Delete(ctx context.Context, id types.ConversationID) error {
	err := s.Redis.Del(ctx, key(id)).Err()

	if err != nil {
		return fmt.Errorf("failed to delete session %s: %w", id, err)
	}

	return nil
}
