package sessions

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"habitbot/types"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reachableStates() []types.SessionState {
	now := time.Date(2026, 10, 17, 20, 0, 0, 0, time.UTC)

	fresh := types.NewSessionState("u1")

	authed := types.NewSessionState("u1")
	authed.ActiveMessageID = "m1"
	authed.AuthToken = "tok"
	authed.ScreenID = types.ScreenProfile

	wizard := authed.Clone()
	wizard.ScreenID = types.ScreenCreateBorder
	wizard.SetScratch(types.ScratchDraftName, "Run", 30*time.Minute, now)
	wizard.SetScratch(types.ScratchDraftDesc, "5k every morning", 30*time.Minute, now)
	wizard.Feedback = "Border must be a number"

	verifying := authed.Clone()
	verifying.ScreenID = types.ScreenEmailVerify
	verifying.SetScratch(types.ScratchPendingEmail, "a@b.c", 10*time.Minute, now)
	verifying.SetScratch(types.ScratchEmailCode, "123456", 10*time.Minute, now)

	errored := authed.Clone()
	errored.ScreenID = types.ScreenError
	errored.ReturnTo = types.ScreenTargets
	errored.SetScratch(types.ScratchSelectedTarget, "t1", 0, now)

	closed := authed.Clone()
	closed.Reset()
	closed.ScreenID = types.ScreenSessionClosed

	return []types.SessionState{fresh, authed, wizard, verifying, errored, closed}
}

func TestRoundTrip(t *testing.T) {
	for _, state := range reachableStates() {
		b, err := Encode(state)
		require.NoError(t, err)

		got, err := Decode(b)
		require.NoError(t, err)

		assert.Equal(t, state, got)
	}
}

func TestRoundTripNormalizesEmptyCollections(t *testing.T) {
	state := types.NewSessionState("u1")
	state.Trash = []types.MessageID{}
	state.Scratch = map[string]types.ScratchValue{}

	b, err := Encode(state)
	require.NoError(t, err)

	got, err := Decode(b)
	require.NoError(t, err)

	state.Normalize()
	assert.Equal(t, state, got)
}

func TestDecodeDefaultsToRoot(t *testing.T) {
	got, err := Decode([]byte(`{"user_id":"u1"}`))
	require.NoError(t, err)
	assert.Equal(t, types.ScreenRoot, got.ScreenID)
}

func TestDecodeGarbage(t *testing.T) {
	_, err := Decode([]byte("not json"))
	assert.ErrorIs(t, err, ErrCorrupt)

	_, err = Decode([]byte(`{"screen_id":`))
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	_, ok, err := store.Get(ctx, "c1")
	require.NoError(t, err)
	assert.False(t, ok)

	state := reachableStates()[2]
	require.NoError(t, store.Put(ctx, "c1", state))

	got, ok, err := store.Get(ctx, "c1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, state, got)

	// a failed put keeps the old state
	store.PutErr = errors.New("down")
	assert.Error(t, store.Put(ctx, "c1", types.NewSessionState("u1")))
	store.PutErr = nil

	got, _, err = store.Get(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, state, got)

	require.NoError(t, store.Delete(ctx, "c1"))
	require.NoError(t, store.Delete(ctx, "c1"))
	assert.Equal(t, 0, store.Len())
}

func TestRedisStore(t *testing.T) {
	url := os.Getenv("HABITBOT_TEST_REDIS_URL")
	if url == "" {
		t.Skip("HABITBOT_TEST_REDIS_URL not set")
	}

	opts, err := redis.ParseURL(url)
	require.NoError(t, err)

	ctx := context.Background()
	store := NewRedisStore(redis.NewClient(opts), time.Minute)

	id := types.ConversationID("test-" + time.Now().Format("150405.000000"))
	defer store.Delete(ctx, id)

	_, ok, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.False(t, ok)

	state := reachableStates()[3]
	require.NoError(t, store.Put(ctx, id, state))

	got, ok, err := store.Get(ctx, id)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, state, got)
}
