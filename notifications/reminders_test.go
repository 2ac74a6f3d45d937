package notifications

import (
	"context"
	"errors"
	"testing"

	"habitbot/habitapi"
	"habitbot/reminders"
	"habitbot/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeMessenger struct {
	sent    []types.View
	sendErr error
}

func (m *fakeMessenger) DirectConversation(ctx context.Context, userID string) (types.ConversationID, error) {
	return types.ConversationID("dm-" + userID), nil
}

func (m *fakeMessenger) Send(ctx context.Context, conv types.ConversationID, view types.View) (types.MessageID, error) {
	if m.sendErr != nil {
		return "", m.sendErr
	}
	m.sent = append(m.sent, view)
	return "r1", nil
}

type trashLog struct {
	conv types.ConversationID
	ids  []types.MessageID
	err  error
}

func (l *trashLog) AppendTrash(ctx context.Context, conv types.ConversationID, id types.MessageID) error {
	l.conv = conv
	l.ids = append(l.ids, id)
	return l.err
}

func subscribed(userID string) *habitapi.Memory {
	habits := habitapi.NewMemory()
	habits.AddUser(types.User{ID: userID, NotificationsEnabled: true, NotificationHour: 20}, "")
	return habits
}

func TestNotifySendsAndRecordsTrash(t *testing.T) {
	habits := subscribed("u1")
	habits.AddTarget("u1", types.Target{Name: "Run", BorderProgress: 30})
	habits.AddTarget("u1", types.Target{Name: "Read", BorderProgress: 30})

	m := &fakeMessenger{}
	tl := &trashLog{}

	require.NoError(t, NewReminder(m, tl, habits, zap.NewNop()).Notify(context.Background(), "u1"))

	require.Len(t, m.sent, 1)
	assert.Contains(t, m.sent[0].Text, "2 targets are waiting")
	assert.Equal(t, types.ConversationID("dm-u1"), tl.conv)
	assert.Equal(t, []types.MessageID{"r1"}, tl.ids)
}

func TestNotifyStale(t *testing.T) {
	tests := []struct {
		name    string
		enabled bool
		done    bool
	}{
		{name: "all done", enabled: true, done: true},
		{name: "notifications off", enabled: false, done: false},
		{name: "both", enabled: false, done: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			habits := habitapi.NewMemory()
			habits.AddUser(types.User{ID: "u1", NotificationsEnabled: tt.enabled, NotificationHour: 20}, "")
			habits.AddTarget("u1", types.Target{Name: "Run", BorderProgress: 30, Completed: tt.done})

			m := &fakeMessenger{}
			err := NewReminder(m, &trashLog{}, habits, zap.NewNop()).Notify(context.Background(), "u1")

			assert.ErrorIs(t, err, reminders.ErrStale)
			assert.Empty(t, m.sent)
		})
	}
}

func TestNotifyUnknownUser(t *testing.T) {
	m := &fakeMessenger{}
	err := NewReminder(m, &trashLog{}, habitapi.NewMemory(), zap.NewNop()).Notify(context.Background(), "ghost")

	assert.ErrorIs(t, err, reminders.ErrStale)
	assert.Empty(t, m.sent)

	// A service outage is not a reason to drop the job
	down := subscribed("u1")
	down.Err = errors.New("service down")
	err = NewReminder(m, &trashLog{}, down, zap.NewNop()).Notify(context.Background(), "u1")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, reminders.ErrStale)
}

func TestNotifyErrors(t *testing.T) {
	habits := subscribed("u1")
	habits.AddTarget("u1", types.Target{Name: "Run", BorderProgress: 30})

	m := &fakeMessenger{sendErr: errors.New("dm closed")}
	assert.Error(t, NewReminder(m, &trashLog{}, habits, zap.NewNop()).Notify(context.Background(), "u1"))

	// A failed trash write does not fail a delivered reminder
	tl := &trashLog{err: errors.New("redis down")}
	assert.NoError(t, NewReminder(&fakeMessenger{}, tl, habits, zap.NewNop()).Notify(context.Background(), "u1"))
}
