// Delivery of daily reminders over direct messages
package notifications

import (
	"context"
	"errors"
	"fmt"

	"habitbot/constants"
	"habitbot/habitapi"
	"habitbot/reminders"
	"habitbot/types"

	"go.uber.org/zap"
)

// Messenger opens direct conversations and posts into them
type Messenger interface {
	DirectConversation(ctx context.Context, userID string) (types.ConversationID, error)
	Send(ctx context.Context, conv types.ConversationID, view types.View) (types.MessageID, error)
}

// TrashRecorder queues a message for cleanup on the conversation's next transition
type TrashRecorder interface {
	AppendTrash(ctx context.Context, conv types.ConversationID, id types.MessageID) error
}

type Reminder struct {
	Messenger Messenger
	Trash     TrashRecorder
	Habits    habitapi.Service
	Logger    *zap.Logger
}

func NewReminder(m Messenger, trash TrashRecorder, habits habitapi.Service, logger *zap.Logger) *Reminder {
	return &Reminder{
		Messenger: m,
		Trash:     trash,
		Habits:    habits,
		Logger:    logger,
	}
}

func reminderView(incomplete int) types.View {
	if incomplete == 1 {
		return types.NewView(constants.TextReminder + "\n\n1 target is waiting for you.")
	}

	return types.NewView(fmt.Sprintf("%s\n\n%d targets are waiting for you.", constants.TextReminder, incomplete))
}

// Notify sends ownerID their reminder. An owner that is gone, turned
// notifications off or has nothing left to do gets reminders.ErrStale instead. The message is
// left for the trash collector.
func (r *Reminder) Notify(ctx context.Context, ownerID string) error {
	user, err := r.Habits.GetUser(ctx, ownerID)

	if errors.Is(err, types.ErrNotFound) {
		return fmt.Errorf("user %s is gone: %w", ownerID, reminders.ErrStale)
	}

	if err != nil {
		return fmt.Errorf("get user: %w", err)
	}

	if !user.NotificationsEnabled {
		r.Logger.Debug("Skipping reminder, notifications are off", zap.String("user_id", ownerID))
		return fmt.Errorf("notifications disabled: %w", reminders.ErrStale)
	}

	n, err := r.Habits.CountIncompleteTargets(ctx, ownerID)

	if err != nil {
		return fmt.Errorf("count incomplete targets: %w", err)
	}

	if n == 0 {
		r.Logger.Debug("Skipping reminder, nothing left to do", zap.String("user_id", ownerID))
		return fmt.Errorf("no incomplete targets: %w", reminders.ErrStale)
	}

	conv, err := r.Messenger.DirectConversation(ctx, ownerID)

	if err != nil {
		return fmt.Errorf("open direct conversation: %w", err)
	}

	id, err := r.Messenger.Send(ctx, conv, reminderView(n))

	if err != nil {
		return fmt.Errorf("send reminder: %w", err)
	}

	if err := r.Trash.AppendTrash(ctx, conv, id); err != nil {
		// The reminder was delivered, it just won't be cleaned up
		r.Logger.Error("Failed to record reminder as trash", zap.Error(err), zap.String("user_id", ownerID), zap.String("message_id", string(id)))
	}

	return nil
}
