// Tracking and cleanup of ephemeral (non-primary) messages
package trash

import (
	"context"
	"errors"

	"habitbot/types"

	"go.uber.org/zap"
	"golang.org/x/exp/slices"
)

// Neutral text a message is overwritten with when it can not be deleted
const Marker = "·"

// Gateway is the part of the messaging transport the collector needs
type Gateway interface {
	Edit(ctx context.Context, conv types.ConversationID, id types.MessageID, view types.View) error
	Delete(ctx context.Context, conv types.ConversationID, id types.MessageID) error
}

type Collector struct {
	Gateway Gateway
	Logger  *zap.Logger
}

func New(gw Gateway, logger *zap.Logger) *Collector {
	return &Collector{Gateway: gw, Logger: logger}
}

// Append records id as trash, the active message is never trash
func (c *Collector) Append(state *types.SessionState, id types.MessageID) {
	if id == "" || id == state.ActiveMessageID {
		return
	}

	if slices.Contains(state.Trash, id) {
		return
	}

	state.Trash = append(state.Trash, id)
}

// Flush deletes every trashed message. A message that can't be found falls
// back to having its content overwritten with Marker. Trash is always empty
// afterwards, failures are only logged.
func (c *Collector) Flush(ctx context.Context, conv types.ConversationID, state *types.SessionState) {
	ids := state.Trash
	state.Trash = nil

	for _, id := range ids {
		err := c.Gateway.Delete(ctx, conv, id)

		if err == nil {
			continue
		}

		if !errors.Is(err, types.ErrMessageNotFound) {
			c.Logger.Warn("Failed to delete trashed message", zap.Error(err), zap.String("conversation_id", string(conv)), zap.String("message_id", string(id)))
			continue
		}

		err = c.Gateway.Edit(ctx, conv, id, types.NewView(Marker))

		if err != nil {
			c.Logger.Debug("Trashed message is gone", zap.Error(err), zap.String("conversation_id", string(conv)), zap.String("message_id", string(id)))
		}
	}
}
