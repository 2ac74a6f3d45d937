// Defines the session commands
package session

import (
	"habitbot/bot/botapi"
	"habitbot/engine"
	"habitbot/types"

	"go.uber.org/zap"
)

func Register(cmds *botapi.Commands, h botapi.EventHandler) {
	cmds.AddCommand(botapi.Command{
		Name:        engine.CommandStart,
		Description: "Open the menu in a fresh message",
		Callback: func(ctx *botapi.Context) {
			ctx.Reply("Opening the menu...", true)
			run(ctx, h, engine.CommandStart)
		},
	})

	cmds.AddCommand(botapi.Command{
		Name:        engine.CommandClose,
		Description: "Sign out and close the session",
		Callback: func(ctx *botapi.Context) {
			ctx.Reply("Closing the session.", true)
			run(ctx, h, engine.CommandClose)
		},
	})
}

// Event builds the engine event of a session command
func Event(i *botapi.Context, command string) engine.Event {
	return engine.Event{
		ConversationID: types.ConversationID(i.Interaction.ChannelID),
		UserID:         i.UserID(),
		Kind:           engine.KindCommand,
		Command:        command,
	}
}

func run(ctx *botapi.Context, h botapi.EventHandler, command string) {
	if err := h.HandleEvent(ctx.Ctx, Event(ctx, command)); err != nil {
		ctx.Logger.Error("Failed to run session command", zap.Error(err), zap.String("command", command))
	}
}
