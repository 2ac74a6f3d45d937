package botapi

import (
	"context"
	"time"

	"habitbot/engine"
	"habitbot/types"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

type EventHandler interface {
	HandleEvent(ctx context.Context, ev engine.Event) error
}

type Limiter interface {
	Allow(ctx context.Context, id string) (bool, time.Duration, error)
}

// Inbound feeds direct messages and button presses into the engine
type Inbound struct {
	Engine  EventHandler
	Limiter Limiter
	Logger  *zap.Logger
	Timeout time.Duration
}

func NewInbound(h EventHandler, limiter Limiter, logger *zap.Logger) *Inbound {
	return &Inbound{
		Engine:  h,
		Limiter: limiter,
		Logger:  logger,
		Timeout: 30 * time.Second,
	}
}

func (in *Inbound) Start(sess *discordgo.Session) {
	sess.AddHandler(func(s *discordgo.Session, m *discordgo.MessageCreate) {
		ev, ok := MessageEvent(m)
		if ok {
			in.dispatch(ev)
		}
	})

	sess.AddHandler(func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		ev, ok := ComponentEvent(i)
		if !ok {
			return
		}

		err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseDeferredMessageUpdate,
		})

		if err != nil {
			in.Logger.Error("Failed to acknowledge interaction", zap.Error(err), zap.String("user_id", ev.UserID))
		}

		in.dispatch(ev)
	})
}

// MessageEvent converts a direct message into a text event. Guild messages
// and bots are ignored.
func MessageEvent(m *discordgo.MessageCreate) (engine.Event, bool) {
	if m.Author == nil || m.Author.Bot || m.GuildID != "" {
		return engine.Event{}, false
	}

	return engine.Event{
		ConversationID: types.ConversationID(m.ChannelID),
		UserID:         m.Author.ID,
		Kind:           engine.KindText,
		Text:           m.Content,
		MessageID:      types.MessageID(m.ID),
	}, true
}

// ComponentEvent converts a button press into an action event
func ComponentEvent(i *discordgo.InteractionCreate) (engine.Event, bool) {
	if i.Type != discordgo.InteractionMessageComponent || i.GuildID != "" {
		return engine.Event{}, false
	}

	ev := engine.Event{
		ConversationID: types.ConversationID(i.ChannelID),
		UserID:         InteractionUserID(i.Interaction),
		Kind:           engine.KindAction,
		Action:         i.MessageComponentData().CustomID,
	}

	if i.Message != nil {
		ev.MessageID = types.MessageID(i.Message.ID)
	}

	return ev, ev.UserID != ""
}

func (in *Inbound) dispatch(ev engine.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), in.Timeout)
	defer cancel()

	if in.Limiter != nil {
		ok, retryAfter, err := in.Limiter.Allow(ctx, ev.UserID)

		if err != nil {
			// Fail open
			in.Logger.Error("Rate limit check failed", zap.Error(err), zap.String("user_id", ev.UserID))
		} else if !ok {
			in.Logger.Debug("Dropping rate limited event", zap.String("user_id", ev.UserID), zap.Duration("retry_after", retryAfter))
			return
		}
	}

	if err := in.Engine.HandleEvent(ctx, ev); err != nil {
		in.Logger.Error("Failed to handle event", zap.Error(err), zap.String("conversation_id", string(ev.ConversationID)))
	}
}
