package botapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"habitbot/types"

	"github.com/bwmarrin/discordgo"
	"golang.org/x/exp/slices"
)

const (
	maxButtonsPerRow = 5
	maxRows          = 5
)

// Gateway sends, edits and deletes conversation messages over discord
type Gateway struct {
	Session *discordgo.Session
}

func NewGateway(s *discordgo.Session) *Gateway {
	return &Gateway{Session: s}
}

var (
	secondaryActions = []string{"back", "cancel"}
	dangerActions    = []string{"delete", "confirm", "sign_out"}
)

func buttonStyle(action string) discordgo.ButtonStyle {
	name := types.ParseAction(action).Name

	switch {
	case slices.Contains(secondaryActions, name):
		return discordgo.SecondaryButton
	case slices.Contains(dangerActions, name):
		return discordgo.DangerButton
	default:
		return discordgo.PrimaryButton
	}
}

// Components lays the view's actions out in rows of buttons
func Components(v types.View) []discordgo.MessageComponent {
	rows := []discordgo.MessageComponent{}

	if v.Actions == nil {
		return rows
	}

	var row discordgo.ActionsRow

	for pair := v.Actions.Oldest(); pair != nil; pair = pair.Next() {
		if len(row.Components) == maxButtonsPerRow {
			rows = append(rows, row)
			row = discordgo.ActionsRow{}
		}

		row.Components = append(row.Components, discordgo.Button{
			Label:    pair.Value,
			Style:    buttonStyle(pair.Key),
			CustomID: pair.Key,
		})
	}

	if len(row.Components) > 0 {
		rows = append(rows, row)
	}

	if len(rows) > maxRows {
		rows = rows[:maxRows]
	}

	return rows
}

// mapError turns a missing message into types.ErrMessageNotFound
func mapError(err error) error {
	if err == nil {
		return nil
	}

	var rest *discordgo.RESTError

	if errors.As(err, &rest) {
		if rest.Message != nil && rest.Message.Code == discordgo.ErrCodeUnknownMessage {
			return fmt.Errorf("%w: %s", types.ErrMessageNotFound, rest.Message.Message)
		}

		if rest.Response != nil && rest.Response.StatusCode == http.StatusNotFound {
			return fmt.Errorf("%w: %v", types.ErrMessageNotFound, err)
		}
	}

	return err
}

func (g *Gateway) Send(ctx context.Context, conv types.ConversationID, view types.View) (types.MessageID, error) {
	msg, err := g.Session.ChannelMessageSendComplex(string(conv), &discordgo.MessageSend{
		Content:    view.Text,
		Components: Components(view),
	}, discordgo.WithContext(ctx))

	if err != nil {
		return "", mapError(err)
	}

	return types.MessageID(msg.ID), nil
}

func (g *Gateway) Edit(ctx context.Context, conv types.ConversationID, id types.MessageID, view types.View) error {
	content := view.Text
	components := Components(view)

	_, err := g.Session.ChannelMessageEditComplex(&discordgo.MessageEdit{
		ID:         string(id),
		Channel:    string(conv),
		Content:    &content,
		Components: &components,
	}, discordgo.WithContext(ctx))

	return mapError(err)
}

func (g *Gateway) Delete(ctx context.Context, conv types.ConversationID, id types.MessageID) error {
	return mapError(g.Session.ChannelMessageDelete(string(conv), string(id), discordgo.WithContext(ctx)))
}

// DirectConversation opens (or returns the existing) DM channel with userID
func (g *Gateway) DirectConversation(ctx context.Context, userID string) (types.ConversationID, error) {
	ch, err := g.Session.UserChannelCreate(userID, discordgo.WithContext(ctx))

	if err != nil {
		return "", err
	}

	return types.ConversationID(ch.ID), nil
}
