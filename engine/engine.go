// Package engine runs conversation transitions: one event in, one rendered
// screen out, with the session persisted and trash flushed every time.
package engine

import (
	"context"
	"errors"
	"fmt"

	"habitbot/constants"
	"habitbot/screens"
	"habitbot/sessions"
	"habitbot/trash"
	"habitbot/types"

	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"
	"github.com/moby/locker"
	"go.uber.org/zap"
)

type EventKind string

const (
	KindCommand EventKind = "command"
	KindAction  EventKind = "action"
	KindText    EventKind = "text"
)

const (
	CommandStart = "start"
	CommandClose = "close"
)

// An Event is one inbound interaction. MessageID is the user's own message
// for text events and the clicked message for actions.
type Event struct {
	ConversationID types.ConversationID
	UserID         string
	Kind           EventKind
	Command        string
	Action         string
	Text           string
	MessageID      types.MessageID
}

// Gateway is the messaging transport
type Gateway interface {
	trash.Gateway
	Send(ctx context.Context, conv types.ConversationID, view types.View) (types.MessageID, error)
}

// Loading a screen may fail over to another screen, which may fail again.
// The error screen has no loader so this is only hit by broken service data.
const maxLoadAttempts = 4

type Engine struct {
	Store   sessions.Store
	Screens *screens.Registry
	Gateway Gateway
	Trash   *trash.Collector
	Deps    *screens.Deps
	Logger  *zap.Logger

	// Held for exactly one transition per conversation
	locks *locker.Locker
}

func New(store sessions.Store, gw Gateway, deps *screens.Deps, logger *zap.Logger) *Engine {
	return &Engine{
		Store:   store,
		Screens: screens.NewRegistry(),
		Gateway: gw,
		Trash:   trash.New(gw, logger),
		Deps:    deps,
		Logger:  logger,
		locks:   locker.New(),
	}
}

func (e *Engine) HandleEvent(ctx context.Context, ev Event) error {
	e.locks.Lock(string(ev.ConversationID))
	defer e.locks.Unlock(string(ev.ConversationID))

	log := e.Logger.With(
		zap.String("event_id", uuid.NewString()),
		zap.String("conversation_id", string(ev.ConversationID)),
		zap.String("user_id", ev.UserID),
		zap.String("kind", string(ev.Kind)),
	)

	current, ok, err := e.Store.Get(ctx, ev.ConversationID)

	if errors.Is(err, sessions.ErrCorrupt) {
		// This transition overwrites the unreadable blob
		log.Error("Discarding unreadable session", zap.Error(err))
		sentry.CaptureException(err)
		current, ok, err = types.NewSessionState(ev.UserID), false, nil
	}

	if err != nil {
		log.Error("Failed to load session", zap.Error(err))
		sentry.CaptureException(err)

		// Nothing is known about the session, so nothing is persisted either
		view := e.Screens.Render(types.ScreenError, types.NewSessionState(ev.UserID), nil)
		if _, sendErr := e.Gateway.Send(ctx, ev.ConversationID, view); sendErr != nil {
			log.Error("Failed to send error screen", zap.Error(sendErr))
		}

		return fmt.Errorf("load session: %w", err)
	}

	if !ok {
		current = types.NewSessionState(ev.UserID)
	}

	if current.UserID == "" {
		current.UserID = ev.UserID
	}

	next := current.Clone()
	now := e.Deps.Now()

	screen, ok := e.Screens.Get(next.ScreenID)

	if !ok {
		log.Warn("Session on unknown screen, resetting to root", zap.String("screen_id", string(next.ScreenID)))
		screen = e.Screens.Root()
		next.ScreenID = screen.ID
	}

	if ev.Kind == KindText {
		e.Trash.Append(&next, ev.MessageID)
	}

	t := &screens.Transition{
		Ctx:   ctx,
		Deps:  e.Deps,
		State: &next,
		Text:  ev.Text,
		Now:   now,
	}

	var (
		target   = screen.ID
		freshMsg bool
		herr     error
	)

	switch ev.Kind {
	case KindCommand:
		switch ev.Command {
		case CommandStart:
			freshMsg = true
		case CommandClose:
			next.Reset()
			target = types.ScreenSessionClosed
		default:
			log.Warn("Unknown command", zap.String("command", ev.Command))
		}
	case KindAction:
		if ev.MessageID != "" && next.ActiveMessageID != "" && ev.MessageID != next.ActiveMessageID {
			// A button on a message that is no longer the active one
			log.Debug("Ignoring action on stale message", zap.String("message_id", string(ev.MessageID)))
			e.Trash.Append(&next, ev.MessageID)
			break
		}

		t.Action = types.ParseAction(ev.Action)
		h, ok := screen.Actions[t.Action.Name]

		if !ok {
			log.Warn("Unknown action", zap.String("screen_id", string(screen.ID)), zap.String("action", ev.Action))
			break
		}

		target, herr = h(t)
	case KindText:
		if screen.Text == nil {
			herr = types.Invalid(constants.FeedbackTextNotExpected)
			break
		}

		target, herr = screen.Text(t)
	}

	target = e.classify(log, &next, screen.ID, target, herr)
	next.PruneScratch(now)

	view := e.load(ctx, log, &next, target)

	if next.Feedback != "" {
		view.Text = "> " + next.Feedback + "\n\n" + view.Text
		next.Feedback = ""
	}

	e.show(ctx, log, ev.ConversationID, &next, view, freshMsg)

	persisted := next.Clone()
	persisted.Trash = nil

	err = e.Store.Put(ctx, ev.ConversationID, persisted)

	if err != nil {
		log.Error("Failed to persist session", zap.Error(err))
		sentry.CaptureException(err)
	}

	e.Trash.Flush(ctx, ev.ConversationID, &next)

	if err != nil {
		return fmt.Errorf("persist session: %w", err)
	}

	return nil
}

// classify maps a handler or loader error to the screen the conversation
// continues on. stay is the screen to keep on validation errors and to retry
// after infrastructure errors.
func (e *Engine) classify(log *zap.Logger, st *types.SessionState, stay, next types.ScreenID, err error) types.ScreenID {
	if err == nil {
		return next
	}

	var ve types.ValidationError

	switch {
	case errors.As(err, &ve):
		st.Feedback = ve.Message
		return stay
	case errors.Is(err, types.ErrUnauthorized):
		log.Info("Session closed by auth failure", zap.String("screen_id", string(stay)))
		st.Reset()
		return types.ScreenSessionClosed
	case errors.Is(err, types.ErrNotFound):
		st.Feedback = constants.FeedbackNotFound
		st.DeleteScratch(types.ScratchSelectedTarget)

		if st.Authenticated() {
			return types.ScreenTargets
		}

		return types.ScreenRoot
	default:
		log.Error("Transition failed", zap.Error(err), zap.String("screen_id", string(stay)))
		sentry.CaptureException(err)

		if stay != types.ScreenError {
			st.ReturnTo = stay
		}

		return types.ScreenError
	}
}

// load fetches the payload of target, falling over to other screens on
// failure, sets the state's screen and returns the rendered view.
func (e *Engine) load(ctx context.Context, log *zap.Logger, st *types.SessionState, target types.ScreenID) types.View {
	for attempt := 0; attempt < maxLoadAttempts; attempt++ {
		screen, ok := e.Screens.Get(target)

		if !ok {
			log.Error("Transition to unknown screen", zap.String("screen_id", string(target)))
			screen = e.Screens.Root()
		}

		if screen.Auth && !st.Authenticated() {
			target = e.classify(log, st, screen.ID, "", types.ErrUnauthorized)
			continue
		}

		var payload any

		if screen.Load != nil {
			var err error
			payload, err = screen.Load(ctx, e.Deps, st)

			if err != nil {
				target = e.classify(log, st, screen.ID, "", err)
				continue
			}
		}

		st.ScreenID = screen.ID
		return screen.Render(*st, payload)
	}

	log.Error("Giving up loading screens", zap.String("screen_id", string(target)))
	st.ScreenID = types.ScreenError
	return e.Screens.Render(types.ScreenError, *st, nil)
}

// show puts view into the active message, sending a new one when there is
// none, it vanished or fresh is set. Transport failures are only logged.
func (e *Engine) show(ctx context.Context, log *zap.Logger, conv types.ConversationID, st *types.SessionState, view types.View, fresh bool) {
	if st.ActiveMessageID != "" && !fresh {
		err := e.Gateway.Edit(ctx, conv, st.ActiveMessageID, view)

		if err == nil {
			return
		}

		if !errors.Is(err, types.ErrMessageNotFound) {
			log.Error("Failed to edit active message", zap.Error(err), zap.String("message_id", string(st.ActiveMessageID)))
			return
		}

		st.ActiveMessageID = ""
	}

	id, err := e.Gateway.Send(ctx, conv, view)

	if err != nil {
		log.Error("Failed to send screen", zap.Error(err))
		return
	}

	old := st.ActiveMessageID
	st.ActiveMessageID = id
	e.Trash.Append(st, old)
}

// AppendTrash records an out of band message, such as a reminder, so the
// next transition of the conversation deletes it.
func (e *Engine) AppendTrash(ctx context.Context, conv types.ConversationID, id types.MessageID) error {
	e.locks.Lock(string(conv))
	defer e.locks.Unlock(string(conv))

	st, ok, err := e.Store.Get(ctx, conv)

	if errors.Is(err, sessions.ErrCorrupt) {
		e.Logger.Error("Discarding unreadable session", zap.Error(err), zap.String("conversation_id", string(conv)))
		st, ok, err = types.NewSessionState(""), false, nil
	}

	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}

	if !ok {
		st = types.NewSessionState("")
	}

	e.Trash.Append(&st, id)

	if err := e.Store.Put(ctx, conv, st); err != nil {
		return fmt.Errorf("persist session: %w", err)
	}

	return nil
}
