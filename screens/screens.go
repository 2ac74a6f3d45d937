// Package screens defines the conversation state machine.
//
// Each screen is a static definition keyed by types.ScreenID: an optional
// loader fetching the typed payload it displays, a pure render function and
// the handlers for its actions and text input. Only the plain SessionState is
// ever serialized, the registry is code.
package screens

import (
	"context"
	"fmt"
	"time"

	"habitbot/habitapi"
	"habitbot/types"

	"go.uber.org/zap"
)

// Mailer sends verification codes
type Mailer interface {
	SendVerificationCode(ctx context.Context, email string) (string, error)
}

// Reconciler keeps a user's reminder job in line with their eligibility
type Reconciler interface {
	Reconcile(ctx context.Context, ownerID string, notificationsEnabled, hasIncompleteTargets bool, hour, minute int) error
}

// Deps are the services handlers and loaders may call
type Deps struct {
	Habits    habitapi.Service
	Mailer    Mailer
	Reminders Reconciler
	Logger    *zap.Logger
	Now       func() time.Time

	// Lifetime of the pending password
	PendingTTL time.Duration
	// Lifetime of a mailed verification code
	CodeTTL time.Duration
	// Lifetime of each create target wizard field
	DraftTTL time.Duration
}

// Transition is the input of a handler. State is a clone of the stored state
// the handler may freely mutate.
type Transition struct {
	Ctx    context.Context
	Deps   *Deps
	State  *types.SessionState
	Action types.Action
	Text   string
	Now    time.Time
}

// A handler returns the next screen. A types.ValidationError keeps the
// conversation on the current screen, types.ErrUnauthorized closes the session.
type Handler func(t *Transition) (types.ScreenID, error)

type Loader func(ctx context.Context, d *Deps, st *types.SessionState) (any, error)

type Renderer func(st types.SessionState, payload any) types.View

type Screen struct {
	ID types.ScreenID

	// Requires st.AuthToken, a screen reached without one closes the session
	Auth bool

	// Nil for screens that only render state
	Load   Loader
	Render Renderer

	Actions map[string]Handler

	// Nil when the screen does not take text input
	Text Handler
}

// loaded pairs a loader and renderer sharing the payload type P
func loaded[P any](load func(context.Context, *Deps, *types.SessionState) (P, error), render func(types.SessionState, P) types.View) (Loader, Renderer) {
	l := func(ctx context.Context, d *Deps, st *types.SessionState) (any, error) {
		return load(ctx, d, st)
	}

	r := func(st types.SessionState, payload any) types.View {
		p, _ := payload.(P)
		return render(st, p)
	}

	return l, r
}

func static(render func(types.SessionState) types.View) Renderer {
	return func(st types.SessionState, _ any) types.View {
		return render(st)
	}
}

// goTo is a handler that only moves to id
func goTo(id types.ScreenID) Handler {
	return func(*Transition) (types.ScreenID, error) {
		return id, nil
	}
}

type Registry struct {
	screens map[types.ScreenID]Screen
}

func (r *Registry) add(s Screen) {
	if s.ID == "" {
		panic("screen id cannot be empty")
	}

	if s.Render == nil {
		panic(fmt.Sprintf("screen %s has no render function", s.ID))
	}

	if _, ok := r.screens[s.ID]; ok {
		panic(fmt.Sprintf("screen %s registered twice", s.ID))
	}

	for name, h := range s.Actions {
		if h == nil {
			panic(fmt.Sprintf("screen %s: action %s has no handler", s.ID, name))
		}
	}

	r.screens[s.ID] = s
}

func (r *Registry) Get(id types.ScreenID) (Screen, bool) {
	s, ok := r.screens[id]
	return s, ok
}

// Root is where new and closed sessions start
func (r *Registry) Root() Screen {
	return r.screens[types.ScreenRoot]
}

// Render renders id without loading it. Unknown screens render as the root.
func (r *Registry) Render(id types.ScreenID, st types.SessionState, payload any) types.View {
	s, ok := r.screens[id]

	if !ok {
		s = r.Root()
	}

	return s.Render(st, payload)
}

// NewRegistry builds the full conversation graph
func NewRegistry() *Registry {
	r := &Registry{screens: make(map[types.ScreenID]Screen)}

	addAuthScreens(r)
	addTargetScreens(r)
	addCreateScreens(r)
	addSettingsScreens(r)

	return r
}
