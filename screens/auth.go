package screens

import (
	"errors"

	"habitbot/constants"
	"habitbot/types"
)

func addAuthScreens(r *Registry) {
	r.add(Screen{
		ID: types.ScreenRoot,
		Render: static(func(types.SessionState) types.View {
			return types.NewView(constants.TextRoot).Add("sign_in", constants.LabelSignIn)
		}),
		Actions: map[string]Handler{
			"sign_in": signIn,
		},
	})

	r.add(Screen{
		ID: types.ScreenPassword,
		Render: static(func(types.SessionState) types.View {
			return types.NewView(constants.TextPassword).Add("back", constants.LabelBack)
		}),
		Actions: map[string]Handler{
			"back": goTo(types.ScreenRoot),
		},
		Text: submitPassword,
	})

	r.add(Screen{
		ID: types.ScreenSessionClosed,
		Render: static(func(types.SessionState) types.View {
			return types.NewView(constants.TextSessionClosed).Add("sign_in", constants.LabelSignIn)
		}),
		Actions: map[string]Handler{
			"sign_in": signIn,
		},
	})

	r.add(Screen{
		ID: types.ScreenError,
		Render: static(func(types.SessionState) types.View {
			return types.NewView(constants.TextError).Add("retry", constants.LabelRetry)
		}),
		Actions: map[string]Handler{
			"retry": retry,
		},
	})
}

// signIn authenticates passwordless accounts straight away and asks the rest
// for their password. Accounts the service does not know yet are created by
// the first Authenticate.
func signIn(t *Transition) (types.ScreenID, error) {
	user, err := t.Deps.Habits.GetUser(t.Ctx, t.State.UserID)

	switch {
	case errors.Is(err, types.ErrNotFound):
	case err != nil:
		return "", err
	case user.HasPassword:
		return types.ScreenPassword, nil
	}

	token, err := t.Deps.Habits.Authenticate(t.Ctx, t.State.UserID, nil)

	if err != nil {
		return "", err
	}

	t.State.AuthToken = token
	return types.ScreenProfile, nil
}

func submitPassword(t *Transition) (types.ScreenID, error) {
	password := t.Text

	token, err := t.Deps.Habits.Authenticate(t.Ctx, t.State.UserID, &password)

	if errors.Is(err, types.ErrUnauthorized) {
		return "", types.Invalid(constants.FeedbackWrongPassword)
	}

	if err != nil {
		return "", err
	}

	t.State.AuthToken = token
	return types.ScreenProfile, nil
}

// retry goes back to the screen that failed
func retry(t *Transition) (types.ScreenID, error) {
	next := t.State.ReturnTo
	t.State.ReturnTo = ""

	if next == "" || next == types.ScreenError {
		if t.State.Authenticated() {
			return types.ScreenProfile, nil
		}
		return types.ScreenRoot, nil
	}

	return next, nil
}
