package screens

import (
	"context"
	"fmt"
	"strings"

	"habitbot/constants"
	"habitbot/types"
	"habitbot/validators"

	"go.uber.org/zap"
)

type settingsPayload struct {
	User types.User
}

func addSettingsScreens(r *Registry) {
	back := goTo(types.ScreenSettings)

	settings := Screen{
		ID:   types.ScreenSettings,
		Auth: true,
		Actions: map[string]Handler{
			"notifications": toggleNotifications,
			"time":          goTo(types.ScreenNotificationTime),
			"password":      goTo(types.ScreenPasswordNew),
			"email":         goTo(types.ScreenEmail),
			"back":          goTo(types.ScreenProfile),
		},
	}
	settings.Load, settings.Render = loaded(loadSettings, renderSettings)
	r.add(settings)

	r.add(Screen{
		ID:   types.ScreenNotificationTime,
		Auth: true,
		Render: static(func(types.SessionState) types.View {
			return types.NewView(constants.TextTime).Add("back", constants.LabelBack)
		}),
		Actions: map[string]Handler{"back": back},
		Text:    setNotificationTime,
	})

	r.add(Screen{
		ID:   types.ScreenPasswordNew,
		Auth: true,
		Render: static(func(types.SessionState) types.View {
			return types.NewView(constants.TextPasswordNew).Add("back", constants.LabelBack)
		}),
		Actions: map[string]Handler{"back": back},
		Text:    newPassword,
	})

	r.add(Screen{
		ID:   types.ScreenPasswordConfirm,
		Auth: true,
		Render: static(func(types.SessionState) types.View {
			return types.NewView(constants.TextPasswordAgain).Add("back", constants.LabelBack)
		}),
		Actions: map[string]Handler{"back": dropPending(back, types.ScratchPendingPassword)},
		Text:    confirmPassword,
	})

	r.add(Screen{
		ID:   types.ScreenEmail,
		Auth: true,
		Render: static(func(types.SessionState) types.View {
			return types.NewView(constants.TextEmail).Add("back", constants.LabelBack)
		}),
		Actions: map[string]Handler{"back": back},
		Text:    sendEmailCode,
	})

	r.add(Screen{
		ID:     types.ScreenEmailVerify,
		Auth:   true,
		Render: static(renderEmailVerify),
		Actions: map[string]Handler{
			"resend": dropPending(goTo(types.ScreenEmail), types.ScratchPendingEmail, types.ScratchEmailCode),
			"back":   dropPending(back, types.ScratchPendingEmail, types.ScratchEmailCode),
		},
		Text: verifyEmailCode,
	})
}

// dropPending wraps h to discard wizard scratch keys first
func dropPending(h Handler, keys ...string) Handler {
	return func(t *Transition) (types.ScreenID, error) {
		t.State.DeleteScratch(keys...)
		return h(t)
	}
}

func loadSettings(ctx context.Context, d *Deps, st *types.SessionState) (settingsPayload, error) {
	user, err := d.Habits.GetUser(ctx, st.UserID)

	if err != nil {
		return settingsPayload{}, err
	}

	return settingsPayload{User: user}, nil
}

func renderSettings(st types.SessionState, p settingsPayload) types.View {
	u := p.User

	var b strings.Builder
	b.WriteString("Settings\n\n")
	b.WriteString(reminderLine(u))
	fmt.Fprintf(&b, "\nReminder time: %02d:%02d", u.NotificationHour, u.NotificationMinute)
	fmt.Fprintf(&b, "\nPassword: %s", yesNo(u.HasPassword, "set", "not set"))
	fmt.Fprintf(&b, "\nEmail: %s", yesNo(u.HasEmail, "verified", "not set"))

	notif := constants.LabelNotifOn
	if u.NotificationsEnabled {
		notif = constants.LabelNotifOff
	}

	return types.NewView(b.String()).
		Add("notifications", notif).
		Add("time", constants.LabelSetTime).
		Add("password", constants.LabelSetPassword).
		Add("email", constants.LabelSetEmail).
		Add("back", constants.LabelBack)
}

func yesNo(b bool, yes, no string) string {
	if b {
		return yes
	}
	return no
}

func toggleNotifications(t *Transition) (types.ScreenID, error) {
	if _, err := t.Deps.Habits.ToggleNotifications(t.Ctx, t.State.UserID); err != nil {
		return "", err
	}

	t.Deps.reconcile(t.Ctx, t.State)
	return types.ScreenSettings, nil
}

func setNotificationTime(t *Transition) (types.ScreenID, error) {
	hour, minute, err := validators.ClockTime(t.Text)

	if err != nil {
		return "", err
	}

	if err := t.Deps.Habits.SetNotificationTime(t.Ctx, t.State.AuthToken, hour, minute); err != nil {
		return "", err
	}

	t.State.Feedback = constants.FeedbackTimeSaved

	t.Deps.reconcile(t.Ctx, t.State)
	return types.ScreenSettings, nil
}

func newPassword(t *Transition) (types.ScreenID, error) {
	password, err := validators.Password(t.Text)

	if err != nil {
		return "", err
	}

	t.State.SetScratch(types.ScratchPendingPassword, password, t.Deps.PendingTTL, t.Now)
	return types.ScreenPasswordConfirm, nil
}

func confirmPassword(t *Transition) (types.ScreenID, error) {
	pending, ok, _ := t.State.GetScratch(types.ScratchPendingPassword, t.Now)
	t.State.DeleteScratch(types.ScratchPendingPassword)

	if !ok {
		t.State.Feedback = constants.FeedbackPendingExpired
		return types.ScreenPasswordNew, nil
	}

	// Not a validation error: the pending password is spent, so the wizard restarts
	if t.Text != pending {
		t.State.Feedback = constants.FeedbackPasswordMismatch
		return types.ScreenPasswordNew, nil
	}

	if err := t.Deps.Habits.SetPassword(t.Ctx, t.State.AuthToken, pending); err != nil {
		return "", err
	}

	t.State.Feedback = constants.FeedbackPasswordSaved
	return types.ScreenSettings, nil
}

func sendEmailCode(t *Transition) (types.ScreenID, error) {
	email, err := validators.Email(t.Text)

	if err != nil {
		return "", err
	}

	code, err := t.Deps.Mailer.SendVerificationCode(t.Ctx, email)

	if err != nil {
		t.Deps.Logger.Error("Failed to send verification code", zap.Error(err), zap.String("user_id", t.State.UserID))
		return "", types.Invalid(constants.FeedbackMailFailed)
	}

	t.State.SetScratch(types.ScratchPendingEmail, email, t.Deps.CodeTTL, t.Now)
	t.State.SetScratch(types.ScratchEmailCode, code, t.Deps.CodeTTL, t.Now)
	return types.ScreenEmailVerify, nil
}

func renderEmailVerify(st types.SessionState) types.View {
	email := st.Scratch[types.ScratchPendingEmail].Value

	return types.NewView(fmt.Sprintf(constants.TextEmailVerify, email)).
		Add("resend", constants.LabelResend).
		Add("back", constants.LabelBack)
}

func verifyEmailCode(t *Transition) (types.ScreenID, error) {
	code, err := validators.Code(t.Text)

	if err != nil {
		return "", err
	}

	want, ok, _ := t.State.GetScratch(types.ScratchEmailCode, t.Now)
	email, emailOk, _ := t.State.GetScratch(types.ScratchPendingEmail, t.Now)

	if !ok || !emailOk {
		t.State.DeleteScratch(types.ScratchPendingEmail, types.ScratchEmailCode)
		t.State.Feedback = constants.FeedbackCodeExpired
		return types.ScreenEmail, nil
	}

	if code != want {
		return "", types.Invalid(constants.FeedbackCodeWrong)
	}

	if err := t.Deps.Habits.SetEmail(t.Ctx, t.State.AuthToken, email); err != nil {
		return "", err
	}

	t.State.DeleteScratch(types.ScratchPendingEmail, types.ScratchEmailCode)
	t.State.Feedback = constants.FeedbackEmailSaved
	return types.ScreenSettings, nil
}
