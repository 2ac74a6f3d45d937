package screens

import (
	"context"
	"fmt"
	"strings"

	"habitbot/constants"
	"habitbot/types"

	"go.uber.org/zap"
)

// Discord allows 25 buttons, two are taken by navigation
const maxListedTargets = 20

type profilePayload struct {
	User    types.User
	Targets []types.Target
}

type targetsPayload struct {
	Targets []types.Target
}

type targetPayload struct {
	Target types.Target
}

func addTargetScreens(r *Registry) {
	profile := Screen{
		ID:   types.ScreenProfile,
		Auth: true,
		Actions: map[string]Handler{
			"targets":  goTo(types.ScreenTargets),
			"settings": goTo(types.ScreenSettings),
			"sign_out": signOut,
		},
	}
	profile.Load, profile.Render = loaded(loadProfile, renderProfile)
	r.add(profile)

	targets := Screen{
		ID:   types.ScreenTargets,
		Auth: true,
		Actions: map[string]Handler{
			"select": selectTarget,
			"new":    startDraft,
			"back":   goTo(types.ScreenProfile),
		},
	}
	targets.Load, targets.Render = loaded(loadTargets, renderTargets)
	r.add(targets)

	target := Screen{
		ID:   types.ScreenTarget,
		Auth: true,
		Actions: map[string]Handler{
			"toggle": toggleTarget,
			"delete": goTo(types.ScreenTargetDelete),
			"back":   leaveTarget,
		},
	}
	target.Load, target.Render = loaded(loadSelected, renderTarget)
	r.add(target)

	del := Screen{
		ID:   types.ScreenTargetDelete,
		Auth: true,
		Actions: map[string]Handler{
			"confirm": deleteTarget,
			"back":    goTo(types.ScreenTarget),
		},
	}
	del.Load, del.Render = loaded(loadSelected, renderTargetDelete)
	r.add(del)
}

func loadProfile(ctx context.Context, d *Deps, st *types.SessionState) (profilePayload, error) {
	user, err := d.Habits.GetUser(ctx, st.UserID)

	if err != nil {
		return profilePayload{}, err
	}

	targets, err := d.Habits.ListTargets(ctx, st.AuthToken)

	if err != nil {
		return profilePayload{}, err
	}

	return profilePayload{User: user, Targets: targets}, nil
}

func renderProfile(st types.SessionState, p profilePayload) types.View {
	var todo int
	for _, t := range p.Targets {
		if t.Incomplete() {
			todo++
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Profile\n\nTargets: %d, %d still to do today.\n", len(p.Targets), todo)
	b.WriteString(reminderLine(p.User))

	return types.NewView(b.String()).
		Add("targets", constants.LabelTargets).
		Add("settings", constants.LabelSettings).
		Add("sign_out", constants.LabelSignOut)
}

func reminderLine(u types.User) string {
	if !u.NotificationsEnabled {
		return "Reminders: off"
	}
	return fmt.Sprintf("Reminders: on at %02d:%02d", u.NotificationHour, u.NotificationMinute)
}

func signOut(t *Transition) (types.ScreenID, error) {
	t.State.Reset()
	return types.ScreenSessionClosed, nil
}

func loadTargets(ctx context.Context, d *Deps, st *types.SessionState) (targetsPayload, error) {
	targets, err := d.Habits.ListTargets(ctx, st.AuthToken)

	if err != nil {
		return targetsPayload{}, err
	}

	return targetsPayload{Targets: targets}, nil
}

func targetLine(t types.Target) string {
	mark := "⬜"
	switch {
	case t.Finished():
		mark = "🏁"
	case t.Completed:
		mark = "✅"
	}

	return fmt.Sprintf("%s %s (%d/%d)", mark, t.Name, t.Progress, t.BorderProgress)
}

func renderTargets(st types.SessionState, p targetsPayload) types.View {
	var b strings.Builder

	if len(p.Targets) == 0 {
		b.WriteString("You have no targets yet.")
	} else {
		b.WriteString("Your targets:\n")
		for _, t := range p.Targets {
			b.WriteString("\n" + targetLine(t))
		}
	}

	v := types.NewView(b.String())

	for i, t := range p.Targets {
		if i == maxListedTargets {
			break
		}
		v = v.Add(types.ActionID("select", t.ID), t.Name)
	}

	return v.Add("new", constants.LabelNewTarget).Add("back", constants.LabelBack)
}

func selectTarget(t *Transition) (types.ScreenID, error) {
	if t.Action.Arg == "" {
		return "", types.ErrNotFound
	}

	t.State.SetScratch(types.ScratchSelectedTarget, t.Action.Arg, 0, t.Now)
	return types.ScreenTarget, nil
}

func leaveTarget(t *Transition) (types.ScreenID, error) {
	t.State.DeleteScratch(types.ScratchSelectedTarget)
	return types.ScreenTargets, nil
}

// loadSelected fetches the target picked on the targets screen
func loadSelected(ctx context.Context, d *Deps, st *types.SessionState) (targetPayload, error) {
	id, ok, _ := st.GetScratch(types.ScratchSelectedTarget, d.Now())

	if !ok {
		return targetPayload{}, types.ErrNotFound
	}

	targets, err := d.Habits.ListTargets(ctx, st.AuthToken)

	if err != nil {
		return targetPayload{}, err
	}

	for _, t := range targets {
		if t.ID == id {
			return targetPayload{Target: t}, nil
		}
	}

	return targetPayload{}, types.ErrNotFound
}

func renderTarget(st types.SessionState, p targetPayload) types.View {
	t := p.Target

	var b strings.Builder
	b.WriteString(targetLine(t))

	if t.Description != "" {
		b.WriteString("\n\n" + t.Description)
	}

	if t.CompletedDatetime != nil {
		fmt.Fprintf(&b, "\n\nFinished on %s.", t.CompletedDatetime.Format("2 Jan 2006"))
	}

	v := types.NewView(b.String())

	if !t.Finished() {
		if t.Completed {
			v = v.Add("toggle", constants.LabelUnmarkDone)
		} else {
			v = v.Add("toggle", constants.LabelMarkDone)
		}
	}

	return v.Add("delete", constants.LabelDelete).Add("back", constants.LabelBack)
}

func renderTargetDelete(st types.SessionState, p targetPayload) types.View {
	return types.NewView(fmt.Sprintf("Delete %q? This can't be undone.", p.Target.Name)).
		Add("confirm", constants.LabelConfirmDelete).
		Add("back", constants.LabelCancel)
}

func selected(t *Transition) (string, error) {
	id, ok, _ := t.State.GetScratch(types.ScratchSelectedTarget, t.Now)

	if !ok {
		return "", types.ErrNotFound
	}

	return id, nil
}

func toggleTarget(t *Transition) (types.ScreenID, error) {
	id, err := selected(t)

	if err != nil {
		return "", err
	}

	if _, err := t.Deps.Habits.ToggleTargetCompleted(t.Ctx, t.State.AuthToken, id); err != nil {
		return "", err
	}

	t.Deps.reconcile(t.Ctx, t.State)
	return types.ScreenTarget, nil
}

func deleteTarget(t *Transition) (types.ScreenID, error) {
	id, err := selected(t)

	if err != nil {
		return "", err
	}

	if err := t.Deps.Habits.DeleteTarget(t.Ctx, t.State.AuthToken, id); err != nil {
		return "", err
	}

	t.State.DeleteScratch(types.ScratchSelectedTarget)
	t.State.Feedback = constants.FeedbackTargetDeleted

	t.Deps.reconcile(t.Ctx, t.State)
	return types.ScreenTargets, nil
}

// reconcile re-evaluates the reminder eligibility of the session's user from
// fresh service data. Failures are logged, the user flow carries on.
func (d *Deps) reconcile(ctx context.Context, st *types.SessionState) {
	if d.Reminders == nil {
		return
	}

	user, err := d.Habits.GetUser(ctx, st.UserID)

	if err != nil {
		d.Logger.Error("Failed to fetch user for reminder reconcile", zap.Error(err), zap.String("user_id", st.UserID))
		return
	}

	targets, err := d.Habits.ListTargets(ctx, st.AuthToken)

	if err != nil {
		d.Logger.Error("Failed to list targets for reminder reconcile", zap.Error(err), zap.String("user_id", st.UserID))
		return
	}

	// Reconcile logs its own failures
	_ = d.Reminders.Reconcile(ctx, st.UserID, user.NotificationsEnabled, types.HasIncomplete(targets), user.NotificationHour, user.NotificationMinute)
}
