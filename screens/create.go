package screens

import (
	"context"
	"fmt"
	"strings"

	"habitbot/constants"
	"habitbot/types"
	"habitbot/validators"

	"github.com/mitchellh/mapstructure"
)

var draftKeys = []string{types.ScratchDraftName, types.ScratchDraftDesc, types.ScratchDraftBorder}

func addCreateScreens(r *Registry) {
	cancel := map[string]Handler{"cancel": cancelDraft}

	r.add(Screen{
		ID:   types.ScreenCreateName,
		Auth: true,
		Render: static(func(types.SessionState) types.View {
			return types.NewView(constants.TextCreateName).Add("cancel", constants.LabelCancel)
		}),
		Actions: cancel,
		Text:    draftName,
	})

	r.add(Screen{
		ID:   types.ScreenCreateDescription,
		Auth: true,
		Render: static(func(types.SessionState) types.View {
			return types.NewView(constants.TextCreateDesc).Add("cancel", constants.LabelCancel)
		}),
		Actions: cancel,
		Text:    draftDescription,
	})

	r.add(Screen{
		ID:   types.ScreenCreateBorder,
		Auth: true,
		Render: static(func(types.SessionState) types.View {
			return types.NewView(constants.TextCreateBorder).Add("cancel", constants.LabelCancel)
		}),
		Actions: cancel,
		Text:    draftBorder,
	})

	confirm := Screen{
		ID:   types.ScreenCreateConfirm,
		Auth: true,
		Actions: map[string]Handler{
			"create": submitDraft,
			"cancel": cancelDraft,
		},
	}
	confirm.Load, confirm.Render = loaded(loadDraft, renderDraft)
	r.add(confirm)
}

// DecodeDraft assembles the live draft fields of st into a TargetDraft.
// Expired fields are left zero.
func DecodeDraft(st *types.SessionState, d *Deps) (types.TargetDraft, error) {
	var draft types.TargetDraft

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "scratch",
		WeaklyTypedInput: true,
		Result:           &draft,
	})

	if err != nil {
		return draft, err
	}

	if err := dec.Decode(st.ScratchValues(d.Now())); err != nil {
		return types.TargetDraft{}, fmt.Errorf("decode draft: %w", err)
	}

	return draft, nil
}

func startDraft(t *Transition) (types.ScreenID, error) {
	t.State.DeleteScratch(draftKeys...)
	return types.ScreenCreateName, nil
}

func cancelDraft(t *Transition) (types.ScreenID, error) {
	t.State.DeleteScratch(draftKeys...)
	return types.ScreenTargets, nil
}

// restartDraft sends the user back to the first wizard step
func restartDraft(t *Transition) (types.ScreenID, error) {
	t.State.DeleteScratch(draftKeys...)
	t.State.Feedback = constants.FeedbackPendingExpired
	return types.ScreenCreateName, nil
}

// draftAlive reports whether every key still holds a live value
func draftAlive(t *Transition, keys ...string) bool {
	for _, k := range keys {
		if _, ok, _ := t.State.GetScratch(k, t.Now); !ok {
			return false
		}
	}

	return true
}

func draftName(t *Transition) (types.ScreenID, error) {
	name, err := validators.TargetName(t.Text)

	if err != nil {
		return "", err
	}

	t.State.SetScratch(types.ScratchDraftName, name, t.Deps.DraftTTL, t.Now)
	return types.ScreenCreateDescription, nil
}

func draftDescription(t *Transition) (types.ScreenID, error) {
	if !draftAlive(t, types.ScratchDraftName) {
		return restartDraft(t)
	}

	desc, err := validators.TargetDescription(t.Text)

	if err != nil {
		return "", err
	}

	t.State.SetScratch(types.ScratchDraftDesc, desc, t.Deps.DraftTTL, t.Now)
	return types.ScreenCreateBorder, nil
}

func draftBorder(t *Transition) (types.ScreenID, error) {
	if !draftAlive(t, types.ScratchDraftName, types.ScratchDraftDesc) {
		return restartDraft(t)
	}

	border, err := validators.Border(t.Text)

	if err != nil {
		return "", err
	}

	t.State.SetScratch(types.ScratchDraftBorder, fmt.Sprint(border), t.Deps.DraftTTL, t.Now)
	return types.ScreenCreateConfirm, nil
}

func loadDraft(ctx context.Context, d *Deps, st *types.SessionState) (types.TargetDraft, error) {
	return DecodeDraft(st, d)
}

func renderDraft(st types.SessionState, d types.TargetDraft) types.View {
	var b strings.Builder

	fmt.Fprintf(&b, "Create this target?\n\nName: %s\n", d.Name)

	if d.Description != "" {
		fmt.Fprintf(&b, "Description: %s\n", d.Description)
	}

	fmt.Fprintf(&b, "Days: %d", d.Border)

	return types.NewView(b.String()).
		Add("create", constants.LabelCreate).
		Add("cancel", constants.LabelCancel)
}

func submitDraft(t *Transition) (types.ScreenID, error) {
	draft, err := DecodeDraft(t.State, t.Deps)

	if err != nil {
		return "", err
	}

	if err := validators.Draft(draft); err != nil {
		t.State.DeleteScratch(draftKeys...)
		t.State.Feedback = constants.FeedbackDraftIncomplete
		return types.ScreenCreateName, nil
	}

	_, err = t.Deps.Habits.CreateTarget(t.Ctx, t.State.AuthToken, types.CreateTarget{
		Name:           draft.Name,
		Description:    draft.Description,
		BorderProgress: draft.Border,
	})

	if err != nil {
		return "", err
	}

	t.State.DeleteScratch(draftKeys...)
	t.State.Feedback = constants.FeedbackTargetCreated

	t.Deps.reconcile(t.Ctx, t.State)
	return types.ScreenTargets, nil
}
