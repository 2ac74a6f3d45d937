package types

import "time"

type ConversationID string

type MessageID string

type ScreenID string

const (
	ScreenRoot              ScreenID = "root"
	ScreenPassword          ScreenID = "password"
	ScreenProfile           ScreenID = "profile"
	ScreenTargets           ScreenID = "targets"
	ScreenTarget            ScreenID = "target"
	ScreenTargetDelete      ScreenID = "target_delete"
	ScreenCreateName        ScreenID = "create_name"
	ScreenCreateDescription ScreenID = "create_description"
	ScreenCreateBorder      ScreenID = "create_border"
	ScreenCreateConfirm     ScreenID = "create_confirm"
	ScreenSettings          ScreenID = "settings"
	ScreenNotificationTime  ScreenID = "notification_time"
	ScreenPasswordNew       ScreenID = "password_new"
	ScreenPasswordConfirm   ScreenID = "password_confirm"
	ScreenEmail             ScreenID = "email"
	ScreenEmailVerify       ScreenID = "email_verify"
	ScreenSessionClosed     ScreenID = "session_closed"
	ScreenError             ScreenID = "error"
)

// Scratch keys used by the input wizards
const (
	ScratchPendingPassword = "pending_password"
	ScratchPendingEmail    = "pending_email"
	ScratchEmailCode       = "email_code"
	ScratchSelectedTarget  = "selected_target"
	ScratchDraftName       = "draft_name"
	ScratchDraftDesc       = "draft_description"
	ScratchDraftBorder     = "draft_border"
)

// A scratch value is an in-flight wizard field. ExpiresAt is a unix timestamp in
// seconds, zero means the value never expires.
type ScratchValue struct {
	Value     string `json:"v"`
	ExpiresAt int64  `json:"exp,omitempty"`
}

func (v ScratchValue) Expired(now time.Time) bool {
	return v.ExpiresAt != 0 && now.Unix() >= v.ExpiresAt
}

// SessionState is the serialized state of one conversation
type SessionState struct {
	UserID          string                  `json:"user_id,omitempty"`
	ActiveMessageID MessageID               `json:"active_message_id,omitempty"`
	Trash           []MessageID             `json:"trash,omitempty"`
	ScreenID        ScreenID                `json:"screen_id"`
	ReturnTo        ScreenID                `json:"return_to,omitempty"`
	Scratch         map[string]ScratchValue `json:"scratch,omitempty"`
	AuthToken       string                  `json:"auth_token,omitempty"`
	Feedback        string                  `json:"feedback,omitempty"`
}

// NewSessionState returns a fresh session positioned at the root screen
func NewSessionState(userID string) SessionState {
	return SessionState{
		UserID:   userID,
		ScreenID: ScreenRoot,
	}
}

func (s SessionState) Authenticated() bool {
	return s.AuthToken != ""
}

// Clone returns a deep copy, handlers always work on a clone so the loaded
// state is never mutated in place.
func (s SessionState) Clone() SessionState {
	c := s

	if s.Trash != nil {
		c.Trash = make([]MessageID, len(s.Trash))
		copy(c.Trash, s.Trash)
	}

	if s.Scratch != nil {
		c.Scratch = make(map[string]ScratchValue, len(s.Scratch))
		for k, v := range s.Scratch {
			c.Scratch[k] = v
		}
	}

	return c
}

// Normalize turns empty collections into nil so that a decoded state compares
// equal to the one that was encoded.
func (s *SessionState) Normalize() {
	if len(s.Trash) == 0 {
		s.Trash = nil
	}

	if len(s.Scratch) == 0 {
		s.Scratch = nil
	}
}

// Reset clears everything but the user and the active message, used when a
// session is closed.
func (s *SessionState) Reset() {
	s.ScreenID = ScreenRoot
	s.ReturnTo = ""
	s.Scratch = nil
	s.AuthToken = ""
	s.Feedback = ""
}

func (s *SessionState) SetScratch(key, value string, ttl time.Duration, now time.Time) {
	if s.Scratch == nil {
		s.Scratch = make(map[string]ScratchValue)
	}

	var exp int64
	if ttl > 0 {
		exp = now.Add(ttl).Unix()
	}

	s.Scratch[key] = ScratchValue{Value: value, ExpiresAt: exp}
}

// GetScratch returns the value for key. ok is false when the key is absent or
// expired, expired reports the latter so callers can route to a retry branch.
func (s *SessionState) GetScratch(key string, now time.Time) (value string, ok bool, expired bool) {
	v, found := s.Scratch[key]

	if !found {
		return "", false, false
	}

	if v.Expired(now) {
		return "", false, true
	}

	return v.Value, true, false
}

func (s *SessionState) DeleteScratch(keys ...string) {
	for _, k := range keys {
		delete(s.Scratch, k)
	}
}

// PruneScratch drops all lapsed scratch values
func (s *SessionState) PruneScratch(now time.Time) {
	for k, v := range s.Scratch {
		if v.Expired(now) {
			delete(s.Scratch, k)
		}
	}
}

// ScratchValues returns the live scratch values as a plain map
func (s *SessionState) ScratchValues(now time.Time) map[string]any {
	m := make(map[string]any, len(s.Scratch))

	for k, v := range s.Scratch {
		if v.Expired(now) {
			continue
		}
		m[k] = v.Value
	}

	return m
}
