package habitapi

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"habitbot/types"

	"github.com/google/uuid"
)

type memUser struct {
	user     types.User
	password string
	email    string
	targets  []*types.Target
}

// Memory is an in-process Service used for development mode and tests.
// Unknown users are registered, passwordless, on their first Authenticate.
type Memory struct {
	mu     sync.Mutex
	users  map[string]*memUser
	tokens map[string]string
	seq    int

	Now func() time.Time

	// When set every call fails with it
	Err error
}

func NewMemory() *Memory {
	return &Memory{
		users:  make(map[string]*memUser),
		tokens: make(map[string]string),
		Now:    time.Now,
	}
}

func (m *Memory) userLocked(userID string) *memUser {
	u, ok := m.users[userID]

	if !ok {
		u = &memUser{user: types.User{ID: userID, NotificationHour: 20}}
		m.users[userID] = u
	}

	return u
}

func (m *Memory) byToken(token string) (*memUser, error) {
	if m.Err != nil {
		return nil, m.Err
	}

	userID, ok := m.tokens[token]

	if !ok {
		return nil, types.ErrUnauthorized
	}

	return m.userLocked(userID), nil
}

// AddUser registers a user, an empty password means passwordless
func (m *Memory) AddUser(user types.User, password string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u := m.userLocked(user.ID)
	u.user = user
	u.password = password
	u.user.HasPassword = password != ""
}

// AddTarget stores a target for userID as is
func (m *Memory) AddTarget(userID string, t types.Target) types.Target {
	m.mu.Lock()
	defer m.mu.Unlock()

	if t.ID == "" {
		m.seq++
		t.ID = strconv.Itoa(m.seq)
	}

	u := m.userLocked(userID)
	u.targets = append(u.targets, &t)
	return t
}

// Targets returns a copy of the targets of userID
func (m *Memory) Targets(userID string) []types.Target {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []types.Target
	for _, t := range m.userLocked(userID).targets {
		out = append(out, *t)
	}
	return out
}

// Revoke invalidates every token of userID
func (m *Memory) Revoke(userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for tok, id := range m.tokens {
		if id == userID {
			delete(m.tokens, tok)
		}
	}
}

func (m *Memory) Email(userID string) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.userLocked(userID).email
}

func (m *Memory) Authenticate(ctx context.Context, userID string, password *string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil {
		return "", m.Err
	}

	u := m.userLocked(userID)

	if u.password != "" && (password == nil || *password != u.password) {
		return "", types.ErrUnauthorized
	}

	token := uuid.NewString()
	m.tokens[token] = userID
	return token, nil
}

func (m *Memory) GetUser(ctx context.Context, userID string) (types.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil {
		return types.User{}, m.Err
	}

	u, ok := m.users[userID]
	if !ok {
		return types.User{}, types.ErrNotFound
	}

	return u.user, nil
}

func (m *Memory) ListTargets(ctx context.Context, token string) ([]types.Target, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, err := m.byToken(token)
	if err != nil {
		return nil, err
	}

	out := make([]types.Target, 0, len(u.targets))
	for _, t := range u.targets {
		out = append(out, *t)
	}

	return out, nil
}

func (m *Memory) CreateTarget(ctx context.Context, token string, target types.CreateTarget) (types.Target, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, err := m.byToken(token)
	if err != nil {
		return types.Target{}, err
	}

	m.seq++
	t := &types.Target{
		ID:             strconv.Itoa(m.seq),
		Name:           target.Name,
		Description:    target.Description,
		BorderProgress: target.BorderProgress,
	}
	u.targets = append(u.targets, t)

	return *t, nil
}

func (m *Memory) find(u *memUser, targetID string) (int, error) {
	for i, t := range u.targets {
		if t.ID == targetID {
			return i, nil
		}
	}
	return -1, types.ErrNotFound
}

func (m *Memory) UpdateTarget(ctx context.Context, token, targetID string, patch types.UpdateTarget) (types.Target, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, err := m.byToken(token)
	if err != nil {
		return types.Target{}, err
	}

	i, err := m.find(u, targetID)
	if err != nil {
		return types.Target{}, err
	}

	if patch.Name != nil {
		u.targets[i].Name = *patch.Name
	}

	if patch.Description != nil {
		u.targets[i].Description = *patch.Description
	}

	return *u.targets[i], nil
}

func (m *Memory) DeleteTarget(ctx context.Context, token, targetID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, err := m.byToken(token)
	if err != nil {
		return err
	}

	i, err := m.find(u, targetID)
	if err != nil {
		return err
	}

	u.targets = append(u.targets[:i], u.targets[i+1:]...)
	return nil
}

func (m *Memory) ToggleTargetCompleted(ctx context.Context, token, targetID string) (types.Target, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, err := m.byToken(token)
	if err != nil {
		return types.Target{}, err
	}

	i, err := m.find(u, targetID)
	if err != nil {
		return types.Target{}, err
	}

	u.targets[i].Completed = !u.targets[i].Completed
	return *u.targets[i], nil
}

func (m *Memory) ToggleNotifications(ctx context.Context, userID string) (types.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil {
		return types.User{}, m.Err
	}

	u := m.userLocked(userID)
	u.user.NotificationsEnabled = !u.user.NotificationsEnabled
	return u.user, nil
}

func (m *Memory) SetNotificationTime(ctx context.Context, token string, hour, minute int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, err := m.byToken(token)
	if err != nil {
		return err
	}

	u.user.NotificationHour = hour
	u.user.NotificationMinute = minute
	return nil
}

func (m *Memory) SetPassword(ctx context.Context, token, password string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, err := m.byToken(token)
	if err != nil {
		return err
	}

	u.password = password
	u.user.HasPassword = password != ""
	return nil
}

func (m *Memory) SetEmail(ctx context.Context, token, email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, err := m.byToken(token)
	if err != nil {
		return err
	}

	u.email = email
	u.user.HasEmail = email != ""
	return nil
}

func (m *Memory) CountIncompleteTargets(ctx context.Context, userID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil {
		return 0, m.Err
	}

	var n int
	for _, t := range m.userLocked(userID).targets {
		if t.Incomplete() {
			n++
		}
	}

	return n, nil
}

func (m *Memory) AdvanceAllProgress(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil {
		return nil, m.Err
	}

	now := m.Now()

	var affected []string
	for id, u := range m.users {
		changed := false

		for _, t := range u.targets {
			if types.AdvanceTarget(t, now) {
				changed = true
			}
		}

		if changed {
			affected = append(affected, id)
		}
	}

	sort.Strings(affected)
	return affected, nil
}
