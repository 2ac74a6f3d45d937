// Client for the Account & Habit service
package habitapi

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"habitbot/types"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Service is everything the bot consumes from the Account & Habit service.
//
// User-credentialed calls take the token returned by Authenticate, the rest
// are made with the bot's service credentials.
type Service interface {
	Authenticate(ctx context.Context, userID string, password *string) (string, error)
	GetUser(ctx context.Context, userID string) (types.User, error)

	ListTargets(ctx context.Context, token string) ([]types.Target, error)
	CreateTarget(ctx context.Context, token string, target types.CreateTarget) (types.Target, error)
	UpdateTarget(ctx context.Context, token, targetID string, patch types.UpdateTarget) (types.Target, error)
	DeleteTarget(ctx context.Context, token, targetID string) error
	ToggleTargetCompleted(ctx context.Context, token, targetID string) (types.Target, error)

	ToggleNotifications(ctx context.Context, userID string) (types.User, error)
	SetNotificationTime(ctx context.Context, token string, hour, minute int) error
	SetPassword(ctx context.Context, token, password string) error
	SetEmail(ctx context.Context, token, email string) error

	CountIncompleteTargets(ctx context.Context, userID string) (int, error)
	AdvanceAllProgress(ctx context.Context) ([]string, error)
}

// StatusError is returned for unexpected responses
type StatusError struct {
	Method string
	Path   string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("habit api %s %s: status %d: %s", e.Method, e.Path, e.Status, e.Body)
}

type Client struct {
	BaseURL      string
	ServiceToken string
	HTTP         *http.Client
}

func NewClient(baseURL, serviceToken string, timeout time.Duration) *Client {
	return &Client{
		BaseURL:      strings.TrimSuffix(baseURL, "/"),
		ServiceToken: serviceToken,
		HTTP:         &http.Client{Timeout: timeout},
	}
}

type request struct {
	method string
	path   string
	token  string
	// Uses the service token instead of a user token
	service bool
	body    any
}

func (c *Client) do(ctx context.Context, r request, out any) error {
	var body io.Reader

	if r.body != nil {
		b, err := json.Marshal(r.body)

		if err != nil {
			return fmt.Errorf("encode %s %s: %w", r.method, r.path, err)
		}

		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, c.BaseURL+r.path, body)

	if err != nil {
		return err
	}

	req.Header.Set("Accept", "application/json")

	if r.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if r.service {
		req.Header.Set("X-Service-Token", c.ServiceToken)
	} else if r.token != "" {
		req.Header.Set("Authorization", "Bearer "+r.token)
	}

	resp, err := c.HTTP.Do(req)

	if err != nil {
		return fmt.Errorf("habit api %s %s: %w", r.method, r.path, err)
	}

	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("habit api %s %s: %w", r.method, r.path, types.ErrUnauthorized)
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("habit api %s %s: %w", r.method, r.path, types.ErrNotFound)
	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnprocessableEntity:
		var apiErr struct {
			Message string `json:"message"`
		}

		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

		if json.Unmarshal(b, &apiErr) == nil && apiErr.Message != "" {
			return types.Invalid(apiErr.Message)
		}

		return &StatusError{Method: r.method, Path: r.path, Status: resp.StatusCode, Body: string(b)}
	case resp.StatusCode >= 300:
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &StatusError{Method: r.method, Path: r.path, Status: resp.StatusCode, Body: string(b)}
	}

	if out == nil {
		return nil
	}

	err = json.NewDecoder(resp.Body).Decode(out)

	if err != nil {
		return fmt.Errorf("decode %s %s: %w", r.method, r.path, err)
	}

	return nil
}

func (c *Client) Authenticate(ctx context.Context, userID string, password *string) (string, error) {
	var resp struct {
		Token string `json:"token"`
	}

	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/auth",
		body: map[string]any{
			"user_id":  userID,
			"password": password,
		},
	}, &resp)

	if err != nil {
		return "", err
	}

	return resp.Token, nil
}

func (c *Client) GetUser(ctx context.Context, userID string) (types.User, error) {
	var u types.User
	err := c.do(ctx, request{method: http.MethodGet, path: "/users/" + url.PathEscape(userID), service: true}, &u)
	return u, err
}

func (c *Client) ListTargets(ctx context.Context, token string) ([]types.Target, error) {
	var targets []types.Target
	err := c.do(ctx, request{method: http.MethodGet, path: "/targets", token: token}, &targets)
	return targets, err
}

func (c *Client) CreateTarget(ctx context.Context, token string, target types.CreateTarget) (types.Target, error) {
	var t types.Target
	err := c.do(ctx, request{method: http.MethodPost, path: "/targets", token: token, body: target}, &t)
	return t, err
}

func (c *Client) UpdateTarget(ctx context.Context, token, targetID string, patch types.UpdateTarget) (types.Target, error) {
	var t types.Target
	err := c.do(ctx, request{method: http.MethodPatch, path: "/targets/" + url.PathEscape(targetID), token: token, body: patch}, &t)
	return t, err
}

func (c *Client) DeleteTarget(ctx context.Context, token, targetID string) error {
	return c.do(ctx, request{method: http.MethodDelete, path: "/targets/" + url.PathEscape(targetID), token: token}, nil)
}

func (c *Client) ToggleTargetCompleted(ctx context.Context, token, targetID string) (types.Target, error) {
	var t types.Target
	err := c.do(ctx, request{method: http.MethodPost, path: "/targets/" + url.PathEscape(targetID) + "/toggle-completed", token: token}, &t)
	return t, err
}

func (c *Client) ToggleNotifications(ctx context.Context, userID string) (types.User, error) {
	var u types.User
	err := c.do(ctx, request{method: http.MethodPost, path: "/users/" + url.PathEscape(userID) + "/notifications/toggle", service: true}, &u)
	return u, err
}

func (c *Client) SetNotificationTime(ctx context.Context, token string, hour, minute int) error {
	return c.do(ctx, request{
		method: http.MethodPut,
		path:   "/users/me/notification-time",
		token:  token,
		body:   map[string]int{"hour": hour, "minute": minute},
	}, nil)
}

func (c *Client) SetPassword(ctx context.Context, token, password string) error {
	return c.do(ctx, request{
		method: http.MethodPut,
		path:   "/users/me/password",
		token:  token,
		body:   map[string]string{"password": password},
	}, nil)
}

func (c *Client) SetEmail(ctx context.Context, token, email string) error {
	return c.do(ctx, request{
		method: http.MethodPut,
		path:   "/users/me/email",
		token:  token,
		body:   map[string]string{"email": email},
	}, nil)
}

func (c *Client) CountIncompleteTargets(ctx context.Context, userID string) (int, error) {
	var resp struct {
		Count int `json:"count"`
	}

	err := c.do(ctx, request{method: http.MethodGet, path: "/users/" + url.PathEscape(userID) + "/targets/incomplete-count", service: true}, &resp)
	return resp.Count, err
}

func (c *Client) AdvanceAllProgress(ctx context.Context) ([]string, error) {
	var resp struct {
		AffectedUserIDs []string `json:"affected_user_ids"`
	}

	err := c.do(ctx, request{method: http.MethodPost, path: "/progress/advance", service: true}, &resp)
	return resp.AffectedUserIDs, err
}
