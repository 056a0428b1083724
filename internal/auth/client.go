// Package auth talks to a Supabase GoTrue identity service. It is a
// standalone scaffold: nothing in the ledger depends on it.
package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultTimeout = 15 * time.Second

var ErrMissingCredentials = errors.New("email and password are required")

// User is the subset of the GoTrue user object the scaffold reads.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Session is an authenticated GoTrue session. After a sign-up that still
// needs email confirmation only User is set.
type Session struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	ExpiresAt    int64  `json:"expires_at"`
	User         User   `json:"user"`
}

// Active reports whether s carries a usable access token at now.
func (s Session) Active(now time.Time) bool {
	if s.AccessToken == "" {
		return false
	}
	return s.ExpiresAt == 0 || now.Unix() < s.ExpiresAt
}

// TTL returns how long s stays valid from now, or 0 when unknown.
func (s Session) TTL(now time.Time) time.Duration {
	if s.ExpiresAt > 0 {
		if d := time.Unix(s.ExpiresAt, 0).Sub(now); d > 0 {
			return d
		}
		return 0
	}
	if s.ExpiresIn > 0 {
		return time.Duration(s.ExpiresIn) * time.Second
	}
	return 0
}

// Error is a failure reported by the identity service.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("auth service error %d: %s", e.Status, e.Message)
}

// Client calls the GoTrue REST endpoints with the project's anon key.
type Client struct {
	baseURL    string
	anonKey    string
	httpClient *http.Client
}

func NewClient(baseURL, anonKey string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		anonKey:    anonKey,
		httpClient: httpClient,
	}
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignInWithPassword exchanges email and password for a session.
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*Session, error) {
	if email == "" || password == "" {
		return nil, ErrMissingCredentials
	}
	var s Session
	if err := c.do(ctx, "/auth/v1/token?grant_type=password", "", credentials{email, password}, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// SignUp registers a new user. When the project auto-confirms, the result
// is a full session; otherwise only the user is filled in.
func (c *Client) SignUp(ctx context.Context, email, password string) (*Session, error) {
	if email == "" || password == "" {
		return nil, ErrMissingCredentials
	}
	// GoTrue answers with a session, or with a bare user object when
	// confirmation is pending.
	var raw struct {
		Session
		ID    string `json:"id"`
		Email string `json:"email"`
	}
	if err := c.do(ctx, "/auth/v1/signup", "", credentials{email, password}, &raw); err != nil {
		return nil, err
	}
	s := raw.Session
	if s.User.ID == "" {
		s.User = User{ID: raw.ID, Email: raw.Email}
	}
	return &s, nil
}

// SignOut revokes the session's refresh tokens on the server.
func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	if accessToken == "" {
		return nil
	}
	return c.do(ctx, "/auth/v1/logout", accessToken, nil, nil)
}

func (c *Client) do(ctx context.Context, path, bearer string, in, out any) error {
	var body io.Reader = http.NoBody
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if bearer == "" {
		bearer = c.anonKey
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", c.anonKey)
	req.Header.Set("Authorization", "Bearer "+bearer)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("auth service connection error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return &Error{Status: resp.StatusCode, Message: errorMessage(raw)}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode auth response: %w", err)
	}
	return nil
}

// errorMessage picks the human-readable part of a GoTrue error body, whose
// shape differs between endpoints and versions.
func errorMessage(raw []byte) string {
	var body struct {
		ErrorDescription string `json:"error_description"`
		Msg              string `json:"msg"`
		Message          string `json:"message"`
		Error            string `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err == nil {
		for _, m := range []string{body.ErrorDescription, body.Msg, body.Message, body.Error} {
			if m != "" {
				return m
			}
		}
	}
	if s := strings.TrimSpace(string(raw)); s != "" {
		return s
	}
	return "unknown error"
}
