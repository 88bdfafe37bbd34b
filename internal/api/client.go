// Package api is the one-shot HTTP side of the Towerman backend: sign-in,
// session auth and team management. Every response is a {success, error?}
// envelope; failures come back as *ServerError.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/DoyleJ11/towerman/internal/roster"
)

const (
	PathSignIn     = "/sign-in"
	PathAuth       = "/auth"
	PathCreateTeam = "/create-team"
	PathDeleteTeam = "/delete-team"
	PathTeams      = "/teams"
)

// PersisterGoogleDrive is the only photo persister the backend accepts.
const PersisterGoogleDrive = "googleDrive"

var ErrInvalidResponse = errors.New("invalid response")

// Config controls how the client reaches the backend.
type Config struct {
	BaseURL    string
	HTTPClient *http.Client
	Logger     *zap.Logger
}

type httpDoer interface {
	Do(*http.Request) (*http.Response, error)
}

type Client struct {
	baseURL    string
	httpClient httpDoer
	log        *zap.Logger
}

func NewClient(cfg Config) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: http.DefaultClient,
		log:        cfg.Logger,
	}
	// a nil *http.Client would make a non-nil httpDoer
	if cfg.HTTPClient != nil {
		c.httpClient = cfg.HTTPClient
	}
	if c.log == nil {
		c.log = zap.NewNop()
	}
	return c
}

// SignIn registers the user with the backend and binds token to their email.
func (c *Client) SignIn(ctx context.Context, email, name, token string) error {
	body := map[string]string{"email": email, "name": name, "token": token}
	return c.post(ctx, PathSignIn, body, nil)
}

// Auth exchanges a sign-in token for a stream session token scoped to teamID.
func (c *Client) Auth(ctx context.Context, token, teamID string) (string, error) {
	var out struct {
		Token string `json:"token"`
	}
	q := url.Values{"token": {token}, "teamId": {teamID}}
	if err := c.get(ctx, PathAuth, q, &out); err != nil {
		return "", err
	}
	if out.Token == "" {
		return "", fmt.Errorf("%s: %w: missing token", PathAuth, ErrInvalidResponse)
	}
	return out.Token, nil
}

type CreateTeamRequest struct {
	Token          string
	Name           string
	MemberEmails   []string
	PersisterToken string
	Capturer       string
}

// CreateTeam creates a team on the backend and returns its id. The request is
// validated locally first; nothing is sent for an invalid team.
func (c *Client) CreateTeam(ctx context.Context, req CreateTeamRequest) (string, error) {
	if err := roster.CheckNewTeam(req.Name, req.MemberEmails); err != nil {
		return "", err
	}
	body := struct {
		Token            string   `json:"token"`
		Name             string   `json:"name"`
		MemberEmails     []string `json:"memberEmails"`
		PersisterService string   `json:"persisterService"`
		PersisterToken   string   `json:"persisterToken"`
		Capturer         string   `json:"capturer,omitempty"`
	}{
		Token:            req.Token,
		Name:             strings.TrimSpace(req.Name),
		MemberEmails:     req.MemberEmails,
		PersisterService: PersisterGoogleDrive,
		PersisterToken:   req.PersisterToken,
		Capturer:         req.Capturer,
	}
	if body.MemberEmails == nil {
		body.MemberEmails = []string{}
	}

	var out struct {
		TeamID string `json:"teamId"`
	}
	if err := c.post(ctx, PathCreateTeam, body, &out); err != nil {
		return "", err
	}
	if out.TeamID == "" {
		return "", fmt.Errorf("%s: %w: missing teamId", PathCreateTeam, ErrInvalidResponse)
	}
	return out.TeamID, nil
}

// DeleteTeam removes a team the user owns.
func (c *Client) DeleteTeam(ctx context.Context, token, teamID string) error {
	return c.post(ctx, PathDeleteTeam, map[string]string{"token": token, "teamId": teamID}, nil)
}

// Teams fetches every team the user owns or belongs to.
func (c *Client) Teams(ctx context.Context, token string) ([]roster.Team, error) {
	var out struct {
		Teams []RemoteTeam `json:"teams"`
	}
	if err := c.get(ctx, PathTeams, url.Values{"token": {token}}, &out); err != nil {
		return nil, err
	}
	teams := make([]roster.Team, 0, len(out.Teams))
	for _, rt := range out.Teams {
		teams = append(teams, rt.ToTeam())
	}
	return teams, nil
}

func (c *Client) get(ctx context.Context, path string, q url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.URL.RawQuery = q.Encode()
	return c.do(req, path, out)
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, path, out)
}

// do sends req and decodes the envelope. Payload fields are only decoded into
// out when success is true.
func (c *Client) do(req *http.Request, path string, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Debug("request failed", zap.String("path", path), zap.Error(err))
		return fmt.Errorf("%s: %w", path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil || env.Success == nil {
		c.log.Warn("unexpected response",
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.String("body", snippet(data)))
		return fmt.Errorf("%s: %w (status %d)", path, ErrInvalidResponse, resp.StatusCode)
	}
	if !*env.Success {
		return &ServerError{Endpoint: path, Status: resp.StatusCode, Message: env.Error}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%s: %w: %v", path, ErrInvalidResponse, err)
	}
	return nil
}

type envelope struct {
	Success *bool  `json:"success"`
	Error   string `json:"error,omitempty"`
}

func snippet(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}
