// Package pbclient is a Go client for the pbplanner HTTP API. Reads go
// through a short-lived cache, writes invalidate it, and a Watcher keeps a
// caller up to date over the push stream with a polling fallback. Values
// returned from the cache are copies the caller may modify.
package pbclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/abrezinsky/pbplanner/internal/logger"
)

// Header names understood by the server
const (
	OfficerHeader  = "X-Officer-Password"
	ClientIDHeader = "X-Client-ID"
)

const defaultTimeout = 30 * time.Second

// Client talks to one pbplanner server
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        logger.Logger
	cache      *Cache
	session    *Session
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the default http.Client. Streams reuse its
// transport without the overall timeout.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithSession reuses an existing session, e.g. one restored from disk
func WithSession(s *Session) Option {
	return func(c *Client) { c.session = s }
}

// WithCache shares a cache between clients
func WithCache(cache *Cache) Option {
	return func(c *Client) { c.cache = cache }
}

// New creates a client for the server at baseURL
func New(baseURL string, log logger.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
		log:        log,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.cache == nil {
		c.cache = NewCache()
	}
	if c.session == nil {
		c.session = NewSession()
	}
	return c
}

// BaseURL returns the server address
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Cache returns the read cache
func (c *Client) Cache() *Cache {
	return c.cache
}

// Session returns the officer and identity state
func (c *Client) Session() *Session {
	return c.session
}

// List returns all live events in creation order
func (c *Client) List(ctx context.Context) ([]EventSummary, error) {
	if v, ok := c.cache.Get(listKey, KindList); ok {
		return slices.Clone(v.([]EventSummary)), nil
	}
	var events []EventSummary
	if err := c.getJSON(ctx, "/api/pb/list", &events); err != nil {
		return nil, err
	}
	c.cache.Set(listKey, KindList, slices.Clone(events))
	return events, nil
}

// Config returns an event without its roster
func (c *Client) Config(ctx context.Context, id string) (*Config, error) {
	if v, ok := c.cache.Get(id, KindConfig); ok {
		return v.(*Config).clone(), nil
	}
	cfg, err := c.fetchConfig(ctx, id)
	if err != nil {
		return nil, err
	}
	c.cache.Set(id, KindConfig, cfg.clone())
	return cfg, nil
}

// Full returns an event with its roster
func (c *Client) Full(ctx context.Context, id string) (*Full, error) {
	if v, ok := c.cache.Get(id, KindFull); ok {
		return v.(*Full).clone(), nil
	}
	full, err := c.fetchFull(ctx, id)
	if err != nil {
		return nil, err
	}
	c.cache.Set(id, KindFull, full.clone())
	return full, nil
}

// Roster returns the participants of an event in signup order
func (c *Client) Roster(ctx context.Context, id string) ([]Participant, error) {
	if v, ok := c.cache.Get(id, KindRoster); ok {
		return slices.Clone(v.([]Participant)), nil
	}
	var roster []Participant
	if err := c.getJSON(ctx, eventPath(id, "roster"), &roster); err != nil {
		return nil, err
	}
	c.cache.Set(id, KindRoster, slices.Clone(roster))
	return roster, nil
}

// QRCode returns the PNG of the event's signup link
func (c *Client) QRCode(ctx context.Context, id string) ([]byte, error) {
	if v, ok := c.cache.Get(id, KindQR); ok {
		return slices.Clone(v.([]byte)), nil
	}
	resp, err := c.do(ctx, http.MethodGet, eventPath(id, "qr"), nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	png, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	c.cache.Set(id, KindQR, slices.Clone(png))
	return png, nil
}

// Create creates an event and returns its id
func (c *Client) Create(ctx context.Context, in EventInput) (string, error) {
	var out createResponse
	if err := c.sendJSON(ctx, http.MethodPost, "/api/pb/create", in, &out); err != nil {
		return "", err
	}
	c.cache.InvalidateList()
	return out.ID, nil
}

// Update replaces the event metadata. expectedVersion, if not nil, makes the
// update fail with a conflict when the event moved on.
func (c *Client) Update(ctx context.Context, id string, in EventInput, expectedVersion *int) (int, error) {
	body := struct {
		EventInput
		ExpectedVersion *int `json:"expectedVersion,omitempty"`
	}{in, expectedVersion}
	return c.mutate(ctx, id, http.MethodPost, eventPath(id, "update"), body)
}

// Delete removes an event
func (c *Client) Delete(ctx context.Context, id string) error {
	if err := c.sendJSON(ctx, http.MethodDelete, eventPath(id, ""), nil, nil); err != nil {
		return err
	}
	c.cache.Forget(id)
	return nil
}

// Signup adds p to the roster. An empty CreatedBy is filled with this
// client's identity.
func (c *Client) Signup(ctx context.Context, id string, p Participant) (int, error) {
	if p.CreatedBy == "" {
		p.CreatedBy = c.session.Identity().ID
	}
	return c.mutate(ctx, id, http.MethodPost, eventPath(id, "signup"), p)
}

// Withdraw removes the caller's own signup
func (c *Client) Withdraw(ctx context.Context, id, name string) (int, error) {
	return c.mutate(ctx, id, http.MethodDelete, eventPath(id, "withdraw/"+url.PathEscape(name)), nil)
}

// Remove removes any signup (officer)
func (c *Client) Remove(ctx context.Context, id, name string) (int, error) {
	return c.mutate(ctx, id, http.MethodDelete, eventPath(id, "remove/"+url.PathEscape(name)), nil)
}

// Assign replaces both groups (officer)
func (c *Client) Assign(ctx context.Context, id string, a Assignments, expectedVersion *int) (int, error) {
	body := struct {
		Assignments
		ExpectedVersion *int `json:"expectedVersion,omitempty"`
	}{a, expectedVersion}
	return c.mutate(ctx, id, http.MethodPost, eventPath(id, "assign"), body)
}

// OfficerVersion returns the current officer secret version. Never cached.
func (c *Client) OfficerVersion(ctx context.Context) (int, error) {
	var out officerResponse
	if err := c.getJSON(ctx, "/api/officer/version", &out); err != nil {
		return 0, err
	}
	return out.Version, nil
}

// CheckPassword asks the server whether password is the officer secret
func (c *Client) CheckPassword(ctx context.Context, password string) (bool, int, error) {
	var out officerResponse
	body := map[string]string{"password": password}
	if err := c.sendJSON(ctx, http.MethodPost, "/api/officer/check", body, &out); err != nil {
		return false, 0, err
	}
	return out.OK, out.Version, nil
}

// ChangePassword rotates the officer secret. Every session, this one
// included, has to log in again afterwards.
func (c *Client) ChangePassword(ctx context.Context, oldPassword, newPassword string) (int, error) {
	var out officerResponse
	body := map[string]string{"oldPassword": oldPassword, "newPassword": newPassword}
	if err := c.sendJSON(ctx, http.MethodPost, "/api/officer/password", body, &out); err != nil {
		return 0, err
	}
	c.session.Logout()
	c.log.Info("Officer password rotated", "version", out.Version)
	return out.Version, nil
}

func (c *Client) fetchConfig(ctx context.Context, id string) (*Config, error) {
	var cfg Config
	if err := c.getJSON(ctx, eventPath(id, "config"), &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Client) fetchFull(ctx context.Context, id string) (*Full, error) {
	var full Full
	if err := c.getJSON(ctx, eventPath(id, "full"), &full); err != nil {
		return nil, err
	}
	return &full, nil
}

// mutate sends a write that answers with the event's new version and drops
// the event's cached reads
func (c *Client) mutate(ctx context.Context, id, method, path string, body interface{}) (int, error) {
	var out versionResponse
	if err := c.sendJSON(ctx, method, path, body, &out); err != nil {
		return 0, err
	}
	c.cache.InvalidateEvent(id)
	return out.AssignVersion, nil
}

func (c *Client) getJSON(ctx context.Context, path string, target interface{}) error {
	return c.sendJSON(ctx, http.MethodGet, path, nil, target)
}

func (c *Client) sendJSON(ctx context.Context, method, path string, body, target interface{}) error {
	var payload io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		payload = bytes.NewReader(data)
	}

	resp, err := c.do(ctx, method, path, payload)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if target == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// do executes a request and turns non-2xx answers into *APIError. The
// caller closes the body of a successful response.
func (c *Client) do(ctx context.Context, method, path string, body io.Reader) (*http.Response, error) {
	return c.send(ctx, method, path, body, false)
}

func (c *Client) send(ctx context.Context, method, path string, body io.Reader, stream bool) (*http.Response, error) {
	reqURL := c.baseURL + path
	c.log.Debug("pbplanner request", "method", method, "url", reqURL)

	req, err := http.NewRequestWithContext(ctx, method, reqURL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set(ClientIDHeader, c.session.Identity().ID)
	if password, ok := c.session.officerPassword(); ok {
		req.Header.Set(OfficerHeader, password)
	}

	hc := c.httpClient
	if stream {
		hc = c.streamClient()
	}
	resp, err := hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to pbplanner: %w", err)
	}
	return c.checkStatus(resp)
}

func (c *Client) checkStatus(resp *http.Response) (*http.Response, error) {
	c.log.Debug("pbplanner response", "status", resp.StatusCode, "url", resp.Request.URL.String())
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	apiErr := &APIError{Status: resp.StatusCode}
	if err := json.Unmarshal(data, apiErr); err != nil || apiErr.Message == "" {
		apiErr.Message = strings.TrimSpace(string(data))
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
	}
	return nil, apiErr
}

// streamClient is the configured client without an overall timeout
func (c *Client) streamClient() *http.Client {
	hc := *c.httpClient
	hc.Timeout = 0
	return &hc
}

func eventPath(id, suffix string) string {
	p := "/api/pb/" + url.PathEscape(id)
	if suffix != "" {
		p += "/" + suffix
	}
	return p
}
