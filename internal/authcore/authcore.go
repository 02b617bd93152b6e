// Package authcore fronts every outbound call to Dispatcharr with a
// process-wide, just-in-time bearer token cache: proactive refresh before
// expiry, retry-on-401 exactly once, and a parallel refresh fan-out for
// triggering multiple upstream M3U account refreshes at once. Grounded on
// the original Python DispatcharrAuth session-cache shape, re-expressed with
// an explicit struct the orchestrator owns rather than a package-level
// singleton (per the dependency-injection design note).
package authcore

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/teamarr/teamarr/internal/httpclient"
	"github.com/teamarr/teamarr/internal/teamerr"
)

// TokenRefreshBuffer is how long before expiry a cached token is considered
// stale and proactively refreshed.
const TokenRefreshBuffer = 1 * time.Minute

// TokenValidity is the upstream-advertised lifetime of an access token.
const TokenValidity = 5 * time.Minute

type session struct {
	accessToken  string
	refreshToken string
	expiresAt    time.Time
	mu           sync.Mutex // serializes refresh/auth for this one (baseURL, username)
}

func (s *session) isValid(now time.Time) bool {
	return s.accessToken != "" && now.Before(s.expiresAt.Add(-TokenRefreshBuffer))
}

// Core is the explicit, dependency-injected replacement for what
// original_source/api/dispatcharr_client.py's DispatcharrAuth kept as
// instance-level mutable state: one token cache per process, owned by
// whoever constructs it (the orchestrator), and passed into every client
// that needs authenticated requests.
type Core struct {
	baseURL  string
	username string
	password string
	client   *http.Client

	mu       sync.Mutex
	sessions map[string]*session // keyed by baseURL+"_"+username, mirrors original cache key
}

// New builds a Core for one Dispatcharr deployment and credential pair.
func New(baseURL, username, password string) *Core {
	return &Core{
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		username: username,
		password: password,
		client:   httpclient.Default(),
		sessions: make(map[string]*session),
	}
}

func (c *Core) sessionKey() string {
	return c.baseURL + "_" + c.username
}

func (c *Core) getOrCreateSession() *session {
	key := c.sessionKey()
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.sessions[key]
	if !ok {
		s = &session{}
		c.sessions[key] = s
	}
	return s
}

// Token returns a valid bearer token, refreshing or re-authenticating as
// needed. Concurrent callers for the same session block on the session's
// own lock so at most one refresh/auth is in flight at a time.
func (c *Core) Token(ctx context.Context) (string, error) {
	s := c.getOrCreateSession()
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isValid(time.Now()) {
		return s.accessToken, nil
	}
	if s.refreshToken != "" {
		if err := c.refreshLocked(ctx, s); err == nil {
			return s.accessToken, nil
		}
		// Refresh failed: fall through to a full password exchange.
	}
	if err := c.authenticateLocked(ctx, s); err != nil {
		return "", err
	}
	return s.accessToken, nil
}

// InvalidateSession clears the cached session so the next Token call
// performs a full re-authentication; Do calls it after a 401, before its
// single retry.
func (c *Core) InvalidateSession() {
	key := c.sessionKey()
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.sessions, key)
}

type tokenPairResponse struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

func (c *Core) authenticateLocked(ctx context.Context, s *session) error {
	body := map[string]string{"username": c.username, "password": c.password}
	raw, err := json.Marshal(body)
	if err != nil {
		return teamerr.Network(err, "authcore: marshal auth body")
	}
	resp, err := c.postJSON(ctx, "/api/accounts/token/", raw)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return classifyNonOK(resp)
	}
	var out tokenPairResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return teamerr.Network(err, "authcore: decode auth response")
	}
	s.accessToken = out.Access
	s.refreshToken = out.Refresh
	s.expiresAt = time.Now().Add(TokenValidity)
	return nil
}

func (c *Core) refreshLocked(ctx context.Context, s *session) error {
	body := map[string]string{"refresh": s.refreshToken}
	raw, err := json.Marshal(body)
	if err != nil {
		return teamerr.Network(err, "authcore: marshal refresh body")
	}
	resp, err := c.postJSON(ctx, "/api/accounts/token/refresh/", raw)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return classifyNonOK(resp)
	}
	var out tokenPairResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return teamerr.Network(err, "authcore: decode refresh response")
	}
	s.accessToken = out.Access
	// Token endpoints that don't rotate the refresh token return it empty;
	// keep the existing one in that case.
	if out.Refresh != "" {
		s.refreshToken = out.Refresh
	}
	s.expiresAt = time.Now().Add(TokenValidity)
	return nil
}

func (c *Core) postJSON(ctx context.Context, path string, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(string(body)))
	if err != nil {
		return nil, teamerr.Network(err, "authcore: build request for %s", path)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, teamerr.Network(err, "authcore: request %s", path)
	}
	return resp, nil
}

func classifyNonOK(resp *http.Response) error {
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return teamerr.Auth(nil, "authcore: %d from dispatcharr", resp.StatusCode)
	}
	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		fields, _ := parseFieldErrors(resp.Body)
		return teamerr.Validation(fields)
	}
	return teamerr.UpstreamState(nil, "authcore: %d from dispatcharr", resp.StatusCode)
}

// parseFieldErrors converts a {"field": ["msg", ...]} JSON error body into
// the map shape teamerr.Validation expects.
func parseFieldErrors(r io.Reader) (map[string][]string, error) {
	var raw map[string]json.RawMessage
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, err
	}
	out := make(map[string][]string, len(raw))
	for k, v := range raw {
		var asSlice []string
		if err := json.Unmarshal(v, &asSlice); err == nil {
			out[k] = asSlice
			continue
		}
		var asString string
		if err := json.Unmarshal(v, &asString); err == nil {
			out[k] = []string{asString}
		}
	}
	return out, nil
}

// Do attaches a bearer token to req and sends it via DoWithRetry, retrying
// the call exactly once more after invalidating the session on a 401.
func (c *Core) Do(ctx context.Context, req *http.Request, policy httpclient.RetryPolicy) (*http.Response, error) {
	token, err := c.Token(ctx)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := httpclient.DoWithRetry(ctx, c.client, req, policy)
	if err != nil {
		return nil, teamerr.Network(err, "authcore: request %s", req.URL.Path)
	}
	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}
	resp.Body.Close()
	c.InvalidateSession()
	token, err = c.Token(ctx)
	if err != nil {
		return nil, err
	}
	var body io.Reader
	if req.GetBody != nil {
		rc, err := req.GetBody()
		if err != nil {
			return nil, teamerr.Network(err, "authcore: rebuild request body after 401")
		}
		body = rc
	}
	req2, err := http.NewRequestWithContext(ctx, req.Method, req.URL.String(), body)
	if err != nil {
		return nil, teamerr.Network(err, "authcore: rebuild request after 401")
	}
	req2.GetBody = req.GetBody
	req2.ContentLength = req.ContentLength
	for k, v := range req.Header {
		req2.Header[k] = v
	}
	req2.Header.Set("Authorization", "Bearer "+token)
	resp2, err := httpclient.DoWithRetry(ctx, c.client, req2, policy)
	if err != nil {
		return nil, teamerr.Network(err, "authcore: retry request %s", req2.URL.Path)
	}
	if resp2.StatusCode == http.StatusUnauthorized {
		resp2.Body.Close()
		return nil, teamerr.Auth(nil, "authcore: second 401 for %s", req2.URL.Path)
	}
	return resp2, nil
}
