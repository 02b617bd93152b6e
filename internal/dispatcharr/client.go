// Package dispatcharr is a typed client over Dispatcharr's channel, EPG,
// M3U, logo, group, and profile REST endpoints. It authenticates through
// internal/authcore's shared bearer-token cache and classifies every
// non-2xx response into internal/teamerr's error taxonomy, mirroring the
// original DispatcharrAuth/ChannelManager/EPGManager/M3UManager split one
// level down: one Client, one file per resource family.
package dispatcharr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/teamarr/teamarr/internal/authcore"
	"github.com/teamarr/teamarr/internal/httpclient"
	"github.com/teamarr/teamarr/internal/teamerr"
)

// Client is the single entrypoint the rest of Teamarr uses to talk to one
// Dispatcharr deployment.
type Client struct {
	baseURL string
	auth    *authcore.Core
	http    *http.Client
}

// New builds a Client for one Dispatcharr deployment and credential pair.
func New(baseURL, username, password string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		auth:    authcore.New(baseURL, username, password),
		http:    httpclient.Default(),
	}
}

// apiError is the {"field": ["msg", ...]} or {"detail": "msg"} shape
// Dispatcharr returns on 4xx/5xx.
type apiError map[string]json.RawMessage

func (c *Client) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	token, err := c.auth.Token(ctx)
	if err != nil {
		return nil, err
	}
	resp, err := c.doWithToken(ctx, method, path, body, token)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusUnauthorized {
		resp.Body.Close()
		c.auth.InvalidateSession()
		token, err = c.auth.Token(ctx)
		if err != nil {
			return nil, err
		}
		resp, err = c.doWithToken(ctx, method, path, body, token)
		if err != nil {
			return nil, err
		}
	}
	return resp, nil
}

func (c *Client) doWithToken(ctx context.Context, method, path string, body any, token string) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, teamerr.Network(err, "dispatcharr: marshal %s body", path)
		}
		reader = bytes.NewReader(raw)
	}
	reqURL := path
	if !strings.HasPrefix(path, "http") {
		reqURL = c.baseURL + path
	}
	req, err := http.NewRequestWithContext(ctx, method, reqURL, reader)
	if err != nil {
		return nil, teamerr.Network(err, "dispatcharr: build request %s %s", method, path)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return httpclient.DoWithRetry(ctx, c.http, req, httpclient.DefaultRetryPolicy)
}

// decode reads resp.Body into out (skipped if out is nil) and closes the body.
func decode(resp *http.Response, out any) error {
	defer resp.Body.Close()
	if out == nil {
		_, err := io.Copy(io.Discard, resp.Body)
		return err
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// classify converts a non-2xx/204 response into a teamerr-categorized error,
// consuming and closing the body.
func classify(resp *http.Response) error {
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return teamerr.NotFound("dispatcharr: %s not found", resp.Request.URL.Path)
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return teamerr.Auth(nil, "dispatcharr: %d from %s", resp.StatusCode, resp.Request.URL.Path)
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return teamerr.Validation(parseFieldErrors(raw))
	default:
		return teamerr.UpstreamState(nil, "dispatcharr: %d from %s: %s", resp.StatusCode, resp.Request.URL.Path, string(raw))
	}
}

// parseFieldErrors turns {"name": ["required"]} or {"detail": "msg"} into
// the {field: [messages]} shape teamerr.Validation expects.
func parseFieldErrors(raw []byte) map[string][]string {
	var fields apiError
	if err := json.Unmarshal(raw, &fields); err != nil {
		return map[string][]string{"error": {string(raw)}}
	}
	out := make(map[string][]string, len(fields))
	for k, v := range fields {
		var list []string
		if err := json.Unmarshal(v, &list); err == nil {
			out[k] = list
			continue
		}
		var single string
		if err := json.Unmarshal(v, &single); err == nil {
			out[k] = []string{single}
			continue
		}
		out[k] = []string{string(v)}
	}
	return out
}

func ok(resp *http.Response) bool {
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

// paginatedGet walks a DRF-paginated {results, next} listing endpoint,
// following "next" until exhausted, accumulating into a single slice.
// Mirrors ChannelManager._paginated_get.
func paginatedGet[T any](ctx context.Context, c *Client, initialPath string) ([]T, error) {
	var all []T
	next := initialPath
	for next != "" {
		resp, err := c.do(ctx, http.MethodGet, next, nil)
		if err != nil {
			return nil, err
		}
		if !ok(resp) {
			return nil, classify(resp)
		}
		var page struct {
			Results []T    `json:"results"`
			Next    string `json:"next"`
		}
		raw, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, teamerr.Network(err, "dispatcharr: read %s", next)
		}
		if err := json.Unmarshal(raw, &page); err == nil && (page.Results != nil || page.Next != "") {
			all = append(all, page.Results...)
			next = followNext(page.Next)
			continue
		}
		// Bare list response (no pagination envelope).
		var list []T
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil, teamerr.UpstreamState(err, "dispatcharr: decode %s", next)
		}
		all = append(all, list...)
		next = ""
	}
	return all, nil
}

// followNext reduces an absolute "next" URL to a path+query Client.do can
// prefix with baseURL again, so repeated pagination doesn't double up hosts.
func followNext(next string) string {
	if next == "" {
		return ""
	}
	if !strings.HasPrefix(next, "http") {
		return next
	}
	u, err := url.Parse(next)
	if err != nil {
		return ""
	}
	if u.RawQuery != "" {
		return fmt.Sprintf("%s?%s", u.Path, u.RawQuery)
	}
	return u.Path
}
