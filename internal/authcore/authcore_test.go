package authcore

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/teamarr/teamarr/internal/httpclient"
)

func TestToken_authenticatesThenCaches(t *testing.T) {
	var authCalls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/accounts/token/" {
			authCalls++
			json.NewEncoder(w).Encode(tokenPairResponse{Access: "tok1", Refresh: "ref1"})
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := New(srv.URL, "admin", "pw")
	tok, err := c.Token(t.Context())
	if err != nil {
		t.Fatalf("Token: %v", err)
	}
	if tok != "tok1" {
		t.Fatalf("token = %q, want tok1", tok)
	}
	if _, err := c.Token(t.Context()); err != nil {
		t.Fatalf("second Token call: %v", err)
	}
	if authCalls != 1 {
		t.Fatalf("authCalls = %d, want 1 (second call should hit the cache)", authCalls)
	}
}

func TestToken_authFailureClassifiesAsAuthError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := New(srv.URL, "admin", "wrongpw")
	if _, err := c.Token(t.Context()); err == nil {
		t.Fatal("expected an error for a 401 auth response")
	}
}

func TestDo_retriesOnceAfter401(t *testing.T) {
	var authCalls, apiCalls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/accounts/token/":
			authCalls++
			json.NewEncoder(w).Encode(tokenPairResponse{Access: "tok", Refresh: "ref"})
		case "/api/channels/channels/":
			apiCalls++
			if apiCalls == 1 {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := New(srv.URL, "admin", "pw")
	req, _ := http.NewRequestWithContext(t.Context(), http.MethodGet, srv.URL+"/api/channels/channels/", nil)
	resp, err := c.Do(t.Context(), req, httpclient.DefaultRetryPolicy)
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if apiCalls != 2 {
		t.Fatalf("apiCalls = %d, want 2 (original + retry after 401)", apiCalls)
	}
	if authCalls != 2 {
		t.Fatalf("authCalls = %d, want 2 (original auth + re-auth after session invalidation)", authCalls)
	}
}

func TestDo_retriesWithOriginalBodyAfter401(t *testing.T) {
	var authCalls, apiCalls int
	var bodiesSeen []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/accounts/token/":
			authCalls++
			json.NewEncoder(w).Encode(tokenPairResponse{Access: "tok", Refresh: "ref"})
		case "/api/channels/channels/":
			apiCalls++
			raw, _ := io.ReadAll(r.Body)
			bodiesSeen = append(bodiesSeen, string(raw))
			if apiCalls == 1 {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := New(srv.URL, "admin", "pw")
	payload := []byte(`{"name":"Lions at Packers"}`)
	req, _ := http.NewRequestWithContext(t.Context(), http.MethodPost, srv.URL+"/api/channels/channels/", bytes.NewReader(payload))
	resp, err := c.Do(t.Context(), req, httpclient.DefaultRetryPolicy)
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if len(bodiesSeen) != 2 {
		t.Fatalf("expected 2 request bodies observed, got %d", len(bodiesSeen))
	}
	for i, body := range bodiesSeen {
		if body != string(payload) {
			t.Errorf("request %d body = %q, want original payload %q preserved on retry", i, body, payload)
		}
	}
}

func TestDo_secondConsecutive401IsAuthError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/accounts/token/":
			json.NewEncoder(w).Encode(tokenPairResponse{Access: "tok", Refresh: "ref"})
		default:
			w.WriteHeader(http.StatusUnauthorized)
		}
	}))
	defer srv.Close()

	c := New(srv.URL, "admin", "pw")
	req, _ := http.NewRequestWithContext(t.Context(), http.MethodGet, srv.URL+"/api/channels/channels/", nil)
	if _, err := c.Do(t.Context(), req, httpclient.DefaultRetryPolicy); err == nil {
		t.Fatal("expected an error after two consecutive 401s")
	}
}
