package twitchapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"golang.org/x/oauth2"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *HelixClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	prev := streamsEndpoint
	streamsEndpoint = srv.URL
	t.Cleanup(func() { streamsEndpoint = prev })

	return &HelixClient{
		ClientID: "test-client",
		tokens:   oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "app-token"}),
	}
}

func TestNewHelixClientRequiresCredentials(t *testing.T) {
	if NewHelixClient("", "secret") != nil {
		t.Error("client built without client ID")
	}
	if NewHelixClient("id", "") != nil {
		t.Error("client built without secret")
	}
	if NewHelixClient("id", "secret") == nil {
		t.Error("client not built with full credentials")
	}
}

func TestIsLive(t *testing.T) {
	var gotLogin, gotAuth, gotClientID string
	hc := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotLogin = r.URL.Query().Get("user_login")
		gotAuth = r.Header.Get("Authorization")
		gotClientID = r.Header.Get("Client-Id")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[{"id":"1","type":"live"}]}`))
	})

	live, err := hc.IsLive(context.Background(), "darkautumn")
	if err != nil {
		t.Fatalf("IsLive: %v", err)
	}
	if !live {
		t.Error("stream with data reported offline")
	}
	if gotLogin != "darkautumn" {
		t.Errorf("user_login = %q", gotLogin)
	}
	if gotAuth != "Bearer app-token" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotClientID != "test-client" {
		t.Errorf("Client-Id = %q", gotClientID)
	}
}

func TestIsLiveOffline(t *testing.T) {
	hc := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[]}`))
	})
	live, err := hc.IsLive(context.Background(), "darkautumn")
	if err != nil {
		t.Fatalf("IsLive: %v", err)
	}
	if live {
		t.Error("empty data reported live")
	}
}

func TestIsLiveErrors(t *testing.T) {
	hc := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	})
	if _, err := hc.IsLive(context.Background(), "darkautumn"); err == nil {
		t.Error("non-200 response accepted")
	}
	if _, err := hc.IsLive(context.Background(), ""); err == nil {
		t.Error("empty channel accepted")
	}
}
