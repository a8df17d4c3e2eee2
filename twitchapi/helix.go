// Package twitchapi contains a minimal Twitch Helix client used to check
// whether a channel is live, using an app access (client credentials) token.
// The app token cannot be used for IRC chat; chat needs a user OAuth token
// with chat:read scope.
package twitchapi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	tokenURL   = "https://id.twitch.tv/oauth2/token"
	streamsURL = "https://api.twitch.tv/helix/streams"
)

// HelixClient answers live-status queries for the reconnect policy.
type HelixClient struct {
	ClientID   string
	HTTPClient *http.Client

	tokens oauth2.TokenSource
}

// NewHelixClient builds a client with a cached, self-refreshing app token.
// Returns nil when credentials are missing; callers treat a nil client as
// "live status unknown".
func NewHelixClient(clientID, clientSecret string) *HelixClient {
	if clientID == "" || clientSecret == "" {
		return nil
	}
	cc := &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     tokenURL,
	}
	return &HelixClient{
		ClientID: clientID,
		tokens:   cc.TokenSource(context.Background()),
	}
}

func (hc *HelixClient) http() *http.Client {
	if hc.HTTPClient != nil {
		return hc.HTTPClient
	}
	return http.DefaultClient
}

// streamsEndpoint is swapped by tests pointing at a mock server.
var streamsEndpoint = streamsURL

// IsLive reports whether the channel currently has a live stream.
func (hc *HelixClient) IsLive(ctx context.Context, channel string) (bool, error) {
	if channel == "" {
		return false, fmt.Errorf("channel empty")
	}
	tok, err := hc.tokens.Token()
	if err != nil {
		return false, fmt.Errorf("app token: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, streamsEndpoint, nil)
	if err != nil {
		return false, err
	}
	q := req.URL.Query()
	q.Set("user_login", channel)
	req.URL.RawQuery = q.Encode()
	req.Header.Set("Client-Id", hc.ClientID)
	req.Header.Set("Authorization", "Bearer "+tok.AccessToken)
	resp, err := hc.http().Do(req)
	if err != nil {
		return false, err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Warn("failed to close response body", slog.Any("err", err))
		}
	}()
	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("streams request failed: %s", resp.Status)
	}
	var body struct {
		Data []struct {
			ID   string `json:"id"`
			Type string `json:"type"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return false, err
	}
	return len(body.Data) > 0, nil
}
