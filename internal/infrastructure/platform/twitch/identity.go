package twitchinfra

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"streamwatch/internal/domain"
)

const defaultTokenURL = "https://id.twitch.tv/oauth2/token"

// IdentityClient obtiene app access tokens del endpoint OAuth de Twitch
// mediante el grant client_credentials.
type IdentityClient struct {
	httpCli  *http.Client
	tokenURL string // configurable for tests
	clock    clockwork.Clock
}

type IdentityOption func(*IdentityClient)

func WithTokenURL(u string) IdentityOption {
	return func(c *IdentityClient) { c.tokenURL = u }
}

func WithIdentityHTTPClient(h *http.Client) IdentityOption {
	return func(c *IdentityClient) { c.httpCli = h }
}

func WithIdentityClock(clock clockwork.Clock) IdentityOption {
	return func(c *IdentityClient) { c.clock = clock }
}

func NewIdentityClient(opts ...IdentityOption) *IdentityClient {
	c := &IdentityClient{
		httpCli:  &http.Client{},
		tokenURL: defaultTokenURL,
		clock:    clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *IdentityClient) FreshToken(ctx context.Context, clientID, clientSecret string) (domain.AuthToken, error) {
	data := url.Values{}
	data.Set("client_id", clientID)
	data.Set("client_secret", clientSecret)
	data.Set("grant_type", "client_credentials")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return domain.AuthToken{}, &domain.AuthError{Err: fmt.Errorf("build request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpCli.Do(req)
	if err != nil {
		return domain.AuthToken{}, &domain.AuthError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.AuthToken{}, &domain.AuthError{StatusCode: resp.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return domain.AuthToken{}, &domain.AuthError{
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected response: %s", strings.TrimSpace(string(body))),
		}
	}

	var payload tokenPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return domain.AuthToken{}, &domain.AuthError{StatusCode: resp.StatusCode, Err: fmt.Errorf("decode: %w", err)}
	}
	if payload.AccessToken == "" {
		return domain.AuthToken{}, &domain.AuthError{StatusCode: resp.StatusCode, Err: errors.New("response carries no access_token")}
	}

	return domain.AuthToken{
		ClientID:    clientID,
		AccessToken: payload.AccessToken,
		ExpiresAt:   c.clock.Now().UTC().Add(time.Duration(payload.ExpiresIn) * time.Second),
	}, nil
}

type tokenPayload struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
	TokenType   string `json:"token_type"`
}
