package twitchinfra

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/nicklaw5/helix/v2"

	"streamwatch/internal/domain"
)

// Helix accepts at most 100 logins per request.
const maxLoginsPerRequest = 100

type StreamServiceConfig struct {
	ClientID   string
	Tokens     domain.TokenProvider
	HTTPClient *http.Client
	// APIBaseURL overrides the Helix base URL, mostly for tests.
	APIBaseURL string
}

// TwitchStreamService consulta usuarios y streams en Helix usando el app
// access token del TokenProvider.
type TwitchStreamService struct {
	client   *helix.Client
	tokens   domain.TokenProvider
	recorder *exchangeRecorder
	mu       sync.Mutex
}

func NewStreamService(cfg StreamServiceConfig) (*TwitchStreamService, error) {
	if cfg.Tokens == nil {
		return nil, errors.New("helix: token provider is required")
	}

	httpCli := cfg.HTTPClient
	if httpCli == nil {
		httpCli = &http.Client{}
	}
	recorder := &exchangeRecorder{next: httpCli}

	client, err := helix.NewClient(&helix.Options{
		ClientID:   cfg.ClientID,
		HTTPClient: recorder,
		APIBaseURL: cfg.APIBaseURL,
	})
	if err != nil {
		return nil, fmt.Errorf("helix: NewClient: %w", err)
	}

	return &TwitchStreamService{
		client:   client,
		tokens:   cfg.Tokens,
		recorder: recorder,
	}, nil
}

func (s *TwitchStreamService) ResolveUsers(ctx context.Context, logins []string) ([]domain.TrackedUser, error) {
	if err := s.tokens.EnsureValid(ctx); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.prepare()
	resp, err := s.client.GetUsers(&helix.UsersParams{
		Logins: logins,
	})
	var common *helix.ResponseCommon
	if resp != nil {
		common = &resp.ResponseCommon
	}
	if err := s.classify("GetUsers", common, err); err != nil {
		return nil, err
	}

	users := make([]domain.TrackedUser, 0, len(resp.Data.Users))
	for _, u := range resp.Data.Users {
		users = append(users, domain.TrackedUser{
			ID:          u.ID,
			Login:       u.Login,
			DisplayName: u.DisplayName,
		})
	}

	return users, nil
}

func (s *TwitchStreamService) FetchStreams(ctx context.Context, logins []string) ([]domain.StreamRecord, error) {
	if err := s.tokens.EnsureValid(ctx); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.prepare()
	resp, err := s.client.GetStreams(&helix.StreamsParams{
		UserLogins: logins,
		First:      min(len(logins), maxLoginsPerRequest),
	})
	var common *helix.ResponseCommon
	if resp != nil {
		common = &resp.ResponseCommon
	}
	if err := s.classify("GetStreams", common, err); err != nil {
		return nil, err
	}

	records := make([]domain.StreamRecord, 0, len(resp.Data.Streams))
	for _, st := range resp.Data.Streams {
		records = append(records, domain.StreamRecord{
			ID:          st.ID,
			UserID:      st.UserID,
			UserLogin:   st.UserLogin,
			UserName:    st.UserName,
			GameID:      st.GameID,
			GameName:    st.GameName,
			Title:       st.Title,
			ViewerCount: st.ViewerCount,
			StartedAt:   st.StartedAt,
		})
	}

	return records, nil
}

// prepare sets the current bearer token on the shared client. Caller holds s.mu.
func (s *TwitchStreamService) prepare() {
	s.client.SetAppAccessToken(s.tokens.Current().AccessToken)
	s.recorder.reset()
}

// classify turns a Helix call outcome into a *domain.APIError.
// helix formats transport and decode failures the same way, so the recorder
// is what tells them apart.
func (s *TwitchStreamService) classify(endpoint string, common *helix.ResponseCommon, err error) error {
	if s.recorder.err != nil {
		return &domain.APIError{Kind: domain.APIErrorHTTP, Endpoint: endpoint, Err: s.recorder.err}
	}
	if s.recorder.status != 0 && !isSuccess(s.recorder.status) {
		return &domain.APIError{
			Kind:       domain.APIErrorHTTP,
			Endpoint:   endpoint,
			StatusCode: s.recorder.status,
			Err:        errors.New(describe(common, s.recorder.status)),
		}
	}
	if err != nil {
		return &domain.APIError{Kind: domain.APIErrorDecode, Endpoint: endpoint, StatusCode: s.recorder.status, Err: err}
	}
	if common != nil && !isSuccess(common.StatusCode) {
		return &domain.APIError{
			Kind:       domain.APIErrorHTTP,
			Endpoint:   endpoint,
			StatusCode: common.StatusCode,
			Err:        errors.New(describe(common, common.StatusCode)),
		}
	}
	return nil
}

func describe(common *helix.ResponseCommon, status int) string {
	if common != nil && (common.Error != "" || common.ErrorMessage != "") {
		return fmt.Sprintf("%s: %s", common.Error, common.ErrorMessage)
	}
	return http.StatusText(status)
}

func isSuccess(status int) bool {
	return status >= 200 && status <= 299
}

// exchangeRecorder remembers the outcome of the last HTTP exchange helix made.
type exchangeRecorder struct {
	next   *http.Client
	status int
	err    error
}

func (r *exchangeRecorder) Do(req *http.Request) (*http.Response, error) {
	resp, err := r.next.Do(req)
	if err != nil {
		r.err = err
		return nil, err
	}
	r.status = resp.StatusCode
	return resp, nil
}

func (r *exchangeRecorder) reset() {
	r.status = 0
	r.err = nil
}

var _ domain.StreamAPI = (*TwitchStreamService)(nil)
