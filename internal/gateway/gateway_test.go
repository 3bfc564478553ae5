package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/salescrm/crm-portal/internal/domain"
	"github.com/salescrm/crm-portal/internal/observability"
	apperrors "github.com/salescrm/crm-portal/pkg/util/errorutil"
)

type tokens struct {
	mu      sync.Mutex
	access  string
	refresh string
}

func (t *tokens) AccessToken() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.access
}

func (t *tokens) RefreshToken() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.refresh
}

func (t *tokens) set(access, refresh string) {
	t.mu.Lock()
	t.access, t.refresh = access, refresh
	t.mu.Unlock()
}

type fakeRefresher struct {
	tokens  *tokens
	ok      bool
	calls   int
	reasons []string
}

func (f *fakeRefresher) RefreshAccessToken(context.Context) (bool, error) {
	f.calls++
	if f.ok {
		f.tokens.set("fresh", "R2")
	}
	return f.ok, nil
}

func (f *fakeRefresher) ForceLogout(reason string) {
	f.reasons = append(f.reasons, reason)
	f.tokens.set("", "")
}

// replacingRefresher simulates a sign-in landing while the exchange runs:
// the store now holds another session and the stale outcome is discarded.
type replacingRefresher struct {
	tokens  *tokens
	reasons []string
}

func (r *replacingRefresher) RefreshAccessToken(context.Context) (bool, error) {
	r.tokens.set("relogin", "R9")
	return false, errors.New("session changed during refresh")
}

func (r *replacingRefresher) ForceLogout(reason string) {
	r.reasons = append(r.reasons, reason)
	r.tokens.set("", "")
}

func envelope(w http.ResponseWriter, status int, env domain.Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(env)
}

// acceptOnly answers 200 for bearer token want and 401 otherwise.
func acceptOnly(want string, seen *[]string) http.HandlerFunc {
	var mu sync.Mutex
	return func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		*seen = append(*seen, r.Header.Get("Authorization"))
		mu.Unlock()
		if r.Header.Get("Authorization") != "Bearer "+want {
			envelope(w, http.StatusUnauthorized, domain.Envelope{Error: &domain.APIError{Code: "TOKEN_EXPIRED", Message: "Token expired"}})
			return
		}
		envelope(w, http.StatusOK, domain.Envelope{Success: true, Data: json.RawMessage(`{"ok":true}`)})
	}
}

func TestAnonymousRequestCarriesNoAuthorization(t *testing.T) {
	var header, requestID, query string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header = r.Header.Get("Authorization")
		requestID = r.Header.Get("X-Request-ID")
		query = r.URL.RawQuery
		envelope(w, http.StatusOK, domain.Envelope{Success: true})
	}))
	defer srv.Close()

	c := New(srv.URL+"/", time.Second, &tokens{})
	req := Get("/leads", url.Values{"page": {"2"}})
	resp, err := c.Do(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, header)
	assert.Equal(t, req.ID(), requestID)
	assert.Equal(t, "page=2", query)
	assert.Equal(t, []State{StateSent, StateDone}, req.History())
}

func TestBearerTokenAttached(t *testing.T) {
	var seen []string
	srv := httptest.NewServer(acceptOnly("T1", &seen))
	defer srv.Close()

	c := New(srv.URL, time.Second, &tokens{access: "T1", refresh: "R1"})
	resp, err := c.Do(context.Background(), Get("/leads", nil))
	require.NoError(t, err)

	var data map[string]bool
	require.NoError(t, resp.Decode(&data))
	assert.True(t, data["ok"])
	assert.Equal(t, []string{"Bearer T1"}, seen)
}

func TestNonAuthErrorsPassThrough(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		envelope(w, http.StatusUnprocessableEntity, domain.Envelope{
			Error: &domain.APIError{Code: "VALIDATION_ERROR", Message: "name is required", Details: json.RawMessage(`{"field":"name"}`)},
		})
	}))
	defer srv.Close()

	refresher := &fakeRefresher{}
	c := New(srv.URL, time.Second, &tokens{access: "T1", refresh: "R1"})
	c.UseRefresher(refresher)

	resp, err := c.Do(context.Background(), Post("/leads", map[string]string{}))
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	domainErr := apperrors.ToDomainError(err)
	assert.Equal(t, apperrors.CategoryInvalid, domainErr.Category)
	assert.Equal(t, "VALIDATION_ERROR", domainErr.Code)
	assert.Equal(t, "name is required", domainErr.Message)
	assert.JSONEq(t, `{"field":"name"}`, string(domainErr.Details))
	assert.Zero(t, refresher.calls)
}

func TestUnauthorizedRefreshesOnceAndRetries(t *testing.T) {
	var seen []string
	srv := httptest.NewServer(acceptOnly("fresh", &seen))
	defer srv.Close()

	src := &tokens{access: "stale", refresh: "R1"}
	refresher := &fakeRefresher{tokens: src, ok: true}
	metrics := observability.NewMetrics()
	c := New(srv.URL, time.Second, src, WithMetrics(metrics))
	c.UseRefresher(refresher)

	req := Get("/leads", nil)
	resp, err := c.Do(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, refresher.calls)
	assert.Equal(t, []string{"Bearer stale", "Bearer fresh"}, seen)
	assert.True(t, req.Retried())
	assert.Equal(t, []State{StateSent, StateRefreshing, StateRetrySent, StateDone}, req.History())
	assert.EqualValues(t, 2, metrics.Gateway(observability.GatewayRequest))
	assert.EqualValues(t, 1, metrics.Gateway(observability.GatewayUnauthorized))
}

func TestRotatedTokenIsReplayedWithoutRefresh(t *testing.T) {
	src := &tokens{access: "stale", refresh: "R1"}
	var seen []string
	inner := acceptOnly("rotated", &seen)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		inner(w, r)
		// another request finished a refresh while this one was in flight
		src.set("rotated", "R2")
	}))
	defer srv.Close()

	refresher := &fakeRefresher{tokens: src, ok: true}
	c := New(srv.URL, time.Second, src)
	c.UseRefresher(refresher)

	resp, err := c.Do(context.Background(), Get("/leads", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Zero(t, refresher.calls)
	assert.Equal(t, []string{"Bearer stale", "Bearer rotated"}, seen)
}

func TestSecondUnauthorizedIsReturned(t *testing.T) {
	var seen []string
	srv := httptest.NewServer(acceptOnly("never", &seen))
	defer srv.Close()

	src := &tokens{access: "stale", refresh: "R1"}
	refresher := &fakeRefresher{tokens: src, ok: true}
	c := New(srv.URL, time.Second, src)
	c.UseRefresher(refresher)

	resp, err := c.Do(context.Background(), Get("/leads", nil))
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, 1, refresher.calls)
	assert.Len(t, seen, 2)
	assert.Empty(t, refresher.reasons)
}

func TestRefreshFailureLogsOutAndNavigates(t *testing.T) {
	var seen []string
	srv := httptest.NewServer(acceptOnly("fresh", &seen))
	defer srv.Close()

	src := &tokens{access: "stale", refresh: "R1"}
	refresher := &fakeRefresher{tokens: src, ok: false}
	var navigated []string
	c := New(srv.URL, time.Second, src, WithNavigator(func(path string) { navigated = append(navigated, path) }))
	c.UseRefresher(refresher)

	req := Get("/leads", nil)
	resp, err := c.Do(context.Background(), req)
	assert.Nil(t, resp)
	assert.True(t, apperrors.HasCategory(err, apperrors.CategoryAuthExpiry))
	assert.ErrorIs(t, err, ErrNoRefreshToken)
	assert.Equal(t, []string{"refresh failed"}, refresher.reasons)
	assert.Equal(t, []string{LoginPath}, navigated)
	assert.Equal(t, []State{StateSent, StateRefreshing, StateLoggedOut, StateDone}, req.History())
	assert.Len(t, seen, 1)
}

func TestUnauthorizedWithoutRefreshTokenLogsOut(t *testing.T) {
	var seen []string
	srv := httptest.NewServer(acceptOnly("fresh", &seen))
	defer srv.Close()

	src := &tokens{}
	refresher := &fakeRefresher{tokens: src, ok: true}
	c := New(srv.URL, time.Second, src)
	c.UseRefresher(refresher)

	_, err := c.Do(context.Background(), Get("/auth/me", nil))
	assert.ErrorIs(t, err, ErrNoRefreshToken)
	assert.Zero(t, refresher.calls)
	assert.Equal(t, []string{"no refresh token"}, refresher.reasons)
}

func TestSkipAuthRecoveryReturnsUnauthorized(t *testing.T) {
	var seen []string
	srv := httptest.NewServer(acceptOnly("fresh", &seen))
	defer srv.Close()

	src := &tokens{access: "stale", refresh: "R1"}
	refresher := &fakeRefresher{tokens: src, ok: true}
	c := New(srv.URL, time.Second, src)
	c.UseRefresher(refresher)

	req := Post("/auth/refresh", map[string]string{"refreshToken": "R1"})
	req.SkipAuthRecovery = true
	resp, err := c.Do(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.True(t, apperrors.HasCategory(err, apperrors.CategoryCredential))
	assert.Zero(t, refresher.calls)
	assert.False(t, req.Retried())
}

func TestTransportFailuresAreNetworkErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	c := New(srv.URL, 20*time.Millisecond, &tokens{})
	_, err := c.Do(context.Background(), Get("/slow", nil))
	assert.True(t, apperrors.HasCategory(err, apperrors.CategoryNetwork))

	closed := httptest.NewServer(http.NotFoundHandler())
	closed.Close()
	c = New(closed.URL, time.Second, &tokens{})
	_, err = c.Do(context.Background(), Get("/leads", nil))
	assert.True(t, apperrors.HasCategory(err, apperrors.CategoryNetwork))
}

func TestReplacedSessionIsReplayedNotLoggedOut(t *testing.T) {
	var seen []string
	srv := httptest.NewServer(acceptOnly("relogin", &seen))
	defer srv.Close()

	src := &tokens{access: "stale", refresh: "R1"}
	refresher := &replacingRefresher{tokens: src}
	var navigated []string
	c := New(srv.URL, time.Second, src, WithNavigator(func(path string) { navigated = append(navigated, path) }))
	c.UseRefresher(refresher)

	req := Get("/leads", nil)
	resp, err := c.Do(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, refresher.reasons)
	assert.Empty(t, navigated)
	assert.Equal(t, "relogin", src.AccessToken())
	assert.Equal(t, []string{"Bearer stale", "Bearer relogin"}, seen)
	assert.Equal(t, []State{StateSent, StateRefreshing, StateRetrySent, StateDone}, req.History())
}
