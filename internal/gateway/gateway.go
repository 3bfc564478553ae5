package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/salescrm/crm-portal/internal/domain"
	"github.com/salescrm/crm-portal/internal/observability"
	apperrors "github.com/salescrm/crm-portal/pkg/util/errorutil"
)

// LoginPath is where the user is sent after a forced logout.
const LoginPath = "/login"

const maxBodyBytes = 8 << 20

// ErrNoRefreshToken is the cause recorded when a 401 arrives without a
// refresh token to recover with.
var ErrNoRefreshToken = errors.New("no refresh token")

// TokenSource exposes the current credentials. The token store satisfies it.
type TokenSource interface {
	AccessToken() string
	RefreshToken() string
}

// Refresher exchanges the refresh token and tears the session down when
// recovery is impossible. The session controller satisfies it.
type Refresher interface {
	RefreshAccessToken(ctx context.Context) (bool, error)
	ForceLogout(reason string)
}

// Navigator receives navigation requests such as the post-logout redirect.
type Navigator func(path string)

// Response is a decoded CRM API answer.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	Envelope   *domain.Envelope
}

// Decode unmarshals the envelope's data section into v.
func (r *Response) Decode(v any) error {
	if r == nil || r.Envelope == nil {
		return errors.New("response has no envelope")
	}
	return r.Envelope.DecodeData(v)
}

// Client dispatches requests to the CRM API, attaching the bearer token and
// recovering once from an expired access token.
type Client struct {
	baseURL   string
	http      *http.Client
	timeout   time.Duration
	tokens    TokenSource
	refresher Refresher
	navigate  Navigator
	logger    *zap.Logger
	metrics   *observability.Metrics
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying transport client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithNavigator installs the redirect hook.
func WithNavigator(n Navigator) Option {
	return func(c *Client) { c.navigate = n }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithMetrics sets the counters the gateway reports to.
func WithMetrics(m *observability.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// New builds a gateway for baseURL. Every request is bounded by timeout.
func New(baseURL string, timeout time.Duration, tokens TokenSource, opts ...Option) *Client {
	c := &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		http:     &http.Client{},
		timeout:  timeout,
		tokens:   tokens,
		navigate: func(string) {},
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// UseRefresher wires the session controller in after construction; the
// controller itself depends on the gateway.
func (c *Client) UseRefresher(r Refresher) {
	c.refresher = r
}

// Do sends req and returns the response. A 401 on a request that has not
// been retried triggers one refresh and one re-send. For non-2xx answers
// both the response and an error are returned.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	req.enter(StateSent)
	resp, err := c.send(ctx, req)
	if err != nil {
		req.enter(StateDone)
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized && !req.SkipAuthRecovery && !req.retried {
		return c.recoverAndRetry(ctx, req, resp)
	}

	req.enter(StateDone)
	return resp, statusError(resp)
}

func (c *Client) recoverAndRetry(ctx context.Context, req *Request, unauthorized *Response) (*Response, error) {
	req.retried = true
	req.enter(StateRefreshing)
	c.metrics.RecordGateway(observability.GatewayUnauthorized)

	if c.refresher == nil || c.tokens.RefreshToken() == "" {
		c.logger.Info("401 without refresh token; signing out", zap.String("request_id", req.ID()))
		c.forceLogout(req, "no refresh token")
		return nil, apperrors.NewSessionExpired(errors.Join(ErrNoRefreshToken, statusError(unauthorized)))
	}

	// Another request may have rotated the pair while this one was in
	// flight; replay with the fresh token instead of rotating again.
	if current := c.tokens.AccessToken(); current != "" && current != req.sentToken {
		return c.retry(ctx, req)
	}

	c.metrics.RecordGateway(observability.GatewayRefresh)
	ok, err := c.refresher.RefreshAccessToken(ctx)
	if !ok {
		// A sign-in that landed during the exchange owns the store now;
		// the stale outcome must not tear it down.
		if current := c.tokens.AccessToken(); current != "" && current != req.sentToken {
			c.logger.Info("session replaced during refresh; replaying",
				zap.String("request_id", req.ID()), zap.Error(err))
			return c.retry(ctx, req)
		}
		if err == nil {
			err = ErrNoRefreshToken
		}
		c.logger.Warn("token refresh failed; signing out",
			zap.String("request_id", req.ID()), zap.Error(err))
		c.forceLogout(req, "refresh failed")
		return nil, apperrors.NewSessionExpired(err)
	}
	return c.retry(ctx, req)
}

func (c *Client) retry(ctx context.Context, req *Request) (*Response, error) {
	req.enter(StateRetrySent)
	c.metrics.RecordGateway(observability.GatewayRetry)
	resp, err := c.send(ctx, req)
	req.enter(StateDone)
	if err != nil {
		return nil, err
	}
	return resp, statusError(resp)
}

func (c *Client) forceLogout(req *Request, reason string) {
	req.enter(StateLoggedOut)
	c.metrics.RecordGateway(observability.GatewayForcedLogout)
	if c.refresher != nil {
		c.refresher.ForceLogout(reason)
	}
	c.navigate(LoginPath)
	req.enter(StateDone)
}

// send performs exactly one HTTP exchange with the current access token.
func (c *Client) send(ctx context.Context, req *Request) (*Response, error) {
	c.metrics.RecordGateway(observability.GatewayRequest)

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	httpReq, err := c.buildRequest(ctx, req)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		c.metrics.RecordGateway(observability.GatewayNetworkError)
		return nil, apperrors.NewNetworkError(err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(httpResp.Body, maxBodyBytes))
	if err != nil {
		c.metrics.RecordGateway(observability.GatewayNetworkError)
		return nil, apperrors.NewNetworkError(err)
	}

	resp := &Response{StatusCode: httpResp.StatusCode, Header: httpResp.Header, Body: body}
	if len(body) > 0 {
		var env domain.Envelope
		if err := json.Unmarshal(body, &env); err == nil {
			resp.Envelope = &env
		}
	}

	c.logger.Debug("crm api call",
		zap.String("request_id", req.ID()),
		zap.String("method", req.Method),
		zap.String("path", req.Path),
		zap.Int("status", resp.StatusCode),
		zap.String("state", req.State().String()))
	return resp, nil
}

func (c *Client) buildRequest(ctx context.Context, req *Request) (*http.Request, error) {
	target := c.baseURL + "/" + strings.TrimLeft(req.Path, "/")
	if len(req.Query) > 0 {
		target += "?" + req.Query.Encode()
	}

	var body io.Reader
	if req.Body != nil {
		raw, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	httpReq.Header.Set("X-Request-ID", req.ID())
	req.sentToken = c.tokens.AccessToken()
	if req.sentToken != "" {
		httpReq.Header.Set("Authorization", "Bearer "+req.sentToken)
	}
	return httpReq, nil
}

func statusError(resp *Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	var code, message string
	var details json.RawMessage
	if resp.Envelope != nil && resp.Envelope.Error != nil {
		code = resp.Envelope.Error.Code
		message = resp.Envelope.Error.Message
		details = resp.Envelope.Error.Details
	}
	return apperrors.NewUpstreamError(resp.StatusCode, code, message, details)
}
