package kyc

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

	"github.com/hashicorp/go-retryablehttp"

	"kycdesk.org/internal/obs"
)

const (
	// DefaultBaseURL is the production endpoint of the provider.
	DefaultBaseURL = "https://production.deepvue.tech"

	authorizePath = "/v1/authorize"
	maxBodyBytes  = 4 << 20
)

// Provider issues outbound HTTPS calls to the verification provider.
// Transport-level retries are disabled unless WithRetryMax is given.
type Provider struct {
	baseURL string
	client  *retryablehttp.Client
}

// ProviderOption configures a Provider.
type ProviderOption func(*Provider)

// WithRetryMax enables transport retries on connection errors and 5xx responses.
func WithRetryMax(n int) ProviderOption {
	return func(p *Provider) {
		if n >= 0 {
			p.client.RetryMax = n
		}
	}
}

// WithTimeout sets the per-call timeout of the underlying HTTP client.
func WithTimeout(d time.Duration) ProviderOption {
	return func(p *Provider) {
		if d > 0 {
			p.client.HTTPClient.Timeout = d
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client (tests use httptest clients).
func WithHTTPClient(c *http.Client) ProviderOption {
	return func(p *Provider) {
		if c != nil {
			p.client.HTTPClient = c
		}
	}
}

// NewProvider returns a Provider rooted at baseURL.
func NewProvider(baseURL string, opts ...ProviderOption) *Provider {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	rc := retryablehttp.NewClient()
	rc.RetryMax = 0
	rc.RetryWaitMin = 200 * time.Millisecond
	rc.RetryWaitMax = 2 * time.Second
	rc.Logger = retryLogger{}
	// Hand the last response back as-is so provider error bodies reach the caller.
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler
	p := &Provider{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  rc,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Authorize exchanges the client credentials for an access token.
func (p *Provider) Authorize(ctx context.Context, creds Credentials) (string, error) {
	form := url.Values{}
	form.Set("client_id", creds.ClientID)
	form.Set("client_secret", creds.ClientSecret)

	headers := http.Header{}
	headers.Set("Content-Type", "application/x-www-form-urlencoded")

	body, err := p.do(ctx, http.MethodPost, authorizePath, nil, headers, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	var resp struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(body, &resp); err != nil || resp.AccessToken == "" {
		return "", ErrTokenUnavailable
	}
	return resp.AccessToken, nil
}

// Call performs a request without a body and returns the JSON response.
// Non-2xx responses carrying JSON are returned like any other body.
func (p *Provider) Call(ctx context.Context, method, path string, query url.Values, headers http.Header) (json.RawMessage, error) {
	return p.do(ctx, method, path, query, headers, nil)
}

func (p *Provider) do(ctx context.Context, method, path string, query url.Values, headers http.Header, body io.Reader) (json.RawMessage, error) {
	target := p.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	var reqBody any
	if body != nil {
		reqBody = body
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, method, target, reqBody)
	if err != nil {
		return nil, fmt.Errorf("build provider request: %w", err)
	}
	for k, vs := range headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	start := time.Now()
	resp, err := p.client.Do(req)
	obs.ProviderRequestDuration.WithLabelValues(path).Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %v", ErrProviderUnreachable, method, path, redactError(err))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrProviderUnreachable, path, err)
	}
	if !json.Valid(raw) {
		obs.FromContext(ctx).Warn().
			Str("path", path).
			Int("status", resp.StatusCode).
			Msg("provider returned non-JSON body")
		if resp.StatusCode >= http.StatusBadRequest {
			return nil, fmt.Errorf("%w: %s returned %d", ErrProviderUnreachable, path, resp.StatusCode)
		}
		return nil, ErrInvalidJSON
	}
	return raw, nil
}

// retryLogger routes retryablehttp's leveled logging into the shared logger.
// Query strings are stripped: they carry document numbers and OTPs.
type retryLogger struct{}

func (retryLogger) Error(msg string, kv ...any) { obs.Logger().Error().Fields(scrubFields(kv)).Msg(msg) }
func (retryLogger) Info(msg string, kv ...any)  { obs.Logger().Debug().Fields(scrubFields(kv)).Msg(msg) }
func (retryLogger) Debug(msg string, kv ...any) { obs.Logger().Debug().Fields(scrubFields(kv)).Msg(msg) }
func (retryLogger) Warn(msg string, kv ...any)  { obs.Logger().Warn().Fields(scrubFields(kv)).Msg(msg) }

func scrubFields(kv []any) []any {
	out := make([]any, len(kv))
	for i, v := range kv {
		switch x := v.(type) {
		case *url.URL:
			out[i] = withoutQuery(x).String()
		case error:
			out[i] = redactError(x).Error()
		case string:
			out[i] = x
			if i%2 == 1 && kv[i-1] == "url" {
				if u, err := url.Parse(x); err == nil {
					out[i] = withoutQuery(u).String()
				}
			}
		default:
			out[i] = v
		}
	}
	return out
}

func withoutQuery(u *url.URL) *url.URL {
	if u == nil {
		return &url.URL{}
	}
	c := *u
	c.RawQuery = ""
	c.ForceQuery = false
	return &c
}

// redactError rewrites a *url.Error so its message no longer includes the query.
func redactError(err error) error {
	var ue *url.Error
	if !errors.As(err, &ue) {
		return err
	}
	u, perr := url.Parse(ue.URL)
	if perr != nil {
		return err
	}
	return &url.Error{Op: ue.Op, URL: withoutQuery(u).String(), Err: ue.Err}
}
