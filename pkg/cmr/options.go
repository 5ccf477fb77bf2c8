package cmr

import (
	"log/slog"
	"net/http"
	"time"
)

const (
	defaultClientID = "cmr-client"
	defaultTimeout  = 30 * time.Second
)

// settings is shared by every component that talks to CMR.
type settings struct {
	httpClient *http.Client
	limiter    *RateLimiter
	logger     *slog.Logger
	clientID   string
	provider   string
	pageSize   int
	tokens     TokenProvider
}

func newSettings(opts []Option) *settings {
	s := &settings{
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     slog.Default(),
		clientID:   defaultClientID,
		pageSize:   defaultPageSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Option configures a CMR component.
type Option func(*settings)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(s *settings) {
		if hc != nil {
			s.httpClient = hc
		}
	}
}

// WithRateLimiter makes every request wait on r first.
func WithRateLimiter(r *RateLimiter) Option {
	return func(s *settings) {
		s.limiter = r
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClientID sets the Client-Id header sent on every request.
func WithClientID(id string) Option {
	return func(s *settings) {
		if id != "" {
			s.clientID = id
		}
	}
}

// WithProvider scopes searches to a provider via provider_short_name.
func WithProvider(provider string) Option {
	return func(s *settings) {
		s.provider = provider
	}
}

// WithPageSize sets the page size used when a query leaves it zero.
func WithPageSize(n int) Option {
	return func(s *settings) {
		if n > 0 && n <= maxPageSize {
			s.pageSize = n
		}
	}
}

// WithTokenProvider sets the token source used by Client to build auth
// headers. Without one, requests go out anonymously.
func WithTokenProvider(tp TokenProvider) Option {
	return func(s *settings) {
		s.tokens = tp
	}
}
