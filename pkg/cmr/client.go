// Package cmr provides a client for NASA's Common Metadata Repository:
// searching concepts page by page through a capped lazy queue, validating
// metadata, and ingesting or deleting collections and granules. Every
// network-facing piece sits behind an interface for testability.
package cmr

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// PageFetcher fetches one page of search results.
type PageFetcher interface {
	FetchPage(ctx context.Context, query SearchQuery, headers http.Header) (*SearchPage, error)
}

// TokenProvider supplies the token attached to CMR requests.
type TokenProvider interface {
	Token(ctx context.Context) (Token, error)
}

// ConceptValidator checks a metadata document with CMR before it is written.
type ConceptValidator interface {
	Validate(
		ctx context.Context,
		concept Concept,
		identifier string,
		provider string,
		headers http.Header,
	) error
}

// ConceptWriter creates, updates and deletes concepts.
type ConceptWriter interface {
	Ingest(
		ctx context.Context,
		concept Concept,
		provider string,
		headers http.Header,
		opts ...IngestOption,
	) (*IngestResult, error)
	Delete(
		ctx context.Context,
		conceptType ConceptType,
		identifier string,
		provider string,
		headers http.Header,
	) (*DeleteResult, error)
}

// Config is the explicit configuration of a Client. Nothing is read from the
// process environment.
type Config struct {
	Environment Environment
	// Host overrides Environment when set.
	Host     string
	Provider string
	ClientID string

	PageSize    int
	RecordLimit int
	Timeout     time.Duration

	Auth      AuthConfig
	RateLimit RateLimitConfig
}

// AuthConfig selects how requests are authenticated. A Token wins over
// Username/Password; with neither, requests go out anonymously.
type AuthConfig struct {
	Scheme   AuthScheme
	Username string
	Password string
	Token    string
}

// RateLimitConfig configures client-side throttling. Zero PerSecond disables it.
type RateLimitConfig struct {
	PerSecond float64
	Burst     int
}

// Client bundles the CMR components for one provider and environment.
type Client struct {
	Resolver  *Resolver
	Tokens    TokenProvider
	Search    *SearchClient
	Validator ConceptValidator
	Writer    ConceptWriter

	provider    string
	clientID    string
	recordLimit int
	logger      *slog.Logger
}

// New builds a Client from cfg. Options apply to every component and take
// precedence over cfg.
func New(cfg Config, opts ...Option) (*Client, error) {
	resolver, err := NewResolver(cfg.Environment, cfg.Host)
	if err != nil {
		return nil, err
	}

	base := []Option{
		WithClientID(cfg.ClientID),
		WithProvider(cfg.Provider),
		WithPageSize(cfg.PageSize),
	}
	if cfg.Timeout > 0 {
		base = append(base, WithHTTPClient(&http.Client{Timeout: cfg.Timeout}))
	}
	if cfg.RateLimit.PerSecond > 0 {
		base = append(base, WithRateLimiter(NewRateLimiter(cfg.RateLimit.PerSecond, cfg.RateLimit.Burst)))
	}
	all := append(base, opts...)
	s := newSettings(all)

	tokens := s.tokens
	if tokens == nil {
		tokens, err = tokenProviderFor(cfg, resolver, all)
		if err != nil {
			return nil, err
		}
	}

	validator := NewValidator(resolver, all...)
	return &Client{
		Resolver:    resolver,
		Tokens:      tokens,
		Search:      NewSearchClient(resolver, all...),
		Validator:   validator,
		Writer:      NewIngestClient(resolver, validator, all...),
		provider:    cfg.Provider,
		clientID:    s.clientID,
		recordLimit: cfg.RecordLimit,
		logger:      s.logger,
	}, nil
}

func tokenProviderFor(cfg Config, resolver *Resolver, opts []Option) (TokenProvider, error) {
	switch {
	case cfg.Auth.Token != "":
		return NewStaticTokenProvider(cfg.Auth.Token, cfg.Auth.Scheme), nil
	case cfg.Auth.Username != "":
		if cfg.Auth.Scheme == SchemeBearer {
			return nil, fmt.Errorf("bearer auth needs a pre-issued token, not a username")
		}
		tokenURL, err := resolver.URL(ServiceToken, "")
		if err != nil {
			return nil, err
		}
		return NewLegacyTokenProvider(tokenURL, Credentials{
			Username: cfg.Auth.Username,
			Password: cfg.Auth.Password,
			Provider: cfg.Provider,
		}, opts...), nil
	default:
		return nil, nil
	}
}

// Provider returns the configured provider.
func (c *Client) Provider() string {
	return c.provider
}

// Headers returns the headers every request carries: Client-Id and, when a
// token provider is configured, the auth header.
func (c *Client) Headers(ctx context.Context) (http.Header, error) {
	if c.Tokens == nil {
		return AuthHeaders(Token{}, c.clientID), nil
	}
	tok, err := c.Tokens.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("getting auth token: %w", err)
	}
	return AuthHeaders(tok, c.clientID), nil
}

// Queue starts a lazy search. The record limit defaults to the configured
// one when the query leaves it zero.
func (c *Client) Queue(ctx context.Context, query SearchQuery) (*SearchConceptQueue, error) {
	headers, err := c.Headers(ctx)
	if err != nil {
		return nil, err
	}
	if query.RecordLimit == 0 {
		query.RecordLimit = c.recordLimit
	}
	return NewSearchConceptQueue(c.Search, query,
		WithQueueHeaders(headers),
		WithQueueLogger(c.logger),
	), nil
}

// SearchConcepts runs a search to completion and returns every item, up to
// the record limit.
func (c *Client) SearchConcepts(
	ctx context.Context,
	conceptType ConceptType,
	params Params,
	format Format,
) ([]Item, error) {
	q, err := c.Queue(ctx, SearchQuery{ConceptType: conceptType, Params: params, Format: format})
	if err != nil {
		return nil, err
	}

	items := []Item{}
	for item, err := range q.All(ctx) {
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

// SearchCollections searches collections in the JSON feed format.
func (c *Client) SearchCollections(ctx context.Context, params Params) ([]Item, error) {
	return c.SearchConcepts(ctx, Collection, params, FormatEcho10)
}

// SearchGranules searches granules in the JSON feed format.
func (c *Client) SearchGranules(ctx context.Context, params Params) ([]Item, error) {
	return c.SearchConcepts(ctx, Granule, params, FormatEcho10)
}

// GetConcept fetches one concept's metadata document by concept id.
func (c *Client) GetConcept(ctx context.Context, conceptID string, format Format) ([]byte, error) {
	headers, err := c.Headers(ctx)
	if err != nil {
		return nil, err
	}
	return c.Search.GetConcept(ctx, conceptID, format, headers)
}

// ValidateConcept validates a concept against the configured provider.
func (c *Client) ValidateConcept(ctx context.Context, concept Concept) error {
	identifier, err := concept.Identifier()
	if err != nil {
		return err
	}
	headers, err := c.Headers(ctx)
	if err != nil {
		return err
	}
	return c.Validator.Validate(ctx, concept, identifier, c.provider, headers)
}

// IngestConcept validates then writes a concept to the configured provider.
func (c *Client) IngestConcept(ctx context.Context, concept Concept, opts ...IngestOption) (*IngestResult, error) {
	headers, err := c.Headers(ctx)
	if err != nil {
		return nil, err
	}
	return c.Writer.Ingest(ctx, concept, c.provider, headers, opts...)
}

// DeleteConcept deletes a concept from the configured provider.
func (c *Client) DeleteConcept(ctx context.Context, conceptType ConceptType, identifier string) (*DeleteResult, error) {
	headers, err := c.Headers(ctx)
	if err != nil {
		return nil, err
	}
	return c.Writer.Delete(ctx, conceptType, identifier, c.provider, headers)
}
