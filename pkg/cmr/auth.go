package cmr

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/tidwall/gjson"

	"github.com/donaldgifford/cmr-client/internal/metrics"
)

// AuthScheme decides how a token is presented to CMR.
type AuthScheme string

// Auth schemes.
const (
	// SchemeLegacy sends the token in the Echo-Token header.
	SchemeLegacy AuthScheme = "legacy"
	// SchemeBearer sends "Authorization: Bearer <token>", as OAuth providers
	// such as Launchpad expect.
	SchemeBearer AuthScheme = "bearer"
)

// ParseAuthScheme is case-insensitive. The empty string selects SchemeLegacy.
func ParseAuthScheme(s string) (AuthScheme, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "legacy", "earthdata", "echo":
		return SchemeLegacy, nil
	case "bearer", "oauth", "launchpad":
		return SchemeBearer, nil
	default:
		return "", fmt.Errorf("unknown auth scheme %q (want legacy or bearer)", s)
	}
}

// Token is an opaque CMR credential and the scheme it was issued under.
// Expiry is not tracked.
type Token struct {
	Value  string
	Scheme AuthScheme
}

// AuthHeaders packages a token into request headers. An empty token yields
// only the Client-Id header.
func AuthHeaders(tok Token, clientID string) http.Header {
	h := http.Header{}
	if clientID != "" {
		h.Set(headerClientID, clientID)
	}
	if tok.Value == "" {
		return h
	}
	if tok.Scheme == SchemeBearer {
		h.Set("Authorization", "Bearer "+tok.Value)
	} else {
		h.Set("Echo-Token", tok.Value)
	}
	return h
}

// StaticTokenProvider hands out a caller-supplied token.
type StaticTokenProvider struct {
	token Token
}

// NewStaticTokenProvider wraps a pre-issued token.
func NewStaticTokenProvider(value string, scheme AuthScheme) *StaticTokenProvider {
	if scheme == "" {
		scheme = SchemeLegacy
	}
	return &StaticTokenProvider{token: Token{Value: value, Scheme: scheme}}
}

// Token implements TokenProvider.
func (p *StaticTokenProvider) Token(_ context.Context) (Token, error) {
	if p.token.Value == "" {
		return Token{}, fmt.Errorf("no token configured")
	}
	return p.token, nil
}

// Credentials identify a user to the legacy token endpoint.
type Credentials struct {
	Username string
	Password string
	Provider string
	UserIP   string
}

// LegacyTokenProvider exchanges credentials for a token at the CMR legacy
// token endpoint. The token is kept for the life of the provider, or until
// Invalidate is called. Thread-safe via mutex.
type LegacyTokenProvider struct {
	tokenURL string
	creds    Credentials
	clientID string
	req      *requester

	mu    sync.Mutex
	token string
}

// NewLegacyTokenProvider creates a provider posting to tokenURL, normally
// Resolver.URL(ServiceToken, "").
func NewLegacyTokenProvider(tokenURL string, creds Credentials, opts ...Option) *LegacyTokenProvider {
	s := newSettings(opts)
	if creds.UserIP == "" {
		creds.UserIP = "127.0.0.1"
	}
	return &LegacyTokenProvider{
		tokenURL: tokenURL,
		creds:    creds,
		clientID: s.clientID,
		req:      newRequester(s),
	}
}

type tokenRequest struct {
	Token tokenRequestBody `json:"token"`
}

type tokenRequestBody struct {
	Username      string `json:"username"`
	Password      string `json:"password"`
	ClientID      string `json:"client_id"`
	UserIPAddress string `json:"user_ip_address"`
	Provider      string `json:"provider"`
}

// Token implements TokenProvider, fetching a token on first use.
func (p *LegacyTokenProvider) Token(ctx context.Context) (Token, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.token != "" {
		return Token{Value: p.token, Scheme: SchemeLegacy}, nil
	}

	tok, err := p.fetchLocked(ctx)
	if err != nil {
		return Token{}, p.req.fail(err, "token", "", p.creds.Username)
	}
	p.token = tok
	return Token{Value: tok, Scheme: SchemeLegacy}, nil
}

// Invalidate drops the held token so the next call fetches a fresh one.
func (p *LegacyTokenProvider) Invalidate() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.token = ""
}

func (p *LegacyTokenProvider) fetchLocked(ctx context.Context) (string, error) {
	payload, err := json.Marshal(tokenRequest{Token: tokenRequestBody{
		Username:      p.creds.Username,
		Password:      p.creds.Password,
		ClientID:      p.clientID,
		UserIPAddress: p.creds.UserIP,
		Provider:      p.creds.Provider,
	}})
	if err != nil {
		return "", fmt.Errorf("encoding token request: %w", err)
	}

	c := call{
		op:     "token",
		method: http.MethodPost,
		url:    p.tokenURL,
		body:   payload,
		header: http.Header{
			"Content-Type": {"application/json"},
			"Accept":       {"application/json"},
		},
	}
	rep, err := p.req.do(ctx, c)
	if err != nil {
		return "", err
	}

	if rep.status < http.StatusOK || rep.status >= http.StatusMultipleChoices {
		return "", classify(c, rep, FormatUMMJSON)
	}

	if !gjson.ValidBytes(rep.body) {
		return "", malformed(c, rep.status, rep.body, fmt.Errorf("token response is not valid JSON"))
	}
	id := gjson.GetBytes(rep.body, "token.id").String()
	if id == "" {
		return "", malformed(c, rep.status, rep.body, fmt.Errorf("token response has no token.id"))
	}

	metrics.TokenFetchesTotal.Inc()
	return id, nil
}
