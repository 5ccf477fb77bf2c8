package cmr_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/donaldgifford/cmr-client/pkg/cmr"
)

func TestAuthHeaders(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		token    cmr.Token
		clientID string
		want     http.Header
	}{
		{
			name:     "legacy token",
			token:    cmr.Token{Value: "abc", Scheme: cmr.SchemeLegacy},
			clientID: "my-app",
			want:     http.Header{"Client-Id": {"my-app"}, "Echo-Token": {"abc"}},
		},
		{
			name:     "bearer token",
			token:    cmr.Token{Value: "abc", Scheme: cmr.SchemeBearer},
			clientID: "my-app",
			want:     http.Header{"Client-Id": {"my-app"}, "Authorization": {"Bearer abc"}},
		},
		{
			name:     "unset scheme is legacy",
			token:    cmr.Token{Value: "abc"},
			clientID: "my-app",
			want:     http.Header{"Client-Id": {"my-app"}, "Echo-Token": {"abc"}},
		},
		{
			name:     "no token",
			clientID: "my-app",
			want:     http.Header{"Client-Id": {"my-app"}},
		},
		{
			name: "nothing",
			want: http.Header{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, cmr.AuthHeaders(tt.token, tt.clientID))
		})
	}
}

func TestParseAuthScheme(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    cmr.AuthScheme
		wantErr bool
	}{
		{in: "", want: cmr.SchemeLegacy},
		{in: "legacy", want: cmr.SchemeLegacy},
		{in: "Earthdata", want: cmr.SchemeLegacy},
		{in: "echo", want: cmr.SchemeLegacy},
		{in: "bearer", want: cmr.SchemeBearer},
		{in: "OAuth", want: cmr.SchemeBearer},
		{in: "launchpad", want: cmr.SchemeBearer},
		{in: "kerberos", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()

			got, err := cmr.ParseAuthScheme(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStaticTokenProvider_Token(t *testing.T) {
	t.Parallel()

	tok, err := cmr.NewStaticTokenProvider("launchpad-token", cmr.SchemeBearer).Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, cmr.Token{Value: "launchpad-token", Scheme: cmr.SchemeBearer}, tok)

	tok, err = cmr.NewStaticTokenProvider("echo-token", "").Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, cmr.SchemeLegacy, tok.Scheme)

	_, err = cmr.NewStaticTokenProvider("", cmr.SchemeLegacy).Token(context.Background())
	require.Error(t, err)
}

func TestLegacyTokenProvider_Token(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		status     int
		body       string
		wantToken  string
		wantErr    error
		errContain string
	}{
		{
			name:      "successful token fetch",
			status:    http.StatusCreated,
			body:      `{"token":{"id":"ABC-123-DEF","username":"jdoe","client_id":"my-app"}}`,
			wantToken: "ABC-123-DEF",
		},
		{
			name:       "bad credentials",
			status:     http.StatusUnauthorized,
			body:       `{"errors":["Invalid username or password, please retry."]}`,
			wantErr:    cmr.ErrRejected,
			errContain: "Invalid username or password",
		},
		{
			name:       "server error",
			status:     http.StatusInternalServerError,
			body:       `{"errors":["boom"]}`,
			wantErr:    cmr.ErrTransient,
			errContain: "boom",
		},
		{
			name:       "no token id",
			status:     http.StatusOK,
			body:       `{"token":{}}`,
			wantErr:    cmr.ErrMalformedResponse,
			errContain: "no token.id",
		},
		{
			name:       "not json",
			status:     http.StatusOK,
			body:       `<token/>`,
			wantErr:    cmr.ErrMalformedResponse,
			errContain: "not valid JSON",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, "/legacy-services/rest/tokens", r.URL.Path)
				assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

				body, err := io.ReadAll(r.Body)
				assert.NoError(t, err)
				assert.Equal(t, "jdoe", gjson.GetBytes(body, "token.username").String())
				assert.Equal(t, "secret", gjson.GetBytes(body, "token.password").String())
				assert.Equal(t, "my-app", gjson.GetBytes(body, "token.client_id").String())
				assert.Equal(t, "127.0.0.1", gjson.GetBytes(body, "token.user_ip_address").String())
				assert.Equal(t, "PROV", gjson.GetBytes(body, "token.provider").String())

				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			resolver, err := cmr.NewResolver(cmr.EnvUAT, srv.URL)
			require.NoError(t, err)
			tokenURL, err := resolver.URL(cmr.ServiceToken, "")
			require.NoError(t, err)

			p := cmr.NewLegacyTokenProvider(tokenURL, cmr.Credentials{
				Username: "jdoe",
				Password: "secret",
				Provider: "PROV",
			}, cmr.WithHTTPClient(srv.Client()), cmr.WithClientID("my-app"))

			tok, err := p.Token(context.Background())
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Contains(t, err.Error(), tt.errContain)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantToken, tok.Value)
			assert.Equal(t, cmr.SchemeLegacy, tok.Scheme)
		})
	}
}

func TestLegacyTokenProvider_Caching(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{"token":{"id":"cached-token"}}`))
	}))
	defer srv.Close()

	p := cmr.NewLegacyTokenProvider(srv.URL+"/legacy-services/rest/tokens", cmr.Credentials{
		Username: "jdoe",
		Password: "secret",
	}, cmr.WithHTTPClient(srv.Client()))

	for range 3 {
		tok, err := p.Token(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "cached-token", tok.Value)
	}
	assert.Equal(t, int32(1), calls.Load())

	p.Invalidate()
	_, err := p.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestLegacyTokenProvider_ErrorNotCached(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"token":{"id":"second-try"}}`))
	}))
	defer srv.Close()

	p := cmr.NewLegacyTokenProvider(srv.URL, cmr.Credentials{Username: "jdoe"}, cmr.WithHTTPClient(srv.Client()))

	_, err := p.Token(context.Background())
	require.ErrorIs(t, err, cmr.ErrTransient)

	tok, err := p.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "second-try", tok.Value)
}
