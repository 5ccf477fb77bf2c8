package cmr_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/donaldgifford/cmr-client/pkg/cmr"
	"github.com/donaldgifford/cmr-client/pkg/cmr/mocks"
)

// searchServer serves hits granules through the JSON feed, honoring
// page_num and page_size, and counts the search requests it receives.
func searchServer(t *testing.T, hits int, searches *atomic.Int32) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/legacy-services/rest/tokens":
			_, _ = w.Write([]byte(`{"token":{"id":"issued-token"}}`))
		case strings.HasPrefix(r.URL.Path, "/search/"):
			searches.Add(1)
			pageNum, _ := strconv.Atoi(r.URL.Query().Get("page_num"))
			pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))

			entries := []string{}
			for i := (pageNum - 1) * pageSize; i < min(pageNum*pageSize, hits); i++ {
				entries = append(entries, fmt.Sprintf(`{"id":"G%d-PROV"}`, i+1))
			}
			w.Header().Set("CMR-Hits", strconv.Itoa(hits))
			_, _ = w.Write([]byte(`{"feed":{"entry":[` + strings.Join(entries, ",") + `]}}`))
		default:
			http.NotFound(w, r)
		}
	}))
}

func newTestClient(t *testing.T, srv *httptest.Server, cfg cmr.Config, opts ...cmr.Option) *cmr.Client {
	t.Helper()

	cfg.Host = srv.URL
	client, err := cmr.New(cfg, append([]cmr.Option{cmr.WithHTTPClient(srv.Client())}, opts...)...)
	require.NoError(t, err)
	return client
}

func TestClient_SearchConcepts(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		hits         int
		pageSize     int
		recordLimit  int
		wantItems    int
		wantSearches int32
	}{
		{
			name:         "pages through every hit",
			hits:         6,
			pageSize:     2,
			wantItems:    6,
			wantSearches: 3,
		},
		{
			name:         "record limit caps the search",
			hits:         6,
			pageSize:     2,
			recordLimit:  2,
			wantItems:    2,
			wantSearches: 1,
		},
		{
			name:         "no hits",
			hits:         0,
			pageSize:     10,
			recordLimit:  100,
			wantItems:    0,
			wantSearches: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var searches atomic.Int32
			srv := searchServer(t, tt.hits, &searches)
			defer srv.Close()

			client := newTestClient(t, srv, cmr.Config{
				Provider:    "PROV",
				PageSize:    tt.pageSize,
				RecordLimit: tt.recordLimit,
			})

			items, err := client.SearchGranules(context.Background(), cmr.NewParams("short_name", "MOD09GA"))
			require.NoError(t, err)
			assert.Len(t, items, tt.wantItems)
			assert.NotNil(t, items)
			assert.Equal(t, tt.wantSearches, searches.Load())
		})
	}
}

func TestClient_Queue(t *testing.T) {
	t.Parallel()

	var searches atomic.Int32
	srv := searchServer(t, 6, &searches)
	defer srv.Close()

	client := newTestClient(t, srv, cmr.Config{PageSize: 2, RecordLimit: 5})

	q, err := client.Queue(context.Background(), cmr.SearchQuery{
		ConceptType: cmr.Collection,
		Format:      cmr.FormatEcho10,
	})
	require.NoError(t, err)

	first, ok, err := q.Peek(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	again, ok, err := q.Peek(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, first, again)
	assert.Equal(t, int32(1), searches.Load())

	count := 0
	for _, err := range q.All(context.Background()) {
		require.NoError(t, err)
		count++
	}
	assert.Equal(t, 5, count)
	assert.Equal(t, int32(3), searches.Load())
}

func TestClient_Headers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  cmr.Config
		want http.Header
	}{
		{
			name: "anonymous",
			cfg:  cmr.Config{ClientID: "my-app"},
			want: http.Header{"Client-Id": {"my-app"}},
		},
		{
			name: "default client id",
			cfg:  cmr.Config{},
			want: http.Header{"Client-Id": {"cmr-client"}},
		},
		{
			name: "static legacy token",
			cfg:  cmr.Config{ClientID: "my-app", Auth: cmr.AuthConfig{Token: "echo-tok"}},
			want: http.Header{"Client-Id": {"my-app"}, "Echo-Token": {"echo-tok"}},
		},
		{
			name: "static bearer token",
			cfg: cmr.Config{
				ClientID: "my-app",
				Auth:     cmr.AuthConfig{Token: "lp-tok", Scheme: cmr.SchemeBearer},
			},
			want: http.Header{"Client-Id": {"my-app"}, "Authorization": {"Bearer lp-tok"}},
		},
		{
			name: "token from credentials",
			cfg: cmr.Config{
				ClientID: "my-app",
				Provider: "PROV",
				Auth:     cmr.AuthConfig{Username: "jdoe", Password: "secret"},
			},
			want: http.Header{"Client-Id": {"my-app"}, "Echo-Token": {"issued-token"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var searches atomic.Int32
			srv := searchServer(t, 0, &searches)
			defer srv.Close()

			got, err := newTestClient(t, srv, tt.cfg).Headers(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClient_TokenProviderOption(t *testing.T) {
	t.Parallel()

	var searches atomic.Int32
	srv := searchServer(t, 0, &searches)
	defer srv.Close()

	tokens := mocks.NewMockTokenProvider(t)
	tokens.EXPECT().
		Token(mock.Anything).
		Return(cmr.Token{}, errors.New("launchpad unavailable")).
		Once()

	client := newTestClient(t, srv, cmr.Config{Auth: cmr.AuthConfig{Token: "ignored"}}, cmr.WithTokenProvider(tokens))

	_, err := client.SearchCollections(context.Background(), cmr.Params{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "getting auth token")
	assert.Contains(t, err.Error(), "launchpad unavailable")
	assert.Zero(t, searches.Load())
}

func TestClient_IngestAndDelete(t *testing.T) {
	t.Parallel()

	var searches atomic.Int32
	srv := searchServer(t, 0, &searches)
	defer srv.Close()

	client := newTestClient(t, srv, cmr.Config{
		Provider: "PROV",
		Auth:     cmr.AuthConfig{Token: "tok"},
	})
	assert.Equal(t, "PROV", client.Provider())

	concept := cmr.Concept{Type: cmr.Granule, Format: cmr.FormatEcho10, Metadata: []byte(echo10Granule)}

	writer := mocks.NewMockConceptWriter(t)
	writer.EXPECT().
		Ingest(mock.Anything, concept, "PROV", mock.MatchedBy(func(h http.Header) bool {
			return h.Get("Echo-Token") == "tok"
		})).
		Return(&cmr.IngestResult{ConceptID: "G1-PROV", RevisionID: "1"}, nil).
		Once()
	writer.EXPECT().
		Delete(mock.Anything, cmr.Granule, "g1", "PROV", mock.Anything).
		Return(&cmr.DeleteResult{Outcome: cmr.AlreadyDeleted}, nil).
		Once()
	client.Writer = writer

	result, err := client.IngestConcept(context.Background(), concept)
	require.NoError(t, err)
	assert.Equal(t, "G1-PROV", result.ConceptID)

	deleted, err := client.DeleteConcept(context.Background(), cmr.Granule, "g1")
	require.NoError(t, err)
	assert.Equal(t, cmr.AlreadyDeleted, deleted.Outcome)
}

func TestClient_ValidateConcept(t *testing.T) {
	t.Parallel()

	var searches atomic.Int32
	srv := searchServer(t, 0, &searches)
	defer srv.Close()

	client := newTestClient(t, srv, cmr.Config{Provider: "PROV"})

	validator := mocks.NewMockConceptValidator(t)
	validator.EXPECT().
		Validate(mock.Anything, mock.Anything, "G-UMM-1", "PROV", mock.Anything).
		Return(nil).
		Once()
	client.Validator = validator

	err := client.ValidateConcept(context.Background(), cmr.Concept{
		Type:     cmr.Granule,
		Format:   cmr.FormatUMMJSON,
		Metadata: []byte(ummGranule),
	})
	require.NoError(t, err)

	err = client.ValidateConcept(context.Background(), cmr.Concept{
		Type:     cmr.Granule,
		Format:   cmr.FormatUMMJSON,
		Metadata: []byte(`{}`),
	})
	require.ErrorIs(t, err, cmr.ErrInvalidConcept)
}

func TestNew_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  cmr.Config
	}{
		{
			name: "invalid host",
			cfg:  cmr.Config{Host: "https://"},
		},
		{
			name: "bearer with username",
			cfg:  cmr.Config{Auth: cmr.AuthConfig{Scheme: cmr.SchemeBearer, Username: "jdoe"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := cmr.New(tt.cfg)
			require.Error(t, err)
		})
	}
}

func TestNew_RateLimited(t *testing.T) {
	t.Parallel()

	var searches atomic.Int32
	srv := searchServer(t, 4, &searches)
	defer srv.Close()

	limiter := cmr.NewRateLimiter(1000, 10)
	client := newTestClient(t, srv, cmr.Config{PageSize: 2}, cmr.WithRateLimiter(limiter))

	items, err := client.SearchGranules(context.Background(), cmr.Params{})
	require.NoError(t, err)
	assert.Len(t, items, 4)
	assert.Equal(t, int64(2), limiter.Calls())
}
