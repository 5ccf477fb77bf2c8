package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/donaldgifford/cmr-client/internal/cmrtest"
	"github.com/donaldgifford/cmr-client/internal/config"
	"github.com/donaldgifford/cmr-client/pkg/cmr"
)

const testProvider = "PROV"

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	err := Run(context.Background(), args, &stdout, &stderr)
	return stdout.String(), err
}

func granuleXML(ur string) string {
	return fmt.Sprintf(`<Granule><GranuleUR>%s</GranuleUR><Collection><ShortName>MOD09GA</ShortName></Collection></Granule>`, ur)
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func seedGranules(t *testing.T, srv *cmrtest.Server, n int) {
	t.Helper()

	for i := 1; i <= n; i++ {
		_, err := srv.Seed(testProvider, cmr.Concept{
			Type:     cmr.Granule,
			Format:   cmr.FormatEcho10,
			Metadata: []byte(granuleXML(fmt.Sprintf("G-%d", i))),
		})
		require.NoError(t, err)
	}
}

func TestSearch(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		args       []string
		wantErr    string
		wantSearch int
		check      func(t *testing.T, out string)
	}{
		{
			name:       "json output collects every page",
			args:       []string{"search", "granules", "--page-size", "2", "--output", "json"},
			wantSearch: 3,
			check: func(t *testing.T, out string) {
				t.Helper()
				var items []json.RawMessage
				require.NoError(t, json.Unmarshal([]byte(out), &items))
				require.Len(t, items, 5)
				assert.Equal(t, "G-1", gjson.GetBytes(items[0], "title").String())
			},
		},
		{
			name:       "limit caps results",
			args:       []string{"search", "granules", "--page-size", "2", "--limit", "3", "--output", "json"},
			wantSearch: 2,
			check: func(t *testing.T, out string) {
				t.Helper()
				assert.Len(t, gjson.Parse(out).Array(), 3)
			},
		},
		{
			name:       "table output",
			args:       []string{"search", "granules", "granule_ur=G-4"},
			wantSearch: 1,
			check: func(t *testing.T, out string) {
				t.Helper()
				assert.Contains(t, out, "CONCEPT ID")
				assert.Contains(t, out, "G-4")
				assert.Contains(t, out, testProvider)
				assert.NotContains(t, out, "G-3")
			},
		},
		{
			name:       "umm table output",
			args:       []string{"search", "granules", "--format", "umm", "--limit", "1"},
			wantSearch: 1,
			check: func(t *testing.T, out string) {
				t.Helper()
				assert.Contains(t, out, "NATIVE ID")
				assert.Contains(t, out, "G-1")
			},
		},
		{
			name:    "unknown concept type",
			args:    []string{"search", "services"},
			wantErr: "unknown concept type",
		},
		{
			name:    "malformed parameter",
			args:    []string{"search", "granules", "short_name"},
			wantErr: "expected key=value",
		},
		{
			name:       "parameter rejected by CMR",
			args:       []string{"search", "granules", "colour=blue"},
			wantSearch: 1,
			wantErr:    "Parameter [colour] was not recognized.",
		},
		{
			name:    "unknown output format",
			args:    []string{"search", "granules", "--output", "yaml"},
			wantErr: `unknown output format "yaml"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			srv, baseURL := cmrtest.Start(t)
			seedGranules(t, srv, 5)

			args := append([]string{"--host", baseURL, "--provider", testProvider}, tt.args...)
			out, err := runCLI(t, args...)

			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			} else {
				require.NoError(t, err)
				tt.check(t, out)
			}
			assert.Equal(t, tt.wantSearch, srv.Calls(cmrtest.OpSearch))
		})
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	srv, baseURL := cmrtest.Start(t)
	srv.Reject("G-BAD", "Spatial validation error: polygon is not closed")

	good := writeFile(t, "good.xml", granuleXML("G-GOOD"))
	bad := writeFile(t, "bad.xml", granuleXML("G-BAD"))

	out, err := runCLI(t, "--host", baseURL, "--provider", testProvider, "validate", "granule", good)
	require.NoError(t, err)
	assert.Contains(t, out, "G-GOOD")
	assert.Contains(t, out, "valid")

	out, err = runCLI(t, "--host", baseURL, "--provider", testProvider, "--output", "json", "validate", "granule", bad)
	require.ErrorIs(t, err, cmr.ErrValidation)
	assert.Equal(t, "invalid", gjson.Get(out, "result").String())
	assert.Equal(t, "Spatial validation error: polygon is not closed", gjson.Get(out, "errors.0").String())

	assert.Equal(t, 0, srv.Calls(cmrtest.OpIngest))
}

func TestValidate_MissingProvider(t *testing.T) {
	t.Parallel()

	_, baseURL := cmrtest.Start(t)
	path := writeFile(t, "granule.xml", granuleXML("G-1"))

	_, err := runCLI(t, "--host", baseURL, "validate", "granule", path)
	require.ErrorIs(t, err, cmr.ErrMissingProvider)
}

func TestIngestMetadataDelete(t *testing.T) {
	t.Parallel()

	srv, baseURL := cmrtest.Start(t)
	base := []string{"--host", baseURL, "--provider", testProvider, "--output", "json"}
	metadata := `{"EntryTitle":"MOD09GA_061","MetadataSpecification":{"Version":"1.17.3"}}`
	path := writeFile(t, "collection.json", metadata)

	out, err := runCLI(t, append(base, "ingest", "collection", path)...)
	require.NoError(t, err)
	assert.Equal(t, "created", gjson.Get(out, "result").String())
	assert.Equal(t, "1", gjson.Get(out, "revision_id").String())
	conceptID := gjson.Get(out, "concept_id").String()
	require.NotEmpty(t, conceptID)

	out, err = runCLI(t, append(base, "ingest", "collection", path, "--revision-id", "7")...)
	require.NoError(t, err)
	assert.Equal(t, "updated", gjson.Get(out, "result").String())
	assert.Equal(t, "7", gjson.Get(out, "revision_id").String())

	stored, revision, ok := srv.Concept(testProvider, cmr.Collection, "MOD09GA_061")
	require.True(t, ok)
	assert.Equal(t, 7, revision)
	assert.JSONEq(t, metadata, string(stored))

	out, err = runCLI(t, "--host", baseURL, "metadata", conceptID, "--format", "umm")
	require.NoError(t, err)
	assert.JSONEq(t, metadata, out)

	out, err = runCLI(t, append(base, "delete", "collection", "MOD09GA_061")...)
	require.NoError(t, err)
	assert.Equal(t, "deleted", gjson.Get(out, "result").String())
	assert.Equal(t, conceptID, gjson.Get(out, "concept_id").String())

	out, err = runCLI(t, append(base, "delete", "collection", "MOD09GA_061")...)
	require.NoError(t, err)
	assert.Equal(t, "already_deleted", gjson.Get(out, "result").String())

	_, err = runCLI(t, "--host", baseURL, "metadata", conceptID, "--format", "umm")
	require.ErrorIs(t, err, cmr.ErrRejected)
}

func TestIngest_Rejected(t *testing.T) {
	t.Parallel()

	srv, baseURL := cmrtest.Start(t)
	srv.Reject("G-BAD", "Granule start date is after its end date")
	path := writeFile(t, "bad.xml", granuleXML("G-BAD"))

	out, err := runCLI(t, "--host", baseURL, "--provider", testProvider, "ingest", "granule", path)
	require.ErrorIs(t, err, cmr.ErrValidation)
	assert.Contains(t, out, "invalid")
	assert.Contains(t, out, "Granule start date is after its end date")

	_, _, ok := srv.Concept(testProvider, cmr.Granule, "G-BAD")
	assert.False(t, ok)
}

func TestToken(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		args    []string
		wantErr string
		check   func(t *testing.T, out string)
	}{
		{
			name: "pre-issued token",
			args: []string{"--token", "abc-123", "--output", "json", "token"},
			check: func(t *testing.T, out string) {
				t.Helper()
				assert.Equal(t, "abc-123", gjson.Get(out, "token").String())
				assert.Equal(t, "legacy", gjson.Get(out, "scheme").String())
			},
		},
		{
			name: "table output",
			args: []string{"--token", "abc-123", "token"},
			check: func(t *testing.T, out string) {
				t.Helper()
				assert.Contains(t, out, "Token:")
				assert.Contains(t, out, "abc-123")
			},
		},
		{
			name:    "no credentials",
			args:    []string{"token"},
			wantErr: "no credentials configured",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			out, err := runCLI(t, tt.args...)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			tt.check(t, out)
		})
	}
}

func TestConfigFile(t *testing.T) {
	srv, baseURL := cmrtest.Start(t, cmrtest.WithRequireToken(), cmrtest.WithUser("jdoe", "secret"))
	seedGranules(t, srv, 1)

	path := writeFile(t, "cmrctl.yaml", fmt.Sprintf(`
cmr:
  host: %s
  provider: OTHER
  auth:
    username: jdoe
    password: ${TEST_CMRCTL_PASSWORD}
`, baseURL))
	t.Setenv("TEST_CMRCTL_PASSWORD", "secret")
	t.Setenv("CMRCTL_CMR_PROVIDER", testProvider)

	out, err := runCLI(t, "--config", path, "--output", "json", "search", "granules")
	require.NoError(t, err)
	assert.Len(t, gjson.Parse(out).Array(), 1)

	out, err = runCLI(t, "--config", path, "--output", "json", "token")
	require.NoError(t, err)
	assert.NotEmpty(t, gjson.Get(out, "token").String())
	assert.Equal(t, 2, srv.Calls(cmrtest.OpToken))

	good := writeFile(t, "good.xml", granuleXML("G-NEW"))
	_, err = runCLI(t, "--config", path, "ingest", "granule", good)
	require.NoError(t, err)
	_, _, ok := srv.Concept(testProvider, cmr.Granule, "G-NEW")
	assert.True(t, ok)
}

func TestConfigFile_Invalid(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "cmrctl.yaml", "cmr:\n  page_size: 9000\n")

	_, err := runCLI(t, "--config", path, "search", "granules")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cmr.page_size must be at most 2000")
}

func TestVersion(t *testing.T) {
	t.Parallel()

	// Runs without config, so a broken config file does not matter.
	out, err := runCLI(t, "--config", "/nonexistent/cmrctl.yaml", "version")
	require.NoError(t, err)
	assert.Equal(t, "cmrctl "+Version+"\n", out)
}

func TestMetricsServer(t *testing.T) {
	t.Parallel()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	e, err := startMetricsServer(config.MetricsConfig{Enabled: true, Addr: "127.0.0.1:0", Path: "/metrics"}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Shutdown(context.Background()) })

	resp, err := http.Get("http://" + e.Listener.Addr().String() + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "cmr_token_fetches_total")
}

func TestMetricsServer_AddressInUse(t *testing.T) {
	t.Parallel()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	first, err := startMetricsServer(config.MetricsConfig{Addr: "127.0.0.1:0", Path: "/metrics"}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = first.Shutdown(context.Background()) })

	_, err = startMetricsServer(config.MetricsConfig{Addr: first.Listener.Addr().String(), Path: "/metrics"}, logger)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "listening on")
}
