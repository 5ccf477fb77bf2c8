package cmr_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/donaldgifford/cmr-client/pkg/cmr"
)

const echo10Granule = `<?xml version="1.0" encoding="UTF-8"?>
<Granule>
  <GranuleUR>SC:MOD09GA.061:2345</GranuleUR>
  <InsertTime>2024-01-01T00:00:00Z</InsertTime>
  <Collection><ShortName>MOD09GA</ShortName><VersionId>061</VersionId></Collection>
</Granule>`

const echo10Collection = `<Collection>
  <ShortName>MOD09GA</ShortName>
  <VersionId>061</VersionId>
  <DataSetId>MODIS/Terra Surface Reflectance Daily L2G Global 1km and 500m SIN Grid V061</DataSetId>
</Collection>`

const ummGranule = `{
  "GranuleUR": "G-UMM-1",
  "CollectionReference": {"ShortName": "MOD09GA", "Version": "061"},
  "MetadataSpecification": {"URL": "https://cdn.earthdata.nasa.gov/umm/granule/v1.5", "Name": "UMM-G", "Version": "1.5"}
}`

const ummGranuleNoVersion = `{"GranuleUR": "G-UMM-2"}`

func newValidator(t *testing.T, srv *httptest.Server) *cmr.Validator {
	t.Helper()

	resolver, err := cmr.NewResolver(cmr.EnvUAT, srv.URL)
	require.NoError(t, err)
	return cmr.NewValidator(resolver, cmr.WithHTTPClient(srv.Client()))
}

func TestValidator_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		concept      cmr.Concept
		identifier   string
		status       int
		body         string
		wantPath     string
		wantCT       string
		wantAccept   string
		wantErr      error
		wantMessages []string
	}{
		{
			name:       "valid echo10 granule",
			concept:    cmr.Concept{Type: cmr.Granule, Format: cmr.FormatEcho10, Metadata: []byte(echo10Granule)},
			identifier: "SC:MOD09GA.061:2345",
			status:     http.StatusOK,
			wantPath:   "/ingest/providers/PROV/validate/granule/SC:MOD09GA.061:2345",
			wantCT:     "application/echo10+xml",
			wantAccept: "application/xml",
		},
		{
			name:       "valid umm granule",
			concept:    cmr.Concept{Type: cmr.Granule, Format: cmr.FormatUMMJSON, Metadata: []byte(ummGranule)},
			identifier: "G-UMM-1",
			status:     http.StatusOK,
			wantPath:   "/ingest/providers/PROV/validate/granule/G-UMM-1",
			wantCT:     "application/vnd.nasa.cmr.umm+json;version=1.5",
			wantAccept: "application/json",
		},
		{
			name:       "echo10 validation errors",
			concept:    cmr.Concept{Type: cmr.Collection, Format: cmr.FormatEcho10, Metadata: []byte(echo10Collection)},
			identifier: "ds-1",
			status:     http.StatusBadRequest,
			body: `<?xml version="1.0" encoding="UTF-8"?><errors>` +
				`<error>Line 3 - cvc-complex-type.2.4.a: Invalid content was found</error>` +
				`<error>Spatial validation error</error></errors>`,
			wantPath:   "/ingest/providers/PROV/validate/collection/ds-1",
			wantCT:     "application/echo10+xml",
			wantAccept: "application/xml",
			wantErr:    cmr.ErrValidation,
			wantMessages: []string{
				"Line 3 - cvc-complex-type.2.4.a: Invalid content was found",
				"Spatial validation error",
			},
		},
		{
			name:       "structured umm validation errors",
			concept:    cmr.Concept{Type: cmr.Granule, Format: cmr.FormatUMMJSON, Metadata: []byte(ummGranuleNoVersion)},
			identifier: "G-UMM-2",
			status:     http.StatusUnprocessableEntity,
			body:       `{"errors":[{"path":["Platforms",0,"ShortName"],"errors":["Platform short name [x] was not found"]}]}`,
			wantPath:   "/ingest/providers/PROV/validate/granule/G-UMM-2",
			wantCT:     "application/vnd.nasa.cmr.umm+json;version=1.4",
			wantAccept: "application/json",
			wantErr:    cmr.ErrValidation,
			wantMessages: []string{
				"Platforms/0/ShortName: Platform short name [x] was not found",
			},
		},
		{
			name:       "server error is transient",
			concept:    cmr.Concept{Type: cmr.Granule, Format: cmr.FormatEcho10, Metadata: []byte(echo10Granule)},
			identifier: "g",
			status:     http.StatusServiceUnavailable,
			body:       `upstream timeout`,
			wantPath:   "/ingest/providers/PROV/validate/granule/g",
			wantCT:     "application/echo10+xml",
			wantAccept: "application/xml",
			wantErr:    cmr.ErrTransient,
		},
		{
			name:       "undecodable rejection is malformed",
			concept:    cmr.Concept{Type: cmr.Granule, Format: cmr.FormatUMMJSON, Metadata: []byte(ummGranule)},
			identifier: "G-UMM-1",
			status:     http.StatusBadRequest,
			body:       `<html>nope</html>`,
			wantPath:   "/ingest/providers/PROV/validate/granule/G-UMM-1",
			wantCT:     "application/vnd.nasa.cmr.umm+json;version=1.5",
			wantAccept: "application/json",
			wantErr:    cmr.ErrMalformedResponse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, tt.wantPath, r.URL.Path)
				assert.Equal(t, tt.wantCT, r.Header.Get("Content-Type"))
				assert.Equal(t, tt.wantAccept, r.Header.Get("Accept"))
				assert.Equal(t, "tok", r.Header.Get("Echo-Token"))

				body, err := io.ReadAll(r.Body)
				assert.NoError(t, err)
				assert.Equal(t, string(tt.concept.Metadata), string(body))

				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			err := newValidator(t, srv).Validate(
				context.Background(),
				tt.concept,
				tt.identifier,
				"PROV",
				http.Header{"Echo-Token": {"tok"}},
			)

			if tt.wantErr == nil {
				require.NoError(t, err)
				return
			}

			require.ErrorIs(t, err, tt.wantErr)
			if tt.wantMessages != nil {
				var verr *cmr.ValidationError
				require.True(t, errors.As(err, &verr))
				assert.Equal(t, tt.wantMessages, verr.AllMessages())
				assert.Equal(t, tt.status, verr.StatusCode)
				assert.Equal(t, tt.identifier, verr.Identifier)
				for _, msg := range tt.wantMessages {
					assert.Contains(t, err.Error(), msg)
				}
			}
		})
	}
}

func TestValidator_Validate_BeforeRequest(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	v := newValidator(t, srv)

	t.Run("missing provider", func(t *testing.T) {
		err := v.Validate(context.Background(), cmr.Concept{
			Type: cmr.Granule, Format: cmr.FormatEcho10, Metadata: []byte(echo10Granule),
		}, "g", "", nil)
		require.ErrorIs(t, err, cmr.ErrMissingProvider)
	})

	t.Run("invalid umm version", func(t *testing.T) {
		err := v.Validate(context.Background(), cmr.Concept{
			Type:     cmr.Granule,
			Format:   cmr.FormatUMMJSON,
			Metadata: []byte(`{"GranuleUR":"g","MetadataSpecification":{"Version":"one point five"}}`),
		}, "g", "PROV", nil)
		require.ErrorIs(t, err, cmr.ErrInvalidConcept)
	})

	assert.Zero(t, calls.Load())
}
