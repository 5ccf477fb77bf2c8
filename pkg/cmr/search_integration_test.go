//go:build integration

package cmr_test

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/donaldgifford/cmr-client/pkg/cmr"
)

// TestSearch_Integration searches the public UAT deployment. Collections
// search needs no credentials.
// Run with: go test -tags=integration -run TestSearch_Integration ./pkg/cmr/...
//
// Optional environment variables:
//   - CMR_ENVIRONMENT: OPS, SIT or UAT (default UAT)
func TestSearch_Integration(t *testing.T) {
	if os.Getenv("CMR_INTEGRATION") == "" {
		t.Skip("CMR_INTEGRATION must be set for integration tests")
	}

	env, err := cmr.ParseEnvironment(os.Getenv("CMR_ENVIRONMENT"))
	require.NoError(t, err)

	client, err := cmr.New(cmr.Config{
		Environment: env,
		ClientID:    "cmr-client-integration",
		PageSize:    2,
		RecordLimit: 3,
	})
	require.NoError(t, err)

	items, err := client.SearchCollections(context.Background(), cmr.NewParams("has_granules", "true"))
	require.NoError(t, err)
	assert.Len(t, items, 3)

	for _, item := range items {
		assert.NotEmpty(t, gjson.GetBytes(item, "id").String())
	}
}
