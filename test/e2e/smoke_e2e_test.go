//go:build e2e
// +build e2e

package e2e_test

import (
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestE2E_OpsEndpoints smoke-checks the operational surface: readiness
// detail and the Prometheus exposition.
func TestE2E_OpsEndpoints(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e in short mode")
	}
	client := newClient()
	requireAppUp(t, client)

	t.Run("Readyz", func(t *testing.T) {
		status, out := doJSON(t, client, http.MethodGet, baseURL+"/readyz", nil)
		// 503 with named failing checks is still a well-formed answer
		require.Contains(t, []int{http.StatusOK, http.StatusServiceUnavailable}, status)
		checks, ok := out["checks"].([]any)
		require.True(t, ok, "readyz should list its checks: %#v", out)
		names := map[string]bool{}
		for _, c := range checks {
			entry, ok := c.(map[string]any)
			require.True(t, ok)
			name, _ := entry["name"].(string)
			names[name] = true
		}
		for _, want := range []string{"db", "redis", "qdrant", "kafka"} {
			assert.True(t, names[want], "missing %s check: %#v", want, names)
		}
	})

	t.Run("Metrics", func(t *testing.T) {
		resp, err := client.Get(baseURL + "/metrics")
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Contains(t, string(body), "interview_sessions_started_total")
		assert.Contains(t, string(body), "http_requests_total")
	})
}
