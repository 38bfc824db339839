package main

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dukex/lineforge/pkg/metrics"
	"github.com/dukex/lineforge/pkg/models"
	"github.com/dukex/lineforge/pkg/persistence/memory"
	"github.com/dukex/lineforge/pkg/validation"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestApp() *fiber.App {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return NewAPI(logger, memory.NewPersistence(), nil, nil, validation.Options{}).App()
}

func get(t *testing.T, app *fiber.App, path string) (int, string) {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, path, nil)
	resp, err := app.Test(req)
	require.NoError(t, err)

	defer func() {
		err := resp.Body.Close()
		if err != nil {
			t.Logf("Failed to close response body: %v", err)
		}
	}()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp.StatusCode, string(body)
}

func TestAPI_RootEndpoint(t *testing.T) {
	status, body := get(t, setupTestApp(), "/")

	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "lineforge API", body)
}

func TestAPI_HealthCheck(t *testing.T) {
	status, body := get(t, setupTestApp(), "/livez")

	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "OK", body)
}

func TestAPI_SemanticHealthWithoutReasoningService(t *testing.T) {
	status, body := get(t, setupTestApp(), "/health/semantic")

	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Contains(t, body, `"configured":false`)
}

func TestAPI_ValidateIsDegradedWithoutReasoningService(t *testing.T) {
	app := setupTestApp()

	build, err := json.Marshal(map[string]any{
		"itemId":    "item-fries",
		"workUnits": []map[string]any{{"id": "fry", "tags": map[string]any{"action": "HEAT", "equipment": "fryer"}}},
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/builds", bytes.NewReader(build))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created models.LineBuild
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	_ = resp.Body.Close()

	rules := `{"rules": [{"id": "s", "name": "Sensible", "type": "semantic", "appliesTo": "all", "prompt": "Is this sensible?"}]}`

	req = httptest.NewRequest(http.MethodPost, "/builds/"+created.ID+"/validate", bytes.NewBufferString(rules))
	req.Header.Set("Content-Type", "application/json")
	resp, err = app.Test(req)
	require.NoError(t, err)

	defer func() { _ = resp.Body.Close() }()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var report validation.Report
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&report))
	assert.True(t, report.Degraded)
	assert.Equal(t, 1, report.SkippedSemantic)
	assert.False(t, report.Promotable)
}

func TestAPI_Metrics(t *testing.T) {
	app := setupTestApp()
	metrics.IncGraphRejection("cycle")

	status, body := get(t, app, "/metrics")

	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "lineforge_graph_rejections_total")
}
