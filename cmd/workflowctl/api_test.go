package main

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Farid-Nowrouzi/WorkflowOrchestrationSystem/pkg/metrics"
	"github.com/Farid-Nowrouzi/WorkflowOrchestrationSystem/pkg/models"
	"github.com/Farid-Nowrouzi/WorkflowOrchestrationSystem/pkg/persistence/file"
	"github.com/Farid-Nowrouzi/WorkflowOrchestrationSystem/pkg/registry"
	"github.com/Farid-Nowrouzi/WorkflowOrchestrationSystem/pkg/services"
	"github.com/gofiber/fiber/v3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestApp(t *testing.T) (*fiber.App, *services.Workspace) {
	t.Helper()

	reg := prometheus.NewRegistry()
	workspace := services.NewWorkspace(nil, slog.Default(),
		services.WithPersistence(file.NewPersistence(slog.Default(), t.TempDir())),
		services.WithMetrics(metrics.New(reg)),
	)

	kinds := registry.NewRegistry(slog.Default())
	kinds.RegisterDefaultKinds()

	return NewAPI(slog.Default(), workspace, kinds, reg).App(), workspace
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
	app, _ := setupTestApp(t)

	status, body := get(t, app, "/")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Workflow API", body)
}

func TestAPI_HealthCheck(t *testing.T) {
	app, _ := setupTestApp(t)

	status, body := get(t, app, "/livez")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "OK", body)

	status, _ = get(t, app, "/health")
	assert.Equal(t, http.StatusOK, status)
}

func TestAPI_Metrics(t *testing.T) {
	app, workspace := setupTestApp(t)
	ctx := t.Context()

	_, err := workspace.Create(ctx, models.KindStart, "s", "Start", "")
	require.NoError(t, err)
	_, err = workspace.Create(ctx, models.KindEnd, "e", "End", "")
	require.NoError(t, err)
	require.NoError(t, workspace.Connect(ctx, "s", "e", ""))

	_, err = workspace.Run(ctx, nil)
	require.NoError(t, err)

	status, body := get(t, app, "/metrics")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, `workflow_runs_total{outcome="completed"} 1`)
	assert.Contains(t, body, `workflow_history_commands_total{action="connect_nodes",direction="do"} 1`)
}

func TestAPI_RoutesWorkspace(t *testing.T) {
	app, _ := setupTestApp(t)

	status, body := get(t, app, "/node-kinds")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, `"kind":"CONDITION"`)

	status, _ = get(t, app, "/nodes")
	assert.Equal(t, http.StatusOK, status)
}
