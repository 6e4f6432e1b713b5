package main

import (
	"net/http"
	"testing"

	"intakedash/internal/config"
	"intakedash/internal/models"
	"intakedash/internal/services/querylayer"
	"intakedash/internal/testutil"
)

// setupStaticServer wires the static data source over a fixture snapshot
func setupStaticServer(t *testing.T) *testutil.TestServer {
	t.Helper()

	c := config.DefaultConfig()
	c.StaticMode = true
	c.KV.Backend = "memory"
	c.Snapshot.Dir = t.TempDir()
	testutil.WriteSnapshot(t, c.Snapshot.Dir, testutil.SampleMetadata(), testutil.SampleBundle(), true)

	if err := SetupDependencies(c); err != nil {
		t.Fatalf("Failed to setup dependencies: %v", err)
	}
	return testutil.NewTestServer(t, SetupRouter())
}

// setupLiveServer wires the live data source against a stub query layer
func setupLiveServer(t *testing.T, routes map[string]interface{}) *testutil.TestServer {
	t.Helper()

	stub := testutil.NewStubQueryLayer(t, routes)
	c := config.DefaultConfig()
	c.KV.Backend = "memory"
	c.Snapshot.Dir = t.TempDir()
	c.QueryLayer.URL = stub.URL
	c.Health.Schedule = ""

	if err := SetupDependencies(c); err != nil {
		t.Fatalf("Failed to setup dependencies: %v", err)
	}
	return testutil.NewTestServer(t, SetupRouter())
}

func TestHealthEndpoint(t *testing.T) {
	ts := setupStaticServer(t)

	resp := ts.GET("/health")
	testutil.AssertResponse(t, resp).
		StatusOK().
		ContentTypeJSON().
		ContainsAll(`"mode":"static"`, `"snapshot_loaded":false`, `"status":"degraded"`)

	ts.GET("/api/volume/faxes").Body.Close()

	resp = ts.GET("/health")
	testutil.AssertResponse(t, resp).
		StatusOK().
		ContainsAll(`"snapshot_loaded":true`, `"status":"ok"`)
}

func TestVersionEndpoint(t *testing.T) {
	ts := setupStaticServer(t)

	testutil.AssertResponse(t, ts.GET("/api/version")).
		StatusOK().
		ContentTypeJSON().
		ContainsAll(`"version":`, `"go_version":`)
}

func TestMetricsEndpoint(t *testing.T) {
	ts := setupStaticServer(t)
	ts.GET("/api/volume/faxes").Body.Close()

	testutil.AssertResponse(t, ts.GET("/metrics")).
		StatusOK().
		Contains("intakedash_facade_requests_total")
}

func TestStaticModeRoutes(t *testing.T) {
	ts := setupStaticServer(t)

	var vol models.VolumeResponse
	testutil.AssertResponse(t, ts.GET("/api/volume/faxes")).StatusOK().JSON(&vol)
	if vol.Total != 12 {
		t.Errorf("Total = %d, want 12 for the default organization", vol.Total)
	}

	testutil.AssertResponse(t, ts.POST("/api/snapshot/reload", "application/json", nil)).StatusOK()
}

func TestLiveModeRoutes(t *testing.T) {
	ts := setupLiveServer(t, map[string]interface{}{
		querylayer.PathVolume: models.VolumeResponse{
			Data: []models.VolumeRow{{Date: "2026-01-01", Count: 3}},
		},
	})

	var vol models.VolumeResponse
	testutil.AssertResponse(t, ts.GET("/api/volume/faxes")).StatusOK().JSON(&vol)
	if vol.Total != 3 {
		t.Errorf("Total = %d, want 3", vol.Total)
	}

	testutil.AssertResponse(t, ts.GET("/health")).StatusOK().Contains(`"mode":"live"`)
	testutil.AssertResponse(t, ts.POST("/api/snapshot/reload", "application/json", nil)).
		Status(http.StatusNotFound)
}

func TestUnknownRoute(t *testing.T) {
	ts := setupStaticServer(t)

	resp := ts.GET("/nonexistent")
	testutil.AssertResponse(t, resp).Status(http.StatusNotFound)
}
