package querylayer

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"intakedash/internal/models"
	"intakedash/internal/services/breaker"
)

func TestParams(t *testing.T) {
	f := models.FilterState{
		StartDate:  time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:    time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC),
		AIOnly:     true,
		SupplierID: "S1",
	}

	q := Params(f)

	tests := []struct {
		key  string
		want string
	}{
		{"start_date", "2026-01-01"},
		{"end_date", "2026-01-31"},
		{"ai_intake_only", "true"},
		{"supplier_id", "S1"},
		{"supplier_organization_id", ""},
	}
	for _, tt := range tests {
		if got := q.Get(tt.key); got != tt.want {
			t.Errorf("Params[%s] = %q, want %q", tt.key, got, tt.want)
		}
	}
	if _, ok := q["supplier_organization_id"]; ok {
		t.Error("empty organization should not be sent")
	}
}

func TestGet(t *testing.T) {
	var gotRequestID, gotPeriod string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case PathVolume:
			gotRequestID = r.Header.Get("X-Request-ID")
			gotPeriod = r.URL.Query().Get("period")
			json.NewEncoder(w).Encode(models.VolumeResponse{
				Data:  []models.VolumeRow{{Date: "2026-01-01", Count: 3, SupplierID: "A"}},
				Total: 3,
			})
		case PathHealth:
			w.Write([]byte(`{"status":"ok"}`))
		case PathPages:
			w.WriteHeader(http.StatusInternalServerError)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := New(srv.URL, breaker.New(breaker.DefaultSettings("query-layer"), nil), nil)
	ctx := context.Background()

	q := Params(models.DefaultFilterState(time.Now()))
	q.Set("period", "week")
	var vol models.VolumeResponse
	if err := c.Get(ctx, PathVolume, q, &vol); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(vol.Data) != 1 || vol.Data[0].SupplierID != "A" {
		t.Errorf("decoded = %+v", vol)
	}
	if gotRequestID == "" {
		t.Error("X-Request-ID header not sent")
	}
	if gotPeriod != "week" {
		t.Errorf("period = %q, want week", gotPeriod)
	}

	if err := c.Health(ctx); err != nil {
		t.Errorf("Health: %v", err)
	}

	var pages models.PagesResponse
	if err := c.Get(ctx, PathPages, nil, &pages); !errors.Is(err, ErrUpstream) {
		t.Errorf("Get(500) = %v, want ErrUpstream", err)
	}
	if err := c.Get(ctx, "/api/unknown", nil, &pages); !errors.Is(err, ErrUpstream) {
		t.Errorf("Get(404) = %v, want ErrUpstream", err)
	}
}
