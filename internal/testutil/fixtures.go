package testutil

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"

	"intakedash/internal/models"
)

// Snapshot file names as written by the export tool
const (
	MetadataFile   = "metadata.json"
	BundleFile     = "dashboard-data.json"
	BundleGzipFile = "dashboard-data.json.gz"
)

func ptr(v float64) *float64 { return &v }

// SampleMetadata returns a roster listing org-b before org-a
func SampleMetadata() *models.SnapshotMetadata {
	return &models.SnapshotMetadata{
		Organizations: []models.Organization{
			{ID: "org-b", Name: "Beta Health", NumSuppliers: 1},
			{ID: "org-a", Name: "Acme Medical", NumSuppliers: 2},
		},
		DateRange:  models.DateRange{StartDate: "2026-01-01", EndDate: "2026-01-31"},
		ExportedAt: models.ExportTime{Time: time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)},
		TotalFaxes: 27,
	}
}

// SampleOrgA returns an organization slice with two suppliers, A1 and A2
func SampleOrgA() *models.OrgSlice {
	return &models.OrgSlice{
		Organization: models.OrgMetrics{
			VolumeByDay: []models.VolumeRow{
				{Date: "2026-01-01", Count: 5, SupplierID: "A1"},
				{Date: "2026-01-01", Count: 3, SupplierID: "A2"},
				{Date: "2026-01-02", Count: 7, SupplierID: "A1"},
			},
			Categories: []models.CategoryRow{
				{Category: "order", Count: 6, SupplierID: "A1"},
				{Category: "order", Count: 2, SupplierID: "A2"},
				{Category: "referral", Count: 2, SupplierID: "A2"},
			},
			Pages: models.PagesResponse{TotalDocuments: 15, TotalPages: 45},
			TimeOfDay: models.TimeOfDayResponse{
				Data: []models.TimeOfDayRow{
					{Timestamp: "2026-01-01T09:15:00Z", SupplierID: "A1"},
					{Timestamp: "2026-01-01T14:40:00Z", SupplierID: "A2"},
					{Timestamp: "2026-01-02T10:05:00Z", SupplierID: "A1"},
				},
				Total: 3,
			},
			CycleTime: models.CycleTimeSection{
				ReceivedToOpen: models.CycleTimeResponse{
					Data: []models.CycleTimeRow{
						{Date: "2026-01-01", AvgMinutes: 10, Count: 2, SupplierID: "A1"},
						{Date: "2026-01-01", AvgMinutes: 20, Count: 8, SupplierID: "A2"},
					},
					MetricType: models.CycleReceivedToOpen,
				},
				StateDistribution: models.StateResponse{
					Data: []models.StateRow{
						{State: "pushed", Count: 6, SupplierID: "A1"},
						{State: "discarded", Count: 2, SupplierID: "A2"},
					},
				},
			},
			Productivity: models.ProductivitySection{
				ByIndividual: models.ProductivityResponse{
					Data: []models.ProductivityRow{
						{UserID: "u1", UserName: "Ann", TotalProcessed: 4, AvgPerDay: 2, MedianMinutes: ptr(30), SupplierID: "A1"},
						{UserID: "u1", UserName: "Ann", TotalProcessed: 6, AvgPerDay: 3, MedianMinutes: ptr(50), SupplierID: "A2"},
						{UserID: "u2", UserName: "Bob", TotalProcessed: 3, AvgPerDay: 1, SupplierID: "A2"},
					},
				},
				CategoryBreakdown: models.CategoryByIndividualResponse{
					Data: []models.CategoryByIndividualRow{
						{UserID: "u1", UserName: "Ann", Category: "order", Count: 3, SupplierID: "A1"},
						{UserID: "u1", UserName: "Ann", Category: "order", Count: 1, SupplierID: "A2"},
					},
				},
			},
			Accuracy: models.AccuracySection{
				PerField: models.FieldAccuracyResponse{
					Data: []models.FieldAccuracyRow{
						{RecordType: "patient", FieldIdentifier: "dob", TotalDocs: 10, AccurateDocs: 9, AccuracyPct: 90, SupplierID: "A1"},
						{RecordType: "patient", FieldIdentifier: "dob", TotalDocs: 30, AccurateDocs: 21, AccuracyPct: 70, SupplierID: "A2"},
					},
				},
				DocumentLevel: models.DocumentAccuracyResponse{TotalAIDocs: 20, DocsWithEdits: 5, DocsNoEdits: 15, AccuracyPct: 75},
				Trend: models.AccuracyTrendResponse{
					Data: []models.AccuracyTrendRow{
						{Date: "2026-01-05", AccuracyPct: 80, TotalDocs: 10, DocsWithChanges: 2, SupplierID: "A1"},
						{Date: "2026-01-12", AccuracyPct: 90, TotalDocs: 10, DocsWithChanges: 1, SupplierID: "A1"},
					},
					Period: "week",
				},
			},
		},
		Suppliers: []models.Supplier{
			{SupplierID: "A1", Name: "Acme North", AIIntakeEnabled: true},
			{SupplierID: "A2", Name: "Acme South", AIIntakeEnabled: false},
		},
		PerSupplier: map[string]*models.PerSupplier{
			"A1": {
				Pages:            &models.PagesResponse{TotalDocuments: 12, TotalPages: 30},
				DocumentAccuracy: &models.DocumentAccuracyResponse{TotalAIDocs: 12, DocsWithEdits: 2, DocsNoEdits: 10, AccuracyPct: 83.33},
			},
			"A2": {},
		},
	}
}

// SampleOrgB returns a one-supplier organization with only volume data
func SampleOrgB() *models.OrgSlice {
	return &models.OrgSlice{
		Organization: models.OrgMetrics{
			VolumeByDay: []models.VolumeRow{
				{Date: "2026-01-03", Count: 12, SupplierID: "B1"},
			},
		},
		Suppliers: []models.Supplier{{SupplierID: "B1", Name: "Beta One", AIIntakeEnabled: true}},
	}
}

// SampleBundle returns a two-organization bundle
func SampleBundle() *models.SnapshotBundle {
	return &models.SnapshotBundle{
		ByOrg: map[string]*models.OrgSlice{
			"org-a": SampleOrgA(),
			"org-b": SampleOrgB(),
		},
	}
}

// WriteSnapshot writes metadata and bundle into dir, gzip-compressing the
// bundle when compress is set. A nil meta skips metadata.json.
func WriteSnapshot(t *testing.T, dir string, meta *models.SnapshotMetadata, bundle interface{}, compress bool) {
	t.Helper()

	if meta != nil {
		WriteJSON(t, filepath.Join(dir, MetadataFile), meta)
	}

	if !compress {
		WriteJSON(t, filepath.Join(dir, BundleFile), bundle)
		return
	}

	data, err := json.Marshal(bundle)
	if err != nil {
		t.Fatalf("Failed to marshal bundle: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, BundleGzipFile), Gzip(t, data), 0644); err != nil {
		t.Fatalf("Failed to write bundle: %v", err)
	}
}

// WriteJSON marshals v to path
func WriteJSON(t *testing.T, path string, v interface{}) {
	t.Helper()

	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("Failed to marshal %s: %v", filepath.Base(path), err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("Failed to create %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", path, err)
	}
}

// Gzip compresses data
func Gzip(t *testing.T, data []byte) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		t.Fatalf("Failed to gzip: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("Failed to gzip: %v", err)
	}
	return buf.Bytes()
}
