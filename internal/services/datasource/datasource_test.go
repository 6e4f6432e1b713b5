package datasource

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"intakedash/internal/models"
	"intakedash/internal/services/breaker"
	"intakedash/internal/services/querylayer"
	"intakedash/internal/services/snapshot"
	"intakedash/internal/services/storage"
	"intakedash/internal/testutil"
)

func newStaticSource(t *testing.T) (*StaticSource, *snapshot.Loader) {
	t.Helper()
	dir := t.TempDir()
	testutil.WriteSnapshot(t, dir, testutil.SampleMetadata(), testutil.SampleBundle(), true)

	files, err := storage.New(dir)
	if err != nil {
		t.Fatalf("storage.New: %v", err)
	}
	loader := snapshot.NewLoader(snapshot.NewStorageFetcher(files), nil, nil)
	return NewStaticSource(loader), loader
}

func newLiveSource(t *testing.T, routes map[string]interface{}) (*LiveSource, *testutil.StubQueryLayer) {
	t.Helper()
	stub := testutil.NewStubQueryLayer(t, routes)
	client := querylayer.New(stub.URL, breaker.New(breaker.DefaultSettings("test"), nil), nil)
	return NewLiveSource(client), stub
}

// orgARoutes serves org-a's snapshot sections as query-layer answers
func orgARoutes() map[string]interface{} {
	org := testutil.SampleOrgA().Organization
	return map[string]interface{}{
		querylayer.PathVolume:            models.VolumeResponse{Data: org.VolumeByDay, Period: "day"},
		querylayer.PathCategories:        models.CategoryResponse{Data: org.Categories},
		querylayer.PathPages:             org.Pages,
		querylayer.PathTimeOfDay:         org.TimeOfDay,
		querylayer.PathReceivedToOpen:    org.CycleTime.ReceivedToOpen,
		querylayer.PathProcessing:        org.CycleTime.Processing,
		querylayer.PathStateDistribution: org.CycleTime.StateDistribution,
		querylayer.PathByIndividual:      org.Productivity.ByIndividual,
		querylayer.PathDailyAverage:      org.Productivity.DailyAverage,
		querylayer.PathProcessingTime:    org.Productivity.ByIndividualProcessingTime,
		querylayer.PathCategoryBreakdown: org.Productivity.CategoryBreakdown,
		querylayer.PathPerField:          org.Accuracy.PerField,
		querylayer.PathDocumentLevel:     org.Accuracy.DocumentLevel,
		querylayer.PathAccuracyTrend:     org.Accuracy.Trend,
		querylayer.PathFieldLevelTrend:   org.Accuracy.FieldLevelTrend,
	}
}

func sampleFilter() models.FilterState {
	return models.FilterState{
		StartDate:      time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:        time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC),
		OrganizationID: "org-a",
	}
}

func TestStaticVolume(t *testing.T) {
	src, _ := newStaticSource(t)
	ctx := context.Background()

	tests := []struct {
		name      string
		supplier  string
		wantTotal int
		wantDays  int
	}{
		{"organization", "", 15, 2},
		{"supplier A1", "A1", 12, 2},
		{"supplier A2", "A2", 3, 1},
		{"unknown supplier", "ZZ", 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := sampleFilter()
			f.SupplierID = tt.supplier

			got, err := src.Volume(ctx, f, "week")
			if err != nil {
				t.Fatalf("Volume: %v", err)
			}
			if got.Total != tt.wantTotal || len(got.Data) != tt.wantDays {
				t.Errorf("Volume = total %d over %d days, want %d over %d", got.Total, len(got.Data), tt.wantTotal, tt.wantDays)
			}
			if got.Period != "day" {
				t.Errorf("Period = %q, want day", got.Period)
			}
			if got.Data == nil {
				t.Error("Data should never be nil")
			}
		})
	}
}

func TestStaticVolumeAggregatesAcrossSuppliers(t *testing.T) {
	src, _ := newStaticSource(t)

	got, err := src.Volume(context.Background(), sampleFilter(), "")
	if err != nil {
		t.Fatalf("Volume: %v", err)
	}
	want := []models.VolumeRow{{Date: "2026-01-01", Count: 8}, {Date: "2026-01-02", Count: 7}}
	for i, row := range want {
		if got.Data[i] != row {
			t.Errorf("Data[%d] = %+v, want %+v", i, got.Data[i], row)
		}
	}
}

func TestStaticSingleNumberOverrides(t *testing.T) {
	src, _ := newStaticSource(t)
	ctx := context.Background()

	tests := []struct {
		name         string
		supplier     string
		wantDocs     int
		wantAvg      float64
		wantAccuracy float64
	}{
		{"organization aggregate", "", 15, 3, 75},
		{"supplier override", "A1", 12, 2.5, 83.33},
		{"supplier without override", "A2", 0, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := sampleFilter()
			f.SupplierID = tt.supplier

			pages, err := src.Pages(ctx, f)
			if err != nil {
				t.Fatalf("Pages: %v", err)
			}
			if pages.TotalDocuments != tt.wantDocs {
				t.Errorf("TotalDocuments = %d, want %d", pages.TotalDocuments, tt.wantDocs)
			}
			avg := 0.0
			if pages.AvgPagesPerFax != nil {
				avg = *pages.AvgPagesPerFax
			}
			if avg != tt.wantAvg {
				t.Errorf("AvgPagesPerFax = %v, want %v", avg, tt.wantAvg)
			}

			doc, err := src.DocumentAccuracy(ctx, f)
			if err != nil {
				t.Fatalf("DocumentAccuracy: %v", err)
			}
			if doc.AccuracyPct != tt.wantAccuracy {
				t.Errorf("AccuracyPct = %v, want %v", doc.AccuracyPct, tt.wantAccuracy)
			}
		})
	}
}

func TestStaticMissingSectionsAreEmpty(t *testing.T) {
	src, _ := newStaticSource(t)
	ctx := context.Background()
	f := sampleFilter()
	f.OrganizationID = "org-b"

	cats, err := src.Categories(ctx, f)
	if err != nil {
		t.Fatalf("Categories: %v", err)
	}
	if cats.Data == nil || len(cats.Data) != 0 || cats.Total != 0 {
		t.Errorf("Categories = %+v, want empty", cats)
	}

	cycle, err := src.CycleTime(ctx, f, models.CycleProcessing)
	if err != nil {
		t.Fatalf("CycleTime: %v", err)
	}
	if len(cycle.Data) != 0 || cycle.OverallAvgMinutes != 0 || cycle.MetricType != models.CycleProcessing {
		t.Errorf("CycleTime = %+v, want empty processing", cycle)
	}

	trend, err := src.AccuracyTrend(ctx, f, models.TrendField, "")
	if err != nil {
		t.Fatalf("AccuracyTrend: %v", err)
	}
	if len(trend.Data) != 0 || trend.OverallAccuracyPct != 0 {
		t.Errorf("AccuracyTrend = %+v, want empty", trend)
	}

	pages, err := src.Pages(ctx, f)
	if err != nil {
		t.Fatalf("Pages: %v", err)
	}
	if pages.TotalDocuments != 0 || pages.AvgPagesPerFax != nil {
		t.Errorf("Pages = %+v, want zero", pages)
	}
}

func TestStaticStateDistributionScope(t *testing.T) {
	ctx := context.Background()

	// Exports that aggregate states per organization carry no supplier tag
	dir := t.TempDir()
	untagged := &models.OrgSlice{
		Organization: models.OrgMetrics{
			CycleTime: models.CycleTimeSection{
				StateDistribution: models.StateResponse{
					Data: []models.StateRow{{State: "pushed", Count: 9}, {State: "discarded", Count: 1}},
				},
			},
		},
	}
	testutil.WriteSnapshot(t, dir, nil, untagged, false)
	files, err := storage.New(dir)
	if err != nil {
		t.Fatalf("storage.New: %v", err)
	}
	orgOnly := NewStaticSource(snapshot.NewLoader(snapshot.NewStorageFetcher(files), nil, nil))
	tagged, _ := newStaticSource(t)

	tests := []struct {
		name      string
		src       *StaticSource
		org       string
		supplier  string
		wantTotal int
	}{
		{"tagged organization", tagged, "org-a", "", 8},
		{"tagged supplier", tagged, "org-a", "A1", 6},
		{"tagged unknown supplier", tagged, "org-a", "ZZ", 0},
		{"untagged organization", orgOnly, "", "", 10},
		{"untagged supplier falls back", orgOnly, "", "S1", 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := sampleFilter()
			f.OrganizationID = tt.org
			f.SupplierID = tt.supplier

			got, err := tt.src.StateDistribution(ctx, f)
			if err != nil {
				t.Fatalf("StateDistribution: %v", err)
			}
			if got.Total != tt.wantTotal {
				t.Errorf("Total = %d, want %d", got.Total, tt.wantTotal)
			}
		})
	}
}

func TestStaticProductivity(t *testing.T) {
	src, _ := newStaticSource(t)
	ctx := context.Background()

	got, err := src.Productivity(ctx, sampleFilter(), models.ProductivityByIndividual, 0)
	if err != nil {
		t.Fatalf("Productivity: %v", err)
	}
	if got.TotalProcessed != 13 || got.UniqueIndividuals != 2 {
		t.Errorf("rollups = %d/%d, want 13/2", got.TotalProcessed, got.UniqueIndividuals)
	}
	first := got.Data[0]
	if first.UserID != "u1" || first.TotalProcessed != 10 || first.AvgPerDay != 5 {
		t.Errorf("first = %+v, want u1 10 5", first)
	}
	if first.MedianMinutes == nil || *first.MedianMinutes != 42 {
		t.Errorf("median = %v, want 42", first.MedianMinutes)
	}
	if got.Data[1].MedianMinutes != nil {
		t.Errorf("u2 median = %v, want nil", *got.Data[1].MedianMinutes)
	}

	limited, err := src.Productivity(ctx, sampleFilter(), models.ProductivityByIndividual, 1)
	if err != nil {
		t.Fatalf("Productivity: %v", err)
	}
	if len(limited.Data) != 1 || limited.TotalProcessed != 10 || limited.UniqueIndividuals != 1 {
		t.Errorf("limited = %+v, want only u1", limited)
	}
}

func TestStaticUsesActiveOrganization(t *testing.T) {
	src, loader := newStaticSource(t)
	ctx := context.Background()
	f := sampleFilter()
	f.OrganizationID = ""

	got, err := src.Volume(ctx, f, "")
	if err != nil {
		t.Fatalf("Volume: %v", err)
	}
	if got.Total != 12 {
		t.Errorf("active org-b total = %d, want 12", got.Total)
	}

	if _, err := loader.SwitchOrganization(ctx, "org-a"); err != nil {
		t.Fatalf("SwitchOrganization: %v", err)
	}
	got, _ = src.Volume(ctx, f, "")
	if got.Total != 15 {
		t.Errorf("after switch total = %d, want 15", got.Total)
	}

	f.OrganizationID = "nope"
	if _, err := src.Volume(ctx, f, ""); !errors.Is(err, snapshot.ErrUnknownOrganization) {
		t.Errorf("unknown org error = %v, want ErrUnknownOrganization", err)
	}
}

func TestStaticRosters(t *testing.T) {
	src, _ := newStaticSource(t)
	ctx := context.Background()

	sups, err := src.Suppliers(ctx, false, "")
	if err != nil {
		t.Fatalf("Suppliers: %v", err)
	}
	if sups.Total != 1 || sups.Data[0].SupplierID != "B1" {
		t.Errorf("Suppliers = %+v, want B1 of active org-b", sups)
	}

	orgs, err := src.Organizations(ctx, false, "acme")
	if err != nil {
		t.Fatalf("Organizations: %v", err)
	}
	if orgs.Total != 1 || orgs.Data[0].ID != "org-a" || !orgs.Data[0].HasAIIntake {
		t.Errorf("Organizations(acme) = %+v", orgs)
	}

	all, _ := src.Organizations(ctx, true, "")
	if all.Total != 2 {
		t.Errorf("AI organizations = %d, want 2", all.Total)
	}

	count, err := src.AIEnabledCount(ctx)
	if err != nil {
		t.Fatalf("AIEnabledCount: %v", err)
	}
	if count.AIEnabledCount != 1 {
		t.Errorf("AIEnabledCount = %d, want 1", count.AIEnabledCount)
	}
}

func TestLiveAggregatesRows(t *testing.T) {
	src, stub := newLiveSource(t, orgARoutes())
	ctx := context.Background()

	f := sampleFilter()
	f.SupplierID = "A1"
	f.AIOnly = true

	got, err := src.CycleTime(ctx, f, models.CycleReceivedToOpen)
	if err != nil {
		t.Fatalf("CycleTime: %v", err)
	}
	if len(got.Data) != 1 || got.Data[0].AvgMinutes != 18 || got.Data[0].Count != 10 {
		t.Errorf("CycleTime.Data = %+v, want one day avg 18 count 10", got.Data)
	}
	if got.OverallAvgMinutes != 18 {
		t.Errorf("OverallAvgMinutes = %v, want 18", got.OverallAvgMinutes)
	}

	q := stub.LastQuery(querylayer.PathReceivedToOpen)
	if q.Get("supplier_id") != "A1" || q.Get("ai_intake_only") != "true" || q.Get("start_date") != "2026-01-01" {
		t.Errorf("query = %v", q)
	}
	if q.Has("supplier_organization_id") {
		t.Error("live request should carry one scope only")
	}
}

func TestLiveExtras(t *testing.T) {
	src, stub := newLiveSource(t, orgARoutes())
	ctx := context.Background()

	if _, err := src.Productivity(ctx, sampleFilter(), models.ProductivityDailyAverage, 25); err != nil {
		t.Fatalf("Productivity: %v", err)
	}
	if got := stub.LastQuery(querylayer.PathDailyAverage).Get("limit"); got != "25" {
		t.Errorf("limit = %q, want 25", got)
	}

	trend, err := src.AccuracyTrend(ctx, sampleFilter(), models.TrendDocument, "day")
	if err != nil {
		t.Fatalf("AccuracyTrend: %v", err)
	}
	if got := stub.LastQuery(querylayer.PathAccuracyTrend).Get("period"); got != "day" {
		t.Errorf("period = %q, want day", got)
	}
	if trend.Period != "day" || trend.OverallAccuracyPct != 85 {
		t.Errorf("trend = %s %v, want day 85", trend.Period, trend.OverallAccuracyPct)
	}
}

func TestLiveRosters(t *testing.T) {
	src, stub := newLiveSource(t, map[string]interface{}{
		querylayer.PathOrganizations: map[string]interface{}{
			"data": []map[string]interface{}{
				{"organization_id": "o1", "name": "One", "num_suppliers": 3, "has_ai_intake": true},
			},
			"total": 1,
		},
		querylayer.PathSuppliers: map[string]interface{}{
			"data":  []models.Supplier{{SupplierID: "S1", Name: "Sup", AIIntakeEnabled: true}},
			"total": 1,
		},
		querylayer.PathAIEnabledCount: map[string]int{"ai_enabled_count": 7},
	})
	ctx := context.Background()

	orgs, err := src.Organizations(ctx, true, "on")
	if err != nil {
		t.Fatalf("Organizations: %v", err)
	}
	if orgs.Total != 1 || orgs.Data[0].ID != "o1" || orgs.Data[0].NumSuppliers != 3 {
		t.Errorf("Organizations = %+v", orgs)
	}
	q := stub.LastQuery(querylayer.PathOrganizations)
	if q.Get("ai_intake_only") != "true" || q.Get("search") != "on" {
		t.Errorf("organizations query = %v", q)
	}

	sups, err := src.Suppliers(ctx, false, "")
	if err != nil || sups.Total != 1 {
		t.Errorf("Suppliers = %+v, %v", sups, err)
	}

	count, err := src.AIEnabledCount(ctx)
	if err != nil || count.AIEnabledCount != 7 {
		t.Errorf("AIEnabledCount = %+v, %v", count, err)
	}
}

func TestLiveFailureIsReturned(t *testing.T) {
	src, _ := newLiveSource(t, map[string]interface{}{
		querylayer.PathPages: http.StatusBadGateway,
	})

	_, err := src.Pages(context.Background(), sampleFilter())
	if !errors.Is(err, querylayer.ErrUpstream) {
		t.Errorf("Pages error = %v, want ErrUpstream", err)
	}
}

func TestLiveAndStaticReturnIdenticalResponses(t *testing.T) {
	static, _ := newStaticSource(t)
	live, _ := newLiveSource(t, orgARoutes())
	staticFacade := NewFacade(static, nil)
	liveFacade := NewFacade(live, nil)
	ctx := context.Background()
	f := sampleFilter()

	for _, category := range MetricCategories {
		t.Run(string(category), func(t *testing.T) {
			s, err := staticFacade.Fetch(ctx, category, f, Options{})
			if err != nil {
				t.Fatalf("static: %v", err)
			}
			l, err := liveFacade.Fetch(ctx, category, f, Options{})
			if err != nil {
				t.Fatalf("live: %v", err)
			}

			sj, _ := json.Marshal(s)
			lj, _ := json.Marshal(l)
			if string(sj) != string(lj) {
				t.Errorf("responses differ\nstatic: %s\nlive:   %s", sj, lj)
			}
		})
	}
}

func TestSummaryIsolatesFailures(t *testing.T) {
	routes := orgARoutes()
	delete(routes, querylayer.PathPages)
	live, _ := newLiveSource(t, routes)
	facade := NewFacade(live, nil)

	sum := facade.Summary(context.Background(), sampleFilter(), Options{})

	if sum.Mode != ModeLive {
		t.Errorf("Mode = %q, want live", sum.Mode)
	}
	if _, ok := sum.Errors[CategoryPages]; !ok {
		t.Errorf("Errors = %v, want pages", sum.Errors)
	}
	if len(sum.Errors) != 1 {
		t.Errorf("got %d errors, want 1: %v", len(sum.Errors), sum.Errors)
	}
	if len(sum.Data) != len(MetricCategories)-1 {
		t.Errorf("got %d categories, want %d", len(sum.Data), len(MetricCategories)-1)
	}
	vol, ok := sum.Data[CategoryVolume].(models.VolumeResponse)
	if !ok || vol.Total != 15 {
		t.Errorf("volume = %+v", sum.Data[CategoryVolume])
	}
}

func TestParseCategory(t *testing.T) {
	tests := []struct {
		name string
		ok   bool
	}{
		{"volume", true},
		{"per_field", true},
		{"suppliers", true},
		{"ai_enabled_count", true},
		{"bogus", false},
		{"", false},
	}
	for _, tt := range tests {
		if _, ok := ParseCategory(tt.name); ok != tt.ok {
			t.Errorf("ParseCategory(%q) ok = %v, want %v", tt.name, ok, tt.ok)
		}
	}
}

func TestLimitBreakdown(t *testing.T) {
	resp := models.CategoryByIndividualResponse{Data: []models.CategoryByIndividualRow{
		{UserID: "a", UserName: "Ann", Category: "x", Count: 1},
		{UserID: "b", UserName: "Bob", Category: "x", Count: 5},
		{UserID: "b", UserName: "Bob", Category: "y", Count: 1},
		{UserID: "c", UserName: "Cy", Category: "x", Count: 3},
	}}

	got := limitBreakdown(resp, 2)
	if len(got.Data) != 3 {
		t.Fatalf("got %d rows, want 3", len(got.Data))
	}
	for _, r := range got.Data {
		if r.UserID == "a" {
			t.Errorf("smallest individual should be dropped: %+v", got.Data)
		}
	}
	if got.Data[0].UserID != "b" {
		t.Errorf("row order changed: %+v", got.Data)
	}

	if all := limitBreakdown(resp, 0); len(all.Data) != 4 {
		t.Errorf("limit 0 kept %d rows, want 4", len(all.Data))
	}
}
