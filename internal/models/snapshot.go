package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Organization is one supplier organization in a roster
type Organization struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	NumSuppliers int    `json:"num_suppliers"`
	HasAIIntake  bool   `json:"has_ai_intake,omitempty"`
}

// Supplier is one supplier belonging to an organization
type Supplier struct {
	SupplierID      string `json:"supplier_id"`
	Name            string `json:"name"`
	AIIntakeEnabled bool   `json:"ai_intake_enabled"`
}

// DateRange is an inclusive range of ISO calendar dates
type DateRange struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

// SnapshotMetadata describes an exported snapshot
type SnapshotMetadata struct {
	Organizations []Organization `json:"organizations"`
	DateRange     DateRange      `json:"date_range"`
	ExportedAt    ExportTime     `json:"exported_at"`
	TotalFaxes    int            `json:"total_faxes"`
}

// exportLayouts are tried in order. The exporter writes local wall-clock
// time without a zone, with or without fractional seconds.
var exportLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// ExportTime is a snapshot export timestamp. Zone-less values are read as UTC.
type ExportTime struct {
	time.Time
}

func (t ExportTime) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Time.Format(time.RFC3339Nano))
}

func (t *ExportTime) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*t = ExportTime{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("exported_at: %w", err)
	}
	if s == "" {
		*t = ExportTime{}
		return nil
	}
	for _, layout := range exportLayouts {
		if v, err := time.Parse(layout, s); err == nil {
			t.Time = v
			return nil
		}
	}
	return fmt.Errorf("exported_at: unrecognized timestamp %q", s)
}

// OrganizationIDs returns roster ids in roster order
func (m *SnapshotMetadata) OrganizationIDs() []string {
	ids := make([]string, 0, len(m.Organizations))
	for _, o := range m.Organizations {
		ids = append(ids, o.ID)
	}
	return ids
}

// SnapshotBundle is the decoded data file. ByOrg is set for multi-organization
// exports; the embedded OrgSlice is set for the legacy single-organization shape.
type SnapshotBundle struct {
	ByOrg map[string]*OrgSlice `json:"by_org,omitempty"`
	OrgSlice
}

// IsMultiOrg reports whether the bundle is keyed by organization
func (b *SnapshotBundle) IsMultiOrg() bool {
	return b.ByOrg != nil
}

// OrgSlice is one organization's full metric set
type OrgSlice struct {
	Organization OrgMetrics              `json:"organization"`
	Suppliers    []Supplier              `json:"suppliers"`
	PerSupplier  map[string]*PerSupplier `json:"per_supplier"`
}

// PerSupplier holds single-number metrics pre-computed for one supplier
type PerSupplier struct {
	Pages            *PagesResponse            `json:"pages,omitempty"`
	DocumentAccuracy *DocumentAccuracyResponse `json:"document_accuracy,omitempty"`
}

// OrgMetrics is the organization section of a snapshot.
// Every field is optional; older exports predate some sections.
type OrgMetrics struct {
	VolumeByDay  []VolumeRow         `json:"volume_by_day"`
	Categories   []CategoryRow       `json:"categories"`
	Pages        PagesResponse       `json:"pages"`
	TimeOfDay    TimeOfDayResponse   `json:"time_of_day"`
	CycleTime    CycleTimeSection    `json:"cycle_time"`
	Productivity ProductivitySection `json:"productivity"`
	Accuracy     AccuracySection     `json:"accuracy"`
}

// CycleTimeSection groups the cycle-time metrics of a snapshot
type CycleTimeSection struct {
	ReceivedToOpen    CycleTimeResponse `json:"received_to_open"`
	Processing        CycleTimeResponse `json:"processing"`
	StateDistribution StateResponse     `json:"state_distribution"`
}

// ProductivitySection groups the productivity leaderboards of a snapshot
type ProductivitySection struct {
	ByIndividual               ProductivityResponse         `json:"by_individual"`
	DailyAverage               ProductivityResponse         `json:"daily_average"`
	ByIndividualProcessingTime ProductivityResponse         `json:"by_individual_processing_time"`
	CategoryBreakdown          CategoryByIndividualResponse `json:"category_breakdown"`
}

// Variant returns the leaderboard for a productivity variant
func (p *ProductivitySection) Variant(v ProductivityVariant) ProductivityResponse {
	switch v {
	case ProductivityDailyAverage:
		return p.DailyAverage
	case ProductivityProcessingTime:
		return p.ByIndividualProcessingTime
	default:
		return p.ByIndividual
	}
}

// AccuracySection groups the accuracy metrics of a snapshot
type AccuracySection struct {
	PerField        FieldAccuracyResponse    `json:"per_field"`
	DocumentLevel   DocumentAccuracyResponse `json:"document_level"`
	Trend           AccuracyTrendResponse    `json:"trend"`
	FieldLevelTrend AccuracyTrendResponse    `json:"field_level_trend"`
}
