package models

// VolumeRow is the document count received on one date for one supplier
type VolumeRow struct {
	Date       string `json:"date"`
	Count      int    `json:"count"`
	SupplierID string `json:"supplier_id,omitempty"`
}

// VolumeResponse is the volume-by-date series
type VolumeResponse struct {
	Data   []VolumeRow `json:"data"`
	Total  int         `json:"total"`
	Period string      `json:"period"`
}

// CategoryRow is one document category with its share of the total
type CategoryRow struct {
	Category   string  `json:"category"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
	SupplierID string  `json:"supplier_id,omitempty"`
}

// CategoryResponse is the category distribution
type CategoryResponse struct {
	Data  []CategoryRow `json:"data"`
	Total int           `json:"total"`
}

// PagesResponse holds page statistics. It is a single aggregate rather than a row collection.
type PagesResponse struct {
	TotalDocuments int      `json:"total_documents"`
	TotalPages     int      `json:"total_pages"`
	AvgPagesPerFax *float64 `json:"avg_pages_per_fax,omitempty"`
}

// TimeOfDayRow is one raw document arrival timestamp
type TimeOfDayRow struct {
	Timestamp  string `json:"timestamp"`
	SupplierID string `json:"supplier_id,omitempty"`
}

// TimeOfDayResponse carries raw timestamps. Hour bucketing happens at render time.
type TimeOfDayResponse struct {
	Data  []TimeOfDayRow `json:"data"`
	Total int            `json:"total"`
}

// CycleTimeMetric selects which cycle-time measurement is requested
type CycleTimeMetric string

const (
	CycleReceivedToOpen CycleTimeMetric = "received_to_open"
	CycleProcessing     CycleTimeMetric = "processing"
)

// CycleTimeRow is the average duration for documents on one date
type CycleTimeRow struct {
	Date       string  `json:"date"`
	AvgMinutes float64 `json:"avg_minutes"`
	Count      int     `json:"count"`
	SupplierID string  `json:"supplier_id,omitempty"`
}

// CycleTimeResponse is a cycle-time series with its count-weighted overall average
type CycleTimeResponse struct {
	Data              []CycleTimeRow  `json:"data"`
	OverallAvgMinutes float64         `json:"overall_avg_minutes"`
	MetricType        CycleTimeMetric `json:"metric_type"`
}

// StateRow is the number of documents that ended in one outcome state
type StateRow struct {
	State      string  `json:"state"`
	Label      string  `json:"label"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
	SupplierID string  `json:"supplier_id,omitempty"`
}

// StateResponse is the document outcome state distribution
type StateResponse struct {
	Data  []StateRow `json:"data"`
	Total int        `json:"total"`
}

// ProductivityVariant selects a productivity leaderboard
type ProductivityVariant string

const (
	ProductivityByIndividual   ProductivityVariant = "by_individual"
	ProductivityDailyAverage   ProductivityVariant = "daily_average"
	ProductivityProcessingTime ProductivityVariant = "by_individual_processing_time"
)

// ProductivityRow is one individual's throughput.
// MedianMinutes is nil when the sample was too small to compute it.
type ProductivityRow struct {
	UserID         string   `json:"user_id"`
	UserName       string   `json:"user_name"`
	TotalProcessed int      `json:"total_processed"`
	AvgPerDay      float64  `json:"avg_per_day"`
	MedianMinutes  *float64 `json:"median_minutes,omitempty"`
	SupplierID     string   `json:"supplier_id,omitempty"`
}

// ProductivityResponse is a productivity leaderboard
type ProductivityResponse struct {
	Data              []ProductivityRow `json:"data"`
	TotalProcessed    int               `json:"total_processed"`
	UniqueIndividuals int               `json:"unique_individuals"`
}

// CategoryByIndividualRow is one individual's count for one category
type CategoryByIndividualRow struct {
	UserID     string  `json:"user_id"`
	UserName   string  `json:"user_name"`
	Category   string  `json:"category"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
	SupplierID string  `json:"supplier_id,omitempty"`
}

// CategoryByIndividualResponse is the per-individual category breakdown
type CategoryByIndividualResponse struct {
	Data []CategoryByIndividualRow `json:"data"`
}

// FieldAccuracyRow is how often one extracted field survived review unchanged
type FieldAccuracyRow struct {
	RecordType      string  `json:"record_type"`
	FieldIdentifier string  `json:"field_identifier"`
	TotalDocs       int     `json:"total_docs"`
	AccurateDocs    int     `json:"accurate_docs"`
	AccuracyPct     float64 `json:"accuracy_pct"`
	SupplierID      string  `json:"supplier_id,omitempty"`
}

// FieldAccuracyResponse lists fields worst first
type FieldAccuracyResponse struct {
	Data               []FieldAccuracyRow `json:"data"`
	OverallAccuracyPct float64            `json:"overall_accuracy_pct"`
	TotalFields        int                `json:"total_fields"`
}

// DocumentAccuracyResponse is the share of AI-processed documents needing no edits
type DocumentAccuracyResponse struct {
	TotalAIDocs   int     `json:"total_ai_docs"`
	DocsWithEdits int     `json:"docs_with_edits"`
	DocsNoEdits   int     `json:"docs_no_edits"`
	AccuracyPct   float64 `json:"accuracy_pct"`
}

// TrendLevel selects document-level or field-level accuracy trend
type TrendLevel string

const (
	TrendDocument TrendLevel = "document"
	TrendField    TrendLevel = "field"
)

// AccuracyTrendRow is accuracy over one period bucket
type AccuracyTrendRow struct {
	Date            string  `json:"date"`
	AccuracyPct     float64 `json:"accuracy_pct"`
	TotalDocs       int     `json:"total_docs"`
	DocsWithChanges int     `json:"docs_with_changes"`
	SupplierID      string  `json:"supplier_id,omitempty"`
}

// AccuracyTrendResponse is an accuracy series with its overall rate
type AccuracyTrendResponse struct {
	Data               []AccuracyTrendRow `json:"data"`
	OverallAccuracyPct float64            `json:"overall_accuracy_pct"`
	Period             string             `json:"period"`
}

// SupplierListResponse is the supplier roster
type SupplierListResponse struct {
	Data  []Supplier `json:"data"`
	Total int        `json:"total"`
}

// OrganizationListResponse is the organization roster
type OrganizationListResponse struct {
	Data  []Organization `json:"data"`
	Total int            `json:"total"`
}

// AIEnabledCountResponse reports how many suppliers have AI intake switched on
type AIEnabledCountResponse struct {
	AIEnabledCount int `json:"ai_enabled_count"`
}
