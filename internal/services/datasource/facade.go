package datasource

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"intakedash/internal/models"
	"intakedash/internal/telemetry"
)

// Category names one metric category. The names double as export file names
// and summary keys.
type Category string

const (
	CategoryVolume            Category = "volume"
	CategoryCategories        Category = "categories"
	CategoryPages             Category = "pages"
	CategoryTimeOfDay         Category = "time_of_day"
	CategoryReceivedToOpen    Category = "received_to_open"
	CategoryProcessing        Category = "processing"
	CategoryStateDistribution Category = "state_distribution"
	CategoryByIndividual      Category = "by_individual"
	CategoryDailyAverage      Category = "daily_average"
	CategoryProcessingTime    Category = "by_individual_processing_time"
	CategoryCategoryBreakdown Category = "category_breakdown"
	CategoryFieldAccuracy     Category = "per_field"
	CategoryDocumentAccuracy  Category = "document_level"
	CategoryAccuracyTrend     Category = "accuracy_trend"
	CategoryFieldLevelTrend   Category = "field_level_trend"
	CategorySuppliers         Category = "suppliers"
	CategoryOrganizations     Category = "organizations"
	CategoryAIEnabledCount    Category = "ai_enabled_count"
)

// MetricCategories are the categories computed from a FilterState, in
// dashboard order
var MetricCategories = []Category{
	CategoryVolume,
	CategoryCategories,
	CategoryPages,
	CategoryTimeOfDay,
	CategoryReceivedToOpen,
	CategoryProcessing,
	CategoryStateDistribution,
	CategoryByIndividual,
	CategoryDailyAverage,
	CategoryProcessingTime,
	CategoryCategoryBreakdown,
	CategoryFieldAccuracy,
	CategoryDocumentAccuracy,
	CategoryAccuracyTrend,
	CategoryFieldLevelTrend,
}

// ParseCategory validates a category name
func ParseCategory(name string) (Category, bool) {
	c := Category(name)
	for _, known := range MetricCategories {
		if c == known {
			return c, true
		}
	}
	switch c {
	case CategorySuppliers, CategoryOrganizations, CategoryAIEnabledCount:
		return c, true
	}
	return "", false
}

// Options carries the per-category extras
type Options struct {
	Period string
	Limit  int
	Search string
}

// Facade is the single entry point handlers use. It delegates to the Source
// chosen at startup and records metrics and failures per category.
type Facade struct {
	src Source
	log *zap.Logger
}

// NewFacade wraps src
func NewFacade(src Source, log *zap.Logger) *Facade {
	if log == nil {
		log = zap.NewNop()
	}
	return &Facade{src: src, log: log}
}

// Mode reports which Source the facade was built with
func (fc *Facade) Mode() Mode {
	return fc.src.Mode()
}

// Live reports whether the facade queries the live query layer
func (fc *Facade) Live() bool {
	return fc.src.Mode() == ModeLive
}

func observe[T any](ctx context.Context, fc *Facade, category Category, fn func(context.Context) (T, error)) (T, error) {
	mode := string(fc.src.Mode())
	start := time.Now()
	v, err := fn(ctx)
	telemetry.FacadeLatency.WithLabelValues(string(category), mode).Observe(time.Since(start).Seconds())

	status := "ok"
	if err != nil {
		status = "error"
		fc.log.Warn("Metric fetch failed",
			zap.String("category", string(category)),
			zap.String("mode", mode),
			zap.Error(err),
		)
	}
	telemetry.FacadeRequests.WithLabelValues(string(category), mode, status).Inc()
	return v, err
}

func (fc *Facade) Volume(ctx context.Context, f models.FilterState, period string) (models.VolumeResponse, error) {
	return observe(ctx, fc, CategoryVolume, func(ctx context.Context) (models.VolumeResponse, error) {
		return fc.src.Volume(ctx, f, period)
	})
}

func (fc *Facade) Categories(ctx context.Context, f models.FilterState) (models.CategoryResponse, error) {
	return observe(ctx, fc, CategoryCategories, func(ctx context.Context) (models.CategoryResponse, error) {
		return fc.src.Categories(ctx, f)
	})
}

func (fc *Facade) Pages(ctx context.Context, f models.FilterState) (models.PagesResponse, error) {
	return observe(ctx, fc, CategoryPages, func(ctx context.Context) (models.PagesResponse, error) {
		return fc.src.Pages(ctx, f)
	})
}

func (fc *Facade) TimeOfDay(ctx context.Context, f models.FilterState) (models.TimeOfDayResponse, error) {
	return observe(ctx, fc, CategoryTimeOfDay, func(ctx context.Context) (models.TimeOfDayResponse, error) {
		return fc.src.TimeOfDay(ctx, f)
	})
}

func (fc *Facade) CycleTime(ctx context.Context, f models.FilterState, metric models.CycleTimeMetric) (models.CycleTimeResponse, error) {
	category := CategoryReceivedToOpen
	if metric == models.CycleProcessing {
		category = CategoryProcessing
	}
	return observe(ctx, fc, category, func(ctx context.Context) (models.CycleTimeResponse, error) {
		return fc.src.CycleTime(ctx, f, metric)
	})
}

func (fc *Facade) StateDistribution(ctx context.Context, f models.FilterState) (models.StateResponse, error) {
	return observe(ctx, fc, CategoryStateDistribution, func(ctx context.Context) (models.StateResponse, error) {
		return fc.src.StateDistribution(ctx, f)
	})
}

func (fc *Facade) Productivity(ctx context.Context, f models.FilterState, variant models.ProductivityVariant, limit int) (models.ProductivityResponse, error) {
	category := CategoryByIndividual
	switch variant {
	case models.ProductivityDailyAverage:
		category = CategoryDailyAverage
	case models.ProductivityProcessingTime:
		category = CategoryProcessingTime
	}
	return observe(ctx, fc, category, func(ctx context.Context) (models.ProductivityResponse, error) {
		return fc.src.Productivity(ctx, f, variant, limit)
	})
}

func (fc *Facade) CategoryByIndividual(ctx context.Context, f models.FilterState, limit int) (models.CategoryByIndividualResponse, error) {
	return observe(ctx, fc, CategoryCategoryBreakdown, func(ctx context.Context) (models.CategoryByIndividualResponse, error) {
		return fc.src.CategoryByIndividual(ctx, f, limit)
	})
}

func (fc *Facade) FieldAccuracy(ctx context.Context, f models.FilterState) (models.FieldAccuracyResponse, error) {
	return observe(ctx, fc, CategoryFieldAccuracy, func(ctx context.Context) (models.FieldAccuracyResponse, error) {
		return fc.src.FieldAccuracy(ctx, f)
	})
}

func (fc *Facade) DocumentAccuracy(ctx context.Context, f models.FilterState) (models.DocumentAccuracyResponse, error) {
	return observe(ctx, fc, CategoryDocumentAccuracy, func(ctx context.Context) (models.DocumentAccuracyResponse, error) {
		return fc.src.DocumentAccuracy(ctx, f)
	})
}

func (fc *Facade) AccuracyTrend(ctx context.Context, f models.FilterState, level models.TrendLevel, period string) (models.AccuracyTrendResponse, error) {
	category := CategoryAccuracyTrend
	if level == models.TrendField {
		category = CategoryFieldLevelTrend
	}
	return observe(ctx, fc, category, func(ctx context.Context) (models.AccuracyTrendResponse, error) {
		return fc.src.AccuracyTrend(ctx, f, level, period)
	})
}

func (fc *Facade) Suppliers(ctx context.Context, aiOnly bool, search string) (models.SupplierListResponse, error) {
	return observe(ctx, fc, CategorySuppliers, func(ctx context.Context) (models.SupplierListResponse, error) {
		return fc.src.Suppliers(ctx, aiOnly, search)
	})
}

func (fc *Facade) Organizations(ctx context.Context, aiOnly bool, search string) (models.OrganizationListResponse, error) {
	return observe(ctx, fc, CategoryOrganizations, func(ctx context.Context) (models.OrganizationListResponse, error) {
		return fc.src.Organizations(ctx, aiOnly, search)
	})
}

func (fc *Facade) AIEnabledCount(ctx context.Context) (models.AIEnabledCountResponse, error) {
	return observe(ctx, fc, CategoryAIEnabledCount, func(ctx context.Context) (models.AIEnabledCountResponse, error) {
		return fc.src.AIEnabledCount(ctx)
	})
}

// Fetch returns the response for any category by name. Summary and export
// use it; handlers call the typed methods.
func (fc *Facade) Fetch(ctx context.Context, category Category, f models.FilterState, opts Options) (interface{}, error) {
	switch category {
	case CategoryVolume:
		return fc.Volume(ctx, f, opts.Period)
	case CategoryCategories:
		return fc.Categories(ctx, f)
	case CategoryPages:
		return fc.Pages(ctx, f)
	case CategoryTimeOfDay:
		return fc.TimeOfDay(ctx, f)
	case CategoryReceivedToOpen:
		return fc.CycleTime(ctx, f, models.CycleReceivedToOpen)
	case CategoryProcessing:
		return fc.CycleTime(ctx, f, models.CycleProcessing)
	case CategoryStateDistribution:
		return fc.StateDistribution(ctx, f)
	case CategoryByIndividual:
		return fc.Productivity(ctx, f, models.ProductivityByIndividual, limitOr(opts.Limit, DefaultProductivityLimit))
	case CategoryDailyAverage:
		return fc.Productivity(ctx, f, models.ProductivityDailyAverage, limitOr(opts.Limit, DefaultProductivityLimit))
	case CategoryProcessingTime:
		return fc.Productivity(ctx, f, models.ProductivityProcessingTime, limitOr(opts.Limit, DefaultProductivityLimit))
	case CategoryCategoryBreakdown:
		return fc.CategoryByIndividual(ctx, f, limitOr(opts.Limit, DefaultBreakdownLimit))
	case CategoryFieldAccuracy:
		return fc.FieldAccuracy(ctx, f)
	case CategoryDocumentAccuracy:
		return fc.DocumentAccuracy(ctx, f)
	case CategoryAccuracyTrend:
		return fc.AccuracyTrend(ctx, f, models.TrendDocument, opts.Period)
	case CategoryFieldLevelTrend:
		return fc.AccuracyTrend(ctx, f, models.TrendField, opts.Period)
	case CategorySuppliers:
		return fc.Suppliers(ctx, f.AIOnly, opts.Search)
	case CategoryOrganizations:
		return fc.Organizations(ctx, f.AIOnly, opts.Search)
	case CategoryAIEnabledCount:
		return fc.AIEnabledCount(ctx)
	}
	return nil, fmt.Errorf("unknown metric category %q", category)
}

func limitOr(limit, def int) int {
	if limit > 0 {
		return limit
	}
	return def
}
