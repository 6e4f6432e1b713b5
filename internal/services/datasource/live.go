package datasource

import (
	"context"
	"net/url"
	"strconv"

	"intakedash/internal/models"
	"intakedash/internal/services/metrics"
	"intakedash/internal/services/querylayer"
)

// QueryLayer is the part of the query-layer client LiveSource needs
type QueryLayer interface {
	Get(ctx context.Context, path string, params url.Values, out interface{}) error
}

// LiveSource fetches per-supplier rows from the query layer and aggregates
// them before returning
type LiveSource struct {
	client QueryLayer
}

// NewLiveSource creates a LiveSource
func NewLiveSource(client QueryLayer) *LiveSource {
	return &LiveSource{client: client}
}

func (s *LiveSource) Mode() Mode { return ModeLive }

// params applies the live exclusivity rule before encoding
func params(f models.FilterState) url.Values {
	return querylayer.Params(f.Normalize(true))
}

func (s *LiveSource) Volume(ctx context.Context, f models.FilterState, period string) (models.VolumeResponse, error) {
	q := params(f)
	if period != "" {
		q.Set("period", period)
	}
	var raw models.VolumeResponse
	if err := s.client.Get(ctx, querylayer.PathVolume, q, &raw); err != nil {
		return models.VolumeResponse{}, err
	}
	if period == "" {
		period = raw.Period
	}
	return metrics.AggregateVolume(raw.Data, period), nil
}

func (s *LiveSource) Categories(ctx context.Context, f models.FilterState) (models.CategoryResponse, error) {
	var raw models.CategoryResponse
	if err := s.client.Get(ctx, querylayer.PathCategories, params(f), &raw); err != nil {
		return models.CategoryResponse{}, err
	}
	return metrics.AggregateCategories(raw.Data), nil
}

func (s *LiveSource) Pages(ctx context.Context, f models.FilterState) (models.PagesResponse, error) {
	var raw models.PagesResponse
	if err := s.client.Get(ctx, querylayer.PathPages, params(f), &raw); err != nil {
		return models.PagesResponse{}, err
	}
	return metrics.NormalizePages(raw), nil
}

func (s *LiveSource) TimeOfDay(ctx context.Context, f models.FilterState) (models.TimeOfDayResponse, error) {
	var raw models.TimeOfDayResponse
	if err := s.client.Get(ctx, querylayer.PathTimeOfDay, params(f), &raw); err != nil {
		return models.TimeOfDayResponse{}, err
	}
	return metrics.CollectTimeOfDay(raw.Data), nil
}

func (s *LiveSource) CycleTime(ctx context.Context, f models.FilterState, metric models.CycleTimeMetric) (models.CycleTimeResponse, error) {
	path := querylayer.PathReceivedToOpen
	if metric == models.CycleProcessing {
		path = querylayer.PathProcessing
	} else {
		metric = models.CycleReceivedToOpen
	}
	var raw models.CycleTimeResponse
	if err := s.client.Get(ctx, path, params(f), &raw); err != nil {
		return models.CycleTimeResponse{}, err
	}
	return metrics.AggregateCycleTime(raw.Data, metric), nil
}

func (s *LiveSource) StateDistribution(ctx context.Context, f models.FilterState) (models.StateResponse, error) {
	var raw models.StateResponse
	if err := s.client.Get(ctx, querylayer.PathStateDistribution, params(f), &raw); err != nil {
		return models.StateResponse{}, err
	}
	return metrics.AggregateStates(raw.Data), nil
}

func (s *LiveSource) Productivity(ctx context.Context, f models.FilterState, variant models.ProductivityVariant, limit int) (models.ProductivityResponse, error) {
	path := querylayer.PathByIndividual
	switch variant {
	case models.ProductivityDailyAverage:
		path = querylayer.PathDailyAverage
	case models.ProductivityProcessingTime:
		path = querylayer.PathProcessingTime
	default:
		variant = models.ProductivityByIndividual
	}

	q := params(f)
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var raw models.ProductivityResponse
	if err := s.client.Get(ctx, path, q, &raw); err != nil {
		return models.ProductivityResponse{}, err
	}
	return limitProductivity(metrics.AggregateProductivity(raw.Data, variant), limit), nil
}

func (s *LiveSource) CategoryByIndividual(ctx context.Context, f models.FilterState, limit int) (models.CategoryByIndividualResponse, error) {
	q := params(f)
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var raw models.CategoryByIndividualResponse
	if err := s.client.Get(ctx, querylayer.PathCategoryBreakdown, q, &raw); err != nil {
		return models.CategoryByIndividualResponse{}, err
	}
	return limitBreakdown(metrics.AggregateCategoryByIndividual(raw.Data), limit), nil
}

func (s *LiveSource) FieldAccuracy(ctx context.Context, f models.FilterState) (models.FieldAccuracyResponse, error) {
	var raw models.FieldAccuracyResponse
	if err := s.client.Get(ctx, querylayer.PathPerField, params(f), &raw); err != nil {
		return models.FieldAccuracyResponse{}, err
	}
	return metrics.AggregateFieldAccuracy(raw.Data), nil
}

func (s *LiveSource) DocumentAccuracy(ctx context.Context, f models.FilterState) (models.DocumentAccuracyResponse, error) {
	var raw models.DocumentAccuracyResponse
	if err := s.client.Get(ctx, querylayer.PathDocumentLevel, params(f), &raw); err != nil {
		return models.DocumentAccuracyResponse{}, err
	}
	return metrics.NormalizeDocumentAccuracy(raw), nil
}

func (s *LiveSource) AccuracyTrend(ctx context.Context, f models.FilterState, level models.TrendLevel, period string) (models.AccuracyTrendResponse, error) {
	path := querylayer.PathAccuracyTrend
	if level == models.TrendField {
		path = querylayer.PathFieldLevelTrend
	}
	q := params(f)
	if period != "" {
		q.Set("period", period)
	}
	var raw models.AccuracyTrendResponse
	if err := s.client.Get(ctx, path, q, &raw); err != nil {
		return models.AccuracyTrendResponse{}, err
	}
	if period == "" {
		period = raw.Period
	}
	return metrics.AggregateAccuracyTrend(raw.Data, period), nil
}

func (s *LiveSource) Suppliers(ctx context.Context, aiOnly bool, search string) (models.SupplierListResponse, error) {
	var raw models.SupplierListResponse
	if err := s.client.Get(ctx, querylayer.PathSuppliers, rosterParams(aiOnly, search), &raw); err != nil {
		return models.SupplierListResponse{}, err
	}
	if raw.Data == nil {
		raw.Data = []models.Supplier{}
	}
	raw.Total = len(raw.Data)
	return raw, nil
}

// liveOrganization is the query layer's organization row
type liveOrganization struct {
	OrganizationID string `json:"organization_id"`
	Name           string `json:"name"`
	NumSuppliers   int    `json:"num_suppliers"`
	HasAIIntake    bool   `json:"has_ai_intake"`
}

func (s *LiveSource) Organizations(ctx context.Context, aiOnly bool, search string) (models.OrganizationListResponse, error) {
	var raw struct {
		Data []liveOrganization `json:"data"`
	}
	if err := s.client.Get(ctx, querylayer.PathOrganizations, rosterParams(aiOnly, search), &raw); err != nil {
		return models.OrganizationListResponse{}, err
	}

	orgs := make([]models.Organization, 0, len(raw.Data))
	for _, o := range raw.Data {
		orgs = append(orgs, models.Organization{
			ID:           o.OrganizationID,
			Name:         o.Name,
			NumSuppliers: o.NumSuppliers,
			HasAIIntake:  o.HasAIIntake,
		})
	}
	return models.OrganizationListResponse{Data: orgs, Total: len(orgs)}, nil
}

func (s *LiveSource) AIEnabledCount(ctx context.Context) (models.AIEnabledCountResponse, error) {
	var raw models.AIEnabledCountResponse
	if err := s.client.Get(ctx, querylayer.PathAIEnabledCount, nil, &raw); err != nil {
		return models.AIEnabledCountResponse{}, err
	}
	return raw, nil
}

func rosterParams(aiOnly bool, search string) url.Values {
	q := url.Values{}
	q.Set("ai_intake_only", strconv.FormatBool(aiOnly))
	if search != "" {
		q.Set("search", search)
	}
	return q
}
