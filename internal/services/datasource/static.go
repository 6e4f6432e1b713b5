package datasource

import (
	"context"
	"sort"

	"intakedash/internal/models"
	"intakedash/internal/services/metrics"
	"intakedash/internal/services/snapshot"
)

// SnapshotReader is the part of the snapshot loader StaticSource needs
type SnapshotReader interface {
	View(ctx context.Context, id string) (*snapshot.Active, error)
	Organizations(ctx context.Context) ([]models.Organization, error)
}

// StaticSource answers from an exported snapshot. The snapshot covers a
// fixed date range, so only the organization and supplier scopes apply.
type StaticSource struct {
	loader SnapshotReader
}

// NewStaticSource creates a StaticSource
func NewStaticSource(loader SnapshotReader) *StaticSource {
	return &StaticSource{loader: loader}
}

func (s *StaticSource) Mode() Mode { return ModeStatic }

// slice returns the metric section for the filter's organization, or the
// active one when none is set
func (s *StaticSource) slice(ctx context.Context, f models.FilterState) (*models.OrgSlice, error) {
	view, err := s.loader.View(ctx, f.OrganizationID)
	if err != nil {
		return nil, err
	}
	if view.Slice == nil {
		return &models.OrgSlice{}, nil
	}
	return view.Slice, nil
}

// perSupplier returns the pre-computed aggregates for the selected supplier
func perSupplier(slice *models.OrgSlice, supplierID string) *models.PerSupplier {
	if ps := slice.PerSupplier[supplierID]; ps != nil {
		return ps
	}
	return &models.PerSupplier{}
}

// forSupplier keeps rows belonging to supplierID. No supplier keeps all rows.
func forSupplier[T any](rows []T, supplierID string, supplierOf func(T) string) []T {
	if supplierID == "" {
		return rows
	}
	out := make([]T, 0, len(rows))
	for _, r := range rows {
		if supplierOf(r) == supplierID {
			out = append(out, r)
		}
	}
	return out
}

func (s *StaticSource) Volume(ctx context.Context, f models.FilterState, period string) (models.VolumeResponse, error) {
	slice, err := s.slice(ctx, f)
	if err != nil {
		return models.VolumeResponse{}, err
	}
	rows := forSupplier(slice.Organization.VolumeByDay, f.SupplierID, func(r models.VolumeRow) string { return r.SupplierID })
	return metrics.AggregateVolume(rows, "day"), nil
}

func (s *StaticSource) Categories(ctx context.Context, f models.FilterState) (models.CategoryResponse, error) {
	slice, err := s.slice(ctx, f)
	if err != nil {
		return models.CategoryResponse{}, err
	}
	rows := forSupplier(slice.Organization.Categories, f.SupplierID, func(r models.CategoryRow) string { return r.SupplierID })
	return metrics.AggregateCategories(rows), nil
}

func (s *StaticSource) Pages(ctx context.Context, f models.FilterState) (models.PagesResponse, error) {
	slice, err := s.slice(ctx, f)
	if err != nil {
		return models.PagesResponse{}, err
	}
	if f.SupplierID == "" {
		return metrics.NormalizePages(slice.Organization.Pages), nil
	}
	if p := perSupplier(slice, f.SupplierID).Pages; p != nil {
		return metrics.NormalizePages(*p), nil
	}
	return models.PagesResponse{}, nil
}

func (s *StaticSource) TimeOfDay(ctx context.Context, f models.FilterState) (models.TimeOfDayResponse, error) {
	slice, err := s.slice(ctx, f)
	if err != nil {
		return models.TimeOfDayResponse{}, err
	}
	rows := forSupplier(slice.Organization.TimeOfDay.Data, f.SupplierID, func(r models.TimeOfDayRow) string { return r.SupplierID })
	return metrics.CollectTimeOfDay(rows), nil
}

func (s *StaticSource) CycleTime(ctx context.Context, f models.FilterState, metric models.CycleTimeMetric) (models.CycleTimeResponse, error) {
	slice, err := s.slice(ctx, f)
	if err != nil {
		return models.CycleTimeResponse{}, err
	}
	section := slice.Organization.CycleTime.ReceivedToOpen
	if metric == models.CycleProcessing {
		section = slice.Organization.CycleTime.Processing
	} else {
		metric = models.CycleReceivedToOpen
	}
	rows := forSupplier(section.Data, f.SupplierID, func(r models.CycleTimeRow) string { return r.SupplierID })
	return metrics.AggregateCycleTime(rows, metric), nil
}

func (s *StaticSource) StateDistribution(ctx context.Context, f models.FilterState) (models.StateResponse, error) {
	slice, err := s.slice(ctx, f)
	if err != nil {
		return models.StateResponse{}, err
	}
	rows := slice.Organization.CycleTime.StateDistribution.Data
	if anyTagged(rows, func(r models.StateRow) string { return r.SupplierID }) {
		rows = forSupplier(rows, f.SupplierID, func(r models.StateRow) string { return r.SupplierID })
	}
	return metrics.AggregateStates(rows), nil
}

// anyTagged reports whether any row carries a supplier. Exports that only
// hold organization totals answer supplier selections with those totals.
func anyTagged[T any](rows []T, supplierOf func(T) string) bool {
	for _, r := range rows {
		if supplierOf(r) != "" {
			return true
		}
	}
	return false
}

func (s *StaticSource) Productivity(ctx context.Context, f models.FilterState, variant models.ProductivityVariant, limit int) (models.ProductivityResponse, error) {
	slice, err := s.slice(ctx, f)
	if err != nil {
		return models.ProductivityResponse{}, err
	}
	switch variant {
	case models.ProductivityDailyAverage, models.ProductivityProcessingTime:
	default:
		variant = models.ProductivityByIndividual
	}
	board := slice.Organization.Productivity.Variant(variant)
	rows := forSupplier(board.Data, f.SupplierID, func(r models.ProductivityRow) string { return r.SupplierID })
	return limitProductivity(metrics.AggregateProductivity(rows, variant), limit), nil
}

func (s *StaticSource) CategoryByIndividual(ctx context.Context, f models.FilterState, limit int) (models.CategoryByIndividualResponse, error) {
	slice, err := s.slice(ctx, f)
	if err != nil {
		return models.CategoryByIndividualResponse{}, err
	}
	rows := forSupplier(slice.Organization.Productivity.CategoryBreakdown.Data, f.SupplierID, func(r models.CategoryByIndividualRow) string { return r.SupplierID })
	return limitBreakdown(metrics.AggregateCategoryByIndividual(rows), limit), nil
}

func (s *StaticSource) FieldAccuracy(ctx context.Context, f models.FilterState) (models.FieldAccuracyResponse, error) {
	slice, err := s.slice(ctx, f)
	if err != nil {
		return models.FieldAccuracyResponse{}, err
	}
	rows := forSupplier(slice.Organization.Accuracy.PerField.Data, f.SupplierID, func(r models.FieldAccuracyRow) string { return r.SupplierID })
	return metrics.AggregateFieldAccuracy(rows), nil
}

func (s *StaticSource) DocumentAccuracy(ctx context.Context, f models.FilterState) (models.DocumentAccuracyResponse, error) {
	slice, err := s.slice(ctx, f)
	if err != nil {
		return models.DocumentAccuracyResponse{}, err
	}
	if f.SupplierID == "" {
		return metrics.NormalizeDocumentAccuracy(slice.Organization.Accuracy.DocumentLevel), nil
	}
	if d := perSupplier(slice, f.SupplierID).DocumentAccuracy; d != nil {
		return metrics.NormalizeDocumentAccuracy(*d), nil
	}
	return models.DocumentAccuracyResponse{}, nil
}

// AccuracyTrend uses the period the snapshot was exported with; the
// requested period only fills in when the export recorded none
func (s *StaticSource) AccuracyTrend(ctx context.Context, f models.FilterState, level models.TrendLevel, period string) (models.AccuracyTrendResponse, error) {
	slice, err := s.slice(ctx, f)
	if err != nil {
		return models.AccuracyTrendResponse{}, err
	}
	section := slice.Organization.Accuracy.Trend
	if level == models.TrendField {
		section = slice.Organization.Accuracy.FieldLevelTrend
	}
	if section.Period != "" {
		period = section.Period
	}
	rows := forSupplier(section.Data, f.SupplierID, func(r models.AccuracyTrendRow) string { return r.SupplierID })
	return metrics.AggregateAccuracyTrend(rows, period), nil
}

// Suppliers lists the active organization's suppliers by name
func (s *StaticSource) Suppliers(ctx context.Context, aiOnly bool, search string) (models.SupplierListResponse, error) {
	slice, err := s.slice(ctx, models.FilterState{})
	if err != nil {
		return models.SupplierListResponse{}, err
	}

	data := make([]models.Supplier, 0, len(slice.Suppliers))
	for _, sup := range slice.Suppliers {
		if aiOnly && !sup.AIIntakeEnabled {
			continue
		}
		if !matchesSearch(sup.Name, search) {
			continue
		}
		data = append(data, sup)
	}
	sort.SliceStable(data, func(i, j int) bool { return data[i].Name < data[j].Name })
	return models.SupplierListResponse{Data: data, Total: len(data)}, nil
}

// Organizations lists the snapshot roster. The roster does not record AI
// intake, so aiOnly is answered from each organization's supplier list.
func (s *StaticSource) Organizations(ctx context.Context, aiOnly bool, search string) (models.OrganizationListResponse, error) {
	orgs, err := s.loader.Organizations(ctx)
	if err != nil {
		return models.OrganizationListResponse{}, err
	}

	data := make([]models.Organization, 0, len(orgs))
	for _, o := range orgs {
		if !matchesSearch(o.Name, search) {
			continue
		}
		view, err := s.loader.View(ctx, o.ID)
		if err != nil {
			return models.OrganizationListResponse{}, err
		}
		o.HasAIIntake = o.HasAIIntake || hasAIIntake(view.Slice)
		if aiOnly && !o.HasAIIntake {
			continue
		}
		data = append(data, o)
	}
	return models.OrganizationListResponse{Data: data, Total: len(data)}, nil
}

// AIEnabledCount counts AI-enabled suppliers in the active organization
func (s *StaticSource) AIEnabledCount(ctx context.Context) (models.AIEnabledCountResponse, error) {
	slice, err := s.slice(ctx, models.FilterState{})
	if err != nil {
		return models.AIEnabledCountResponse{}, err
	}
	n := 0
	for _, sup := range slice.Suppliers {
		if sup.AIIntakeEnabled {
			n++
		}
	}
	return models.AIEnabledCountResponse{AIEnabledCount: n}, nil
}

func hasAIIntake(slice *models.OrgSlice) bool {
	if slice == nil {
		return false
	}
	for _, sup := range slice.Suppliers {
		if sup.AIIntakeEnabled {
			return true
		}
	}
	return false
}
