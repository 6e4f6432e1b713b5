// Package dashboard exposes the metric categories, filter selection and
// snapshot controls as JSON routes.
package dashboard

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	apphttp "intakedash/internal/http"
	"intakedash/internal/models"
	"intakedash/internal/services/datasource"
	"intakedash/internal/services/export"
	"intakedash/internal/services/filters"
	"intakedash/internal/services/snapshot"
)

// Deps are the services the handlers use. Loader is nil in live mode.
type Deps struct {
	Facade  *datasource.Facade
	Filters *filters.Coordinator
	Loader  *snapshot.Loader
	Log     *zap.Logger
}

// Handlers serves the dashboard API
type Handlers struct {
	facade  *datasource.Facade
	filters *filters.Coordinator
	loader  *snapshot.Loader
	log     *zap.Logger
}

// New creates Handlers
func New(d Deps) *Handlers {
	log := d.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &Handlers{
		facade:  d.Facade,
		filters: d.Filters,
		loader:  d.Loader,
		log:     log,
	}
}

// RegisterRoutes registers all dashboard routes
func (h *Handlers) RegisterRoutes(r chi.Router) {
	r.Route("/api/volume", func(r chi.Router) {
		r.Get("/faxes", h.handleVolume)
		r.Get("/pages", h.handlePages)
		r.Get("/categories", h.handleCategories)
		r.Get("/time-of-day", h.handleTimeOfDay)
	})

	r.Route("/api/cycle-time", func(r chi.Router) {
		r.Get("/received-to-open", h.handleCycleTime(models.CycleReceivedToOpen))
		r.Get("/processing", h.handleCycleTime(models.CycleProcessing))
		r.Get("/state-distribution", h.handleStateDistribution)
	})

	r.Route("/api/productivity", func(r chi.Router) {
		r.Get("/by-individual", h.handleProductivity(models.ProductivityByIndividual))
		r.Get("/daily-average", h.handleProductivity(models.ProductivityDailyAverage))
		r.Get("/by-individual-processing-time", h.handleProductivity(models.ProductivityProcessingTime))
		r.Get("/category-breakdown", h.handleCategoryBreakdown)
	})

	r.Route("/api/accuracy", func(r chi.Router) {
		r.Get("/per-field", h.handleFieldAccuracy)
		r.Get("/document-level", h.handleDocumentAccuracy)
		r.Get("/trend", h.handleAccuracyTrend(models.TrendDocument))
		r.Get("/field-level-trend", h.handleAccuracyTrend(models.TrendField))
	})

	r.Route("/api/suppliers", func(r chi.Router) {
		r.Get("/", h.handleSuppliers)
		r.Get("/organizations", h.handleOrganizations)
		r.Get("/ai-enabled-count", h.handleAIEnabledCount)
	})

	r.Get("/api/organizations/active", h.handleActiveOrganization)
	r.Put("/api/organizations/active", h.handleSelectOrganization)
	r.Get("/api/filters", h.handleFilters)
	r.Put("/api/filters", h.handleUpdateFilters)
	r.Post("/api/snapshot/reload", h.handleReload)

	r.Get("/api/charts/{series}", h.handleChart)
	r.Get("/api/summary", h.handleSummary)
	r.Get("/api/export/{file}", h.handleExport)
}

// filter derives the request's FilterState from the coordinator's selection
// and the query string
func (h *Handlers) filter(r *http.Request) (models.FilterState, error) {
	return apphttp.ParseFilterState(r, h.filters.Current(), h.facade.Live())
}

// serve parses the filter, runs fetch and writes the JSON answer
func serve[T any](h *Handlers, w http.ResponseWriter, r *http.Request, fetch func(context.Context, models.FilterState) (T, error)) {
	f, err := h.filter(r)
	if err != nil {
		apphttp.ErrorResponse(w, h.log, err)
		return
	}
	v, err := fetch(r.Context(), f)
	if err != nil {
		apphttp.ErrorResponse(w, h.log, err)
		return
	}
	apphttp.JSON(w, http.StatusOK, v)
}

func (h *Handlers) handleVolume(w http.ResponseWriter, r *http.Request) {
	period := r.URL.Query().Get("period")
	serve(h, w, r, func(ctx context.Context, f models.FilterState) (models.VolumeResponse, error) {
		return h.facade.Volume(ctx, f, period)
	})
}

func (h *Handlers) handlePages(w http.ResponseWriter, r *http.Request) {
	serve(h, w, r, h.facade.Pages)
}

func (h *Handlers) handleCategories(w http.ResponseWriter, r *http.Request) {
	serve(h, w, r, h.facade.Categories)
}

func (h *Handlers) handleTimeOfDay(w http.ResponseWriter, r *http.Request) {
	serve(h, w, r, h.facade.TimeOfDay)
}

func (h *Handlers) handleCycleTime(metric models.CycleTimeMetric) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		serve(h, w, r, func(ctx context.Context, f models.FilterState) (models.CycleTimeResponse, error) {
			return h.facade.CycleTime(ctx, f, metric)
		})
	}
}

func (h *Handlers) handleStateDistribution(w http.ResponseWriter, r *http.Request) {
	serve(h, w, r, h.facade.StateDistribution)
}

func (h *Handlers) handleProductivity(variant models.ProductivityVariant) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := apphttp.ParseInt(r, "limit", datasource.DefaultProductivityLimit)
		if err != nil {
			apphttp.ErrorResponse(w, h.log, err)
			return
		}
		serve(h, w, r, func(ctx context.Context, f models.FilterState) (models.ProductivityResponse, error) {
			return h.facade.Productivity(ctx, f, variant, limit)
		})
	}
}

func (h *Handlers) handleCategoryBreakdown(w http.ResponseWriter, r *http.Request) {
	limit, err := apphttp.ParseInt(r, "limit", datasource.DefaultBreakdownLimit)
	if err != nil {
		apphttp.ErrorResponse(w, h.log, err)
		return
	}
	serve(h, w, r, func(ctx context.Context, f models.FilterState) (models.CategoryByIndividualResponse, error) {
		return h.facade.CategoryByIndividual(ctx, f, limit)
	})
}

func (h *Handlers) handleFieldAccuracy(w http.ResponseWriter, r *http.Request) {
	serve(h, w, r, h.facade.FieldAccuracy)
}

func (h *Handlers) handleDocumentAccuracy(w http.ResponseWriter, r *http.Request) {
	serve(h, w, r, h.facade.DocumentAccuracy)
}

func (h *Handlers) handleAccuracyTrend(level models.TrendLevel) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		period := r.URL.Query().Get("period")
		serve(h, w, r, func(ctx context.Context, f models.FilterState) (models.AccuracyTrendResponse, error) {
			return h.facade.AccuracyTrend(ctx, f, level, period)
		})
	}
}

func (h *Handlers) handleSuppliers(w http.ResponseWriter, r *http.Request) {
	search := r.URL.Query().Get("search")
	serve(h, w, r, func(ctx context.Context, f models.FilterState) (models.SupplierListResponse, error) {
		return h.facade.Suppliers(ctx, f.AIOnly, search)
	})
}

func (h *Handlers) handleOrganizations(w http.ResponseWriter, r *http.Request) {
	search := r.URL.Query().Get("search")
	serve(h, w, r, func(ctx context.Context, f models.FilterState) (models.OrganizationListResponse, error) {
		return h.facade.Organizations(ctx, f.AIOnly, search)
	})
}

func (h *Handlers) handleAIEnabledCount(w http.ResponseWriter, r *http.Request) {
	v, err := h.facade.AIEnabledCount(r.Context())
	if err != nil {
		apphttp.ErrorResponse(w, h.log, err)
		return
	}
	apphttp.JSON(w, http.StatusOK, v)
}

// activeOrganization is the answer of the organization selection routes
type activeOrganization struct {
	Mode           datasource.Mode      `json:"mode"`
	OrganizationID string               `json:"organization_id"`
	Organization   *models.Organization `json:"organization,omitempty"`
	Filter         models.FilterState   `json:"filter"`
}

func (h *Handlers) activeOrganization(ctx context.Context) (activeOrganization, error) {
	f := h.filters.Current()
	out := activeOrganization{Mode: h.facade.Mode(), OrganizationID: f.OrganizationID, Filter: f}
	if h.loader == nil {
		return out, nil
	}
	active, err := h.loader.Load(ctx)
	if err != nil {
		return out, err
	}
	org := active.Organization
	out.OrganizationID = active.OrganizationID
	out.Organization = &org
	return out, nil
}

func (h *Handlers) handleActiveOrganization(w http.ResponseWriter, r *http.Request) {
	out, err := h.activeOrganization(r.Context())
	if err != nil {
		apphttp.ErrorResponse(w, h.log, err)
		return
	}
	apphttp.JSON(w, http.StatusOK, out)
}

func (h *Handlers) handleSelectOrganization(w http.ResponseWriter, r *http.Request) {
	var body struct {
		OrganizationID string `json:"organization_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		apphttp.Error(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	if _, err := h.filters.SelectOrganization(r.Context(), body.OrganizationID); err != nil {
		apphttp.ErrorResponse(w, h.log, err)
		return
	}
	h.handleActiveOrganization(w, r)
}

func (h *Handlers) handleFilters(w http.ResponseWriter, r *http.Request) {
	apphttp.JSON(w, http.StatusOK, h.filters.Current())
}

// filterUpdate changes only the fields that are present
type filterUpdate struct {
	StartDate      *string `json:"start_date"`
	EndDate        *string `json:"end_date"`
	AIOnly         *bool   `json:"ai_intake_only"`
	SupplierID     *string `json:"supplier_id"`
	OrganizationID *string `json:"supplier_organization_id"`
	Clear          bool    `json:"clear"`
}

func (h *Handlers) handleUpdateFilters(w http.ResponseWriter, r *http.Request) {
	var body filterUpdate
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		apphttp.Error(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	if body.Clear {
		h.filters.Clear()
	}

	if body.StartDate != nil || body.EndDate != nil {
		cur := h.filters.Current()
		start, end := cur.StartDate, cur.EndDate
		var err error
		if body.StartDate != nil {
			if start, err = time.Parse(models.DateLayout, *body.StartDate); err != nil {
				apphttp.Error(w, http.StatusBadRequest, fmt.Sprintf("Invalid start_date %q", *body.StartDate))
				return
			}
		}
		if body.EndDate != nil {
			if end, err = time.Parse(models.DateLayout, *body.EndDate); err != nil {
				apphttp.Error(w, http.StatusBadRequest, fmt.Sprintf("Invalid end_date %q", *body.EndDate))
				return
			}
		}
		h.filters.SetDateRange(start, end)
	}
	if body.AIOnly != nil {
		h.filters.SetAIOnly(*body.AIOnly)
	}
	if body.OrganizationID != nil {
		if _, err := h.filters.SelectOrganization(r.Context(), *body.OrganizationID); err != nil {
			apphttp.ErrorResponse(w, h.log, err)
			return
		}
	}
	if body.SupplierID != nil {
		h.filters.SelectSupplier(*body.SupplierID)
	}

	apphttp.JSON(w, http.StatusOK, h.filters.Current())
}

func (h *Handlers) handleReload(w http.ResponseWriter, r *http.Request) {
	if h.loader == nil {
		apphttp.Error(w, http.StatusNotFound, "Snapshot reload is only available in static mode")
		return
	}

	active, err := h.loader.Reload(r.Context())
	if err != nil {
		apphttp.ErrorResponse(w, h.log, err)
		return
	}
	h.log.Info("Snapshot reloaded", zap.String("active_org", active.OrganizationID))
	apphttp.JSON(w, http.StatusOK, map[string]interface{}{
		"organization_id": active.OrganizationID,
		"date_range":      active.Metadata.DateRange,
		"exported_at":     active.Metadata.ExportedAt,
	})
}

func (h *Handlers) handleSummary(w http.ResponseWriter, r *http.Request) {
	f, err := h.filter(r)
	if err != nil {
		apphttp.ErrorResponse(w, h.log, err)
		return
	}
	opts, err := options(r)
	if err != nil {
		apphttp.ErrorResponse(w, h.log, err)
		return
	}
	apphttp.JSON(w, http.StatusOK, h.facade.Summary(r.Context(), f, opts))
}

func (h *Handlers) handleExport(w http.ResponseWriter, r *http.Request) {
	file := chi.URLParam(r, "file")
	format := strings.TrimPrefix(path.Ext(file), ".")
	contentType, ok := export.ContentTypes[format]
	if !ok {
		apphttp.Error(w, http.StatusBadRequest, "Export format must be csv or xlsx")
		return
	}
	category, ok := datasource.ParseCategory(strings.TrimSuffix(file, path.Ext(file)))
	if !ok {
		apphttp.Error(w, http.StatusNotFound, "Unknown metric category")
		return
	}

	f, err := h.filter(r)
	if err != nil {
		apphttp.ErrorResponse(w, h.log, err)
		return
	}
	opts, err := options(r)
	if err != nil {
		apphttp.ErrorResponse(w, h.log, err)
		return
	}

	v, err := h.facade.Fetch(r.Context(), category, f, opts)
	if err != nil {
		apphttp.ErrorResponse(w, h.log, err)
		return
	}
	table, err := export.TableFor(v)
	if err != nil {
		apphttp.ErrorResponse(w, h.log, err)
		return
	}

	var buf bytes.Buffer
	switch format {
	case export.FormatCSV:
		err = export.WriteCSV(&buf, table)
	case export.FormatXLSX:
		var data []byte
		data, err = export.WriteXLSX(table, string(category))
		buf.Write(data)
	}
	if err != nil {
		apphttp.ErrorResponse(w, h.log, err)
		return
	}

	filename := export.Filename(string(category), f, format)
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Write(buf.Bytes())
}

// options reads the per-category extras shared by summary and export
func options(r *http.Request) (datasource.Options, error) {
	limit, err := apphttp.ParseInt(r, "limit", 0)
	if err != nil {
		return datasource.Options{}, err
	}
	return datasource.Options{
		Period: r.URL.Query().Get("period"),
		Limit:  limit,
		Search: r.URL.Query().Get("search"),
	}, nil
}
