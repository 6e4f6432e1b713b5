// Package datasource produces metric responses for the dashboard. A Source is
// either live (query layer) or static (exported snapshot); both return the
// same shapes, so handlers never know which one they are talking to.
package datasource

import (
	"context"
	"sort"
	"strings"

	"intakedash/internal/models"
)

// Mode names a Source implementation
type Mode string

const (
	ModeLive   Mode = "live"
	ModeStatic Mode = "static"
)

// Default leaderboard sizes
const (
	DefaultProductivityLimit = 50
	DefaultBreakdownLimit    = 20
)

// Source returns one response per metric category for a FilterState
type Source interface {
	Mode() Mode

	Volume(ctx context.Context, f models.FilterState, period string) (models.VolumeResponse, error)
	Categories(ctx context.Context, f models.FilterState) (models.CategoryResponse, error)
	Pages(ctx context.Context, f models.FilterState) (models.PagesResponse, error)
	TimeOfDay(ctx context.Context, f models.FilterState) (models.TimeOfDayResponse, error)

	CycleTime(ctx context.Context, f models.FilterState, metric models.CycleTimeMetric) (models.CycleTimeResponse, error)
	StateDistribution(ctx context.Context, f models.FilterState) (models.StateResponse, error)

	Productivity(ctx context.Context, f models.FilterState, variant models.ProductivityVariant, limit int) (models.ProductivityResponse, error)
	CategoryByIndividual(ctx context.Context, f models.FilterState, limit int) (models.CategoryByIndividualResponse, error)

	FieldAccuracy(ctx context.Context, f models.FilterState) (models.FieldAccuracyResponse, error)
	DocumentAccuracy(ctx context.Context, f models.FilterState) (models.DocumentAccuracyResponse, error)
	AccuracyTrend(ctx context.Context, f models.FilterState, level models.TrendLevel, period string) (models.AccuracyTrendResponse, error)

	Suppliers(ctx context.Context, aiOnly bool, search string) (models.SupplierListResponse, error)
	Organizations(ctx context.Context, aiOnly bool, search string) (models.OrganizationListResponse, error)
	AIEnabledCount(ctx context.Context) (models.AIEnabledCountResponse, error)
}

// limitProductivity keeps the first limit rows and recomputes the rollups
// from what is left. limit <= 0 keeps everything.
func limitProductivity(resp models.ProductivityResponse, limit int) models.ProductivityResponse {
	if limit <= 0 || len(resp.Data) <= limit {
		return resp
	}
	resp.Data = resp.Data[:limit]
	resp.TotalProcessed = 0
	for _, r := range resp.Data {
		resp.TotalProcessed += r.TotalProcessed
	}
	resp.UniqueIndividuals = len(resp.Data)
	return resp
}

// limitBreakdown keeps the rows of the limit individuals with the most
// documents, preserving the aggregated row order
func limitBreakdown(resp models.CategoryByIndividualResponse, limit int) models.CategoryByIndividualResponse {
	if limit <= 0 {
		return resp
	}

	totals := make(map[string]int)
	names := make(map[string]string)
	for _, r := range resp.Data {
		totals[r.UserID] += r.Count
		names[r.UserID] = r.UserName
	}
	if len(totals) <= limit {
		return resp
	}

	users := make([]string, 0, len(totals))
	for id := range totals {
		users = append(users, id)
	}
	sort.Slice(users, func(i, j int) bool {
		if totals[users[i]] != totals[users[j]] {
			return totals[users[i]] > totals[users[j]]
		}
		if names[users[i]] != names[users[j]] {
			return names[users[i]] < names[users[j]]
		}
		return users[i] < users[j]
	})

	keep := make(map[string]bool, limit)
	for _, id := range users[:limit] {
		keep[id] = true
	}
	data := make([]models.CategoryByIndividualRow, 0, len(resp.Data))
	for _, r := range resp.Data {
		if keep[r.UserID] {
			data = append(data, r)
		}
	}
	resp.Data = data
	return resp
}

// matchesSearch is a case-insensitive substring match; an empty search
// matches everything
func matchesSearch(name, search string) bool {
	if search == "" {
		return true
	}
	return strings.Contains(strings.ToLower(name), strings.ToLower(search))
}
