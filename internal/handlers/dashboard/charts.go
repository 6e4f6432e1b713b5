package dashboard

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	apphttp "intakedash/internal/http"
	"intakedash/internal/models"
	"intakedash/internal/services/metrics"
)

// series is one labelled time series ready to chart
type series struct {
	Title  string
	YTitle string
	Labels []string
	Values []float64
}

// loadSeries fetches the named series for f
func (h *Handlers) loadSeries(ctx context.Context, name string, f models.FilterState, period string) (*series, bool, error) {
	switch name {
	case "volume":
		resp, err := h.facade.Volume(ctx, f, period)
		if err != nil {
			return nil, true, err
		}
		s := &series{Title: "Documents Received", YTitle: "Documents"}
		for _, row := range resp.Data {
			s.Labels = append(s.Labels, row.Date)
			s.Values = append(s.Values, float64(row.Count))
		}
		return s, true, nil
	case "received_to_open", "processing":
		resp, err := h.facade.CycleTime(ctx, f, models.CycleTimeMetric(name))
		if err != nil {
			return nil, true, err
		}
		title := "Received to Open"
		if name == "processing" {
			title = "Processing Time"
		}
		s := &series{Title: title, YTitle: "Minutes"}
		for _, row := range resp.Data {
			s.Labels = append(s.Labels, row.Date)
			s.Values = append(s.Values, row.AvgMinutes)
		}
		return s, true, nil
	case "accuracy_trend", "field_level_trend":
		level, title := models.TrendDocument, "Document Accuracy"
		if name == "field_level_trend" {
			level, title = models.TrendField, "Field Accuracy"
		}
		resp, err := h.facade.AccuracyTrend(ctx, f, level, period)
		if err != nil {
			return nil, true, err
		}
		s := &series{Title: title, YTitle: "Accuracy %"}
		for _, row := range resp.Data {
			s.Labels = append(s.Labels, row.Date)
			s.Values = append(s.Values, row.AccuracyPct)
		}
		return s, true, nil
	}
	return nil, false, nil
}

// buildChart renders s as a Plotly line with a dashed least-squares trend
// over the last window points. The trend is omitted when fewer than two
// points are available.
func buildChart(s *series, window int) models.ChartResponse {
	resp := models.ChartResponse{
		Data: []models.ChartData{{
			Type: "scatter",
			Mode: "lines+markers",
			Name: s.Title,
			X:    s.Labels,
			Y:    s.Values,
			Line: &models.ChartLine{Color: "#3b82f6"},
		}},
		Layout: models.ChartLayout{
			Title:      s.Title,
			XAxisTitle: "Date",
			YAxisTitle: s.YTitle,
		},
	}

	values := metrics.LastN(s.Values, window)
	fit := metrics.TrendLine(values)
	if fit == nil {
		return resp
	}
	labels := s.Labels[len(s.Labels)-len(values):]
	fitted := make([]float64, len(fit.Fitted))
	for i, v := range fit.Fitted {
		fitted[i] = metrics.Round2(v)
	}

	resp.Data = append(resp.Data, models.ChartData{
		Type: "scatter",
		Mode: "lines",
		Name: fmt.Sprintf("Trend (%+.1f%%)", fit.ChangePct()),
		X:    labels,
		Y:    fitted,
		Line: &models.ChartLine{Dash: "dash", Color: "#94a3b8"},
	})
	resp.Layout.ShowLegend = true
	return resp
}

func (h *Handlers) handleChart(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "series")

	window, err := apphttp.ParseInt(r, "window", 0)
	if err != nil {
		apphttp.ErrorResponse(w, h.log, err)
		return
	}
	f, err := h.filter(r)
	if err != nil {
		apphttp.ErrorResponse(w, h.log, err)
		return
	}

	s, ok, err := h.loadSeries(r.Context(), name, f, r.URL.Query().Get("period"))
	if !ok {
		apphttp.Error(w, http.StatusNotFound, "Unknown chart series")
		return
	}
	if err != nil {
		apphttp.ErrorResponse(w, h.log, err)
		return
	}

	apphttp.JSON(w, http.StatusOK, buildChart(s, window))
}
