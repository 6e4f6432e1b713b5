// Package http holds the request parsing and response helpers shared by the
// dashboard handlers.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"intakedash/internal/models"
	"intakedash/internal/services/breaker"
	"intakedash/internal/services/querylayer"
	"intakedash/internal/services/snapshot"
	"intakedash/internal/services/storage"
)

// ErrBadRequest marks request parameters that could not be parsed
var ErrBadRequest = errors.New("bad request")

// ParseFilterState reads the filter query parameters on top of base. Dates
// are ISO calendar dates; live applies the one-scope rule.
func ParseFilterState(r *http.Request, base models.FilterState, live bool) (models.FilterState, error) {
	q := r.URL.Query()
	f := base

	if s := q.Get("start_date"); s != "" {
		d, err := time.Parse(models.DateLayout, s)
		if err != nil {
			return f, fmt.Errorf("%w: start_date %q", ErrBadRequest, s)
		}
		f.StartDate = d
	}
	if s := q.Get("end_date"); s != "" {
		d, err := time.Parse(models.DateLayout, s)
		if err != nil {
			return f, fmt.Errorf("%w: end_date %q", ErrBadRequest, s)
		}
		f.EndDate = d
	}
	if s := q.Get("ai_intake_only"); s != "" {
		on, err := strconv.ParseBool(s)
		if err != nil {
			return f, fmt.Errorf("%w: ai_intake_only %q", ErrBadRequest, s)
		}
		f.AIOnly = on
	}
	if q.Has("supplier_id") {
		f.SupplierID = q.Get("supplier_id")
	}
	if q.Has("supplier_organization_id") {
		f.OrganizationID = q.Get("supplier_organization_id")
	}

	return f.Normalize(live), nil
}

// ParseInt reads a non-negative integer query parameter, or def when absent
func ParseInt(r *http.Request, name string, def int) (int, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %s %q", ErrBadRequest, name, s)
	}
	return n, nil
}

// JSON writes v with the given status
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// Error writes {"error": message}
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// StatusFor maps a service error to an HTTP status
func StatusFor(err error) int {
	switch {
	case errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, snapshot.ErrUnknownOrganization):
		return http.StatusNotFound
	case breaker.IsOpen(err),
		errors.Is(err, snapshot.ErrSnapshotUnavailable),
		errors.Is(err, storage.ErrLocked):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, querylayer.ErrUpstream),
		errors.Is(err, snapshot.ErrMalformedSnapshot):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// ErrorResponse logs err and writes it with the status StatusFor picks
func ErrorResponse(w http.ResponseWriter, log *zap.Logger, err error) {
	status := StatusFor(err)
	if status >= 500 {
		log.Error("Request failed", zap.Int("status", status), zap.Error(err))
	} else {
		log.Info("Request rejected", zap.Int("status", status), zap.Error(err))
	}
	Error(w, status, err.Error())
}
