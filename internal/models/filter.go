package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// DateLayout is the ISO calendar date format used on the wire
const DateLayout = "2006-01-02"

// DefaultLookbackDays is the date window used when none is given
const DefaultLookbackDays = 30

// FilterState is the active set of dashboard filters. It is a value type;
// a change produces a new FilterState rather than mutating one in place.
type FilterState struct {
	StartDate      time.Time `json:"start_date"`
	EndDate        time.Time `json:"end_date"`
	AIOnly         bool      `json:"ai_intake_only"`
	SupplierID     string    `json:"supplier_id,omitempty"`
	OrganizationID string    `json:"supplier_organization_id,omitempty"`
}

// DefaultFilterState returns the last DefaultLookbackDays days ending on now
func DefaultFilterState(now time.Time) FilterState {
	end := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return FilterState{
		StartDate: end.AddDate(0, 0, -DefaultLookbackDays),
		EndDate:   end,
	}
}

// StartISO returns the start date as YYYY-MM-DD
func (f FilterState) StartISO() string {
	return f.StartDate.Format(DateLayout)
}

// EndISO returns the end date as YYYY-MM-DD
func (f FilterState) EndISO() string {
	return f.EndDate.Format(DateLayout)
}

// WithSupplier returns a copy scoped to one supplier. In live mode the
// organization is cleared because the query layer accepts one scope at a time.
func (f FilterState) WithSupplier(id string, live bool) FilterState {
	f.SupplierID = id
	if live && id != "" {
		f.OrganizationID = ""
	}
	return f
}

// WithOrganization returns a copy scoped to one organization. In live mode
// the supplier is cleared.
func (f FilterState) WithOrganization(id string, live bool) FilterState {
	f.OrganizationID = id
	if live && id != "" {
		f.SupplierID = ""
	}
	return f
}

// Normalize resolves a state that arrived with both scopes set. In live mode
// the supplier wins, being the narrower scope; static mode keeps both.
func (f FilterState) Normalize(live bool) FilterState {
	if live && f.SupplierID != "" && f.OrganizationID != "" {
		f.OrganizationID = ""
	}
	if f.EndDate.Before(f.StartDate) {
		f.StartDate, f.EndDate = f.EndDate, f.StartDate
	}
	return f
}

// filterJSON is the wire form of FilterState
type filterJSON struct {
	StartDate      string `json:"start_date"`
	EndDate        string `json:"end_date"`
	AIOnly         bool   `json:"ai_intake_only"`
	SupplierID     string `json:"supplier_id,omitempty"`
	OrganizationID string `json:"supplier_organization_id,omitempty"`
}

// MarshalJSON writes the dates as ISO calendar dates
func (f FilterState) MarshalJSON() ([]byte, error) {
	return json.Marshal(filterJSON{f.StartISO(), f.EndISO(), f.AIOnly, f.SupplierID, f.OrganizationID})
}

// UnmarshalJSON reads the form MarshalJSON writes. Empty dates stay zero.
func (f *FilterState) UnmarshalJSON(data []byte) error {
	var w filterJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	out := FilterState{AIOnly: w.AIOnly, SupplierID: w.SupplierID, OrganizationID: w.OrganizationID}
	var err error
	if w.StartDate != "" {
		if out.StartDate, err = time.Parse(DateLayout, w.StartDate); err != nil {
			return fmt.Errorf("start_date: %w", err)
		}
	}
	if w.EndDate != "" {
		if out.EndDate, err = time.Parse(DateLayout, w.EndDate); err != nil {
			return fmt.Errorf("end_date: %w", err)
		}
	}
	*f = out
	return nil
}
