// Package filters owns the dashboard's active filter selection. Every change
// yields a new FilterState value which subscribers receive and re-derive
// their data from.
package filters

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"intakedash/internal/models"
	"intakedash/internal/services/snapshot"
)

// OrganizationSwitcher changes the active snapshot organization
type OrganizationSwitcher interface {
	SwitchOrganization(ctx context.Context, id string) (*snapshot.Active, error)
}

// Coordinator holds the current FilterState
type Coordinator struct {
	live     bool
	switcher OrganizationSwitcher
	log      *zap.Logger

	mu          sync.Mutex
	current     models.FilterState
	subscribers []func(models.FilterState)
}

// New creates a Coordinator starting at the default date window. In static
// mode switcher receives organization selections; it is unused when live.
func New(live bool, switcher OrganizationSwitcher, now time.Time, log *zap.Logger) *Coordinator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Coordinator{
		live:     live,
		switcher: switcher,
		log:      log,
		current:  models.DefaultFilterState(now),
	}
}

// Current returns the active FilterState
func (c *Coordinator) Current() models.FilterState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Subscribe registers fn to receive every new FilterState
func (c *Coordinator) Subscribe(fn func(models.FilterState)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subscribers = append(c.subscribers, fn)
}

// SetDateRange sets the window. Reversed bounds are swapped.
func (c *Coordinator) SetDateRange(start, end time.Time) models.FilterState {
	return c.update(func(f models.FilterState) models.FilterState {
		f.StartDate, f.EndDate = start, end
		return f
	})
}

// SetAIOnly toggles the AI-intake-only filter
func (c *Coordinator) SetAIOnly(on bool) models.FilterState {
	return c.update(func(f models.FilterState) models.FilterState {
		f.AIOnly = on
		return f
	})
}

// SelectSupplier scopes to one supplier; an empty id clears it
func (c *Coordinator) SelectSupplier(id string) models.FilterState {
	return c.update(func(f models.FilterState) models.FilterState {
		return f.WithSupplier(id, c.live)
	})
}

// SelectOrganization scopes to one organization; an empty id clears it. In
// static mode the snapshot's active organization follows, and an id the
// snapshot does not hold is rejected without changing the filter.
func (c *Coordinator) SelectOrganization(ctx context.Context, id string) (models.FilterState, error) {
	if !c.live && id != "" && c.switcher != nil {
		if _, err := c.switcher.SwitchOrganization(ctx, id); err != nil {
			c.log.Warn("Organization selection rejected", zap.String("org_id", id), zap.Error(err))
			return c.Current(), err
		}
	}
	return c.update(func(f models.FilterState) models.FilterState {
		next := f.WithOrganization(id, c.live)
		if !c.live && id != f.OrganizationID {
			// A supplier belongs to one organization's slice
			next.SupplierID = ""
		}
		return next
	}), nil
}

// Clear drops supplier and organization scopes and AI-only, keeping dates
func (c *Coordinator) Clear() models.FilterState {
	return c.update(func(f models.FilterState) models.FilterState {
		return models.FilterState{StartDate: f.StartDate, EndDate: f.EndDate}
	})
}

func (c *Coordinator) update(change func(models.FilterState) models.FilterState) models.FilterState {
	c.mu.Lock()
	next := change(c.current).Normalize(c.live)
	c.current = next
	subs := append(([]func(models.FilterState))(nil), c.subscribers...)
	c.mu.Unlock()

	for _, fn := range subs {
		fn(next)
	}
	return next
}
