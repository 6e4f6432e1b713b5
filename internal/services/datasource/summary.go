package datasource

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"intakedash/internal/models"
)

// summaryConcurrency bounds how many categories are fetched at once
const summaryConcurrency = 4

// Summary is every metric category for one FilterState. A category that
// failed appears in Errors and is absent from Data.
type Summary struct {
	Mode   Mode                     `json:"mode"`
	Filter models.FilterState       `json:"filter"`
	Data   map[Category]interface{} `json:"data"`
	Errors map[Category]string      `json:"errors,omitempty"`
}

// Summary fetches every metric category concurrently. One category failing
// does not cancel the others.
func (fc *Facade) Summary(ctx context.Context, f models.FilterState, opts Options) *Summary {
	out := &Summary{
		Mode:   fc.Mode(),
		Filter: f,
		Data:   make(map[Category]interface{}, len(MetricCategories)),
	}

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(summaryConcurrency)

	for _, category := range MetricCategories {
		category := category
		g.Go(func() error {
			v, err := fc.Fetch(ctx, category, f, opts)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if out.Errors == nil {
					out.Errors = make(map[Category]string)
				}
				out.Errors[category] = err.Error()
				return nil
			}
			out.Data[category] = v
			return nil
		})
	}
	_ = g.Wait()

	return out
}
