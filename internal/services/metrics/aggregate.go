package metrics

import (
	"sort"

	"intakedash/internal/models"
)

// AggregateVolume sums counts per date, ascending by date
func AggregateVolume(rows []models.VolumeRow, period string) models.VolumeResponse {
	g := newGrouper[string, models.VolumeRow]()
	for _, r := range rows {
		agg := g.get(r.Date, func() *models.VolumeRow { return &models.VolumeRow{Date: r.Date} })
		agg.Count += r.Count
	}

	data := make([]models.VolumeRow, 0, g.len())
	total := 0
	g.each(func(_ string, v *models.VolumeRow) {
		data = append(data, *v)
		total += v.Count
	})
	sort.SliceStable(data, func(i, j int) bool { return data[i].Date < data[j].Date })

	if period == "" {
		period = "day"
	}
	return models.VolumeResponse{Data: data, Total: total, Period: period}
}

// AggregateCategories sums counts per category and re-derives each share
// from the summed counts. Largest category first.
func AggregateCategories(rows []models.CategoryRow) models.CategoryResponse {
	g := newGrouper[string, models.CategoryRow]()
	for _, r := range rows {
		agg := g.get(r.Category, func() *models.CategoryRow { return &models.CategoryRow{Category: r.Category} })
		agg.Count += r.Count
	}

	data := make([]models.CategoryRow, 0, g.len())
	total := 0
	g.each(func(_ string, v *models.CategoryRow) {
		data = append(data, *v)
		total += v.Count
	})
	for i := range data {
		data[i].Percentage = Percentage(float64(data[i].Count), float64(total))
	}
	sort.SliceStable(data, func(i, j int) bool {
		if data[i].Count != data[j].Count {
			return data[i].Count > data[j].Count
		}
		return data[i].Category < data[j].Category
	})

	return models.CategoryResponse{Data: data, Total: total}
}

type cycleAcc struct {
	count int
	avg   Weighted
}

// AggregateCycleTime sums counts per date and takes the count-weighted mean
// of the average durations. The overall average is weighted the same way.
func AggregateCycleTime(rows []models.CycleTimeRow, metric models.CycleTimeMetric) models.CycleTimeResponse {
	g := newGrouper[string, cycleAcc]()
	for _, r := range rows {
		acc := g.get(r.Date, func() *cycleAcc { return &cycleAcc{} })
		acc.count += r.Count
		acc.avg.Add(r.AvgMinutes, float64(r.Count))
	}

	data := make([]models.CycleTimeRow, 0, g.len())
	var overall Weighted
	g.each(func(date string, acc *cycleAcc) {
		row := models.CycleTimeRow{Date: date, AvgMinutes: acc.avg.Value(), Count: acc.count}
		overall.Add(row.AvgMinutes, float64(row.Count))
		data = append(data, row)
	})
	sort.SliceStable(data, func(i, j int) bool { return data[i].Date < data[j].Date })

	return models.CycleTimeResponse{
		Data:              data,
		OverallAvgMinutes: overall.Value(),
		MetricType:        metric,
	}
}

// AggregateStates sums counts per outcome state and re-derives each share.
// Most frequent state first.
func AggregateStates(rows []models.StateRow) models.StateResponse {
	g := newGrouper[string, models.StateRow]()
	for _, r := range rows {
		agg := g.get(r.State, func() *models.StateRow { return &models.StateRow{State: r.State, Label: r.Label} })
		agg.Count += r.Count
	}

	data := make([]models.StateRow, 0, g.len())
	total := 0
	g.each(func(_ string, v *models.StateRow) {
		if v.Label == "" {
			v.Label = StateLabel(v.State)
		}
		data = append(data, *v)
		total += v.Count
	})
	for i := range data {
		data[i].Percentage = Percentage(float64(data[i].Count), float64(total))
	}
	sort.SliceStable(data, func(i, j int) bool {
		if data[i].Count != data[j].Count {
			return data[i].Count > data[j].Count
		}
		return data[i].State < data[j].State
	})

	return models.StateResponse{Data: data, Total: total}
}

type productivityAcc struct {
	row    models.ProductivityRow
	median Weighted
}

// AggregateProductivity combines one individual's rows across suppliers.
// Totals and per-day rates add up; median minutes is weighted by documents
// processed and only over rows that carry it. The daily-average leaderboard
// ranks by avg_per_day, the processing-time one by median_minutes ascending
// with missing medians last, the rest by total_processed.
func AggregateProductivity(rows []models.ProductivityRow, variant models.ProductivityVariant) models.ProductivityResponse {
	g := newGrouper[string, productivityAcc]()
	for _, r := range rows {
		acc := g.get(r.UserID, func() *productivityAcc {
			return &productivityAcc{row: models.ProductivityRow{UserID: r.UserID}}
		})
		if acc.row.UserName == "" {
			acc.row.UserName = r.UserName
		}
		acc.row.TotalProcessed += r.TotalProcessed
		acc.row.AvgPerDay += r.AvgPerDay
		acc.median.AddOptional(r.MedianMinutes, float64(r.TotalProcessed))
	}

	data := make([]models.ProductivityRow, 0, g.len())
	total := 0
	g.each(func(_ string, acc *productivityAcc) {
		row := acc.row
		row.AvgPerDay = Round2(row.AvgPerDay)
		row.MedianMinutes = acc.median.Optional()
		data = append(data, row)
		total += row.TotalProcessed
	})

	sort.SliceStable(data, func(i, j int) bool {
		a, b := data[i], data[j]
		switch variant {
		case models.ProductivityDailyAverage:
			if a.AvgPerDay != b.AvgPerDay {
				return a.AvgPerDay > b.AvgPerDay
			}
		case models.ProductivityProcessingTime:
			if (a.MedianMinutes == nil) != (b.MedianMinutes == nil) {
				return b.MedianMinutes == nil
			}
			if a.MedianMinutes != nil && *a.MedianMinutes != *b.MedianMinutes {
				return *a.MedianMinutes < *b.MedianMinutes
			}
			if a.UserName != b.UserName {
				return a.UserName < b.UserName
			}
			return a.UserID < b.UserID
		}
		if a.TotalProcessed != b.TotalProcessed {
			return a.TotalProcessed > b.TotalProcessed
		}
		if a.UserName != b.UserName {
			return a.UserName < b.UserName
		}
		return a.UserID < b.UserID
	})

	return models.ProductivityResponse{
		Data:              data,
		TotalProcessed:    total,
		UniqueIndividuals: len(data),
	}
}

type userCategoryKey struct {
	userID   string
	category string
}

// AggregateCategoryByIndividual sums counts per (individual, category) and
// re-derives each share against that individual's total.
func AggregateCategoryByIndividual(rows []models.CategoryByIndividualRow) models.CategoryByIndividualResponse {
	g := newGrouper[userCategoryKey, models.CategoryByIndividualRow]()
	userTotals := make(map[string]int)
	for _, r := range rows {
		key := userCategoryKey{userID: r.UserID, category: r.Category}
		agg := g.get(key, func() *models.CategoryByIndividualRow {
			return &models.CategoryByIndividualRow{UserID: r.UserID, UserName: r.UserName, Category: r.Category}
		})
		if agg.UserName == "" {
			agg.UserName = r.UserName
		}
		agg.Count += r.Count
		userTotals[r.UserID] += r.Count
	}

	data := make([]models.CategoryByIndividualRow, 0, g.len())
	g.each(func(_ userCategoryKey, v *models.CategoryByIndividualRow) {
		row := *v
		row.Percentage = Percentage(float64(row.Count), float64(userTotals[row.UserID]))
		data = append(data, row)
	})
	sort.SliceStable(data, func(i, j int) bool {
		a, b := data[i], data[j]
		if a.UserName != b.UserName {
			return a.UserName < b.UserName
		}
		if a.UserID != b.UserID {
			return a.UserID < b.UserID
		}
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Category < b.Category
	})

	return models.CategoryByIndividualResponse{Data: data}
}

type fieldKey struct {
	recordType string
	field      string
}

type fieldAcc struct {
	row models.FieldAccuracyRow
	pct Weighted
}

// AggregateFieldAccuracy sums document counts per field and weights the
// accuracy by documents. Least accurate field first.
func AggregateFieldAccuracy(rows []models.FieldAccuracyRow) models.FieldAccuracyResponse {
	g := newGrouper[fieldKey, fieldAcc]()
	for _, r := range rows {
		acc := g.get(fieldKey{r.RecordType, r.FieldIdentifier}, func() *fieldAcc {
			return &fieldAcc{row: models.FieldAccuracyRow{RecordType: r.RecordType, FieldIdentifier: r.FieldIdentifier}}
		})
		acc.row.TotalDocs += r.TotalDocs
		acc.row.AccurateDocs += r.AccurateDocs
		acc.pct.Add(r.AccuracyPct, float64(r.TotalDocs))
	}

	data := make([]models.FieldAccuracyRow, 0, g.len())
	var totalDocs, accurateDocs int
	g.each(func(_ fieldKey, acc *fieldAcc) {
		row := acc.row
		row.AccuracyPct = Round2(acc.pct.Value())
		data = append(data, row)
		totalDocs += row.TotalDocs
		accurateDocs += row.AccurateDocs
	})
	sort.SliceStable(data, func(i, j int) bool {
		a, b := data[i], data[j]
		if a.AccuracyPct != b.AccuracyPct {
			return a.AccuracyPct < b.AccuracyPct
		}
		if a.RecordType != b.RecordType {
			return a.RecordType < b.RecordType
		}
		return a.FieldIdentifier < b.FieldIdentifier
	})

	return models.FieldAccuracyResponse{
		Data:               data,
		OverallAccuracyPct: Percentage(float64(accurateDocs), float64(totalDocs)),
		TotalFields:        len(data),
	}
}

type trendAcc struct {
	row models.AccuracyTrendRow
	pct Weighted
}

// AggregateAccuracyTrend sums documents and changed documents per period and
// weights the accuracy by documents. The overall rate is the share of
// documents without changes.
func AggregateAccuracyTrend(rows []models.AccuracyTrendRow, period string) models.AccuracyTrendResponse {
	g := newGrouper[string, trendAcc]()
	for _, r := range rows {
		acc := g.get(r.Date, func() *trendAcc { return &trendAcc{row: models.AccuracyTrendRow{Date: r.Date}} })
		acc.row.TotalDocs += r.TotalDocs
		acc.row.DocsWithChanges += r.DocsWithChanges
		acc.pct.Add(r.AccuracyPct, float64(r.TotalDocs))
	}

	data := make([]models.AccuracyTrendRow, 0, g.len())
	var totalDocs, changed int
	g.each(func(_ string, acc *trendAcc) {
		row := acc.row
		row.AccuracyPct = Round2(acc.pct.Value())
		data = append(data, row)
		totalDocs += row.TotalDocs
		changed += row.DocsWithChanges
	})
	sort.SliceStable(data, func(i, j int) bool { return data[i].Date < data[j].Date })

	if period == "" {
		period = "week"
	}
	return models.AccuracyTrendResponse{
		Data:               data,
		OverallAccuracyPct: Percentage(float64(totalDocs-changed), float64(totalDocs)),
		Period:             period,
	}
}

// CollectTimeOfDay concatenates raw timestamps without combining them
func CollectTimeOfDay(rows []models.TimeOfDayRow) models.TimeOfDayResponse {
	data := make([]models.TimeOfDayRow, 0, len(rows))
	data = append(data, rows...)
	return models.TimeOfDayResponse{Data: data, Total: len(data)}
}

// NormalizePages fills in the average page count when it is missing
func NormalizePages(p models.PagesResponse) models.PagesResponse {
	if p.AvgPagesPerFax == nil && p.TotalDocuments > 0 {
		avg := Round2(float64(p.TotalPages) / float64(p.TotalDocuments))
		p.AvgPagesPerFax = &avg
	}
	return p
}

// NormalizeDocumentAccuracy derives the no-edit count and rate when the
// source left them out
func NormalizeDocumentAccuracy(d models.DocumentAccuracyResponse) models.DocumentAccuracyResponse {
	if d.DocsNoEdits == 0 && d.TotalAIDocs > d.DocsWithEdits {
		d.DocsNoEdits = d.TotalAIDocs - d.DocsWithEdits
	}
	if d.AccuracyPct == 0 && d.TotalAIDocs > 0 {
		d.AccuracyPct = Percentage(float64(d.DocsNoEdits), float64(d.TotalAIDocs))
	}
	return d
}
