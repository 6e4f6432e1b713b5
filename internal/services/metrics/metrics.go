// Package metrics combines per-supplier metric rows into organization views
// and fits trend lines over the resulting series.
package metrics

import (
	"math"
	"strings"
)

// Round2 rounds to two decimal places
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Percentage returns part/total*100 rounded to two decimals, or 0 when total is 0
func Percentage(part, total float64) float64 {
	if total == 0 {
		return 0
	}
	return Round2(part / total * 100)
}

// PercentChange calculates the percentage change between two values
func PercentChange(current, previous float64) float64 {
	if previous == 0 {
		if current == 0 {
			return 0
		}
		return 100
	}
	return ((current - previous) / math.Abs(previous)) * 100
}

var stateLabels = map[string]string{
	"assigned":             "Assigned",
	"assigned_other":       "Assigned (other)",
	"attached_to_existing": "Attached to existing order",
	"discarded":            "Discarded",
	"emailed":              "Emailed",
	"generated_new":        "Generated new order",
	"pushed":               "Pushed",
	"split":                "Split",
}

// StateLabel returns the display label for a document outcome state
func StateLabel(state string) string {
	if label, ok := stateLabels[state]; ok {
		return label
	}
	words := strings.Fields(strings.ReplaceAll(state, "_", " "))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
	}
	return strings.Join(words, " ")
}
