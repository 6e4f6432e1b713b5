package metrics

// Fit is an ordinary-least-squares line over index positions 0..n-1
type Fit struct {
	Slope     float64   `json:"slope"`
	Intercept float64   `json:"intercept"`
	Fitted    []float64 `json:"fitted"`
}

// At returns the fitted value at index x
func (f *Fit) At(x int) float64 {
	return f.Slope*float64(x) + f.Intercept
}

// ChangePct is the percentage change from the first to the last fitted value
func (f *Fit) ChangePct() float64 {
	if len(f.Fitted) == 0 {
		return 0
	}
	return PercentChange(f.Fitted[len(f.Fitted)-1], f.Fitted[0])
}

// TrendLine fits a line to values using position as the independent
// variable. It returns nil when fewer than two values are given.
func TrendLine(values []float64) *Fit {
	n := len(values)
	if n < 2 {
		return nil
	}

	var sumX, sumY float64
	for i, y := range values {
		sumX += float64(i)
		sumY += y
	}
	meanX := sumX / float64(n)
	meanY := sumY / float64(n)

	var num, den float64
	for i, y := range values {
		dx := float64(i) - meanX
		num += dx * (y - meanY)
		den += dx * dx
	}

	fit := &Fit{Slope: num / den}
	fit.Intercept = meanY - fit.Slope*meanX
	fit.Fitted = make([]float64, n)
	for i := range fit.Fitted {
		fit.Fitted[i] = fit.At(i)
	}
	return fit
}

// Trend returns the fitted values for values, or nil when there is no trend
func Trend(values []float64) []float64 {
	fit := TrendLine(values)
	if fit == nil {
		return nil
	}
	return fit.Fitted
}

// LastN returns at most the final n values; n <= 0 returns values unchanged
func LastN(values []float64, n int) []float64 {
	if n <= 0 || n >= len(values) {
		return values
	}
	return values[len(values)-n:]
}
