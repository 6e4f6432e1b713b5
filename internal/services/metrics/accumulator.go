package metrics

// Weighted accumulates a weighted mean as a (weighted sum, weight total) pair.
// Observations with a non-positive weight contribute nothing.
// A measure seen only with zero weight still counts as present.
type Weighted struct {
	sum     float64
	weight  float64
	present bool
}

// Add records value with the given weight
func (w *Weighted) Add(value, weight float64) {
	w.present = true
	if weight <= 0 {
		return
	}
	w.sum += value * weight
	w.weight += weight
}

// AddOptional records value if present. A nil value leaves the accumulator untouched.
func (w *Weighted) AddOptional(value *float64, weight float64) {
	if value == nil {
		return
	}
	w.Add(*value, weight)
}

// Weight returns the total weight recorded
func (w *Weighted) Weight() float64 {
	return w.weight
}

// Value finalizes the weighted mean; 0 when no weight was recorded
func (w *Weighted) Value() float64 {
	if w.weight == 0 {
		return 0
	}
	return w.sum / w.weight
}

// Optional finalizes like Value but returns nil when no observation carried
// the measure, so an absent measure stays absent after aggregation. A present
// measure with zero total weight finalizes to 0.
func (w *Weighted) Optional() *float64 {
	if !w.present {
		return nil
	}
	v := w.Value()
	return &v
}

// grouper collects values by key and remembers first-seen key order
type grouper[K comparable, V any] struct {
	keys  []K
	items map[K]*V
}

func newGrouper[K comparable, V any]() *grouper[K, V] {
	return &grouper[K, V]{items: make(map[K]*V)}
}

// get returns the entry for key, creating it with init on first use
func (g *grouper[K, V]) get(key K, init func() *V) *V {
	if v, ok := g.items[key]; ok {
		return v
	}
	v := init()
	g.items[key] = v
	g.keys = append(g.keys, key)
	return v
}

// each visits entries in first-seen order
func (g *grouper[K, V]) each(fn func(K, *V)) {
	for _, k := range g.keys {
		fn(k, g.items[k])
	}
}

func (g *grouper[K, V]) len() int {
	return len(g.keys)
}
