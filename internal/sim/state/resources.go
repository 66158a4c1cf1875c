package state

import "sort"

// Resources maps a resource name to its amount. Absent names read as zero.
type Resources map[string]float64

func (r Resources) Get(name string) float64 { return r[name] }

func (r Resources) Add(name string, delta float64) { r[name] = r[name] + delta }

func (r Resources) Has(name string, amount float64) bool { return r.Get(name) >= amount }

// TryConsume subtracts amount only when enough is present.
func (r Resources) TryConsume(name string, amount float64) bool {
	if !r.Has(name, amount) {
		return false
	}
	r.Add(name, -amount)
	return true
}

func (r Resources) CanConsumeAll(req map[string]float64) bool {
	for name, amount := range req {
		if !r.Has(name, amount) {
			return false
		}
	}
	return true
}

// AddAll applies every delta in name order.
func (r Resources) AddAll(deltas map[string]float64) {
	for _, name := range SortedKeys(deltas) {
		r.Add(name, deltas[name])
	}
}

func (r Resources) Clone() Resources {
	out := make(Resources, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

func (r Resources) Names() []string { return SortedKeys(r) }

// SortedKeys returns the keys of any string-keyed map in ascending order.
func SortedKeys[M ~map[string]V, V any](m M) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func cloneRates(m map[string]float64) map[string]float64 {
	if m == nil {
		return nil
	}
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
