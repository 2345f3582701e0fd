package engine

import (
	"errors"
	"fmt"
	"sort"
)

// DefaultLimit is how many countries a ranking keeps.
const DefaultLimit = 10

var (
	ErrUnknownColumn = errors.New("unknown category column")
	ErrInvalidColumn = errors.New("column has non-numeric values")
)

// Entry is one ranked (Country, value) pair.
type Entry struct {
	Country string
	Value   float64
}

// Rank returns the top limit rows for category, highest value first.
// Equal values keep their file order. Fewer than limit rows are returned as is.
func (d *Dataset) Rank(category string, limit int) ([]Entry, error) {
	if category == IdentifierColumn {
		return nil, fmt.Errorf("%w: %q", ErrUnknownColumn, category)
	}
	vals, ok := d.Values[category]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownColumn, category)
	}
	if bad := d.Invalid[category]; bad != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidColumn, category, bad)
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	// 1. Pair values with their labels (row order preserved)
	entries := make([]Entry, len(vals))
	for i, v := range vals {
		var name string
		if i < len(d.Countries) {
			name = d.Countries[i]
		}
		entries[i] = Entry{Country: name, Value: v}
	}

	// 2. Sort descending, stable on ties
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Value > entries[j].Value })

	// 3. Top N
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}
