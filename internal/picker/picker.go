// Package picker chooses the next card while avoiding recent repeats.
package picker

import (
	"math/rand/v2"
	"time"

	"card_bot/internal/model"
)

// Picker draws cards uniformly at random.
type Picker struct {
	intN func(n int) int
}

// New creates a Picker backed by the global random source.
func New() *Picker {
	return &Picker{intN: rand.IntN}
}

// NewWithRand creates a Picker backed by r (useful for testing).
func NewWithRand(r *rand.Rand) *Picker {
	return &Picker{intN: r.IntN}
}

// Recent returns the cards posted on or after today minus days.
// Entries with a malformed date are skipped.
func Recent(history []model.HistoryEntry, now time.Time, days int) map[string]struct{} {
	cutoff := model.Midnight(now).AddDate(0, 0, -days)

	recent := make(map[string]struct{})
	for _, e := range history {
		d, err := e.Day()
		if err != nil {
			continue
		}
		if !d.Before(cutoff) {
			recent[e.Card] = struct{}{}
		}
	}
	return recent
}

// Candidates returns the catalog cards not in recent, in catalog order.
func Candidates(catalog []string, recent map[string]struct{}) []string {
	var out []string
	for _, c := range catalog {
		if _, ok := recent[c]; !ok {
			out = append(out, c)
		}
	}
	return out
}

// Pick returns a card from catalog that is not in recent. When every card
// is recent it falls back to the whole catalog, so repeats are possible
// with a catalog smaller than the anti-repeat window.
// catalog must not be empty.
func (p *Picker) Pick(catalog []string, recent map[string]struct{}) string {
	candidates := Candidates(catalog, recent)
	if len(candidates) == 0 {
		candidates = catalog
	}
	return candidates[p.intN(len(candidates))]
}
