package universe

import (
	"math/rand"

	"github.com/rs/zerolog"
)

// ===================================
// PRICE BUCKETS
// ===================================

const (
	// CheapBelow is the upper bound of the cheap bucket
	CheapBelow = 30.0
	// ExpensiveFrom is the lower bound of the expensive bucket
	ExpensiveFrom = 150.0

	CheapShare  = 0.3
	MediumShare = 0.5

	// DefaultCount is the universe size when none is requested
	DefaultCount = 6
)

// Selector draws price-diversified universes from a catalog
type Selector struct {
	catalog *Catalog
	log     zerolog.Logger
}

// NewSelector creates a selector over catalog
func NewSelector(catalog *Catalog, log zerolog.Logger) *Selector {
	return &Selector{
		catalog: catalog,
		log:     log.With().Str("service", "universe").Logger(),
	}
}

// Catalog returns the underlying catalog
func (s *Selector) Catalog() *Catalog {
	return s.catalog
}

// Quotas splits count across the cheap, medium and expensive buckets.
// Every bucket gets at least one slot.
func Quotas(count int) (cheap, medium, expensive int) {
	cheap = max(1, int(float64(count)*CheapShare))
	medium = max(1, int(float64(count)*MediumShare))
	expensive = max(1, count-cheap-medium)
	return cheap, medium, expensive
}

// Select returns up to count symbols for period. The result is deterministic for a given rng.
func (s *Selector) Select(period Classification, count int, rng *rand.Rand) []string {
	if count <= 0 {
		count = DefaultCount
	}

	var cheap, medium, expensive []Instrument
	for _, inst := range s.catalog.Filter(period) {
		switch {
		case inst.Price < CheapBelow:
			cheap = append(cheap, inst)
		case inst.Price < ExpensiveFrom:
			medium = append(medium, inst)
		default:
			expensive = append(expensive, inst)
		}
	}

	nc, nm, ne := Quotas(count)
	picked := make([]Instrument, 0, nc+nm+ne)
	picked = append(picked, pick(cheap, nc, rng)...)
	picked = append(picked, pick(medium, nm, rng)...)
	picked = append(picked, pick(expensive, ne, rng)...)

	// mix the buckets before trimming to count
	picked = pick(picked, count, rng)

	symbols := make([]string, len(picked))
	for i, inst := range picked {
		symbols[i] = inst.Symbol
	}

	s.log.Debug().
		Str("period", string(period)).
		Int("requested", count).
		Int("selected", len(symbols)).
		Msg("Selected universe")

	return symbols
}

// pick shuffles a copy of items and returns the first n
func pick(items []Instrument, n int, rng *rand.Rand) []Instrument {
	shuffled := append([]Instrument(nil), items...)
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	if n < len(shuffled) {
		shuffled = shuffled[:n]
	}
	return shuffled
}
