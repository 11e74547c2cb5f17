// Package universe selects the instruments a simulation runs over.
package universe

import (
	"fmt"
	"time"

	"github.com/aristath/tradepath/internal/domain"
)

// Classification tags a catalog instrument by the horizon it suits
type Classification string

const (
	ClassShort Classification = "short"
	ClassLong  Classification = "long"
	ClassMixed Classification = "mixed"
)

// Instrument is one catalog entry
type Instrument struct {
	Symbol string         `yaml:"symbol" json:"symbol"`
	Type   Classification `yaml:"type" json:"type"`
	Price  float64        `yaml:"price" json:"price"`
}

// Validate checks a catalog entry
func (i Instrument) Validate() error {
	if i.Symbol == "" {
		return fmt.Errorf("instrument without symbol")
	}
	if i.Price <= 0 {
		return fmt.Errorf("instrument %s: price must be positive", i.Symbol)
	}
	switch i.Type {
	case ClassShort, ClassLong, ClassMixed:
		return nil
	default:
		return fmt.Errorf("instrument %s: unknown type %q", i.Symbol, i.Type)
	}
}

// ===================================
// HORIZON RULES
// ===================================

const (
	// LongTermMonths is the minimum total duration of a long investment period
	LongTermMonths = 18
	// ShortHorizonYears runs shorter than this score with short-horizon heuristics
	ShortHorizonYears = 2
)

// pivot anchors every simulated time frame
var pivot = time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)

// InvestmentPeriod classifies a run duration
func InvestmentPeriod(years, months int) Classification {
	if years*12+months >= LongTermMonths {
		return ClassLong
	}
	return ClassShort
}

// TimeFrame returns the price window of a run. The window starts years-1
// years before the pivot and ends one year plus months after it.
func TimeFrame(years, months int) (start, end time.Time) {
	start = pivot.AddDate(-(years - 1), 0, 0)
	end = pivot.AddDate(1, months, 0)
	return start, end
}

// ResolveHorizon maps a classification to the scoring horizon.
// Mixed instruments take the horizon implied by the run length.
func ResolveHorizon(class Classification, years int) domain.Horizon {
	switch class {
	case ClassShort:
		return domain.HorizonShort
	case ClassLong:
		return domain.HorizonLong
	default:
		if years < ShortHorizonYears {
			return domain.HorizonShort
		}
		return domain.HorizonLong
	}
}
