package marketdata

import (
	"github.com/aristath/tradepath/internal/domain"
)

// Aligned is a history trimmed to a common length together with its frames
type Aligned struct {
	History  domain.History
	Frames   []domain.Frame
	Excluded []string
}

// Len returns the number of frames
func (a Aligned) Len() int {
	return len(a.Frames)
}

// Align drops unusable series and trims the rest to the shortest length.
// Frame i holds the i-th close of every remaining series in universe order.
func Align(history domain.History) Aligned {
	var (
		kept     domain.History
		excluded []string
		length   = -1
	)

	for _, s := range history {
		if !s.Usable() {
			excluded = append(excluded, s.Symbol)
			continue
		}
		kept = append(kept, s)
		if length < 0 || len(s.Prices) < length {
			length = len(s.Prices)
		}
	}

	if len(kept) == 0 {
		return Aligned{Excluded: excluded}
	}

	for i := range kept {
		kept[i].Prices = kept[i].Prices[:length]
		if len(kept[i].Dates) >= length {
			kept[i].Dates = kept[i].Dates[:length]
		} else {
			kept[i].Dates = nil
		}
	}

	frames := make([]domain.Frame, length)
	for i := 0; i < length; i++ {
		prices := make([]domain.PricePoint, len(kept))
		for j, s := range kept {
			prices[j] = domain.PricePoint{Symbol: s.Symbol, Price: s.Prices[i]}
		}
		frames[i] = domain.Frame{Index: i, Prices: prices}
		if kept[0].Dates != nil {
			frames[i].Date = kept[0].Dates[i]
		}
	}

	return Aligned{History: kept, Frames: frames, Excluded: excluded}
}
