// Package progress provides progress reporting for long-running simulations.
package progress

// Update describes one processed frame
type Update struct {
	Details map[string]any `json:"details,omitempty"`
	Phase   string         `json:"phase"`
	Message string         `json:"message"`
	Current int            `json:"current"`
	Total   int            `json:"total"`
}

// Callback receives progress updates. A nil Callback is valid.
type Callback func(update Update)

// Call safely invokes the callback if non-nil
func Call(cb Callback, update Update) {
	if cb != nil {
		cb(update)
	}
}

// Fraction returns Current/Total, or 0 when Total is unknown
func (u Update) Fraction() float64 {
	if u.Total <= 0 {
		return 0
	}
	return float64(u.Current) / float64(u.Total)
}
