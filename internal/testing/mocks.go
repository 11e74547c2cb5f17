package testing

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/aristath/tradepath/internal/domain"
)

// ErrUnknownSymbol is recorded on series the mock has no prices for
var ErrUnknownSymbol = errors.New("unknown symbol")

// MockProvider is a mock implementation of marketdata.Provider for testing
type MockProvider struct {
	series map[string][]float64
	err    error
	block  chan struct{}
	calls  int
	mu     sync.Mutex
}

// NewMockProvider creates a new mock provider serving series
func NewMockProvider(series map[string][]float64) *MockProvider {
	return &MockProvider{series: series}
}

// SetError makes every symbol fail with err
func (m *MockProvider) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Block makes History wait until the returned release function is called
func (m *MockProvider) Block() (release func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.block = make(chan struct{})
	ch := m.block
	var once sync.Once
	return func() { once.Do(func() { close(ch) }) }
}

// Calls returns the number of History calls
func (m *MockProvider) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// History implements marketdata.Provider
func (m *MockProvider) History(ctx context.Context, symbols []string, start, _ time.Time) domain.History {
	m.mu.Lock()
	m.calls++
	block, err := m.block, m.err
	m.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
		}
	}

	out := NewHistoryFixture(m.series, symbols, start)
	for i := range out {
		switch {
		case err != nil:
			out[i] = domain.Series{Symbol: out[i].Symbol, Err: err}
		case len(out[i].Prices) == 0:
			out[i].Err = ErrUnknownSymbol
		}
	}
	return out
}
