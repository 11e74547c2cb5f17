package runs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aristath/tradepath/internal/domain"
	"github.com/aristath/tradepath/internal/events"
	"github.com/aristath/tradepath/internal/modules/simulation"
	testingutil "github.com/aristath/tradepath/internal/testing"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingExporter struct {
	mu  sync.Mutex
	ids []string
	err error
}

func (e *recordingExporter) Export(_ context.Context, runID string, _ *simulation.Result) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ids = append(e.ids, runID)
	return e.err
}

func setupService(t *testing.T, provider *testingutil.MockProvider, opts ...ServiceOption) (*Service, *Repository, *events.Manager) {
	repo := setupRepo(t)
	em := events.NewManager(zerolog.Nop())
	runner := simulation.NewRunner(provider, simulation.DefaultConfig(), zerolog.Nop())
	svc := NewService(repo, runner, em, zerolog.Nop(), opts...)
	t.Cleanup(func() { _ = svc.Shutdown(context.Background()) })
	return svc, repo, em
}

func waitTerminal(t *testing.T, ch <-chan events.Event) events.Event {
	t.Helper()
	timeout := time.After(10 * time.Second)
	for {
		select {
		case e := <-ch:
			if e.Type.Terminal() {
				return e
			}
		case <-timeout:
			t.Fatal("run did not finish")
		}
	}
}

func TestSubmit_CompletesAndExports(t *testing.T) {
	exporter := &recordingExporter{}
	svc, repo, em := setupService(t, testingutil.NewMockProvider(testingutil.NewSeriesFixtures(50)), WithExporter(exporter))

	ch, unsubscribe := em.Subscribe(nil, 1000)
	defer unsubscribe()

	run, err := svc.Submit(simulation.Request{Symbols: []string{"AAPL", "KO", "PTON"}, Capital: 1000, Years: 1}, 10)
	require.NoError(t, err)

	final := waitTerminal(t, ch)
	assert.Equal(t, events.RunCompleted, final.Type)
	assert.Equal(t, run.ID, final.RunID)

	got, err := repo.Get(run.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, got.Status)
	require.NotNil(t, got.Result)
	assert.Equal(t, 50-simulation.MinWarmupFrames, got.Result.Processed+got.Result.Skipped)

	exporter.mu.Lock()
	assert.Equal(t, []string{run.ID}, exporter.ids)
	exporter.mu.Unlock()
}

func TestSubmit_InvalidRequestNotStored(t *testing.T) {
	svc, repo, _ := setupService(t, testingutil.NewMockProvider(nil))

	_, err := svc.Submit(simulation.Request{Capital: 0, Symbols: []string{"A"}}, 10)
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)

	list, err := repo.List(10)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestSubmit_ProviderFailureFailsRun(t *testing.T) {
	provider := testingutil.NewMockProvider(nil)
	provider.SetError(errors.New("down"))
	svc, repo, em := setupService(t, provider)

	ch, unsubscribe := em.Subscribe(nil, 100)
	defer unsubscribe()

	run, err := svc.Submit(simulation.Request{Symbols: []string{"AAPL"}, Capital: 100}, 10)
	require.NoError(t, err)

	final := waitTerminal(t, ch)
	assert.Equal(t, events.RunFailed, final.Type)

	got, err := repo.Get(run.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, got.Status)
	assert.Contains(t, got.Error, domain.ErrNoPriceData.Error())
}

func TestShutdown_CancelsInFlightRuns(t *testing.T) {
	provider := testingutil.NewMockProvider(testingutil.NewSeriesFixtures(40))
	release := provider.Block()
	defer release()
	svc, repo, _ := setupService(t, provider)

	run, err := svc.Submit(simulation.Request{Symbols: []string{"AAPL"}, Capital: 100}, 10)
	require.NoError(t, err)

	require.NoError(t, svc.Shutdown(context.Background()))

	got, err := repo.Get(run.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, got.Status)

	_, err = svc.Submit(simulation.Request{Symbols: []string{"AAPL"}, Capital: 100}, 10)
	assert.ErrorIs(t, err, ErrShuttingDown)
}
