package runs

import (
	"errors"
	"testing"

	"github.com/aristath/tradepath/internal/domain"
	"github.com/aristath/tradepath/internal/modules/simulation"
	testingutil "github.com/aristath/tradepath/internal/testing"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRepo(t *testing.T) *Repository {
	db, cleanup := testingutil.NewTestDB(t, "runs")
	t.Cleanup(cleanup)
	return NewRepository(db.Conn(), zerolog.Nop())
}

func sampleRequest() simulation.Request {
	return simulation.Request{Symbols: []string{"AAPL", "KO"}, Capital: 1000, Years: 1}
}

func TestRepository_Lifecycle(t *testing.T) {
	repo := setupRepo(t)

	run, err := repo.Create(sampleRequest())
	require.NoError(t, err)
	assert.Len(t, run.ID, 36)
	assert.Equal(t, StatusPending, run.Status)

	require.NoError(t, repo.MarkRunning(run.ID))
	got, err := repo.Get(run.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusRunning, got.Status)
	assert.NotNil(t, got.StartedAt)
	assert.Equal(t, sampleRequest(), got.Request)

	result := &simulation.Result{
		Symbols:    []string{"AAPL", "KO"},
		Capital:    1000,
		FinalValue: 1100,
		Funds:      500,
		Holdings:   []domain.Holding{{Symbol: "AAPL", Amount: 3}},
		Actions: []domain.LogEntry{
			{Symbol: "AAPL", Action: domain.ActionBuy, Value: 120, Frame: 26},
			{Symbol: "KO", Action: domain.ActionBuy, Value: 60, Frame: 27},
			{Symbol: "KO", Action: domain.ActionSell, Value: 62, Frame: 30},
		},
	}
	require.NoError(t, repo.Complete(run.ID, result))

	got, err = repo.Get(run.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, got.Status)
	require.NotNil(t, got.FinalValue)
	assert.Equal(t, 1100.0, *got.FinalValue)
	require.NotNil(t, got.Result)
	assert.Empty(t, got.Result.Actions)
	assert.Equal(t, result.Holdings, got.Result.Holdings)
	assert.NotNil(t, got.FinishedAt)

	actions, err := repo.Actions(run.ID)
	require.NoError(t, err)
	assert.Equal(t, result.Actions, actions)
}

func TestRepository_Fail(t *testing.T) {
	repo := setupRepo(t)
	run, err := repo.Create(sampleRequest())
	require.NoError(t, err)

	require.NoError(t, repo.Fail(run.ID, errors.New("provider down")))

	got, err := repo.Get(run.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, got.Status)
	assert.Equal(t, "provider down", got.Error)
	assert.Nil(t, got.Result)
}

func TestRepository_NotFound(t *testing.T) {
	repo := setupRepo(t)

	_, err := repo.Get("missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, repo.MarkRunning("missing"), domain.ErrNotFound)
	assert.ErrorIs(t, repo.Complete("missing", &simulation.Result{}), domain.ErrNotFound)
	_, err = repo.Actions("missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRepository_ListNewestFirst(t *testing.T) {
	repo := setupRepo(t)

	var ids []string
	for i := 0; i < 3; i++ {
		run, err := repo.Create(sampleRequest())
		require.NoError(t, err)
		ids = append(ids, run.ID)
	}

	list, err := repo.List(2)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, ids[2], list[0].ID)
	assert.Equal(t, ids[1], list[1].ID)
}

func TestRepository_RecoverInterrupted(t *testing.T) {
	repo := setupRepo(t)

	pending, err := repo.Create(sampleRequest())
	require.NoError(t, err)
	running, err := repo.Create(sampleRequest())
	require.NoError(t, err)
	require.NoError(t, repo.MarkRunning(running.ID))
	done, err := repo.Create(sampleRequest())
	require.NoError(t, err)
	require.NoError(t, repo.Complete(done.ID, &simulation.Result{}))

	n, err := repo.RecoverInterrupted()
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	got, err := repo.Get(pending.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, got.Status)
	got, err = repo.Get(done.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, got.Status)
}
