package scheduler

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	testingutil "github.com/aristath/tradepath/internal/testing"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingJob struct {
	name  string
	err   error
	calls atomic.Int32
}

func (j *countingJob) Run() error {
	j.calls.Add(1)
	return j.err
}

func (j *countingJob) Name() string { return j.name }

func TestScheduler_AddJob(t *testing.T) {
	s := New(zerolog.Nop())

	require.NoError(t, s.AddJob("@every 1h", &countingJob{name: "a"}))
	require.NoError(t, s.AddJob("0 */5 * * * *", &countingJob{name: "b"}))
	assert.ElementsMatch(t, []string{"a", "b"}, s.Jobs())

	err := s.AddJob("@every 1h", &countingJob{name: "a"})
	assert.Error(t, err)

	err = s.AddJob("not a schedule", &countingJob{name: "c"})
	assert.Error(t, err)
}

func TestScheduler_RunsJobs(t *testing.T) {
	s := New(zerolog.Nop())
	ok := &countingJob{name: "ok"}
	failing := &countingJob{name: "failing", err: errors.New("boom")}

	require.NoError(t, s.AddJob("@every 1s", ok))
	require.NoError(t, s.AddJob("@every 1s", failing))

	s.Start()
	defer s.Stop()

	assert.Eventually(t, func() bool {
		return ok.calls.Load() > 0 && failing.calls.Load() > 0
	}, 5*time.Second, 50*time.Millisecond)
}

func TestScheduler_RunNow(t *testing.T) {
	s := New(zerolog.Nop())
	job := &countingJob{name: "now", err: errors.New("boom")}

	err := s.RunNow(job)
	assert.Error(t, err)
	assert.Equal(t, int32(1), job.calls.Load())
}

func TestCheckWALCheckpointsJob(t *testing.T) {
	db, cleanup := testingutil.NewTestDB(t, "runs")
	defer cleanup()

	job := NewCheckWALCheckpointsJob(zerolog.Nop(), db, nil)
	assert.Equal(t, "check_wal_checkpoints", job.Name())
	assert.NoError(t, job.Run())
}

func TestCheckDatabasesJob(t *testing.T) {
	runsDB, cleanupRuns := testingutil.NewTestDB(t, "runs")
	defer cleanupRuns()
	cacheDB, cleanupCache := testingutil.NewTestDB(t, "cache")
	defer cleanupCache()

	job := NewCheckDatabasesJob(zerolog.Nop(), runsDB, cacheDB, nil)
	assert.Equal(t, "check_databases", job.Name())
	assert.NoError(t, job.Run())
}

func TestCheckDatabasesJob_NoDatabases(t *testing.T) {
	job := NewCheckDatabasesJob(zerolog.New(nil).Level(zerolog.Disabled))
	assert.NoError(t, job.Run())
}
