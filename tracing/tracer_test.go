package tracing_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schedlab/resched/recording"
	"github.com/schedlab/resched/sched"
	"github.com/schedlab/resched/tracing"
)

type counter struct {
	N int
}

func setupTracedScheduler(t *testing.T) (*sched.Scheduler, recording.Recorder, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "trace")
	recorder := recording.NewRecorder(path)

	s := sched.New()
	tracing.CollectTraces(s, recorder)

	return s, recorder, path + ".sqlite3"
}

func querySystemTraces(
	t *testing.T,
	dbFile string,
	params recording.QueryParams,
) []*tracing.SystemTraceEntry {
	t.Helper()

	reader := recording.NewReader(dbFile)
	defer reader.Close()

	tracing.MapTraceTables(reader)

	results, _, err := reader.Query(
		context.Background(), tracing.SystemTraceTable, params)
	require.NoError(t, err)

	entries := make([]*tracing.SystemTraceEntry, len(results))
	for i, r := range results {
		entries[i] = r.(*tracing.SystemTraceEntry)
	}

	return entries
}

func queryRoundTraces(
	t *testing.T,
	dbFile string,
) []*tracing.RoundTraceEntry {
	t.Helper()

	reader := recording.NewReader(dbFile)
	defer reader.Close()

	tracing.MapTraceTables(reader)

	results, _, err := reader.Query(
		context.Background(), tracing.RoundTraceTable,
		recording.QueryParams{OrderBy: "Round ASC"})
	require.NoError(t, err)

	entries := make([]*tracing.RoundTraceEntry, len(results))
	for i, r := range results {
		entries[i] = r.(*tracing.RoundTraceEntry)
	}

	return entries
}

func TestTracerRecordsSystemExecutions(t *testing.T) {
	s, recorder, dbFile := setupTracedScheduler(t)

	sched.AddResource(s, counter{})
	sched.AddSystem1(s, func(c sched.Mut[counter]) {
		c.Value().N++
	})

	require.NoError(t, s.Run())
	require.NoError(t, s.Run())
	recorder.Flush()

	entries := querySystemTraces(t, dbFile,
		recording.QueryParams{OrderBy: "Round ASC, Seq ASC"})

	require.Len(t, entries, 2)
	assert.Equal(t, 0, entries[0].Round)
	assert.Equal(t, 1, entries[1].Round)
	assert.Equal(t, tracing.StatusOK, entries[0].Status)
	assert.Contains(t, entries[0].Accesses, "Write")
	assert.Equal(t, s.ID(), entries[0].SchedulerID)
}

func TestTracerRecordsRoundOutcomes(t *testing.T) {
	s, recorder, dbFile := setupTracedScheduler(t)

	sched.AddResource(s, counter{})
	sched.AddSystem1(s, func(c sched.Res[counter]) {})

	require.NoError(t, s.Run())
	recorder.Flush()

	rounds := queryRoundTraces(t, dbFile)
	require.Len(t, rounds, 1)
	assert.Equal(t, tracing.OutcomeComplete, rounds[0].Outcome)
}

func TestTracerRecordsConflicts(t *testing.T) {
	s, recorder, dbFile := setupTracedScheduler(t)

	sched.AddResource(s, counter{})
	sched.AddSystem1(s, func(c sched.Mut[counter]) {})
	sched.AddSystem1(s, func(c sched.Res[counter]) {})

	require.Error(t, s.Run())
	recorder.Flush()

	entries := querySystemTraces(t, dbFile,
		recording.QueryParams{OrderBy: "Seq ASC"})

	require.Len(t, entries, 2)
	assert.Equal(t, tracing.StatusOK, entries[0].Status)
	assert.Equal(t, tracing.StatusConflict, entries[1].Status)
	assert.Contains(t, entries[1].Detail, "conflicting access")

	rounds := queryRoundTraces(t, dbFile)
	require.Len(t, rounds, 1)
	assert.Equal(t, tracing.OutcomeAborted, rounds[0].Outcome)
	assert.Contains(t, rounds[0].Detail, "conflicting access")
}
