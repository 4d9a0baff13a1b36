// Package tracing records scheduler activity, one row per system execution
// and one row per round, through a recording backend.
package tracing

import (
	"strings"

	"github.com/schedlab/resched/hooking"
	"github.com/schedlab/resched/recording"
	"github.com/schedlab/resched/sched"
)

// Table names used by the RoundTracer.
const (
	SystemTraceTable = "system_trace"
	RoundTraceTable  = "round_trace"
)

// A SystemTraceEntry describes one system execution within a round.
type SystemTraceEntry struct {
	SchedulerID string
	Round       int
	Seq         int
	System      string
	Accesses    string
	Status      string
	Detail      string
}

// A RoundTraceEntry describes the outcome of one round.
type RoundTraceEntry struct {
	SchedulerID string
	Round       int
	Outcome     string
	Detail      string
}

// Status and outcome values written by the tracer.
const (
	StatusOK       = "ok"
	StatusConflict = "conflict"

	OutcomeComplete = "complete"
	OutcomeAborted  = "aborted"
)

// A RoundTracer is a hook that records every system execution and every round
// outcome of the scheduler it is attached to.
type RoundTracer struct {
	recorder recording.Recorder
}

// NewRoundTracer creates a RoundTracer writing through recorder. The trace
// tables are created immediately.
func NewRoundTracer(recorder recording.Recorder) *RoundTracer {
	recorder.CreateTable(SystemTraceTable, SystemTraceEntry{})
	recorder.CreateTable(RoundTraceTable, RoundTraceEntry{})

	return &RoundTracer{recorder: recorder}
}

// CollectTraces attaches a RoundTracer to the scheduler.
func CollectTraces(
	s *sched.Scheduler,
	recorder recording.Recorder,
) *RoundTracer {
	t := NewRoundTracer(recorder)
	s.AcceptHook(t)

	return t
}

// Func records trace rows for system and round lifecycle hooks.
func (t *RoundTracer) Func(ctx hooking.HookCtx) {
	switch ctx.Pos {
	case sched.HookPosSystemEnd:
		info := ctx.Item.(sched.SystemInfo)
		t.recorder.InsertData(SystemTraceTable, SystemTraceEntry{
			SchedulerID: info.SchedulerID,
			Round:       info.Round,
			Seq:         info.Index,
			System:      info.Name,
			Accesses:    formatAccesses(info.Accesses),
			Status:      StatusOK,
		})
	case sched.HookPosConflict:
		info := ctx.Item.(sched.SystemInfo)
		detail := ""
		if err, ok := ctx.Detail.(error); ok {
			detail = err.Error()
		}

		t.recorder.InsertData(SystemTraceTable, SystemTraceEntry{
			SchedulerID: info.SchedulerID,
			Round:       info.Round,
			Seq:         info.Index,
			System:      info.Name,
			Accesses:    formatAccesses(info.Accesses),
			Status:      StatusConflict,
			Detail:      detail,
		})
		t.recorder.InsertData(RoundTraceTable, RoundTraceEntry{
			SchedulerID: info.SchedulerID,
			Round:       info.Round,
			Outcome:     OutcomeAborted,
			Detail:      detail,
		})
	case sched.HookPosRoundEnd:
		info := ctx.Item.(sched.RoundInfo)
		t.recorder.InsertData(RoundTraceTable, RoundTraceEntry{
			SchedulerID: info.SchedulerID,
			Round:       info.Round,
			Outcome:     OutcomeComplete,
		})
	}
}

func formatAccesses(decls []sched.AccessDecl) string {
	parts := make([]string, len(decls))
	for i, d := range decls {
		parts[i] = d.String()
	}

	return strings.Join(parts, "; ")
}

var _ hooking.Hook = (*RoundTracer)(nil)

// MapTraceTables registers the tracer's table shapes on a reader so recorded
// databases can be queried back.
func MapTraceTables(r recording.Reader) {
	r.MapTable(SystemTraceTable, SystemTraceEntry{})
	r.MapTable(RoundTraceTable, RoundTraceEntry{})
}
