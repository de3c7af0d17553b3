package tui

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	applog "github.com/csheth/folio/internal/log"
)

type jobKind string

type jobStatus string

const (
	jobKindSource jobKind = "source"
	jobKindPage   jobKind = "page"
	jobKindThumb  jobKind = "thumb"
)

const (
	jobStatusRunning   jobStatus = "running"
	jobStatusSucceeded jobStatus = "succeeded"
	jobStatusFailed    jobStatus = "failed"
)

type jobSnapshot struct {
	ID          string
	Kind        jobKind
	Status      jobStatus
	StartedAt   time.Time
	CompletedAt time.Time
	Err         string
	Duration    time.Duration
}

type jobSignalMsg struct {
	Snapshot jobSnapshot
}

type jobResultEnvelope struct {
	Snapshot jobSnapshot
	Payload  tea.Msg
}

type jobRunner func(context.Context) (tea.Msg, error)

// jobBus runs blocking work off the event loop. Every job reports a start
// signal and a result envelope; the payload is routed back through Update.
// Cancel aborts every job started so far.
type jobBus struct {
	counter int64
	ctx     context.Context
	cancel  context.CancelFunc
	log     *slog.Logger
}

func newJobBus() *jobBus {
	ctx, cancel := context.WithCancel(context.Background())
	return &jobBus{ctx: ctx, cancel: cancel, log: applog.WithComponent("jobs")}
}

func (b *jobBus) nextID(kind jobKind) string {
	idx := atomic.AddInt64(&b.counter, 1)
	return fmt.Sprintf("%s-%d", kind, idx)
}

func (b *jobBus) Start(kind jobKind, runner jobRunner) tea.Cmd {
	id := b.nextID(kind)
	started := time.Now()
	startSnapshot := jobSnapshot{ID: id, Kind: kind, Status: jobStatusRunning, StartedAt: started}
	startCmd := func() tea.Msg {
		return jobSignalMsg{Snapshot: startSnapshot}
	}

	runCmd := func() tea.Msg {
		payload, err := runner(b.ctx)
		snapshot := jobSnapshot{
			ID:          id,
			Kind:        kind,
			StartedAt:   started,
			CompletedAt: time.Now(),
		}
		if err != nil {
			snapshot.Status = jobStatusFailed
			snapshot.Err = err.Error()
		} else {
			snapshot.Status = jobStatusSucceeded
		}
		snapshot.Duration = snapshot.CompletedAt.Sub(started)
		b.log.Debug("job finished",
			slog.String("id", id),
			slog.String("kind", string(kind)),
			slog.String("status", string(snapshot.Status)),
			slog.Duration("duration", snapshot.Duration),
			slog.String("err", snapshot.Err))
		return jobResultEnvelope{Snapshot: snapshot, Payload: payload}
	}

	return tea.Sequence(startCmd, runCmd)
}

// Cancel aborts in-flight jobs. Results still arriving are dropped as stale.
func (b *jobBus) Cancel() {
	b.cancel()
}
