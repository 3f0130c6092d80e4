package ingest

import "time"

// ProgressEvent is one stage's notification on the request's server-push
// channel (spec.md §4.4 "Observability"): phase name, position within
// the stage's unit of work, running entity/relation counts, elapsed time
// since the ingest call began.
type ProgressEvent struct {
	Phase     string
	Current   int
	Total     int
	Entities  int
	Relations int
	Elapsed   time.Duration
}

// ProgressSink receives one ProgressEvent per pipeline stage step. The
// transport layer binds a per-request sink (internal/transport) that
// forwards events onto the caller's SSE session.
type ProgressSink interface {
	Notify(ProgressEvent)
}

// NoopProgressSink discards every event, used by callers (tests, the
// admin CLI) that don't have a live session to push to.
type NoopProgressSink struct{}

func (NoopProgressSink) Notify(ProgressEvent) {}

var _ ProgressSink = NoopProgressSink{}
