// Package tick records Chrome trace-format events for a clipmap's streaming
// phases (broad-phase, near-phase, render search) and mapdb transaction
// durations, the same sink format distri's internal/trace uses for build
// phase instrumentation, so a captured run opens directly in
// chrome://tracing or the Perfetto UI.
package tick

import (
	"encoding/json"
	"io"
	"log"
	"sync"
	"time"
)

var start = time.Now()

var (
	sinkMu sync.Mutex
	sink   io.Writer = io.Discard
)

// Sink writes every following Event() as a Chrome trace event file into w.
// The trailing ']' of the JSON array format is optional and is omitted.
func Sink(w io.Writer) {
	sinkMu.Lock()
	defer sinkMu.Unlock()
	sink = w
	w.Write([]byte{'['})
}

// PendingEvent is one open span; call Done to close it and emit the event.
type PendingEvent struct {
	Name           string      `json:"name"`
	Categories     string      `json:"cat"`
	Type           string      `json:"ph"`
	ClockTimestamp uint64      `json:"ts"`
	Duration       uint64      `json:"dur"`
	Pid            uint64      `json:"pid"`
	Tid            uint64      `json:"tid"`
	Args           interface{} `json:"args"`

	begin time.Time
}

// pid groups events by subsystem in the trace viewer's process lanes.
const (
	PidClipmap = 1
	PidMapDb   = 2
)

// Event opens a span named name on the given pid/tid lane.
func Event(name string, pid, tid uint64) *PendingEvent {
	return &PendingEvent{
		Name:           name,
		Type:           "X",
		Pid:            pid,
		Tid:            tid,
		ClockTimestamp: uint64(time.Since(start) / time.Microsecond),
		begin:          time.Now(),
	}
}

// Done closes the span and writes it to the current sink, with args
// attached for inspection in the trace viewer (e.g. counts, version ids).
func (pe *PendingEvent) Done(args interface{}) {
	pe.Duration = uint64(time.Since(pe.begin) / time.Microsecond)
	pe.Args = args
	b, err := json.Marshal(pe)
	if err != nil {
		panic(err)
	}
	sinkMu.Lock()
	defer sinkMu.Unlock()
	if _, err := sink.Write(append(b, ',')); err != nil {
		log.Printf("[tick] %v", err)
	}
}

// Phase times a clipmap streaming phase (broad-phase, near-phase, render
// search, raycast) and returns a func to close it, for a one-line
// defer tick.Phase("near-phase", n)().
func Phase(name string, n int) func() {
	ev := Event(name, PidClipmap, 0)
	return func() { ev.Done(map[string]int{"n": n}) }
}

// Transaction times a mapdb Write/Commit/BranchFrom call.
func Transaction(name string) func() {
	ev := Event(name, PidMapDb, 0)
	return func() { ev.Done(nil) }
}
