// Package eventlog reads the recorded instrumentation trace a traced program
// wrote while running and replays it through an eventsink.Sink. This is the
// Go-native analogue of linking a program directly against the original
// tool's ptrack_* library calls: instead of receiving enter/call/read/write
// calls live from process memory, ptrackctl receives them as a newline-
// delimited JSON log it can replay offline.
package eventlog

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"

	"github.com/ptrackio/ptrack/internal/eventsink"
	apperrors "github.com/ptrackio/ptrack/pkg/errors"
)

// Kind identifies which ptrack_* entry point an Event records.
type Kind string

// The four recordable entry points, named after interface.h's ptrack_*
// functions (ptrack_init and ptrack_destroy bracket the log rather than
// appearing as events in it).
const (
	KindEnter Kind = "enter"
	KindCall  Kind = "call"
	KindRead  Kind = "read"
	KindWrite Kind = "write"
)

// Event is one line of a recorded event log.
type Event struct {
	Kind   Kind   `json:"kind"`
	Func   string `json:"func,omitempty"`
	Caller string `json:"caller,omitempty"`
	Callee string `json:"callee,omitempty"`
	Addr   uint64 `json:"addr,omitempty"`
}

// Replay reads one JSON-encoded Event per line from r and feeds each into
// sink, in order. sink.Init must already have been called. Returns the
// number of events replayed. A malformed line is a RecoverableIO condition
// and aborts the replay with that event's index in the error.
func Replay(r io.Reader, sink *eventsink.Sink) (int, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)

	n := 0
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var ev Event
		if err := json.Unmarshal(line, &ev); err != nil {
			return n, apperrors.Wrap(apperrors.CodeRecoverableIO,
				fmt.Sprintf("eventlog: malformed event %d", n+1), err)
		}

		if err := apply(sink, &ev); err != nil {
			return n, fmt.Errorf("eventlog: replaying event %d (%s): %w", n+1, ev.Kind, err)
		}
		n++
	}
	if err := scanner.Err(); err != nil {
		return n, apperrors.Wrap(apperrors.CodeRecoverableIO, "eventlog: reading event log", err)
	}

	return n, nil
}

func apply(sink *eventsink.Sink, ev *Event) error {
	switch ev.Kind {
	case KindEnter:
		return sink.EnterFunction(ev.Func)
	case KindCall:
		return sink.CallFunction(ev.Caller, ev.Callee)
	case KindRead:
		return sink.MemoryRead(ev.Func, ev.Addr)
	case KindWrite:
		return sink.MemoryWrite(ev.Func, ev.Addr)
	default:
		return apperrors.Wrap(apperrors.CodeRecoverableIO, fmt.Sprintf("eventlog: unknown event kind %q", ev.Kind), nil)
	}
}

// Encoder writes Events as newline-delimited JSON, the inverse of Replay.
// Used by tests and by anything that wants to synthesize a replayable log.
type Encoder struct {
	enc *json.Encoder
}

// NewEncoder constructs an Encoder writing to w.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{enc: json.NewEncoder(w)}
}

// Enter writes an enter-function event.
func (e *Encoder) Enter(fname string) error {
	return e.enc.Encode(Event{Kind: KindEnter, Func: fname})
}

// Call writes a call event.
func (e *Encoder) Call(caller, callee string) error {
	return e.enc.Encode(Event{Kind: KindCall, Caller: caller, Callee: callee})
}

// Read writes a memory-read event.
func (e *Encoder) Read(fname string, addr uint64) error {
	return e.enc.Encode(Event{Kind: KindRead, Func: fname, Addr: addr})
}

// Write writes a memory-write event.
func (e *Encoder) Write(fname string, addr uint64) error {
	return e.enc.Encode(Event{Kind: KindWrite, Func: fname, Addr: addr})
}
