// Package events defines the typed outbound channel every acquisition engine
// writes to, and the Command values naming the inbound requests. It replaces
// the Qt-signal/callback choreography of the source UI with a Go channel for
// outbound events; the core has no dependency on any presentation framework.
// No inbound command channel exists: neither the state machine nor any
// engine reads Commands, and engines are stopped through their context.
package events

import (
	"fmt"

	"github.com/poultriscan/poultriscan/internal/frame"
)

// Kind identifies the variant carried by an Event.
type Kind int

const (
	KindLog Kind = iota
	KindProgress
	KindStateChange
	KindRawSample
	KindAveragedSample
	KindScanResult
	KindError
	KindFinished
)

func (k Kind) String() string {
	switch k {
	case KindLog:
		return "Log"
	case KindProgress:
		return "Progress"
	case KindStateChange:
		return "StateChange"
	case KindRawSample:
		return "RawSample"
	case KindAveragedSample:
		return "AveragedSample"
	case KindScanResult:
		return "ScanResult"
	case KindError:
		return "Error"
	case KindFinished:
		return "Finished"
	default:
		return "Unknown"
	}
}

// Event is the single typed value crossing the engine-to-caller boundary.
// Exactly one of the payload fields is meaningful for a given Kind.
type Event struct {
	Kind Kind

	Message  string // KindLog, KindError (message text)
	Err      error  // KindError
	Progress int    // KindProgress, 0..100
	State    string // KindStateChange

	Frame *frame.Frame // KindRawSample, KindAveragedSample

	Verdict  *frame.Verdict // KindScanResult
	AllShots []frame.Frame  // KindScanResult
}

// Sink is the write side of the outbound event channel. Engines hold a Sink,
// never a raw chan, so construction (buffering, fan-out) stays the caller's
// decision.
type Sink interface {
	Emit(Event)
}

// ChanSink adapts a buffered channel to the Sink interface. Sends are
// non-blocking past the channel's buffer: when the buffer is full, the event
// being emitted is dropped (events already buffered are kept) rather than
// stalling the acquisition worker. Error, ScanResult, and Finished events are
// never dropped; their sends block until the consumer makes room.
type ChanSink struct {
	ch chan Event
}

// NewChanSink creates a Sink backed by a channel of the given buffer size.
func NewChanSink(buffer int) *ChanSink {
	return &ChanSink{ch: make(chan Event, buffer)}
}

// Events returns the read side for a consumer to range over.
func (s *ChanSink) Events() <-chan Event {
	return s.ch
}

// Close closes the underlying channel. Call exactly once, after the engine
// that owns this sink has returned.
func (s *ChanSink) Close() {
	close(s.ch)
}

func (s *ChanSink) Emit(e Event) {
	switch e.Kind {
	case KindError, KindScanResult, KindFinished:
		s.ch <- e
	default:
		select {
		case s.ch <- e:
		default:
		}
	}
}

// Log emits a KindLog event.
func Log(s Sink, format string, args ...any) {
	s.Emit(Event{Kind: KindLog, Message: fmt.Sprintf(format, args...)})
}

// Progress emits a KindProgress event, clamped to [0, 100].
func Progress(s Sink, pct int) {
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	s.Emit(Event{Kind: KindProgress, Progress: pct})
}

// StateChange emits a KindStateChange event.
func StateChange(s Sink, state string) {
	s.Emit(Event{Kind: KindStateChange, State: state})
}

// Error emits a KindError event wrapping err.
func Error(s Sink, err error) {
	s.Emit(Event{Kind: KindError, Err: err, Message: err.Error()})
}

// Finished emits a KindFinished event. Engines must call this exactly once
// per run, on every exit path.
func Finished(s Sink) {
	s.Emit(Event{Kind: KindFinished})
}

// Command names an inbound request from the caller. No engine and not the
// state machine consumes Command values.
type Command int

const (
	CmdStart Command = iota
	CmdStop
	CmdConfirm
	CmdCancel
)

func (c Command) String() string {
	switch c {
	case CmdStart:
		return "Start"
	case CmdStop:
		return "Stop"
	case CmdConfirm:
		return "Confirm"
	case CmdCancel:
		return "Cancel"
	default:
		return "Unknown"
	}
}
