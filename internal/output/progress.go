// Package output adapts the engine event stream to a terminal: baseline
// JSON serialization and a console consumer of the typed event channel.
package output

import (
	"fmt"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/poultriscan/poultriscan/internal/events"
)

// Console drains an events.ChanSink to stderr until the channel closes. It
// replaces the UI's signal handlers with one blocking consumer loop; the
// core has no dependency on it.
type Console struct {
	quiet bool
	start time.Time
}

// NewConsole creates a Console reporter. Set quiet=true to suppress Log and
// Progress events; Error, StateChange, ScanResult, and Finished always print.
func NewConsole(quiet bool) *Console {
	return &Console{quiet: quiet, start: time.Now()}
}

// Drain ranges over ch until it closes, printing each event.
func (c *Console) Drain(ch <-chan events.Event) {
	for e := range ch {
		c.print(e)
	}
}

// RunWithConsole runs fn and a Console drain of sink concurrently, closing
// sink once fn returns so the drain goroutine always terminates. It
// replaces the done-channel-plus-goroutine boilerplate every CLI command
// would otherwise repeat around a sink/console pair.
func RunWithConsole(sink *events.ChanSink, quiet bool, fn func() error) error {
	var g errgroup.Group
	console := NewConsole(quiet)
	g.Go(func() error {
		console.Drain(sink.Events())
		return nil
	})

	err := fn()
	sink.Close()
	_ = g.Wait()
	return err
}

func (c *Console) print(e events.Event) {
	elapsed := time.Since(c.start).Round(time.Millisecond)
	switch e.Kind {
	case events.KindLog:
		if !c.quiet {
			fmt.Fprintf(os.Stderr, "[%s] %s\n", elapsed, e.Message)
		}
	case events.KindProgress:
		if !c.quiet {
			fmt.Fprintf(os.Stderr, "[%s] progress: %d%%\n", elapsed, e.Progress)
		}
	case events.KindStateChange:
		fmt.Fprintf(os.Stderr, "[%s] state: %s\n", elapsed, e.State)
	case events.KindError:
		fmt.Fprintf(os.Stderr, "[%s] error: %s\n", elapsed, e.Message)
	case events.KindScanResult:
		if e.Verdict != nil {
			fmt.Fprintf(os.Stderr, "[%s] verdict: %s (%s)\n", elapsed, e.Verdict.Grade, e.Verdict.Category)
		}
	case events.KindRawSample, events.KindAveragedSample:
		if !c.quiet {
			fmt.Fprintf(os.Stderr, "[%s] %s recorded\n", elapsed, e.Kind)
		}
	case events.KindFinished:
		fmt.Fprintf(os.Stderr, "[%s] finished\n", elapsed)
	}
}
