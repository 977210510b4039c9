package output

import (
	"bytes"
	"errors"
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/poultriscan/poultriscan/internal/events"
)

var errBoom = errors.New("boom")

func captureStderr(fn func()) string {
	old := os.Stderr
	r, w, _ := os.Pipe()
	os.Stderr = w

	fn()

	w.Close()
	os.Stderr = old

	var buf bytes.Buffer
	_, _ = io.Copy(&buf, r)
	return buf.String()
}

func TestConsoleDrainPrintsLogWhenNotQuiet(t *testing.T) {
	sink := events.NewChanSink(4)
	out := captureStderr(func() {
		c := NewConsole(false)
		done := make(chan struct{})
		go func() {
			c.Drain(sink.Events())
			close(done)
		}()
		events.Log(sink, "hello %s", "world")
		events.Finished(sink)
		sink.Close()
		<-done
	})

	require.Contains(t, out, "hello world")
	require.Contains(t, out, "finished")
}

func TestConsoleDrainSuppressesLogWhenQuiet(t *testing.T) {
	sink := events.NewChanSink(4)
	out := captureStderr(func() {
		c := NewConsole(true)
		done := make(chan struct{})
		go func() {
			c.Drain(sink.Events())
			close(done)
		}()
		events.Log(sink, "should not appear")
		events.Finished(sink)
		sink.Close()
		<-done
	})

	require.NotContains(t, out, "should not appear")
}

func TestConsoleDrainAlwaysPrintsError(t *testing.T) {
	sink := events.NewChanSink(4)
	out := captureStderr(func() {
		c := NewConsole(true)
		done := make(chan struct{})
		go func() {
			c.Drain(sink.Events())
			close(done)
		}()
		events.Error(sink, errBoom)
		sink.Close()
		<-done
	})

	require.Contains(t, out, "boom")
}
