package builder

import "fmt"

// ProgressEvent is one checkpoint of a running scan. NodesFound is the graph
// size at the time of the checkpoint, so consumers can report it without
// parsing the message text.
type ProgressEvent struct {
	Current    int    `json:"current"`
	Total      int    `json:"total"`
	NodesFound int    `json:"nodes_found"`
	Message    string `json:"message"`
}

// ProgressFunc receives scan checkpoints. It may be called from the worker
// goroutines, never from the caller's goroutine; consumers that need events
// on a particular goroutine must hand them off themselves (the server does
// this with a channel hub).
type ProgressFunc func(event ProgressEvent)

// ProgressReporter bridges the builder's callback to channel consumers. It
// emits through a buffered channel and drops events when the consumer lags,
// so a slow listener can never stall the scan.
type ProgressReporter struct {
	ch chan ProgressEvent
}

// NewProgressReporter creates a reporter with a buffered channel of size 64.
func NewProgressReporter() *ProgressReporter {
	return &ProgressReporter{ch: make(chan ProgressEvent, 64)}
}

// Emit sends an event without blocking. A full channel drops the event.
func (pr *ProgressReporter) Emit(event ProgressEvent) {
	select {
	case pr.ch <- event:
	default:
		// Drop when the consumer is behind. Progress is advisory.
	}
}

// Callback adapts the reporter to the builder's ProgressFunc.
func (pr *ProgressReporter) Callback() ProgressFunc {
	return pr.Emit
}

// Subscribe returns the read side of the event channel.
func (pr *ProgressReporter) Subscribe() <-chan ProgressEvent {
	return pr.ch
}

// Close closes the event channel. Emit must not be called afterwards.
func (pr *ProgressReporter) Close() {
	close(pr.ch)
}

// FormatProgress renders an event as a status line.
func FormatProgress(event ProgressEvent) string {
	if event.Total == 0 {
		return event.Message
	}
	return fmt.Sprintf("[%d/%d] %s", event.Current, event.Total, event.Message)
}
