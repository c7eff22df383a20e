package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// ShutdownHandler cancels a context on SIGINT or SIGTERM and tells the
// operator what is happening.
type ShutdownHandler struct {
	writer      io.Writer
	signals     chan os.Signal
	interrupted bool
	mu          sync.Mutex
}

// NewShutdownHandler creates a handler writing to writer, or stderr when nil.
func NewShutdownHandler(writer io.Writer) *ShutdownHandler {
	if writer == nil {
		writer = os.Stderr
	}
	return &ShutdownHandler{
		writer:  writer,
		signals: make(chan os.Signal, 1),
	}
}

// Watch returns a context that is canceled on the first signal.
func (h *ShutdownHandler) Watch(ctx context.Context) context.Context {
	ctx, cancel := context.WithCancel(ctx)
	signal.Notify(h.signals, os.Interrupt, syscall.SIGTERM)

	go func() {
		defer signal.Stop(h.signals)
		select {
		case <-h.signals:
			h.mu.Lock()
			h.interrupted = true
			h.mu.Unlock()
			h.showMessage()
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx
}

func (h *ShutdownHandler) showMessage() {
	msg := "\n" + FormatWarning("Shutting down, finishing in-flight requests...") + "\n"
	if _, err := fmt.Fprint(h.writer, msg); err != nil {
		// Best effort - we're shutting down anyway
		fmt.Fprintf(os.Stderr, "Failed to write shutdown message: %v\n", err)
	}
}

// WasInterrupted reports whether a signal was received.
func (h *ShutdownHandler) WasInterrupted() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.interrupted
}
