package startup

import (
	"context"
	"os"
	"os/signal"
)

// signalContext derives a context that is cancelled on the first shutdown
// signal. The driver treats cancellation as a clean stop, so one Ctrl+C ends
// the run; a second one kills the process via Go's default handler.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	ch := make(chan os.Signal, 1)
	notifySignals(ch)
	go func() {
		select {
		case <-ch:
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(ch)
	}()
	return ctx, cancel
}
