package throttle

import (
	"context"
	"log/slog"

	"github.com/xraph/throttle/strategy"
)

// Handler is the terminal function that executes job logic.
type Handler func(ctx context.Context) error

// Middleware wraps job execution with cross-cutting logic. It receives
// the raw payload of the job being executed and the next handler to
// call.
type Middleware func(ctx context.Context, payload []byte, next Handler) error

// Chain composes multiple middleware into a single Middleware.
// Middleware are applied right-to-left: the first middleware in the
// list is the outermost wrapper.
func Chain(mws ...Middleware) Middleware {
	return func(ctx context.Context, payload []byte, next Handler) error {
		h := next
		for i := len(mws) - 1; i >= 0; i-- {
			mw := mws[i]
			prev := h
			h = func(ctx context.Context) error {
				return mw(ctx, payload, prev)
			}
		}
		return h(ctx)
	}
}

// Finalizer returns middleware that releases the limiter state a job
// holds — its concurrency slot — once execution finishes. The release
// runs whether the handler returns nil, returns an error, or panics;
// without it every admitted job would pin its slot until the safety TTL
// lapses.
//
// A nil codec means JSON. Release failures are logged, never returned:
// the job's own outcome must not be masked by cleanup.
func Finalizer(reg *strategy.Registry, codec Codec, logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(ctx context.Context, payload []byte, next Handler) error {
		msg, decErr := DecodeMessage(codec, payload)
		if decErr != nil {
			// Not a payload this library tracks; nothing to release.
			return next(ctx)
		}
		strat := reg.Get(msg.ClassName())
		if strat == nil {
			return next(ctx)
		}

		defer func() {
			if finErr := strat.Finalize(ctx, msg.JID, msg.Args...); finErr != nil {
				logger.Warn("finalize failed",
					slog.String("class", msg.ClassName()),
					slog.String("jid", msg.JID),
					slog.String("error", finErr.Error()),
				)
			}
		}()
		return next(ctx)
	}
}
