package throttle

import (
	"context"
	"log/slog"

	"github.com/xraph/throttle/strategy"
)

// OrphanFunc is the callback a fetcher invokes for each job it detects
// as abandoned (its worker died before finishing).
type OrphanFunc func(ctx context.Context, payload []byte)

// OrphanHandler returns a callback that releases the concurrency slot an
// orphaned job still holds, so the slot frees up immediately instead of
// waiting out its safety TTL. The TTL stays in place as the second net:
// a crash can strike before orphan detection runs too.
//
// The returned func never panics and never reports an error — a failure
// here must not stop the fetcher's own recovery (requeue) from running.
// Malformed payloads and unregistered classes are silently skipped.
// A nil codec means JSON; a nil logger means slog.Default().
func OrphanHandler(reg *strategy.Registry, codec Codec, logger *slog.Logger) OrphanFunc {
	if logger == nil {
		logger = slog.Default()
	}
	return func(ctx context.Context, payload []byte) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("orphan recovery panicked", slog.Any("panic", r))
			}
		}()

		msg, err := DecodeMessage(codec, payload)
		if err != nil {
			return
		}
		strat := reg.Get(msg.ClassName())
		if strat == nil {
			return
		}
		if finErr := strat.Finalize(ctx, msg.JID, msg.Args...); finErr != nil {
			logger.Warn("orphan finalize failed",
				slog.String("class", msg.ClassName()),
				slog.String("jid", msg.JID),
				slog.String("error", finErr.Error()),
			)
		}
	}
}
