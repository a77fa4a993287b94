// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package main

import (
	"context"
	"time"
)

const janitorInterval = 5 * time.Minute

// watchInactivity is the recovery loop for unbounded message growth: once
// the bot has seen no user activity for longer than the idle timeout, it
// deletes everything the bot has sent and shuts the process down so the
// supervisor can start it fresh. In-flight requests are abandoned; that's
// the point.
func (e *engine) watchInactivity(ctx context.Context) {
	ticker := time.NewTicker(janitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if e.sweepIfIdle(ctx) {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

// sweepIfIdle checks the activity clock and, if the idle timeout has been
// exceeded, purges all tracked messages and triggers a shutdown. It reports
// whether a sweep happened.
func (e *engine) sweepIfIdle(ctx context.Context) bool {
	idle := e.now().Sub(e.lastActivityTime())
	if idle <= e.idleTimeout {
		return false
	}

	e.logf("No activity for %v, cleaning up and restarting.", idle.Round(time.Second))
	e.purgeTracked(ctx)
	if e.shutdown != nil {
		e.shutdown()
	}
	return true
}

// purgeTracked deletes every message in the sent log, best-effort, and
// clears the log. Scheduled deletion jobs racing with the purge end up
// deleting an already-deleted message, which the best-effort policy
// swallows.
func (e *engine) purgeTracked(ctx context.Context) {
	var msgs []msgRef
	e.tracked.WriteAccess(func(l *sentLog) {
		msgs = l.msgs
		l.msgs = nil
	})

	for _, m := range msgs {
		if err := e.deleteMessage(ctx, m); err != nil {
			e.logf("Purging message %d in %d failed: %v", m.MessageID, m.ChatID, err)
		}
	}
}
