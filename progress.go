// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package main

import (
	"context"
	"math/rand/v2"
	"time"
)

// The warm-up animation masks the latency of the first external calls after
// a cold start on hosts that spin the process down when idle. It is purely
// cosmetic and runs at most once per process lifetime.

const warmupWindow = 90 * time.Second

var warmupLines = []string{
	"👋 Hey there! Warming up the system...",
	"⚙ Getting everything ready for you...",
	"📂 Preparing your secure file vault...",
	"🔍 Checking access token validity...",
	"🚀 Almost done, just a few seconds more...",
}

func randomProgressDelay() time.Duration {
	const (
		min = 1500 * time.Millisecond
		max = 3500 * time.Millisecond
	)
	return min + rand.N(max-min)
}

// progress is a handle to a running warm-up animation.
type progress struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// stop halts the animation and waits until every filler message it sent has
// been deleted. Safe to call on a nil handle, and more than once.
func (p *progress) stop() {
	if p == nil {
		return
	}
	p.cancel()
	<-p.done
}

// startProgress launches the warm-up animation in the given chat, unless the
// process is already warmed up or past the cold-start window. It returns nil
// when nothing was started; callers stop the returned handle on every exit
// path so filler messages never outlive the flow.
func (e *engine) startProgress(chatID int64) *progress {
	if e.warmed.Load() || e.now().Sub(e.startupTime) > warmupWindow {
		return nil
	}

	ctx, cancel := context.WithCancel(e.background())
	p := &progress{cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(p.done)

		var sent []msgRef
		defer func() {
			// The animation context may be canceled; clean up with the
			// long-lived one.
			ctx := e.background()
			for _, m := range sent {
				if err := e.deleteMessage(ctx, m); err != nil {
					e.logf("Deleting a filler message failed: %v", err)
				}
			}
		}()

		for _, line := range warmupLines {
			m, err := e.tgSend(ctx, "sendMessage", sendMessageArgs{
				ChatID: chatID,
				Text:   line,
			})
			if err == nil {
				sent = append(sent, m)
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(e.progressDelay()):
			}
		}
	}()

	return p
}
