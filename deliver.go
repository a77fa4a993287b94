// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package main

import (
	"context"
	"fmt"

	"go.astrophena.name/vaultbot/internal/tables"
)

// deliver resolves a name against the lookup tables and sends every matching
// file to the chat. Delivery is best-effort: a file that fails to send is
// logged and skipped, the rest of the plan still goes out. Every delivered
// file is scheduled for deletion after the configured delay, batches
// included.
func (e *engine) deliver(ctx context.Context, chatID int64, name string) {
	files := tables.Load[map[string]string](ctx, e.tables, filesTable)
	aliases := tables.Load[map[string][]string](ctx, e.tables, aliasesTable)

	plan := resolve(name, files, aliases)
	if len(plan) == 0 {
		e.sendBest(ctx, chatID, msgNoMatches, nil)
		return
	}
	if len(plan) > 1 {
		e.sendBest(ctx, chatID, msgPreparingFiles, nil)
	}

	var sent int
	for _, item := range plan {
		m, err := e.tgSend(ctx, "sendVideo", sendVideoArgs{
			ChatID: chatID,
			Video:  item.ref,
		})
		if err != nil {
			e.logf("Delivering %q to %d failed: %v", item.name, chatID, err)
			continue
		}
		e.track(m)
		e.scheduleDeletion(m)
		sent++
	}

	if sent == 0 {
		e.sendBest(ctx, chatID, msgNoMatches, nil)
		return
	}
	e.sendBest(ctx, chatID, fmt.Sprintf(
		"✅ Sent %d file(s) for: <b>%s</b>\n\n🕒 Files auto-delete in %d minutes.",
		sent, name, int(e.deleteAfter.Minutes())), nil)
}

// scheduleDeletion arranges for a delivered message to be deleted after the
// configured delay. Deletion is best-effort: the message may already be gone
// (deleted by the user, or swept by the janitor), which is fine. The entry
// leaves the sent log either way, so nothing accumulates.
func (e *engine) scheduleDeletion(m msgRef) {
	e.afterFunc(e.deleteAfter, func() {
		ctx := e.background()
		if err := e.deleteMessage(ctx, m); err != nil {
			e.logf("Scheduled deletion of message %d in %d failed: %v", m.MessageID, m.ChatID, err)
		}
		e.untrack(m)
	})
}
