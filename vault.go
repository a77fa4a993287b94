// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package main

import (
	"context"
	"encoding/json"
	"maps"
	"slices"
	"strings"

	"go.astrophena.name/vaultbot/internal/tables"
)

// handleChannelPost watches the private vault channel and registers every
// newly posted file under its name. Existing entries are never overwritten
// here; that requires an explicit /add.
func (e *engine) handleChannelPost(ctx context.Context, m *tgMessage) {
	if e.vaultChannelID == 0 || m.Chat.ID != e.vaultChannelID {
		return
	}
	f := m.attachment()
	if f == nil {
		return
	}

	name := f.FileName
	if name == "" {
		name = "file_" + f.FileUniqueID
	}
	name = stripDecorations(name)

	files := tables.Load[map[string]string](ctx, e.tables, filesTable)
	if _, exists := files[name]; exists {
		e.logf("Skipping %q: already registered.", name)
		return
	}
	files[name] = f.FileID
	if err := tables.Save(ctx, e.tables, filesTable, files); err != nil {
		e.logf("Auto-saving %q failed: %v", name, err)
		return
	}
	e.logf("Auto-saved %q.", name)

	if e.adminID != 0 {
		// A plain notification, deliberately not tracked: the admin decides
		// when to get rid of it.
		if _, err := e.tgSend(ctx, "sendMessage", sendMessageArgs{
			ChatID: e.adminID,
			Text:   "✅ Auto-saved: " + name,
		}); err != nil {
			e.logf("Notifying the admin about %q failed: %v", name, err)
		}
	}
}

// stripDecorations removes emoji and similar pictographic symbols that file
// names in the vault channel tend to be decorated with, keeping lookups
// plain-text.
func stripDecorations(s string) string {
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		switch {
		case r >= 0x1F300 && r <= 0x1FAFF, // pictographs, transport, supplemental
			r >= 0x2600 && r <= 0x27BF, // misc symbols and dingbats
			r >= 0x1F1E6 && r <= 0x1F1FF, // regional indicators
			r == 0xFE0F: // variation selector
			return -1
		}
		return r
	}, s))
}

func sortedKeys[M ~map[string]V, V any](m M) []string {
	return slices.Sorted(maps.Keys(m))
}

func toJSON(v any) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(b)
}
