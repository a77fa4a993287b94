// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package main

import (
	"context"
	"fmt"
	"html"
	"regexp"
	"strings"
	"sync"

	"go.astrophena.name/vaultbot/internal/tables"
)

// Admin commands for managing the lookup tables.

func (e *engine) handleAdminCommand(ctx context.Context, m *tgMessage, cmd, args string) {
	if !e.isAdmin(m.From.ID) {
		e.sendBest(ctx, m.Chat.ID, msgUnauthorized, nil)
		return
	}

	switch cmd {
	case "/add":
		e.addFile(ctx, m.Chat.ID, args)
	case "/list":
		e.listFiles(ctx, m.Chat.ID)
	case "/remove":
		e.removeFile(ctx, m.Chat.ID, args)
	case "/clearall":
		e.clearFiles(ctx, m.Chat.ID)
	case "/addalias":
		e.addAlias(ctx, m.Chat.ID, m.Text)
	case "/listaliases":
		e.listAliases(ctx, m.Chat.ID)
	case "/removealias":
		e.removeAlias(ctx, m.Chat.ID, args)
	case "/debugjson":
		e.debugJSON(ctx, m.Chat.ID)
	}
}

func (e *engine) addFile(ctx context.Context, chatID int64, args string) {
	fields := strings.Fields(args)
	if len(fields) < 2 {
		e.sendBest(ctx, chatID, "Usage: /add &lt;file name&gt; &lt;file_id&gt;", nil)
		return
	}
	name := stripDecorations(strings.Join(fields[:len(fields)-1], " "))
	ref := fields[len(fields)-1]

	files := tables.Load[map[string]string](ctx, e.tables, filesTable)
	files[name] = ref
	if err := tables.Save(ctx, e.tables, filesTable, files); err != nil {
		e.logf("Saving the file table failed: %v", err)
		e.sendBest(ctx, chatID, "⚠ Saving failed, check the logs.", nil)
		return
	}
	e.sendBest(ctx, chatID, fmt.Sprintf("✅ Added file:\n<b>%s</b>", html.EscapeString(name)), nil)
}

func (e *engine) listFiles(ctx context.Context, chatID int64) {
	files := tables.Load[map[string]string](ctx, e.tables, filesTable)
	if len(files) == 0 {
		e.sendBest(ctx, chatID, "📂 No files saved yet.", nil)
		return
	}
	var sb strings.Builder
	sb.WriteString("<b>📜 Saved files:</b>\n\n")
	for i, name := range sortedKeys(files) {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, html.EscapeString(name))
	}
	e.sendBest(ctx, chatID, sb.String(), nil)
}

func (e *engine) removeFile(ctx context.Context, chatID int64, args string) {
	if args == "" {
		e.sendBest(ctx, chatID, "Usage: /remove &lt;file name&gt;", nil)
		return
	}
	files := tables.Load[map[string]string](ctx, e.tables, filesTable)
	if _, ok := files[args]; !ok {
		e.sendBest(ctx, chatID, "❌ File not found.", nil)
		return
	}
	delete(files, args)
	if err := tables.Save(ctx, e.tables, filesTable, files); err != nil {
		e.logf("Saving the file table failed: %v", err)
		e.sendBest(ctx, chatID, "⚠ Saving failed, check the logs.", nil)
		return
	}
	e.sendBest(ctx, chatID, fmt.Sprintf("✅ Removed file:\n<b>%s</b>", html.EscapeString(args)), nil)
}

func (e *engine) clearFiles(ctx context.Context, chatID int64) {
	if err := tables.Save(ctx, e.tables, filesTable, map[string]string{}); err != nil {
		e.logf("Saving the file table failed: %v", err)
		e.sendBest(ctx, chatID, "⚠ Saving failed, check the logs.", nil)
		return
	}
	e.sendBest(ctx, chatID, "⚠ All files cleared!", nil)
}

// aliasRe matches "/addalias [Alias Name] <pattern1, pattern2, ...>".
var aliasRe = sync.OnceValue(func() *regexp.Regexp {
	return regexp.MustCompile(`^/addalias\s*\[(.+?)\]\s*<(.+)>`)
})

func (e *engine) addAlias(ctx context.Context, chatID int64, text string) {
	m := aliasRe().FindStringSubmatch(strings.TrimSpace(text))
	if m == nil {
		e.sendBest(ctx, chatID, "⚠ Invalid format.\nUse:\n<b>/addalias [Alias Name] &lt;file1, file2, ...&gt;</b>", nil)
		return
	}
	name := stripDecorations(m[1])

	var patterns []string
	for _, p := range strings.Split(m[2], ",") {
		if p = stripDecorations(p); p != "" {
			patterns = append(patterns, p)
		}
	}
	// Patterns don't have to match any existing file: resolution is lazy,
	// at delivery time.
	aliases := tables.Load[map[string][]string](ctx, e.tables, aliasesTable)
	aliases[name] = patterns
	if err := tables.Save(ctx, e.tables, aliasesTable, aliases); err != nil {
		e.logf("Saving the alias table failed: %v", err)
		e.sendBest(ctx, chatID, "⚠ Saving failed, check the logs.", nil)
		return
	}
	e.sendBest(ctx, chatID, fmt.Sprintf("✅ Alias <b>%s</b> added with %d patterns.", html.EscapeString(name), len(patterns)), nil)
}

func (e *engine) listAliases(ctx context.Context, chatID int64) {
	aliases := tables.Load[map[string][]string](ctx, e.tables, aliasesTable)
	if len(aliases) == 0 {
		e.sendBest(ctx, chatID, "📂 No aliases saved.", nil)
		return
	}
	var sb strings.Builder
	sb.WriteString("<b>🔗 Saved aliases:</b>\n\n")
	for i, name := range sortedKeys(aliases) {
		var patterns []string
		for _, p := range aliases[name] {
			patterns = append(patterns, html.EscapeString(p))
		}
		fmt.Fprintf(&sb, "%d. <b>%s</b> → %s\n", i+1, html.EscapeString(name), strings.Join(patterns, ", "))
	}
	e.sendBest(ctx, chatID, sb.String(), nil)
}

func (e *engine) removeAlias(ctx context.Context, chatID int64, args string) {
	if args == "" {
		e.sendBest(ctx, chatID, "Usage: /removealias &lt;alias name&gt;", nil)
		return
	}
	aliases := tables.Load[map[string][]string](ctx, e.tables, aliasesTable)
	if _, ok := aliases[args]; !ok {
		e.sendBest(ctx, chatID, "❌ Alias not found.", nil)
		return
	}
	delete(aliases, args)
	if err := tables.Save(ctx, e.tables, aliasesTable, aliases); err != nil {
		e.logf("Saving the alias table failed: %v", err)
		e.sendBest(ctx, chatID, "⚠ Saving failed, check the logs.", nil)
		return
	}
	e.sendBest(ctx, chatID, fmt.Sprintf("✅ Removed alias: %s", html.EscapeString(args)), nil)
}

// debugJSON dumps both tables back to the admin, pretty-printed.
func (e *engine) debugJSON(ctx context.Context, chatID int64) {
	files := tables.Load[map[string]string](ctx, e.tables, filesTable)
	aliases := tables.Load[map[string][]string](ctx, e.tables, aliasesTable)

	e.sendBest(ctx, chatID, fmt.Sprintf("<b>%s</b>\n<pre>%s</pre>", filesTable, html.EscapeString(toJSON(files))), nil)
	e.sendBest(ctx, chatID, fmt.Sprintf("<b>%s</b>\n<pre>%s</pre>", aliasesTable, html.EscapeString(toJSON(aliases))), nil)
}
