// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package main

import (
	"encoding/json"
	"io"
	"net/http"

	"go.astrophena.name/base/web"
)

// handleWebhook receives a single Telegram update. Updates are handled
// synchronously: Telegram delivers the next one only after we respond, which
// gives every handler exclusive access to the in-memory state between
// suspension points.
func (e *engine) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if e.tgSecret != "" && r.Header.Get("X-Telegram-Bot-Api-Secret-Token") != e.tgSecret {
		web.RespondJSONError(w, r, web.ErrNotFound)
		return
	}

	var u update
	if err := json.NewDecoder(r.Body).Decode(&u); err != nil {
		web.RespondJSONError(w, r, err)
		return
	}

	ctx := r.Context()
	switch {
	case u.CallbackQuery != nil:
		e.markActivity()
		e.handleCallback(ctx, u.CallbackQuery)
	case u.ChannelPost != nil:
		e.handleChannelPost(ctx, u.ChannelPost)
	case u.Message != nil:
		e.markActivity()
		e.handleMessage(ctx, u.Message)
	}

	// Always respond with 200: an error here would make Telegram retry the
	// update over and over.
	jsonOK(w)
}

func jsonOK(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	io.WriteString(w, `{"status":"ok"}`+"\n")
}
