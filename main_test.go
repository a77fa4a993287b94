// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package main

import (
	"context"
	"encoding/json"
	"flag"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"go.astrophena.name/base/cli"
	"go.astrophena.name/base/cli/clitest"
	"go.astrophena.name/base/testutil"

	"go.astrophena.name/vaultbot/internal/tables"
)

// Typical Telegram Bot API token, copied from docs.
const tgToken = "123456:ABC-DEF1234ghIkl-zyx57W2v1u123ew11"

const (
	testAdminID      = 141
	testUserID       = 99
	testVaultChannel = -1001234567890
)

func TestRun(t *testing.T) {
	t.Parallel()

	clitest.Run(t, func(t *testing.T) *engine {
		e := new(engine)
		e.httpc = testutil.MockHTTPClient(testMux(t, nil).mux)
		e.stateDir = t.TempDir()
		e.noServerStart = true
		return e
	}, map[string]clitest.Case[*engine]{
		"prints usage with help flag": {
			Args:    []string{"-h"},
			WantErr: flag.ErrHelp,
		},
		"fails without credentials": {
			Args:    []string{},
			WantErr: errNoConfig,
		},
		"sets telegram token passed by env": {
			Args: []string{},
			Env: map[string]string{
				"TG_TOKEN": tgToken,
				"HOST":     "bot.example.com",
			},
			CheckFunc: func(t *testing.T, e *engine) {
				testutil.AssertEqual(t, e.tgToken, tgToken)
				testutil.AssertEqual(t, e.host, "bot.example.com")
			},
		},
		"version": {
			Args:    []string{"-version"},
			WantErr: cli.ErrExitVersion,
		},
	},
	)
}

func testEngine(t *testing.T, m *mux) *engine {
	t.Helper()
	e := &engine{
		adminID:         testAdminID,
		channelUsername: "examplechannel",
		deleteAfter:     10 * time.Minute,
		httpc:           testutil.MockHTTPClient(m.mux),
		idleTimeout:     10 * time.Minute,
		stateDir:        t.TempDir(),
		tgSecret:        "test",
		tgToken:         tgToken,
		vaultChannelID:  testVaultChannel,
		verifyURL:       "https://verify.example.com",
		progressDelay:   func() time.Duration { return 0 },
	}
	// Keep the warm-up animation out of tests unless they enable it.
	e.warmed.Store(true)
	if err := e.init.Get(func() error {
		return e.doInit(t.Context())
	}); err != nil {
		t.Fatal(err)
	}
	return e
}

type mux struct {
	mux *http.ServeMux

	mu          sync.Mutex
	nextID      int64
	sent        []map[string]any // sendMessage and sendVideo payloads, in order
	edited      []map[string]any
	deleted     []map[string]any
	verifyCalls int

	membership string // status getChatMember reports; "" means HTTP 502
}

const (
	sendMessage    = "POST api.telegram.org/{token}/sendMessage"
	sendVideo      = "POST api.telegram.org/{token}/sendVideo"
	editMessage    = "POST api.telegram.org/{token}/editMessageText"
	deleteMsg      = "POST api.telegram.org/{token}/deleteMessage"
	answerCallback = "POST api.telegram.org/{token}/answerCallbackQuery"
	getChatMember  = "POST api.telegram.org/{token}/getChatMember"
	verifyToken    = "GET verify.example.com/tokens/verify"
)

func testMux(t *testing.T, overrides map[string]http.HandlerFunc) *mux {
	m := &mux{mux: http.NewServeMux(), membership: "member"}

	record := func(w http.ResponseWriter, r *http.Request) {
		testutil.AssertEqual(t, tgToken, strings.TrimPrefix(r.PathValue("token"), "bot"))
		body := decodeBody(t, r)
		m.mu.Lock()
		m.nextID++
		id := m.nextID
		m.sent = append(m.sent, body)
		m.mu.Unlock()
		chatID, _ := body["chat_id"].(float64)
		json.NewEncoder(w).Encode(map[string]any{
			"ok": true,
			"result": map[string]any{
				"message_id": id,
				"chat":       map[string]any{"id": int64(chatID)},
			},
		})
	}

	m.mux.HandleFunc(sendMessage, orHandler(overrides[sendMessage], record))
	m.mux.HandleFunc(sendVideo, orHandler(overrides[sendVideo], record))
	m.mux.HandleFunc(editMessage, orHandler(overrides[editMessage], func(w http.ResponseWriter, r *http.Request) {
		body := decodeBody(t, r)
		m.mu.Lock()
		m.edited = append(m.edited, body)
		m.mu.Unlock()
		chatID, _ := body["chat_id"].(float64)
		msgID, _ := body["message_id"].(float64)
		json.NewEncoder(w).Encode(map[string]any{
			"ok": true,
			"result": map[string]any{
				"message_id": int64(msgID),
				"chat":       map[string]any{"id": int64(chatID)},
			},
		})
	}))
	m.mux.HandleFunc(deleteMsg, orHandler(overrides[deleteMsg], func(w http.ResponseWriter, r *http.Request) {
		body := decodeBody(t, r)
		m.mu.Lock()
		m.deleted = append(m.deleted, body)
		m.mu.Unlock()
		w.Write([]byte(`{"ok":true,"result":true}`))
	}))
	m.mux.HandleFunc(answerCallback, orHandler(overrides[answerCallback], func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ok":true,"result":true}`))
	}))
	m.mux.HandleFunc(getChatMember, orHandler(overrides[getChatMember], func(w http.ResponseWriter, r *http.Request) {
		m.mu.Lock()
		status := m.membership
		m.mu.Unlock()
		if status == "" {
			http.Error(w, "Bad Gateway", http.StatusBadGateway)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"ok":     true,
			"result": map[string]any{"status": status},
		})
	}))
	m.mux.HandleFunc("POST api.telegram.org/{token}/setWebhook", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ok":true,"result":true}`))
	})
	m.mux.HandleFunc("POST api.telegram.org/{token}/setMyCommands", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ok":true,"result":true}`))
	})
	m.mux.HandleFunc(verifyToken, orHandler(overrides[verifyToken], func(w http.ResponseWriter, r *http.Request) {
		m.mu.Lock()
		m.verifyCalls++
		m.mu.Unlock()
		w.Write([]byte(`{"valid":true,"alias":"Season 1"}`))
	}))

	return m
}

func orHandler(hh ...http.HandlerFunc) http.HandlerFunc {
	for _, h := range hh {
		if h != nil {
			return h
		}
	}
	return nil
}

func decodeBody(t *testing.T, r *http.Request) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	return body
}

func (m *mux) lastSent(t *testing.T) map[string]any {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		t.Fatal("nothing was sent")
	}
	return m.sent[len(m.sent)-1]
}

func (m *mux) lastEdited(t *testing.T) map[string]any {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.edited) == 0 {
		t.Fatal("nothing was edited")
	}
	return m.edited[len(m.edited)-1]
}

func (m *mux) sentCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

func (m *mux) deletedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.deleted)
}

func (m *mux) setMembership(status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.membership = status
}

func (e *engine) trackedCount() int {
	var n int
	e.tracked.ReadAccess(func(l *sentLog) { n = len(l.msgs) })
	return n
}

func (e *engine) seedTables(t *testing.T, files map[string]string, aliases map[string][]string) {
	t.Helper()
	ctx := context.Background()
	if err := tables.Save(ctx, e.tables, filesTable, files); err != nil {
		t.Fatal(err)
	}
	if err := tables.Save(ctx, e.tables, aliasesTable, aliases); err != nil {
		t.Fatal(err)
	}
}

func userMessage(text string) *tgMessage {
	return &tgMessage{
		MessageID: 1,
		From:      &tgUser{ID: testUserID},
		Chat:      tgChat{ID: testUserID},
		Text:      text,
	}
}

func adminMessage(text string) *tgMessage {
	return &tgMessage{
		MessageID: 1,
		From:      &tgUser{ID: testAdminID},
		Chat:      tgChat{ID: testAdminID},
		Text:      text,
	}
}

func TestHealth(t *testing.T) {
	t.Parallel()

	e := testEngine(t, testMux(t, nil))

	r := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	e.mux.ServeHTTP(w, r)
	testutil.AssertEqual(t, w.Code, http.StatusOK)
}

func TestActivityClock(t *testing.T) {
	t.Parallel()

	e := testEngine(t, testMux(t, nil))

	past := time.Now().Add(-time.Hour)
	e.lastActivity.Store(past.Unix())
	e.markActivity()
	if !e.lastActivityTime().After(past) {
		t.Fatal("activity clock wasn't updated")
	}
}

func TestTrackUntrack(t *testing.T) {
	t.Parallel()

	e := testEngine(t, testMux(t, nil))

	a := msgRef{ChatID: 1, MessageID: 1}
	b := msgRef{ChatID: 1, MessageID: 2}
	e.track(a)
	e.track(b)
	testutil.AssertEqual(t, e.trackedCount(), 2)

	e.untrack(a)
	testutil.AssertEqual(t, e.trackedCount(), 1)
	// Untracking something that isn't there is a no-op.
	e.untrack(a)
	testutil.AssertEqual(t, e.trackedCount(), 1)
}
