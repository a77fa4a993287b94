// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package main

import (
	"cmp"
	"context"
	"errors"
	"flag"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"go.astrophena.name/base/cli"
	"go.astrophena.name/base/logger"
	"go.astrophena.name/base/request"
	"go.astrophena.name/base/syncx"
	"go.astrophena.name/base/web"

	"go.astrophena.name/vaultbot/internal/api/gist"
	"go.astrophena.name/vaultbot/internal/tables"
)

const (
	tgAPI = "https://api.telegram.org"

	filesTable   = "files.json"
	aliasesTable = "aliases.json"
)

var errNoConfig = errors.New("TG_TOKEN and HOST must be set")

func main() { cli.Main(new(engine)) }

func (e *engine) Flags(fs *flag.FlagSet) {
	fs.StringVar(&e.addr, "addr", "localhost:3000", "Listen on `host:port`.")
	fs.DurationVar(&e.deleteAfter, "delete-after", 10*time.Minute, "Delete delivered files after this `duration`.")
	fs.DurationVar(&e.idleTimeout, "idle-timeout", 10*time.Minute, "Purge sent messages and exit after this `duration` without user activity.")
}

func (e *engine) Run(ctx context.Context) error {
	env := cli.GetEnv(ctx)

	// Load configuration from environment variables.
	e.adminID = cmp.Or(e.adminID, parseInt(env.Getenv("ADMIN_ID")))
	e.channelUsername = cmp.Or(e.channelUsername, env.Getenv("CHANNEL_USERNAME"))
	e.ghToken = cmp.Or(e.ghToken, env.Getenv("GH_TOKEN"))
	e.gistID = cmp.Or(e.gistID, env.Getenv("GIST_ID"))
	e.host = cmp.Or(e.host, env.Getenv("HOST"))
	e.stateDir = cmp.Or(e.stateDir, env.Getenv("STATE_DIRECTORY"))
	e.tgSecret = cmp.Or(e.tgSecret, env.Getenv("TG_SECRET"))
	e.tgToken = cmp.Or(e.tgToken, env.Getenv("TG_TOKEN"))
	e.vaultChannelID = cmp.Or(e.vaultChannelID, parseInt(env.Getenv("VAULT_CHANNEL_ID")))
	e.verifyURL = cmp.Or(e.verifyURL, env.Getenv("VERIFY_URL"), "https://mkcycles.pythonanywhere.com")

	if e.tgToken == "" || e.host == "" {
		return errNoConfig
	}
	if e.stateDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return err
		}
		e.stateDir = filepath.Join(home, ".local", "state", "vaultbot")
	}
	if err := os.MkdirAll(e.stateDir, 0o700); err != nil {
		return err
	}

	// Initialize internal state.
	if err := e.init.Get(func() error {
		return e.doInit(ctx)
	}); err != nil {
		return err
	}

	// Used in tests.
	if e.noServerStart {
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	e.bg = ctx
	e.shutdown = cancel

	if err := e.setWebhook(ctx); err != nil {
		return err
	}
	if err := e.setCommandMenu(ctx); err != nil {
		e.logf("Registering the command menu failed: %v", err)
	}

	go e.watchInactivity(ctx)

	return e.srv.ListenAndServe(ctx)
}

type engine struct {
	init syncx.Lazy[error] // main initialization

	// initialized by doInit
	gistc    *gist.Client
	httpc    *http.Client
	logf     logger.Logf
	mux      *http.ServeMux
	scrubber *strings.Replacer
	srv      *web.Server
	tables   *tables.Store
	verifyc  *http.Client // bounded timeout for the verification service

	// configuration, read-only after initialization
	addr            string
	adminID         int64
	channelUsername string
	deleteAfter     time.Duration
	ghToken         string
	gistID          string
	host            string
	idleTimeout     time.Duration
	stateDir        string
	tgSecret        string
	tgToken         string
	vaultChannelID  int64
	verifyURL       string

	// runtime state, shared between handlers and background loops
	startupTime   time.Time
	lastActivity  atomic.Int64 // unix seconds
	warmed        atomic.Bool  // set once the first flow completes
	tracked       syncx.Protected[*sentLog]
	bg            context.Context    // outlives individual webhook requests
	shutdown      context.CancelFunc // set before the server starts

	// for tests
	noServerStart bool
	now           func() time.Time
	afterFunc     func(d time.Duration, f func()) *time.Timer
	progressDelay func() time.Duration
	ready         func() // see web.Server.Ready
}

// sentLog is the ordered set of every message the bot has sent and not yet
// deleted. The janitor clears it wholesale; scheduled deletion jobs remove
// entries one by one.
type sentLog struct {
	msgs []msgRef
}

// msgRef identifies a single message the bot has sent.
type msgRef struct {
	ChatID    int64 `json:"chat_id"`
	MessageID int64 `json:"message_id"`
}

const verifyTimeout = 8 * time.Second

func (e *engine) doInit(ctx context.Context) error {
	env := cli.GetEnv(ctx)
	e.logf = log.New(env.Stderr, "", 0).Printf

	if e.now == nil {
		e.now = time.Now
	}
	if e.afterFunc == nil {
		e.afterFunc = time.AfterFunc
	}
	if e.httpc == nil {
		e.httpc = request.DefaultClient
	}
	if e.verifyc == nil {
		e.verifyc = &http.Client{
			Timeout:   verifyTimeout,
			Transport: e.httpc.Transport,
		}
	}
	if e.progressDelay == nil {
		e.progressDelay = randomProgressDelay
	}

	var scrubPairs []string
	for _, val := range []string{
		e.ghToken,
		e.gistID,
		e.tgSecret,
		e.tgToken,
	} {
		if val != "" {
			scrubPairs = append(scrubPairs, val, "[EXPUNGED]")
		}
	}
	if len(scrubPairs) > 0 {
		e.scrubber = strings.NewReplacer(scrubPairs...)
	}

	if e.ghToken != "" && e.gistID != "" {
		e.gistc = &gist.Client{
			Token:      e.ghToken,
			HTTPClient: e.httpc,
			Scrubber:   e.scrubber,
		}
	}
	e.tables = &tables.Store{
		Dir:    e.stateDir,
		Logf:   e.logf,
		Gist:   e.gistc,
		GistID: e.gistID,
	}

	e.startupTime = e.now()
	e.markActivity()
	e.tracked = syncx.Protect(&sentLog{})

	e.initRoutes()
	e.srv = &web.Server{
		Addr:  e.addr,
		Mux:   e.mux,
		Ready: e.ready,
	}

	return nil
}

func (e *engine) initRoutes() {
	e.mux = http.NewServeMux()
	e.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			web.RespondError(w, r, web.ErrNotFound)
			return
		}
		io.WriteString(w, "Bot is alive.\n")
	})
	e.mux.HandleFunc("POST /telegram", e.handleWebhook)
	web.Health(e.mux)
}

// background returns a context that isn't tied to a single webhook request,
// for work that outlives the request (scheduled deletions, the warm-up
// animation).
func (e *engine) background() context.Context {
	if e.bg != nil {
		return e.bg
	}
	return context.Background()
}

// markActivity records that a user just interacted with the bot. The
// inactivity janitor compares against this timestamp.
func (e *engine) markActivity() {
	e.lastActivity.Store(e.now().Unix())
}

func (e *engine) lastActivityTime() time.Time {
	return time.Unix(e.lastActivity.Load(), 0)
}

func (e *engine) track(m msgRef) {
	e.tracked.WriteAccess(func(l *sentLog) {
		l.msgs = append(l.msgs, m)
	})
}

func (e *engine) untrack(m msgRef) {
	e.tracked.WriteAccess(func(l *sentLog) {
		for i, have := range l.msgs {
			if have == m {
				l.msgs = append(l.msgs[:i], l.msgs[i+1:]...)
				return
			}
		}
	})
}

func parseInt(s string) int64 {
	i, err := strconv.ParseInt(s, 10, 64)
	if err == nil {
		return i
	}
	return 0
}
