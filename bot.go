// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package main

import (
	"cmp"
	"context"
	"fmt"
	"strings"
)

// User-visible messages. Plain text only: internal error details never reach
// non-admin users.
const (
	msgGreeting = "🎌 Welcome to the vault!\n\n" +
		"Kindly use secure links from our official channel to access your files.\n" +
		"👉 <a href='https://t.me/%s'>Join the channel</a>"
	msgInvalidRequest = "😅 Invalid command or request.\n" +
		"Please use a download link from our <b>official channel</b> to access files."
	msgPreparing          = "⏳ Preparing your download session..."
	msgVerifyUnavailable  = "⚠ Token verification failed. Try again later."
	msgInvalidToken       = "❌ Invalid or expired token.\nPlease use a valid link from our official channel."
	msgTokenWithoutFile   = "⚠ Token verified but no file found. It might have been deleted or moved."
	msgJoinPrompt         = "📂 Your file is ready!\nPlease join our channel first 👇"
	msgMustJoin           = "❌ You must join our public channel first to access files.\nAfter joining, tap Refresh below 👇"
	msgGateUnavailable    = "⚠ Couldn't verify your channel join. Please try again later."
	msgMembershipVerified = "✅ Channel verified! Fetching your files..."
	msgNoMatches          = "❌ No matching files found for this request."
	msgPreparingFiles     = "📦 Preparing your files... please wait."
	msgUnauthorized       = "⛔ Unauthorized."
)

const minTokenLen = 10

// tokenEligible reports whether input can be exchanged with the verification
// service. Anything shorter than ten characters or containing whitespace is
// never sent there.
func tokenEligible(s string) bool {
	return len(s) >= minTokenLen && !strings.ContainsAny(s, " \t\n")
}

func (e *engine) isAdmin(userID int64) bool {
	return e.adminID != 0 && userID == e.adminID
}

func (e *engine) handleMessage(ctx context.Context, m *tgMessage) {
	if m.From == nil {
		return
	}
	text := strings.TrimSpace(m.Text)
	cmd, args := splitCommand(text)

	switch cmd {
	case "/start":
		e.handleStart(ctx, m, args)
	case "/about":
		e.handleAbout(ctx, m)
	case "/add", "/list", "/remove", "/clearall", "/addalias", "/listaliases", "/removealias", "/debugjson":
		e.handleAdminCommand(ctx, m, cmd, args)
	default:
		// Anything else, command or not, gets the greeting with the channel
		// invite.
		e.sendGreeting(ctx, m.Chat.ID)
		e.warmed.Store(true)
	}
}

// splitCommand separates the leading /command (with an optional @botname
// suffix) from its arguments.
func splitCommand(text string) (cmd, args string) {
	if !strings.HasPrefix(text, "/") {
		return "", text
	}
	cmd, args, _ = strings.Cut(text, " ")
	cmd, _, _ = strings.Cut(cmd, "@")
	return cmd, strings.TrimSpace(args)
}

// handleStart classifies a /start invocation: no argument means a greeting,
// a token-shaped argument goes through the verification flow, and anything
// else is either an admin doing a direct lookup or an invalid request.
func (e *engine) handleStart(ctx context.Context, m *tgMessage, args string) {
	switch {
	case args == "":
		e.sendGreeting(ctx, m.Chat.ID)
		e.warmed.Store(true)
	case tokenEligible(args):
		e.handleToken(ctx, m, args)
	case e.isAdmin(m.From.ID):
		// Admins can skip tokens and the membership gate entirely and look
		// up an alias or file by name.
		e.deliver(ctx, m.Chat.ID, args)
	default:
		if _, err := e.sendText(ctx, m.Chat.ID, msgInvalidRequest, nil); err != nil {
			e.logf("Replying to an invalid request failed: %v", err)
		}
		e.warmed.Store(true)
	}
}

// handleToken exchanges an access token for a file or alias name and, on
// success, shows the join-channel prompt. The flow continues in
// handleCallback once the user taps Refresh; the resolved name travels in
// the callback payload, not in server-side session state.
func (e *engine) handleToken(ctx context.Context, m *tgMessage, token string) {
	wait, err := e.sendText(ctx, m.Chat.ID, msgPreparing, nil)
	if err != nil {
		e.logf("Sending the placeholder message failed: %v", err)
		return
	}

	prog := e.startProgress(m.Chat.ID)
	defer prog.stop()

	res, err := e.verifyToken(ctx, token, m.From.ID)
	e.warmed.Store(true)
	if err != nil {
		e.logf("Token verification failed: %v", err)
		// Not the same as an invalid token: the service was unreachable, so
		// ask the user to retry later.
		if err := e.editText(ctx, wait, msgVerifyUnavailable, nil); err != nil {
			e.logf("Editing the placeholder message failed: %v", err)
		}
		return
	}

	if err := e.deleteMessage(ctx, wait); err == nil {
		e.untrack(wait)
	}

	if !res.Valid {
		e.sendBest(ctx, m.Chat.ID, msgInvalidToken, nil)
		return
	}
	name := cmp.Or(res.Alias, res.File)
	if name == "" {
		e.sendBest(ctx, m.Chat.ID, msgTokenWithoutFile, nil)
		return
	}
	e.sendBest(ctx, m.Chat.ID, msgJoinPrompt, e.joinPromptMarkup(name))
}

// handleCallback continues a flow from the join-channel prompt: it re-checks
// channel membership and delivers the files once the user has joined.
func (e *engine) handleCallback(ctx context.Context, q *callbackQuery) {
	if err := e.answerCallback(ctx, q.ID); err != nil {
		e.logf("Answering a callback query failed: %v", err)
	}

	name, ok := strings.CutPrefix(q.Data, "refresh:")
	if !ok || q.Message == nil {
		return
	}
	prompt := q.Message.ref()

	status, err := e.getMembership(ctx, q.From.ID)
	if err != nil {
		e.logf("Membership lookup for %d failed: %v", q.From.ID, err)
		// A lookup failure is not "not a member": tell the user to retry
		// instead of re-prompting them to join.
		if err := e.editText(ctx, prompt, msgGateUnavailable, nil); err != nil {
			e.logf("Editing the join prompt failed: %v", err)
		}
		return
	}

	if !isMember(status) {
		// Re-show the same prompt; the user can tap Refresh again after
		// joining. Telegram rejects no-op edits, which is fine.
		if err := e.editText(ctx, prompt, msgMustJoin, e.joinPromptMarkup(name)); err != nil {
			e.logf("Editing the join prompt failed: %v", err)
		}
		return
	}

	if err := e.editText(ctx, prompt, msgMembershipVerified, nil); err != nil {
		e.logf("Editing the join prompt failed: %v", err)
	}
	e.deliver(ctx, prompt.ChatID, name)
}

func isMember(status string) bool {
	switch strings.ToLower(status) {
	case "member", "administrator", "creator":
		return true
	}
	return false
}

func (e *engine) joinPromptMarkup(name string) *replyMarkup {
	return &replyMarkup{
		InlineKeyboard: [][]inlineKeyboardButton{
			{{Text: "📢 Join channel", URL: "https://t.me/" + e.channelUsername}},
			{{Text: "🔄 Refresh", CallbackData: "refresh:" + name}},
		},
	}
}

func (e *engine) sendGreeting(ctx context.Context, chatID int64) {
	e.sendBest(ctx, chatID, fmt.Sprintf(msgGreeting, e.channelUsername), nil)
}

func (e *engine) handleAbout(ctx context.Context, m *tgMessage) {
	e.sendBest(ctx, m.Chat.ID, fmt.Sprintf(
		"🤖 <b>About this bot</b>\n\n"+
			"This bot securely fetches files from our private vault using access links.\n\n"+
			"📢 Public channel: <a href='https://t.me/%s'>t.me/%s</a>\n"+
			"🕒 Delivered files auto-delete after %d minutes.",
		e.channelUsername, e.channelUsername, int(e.deleteAfter.Minutes())), nil)
}

// sendBest sends a message, logging instead of failing when Telegram
// rejects it.
func (e *engine) sendBest(ctx context.Context, chatID int64, text string, markup *replyMarkup) {
	if _, err := e.sendText(ctx, chatID, text, markup); err != nil {
		e.logf("Sending a message to %d failed: %v", chatID, err)
	}
}
