// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package main

import (
	"cmp"
	"context"
	"net/http"
	"net/url"

	"go.astrophena.name/base/request"
	"go.astrophena.name/base/version"
)

// Telegram Bot API types, trimmed down to the fields the bot looks at.
// See https://core.telegram.org/bots/api.

type update struct {
	UpdateID      int64          `json:"update_id"`
	Message       *tgMessage     `json:"message"`
	ChannelPost   *tgMessage     `json:"channel_post"`
	CallbackQuery *callbackQuery `json:"callback_query"`
}

type tgMessage struct {
	MessageID int64   `json:"message_id"`
	From      *tgUser `json:"from"`
	Chat      tgChat  `json:"chat"`
	Text      string  `json:"text"`
	Video     *tgFile `json:"video"`
	Document  *tgFile `json:"document"`
	Animation *tgFile `json:"animation"`
}

// attachment returns the file attached to a message, if any.
func (m *tgMessage) attachment() *tgFile {
	return cmp.Or(m.Video, m.Document, m.Animation)
}

func (m *tgMessage) ref() msgRef {
	return msgRef{ChatID: m.Chat.ID, MessageID: m.MessageID}
}

type tgUser struct {
	ID int64 `json:"id"`
}

type tgChat struct {
	ID int64 `json:"id"`
}

type tgFile struct {
	FileID       string `json:"file_id"`
	FileUniqueID string `json:"file_unique_id"`
	FileName     string `json:"file_name"`
}

type callbackQuery struct {
	ID      string     `json:"id"`
	From    tgUser     `json:"from"`
	Message *tgMessage `json:"message"`
	Data    string     `json:"data"`
}

// https://core.telegram.org/bots/api#inlinekeyboardbutton
type inlineKeyboardButton struct {
	Text         string `json:"text"`
	URL          string `json:"url,omitempty"`
	CallbackData string `json:"callback_data,omitempty"`
}

type replyMarkup struct {
	InlineKeyboard [][]inlineKeyboardButton `json:"inline_keyboard"`
}

type linkPreviewOptions struct {
	IsDisabled bool `json:"is_disabled"`
}

type sendMessageArgs struct {
	ChatID             int64               `json:"chat_id"`
	MessageID          int64               `json:"message_id,omitempty"` // editMessageText only
	Text               string              `json:"text"`
	ParseMode          string              `json:"parse_mode,omitempty"`
	ReplyMarkup        *replyMarkup        `json:"reply_markup,omitempty"`
	LinkPreviewOptions *linkPreviewOptions `json:"link_preview_options,omitempty"`
}

type sendVideoArgs struct {
	ChatID int64  `json:"chat_id"`
	Video  string `json:"video"`
}

type botCommand struct {
	Command     string `json:"command"`
	Description string `json:"description"`
}

// messageResponse is the Bot API envelope for methods that return a Message.
type messageResponse struct {
	OK     bool `json:"ok"`
	Result struct {
		MessageID int64  `json:"message_id"`
		Chat      tgChat `json:"chat"`
	} `json:"result"`
}

type chatMemberResponse struct {
	OK     bool `json:"ok"`
	Result struct {
		Status string `json:"status"`
	} `json:"result"`
}

// tgSend calls a Bot API method that produces a message and returns a
// reference to it.
func (e *engine) tgSend(ctx context.Context, method string, args any) (msgRef, error) {
	res, err := request.Make[messageResponse](ctx, request.Params{
		Method: http.MethodPost,
		URL:    tgAPI + "/bot" + e.tgToken + "/" + method,
		Body:   args,
		Headers: map[string]string{
			"User-Agent": version.UserAgent(),
		},
		HTTPClient: e.httpc,
		Scrubber:   e.scrubber,
	})
	if err != nil {
		return msgRef{}, err
	}
	return msgRef{ChatID: res.Result.Chat.ID, MessageID: res.Result.MessageID}, nil
}

// tgDo calls a Bot API method whose result the bot doesn't care about.
func (e *engine) tgDo(ctx context.Context, method string, args any) error {
	_, err := request.Make[request.IgnoreResponse](ctx, request.Params{
		Method: http.MethodPost,
		URL:    tgAPI + "/bot" + e.tgToken + "/" + method,
		Body:   args,
		Headers: map[string]string{
			"User-Agent": version.UserAgent(),
		},
		HTTPClient: e.httpc,
		Scrubber:   e.scrubber,
	})
	return err
}

// sendText sends a message and records it for later cleanup.
func (e *engine) sendText(ctx context.Context, chatID int64, text string, markup *replyMarkup) (msgRef, error) {
	m, err := e.tgSend(ctx, "sendMessage", sendMessageArgs{
		ChatID:             chatID,
		Text:               text,
		ParseMode:          "HTML",
		ReplyMarkup:        markup,
		LinkPreviewOptions: &linkPreviewOptions{IsDisabled: true},
	})
	if err != nil {
		return msgRef{}, err
	}
	e.track(m)
	return m, nil
}

// editText rewrites a previously sent message in place.
func (e *engine) editText(ctx context.Context, m msgRef, text string, markup *replyMarkup) error {
	_, err := e.tgSend(ctx, "editMessageText", sendMessageArgs{
		ChatID:             m.ChatID,
		MessageID:          m.MessageID,
		Text:               text,
		ParseMode:          "HTML",
		ReplyMarkup:        markup,
		LinkPreviewOptions: &linkPreviewOptions{IsDisabled: true},
	})
	return err
}

func (e *engine) deleteMessage(ctx context.Context, m msgRef) error {
	return e.tgDo(ctx, "deleteMessage", map[string]int64{
		"chat_id":    m.ChatID,
		"message_id": m.MessageID,
	})
}

func (e *engine) answerCallback(ctx context.Context, id string) error {
	return e.tgDo(ctx, "answerCallbackQuery", map[string]string{
		"callback_query_id": id,
	})
}

// getMembership looks up the requester's membership record in the public
// channel and returns the raw status string.
func (e *engine) getMembership(ctx context.Context, userID int64) (string, error) {
	res, err := request.Make[chatMemberResponse](ctx, request.Params{
		Method: http.MethodPost,
		URL:    tgAPI + "/bot" + e.tgToken + "/getChatMember",
		Body: map[string]any{
			"chat_id": "@" + e.channelUsername,
			"user_id": userID,
		},
		Headers: map[string]string{
			"User-Agent": version.UserAgent(),
		},
		HTTPClient: e.httpc,
		Scrubber:   e.scrubber,
	})
	if err != nil {
		return "", err
	}
	return res.Result.Status, nil
}

func (e *engine) setWebhook(ctx context.Context) error {
	u := &url.URL{
		Scheme: "https",
		Host:   e.host,
		Path:   "/telegram",
	}
	return e.tgDo(ctx, "setWebhook", map[string]string{
		"url":          u.String(),
		"secret_token": e.tgSecret,
	})
}

// setCommandMenu registers the command menu: the short list for everyone,
// the full one for the admin chat.
func (e *engine) setCommandMenu(ctx context.Context) error {
	userCmds := []botCommand{
		{"start", "Fetch your files"},
		{"about", "About this bot"},
	}
	adminCmds := append(userCmds, []botCommand{
		{"add", "Add a file manually"},
		{"list", "List files"},
		{"remove", "Remove a file"},
		{"clearall", "Clear all files"},
		{"addalias", "Add an alias for grouped files"},
		{"listaliases", "List aliases"},
		{"removealias", "Remove an alias"},
		{"debugjson", "Dump both tables"},
	}...)

	if err := e.tgDo(ctx, "setMyCommands", map[string]any{
		"commands": userCmds,
	}); err != nil {
		return err
	}
	if e.adminID == 0 {
		return nil
	}
	return e.tgDo(ctx, "setMyCommands", map[string]any{
		"commands": adminCmds,
		"scope": map[string]any{
			"type":    "chat",
			"chat_id": e.adminID,
		},
	})
}
