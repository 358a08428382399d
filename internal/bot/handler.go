// Package bot adapts the roster engine to Telegram: it registers commands
// and callback namespaces, feeds updates to the engine and renders replies.
package bot

import (
	"context"
	"log/slog"
	"strings"

	"github.com/m3rciful/devroster/core/logger"
	tg "github.com/m3rciful/devroster/core/telegram"
	"github.com/m3rciful/devroster/core/telegram/callbacks"
	"github.com/m3rciful/devroster/core/telegram/commands"
	tghelpers "github.com/m3rciful/devroster/core/telegram/helpers"
	"github.com/m3rciful/devroster/core/telegram/keyboard"
	"github.com/m3rciful/devroster/internal/roster"

	tele "gopkg.in/telebot.v4"
)

// Engine is the part of roster.Engine the adapter drives.
type Engine interface {
	HandleText(ctx context.Context, identity int64, text string) (roster.Reply, error)
	HandleCallback(ctx context.Context, identity int64, raw string) (roster.Reply, error)
}

// Handler owns the Telegram side of the dialogue.
type Handler struct {
	engine Engine
}

// NewHandler wraps engine.
func NewHandler(engine Engine) *Handler {
	return &Handler{engine: engine}
}

var commandDescriptions = []struct {
	cmd         roster.Command
	description string
}{
	{roster.CommandStart, "Register or update your profile"},
	{roster.CommandMe, "Show your registration"},
	{roster.CommandView, "Browse members by specialization"},
	{roster.CommandList, "List all members"},
	{roster.CommandDelete, "Delete your registration"},
	{roster.CommandCancel, "Abort the current step"},
	{roster.CommandHelp, "Show help"},
}

// Register binds every command, the text fallback and every callback
// namespace to the handler.
func (h *Handler) Register(reg *tg.Registry) error {
	for _, d := range commandDescriptions {
		reg.RegisterCommand(d.cmd.Token(), commands.Command{Handler: h.OnText, Description: d.description})
	}
	reg.SetTextFallback(h.OnText)
	for _, ns := range roster.Namespaces() {
		if err := reg.RegisterCallback(ns, h.OnCallback); err != nil {
			return err
		}
	}
	return nil
}

// OnText handles commands and free text alike; the engine decides which
// it is.
func (h *Handler) OnText(c tele.Context) error {
	userID, _ := tghelpers.Identity(c)
	if userID == 0 {
		return nil
	}
	ctx := tghelpers.BuildContext(c)
	reply, err := h.engine.HandleText(ctx, userID, StripBotName(c.Text()))
	return h.respond(ctx, c, reply, err)
}

// OnCallback handles a button press. The router has already answered the
// callback query.
func (h *Handler) OnCallback(c tele.Context) error {
	userID, _ := tghelpers.Identity(c)
	if userID == 0 {
		return nil
	}
	ctx := tghelpers.BuildContext(c)
	reply, err := h.engine.HandleCallback(ctx, userID, callbacks.Data(c))
	return h.respond(ctx, c, reply, err)
}

func (h *Handler) respond(ctx context.Context, c tele.Context, reply roster.Reply, err error) error {
	logger.Debug(ctx, "roster", "reply", slog.String("kind", reply.Kind.String()))
	if rerr := h.render(ctx, c, reply); rerr != nil && err == nil {
		err = rerr
	}
	return err
}

func (h *Handler) render(ctx context.Context, c tele.Context, reply roster.Reply) error {
	if reply.Kind == roster.ReplyNone {
		return nil
	}
	text, markup := Render(reply)
	if cb := c.Callback(); reply.Edit && cb != nil && cb.Message != nil {
		if !needsEdit(cb.Message, text, markup) {
			logger.Debug(ctx, "tg", "edit.skipped", slog.String("kind", reply.Kind.String()))
			return nil
		}
		if err := tghelpers.EditText(c, text, markup); err != nil {
			// Old or foreign messages cannot be edited; send a fresh one.
			logger.Debug(ctx, "tg", "edit.fallback", slog.String("err", err.Error()))
			return tghelpers.SendText(c, text, markup)
		}
		return nil
	}
	return tghelpers.SendText(c, text, markup)
}

// needsEdit reports whether msg differs from the content about to be
// rendered into it. An identical edit is a no-op and is skipped.
func needsEdit(msg *tele.Message, text string, markup *tele.ReplyMarkup) bool {
	return msg.Text != text || !keyboard.SameInline(msg.ReplyMarkup, markup)
}

// StripBotName removes a "@botname" suffix from a leading command token so
// "/start@devroster_bot" matches "/start".
func StripBotName(text string) string {
	if !strings.HasPrefix(text, "/") {
		return text
	}
	tok, rest, hasRest := strings.Cut(text, " ")
	if i := strings.IndexByte(tok, '@'); i > 0 {
		tok = tok[:i]
	}
	if hasRest {
		return tok + " " + rest
	}
	return tok
}
