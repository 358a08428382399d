package bot

import (
	"context"
	"strings"
	"testing"
	"time"

	tg "github.com/m3rciful/devroster/core/telegram"
	"github.com/m3rciful/devroster/internal/roster"

	tele "gopkg.in/telebot.v4"
)

func TestStripBotName(t *testing.T) {
	cases := map[string]string{
		"/start@devroster_bot": "/start",
		"/cancel@Bot":          "/cancel",
		" /cancel ":            " /cancel ",
		"/start@bot payload":   "/start payload",
		"alice@example.com":    "alice@example.com",
		"/list":                "/list",
		"Python, Go":           "Python, Go",
	}
	for in, want := range cases {
		if got := StripBotName(in); got != want {
			t.Fatalf("StripBotName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRenderKeyboards(t *testing.T) {
	_, kb := Render(roster.Reply{Kind: roster.ReplyAskCategory})
	if kb == nil || len(kb.InlineKeyboard) != len(roster.Categories()) {
		t.Fatalf("category keyboard = %+v", kb)
	}
	if data := kb.InlineKeyboard[0][0].Data; data != "category:AI" {
		t.Fatalf("first category button data = %q", data)
	}

	_, kb = Render(roster.Reply{Kind: roster.ReplyViewCategories})
	if data := kb.InlineKeyboard[2][0].Data; data != "view:Networks" {
		t.Fatalf("view button data = %q", data)
	}

	_, kb = Render(roster.Reply{Kind: roster.ReplyConfirmDelete})
	row := kb.InlineKeyboard[0]
	if len(row) != 2 || row[0].Data != "confirm_delete" || row[1].Data != "cancel_delete" {
		t.Fatalf("delete keyboard = %+v", row)
	}

	if text, kb := Render(roster.Reply{Kind: roster.ReplyNone}); text != "" || kb != nil {
		t.Fatal("ReplyNone must render nothing")
	}
}

func TestRenderEveryKindHasText(t *testing.T) {
	for k := roster.ReplyHelp; k <= roster.ReplyUnavailable; k++ {
		if text, _ := Render(roster.Reply{Kind: k, Record: &roster.Record{}}); strings.TrimSpace(text) == "" {
			t.Fatalf("%s renders empty text", k)
		}
	}
}

func TestRenderRecords(t *testing.T) {
	h := "alice"
	rec := roster.Record{Identity: 1, Name: "Alice", ContactHandle: &h, Category: "AI",
		Technologies: []string{"Python", "Go", "Go"}, CreatedAt: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)}

	text, _ := Render(roster.Reply{Kind: roster.ReplyProfile, Record: &rec})
	for _, want := range []string{"Name: Alice", "Username: @alice", "Specialization: Artificial Intelligence", "Technologies: Python, Go, Go", "Registered: 2024-03-01"} {
		if !strings.Contains(text, want) {
			t.Fatalf("profile missing %q:\n%s", want, text)
		}
	}

	text, _ = Render(roster.Reply{Kind: roster.ReplyCategoryRecords, Category: roster.Category{Key: "AI", Title: "Artificial Intelligence"}, Records: []roster.Record{rec}})
	if !strings.Contains(text, "Artificial Intelligence (1):") || !strings.Contains(text, "- Alice (@alice): Python, Go, Go") {
		t.Fatalf("category listing:\n%s", text)
	}

	text, _ = Render(roster.Reply{Kind: roster.ReplyCategoryRecords, Category: roster.Category{Key: "Bio", Title: "Bio"}})
	if text != "No matches in Bio." {
		t.Fatalf("empty listing = %q", text)
	}

	text, _ = Render(roster.Reply{Kind: roster.ReplyDirectory})
	if text != "Nobody has registered yet." {
		t.Fatalf("empty directory = %q", text)
	}
}

func TestNeedsEdit(t *testing.T) {
	text, kb := Render(roster.Reply{Kind: roster.ReplyCategoryRecords, Category: roster.Category{Key: "AI", Title: "Artificial Intelligence"}})
	shown := &tele.Message{Text: text, ReplyMarkup: kb}
	if needsEdit(shown, text, kb) {
		t.Fatal("identical content must not be edited")
	}
	if !needsEdit(shown, text+"!", kb) {
		t.Fatal("changed text must be edited")
	}
	if !needsEdit(shown, text, nil) {
		t.Fatal("dropping the keyboard must be edited")
	}
	if needsEdit(&tele.Message{Text: "x"}, "x", &tele.ReplyMarkup{}) {
		t.Fatal("empty keyboards are equal")
	}
}

type recordingEngine struct {
	texts     []string
	callbacks []string
}

func (e *recordingEngine) HandleText(_ context.Context, _ int64, text string) (roster.Reply, error) {
	e.texts = append(e.texts, text)
	return roster.Reply{Kind: roster.ReplyNone}, nil
}

func (e *recordingEngine) HandleCallback(_ context.Context, _ int64, raw string) (roster.Reply, error) {
	e.callbacks = append(e.callbacks, raw)
	return roster.Reply{Kind: roster.ReplyNone}, nil
}

func newContext(t *testing.T, upd tele.Update) tele.Context {
	t.Helper()
	b, err := tele.NewBot(tele.Settings{Offline: true, Token: "123:test", URL: "http://127.0.0.1:1"})
	if err != nil {
		t.Fatalf("bot: %v", err)
	}
	return b.NewContext(upd)
}

func TestHandlerForwardsToEngine(t *testing.T) {
	eng := &recordingEngine{}
	h := NewHandler(eng)

	msg := tele.Update{ID: 1, Message: &tele.Message{Text: "/start@devroster_bot", Sender: &tele.User{ID: 7}, Chat: &tele.Chat{ID: 7}}}
	if err := h.OnText(newContext(t, msg)); err != nil {
		t.Fatalf("text: %v", err)
	}
	cb := tele.Update{ID: 2, Callback: &tele.Callback{Data: "category:AI", Sender: &tele.User{ID: 7}}}
	if err := h.OnCallback(newContext(t, cb)); err != nil {
		t.Fatalf("callback: %v", err)
	}
	anon := tele.Update{ID: 3, Message: &tele.Message{Text: "hi", Chat: &tele.Chat{ID: -100}}}
	if err := h.OnText(newContext(t, anon)); err != nil {
		t.Fatalf("anonymous: %v", err)
	}

	if len(eng.texts) != 1 || eng.texts[0] != "/start" {
		t.Fatalf("texts = %v", eng.texts)
	}
	if len(eng.callbacks) != 1 || eng.callbacks[0] != "category:AI" {
		t.Fatalf("callbacks = %v", eng.callbacks)
	}
}

func TestRegisterWiresRegistry(t *testing.T) {
	reg := tg.NewRegistry()
	if err := NewHandler(&recordingEngine{}).Register(reg); err != nil {
		t.Fatalf("register: %v", err)
	}
	if len(reg.Commands()) != len(commandDescriptions) {
		t.Fatalf("commands = %d", len(reg.Commands()))
	}
	for _, ns := range roster.Namespaces() {
		if _, ok := reg.GetCallback(ns); !ok {
			t.Fatalf("namespace %s not registered", ns)
		}
	}
	if reg.TextFallback() == nil {
		t.Fatal("text fallback not set")
	}
	if err := NewHandler(&recordingEngine{}).Register(reg); err == nil {
		t.Fatal("double registration should fail")
	}
}
