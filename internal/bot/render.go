package bot

import (
	"fmt"
	"strings"

	"github.com/m3rciful/devroster/core/telegram/format"
	"github.com/m3rciful/devroster/core/telegram/keyboard"
	"github.com/m3rciful/devroster/internal/roster"

	tele "gopkg.in/telebot.v4"
)

// Messages are plain text: no parse mode, so user-supplied names and
// technologies never need escaping.

const helpText = `Available commands:
/start - register or update your profile
/me - show your registration
/view - browse members by specialization
/list - list all members by specialization
/delete - delete your registration
/cancel - abort the current step
/help - show this message`

// Render turns a reply into message text and an optional inline keyboard.
// ReplyNone renders as empty text.
func Render(r roster.Reply) (string, *tele.ReplyMarkup) {
	switch r.Kind {
	case roster.ReplyNone:
		return "", nil
	case roster.ReplyHelp:
		return helpText, nil
	case roster.ReplyAskName:
		return "Let's get you registered. What is your full name?", nil
	case roster.ReplyNameRequired:
		return "Please send your name as a text message.", nil
	case roster.ReplyAskUsername:
		return fmt.Sprintf("Thanks. Now send your Telegram username, or %q if you do not have one.", roster.NoHandle), nil
	case roster.ReplyAskCategory:
		return "Choose your specialization:", categoryKeyboard(roster.NamespaceCategory)
	case roster.ReplyUseCategoryButtons:
		return "Please pick your specialization with the buttons.", categoryKeyboard(roster.NamespaceCategory)
	case roster.ReplyAskTags:
		return fmt.Sprintf("Specialization: %s.\nNow list the technologies you work with, separated by commas.", r.Category.Title), nil
	case roster.ReplyTagsRequired:
		return "Please send at least one technology, separated by commas.", nil
	case roster.ReplyRegistered:
		return "Saved! Your registration:\n\n" + profile(r.Record) + "\n\nUse /me to see it again or /list to browse everyone.", nil
	case roster.ReplyIncomplete:
		return "Your registration was incomplete. Please start again with /start.", nil
	case roster.ReplyCancelled:
		return "Cancelled. Send /start whenever you want to register.", nil
	case roster.ReplyConfirmDelete:
		return "Delete your registration? This cannot be undone.", deleteKeyboard()
	case roster.ReplyUseDeleteButtons:
		return "Please confirm or cancel the deletion with the buttons.", deleteKeyboard()
	case roster.ReplyDeleted:
		return "Your registration has been deleted.", nil
	case roster.ReplyNothingToDelete:
		return "There was nothing to delete.", nil
	case roster.ReplyDeleteCancelled:
		return "Deletion cancelled. Your registration is unchanged.", nil
	case roster.ReplyViewCategories:
		return "Choose a specialization to browse:", categoryKeyboard(roster.NamespaceView)
	case roster.ReplyCategoryRecords:
		return categoryRecords(r.Category, r.Records), categoryKeyboard(roster.NamespaceView)
	case roster.ReplyDirectory:
		return directory(r.Groups), nil
	case roster.ReplyProfile:
		return "Your registration:\n\n" + profile(r.Record) + "\n\nSend /delete to remove it.", nil
	case roster.ReplyNoProfile:
		return "You are not registered yet. Send /start to begin.", nil
	case roster.ReplyUnavailable:
		return "Something went wrong on our side. Please try again in a moment.", nil
	}
	return helpText, nil
}

func categoryKeyboard(namespace string) *tele.ReplyMarkup {
	cats := roster.Categories()
	btns := make([]keyboard.InlineBtn, 0, len(cats))
	for _, c := range cats {
		p := roster.Payload{Kind: roster.PayloadCategory, Key: c.Key}
		if namespace == roster.NamespaceView {
			p.Kind = roster.PayloadView
		}
		btns = append(btns, keyboard.InlineBtn{Text: c.Title, Data: p.Data()})
	}
	return keyboard.InlineButtons(btns)
}

func deleteKeyboard() *tele.ReplyMarkup {
	return keyboard.InlineButtonsNPerRow([]keyboard.InlineBtn{
		{Text: "Yes, delete", Data: roster.Payload{Kind: roster.PayloadConfirmDelete}.Data()},
		{Text: "Cancel", Data: roster.Payload{Kind: roster.PayloadCancelDelete}.Data()},
	}, 2)
}

func profile(rec *roster.Record) string {
	if rec == nil {
		return ""
	}
	title := rec.Category
	if c, ok := roster.LookupCategory(rec.Category); ok {
		title = c.Title
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Name: %s\n", rec.Name)
	fmt.Fprintf(&b, "Username: %s\n", format.Handle(rec.ContactHandle, "not provided"))
	fmt.Fprintf(&b, "Specialization: %s\n", title)
	fmt.Fprintf(&b, "Technologies: %s", strings.Join(rec.Technologies, ", "))
	if !rec.CreatedAt.IsZero() {
		fmt.Fprintf(&b, "\nRegistered: %s", rec.CreatedAt.UTC().Format("2006-01-02"))
	}
	return b.String()
}

func memberLine(rec roster.Record) string {
	line := "- " + rec.Name
	if h := format.Handle(rec.ContactHandle, ""); h != "" {
		line += " (" + h + ")"
	}
	if len(rec.Technologies) > 0 {
		line += ": " + strings.Join(rec.Technologies, ", ")
	}
	return line
}

func categoryRecords(c roster.Category, recs []roster.Record) string {
	if len(recs) == 0 {
		return fmt.Sprintf("No matches in %s.", c.Title)
	}
	lines := make([]string, 0, len(recs)+1)
	lines = append(lines, fmt.Sprintf("%s (%d):", c.Title, len(recs)))
	for _, r := range recs {
		lines = append(lines, memberLine(r))
	}
	return strings.Join(lines, "\n")
}

func directory(groups []roster.Group) string {
	if len(groups) == 0 {
		return "Nobody has registered yet."
	}
	total := 0
	sections := make([]string, 0, len(groups))
	for _, g := range groups {
		total += len(g.Records)
		sections = append(sections, categoryRecords(g.Category, g.Records))
	}
	return fmt.Sprintf("Registered members: %d\n\n", total) + strings.Join(sections, "\n\n")
}
