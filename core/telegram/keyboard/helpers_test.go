package keyboard

import (
	"testing"

	tele "gopkg.in/telebot.v4"
)

func TestInlineButtonsNPerRow(t *testing.T) {
	btns := []InlineBtn{{"A", "view:A"}, {"B", "view:B"}, {"C", "view:C"}}
	m := InlineButtonsNPerRow(btns, 2)
	if len(m.InlineKeyboard) != 2 || len(m.InlineKeyboard[0]) != 2 || len(m.InlineKeyboard[1]) != 1 {
		t.Fatalf("unexpected layout: %+v", m.InlineKeyboard)
	}
	if got := m.InlineKeyboard[1][0]; got.Data != "view:C" || got.Unique != "" {
		t.Fatalf("button data must be raw: %+v", got)
	}
}

func TestSameInline(t *testing.T) {
	a := InlineButtons([]InlineBtn{{"Yes", "confirm_delete"}, {"No", "cancel_delete"}})
	b := InlineButtons([]InlineBtn{{"Yes", "confirm_delete"}, {"No", "cancel_delete"}})
	if !SameInline(a, b) {
		t.Fatal("identical keyboards reported different")
	}
	c := InlineButtons([]InlineBtn{{"Yes", "confirm_delete"}})
	if SameInline(a, c) {
		t.Fatal("different keyboards reported equal")
	}
	if !SameInline(nil, &tele.ReplyMarkup{}) {
		t.Fatal("nil and empty markup should be equal")
	}
}
