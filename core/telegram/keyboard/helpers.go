package keyboard

import tele "gopkg.in/telebot.v4"

// InlineBtn is an inline button whose Data is sent back verbatim as
// callback_data, without telebot's unique-endpoint prefix.
type InlineBtn struct {
	Text string
	Data string
}

// InlineButtons builds an inline keyboard where each provided button is placed on its own row.
func InlineButtons(buttons []InlineBtn) *tele.ReplyMarkup {
	return InlineButtonsNPerRow(buttons, 1)
}

// InlineButtonsRows builds an inline keyboard from rows of InlineBtn.
func InlineButtonsRows(rows ...[]InlineBtn) *tele.ReplyMarkup {
	inline := make([][]tele.InlineButton, 0, len(rows))
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		r := make([]tele.InlineButton, len(row))
		for j, btn := range row {
			r[j] = tele.InlineButton{Text: btn.Text, Data: btn.Data}
		}
		inline = append(inline, r)
	}
	return &tele.ReplyMarkup{InlineKeyboard: inline}
}

// InlineButtonsNPerRow splits a flat list of buttons into rows with up to n buttons per row.
func InlineButtonsNPerRow(buttons []InlineBtn, n int) *tele.ReplyMarkup {
	if n < 1 {
		n = 1
	}
	var rows [][]InlineBtn
	for i := 0; i < len(buttons); i += n {
		end := min(i+n, len(buttons))
		rows = append(rows, buttons[i:end])
	}
	return InlineButtonsRows(rows...)
}

// SameInline reports whether two markups carry identical inline keyboards
// (button texts and callback data). Nil and empty keyboards are equal.
func SameInline(a, b *tele.ReplyMarkup) bool {
	var ka, kb [][]tele.InlineButton
	if a != nil {
		ka = a.InlineKeyboard
	}
	if b != nil {
		kb = b.InlineKeyboard
	}
	if len(ka) != len(kb) {
		return false
	}
	for i := range ka {
		if len(ka[i]) != len(kb[i]) {
			return false
		}
		for j := range ka[i] {
			x, y := ka[i][j], kb[i][j]
			if x.Text != y.Text || x.Data != y.Data || x.URL != y.URL {
				return false
			}
		}
	}
	return true
}
