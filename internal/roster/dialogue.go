package roster

import (
	"strings"

	"github.com/m3rciful/devroster/core/telegram/state"
)

// NoHandle is the literal a user sends to register without a contact handle.
const NoHandle = "none"

// Outcome is the result of applying free text to a session.
type Outcome struct {
	Next  state.State
	Draft Draft
	Reply ReplyKind
	// Persist is set when Next and Draft must be written back.
	Persist bool
	// Finalize is set when Draft is complete and must be committed.
	Finalize bool
}

type transition func(d Draft, text string) Outcome

// transitions is the free-text table. States without buttons advance;
// button-driven states only re-prompt.
var transitions = map[state.State]transition{
	StateIdle: func(d Draft, _ string) Outcome {
		return stay(StateIdle, d, ReplyHelp)
	},
	StateAskName: func(d Draft, text string) Outcome {
		name := strings.TrimSpace(text)
		if name == "" {
			return stay(StateAskName, d, ReplyNameRequired)
		}
		d.Name = name
		return advance(StateAskUsername, d, ReplyAskUsername)
	},
	StateAskUsername: func(d Draft, text string) Outcome {
		d.ContactHandle = NormalizeHandle(text)
		return advance(StateAskCategory, d, ReplyAskCategory)
	},
	StateAskCategory: func(d Draft, _ string) Outcome {
		return stay(StateAskCategory, d, ReplyUseCategoryButtons)
	},
	StateAskTags: func(d Draft, text string) Outcome {
		tags := ParseTags(text)
		if len(tags) == 0 {
			return stay(StateAskTags, d, ReplyTagsRequired)
		}
		d.Technologies = tags
		return Outcome{Next: StateIdle, Draft: d, Reply: ReplyRegistered, Finalize: true}
	},
	StateAwaitDeleteConfirm: func(d Draft, _ string) Outcome {
		return stay(StateAwaitDeleteConfirm, d, ReplyUseDeleteButtons)
	},
}

func stay(s state.State, d Draft, r ReplyKind) Outcome {
	return Outcome{Next: s, Draft: d, Reply: r}
}

func advance(s state.State, d Draft, r ReplyKind) Outcome {
	return Outcome{Next: s, Draft: d, Reply: r, Persist: true}
}

// Step applies non-command text to sess. A session in an unknown state is
// reset to idle.
func Step(sess Session, text string) Outcome {
	t, ok := transitions[sess.State]
	if !ok {
		return Outcome{Next: StateIdle, Reply: ReplyHelp, Persist: true}
	}
	return t(sess.Draft, text)
}

// NormalizeHandle trims text and strips one leading "@". Empty input and
// the NoHandle literal (any case) yield nil.
func NormalizeHandle(text string) *string {
	h := strings.TrimSpace(text)
	h = strings.TrimPrefix(h, "@")
	h = strings.TrimSpace(h)
	if h == "" || strings.EqualFold(h, NoHandle) {
		return nil
	}
	return &h
}

// ParseTags splits a comma-separated list, trimming items and dropping
// empty ones. Order and duplicates are kept.
func ParseTags(text string) []string {
	var tags []string
	for _, part := range strings.Split(text, ",") {
		if item := strings.TrimSpace(part); item != "" {
			tags = append(tags, item)
		}
	}
	return tags
}
