package roster

import (
	"context"
	"time"

	"github.com/m3rciful/devroster/core/telegram/state"
)

// Conversation states. IDLE and AWAIT_DELETE_CONFIRM never carry a draft.
const (
	StateIdle               = state.StateIdle
	StateAskName            = state.State("ASK_NAME")
	StateAskUsername        = state.State("ASK_USERNAME")
	StateAskCategory        = state.State("ASK_CATEGORY")
	StateAskTags            = state.State("ASK_TAGS")
	StateAwaitDeleteConfirm = state.State("AWAIT_DELETE_CONFIRM")
)

var knownStates = map[state.State]struct{}{
	StateIdle:               {},
	StateAskName:            {},
	StateAskUsername:        {},
	StateAskCategory:        {},
	StateAskTags:            {},
	StateAwaitDeleteConfirm: {},
}

// KnownState reports whether s belongs to the closed state set.
func KnownState(s state.State) bool {
	_, ok := knownStates[s]
	return ok
}

// Draft accumulates registration fields between steps. It is persisted as a
// JSON object, so absent fields are omitted.
type Draft struct {
	Identity      int64    `json:"identity,omitempty"`
	Name          string   `json:"name,omitempty"`
	ContactHandle *string  `json:"contact_handle,omitempty"`
	Category      string   `json:"category,omitempty"`
	Technologies  []string `json:"technologies,omitempty"`
}

// Empty reports whether no field has been collected.
func (d Draft) Empty() bool {
	return d.Identity == 0 && d.Name == "" && d.ContactHandle == nil && d.Category == "" && len(d.Technologies) == 0
}

// Session is the persisted dialogue position of one identity.
type Session = state.Session[Draft]

// SessionStore persists sessions; see state.Store.
type SessionStore = state.Store[Draft]

// Record is the permanent registration of one identity.
type Record struct {
	Identity      int64
	Name          string
	ContactHandle *string
	Category      string
	Technologies  []string
	CreatedAt     time.Time
}

// RecordReader is the read side of the permanent record store.
type RecordReader interface {
	// ListByCategory returns the records of one category in any order.
	ListByCategory(ctx context.Context, category string) ([]Record, error)
	// List returns every record in any order.
	List(ctx context.Context) ([]Record, error)
	// Get returns the record of identity; ok is false when none exists.
	Get(ctx context.Context, identity int64) (rec Record, ok bool, err error)
}

// RecordWriter is the write side of the permanent record store. Both
// operations must be single idempotent statements.
type RecordWriter interface {
	// Upsert inserts rec or overwrites the record with the same identity.
	Upsert(ctx context.Context, rec Record) error
	// Delete removes the record of identity; deleted is false when none existed.
	Delete(ctx context.Context, identity int64) (deleted bool, err error)
}

// RecordStore reads and writes permanent records.
type RecordStore interface {
	RecordReader
	RecordWriter
}

func idle(identity int64) Session {
	return state.Idle[Draft](identity)
}
