package roster

import (
	"context"
	"log/slog"

	"github.com/m3rciful/devroster/core/logger"
)

// Deletion is the confirm/cancel step that follows /delete.
type Deletion struct {
	committer Committer
	sessions  SessionStore
}

// NewDeletion builds the deletion workflow.
func NewDeletion(c Committer, sessions SessionStore) *Deletion {
	return &Deletion{committer: c, sessions: sessions}
}

// Confirm deletes the record of identity and resets the session. Deleting
// a missing record is not an error; deleted reports whether one existed.
func (d *Deletion) Confirm(ctx context.Context, identity int64) (deleted bool, err error) {
	deleted, err = d.committer.CommitDeletion(ctx, identity)
	if err != nil {
		return false, unavailable("delete", err)
	}
	logger.Info(ctx, "roster", "registration.deleted", slog.Bool("existed", deleted))
	return deleted, nil
}

// Cancel resets the session and leaves the record untouched.
func (d *Deletion) Cancel(ctx context.Context, identity int64) error {
	return unavailable("cancel delete", d.sessions.Put(ctx, idle(identity)))
}
