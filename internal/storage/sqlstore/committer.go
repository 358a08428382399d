package sqlstore

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/devroster/core/database"
	"github.com/m3rciful/devroster/core/telegram/state"
	"github.com/m3rciful/devroster/internal/roster"
)

// Committer writes the record change and the session reset in one
// transaction, so a finalize or delete is never half applied.
type Committer struct {
	db  *sqlx.DB
	now func() time.Time
}

// NewCommitter returns a transactional roster.Committer on db.
func NewCommitter(db *sqlx.DB) *Committer {
	return &Committer{db: db, now: time.Now}
}

// CommitRegistration upserts rec and resets the session of rec.Identity.
func (c *Committer) CommitRegistration(ctx context.Context, rec roster.Record) error {
	return c.inTx(ctx, func(tx *sqlx.Tx) error {
		if err := upsertRecord(ctx, tx, rec); err != nil {
			return err
		}
		return putSession(ctx, tx, state.Idle[roster.Draft](rec.Identity), c.now())
	})
}

// CommitDeletion deletes the record of identity and resets its session.
func (c *Committer) CommitDeletion(ctx context.Context, identity int64) (bool, error) {
	var deleted bool
	err := c.inTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		if deleted, err = deleteRecord(ctx, tx, identity); err != nil {
			return err
		}
		return putSession(ctx, tx, state.Idle[roster.Draft](identity), c.now())
	})
	return deleted, err
}

func (c *Committer) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	return database.Retry(ctx, func(ctx context.Context) error {
		tx, err := c.db.BeginTxx(ctx, nil)
		if err != nil {
			return fmt.Errorf("sqlstore: begin: %w", err)
		}
		if err := fn(tx); err != nil {
			_ = tx.Rollback()
			return err
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("sqlstore: commit: %w", err)
		}
		return nil
	})
}
