package roster

import (
	"context"
	"errors"
	"fmt"
)

// Committer applies the terminal operations of a dialogue. Each call writes
// the record change and resets the session to idle; implementations backed
// by one database do both in a single transaction.
type Committer interface {
	CommitRegistration(ctx context.Context, rec Record) error
	CommitDeletion(ctx context.Context, identity int64) (deleted bool, err error)
}

// SequentialCommitter commits against separate record and session stores,
// for example SQL records with Redis sessions. The record write goes first;
// if the session reset then fails the previous record is restored, so the
// user stays on the same step with storage as it was.
type SequentialCommitter struct {
	Records  RecordStore
	Sessions SessionStore
}

// CommitRegistration upserts rec and resets the session.
func (c SequentialCommitter) CommitRegistration(ctx context.Context, rec Record) error {
	prev, had, err := c.Records.Get(ctx, rec.Identity)
	if err != nil {
		return fmt.Errorf("read record: %w", err)
	}
	if err := c.Records.Upsert(ctx, rec); err != nil {
		return fmt.Errorf("upsert record: %w", err)
	}
	if err := c.Sessions.Put(ctx, idle(rec.Identity)); err != nil {
		err = fmt.Errorf("reset session: %w", err)
		if had {
			return errors.Join(err, c.Records.Upsert(ctx, prev))
		}
		_, derr := c.Records.Delete(ctx, rec.Identity)
		return errors.Join(err, derr)
	}
	return nil
}

// CommitDeletion deletes the record and resets the session.
func (c SequentialCommitter) CommitDeletion(ctx context.Context, identity int64) (bool, error) {
	prev, had, err := c.Records.Get(ctx, identity)
	if err != nil {
		return false, fmt.Errorf("read record: %w", err)
	}
	deleted, err := c.Records.Delete(ctx, identity)
	if err != nil {
		return false, fmt.Errorf("delete record: %w", err)
	}
	if err := c.Sessions.Put(ctx, idle(identity)); err != nil {
		err = fmt.Errorf("reset session: %w", err)
		if had && deleted {
			return false, errors.Join(err, c.Records.Upsert(ctx, prev))
		}
		return false, err
	}
	return deleted, nil
}
