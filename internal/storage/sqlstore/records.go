package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/devroster/core/database"
	"github.com/m3rciful/devroster/internal/roster"
)

type recordRow struct {
	Identity      int64          `db:"identity"`
	Name          string         `db:"name"`
	ContactHandle sql.NullString `db:"contact_handle"`
	Category      string         `db:"category"`
	Technologies  string         `db:"technologies"`
	CreatedAt     int64          `db:"created_at"`
}

func (r recordRow) record() (roster.Record, error) {
	rec := roster.Record{
		Identity:  r.Identity,
		Name:      r.Name,
		Category:  r.Category,
		CreatedAt: time.Unix(r.CreatedAt, 0).UTC(),
	}
	if r.ContactHandle.Valid {
		h := r.ContactHandle.String
		rec.ContactHandle = &h
	}
	if err := json.Unmarshal([]byte(r.Technologies), &rec.Technologies); err != nil {
		return roster.Record{}, fmt.Errorf("sqlstore: decode technologies for %d: %w", r.Identity, err)
	}
	return rec, nil
}

const selectRecords = `SELECT identity, name, contact_handle, category, technologies, created_at FROM registrations`

// Records implements roster.RecordReader and roster.RecordWriter over the
// registrations table.
type Records struct {
	db *sqlx.DB
}

// NewRecords returns a record store on db.
func NewRecords(db *sqlx.DB) *Records {
	return &Records{db: db}
}

// Upsert inserts rec or overwrites the row with the same identity.
func (s *Records) Upsert(ctx context.Context, rec roster.Record) error {
	return database.Retry(ctx, func(ctx context.Context) error {
		return upsertRecord(ctx, s.db, rec)
	})
}

// Delete removes the row of identity.
func (s *Records) Delete(ctx context.Context, identity int64) (bool, error) {
	var deleted bool
	err := database.Retry(ctx, func(ctx context.Context) error {
		var err error
		deleted, err = deleteRecord(ctx, s.db, identity)
		return err
	})
	return deleted, err
}

// Get returns the record of identity.
func (s *Records) Get(ctx context.Context, identity int64) (roster.Record, bool, error) {
	var row recordRow
	err := database.Retry(ctx, func(ctx context.Context) error {
		return s.db.GetContext(ctx, &row, s.db.Rebind(selectRecords+` WHERE identity = ?`), identity)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return roster.Record{}, false, nil
	}
	if err != nil {
		return roster.Record{}, false, fmt.Errorf("sqlstore: get record: %w", err)
	}
	rec, err := row.record()
	return rec, err == nil, err
}

// List returns all records ordered by category and name.
func (s *Records) List(ctx context.Context) ([]roster.Record, error) {
	return s.query(ctx, selectRecords+` ORDER BY category, name, identity`)
}

// ListByCategory returns the records of one category ordered by name.
func (s *Records) ListByCategory(ctx context.Context, category string) ([]roster.Record, error) {
	return s.query(ctx, selectRecords+` WHERE category = ? ORDER BY name, identity`, category)
}

func (s *Records) query(ctx context.Context, q string, args ...any) ([]roster.Record, error) {
	var rows []recordRow
	err := database.Retry(ctx, func(ctx context.Context) error {
		rows = rows[:0]
		return s.db.SelectContext(ctx, &rows, s.db.Rebind(q), args...)
	})
	if err != nil {
		return nil, fmt.Errorf("sqlstore: list records: %w", err)
	}
	recs := make([]roster.Record, 0, len(rows))
	for _, r := range rows {
		rec, err := r.record()
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

const upsertRegistration = `INSERT INTO registrations (identity, name, contact_handle, category, technologies, created_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT (identity) DO UPDATE SET name = excluded.name, contact_handle = excluded.contact_handle,
category = excluded.category, technologies = excluded.technologies, created_at = excluded.created_at`

func upsertRecord(ctx context.Context, ex sqlx.ExtContext, rec roster.Record) error {
	techs := rec.Technologies
	if techs == nil {
		techs = []string{}
	}
	raw, err := json.Marshal(techs)
	if err != nil {
		return fmt.Errorf("sqlstore: encode technologies: %w", err)
	}
	var handle sql.NullString
	if rec.ContactHandle != nil {
		handle = sql.NullString{String: *rec.ContactHandle, Valid: true}
	}
	created := rec.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	_, err = ex.ExecContext(ctx, ex.Rebind(upsertRegistration),
		rec.Identity, rec.Name, handle, rec.Category, string(raw), created.Unix())
	if err != nil {
		return fmt.Errorf("sqlstore: upsert record: %w", err)
	}
	return nil
}

func deleteRecord(ctx context.Context, ex sqlx.ExtContext, identity int64) (bool, error) {
	res, err := ex.ExecContext(ctx, ex.Rebind(`DELETE FROM registrations WHERE identity = ?`), identity)
	if err != nil {
		return false, fmt.Errorf("sqlstore: delete record: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("sqlstore: delete record: %w", err)
	}
	return n > 0, nil
}
