// Package memstore keeps permanent records in process memory. It backs the
// "memory" storage backend used for development and tests.
package memstore

import (
	"context"
	"sync"

	"github.com/m3rciful/devroster/internal/roster"
)

// Records is a mutex-guarded map of records keyed by identity.
type Records struct {
	mu   sync.RWMutex
	recs map[int64]roster.Record
}

// NewRecords returns an empty record store.
func NewRecords() *Records {
	return &Records{recs: make(map[int64]roster.Record)}
}

// Upsert stores rec, replacing any record with the same identity.
func (s *Records) Upsert(ctx context.Context, rec roster.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	s.recs[rec.Identity] = clone(rec)
	s.mu.Unlock()
	return nil
}

// Delete removes the record of identity.
func (s *Records) Delete(ctx context.Context, identity int64) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.recs[identity]
	delete(s.recs, identity)
	return ok, nil
}

// Get returns the record of identity.
func (s *Records) Get(ctx context.Context, identity int64) (roster.Record, bool, error) {
	if err := ctx.Err(); err != nil {
		return roster.Record{}, false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.recs[identity]
	if !ok {
		return roster.Record{}, false, nil
	}
	return clone(rec), true, nil
}

// List returns every record.
func (s *Records) List(ctx context.Context) ([]roster.Record, error) {
	return s.filter(ctx, func(roster.Record) bool { return true })
}

// ListByCategory returns the records of one category.
func (s *Records) ListByCategory(ctx context.Context, category string) ([]roster.Record, error) {
	return s.filter(ctx, func(r roster.Record) bool { return r.Category == category })
}

// Len reports the number of stored records.
func (s *Records) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.recs)
}

func (s *Records) filter(ctx context.Context, keep func(roster.Record) bool) ([]roster.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []roster.Record
	for _, r := range s.recs {
		if keep(r) {
			out = append(out, clone(r))
		}
	}
	return out, nil
}

func clone(r roster.Record) roster.Record {
	r.Technologies = append([]string(nil), r.Technologies...)
	if r.ContactHandle != nil {
		h := *r.ContactHandle
		r.ContactHandle = &h
	}
	return r
}
