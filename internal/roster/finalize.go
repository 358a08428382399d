package roster

import (
	"context"
	"log/slog"
	"time"

	"github.com/m3rciful/devroster/core/logger"
)

// Finalizer turns a completed draft into a permanent record.
type Finalizer struct {
	committer Committer
	now       func() time.Time
}

// NewFinalizer returns a Finalizer stamping records with now.
func NewFinalizer(c Committer, now func() time.Time) *Finalizer {
	if now == nil {
		now = time.Now
	}
	return &Finalizer{committer: c, now: now}
}

// Finalize upserts the record for identity and resets its session. Either
// both happen or the error is returned and the session keeps its draft.
func (f *Finalizer) Finalize(ctx context.Context, identity int64, d Draft) (Record, error) {
	if d.Name == "" || d.Category == "" || len(d.Technologies) == 0 {
		return Record{}, ErrIncompleteDraft
	}
	if _, ok := LookupCategory(d.Category); !ok {
		return Record{}, ErrIncompleteDraft
	}
	rec := Record{
		Identity:      identity,
		Name:          d.Name,
		ContactHandle: d.ContactHandle,
		Category:      d.Category,
		Technologies:  append([]string(nil), d.Technologies...),
		CreatedAt:     f.now().UTC().Truncate(time.Second),
	}
	if err := f.committer.CommitRegistration(ctx, rec); err != nil {
		return Record{}, unavailable("finalize", err)
	}
	logger.Info(ctx, "roster", "registration.committed",
		slog.String("category", rec.Category),
		slog.Int("technologies", len(rec.Technologies)),
		slog.Bool("has_handle", rec.ContactHandle != nil),
	)
	return rec, nil
}
