package sqlstore

import (
	"context"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/devroster/core/database"
	"github.com/m3rciful/devroster/internal/roster"
	"github.com/m3rciful/devroster/migrations"
)

func openTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	cfg := database.Config{Driver: database.DriverSQLite, Path: filepath.Join(t.TempDir(), "roster.db")}
	mig, err := database.NewMigrator(cfg, migrations.FS)
	if err != nil {
		t.Fatalf("migrator: %v", err)
	}
	if err := mig.Up(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	db, err := database.Connect(cfg)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func handle(s string) *string { return &s }

func TestSessionsRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewSessions(openTestDB(t))

	sess, err := s.Get(ctx, 5)
	if err != nil || sess.State != roster.StateIdle || !sess.Draft.Empty() {
		t.Fatalf("default session = %+v, %v", sess, err)
	}

	want := roster.Draft{Identity: 5, Name: "Alice", ContactHandle: handle("alice"), Category: "AI"}
	if err := s.Put(ctx, roster.Session{Identity: 5, State: roster.StateAskTags, Draft: want}); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, err := s.Get(ctx, 5)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.State != roster.StateAskTags || !reflect.DeepEqual(got.Draft, want) {
		t.Fatalf("round trip = %+v", got)
	}

	if err := s.Put(ctx, roster.Session{Identity: 5, State: roster.StateIdle}); err != nil {
		t.Fatalf("reset: %v", err)
	}
	got, _ = s.Get(ctx, 5)
	if got.State != roster.StateIdle || !got.Draft.Empty() {
		t.Fatalf("state and draft not replaced together: %+v", got)
	}
}

func TestSessionsTTL(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1_700_000_000, 0)
	s := NewSessions(openTestDB(t), WithTTL(time.Hour), WithClock(func() time.Time { return now }))

	if err := s.Put(ctx, roster.Session{Identity: 1, State: roster.StateAskName, Draft: roster.Draft{Identity: 1}}); err != nil {
		t.Fatalf("put: %v", err)
	}
	now = now.Add(30 * time.Minute)
	if got, _ := s.Get(ctx, 1); got.State != roster.StateAskName {
		t.Fatalf("expired early: %+v", got)
	}
	now = now.Add(time.Hour)
	if got, _ := s.Get(ctx, 1); got.State != roster.StateIdle {
		t.Fatalf("not expired: %+v", got)
	}
	if n, err := s.Sweep(ctx); err != nil || n != 1 {
		t.Fatalf("sweep = %d, %v", n, err)
	}
}

func TestRecordsUpsertIsIdempotent(t *testing.T) {
	ctx := context.Background()
	r := NewRecords(openTestDB(t))
	created := time.Unix(1_700_000_000, 0).UTC()

	first := roster.Record{Identity: 9, Name: "Bo", Category: "AI", Technologies: []string{"Go"}, CreatedAt: created}
	second := roster.Record{Identity: 9, Name: "Bo B", ContactHandle: handle("bob"), Category: "Networks",
		Technologies: []string{"Python", "Go", "Go"}, CreatedAt: created.Add(time.Minute)}
	for _, rec := range []roster.Record{first, second, second} {
		if err := r.Upsert(ctx, rec); err != nil {
			t.Fatalf("upsert: %v", err)
		}
	}

	all, err := r.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 1 || !reflect.DeepEqual(all[0], second) {
		t.Fatalf("records = %+v", all)
	}
	if ai, _ := r.ListByCategory(ctx, "AI"); len(ai) != 0 {
		t.Fatalf("stale category row: %+v", ai)
	}
}

func TestRecordsListOrderAndNullHandle(t *testing.T) {
	ctx := context.Background()
	r := NewRecords(openTestDB(t))
	for _, rec := range []roster.Record{
		{Identity: 3, Name: "Zed", Category: "AI", Technologies: []string{"a"}},
		{Identity: 2, Name: "Amy", Category: "AI", Technologies: []string{"b"}},
		{Identity: 1, Name: "Amy", Category: "AI", Technologies: []string{"c"}},
	} {
		if err := r.Upsert(ctx, rec); err != nil {
			t.Fatalf("upsert: %v", err)
		}
	}
	recs, err := r.ListByCategory(ctx, "AI")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	var ids []int64
	for _, rec := range recs {
		ids = append(ids, rec.Identity)
		if rec.ContactHandle != nil {
			t.Fatalf("null handle read back as %q", *rec.ContactHandle)
		}
	}
	if !reflect.DeepEqual(ids, []int64{1, 2, 3}) {
		t.Fatalf("order = %v", ids)
	}
	if _, ok, err := r.Get(ctx, 42); ok || err != nil {
		t.Fatalf("missing record: ok=%v err=%v", ok, err)
	}
}

func TestCommitterIsTransactional(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	sessions := NewSessions(db)
	records := NewRecords(db)
	c := NewCommitter(db)

	if err := sessions.Put(ctx, roster.Session{Identity: 7, State: roster.StateAskTags, Draft: roster.Draft{Identity: 7, Name: "N"}}); err != nil {
		t.Fatal(err)
	}
	rec := roster.Record{Identity: 7, Name: "N", Category: "Software", Technologies: []string{"Go"}}
	if err := c.CommitRegistration(ctx, rec); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if s, _ := sessions.Get(ctx, 7); s.State != roster.StateIdle || !s.Draft.Empty() {
		t.Fatalf("session not reset: %+v", s)
	}
	if _, ok, _ := records.Get(ctx, 7); !ok {
		t.Fatal("record missing")
	}

	if deleted, err := c.CommitDeletion(ctx, 7); !deleted || err != nil {
		t.Fatalf("delete = %v, %v", deleted, err)
	}
	if deleted, err := c.CommitDeletion(ctx, 7); deleted || err != nil {
		t.Fatalf("second delete = %v, %v", deleted, err)
	}

	// A failing statement rolls the record write back.
	if _, err := db.Exec(`DROP TABLE sessions`); err != nil {
		t.Fatal(err)
	}
	if err := c.CommitRegistration(ctx, rec); err == nil {
		t.Fatal("expected error without sessions table")
	}
	if _, ok, _ := records.Get(ctx, 7); ok {
		t.Fatal("record committed although the session reset failed")
	}
}

func TestEngineOverSQL(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	sessions := NewSessions(db)
	eng, err := roster.NewEngine(roster.Options{Sessions: sessions, Records: NewRecords(db), Committer: NewCommitter(db)})
	if err != nil {
		t.Fatal(err)
	}
	steps := []func() (roster.Reply, error){
		func() (roster.Reply, error) { return eng.HandleText(ctx, 1, "/start") },
		func() (roster.Reply, error) { return eng.HandleText(ctx, 1, "Alice") },
		func() (roster.Reply, error) { return eng.HandleText(ctx, 1, "@alice") },
		func() (roster.Reply, error) { return eng.HandleCallback(ctx, 1, "category:AI") },
		func() (roster.Reply, error) { return eng.HandleText(ctx, 1, "Python, Go, Go") },
	}
	for i, step := range steps {
		if _, err := step(); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}
	recs, err := eng.Directory().ListByCategory(ctx, "AI")
	if err != nil || len(recs) != 1 || *recs[0].ContactHandle != "alice" {
		t.Fatalf("records = %+v, %v", recs, err)
	}
	if s, _ := sessions.Get(ctx, 1); s.State != roster.StateIdle {
		t.Fatalf("session = %+v", s)
	}
}
