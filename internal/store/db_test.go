package store

import (
	"fmt"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/setevik/journalstream/internal/session"
)

var sessionSeq int

func testDB(t *testing.T) *DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := Open(path)
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func makeSession(instanceID string, started time.Time) *session.Session {
	sessionSeq++
	return &session.Session{
		ID:         fmt.Sprintf("sess-%d", sessionSeq),
		InstanceID: instanceID,
		StartedAt:  started,
		Executable: "journalctl",
		Args:       []string{"--output=json", "--follow", "--lines=10"},
		Outcome:    session.OutcomeRunning,
	}
}

func TestInsertAndQuery(t *testing.T) {
	db := testDB(t)

	sess := makeSession("host1", time.Now())
	if err := db.Insert(sess); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	sessions, err := db.Query(QueryFilter{
		Since: time.Now().Add(-1 * time.Hour),
		Limit: 10,
	})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(sessions) != 1 {
		t.Fatalf("expected 1 session, got %d", len(sessions))
	}

	got := sessions[0]
	if got.ID != sess.ID {
		t.Errorf("ID = %q, want %q", got.ID, sess.ID)
	}
	if got.InstanceID != "host1" {
		t.Errorf("InstanceID = %q", got.InstanceID)
	}
	if got.Outcome != session.OutcomeRunning {
		t.Errorf("Outcome = %q", got.Outcome)
	}
	if !slices.Equal(got.Args, sess.Args) {
		t.Errorf("Args = %q, want %q", got.Args, sess.Args)
	}
	if !got.EndedAt.IsZero() {
		t.Errorf("EndedAt = %v, want zero", got.EndedAt)
	}
}

func TestUpdate(t *testing.T) {
	db := testDB(t)

	sess := makeSession("host1", time.Now())
	if err := db.Insert(sess); err != nil {
		t.Fatal(err)
	}

	sess.Records = 42
	sess.DecodeErrors = 1
	sess.LastCursor = "s=abc;i=42"
	sess.Finish(time.Now(), fmt.Errorf("process exited with code 1"))
	if err := db.Update(sess); err != nil {
		t.Fatalf("Update: %v", err)
	}

	sessions, err := db.Query(QueryFilter{})
	if err != nil {
		t.Fatal(err)
	}
	got := sessions[0]
	if got.Records != 42 || got.DecodeErrors != 1 {
		t.Errorf("counters = %d/%d, want 42/1", got.Records, got.DecodeErrors)
	}
	if got.LastCursor != "s=abc;i=42" {
		t.Errorf("LastCursor = %q", got.LastCursor)
	}
	if got.Outcome != session.OutcomeFailed {
		t.Errorf("Outcome = %q, want %q", got.Outcome, session.OutcomeFailed)
	}
	if got.Error != "process exited with code 1" {
		t.Errorf("Error = %q", got.Error)
	}
	if got.EndedAt.IsZero() {
		t.Error("EndedAt should be set")
	}
}

func TestUpdateMissing(t *testing.T) {
	db := testDB(t)
	if err := db.Update(makeSession("host1", time.Now())); err == nil {
		t.Error("updating an unknown session should fail")
	}
}

func TestQueryFilters(t *testing.T) {
	db := testDB(t)

	s1 := makeSession("host1", time.Now())
	s2 := makeSession("host1", time.Now())
	s2.Finish(time.Now(), nil)
	s3 := makeSession("host2", time.Now())

	for _, s := range []*session.Session{s1, s2, s3} {
		if err := db.Insert(s); err != nil {
			t.Fatal(err)
		}
	}

	// Filter by instance.
	sessions, err := db.Query(QueryFilter{InstanceID: "host2"})
	if err != nil {
		t.Fatal(err)
	}
	if len(sessions) != 1 {
		t.Errorf("instance filter: got %d sessions, want 1", len(sessions))
	}

	// Filter by outcome.
	sessions, err = db.Query(QueryFilter{Outcome: session.OutcomeClean})
	if err != nil {
		t.Fatal(err)
	}
	if len(sessions) != 1 || sessions[0].ID != s2.ID {
		t.Errorf("outcome filter: got %d sessions, want %s", len(sessions), s2.ID)
	}

	// Filter by limit.
	sessions, err = db.Query(QueryFilter{Limit: 2})
	if err != nil {
		t.Fatal(err)
	}
	if len(sessions) != 2 {
		t.Errorf("limit filter: got %d sessions, want 2", len(sessions))
	}
}

func TestQueryOrder(t *testing.T) {
	db := testDB(t)

	older := makeSession("host1", time.Now().Add(-2*time.Hour))
	newer := makeSession("host1", time.Now())
	for _, s := range []*session.Session{older, newer} {
		if err := db.Insert(s); err != nil {
			t.Fatal(err)
		}
	}

	sessions, err := db.Query(QueryFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(sessions) != 2 || sessions[0].ID != newer.ID {
		t.Errorf("first session should be the newest")
	}
}

func TestPurge(t *testing.T) {
	db := testDB(t)

	old := makeSession("host1", time.Now().Add(-100*24*time.Hour))
	if err := db.Insert(old); err != nil {
		t.Fatal(err)
	}
	recent := makeSession("host1", time.Now())
	if err := db.Insert(recent); err != nil {
		t.Fatal(err)
	}

	purged, err := db.Purge(90 * 24 * time.Hour)
	if err != nil {
		t.Fatalf("Purge: %v", err)
	}
	if purged != 1 {
		t.Errorf("purged %d sessions, want 1", purged)
	}

	count, err := db.Count()
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("after purge: %d sessions remain, want 1", count)
	}
}

func TestCount(t *testing.T) {
	db := testDB(t)

	count, err := db.Count()
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 0 {
		t.Errorf("empty db count = %d, want 0", count)
	}

	for i := 0; i < 5; i++ {
		if err := db.Insert(makeSession("host1", time.Now())); err != nil {
			t.Fatal(err)
		}
	}

	count, err = db.Count()
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 5 {
		t.Errorf("count = %d, want 5", count)
	}
}

func TestCheckpoint(t *testing.T) {
	db := testDB(t)

	if _, ok, err := db.LastCursor("default"); err != nil || ok {
		t.Fatalf("LastCursor on empty db = %v, %v; want not found", ok, err)
	}

	if err := db.SaveCursor("default", "s=abc;i=1", time.Now()); err != nil {
		t.Fatalf("SaveCursor: %v", err)
	}
	if err := db.SaveCursor("default", "s=abc;i=2", time.Now()); err != nil {
		t.Fatalf("SaveCursor: %v", err)
	}
	// Empty cursors keep the previous position.
	if err := db.SaveCursor("default", "", time.Now()); err != nil {
		t.Fatalf("SaveCursor: %v", err)
	}
	if err := db.SaveCursor("sshd", "s=abc;i=9", time.Now()); err != nil {
		t.Fatal(err)
	}

	cp, ok, err := db.LastCursor("default")
	if err != nil || !ok {
		t.Fatalf("LastCursor = %v, %v", ok, err)
	}
	if cp.Cursor != "s=abc;i=2" {
		t.Errorf("Cursor = %q, want %q", cp.Cursor, "s=abc;i=2")
	}
	if cp.UpdatedAt.IsZero() {
		t.Error("UpdatedAt should be set")
	}
}
