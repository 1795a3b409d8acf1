package cart

import (
	"context"
	"errors"
	"testing"

	"github.com/ArtVersex/art-verse-v1-sub000/internal/docstore"
	pkgerrors "github.com/ArtVersex/art-verse-v1-sub000/pkg/errors"
)

func openSession(t *testing.T, f *fixture) *Session {
	t.Helper()
	sess, err := OpenSession(context.Background(), f.svc, testUser)
	if err != nil {
		t.Fatalf("open session: %v", err)
	}
	t.Cleanup(func() { _ = sess.Close() })
	return sess
}

func TestSessionShowsPredictionWhilePending(t *testing.T) {
	t.Parallel()
	f := newFixture(t, docstore.DefaultOptions())
	gated := newGatedCatalog(product("p1", "10.00", 3))
	f.svc.catalog = gated
	sess := openSession(t, f)

	type result struct {
		err error
	}
	done := make(chan result, 1)
	go func() {
		_, err := sess.Add(context.Background(), "p1", 1)
		done <- result{err: err}
	}()
	<-gated.entered

	if !sess.Pending() {
		t.Fatal("expected pending mutation")
	}
	if items := sess.Items(); items.Quantity("p1") != 1 {
		t.Fatalf("expected optimistic line, got %+v", items)
	}
	if _, err := sess.Remove(context.Background(), "p1"); pkgerrors.CodeOf(err) != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict while pending, got %v", err)
	}

	close(gated.release)
	if res := <-done; res.err != nil {
		t.Fatalf("add: %v", res.err)
	}
	if sess.Pending() {
		t.Fatal("expected no pending mutation")
	}
	if items := sess.Items(); len(items) != 1 || items.Quantity("p1") != 1 {
		t.Fatalf("unexpected items %+v", items)
	}
}

func TestSessionRollsBackRejectedMutation(t *testing.T) {
	t.Parallel()
	f := newFixture(t, docstore.DefaultOptions(), product("p1", "10.00", 3))
	sess := openSession(t, f)
	ctx := context.Background()

	if _, err := sess.Add(ctx, "p1", 1); err != nil {
		t.Fatalf("add: %v", err)
	}
	_, err := sess.UpdateQuantity(ctx, "p1", 5)
	if limit, ok := pkgerrors.StockLimit(err); !ok || limit != 3 {
		t.Fatalf("expected stock exceeded, got %v", err)
	}
	if items := sess.Items(); items.Quantity("p1") != 1 {
		t.Fatalf("expected rollback to quantity 1, got %+v", items)
	}
	if sess.Stale() {
		t.Fatal("a rejected mutation must not require resync")
	}
	if _, err := sess.UpdateQuantity(ctx, "p1", 2); err != nil {
		t.Fatalf("update after rejection: %v", err)
	}
}

func TestSessionBlocksMutationsWhileStale(t *testing.T) {
	t.Parallel()
	f := newFixture(t, docstore.DefaultOptions(), product("p1", "10.00", 3), product("p2", "2.00", 3))
	sess := openSession(t, f)
	ctx := context.Background()

	f.store.FailNextWrite(errors.New("network down"))
	_, err := sess.Add(ctx, "p1", 1)
	if pkgerrors.CodeOf(err) != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency error, got %v", err)
	}
	if !sess.Stale() || len(sess.Items()) != 0 {
		t.Fatalf("expected stale session with rolled back items, got stale=%v items=%+v", sess.Stale(), sess.Items())
	}

	_, err = sess.Add(ctx, "p1", 1)
	if pkgerrors.CodeOf(err) != pkgerrors.CodeStateConflict {
		t.Fatalf("expected resync required, got %v", err)
	}

	// A write from another session delivers a fresh snapshot.
	if _, err := f.svc.Add(ctx, testUser, "p2", 1); err != nil {
		t.Fatalf("add from other session: %v", err)
	}
	waitFor(t, sess.Updates(), func() bool { return !sess.Stale() })
	if items := sess.Items(); items.Quantity("p2") != 1 {
		t.Fatalf("expected delivered snapshot, got %+v", items)
	}
	if _, err := sess.Add(ctx, "p1", 1); err != nil {
		t.Fatalf("add after resync: %v", err)
	}
}

func TestSessionResync(t *testing.T) {
	t.Parallel()
	f := newFixture(t, docstore.DefaultOptions(), product("p1", "10.00", 3))
	sess := openSession(t, f)
	ctx := context.Background()

	f.store.FailNextWrite(errors.New("network down"))
	if _, err := sess.Add(ctx, "p1", 1); err == nil {
		t.Fatal("expected failure")
	}
	if err := sess.Resync(ctx); err != nil {
		t.Fatalf("resync: %v", err)
	}
	if sess.Stale() {
		t.Fatal("expected resync to clear stale state")
	}
	if _, err := sess.Add(ctx, "p1", 1); err != nil {
		t.Fatalf("add after resync: %v", err)
	}
}

func TestSessionFollowsOtherWriters(t *testing.T) {
	t.Parallel()
	f := newFixture(t, docstore.DefaultOptions(), product("p1", "10.00", 3))
	sess := openSession(t, f)
	start := sess.Version()

	if _, err := f.svc.Add(context.Background(), testUser, "p1", 2); err != nil {
		t.Fatalf("add: %v", err)
	}
	waitFor(t, sess.Updates(), func() bool { return sess.Version() > start })
	if items := sess.Items(); items.Quantity("p1") != 2 {
		t.Fatalf("expected delivered quantity 2, got %+v", items)
	}
}

func TestSessionClosedRejectsMutations(t *testing.T) {
	t.Parallel()
	f := newFixture(t, docstore.DefaultOptions(), product("p1", "10.00", 3))
	sess := openSession(t, f)

	if err := sess.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := sess.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	if _, err := sess.Add(context.Background(), "p1", 1); pkgerrors.CodeOf(err) != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict after close, got %v", err)
	}
}

func TestOpenSessionRequiresUser(t *testing.T) {
	t.Parallel()
	f := newFixture(t, docstore.DefaultOptions())
	if _, err := OpenSession(context.Background(), f.svc, ""); pkgerrors.CodeOf(err) != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}
