package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/louisbranch/gatehouse/internal/services/shell/session"
)

func TestOpenRequiresPath(t *testing.T) {
	t.Parallel()

	if _, err := Open(""); err == nil {
		t.Fatal("expected empty path error")
	}
}

func TestPutGetSessionRoundTrip(t *testing.T) {
	t.Parallel()

	clock := clockwork.NewFakeClockAt(time.Date(2026, time.March, 3, 10, 0, 0, 0, time.UTC))
	store := openTempStore(t, clock)
	input := session.Session{
		ID:        "sess-1",
		UserID:    "user-1",
		Token:     "token-1",
		ExpiresAt: clock.Now().Add(time.Hour),
	}
	if err := store.Put(context.Background(), input); err != nil {
		t.Fatalf("put session: %v", err)
	}

	got, err := store.Get(context.Background(), "sess-1")
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if got.UserID != input.UserID {
		t.Fatalf("user_id = %q, want %q", got.UserID, input.UserID)
	}
	if got.Token != input.Token {
		t.Fatalf("token = %q, want %q", got.Token, input.Token)
	}
	if !got.ExpiresAt.Equal(input.ExpiresAt) {
		t.Fatalf("expires_at = %v, want %v", got.ExpiresAt, input.ExpiresAt)
	}
}

func TestPutReplacesExistingSession(t *testing.T) {
	t.Parallel()

	store := openTempStore(t, clockwork.NewFakeClock())
	ctx := context.Background()
	if err := store.Put(ctx, session.Session{ID: "sess-1", UserID: "user-1", Token: "old"}); err != nil {
		t.Fatalf("put session: %v", err)
	}
	if err := store.Put(ctx, session.Session{ID: "sess-1", UserID: "user-1", Token: "new"}); err != nil {
		t.Fatalf("replace session: %v", err)
	}
	got, err := store.Get(ctx, "sess-1")
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if got.Token != "new" {
		t.Fatalf("token = %q, want %q", got.Token, "new")
	}
	if !got.ExpiresAt.IsZero() {
		t.Fatalf("expires_at = %v, want zero", got.ExpiresAt)
	}
}

func TestGetHidesExpiredSessions(t *testing.T) {
	t.Parallel()

	clock := clockwork.NewFakeClock()
	store := openTempStore(t, clock)
	ctx := context.Background()
	if err := store.Put(ctx, session.Session{ID: "sess-1", UserID: "user-1", ExpiresAt: clock.Now().Add(time.Minute)}); err != nil {
		t.Fatalf("put session: %v", err)
	}
	clock.Advance(2 * time.Minute)

	if _, err := store.Get(ctx, "sess-1"); !errors.Is(err, session.ErrNotFound) {
		t.Fatalf("get expired session error = %v, want %v", err, session.ErrNotFound)
	}
	purged, err := store.PurgeExpired(ctx)
	if err != nil {
		t.Fatalf("purge expired: %v", err)
	}
	if purged != 1 {
		t.Fatalf("purged = %d, want 1", purged)
	}
}

func TestDeleteSession(t *testing.T) {
	t.Parallel()

	store := openTempStore(t, clockwork.NewFakeClock())
	ctx := context.Background()
	if err := store.Put(ctx, session.Session{ID: "sess-1", UserID: "user-1"}); err != nil {
		t.Fatalf("put session: %v", err)
	}
	if err := store.Delete(ctx, "sess-1"); err != nil {
		t.Fatalf("delete session: %v", err)
	}
	if err := store.Delete(ctx, "sess-1"); err != nil {
		t.Fatalf("delete missing session: %v", err)
	}
	if _, err := store.Get(ctx, "sess-1"); !errors.Is(err, session.ErrNotFound) {
		t.Fatalf("get deleted session error = %v, want %v", err, session.ErrNotFound)
	}
}

func TestPutRejectsMissingUser(t *testing.T) {
	t.Parallel()

	store := openTempStore(t, clockwork.NewFakeClock())
	if err := store.Put(context.Background(), session.Session{ID: "sess-1"}); err == nil {
		t.Fatal("expected missing user id error")
	}
}

func TestNilStoreIsNotConfigured(t *testing.T) {
	t.Parallel()

	var store *Store
	if _, err := store.Get(context.Background(), "sess-1"); err == nil {
		t.Fatal("expected not configured error")
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close nil store: %v", err)
	}
}

func openTempStore(t *testing.T, clock clockwork.Clock) *Store {
	t.Helper()

	store, err := Open(filepath.Join(t.TempDir(), "sessions.db"), WithClock(clock))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Fatalf("close store: %v", err)
		}
	})
	return store
}
