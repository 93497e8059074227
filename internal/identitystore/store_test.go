package identitystore

import (
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "guests.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestCreateGuestAndIssueSession(t *testing.T) {
	s := openTestStore(t)

	userID, err := s.CreateGuest("guest-1", "Pilot")
	if err != nil {
		t.Fatalf("CreateGuest: %v", err)
	}
	if userID == 0 {
		t.Fatal("expected a non-zero user id")
	}

	sess, err := s.IssueSession("tok-1", "sess-1", userID, time.Hour)
	if err != nil {
		t.Fatalf("IssueSession: %v", err)
	}
	if sess.UserID != userID {
		t.Fatalf("expected session user id %d, got %d", userID, sess.UserID)
	}
}

func TestLookupResolvesProfile(t *testing.T) {
	s := openTestStore(t)

	userID, _ := s.CreateGuest("guest-2", "Navigator")
	s.IssueSession("tok-2", "sess-2", userID, time.Hour)

	got, err := s.Lookup("tok-2")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if got.UserID != userID || got.DisplayName != "Navigator" {
		t.Fatalf("unexpected session: %+v", got)
	}
}

func TestLookupUnknownToken(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.Lookup("missing"); err != ErrSessionNotFound {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestLookupExpiredToken(t *testing.T) {
	s := openTestStore(t)

	userID, _ := s.CreateGuest("guest-3", "Gunner")
	s.IssueSession("tok-3", "sess-3", userID, -time.Hour)

	if _, err := s.Lookup("tok-3"); err != ErrSessionExpired {
		t.Fatalf("expected ErrSessionExpired, got %v", err)
	}
}

func TestUserIDsAreProcessUnique(t *testing.T) {
	s := openTestStore(t)

	a, _ := s.CreateGuest("guest-a", "A")
	b, _ := s.CreateGuest("guest-b", "B")
	if a == b {
		t.Fatalf("expected distinct user ids, got %d and %d", a, b)
	}
}
