// Package identitystore is the identity service's guest/session token store:
// a small CRUD-style persistence layer backed by SQLite, continuing the
// teacher's internal/database connection/pool/migration shape for a much
// smaller schema — repurposed from analytics persistence to guest-identity
// storage, the natural home for the teacher's only SQL driver once
// analytics itself is out of scope.
package identitystore

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Session is a verified guest login: an opaque session token mapped to a
// process-unique numeric user id, matching the identity service contract
// consumed by the game service (SPEC_FULL.md §6).
type Session struct {
	Token       string
	UserID      uint64
	DisplayName string
	GuestID     string
	SessionID   string
	CreatedAt   time.Time
	ExpiresAt   time.Time
}

// Store persists guest profiles and their session tokens in SQLite.
type Store struct {
	db        *sql.DB
	nextUser  atomic.Uint64
}

// Open connects to (creating if necessary) the SQLite database at path and
// runs the store's migration.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("identitystore: create data dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_journal_mode=WAL&_timeout=10000")
	if err != nil {
		return nil, fmt.Errorf("identitystore: open %s: %w", path, err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("identitystore: ping: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	if err := s.loadUserCounter(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS guests (
	user_id      INTEGER PRIMARY KEY,
	guest_id     TEXT NOT NULL,
	display_name TEXT NOT NULL,
	created_at   DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS sessions (
	token        TEXT PRIMARY KEY,
	user_id      INTEGER NOT NULL,
	session_id   TEXT NOT NULL,
	created_at   DATETIME NOT NULL,
	expires_at   DATETIME NOT NULL,
	FOREIGN KEY(user_id) REFERENCES guests(user_id)
);
`)
	if err != nil {
		return fmt.Errorf("identitystore: migrate: %w", err)
	}
	return nil
}

func (s *Store) loadUserCounter() error {
	var max sql.NullInt64
	if err := s.db.QueryRow(`SELECT MAX(user_id) FROM guests`).Scan(&max); err != nil {
		return fmt.Errorf("identitystore: load user counter: %w", err)
	}
	if max.Valid {
		s.nextUser.Store(uint64(max.Int64))
	}
	return nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

// CreateGuest mints a process-unique user id for guestID/displayName and
// persists the profile, continuing the teacher's practice of
// monotonically-incrementing ids for externally-visible counters.
func (s *Store) CreateGuest(guestID, displayName string) (uint64, error) {
	userID := s.nextUser.Add(1)
	_, err := s.db.Exec(
		`INSERT INTO guests (user_id, guest_id, display_name, created_at) VALUES (?, ?, ?, ?)`,
		userID, guestID, displayName, time.Now().UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("identitystore: create guest: %w", err)
	}
	return userID, nil
}

// IssueSession persists a new session token for userID, valid for ttl.
func (s *Store) IssueSession(token, sessionID string, userID uint64, ttl time.Duration) (Session, error) {
	now := time.Now().UTC()
	expires := now.Add(ttl)
	_, err := s.db.Exec(
		`INSERT INTO sessions (token, user_id, session_id, created_at, expires_at) VALUES (?, ?, ?, ?, ?)`,
		token, userID, sessionID, now, expires,
	)
	if err != nil {
		return Session{}, fmt.Errorf("identitystore: issue session: %w", err)
	}
	return Session{Token: token, UserID: userID, SessionID: sessionID, ExpiresAt: expires, CreatedAt: now}, nil
}

// ErrSessionNotFound is returned by Lookup for an unknown token.
var ErrSessionNotFound = fmt.Errorf("identitystore: session not found")

// ErrSessionExpired is returned by Lookup for a token past its expiry.
var ErrSessionExpired = fmt.Errorf("identitystore: session expired")

// Lookup resolves token to its guest profile, enforcing expiry.
func (s *Store) Lookup(token string) (Session, error) {
	var sess Session
	var expiresAt time.Time
	row := s.db.QueryRow(`
SELECT sessions.user_id, sessions.session_id, sessions.expires_at, guests.guest_id, guests.display_name
FROM sessions JOIN guests ON guests.user_id = sessions.user_id
WHERE sessions.token = ?`, token)

	if err := row.Scan(&sess.UserID, &sess.SessionID, &expiresAt, &sess.GuestID, &sess.DisplayName); err != nil {
		if err == sql.ErrNoRows {
			return Session{}, ErrSessionNotFound
		}
		return Session{}, fmt.Errorf("identitystore: lookup: %w", err)
	}

	sess.Token = token
	sess.ExpiresAt = expiresAt
	if time.Now().UTC().After(expiresAt) {
		return Session{}, ErrSessionExpired
	}
	return sess, nil
}
