// Command identity is the guest/session token issuer: a CRUD-style store
// with uniform expiry (spec.md §1 "thin" services). It mints opaque session
// tokens for guest logins and exposes POST /auth/verify-token matching the
// contract the game service consumes.
package main

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/mantasimb/jetraiders/internal/identitystore"
	"github.com/mantasimb/jetraiders/pkg/logger"
)

var (
	addr       = flag.String("addr", ":3002", "http service address")
	dbPath     = flag.String("db", "./data/identity.db", "path to the guest/session sqlite database")
	sessionTTL = flag.Duration("session-ttl", 24*time.Hour, "session token validity window")
)

func main() {
	flag.Parse()
	log := logger.New("", "IDENTITY", logger.ColorBrightYellow)

	store, err := identitystore.Open(*dbPath)
	if err != nil {
		log.Fatal("failed to open identity store: %v", err)
	}
	defer store.Close()

	mux := http.NewServeMux()
	mux.HandleFunc("/auth/guest-login", guestLoginHandler(store, *sessionTTL, log))
	mux.HandleFunc("/auth/verify-token", verifyTokenHandler(store, log))

	log.Info("identity service listening on %s", *addr)
	if err := http.ListenAndServe(*addr, mux); err != nil {
		log.Fatal("server failed: %v", err)
	}
}

type guestLoginRequest struct {
	DisplayName string `json:"display_name"`
}

type guestLoginResponse struct {
	SessionToken string `json:"session_token"`
	UserID       uint64 `json:"user_id"`
	SessionID    string `json:"session_id"`
	ExpiresAt    int64  `json:"expires_at"`
}

func guestLoginHandler(store *identitystore.Store, ttl time.Duration, log logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req guestLoginRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.DisplayName == "" {
			req.DisplayName = "Guest"
		}

		guestID := uuid.New().String()
		userID, err := store.CreateGuest(guestID, req.DisplayName)
		if err != nil {
			log.Error("guest-login: create guest: %v", err)
			http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
			return
		}

		token, err := randomToken()
		if err != nil {
			log.Error("guest-login: mint token: %v", err)
			http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
			return
		}

		sessionID := uuid.New().String()
		sess, err := store.IssueSession(token, sessionID, userID, ttl)
		if err != nil {
			log.Error("guest-login: issue session: %v", err)
			http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(guestLoginResponse{
			SessionToken: sess.Token,
			UserID:       sess.UserID,
			SessionID:    sessionID,
			ExpiresAt:    sess.ExpiresAt.Unix(),
		})
	}
}

type verifyRequest struct {
	Token string `json:"token"`
}

type verifyResponse struct {
	UserID      uint64 `json:"user_id"`
	DisplayName string `json:"display_name"`
	SessionID   string `json:"session_id"`
	ExpiresAt   int64  `json:"expires_at"`
}

type verifyErrorResponse struct {
	Message string `json:"message"`
}

// verifyTokenHandler matches the contract in SPEC_FULL.md §6: success is
// {user_id, display_name, session_id, expires_at}; failure is 401
// {"message": "session expired" | other}.
func verifyTokenHandler(store *identitystore.Store, log logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req verifyRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" {
			writeVerifyError(w, "invalid request")
			return
		}

		sess, err := store.Lookup(req.Token)
		switch {
		case err == nil:
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(verifyResponse{
				UserID:      sess.UserID,
				DisplayName: sess.DisplayName,
				SessionID:   sess.SessionID,
				ExpiresAt:   sess.ExpiresAt.Unix(),
			})
		case errors.Is(err, identitystore.ErrSessionExpired):
			writeVerifyError(w, "session expired")
		case errors.Is(err, identitystore.ErrSessionNotFound):
			writeVerifyError(w, "unknown token")
		default:
			log.Error("verify-token: lookup: %v", err)
			writeVerifyError(w, "internal error")
		}
	}
}

func writeVerifyError(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(verifyErrorResponse{Message: message})
}

func randomToken() (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
