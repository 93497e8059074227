package main

import (
	"context"
	"encoding/json"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mantasimb/jetraiders/internal/connhandler"
	"github.com/mantasimb/jetraiders/internal/identity"
	"github.com/mantasimb/jetraiders/internal/registry"
	"github.com/mantasimb/jetraiders/pkg/config"
	"github.com/mantasimb/jetraiders/pkg/logger"
)

var (
	addr           = flag.String("addr", "", "http service address (overrides config)")
	configFile     = flag.String("config", "config.yml", "path to config file")
	logLevel       = flag.String("log-level", "info", "log level: debug, info, warn, error")
	showCaller     = flag.Bool("show-caller", false, "show caller information in logs")
	defaultLobby   = flag.String("default-lobby", "", "id of the pinned lobby created at startup (overrides config)")
	matchTimeLimit = flag.Duration("match-time-limit", 0, "match time limit applied to the pinned default lobby and to lobbies created via POST /lobbies (overrides config when > 0; 0 keeps the config value)")
)

func main() {
	flag.Parse()

	var level logger.LogLevel
	switch *logLevel {
	case "debug":
		level = logger.DEBUG
	case "info":
		level = logger.INFO
	case "warn":
		level = logger.WARN
	case "error":
		level = logger.ERROR
	default:
		level = logger.INFO
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		// Write straight to stderr: pkg/logger isn't constructed yet without
		// cfg.Logging.Format.
		os.Stderr.WriteString("jetraiders: " + err.Error() + "\n")
		os.Exit(1)
	}

	serverLog := logger.New(cfg.Logging.Format, "SERVER", logger.ColorBrightGreen)
	if cl, ok := serverLog.(*logger.ColoredLogger); ok {
		cl.SetLevel(level)
		cl.SetShowCaller(*showCaller)
	}

	lobbyID := cfg.GameServer.DefaultLobbyID
	if *defaultLobby != "" {
		lobbyID = *defaultLobby
	}

	limit := cfg.GameServer.MatchTimeLimit
	if *matchTimeLimit > 0 {
		limit = *matchTimeLimit
	}

	reg := registry.New(logger.New(cfg.Logging.Format, "REGISTRY", logger.ColorBrightBlue))
	if _, err := reg.CreateLobby(lobbyID, nil, true, limit); err != nil {
		serverLog.Fatal("failed to create pinned default lobby %q: %v", lobbyID, err)
	}
	serverLog.Info("created pinned default lobby %q", lobbyID)

	verifier := identity.NewHTTPVerifier(cfg.Auth.ServiceURL, cfg.Auth.VerifyTimeout)

	connLog := logger.New(cfg.Logging.Format, "CONN", logger.ColorBrightCyan)
	connCfg := connhandler.DefaultConfig()
	connCfg.HandshakeTimeout = cfg.GameServer.HandshakeTimeout
	handler := connhandler.New(reg, verifier, connLog, connCfg, lobbyID)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", handler.ServeWS)
	mux.HandleFunc("/lobbies", createLobbyHandler(reg, limit))

	serverAddr := cfg.Addr()
	if *addr != "" {
		serverAddr = *addr
	}

	srv := &http.Server{
		Addr:    serverAddr,
		Handler: mux,
	}

	go func() {
		serverLog.Info("game service listening on %s", serverAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverLog.Fatal("server failed to start: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	serverLog.Info("received shutdown signal: %v", sig)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		serverLog.Warn("server forced to shutdown: %v", err)
	}
	serverLog.Info("server gracefully stopped")
}

type createLobbyRequest struct {
	LobbyID          string   `json:"lobby_id"`
	AllowedPlayerIDs []uint64 `json:"allowed_player_ids"`
}

// createLobbyHandler implements POST /lobbies per SPEC_FULL.md §6: 201 on
// success, 400 on a missing/blank lobby_id, 409 if it already exists.
// Created lobbies are unpinned and use the configured default match time
// limit.
func createLobbyHandler(reg *registry.Registry, matchTimeLimit time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		var req createLobbyRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSONError(w, http.StatusBadRequest, "lobby_id is required")
			return
		}

		id := strings.TrimSpace(req.LobbyID)
		if id == "" {
			writeJSONError(w, http.StatusBadRequest, "lobby_id is required")
			return
		}

		if _, err := reg.CreateLobby(id, req.AllowedPlayerIDs, false, matchTimeLimit); err != nil {
			writeJSONError(w, http.StatusConflict, "lobby already exists")
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]string{"lobby_id": id})
	}
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
