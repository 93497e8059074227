// Package connhandler implements the per-socket connection state machine:
// authenticated join handshake, per-player connection takeover, input
// forwarding with backpressure, and snapshot/lifecycle fan-out to the
// client. One goroutine-pair per socket (readLoop plus the session goroutine
// that does all writes), continuing the teacher's
// internal/network/session.go readPump/writePump split.
package connhandler

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/mantasimb/jetraiders/internal/identity"
	"github.com/mantasimb/jetraiders/internal/registry"
	"github.com/mantasimb/jetraiders/internal/throttle"
	"github.com/mantasimb/jetraiders/pkg/logger"
)

// upgrader is stateless and safe to share across goroutines, matching the
// teacher's practice of sharing a single websocket.Upgrader package-wide.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Handler wires the registry and identity verifier into a WebSocket
// endpoint. Constructed once in cmd/server/main.go and passed to
// http.ServeMux as a method value.
type Handler struct {
	Registry       *registry.Registry
	Verifier       identity.Verifier
	Log            logger.Logger
	Cfg            Config
	DefaultLobbyID string
}

// New returns a Handler ready to be registered on a ServeMux.
func New(reg *registry.Registry, verifier identity.Verifier, log logger.Logger, cfg Config, defaultLobbyID string) *Handler {
	return &Handler{Registry: reg, Verifier: verifier, Log: log, Cfg: cfg, DefaultLobbyID: defaultLobbyID}
}

// ServeWS handles GET /ws?lobby_id=<id>. Unknown lobby returns HTTP 404
// before the protocol upgrade.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	lobbyID := r.URL.Query().Get("lobby_id")
	if lobbyID == "" {
		lobbyID = h.DefaultLobbyID
	}

	lobby, ok := h.Registry.GetLobby(lobbyID)
	if !ok {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"error": "lobby not found"})
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.Log.Warn("connhandler: upgrade failed: %v", err)
		return
	}

	session := &connSession{
		conn:     conn,
		lobby:    lobby,
		registry: h.Registry,
		verifier: h.Verifier,
		log:      h.Log,
		cfg:      h.Cfg,
		limiter:  throttle.New(),
	}
	go session.run()
}
