// Command matchmaker is a thin, stateless-between-restarts matchmaking
// service: a single in-memory FIFO queue with regional tagging (spec.md §1
// explicitly scopes this to one process, no sharding). It periodically pairs
// queued players and asks the game service to create a lobby for them.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/mantasimb/jetraiders/pkg/logger"
)

var (
	addr            = flag.String("addr", ":3003", "http service address")
	gameServiceURL  = flag.String("game-service-url", "http://127.0.0.1:3001", "base URL of the game service")
	groupSize       = flag.Int("group-size", 2, "number of queued players paired into one lobby")
	pairingInterval = flag.Duration("pairing-interval", time.Second, "how often the queue is scanned for pairable groups")
)

// queueEntry is one player's matchmaking ticket, guarded by the queue's
// mutex — continuing the teacher's sync.Mutex-guarded map idiom
// (models.LobbyManager) generalized to a per-region FIFO slice.
type queueEntry struct {
	PlayerID uint64
	Region   string
	QueuedAt time.Time
}

type queue struct {
	mu      sync.Mutex
	byRegion map[string][]queueEntry
}

func newQueue() *queue {
	return &queue{byRegion: make(map[string][]queueEntry)}
}

func (q *queue) join(playerID uint64, region string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.byRegion[region] = append(q.byRegion[region], queueEntry{PlayerID: playerID, Region: region, QueuedAt: time.Now()})
}

func (q *queue) leave(playerID uint64, region string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	entries := q.byRegion[region]
	for i, e := range entries {
		if e.PlayerID == playerID {
			q.byRegion[region] = append(entries[:i], entries[i+1:]...)
			return
		}
	}
}

// drainGroups pops every full group of size n from each region's FIFO,
// oldest first, leaving any remainder queued for the next scan.
func (q *queue) drainGroups(n int) [][]queueEntry {
	q.mu.Lock()
	defer q.mu.Unlock()

	var groups [][]queueEntry
	for region, entries := range q.byRegion {
		for len(entries) >= n {
			groups = append(groups, entries[:n])
			entries = entries[n:]
		}
		q.byRegion[region] = entries
	}
	return groups
}

func main() {
	flag.Parse()
	log := logger.New("", "MATCHMAKER", logger.ColorBrightPurple)

	q := newQueue()

	router := mux.NewRouter()
	router.HandleFunc("/queue/join", joinHandler(q, log)).Methods(http.MethodPost)
	router.HandleFunc("/queue/leave", leaveHandler(q, log)).Methods(http.MethodPost)
	router.HandleFunc("/queue/{region}/size", regionSizeHandler(q)).Methods(http.MethodGet)

	go runPairingLoop(q, *groupSize, *pairingInterval, *gameServiceURL, log)

	log.Info("matchmaker listening on %s", *addr)
	if err := http.ListenAndServe(*addr, router); err != nil {
		log.Fatal("server failed: %v", err)
	}
}

type queueRequest struct {
	PlayerID uint64 `json:"player_id"`
	Region   string `json:"region"`
}

func joinHandler(q *queue, log logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req queueRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.PlayerID == 0 {
			http.Error(w, `{"error":"player_id is required"}`, http.StatusBadRequest)
			return
		}
		if req.Region == "" {
			req.Region = "default"
		}
		q.join(req.PlayerID, req.Region)
		log.Debug("matchmaker: player %d joined queue (region=%s)", req.PlayerID, req.Region)
		w.WriteHeader(http.StatusAccepted)
	}
}

func leaveHandler(q *queue, log logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req queueRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.PlayerID == 0 {
			http.Error(w, `{"error":"player_id is required"}`, http.StatusBadRequest)
			return
		}
		if req.Region == "" {
			req.Region = "default"
		}
		q.leave(req.PlayerID, req.Region)
		w.WriteHeader(http.StatusOK)
	}
}

func regionSizeHandler(q *queue) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		region := mux.Vars(r)["region"]
		q.mu.Lock()
		size := len(q.byRegion[region])
		q.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]int{"size": size})
	}
}

// runPairingLoop periodically drains full groups and calls the game
// service's POST /lobbies to spin up a lobby for each.
func runPairingLoop(q *queue, n int, interval time.Duration, gameServiceURL string, log logger.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for range ticker.C {
		for _, group := range q.drainGroups(n) {
			players := make([]uint64, len(group))
			for i, e := range group {
				players[i] = e.PlayerID
			}
			lobbyID := uuid.New().String()
			if err := createLobby(gameServiceURL, lobbyID, players); err != nil {
				log.Error("matchmaker: failed to create lobby %s: %v", lobbyID, err)
				continue
			}
			log.Info("matchmaker: paired %d players into lobby %s", len(players), lobbyID)
		}
	}
}

type createLobbyRequest struct {
	LobbyID          string   `json:"lobby_id"`
	AllowedPlayerIDs []uint64 `json:"allowed_player_ids"`
}

func createLobby(gameServiceURL, lobbyID string, players []uint64) error {
	body, err := json.Marshal(createLobbyRequest{LobbyID: lobbyID, AllowedPlayerIDs: players})
	if err != nil {
		return err
	}
	resp, err := http.Post(gameServiceURL+"/lobbies", "application/json", bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return nil
}
