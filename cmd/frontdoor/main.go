// Command frontdoor is the stateless HTTP front door: it reverse-proxies
// client requests to the game service (WebSocket upgrade and lobby
// creation) and the matchmaker (queue join/leave), per spec.md §1's "thin"
// collaborator framing. It holds no state of its own.
package main

import (
	"flag"
	"net/http"
	"net/http/httputil"
	"net/url"

	"github.com/gorilla/mux"

	"github.com/mantasimb/jetraiders/pkg/logger"
)

var (
	addr           = flag.String("addr", ":3000", "http service address")
	gameServiceURL = flag.String("game-service-url", "http://127.0.0.1:3001", "base URL of the game service")
	matchmakerURL  = flag.String("matchmaker-url", "http://127.0.0.1:3003", "base URL of the matchmaker")
)

func main() {
	flag.Parse()
	log := logger.New("", "FRONTDOOR", logger.ColorBrightWhite)

	gameTarget, err := url.Parse(*gameServiceURL)
	if err != nil {
		log.Fatal("invalid -game-service-url: %v", err)
	}
	matchmakerTarget, err := url.Parse(*matchmakerURL)
	if err != nil {
		log.Fatal("invalid -matchmaker-url: %v", err)
	}

	gameProxy := httputil.NewSingleHostReverseProxy(gameTarget)
	matchmakerProxy := httputil.NewSingleHostReverseProxy(matchmakerTarget)

	router := mux.NewRouter()
	router.PathPrefix("/ws").Handler(gameProxy)
	router.PathPrefix("/lobbies").Handler(gameProxy)
	router.PathPrefix("/queue").Handler(matchmakerProxy)

	log.Info("front door listening on %s (game=%s, matchmaker=%s)", *addr, gameTarget, matchmakerTarget)
	if err := http.ListenAndServe(*addr, router); err != nil {
		log.Fatal("server failed: %v", err)
	}
}
