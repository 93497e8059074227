package connhandler

import "github.com/gorilla/websocket"

// wsFrame is one inbound frame handed from the reader goroutine to the
// handler's select loop. gorilla/websocket connections are not safe for
// concurrent reads, so a single dedicated reader goroutine plus a channel is
// required — generalizing the teacher's readPump/writePump split, which
// already isolates blocking reads from the select-driven writer.
type wsFrame struct {
	msgType int
	data    []byte
	err     error
}

// readLoop blocks on conn.ReadMessage and forwards every frame (or the
// terminal error) to out, then closes out. Exits when the connection closes
// or errors.
func readLoop(conn *websocket.Conn, out chan<- wsFrame) {
	defer close(out)
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			out <- wsFrame{err: err}
			return
		}
		out <- wsFrame{msgType: msgType, data: data}
	}
}
