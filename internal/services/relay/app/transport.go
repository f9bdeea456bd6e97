package server

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/pairpad/pairpad/internal/platform/id"
	"github.com/pairpad/pairpad/internal/session"
	"golang.org/x/net/websocket"
)

const (
	// Frames carry whole documents, so the payload cap is sized for
	// source files rather than single edits.
	maxFramePayloadBytes   = 256 * 1024
	maxFramesPerSecond     = 120
	maxDecodeErrorsPerConn = 3
)

// NewHandler creates the relay routes over a fresh session store. Each
// handler owns its own store, so tests can run several independent relays
// in one process.
func NewHandler() http.Handler {
	return newHandler(session.NewStore(), "")
}

func newHandler(store *session.Store, executeAPIURL string) http.Handler {
	engine := newRelay(store)
	mux := http.NewServeMux()

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("Hello World!"))
	})
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":"OK"}`))
	})
	mux.Handle("/execute", newExecuteHandler(executeAPIURL))

	wsHandler := websocket.Handler(func(conn *websocket.Conn) {
		handleWSConn(conn, engine)
	})
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		wsHandler.ServeHTTP(w, r)
	})

	return mux
}

func handleWSConn(conn *websocket.Conn, engine *relay) {
	defer func() {
		_ = conn.Close()
	}()

	connectionID, err := id.NewID()
	if err != nil {
		log.Printf("relay: assign connection id: %v", err)
		return
	}
	log.Printf("relay: connection %s accepted", connectionID)

	peer := newWSPeer(json.NewEncoder(conn))
	engine.register(connectionID, peer)
	// Single teardown for all exit paths: the peer registration and every
	// session membership go away together.
	defer func() {
		engine.release(connectionID)
		log.Printf("relay: connection %s closed", connectionID)
	}()

	decoder := json.NewDecoder(conn)
	windowStart := time.Now()
	framesInWindow := 0
	decodeErrors := 0

	for {
		var frame wsFrame
		if err := decoder.Decode(&frame); err != nil {
			if errors.Is(err, io.EOF) {
				return
			}
			decodeErrors++
			_ = peer.writeSessionError("invalid frame payload")
			if decodeErrors >= maxDecodeErrorsPerConn {
				return
			}
			continue
		}
		decodeErrors = 0

		if len(frame.Payload) > maxFramePayloadBytes {
			_ = peer.writeSessionError("payload too large")
			continue
		}

		now := time.Now()
		if now.Sub(windowStart) >= time.Second {
			windowStart = now
			framesInWindow = 0
		}
		framesInWindow++
		if framesInWindow > maxFramesPerSecond {
			_ = peer.writeSessionError("rate limit exceeded")
			return
		}

		switch frame.Type {
		case "createSession":
			engine.createSession(connectionID, peer)
		case "joinSession":
			engine.joinSession(connectionID, peer, frame)
		case "mutateDocument":
			engine.mutateDocument(connectionID, peer, frame)
		case "mutateLanguage":
			engine.mutateLanguage(connectionID, peer, frame)
		case "leaveSession":
			engine.leaveSession(connectionID, peer, frame)
		case "listSessions":
			engine.listSessions(peer)
		case "listMembers":
			engine.listMembers(peer, frame)
		default:
			_ = peer.writeSessionError("unsupported frame type")
		}
	}
}
