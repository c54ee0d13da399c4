// ABOUTME: JSON-over-websocket control surface exposing a worker.Handle to a remote controller
// ABOUTME: One goroutine per connection upgrades, reads command frames, and writes back snapshots
package controlsrv

import (
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/flowcast/audioworker/internal/worker"
)

// Message is the wire envelope for both directions: a controller sends
// {"command": "OPEN"} frames, the server pushes {"snapshot": {...}} frames
// on every command acknowledgement.
type Message struct {
	Command  string           `json:"command,omitempty"`
	Snapshot *worker.Snapshot `json:"snapshot,omitempty"`
	Error    string           `json:"error,omitempty"`
}

var commandByName = map[string]worker.Command{
	"NONE":    worker.CmdNone,
	"ENABLE":  worker.CmdEnable,
	"DISABLE": worker.CmdDisable,
	"OPEN":    worker.CmdOpen,
	"REOPEN":  worker.CmdReopen,
	"CLOSE":   worker.CmdClose,
	"PAUSE":   worker.CmdPause,
	"DRAIN":   worker.CmdDrain,
	"CANCEL":  worker.CmdCancel,
	"KILL":    worker.CmdKill,
}

// Server accepts websocket connections, turns JSON command frames into
// Handle.Post calls, and pushes a Snapshot back down the same socket
// after every acknowledgement.
type Server struct {
	handle   *worker.Handle
	upgrader websocket.Upgrader

	mu  sync.Mutex
	mux *http.ServeMux
	srv *http.Server
}

// New builds a Server around handle, the controller-facing surface of one
// running Worker. It does not start listening; call Start.
func New(handle *worker.Handle) *Server {
	mux := http.NewServeMux()
	s := &Server{
		handle: handle,
		mux:    mux,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
	mux.HandleFunc("/control", s.handleWebSocket)
	return s
}

// Start listens on addr until Stop is called. It blocks the calling
// goroutine.
func (s *Server) Start(addr string) error {
	s.mu.Lock()
	s.srv = &http.Server{Addr: addr, Handler: s.mux}
	srv := s.srv
	s.mu.Unlock()

	log.Printf("controlsrv: listening on %s", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("controlsrv: %w", err)
	}
	return nil
}

// Stop closes the HTTP server's listeners and connections immediately.
func (s *Server) Stop() {
	s.mu.Lock()
	srv := s.srv
	s.mu.Unlock()
	if srv != nil {
		srv.Close()
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("controlsrv: upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	log.Printf("controlsrv: controller connected from %s", r.RemoteAddr)
	s.sendSnapshot(conn)

	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			log.Printf("controlsrv: connection closed: %v", err)
			return
		}

		cmd, ok := commandByName[msg.Command]
		if !ok {
			s.sendError(conn, fmt.Sprintf("unknown command %q", msg.Command))
			continue
		}

		s.handle.Post(cmd)
		s.sendSnapshot(conn)
	}
}

func (s *Server) sendSnapshot(conn *websocket.Conn) {
	snap := s.handle.Snapshot()
	conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	if err := conn.WriteJSON(Message{Snapshot: &snap}); err != nil {
		log.Printf("controlsrv: write failed: %v", err)
	}
}

func (s *Server) sendError(conn *websocket.Conn, msg string) {
	conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	if err := conn.WriteJSON(Message{Error: msg}); err != nil {
		log.Printf("controlsrv: write failed: %v", err)
	}
}
