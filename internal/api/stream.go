package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/talgya/hexfleet/internal/intel"
)

const (
	maxStreamConns = 8
	streamPoll     = 250 * time.Millisecond
	streamPing     = 15 * time.Second
	writeWait      = 5 * time.Second
)

// streamMessage is the envelope of every websocket frame.
type streamMessage struct {
	Type    string        `json:"type"` // "intel" or "hello"
	Turn    int           `json:"turn"`
	Phase   string        `json:"phase"`
	Entries []intel.Entry `json:"entries,omitempty"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// handleStream upgrades to a websocket and pushes intel entries as they are
// written. ?since=<seq> replays everything newer than seq first.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	if n := atomic.AddInt32(&s.streamConns, 1); n > maxStreamConns {
		atomic.AddInt32(&s.streamConns, -1)
		http.Error(w, "too many stream connections", http.StatusServiceUnavailable)
		return
	}
	defer atomic.AddInt32(&s.streamConns, -1)

	var since uint64
	if v := r.URL.Query().Get("since"); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			http.Error(w, "since must be a sequence number", http.StatusBadRequest)
			return
		}
		since = n
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()
	slog.Info("stream client connected", "remote", s.Limiter.clientIP(r), "since", since)

	// Drain the read side so close frames and pongs are processed.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	turn, phase := s.Sim.Turn()
	if err := s.send(conn, streamMessage{Type: "hello", Turn: turn, Phase: string(phase)}); err != nil {
		return
	}

	poll := time.NewTicker(streamPoll)
	defer poll.Stop()
	ping := time.NewTicker(streamPing)
	defer ping.Stop()

	for {
		select {
		case <-poll.C:
			entries := s.Sim.IntelSince(since)
			if len(entries) == 0 {
				continue
			}
			since = entries[len(entries)-1].Seq
			turn, phase := s.Sim.Turn()
			if err := s.send(conn, streamMessage{Type: "intel", Turn: turn, Phase: string(phase), Entries: entries}); err != nil {
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		case <-closed:
			slog.Info("stream client disconnected", "remote", s.Limiter.clientIP(r))
			return
		case <-r.Context().Done():
			return
		}
	}
}

func (s *Server) send(conn *websocket.Conn, msg streamMessage) error {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(msg); err != nil {
		slog.Debug("stream write failed", "error", err)
		return err
	}
	return nil
}
