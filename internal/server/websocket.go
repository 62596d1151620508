package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/tobrk/lanscout/internal/dnssd"
	"github.com/tobrk/lanscout/internal/logging"
	"go.uber.org/zap"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Maximum size of the scan request message
	maxRequestSize = 4096
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// wsEvent is one message on the WebSocket stream. Type is "host" for a
// per-merge update (Key and Host set) and "done" for the final summary
// (Hosts set, Error set when the scan failed).
type wsEvent struct {
	Type  string              `json:"type"`
	Key   string              `json:"key,omitempty"`
	Host  *hostView           `json:"host,omitempty"`
	Hosts map[string]hostView `json:"hosts,omitempty"`
	Error string              `json:"error,omitempty"`
}

// handleWebSocket streams one scan session: the client sends a single
// scanRequest JSON message, the server answers with a "host" event per
// aggregated response and a final "done" event, then closes.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Warn("WebSocket upgrade failed",
			zap.String("remote_addr", r.RemoteAddr),
			zap.Error(err),
		)
		return
	}
	remoteAddr := conn.RemoteAddr().String()

	defer func() {
		_ = conn.Close()
		logging.Debug("WebSocket closed", zap.String("remote_addr", remoteAddr))
	}()

	conn.SetReadLimit(maxRequestSize)

	var req scanRequest
	if err := conn.ReadJSON(&req); err != nil {
		logging.Warn("Invalid scan request",
			zap.String("remote_addr", remoteAddr),
			zap.Error(err),
		)
		return
	}

	opts, err := req.options(s.config.MaxWindow)
	if err != nil {
		_ = writeEvent(conn, nil, wsEvent{Type: "done", Error: err.Error()})
		return
	}

	logging.Info("WebSocket scan started",
		zap.String("remote_addr", remoteAddr),
		zap.Strings("queries", opts.Queries),
		zap.Duration("window", opts.Window),
	)

	// Merge callbacks arrive from the transport's dispatch goroutine;
	// serialize writes to the connection.
	var writeMu sync.Mutex
	stream := func(key string, host *dnssd.Host) {
		view := viewOfHost(host)
		if err := writeEvent(conn, &writeMu, wsEvent{Type: "host", Key: key, Host: &view}); err != nil {
			logging.Debug("Failed to stream host",
				zap.String("remote_addr", remoteAddr),
				zap.Error(err),
			)
		}
	}

	hosts, err := s.scanner.ResolveFunc(r.Context(), opts, stream)
	if err != nil {
		_ = writeEvent(conn, &writeMu, wsEvent{Type: "done", Error: err.Error()})
		return
	}

	views := make(map[string]hostView, len(hosts))
	for key, host := range hosts {
		views[key] = viewOfHost(host)
	}
	_ = writeEvent(conn, &writeMu, wsEvent{Type: "done", Hosts: views})

	logging.Info("WebSocket scan complete",
		zap.String("remote_addr", remoteAddr),
		zap.Int("hosts", len(hosts)),
	)
}

func writeEvent(conn *websocket.Conn, mu *sync.Mutex, event wsEvent) error {
	if mu != nil {
		mu.Lock()
		defer mu.Unlock()
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(event)
}
