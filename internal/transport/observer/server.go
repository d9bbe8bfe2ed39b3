package observer

import (
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"seascape.ai/internal/protocol"
)

// Server streams renderer-facing scene frames to websocket observers. The
// tick loop pushes frames through Broadcast; each subscriber has a buffered
// channel and slow clients lose frames rather than stalling the loop.
type Server struct {
	log  *log.Logger
	boot protocol.BootstrapResponse

	upgrader websocket.Upgrader
	nextID   atomic.Uint64

	mu   sync.Mutex
	subs map[string]*subscriber
}

type subscriber struct {
	out        chan []byte
	everyTicks atomic.Int64
	seq        uint64
}

func NewServer(boot protocol.BootstrapResponse, logger *log.Logger) *Server {
	return &Server{
		log:  logger,
		boot: boot,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 16 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
		subs: map[string]*subscriber{},
	}
}

// Broadcast fans one encoded scene frame out to every subscriber.
func (s *Server) Broadcast(frame []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sub := range s.subs {
		sub.seq++
		every := sub.everyTicks.Load()
		if every > 1 && sub.seq%uint64(every) != 0 {
			continue
		}
		select {
		case sub.out <- frame:
		default:
			// Drop for slow clients.
		}
	}
}

func (s *Server) BootstrapHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(s.boot)
	}
}

func (s *Server) WSHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}

		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		// Handshake: must send SUBSCRIBE first.
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var sub protocol.SubscribeMsg
		if err := json.Unmarshal(msg, &sub); err != nil || sub.Type != protocol.TypeSubscribe || sub.ProtocolVersion != protocol.Version {
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected SUBSCRIBE"),
				time.Now().Add(time.Second))
			return
		}

		sid := fmt.Sprintf("O%d", s.nextID.Add(1))
		client := &subscriber{out: make(chan []byte, 64)}
		client.everyTicks.Store(int64(normalizeEvery(sub.EveryTicks)))

		s.mu.Lock()
		s.subs[sid] = client
		s.mu.Unlock()
		if s.log != nil {
			s.log.Printf("observer %s subscribed", sid)
		}
		defer func() {
			s.mu.Lock()
			delete(s.subs, sid)
			s.mu.Unlock()
		}()

		// Writer goroutine.
		done := make(chan struct{})
		writeErr := make(chan error, 1)
		go func() {
			for {
				select {
				case <-done:
					writeErr <- nil
					return
				case b := <-client.out:
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						writeErr <- err
						return
					}
				}
			}
		}()

		// Reader loop: allow SUBSCRIBE updates.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				break
			}
			var update protocol.SubscribeMsg
			if err := json.Unmarshal(msg, &update); err != nil {
				continue
			}
			if update.Type != protocol.TypeSubscribe || update.ProtocolVersion != protocol.Version {
				continue
			}
			client.everyTicks.Store(int64(normalizeEvery(update.EveryTicks)))
		}

		close(done)
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"),
			time.Now().Add(time.Second))

		// Best-effort wait so the writer doesn't outlive conn.
		select {
		case <-writeErr:
		case <-time.After(500 * time.Millisecond):
		}
	}
}

func normalizeEvery(every int) int {
	if every < 1 {
		return 1
	}
	if every > 1200 {
		return 1200
	}
	return every
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
