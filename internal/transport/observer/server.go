package observer

import (
	"context"
	"encoding/json"
	"log"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"lootfall.ai/internal/observerproto"
	"lootfall.ai/internal/sim/world"
)

// Source is what the observer reads from; *multiworld.Manager satisfies it.
type Source interface {
	DefaultWorldID() string
	WorldIDs() []string
	World(id string) (*world.World, error)
	Bus() *world.Bus
}

type Server struct {
	src Source
	log *log.Logger

	upgrader websocket.Upgrader
}

func NewServer(src Source, logger *log.Logger) *Server {
	return &Server{
		src: src,
		log: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

func (s *Server) Bootstrap() observerproto.BootstrapResponse {
	resp := observerproto.BootstrapResponse{
		ProtocolVersion: observerproto.Version,
		DefaultWorldID:  s.src.DefaultWorldID(),
		Worlds:          []observerproto.WorldState{},
	}
	for _, id := range s.src.WorldIDs() {
		w, err := s.src.World(id)
		if err != nil {
			continue
		}
		c := w.Counters()
		ws := observerproto.WorldState{ID: id, Current: c.Current, Max: c.Max, Resources: []observerproto.ResourceState{}}
		for _, v := range w.Live() {
			ws.Resources = append(ws.Resources, resourceState(v))
		}
		resp.Worlds = append(resp.Worlds, ws)
	}
	return resp
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
		_ = json.NewEncoder(rw).Encode(s.Bootstrap())
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
		sub, ok := parseSubscribe(msg)
		if !ok {
			_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected SUBSCRIBE"), time.Now().Add(time.Second))
			return
		}

		bus := s.src.Bus()
		if bus == nil {
			_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "no event bus"), time.Now().Add(time.Second))
			return
		}
		events, unsubscribe := bus.Subscribe(1024)
		defer unsubscribe()

		f := &filter{}
		f.set(sub)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		// Writer goroutine.
		writeErr := make(chan error, 1)
		go func() {
			for {
				select {
				case <-ctx.Done():
					writeErr <- ctx.Err()
					return
				case ev, ok := <-events:
					if !ok {
						writeErr <- nil
						return
					}
					if !f.match(ev) {
						continue
					}
					b, err := json.Marshal(EventMessage(ev))
					if err != nil {
						continue
					}
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
			if sub, ok := parseSubscribe(msg); ok {
				f.set(sub)
			}
		}

		cancel()
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"), time.Now().Add(time.Second))

		// Best-effort wait for the writer to stop so it doesn't outlive conn.
		select {
		case <-writeErr:
		case <-time.After(500 * time.Millisecond):
		}
	}
}

func parseSubscribe(msg []byte) (observerproto.SubscribeMsg, bool) {
	var sub observerproto.SubscribeMsg
	if err := json.Unmarshal(msg, &sub); err != nil {
		return sub, false
	}
	if sub.Type != observerproto.TypeSubscribe || sub.ProtocolVersion != observerproto.Version {
		return sub, false
	}
	return sub, true
}

// filter is shared by the reader (updates) and writer (matches) of one connection.
type filter struct {
	mu     sync.RWMutex
	worlds map[string]bool
	kinds  map[string]bool
}

func (f *filter) set(sub observerproto.SubscribeMsg) {
	worlds := map[string]bool{}
	for _, w := range sub.Worlds {
		if w = strings.TrimSpace(w); w != "" {
			worlds[w] = true
		}
	}
	kinds := map[string]bool{}
	for _, k := range sub.Kinds {
		if k = strings.ToUpper(strings.TrimSpace(k)); k != "" {
			kinds[k] = true
		}
	}
	f.mu.Lock()
	f.worlds, f.kinds = worlds, kinds
	f.mu.Unlock()
}

func (f *filter) match(ev world.ResourceEvent) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if len(f.worlds) > 0 && !f.worlds[ev.World] {
		return false
	}
	if len(f.kinds) > 0 && !f.kinds[string(ev.Kind)] {
		return false
	}
	return true
}

// EventMessage converts a bus event to its wire form.
func EventMessage(ev world.ResourceEvent) observerproto.EventMsg {
	m := observerproto.EventMsg{
		Type:            observerproto.TypeEvent,
		ProtocolVersion: observerproto.Version,
		Kind:            string(ev.Kind),
		World:           ev.World,
		AtUnixMs:        ev.At.UnixMilli(),
	}
	if ev.Resource != nil {
		rs := resourceState(*ev.Resource)
		m.Resource = &rs
	}
	if ev.Counters != nil {
		m.Counters = &observerproto.Counters{Current: ev.Counters.Current, Max: ev.Counters.Max}
	}
	for _, p := range ev.Payouts {
		m.Payouts = append(m.Payouts, observerproto.Payout{
			Attacker:     string(p.Attacker),
			Contribution: p.Contribution,
			Amount:       p.Amount,
			Top:          p.Top,
		})
	}
	return m
}

func resourceState(v world.ResourceView) observerproto.ResourceState {
	return observerproto.ResourceState{
		ID:       v.ID,
		Type:     v.Type,
		World:    v.World,
		HP:       v.HP,
		MaxHP:    v.MaxHP,
		Value:    v.Value,
		Currency: v.Currency,
		State:    v.State,
		Pos:      [3]float64{v.Pos.X, v.Pos.Y, v.Pos.Z},
		Yaw:      v.Yaw,
		Version:  v.Version,
	}
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
