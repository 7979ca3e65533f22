// Package live pushes freshly generated schedules to a student's open
// dashboards over WebSocket.
package live

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/p-n-ai/pai-planner/internal/planner"
)

const (
	subscriberBuffer = 4
	writeTimeout     = 5 * time.Second
)

// Hub fans schedule updates out to subscribers keyed by email.
type Hub struct {
	mu   sync.Mutex
	subs map[string]map[chan []planner.StudyTask]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[chan []planner.StudyTask]struct{})}
}

// Subscribe registers for a student's updates. Call the returned function to
// unsubscribe; it closes the channel.
func (h *Hub) Subscribe(email string) (<-chan []planner.StudyTask, func()) {
	ch := make(chan []planner.StudyTask, subscriberBuffer)

	h.mu.Lock()
	if h.subs[email] == nil {
		h.subs[email] = make(map[chan []planner.StudyTask]struct{})
	}
	h.subs[email][ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs[email], ch)
			if len(h.subs[email]) == 0 {
				delete(h.subs, email)
			}
			h.mu.Unlock()
			close(ch)
		})
	}
}

// Publish sends tasks to every subscriber of email. Subscribers that are
// not keeping up miss the update.
func (h *Hub) Publish(email string, tasks []planner.StudyTask) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for ch := range h.subs[email] {
		select {
		case ch <- tasks:
		default:
			slog.Warn("dropping schedule update for slow subscriber", "email", email)
		}
	}
}

// Subscribers returns how many connections are listening for email.
func (h *Hub) Subscribers(email string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[email])
}

// Handler upgrades to WebSocket and streams schedules for the student that
// identify resolves from the request.
func (h *Hub) Handler(identify func(*http.Request) (string, error)) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		email, err := identify(r)
		if err != nil {
			http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
			return
		}

		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			slog.Error("websocket accept failed", "email", email, "error", err)
			return
		}
		defer conn.CloseNow()

		updates, unsubscribe := h.Subscribe(email)
		defer unsubscribe()

		// Clients only listen; CloseRead handles control frames and cancels
		// ctx once the peer goes away.
		ctx := conn.CloseRead(r.Context())
		slog.Info("live subscriber connected", "email", email)

		for {
			select {
			case <-ctx.Done():
				slog.Info("live subscriber left", "email", email)
				return
			case tasks := <-updates:
				if err := write(ctx, conn, tasks); err != nil {
					slog.Warn("live write failed", "email", email, "error", err)
					return
				}
			}
		}
	})
}

func write(ctx context.Context, conn *websocket.Conn, tasks []planner.StudyTask) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return wsjson.Write(ctx, conn, tasks)
}
