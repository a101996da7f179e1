// Package push delivers named server events to in-process handlers. Events arrive over the host
// websocket or the HTTP ingress and may be delivered more than once.
package push

import (
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/angelajfisher/webex-mate/internal/metrics"
)

// Event is a single push message. Data is nil when the message carried no payload.
type Event struct {
	Name string         `json:"event"`
	Data map[string]any `json:"data"`
	Seq  int64          `json:"seq"`
}

type Handler func(Event)

type Hub struct {
	handlers map[string]map[uint64]Handler // map[eventName]map[subscriptionID]handler
	total    uint64
	mu       sync.RWMutex
	log      zerolog.Logger
}

func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		handlers: make(map[string]map[uint64]Handler),
		log:      logger,
	}
}

// Subscribe registers fn for events with the given name until the subscription is cancelled.
func (h *Hub) Subscribe(name string, fn Handler) *Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.total++
	id := h.total
	if h.handlers[name] == nil {
		h.handlers[name] = make(map[uint64]Handler)
	}
	h.handlers[name][id] = fn

	return &Subscription{cancel: func() { h.remove(name, id) }}
}

// Publish calls every handler subscribed to the event's name, in subscription order, and reports how
// many were called.
func (h *Hub) Publish(ev Event) int {
	h.mu.RLock()
	subs := h.handlers[ev.Name]
	ids := make([]uint64, 0, len(subs))
	for id := range subs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	handlers := make([]Handler, 0, len(ids))
	for _, id := range ids {
		handlers = append(handlers, subs[id])
	}
	h.mu.RUnlock()

	if len(handlers) == 0 {
		metrics.PushEventsTotal.WithLabelValues(ev.Name, "unhandled").Inc()
		h.log.Trace().Str("event", ev.Name).Int64("seq", ev.Seq).Msg("no handlers for push event")
		return 0
	}

	for _, fn := range handlers {
		fn(ev)
	}
	return len(handlers)
}

func (h *Hub) remove(name string, id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(h.handlers[name], id)
	if len(h.handlers[name]) == 0 {
		delete(h.handlers, name)
	}
}

// Subscription is returned by Subscribe. Cancel is safe to call more than once.
type Subscription struct {
	once   sync.Once
	cancel func()
}

func (s *Subscription) Cancel() {
	if s == nil {
		return
	}
	s.once.Do(s.cancel)
}
