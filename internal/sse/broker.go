// Package sse pushes plan change notifications to open pages over Server-Sent Events.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"
)

// Event types sent to clients.
const (
	EventPlanCreated    = "plan.created"
	EventPlanUpdated    = "plan.updated"
	EventPlanDeleted    = "plan.deleted"
	EventSummaryUpdated = "summary.updated"
	EventThemeUpdated   = "theme.updated"
)

var planEventTypes = map[string]string{
	"created": EventPlanCreated,
	"updated": EventPlanUpdated,
	"deleted": EventPlanDeleted,
}

// heartbeat is how often an idle stream gets a comment line so proxies
// keep it open.
var heartbeat = 25 * time.Second

// Event represents an SSE event to broadcast.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// frame is an encoded event. date is set for plan events and empty for
// events every client receives.
type frame struct {
	date string
	raw  []byte
}

func encode(event Event, date string) (frame, bool) {
	payload, err := json.Marshal(event.Data)
	if err != nil {
		return frame{}, false
	}
	return frame{date: date, raw: []byte(fmt.Sprintf("event: %s\ndata: %s\n\n", event.Type, payload))}, true
}

type subscription struct {
	ch   chan []byte
	date string
}

// Broker fans events out to connected clients. A client may subscribe to a
// single date, in which case plan events for other dates are skipped.
//
// One goroutine owns the client set and the summary throttle; the public
// methods talk to it over channels.
type Broker struct {
	summaryMin time.Duration

	subscribeCh   chan subscription
	unsubscribeCh chan chan []byte
	frameCh       chan frame
	planCh        chan frame
	countCh       chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker creates a broker that emits summary.updated at most once per
// summaryThrottle.
func NewBroker(summaryThrottle time.Duration) *Broker {
	if summaryThrottle <= 0 {
		summaryThrottle = 2 * time.Second
	}
	b := &Broker{
		summaryMin:    summaryThrottle,
		subscribeCh:   make(chan subscription),
		unsubscribeCh: make(chan chan []byte),
		frameCh:       make(chan frame, 256),
		planCh:        make(chan frame, 256),
		countCh:       make(chan chan int),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}
	go b.loop()
	return b
}

func (b *Broker) loop() {
	defer close(b.stopped)

	clients := make(map[chan []byte]string)
	var lastSummary time.Time

	send := func(f frame) {
		for ch, date := range clients {
			if f.date != "" && date != "" && f.date != date {
				continue
			}
			select {
			case ch <- f.raw:
			default:
				// Slow client; drop rather than stall everyone else.
			}
		}
	}

	for {
		select {
		case <-b.stopCh:
			for ch := range clients {
				close(ch)
			}
			return

		case sub := <-b.subscribeCh:
			clients[sub.ch] = sub.date

		case ch := <-b.unsubscribeCh:
			if _, ok := clients[ch]; ok {
				delete(clients, ch)
				close(ch)
			}

		case f := <-b.frameCh:
			send(f)

		case f := <-b.planCh:
			send(f)
			if now := time.Now(); now.Sub(lastSummary) >= b.summaryMin {
				lastSummary = now
				if s, ok := encode(Event{Type: EventSummaryUpdated, Data: struct{}{}}, ""); ok {
					send(s)
				}
			}

		case resp := <-b.countCh:
			resp <- len(clients)
		}
	}
}

// Close stops the broker loop and closes all client channels. It is safe
// to call more than once.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe adds a client and returns its channel. A non-empty date limits
// plan events to that date.
func (b *Broker) Subscribe(date string) chan []byte {
	ch := make(chan []byte, 64)
	if b.closed.Load() {
		close(ch)
		return ch
	}
	select {
	case b.subscribeCh <- subscription{ch: ch, date: date}:
	case <-b.stopped:
		close(ch)
	}
	return ch
}

// Unsubscribe removes a client and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	if b.closed.Load() {
		return
	}
	select {
	case b.unsubscribeCh <- ch:
	case <-b.stopped:
	}
}

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	if b.closed.Load() {
		return 0
	}
	resp := make(chan int, 1)
	select {
	case b.countCh <- resp:
	case <-b.stopped:
		return 0
	}
	select {
	case n := <-resp:
		return n
	case <-b.stopped:
		return 0
	}
}

// Publish sends an event to every client.
func (b *Broker) Publish(event Event) {
	f, ok := encode(event, "")
	if !ok {
		return
	}
	b.enqueue(b.frameCh, f)
}

// PublishPlanEvent announces a change to one date's plan, followed by a
// throttled summary.updated. kind is "created", "updated" or "deleted";
// anything else is dropped.
func (b *Broker) PublishPlanEvent(kind, date string) {
	typ, ok := planEventTypes[kind]
	if !ok {
		return
	}
	f, ok := encode(Event{Type: typ, Data: map[string]string{"date": date}}, date)
	if !ok {
		return
	}
	b.enqueue(b.planCh, f)
}

func (b *Broker) enqueue(ch chan frame, f frame) {
	if b.closed.Load() {
		return
	}
	select {
	case ch <- f:
	case <-b.stopped:
	}
}

// ServeHTTP streams events to one client until it disconnects. The
// optional ?date=YYYY-MM-DD query parameter scopes plan events.
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("retry: 3000\n\n"))
	flusher.Flush()

	ch := b.Subscribe(r.URL.Query().Get("date"))
	defer b.Unsubscribe(ch)

	ticker := time.NewTicker(heartbeat)
	defer ticker.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = w.Write([]byte(": ping\n\n"))
			flusher.Flush()
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}
