// Package sse implements a Server-Sent Events broker for vault change events.
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
	EventNoteSaved    = "note.saved"
	EventNoteDeleted  = "note.deleted"
	EventIndexRebuilt = "index.rebuilt"
)

// keepAlive is the interval of comment lines that keep idle streams open
// through proxies.
const keepAlive = 25 * time.Second

// Event represents an SSE event to broadcast.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// NoteData is the payload of note events.
type NoteData struct {
	ID string `json:"id"`
}

// RebuildData is the payload of index.rebuilt.
type RebuildData struct {
	Nodes int `json:"nodes"`
	Edges int `json:"edges"`
}

// Broker manages SSE client connections and broadcasts events.
//
// A single event loop goroutine owns the client set and the rebuild throttle
// state. Public methods talk to it over channels.
//
// index.rebuilt is throttled: at most one per interval, and a rebuild
// suppressed inside the window is delivered when the window closes so
// clients always learn about the latest index.
type Broker struct {
	rebuildMin time.Duration

	subscribeCh   chan chan []byte
	unsubscribeCh chan chan []byte
	publishCh     chan Event
	rebuildCh     chan RebuildData
	countReqCh    chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker creates a broker that sends at most one index.rebuilt event per
// rebuildThrottle.
func NewBroker(rebuildThrottle time.Duration) *Broker {
	if rebuildThrottle <= 0 {
		rebuildThrottle = 2 * time.Second
	}

	b := &Broker{
		rebuildMin:    rebuildThrottle,
		subscribeCh:   make(chan chan []byte),
		unsubscribeCh: make(chan chan []byte),
		publishCh:     make(chan Event, 256),
		rebuildCh:     make(chan RebuildData, 256),
		countReqCh:    make(chan chan int),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}

	go b.run()
	return b
}

func (b *Broker) run() {
	defer close(b.stopped)

	clients := make(map[chan []byte]struct{})
	var (
		lastRebuild time.Time
		pending     *RebuildData
		flushTimer  *time.Timer
		flushCh     <-chan time.Time
	)

	broadcast := func(event Event) {
		payload, err := json.Marshal(event.Data)
		if err != nil {
			return
		}
		raw := []byte(fmt.Sprintf("event: %s\ndata: %s\n\n", event.Type, payload))
		for ch := range clients {
			select {
			case ch <- raw:
			default:
				// Slow client; drop rather than block the loop.
			}
		}
	}

	sendRebuild := func(d RebuildData) {
		lastRebuild = time.Now()
		pending = nil
		broadcast(Event{Type: EventIndexRebuilt, Data: d})
	}

	for {
		select {
		case <-b.stopCh:
			if flushTimer != nil {
				flushTimer.Stop()
			}
			for ch := range clients {
				close(ch)
			}
			return

		case ch := <-b.subscribeCh:
			clients[ch] = struct{}{}

		case ch := <-b.unsubscribeCh:
			if _, ok := clients[ch]; ok {
				delete(clients, ch)
				close(ch)
			}

		case event := <-b.publishCh:
			broadcast(event)

		case d := <-b.rebuildCh:
			wait := b.rebuildMin - time.Since(lastRebuild)
			if wait <= 0 {
				sendRebuild(d)
				continue
			}
			pending = &d
			if flushCh == nil {
				flushTimer = time.NewTimer(wait)
				flushCh = flushTimer.C
			}

		case <-flushCh:
			flushCh = nil
			if pending != nil {
				sendRebuild(*pending)
			}

		case resp := <-b.countReqCh:
			resp <- len(clients)
		}
	}
}

// Close gracefully stops broker loop and closes all client channels.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe adds a new client and returns its channel.
func (b *Broker) Subscribe() chan []byte {
	ch := make(chan []byte, 64)
	if b.closed.Load() {
		close(ch)
		return ch
	}

	select {
	case b.subscribeCh <- ch:
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
	case b.countReqCh <- resp:
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

// Publish sends an event to all connected clients.
func (b *Broker) Publish(event Event) {
	if b.closed.Load() {
		return
	}
	select {
	case b.publishCh <- event:
	case <-b.stopped:
	}
}

// NoteSaved announces a created or updated note.
func (b *Broker) NoteSaved(id string) {
	b.Publish(Event{Type: EventNoteSaved, Data: NoteData{ID: id}})
}

// NoteDeleted announces a removed note.
func (b *Broker) NoteDeleted(id string) {
	b.Publish(Event{Type: EventNoteDeleted, Data: NoteData{ID: id}})
}

// IndexRebuilt announces a new Graph Index, subject to the throttle.
func (b *Broker) IndexRebuilt(nodes, edges int) {
	if b.closed.Load() {
		return
	}
	select {
	case b.rebuildCh <- RebuildData{Nodes: nodes, Edges: edges}:
	case <-b.stopped:
	}
}

// ServeHTTP is the SSE endpoint handler (GET /api/events).
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	ticker := time.NewTicker(keepAlive)
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
