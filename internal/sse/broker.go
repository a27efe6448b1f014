// Package sse streams watcher index mutations to HTTP clients as
// Server-Sent Events.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/starford/zettel/internal/index"
)

const (
	// SummaryEvent is broadcast after note events, at most once per interval.
	SummaryEvent = "index.updated"

	clientBuffer = 64
	keepAlive    = 15 * time.Second
)

// Summary is the payload of SummaryEvent: the number of note events since
// the previous summary.
type Summary struct {
	Changes int `json:"changes"`
}

// Broker fans index events out to subscribed clients.
//
// One goroutine owns the client set, the frame sequence and the summary
// state; public methods talk to it over channels.
type Broker struct {
	interval time.Duration

	subscribeCh   chan chan []byte
	unsubscribeCh chan chan []byte
	eventCh       chan index.Event
	countReqCh    chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker starts a broker. Summaries are sent on the first note event of a
// quiet period and then at most once per interval while events keep coming.
func NewBroker(interval time.Duration) *Broker {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	b := &Broker{
		interval:      interval,
		subscribeCh:   make(chan chan []byte),
		unsubscribeCh: make(chan chan []byte),
		eventCh:       make(chan index.Event, 256),
		countReqCh:    make(chan chan int),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}
	go b.run()
	return b
}

// frame encodes one SSE message.
func frame(id uint64, event string, data any) ([]byte, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return fmt.Appendf(nil, "id: %d\nevent: %s\ndata: %s\n\n", id, event, payload), nil
}

func (b *Broker) run() {
	defer close(b.stopped)

	var (
		clients  = make(map[chan []byte]struct{})
		seq      uint64
		changes  int // note events not yet summarized
		lastSent time.Time
		flush    *time.Timer
		flushCh  <-chan time.Time
	)

	send := func(event string, data any) {
		seq++
		msg, err := frame(seq, event, data)
		if err != nil {
			return
		}
		for ch := range clients {
			select {
			case ch <- msg:
			default:
				// slow client, drop
			}
		}
	}
	summarize := func() {
		send(SummaryEvent, Summary{Changes: changes})
		changes = 0
		lastSent = time.Now()
	}

	for {
		select {
		case <-b.stopCh:
			if flush != nil {
				flush.Stop()
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

		case ev := <-b.eventCh:
			switch ev.Kind {
			case index.EventIndexed, index.EventRemoved, index.EventRenamed:
			default:
				continue
			}
			send("note."+string(ev.Kind), ev)
			changes++

			if wait := b.interval - time.Since(lastSent); wait <= 0 {
				summarize()
			} else if flushCh == nil {
				flush = time.NewTimer(wait)
				flushCh = flush.C
			}

		case <-flushCh:
			flushCh = nil
			if changes > 0 {
				summarize()
			}

		case resp := <-b.countReqCh:
			resp <- len(clients)
		}
	}
}

// Close stops the broker and closes every client channel. It is safe to call
// more than once.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe registers a client. The returned channel is closed by
// Unsubscribe or Close.
func (b *Broker) Subscribe() chan []byte {
	ch := make(chan []byte, clientBuffer)
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

// PublishIndexEvent broadcasts a watcher mutation as note.<kind>. It has the
// index.EventCallback signature. Unknown kinds are dropped.
func (b *Broker) PublishIndexEvent(ev index.Event) {
	if b.closed.Load() {
		return
	}
	select {
	case b.eventCh <- ev:
	case <-b.stopped:
	}
}

// ServeHTTP streams events to one client (GET /api/events) until the request
// is cancelled or the broker closes. Idle streams get a comment line every
// keepAlive so proxies do not drop them.
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	ticker := time.NewTicker(keepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			_, _ = w.Write([]byte(": keep-alive\n\n"))
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
