package sse

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/listenupapp/readup/internal/id"
	"github.com/listenupapp/readup/internal/metrics"
)

const (
	queueSize         = 256
	clientBufferSize  = 64
	replaySize        = 128
	heartbeatInterval = 30 * time.Second
)

// Client is one open event stream.
type Client struct {
	ConnectedAt time.Time
	EventChan   chan Event
	Done        chan struct{}
	ID          string
	// Topics limits delivery to event families ("state", "streak", ...).
	// Empty receives everything.
	Topics []string
}

func (c *Client) wants(t EventType) bool {
	if len(c.Topics) == 0 || t == EventHeartbeat {
		return true
	}
	for _, topic := range c.Topics {
		if string(t) == topic || strings.HasPrefix(string(t), topic+".") {
			return true
		}
	}
	return false
}

// offer hands the event to the client without blocking.
func (c *Client) offer(e Event) bool {
	select {
	case c.EventChan <- e:
		return true
	default:
		return false
	}
}

func (c *Client) close() {
	close(c.Done)
	close(c.EventChan)
}

// Manager fans state changes out to stream clients. Every non-heartbeat
// event gets the next sequence number and is kept in a short replay buffer
// so a reconnecting UI can pick up what it missed.
type Manager struct {
	logger *slog.Logger
	queue  chan Event
	loop   sync.WaitGroup
	// startOnce guards Start; stopped closes when the loop started by Start
	// returns.
	startOnce sync.Once
	stopped   chan struct{}

	mu      sync.RWMutex
	clients map[string]*Client
	seq     uint64
	replay  []Event

	// closedMu guards closed and the queue close against concurrent Emit.
	closedMu sync.RWMutex
	closed   bool
}

// NewManager creates a Manager. Start must run for queued events to flow.
func NewManager(logger *slog.Logger) *Manager {
	return &Manager{
		logger:  logger,
		queue:   make(chan Event, queueSize),
		stopped: make(chan struct{}),
		clients: make(map[string]*Client),
		replay:  make([]Event, 0, replaySize),
	}
}

// Start launches the loop that pumps queued events to clients until ctx
// ends or Shutdown closes the queue. It returns immediately; the loop is
// registered before it is launched, so a following Shutdown waits for it.
// Later calls are no-ops.
func (m *Manager) Start(ctx context.Context) {
	m.startOnce.Do(func() {
		m.loop.Add(1)
		go m.run(ctx)
	})
}

func (m *Manager) run(ctx context.Context) {
	defer m.loop.Done()
	defer close(m.stopped)

	tick := time.NewTicker(heartbeatInterval)
	defer tick.Stop()

	m.logger.Info("event stream started")
	for {
		select {
		case e, ok := <-m.queue:
			if !ok {
				return
			}
			m.publish(e)
		case <-tick.C:
			m.publish(NewHeartbeatEvent())
		case <-ctx.Done():
			m.logger.Info("event stream stopped")
			m.dropAll()
			return
		}
	}
}

// Shutdown refuses further events, flushes what is queued and closes every
// client. Calling it twice is a no-op.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.closedMu.Lock()
	if m.closed {
		m.closedMu.Unlock()
		return nil
	}
	m.closed = true
	close(m.queue)
	m.closedMu.Unlock()

	flushed := make(chan struct{})
	go func() {
		defer close(flushed)
		for e := range m.queue {
			m.publish(e)
		}
	}()

	select {
	case <-flushed:
	case <-ctx.Done():
		m.logger.Warn("event stream flush timed out")
	}

	m.loop.Wait()
	m.dropAll()
	return nil
}

// Emit queues an event. Values that are not an Event are ignored; a full
// queue drops the event.
func (m *Manager) Emit(event any) {
	e, ok := event.(Event)
	if !ok {
		m.logger.Error("ignoring non-event value on stream")
		return
	}

	m.closedMu.RLock()
	defer m.closedMu.RUnlock()
	if m.closed {
		return
	}

	select {
	case m.queue <- e:
	default:
		metrics.StreamDropped.Inc()
		m.logger.Error("event queue full", slog.String("event_type", string(e.Type)))
	}
}

func (m *Manager) publish(e Event) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if e.Type != EventHeartbeat {
		m.seq++
		e.Seq = m.seq
		if len(m.replay) == replaySize {
			copy(m.replay, m.replay[1:])
			m.replay = m.replay[:replaySize-1]
		}
		m.replay = append(m.replay, e)
	}

	var sent, dropped int
	for _, c := range m.clients {
		if !c.wants(e.Type) {
			continue
		}
		if c.offer(e) {
			sent++
			continue
		}
		dropped++
		metrics.StreamDropped.Inc()
		m.logger.Warn("client too slow, event dropped",
			slog.String("client_id", c.ID),
			slog.String("event_type", string(e.Type)))
	}

	if e.Type != EventHeartbeat {
		m.logger.Debug("event published",
			slog.String("event_type", string(e.Type)),
			slog.Uint64("seq", e.Seq),
			slog.Int("sent", sent),
			slog.Int("dropped", dropped))
	}
}

// Connect opens a live stream with no replay.
func (m *Manager) Connect(topics ...string) (*Client, error) {
	return m.ConnectFrom(0, topics...)
}

// ConnectFrom opens a stream and first replays buffered events with a
// sequence number above after. Zero skips replay. Registration and replay
// happen under one lock so nothing published in between is lost.
func (m *Manager) ConnectFrom(after uint64, topics ...string) (*Client, error) {
	clientID, err := id.Generate(id.PrefixClient)
	if err != nil {
		return nil, err
	}
	c := &Client{
		ID:          clientID,
		Topics:      topics,
		EventChan:   make(chan Event, clientBufferSize),
		Done:        make(chan struct{}),
		ConnectedAt: time.Now(),
	}

	m.mu.Lock()
	replayed := 0
	if after > 0 {
		for _, e := range m.replay {
			if e.Seq > after && c.wants(e.Type) && c.offer(e) {
				replayed++
			}
		}
	}
	m.clients[c.ID] = c
	total := len(m.clients)
	m.mu.Unlock()

	metrics.StreamClients.Set(float64(total))
	m.logger.Info("stream client connected",
		slog.String("client_id", c.ID),
		slog.Any("topics", topics),
		slog.Int("replayed", replayed),
		slog.Int("clients", total))
	return c, nil
}

// Disconnect closes and forgets a client. Unknown IDs are ignored.
func (m *Manager) Disconnect(clientID string) {
	m.mu.Lock()
	c, ok := m.clients[clientID]
	if ok {
		delete(m.clients, clientID)
	}
	total := len(m.clients)
	m.mu.Unlock()
	if !ok {
		return
	}

	c.close()
	metrics.StreamClients.Set(float64(total))
	m.logger.Info("stream client disconnected",
		slog.String("client_id", clientID),
		slog.Duration("connected_for", time.Since(c.ConnectedAt)),
		slog.Int("clients", total))
}

// ClientCount returns the number of open streams.
func (m *Manager) ClientCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.clients)
}

// LastSeq returns the sequence number of the newest published event.
func (m *Manager) LastSeq() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.seq
}

func (m *Manager) dropAll() {
	m.mu.Lock()
	clients := m.clients
	m.clients = make(map[string]*Client)
	m.mu.Unlock()

	for _, c := range clients {
		c.close()
	}
	metrics.StreamClients.Set(0)
}

// NoopEmitter drops every event. Used when no UI is attached and in tests.
type NoopEmitter struct{}

// Emit implements the emitter contract as a no-op.
func (NoopEmitter) Emit(_ any) {}
