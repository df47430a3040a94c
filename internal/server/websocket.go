package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/zeusync/posebridge/internal/core/observability/log"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(*http.Request) bool { return true },
}

type subscriber struct {
	id     string
	conn   *websocket.Conn
	closed chan struct{}
}

// Broadcaster pushes the character list to every stream subscriber at a
// fixed cadence. Each subscriber runs its own send loop.
type Broadcaster struct {
	source       EntitySource
	interval     time.Duration
	writeTimeout time.Duration

	mu          sync.Mutex
	subscribers map[*websocket.Conn]*subscriber

	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	logger log.Log
}

func NewBroadcaster(source EntitySource, interval, writeTimeout time.Duration, logger log.Log) *Broadcaster {
	return &Broadcaster{
		source:       source,
		interval:     interval,
		writeTimeout: writeTimeout,
		subscribers:  make(map[*websocket.Conn]*subscriber),
		stop:         make(chan struct{}),
		logger:       logger.With(log.String("component", "broadcaster")),
	}
}

// Count returns the number of registered subscribers.
func (b *Broadcaster) Count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subscribers)
}

func (b *Broadcaster) stopped() bool {
	select {
	case <-b.stop:
		return true
	default:
		return false
	}
}

func (b *Broadcaster) add(conn *websocket.Conn) (*subscriber, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.stopped() {
		return nil, false
	}
	if _, exists := b.subscribers[conn]; exists {
		return nil, false
	}
	sub := &subscriber{id: uuid.NewString(), conn: conn, closed: make(chan struct{})}
	b.subscribers[conn] = sub
	b.wg.Add(1)
	return sub, true
}

func (b *Broadcaster) remove(sub *subscriber) {
	b.mu.Lock()
	delete(b.subscribers, sub.conn)
	b.mu.Unlock()
	b.wg.Done()
}

// Serve streams to conn until a send fails, the peer goes away or the
// broadcaster is closed. It blocks and closes conn before returning.
func (b *Broadcaster) Serve(conn *websocket.Conn) {
	sub, ok := b.add(conn)
	if !ok {
		_ = conn.Close()
		return
	}
	defer b.remove(sub)
	defer conn.Close()

	logger := b.logger.With(log.String("subscriber_id", sub.id), log.String("remote_addr", conn.RemoteAddr().String()))
	logger.Debug("Subscriber registered")

	go b.readPump(sub)

	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	for {
		if err := b.send(sub); err != nil {
			logger.Debug("Subscriber send failed", log.Error(err))
			return
		}

		select {
		case <-ticker.C:
		case <-sub.closed:
			logger.Debug("Subscriber disconnected")
			return
		case <-b.stop:
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server stopping"),
				time.Now().Add(b.writeTimeout))
			return
		}
	}
}

func (b *Broadcaster) send(sub *subscriber) error {
	payload, err := json.Marshal(characterList(b.source.List()))
	if err != nil {
		return err
	}
	if err := sub.conn.SetWriteDeadline(time.Now().Add(b.writeTimeout)); err != nil {
		return err
	}
	return sub.conn.WriteMessage(websocket.TextMessage, payload)
}

// readPump drains inbound frames so close frames and pings are processed.
func (b *Broadcaster) readPump(sub *subscriber) {
	defer close(sub.closed)
	for {
		if _, _, err := sub.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// Close ends every stream and waits for the send loops to exit.
func (b *Broadcaster) Close() {
	b.stopOnce.Do(func() {
		b.mu.Lock()
		close(b.stop)
		b.mu.Unlock()
	})
	b.wg.Wait()
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	if s.broadcaster.stopped() {
		s.writeError(w, r, newError(KindBackendUnavailable, nil, "stream closed"))
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("Stream upgrade failed", log.Error(err))
		return
	}
	s.broadcaster.Serve(conn)
}
