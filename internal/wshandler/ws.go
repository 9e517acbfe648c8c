package wshandler

import (
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/gofiber/contrib/websocket"

	"github.com/kdudkov/rigs/internal/events"
)

// QueueSize is the number of events a client may lag behind before losing
// them.
const QueueSize = 128

// JSONWsHandler streams events to one websocket client. Slow clients lose
// events instead of blocking publishers.
type JSONWsHandler struct {
	log    *slog.Logger
	name   string
	ws     *websocket.Conn
	ch     chan *events.Event
	types  map[string]bool
	active int32
}

// NewHandler subscribes the client to the given event types, or to all of them
// when none are given.
func NewHandler(log *slog.Logger, name string, ws *websocket.Conn, types ...string) *JSONWsHandler {
	h := &JSONWsHandler{
		log:    log.With("client", name),
		name:   name,
		ws:     ws,
		ch:     make(chan *events.Event, QueueSize),
		active: 1,
	}

	if len(types) > 0 {
		h.types = make(map[string]bool, len(types))
		for _, t := range types {
			h.types[t] = true
		}
	}

	return h
}

func (w *JSONWsHandler) Name() string {
	return w.name
}

func (w *JSONWsHandler) IsActive() bool {
	return w != nil && atomic.LoadInt32(&w.active) == 1
}

func (w *JSONWsHandler) stop() {
	if atomic.CompareAndSwapInt32(&w.active, 1, 0) {
		close(w.ch)
		w.ws.Close()
	}
}

func (w *JSONWsHandler) writer() {
	for e := range w.ch {
		if !w.IsActive() {
			return
		}

		if e == nil {
			continue
		}

		if err := w.ws.WriteJSON(e); err != nil {
			w.log.Debug("write error", slog.Any("error", err))
			return
		}
	}
}

func (w *JSONWsHandler) reader() {
	defer w.stop()

	for {
		if _, _, err := w.ws.ReadMessage(); err != nil {
			w.log.Debug("read finished", slog.Any("error", err))
			return
		}
	}
}

// SendEvent queues e for the client. It returns false once the client is
// gone, which unsubscribes it from the bus.
func (w *JSONWsHandler) SendEvent(e *events.Event) (ok bool) {
	if w == nil || !w.IsActive() {
		return false
	}

	if w.types != nil && !w.types[e.Type] {
		return true
	}

	// channel may be closed by stop between the check and the send
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()

	select {
	case w.ch <- e:
	default:
	}

	return true
}

func (w *JSONWsHandler) closehandler(code int, text string) error {
	w.log.Info(fmt.Sprintf("closed with code %d, msg %s", code, text))
	w.stop()

	return nil
}

func (w *JSONWsHandler) Listen() {
	w.log.Debug("ws start")
	w.ws.SetCloseHandler(w.closehandler)

	go w.writer()
	w.reader()
	w.log.Debug("ws stop")
}
