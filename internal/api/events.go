package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/nikolayk812/repairshop-cart/internal/cart"
	"github.com/nikolayk812/repairshop-cart/internal/domain"
	"golang.org/x/text/language"
)

const (
	eventBuffer = 32
	writeWait   = 10 * time.Second
	pingPeriod  = 30 * time.Second
)

type EventMessage struct {
	Seq       uint64          `json:"seq"`
	Type      cart.EventType  `json:"type"`
	Kind      domain.Kind     `json:"kind"`
	ItemID    domain.ItemID   `json:"id,omitempty"`
	Name      string          `json:"name,omitempty"`
	Count     int             `json:"count"`
	Total     json.RawMessage `json:"total"`
	TotalText string          `json:"totalText"`
	Notice    string          `json:"notice,omitempty"`
	SaveError string          `json:"saveError,omitempty"`
}

func eventMessage(ev cart.Event, locale language.Tag) EventMessage {
	msg := EventMessage{
		Seq:       ev.Seq,
		Type:      ev.Type,
		Kind:      ev.Kind,
		ItemID:    ev.ItemID,
		Name:      ev.Name,
		Count:     ev.Count,
		Total:     json.RawMessage(ev.Total.Amount.String()),
		TotalText: ev.Total.Format(locale),
		Notice:    ev.Message(),
	}
	if ev.SaveErr != nil {
		msg.SaveError = ev.SaveErr.Error()
	}
	return msg
}

// eventOrder lets through only events newer than the last one let through.
type eventOrder struct {
	last uint64
}

func (o *eventOrder) fresh(ev cart.Event) bool {
	if ev.Seq <= o.last {
		return false
	}
	o.last = ev.Seq
	return true
}

// events streams cart changes of one session to a browser over a WebSocket.
// Slow readers lose events rather than stalling the cart.
func (s *Server) events(w http.ResponseWriter, r *http.Request) {
	store, release, ok := s.store(w, r)
	if !ok {
		return
	}
	defer release()

	ch := make(chan cart.Event, eventBuffer)
	unsubscribe := store.Subscribe(func(ev cart.Event) {
		select {
		case ch <- ev:
		default:
			s.logger.Warn("dropping cart event for slow listener", slog.String("type", string(ev.Type)))
		}
	})
	defer unsubscribe()

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error
		s.logger.WarnContext(r.Context(), "websocket upgrade failed", slog.Any("error", err))
		return
	}
	defer conn.Close()

	// the client never sends anything meaningful; reading detects the close
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	var order eventOrder

	for {
		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case ev := <-ch:
			if !order.fresh(ev) {
				continue
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(eventMessage(ev, store.Locale())); err != nil {
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}
