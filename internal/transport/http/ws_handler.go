package http

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/micahela/debug-the-graduate/internal/domain"
	"github.com/micahela/debug-the-graduate/internal/game"
	"github.com/micahela/debug-the-graduate/internal/store"
)

// BankRepository resolves the question bank a connection plays against.
type BankRepository interface {
	GetBank(ctx context.Context, bankID string) (domain.Bank, error)
}

// WSHandler upgrades HTTP requests to websockets and wires each connection
// to its role controller: /ws/host runs a HostController, /ws/play a
// PlayerController. The service holds no game state of its own; everything
// flows through the shared record store.
type WSHandler struct {
	store    store.Store
	banks    BankRepository
	bankID   string
	upgrader websocket.Upgrader
}

func NewWSHandler(st store.Store, banks BankRepository, bankID string) *WSHandler {
	return &WSHandler{
		store:  st,
		banks:  banks,
		bankID: bankID,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

const (
	// eventCreated carries the fresh game row to a new host connection.
	eventCreated game.EventType = "created"
	// eventJoined carries the player identity and game row after a join.
	eventJoined game.EventType = "joined"
)

type createdPayload struct {
	Game domain.Game `json:"game"`
}

type joinedPayload struct {
	Player domain.Player `json:"player"`
	Game   domain.Game   `json:"game"`
}

// ServeHost opens the host screen: it creates a game immediately and
// accepts pacing commands for it.
func (h *WSHandler) ServeHost(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	bank, err := h.banks.GetBank(ctx, h.bankID)
	if err != nil {
		writeError(conn, err)
		return
	}

	hc := game.NewHost(h.store, bank)
	g, err := hc.CreateGame(ctx)
	if err != nil {
		writeError(conn, err)
		return
	}

	send, writerDone := startWriter(conn)
	pumpDone := make(chan struct{})
	defer func() {
		cancel()
		<-pumpDone
		close(send)
		<-writerDone
	}()

	send <- game.Event{Type: eventCreated, Payload: createdPayload{Game: g}}

	go func() {
		if err := hc.Run(ctx); err != nil && ctx.Err() == nil {
			log.Printf("host loop for %s: %v", g.Code, err)
		}
	}()
	go func() {
		defer close(pumpDone)
		pumpEvents(ctx, hc.Events(), send)
	}()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			return
		}
		switch inbound.Type {
		case "start":
			hc.Do(game.ActionStart)
		case "reveal":
			hc.Do(game.ActionReveal)
		case "next":
			hc.Do(game.ActionAdvance)
		case "skip":
			hc.Do(game.ActionSkip)
		case "cancel":
			hc.Do(game.ActionCancel)
		default:
			trySend(ctx, send, errorEvent("unsupported message type"))
		}
	}
}

// ServePlay opens the player screen: ?code= and ?name= join an existing
// game, after which the only inbound message is the answer submit.
func (h *WSHandler) ServePlay(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	name := r.URL.Query().Get("name")
	if code == "" || name == "" {
		http.Error(w, "missing code or name", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	bank, err := h.banks.GetBank(ctx, h.bankID)
	if err != nil {
		writeError(conn, err)
		return
	}

	pc, err := game.Join(ctx, h.store, bank, code, name)
	if err != nil {
		// Nonexistent code or a finished room: report and let the client
		// route back to the join screen.
		writeError(conn, err)
		return
	}

	send, writerDone := startWriter(conn)
	pumpDone := make(chan struct{})
	defer func() {
		cancel()
		<-pumpDone
		close(send)
		<-writerDone
	}()

	send <- game.Event{Type: eventJoined, Payload: joinedPayload{Player: pc.Player(), Game: pc.Game()}}

	go func() {
		if err := pc.Run(ctx); err != nil && ctx.Err() == nil {
			log.Printf("player loop for %s: %v", pc.Player().ID, err)
		}
	}()
	go func() {
		defer close(pumpDone)
		pumpEvents(ctx, pc.Events(), send)
	}()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			return
		}
		switch inbound.Type {
		case "answer":
			var sub game.Submission
			if err := json.Unmarshal(inbound.Payload, &sub); err != nil {
				trySend(ctx, send, errorEvent("invalid answer payload"))
				continue
			}
			pc.Submit(sub)
		default:
			trySend(ctx, send, errorEvent("unsupported message type"))
		}
	}
}

// startWriter serializes all writes onto one goroutine; gorilla connections
// do not allow concurrent writers.
func startWriter(conn *websocket.Conn) (chan game.Event, <-chan struct{}) {
	send := make(chan game.Event, 16)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				// Drain remaining events so senders never block.
				for range send {
				}
				return
			}
		}
	}()
	return send, done
}

func pumpEvents(ctx context.Context, events <-chan game.Event, send chan<- game.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-events:
			select {
			case send <- ev:
			case <-ctx.Done():
				return
			}
		}
	}
}

func trySend(ctx context.Context, send chan<- game.Event, ev game.Event) {
	select {
	case send <- ev:
	case <-ctx.Done():
	}
}

func errorEvent(msg string) game.Event {
	return game.Event{Type: game.EventError, Payload: game.ErrorPayload{Message: msg}}
}

func writeError(conn *websocket.Conn, err error) {
	_ = conn.WriteJSON(errorEvent(err.Error()))
}
