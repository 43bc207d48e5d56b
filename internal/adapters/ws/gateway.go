// Package ws is the realtime gateway: one websocket per user, JSON
// envelopes in both directions. It implements the worker pool's Sender so
// queued notices reach live connections.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/emberlink/ember/internal/domain/match"
	"github.com/emberlink/ember/internal/domain/model"
	"github.com/emberlink/ember/pkg/logger"
	"github.com/emberlink/ember/pkg/metrics"
)

// Default connection configuration constants.
const (
	defaultWriteTimeout = 10 * time.Second
	defaultPongTimeout  = 60 * time.Second
	defaultPingInterval = 25 * time.Second
	defaultSendBuffer   = 64
	maxMessageBytes     = 4 * 1024
)

// Engine is the matching surface the gateway drives.
type Engine interface {
	Enqueue(ctx context.Context, userID string, answers []model.Answer, minCommon int) error
	Dequeue(ctx context.Context, userID string) bool
	Leave(ctx context.Context, userID, matchID string) error
	RequestCards(ctx context.Context, userID, matchID string) (*match.DeliverPayload, error)
	SubmitAnswer(ctx context.Context, ans model.CardAnswer) error
	Disconnect(ctx context.Context, userID string)
	Reconnect(ctx context.Context, userID string) bool
}

// Gateway upgrades connections and routes protocol events to the engine.
type Gateway struct {
	engine Engine
	log    logger.Logger

	upgrader     websocket.Upgrader
	writeTimeout time.Duration
	pongTimeout  time.Duration
	pingInterval time.Duration
	sendBuffer   int

	mu    sync.RWMutex
	conns map[string]*conn
}

// New creates a Gateway with configuration options.
func New(engine Engine, opts ...Option) *Gateway {
	g := &Gateway{
		engine:       engine,
		log:          logger.Named("gateway"),
		writeTimeout: defaultWriteTimeout,
		pongTimeout:  defaultPongTimeout,
		pingInterval: defaultPingInterval,
		sendBuffer:   defaultSendBuffer,
		conns:        make(map[string]*conn),
	}
	g.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     func(*http.Request) bool { return true },
	}

	for _, opt := range opts {
		opt(g)
	}
	return g
}

type conn struct {
	userID   string
	ws       *websocket.Conn
	outbound chan []byte
	closed   chan struct{}
	once     sync.Once
}

func (c *conn) shut() {
	c.once.Do(func() { close(c.closed) })
}

// ServeHTTP upgrades the request. The user identifies with the userId
// query parameter; a second connection for the same user replaces the
// first.
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		http.Error(w, "userId required", http.StatusBadRequest)
		return
	}

	socket, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.log.Warn(r.Context(), "upgrade failed", logger.Error(err))
		return
	}

	c := &conn{
		userID:   userID,
		ws:       socket,
		outbound: make(chan []byte, g.sendBuffer),
		closed:   make(chan struct{}),
	}
	g.register(c)
	metrics.GatewayConnectionOpened()

	ctx := context.Background()
	resumed := g.engine.Reconnect(ctx, userID)
	g.log.Info(ctx, "connection opened",
		logger.String("user_id", userID),
		logger.Bool("resumed_session", resumed),
	)

	go g.writePump(c)
	g.readPump(ctx, c)
}

// Send implements the worker pool's Sender. It reports false when the user
// holds no live connection so the notifier fallback can take over.
func (g *Gateway) Send(_ context.Context, n model.Notice) bool {
	g.mu.RLock()
	c, ok := g.conns[n.UserID]
	g.mu.RUnlock()
	if !ok {
		return false
	}

	raw, err := json.Marshal(outEnvelope{Event: n.Event, Data: n.Payload})
	if err != nil {
		return false
	}

	select {
	case c.outbound <- raw:
		return true
	case <-c.closed:
		return false
	default:
		// A wedged client must not block deliveries for anyone else.
		metrics.RecordErrorByComponent("gateway", "send_buffer_full")
		return false
	}
}

// Connections returns the number of live connections.
func (g *Gateway) Connections() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.conns)
}

func (g *Gateway) register(c *conn) {
	g.mu.Lock()
	old, ok := g.conns[c.userID]
	g.conns[c.userID] = c
	g.mu.Unlock()

	if ok {
		old.shut()
		_ = old.ws.Close()
	}
}

// unregister drops the connection and tells the engine, unless a newer
// connection already replaced this one.
func (g *Gateway) unregister(ctx context.Context, c *conn) {
	g.mu.Lock()
	current, ok := g.conns[c.userID]
	replaced := ok && current != c
	if !replaced {
		delete(g.conns, c.userID)
	}
	g.mu.Unlock()

	c.shut()
	_ = c.ws.Close()
	metrics.GatewayConnectionClosed()

	if !replaced {
		g.engine.Disconnect(ctx, c.userID)
		g.log.Info(ctx, "connection closed", logger.String("user_id", c.userID))
	}
}

func (g *Gateway) readPump(ctx context.Context, c *conn) {
	defer g.unregister(ctx, c)

	c.ws.SetReadLimit(maxMessageBytes)
	_ = c.ws.SetReadDeadline(time.Now().Add(g.pongTimeout))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(g.pongTimeout))
	})

	for {
		_, raw, err := c.ws.ReadMessage()
		if err != nil {
			return
		}
		metrics.RecordGatewayMessageIn()

		var env Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			g.reply(c, model.EventMatchError, &errorPayload{
				Code: model.CodeInvalidSubmission, Message: "malformed envelope",
			})
			continue
		}
		g.dispatch(ctx, c, env)
	}
}

func (g *Gateway) writePump(c *conn) {
	ticker := time.NewTicker(g.pingInterval)
	defer ticker.Stop()
	defer c.ws.Close()

	for {
		select {
		case raw := <-c.outbound:
			_ = c.ws.SetWriteDeadline(time.Now().Add(g.writeTimeout))
			if err := c.ws.WriteMessage(websocket.TextMessage, raw); err != nil {
				return
			}
			metrics.RecordGatewayMessageOut()
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(g.writeTimeout))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.closed:
			return
		}
	}
}

func (g *Gateway) dispatch(ctx context.Context, c *conn, env Envelope) {
	switch env.Event {
	case model.EventMatchSubmitAnswers:
		var p submitPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			g.reply(c, model.EventMatchError, &errorPayload{
				Code: model.CodeInvalidSubmission, Message: "malformed payload",
			})
			return
		}
		g.handleSubmit(ctx, c, p)

	case model.EventMatchLeave:
		var p leavePayload
		_ = json.Unmarshal(env.Data, &p)
		g.engine.Dequeue(ctx, c.userID)
		// Without a matchId the engine resolves the user's live session.
		_ = g.engine.Leave(ctx, c.userID, p.MatchID)

	case model.EventCardsRequest:
		var p cardsRequestPayload
		if err := json.Unmarshal(env.Data, &p); err != nil || p.MatchID == "" {
			g.reply(c, model.EventCardsError, &errorPayload{
				Code: model.CodeSessionNotFound, Message: "matchId required",
			})
			return
		}
		if _, err := g.engine.RequestCards(ctx, c.userID, p.MatchID); err != nil {
			g.reply(c, model.EventCardsError, &errorPayload{
				MatchID: p.MatchID,
				Code:    model.CodeSessionNotFound,
				Message: err.Error(),
			})
		}

	case model.EventCardAnswer:
		var p cardAnswerPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			g.reply(c, model.EventCardsError, &errorPayload{
				Code: model.CodeInvalidCard, Message: "malformed payload",
			})
			return
		}
		err := g.engine.SubmitAnswer(ctx, model.CardAnswer{
			MatchID:     p.MatchID,
			UserID:      c.userID,
			CardID:      p.CardID,
			OptionIndex: p.SelectedOptionIndex,
			AnsweredAt:  time.Now(),
		})
		if err != nil {
			g.reply(c, model.EventCardsError, &errorPayload{
				MatchID: p.MatchID,
				Code:    codeFor(err),
				Message: err.Error(),
			})
		}

	default:
		g.reply(c, model.EventMatchError, &errorPayload{
			Code: model.CodeInvalidSubmission, Message: "unknown event " + env.Event,
		})
	}
}

func (g *Gateway) handleSubmit(ctx context.Context, c *conn, p submitPayload) {
	err := g.engine.Enqueue(ctx, c.userID, p.Answers, p.MinimumCommonAnswers)
	if err == nil {
		return
	}

	switch {
	case errors.Is(err, match.ErrUnverified):
		g.reply(c, model.EventMatchBlocked, &blockedPayload{
			Reason: model.CodeUnverified, Message: "account not verified",
		})
	case errors.Is(err, match.ErrDailyLimit):
		g.reply(c, model.EventMatchBlocked, &blockedPayload{
			Reason: model.CodeDailyLimit, Message: "daily match limit reached",
		})
	default:
		g.reply(c, model.EventMatchError, &errorPayload{
			Code: codeFor(err), Message: err.Error(),
		})
	}
}

// reply sends a synchronous event on the requesting connection, bypassing
// the notice queue.
func (g *Gateway) reply(c *conn, event string, payload interface{}) {
	raw, err := json.Marshal(outEnvelope{Event: event, Data: payload})
	if err != nil {
		return
	}
	select {
	case c.outbound <- raw:
		metrics.RecordGatewayMessageOut()
	case <-c.closed:
	default:
	}
}

func codeFor(err error) model.ErrorCode {
	switch {
	case errors.Is(err, match.ErrInvalidSubmission):
		return model.CodeInvalidSubmission
	case errors.Is(err, match.ErrAlreadyQueued):
		return model.CodeAlreadyQueued
	case errors.Is(err, match.ErrUnverified):
		return model.CodeUnverified
	case errors.Is(err, match.ErrDailyLimit):
		return model.CodeDailyLimit
	case errors.Is(err, match.ErrInvalidCard):
		return model.CodeInvalidCard
	case errors.Is(err, match.ErrSessionNotFound):
		return model.CodeSessionNotFound
	default:
		return model.CodeInvalidSubmission
	}
}
