// Package gateway orchestrates the chat core: it verifies the handshake
// token, tracks local connections, keeps shared presence fresh, persists
// messages before broadcasting them, and renders bus events to the local
// sockets. Each server instance runs one Gateway; instances coordinate
// solely through the presence store and the broadcast bus.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/parley/chat-server/internal/auth"
	"github.com/parley/chat-server/internal/ban"
	"github.com/parley/chat-server/internal/bus"
	"github.com/parley/chat-server/internal/message"
	"github.com/parley/chat-server/internal/metrics"
	"github.com/parley/chat-server/internal/moderation"
	"github.com/parley/chat-server/internal/presence"
	"github.com/parley/chat-server/internal/protocol"
	"github.com/parley/chat-server/internal/ratelimit"
)

// opTimeout bounds every call into the shared stores so a slow Redis or
// Postgres never blocks a connection handler indefinitely.
const opTimeout = 3 * time.Second

// heartbeatDivisor sets the presence refresh interval relative to the TTL.
// With the default 1h TTL the refresh ticks every 30s, so a connection
// survives many missed refreshes before its entry expires.
const heartbeatDivisor = 120

// Bus event payloads. These are the JSON bodies that travel between
// instances; the wire frames sent to clients are rebuilt from them on the
// receiving side.
type messageEvent struct {
	Author    string `json:"author"`
	Text      string `json:"text"`
	CreatedAt int64  `json:"created_at"`
}

type rosterEvent struct {
	Names []string `json:"names"`
}

type systemEvent struct {
	Text string `json:"text"`
}

// Config holds gateway tuning parameters.
type Config struct {
	PresenceTTL time.Duration      // presence entry lifetime (default 1h)
	HistorySize int                // messages replayed to a newly connected client
	Filter      *moderation.Filter // optional content filter; nil disables screening
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		PresenceTTL: presence.DefaultTTL,
		HistorySize: 50,
	}
}

// Gateway wires the chat core together. The limiter and ban store are
// optional; nil disables the corresponding enforcement.
type Gateway struct {
	config   Config
	verifier auth.Verifier
	presence presence.Store
	bus      bus.Bus
	messages message.Store
	limiter  *ratelimit.Limiter
	bans     *ban.Store
	registry *Registry

	refreshEvery time.Duration
}

// New creates a Gateway. Call Start before accepting connections so bus
// events arriving during startup are not lost.
func New(config Config, verifier auth.Verifier, pres presence.Store, b bus.Bus, msgs message.Store, limiter *ratelimit.Limiter, bans *ban.Store) *Gateway {
	if config.PresenceTTL <= 0 {
		config.PresenceTTL = presence.DefaultTTL
	}
	if config.HistorySize <= 0 {
		config.HistorySize = DefaultConfig().HistorySize
	}

	refreshEvery := config.PresenceTTL / heartbeatDivisor
	if refreshEvery < time.Second {
		refreshEvery = time.Second
	}

	return &Gateway{
		config:       config,
		verifier:     verifier,
		presence:     pres,
		bus:          b,
		messages:     msgs,
		limiter:      limiter,
		bans:         bans,
		registry:     NewRegistry(),
		refreshEvery: refreshEvery,
	}
}

// Registry exposes the per-instance connection registry.
func (g *Gateway) Registry() *Registry {
	return g.registry
}

// Start subscribes the instance to the bus topics and begins rendering
// incoming events to local connections.
func (g *Gateway) Start() error {
	if err := g.bus.Subscribe(bus.TopicMessage, g.onBusMessage); err != nil {
		return fmt.Errorf("gateway: subscribe message: %w", err)
	}
	if err := g.bus.Subscribe(bus.TopicRoster, g.onBusRoster); err != nil {
		return fmt.Errorf("gateway: subscribe roster: %w", err)
	}
	if err := g.bus.Subscribe(bus.TopicSystem, g.onBusSystem); err != nil {
		return fmt.Errorf("gateway: subscribe system: %w", err)
	}
	return nil
}

// ErrBanned is returned by Connect when the authenticated user is banned.
var ErrBanned = errors.New("gateway: user is banned")

// ErrConnectRateLimited is returned by Connect when the user reconnects too
// frequently.
var ErrConnectRateLimited = errors.New("gateway: too many connection attempts")

// Connect runs the authentication and registration path for a new
// connection. On a bad token it returns auth.ErrInvalidToken, on a banned
// user ErrBanned, and on reconnect abuse ErrConnectRateLimited, all without
// having mutated any state. On success the
// connection is Active: registered locally, present in the shared store,
// announced to the room, and holding its presence-refresh loop.
func (g *Gateway) Connect(connID, token string, conn Sender) (*Client, error) {
	identity, err := g.verifier.Verify(token)
	if err != nil {
		metrics.AuthFailures.Inc()
		return nil, err
	}

	if g.bans != nil {
		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		banned, remaining, reason, err := g.bans.IsBanned(ctx, identity.UserID)
		cancel()
		// A ban-store error fails open, same as the rate limiter.
		if err == nil && banned {
			log.Printf("[gateway] banned user rejected conn=%s user=%s reason=%s remaining=%s",
				connID, identity.DisplayName, reason, remaining)
			metrics.AuthFailures.Inc()
			return nil, ErrBanned
		}
	}

	if g.limiter != nil {
		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		allowed, _ := g.limiter.Allow(ctx, identity.UserID, ratelimit.RuleConnect)
		cancel()
		if !allowed {
			log.Printf("[gateway] connect rate limited conn=%s user=%s", connID, identity.DisplayName)
			return nil, ErrConnectRateLimited
		}
	}

	c := &Client{
		ID:       connID,
		Identity: identity,
		conn:     conn,
		done:     make(chan struct{}),
	}

	g.registry.Add(c)
	metrics.ConnectionsTotal.Set(float64(g.registry.Len()))

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	if err := g.presence.Register(ctx, connID, identity.DisplayName, g.config.PresenceTTL); err != nil {
		// Transient store failure: the connection stays up. The next
		// successful refresh registers nothing, but the roster converges on
		// the next register/list cycle and the TTL bounds any staleness.
		log.Printf("[gateway] presence register conn=%s: %v", connID, err)
		metrics.PresenceOpFailures.WithLabelValues("register").Inc()
	}

	g.publishRoster()
	g.publishSystem(identity.DisplayName + " joined")
	g.sendWelcome(c)

	go g.refreshLoop(c)

	log.Printf("[gateway] connected conn=%s user=%s (local=%d)", connID, identity.DisplayName, g.registry.Len())
	return c, nil
}

// HandleMessage processes an inbound chat message from the connection.
// Empty messages are malformed no-ops; oversized text is truncated; text
// that trips the content filter is rejected with an error frame. The
// append to the message store must complete before the event is published,
// so no client ever renders a message that is not durably recorded.
func (g *Gateway) HandleMessage(connID, text string) {
	c := g.registry.Get(connID)
	if c == nil {
		return
	}

	text, ok := message.Normalize(text)
	if !ok {
		metrics.MessagesTotal.WithLabelValues("dropped").Inc()
		return
	}

	if g.config.Filter != nil {
		if result := g.config.Filter.Check(text); result.Blocked {
			log.Printf("[gateway] message blocked conn=%s reason=%s term=%q", connID, result.Reason, result.Term)
			metrics.MessagesTotal.WithLabelValues("dropped").Inc()
			g.sendError(c, "moderated", "message violates community guidelines")
			g.recordOffense(c, result.Reason)
			return
		}
	}

	if g.limiter != nil {
		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		allowed, _ := g.limiter.Allow(ctx, connID, ratelimit.RuleMessage)
		cancel()
		if !allowed {
			metrics.MessagesTotal.WithLabelValues("dropped").Inc()
			g.sendError(c, "rate_limited", "too many messages, slow down")
			return
		}
	}

	msg := message.Message{
		Author:    c.Identity.DisplayName,
		Text:      text,
		CreatedAt: time.Now().UTC(),
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	err := g.messages.Append(ctx, msg)
	cancel()
	if err != nil {
		// Persistence precedes visibility: an unrecorded message is never
		// broadcast.
		log.Printf("[gateway] message append conn=%s: %v", connID, err)
		metrics.MessagesTotal.WithLabelValues("dropped").Inc()
		g.sendError(c, "store_unavailable", "message could not be saved")
		return
	}
	metrics.MessagesTotal.WithLabelValues("persisted").Inc()

	data, _ := json.Marshal(messageEvent{
		Author:    msg.Author,
		Text:      msg.Text,
		CreatedAt: msg.CreatedAt.Unix(),
	})
	if err := g.bus.Publish(bus.TopicMessage, data); err != nil {
		log.Printf("[gateway] publish message conn=%s: %v", connID, err)
		metrics.BusPublishFailures.WithLabelValues(bus.TopicMessage).Inc()
	}
}

// recordOffense counts a content-filter hit against the user. Crossing the
// offense threshold bans the user; the ban takes effect on their next
// connect, the current connection is only warned.
func (g *Gateway) recordOffense(c *Client, reason string) {
	if g.bans == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	banned, duration, err := g.bans.RecordOffense(ctx, c.Identity.UserID, reason)
	if err != nil {
		log.Printf("[gateway] record offense conn=%s: %v", c.ID, err)
		return
	}
	if banned {
		log.Printf("[gateway] auto-ban user=%s duration=%s reason=%s", c.Identity.DisplayName, duration, reason)
		g.sendError(c, "banned", "repeated violations, you are temporarily banned")
	}
}

// Disconnect tears down the connection's state. It is safe to call from any
// path and any number of times: transport close, read error, and heartbeat
// eviction may all race here, and only the first call does work.
func (g *Gateway) Disconnect(connID string) {
	c := g.registry.Get(connID)
	if c == nil {
		return
	}
	if !c.beginTeardown() {
		return
	}

	close(c.done) // stops the refresh loop
	g.registry.Remove(connID)
	metrics.ConnectionsTotal.Set(float64(g.registry.Len()))

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	err := g.presence.Deregister(ctx, connID)
	cancel()
	if err != nil {
		// The entry lingers until its TTL runs out; the roster self-heals.
		log.Printf("[gateway] presence deregister conn=%s: %v", connID, err)
		metrics.PresenceOpFailures.WithLabelValues("deregister").Inc()
	}

	g.publishRoster()
	g.publishSystem(c.Identity.DisplayName + " left")

	log.Printf("[gateway] disconnected conn=%s user=%s (local=%d)", connID, c.Identity.DisplayName, g.registry.Len())
}

// refreshLoop keeps the connection's presence entry alive until teardown.
// The loop is scoped to the client's done channel; after teardown a pending
// tick can still fire, but a refresh for a deregistered entry is a no-op by
// the presence contract, so it cannot resurrect stale state.
func (g *Gateway) refreshLoop(c *Client) {
	ticker := time.NewTicker(g.refreshEvery)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
			err := g.presence.Refresh(ctx, c.ID, g.config.PresenceTTL)
			cancel()
			if err != nil {
				log.Printf("[gateway] presence refresh conn=%s: %v", c.ID, err)
				metrics.PresenceOpFailures.WithLabelValues("refresh").Inc()
			}
		}
	}
}

// Roster returns the current online roster from the presence store.
func (g *Gateway) Roster(ctx context.Context) ([]string, error) {
	return g.presence.ListDistinctNames(ctx)
}

// ---------------------------------------------------------------------------
// Outbound: publishing to the bus
// ---------------------------------------------------------------------------

func (g *Gateway) publishRoster() {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	names, err := g.presence.ListDistinctNames(ctx)
	cancel()
	if err != nil {
		log.Printf("[gateway] roster query: %v", err)
		metrics.PresenceOpFailures.WithLabelValues("list").Inc()
		return
	}

	data, _ := json.Marshal(rosterEvent{Names: names})
	if err := g.bus.Publish(bus.TopicRoster, data); err != nil {
		log.Printf("[gateway] publish roster: %v", err)
		metrics.BusPublishFailures.WithLabelValues(bus.TopicRoster).Inc()
	}
}

func (g *Gateway) publishSystem(text string) {
	data, _ := json.Marshal(systemEvent{Text: text})
	if err := g.bus.Publish(bus.TopicSystem, data); err != nil {
		log.Printf("[gateway] publish system: %v", err)
		metrics.BusPublishFailures.WithLabelValues(bus.TopicSystem).Inc()
	}
}

// ---------------------------------------------------------------------------
// Inbound: rendering bus events to local connections
// ---------------------------------------------------------------------------

func (g *Gateway) onBusMessage(data []byte) {
	var event messageEvent
	if err := json.Unmarshal(data, &event); err != nil {
		log.Printf("[gateway] bad message event: %v", err)
		return
	}

	frame, err := protocol.NewServerMessage(protocol.TypeMessage, protocol.ServerChatMsg{
		Author:    event.Author,
		Text:      event.Text,
		CreatedAt: event.CreatedAt,
	})
	if err != nil {
		log.Printf("[gateway] build message frame: %v", err)
		return
	}
	g.fanOut(frame)
	metrics.MessagesTotal.WithLabelValues("delivered").Inc()
}

func (g *Gateway) onBusRoster(data []byte) {
	var event rosterEvent
	if err := json.Unmarshal(data, &event); err != nil {
		log.Printf("[gateway] bad roster event: %v", err)
		return
	}

	frame, err := protocol.NewServerMessage(protocol.TypeRoster, protocol.RosterMsg{Names: event.Names})
	if err != nil {
		log.Printf("[gateway] build roster frame: %v", err)
		return
	}
	g.fanOut(frame)
}

func (g *Gateway) onBusSystem(data []byte) {
	var event systemEvent
	if err := json.Unmarshal(data, &event); err != nil {
		log.Printf("[gateway] bad system event: %v", err)
		return
	}

	frame, err := protocol.NewServerMessage(protocol.TypeSystem, protocol.SystemMsg{Text: event.Text})
	if err != nil {
		log.Printf("[gateway] build system frame: %v", err)
		return
	}
	g.fanOut(frame)
}

// fanOut writes a frame to every local connection. Individual write errors
// are ignored; the transport's read path and heartbeat evict dead
// connections, and one failing socket must never affect the others.
func (g *Gateway) fanOut(frame []byte) {
	g.registry.ForEach(func(c *Client) {
		_ = c.send(frame)
	})
}

// ---------------------------------------------------------------------------
// Direct frames to a single client
// ---------------------------------------------------------------------------

// sendWelcome sends the roster snapshot and recent history to a newly
// connected client so it can render the room without waiting for events.
func (g *Gateway) sendWelcome(c *Client) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	names, err := g.presence.ListDistinctNames(ctx)
	if err != nil {
		log.Printf("[gateway] welcome roster conn=%s: %v", c.ID, err)
		names = []string{}
	}

	recent, err := g.messages.Recent(ctx, g.config.HistorySize)
	if err != nil {
		log.Printf("[gateway] welcome history conn=%s: %v", c.ID, err)
		recent = nil
	}

	history := make([]protocol.ServerChatMsg, 0, len(recent))
	for _, m := range recent {
		history = append(history, protocol.ServerChatMsg{
			Type:      protocol.TypeMessage,
			Author:    m.Author,
			Text:      m.Text,
			CreatedAt: m.CreatedAt.Unix(),
		})
	}

	frame, err := protocol.NewServerMessage(protocol.TypeWelcome, protocol.WelcomeMsg{
		Name:    c.Identity.DisplayName,
		Roster:  names,
		History: history,
	})
	if err != nil {
		log.Printf("[gateway] build welcome frame conn=%s: %v", c.ID, err)
		return
	}
	if err := c.send(frame); err != nil {
		log.Printf("[gateway] send welcome conn=%s: %v", c.ID, err)
	}
}

func (g *Gateway) sendError(c *Client, code, msg string) {
	frame, err := protocol.NewServerMessage(protocol.TypeError, protocol.ErrorMsg{Code: code, Message: msg})
	if err != nil {
		log.Printf("[gateway] build error frame conn=%s: %v", c.ID, err)
		return
	}
	if err := c.send(frame); err != nil {
		log.Printf("[gateway] send error conn=%s: %v", c.ID, err)
	}
}
