// Package realtime carries the WebSocket side of hubgate: the handshake
// authenticates against the hub exactly like the HTTP gate, but failure
// closes the socket with a policy code instead of returning an HTTP error.
package realtime

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"hubgate/cmd/internal/auth/hub"
	"hubgate/cmd/internal/auth/session"
	"hubgate/cmd/internal/metrics"
)

const (
	wsDefaultWriteTimeout = 5 * time.Second
	wsDefaultReadIdle     = 2 * time.Minute
	wsDefaultHeartbeat    = 30 * time.Second
)

// TokenResolver validates a session token against the hub.
type TokenResolver interface {
	ResolveToken(ctx context.Context, token string) (*hub.Identity, error)
}

// Principal is what a successful handshake yields: the resolved identity
// paired with whatever permissions the mounting caller requested. No
// enforcement happens at this layer; the caller applies them.
type Principal struct {
	User        session.User
	Permissions map[string][]string
}

// Gateway upgrades requests to WebSocket sessions after hub validation.
type Gateway struct {
	log      *slog.Logger
	resolver TokenResolver
	store    *session.Store
	metrics  *metrics.Metrics

	cookieName  string
	permissions map[string][]string

	originPatterns []string

	writeTimeout    time.Duration
	readIdleTimeout time.Duration
	heartbeatEvery  time.Duration
}

// NewGateway constructs a gateway. permissions is the caller-requested
// permission set attached verbatim to every accepted principal.
func NewGateway(log *slog.Logger, resolver TokenResolver, store *session.Store, cookieName string, permissions map[string][]string, m *metrics.Metrics) *Gateway {
	if log == nil {
		log = slog.Default()
	}

	g := &Gateway{
		log:         log,
		resolver:    resolver,
		store:       store,
		metrics:     m,
		cookieName:  cookieName,
		permissions: permissions,

		writeTimeout:    envDuration("HUBGATE_WS_WRITE_TIMEOUT", wsDefaultWriteTimeout),
		readIdleTimeout: envDuration("HUBGATE_WS_READ_IDLE_TIMEOUT", wsDefaultReadIdle),
		heartbeatEvery:  envDuration("HUBGATE_WS_HEARTBEAT_INTERVAL", wsDefaultHeartbeat),
	}

	// Cross-origin dials need explicit host patterns; same-host is always fine.
	if v := envString("HUBGATE_WS_ORIGIN_PATTERNS", ""); v != "" {
		for _, p := range strings.Split(v, ",") {
			if p = strings.TrimSpace(p); p != "" {
				g.originPatterns = append(g.originPatterns, p)
			}
		}
	}

	return g
}

// ServeHTTP adapter so the gateway mounts as an http.Handler.
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	g.HandleWS(w, r)
}

// HandleWS completes the handshake, authenticates the initial request's
// session cookie against the hub, and either runs the event loop or closes
// with a policy-violation code. The handshake is accepted first: a close
// code can only travel over an established socket.
func (g *Gateway) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: g.originPatterns,
	})
	if err != nil {
		g.log.Info("ws.accept.fail", "err", err)
		return
	}
	defer func() { _ = conn.Close(websocket.StatusNormalClosure, "bye") }()

	principal, ok := g.Authenticate(r)
	if !ok {
		g.metrics.IncWSHandshake("rejected")
		g.log.Info("ws.reject.auth", "remote", r.RemoteAddr)
		_ = conn.Close(websocket.StatusPolicyViolation, "authentication failed")
		return
	}

	g.metrics.IncWSHandshake("accepted")
	g.log.Info("ws.accept", "username", principal.User.Username)
	g.serve(r.Context(), conn, principal)
}

// Authenticate resolves the request's session cookie against the hub. It
// returns no principal when the cookie is absent, the hub rejects the
// token, or the hub cannot be reached.
//
// A cached record is reused when present; otherwise a transient record is
// derived from the hub identity without populating the store (the HTTP gate
// owns repopulation).
func (g *Gateway) Authenticate(r *http.Request) (Principal, bool) {
	c, err := r.Cookie(g.cookieName)
	if err != nil || strings.TrimSpace(c.Value) == "" {
		return Principal{}, false
	}
	token := c.Value

	identity, err := g.resolver.ResolveToken(r.Context(), token)
	if err != nil {
		g.log.Warn("ws.resolve.unavailable", "err", err)
		return Principal{}, false
	}
	if identity == nil {
		return Principal{}, false
	}

	user, cached := g.store.Get(token)
	if !cached {
		user = session.NewUser(token, identity.Name)
	}
	return Principal{User: user, Permissions: g.permissions}, true
}

type envelope struct {
	Type     string `json:"type"`
	Username string `json:"username,omitempty"`
	Time     string `json:"time,omitempty"`
}

// serve runs the post-auth loop: announce the identity, heartbeat on a
// ticker, and drain client frames until the peer goes away or stays idle
// past the read deadline.
func (g *Gateway) serve(ctx context.Context, conn *websocket.Conn, principal Principal) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := g.write(ctx, conn, envelope{Type: "welcome", Username: principal.User.Username}); err != nil {
		return
	}

	readerDone := make(chan struct{})
	go func() {
		defer close(readerDone)
		for {
			readCtx, cancelRead := context.WithTimeout(ctx, g.readIdleTimeout)
			_, _, err := conn.Read(readCtx)
			cancelRead()
			if err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(g.heartbeatEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-readerDone:
			return
		case now := <-ticker.C:
			if err := g.write(ctx, conn, envelope{Type: "ping", Time: now.UTC().Format(time.RFC3339)}); err != nil {
				return
			}
		}
	}
}

func (g *Gateway) write(ctx context.Context, conn *websocket.Conn, env envelope) error {
	writeCtx, cancel := context.WithTimeout(ctx, g.writeTimeout)
	defer cancel()
	return wsjson.Write(writeCtx, conn, env)
}
