package httpx

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"log/slog"

	"github.com/gorilla/websocket"

	"github.com/Robert-d-s/enablment-back-sub000/internal/service/syncer"
	"github.com/Robert-d-s/enablment-back-sub000/internal/ws"
)

// SyncTrigger is the surface the router exposes of the reconciliation engine.
type SyncTrigger interface {
	RunFull(ctx context.Context) error
	ApplyDelta(ctx context.Context, n syncer.Notification) error
}

// Router wires HTTP endpoints to the reconciliation engine.
type Router struct {
	mux           *http.ServeMux
	logger        *slog.Logger
	sync          SyncTrigger
	hub           *ws.Hub
	upgrader      websocket.Upgrader
	limiter       RateLimiter
	adminToken    string
	webhookSecret string
	syncCooldown  time.Duration
	dbHealth      func(context.Context) error
}

const (
	rateWindowRealtime = 30 * time.Second
	rateLimitWebhook   = 120
	rateLimitWebsocket = 30
	healthCheckTimeout = 2 * time.Second
	maxWebhookBody     = 1 << 20
)

// NewRouter assembles routes with dependencies.
func NewRouter(logger *slog.Logger, sync SyncTrigger, hub *ws.Hub, limiter RateLimiter, adminToken, webhookSecret string, syncCooldown time.Duration, dbHealth func(context.Context) error) *Router {
	r := &Router{
		mux:    http.NewServeMux(),
		logger: logger,
		sync:   sync,
		hub:    hub,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		limiter:       limiter,
		adminToken:    strings.TrimSpace(adminToken),
		webhookSecret: strings.TrimSpace(webhookSecret),
		syncCooldown:  syncCooldown,
		dbHealth:      dbHealth,
	}
	if r.limiter == nil {
		r.limiter = NewMemoryRateLimiter()
	}
	if r.syncCooldown <= 0 {
		r.syncCooldown = 5 * time.Minute
	}
	r.register()
	return r
}

// ServeHTTP delegates to underlying mux.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// Close releases background resources.
func (r *Router) Close() {
	if r.limiter != nil {
		r.limiter.Close()
	}
}

func (r *Router) register() {
	r.mux.HandleFunc("/healthz", r.handleHealthz)
	// Full runs are expensive and idempotent: one trigger per cooldown window.
	r.mux.HandleFunc("/sync/run", r.requireAdmin(r.withRateLimit(1, r.syncCooldown, rateLimitKeySync, r.handleSyncRun)))
	r.mux.HandleFunc("/webhook/upstream", r.withRateLimit(rateLimitWebhook, time.Minute, rateLimitKeyIP, r.handleWebhook))
	r.mux.HandleFunc("/ws/issues", r.withRateLimit(rateLimitWebsocket, rateWindowRealtime, rateLimitKeyIP, r.handleIssuesWS))
}

func rateLimitKeySync(*http.Request) string {
	// All admins share one window: the run itself is the scarce resource.
	return "sync:run"
}

func (r *Router) handleHealthz(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	if r.dbHealth != nil {
		ctx, cancel := context.WithTimeout(req.Context(), healthCheckTimeout)
		defer cancel()
		if err := r.dbHealth(ctx); err != nil {
			r.logger.Error("health check failed", "error", err)
			writeError(w, http.StatusServiceUnavailable, "database unavailable")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (r *Router) handleSyncRun(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w)
		return
	}
	if err := r.sync.RunFull(req.Context()); err != nil {
		if errors.Is(err, syncer.ErrRunInFlight) {
			writeSyncStatus(w, http.StatusConflict, "error", "a reconciliation run is already in flight")
			return
		}
		// Raw upstream detail stays in the server log.
		r.logger.Error("full reconciliation failed", "error", err)
		writeSyncStatus(w, http.StatusInternalServerError, "error", "reconciliation failed, see server logs")
		return
	}
	writeSyncStatus(w, http.StatusOK, "success", "reconciliation complete")
}

func writeSyncStatus(w http.ResponseWriter, code int, status, message string) {
	writeJSON(w, code, map[string]string{
		"status":    status,
		"message":   message,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (r *Router) handleWebhook(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w)
		return
	}
	body, err := io.ReadAll(io.LimitReader(req.Body, maxWebhookBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "unreadable body")
		return
	}
	if err := r.verifySignature(body, req.Header.Get("X-Upstream-Signature")); err != nil {
		r.logger.Warn("webhook signature rejected", "error", err)
		writeError(w, http.StatusUnauthorized, "invalid signature")
		return
	}

	var notification syncer.Notification
	if err := json.Unmarshal(body, &notification); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := r.sync.ApplyDelta(req.Context(), notification); err != nil {
		r.logger.Error("delta application failed",
			"type", notification.Type, "action", notification.Action, "error", err)
		writeError(w, http.StatusInternalServerError, "delta not applied, see server logs")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "applied"})
}

func (r *Router) handleIssuesWS(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	conn, err := r.upgrader.Upgrade(w, req, nil)
	if err != nil {
		r.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	client := ws.NewClient(conn, r.logger)
	r.hub.Register(ws.TopicIssues, client)
	defer func() {
		r.hub.Unregister(ws.TopicIssues, client)
		client.Close()
	}()

	// Drain control frames until the subscriber goes away.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// requireAdmin gates a handler behind the configured admin bearer token.
func (r *Router) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if r.adminToken == "" {
			r.logger.Error("admin token not configured, refusing admin operation", "path", req.URL.Path)
			writeError(w, http.StatusForbidden, "admin operations disabled")
			return
		}
		token, err := bearerToken(req.Header.Get("Authorization"))
		if err != nil {
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		if subtle.ConstantTimeCompare([]byte(token), []byte(r.adminToken)) != 1 {
			r.logger.Warn("admin token rejected", "path", req.URL.Path)
			writeError(w, http.StatusForbidden, "forbidden")
			return
		}
		next(w, req)
	}
}

func bearerToken(header string) (string, error) {
	if strings.TrimSpace(header) == "" {
		return "", errors.New("missing authorization header")
	}
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("invalid authorization header format")
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", errors.New("empty bearer token")
	}
	return token, nil
}

func (r *Router) methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}
