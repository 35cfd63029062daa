package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/trivia-wave/internal/domain"
	"github.com/trivia-wave/internal/websocket"
)

// WaveAPI is the wave engine as seen by the HTTP layer
type WaveAPI interface {
	websocket.Actions
	BoostInfo(boostID string) (domain.BoostInfo, error)
	BoostCatalogue() []domain.BoostInfo
	UserBoost(ctx context.Context, userID, boostID string) (*domain.UserBoost, error)
}

// Handler provides HTTP handlers for the wave API
type Handler struct {
	waves   WaveAPI
	hub     *websocket.Hub
	auth    *Authenticator
	limiter *RateLimiter
	logger  *slog.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(waves WaveAPI, hub *websocket.Hub, auth *Authenticator, limiter *RateLimiter, logger *slog.Logger) *Handler {
	return &Handler{
		waves:   waves,
		hub:     hub,
		auth:    auth,
		limiter: limiter,
		logger:  logger,
	}
}

// APIResponse represents a standard API response
type APIResponse struct {
	Success   bool   `json:"success"`
	Data      any    `json:"data,omitempty"`
	Error     string `json:"error,omitempty"`
	Code      string `json:"code,omitempty"`
	RequestID string `json:"mes_id,omitempty"`
}

// Router creates and configures the HTTP router
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(corsMiddleware)

	r.Get("/health", h.HealthCheck)
	r.Get("/ready", h.ReadyCheck)

	r.Group(func(r chi.Router) {
		r.Use(h.auth.Middleware)

		r.Get("/ws", h.HandleWebSocket)

		r.Route("/api/v1", func(r chi.Router) {
			r.Route("/waves", func(r chi.Router) {
				r.Get("/current", h.GetCurrentWave)
				r.With(h.limiter.Middleware).Post("/answer", h.SelectAnswer)
			})

			r.Route("/boosts", func(r chi.Router) {
				r.Get("/", h.ListBoosts)
				r.With(h.limiter.Middleware).Post("/apply", h.ApplyBoost)
				r.Get("/{boostID}", h.GetBoost)
				r.Get("/{boostID}/inventory", h.GetInventory)
			})

			r.Get("/ws/stats", h.GetWebSocketStats)
		})
	})

	return r
}

// corsMiddleware adds CORS headers
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Authorization, Content-Type, X-Request-ID")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// writeJSON writes a JSON response
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeSuccess writes a successful JSON response
func (h *Handler) writeSuccess(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    data,
	})
}

// writeError maps a domain error to its status and echoes the correlating request id
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	requestID := middleware.GetReqID(r.Context())
	var re *domain.RequestError
	if errors.As(err, &re) && re.RequestID != "" {
		requestID = re.RequestID
	}

	status := statusFor(err)
	de := domain.ErrInternalError
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed", "path", r.URL.Path, "mes_id", requestID, "error", err)
	} else {
		errors.As(err, &de)
		h.logger.Debug("request rejected", "path", r.URL.Path, "mes_id", requestID, "code", de.Code)
	}

	writeJSON(w, status, APIResponse{
		Success:   false,
		Error:     de.Message,
		Code:      de.Code,
		RequestID: requestID,
	})
}

// statusFor maps an error kind to an HTTP status
func statusFor(err error) int {
	switch domain.KindOf(err) {
	case domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindTimingViolation:
		return http.StatusUnprocessableEntity
	case domain.KindQuotaExceeded:
		if errors.Is(err, domain.ErrBoostLimitExceeded) || errors.Is(err, domain.ErrRateLimited) {
			return http.StatusTooManyRequests
		}
		return http.StatusConflict
	case domain.KindConflict:
		return http.StatusConflict
	case domain.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// HandleWebSocket handles WebSocket upgrade requests
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	var limiter websocket.ActionLimiter
	if h.limiter != nil {
		limiter = h.limiter
	}
	websocket.ServeWs(h.hub, h.waves, limiter, UserIDFromContext(r.Context()), h.logger, w, r)
}

// GetWebSocketStats returns WebSocket connection statistics
func (h *Handler) GetWebSocketStats(w http.ResponseWriter, r *http.Request) {
	stats := map[string]any{
		"total_connections": h.hub.GetTotalConnections(),
	}
	if channelID := r.URL.Query().Get("channel_id"); channelID != "" {
		stats["channel_subscribers"] = h.hub.GetSubscriberCount(channelID)
	}
	h.writeSuccess(w, stats)
}

// HealthCheck returns service health status
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	h.writeSuccess(w, map[string]string{"status": "healthy"})
}

// ReadyCheck returns service readiness status
func (h *Handler) ReadyCheck(w http.ResponseWriter, r *http.Request) {
	h.writeSuccess(w, map[string]string{"status": "ready"})
}

// GetCurrentWave returns the caller's screen for a channel, enrolling them when a wave runs
func (h *Handler) GetCurrentWave(w http.ResponseWriter, r *http.Request) {
	channelID := r.URL.Query().Get("channel_id")
	if channelID == "" {
		h.writeError(w, r, domain.ErrInvalidRequest)
		return
	}

	screen, err := h.waves.CurrentWave(r.Context(), channelID, UserIDFromContext(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeSuccess(w, screen)
}

// SelectAnswer handles an answer submission
func (h *Handler) SelectAnswer(w http.ResponseWriter, r *http.Request) {
	var req domain.SubmitAnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, domain.ErrInvalidRequest)
		return
	}
	req.UserID = UserIDFromContext(r.Context())

	action, err := h.waves.SubmitAnswer(r.Context(), req)
	if err != nil {
		h.writeError(w, r, domain.WithRequestID(req.RequestID, err))
		return
	}

	writeJSON(w, http.StatusOK, APIResponse{
		Success:   true,
		Data:      action,
		RequestID: req.RequestID,
	})
}

// ApplyBoost handles a boost use
func (h *Handler) ApplyBoost(w http.ResponseWriter, r *http.Request) {
	var req domain.ApplyBoostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, domain.ErrInvalidRequest)
		return
	}
	req.UserID = UserIDFromContext(r.Context())

	inventory, err := h.waves.ApplyBoost(r.Context(), req)
	if err != nil {
		h.writeError(w, r, domain.WithRequestID(req.RequestID, err))
		return
	}

	writeJSON(w, http.StatusOK, APIResponse{
		Success:   true,
		Data:      inventory,
		RequestID: req.RequestID,
	})
}

// ListBoosts returns every registered boost
func (h *Handler) ListBoosts(w http.ResponseWriter, r *http.Request) {
	h.writeSuccess(w, h.waves.BoostCatalogue())
}

// GetBoost returns a boost's description
func (h *Handler) GetBoost(w http.ResponseWriter, r *http.Request) {
	info, err := h.waves.BoostInfo(chi.URLParam(r, "boostID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeSuccess(w, info)
}

// GetInventory returns how many units of a boost the caller owns
func (h *Handler) GetInventory(w http.ResponseWriter, r *http.Request) {
	inventory, err := h.waves.UserBoost(r.Context(), UserIDFromContext(r.Context()), chi.URLParam(r, "boostID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeSuccess(w, inventory)
}
