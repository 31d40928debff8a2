// Package api exposes HTTP handlers for the readiness service.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mxrk333/trailquest-fitnessapp-sub000/internal/auth"
	"github.com/mxrk333/trailquest-fitnessapp-sub000/internal/chat"
	"github.com/mxrk333/trailquest-fitnessapp-sub000/internal/domain"
	"github.com/mxrk333/trailquest-fitnessapp-sub000/internal/persistence"
)

// TrainingService is the subset of domain.Service used by the handlers.
type TrainingService interface {
	LogWorkout(ctx context.Context, input domain.LogWorkoutInput) (*domain.WorkoutAggregate, bool, error)
	LogHike(ctx context.Context, input domain.LogHikeInput) (*domain.HikeAggregate, bool, error)
	LogRestDay(ctx context.Context, input domain.LogRestDayInput) (*domain.RestDayAggregate, bool, error)
	ListWorkouts(ctx context.Context, tenantID, userID string, cursor *domain.Cursor, limit int) ([]domain.WorkoutAggregate, *domain.Cursor, error)
	Strain(ctx context.Context, tenantID, userID string) (*domain.StrainReport, error)
	Readiness(ctx context.Context, tenantID, userID string) (*domain.ReadinessReport, error)
	ClientOverview(ctx context.Context, tenantID, trainerID string) ([]domain.ClientReport, error)
	AssignClient(ctx context.Context, tenantID, trainerID, clientID, displayName string) error
	HasClient(ctx context.Context, tenantID, trainerID, clientID string) (bool, error)
}

// ChatService is the subset of chat.Service used by the handlers.
type ChatService interface {
	Open(ctx context.Context, tenantID string, participants []string) (*chat.Conversation, error)
	Send(ctx context.Context, tenantID, conversationID, senderID, body string) (*chat.Message, error)
	MarkRead(ctx context.Context, tenantID, conversationID, userID string, at time.Time) (*chat.ReadMarker, error)
	Unread(ctx context.Context, tenantID, userID string) (map[string]int, error)
	History(ctx context.Context, tenantID, conversationID, userID string, limit int) ([]chat.Message, error)
}

// Handler coordinates HTTP requests with the domain services.
type Handler struct {
	training TrainingService
	chat     ChatService
	logger   logrus.FieldLogger
}

// NewHandler builds a Handler. A nil logger falls back to the logrus standard logger.
func NewHandler(training TrainingService, chatService ChatService, logger logrus.FieldLogger) *Handler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Handler{training: training, chat: chatService, logger: logger}
}

// RegisterRoutes wires endpoints to the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /v1/workouts", h.logWorkout)
	mux.HandleFunc("GET /v1/workouts", h.listWorkouts)
	mux.HandleFunc("POST /v1/hikes", h.logHike)
	mux.HandleFunc("POST /v1/rest-days", h.logRestDay)
	mux.HandleFunc("GET /v1/strain", h.strain)
	mux.HandleFunc("GET /v1/readiness", h.readiness)
	mux.HandleFunc("GET /v1/trainer/clients", h.trainerClients)
	mux.HandleFunc("PUT /v1/trainer/clients/{client_id}", h.assignClient)
	mux.HandleFunc("POST /v1/conversations", h.openConversation)
	mux.HandleFunc("GET /v1/conversations/unread", h.unread)
	mux.HandleFunc("POST /v1/conversations/{id}/messages", h.sendMessage)
	mux.HandleFunc("GET /v1/conversations/{id}/messages", h.history)
	mux.HandleFunc("POST /v1/conversations/{id}/read", h.markRead)
	mux.HandleFunc("GET /healthz", healthz)
}

// healthz reports a simple OK status for container health checks.
func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// authorize returns the caller's claims when they hold any of the scopes. It writes the error
// response itself and returns nil otherwise.
func authorize(w http.ResponseWriter, r *http.Request, scopes ...string) *auth.Claims {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return nil
	}
	if !claims.HasAnyScope(scopes...) {
		writeError(w, http.StatusForbidden, "forbidden", "scope "+scopes[0]+" required")
		return nil
	}
	return claims
}

// subjectUser resolves the user a request is about. An empty value means the caller. Trainers
// may only act for their assigned clients.
func (h *Handler) subjectUser(w http.ResponseWriter, r *http.Request, claims *auth.Claims, userID string) (string, bool) {
	if userID == "" {
		userID = claims.Subject
	}
	if claims.CanActFor(userID) {
		return userID, true
	}
	if claims.Role == auth.RoleTrainer {
		assigned, err := h.training.HasClient(r.Context(), claims.TenantID, claims.Subject, userID)
		if err != nil {
			h.writeServiceError(w, r, err)
			return "", false
		}
		if assigned {
			return userID, true
		}
	}
	writeError(w, http.StatusForbidden, "forbidden", "not allowed to access another user's data")
	return "", false
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return false
	}
	return true
}

func parseLimit(raw string, fallback, max int) int {
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed <= 0 {
		return fallback
	}
	if parsed > max {
		return max
	}
	return parsed
}

// writeServiceError maps domain and chat errors onto HTTP responses.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidRecord), errors.Is(err, chat.ErrInvalidMessage), errors.Is(err, persistence.ErrInvalidCursor):
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
	case errors.Is(err, chat.ErrNotParticipant):
		writeError(w, http.StatusForbidden, "forbidden", err.Error())
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, chat.ErrConversationNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, context.Canceled):
		writeError(w, http.StatusServiceUnavailable, "canceled", "request canceled")
	default:
		h.logger.WithError(err).WithFields(logrus.Fields{"method": r.Method, "path": r.URL.Path}).Error("request failed")
		writeError(w, http.StatusInternalServerError, "server_error", "internal error")
	}
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	payload := map[string]string{
		"type":   code,
		"detail": detail,
	}
	writeJSON(w, status, payload)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
