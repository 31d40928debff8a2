package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/mxrk333/trailquest-fitnessapp-sub000/internal/auth"
	"github.com/mxrk333/trailquest-fitnessapp-sub000/internal/strain"
)

// StrainResponse is the body of GET /v1/strain.
type StrainResponse struct {
	UserID     string               `json:"user_id"`
	Intensity  strain.IntensityMap  `json:"intensity"`
	Heatmap    []strain.HeatmapCell `json:"heatmap"`
	Workouts   int                  `json:"workouts_considered"`
	Hikes      int                  `json:"hikes_considered"`
	ComputedAt time.Time            `json:"computed_at"`
}

// ReadinessResponse is the body of GET /v1/readiness.
type ReadinessResponse struct {
	UserID         string                `json:"user_id"`
	Score          int                   `json:"score"`
	Recommendation strain.Recommendation `json:"recommendation"`
	TotalStrain    float64               `json:"total_strain"`
	RecentRestDays int                   `json:"recent_rest_days"`
	NoData         bool                  `json:"no_data"`
	ComputedAt     time.Time             `json:"computed_at"`
}

// ClientView is one row of GET /v1/trainer/clients.
type ClientView struct {
	ClientID    string `json:"client_id"`
	DisplayName string `json:"display_name,omitempty"`
	strain.ClientSummary
}

// ClientsResponse lists a trainer's clients, ranked.
type ClientsResponse struct {
	Items []ClientView `json:"items"`
}

// AssignClientRequest is the payload for PUT /v1/trainer/clients/{client_id}.
type AssignClientRequest struct {
	DisplayName string `json:"display_name"`
}

func (h *Handler) strain(w http.ResponseWriter, r *http.Request) {
	claims := authorize(w, r, auth.ScopeActivitiesRead, auth.ScopeActivitiesWrite)
	if claims == nil {
		return
	}
	userID, ok := h.subjectUser(w, r, claims, r.URL.Query().Get("user_id"))
	if !ok {
		return
	}

	report, err := h.training.Strain(r.Context(), claims.TenantID, userID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, StrainResponse{
		UserID:     report.UserID,
		Intensity:  report.Intensity,
		Heatmap:    report.Heatmap,
		Workouts:   report.Workouts,
		Hikes:      report.Hikes,
		ComputedAt: report.ComputedAt,
	})
}

func (h *Handler) readiness(w http.ResponseWriter, r *http.Request) {
	claims := authorize(w, r, auth.ScopeActivitiesRead, auth.ScopeActivitiesWrite)
	if claims == nil {
		return
	}
	userID, ok := h.subjectUser(w, r, claims, r.URL.Query().Get("user_id"))
	if !ok {
		return
	}

	report, err := h.training.Readiness(r.Context(), claims.TenantID, userID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ReadinessResponse{
		UserID:         report.UserID,
		Score:          report.Score,
		Recommendation: report.Recommendation,
		TotalStrain:    report.TotalStrain,
		RecentRestDays: report.RecentRestDays,
		NoData:         report.NoData,
		ComputedAt:     report.ComputedAt,
	})
}

func (h *Handler) trainerClients(w http.ResponseWriter, r *http.Request) {
	claims := authorize(w, r, auth.ScopeClientsRead)
	if claims == nil {
		return
	}

	reports, err := h.training.ClientOverview(r.Context(), claims.TenantID, claims.Subject)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	items := make([]ClientView, 0, len(reports))
	for _, report := range reports {
		items = append(items, ClientView{
			ClientID:      report.ID,
			DisplayName:   report.DisplayName,
			ClientSummary: report.ClientSummary,
		})
	}
	writeJSON(w, http.StatusOK, ClientsResponse{Items: items})
}

func (h *Handler) assignClient(w http.ResponseWriter, r *http.Request) {
	claims := authorize(w, r, auth.ScopeClientsWrite)
	if claims == nil {
		return
	}
	if claims.Role != auth.RoleTrainer && claims.Role != auth.RoleAdmin {
		writeError(w, http.StatusForbidden, "forbidden", "only trainers can assign clients")
		return
	}

	var req AssignClientRequest
	if r.ContentLength != 0 && !decodeBody(w, r, &req) {
		return
	}

	clientID := strings.TrimSpace(r.PathValue("client_id"))
	if err := h.training.AssignClient(r.Context(), claims.TenantID, claims.Subject, clientID, req.DisplayName); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
