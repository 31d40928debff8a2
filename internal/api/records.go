package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/mxrk333/trailquest-fitnessapp-sub000/internal/auth"
	"github.com/mxrk333/trailquest-fitnessapp-sub000/internal/domain"
	"github.com/mxrk333/trailquest-fitnessapp-sub000/internal/persistence"
	"github.com/mxrk333/trailquest-fitnessapp-sub000/internal/strain"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// SetRequest is one set of an exercise.
type SetRequest struct {
	Reps      int     `json:"reps"`
	WeightKg  float64 `json:"weight_kg"`
	Completed bool    `json:"completed"`
}

// ExerciseRequest is one exercise of a workout.
type ExerciseRequest struct {
	Name    string       `json:"name"`
	Muscles []string     `json:"muscles"`
	Sets    []SetRequest `json:"sets"`
}

// LogWorkoutRequest is the payload for POST /v1/workouts.
type LogWorkoutRequest struct {
	UserID      string            `json:"user_id"`
	PerformedAt time.Time         `json:"performed_at"`
	Title       string            `json:"title"`
	Source      string            `json:"source"`
	Exercises   []ExerciseRequest `json:"exercises"`
}

// Validate ensures request correctness.
func (r LogWorkoutRequest) Validate() error {
	if r.PerformedAt.IsZero() {
		return errors.New("performed_at is required")
	}
	if len(r.Exercises) == 0 {
		return errors.New("at least one exercise is required")
	}
	for _, ex := range r.Exercises {
		if strings.TrimSpace(ex.Name) == "" {
			return errors.New("exercise name is required")
		}
		for _, set := range ex.Sets {
			if set.Reps < 0 || set.WeightKg < 0 {
				return errors.New("reps and weight_kg must be >= 0")
			}
		}
	}
	return nil
}

func (r LogWorkoutRequest) exercises() []strain.Exercise {
	out := make([]strain.Exercise, 0, len(r.Exercises))
	for _, ex := range r.Exercises {
		sets := make([]strain.Set, 0, len(ex.Sets))
		for _, s := range ex.Sets {
			sets = append(sets, strain.Set{Reps: s.Reps, WeightKg: s.WeightKg, Completed: s.Completed})
		}
		out = append(out, strain.Exercise{Name: ex.Name, Muscles: ex.Muscles, Sets: sets})
	}
	return out
}

// LogHikeRequest is the payload for POST /v1/hikes.
type LogHikeRequest struct {
	UserID        string    `json:"user_id"`
	StartedAt     time.Time `json:"started_at"`
	Trail         string    `json:"trail"`
	DurationMin   int       `json:"duration_min"`
	DistanceKm    float64   `json:"distance_km"`
	ElevationM    int       `json:"elevation_m"`
	ActiveMuscles []string  `json:"active_muscles"`
	Source        string    `json:"source"`
}

// Validate ensures request correctness.
func (r LogHikeRequest) Validate() error {
	if r.StartedAt.IsZero() {
		return errors.New("started_at is required")
	}
	if r.DurationMin <= 0 {
		return errors.New("duration_min must be > 0")
	}
	if r.DistanceKm < 0 {
		return errors.New("distance_km must be >= 0")
	}
	return nil
}

// LogRestDayRequest is the payload for POST /v1/rest-days. A missing date means today.
type LogRestDayRequest struct {
	UserID string    `json:"user_id"`
	Date   time.Time `json:"date"`
	Note   string    `json:"note"`
	Source string    `json:"source"`
}

// CreateRecordResponse describes the response body for record creation.
type CreateRecordResponse struct {
	ID     string            `json:"id"`
	Kind   domain.RecordKind `json:"kind"`
	Replay bool              `json:"idempotent_replay"`
}

// WorkoutView exposes full details about a workout.
type WorkoutView struct {
	WorkoutID     string            `json:"workout_id"`
	UserID        string            `json:"user_id"`
	PerformedAt   time.Time         `json:"performed_at"`
	Title         string            `json:"title,omitempty"`
	Exercises     []strain.Exercise `json:"exercises"`
	CompletedSets int               `json:"completed_sets"`
	Source        string            `json:"source"`
	Version       string            `json:"version"`
	CreatedAt     time.Time         `json:"created_at"`
}

// ListWorkoutsResponse packages list results.
type ListWorkoutsResponse struct {
	Items      []WorkoutView `json:"items"`
	NextCursor string        `json:"next_cursor,omitempty"`
}

func toWorkoutView(agg domain.WorkoutAggregate) WorkoutView {
	return WorkoutView{
		WorkoutID:     agg.ID,
		UserID:        agg.UserID,
		PerformedAt:   agg.PerformedAt,
		Title:         agg.Title,
		Exercises:     agg.Exercises,
		CompletedSets: agg.CompletedSets(),
		Source:        agg.Source,
		Version:       agg.Version,
		CreatedAt:     agg.CreatedAt,
	}
}

func writeCreated(w http.ResponseWriter, id string, kind domain.RecordKind, replay bool) {
	status := http.StatusCreated
	if replay {
		status = http.StatusOK
	}
	writeJSON(w, status, CreateRecordResponse{ID: id, Kind: kind, Replay: replay})
}

func (h *Handler) logWorkout(w http.ResponseWriter, r *http.Request) {
	claims := authorize(w, r, auth.ScopeActivitiesWrite)
	if claims == nil {
		return
	}

	var req LogWorkoutRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}
	userID, ok := h.subjectUser(w, r, claims, req.UserID)
	if !ok {
		return
	}

	workout, replay, err := h.training.LogWorkout(r.Context(), domain.LogWorkoutInput{
		TenantID:       claims.TenantID,
		UserID:         userID,
		PerformedAt:    req.PerformedAt,
		Title:          req.Title,
		Exercises:      req.exercises(),
		Source:         req.Source,
		IdempotencyKey: r.Header.Get("Idempotency-Key"),
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeCreated(w, workout.ID, domain.KindWorkout, replay)
}

func (h *Handler) logHike(w http.ResponseWriter, r *http.Request) {
	claims := authorize(w, r, auth.ScopeActivitiesWrite)
	if claims == nil {
		return
	}

	var req LogHikeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}
	userID, ok := h.subjectUser(w, r, claims, req.UserID)
	if !ok {
		return
	}

	hike, replay, err := h.training.LogHike(r.Context(), domain.LogHikeInput{
		TenantID:       claims.TenantID,
		UserID:         userID,
		StartedAt:      req.StartedAt,
		Trail:          req.Trail,
		DurationMin:    req.DurationMin,
		DistanceKm:     req.DistanceKm,
		ElevationM:     req.ElevationM,
		ActiveMuscles:  req.ActiveMuscles,
		Source:         req.Source,
		IdempotencyKey: r.Header.Get("Idempotency-Key"),
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeCreated(w, hike.ID, domain.KindHike, replay)
}

func (h *Handler) logRestDay(w http.ResponseWriter, r *http.Request) {
	claims := authorize(w, r, auth.ScopeActivitiesWrite)
	if claims == nil {
		return
	}

	var req LogRestDayRequest
	if !decodeBody(w, r, &req) {
		return
	}
	userID, ok := h.subjectUser(w, r, claims, req.UserID)
	if !ok {
		return
	}

	restDay, replay, err := h.training.LogRestDay(r.Context(), domain.LogRestDayInput{
		TenantID:       claims.TenantID,
		UserID:         userID,
		Day:            req.Date,
		Note:           req.Note,
		Source:         req.Source,
		IdempotencyKey: r.Header.Get("Idempotency-Key"),
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeCreated(w, restDay.ID, domain.KindRestDay, replay)
}

func (h *Handler) listWorkouts(w http.ResponseWriter, r *http.Request) {
	claims := authorize(w, r, auth.ScopeActivitiesRead, auth.ScopeActivitiesWrite)
	if claims == nil {
		return
	}
	userID, ok := h.subjectUser(w, r, claims, r.URL.Query().Get("user_id"))
	if !ok {
		return
	}

	cursor, err := persistence.DecodeCursor(r.URL.Query().Get("cursor"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", "invalid cursor")
		return
	}
	limit := parseLimit(r.URL.Query().Get("limit"), defaultPageSize, maxPageSize)

	workouts, next, err := h.training.ListWorkouts(r.Context(), claims.TenantID, userID, cursor, limit)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	items := make([]WorkoutView, 0, len(workouts))
	for _, agg := range workouts {
		items = append(items, toWorkoutView(agg))
	}
	writeJSON(w, http.StatusOK, ListWorkoutsResponse{Items: items, NextCursor: persistence.EncodeCursor(next)})
}
