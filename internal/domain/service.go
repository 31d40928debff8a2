// Package domain defines the training record workflows and the readiness read models.
package domain

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/mxrk333/trailquest-fitnessapp-sub000/internal/strain"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

const recordVersion = "v1"

// Cursor models the pagination token.
type Cursor struct {
	At time.Time
	ID string
}

// WorkoutStore persists workouts.
type WorkoutStore interface {
	FindWorkoutByIdempotency(ctx context.Context, tenantID, userID, idempotencyKey string) (*WorkoutAggregate, error)
	CreateWorkout(ctx context.Context, workout WorkoutAggregate, idempotencyKey string) error
	RecentWorkouts(ctx context.Context, tenantID, userID string, limit int) ([]WorkoutAggregate, error)
	ListWorkouts(ctx context.Context, tenantID, userID string, cursor *Cursor, limit int) ([]WorkoutAggregate, *Cursor, error)
}

// HikeStore persists hikes.
type HikeStore interface {
	FindHikeByIdempotency(ctx context.Context, tenantID, userID, idempotencyKey string) (*HikeAggregate, error)
	CreateHike(ctx context.Context, hike HikeAggregate, idempotencyKey string) error
	RecentHikes(ctx context.Context, tenantID, userID string, limit int) ([]HikeAggregate, error)
}

// RestDayStore persists rest days.
type RestDayStore interface {
	FindRestDayByIdempotency(ctx context.Context, tenantID, userID, idempotencyKey string) (*RestDayAggregate, error)
	CreateRestDay(ctx context.Context, restDay RestDayAggregate, idempotencyKey string) error
	RecentRestDays(ctx context.Context, tenantID, userID string, limit int) ([]RestDayAggregate, error)
}

// Client is a trainee assigned to a trainer.
type Client struct {
	ID          string
	DisplayName string
	AssignedAt  time.Time
}

// ClientDirectory stores trainer to client assignments.
type ClientDirectory interface {
	AssignClient(ctx context.Context, tenantID, trainerID string, client Client) error
	ListClients(ctx context.Context, tenantID, trainerID string) ([]Client, error)
}

// Repository captures every persistence operation the service needs.
type Repository interface {
	WorkoutStore
	HikeStore
	RestDayStore
	ClientDirectory
}

// Service orchestrates record ingestion and the strain/readiness read models.
type Service struct {
	repo        Repository
	scoring     strain.Scoring
	recentLimit int
	now         func() time.Time
}

// Option configures optional behaviour for the Service.
type Option func(*Service)

// WithClock overrides the time source used as the scoring reference instant.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithScoring overrides the scoring constants.
func WithScoring(scoring strain.Scoring) Option {
	return func(s *Service) {
		s.scoring = scoring
	}
}

// WithRecentLimit sets how many of the most recent records per kind feed the model.
func WithRecentLimit(limit int) Option {
	return func(s *Service) {
		if limit > 0 {
			s.recentLimit = limit
		}
	}
}

// NewService constructs a Service.
func NewService(repo Repository, opts ...Option) *Service {
	s := &Service{
		repo:        repo,
		scoring:     strain.DefaultScoring(),
		recentLimit: 20,
		now:         func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// LogWorkoutInput captures the payload from the API layer.
type LogWorkoutInput struct {
	TenantID       string
	UserID         string
	PerformedAt    time.Time
	Title          string
	Exercises      []strain.Exercise
	Source         string
	IdempotencyKey string
}

// LogWorkout handles idempotent create semantics. The boolean reports an idempotent replay.
func (s *Service) LogWorkout(ctx context.Context, input LogWorkoutInput) (*WorkoutAggregate, bool, error) {
	if strings.TrimSpace(input.UserID) == "" {
		return nil, false, invalid("user_id is required")
	}
	if input.PerformedAt.IsZero() {
		return nil, false, invalid("performed_at is required")
	}
	if len(input.Exercises) == 0 {
		return nil, false, invalid("at least one exercise is required")
	}

	if existing, err := s.repo.FindWorkoutByIdempotency(ctx, input.TenantID, input.UserID, input.IdempotencyKey); err == nil && existing != nil {
		return existing, true, nil
	}

	exercises := make([]strain.Exercise, 0, len(input.Exercises))
	for i, ex := range input.Exercises {
		name := strings.TrimSpace(ex.Name)
		if name == "" {
			return nil, false, invalid("exercise %d: name is required", i)
		}
		sets := ex.Sets
		if sets == nil {
			sets = []strain.Set{}
		}
		exercises = append(exercises, strain.Exercise{Name: name, Muscles: normalizeMuscles(ex.Muscles), Sets: sets})
	}

	workout := WorkoutAggregate{
		RecordMeta:  s.newMeta(input.TenantID, input.UserID, input.Source),
		PerformedAt: input.PerformedAt.UTC(),
		Title:       strings.TrimSpace(input.Title),
		Exercises:   exercises,
	}
	if err := s.repo.CreateWorkout(ctx, workout, input.IdempotencyKey); err != nil {
		return nil, false, err
	}
	return &workout, false, nil
}

// LogHikeInput captures the payload from the API layer.
type LogHikeInput struct {
	TenantID       string
	UserID         string
	StartedAt      time.Time
	Trail          string
	DurationMin    int
	DistanceKm     float64
	ElevationM     int
	ActiveMuscles  []string
	Source         string
	IdempotencyKey string
}

// LogHike handles idempotent create semantics. The boolean reports an idempotent replay.
func (s *Service) LogHike(ctx context.Context, input LogHikeInput) (*HikeAggregate, bool, error) {
	if strings.TrimSpace(input.UserID) == "" {
		return nil, false, invalid("user_id is required")
	}
	if input.StartedAt.IsZero() {
		return nil, false, invalid("started_at is required")
	}
	if input.DurationMin <= 0 {
		return nil, false, invalid("duration_min must be > 0")
	}
	if input.DistanceKm < 0 {
		return nil, false, invalid("distance_km must be >= 0")
	}

	if existing, err := s.repo.FindHikeByIdempotency(ctx, input.TenantID, input.UserID, input.IdempotencyKey); err == nil && existing != nil {
		return existing, true, nil
	}

	hike := HikeAggregate{
		RecordMeta:    s.newMeta(input.TenantID, input.UserID, input.Source),
		StartedAt:     input.StartedAt.UTC(),
		Trail:         strings.TrimSpace(input.Trail),
		DurationMin:   input.DurationMin,
		DistanceKm:    input.DistanceKm,
		ElevationM:    input.ElevationM,
		ActiveMuscles: normalizeMuscles(input.ActiveMuscles),
	}
	if err := s.repo.CreateHike(ctx, hike, input.IdempotencyKey); err != nil {
		return nil, false, err
	}
	return &hike, false, nil
}

// LogRestDayInput captures the payload from the API layer.
type LogRestDayInput struct {
	TenantID       string
	UserID         string
	Day            time.Time
	Note           string
	Source         string
	IdempotencyKey string
}

// LogRestDay handles idempotent create semantics. The boolean reports an idempotent replay.
func (s *Service) LogRestDay(ctx context.Context, input LogRestDayInput) (*RestDayAggregate, bool, error) {
	if strings.TrimSpace(input.UserID) == "" {
		return nil, false, invalid("user_id is required")
	}

	if existing, err := s.repo.FindRestDayByIdempotency(ctx, input.TenantID, input.UserID, input.IdempotencyKey); err == nil && existing != nil {
		return existing, true, nil
	}

	restDay := RestDayAggregate{
		RecordMeta: s.newMeta(input.TenantID, input.UserID, input.Source),
		Day:        input.Day.UTC(),
		Note:       strings.TrimSpace(input.Note),
	}
	if input.Day.IsZero() {
		restDay.Day = restDay.CreatedAt
	}
	if err := s.repo.CreateRestDay(ctx, restDay, input.IdempotencyKey); err != nil {
		return nil, false, err
	}
	return &restDay, false, nil
}

// ListWorkouts fetches workouts with cursor pagination.
func (s *Service) ListWorkouts(ctx context.Context, tenantID, userID string, cursor *Cursor, limit int) ([]WorkoutAggregate, *Cursor, error) {
	return s.repo.ListWorkouts(ctx, tenantID, userID, cursor, limit)
}

// AssignClient links a client to a trainer.
func (s *Service) AssignClient(ctx context.Context, tenantID, trainerID, clientID, displayName string) error {
	if strings.TrimSpace(clientID) == "" {
		return invalid("client_id is required")
	}
	if clientID == trainerID {
		return invalid("a trainer cannot coach themselves")
	}
	return s.repo.AssignClient(ctx, tenantID, trainerID, Client{
		ID:          clientID,
		DisplayName: strings.TrimSpace(displayName),
		AssignedAt:  s.now(),
	})
}

// HasClient reports whether clientID is assigned to trainerID.
func (s *Service) HasClient(ctx context.Context, tenantID, trainerID, clientID string) (bool, error) {
	clients, err := s.repo.ListClients(ctx, tenantID, trainerID)
	if err != nil {
		return false, err
	}
	for _, client := range clients {
		if client.ID == clientID {
			return true, nil
		}
	}
	return false, nil
}

func (s *Service) newMeta(tenantID, userID, source string) RecordMeta {
	if strings.TrimSpace(source) == "" {
		source = "api"
	}
	return RecordMeta{
		ID:        uuid.NewString(),
		TenantID:  tenantID,
		UserID:    userID,
		Source:    source,
		Version:   recordVersion,
		CreatedAt: s.now(),
	}
}

// history is the recent activity of one user, already projected onto model inputs.
type history struct {
	workouts []strain.Workout
	hikes    []strain.Hike
	restDays []strain.RestDay
}

func (h history) empty() bool {
	return len(h.workouts) == 0 && len(h.hikes) == 0 && len(h.restDays) == 0
}

func (s *Service) loadHistory(ctx context.Context, tenantID, userID string, withRestDays bool) (history, error) {
	var h history
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		workouts, err := s.repo.RecentWorkouts(gctx, tenantID, userID, s.recentLimit)
		if err != nil {
			return err
		}
		h.workouts = make([]strain.Workout, 0, len(workouts))
		for _, w := range workouts {
			h.workouts = append(h.workouts, w.Record())
		}
		return nil
	})
	g.Go(func() error {
		hikes, err := s.repo.RecentHikes(gctx, tenantID, userID, s.recentLimit)
		if err != nil {
			return err
		}
		h.hikes = make([]strain.Hike, 0, len(hikes))
		for _, hk := range hikes {
			h.hikes = append(h.hikes, hk.Record())
		}
		return nil
	})
	if withRestDays {
		g.Go(func() error {
			restDays, err := s.repo.RecentRestDays(gctx, tenantID, userID, s.recentLimit)
			if err != nil {
				return err
			}
			h.restDays = make([]strain.RestDay, 0, len(restDays))
			for _, rd := range restDays {
				h.restDays = append(h.restDays, rd.Record())
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return history{}, err
	}
	return h, nil
}
