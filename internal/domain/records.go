package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mxrk333/trailquest-fitnessapp-sub000/internal/strain"
)

// RecordKind names the three training record types.
type RecordKind string

const (
	KindWorkout RecordKind = "workout"
	KindHike    RecordKind = "hike"
	KindRestDay RecordKind = "rest_day"
)

// RecordMeta carries the ownership and bookkeeping fields shared by all records.
type RecordMeta struct {
	ID        string
	TenantID  string
	UserID    string
	Source    string
	Version   string
	CreatedAt time.Time
}

// WorkoutAggregate is a workout as stored in Postgres.
type WorkoutAggregate struct {
	RecordMeta
	PerformedAt time.Time
	Title       string
	Exercises   []strain.Exercise
}

// Record projects the aggregate onto the scoring model input.
func (w WorkoutAggregate) Record() strain.Workout {
	return strain.Workout{ID: w.ID, Timestamp: w.PerformedAt, Exercises: w.Exercises}
}

// CompletedSets counts completed sets across every exercise.
func (w WorkoutAggregate) CompletedSets() int {
	total := 0
	for _, ex := range w.Exercises {
		total += ex.CompletedSets()
	}
	return total
}

// Muscles returns the distinct muscle tags of the workout in first-seen order.
func (w WorkoutAggregate) Muscles() []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, ex := range w.Exercises {
		for _, m := range ex.Muscles {
			if _, ok := seen[m]; ok || m == "" {
				continue
			}
			seen[m] = struct{}{}
			out = append(out, m)
		}
	}
	return out
}

// HikeAggregate is a hike as stored in Postgres.
type HikeAggregate struct {
	RecordMeta
	StartedAt     time.Time
	Trail         string
	DurationMin   int
	DistanceKm    float64
	ElevationM    int
	ActiveMuscles []string
}

// Record projects the aggregate onto the scoring model input.
func (h HikeAggregate) Record() strain.Hike {
	return strain.Hike{
		ID:            h.ID,
		Timestamp:     h.StartedAt,
		DurationMin:   h.DurationMin,
		DistanceKm:    h.DistanceKm,
		ActiveMuscles: h.ActiveMuscles,
	}
}

// RestDayAggregate is a rest day as stored in Postgres.
type RestDayAggregate struct {
	RecordMeta
	Day  time.Time
	Note string
}

// Record projects the aggregate onto the scoring model input.
func (r RestDayAggregate) Record() strain.RestDay {
	return strain.RestDay{ID: r.ID, Timestamp: r.Day}
}

// ErrInvalidRecord is returned when a record fails validation.
var ErrInvalidRecord = errors.New("invalid record")

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidRecord, fmt.Sprintf(format, args...))
}

func normalizeMuscles(muscles []string) []string {
	out := make([]string, 0, len(muscles))
	seen := make(map[string]struct{}, len(muscles))
	for _, m := range muscles {
		m = strings.ToLower(strings.TrimSpace(m))
		if m == "" {
			continue
		}
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		out = append(out, m)
	}
	return out
}
