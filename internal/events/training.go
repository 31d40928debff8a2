// Package events defines the training event payloads published through the outbox.
package events

import "time"

// Event types recorded in the outbox and carried in the Kafka event_type header.
const (
	TypeWorkoutLogged = "workout.logged"
	TypeHikeLogged    = "hike.logged"
	TypeRestDayLogged = "rest_day.logged"
)

// TrainingTopic is the Kafka topic every training event is published to.
const TrainingTopic = "training_events"

// WorkoutLogged is emitted when a workout is accepted.
type WorkoutLogged struct {
	WorkoutID     string    `json:"workout_id"`
	TenantID      string    `json:"tenant_id"`
	UserID        string    `json:"user_id"`
	PerformedAt   time.Time `json:"performed_at"`
	ExerciseCount int       `json:"exercise_count"`
	CompletedSets int       `json:"completed_sets"`
	Muscles       []string  `json:"muscles"`
	Source        string    `json:"source"`
	Version       string    `json:"version"`
}

// HikeLogged is emitted when a hike is accepted.
type HikeLogged struct {
	HikeID        string    `json:"hike_id"`
	TenantID      string    `json:"tenant_id"`
	UserID        string    `json:"user_id"`
	StartedAt     time.Time `json:"started_at"`
	DurationMin   int       `json:"duration_min"`
	DistanceKm    float64   `json:"distance_km"`
	ActiveMuscles []string  `json:"active_muscles"`
	Source        string    `json:"source"`
	Version       string    `json:"version"`
}

// RestDayLogged is emitted when a rest day is recorded.
type RestDayLogged struct {
	RestDayID string    `json:"rest_day_id"`
	TenantID  string    `json:"tenant_id"`
	UserID    string    `json:"user_id"`
	Date      time.Time `json:"date"`
	Source    string    `json:"source"`
	Version   string    `json:"version"`
}

// Envelope is the subset of fields shared by every training event, used by consumers that
// only need to know whose data changed.
type Envelope struct {
	TenantID string `json:"tenant_id"`
	UserID   string `json:"user_id"`
}

// SchemaSubject names the Schema Registry subject of an event type. Every event type shares the
// training topic, so subjects follow the topic-record naming strategy.
func SchemaSubject(eventType string) string {
	return TrainingTopic + "-" + eventType
}
