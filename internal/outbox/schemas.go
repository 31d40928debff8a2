package outbox

import "github.com/mxrk333/trailquest-fitnessapp-sub000/internal/events"

const workoutLoggedSchema = `{
  "type": "object",
  "title": "WorkoutLogged",
  "properties": {
    "workout_id": {"type": "string"},
    "tenant_id": {"type": "string"},
    "user_id": {"type": "string"},
    "performed_at": {"type": "string", "format": "date-time"},
    "exercise_count": {"type": "integer", "minimum": 0},
    "completed_sets": {"type": "integer", "minimum": 0},
    "muscles": {"type": "array", "items": {"type": "string"}},
    "source": {"type": "string"},
    "version": {"type": "string"}
  },
  "required": ["workout_id", "tenant_id", "user_id", "performed_at", "exercise_count", "completed_sets", "source", "version"],
  "additionalProperties": false
}`

const hikeLoggedSchema = `{
  "type": "object",
  "title": "HikeLogged",
  "properties": {
    "hike_id": {"type": "string"},
    "tenant_id": {"type": "string"},
    "user_id": {"type": "string"},
    "started_at": {"type": "string", "format": "date-time"},
    "duration_min": {"type": "integer", "minimum": 1},
    "distance_km": {"type": "number", "minimum": 0},
    "active_muscles": {"type": "array", "items": {"type": "string"}},
    "source": {"type": "string"},
    "version": {"type": "string"}
  },
  "required": ["hike_id", "tenant_id", "user_id", "started_at", "duration_min", "source", "version"],
  "additionalProperties": false
}`

const restDayLoggedSchema = `{
  "type": "object",
  "title": "RestDayLogged",
  "properties": {
    "rest_day_id": {"type": "string"},
    "tenant_id": {"type": "string"},
    "user_id": {"type": "string"},
    "date": {"type": "string", "format": "date-time"},
    "source": {"type": "string"},
    "version": {"type": "string"}
  },
  "required": ["rest_day_id", "tenant_id", "user_id", "date", "source", "version"],
  "additionalProperties": false
}`

// SchemaCatalogEntry maps event type to schema definition.
type SchemaCatalogEntry struct {
	Schema string
}

var schemaCatalog = map[string]SchemaCatalogEntry{
	events.TypeWorkoutLogged: {Schema: workoutLoggedSchema},
	events.TypeHikeLogged:    {Schema: hikeLoggedSchema},
	events.TypeRestDayLogged: {Schema: restDayLoggedSchema},
}
