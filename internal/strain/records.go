// Package strain computes per-muscle fatigue, readiness and client load from recent training records.
//
// Every function in this package is pure: callers supply the records and the reference instant,
// nothing reads the system clock and nothing returns an error. Missing or nonsensical numeric
// fields degrade to a zero contribution.
package strain

import "time"

// Set is a single set performed as part of an exercise.
type Set struct {
	Reps      int     `json:"reps"`
	WeightKg  float64 `json:"weight_kg"`
	Completed bool    `json:"completed"`
}

// Exercise groups the sets of one movement and the muscles it loads.
type Exercise struct {
	Name    string   `json:"name"`
	Muscles []string `json:"muscles"`
	Sets    []Set    `json:"sets"`
}

// CompletedSets counts the sets marked as completed.
func (e Exercise) CompletedSets() int {
	count := 0
	for _, set := range e.Sets {
		if set.Completed {
			count++
		}
	}
	return count
}

// Workout is a logged strength session.
type Workout struct {
	ID        string     `json:"id"`
	Timestamp time.Time  `json:"timestamp"`
	Exercises []Exercise `json:"exercises"`
}

// Hike is a logged hike. DurationMin is expressed in minutes.
type Hike struct {
	ID            string    `json:"id"`
	Timestamp     time.Time `json:"timestamp"`
	DurationMin   int       `json:"duration_min"`
	DistanceKm    float64   `json:"distance_km"`
	ActiveMuscles []string  `json:"active_muscles"`
}

// RestDay marks a day deliberately taken off.
type RestDay struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
}

// IntensityMap maps a muscle group to its accumulated intensity.
type IntensityMap map[string]float64

// Total sums every intensity value in the map.
func (m IntensityMap) Total() float64 {
	total := 0.0
	for _, value := range m {
		total += value
	}
	return total
}
