package strain

import (
	"math"
	"time"
)

// contribution is a weighted severity applied to a set of muscles.
type contribution struct {
	muscles []string
	value   float64
}

// contributions walks workouts and hikes once and yields every non-zero weighted severity
// the policy admits at the given instant.
func contributions(policy Policy, workouts []Workout, hikes []Hike, now time.Time) []contribution {
	out := make([]contribution, 0, len(workouts)+len(hikes))

	for _, workout := range workouts {
		weight, ok := policy.Weight(now.Sub(workout.Timestamp))
		if !ok {
			continue
		}
		for _, ex := range workout.Exercises {
			value := policy.ExerciseSeverity(ex) * weight
			if value <= 0 || math.IsNaN(value) {
				continue
			}
			out = append(out, contribution{muscles: ex.Muscles, value: value})
		}
	}

	for _, hike := range hikes {
		weight, ok := policy.Weight(now.Sub(hike.Timestamp))
		if !ok {
			continue
		}
		value := policy.HikeSeverity(hike) * weight
		if value <= 0 || math.IsNaN(value) {
			continue
		}
		out = append(out, contribution{muscles: hike.ActiveMuscles, value: value})
	}

	return out
}

// Accumulate builds the per-muscle intensity map. Every muscle tagged on a record receives the
// record's full weighted severity, and each muscle is capped independently at the policy ceiling.
// Values are never rescaled against each other.
func Accumulate(policy Policy, workouts []Workout, hikes []Hike, now time.Time) IntensityMap {
	intensity := make(IntensityMap)
	for _, c := range contributions(policy, workouts, hikes, now) {
		for _, muscle := range c.muscles {
			if muscle == "" {
				continue
			}
			intensity[muscle] += c.value
		}
	}

	ceiling := policy.Ceiling()
	for muscle, value := range intensity {
		intensity[muscle] = math.Min(value, ceiling)
	}
	return intensity
}

// TotalLoad sums weighted severities across all records regardless of muscle tags and caps
// the result at the policy ceiling.
func TotalLoad(policy Policy, workouts []Workout, hikes []Hike, now time.Time) float64 {
	total := 0.0
	for _, c := range contributions(policy, workouts, hikes, now) {
		total += c.value
	}
	return math.Min(total, policy.Ceiling())
}
