package strain

import (
	"math"
	"time"
)

// ReadinessParams holds the readiness heuristic constants.
type ReadinessParams struct {
	// StrainPenalty converts total intensity into readiness points lost.
	StrainPenalty float64 `toml:"strain_penalty"`
	// RestDayBonus is added once per rest day inside RestDayWindow.
	RestDayBonus  float64       `toml:"rest_day_bonus"`
	RestDayWindow time.Duration `toml:"rest_day_window"`
	Max           int           `toml:"max"`
}

// DefaultReadinessParams returns the stock constants: x10 strain penalty, +20 per rest day
// within 48 hours, capped at 100.
func DefaultReadinessParams() ReadinessParams {
	return ReadinessParams{
		StrainPenalty: 10,
		RestDayBonus:  20,
		RestDayWindow: 48 * time.Hour,
		Max:           100,
	}
}

// RecentRestDays counts rest days at or after now-window. Future-dated entries count.
func RecentRestDays(restDays []RestDay, window time.Duration, now time.Time) int {
	cutoff := now.Add(-window)
	count := 0
	for _, rd := range restDays {
		if !rd.Timestamp.Before(cutoff) {
			count++
		}
	}
	return count
}

// Readiness reduces an intensity map and recent rest days into a score in [0, params.Max].
//
// An empty map scores as fully fresh. No data therefore reads the same as a fully rested user;
// callers that need to tell the two apart must check for records themselves.
func Readiness(params ReadinessParams, intensity IntensityMap, restDays []RestDay, now time.Time) int {
	maxScore := float64(params.Max)
	if maxScore <= 0 {
		maxScore = 100
	}

	base := maxScore
	if len(intensity) > 0 {
		systemLoad := intensity.Total() * params.StrainPenalty
		base = math.Max(0, maxScore-systemLoad)
	}

	bonus := float64(RecentRestDays(restDays, params.RestDayWindow, now)) * params.RestDayBonus
	score := math.Min(maxScore, math.Round(base+bonus))
	if score < 0 || math.IsNaN(score) {
		return 0
	}
	return int(score)
}

// Recommendation is the training suggestion derived from a readiness score.
type Recommendation string

const (
	RecommendTrainHard      Recommendation = "train_hard"
	RecommendActiveRecovery Recommendation = "active_recovery"
	RecommendRest           Recommendation = "rest"
)

// RecommendationThresholds are the lower score bounds of each band.
type RecommendationThresholds struct {
	TrainHard      int `toml:"train_hard"`
	ActiveRecovery int `toml:"active_recovery"`
}

// DefaultRecommendationThresholds: 80+ train hard, 50-79 active recovery, below 50 rest.
func DefaultRecommendationThresholds() RecommendationThresholds {
	return RecommendationThresholds{TrainHard: 80, ActiveRecovery: 50}
}

// Recommend maps a score onto a recommendation band.
func Recommend(t RecommendationThresholds, score int) Recommendation {
	switch {
	case score >= t.TrainHard:
		return RecommendTrainHard
	case score >= t.ActiveRecovery:
		return RecommendActiveRecovery
	default:
		return RecommendRest
	}
}
