package strain

import (
	"math"
	"time"
)

const day = 24 * time.Hour

// Policy turns a single record into a weighted severity. The strain accumulator and the
// client load aggregator share this contract and differ only in the parameter set.
type Policy interface {
	ExerciseSeverity(Exercise) float64
	HikeSeverity(Hike) float64
	// Weight returns the multiplier for a record of the given age. A weight of zero with
	// ok=false means the record falls outside the window and must be skipped.
	Weight(age time.Duration) (weight float64, ok bool)
	// Ceiling is the cap applied to every accumulated value.
	Ceiling() float64
}

// LinearPolicy weights severities with a linear decay over a fixed window.
type LinearPolicy struct {
	// Window bounds the age of contributing records. Zero means unbounded.
	Window     time.Duration `toml:"window"`
	SetWeight  float64       `toml:"set_weight"`
	HourWeight float64       `toml:"hour_weight"`
	Cap        float64       `toml:"cap"`
	// Decay scales contributions by max(0, 1 - age/Window). Without it every record inside
	// the window carries full weight.
	Decay bool `toml:"decay"`
}

var _ Policy = LinearPolicy{}

// DefaultStrainPolicy is the per-muscle heatmap policy: 14 day linear decay,
// 0.1 per completed set, 0.4 per hour hiked, each muscle capped at 1.0.
func DefaultStrainPolicy() LinearPolicy {
	return LinearPolicy{
		Window:     14 * day,
		SetWeight:  0.1,
		HourWeight: 0.4,
		Cap:        1.0,
		Decay:      true,
	}
}

// DefaultClientLoadPolicy is the trainer view policy: no window, no decay,
// 2 points per completed set, 5 points per hour hiked, capped at 100.
func DefaultClientLoadPolicy() LinearPolicy {
	return LinearPolicy{
		SetWeight:  2,
		HourWeight: 5,
		Cap:        100,
	}
}

// ExerciseSeverity implements Policy.
func (p LinearPolicy) ExerciseSeverity(ex Exercise) float64 {
	return float64(ex.CompletedSets()) * p.SetWeight
}

// HikeSeverity implements Policy.
func (p LinearPolicy) HikeSeverity(h Hike) float64 {
	if h.DurationMin <= 0 {
		return 0
	}
	return float64(h.DurationMin) / 60 * p.HourWeight
}

// Weight implements Policy. Records dated in the future are treated as happening now.
func (p LinearPolicy) Weight(age time.Duration) (float64, bool) {
	if age < 0 {
		age = 0
	}
	if p.Window <= 0 {
		return 1, true
	}
	daysAgo := age.Hours() / 24
	windowDays := p.Window.Hours() / 24
	if daysAgo > windowDays {
		return 0, false
	}
	if !p.Decay {
		return 1, true
	}
	return Decay(daysAgo, windowDays), true
}

// Ceiling implements Policy.
func (p LinearPolicy) Ceiling() float64 {
	if p.Cap <= 0 {
		return math.Inf(1)
	}
	return p.Cap
}

// Decay is the linear recency multiplier: 1 at daysAgo=0, 0 at daysAgo>=windowDays.
func Decay(daysAgo, windowDays float64) float64 {
	if windowDays <= 0 {
		return 0
	}
	return math.Max(0, 1-daysAgo/windowDays)
}
