package strain

import "sort"

// KnownMuscles are the muscle groups the dashboard body map can draw, in display order.
var KnownMuscles = []string{
	"chest",
	"shoulders",
	"biceps",
	"abs",
	"quads",
	"back",
	"glutes",
	"hamstrings",
	"calves",
}

// HeatmapCell is one muscle entry of the body map.
type HeatmapCell struct {
	Muscle    string  `json:"muscle"`
	Intensity float64 `json:"intensity"`
	Known     bool    `json:"known"`
}

// Heatmap lays out the intensity map for rendering: known muscles first in display order
// (zero when absent), then any other tagged muscles sorted by name.
func Heatmap(intensity IntensityMap) []HeatmapCell {
	known := make(map[string]struct{}, len(KnownMuscles))
	cells := make([]HeatmapCell, 0, len(KnownMuscles)+len(intensity))
	for _, muscle := range KnownMuscles {
		known[muscle] = struct{}{}
		cells = append(cells, HeatmapCell{Muscle: muscle, Intensity: intensity[muscle], Known: true})
	}

	extra := make([]string, 0)
	for muscle := range intensity {
		if _, ok := known[muscle]; !ok {
			extra = append(extra, muscle)
		}
	}
	sort.Strings(extra)
	for _, muscle := range extra {
		cells = append(cells, HeatmapCell{Muscle: muscle, Intensity: intensity[muscle]})
	}
	return cells
}
