package strain

import (
	"math"
	"sort"
	"time"
)

// ClientStatus reports whether a client trained recently.
type ClientStatus string

const (
	ClientActive   ClientStatus = "Active"
	ClientInactive ClientStatus = "Inactive"
)

// ClientLoadParams configures the trainer view aggregation.
type ClientLoadParams struct {
	ActiveWindow time.Duration `toml:"active_window"`
}

// DefaultClientLoadParams treats clients seen in the last 3 days as active.
func DefaultClientLoadParams() ClientLoadParams {
	return ClientLoadParams{ActiveWindow: 3 * day}
}

// ClientSummary is the trainer-facing reduction of a client's recent activity.
type ClientSummary struct {
	LastActiveAt    *time.Time   `json:"last_active_at,omitempty"`
	Status          ClientStatus `json:"status"`
	MuscleLoad      int          `json:"muscle_load"`
	TotalActivities int          `json:"total_activities"`
}

// ClientLoad summarises a client's workouts and hikes. The load is a plain weighted sum over
// every supplied record, which is why the trainer view uses DefaultClientLoadPolicy rather than
// the decayed per-muscle strain policy.
func ClientLoad(policy Policy, params ClientLoadParams, workouts []Workout, hikes []Hike, now time.Time) ClientSummary {
	summary := ClientSummary{
		Status:          ClientInactive,
		TotalActivities: len(workouts) + len(hikes),
	}

	var last time.Time
	for _, w := range workouts {
		if w.Timestamp.After(last) {
			last = w.Timestamp
		}
	}
	for _, h := range hikes {
		if h.Timestamp.After(last) {
			last = h.Timestamp
		}
	}
	if !last.IsZero() {
		summary.LastActiveAt = &last
		if now.Sub(last) <= params.ActiveWindow {
			summary.Status = ClientActive
		}
	}

	load := math.Round(TotalLoad(policy, workouts, hikes, now))
	summary.MuscleLoad = int(math.Max(0, load))
	return summary
}

// RankedClient pairs a client identifier with its summary.
type RankedClient struct {
	ClientID string
	Summary  ClientSummary
}

// RankClients orders clients for the trainer view: active first, then heavier load, then
// most recently active, then by ID.
func RankClients(clients []RankedClient) {
	sort.SliceStable(clients, func(i, j int) bool {
		a, b := clients[i].Summary, clients[j].Summary
		if a.Status != b.Status {
			return a.Status == ClientActive
		}
		if a.MuscleLoad != b.MuscleLoad {
			return a.MuscleLoad > b.MuscleLoad
		}
		at, bt := lastActive(a), lastActive(b)
		if !at.Equal(bt) {
			return at.After(bt)
		}
		return clients[i].ClientID < clients[j].ClientID
	})
}

func lastActive(s ClientSummary) time.Time {
	if s.LastActiveAt == nil {
		return time.Time{}
	}
	return *s.LastActiveAt
}
