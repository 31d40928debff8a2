package domain

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mxrk333/trailquest-fitnessapp-sub000/internal/observability"
	"github.com/mxrk333/trailquest-fitnessapp-sub000/internal/strain"
)

// StrainReport is the per-muscle fatigue read model.
type StrainReport struct {
	UserID     string
	Intensity  strain.IntensityMap
	Heatmap    []strain.HeatmapCell
	Workouts   int
	Hikes      int
	ComputedAt time.Time
}

// Strain recomputes the muscle intensity map from the user's most recent records.
func (s *Service) Strain(ctx context.Context, tenantID, userID string) (*StrainReport, error) {
	started := time.Now()
	defer observability.ObserveScoring("strain", started)

	h, err := s.loadHistory(ctx, tenantID, userID, false)
	if err != nil {
		return nil, err
	}

	now := s.now()
	intensity := strain.Accumulate(s.scoring.Strain, h.workouts, h.hikes, now)
	return &StrainReport{
		UserID:     userID,
		Intensity:  intensity,
		Heatmap:    strain.Heatmap(intensity),
		Workouts:   len(h.workouts),
		Hikes:      len(h.hikes),
		ComputedAt: now,
	}, nil
}

// ReadinessReport is the readiness read model.
type ReadinessReport struct {
	UserID         string
	Score          int
	Recommendation strain.Recommendation
	TotalStrain    float64
	RecentRestDays int
	// NoData is set when the user has no records at all. The score is still 100 in that case,
	// so callers can tell "never trained" apart from "fully rested" without the score changing.
	NoData     bool
	ComputedAt time.Time
}

// Readiness recomputes the readiness score. It is never cached.
func (s *Service) Readiness(ctx context.Context, tenantID, userID string) (*ReadinessReport, error) {
	started := time.Now()
	defer observability.ObserveScoring("readiness", started)

	h, err := s.loadHistory(ctx, tenantID, userID, true)
	if err != nil {
		return nil, err
	}
	return s.scoreHistory(userID, h), nil
}

func (s *Service) scoreHistory(userID string, h history) *ReadinessReport {
	now := s.now()
	intensity := strain.Accumulate(s.scoring.Strain, h.workouts, h.hikes, now)
	score := strain.Readiness(s.scoring.Readiness, intensity, h.restDays, now)
	return &ReadinessReport{
		UserID:         userID,
		Score:          score,
		Recommendation: strain.Recommend(s.scoring.Recommendation, score),
		TotalStrain:    intensity.Total(),
		RecentRestDays: strain.RecentRestDays(h.restDays, s.scoring.Readiness.RestDayWindow, now),
		NoData:         h.empty(),
		ComputedAt:     now,
	}
}

// ClientReport is one row of the trainer overview.
type ClientReport struct {
	Client
	strain.ClientSummary
}

const clientFanOut = 8

// ClientOverview summarises every client of a trainer, ranked active first, then by load and
// recency.
func (s *Service) ClientOverview(ctx context.Context, tenantID, trainerID string) ([]ClientReport, error) {
	started := time.Now()
	defer observability.ObserveScoring("client_overview", started)

	clients, err := s.repo.ListClients(ctx, tenantID, trainerID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	summaries := make([]strain.ClientSummary, len(clients))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(clientFanOut)
	for i, client := range clients {
		g.Go(func() error {
			h, err := s.loadHistory(gctx, tenantID, client.ID, false)
			if err != nil {
				return err
			}
			summaries[i] = strain.ClientLoad(s.scoring.ClientLoad, s.scoring.Clients, h.workouts, h.hikes, now)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	ranked := make([]strain.RankedClient, len(clients))
	byID := make(map[string]Client, len(clients))
	for i, client := range clients {
		ranked[i] = strain.RankedClient{ClientID: client.ID, Summary: summaries[i]}
		byID[client.ID] = client
	}
	strain.RankClients(ranked)

	reports := make([]ClientReport, 0, len(ranked))
	for _, r := range ranked {
		reports = append(reports, ClientReport{Client: byID[r.ClientID], ClientSummary: r.Summary})
	}
	return reports, nil
}
