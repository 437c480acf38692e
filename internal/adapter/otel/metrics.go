package otel

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "missionforge"

// Metrics holds all MissionForge metric instruments.
type Metrics struct {
	MissionsStarted   metric.Int64Counter
	MissionsApproved  metric.Int64Counter
	MissionsFailed    metric.Int64Counter
	GenerationCalls   metric.Int64Counter
	MissionDuration   metric.Float64Histogram
	MissionCost       metric.Float64Histogram
	MissionRounds     metric.Int64Histogram
}

// NewMetrics creates all metric instruments.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.MissionsStarted, err = meter.Int64Counter("missionforge.missions.started",
		metric.WithDescription("Number of missions started"))
	if err != nil {
		return nil, err
	}

	m.MissionsApproved, err = meter.Int64Counter("missionforge.missions.approved",
		metric.WithDescription("Number of missions ending approved"))
	if err != nil {
		return nil, err
	}

	m.MissionsFailed, err = meter.Int64Counter("missionforge.missions.failed",
		metric.WithDescription("Number of missions ending failed, aborted or cancelled"))
	if err != nil {
		return nil, err
	}

	m.GenerationCalls, err = meter.Int64Counter("missionforge.generation.calls",
		metric.WithDescription("Number of generation calls issued"))
	if err != nil {
		return nil, err
	}

	m.MissionDuration, err = meter.Float64Histogram("missionforge.mission.duration_seconds",
		metric.WithDescription("Mission wall-clock duration in seconds"))
	if err != nil {
		return nil, err
	}

	m.MissionCost, err = meter.Float64Histogram("missionforge.mission.cost_usd",
		metric.WithDescription("Mission total cost in USD"))
	if err != nil {
		return nil, err
	}

	m.MissionRounds, err = meter.Int64Histogram("missionforge.mission.rounds",
		metric.WithDescription("Rounds consumed per mission"))
	if err != nil {
		return nil, err
	}

	return m, nil
}
