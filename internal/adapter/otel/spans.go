package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "missionforge"

// StartMissionSpan starts a span for one mission execution.
func StartMissionSpan(ctx context.Context, missionID, jobID, project string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "mission",
		trace.WithAttributes(
			attribute.String("mission.id", missionID),
			attribute.String("job.id", jobID),
			attribute.String("mission.project", project),
		),
	)
}

// StartRoundSpan starts a span for one round within a mission.
func StartRoundSpan(ctx context.Context, missionID string, round int) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "round",
		trace.WithAttributes(
			attribute.String("mission.id", missionID),
			attribute.Int("round.index", round),
		),
	)
}

// StartSideOpsSpan starts a span for the side-operation batch of a round.
func StartSideOpsSpan(ctx context.Context, missionID string, round int) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "sideops",
		trace.WithAttributes(
			attribute.String("mission.id", missionID),
			attribute.Int("round.index", round),
		),
	)
}
