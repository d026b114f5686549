package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// StabilityGauges reports the four normalized stability signals plus their
// convex combination, one Record call per completed round. Safe to build
// from a no-op meter when telemetry is disabled.
type StabilityGauges struct {
	contradictionRatio metric.Float64Gauge
	decisionReuseRate  metric.Float64Gauge
	planSimilarity     metric.Float64Gauge
	goalConvergence    metric.Float64Gauge
	overall            metric.Float64Gauge
}

// NewStabilityGauges registers the stability gauges against the given meter.
func NewStabilityGauges(meter metric.Meter) *StabilityGauges {
	g := &StabilityGauges{}
	g.contradictionRatio, _ = meter.Float64Gauge("convergence.stability.contradiction_ratio")
	g.decisionReuseRate, _ = meter.Float64Gauge("convergence.stability.decision_reuse_rate")
	g.planSimilarity, _ = meter.Float64Gauge("convergence.stability.plan_similarity")
	g.goalConvergence, _ = meter.Float64Gauge("convergence.stability.goal_convergence")
	g.overall, _ = meter.Float64Gauge("convergence.stability.overall")
	return g
}

// Record sets every gauge to its value for the round that just completed.
func (g *StabilityGauges) Record(ctx context.Context, contradictionRatio, decisionReuseRate, planSimilarity, goalConvergence, overall float64) {
	g.contradictionRatio.Record(ctx, contradictionRatio)
	g.decisionReuseRate.Record(ctx, decisionReuseRate)
	g.planSimilarity.Record(ctx, planSimilarity)
	g.goalConvergence.Record(ctx, goalConvergence)
	g.overall.Record(ctx, overall)
}

// RoundSpanTracker starts one span per convergence round. Starting a new
// round closes whatever span was still open for the previous one; the
// final round's span is closed explicitly via EndFinalRound once the run's
// termination reason is known.
type RoundSpanTracker struct {
	tracer oteltrace.Tracer
	span   oteltrace.Span
}

// NewRoundSpanTracker builds a tracker around the given tracer.
func NewRoundSpanTracker(tracer oteltrace.Tracer) *RoundSpanTracker {
	return &RoundSpanTracker{tracer: tracer}
}

// StartRound closes the previous round's span, if still open, and opens
// "convergence.round" for the new one.
func (t *RoundSpanTracker) StartRound(ctx context.Context, number int, phase string) context.Context {
	if t.span != nil {
		t.span.End()
	}
	var spanCtx context.Context
	spanCtx, t.span = t.tracer.Start(ctx, "convergence.round",
		oteltrace.WithAttributes(
			attribute.Int("round.number", number),
			attribute.String("round.phase", phase),
		),
	)
	return spanCtx
}

// EndFinalRound attaches the run's termination reason to the in-flight
// round's span and closes it. Call once, when the run terminates.
func (t *RoundSpanTracker) EndFinalRound(reason string) {
	if t.span == nil {
		return
	}
	t.span.SetAttributes(attribute.String("round.termination_reason", reason))
	t.span.End()
	t.span = nil
}
