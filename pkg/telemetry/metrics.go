package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/ghuser/lostfound"

// Metrics holds the domain counters. A nil *Metrics is a valid no-op.
type Metrics struct {
	claimsSubmitted metric.Int64Counter
	claimsDecided   metric.Int64Counter
	aiFallbacks     metric.Int64Counter
	chatMessages    metric.Int64Counter
	chatDenied      metric.Int64Counter
}

// NewMetrics registers the domain instruments on mp.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	meter := mp.Meter(meterName)
	m := &Metrics{}
	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
	}{
		{&m.claimsSubmitted, "lostfound.claims.submitted", "Claims accepted for review"},
		{&m.claimsDecided, "lostfound.claims.decided", "Admin claim decisions by outcome"},
		{&m.aiFallbacks, "lostfound.ai.fallbacks", "AI provider failures replaced by fallback values"},
		{&m.chatMessages, "lostfound.chat.messages", "Chat messages accepted"},
		{&m.chatDenied, "lostfound.chat.denied", "Realtime events dropped by the chat gate"},
	}
	for _, c := range counters {
		counter, err := meter.Int64Counter(c.name, metric.WithDescription(c.desc))
		if err != nil {
			return nil, fmt.Errorf("metric %s: %w", c.name, err)
		}
		*c.dst = counter
	}
	return m, nil
}

func (m *Metrics) ClaimSubmitted(ctx context.Context) {
	if m == nil {
		return
	}
	m.claimsSubmitted.Add(ctx, 1)
}

func (m *Metrics) ClaimDecided(ctx context.Context, decision string) {
	if m == nil {
		return
	}
	m.claimsDecided.Add(ctx, 1, metric.WithAttributes(attribute.String("decision", decision)))
}

func (m *Metrics) AIFallback(ctx context.Context, operation string) {
	if m == nil {
		return
	}
	m.aiFallbacks.Add(ctx, 1, metric.WithAttributes(attribute.String("operation", operation)))
}

func (m *Metrics) ChatMessage(ctx context.Context) {
	if m == nil {
		return
	}
	m.chatMessages.Add(ctx, 1)
}

func (m *Metrics) ChatDenied(ctx context.Context, event string) {
	if m == nil {
		return
	}
	m.chatDenied.Add(ctx, 1, metric.WithAttributes(attribute.String("event", event)))
}
