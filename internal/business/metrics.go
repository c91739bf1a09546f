package business

import (
	"context"

	"github.com/openkcm/common-sdk/pkg/otlp"
	"github.com/samber/oops"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/openkcm/memory-match/internal/config"
	"github.com/openkcm/memory-match/internal/session"
)

type gameMeters struct {
	matches    metric.Int64Counter
	mismatches metric.Int64Counter
	completed  metric.Int64Counter
	finalScore metric.Int64Histogram
}

func newGameMeters(ctx context.Context, cfg *config.Config) (*gameMeters, error) {
	meter := otel.Meter(
		"game/"+cfg.Application.Name,
		metric.WithInstrumentationVersion(otel.Version()),
		metric.WithInstrumentationAttributes(otlp.CreateAttributesFrom(cfg.Application)...),
	)

	var (
		m   gameMeters
		err error
	)

	m.matches, err = meter.Int64Counter(
		"game.matches",
		metric.WithDescription("Matched pairs"),
		metric.WithUnit("pair"),
	)
	if err != nil {
		return nil, oops.In("Game").
			WithContext(ctx).
			Wrapf(err, "creating matches meter")
	}

	m.mismatches, err = meter.Int64Counter(
		"game.mismatches",
		metric.WithDescription("Mismatched pairs"),
		metric.WithUnit("pair"),
	)
	if err != nil {
		return nil, oops.In("Game").
			WithContext(ctx).
			Wrapf(err, "creating mismatches meter")
	}

	m.completed, err = meter.Int64Counter(
		"game.completed",
		metric.WithDescription("Games played to the end"),
		metric.WithUnit("game"),
	)
	if err != nil {
		return nil, oops.In("Game").
			WithContext(ctx).
			Wrapf(err, "creating completed meter")
	}

	m.finalScore, err = meter.Int64Histogram(
		"game.final_score",
		metric.WithDescription("Score at the end of a game"),
		metric.WithUnit("point"),
	)
	if err != nil {
		return nil, oops.In("Game").
			WithContext(ctx).
			Wrapf(err, "creating final score meter")
	}

	return &m, nil
}

// registerMetrics records the manager's events on the game meters.
func registerMetrics(ctx context.Context, cfg *config.Config, manager *session.Manager) error {
	m, err := newGameMeters(ctx, cfg)
	if err != nil {
		return err
	}

	// Board size comes from the session current at each event.
	attrs := func() metric.MeasurementOption {
		v := manager.Snapshot()
		return metric.WithAttributes(
			otlp.CreateAttributesFrom(cfg.Application,
				attribute.Int("rows", v.Rows),
				attribute.Int("columns", v.Columns),
				attribute.String("backend", cfg.Storage.Backend),
			)...,
		)
	}

	events := manager.Events()
	events.Match.Add(func(session.Pair) {
		m.matches.Add(ctx, 1, attrs())
	})
	events.Mismatch.Add(func(session.Pair) {
		m.mismatches.Add(ctx, 1, attrs())
	})
	events.GameOver.Add(func(score int) {
		opt := attrs()
		m.completed.Add(ctx, 1, opt)
		m.finalScore.Record(ctx, int64(score), opt)
	})

	return nil
}
