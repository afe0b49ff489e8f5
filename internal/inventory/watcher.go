package inventory

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/ariefcatur/go-commerce-api/internal/events"
	kafkax "github.com/ariefcatur/go-commerce-api/internal/kafka"
	"github.com/ariefcatur/go-commerce-api/internal/redisx"
)

// Watcher consumes stock adjustments and warns when a product runs low.
type Watcher struct {
	Redis     *redis.Client // optional, deduplicates redelivered events
	Threshold int
	Log       *slog.Logger
	Name      string
}

// Low is one product at or below the threshold after an adjustment.
type Low struct {
	ProductID string
	Name      string
	Remaining int
}

// HandleStockAdjusted is installed as a consumer handler.
func (w *Watcher) HandleStockAdjusted(ctx context.Context, m kafkago.Message) error {
	env, err := kafkax.DecodeEnvelope(m)
	if err != nil {
		w.Log.ErrorContext(ctx, "skipping undecodable stock event", "offset", m.Offset, "err", err)
		return nil
	}
	if env.EventType != events.StockAdjusted {
		return nil
	}

	if w.Redis != nil {
		first, err := redisx.FirstSeen(ctx, w.Redis, fmt.Sprintf(redisx.KeyDedup, w.Name, env.EventID), redisx.TTLDedup)
		if err != nil {
			return fmt.Errorf("dedup %s: %w", env.EventID, err)
		}
		if !first {
			return nil
		}
	}

	p, err := events.Decode[events.StockAdjustedPayload](env)
	if err != nil {
		w.Log.ErrorContext(ctx, "skipping stock event with bad payload", "event_id", env.EventID, "err", err)
		return nil
	}
	for _, l := range w.Check(p) {
		w.Log.WarnContext(ctx, "product stock low",
			"product_id", l.ProductID, "name", l.Name, "remaining", l.Remaining, "order_id", p.OrderID)
	}
	return nil
}

// Check returns the lines of p that ended at or below the threshold.
func (w *Watcher) Check(p events.StockAdjustedPayload) []Low {
	var out []Low
	for _, l := range p.Lines {
		if l.Remaining <= w.Threshold {
			out = append(out, Low{ProductID: l.ProductID, Name: l.Name, Remaining: l.Remaining})
		}
	}
	return out
}
