package workers

import (
	"context"
	"log/slog"
	"time"

	application "concord/contexts/governance/promotion-engine/application"
	"concord/contexts/governance/promotion-engine/application/commands"
	"concord/contexts/governance/promotion-engine/ports"
)

// ResolutionSweeper closes open promotions whose voting window elapsed, so
// resolution does not depend on a caller happening to ask for a tally.
type ResolutionSweeper struct {
	Promotions ports.PromotionRepository
	Engine     commands.PromotionUseCase
	Clock      ports.Clock
	BatchSize  int
	Logger     *slog.Logger
}

// RunOnce resolves a bounded batch of overdue promotions. Each promotion is
// resolved independently; one failure stops the cycle so the retry loop can
// reprocess the remainder.
func (s ResolutionSweeper) RunOnce(ctx context.Context) error {
	logger := application.ResolveLogger(s.Logger)
	limit := s.BatchSize
	if limit <= 0 {
		limit = 100
	}
	now := time.Now().UTC()
	if s.Clock != nil {
		now = s.Clock.Now().UTC()
	}

	due, err := s.Promotions.ListOpenPromotionsDue(ctx, now, limit)
	if err != nil {
		logger.Error("promotion sweep list failed",
			"event", "governance_resolution_sweep_list_failed",
			"module", "governance/promotion-engine",
			"layer", "worker",
			"error", err.Error(),
		)
		return err
	}
	if len(due) == 0 {
		return nil
	}

	for _, promotion := range due {
		result, err := s.Engine.ResolvePromotion(ctx, commands.ResolvePromotionCommand{
			PromotionID: promotion.PromotionID,
		})
		if err != nil {
			logger.Error("promotion sweep resolve failed",
				"event", "governance_resolution_sweep_resolve_failed",
				"module", "governance/promotion-engine",
				"layer", "worker",
				"promotion_id", promotion.PromotionID,
				"error", err.Error(),
			)
			return err
		}
		logger.Info("promotion sweep resolved",
			"event", "governance_resolution_sweep_resolved",
			"module", "governance/promotion-engine",
			"layer", "worker",
			"promotion_id", promotion.PromotionID,
			"outcome", string(result.Promotion.Status),
			"replayed", result.Replayed,
		)
	}
	return nil
}
