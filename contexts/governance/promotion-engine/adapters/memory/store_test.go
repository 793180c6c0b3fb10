package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"concord/contexts/governance/promotion-engine/domain/entities"
	domainerrors "concord/contexts/governance/promotion-engine/domain/errors"
	"concord/contexts/governance/promotion-engine/ports"
)

func seedOpenPromotion(t *testing.T, store *Store, base time.Time) entities.Promotion {
	t.Helper()
	ctx := context.Background()

	if err := store.SaveAgent(ctx, entities.Agent{
		AgentID:        "agent-1",
		ConstitutionID: "const-1",
		WalletAddress:  "0x1",
		TierLevel:      1,
		RegisteredAt:   base,
	}); err != nil {
		t.Fatalf("seed agent failed: %v", err)
	}
	open := entities.Promotion{
		PromotionID:    "promo-1",
		ConstitutionID: "const-1",
		CandidateID:    "agent-1",
		ProposerID:     "agent-2",
		TargetLevel:    2,
		Status:         entities.PromotionStatusOpen,
		OpenedAt:       base,
		VotingClosesAt: base.Add(7 * 24 * time.Hour),
	}
	if err := store.SavePromotion(ctx, open); err != nil {
		t.Fatalf("seed promotion failed: %v", err)
	}
	return open
}

func approveDecision(resolvedAt time.Time) ports.ResolveDecision {
	return func(open entities.Promotion, _ entities.Tally) (entities.Promotion, bool, error) {
		open.Status = entities.PromotionStatusApproved
		open.ResolvedAt = &resolvedAt
		return open, true, nil
	}
}

func TestResolveOpenPromotionGuardsOpenStatus(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	seedOpenPromotion(t, store, base)

	resolved, _, err := store.ResolveOpenPromotion(ctx, "promo-1", approveDecision(base.Add(8*24*time.Hour)))
	if err != nil {
		t.Fatalf("first resolution failed: %v", err)
	}
	if resolved.Status != entities.PromotionStatusApproved {
		t.Fatalf("expected approved, got %s", resolved.Status)
	}

	agent, err := store.GetAgent(ctx, "agent-1")
	if err != nil {
		t.Fatalf("get agent failed: %v", err)
	}
	if agent.TierLevel != 2 {
		t.Fatalf("expected tier 2 after approval, got %d", agent.TierLevel)
	}

	// A second transition must lose the open-status guard before decide runs.
	_, _, err = store.ResolveOpenPromotion(ctx, "promo-1", func(entities.Promotion, entities.Tally) (entities.Promotion, bool, error) {
		t.Fatal("decide must not run on a terminal promotion")
		return entities.Promotion{}, false, nil
	})
	if !errors.Is(err, domainerrors.ErrConflict) {
		t.Fatalf("expected conflict on second resolution, got %v", err)
	}
	agent, _ = store.GetAgent(ctx, "agent-1")
	if agent.TierLevel != 2 {
		t.Fatalf("losing transition must not change tier, got %d", agent.TierLevel)
	}
}

func TestResolveOpenPromotionMissingCandidateLeavesOpen(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	if err := store.SavePromotion(ctx, entities.Promotion{
		PromotionID:    "promo-orphan",
		ConstitutionID: "const-1",
		CandidateID:    "agent-gone",
		ProposerID:     "agent-2",
		TargetLevel:    2,
		Status:         entities.PromotionStatusOpen,
		OpenedAt:       base,
		VotingClosesAt: base.Add(7 * 24 * time.Hour),
	}); err != nil {
		t.Fatalf("seed promotion failed: %v", err)
	}

	_, _, err := store.ResolveOpenPromotion(ctx, "promo-orphan", approveDecision(base.Add(time.Hour)))
	if !errors.Is(err, domainerrors.ErrAgentNotFound) {
		t.Fatalf("expected agent not found, got %v", err)
	}

	promotion, err := store.GetPromotion(ctx, "promo-orphan")
	if err != nil {
		t.Fatalf("get promotion failed: %v", err)
	}
	if promotion.Status != entities.PromotionStatusOpen {
		t.Fatalf("error branch must leave the promotion open, got %s", promotion.Status)
	}
}

func TestUpsertVoteRefusedOnceResolved(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	seedOpenPromotion(t, store, base)

	if err := store.UpsertVote(ctx, entities.Vote{PromotionID: "promo-1", VoterID: "agent-3", Approve: true, CastAt: base}); err != nil {
		t.Fatalf("open-window vote failed: %v", err)
	}

	_, tally, err := store.ResolveOpenPromotion(ctx, "promo-1", approveDecision(base.Add(time.Hour)))
	if err != nil {
		t.Fatalf("resolution failed: %v", err)
	}
	if tally.For != 1 || tally.Voters != 1 {
		t.Fatalf("expected locked-in tally 1/1, got %d/%d", tally.For, tally.Voters)
	}

	// A vote arriving after the flip must be refused, not silently recorded
	// outside the tally.
	err = store.UpsertVote(ctx, entities.Vote{PromotionID: "promo-1", VoterID: "agent-4", Approve: true, CastAt: base.Add(2 * time.Hour)})
	if !errors.Is(err, domainerrors.ErrPromotionNotOpen) {
		t.Fatalf("expected promotion not open for late vote, got %v", err)
	}
	votes, _ := store.ListVotesByPromotion(ctx, "promo-1")
	if len(votes) != 1 {
		t.Fatalf("late vote must not land, got %d rows", len(votes))
	}
}

func TestSavePromotionEnforcesSingleOpen(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	seedOpenPromotion(t, store, base)

	err := store.SavePromotion(ctx, entities.Promotion{
		PromotionID:    "promo-2",
		ConstitutionID: "const-1",
		CandidateID:    "agent-1",
		ProposerID:     "agent-3",
		TargetLevel:    2,
		Status:         entities.PromotionStatusOpen,
		OpenedAt:       base,
		VotingClosesAt: base.Add(7 * 24 * time.Hour),
	})
	if !errors.Is(err, domainerrors.ErrDuplicateOpenPromotion) {
		t.Fatalf("expected duplicate open promotion, got %v", err)
	}
}

func TestUpsertVoteKeepsOneRowPerVoter(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	seedOpenPromotion(t, store, base)

	if err := store.UpsertVote(ctx, entities.Vote{PromotionID: "promo-1", VoterID: "agent-5", Approve: true, CastAt: base}); err != nil {
		t.Fatalf("first upsert failed: %v", err)
	}
	if err := store.UpsertVote(ctx, entities.Vote{PromotionID: "promo-1", VoterID: "agent-5", Approve: false, CastAt: base.Add(time.Minute)}); err != nil {
		t.Fatalf("second upsert failed: %v", err)
	}

	votes, err := store.ListVotesByPromotion(ctx, "promo-1")
	if err != nil {
		t.Fatalf("list votes failed: %v", err)
	}
	if len(votes) != 1 {
		t.Fatalf("expected one row per voter, got %d", len(votes))
	}
	if votes[0].Approve {
		t.Fatal("expected latest decision to win")
	}
}

func TestOutboxLifecycle(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	envelope := ports.EventEnvelope{
		EventID:      "evt-1",
		EventType:    "promotion.created",
		OccurredAt:   base,
		PartitionKey: "const-1",
	}
	if err := store.AppendOutbox(ctx, envelope); err != nil {
		t.Fatalf("append failed: %v", err)
	}
	// Appending the same event again is a no-op.
	if err := store.AppendOutbox(ctx, envelope); err != nil {
		t.Fatalf("replay append failed: %v", err)
	}

	pending, err := store.ListPendingOutbox(ctx, 10)
	if err != nil {
		t.Fatalf("list pending failed: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("expected one pending message, got %d", len(pending))
	}

	if err := store.MarkOutboxPublished(ctx, "evt-1", base.Add(time.Second)); err != nil {
		t.Fatalf("mark published failed: %v", err)
	}
	pending, _ = store.ListPendingOutbox(ctx, 10)
	if len(pending) != 0 {
		t.Fatalf("expected no pending after publish, got %d", len(pending))
	}

	err = store.MarkOutboxPublished(ctx, "evt-missing", base)
	if !errors.Is(err, domainerrors.ErrConflict) {
		t.Fatalf("expected conflict for unknown outbox id, got %v", err)
	}
}

func TestGetOpenPromotionByCandidateIgnoresTerminal(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	resolvedAt := base.Add(time.Hour)

	if err := store.SavePromotion(ctx, entities.Promotion{
		PromotionID:    "promo-done",
		ConstitutionID: "const-1",
		CandidateID:    "agent-1",
		Status:         entities.PromotionStatusRejected,
		OpenedAt:       base,
		VotingClosesAt: base.Add(7 * 24 * time.Hour),
		ResolvedAt:     &resolvedAt,
	}); err != nil {
		t.Fatalf("seed promotion failed: %v", err)
	}

	_, found, err := store.GetOpenPromotionByCandidate(ctx, "const-1", "agent-1")
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if found {
		t.Fatal("terminal promotion must not count as open")
	}

	latest, found, err := store.GetLatestCooldownPromotion(ctx, "const-1", "agent-1")
	if err != nil {
		t.Fatalf("cooldown lookup failed: %v", err)
	}
	if !found || latest.PromotionID != "promo-done" {
		t.Fatalf("expected rejected promotion for cooldown, found=%v", found)
	}
}
