package workers

import (
	"context"
	"testing"
	"time"

	"concord/contexts/governance/promotion-engine/adapters/memory"
	"concord/contexts/governance/promotion-engine/application/commands"
	"concord/contexts/governance/promotion-engine/domain/entities"
	"concord/contexts/governance/promotion-engine/ports"
)

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time { return c.now }

type capturePublisher struct {
	topics    []string
	envelopes []ports.EventEnvelope
}

func (p *capturePublisher) Publish(_ context.Context, topic string, event ports.EventEnvelope) error {
	p.topics = append(p.topics, topic)
	p.envelopes = append(p.envelopes, event)
	return nil
}

func seedOverduePromotion(t *testing.T, store *memory.Store, now time.Time) entities.Promotion {
	t.Helper()
	ctx := context.Background()

	if err := store.SaveConstitution(ctx, entities.Constitution{
		ConstitutionID: "const-1",
		Slug:           "genesis",
		Name:           "Genesis",
	}); err != nil {
		t.Fatalf("seed constitution failed: %v", err)
	}
	for _, tier := range []entities.Tier{
		{ConstitutionID: "const-1", Level: 1, Name: "Member"},
		{ConstitutionID: "const-1", Level: 2, Name: "Contributor"},
	} {
		if err := store.SaveTier(ctx, tier); err != nil {
			t.Fatalf("seed tier failed: %v", err)
		}
	}
	for _, agent := range []entities.Agent{
		{AgentID: "agent-cand", ConstitutionID: "const-1", WalletAddress: "0xcand", TierLevel: 1, RegisteredAt: now.Add(-30 * 24 * time.Hour)},
		{AgentID: "agent-voter", ConstitutionID: "const-1", WalletAddress: "0xvoter", TierLevel: 2, RegisteredAt: now.Add(-30 * 24 * time.Hour)},
	} {
		if err := store.SaveAgent(ctx, agent); err != nil {
			t.Fatalf("seed agent failed: %v", err)
		}
	}

	promotion := entities.Promotion{
		PromotionID:    "promo-due",
		ConstitutionID: "const-1",
		CandidateID:    "agent-cand",
		ProposerID:     "agent-voter",
		TargetLevel:    2,
		Status:         entities.PromotionStatusOpen,
		OpenedAt:       now.Add(-8 * 24 * time.Hour),
		VotingClosesAt: now.Add(-24 * time.Hour),
	}
	if err := store.SavePromotion(ctx, promotion); err != nil {
		t.Fatalf("seed promotion failed: %v", err)
	}
	if err := store.UpsertVote(ctx, entities.Vote{
		PromotionID: "promo-due",
		VoterID:     "agent-voter",
		Approve:     true,
		CastAt:      now.Add(-2 * 24 * time.Hour),
	}); err != nil {
		t.Fatalf("seed vote failed: %v", err)
	}
	return promotion
}

func TestResolutionSweeperResolvesDuePromotions(t *testing.T) {
	store := memory.NewStore()
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	clock := fixedClock{now: now}
	seedOverduePromotion(t, store, now)

	sweeper := ResolutionSweeper{
		Promotions: store,
		Engine: commands.PromotionUseCase{
			Constitutions: store,
			Agents:        store,
			Promotions:    store,
			Votes:         store,
			Outbox:        store,
			Clock:         clock,
			IDGen:         store,
		},
		Clock: clock,
	}

	if err := sweeper.RunOnce(context.Background()); err != nil {
		t.Fatalf("sweep failed: %v", err)
	}

	promotion, err := store.GetPromotion(context.Background(), "promo-due")
	if err != nil {
		t.Fatalf("get promotion failed: %v", err)
	}
	if promotion.Status != entities.PromotionStatusApproved {
		t.Fatalf("expected approved after sweep, got %s", promotion.Status)
	}
	candidate, _ := store.GetAgent(context.Background(), "agent-cand")
	if candidate.TierLevel != 2 {
		t.Fatalf("expected candidate promoted by sweep, got tier %d", candidate.TierLevel)
	}

	// A second sweep finds nothing due.
	if err := sweeper.RunOnce(context.Background()); err != nil {
		t.Fatalf("second sweep failed: %v", err)
	}
}

func TestOutboxRelayPublishesPendingMessages(t *testing.T) {
	store := memory.NewStore()
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	ctx := context.Background()

	if err := store.AppendOutbox(ctx, ports.EventEnvelope{
		EventID:      "evt-1",
		EventType:    "promotion.created",
		OccurredAt:   now,
		PartitionKey: "const-1",
	}); err != nil {
		t.Fatalf("append outbox failed: %v", err)
	}

	publisher := &capturePublisher{}
	relay := OutboxRelay{
		Outbox:    store,
		Publisher: publisher,
		Clock:     fixedClock{now: now},
	}
	if err := relay.RunOnce(ctx); err != nil {
		t.Fatalf("relay failed: %v", err)
	}
	if len(publisher.envelopes) != 1 {
		t.Fatalf("expected one published envelope, got %d", len(publisher.envelopes))
	}
	if publisher.topics[0] != "governance.promotions" {
		t.Fatalf("expected default topic, got %s", publisher.topics[0])
	}
	if publisher.envelopes[0].EventID != "evt-1" {
		t.Fatalf("expected evt-1, got %s", publisher.envelopes[0].EventID)
	}

	pending, err := store.ListPendingOutbox(ctx, 10)
	if err != nil {
		t.Fatalf("list pending failed: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("expected drained outbox, got %d pending", len(pending))
	}
}
