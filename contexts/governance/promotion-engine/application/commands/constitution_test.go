package commands

import (
	"context"
	"errors"
	"testing"

	"concord/contexts/governance/promotion-engine/adapters/memory"
	"concord/contexts/governance/promotion-engine/domain/entities"
	domainerrors "concord/contexts/governance/promotion-engine/domain/errors"
)

func newConstitutionUseCase(store *memory.Store, clock *fakeClock) ConstitutionUseCase {
	return ConstitutionUseCase{
		Constitutions: store,
		Agents:        store,
		Outbox:        store,
		Clock:         clock,
		IDGen:         store,
	}
}

func TestCreateConstitutionPersistsLadderAndFounder(t *testing.T) {
	store := memory.NewStore()
	uc := newConstitutionUseCase(store, newTestClock())
	ctx := context.Background()

	constitution, err := uc.CreateConstitution(ctx, CreateConstitutionCommand{
		Slug:    "genesis",
		Name:    "Genesis Collective",
		Content: "We the agents...",
		Tiers: []TierInput{
			{Level: 1, Name: "Member"},
			{Level: 2, Name: "Contributor"},
			{Level: 3, Name: "Steward"},
		},
		FounderName:   "Founder",
		FounderWallet: "0xfounder",
	})
	if err != nil {
		t.Fatalf("create constitution failed: %v", err)
	}
	if constitution.Version != "v1" {
		t.Fatalf("expected default version v1, got %s", constitution.Version)
	}
	if constitution.ContentHash == "" {
		t.Fatal("expected content hash")
	}

	tiers, err := store.ListTiers(ctx, constitution.ConstitutionID)
	if err != nil {
		t.Fatalf("list tiers failed: %v", err)
	}
	if len(tiers) != 3 {
		t.Fatalf("expected 3 tiers, got %d", len(tiers))
	}

	founder, err := store.GetAgent(ctx, constitution.FounderAgentID)
	if err != nil {
		t.Fatalf("founder lookup failed: %v", err)
	}
	if founder.TierLevel != 1 {
		t.Fatalf("expected founder at bootstrap tier 1, got %d", founder.TierLevel)
	}
}

func TestCreateConstitutionValidatesSlugAndLadder(t *testing.T) {
	store := memory.NewStore()
	uc := newConstitutionUseCase(store, newTestClock())
	ctx := context.Background()

	_, err := uc.CreateConstitution(ctx, CreateConstitutionCommand{
		Slug:    "Not A Slug!",
		Name:    "Bad",
		Content: "doc",
		Tiers:   []TierInput{{Level: 1, Name: "Member"}},
	})
	if !errors.Is(err, domainerrors.ErrInvalidConstitutionInput) {
		t.Fatalf("expected invalid input for bad slug, got %v", err)
	}

	// Ladder without an entry tier.
	_, err = uc.CreateConstitution(ctx, CreateConstitutionCommand{
		Slug:    "no-entry",
		Name:    "No Entry",
		Content: "doc",
		Tiers:   []TierInput{{Level: 2, Name: "Contributor"}},
	})
	if !errors.Is(err, domainerrors.ErrInvalidConstitutionInput) {
		t.Fatalf("expected invalid input for ladder without level 1, got %v", err)
	}

	// Duplicate levels.
	_, err = uc.CreateConstitution(ctx, CreateConstitutionCommand{
		Slug:    "dup",
		Name:    "Duplicate",
		Content: "doc",
		Tiers: []TierInput{
			{Level: 1, Name: "Member"},
			{Level: 1, Name: "Also Member"},
		},
	})
	if !errors.Is(err, domainerrors.ErrInvalidConstitutionInput) {
		t.Fatalf("expected invalid input for duplicate levels, got %v", err)
	}
}

func TestCreateConstitutionRejectsDuplicateSlug(t *testing.T) {
	store := memory.NewStore()
	uc := newConstitutionUseCase(store, newTestClock())
	ctx := context.Background()

	cmd := CreateConstitutionCommand{
		Slug:    "genesis",
		Name:    "Genesis",
		Content: "doc",
		Tiers:   []TierInput{{Level: 1, Name: "Member"}},
	}
	if _, err := uc.CreateConstitution(ctx, cmd); err != nil {
		t.Fatalf("first create failed: %v", err)
	}
	_, err := uc.CreateConstitution(ctx, cmd)
	if !errors.Is(err, domainerrors.ErrSlugAlreadyExists) {
		t.Fatalf("expected slug conflict, got %v", err)
	}
}

func TestCreateConstitutionAppendsVersionHistory(t *testing.T) {
	store := memory.NewStore()
	uc := newConstitutionUseCase(store, newTestClock())
	ctx := context.Background()

	constitution, err := uc.CreateConstitution(ctx, CreateConstitutionCommand{
		Slug:    "versioned",
		Name:    "Versioned",
		Content: "doc",
		Version: "2024.1",
		Tiers:   []TierInput{{Level: 1, Name: "Member"}},
		Config:  entities.GovernanceConfig{Quorum: 5},
	})
	if err != nil {
		t.Fatalf("create constitution failed: %v", err)
	}
	if constitution.Version != "2024.1" {
		t.Fatalf("expected explicit version, got %s", constitution.Version)
	}
	if constitution.Config.QuorumThreshold() != 5 {
		t.Fatalf("expected quorum 5, got %d", constitution.Config.QuorumThreshold())
	}
}
