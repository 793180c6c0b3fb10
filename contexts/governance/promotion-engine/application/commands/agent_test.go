package commands

import (
	"context"
	"errors"
	"testing"

	"concord/contexts/governance/promotion-engine/adapters/memory"
	"concord/contexts/governance/promotion-engine/domain/entities"
	domainerrors "concord/contexts/governance/promotion-engine/domain/errors"
)

func newAgentUseCase(store *memory.Store) AgentUseCase {
	return AgentUseCase{
		Constitutions: store,
		Agents:        store,
		Outbox:        store,
		Clock:         newTestClock(),
		IDGen:         store,
	}
}

func seedConstitutionOnly(t *testing.T, store *memory.Store, constitution entities.Constitution, tiers []entities.Tier) {
	t.Helper()
	ctx := context.Background()
	if err := store.SaveConstitution(ctx, constitution); err != nil {
		t.Fatalf("seed constitution failed: %v", err)
	}
	for _, tier := range tiers {
		if err := store.SaveTier(ctx, tier); err != nil {
			t.Fatalf("seed tier failed: %v", err)
		}
	}
}

func TestRegisterAgentEntersBootstrapTier(t *testing.T) {
	store := memory.NewStore()
	seedConstitutionOnly(t, store, entities.Constitution{
		ConstitutionID: "const-1",
		Slug:           "genesis",
		Name:           "Genesis",
	}, []entities.Tier{
		{ConstitutionID: "const-1", Level: 1, Name: "Member"},
	})
	uc := newAgentUseCase(store)

	agent, err := uc.RegisterAgent(context.Background(), RegisterAgentCommand{
		ConstitutionID: "const-1",
		DisplayName:    "Alice",
		WalletAddress:  "0xalice",
	})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if agent.TierLevel != 1 {
		t.Fatalf("expected bootstrap tier 1, got %d", agent.TierLevel)
	}
}

func TestRegisterAgentRejectsDuplicateWallet(t *testing.T) {
	store := memory.NewStore()
	seedConstitutionOnly(t, store, entities.Constitution{
		ConstitutionID: "const-1",
		Slug:           "genesis",
		Name:           "Genesis",
	}, []entities.Tier{
		{ConstitutionID: "const-1", Level: 1, Name: "Member"},
	})
	uc := newAgentUseCase(store)
	ctx := context.Background()

	if _, err := uc.RegisterAgent(ctx, RegisterAgentCommand{
		ConstitutionID: "const-1",
		DisplayName:    "Alice",
		WalletAddress:  "0xalice",
	}); err != nil {
		t.Fatalf("first register failed: %v", err)
	}
	_, err := uc.RegisterAgent(ctx, RegisterAgentCommand{
		ConstitutionID: "const-1",
		DisplayName:    "Alice Again",
		WalletAddress:  "0xalice",
	})
	if !errors.Is(err, domainerrors.ErrWalletAlreadyRegistered) {
		t.Fatalf("expected wallet already registered, got %v", err)
	}
}

func TestRegisterAgentEnforcesBootstrapCapacity(t *testing.T) {
	store := memory.NewStore()
	seedConstitutionOnly(t, store, entities.Constitution{
		ConstitutionID:      "const-1",
		Slug:                "board",
		Name:                "Board First",
		BootstrapTier2Limit: 2,
		Config:              entities.GovernanceConfig{BootstrapTierLevel: 2},
	}, []entities.Tier{
		{ConstitutionID: "const-1", Level: 1, Name: "Member"},
		{ConstitutionID: "const-1", Level: 2, Name: "Board"},
	})
	uc := newAgentUseCase(store)
	ctx := context.Background()

	for i, wallet := range []string{"0xone", "0xtwo"} {
		if _, err := uc.RegisterAgent(ctx, RegisterAgentCommand{
			ConstitutionID: "const-1",
			DisplayName:    "Seat",
			WalletAddress:  wallet,
		}); err != nil {
			t.Fatalf("register %d failed: %v", i, err)
		}
	}
	_, err := uc.RegisterAgent(ctx, RegisterAgentCommand{
		ConstitutionID: "const-1",
		DisplayName:    "Overflow",
		WalletAddress:  "0xthree",
	})
	if !errors.Is(err, domainerrors.ErrBootstrapCapacityReached) {
		t.Fatalf("expected bootstrap capacity reached, got %v", err)
	}
}

func TestRegisterAgentUnknownConstitution(t *testing.T) {
	store := memory.NewStore()
	uc := newAgentUseCase(store)

	_, err := uc.RegisterAgent(context.Background(), RegisterAgentCommand{
		ConstitutionID: "missing",
		DisplayName:    "Ghost",
		WalletAddress:  "0xghost",
	})
	if !errors.Is(err, domainerrors.ErrConstitutionNotFound) {
		t.Fatalf("expected constitution not found, got %v", err)
	}
}
