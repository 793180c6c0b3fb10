package commands

import (
	"context"
	"log/slog"
	"strings"
	"time"

	application "concord/contexts/governance/promotion-engine/application"
	"concord/contexts/governance/promotion-engine/domain/entities"
	domainerrors "concord/contexts/governance/promotion-engine/domain/errors"
	"concord/contexts/governance/promotion-engine/ports"
)

// RegisterAgentCommand enrolls a wallet as a member of one constitution.
type RegisterAgentCommand struct {
	ConstitutionID string
	DisplayName    string
	WalletAddress  string
}

// AgentUseCase owns membership registration. Each wallet registers once per
// constitution and enters at the constitution's bootstrap tier.
type AgentUseCase struct {
	Constitutions ports.ConstitutionRepository
	Agents        ports.AgentRepository
	Outbox        ports.OutboxWriter
	Clock         ports.Clock
	IDGen         ports.IDGenerator
	Logger        *slog.Logger
}

func (uc AgentUseCase) RegisterAgent(ctx context.Context, cmd RegisterAgentCommand) (entities.Agent, error) {
	logger := application.ResolveLogger(uc.Logger)
	constitutionID := strings.TrimSpace(cmd.ConstitutionID)
	displayName := strings.TrimSpace(cmd.DisplayName)
	wallet := strings.TrimSpace(cmd.WalletAddress)
	logger.Info("agent registration started",
		"event", "governance_agent_register_started",
		"module", "governance/promotion-engine",
		"layer", "application",
		"constitution_id", constitutionID,
	)
	if constitutionID == "" || displayName == "" || wallet == "" {
		return entities.Agent{}, domainerrors.ErrInvalidAgentInput
	}

	constitution, err := uc.Constitutions.GetConstitutionByID(ctx, constitutionID)
	if err != nil {
		return entities.Agent{}, err
	}
	level := constitution.Config.BootstrapLevel()
	if _, err := uc.Constitutions.GetTier(ctx, constitutionID, level); err != nil {
		return entities.Agent{}, err
	}

	if _, found, err := uc.Agents.GetAgentByWallet(ctx, constitutionID, wallet); err != nil {
		return entities.Agent{}, err
	} else if found {
		return entities.Agent{}, domainerrors.ErrWalletAlreadyRegistered
	}

	// Tier 2 capacity only binds during bootstrap, before promotions govern
	// entry into the board tier.
	if level == 2 && constitution.BootstrapTier2Limit > 0 {
		counts, err := uc.Agents.CountAgentsByTier(ctx, constitutionID)
		if err != nil {
			return entities.Agent{}, err
		}
		if counts[2] >= constitution.BootstrapTier2Limit {
			return entities.Agent{}, domainerrors.ErrBootstrapCapacityReached
		}
	}

	now := uc.now()
	agentID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return entities.Agent{}, err
	}
	agent := entities.Agent{
		AgentID:        agentID,
		ConstitutionID: constitutionID,
		DisplayName:    displayName,
		WalletAddress:  wallet,
		TierLevel:      level,
		RegisteredAt:   now,
	}
	if err := uc.Agents.SaveAgent(ctx, agent); err != nil {
		return entities.Agent{}, err
	}

	if uc.Outbox != nil {
		eventID, err := uc.IDGen.NewID(ctx)
		if err != nil {
			return entities.Agent{}, err
		}
		envelope, err := newGovernanceEnvelope(eventID, "agent.registered", constitutionID, now, map[string]any{
			"agent_id":        agentID,
			"constitution_id": constitutionID,
			"tier_level":      level,
		})
		if err != nil {
			return entities.Agent{}, err
		}
		if err := uc.Outbox.AppendOutbox(ctx, envelope); err != nil {
			return entities.Agent{}, err
		}
	}

	logger.Info("agent registered",
		"event", "governance_agent_registered",
		"module", "governance/promotion-engine",
		"layer", "application",
		"agent_id", agentID,
		"constitution_id", constitutionID,
		"tier_level", level,
	)
	return agent, nil
}

func (uc AgentUseCase) now() time.Time {
	now := time.Now().UTC()
	if uc.Clock != nil {
		now = uc.Clock.Now().UTC()
	}
	return now
}
