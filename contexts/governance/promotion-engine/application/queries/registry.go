package queries

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"concord/contexts/governance/promotion-engine/domain/entities"
	domainerrors "concord/contexts/governance/promotion-engine/domain/errors"
	"concord/contexts/governance/promotion-engine/ports"
)

// PromotionView pairs a promotion with its live tally.
type PromotionView struct {
	Promotion entities.Promotion
	Tally     entities.Tally
}

// RegistryUseCase serves the read side: constitution resolution, the tier
// ladder, membership rolls, and membership statistics.
type RegistryUseCase struct {
	Constitutions ports.ConstitutionRepository
	Agents        ports.AgentRepository
	Promotions    ports.PromotionRepository
	Votes         ports.VoteRepository
}

// ResolveConstitution maps a tenant token to its constitution. An exact slug
// match wins; an absent token returns the constitution flagged as default.
// The returned error wraps ErrConstitutionNotFound and carries the token.
func (uc RegistryUseCase) ResolveConstitution(ctx context.Context, token string) (entities.Constitution, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		constitution, err := uc.Constitutions.GetDefaultConstitution(ctx)
		if err != nil {
			return entities.Constitution{}, err
		}
		return constitution, nil
	}
	constitution, err := uc.Constitutions.GetConstitutionBySlug(ctx, strings.ToLower(token))
	if err != nil {
		if errors.Is(err, domainerrors.ErrConstitutionNotFound) {
			return entities.Constitution{}, fmt.Errorf("%w: %q", domainerrors.ErrConstitutionNotFound, token)
		}
		return entities.Constitution{}, err
	}
	return constitution, nil
}

func (uc RegistryUseCase) ListTiers(ctx context.Context, constitutionID string) ([]entities.Tier, error) {
	if _, err := uc.Constitutions.GetConstitutionByID(ctx, strings.TrimSpace(constitutionID)); err != nil {
		return nil, err
	}
	tiers, err := uc.Constitutions.ListTiers(ctx, strings.TrimSpace(constitutionID))
	if err != nil {
		return nil, err
	}
	sort.Slice(tiers, func(i, j int) bool { return tiers[i].Level < tiers[j].Level })
	return tiers, nil
}

func (uc RegistryUseCase) GetTier(ctx context.Context, constitutionID string, level int) (entities.Tier, error) {
	return uc.Constitutions.GetTier(ctx, strings.TrimSpace(constitutionID), level)
}

// ListTierMembers returns the agents currently at the tier, registration
// time ascending.
func (uc RegistryUseCase) ListTierMembers(ctx context.Context, constitutionID string, level int) ([]entities.Agent, error) {
	if _, err := uc.Constitutions.GetTier(ctx, strings.TrimSpace(constitutionID), level); err != nil {
		return nil, err
	}
	agents, err := uc.Agents.ListAgentsByTier(ctx, strings.TrimSpace(constitutionID), level)
	if err != nil {
		return nil, err
	}
	sort.Slice(agents, func(i, j int) bool {
		if agents[i].RegisteredAt.Equal(agents[j].RegisteredAt) {
			return agents[i].AgentID < agents[j].AgentID
		}
		return agents[i].RegisteredAt.Before(agents[j].RegisteredAt)
	})
	return agents, nil
}

// TierStats computes per-level member counts fresh from agent tier
// assignments. Tiers with no members report zero; there is no separate
// counter to drift.
func (uc RegistryUseCase) TierStats(ctx context.Context, constitutionID string) ([]entities.TierCount, error) {
	tiers, err := uc.ListTiers(ctx, constitutionID)
	if err != nil {
		return nil, err
	}
	counts, err := uc.Agents.CountAgentsByTier(ctx, strings.TrimSpace(constitutionID))
	if err != nil {
		return nil, err
	}
	stats := make([]entities.TierCount, 0, len(tiers))
	for _, tier := range tiers {
		stats = append(stats, entities.TierCount{
			Level:   tier.Level,
			Members: counts[tier.Level],
		})
	}
	return stats, nil
}

// GetPromotion returns the promotion and its tally at this instant.
func (uc RegistryUseCase) GetPromotion(ctx context.Context, promotionID string) (PromotionView, error) {
	promotion, err := uc.Promotions.GetPromotion(ctx, strings.TrimSpace(promotionID))
	if err != nil {
		return PromotionView{}, err
	}
	votes, err := uc.Votes.ListVotesByPromotion(ctx, promotion.PromotionID)
	if err != nil {
		return PromotionView{}, err
	}
	return PromotionView{
		Promotion: promotion,
		Tally:     entities.TallyVotes(votes),
	}, nil
}
