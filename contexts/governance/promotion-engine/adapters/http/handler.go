package httpadapter

import (
	"context"
	"log/slog"

	"concord/contexts/governance/promotion-engine/application/commands"
	"concord/contexts/governance/promotion-engine/application/queries"
	"concord/contexts/governance/promotion-engine/domain/entities"
	httptransport "concord/contexts/governance/promotion-engine/transport/http"
)

type Handler struct {
	Constitutions commands.ConstitutionUseCase
	Agents        commands.AgentUseCase
	Promotions    commands.PromotionUseCase
	Registry      queries.RegistryUseCase
	Logger        *slog.Logger
}

func (h Handler) CreateConstitutionHandler(
	ctx context.Context,
	req httptransport.CreateConstitutionRequest,
) (httptransport.ConstitutionResponse, error) {
	cmd := commands.CreateConstitutionCommand{
		Slug:                req.Slug,
		Name:                req.Name,
		Content:             req.Content,
		Version:             req.Version,
		VotingSpace:         req.VotingSpace,
		IsDefault:           req.IsDefault,
		BootstrapTier2Limit: req.BootstrapTier2Limit,
	}
	for _, tier := range req.Tiers {
		cmd.Tiers = append(cmd.Tiers, commands.TierInput{
			Level:        tier.Level,
			Name:         tier.Name,
			Requirements: tier.Requirements,
		})
	}
	if req.Governance != nil {
		cmd.Config = entities.GovernanceConfig{
			FoundingBoardSize:     req.Governance.FoundingBoardSize,
			BootstrapTierLevel:    req.Governance.BootstrapTierLevel,
			PromotionVotingDays:   req.Governance.PromotionVotingDays,
			PromotionCooldownDays: req.Governance.PromotionCooldownDays,
			Quorum:                req.Governance.Quorum,
		}
	}
	if req.Founder != nil {
		cmd.FounderName = req.Founder.DisplayName
		cmd.FounderWallet = req.Founder.WalletAddress
	}

	constitution, err := h.Constitutions.CreateConstitution(ctx, cmd)
	if err != nil {
		return httptransport.ConstitutionResponse{}, err
	}
	return mapConstitution(constitution), nil
}

func (h Handler) ResolveConstitutionHandler(ctx context.Context, token string) (httptransport.ConstitutionResponse, error) {
	constitution, err := h.Registry.ResolveConstitution(ctx, token)
	if err != nil {
		return httptransport.ConstitutionResponse{}, err
	}
	return mapConstitution(constitution), nil
}

func (h Handler) RegisterAgentHandler(
	ctx context.Context,
	constitutionID string,
	req httptransport.RegisterAgentRequest,
) (httptransport.AgentResponse, error) {
	agent, err := h.Agents.RegisterAgent(ctx, commands.RegisterAgentCommand{
		ConstitutionID: constitutionID,
		DisplayName:    req.DisplayName,
		WalletAddress:  req.WalletAddress,
	})
	if err != nil {
		return httptransport.AgentResponse{}, err
	}
	return mapAgent(agent), nil
}

func (h Handler) ListTiersHandler(ctx context.Context, constitutionID string) (httptransport.TierListResponse, error) {
	tiers, err := h.Registry.ListTiers(ctx, constitutionID)
	if err != nil {
		return httptransport.TierListResponse{}, err
	}
	resp := httptransport.TierListResponse{
		ConstitutionID: constitutionID,
		Tiers:          make([]httptransport.TierResponse, 0, len(tiers)),
	}
	for _, tier := range tiers {
		resp.Tiers = append(resp.Tiers, mapTier(tier))
	}
	return resp, nil
}

func (h Handler) GetTierHandler(ctx context.Context, constitutionID string, level int) (httptransport.TierResponse, error) {
	tier, err := h.Registry.GetTier(ctx, constitutionID, level)
	if err != nil {
		return httptransport.TierResponse{}, err
	}
	return mapTier(tier), nil
}

func (h Handler) TierMembersHandler(ctx context.Context, constitutionID string, level int) (httptransport.TierMembersResponse, error) {
	members, err := h.Registry.ListTierMembers(ctx, constitutionID, level)
	if err != nil {
		return httptransport.TierMembersResponse{}, err
	}
	resp := httptransport.TierMembersResponse{
		ConstitutionID: constitutionID,
		Level:          level,
		Members:        make([]httptransport.AgentResponse, 0, len(members)),
	}
	for _, member := range members {
		resp.Members = append(resp.Members, mapAgent(member))
	}
	return resp, nil
}

func (h Handler) TierStatsHandler(ctx context.Context, constitutionID string) (httptransport.TierStatsResponse, error) {
	stats, err := h.Registry.TierStats(ctx, constitutionID)
	if err != nil {
		return httptransport.TierStatsResponse{}, err
	}
	resp := httptransport.TierStatsResponse{
		ConstitutionID: constitutionID,
		Tiers:          make([]httptransport.TierStatsItem, 0, len(stats)),
	}
	for _, item := range stats {
		resp.Tiers = append(resp.Tiers, httptransport.TierStatsItem{
			Level:   item.Level,
			Members: item.Members,
		})
	}
	return resp, nil
}

func (h Handler) CreatePromotionHandler(
	ctx context.Context,
	constitutionID string,
	req httptransport.CreatePromotionRequest,
) (httptransport.PromotionResponse, error) {
	promotion, err := h.Promotions.CreatePromotion(ctx, commands.CreatePromotionCommand{
		ConstitutionID: constitutionID,
		CandidateID:    req.CandidateID,
		ProposerID:     req.ProposerID,
		TargetLevel:    req.TargetLevel,
	})
	if err != nil {
		return httptransport.PromotionResponse{}, err
	}
	return mapPromotion(promotion, entities.Tally{}, false), nil
}

func (h Handler) GetPromotionHandler(ctx context.Context, promotionID string) (httptransport.PromotionResponse, error) {
	view, err := h.Registry.GetPromotion(ctx, promotionID)
	if err != nil {
		return httptransport.PromotionResponse{}, err
	}
	return mapPromotion(view.Promotion, view.Tally, false), nil
}

func (h Handler) CastVoteHandler(
	ctx context.Context,
	promotionID string,
	req httptransport.CastVoteRequest,
) (httptransport.PromotionResponse, error) {
	result, err := h.Promotions.CastVote(ctx, commands.CastVoteCommand{
		PromotionID: promotionID,
		VoterID:     req.VoterID,
		Approve:     req.Approve,
		Reason:      req.Reason,
	})
	if err != nil {
		return httptransport.PromotionResponse{}, err
	}
	return mapPromotion(result.Promotion, result.Tally, false), nil
}

func (h Handler) WithdrawPromotionHandler(
	ctx context.Context,
	promotionID string,
	requestedBy string,
	administrative bool,
) (httptransport.PromotionResponse, error) {
	promotion, err := h.Promotions.WithdrawPromotion(ctx, commands.WithdrawPromotionCommand{
		PromotionID:    promotionID,
		WithdrawerID:   requestedBy,
		Administrative: administrative,
	})
	if err != nil {
		return httptransport.PromotionResponse{}, err
	}
	return mapPromotion(promotion, entities.Tally{}, false), nil
}

func (h Handler) ResolvePromotionHandler(ctx context.Context, promotionID string) (httptransport.PromotionResponse, error) {
	result, err := h.Promotions.ResolvePromotion(ctx, commands.ResolvePromotionCommand{
		PromotionID: promotionID,
	})
	if err != nil {
		return httptransport.PromotionResponse{}, err
	}
	return mapPromotion(result.Promotion, result.Tally, result.Replayed), nil
}

func mapConstitution(constitution entities.Constitution) httptransport.ConstitutionResponse {
	return httptransport.ConstitutionResponse{
		ConstitutionID:      constitution.ConstitutionID,
		Slug:                constitution.Slug,
		Name:                constitution.Name,
		ContentHash:         constitution.ContentHash,
		Version:             constitution.Version,
		VotingSpace:         constitution.VotingSpace,
		FounderAgentID:      constitution.FounderAgentID,
		BootstrapTier2Limit: constitution.BootstrapTier2Limit,
		IsDefault:           constitution.IsDefault,
		Governance: httptransport.GovernanceView{
			FoundingBoardSize:     constitution.Config.FoundingBoardSize,
			BootstrapTierLevel:    constitution.Config.BootstrapLevel(),
			PromotionVotingDays:   int(constitution.Config.VotingWindow().Hours() / 24),
			PromotionCooldownDays: int(constitution.Config.CooldownWindow().Hours() / 24),
			Quorum:                constitution.Config.QuorumThreshold(),
		},
		CreatedAt: constitution.CreatedAt,
	}
}

func mapAgent(agent entities.Agent) httptransport.AgentResponse {
	return httptransport.AgentResponse{
		AgentID:        agent.AgentID,
		ConstitutionID: agent.ConstitutionID,
		DisplayName:    agent.DisplayName,
		WalletAddress:  agent.WalletAddress,
		TierLevel:      agent.TierLevel,
		RegisteredAt:   agent.RegisteredAt,
	}
}

func mapTier(tier entities.Tier) httptransport.TierResponse {
	return httptransport.TierResponse{
		Level:        tier.Level,
		Name:         tier.Name,
		Requirements: tier.Requirements,
	}
}

func mapPromotion(promotion entities.Promotion, tally entities.Tally, replayed bool) httptransport.PromotionResponse {
	return httptransport.PromotionResponse{
		PromotionID:    promotion.PromotionID,
		ConstitutionID: promotion.ConstitutionID,
		CandidateID:    promotion.CandidateID,
		ProposerID:     promotion.ProposerID,
		TargetLevel:    promotion.TargetLevel,
		Status:         string(promotion.Status),
		OpenedAt:       promotion.OpenedAt,
		VotingClosesAt: promotion.VotingClosesAt,
		ResolvedAt:     promotion.ResolvedAt,
		WithdrawnBy:    promotion.WithdrawnBy,
		VotesFor:       tally.For,
		VotesAgainst:   tally.Against,
		Voters:         tally.Voters,
		Replayed:       replayed,
	}
}
