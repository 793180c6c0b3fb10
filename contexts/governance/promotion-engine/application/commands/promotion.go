package commands

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	application "concord/contexts/governance/promotion-engine/application"
	"concord/contexts/governance/promotion-engine/domain/entities"
	domainerrors "concord/contexts/governance/promotion-engine/domain/errors"
	"concord/contexts/governance/promotion-engine/ports"
)

// CreatePromotionCommand is the write-model input for opening a promotion.
type CreatePromotionCommand struct {
	ConstitutionID string
	CandidateID    string
	ProposerID     string
	TargetLevel    int
}

// CastVoteCommand records one voter's decision on an open promotion.
type CastVoteCommand struct {
	PromotionID string
	VoterID     string
	Approve     bool
	Reason      string
}

// WithdrawPromotionCommand requests withdrawal of an open promotion.
// Administrative marks callers whose standing comes from the transport layer
// rather than from being the proposer or candidate.
type WithdrawPromotionCommand struct {
	PromotionID    string
	WithdrawerID   string
	Administrative bool
}

// ResolvePromotionCommand tallies an open promotion and commits its outcome.
type ResolvePromotionCommand struct {
	PromotionID string
}

// CastVoteResult returns the promotion and its live tally after the upsert.
type CastVoteResult struct {
	Promotion entities.Promotion
	Tally     entities.Tally
}

// ResolvePromotionResult returns the terminal promotion and the tally it was
// decided on. Replaying resolve on a terminal promotion sets Replayed.
type ResolvePromotionResult struct {
	Promotion entities.Promotion
	Tally     entities.Tally
	Replayed  bool
}

// PromotionUseCase orchestrates the promotion lifecycle: creation against
// registry eligibility, vote accumulation under the voting window, withdrawal
// standing, and tally-driven resolution that commits tier changes.
type PromotionUseCase struct {
	Constitutions ports.ConstitutionRepository
	Agents        ports.AgentRepository
	Promotions    ports.PromotionRepository
	Votes         ports.VoteRepository
	Outbox        ports.OutboxWriter
	Clock         ports.Clock
	IDGen         ports.IDGenerator
	Logger        *slog.Logger
}

// CreatePromotion opens a promotion for a candidate. It enforces the single
// open promotion per candidate, the target-above-current ladder rule, and the
// cooldown that follows an approved or rejected resolution.
func (uc PromotionUseCase) CreatePromotion(ctx context.Context, cmd CreatePromotionCommand) (entities.Promotion, error) {
	logger := application.ResolveLogger(uc.Logger)
	constitutionID := strings.TrimSpace(cmd.ConstitutionID)
	candidateID := strings.TrimSpace(cmd.CandidateID)
	proposerID := strings.TrimSpace(cmd.ProposerID)
	logger.Info("promotion create started",
		"event", "governance_promotion_create_started",
		"module", "governance/promotion-engine",
		"layer", "application",
		"constitution_id", constitutionID,
		"candidate_id", candidateID,
		"proposer_id", proposerID,
		"target_level", cmd.TargetLevel,
	)
	if constitutionID == "" || candidateID == "" || proposerID == "" || cmd.TargetLevel <= 0 {
		return entities.Promotion{}, domainerrors.ErrInvalidPromotionInput
	}

	constitution, err := uc.Constitutions.GetConstitutionByID(ctx, constitutionID)
	if err != nil {
		return entities.Promotion{}, err
	}
	candidate, err := uc.lookupAgent(ctx, constitutionID, candidateID)
	if err != nil {
		return entities.Promotion{}, err
	}
	if _, err := uc.lookupAgent(ctx, constitutionID, proposerID); err != nil {
		if errors.Is(err, domainerrors.ErrAgentNotFound) {
			return entities.Promotion{}, domainerrors.ErrProposerNotFound
		}
		return entities.Promotion{}, err
	}

	if cmd.TargetLevel <= candidate.TierLevel {
		return entities.Promotion{}, domainerrors.ErrInvalidTargetTier
	}
	if _, err := uc.Constitutions.GetTier(ctx, constitutionID, cmd.TargetLevel); err != nil {
		if errors.Is(err, domainerrors.ErrTierNotFound) {
			return entities.Promotion{}, domainerrors.ErrInvalidTargetTier
		}
		return entities.Promotion{}, err
	}

	if _, found, err := uc.Promotions.GetOpenPromotionByCandidate(ctx, constitutionID, candidateID); err != nil {
		return entities.Promotion{}, err
	} else if found {
		return entities.Promotion{}, domainerrors.ErrDuplicateOpenPromotion
	}

	now := uc.now()
	if latest, found, err := uc.Promotions.GetLatestCooldownPromotion(ctx, constitutionID, candidateID); err != nil {
		return entities.Promotion{}, err
	} else if found && latest.ResolvedAt != nil {
		if now.Before(latest.ResolvedAt.Add(constitution.Config.CooldownWindow())) {
			return entities.Promotion{}, domainerrors.ErrCooldownActive
		}
	}

	promotionID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return entities.Promotion{}, err
	}
	promotion := entities.Promotion{
		PromotionID:    promotionID,
		ConstitutionID: constitutionID,
		CandidateID:    candidateID,
		ProposerID:     proposerID,
		TargetLevel:    cmd.TargetLevel,
		Status:         entities.PromotionStatusOpen,
		OpenedAt:       now,
		VotingClosesAt: now.Add(constitution.Config.VotingWindow()),
	}
	if err := uc.Promotions.SavePromotion(ctx, promotion); err != nil {
		return entities.Promotion{}, err
	}
	if err := uc.appendPromotionEvent(ctx, "promotion.created", promotion, now, nil); err != nil {
		return entities.Promotion{}, err
	}

	logger.Info("promotion created",
		"event", "governance_promotion_created",
		"module", "governance/promotion-engine",
		"layer", "application",
		"promotion_id", promotion.PromotionID,
		"constitution_id", constitutionID,
		"candidate_id", candidateID,
		"target_level", cmd.TargetLevel,
		"voting_closes_at", promotion.VotingClosesAt,
	)
	return promotion, nil
}

// CastVote upserts the voter's decision on an open promotion. Casting again
// replaces the prior decision and reason; it never accumulates a second row.
// Voter eligibility is engine policy: the voter must belong to the same
// constitution and hold a tier at or above the candidate's current level.
func (uc PromotionUseCase) CastVote(ctx context.Context, cmd CastVoteCommand) (CastVoteResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	promotionID := strings.TrimSpace(cmd.PromotionID)
	voterID := strings.TrimSpace(cmd.VoterID)
	logger.Info("vote cast started",
		"event", "governance_vote_cast_started",
		"module", "governance/promotion-engine",
		"layer", "application",
		"promotion_id", promotionID,
		"voter_id", voterID,
		"approve", cmd.Approve,
	)
	if promotionID == "" || voterID == "" {
		return CastVoteResult{}, domainerrors.ErrInvalidVoteInput
	}

	promotion, err := uc.Promotions.GetPromotion(ctx, promotionID)
	if err != nil {
		return CastVoteResult{}, err
	}
	if promotion.Status != entities.PromotionStatusOpen {
		return CastVoteResult{}, domainerrors.ErrPromotionNotOpen
	}
	now := uc.now()
	if !now.Before(promotion.VotingClosesAt) {
		return CastVoteResult{}, domainerrors.ErrVotingClosed
	}
	if voterID == promotion.CandidateID {
		return CastVoteResult{}, domainerrors.ErrSelfVoteForbidden
	}

	candidate, err := uc.lookupAgent(ctx, promotion.ConstitutionID, promotion.CandidateID)
	if err != nil {
		return CastVoteResult{}, err
	}
	voter, err := uc.lookupAgent(ctx, promotion.ConstitutionID, voterID)
	if err != nil {
		if errors.Is(err, domainerrors.ErrAgentNotFound) {
			return CastVoteResult{}, domainerrors.ErrVoterNotEligible
		}
		return CastVoteResult{}, err
	}
	if voter.TierLevel < candidate.TierLevel {
		return CastVoteResult{}, domainerrors.ErrVoterNotEligible
	}

	vote := entities.Vote{
		PromotionID: promotionID,
		VoterID:     voterID,
		Approve:     cmd.Approve,
		Reason:      strings.TrimSpace(cmd.Reason),
		CastAt:      now,
	}
	if err := uc.Votes.UpsertVote(ctx, vote); err != nil {
		return CastVoteResult{}, err
	}
	if err := uc.appendPromotionEvent(ctx, "vote.cast", promotion, now, map[string]any{
		"voter_id": voterID,
		"approve":  cmd.Approve,
	}); err != nil {
		return CastVoteResult{}, err
	}

	votes, err := uc.Votes.ListVotesByPromotion(ctx, promotionID)
	if err != nil {
		return CastVoteResult{}, err
	}
	tally := entities.TallyVotes(votes)
	logger.Info("vote cast recorded",
		"event", "governance_vote_cast_recorded",
		"module", "governance/promotion-engine",
		"layer", "application",
		"promotion_id", promotionID,
		"voter_id", voterID,
		"for", tally.For,
		"against", tally.Against,
	)
	return CastVoteResult{Promotion: promotion, Tally: tally}, nil
}

// WithdrawPromotion moves an open promotion to withdrawn. Proposer and
// candidate always have standing; administrative callers are vouched for by
// the transport. Withdrawn promotions never trigger cooldown.
func (uc PromotionUseCase) WithdrawPromotion(ctx context.Context, cmd WithdrawPromotionCommand) (entities.Promotion, error) {
	logger := application.ResolveLogger(uc.Logger)
	promotionID := strings.TrimSpace(cmd.PromotionID)
	withdrawerID := strings.TrimSpace(cmd.WithdrawerID)
	if promotionID == "" || withdrawerID == "" {
		return entities.Promotion{}, domainerrors.ErrInvalidPromotionInput
	}

	promotion, err := uc.Promotions.GetPromotion(ctx, promotionID)
	if err != nil {
		return entities.Promotion{}, err
	}
	if promotion.Status != entities.PromotionStatusOpen {
		return entities.Promotion{}, domainerrors.ErrPromotionNotOpen
	}
	if withdrawerID != promotion.ProposerID && withdrawerID != promotion.CandidateID && !cmd.Administrative {
		return entities.Promotion{}, domainerrors.ErrUnauthorizedWithdrawal
	}

	now := uc.now()
	promotion.Status = entities.PromotionStatusWithdrawn
	promotion.ResolvedAt = &now
	promotion.WithdrawnBy = withdrawerID
	if err := uc.Promotions.CompletePromotion(ctx, promotion); err != nil {
		if errors.Is(err, domainerrors.ErrConflict) {
			// Lost the transition race; whatever won left a terminal state.
			return entities.Promotion{}, domainerrors.ErrPromotionNotOpen
		}
		return entities.Promotion{}, err
	}
	if err := uc.appendPromotionEvent(ctx, "promotion.withdrawn", promotion, now, map[string]any{
		"withdrawn_by": withdrawerID,
	}); err != nil {
		return entities.Promotion{}, err
	}

	logger.Info("promotion withdrawn",
		"event", "governance_promotion_withdrawn",
		"module", "governance/promotion-engine",
		"layer", "application",
		"promotion_id", promotionID,
		"withdrawn_by", withdrawerID,
	)
	return promotion, nil
}

// ResolvePromotion commits the terminal state of an open promotion. The
// tally is read under the same storage lock that flips the status, so a vote
// either lands before the snapshot or is refused by the ledger; nothing can
// slip between the count and the decision. Zero distinct voters resolve to
// expired. Otherwise the promotion is approved iff for-votes strictly exceed
// against-votes and distinct voters meet the constitution's quorum; ties
// reject. Approval moves the candidate to the target tier inside that same
// guard, so a replay can never re-apply the tier change. Resolving an
// already-terminal promotion is a no-op that returns the stored outcome.
func (uc PromotionUseCase) ResolvePromotion(ctx context.Context, cmd ResolvePromotionCommand) (ResolvePromotionResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	promotionID := strings.TrimSpace(cmd.PromotionID)
	if promotionID == "" {
		return ResolvePromotionResult{}, domainerrors.ErrInvalidPromotionInput
	}

	promotion, err := uc.Promotions.GetPromotion(ctx, promotionID)
	if err != nil {
		return ResolvePromotionResult{}, err
	}
	if promotion.Status.Terminal() {
		return uc.replayedResult(ctx, promotion)
	}

	constitution, err := uc.Constitutions.GetConstitutionByID(ctx, promotion.ConstitutionID)
	if err != nil {
		return ResolvePromotionResult{}, err
	}

	now := uc.now()
	resolved, tally, err := uc.Promotions.ResolveOpenPromotion(ctx, promotionID, func(open entities.Promotion, tally entities.Tally) (entities.Promotion, bool, error) {
		status := entities.PromotionStatusRejected
		switch {
		case tally.Voters == 0:
			status = entities.PromotionStatusExpired
		case tally.For > tally.Against && tally.Voters >= constitution.Config.QuorumThreshold():
			status = entities.PromotionStatusApproved
		}
		open.Status = status
		open.ResolvedAt = &now
		return open, status == entities.PromotionStatusApproved, nil
	})
	if err != nil {
		if errors.Is(err, domainerrors.ErrConflict) {
			stored, reloadErr := uc.Promotions.GetPromotion(ctx, promotionID)
			if reloadErr != nil {
				return ResolvePromotionResult{}, reloadErr
			}
			if stored.Status.Terminal() {
				return uc.replayedResult(ctx, stored)
			}
		}
		return ResolvePromotionResult{}, err
	}
	if err := uc.appendPromotionEvent(ctx, "promotion.resolved", resolved, now, map[string]any{
		"outcome": string(resolved.Status),
		"for":     tally.For,
		"against": tally.Against,
		"voters":  tally.Voters,
	}); err != nil {
		return ResolvePromotionResult{}, err
	}

	logger.Info("promotion resolved",
		"event", "governance_promotion_resolved",
		"module", "governance/promotion-engine",
		"layer", "application",
		"promotion_id", promotionID,
		"outcome", string(resolved.Status),
		"for", tally.For,
		"against", tally.Against,
		"voters", tally.Voters,
	)
	return ResolvePromotionResult{Promotion: resolved, Tally: tally}, nil
}

func (uc PromotionUseCase) replayedResult(ctx context.Context, promotion entities.Promotion) (ResolvePromotionResult, error) {
	votes, err := uc.Votes.ListVotesByPromotion(ctx, promotion.PromotionID)
	if err != nil {
		return ResolvePromotionResult{}, err
	}
	return ResolvePromotionResult{Promotion: promotion, Tally: entities.TallyVotes(votes), Replayed: true}, nil
}

func (uc PromotionUseCase) lookupAgent(ctx context.Context, constitutionID string, agentID string) (entities.Agent, error) {
	agent, err := uc.Agents.GetAgent(ctx, agentID)
	if err != nil {
		return entities.Agent{}, err
	}
	if agent.ConstitutionID != constitutionID {
		return entities.Agent{}, domainerrors.ErrAgentNotFound
	}
	return agent, nil
}

func (uc PromotionUseCase) now() time.Time {
	now := time.Now().UTC()
	if uc.Clock != nil {
		now = uc.Clock.Now().UTC()
	}
	return now
}

func (uc PromotionUseCase) appendPromotionEvent(
	ctx context.Context,
	eventType string,
	promotion entities.Promotion,
	occurredAt time.Time,
	metadata map[string]any,
) error {
	// Outbox is optional for pure read/test wiring, so nil is treated as no-op.
	if uc.Outbox == nil {
		return nil
	}
	eventID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return err
	}
	data := map[string]any{
		"promotion_id":    promotion.PromotionID,
		"constitution_id": promotion.ConstitutionID,
		"candidate_id":    promotion.CandidateID,
		"proposer_id":     promotion.ProposerID,
		"target_level":    promotion.TargetLevel,
		"status":          string(promotion.Status),
		"occurred_at":     occurredAt.Format(time.RFC3339),
	}
	for key, value := range metadata {
		data[key] = value
	}

	envelope, err := newGovernanceEnvelope(eventID, eventType, promotion.ConstitutionID, occurredAt, data)
	if err != nil {
		return err
	}
	return uc.Outbox.AppendOutbox(ctx, envelope)
}
