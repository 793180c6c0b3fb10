package http

import "time"

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type CreateConstitutionRequest struct {
	Slug                string             `json:"slug"`
	Name                string             `json:"name"`
	Content             string             `json:"content"`
	Version             string             `json:"version"`
	VotingSpace         string             `json:"voting_space,omitempty"`
	IsDefault           bool               `json:"is_default,omitempty"`
	BootstrapTier2Limit int                `json:"bootstrap_tier2_limit,omitempty"`
	Founder             *FounderRequest    `json:"founder,omitempty"`
	Tiers               []TierRequest      `json:"tiers"`
	Governance          *GovernanceRequest `json:"governance,omitempty"`
}

type FounderRequest struct {
	DisplayName   string `json:"display_name"`
	WalletAddress string `json:"wallet_address"`
}

type TierRequest struct {
	Level        int    `json:"level"`
	Name         string `json:"name"`
	Requirements string `json:"requirements,omitempty"`
}

type GovernanceRequest struct {
	FoundingBoardSize     int `json:"founding_board_size,omitempty"`
	BootstrapTierLevel    int `json:"bootstrap_tier_level,omitempty"`
	PromotionVotingDays   int `json:"promotion_voting_days,omitempty"`
	PromotionCooldownDays int `json:"promotion_cooldown_days,omitempty"`
	Quorum                int `json:"quorum,omitempty"`
}

type ConstitutionResponse struct {
	ConstitutionID      string         `json:"constitution_id"`
	Slug                string         `json:"slug"`
	Name                string         `json:"name"`
	ContentHash         string         `json:"content_hash"`
	Version             string         `json:"version"`
	VotingSpace         string         `json:"voting_space,omitempty"`
	FounderAgentID      string         `json:"founder_agent_id,omitempty"`
	BootstrapTier2Limit int            `json:"bootstrap_tier2_limit,omitempty"`
	IsDefault           bool           `json:"is_default"`
	Governance          GovernanceView `json:"governance"`
	CreatedAt           time.Time      `json:"created_at"`
}

type GovernanceView struct {
	FoundingBoardSize     int `json:"founding_board_size"`
	BootstrapTierLevel    int `json:"bootstrap_tier_level"`
	PromotionVotingDays   int `json:"promotion_voting_days"`
	PromotionCooldownDays int `json:"promotion_cooldown_days"`
	Quorum                int `json:"quorum"`
}

type RegisterAgentRequest struct {
	DisplayName   string `json:"display_name"`
	WalletAddress string `json:"wallet_address"`
}

type AgentResponse struct {
	AgentID        string    `json:"agent_id"`
	ConstitutionID string    `json:"constitution_id"`
	DisplayName    string    `json:"display_name"`
	WalletAddress  string    `json:"wallet_address"`
	TierLevel      int       `json:"tier_level"`
	RegisteredAt   time.Time `json:"registered_at"`
}

type TierResponse struct {
	Level        int    `json:"level"`
	Name         string `json:"name"`
	Requirements string `json:"requirements,omitempty"`
}

type TierListResponse struct {
	ConstitutionID string         `json:"constitution_id"`
	Tiers          []TierResponse `json:"tiers"`
}

type TierMembersResponse struct {
	ConstitutionID string          `json:"constitution_id"`
	Level          int             `json:"level"`
	Members        []AgentResponse `json:"members"`
}

type TierStatsItem struct {
	Level   int `json:"level"`
	Members int `json:"members"`
}

type TierStatsResponse struct {
	ConstitutionID string          `json:"constitution_id"`
	Tiers          []TierStatsItem `json:"tiers"`
}

type CreatePromotionRequest struct {
	CandidateID string `json:"candidate_id"`
	ProposerID  string `json:"proposer_id"`
	TargetLevel int    `json:"target_level"`
}

type PromotionResponse struct {
	PromotionID    string     `json:"promotion_id"`
	ConstitutionID string     `json:"constitution_id"`
	CandidateID    string     `json:"candidate_id"`
	ProposerID     string     `json:"proposer_id"`
	TargetLevel    int        `json:"target_level"`
	Status         string     `json:"status"`
	OpenedAt       time.Time  `json:"opened_at"`
	VotingClosesAt time.Time  `json:"voting_closes_at"`
	ResolvedAt     *time.Time `json:"resolved_at,omitempty"`
	WithdrawnBy    string     `json:"withdrawn_by,omitempty"`
	VotesFor       int        `json:"votes_for"`
	VotesAgainst   int        `json:"votes_against"`
	Voters         int        `json:"voters"`
	Replayed       bool       `json:"replayed,omitempty"`
}

type CastVoteRequest struct {
	VoterID string `json:"voter_id"`
	Approve bool   `json:"approve"`
	Reason  string `json:"reason,omitempty"`
}

type WithdrawPromotionRequest struct {
	RequestedBy string `json:"requested_by"`
}
