package errors

import "errors"

var (
	ErrInvalidConstitutionInput = errors.New("invalid constitution input")
	ErrInvalidAgentInput        = errors.New("invalid agent input")
	ErrInvalidPromotionInput    = errors.New("invalid promotion input")
	ErrInvalidVoteInput         = errors.New("invalid vote input")

	ErrConstitutionNotFound = errors.New("constitution not found")
	ErrTierNotFound         = errors.New("tier not found")
	ErrAgentNotFound        = errors.New("agent not found")
	ErrProposerNotFound     = errors.New("proposer not found")
	ErrPromotionNotFound    = errors.New("promotion not found")

	ErrSlugAlreadyExists        = errors.New("constitution slug already exists")
	ErrWalletAlreadyRegistered  = errors.New("wallet is already registered in this constitution")
	ErrBootstrapCapacityReached = errors.New("bootstrap tier capacity reached")

	ErrDuplicateOpenPromotion = errors.New("candidate already has an open promotion")
	ErrInvalidTargetTier      = errors.New("target tier must exist and exceed the candidate tier")
	ErrCooldownActive         = errors.New("promotion cooldown is active for this candidate")
	ErrPromotionNotOpen       = errors.New("promotion is not open")
	ErrVotingClosed           = errors.New("voting window has closed")
	ErrSelfVoteForbidden      = errors.New("candidates may not vote on their own promotion")
	ErrVoterNotEligible       = errors.New("voter does not meet the tier eligibility policy")
	ErrUnauthorizedWithdrawal = errors.New("withdrawer lacks standing for this promotion")

	ErrConflict = errors.New("promotion state conflict")
)
