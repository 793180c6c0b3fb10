package entities

import "time"

type PromotionStatus string

const (
	PromotionStatusOpen      PromotionStatus = "open"
	PromotionStatusApproved  PromotionStatus = "approved"
	PromotionStatusRejected  PromotionStatus = "rejected"
	PromotionStatusWithdrawn PromotionStatus = "withdrawn"
	PromotionStatusExpired   PromotionStatus = "expired"
)

// Terminal reports whether no further transitions may leave the status.
func (s PromotionStatus) Terminal() bool {
	switch s {
	case PromotionStatusApproved, PromotionStatusRejected,
		PromotionStatusWithdrawn, PromotionStatusExpired:
		return true
	default:
		return false
	}
}

// TriggersCooldown reports whether a promotion resolved with this status
// blocks the candidate for the constitution's cooldown window. Withdrawn and
// expired promotions never do.
func (s PromotionStatus) TriggersCooldown() bool {
	return s == PromotionStatusApproved || s == PromotionStatusRejected
}

type Promotion struct {
	PromotionID    string
	ConstitutionID string
	CandidateID    string
	ProposerID     string
	TargetLevel    int
	Status         PromotionStatus
	OpenedAt       time.Time
	VotingClosesAt time.Time
	ResolvedAt     *time.Time
	WithdrawnBy    string
}

type Vote struct {
	PromotionID string
	VoterID     string
	Approve     bool
	Reason      string
	CastAt      time.Time
}

type Tally struct {
	For     int
	Against int
	Voters  int
}

// TallyVotes counts one decision per voter. The vote ledger upserts by
// (promotion, voter), so the slice already holds at most one row per voter.
func TallyVotes(votes []Vote) Tally {
	tally := Tally{Voters: len(votes)}
	for _, vote := range votes {
		if vote.Approve {
			tally.For++
		} else {
			tally.Against++
		}
	}
	return tally
}
