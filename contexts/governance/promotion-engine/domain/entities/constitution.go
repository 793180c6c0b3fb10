package entities

import "time"

// GovernanceConfig is per-tenant governance policy. It is attached to each
// constitution record and loaded fresh per operation, never process-global.
type GovernanceConfig struct {
	FoundingBoardSize     int
	BootstrapTierLevel    int
	PromotionVotingDays   int
	PromotionCooldownDays int
	Quorum                int
}

func (c GovernanceConfig) VotingWindow() time.Duration {
	days := c.PromotionVotingDays
	if days <= 0 {
		days = 7
	}
	return time.Duration(days) * 24 * time.Hour
}

func (c GovernanceConfig) CooldownWindow() time.Duration {
	days := c.PromotionCooldownDays
	if days <= 0 {
		days = 14
	}
	return time.Duration(days) * 24 * time.Hour
}

func (c GovernanceConfig) QuorumThreshold() int {
	if c.Quorum <= 0 {
		return 1
	}
	return c.Quorum
}

func (c GovernanceConfig) BootstrapLevel() int {
	if c.BootstrapTierLevel <= 0 {
		return 1
	}
	return c.BootstrapTierLevel
}

type Constitution struct {
	ConstitutionID      string
	Slug                string
	Name                string
	ContentHash         string
	Version             string
	VotingSpace         string
	FounderAgentID      string
	BootstrapTier2Limit int
	IsDefault           bool
	Config              GovernanceConfig
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// ConstitutionVersion is one row of the append-only version history. Rows are
// inserted when a new document version is published and never mutated.
type ConstitutionVersion struct {
	ConstitutionID string
	Version        string
	ContentHash    string
	PublishedAt    time.Time
}

type Tier struct {
	ConstitutionID string
	Level          int
	Name           string
	Requirements   string
}

type Agent struct {
	AgentID        string
	ConstitutionID string
	DisplayName    string
	WalletAddress  string
	TierLevel      int
	RegisteredAt   time.Time
}

// TierCount is one row of the membership statistics, computed fresh from
// agent tier assignments so it can never drift from the roll itself.
type TierCount struct {
	Level   int
	Members int
}
