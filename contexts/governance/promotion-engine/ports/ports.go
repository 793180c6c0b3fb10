package ports

import (
	"context"
	"time"

	"concord/contexts/governance/promotion-engine/domain/entities"
)

type ConstitutionRepository interface {
	SaveConstitution(ctx context.Context, constitution entities.Constitution) error
	// AppendConstitutionVersion inserts one row of the append-only version
	// history; existing rows are never touched.
	AppendConstitutionVersion(ctx context.Context, version entities.ConstitutionVersion) error
	GetConstitutionByID(ctx context.Context, constitutionID string) (entities.Constitution, error)
	GetConstitutionBySlug(ctx context.Context, slug string) (entities.Constitution, error)
	GetDefaultConstitution(ctx context.Context) (entities.Constitution, error)
	SaveTier(ctx context.Context, tier entities.Tier) error
	ListTiers(ctx context.Context, constitutionID string) ([]entities.Tier, error)
	GetTier(ctx context.Context, constitutionID string, level int) (entities.Tier, error)
}

type AgentRepository interface {
	SaveAgent(ctx context.Context, agent entities.Agent) error
	GetAgent(ctx context.Context, agentID string) (entities.Agent, error)
	GetAgentByWallet(ctx context.Context, constitutionID string, wallet string) (entities.Agent, bool, error)
	ListAgentsByTier(ctx context.Context, constitutionID string, level int) ([]entities.Agent, error)
	// CountAgentsByTier scans current tier assignments; callers merge the
	// result with the tier ladder so empty tiers report zero.
	CountAgentsByTier(ctx context.Context, constitutionID string) (map[int]int, error)
}

type PromotionRepository interface {
	SavePromotion(ctx context.Context, promotion entities.Promotion) error
	GetPromotion(ctx context.Context, promotionID string) (entities.Promotion, error)
	GetOpenPromotionByCandidate(ctx context.Context, constitutionID string, candidateID string) (entities.Promotion, bool, error)
	// GetLatestCooldownPromotion returns the candidate's most recent promotion
	// whose terminal status triggers cooldown (approved or rejected).
	GetLatestCooldownPromotion(ctx context.Context, constitutionID string, candidateID string) (entities.Promotion, bool, error)
	ListOpenPromotionsDue(ctx context.Context, now time.Time, limit int) ([]entities.Promotion, error)
	// CompletePromotion commits the terminal fields of the supplied promotion,
	// guarded on the stored status still being open. A missed guard returns
	// ErrConflict so the caller can reload.
	CompletePromotion(ctx context.Context, promotion entities.Promotion) error
	// ResolveOpenPromotion reads the promotion and its votes under the same
	// lock that commits the transition, so no vote can land between the tally
	// snapshot and the status flip. decide receives the open promotion and the
	// locked-in tally and returns the terminal promotion plus whether the
	// candidate moves to the target tier. An already-terminal promotion
	// returns ErrConflict without invoking decide.
	ResolveOpenPromotion(ctx context.Context, promotionID string, decide ResolveDecision) (entities.Promotion, entities.Tally, error)
}

// ResolveDecision turns a locked-in tally into the terminal promotion. The
// boolean reports whether the candidate moves to the target tier.
type ResolveDecision func(open entities.Promotion, tally entities.Tally) (entities.Promotion, bool, error)

type VoteRepository interface {
	// UpsertVote keeps exactly one row per (promotion, voter); a replay
	// replaces decision and reason and refreshes cast-at. The write is
	// accepted only while the stored promotion is still open; once a resolve
	// or withdrawal commits, late votes fail with ErrPromotionNotOpen instead
	// of landing outside the tally.
	UpsertVote(ctx context.Context, vote entities.Vote) error
	ListVotesByPromotion(ctx context.Context, promotionID string) ([]entities.Vote, error)
}

type EventEnvelope struct {
	EventID          string          `json:"event_id"`
	EventType        string          `json:"event_type"`
	OccurredAt       time.Time       `json:"occurred_at"`
	SourceService    string          `json:"source_service"`
	TraceID          string          `json:"trace_id"`
	SchemaVersion    int             `json:"schema_version"`
	PartitionKeyPath string          `json:"partition_key_path"`
	PartitionKey     string          `json:"partition_key"`
	Data             []byte          `json:"data"`
}

type OutboxMessage struct {
	OutboxID     string
	EventType    string
	PartitionKey string
	Payload      []byte
	CreatedAt    time.Time
}

type OutboxWriter interface {
	AppendOutbox(ctx context.Context, envelope EventEnvelope) error
}

type OutboxRepository interface {
	ListPendingOutbox(ctx context.Context, limit int) ([]OutboxMessage, error)
	MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error
}

type EventPublisher interface {
	Publish(ctx context.Context, topic string, envelope EventEnvelope) error
}

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}
