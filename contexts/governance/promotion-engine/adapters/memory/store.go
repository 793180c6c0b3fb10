package memory

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"concord/contexts/governance/promotion-engine/domain/entities"
	domainerrors "concord/contexts/governance/promotion-engine/domain/errors"
	"concord/contexts/governance/promotion-engine/ports"

	"github.com/google/uuid"
)

type outboxRecord struct {
	message   ports.OutboxMessage
	published bool
}

// Store is the in-memory adapter used by tests and local wiring. It
// implements every engine port plus Clock and IDGenerator.
type Store struct {
	mu sync.RWMutex

	constitutions map[string]entities.Constitution
	versions      []entities.ConstitutionVersion
	tiers         map[string][]entities.Tier
	agents        map[string]entities.Agent
	promotions    map[string]entities.Promotion
	votes         map[string]entities.Vote
	outbox        map[string]outboxRecord
}

func NewStore() *Store {
	return &Store{
		constitutions: make(map[string]entities.Constitution),
		tiers:         make(map[string][]entities.Tier),
		agents:        make(map[string]entities.Agent),
		promotions:    make(map[string]entities.Promotion),
		votes:         make(map[string]entities.Vote),
		outbox:        make(map[string]outboxRecord),
	}
}

func (s *Store) SaveConstitution(_ context.Context, constitution entities.Constitution) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.constitutions[strings.TrimSpace(constitution.ConstitutionID)] = constitution
	return nil
}

func (s *Store) AppendConstitutionVersion(_ context.Context, version entities.ConstitutionVersion) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.versions = append(s.versions, version)
	return nil
}

func (s *Store) GetConstitutionByID(_ context.Context, constitutionID string) (entities.Constitution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	constitution, ok := s.constitutions[strings.TrimSpace(constitutionID)]
	if !ok {
		return entities.Constitution{}, domainerrors.ErrConstitutionNotFound
	}
	return constitution, nil
}

func (s *Store) GetConstitutionBySlug(_ context.Context, slug string) (entities.Constitution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	slug = strings.ToLower(strings.TrimSpace(slug))
	for _, constitution := range s.constitutions {
		if constitution.Slug == slug {
			return constitution, nil
		}
	}
	return entities.Constitution{}, domainerrors.ErrConstitutionNotFound
}

func (s *Store) GetDefaultConstitution(_ context.Context) (entities.Constitution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, constitution := range s.constitutions {
		if constitution.IsDefault {
			return constitution, nil
		}
	}
	return entities.Constitution{}, domainerrors.ErrConstitutionNotFound
}

func (s *Store) SaveTier(_ context.Context, tier entities.Tier) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := strings.TrimSpace(tier.ConstitutionID)
	for i, existing := range s.tiers[key] {
		if existing.Level == tier.Level {
			s.tiers[key][i] = tier
			return nil
		}
	}
	s.tiers[key] = append(s.tiers[key], tier)
	return nil
}

func (s *Store) ListTiers(_ context.Context, constitutionID string) ([]entities.Tier, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := append([]entities.Tier(nil), s.tiers[strings.TrimSpace(constitutionID)]...)
	sort.Slice(items, func(i, j int) bool { return items[i].Level < items[j].Level })
	return items, nil
}

func (s *Store) GetTier(_ context.Context, constitutionID string, level int) (entities.Tier, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, tier := range s.tiers[strings.TrimSpace(constitutionID)] {
		if tier.Level == level {
			return tier, nil
		}
	}
	return entities.Tier{}, domainerrors.ErrTierNotFound
}

func (s *Store) SaveAgent(_ context.Context, agent entities.Agent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.agents[strings.TrimSpace(agent.AgentID)] = agent
	return nil
}

func (s *Store) GetAgent(_ context.Context, agentID string) (entities.Agent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	agent, ok := s.agents[strings.TrimSpace(agentID)]
	if !ok {
		return entities.Agent{}, domainerrors.ErrAgentNotFound
	}
	return agent, nil
}

func (s *Store) GetAgentByWallet(_ context.Context, constitutionID string, wallet string) (entities.Agent, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	constitutionID = strings.TrimSpace(constitutionID)
	wallet = strings.TrimSpace(wallet)
	for _, agent := range s.agents {
		if agent.ConstitutionID == constitutionID && agent.WalletAddress == wallet {
			return agent, true, nil
		}
	}
	return entities.Agent{}, false, nil
}

func (s *Store) ListAgentsByTier(_ context.Context, constitutionID string, level int) ([]entities.Agent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]entities.Agent, 0)
	for _, agent := range s.agents {
		if agent.ConstitutionID == strings.TrimSpace(constitutionID) && agent.TierLevel == level {
			items = append(items, agent)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].RegisteredAt.Equal(items[j].RegisteredAt) {
			return items[i].AgentID < items[j].AgentID
		}
		return items[i].RegisteredAt.Before(items[j].RegisteredAt)
	})
	return items, nil
}

func (s *Store) CountAgentsByTier(_ context.Context, constitutionID string) (map[int]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := make(map[int]int)
	for _, agent := range s.agents {
		if agent.ConstitutionID == strings.TrimSpace(constitutionID) {
			counts[agent.TierLevel]++
		}
	}
	return counts, nil
}

func (s *Store) SavePromotion(_ context.Context, promotion entities.Promotion) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := strings.TrimSpace(promotion.PromotionID)
	// Mirrors the partial unique index the postgres adapter declares: at most
	// one open promotion per (constitution, candidate).
	if promotion.Status == entities.PromotionStatusOpen {
		for _, existing := range s.promotions {
			if existing.PromotionID == key {
				continue
			}
			if existing.ConstitutionID == strings.TrimSpace(promotion.ConstitutionID) &&
				existing.CandidateID == strings.TrimSpace(promotion.CandidateID) &&
				existing.Status == entities.PromotionStatusOpen {
				return domainerrors.ErrDuplicateOpenPromotion
			}
		}
	}
	s.promotions[key] = promotion
	return nil
}

func (s *Store) GetPromotion(_ context.Context, promotionID string) (entities.Promotion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	promotion, ok := s.promotions[strings.TrimSpace(promotionID)]
	if !ok {
		return entities.Promotion{}, domainerrors.ErrPromotionNotFound
	}
	return promotion, nil
}

func (s *Store) GetOpenPromotionByCandidate(_ context.Context, constitutionID string, candidateID string) (entities.Promotion, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, promotion := range s.promotions {
		if promotion.ConstitutionID == strings.TrimSpace(constitutionID) &&
			promotion.CandidateID == strings.TrimSpace(candidateID) &&
			promotion.Status == entities.PromotionStatusOpen {
			return promotion, true, nil
		}
	}
	return entities.Promotion{}, false, nil
}

func (s *Store) GetLatestCooldownPromotion(_ context.Context, constitutionID string, candidateID string) (entities.Promotion, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var latest entities.Promotion
	found := false
	for _, promotion := range s.promotions {
		if promotion.ConstitutionID != strings.TrimSpace(constitutionID) ||
			promotion.CandidateID != strings.TrimSpace(candidateID) {
			continue
		}
		if !promotion.Status.TriggersCooldown() || promotion.ResolvedAt == nil {
			continue
		}
		if !found || promotion.ResolvedAt.After(*latest.ResolvedAt) {
			latest = promotion
			found = true
		}
	}
	return latest, found, nil
}

func (s *Store) ListOpenPromotionsDue(_ context.Context, now time.Time, limit int) ([]entities.Promotion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 {
		limit = 100
	}
	items := make([]entities.Promotion, 0)
	for _, promotion := range s.promotions {
		if promotion.Status == entities.PromotionStatusOpen && !now.Before(promotion.VotingClosesAt) {
			items = append(items, promotion)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].VotingClosesAt.Before(items[j].VotingClosesAt)
	})
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (s *Store) CompletePromotion(_ context.Context, promotion entities.Promotion) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.TrimSpace(promotion.PromotionID)
	stored, ok := s.promotions[key]
	if !ok {
		return domainerrors.ErrPromotionNotFound
	}
	if stored.Status != entities.PromotionStatusOpen {
		return domainerrors.ErrConflict
	}
	s.promotions[key] = promotion
	return nil
}

// ResolveOpenPromotion tallies and transitions under one lock, so votes and
// the status flip cannot interleave. Nothing is written until every check
// passes; a missing candidate leaves the promotion open.
func (s *Store) ResolveOpenPromotion(_ context.Context, promotionID string, decide ports.ResolveDecision) (entities.Promotion, entities.Tally, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.TrimSpace(promotionID)
	stored, ok := s.promotions[key]
	if !ok {
		return entities.Promotion{}, entities.Tally{}, domainerrors.ErrPromotionNotFound
	}
	if stored.Status != entities.PromotionStatusOpen {
		return entities.Promotion{}, entities.Tally{}, domainerrors.ErrConflict
	}

	tally := entities.TallyVotes(s.votesLocked(key))
	terminal, promoteCandidate, err := decide(stored, tally)
	if err != nil {
		return entities.Promotion{}, entities.Tally{}, err
	}
	if promoteCandidate {
		candidateID := strings.TrimSpace(terminal.CandidateID)
		agent, ok := s.agents[candidateID]
		if !ok {
			return entities.Promotion{}, entities.Tally{}, domainerrors.ErrAgentNotFound
		}
		agent.TierLevel = terminal.TargetLevel
		s.agents[candidateID] = agent
	}
	s.promotions[key] = terminal
	return terminal, tally, nil
}

func (s *Store) UpsertVote(_ context.Context, vote entities.Vote) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	promotion, ok := s.promotions[strings.TrimSpace(vote.PromotionID)]
	if !ok {
		return domainerrors.ErrPromotionNotFound
	}
	// Votes are only accepted while the promotion is open; a write racing a
	// resolve either lands before the tally or fails here.
	if promotion.Status != entities.PromotionStatusOpen {
		return domainerrors.ErrPromotionNotOpen
	}
	s.votes[voteKey(vote.PromotionID, vote.VoterID)] = vote
	return nil
}

func (s *Store) ListVotesByPromotion(_ context.Context, promotionID string) ([]entities.Vote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.votesLocked(strings.TrimSpace(promotionID)), nil
}

func (s *Store) votesLocked(promotionID string) []entities.Vote {
	items := make([]entities.Vote, 0)
	for _, vote := range s.votes {
		if vote.PromotionID == promotionID {
			items = append(items, vote)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].CastAt.Equal(items[j].CastAt) {
			return items[i].VoterID < items[j].VoterID
		}
		return items[i].CastAt.Before(items[j].CastAt)
	})
	return items
}

func (s *Store) AppendOutbox(_ context.Context, envelope ports.EventEnvelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	payload, err := json.Marshal(envelope)
	if err != nil {
		return err
	}
	outboxID := strings.TrimSpace(envelope.EventID)
	if outboxID == "" {
		outboxID = uuid.NewString()
	}
	if _, ok := s.outbox[outboxID]; ok {
		return nil
	}
	createdAt := envelope.OccurredAt.UTC()
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	s.outbox[outboxID] = outboxRecord{
		message: ports.OutboxMessage{
			OutboxID:     outboxID,
			EventType:    strings.TrimSpace(envelope.EventType),
			PartitionKey: strings.TrimSpace(envelope.PartitionKey),
			Payload:      payload,
			CreatedAt:    createdAt,
		},
	}
	return nil
}

func (s *Store) ListPendingOutbox(_ context.Context, limit int) ([]ports.OutboxMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 100
	}
	items := make([]ports.OutboxMessage, 0, len(s.outbox))
	for _, row := range s.outbox {
		if row.published {
			continue
		}
		items = append(items, row.message)
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (s *Store) MarkOutboxPublished(_ context.Context, outboxID string, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.outbox[strings.TrimSpace(outboxID)]
	if !ok {
		return domainerrors.ErrConflict
	}
	row.published = true
	s.outbox[strings.TrimSpace(outboxID)] = row
	return nil
}

func (s *Store) Now() time.Time {
	return time.Now().UTC()
}

func (s *Store) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

func voteKey(promotionID string, voterID string) string {
	return strings.TrimSpace(promotionID) + "|" + strings.TrimSpace(voterID)
}

var _ ports.ConstitutionRepository = (*Store)(nil)
var _ ports.AgentRepository = (*Store)(nil)
var _ ports.PromotionRepository = (*Store)(nil)
var _ ports.VoteRepository = (*Store)(nil)
var _ ports.OutboxWriter = (*Store)(nil)
var _ ports.OutboxRepository = (*Store)(nil)
