package postgresadapter

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"concord/contexts/governance/promotion-engine/domain/entities"
	domainerrors "concord/contexts/governance/promotion-engine/domain/errors"
	"concord/contexts/governance/promotion-engine/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	outboxStatusPending   = "pending"
	outboxStatusPublished = "published"
)

type Repository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewRepository(db *gorm.DB, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// AutoMigrate creates or updates the governance schema.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&constitutionModel{},
		&constitutionVersionModel{},
		&tierModel{},
		&agentModel{},
		&promotionModel{},
		&voteModel{},
		&outboxModel{},
	)
}

func (r *Repository) SaveConstitution(ctx context.Context, constitution entities.Constitution) error {
	row := constitutionModelFromEntity(constitution)
	create := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"name":                  row.Name,
			"content_hash":          row.ContentHash,
			"version":               row.Version,
			"voting_space":          row.VotingSpace,
			"founder_agent_id":      row.FounderAgentID,
			"bootstrap_tier2_limit": row.BootstrapTier2Limit,
			"is_default":            row.IsDefault,
			"founding_board_size":   row.FoundingBoardSize,
			"bootstrap_tier_level":  row.BootstrapTierLevel,
			"voting_days":           row.VotingDays,
			"cooldown_days":         row.CooldownDays,
			"quorum":                row.Quorum,
			"updated_at":            row.UpdatedAt,
		}),
	}).Create(&row)
	if create.Error != nil {
		if isUniqueViolation(create.Error) {
			return domainerrors.ErrSlugAlreadyExists
		}
		return r.logError("governance_repo_save_constitution_failed", create.Error,
			"constitution_id", strings.TrimSpace(constitution.ConstitutionID),
		)
	}
	return nil
}

func (r *Repository) AppendConstitutionVersion(ctx context.Context, version entities.ConstitutionVersion) error {
	row := constitutionVersionModel{
		ConstitutionID: strings.TrimSpace(version.ConstitutionID),
		Version:        strings.TrimSpace(version.Version),
		ContentHash:    strings.TrimSpace(version.ContentHash),
		PublishedAt:    version.PublishedAt.UTC(),
	}
	// Version history is append-only: conflicts are ignored, never updated.
	create := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "constitution_id"}, {Name: "version"}},
		DoNothing: true,
	}).Create(&row)
	if create.Error != nil {
		return r.logError("governance_repo_append_version_failed", create.Error,
			"constitution_id", row.ConstitutionID,
			"version", row.Version,
		)
	}
	return nil
}

func (r *Repository) GetConstitutionByID(ctx context.Context, constitutionID string) (entities.Constitution, error) {
	var row constitutionModel
	err := r.db.WithContext(ctx).
		Where("id = ?", strings.TrimSpace(constitutionID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Constitution{}, domainerrors.ErrConstitutionNotFound
		}
		return entities.Constitution{}, r.logError("governance_repo_get_constitution_failed", err,
			"constitution_id", strings.TrimSpace(constitutionID),
		)
	}
	return row.toEntity(), nil
}

func (r *Repository) GetConstitutionBySlug(ctx context.Context, slug string) (entities.Constitution, error) {
	var row constitutionModel
	err := r.db.WithContext(ctx).
		Where("slug = ?", strings.ToLower(strings.TrimSpace(slug))).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Constitution{}, domainerrors.ErrConstitutionNotFound
		}
		return entities.Constitution{}, r.logError("governance_repo_get_constitution_by_slug_failed", err,
			"slug", strings.TrimSpace(slug),
		)
	}
	return row.toEntity(), nil
}

func (r *Repository) GetDefaultConstitution(ctx context.Context) (entities.Constitution, error) {
	var row constitutionModel
	err := r.db.WithContext(ctx).
		Where("is_default = ?", true).
		Order("created_at ASC").
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Constitution{}, domainerrors.ErrConstitutionNotFound
		}
		return entities.Constitution{}, r.logError("governance_repo_get_default_constitution_failed", err)
	}
	return row.toEntity(), nil
}

func (r *Repository) SaveTier(ctx context.Context, tier entities.Tier) error {
	row := tierModel{
		ConstitutionID: strings.TrimSpace(tier.ConstitutionID),
		Level:          tier.Level,
		Name:           strings.TrimSpace(tier.Name),
		Requirements:   strings.TrimSpace(tier.Requirements),
	}
	create := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "constitution_id"}, {Name: "level"}},
		DoUpdates: clause.Assignments(map[string]any{
			"name":         row.Name,
			"requirements": row.Requirements,
		}),
	}).Create(&row)
	if create.Error != nil {
		return r.logError("governance_repo_save_tier_failed", create.Error,
			"constitution_id", row.ConstitutionID,
			"level", row.Level,
		)
	}
	return nil
}

func (r *Repository) ListTiers(ctx context.Context, constitutionID string) ([]entities.Tier, error) {
	var rows []tierModel
	if err := r.db.WithContext(ctx).
		Where("constitution_id = ?", strings.TrimSpace(constitutionID)).
		Order("level ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("governance_repo_list_tiers_failed", err,
			"constitution_id", strings.TrimSpace(constitutionID),
		)
	}
	items := make([]entities.Tier, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

func (r *Repository) GetTier(ctx context.Context, constitutionID string, level int) (entities.Tier, error) {
	var row tierModel
	err := r.db.WithContext(ctx).
		Where("constitution_id = ?", strings.TrimSpace(constitutionID)).
		Where("level = ?", level).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Tier{}, domainerrors.ErrTierNotFound
		}
		return entities.Tier{}, r.logError("governance_repo_get_tier_failed", err,
			"constitution_id", strings.TrimSpace(constitutionID),
			"level", level,
		)
	}
	return row.toEntity(), nil
}

func (r *Repository) SaveAgent(ctx context.Context, agent entities.Agent) error {
	row := agentModelFromEntity(agent)
	create := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"display_name": row.DisplayName,
			"tier_level":   row.TierLevel,
		}),
	}).Create(&row)
	if create.Error != nil {
		if isUniqueViolation(create.Error) {
			return domainerrors.ErrWalletAlreadyRegistered
		}
		return r.logError("governance_repo_save_agent_failed", create.Error,
			"agent_id", strings.TrimSpace(agent.AgentID),
		)
	}
	return nil
}

func (r *Repository) GetAgent(ctx context.Context, agentID string) (entities.Agent, error) {
	var row agentModel
	err := r.db.WithContext(ctx).
		Where("id = ?", strings.TrimSpace(agentID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Agent{}, domainerrors.ErrAgentNotFound
		}
		return entities.Agent{}, r.logError("governance_repo_get_agent_failed", err,
			"agent_id", strings.TrimSpace(agentID),
		)
	}
	return row.toEntity(), nil
}

func (r *Repository) GetAgentByWallet(ctx context.Context, constitutionID string, wallet string) (entities.Agent, bool, error) {
	var row agentModel
	err := r.db.WithContext(ctx).
		Where("constitution_id = ?", strings.TrimSpace(constitutionID)).
		Where("wallet_address = ?", strings.TrimSpace(wallet)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Agent{}, false, nil
		}
		return entities.Agent{}, false, r.logError("governance_repo_get_agent_by_wallet_failed", err,
			"constitution_id", strings.TrimSpace(constitutionID),
		)
	}
	return row.toEntity(), true, nil
}

func (r *Repository) ListAgentsByTier(ctx context.Context, constitutionID string, level int) ([]entities.Agent, error) {
	var rows []agentModel
	if err := r.db.WithContext(ctx).
		Where("constitution_id = ?", strings.TrimSpace(constitutionID)).
		Where("tier_level = ?", level).
		Order("registered_at ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("governance_repo_list_agents_by_tier_failed", err,
			"constitution_id", strings.TrimSpace(constitutionID),
			"level", level,
		)
	}
	items := make([]entities.Agent, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

func (r *Repository) CountAgentsByTier(ctx context.Context, constitutionID string) (map[int]int, error) {
	var rows []struct {
		TierLevel int
		Members   int
	}
	err := r.db.WithContext(ctx).
		Model(&agentModel{}).
		Select("tier_level, COUNT(*) AS members").
		Where("constitution_id = ?", strings.TrimSpace(constitutionID)).
		Group("tier_level").
		Scan(&rows).
		Error
	if err != nil {
		return nil, r.logError("governance_repo_count_agents_by_tier_failed", err,
			"constitution_id", strings.TrimSpace(constitutionID),
		)
	}
	counts := make(map[int]int, len(rows))
	for _, row := range rows {
		counts[row.TierLevel] = row.Members
	}
	return counts, nil
}

func (r *Repository) SavePromotion(ctx context.Context, promotion entities.Promotion) error {
	row := promotionModelFromEntity(promotion)
	create := r.db.WithContext(ctx).Create(&row)
	if create.Error != nil {
		if isUniqueViolation(create.Error) {
			return domainerrors.ErrDuplicateOpenPromotion
		}
		return r.logError("governance_repo_save_promotion_failed", create.Error,
			"promotion_id", strings.TrimSpace(promotion.PromotionID),
		)
	}
	return nil
}

func (r *Repository) GetPromotion(ctx context.Context, promotionID string) (entities.Promotion, error) {
	var row promotionModel
	err := r.db.WithContext(ctx).
		Where("id = ?", strings.TrimSpace(promotionID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Promotion{}, domainerrors.ErrPromotionNotFound
		}
		return entities.Promotion{}, r.logError("governance_repo_get_promotion_failed", err,
			"promotion_id", strings.TrimSpace(promotionID),
		)
	}
	return row.toEntity(), nil
}

func (r *Repository) GetOpenPromotionByCandidate(ctx context.Context, constitutionID string, candidateID string) (entities.Promotion, bool, error) {
	var row promotionModel
	err := r.db.WithContext(ctx).
		Where("constitution_id = ?", strings.TrimSpace(constitutionID)).
		Where("candidate_id = ?", strings.TrimSpace(candidateID)).
		Where("status = ?", string(entities.PromotionStatusOpen)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Promotion{}, false, nil
		}
		return entities.Promotion{}, false, r.logError("governance_repo_get_open_promotion_failed", err,
			"constitution_id", strings.TrimSpace(constitutionID),
			"candidate_id", strings.TrimSpace(candidateID),
		)
	}
	return row.toEntity(), true, nil
}

func (r *Repository) GetLatestCooldownPromotion(ctx context.Context, constitutionID string, candidateID string) (entities.Promotion, bool, error) {
	var row promotionModel
	err := r.db.WithContext(ctx).
		Where("constitution_id = ?", strings.TrimSpace(constitutionID)).
		Where("candidate_id = ?", strings.TrimSpace(candidateID)).
		Where("status IN ?", []string{
			string(entities.PromotionStatusApproved),
			string(entities.PromotionStatusRejected),
		}).
		Order("resolved_at DESC").
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Promotion{}, false, nil
		}
		return entities.Promotion{}, false, r.logError("governance_repo_get_cooldown_promotion_failed", err,
			"constitution_id", strings.TrimSpace(constitutionID),
			"candidate_id", strings.TrimSpace(candidateID),
		)
	}
	return row.toEntity(), true, nil
}

func (r *Repository) ListOpenPromotionsDue(ctx context.Context, now time.Time, limit int) ([]entities.Promotion, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []promotionModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", string(entities.PromotionStatusOpen)).
		Where("voting_closes_at <= ?", now.UTC()).
		Order("voting_closes_at ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, r.logError("governance_repo_list_due_promotions_failed", err, "limit", limit)
	}
	items := make([]entities.Promotion, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

// CompletePromotion flips the promotion out of open. The status guard makes
// the transition conditional: a racer that already resolved the promotion
// leaves RowsAffected at zero and the caller gets ErrConflict.
func (r *Repository) CompletePromotion(ctx context.Context, promotion entities.Promotion) error {
	row := promotionModelFromEntity(promotion)
	result := r.db.WithContext(ctx).Model(&promotionModel{}).
		Where("id = ?", row.ID).
		Where("status = ?", string(entities.PromotionStatusOpen)).
		Updates(map[string]any{
			"status":       row.Status,
			"resolved_at":  row.ResolvedAt,
			"withdrawn_by": row.WithdrawnBy,
		})
	if result.Error != nil {
		return r.logError("governance_repo_complete_promotion_failed", result.Error,
			"promotion_id", row.ID,
			"status", row.Status,
		)
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrConflict
	}
	return nil
}

// ResolveOpenPromotion locks the promotion row, tallies its votes inside the
// same transaction, and commits the outcome decide returns. UpsertVote takes
// a shared lock on the promotion row, so every vote either commits before
// this lock is granted (and is counted) or waits and then sees the terminal
// status. On approval the candidate's tier moves inside the transaction,
// keeping the all-or-nothing shape on every error branch.
func (r *Repository) ResolveOpenPromotion(ctx context.Context, promotionID string, decide ports.ResolveDecision) (entities.Promotion, entities.Tally, error) {
	var resolved entities.Promotion
	var tally entities.Tally
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row promotionModel
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", strings.TrimSpace(promotionID)).
			First(&row).
			Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domainerrors.ErrPromotionNotFound
			}
			return err
		}
		if row.Status != string(entities.PromotionStatusOpen) {
			return domainerrors.ErrConflict
		}

		var voteRows []voteModel
		if err := tx.Where("promotion_id = ?", row.ID).Order("cast_at ASC").Find(&voteRows).Error; err != nil {
			return err
		}
		votes := make([]entities.Vote, 0, len(voteRows))
		for _, voteRow := range voteRows {
			votes = append(votes, voteRow.toEntity())
		}
		tally = entities.TallyVotes(votes)

		terminal, promoteCandidate, err := decide(row.toEntity(), tally)
		if err != nil {
			return err
		}
		out := promotionModelFromEntity(terminal)
		result := tx.Model(&promotionModel{}).
			Where("id = ?", row.ID).
			Where("status = ?", string(entities.PromotionStatusOpen)).
			Updates(map[string]any{
				"status":       out.Status,
				"resolved_at":  out.ResolvedAt,
				"withdrawn_by": out.WithdrawnBy,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return domainerrors.ErrConflict
		}
		if promoteCandidate {
			promote := tx.Model(&agentModel{}).
				Where("id = ?", strings.TrimSpace(terminal.CandidateID)).
				Update("tier_level", terminal.TargetLevel)
			if promote.Error != nil {
				return promote.Error
			}
			if promote.RowsAffected == 0 {
				return domainerrors.ErrAgentNotFound
			}
		}
		resolved = terminal
		return nil
	})
	if err != nil {
		if errors.Is(err, domainerrors.ErrConflict) ||
			errors.Is(err, domainerrors.ErrPromotionNotFound) ||
			errors.Is(err, domainerrors.ErrAgentNotFound) {
			return entities.Promotion{}, entities.Tally{}, err
		}
		return entities.Promotion{}, entities.Tally{}, r.logError("governance_repo_resolve_promotion_failed", err,
			"promotion_id", strings.TrimSpace(promotionID),
		)
	}
	return resolved, tally, nil
}

func (r *Repository) UpsertVote(ctx context.Context, vote entities.Vote) error {
	row := voteModelFromEntity(vote)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var promotion promotionModel
		err := tx.Clauses(clause.Locking{Strength: "SHARE"}).
			Where("id = ?", row.PromotionID).
			First(&promotion).
			Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domainerrors.ErrPromotionNotFound
			}
			return err
		}
		// The shared lock orders this write against ResolveOpenPromotion: a
		// resolve in flight holds the row exclusively, so a late vote waits
		// here and then sees the terminal status instead of landing after
		// the tally snapshot.
		if promotion.Status != string(entities.PromotionStatusOpen) {
			return domainerrors.ErrPromotionNotOpen
		}
		return tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "promotion_id"}, {Name: "voter_id"}},
			DoUpdates: clause.Assignments(map[string]any{
				"approve": row.Approve,
				"reason":  row.Reason,
				"cast_at": row.CastAt,
			}),
		}).Create(&row).Error
	})
	if err != nil {
		if errors.Is(err, domainerrors.ErrPromotionNotFound) || errors.Is(err, domainerrors.ErrPromotionNotOpen) {
			return err
		}
		return r.logError("governance_repo_upsert_vote_failed", err,
			"promotion_id", row.PromotionID,
			"voter_id", row.VoterID,
		)
	}
	return nil
}

func (r *Repository) ListVotesByPromotion(ctx context.Context, promotionID string) ([]entities.Vote, error) {
	var rows []voteModel
	if err := r.db.WithContext(ctx).
		Where("promotion_id = ?", strings.TrimSpace(promotionID)).
		Order("cast_at ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("governance_repo_list_votes_failed", err,
			"promotion_id", strings.TrimSpace(promotionID),
		)
	}
	items := make([]entities.Vote, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

func (r *Repository) AppendOutbox(ctx context.Context, envelope ports.EventEnvelope) error {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return r.logError("governance_repo_append_outbox_marshal_failed", err,
			"event_id", strings.TrimSpace(envelope.EventID),
		)
	}
	row := outboxModel{
		OutboxID:     strings.TrimSpace(envelope.EventID),
		EventType:    strings.TrimSpace(envelope.EventType),
		PartitionKey: strings.TrimSpace(envelope.PartitionKey),
		Payload:      payload,
		Status:       outboxStatusPending,
		CreatedAt:    envelope.OccurredAt.UTC(),
	}
	if row.OutboxID == "" {
		row.OutboxID = uuid.NewString()
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	create := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "outbox_id"}},
		DoNothing: true,
	}).Create(&row)
	if create.Error != nil {
		return r.logError("governance_repo_append_outbox_failed", create.Error,
			"outbox_id", row.OutboxID,
		)
	}
	return nil
}

func (r *Repository) ListPendingOutbox(ctx context.Context, limit int) ([]ports.OutboxMessage, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []outboxModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", outboxStatusPending).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, r.logError("governance_repo_list_pending_outbox_failed", err, "limit", limit)
	}
	items := make([]ports.OutboxMessage, 0, len(rows))
	for _, row := range rows {
		items = append(items, ports.OutboxMessage{
			OutboxID:     row.OutboxID,
			EventType:    row.EventType,
			PartitionKey: row.PartitionKey,
			Payload:      append([]byte(nil), row.Payload...),
			CreatedAt:    row.CreatedAt.UTC(),
		})
	}
	return items, nil
}

func (r *Repository) MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&outboxModel{}).
		Where("outbox_id = ?", strings.TrimSpace(outboxID)).
		Updates(map[string]any{
			"status":       outboxStatusPublished,
			"published_at": publishedAt.UTC(),
		})
	if result.Error != nil {
		return r.logError("governance_repo_mark_outbox_published_failed", result.Error,
			"outbox_id", strings.TrimSpace(outboxID),
		)
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrConflict
	}
	return nil
}

// SystemClock satisfies ports.Clock with wall time.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// UUIDGenerator satisfies ports.IDGenerator.
type UUIDGenerator struct{}

func (UUIDGenerator) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

func (r *Repository) logError(event string, err error, attrs ...any) error {
	fields := make([]any, 0, len(attrs)+8)
	fields = append(fields,
		"event", event,
		"module", "governance/promotion-engine",
		"layer", "adapter",
		"error", err.Error(),
	)
	fields = append(fields, attrs...)
	r.logger.Error("governance repository operation failed", fields...)
	return err
}

type constitutionModel struct {
	ID                  string    `gorm:"column:id;primaryKey"`
	Slug                string    `gorm:"column:slug;uniqueIndex"`
	Name                string    `gorm:"column:name"`
	ContentHash         string    `gorm:"column:content_hash"`
	Version             string    `gorm:"column:version"`
	VotingSpace         string    `gorm:"column:voting_space"`
	FounderAgentID      *string   `gorm:"column:founder_agent_id"`
	BootstrapTier2Limit int       `gorm:"column:bootstrap_tier2_limit"`
	IsDefault           bool      `gorm:"column:is_default"`
	FoundingBoardSize   int       `gorm:"column:founding_board_size"`
	BootstrapTierLevel  int       `gorm:"column:bootstrap_tier_level"`
	VotingDays          int       `gorm:"column:voting_days"`
	CooldownDays        int       `gorm:"column:cooldown_days"`
	Quorum              int       `gorm:"column:quorum"`
	CreatedAt           time.Time `gorm:"column:created_at"`
	UpdatedAt           time.Time `gorm:"column:updated_at"`
}

func (constitutionModel) TableName() string { return "constitutions" }

func constitutionModelFromEntity(constitution entities.Constitution) constitutionModel {
	row := constitutionModel{
		ID:                  strings.TrimSpace(constitution.ConstitutionID),
		Slug:                strings.ToLower(strings.TrimSpace(constitution.Slug)),
		Name:                strings.TrimSpace(constitution.Name),
		ContentHash:         strings.TrimSpace(constitution.ContentHash),
		Version:             strings.TrimSpace(constitution.Version),
		VotingSpace:         strings.TrimSpace(constitution.VotingSpace),
		BootstrapTier2Limit: constitution.BootstrapTier2Limit,
		IsDefault:           constitution.IsDefault,
		FoundingBoardSize:   constitution.Config.FoundingBoardSize,
		BootstrapTierLevel:  constitution.Config.BootstrapTierLevel,
		VotingDays:          constitution.Config.PromotionVotingDays,
		CooldownDays:        constitution.Config.PromotionCooldownDays,
		Quorum:              constitution.Config.Quorum,
		CreatedAt:           constitution.CreatedAt.UTC(),
		UpdatedAt:           constitution.UpdatedAt.UTC(),
	}
	if strings.TrimSpace(constitution.FounderAgentID) != "" {
		founderID := strings.TrimSpace(constitution.FounderAgentID)
		row.FounderAgentID = &founderID
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	if row.UpdatedAt.IsZero() {
		row.UpdatedAt = row.CreatedAt
	}
	return row
}

func (m constitutionModel) toEntity() entities.Constitution {
	founderID := ""
	if m.FounderAgentID != nil {
		founderID = strings.TrimSpace(*m.FounderAgentID)
	}
	return entities.Constitution{
		ConstitutionID:      m.ID,
		Slug:                m.Slug,
		Name:                m.Name,
		ContentHash:         m.ContentHash,
		Version:             m.Version,
		VotingSpace:         m.VotingSpace,
		FounderAgentID:      founderID,
		BootstrapTier2Limit: m.BootstrapTier2Limit,
		IsDefault:           m.IsDefault,
		Config: entities.GovernanceConfig{
			FoundingBoardSize:     m.FoundingBoardSize,
			BootstrapTierLevel:    m.BootstrapTierLevel,
			PromotionVotingDays:   m.VotingDays,
			PromotionCooldownDays: m.CooldownDays,
			Quorum:                m.Quorum,
		},
		CreatedAt: m.CreatedAt.UTC(),
		UpdatedAt: m.UpdatedAt.UTC(),
	}
}

type constitutionVersionModel struct {
	ConstitutionID string    `gorm:"column:constitution_id;primaryKey"`
	Version        string    `gorm:"column:version;primaryKey"`
	ContentHash    string    `gorm:"column:content_hash"`
	PublishedAt    time.Time `gorm:"column:published_at"`
}

func (constitutionVersionModel) TableName() string { return "constitution_versions" }

type tierModel struct {
	ConstitutionID string `gorm:"column:constitution_id;primaryKey"`
	Level          int    `gorm:"column:level;primaryKey"`
	Name           string `gorm:"column:name"`
	Requirements   string `gorm:"column:requirements"`
}

func (tierModel) TableName() string { return "tiers" }

func (m tierModel) toEntity() entities.Tier {
	return entities.Tier{
		ConstitutionID: m.ConstitutionID,
		Level:          m.Level,
		Name:           m.Name,
		Requirements:   m.Requirements,
	}
}

type agentModel struct {
	ID             string    `gorm:"column:id;primaryKey"`
	ConstitutionID string    `gorm:"column:constitution_id;uniqueIndex:idx_agents_wallet"`
	DisplayName    string    `gorm:"column:display_name"`
	WalletAddress  string    `gorm:"column:wallet_address;uniqueIndex:idx_agents_wallet"`
	TierLevel      int       `gorm:"column:tier_level"`
	RegisteredAt   time.Time `gorm:"column:registered_at"`
}

func (agentModel) TableName() string { return "agents" }

func agentModelFromEntity(agent entities.Agent) agentModel {
	row := agentModel{
		ID:             strings.TrimSpace(agent.AgentID),
		ConstitutionID: strings.TrimSpace(agent.ConstitutionID),
		DisplayName:    strings.TrimSpace(agent.DisplayName),
		WalletAddress:  strings.TrimSpace(agent.WalletAddress),
		TierLevel:      agent.TierLevel,
		RegisteredAt:   agent.RegisteredAt.UTC(),
	}
	if row.RegisteredAt.IsZero() {
		row.RegisteredAt = time.Now().UTC()
	}
	return row
}

func (m agentModel) toEntity() entities.Agent {
	return entities.Agent{
		AgentID:        m.ID,
		ConstitutionID: m.ConstitutionID,
		DisplayName:    m.DisplayName,
		WalletAddress:  m.WalletAddress,
		TierLevel:      m.TierLevel,
		RegisteredAt:   m.RegisteredAt.UTC(),
	}
}

// The partial unique index backs the single-open-promotion invariant at the
// database: two concurrent creates for the same candidate cannot both commit,
// and the loser's 23505 maps to ErrDuplicateOpenPromotion in SavePromotion.
type promotionModel struct {
	ID             string     `gorm:"column:id;primaryKey"`
	ConstitutionID string     `gorm:"column:constitution_id;index;index:idx_promotions_open_candidate,unique,where:status = 'open'"`
	CandidateID    string     `gorm:"column:candidate_id;index;index:idx_promotions_open_candidate,unique,where:status = 'open'"`
	ProposerID     string     `gorm:"column:proposer_id"`
	TargetLevel    int        `gorm:"column:target_level"`
	Status         string     `gorm:"column:status;index"`
	OpenedAt       time.Time  `gorm:"column:opened_at"`
	VotingClosesAt time.Time  `gorm:"column:voting_closes_at"`
	ResolvedAt     *time.Time `gorm:"column:resolved_at"`
	WithdrawnBy    *string    `gorm:"column:withdrawn_by"`
}

func (promotionModel) TableName() string { return "promotions" }

func promotionModelFromEntity(promotion entities.Promotion) promotionModel {
	row := promotionModel{
		ID:             strings.TrimSpace(promotion.PromotionID),
		ConstitutionID: strings.TrimSpace(promotion.ConstitutionID),
		CandidateID:    strings.TrimSpace(promotion.CandidateID),
		ProposerID:     strings.TrimSpace(promotion.ProposerID),
		TargetLevel:    promotion.TargetLevel,
		Status:         string(promotion.Status),
		OpenedAt:       promotion.OpenedAt.UTC(),
		VotingClosesAt: promotion.VotingClosesAt.UTC(),
	}
	if promotion.ResolvedAt != nil {
		resolvedAt := promotion.ResolvedAt.UTC()
		row.ResolvedAt = &resolvedAt
	}
	if strings.TrimSpace(promotion.WithdrawnBy) != "" {
		withdrawnBy := strings.TrimSpace(promotion.WithdrawnBy)
		row.WithdrawnBy = &withdrawnBy
	}
	return row
}

func (m promotionModel) toEntity() entities.Promotion {
	withdrawnBy := ""
	if m.WithdrawnBy != nil {
		withdrawnBy = strings.TrimSpace(*m.WithdrawnBy)
	}
	var resolvedAt *time.Time
	if m.ResolvedAt != nil {
		value := m.ResolvedAt.UTC()
		resolvedAt = &value
	}
	return entities.Promotion{
		PromotionID:    m.ID,
		ConstitutionID: m.ConstitutionID,
		CandidateID:    m.CandidateID,
		ProposerID:     m.ProposerID,
		TargetLevel:    m.TargetLevel,
		Status:         entities.PromotionStatus(m.Status),
		OpenedAt:       m.OpenedAt.UTC(),
		VotingClosesAt: m.VotingClosesAt.UTC(),
		ResolvedAt:     resolvedAt,
		WithdrawnBy:    withdrawnBy,
	}
}

type voteModel struct {
	PromotionID string    `gorm:"column:promotion_id;primaryKey"`
	VoterID     string    `gorm:"column:voter_id;primaryKey"`
	Approve     bool      `gorm:"column:approve"`
	Reason      string    `gorm:"column:reason"`
	CastAt      time.Time `gorm:"column:cast_at"`
}

func (voteModel) TableName() string { return "votes" }

func voteModelFromEntity(vote entities.Vote) voteModel {
	row := voteModel{
		PromotionID: strings.TrimSpace(vote.PromotionID),
		VoterID:     strings.TrimSpace(vote.VoterID),
		Approve:     vote.Approve,
		Reason:      strings.TrimSpace(vote.Reason),
		CastAt:      vote.CastAt.UTC(),
	}
	if row.CastAt.IsZero() {
		row.CastAt = time.Now().UTC()
	}
	return row
}

func (m voteModel) toEntity() entities.Vote {
	return entities.Vote{
		PromotionID: m.PromotionID,
		VoterID:     m.VoterID,
		Approve:     m.Approve,
		Reason:      m.Reason,
		CastAt:      m.CastAt.UTC(),
	}
}

type outboxModel struct {
	OutboxID     string     `gorm:"column:outbox_id;primaryKey"`
	EventType    string     `gorm:"column:event_type"`
	PartitionKey string     `gorm:"column:partition_key"`
	Payload      []byte     `gorm:"column:payload"`
	Status       string     `gorm:"column:status;index"`
	CreatedAt    time.Time  `gorm:"column:created_at"`
	PublishedAt  *time.Time `gorm:"column:published_at"`
}

func (outboxModel) TableName() string { return "promotion_outbox" }

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

var _ ports.ConstitutionRepository = (*Repository)(nil)
var _ ports.AgentRepository = (*Repository)(nil)
var _ ports.PromotionRepository = (*Repository)(nil)
var _ ports.VoteRepository = (*Repository)(nil)
var _ ports.OutboxWriter = (*Repository)(nil)
var _ ports.OutboxRepository = (*Repository)(nil)
