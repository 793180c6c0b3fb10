package commands

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"strings"
	"time"

	application "concord/contexts/governance/promotion-engine/application"
	"concord/contexts/governance/promotion-engine/domain/entities"
	domainerrors "concord/contexts/governance/promotion-engine/domain/errors"
	"concord/contexts/governance/promotion-engine/ports"
)

// TierInput is one rung of the ladder supplied at founding time.
type TierInput struct {
	Level        int
	Name         string
	Requirements string
}

// CreateConstitutionCommand founds a tenant: the governing document, the tier
// ladder, governance policy, and optionally the founder's membership.
type CreateConstitutionCommand struct {
	Slug                string
	Name                string
	Content             string
	Version             string
	VotingSpace         string
	IsDefault           bool
	BootstrapTier2Limit int
	Config              entities.GovernanceConfig
	Tiers               []TierInput
	FounderName         string
	FounderWallet       string
}

// ConstitutionUseCase owns tenant founding and document version publishing.
type ConstitutionUseCase struct {
	Constitutions ports.ConstitutionRepository
	Agents        ports.AgentRepository
	Outbox        ports.OutboxWriter
	Clock         ports.Clock
	IDGen         ports.IDGenerator
	Logger        *slog.Logger
}

// CreateConstitution persists the constitution, its first version-history
// row, and the tier ladder. When founder identity is supplied the founder is
// registered at the bootstrap tier.
func (uc ConstitutionUseCase) CreateConstitution(ctx context.Context, cmd CreateConstitutionCommand) (entities.Constitution, error) {
	logger := application.ResolveLogger(uc.Logger)
	slug := strings.ToLower(strings.TrimSpace(cmd.Slug))
	name := strings.TrimSpace(cmd.Name)
	logger.Info("constitution create started",
		"event", "governance_constitution_create_started",
		"module", "governance/promotion-engine",
		"layer", "application",
		"slug", slug,
	)
	if slug == "" || name == "" || strings.TrimSpace(cmd.Content) == "" || !isURLSafeSlug(slug) {
		return entities.Constitution{}, domainerrors.ErrInvalidConstitutionInput
	}
	if err := validateLadder(cmd.Tiers); err != nil {
		return entities.Constitution{}, err
	}

	if _, err := uc.Constitutions.GetConstitutionBySlug(ctx, slug); err == nil {
		return entities.Constitution{}, domainerrors.ErrSlugAlreadyExists
	} else if !errors.Is(err, domainerrors.ErrConstitutionNotFound) {
		return entities.Constitution{}, err
	}

	now := uc.now()
	constitutionID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return entities.Constitution{}, err
	}
	version := strings.TrimSpace(cmd.Version)
	if version == "" {
		version = "v1"
	}
	constitution := entities.Constitution{
		ConstitutionID:      constitutionID,
		Slug:                slug,
		Name:                name,
		ContentHash:         hashContent(cmd.Content),
		Version:             version,
		VotingSpace:         strings.TrimSpace(cmd.VotingSpace),
		BootstrapTier2Limit: cmd.BootstrapTier2Limit,
		IsDefault:           cmd.IsDefault,
		Config:              cmd.Config,
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	if strings.TrimSpace(cmd.FounderWallet) != "" {
		founderID, err := uc.IDGen.NewID(ctx)
		if err != nil {
			return entities.Constitution{}, err
		}
		constitution.FounderAgentID = founderID
	}

	if err := uc.Constitutions.SaveConstitution(ctx, constitution); err != nil {
		return entities.Constitution{}, err
	}
	if err := uc.Constitutions.AppendConstitutionVersion(ctx, entities.ConstitutionVersion{
		ConstitutionID: constitutionID,
		Version:        constitution.Version,
		ContentHash:    constitution.ContentHash,
		PublishedAt:    now,
	}); err != nil {
		return entities.Constitution{}, err
	}
	for _, tier := range cmd.Tiers {
		if err := uc.Constitutions.SaveTier(ctx, entities.Tier{
			ConstitutionID: constitutionID,
			Level:          tier.Level,
			Name:           strings.TrimSpace(tier.Name),
			Requirements:   strings.TrimSpace(tier.Requirements),
		}); err != nil {
			return entities.Constitution{}, err
		}
	}

	if constitution.FounderAgentID != "" {
		if err := uc.Agents.SaveAgent(ctx, entities.Agent{
			AgentID:        constitution.FounderAgentID,
			ConstitutionID: constitutionID,
			DisplayName:    strings.TrimSpace(cmd.FounderName),
			WalletAddress:  strings.TrimSpace(cmd.FounderWallet),
			TierLevel:      constitution.Config.BootstrapLevel(),
			RegisteredAt:   now,
		}); err != nil {
			return entities.Constitution{}, err
		}
	}

	if uc.Outbox != nil {
		eventID, err := uc.IDGen.NewID(ctx)
		if err != nil {
			return entities.Constitution{}, err
		}
		envelope, err := newGovernanceEnvelope(eventID, "constitution.created", constitutionID, now, map[string]any{
			"constitution_id": constitutionID,
			"slug":            slug,
			"version":         constitution.Version,
			"content_hash":    constitution.ContentHash,
		})
		if err != nil {
			return entities.Constitution{}, err
		}
		if err := uc.Outbox.AppendOutbox(ctx, envelope); err != nil {
			return entities.Constitution{}, err
		}
	}

	logger.Info("constitution created",
		"event", "governance_constitution_created",
		"module", "governance/promotion-engine",
		"layer", "application",
		"constitution_id", constitutionID,
		"slug", slug,
		"tiers", len(cmd.Tiers),
	)
	return constitution, nil
}

func validateLadder(tiers []TierInput) error {
	if len(tiers) == 0 {
		return domainerrors.ErrInvalidConstitutionInput
	}
	seen := make(map[int]bool, len(tiers))
	hasEntry := false
	for _, tier := range tiers {
		if tier.Level <= 0 || strings.TrimSpace(tier.Name) == "" || seen[tier.Level] {
			return domainerrors.ErrInvalidConstitutionInput
		}
		seen[tier.Level] = true
		if tier.Level == 1 {
			hasEntry = true
		}
	}
	if !hasEntry {
		return domainerrors.ErrInvalidConstitutionInput
	}
	return nil
}

func isURLSafeSlug(slug string) bool {
	for _, r := range slug {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= '0' && r <= '9':
		case r == '-' || r == '_':
		default:
			return false
		}
	}
	return true
}

func hashContent(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

func (uc ConstitutionUseCase) now() time.Time {
	now := time.Now().UTC()
	if uc.Clock != nil {
		now = uc.Clock.Now().UTC()
	}
	return now
}
