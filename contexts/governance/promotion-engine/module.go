package promotionengine

import (
	"log/slog"

	httpadapter "concord/contexts/governance/promotion-engine/adapters/http"
	"concord/contexts/governance/promotion-engine/adapters/memory"
	"concord/contexts/governance/promotion-engine/application/commands"
	"concord/contexts/governance/promotion-engine/application/queries"
	"concord/contexts/governance/promotion-engine/ports"
)

type Module struct {
	Handler httpadapter.Handler
	Store   *memory.Store
}

type Dependencies struct {
	Constitutions ports.ConstitutionRepository
	Agents        ports.AgentRepository
	Promotions    ports.PromotionRepository
	Votes         ports.VoteRepository
	Outbox        ports.OutboxWriter
	Clock         ports.Clock
	IDGen         ports.IDGenerator
	Logger        *slog.Logger
}

func NewModule(deps Dependencies) Module {
	constitutionUseCase := commands.ConstitutionUseCase{
		Constitutions: deps.Constitutions,
		Agents:        deps.Agents,
		Outbox:        deps.Outbox,
		Clock:         deps.Clock,
		IDGen:         deps.IDGen,
		Logger:        deps.Logger,
	}
	agentUseCase := commands.AgentUseCase{
		Constitutions: deps.Constitutions,
		Agents:        deps.Agents,
		Outbox:        deps.Outbox,
		Clock:         deps.Clock,
		IDGen:         deps.IDGen,
		Logger:        deps.Logger,
	}
	promotionUseCase := commands.PromotionUseCase{
		Constitutions: deps.Constitutions,
		Agents:        deps.Agents,
		Promotions:    deps.Promotions,
		Votes:         deps.Votes,
		Outbox:        deps.Outbox,
		Clock:         deps.Clock,
		IDGen:         deps.IDGen,
		Logger:        deps.Logger,
	}
	registryUseCase := queries.RegistryUseCase{
		Constitutions: deps.Constitutions,
		Agents:        deps.Agents,
		Promotions:    deps.Promotions,
		Votes:         deps.Votes,
	}
	return Module{
		Handler: httpadapter.Handler{
			Constitutions: constitutionUseCase,
			Agents:        agentUseCase,
			Promotions:    promotionUseCase,
			Registry:      registryUseCase,
			Logger:        deps.Logger,
		},
	}
}

func NewInMemoryModule(logger *slog.Logger) Module {
	store := memory.NewStore()
	module := NewModule(Dependencies{
		Constitutions: store,
		Agents:        store,
		Promotions:    store,
		Votes:         store,
		Outbox:        store,
		Clock:         store,
		IDGen:         store,
		Logger:        logger,
	})
	module.Store = store
	return module
}
