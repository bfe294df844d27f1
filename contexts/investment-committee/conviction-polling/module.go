package convictionpolling

import (
	"log/slog"

	"github.com/jonboulle/clockwork"

	httpadapter "dealdesk/contexts/investment-committee/conviction-polling/adapters/http"
	"dealdesk/contexts/investment-committee/conviction-polling/adapters/memory"
	"dealdesk/contexts/investment-committee/conviction-polling/application/commands"
	"dealdesk/contexts/investment-committee/conviction-polling/application/queries"
	"dealdesk/contexts/investment-committee/conviction-polling/domain/entities"
	"dealdesk/contexts/investment-committee/conviction-polling/ports"
)

type Module struct {
	Handler httpadapter.Handler
	Store   *memory.Store
}

type Dependencies struct {
	Polls   ports.PollRepository
	Votes   ports.VoteRepository
	Deals   ports.DealDirectory
	Members ports.MemberDirectory
	Outbox  ports.OutboxWriter
	Clock   clockwork.Clock
	IDGen   ports.IDGenerator
	Logger  *slog.Logger

	RepeatRevealNoOp       bool
	ExposeIdentity         bool
	DefaultRevealThreshold int
	DivergencePolicy       queries.DivergencePolicy
}

func NewModule(deps Dependencies) Module {
	pollUseCase := commands.PollUseCase{
		Polls:                  deps.Polls,
		Votes:                  deps.Votes,
		Deals:                  deps.Deals,
		Members:                deps.Members,
		Outbox:                 deps.Outbox,
		Clock:                  deps.Clock,
		IDGen:                  deps.IDGen,
		Logger:                 deps.Logger,
		RepeatRevealNoOp:       deps.RepeatRevealNoOp,
		DefaultRevealThreshold: deps.DefaultRevealThreshold,
	}
	pollReads := queries.PollsUseCase{
		Polls: deps.Polls,
		Deals: deps.Deals,
	}
	voteReads := queries.VotesUseCase{
		Polls:          deps.Polls,
		Votes:          deps.Votes,
		Members:        deps.Members,
		ExposeIdentity: deps.ExposeIdentity,
	}
	divergence := queries.DivergenceUseCase{
		Polls:  deps.Polls,
		Votes:  deps.Votes,
		Deals:  deps.Deals,
		Policy: deps.DivergencePolicy,
	}
	return Module{
		Handler: httpadapter.Handler{
			Polls:      pollUseCase,
			PollReads:  pollReads,
			VoteReads:  voteReads,
			Divergence: divergence,
			Logger:     deps.Logger,
		},
	}
}

func NewInMemoryModule(seed []entities.Poll, logger *slog.Logger) Module {
	store := memory.NewStore(seed)
	module := NewModule(Dependencies{
		Polls:            store,
		Votes:            store,
		Deals:            store,
		Members:          store,
		Outbox:           store,
		Clock:            clockwork.NewRealClock(),
		IDGen:            store,
		Logger:           logger,
		RepeatRevealNoOp: true,
		ExposeIdentity:   true,
		DivergencePolicy: queries.DefaultDivergencePolicy(),
	})
	module.Store = store
	return module
}
