package ports

import (
	"context"
	"time"

	"dealdesk/contexts/investment-committee/conviction-polling/domain/entities"
	contractsv1 "dealdesk/contracts/gen/events/v1"
)

// DealProjection is the read-only slice of deal data this context needs.
// The deal pipeline owns these fields; the poll stores only the reference.
type DealProjection struct {
	DealID        string
	FirmID        string
	CompanyName   string
	OneLiner      string
	LeadPartnerID string
}

// MemberProjection is the read-only firm membership record supplied by the
// identity collaborator.
type MemberProjection struct {
	UserID   string
	FirmID   string
	FullName string
	Role     entities.Role
}

// SubmitOutcome reports the final vote row and the distinct-voter count
// observed by the same transaction that wrote it.
type SubmitOutcome struct {
	Vote      entities.Vote
	VoteCount int
	WasUpdate bool
}

// RevealOutcome carries the revealed poll plus the exact vote set the reveal
// transaction counted. AlreadyRevealed marks the idempotent repeat case so
// the application layer can apply its no-op-vs-error policy.
type RevealOutcome struct {
	Poll            entities.Poll
	Votes           []entities.Vote
	AlreadyRevealed bool
}

// PollRepository owns poll persistence and the reveal transaction boundary.
type PollRepository interface {
	CreatePoll(ctx context.Context, poll entities.Poll) error
	GetPoll(ctx context.Context, firmID string, pollID string) (entities.Poll, error)
	ListPollsByDeal(ctx context.Context, firmID string, dealID string) ([]entities.Poll, error)
	// ListRevealedByDivergence returns revealed polls with persisted
	// divergence >= minDivergence, highest first.
	ListRevealedByDivergence(ctx context.Context, firmID string, minDivergence int, limit int) ([]entities.Poll, error)
	CountVotes(ctx context.Context, pollID string) (int, error)
	// RevealPoll must atomically: load the poll for update, verify the
	// distinct-voter count against the threshold, flip is_revealed, persist
	// the score rollup, and return the counted votes. A vote submitted
	// concurrently either lands before the flip (and is counted) or fails
	// against the revealed state; no interleaving may use a stale count.
	RevealPoll(ctx context.Context, firmID string, pollID string, revealedAt time.Time) (RevealOutcome, error)
}

// VoteRepository owns vote persistence. SubmitVote is the single write path
// and must be atomic per (poll, voter): concurrent submissions from one
// voter resolve to exactly one row, the loser retried as an update, and the
// poll's accepting state is checked under the same transaction that writes.
type VoteRepository interface {
	SubmitVote(ctx context.Context, firmID string, vote entities.Vote) (SubmitOutcome, error)
	GetVoteByVoter(ctx context.Context, pollID string, userID string) (entities.Vote, bool, error)
	ListVotesByPoll(ctx context.Context, pollID string) ([]entities.Vote, error)
}

// DealDirectory resolves deal references within a firm.
type DealDirectory interface {
	GetDeal(ctx context.Context, firmID string, dealID string) (DealProjection, error)
}

// MemberDirectory resolves firm membership for capability and identity
// lookups.
type MemberDirectory interface {
	GetMember(ctx context.Context, firmID string, userID string) (MemberProjection, bool, error)
}

// EventEnvelope reuses the canonical cross-runtime envelope contract.
type EventEnvelope = contractsv1.Envelope

// OutboxWriter appends an event alongside the state change that caused it.
type OutboxWriter interface {
	AppendOutbox(ctx context.Context, envelope EventEnvelope) error
}

// OutboxMessage is a row ready to relay from the module outbox.
type OutboxMessage struct {
	OutboxID     string
	EventType    string
	PartitionKey string
	Payload      []byte
	CreatedAt    time.Time
}

// OutboxRepository models worker-side outbox polling/acknowledgement.
type OutboxRepository interface {
	ListPendingOutbox(ctx context.Context, limit int) ([]OutboxMessage, error)
	MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error
}

// EventPublisher publishes canonical envelopes to a topic.
type EventPublisher interface {
	Publish(ctx context.Context, topic string, event EventEnvelope) error
}

// IDGenerator abstracts poll/vote/event identifier generation.
type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}
