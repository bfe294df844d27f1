package commands

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	application "dealdesk/contexts/investment-committee/conviction-polling/application"
	"dealdesk/contexts/investment-committee/conviction-polling/domain/entities"
	domainerrors "dealdesk/contexts/investment-committee/conviction-polling/domain/errors"
	"dealdesk/contexts/investment-committee/conviction-polling/domain/visibility"
	"dealdesk/contexts/investment-committee/conviction-polling/ports"
)

// CreatePollCommand opens a new blind conviction poll on a deal.
type CreatePollCommand struct {
	FirmID          string
	CreatorID       string
	DealID          string
	Title           string
	Description     string
	RevealThreshold int
	ClosesAt        *time.Time
	ICMeetingAt     *time.Time
}

// SubmitVoteCommand is the write-model input for submit-or-update voting.
type SubmitVoteCommand struct {
	FirmID          string
	PollID          string
	VoterID         string
	ConvictionScore int
	RedFlags        []string
	RedFlagNotes    string
	GreenFlags      []string
	GreenFlagNotes  string
	PrivateNotes    string
}

// SubmitVoteResult returns the stored vote and the distinct-voter count the
// writing transaction observed.
type SubmitVoteResult struct {
	Vote      entities.Vote
	VoteCount int
	WasUpdate bool
}

// RevealPollCommand requests the one-way reveal transition.
type RevealPollCommand struct {
	FirmID  string
	PollID  string
	ActorID string
}

// RevealPollResult reports the revealed poll and whether this call performed
// the transition or replayed an earlier one.
type RevealPollResult struct {
	Poll     entities.Poll
	Repeated bool
}

// PollUseCase orchestrates poll lifecycle commands: creation, threshold-gated
// reveal, and the single vote write path. Concealment invariants live here
// and in the repository transaction contract; nothing below this layer ever
// emits ballot contents for a concealed poll.
type PollUseCase struct {
	Polls   ports.PollRepository
	Votes   ports.VoteRepository
	Deals   ports.DealDirectory
	Members ports.MemberDirectory
	Outbox  ports.OutboxWriter
	Clock   clockwork.Clock
	IDGen   ports.IDGenerator
	Logger  *slog.Logger

	// RepeatRevealNoOp selects the documented idempotency choice for
	// re-revealing: true treats it as a no-op success, false as AlreadyRevealed.
	RepeatRevealNoOp bool
	// DefaultRevealThreshold applies when a poll is created without one.
	DefaultRevealThreshold int
}

// CreatePoll opens a poll for a deal owned by the same firm.
func (uc PollUseCase) CreatePoll(ctx context.Context, cmd CreatePollCommand) (entities.Poll, error) {
	logger := application.ResolveLogger(uc.Logger)
	firmID := strings.TrimSpace(cmd.FirmID)
	dealID := strings.TrimSpace(cmd.DealID)
	creatorID := strings.TrimSpace(cmd.CreatorID)
	title := strings.TrimSpace(cmd.Title)

	if firmID == "" || dealID == "" || creatorID == "" || title == "" {
		logger.Warn("poll create validation failed",
			"event", "polling_poll_create_validation_failed",
			"module", "investment-committee/conviction-polling",
			"layer", "application",
			"firm_id", firmID,
			"deal_id", dealID,
		)
		return entities.Poll{}, domainerrors.ErrInvalidPollInput
	}

	threshold := cmd.RevealThreshold
	if threshold == 0 {
		threshold = uc.resolveDefaultThreshold()
	}
	if threshold < 1 {
		return entities.Poll{}, domainerrors.ErrInvalidPollInput
	}

	if _, found, err := uc.Members.GetMember(ctx, firmID, creatorID); err != nil {
		return entities.Poll{}, err
	} else if !found {
		return entities.Poll{}, domainerrors.ErrUnauthorized
	}

	deal, err := uc.Deals.GetDeal(ctx, firmID, dealID)
	if err != nil {
		return entities.Poll{}, err
	}

	now := uc.now()
	pollID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return entities.Poll{}, err
	}
	poll := entities.Poll{
		PollID:          pollID,
		DealID:          deal.DealID,
		FirmID:          firmID,
		Title:           title,
		Description:     strings.TrimSpace(cmd.Description),
		IsActive:        true,
		IsRevealed:      false,
		RevealThreshold: threshold,
		OpensAt:         now,
		ClosesAt:        normalizeTime(cmd.ClosesAt),
		ICMeetingAt:     normalizeTime(cmd.ICMeetingAt),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := uc.Polls.CreatePoll(ctx, poll); err != nil {
		return entities.Poll{}, err
	}
	if err := uc.appendPollEvent(ctx, "poll.created", poll, now, map[string]any{
		"deal_id":          poll.DealID,
		"reveal_threshold": poll.RevealThreshold,
	}); err != nil {
		return entities.Poll{}, err
	}

	logger.Info("poll created",
		"event", "polling_poll_created",
		"module", "investment-committee/conviction-polling",
		"layer", "application",
		"poll_id", poll.PollID,
		"deal_id", poll.DealID,
		"firm_id", firmID,
		"reveal_threshold", poll.RevealThreshold,
	)
	return poll, nil
}

// SubmitVote creates or overwrites the voter's single vote row for the poll
// and returns the vote count the writing transaction observed. The count is
// monotonically non-decreasing while the poll is concealed.
func (uc PollUseCase) SubmitVote(ctx context.Context, cmd SubmitVoteCommand) (SubmitVoteResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	firmID := strings.TrimSpace(cmd.FirmID)
	pollID := strings.TrimSpace(cmd.PollID)
	voterID := strings.TrimSpace(cmd.VoterID)

	if firmID == "" || pollID == "" || voterID == "" {
		return SubmitVoteResult{}, domainerrors.ErrInvalidPollInput
	}
	if !entities.ValidScore(cmd.ConvictionScore) {
		logger.Warn("vote rejected for invalid score",
			"event", "polling_vote_invalid_score",
			"module", "investment-committee/conviction-polling",
			"layer", "application",
			"poll_id", pollID,
			"firm_id", firmID,
		)
		return SubmitVoteResult{}, domainerrors.ErrInvalidScore
	}

	if _, found, err := uc.Members.GetMember(ctx, firmID, voterID); err != nil {
		return SubmitVoteResult{}, err
	} else if !found {
		return SubmitVoteResult{}, domainerrors.ErrUnauthorized
	}

	now := uc.now()
	voteID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return SubmitVoteResult{}, err
	}
	outcome, err := uc.Votes.SubmitVote(ctx, firmID, entities.Vote{
		VoteID:          voteID,
		PollID:          pollID,
		UserID:          voterID,
		ConvictionScore: cmd.ConvictionScore,
		RedFlags:        normalizeFlags(cmd.RedFlags),
		RedFlagNotes:    strings.TrimSpace(cmd.RedFlagNotes),
		GreenFlags:      normalizeFlags(cmd.GreenFlags),
		GreenFlagNotes:  strings.TrimSpace(cmd.GreenFlagNotes),
		PrivateNotes:    strings.TrimSpace(cmd.PrivateNotes),
		SubmittedAt:     now,
		UpdatedAt:       now,
	})
	if err != nil {
		return SubmitVoteResult{}, err
	}

	// The event intentionally carries no score, flags, or notes: outbox rows
	// outlive the concealment window and are readable by ops tooling.
	if err := uc.appendPollEvent(ctx, "poll.vote.submitted", entities.Poll{PollID: pollID, FirmID: firmID}, now, map[string]any{
		"vote_count": outcome.VoteCount,
		"was_update": outcome.WasUpdate,
	}); err != nil {
		return SubmitVoteResult{}, err
	}

	logger.Info("vote recorded",
		"event", "polling_vote_recorded",
		"module", "investment-committee/conviction-polling",
		"layer", "application",
		"poll_id", pollID,
		"firm_id", firmID,
		"vote_count", outcome.VoteCount,
		"was_update", outcome.WasUpdate,
	)
	return SubmitVoteResult{
		Vote:      outcome.Vote,
		VoteCount: outcome.VoteCount,
		WasUpdate: outcome.WasUpdate,
	}, nil
}

// RevealPoll performs the one-way, threshold-gated reveal transition. Only a
// firm admin or the deal's lead partner may reveal. Re-revealing follows the
// configured idempotency policy.
func (uc PollUseCase) RevealPoll(ctx context.Context, cmd RevealPollCommand) (RevealPollResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	firmID := strings.TrimSpace(cmd.FirmID)
	pollID := strings.TrimSpace(cmd.PollID)
	actorID := strings.TrimSpace(cmd.ActorID)

	if firmID == "" || pollID == "" || actorID == "" {
		return RevealPollResult{}, domainerrors.ErrInvalidPollInput
	}

	member, found, err := uc.Members.GetMember(ctx, firmID, actorID)
	if err != nil {
		return RevealPollResult{}, err
	}
	if !found {
		return RevealPollResult{}, domainerrors.ErrUnauthorized
	}

	poll, err := uc.Polls.GetPoll(ctx, firmID, pollID)
	if err != nil {
		return RevealPollResult{}, err
	}
	deal, err := uc.Deals.GetDeal(ctx, firmID, poll.DealID)
	if err != nil {
		return RevealPollResult{}, err
	}
	if !visibility.CanReveal(member.Role, actorID, deal.LeadPartnerID) {
		logger.Warn("reveal denied",
			"event", "polling_reveal_denied",
			"module", "investment-committee/conviction-polling",
			"layer", "application",
			"poll_id", pollID,
			"firm_id", firmID,
			"actor_id", actorID,
			"role", string(member.Role),
		)
		return RevealPollResult{}, domainerrors.ErrUnauthorized
	}

	now := uc.now()
	outcome, err := uc.Polls.RevealPoll(ctx, firmID, pollID, now)
	if err != nil {
		return RevealPollResult{}, err
	}
	if outcome.AlreadyRevealed {
		if !uc.RepeatRevealNoOp {
			return RevealPollResult{}, domainerrors.ErrAlreadyRevealed
		}
		logger.Info("reveal replayed as no-op",
			"event", "polling_reveal_replayed",
			"module", "investment-committee/conviction-polling",
			"layer", "application",
			"poll_id", pollID,
			"firm_id", firmID,
		)
		return RevealPollResult{Poll: outcome.Poll, Repeated: true}, nil
	}

	average, divergence := entities.Rollup(outcome.Votes)
	if err := uc.appendPollEvent(ctx, "poll.revealed", outcome.Poll, now, map[string]any{
		"deal_id":       outcome.Poll.DealID,
		"total_votes":   len(outcome.Votes),
		"average_score": average,
		"divergence":    divergence,
		"revealed_by":   actorID,
	}); err != nil {
		return RevealPollResult{}, err
	}

	logger.Info("poll revealed",
		"event", "polling_poll_revealed",
		"module", "investment-committee/conviction-polling",
		"layer", "application",
		"poll_id", pollID,
		"firm_id", firmID,
		"total_votes", len(outcome.Votes),
		"divergence", divergence,
	)
	return RevealPollResult{Poll: outcome.Poll}, nil
}

func (uc PollUseCase) now() time.Time {
	if uc.Clock != nil {
		return uc.Clock.Now().UTC()
	}
	return time.Now().UTC()
}

func (uc PollUseCase) resolveDefaultThreshold() int {
	if uc.DefaultRevealThreshold > 0 {
		return uc.DefaultRevealThreshold
	}
	return entities.DefaultRevealThreshold
}

func normalizeTime(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	utc := value.UTC()
	return &utc
}

func normalizeFlags(flags []string) []string {
	if len(flags) == 0 {
		return nil
	}
	out := make([]string, 0, len(flags))
	for _, flag := range flags {
		flag = strings.TrimSpace(flag)
		if flag != "" {
			out = append(out, flag)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
