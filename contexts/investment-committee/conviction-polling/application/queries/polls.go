package queries

import (
	"context"
	"strings"

	"dealdesk/contexts/investment-committee/conviction-polling/domain/entities"
	"dealdesk/contexts/investment-committee/conviction-polling/ports"
)

// PollStatus is a poll read enriched with its live vote count and deal
// display fields. The rollup stays nil until the poll is revealed.
type PollStatus struct {
	Poll        entities.Poll
	VoteCount   int
	CompanyName string
	OneLiner    string
}

// PollsUseCase serves poll-state reads.
type PollsUseCase struct {
	Polls ports.PollRepository
	Deals ports.DealDirectory
}

// GetPoll returns one firm-scoped poll with its vote count.
func (uc PollsUseCase) GetPoll(ctx context.Context, firmID string, pollID string) (PollStatus, error) {
	poll, err := uc.Polls.GetPoll(ctx, strings.TrimSpace(firmID), strings.TrimSpace(pollID))
	if err != nil {
		return PollStatus{}, err
	}
	count, err := uc.Polls.CountVotes(ctx, poll.PollID)
	if err != nil {
		return PollStatus{}, err
	}
	status := PollStatus{Poll: concealRollup(poll), VoteCount: count}
	if deal, err := uc.Deals.GetDeal(ctx, poll.FirmID, poll.DealID); err == nil {
		status.CompanyName = deal.CompanyName
		status.OneLiner = deal.OneLiner
	}
	return status, nil
}

// VoteCount returns the distinct-voter count for a poll.
func (uc PollsUseCase) VoteCount(ctx context.Context, pollID string) (int, error) {
	return uc.Polls.CountVotes(ctx, strings.TrimSpace(pollID))
}

// DealPolls lists a deal's polls, newest first, with vote counts.
func (uc PollsUseCase) DealPolls(ctx context.Context, firmID string, dealID string) ([]PollStatus, error) {
	polls, err := uc.Polls.ListPollsByDeal(ctx, strings.TrimSpace(firmID), strings.TrimSpace(dealID))
	if err != nil {
		return nil, err
	}
	items := make([]PollStatus, 0, len(polls))
	for _, poll := range polls {
		count, err := uc.Polls.CountVotes(ctx, poll.PollID)
		if err != nil {
			return nil, err
		}
		items = append(items, PollStatus{Poll: concealRollup(poll), VoteCount: count})
	}
	return items, nil
}

// concealRollup strips the persisted rollup from concealed polls. The
// adapters only write the rollup at reveal, but reads enforce it again so a
// backfilled or migrated row cannot leak aggregates early.
func concealRollup(poll entities.Poll) entities.Poll {
	if poll.IsRevealed {
		return poll
	}
	poll.AverageScore = nil
	poll.DivergenceScore = nil
	return poll
}
