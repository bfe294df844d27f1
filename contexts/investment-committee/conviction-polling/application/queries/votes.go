package queries

import (
	"context"
	"strings"

	domainerrors "dealdesk/contexts/investment-committee/conviction-polling/domain/errors"
	"dealdesk/contexts/investment-committee/conviction-polling/domain/visibility"
	"dealdesk/contexts/investment-committee/conviction-polling/ports"
)

// VotesUseCase serves vote reads through the visibility policy. Every read
// takes the viewer explicitly; there is no ambient "current user".
type VotesUseCase struct {
	Polls   ports.PollRepository
	Votes   ports.VoteRepository
	Members ports.MemberDirectory

	// ExposeIdentity is the firm-level policy choice of whether voter
	// identity surfaces after reveal.
	ExposeIdentity bool
}

// PollVotes returns the vote roster as the viewer may see it: only their own
// vote while concealed, the full roster once revealed.
func (uc VotesUseCase) PollVotes(ctx context.Context, firmID string, viewerID string, pollID string) ([]visibility.View, error) {
	firmID = strings.TrimSpace(firmID)
	viewerID = strings.TrimSpace(viewerID)

	poll, err := uc.Polls.GetPoll(ctx, firmID, strings.TrimSpace(pollID))
	if err != nil {
		return nil, err
	}
	if _, found, err := uc.Members.GetMember(ctx, firmID, viewerID); err != nil {
		return nil, err
	} else if !found {
		return nil, domainerrors.ErrUnauthorized
	}

	votes, err := uc.Votes.ListVotesByPoll(ctx, poll.PollID)
	if err != nil {
		return nil, err
	}

	visible := visibility.FilterVotes(viewerID, poll, votes)
	views := make([]visibility.View, 0, len(visible))
	for _, vote := range visible {
		view := visibility.Project(viewerID, poll, vote, uc.ExposeIdentity)
		if view.VoterID != "" && !view.Own {
			if member, found, err := uc.Members.GetMember(ctx, firmID, view.VoterID); err == nil && found {
				view.VoterName = member.FullName
			}
		}
		views = append(views, view)
	}
	return views, nil
}

// OwnVote returns the viewer's vote for a poll, if any. A voter can always
// read their own ballot in full, revealed or not.
func (uc VotesUseCase) OwnVote(ctx context.Context, firmID string, viewerID string, pollID string) (visibility.View, bool, error) {
	firmID = strings.TrimSpace(firmID)
	viewerID = strings.TrimSpace(viewerID)

	poll, err := uc.Polls.GetPoll(ctx, firmID, strings.TrimSpace(pollID))
	if err != nil {
		return visibility.View{}, false, err
	}
	vote, found, err := uc.Votes.GetVoteByVoter(ctx, poll.PollID, viewerID)
	if err != nil || !found {
		return visibility.View{}, false, err
	}
	return visibility.Project(viewerID, poll, vote, uc.ExposeIdentity), true, nil
}
