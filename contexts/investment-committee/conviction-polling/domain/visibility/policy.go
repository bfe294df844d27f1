// Package visibility is the access-control core of blind polling: a pure
// mapping from (viewer, poll state) to the vote records and fields that
// viewer may read. The viewer is always an explicit parameter; nothing in
// this package consults ambient request state, so every decision is
// testable without a request pipeline.
package visibility

import (
	"time"

	"dealdesk/contexts/investment-committee/conviction-polling/domain/entities"
)

// View is a single vote as one viewer is allowed to see it. Identity and
// note fields are zero-valued when concealed from that viewer.
type View struct {
	VoteID          string
	PollID          string
	ConvictionScore int
	RedFlags        []string
	GreenFlags      []string
	SubmittedAt     time.Time
	VoterID         string
	VoterName       string
	RedFlagNotes    string
	GreenFlagNotes  string
	PrivateNotes    string
	Own             bool
}

// FilterVotes returns the vote rows a viewer may read at all. Before reveal
// that is only the viewer's own vote; every other row is withheld here, at
// the data-access boundary, so no later code path can leak a concealed
// score, flag, or note.
func FilterVotes(viewerID string, poll entities.Poll, votes []entities.Vote) []entities.Vote {
	if poll.IsRevealed {
		out := make([]entities.Vote, len(votes))
		copy(out, votes)
		return out
	}
	for _, vote := range votes {
		if vote.UserID == viewerID {
			return []entities.Vote{vote}
		}
	}
	return nil
}

// Project redacts a single visible vote for a viewer. exposeIdentity is the
// firm-level policy choice of whether voter identity (and the red/green flag
// notes that would identify a voter by writing style) surface after reveal.
// Private notes never leave their owner, revealed or not.
func Project(viewerID string, poll entities.Poll, vote entities.Vote, exposeIdentity bool) View {
	view := View{
		VoteID:          vote.VoteID,
		PollID:          vote.PollID,
		ConvictionScore: vote.ConvictionScore,
		RedFlags:        vote.RedFlags,
		GreenFlags:      vote.GreenFlags,
		SubmittedAt:     vote.SubmittedAt,
		Own:             vote.UserID == viewerID,
	}
	if view.Own {
		view.VoterID = vote.UserID
		view.RedFlagNotes = vote.RedFlagNotes
		view.GreenFlagNotes = vote.GreenFlagNotes
		view.PrivateNotes = vote.PrivateNotes
		return view
	}
	if poll.IsRevealed && exposeIdentity {
		view.VoterID = vote.UserID
		view.RedFlagNotes = vote.RedFlagNotes
		view.GreenFlagNotes = vote.GreenFlagNotes
	}
	return view
}

// CanReveal grants the reveal capability to firm admins and to the deal's
// lead partner.
func CanReveal(role entities.Role, actorID string, leadPartnerID string) bool {
	if role == entities.RoleAdmin {
		return true
	}
	return leadPartnerID != "" && actorID == leadPartnerID
}

// SummaryVisible gates aggregate statistics. Pre-reveal aggregates would
// leak individual votes at small voter counts, so they are never visible
// while concealed.
func SummaryVisible(poll entities.Poll) bool {
	return poll.IsRevealed
}
