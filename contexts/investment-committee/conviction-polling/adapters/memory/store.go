package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"dealdesk/contexts/investment-committee/conviction-polling/domain/entities"
	domainerrors "dealdesk/contexts/investment-committee/conviction-polling/domain/errors"
	"dealdesk/contexts/investment-committee/conviction-polling/ports"

	"github.com/google/uuid"
)

type outboxRecord struct {
	message   ports.OutboxMessage
	published bool
}

// Store is the in-memory adapter backing tests and local wiring. A single
// mutex spans every operation, which is exactly the transactional contract
// the ports demand: submit-or-update and reveal each observe and write one
// consistent state.
type Store struct {
	mu sync.RWMutex

	polls  map[string]entities.Poll
	votes  map[string]entities.Vote
	outbox map[string]outboxRecord

	deals   map[string]ports.DealProjection
	members map[string]ports.MemberProjection
}

func NewStore(seed []entities.Poll) *Store {
	polls := make(map[string]entities.Poll, len(seed))
	for _, poll := range seed {
		polls[poll.PollID] = poll
	}
	return &Store{
		polls:   polls,
		votes:   make(map[string]entities.Vote),
		outbox:  make(map[string]outboxRecord),
		deals:   make(map[string]ports.DealProjection),
		members: make(map[string]ports.MemberProjection),
	}
}

func (s *Store) SetDeal(deal ports.DealProjection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deals[strings.TrimSpace(deal.DealID)] = ports.DealProjection{
		DealID:        strings.TrimSpace(deal.DealID),
		FirmID:        strings.TrimSpace(deal.FirmID),
		CompanyName:   strings.TrimSpace(deal.CompanyName),
		OneLiner:      strings.TrimSpace(deal.OneLiner),
		LeadPartnerID: strings.TrimSpace(deal.LeadPartnerID),
	}
}

func (s *Store) SetMember(member ports.MemberProjection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.members[memberKey(member.FirmID, member.UserID)] = ports.MemberProjection{
		UserID:   strings.TrimSpace(member.UserID),
		FirmID:   strings.TrimSpace(member.FirmID),
		FullName: strings.TrimSpace(member.FullName),
		Role:     member.Role,
	}
}

func (s *Store) CreatePoll(_ context.Context, poll entities.Poll) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.polls[strings.TrimSpace(poll.PollID)] = poll
	return nil
}

func (s *Store) GetPoll(_ context.Context, firmID string, pollID string) (entities.Poll, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.findPoll(firmID, pollID)
}

func (s *Store) ListPollsByDeal(_ context.Context, firmID string, dealID string) ([]entities.Poll, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	firmID = strings.TrimSpace(firmID)
	dealID = strings.TrimSpace(dealID)
	items := make([]entities.Poll, 0)
	for _, poll := range s.polls {
		if poll.FirmID == firmID && poll.DealID == dealID {
			items = append(items, poll)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
	return items, nil
}

func (s *Store) ListRevealedByDivergence(_ context.Context, firmID string, minDivergence int, limit int) ([]entities.Poll, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	firmID = strings.TrimSpace(firmID)
	items := make([]entities.Poll, 0)
	for _, poll := range s.polls {
		if poll.FirmID != firmID || !poll.IsRevealed || poll.DivergenceScore == nil {
			continue
		}
		if *poll.DivergenceScore >= minDivergence {
			items = append(items, poll)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		if *items[i].DivergenceScore == *items[j].DivergenceScore {
			return items[i].PollID < items[j].PollID
		}
		return *items[i].DivergenceScore > *items[j].DivergenceScore
	})
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (s *Store) CountVotes(_ context.Context, pollID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.countVotesLocked(strings.TrimSpace(pollID)), nil
}

func (s *Store) RevealPoll(_ context.Context, firmID string, pollID string, revealedAt time.Time) (ports.RevealOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	poll, err := s.findPoll(firmID, pollID)
	if err != nil {
		return ports.RevealOutcome{}, err
	}
	votes := s.listVotesLocked(poll.PollID)
	if poll.IsRevealed {
		return ports.RevealOutcome{Poll: poll, Votes: votes, AlreadyRevealed: true}, nil
	}
	if len(votes) < poll.RevealThreshold {
		return ports.RevealOutcome{}, fmt.Errorf("%w: %d more votes needed",
			domainerrors.ErrThresholdNotMet, poll.RevealThreshold-len(votes))
	}

	average, divergence := entities.Rollup(votes)
	poll.IsRevealed = true
	poll.IsActive = false
	poll.AverageScore = &average
	poll.DivergenceScore = &divergence
	poll.UpdatedAt = revealedAt.UTC()
	s.polls[poll.PollID] = poll
	return ports.RevealOutcome{Poll: poll, Votes: votes}, nil
}

func (s *Store) SubmitVote(_ context.Context, firmID string, vote entities.Vote) (ports.SubmitOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	poll, err := s.findPoll(firmID, vote.PollID)
	if err != nil {
		return ports.SubmitOutcome{}, err
	}
	if !poll.AcceptsVotes(vote.UpdatedAt) {
		return ports.SubmitOutcome{}, domainerrors.ErrPollNotActive
	}

	if existing, found := s.findVoteLocked(poll.PollID, vote.UserID); found {
		existing.ConvictionScore = vote.ConvictionScore
		existing.RedFlags = vote.RedFlags
		existing.RedFlagNotes = vote.RedFlagNotes
		existing.GreenFlags = vote.GreenFlags
		existing.GreenFlagNotes = vote.GreenFlagNotes
		existing.PrivateNotes = vote.PrivateNotes
		existing.UpdatedAt = vote.UpdatedAt
		s.votes[existing.VoteID] = existing
		return ports.SubmitOutcome{
			Vote:      existing,
			VoteCount: s.countVotesLocked(poll.PollID),
			WasUpdate: true,
		}, nil
	}

	s.votes[strings.TrimSpace(vote.VoteID)] = vote
	return ports.SubmitOutcome{
		Vote:      vote,
		VoteCount: s.countVotesLocked(poll.PollID),
	}, nil
}

func (s *Store) GetVoteByVoter(_ context.Context, pollID string, userID string) (entities.Vote, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	vote, found := s.findVoteLocked(strings.TrimSpace(pollID), strings.TrimSpace(userID))
	return vote, found, nil
}

func (s *Store) ListVotesByPoll(_ context.Context, pollID string) ([]entities.Vote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listVotesLocked(strings.TrimSpace(pollID)), nil
}

func (s *Store) GetDeal(_ context.Context, firmID string, dealID string) (ports.DealProjection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	deal, ok := s.deals[strings.TrimSpace(dealID)]
	if !ok || deal.FirmID != strings.TrimSpace(firmID) {
		return ports.DealProjection{}, domainerrors.ErrDealNotFound
	}
	return deal, nil
}

func (s *Store) GetMember(_ context.Context, firmID string, userID string) (ports.MemberProjection, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	member, ok := s.members[memberKey(firmID, userID)]
	if !ok {
		return ports.MemberProjection{}, false, nil
	}
	return member, true, nil
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
	if existing, ok := s.outbox[outboxID]; ok {
		if !bytes.Equal(existing.message.Payload, payload) {
			return domainerrors.ErrVoteConflict
		}
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
		return domainerrors.ErrVoteConflict
	}
	row.published = true
	s.outbox[strings.TrimSpace(outboxID)] = row
	return nil
}

func (s *Store) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

func (s *Store) findPoll(firmID string, pollID string) (entities.Poll, error) {
	poll, ok := s.polls[strings.TrimSpace(pollID)]
	// Cross-tenant access reads as not-found, never as forbidden, so poll
	// existence does not leak across firms.
	if !ok || poll.FirmID != strings.TrimSpace(firmID) {
		return entities.Poll{}, domainerrors.ErrPollNotFound
	}
	return poll, nil
}

func (s *Store) findVoteLocked(pollID string, userID string) (entities.Vote, bool) {
	for _, vote := range s.votes {
		if vote.PollID == pollID && vote.UserID == userID {
			return vote, true
		}
	}
	return entities.Vote{}, false
}

func (s *Store) listVotesLocked(pollID string) []entities.Vote {
	items := make([]entities.Vote, 0)
	for _, vote := range s.votes {
		if vote.PollID == pollID {
			items = append(items, vote)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].SubmittedAt.Equal(items[j].SubmittedAt) {
			return items[i].VoteID < items[j].VoteID
		}
		return items[i].SubmittedAt.Before(items[j].SubmittedAt)
	})
	return items
}

func (s *Store) countVotesLocked(pollID string) int {
	count := 0
	for _, vote := range s.votes {
		if vote.PollID == pollID {
			count++
		}
	}
	return count
}

func memberKey(firmID string, userID string) string {
	return strings.TrimSpace(firmID) + "/" + strings.TrimSpace(userID)
}

var (
	_ ports.PollRepository   = (*Store)(nil)
	_ ports.VoteRepository   = (*Store)(nil)
	_ ports.DealDirectory    = (*Store)(nil)
	_ ports.MemberDirectory  = (*Store)(nil)
	_ ports.OutboxWriter     = (*Store)(nil)
	_ ports.OutboxRepository = (*Store)(nil)
	_ ports.IDGenerator      = (*Store)(nil)
)
