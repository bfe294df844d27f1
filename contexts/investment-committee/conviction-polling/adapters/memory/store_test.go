package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	contractsv1 "dealdesk/contracts/gen/events/v1"
	"dealdesk/contexts/investment-committee/conviction-polling/domain/entities"
	domainerrors "dealdesk/contexts/investment-committee/conviction-polling/domain/errors"
)

func seedPoll(threshold int) entities.Poll {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	return entities.Poll{
		PollID:          "poll-1",
		DealID:          "deal-1",
		FirmID:          "firm-1",
		Title:           "Series A conviction",
		IsActive:        true,
		RevealThreshold: threshold,
		OpensAt:         now,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func seedVote(voteID string, userID string, score int, at time.Time) entities.Vote {
	return entities.Vote{
		VoteID:          voteID,
		PollID:          "poll-1",
		UserID:          userID,
		ConvictionScore: score,
		SubmittedAt:     at,
		UpdatedAt:       at,
	}
}

func TestConcurrentResubmissionKeepsSingleRow(t *testing.T) {
	store := NewStore([]entities.Poll{seedPoll(3)})
	base := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			vote := seedVote(fmt.Sprintf("v-%d", i), "alice", 1+i%10, base.Add(time.Duration(i)*time.Millisecond))
			if _, err := store.SubmitVote(context.Background(), "firm-1", vote); err != nil {
				t.Errorf("SubmitVote: %v", err)
			}
		}(i)
	}
	wg.Wait()

	count, err := store.CountVotes(context.Background(), "poll-1")
	if err != nil {
		t.Fatalf("CountVotes: %v", err)
	}
	if count != 1 {
		t.Fatalf("concurrent resubmissions left %d rows, want 1", count)
	}
}

func TestRevealBlocksLaterSubmissions(t *testing.T) {
	store := NewStore([]entities.Poll{seedPoll(2)})
	base := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)

	for i, user := range []string{"alice", "bob"} {
		vote := seedVote(fmt.Sprintf("v-%d", i), user, 5+i, base.Add(time.Duration(i)*time.Second))
		if _, err := store.SubmitVote(context.Background(), "firm-1", vote); err != nil {
			t.Fatalf("SubmitVote: %v", err)
		}
	}

	outcome, err := store.RevealPoll(context.Background(), "firm-1", "poll-1", base.Add(time.Minute))
	if err != nil {
		t.Fatalf("RevealPoll: %v", err)
	}
	if outcome.AlreadyRevealed {
		t.Fatal("first reveal must not be a replay")
	}
	if len(outcome.Votes) != 2 {
		t.Fatalf("reveal snapshot carried %d votes, want 2", len(outcome.Votes))
	}

	late := seedVote("v-late", "carol", 8, base.Add(2*time.Minute))
	if _, err := store.SubmitVote(context.Background(), "firm-1", late); !errors.Is(err, domainerrors.ErrPollNotActive) {
		t.Fatalf("post-reveal submit: err = %v, want ErrPollNotActive", err)
	}
}

func TestRevealThresholdErrorReportsRemaining(t *testing.T) {
	store := NewStore([]entities.Poll{seedPoll(3)})
	base := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)
	if _, err := store.SubmitVote(context.Background(), "firm-1", seedVote("v-1", "alice", 7, base)); err != nil {
		t.Fatalf("SubmitVote: %v", err)
	}

	_, err := store.RevealPoll(context.Background(), "firm-1", "poll-1", base.Add(time.Minute))
	if !errors.Is(err, domainerrors.ErrThresholdNotMet) {
		t.Fatalf("err = %v, want ErrThresholdNotMet", err)
	}
}

func TestRepeatRevealReturnsReplayOutcome(t *testing.T) {
	store := NewStore([]entities.Poll{seedPoll(1)})
	base := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)
	if _, err := store.SubmitVote(context.Background(), "firm-1", seedVote("v-1", "alice", 7, base)); err != nil {
		t.Fatalf("SubmitVote: %v", err)
	}

	first, err := store.RevealPoll(context.Background(), "firm-1", "poll-1", base.Add(time.Minute))
	if err != nil {
		t.Fatalf("first reveal: %v", err)
	}
	second, err := store.RevealPoll(context.Background(), "firm-1", "poll-1", base.Add(2*time.Minute))
	if err != nil {
		t.Fatalf("second reveal: %v", err)
	}
	if !second.AlreadyRevealed {
		t.Fatal("second reveal should report a replay")
	}
	if second.Poll.UpdatedAt != first.Poll.UpdatedAt {
		t.Fatal("replayed reveal must not rewrite poll state")
	}
}

func TestCrossFirmLookupsReadAsNotFound(t *testing.T) {
	store := NewStore([]entities.Poll{seedPoll(3)})

	if _, err := store.GetPoll(context.Background(), "firm-2", "poll-1"); !errors.Is(err, domainerrors.ErrPollNotFound) {
		t.Fatalf("cross-firm GetPoll: err = %v, want ErrPollNotFound", err)
	}
	if _, err := store.RevealPoll(context.Background(), "firm-2", "poll-1", time.Now()); !errors.Is(err, domainerrors.ErrPollNotFound) {
		t.Fatalf("cross-firm RevealPoll: err = %v, want ErrPollNotFound", err)
	}
}

func TestOutboxLifecycle(t *testing.T) {
	store := NewStore(nil)
	now := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)

	err := store.AppendOutbox(context.Background(), contractsv1.Envelope{
		EventID:    "evt-1",
		EventType:  "poll.created",
		OccurredAt: now,
	})
	if err != nil {
		t.Fatalf("AppendOutbox: %v", err)
	}

	pending, err := store.ListPendingOutbox(context.Background(), 10)
	if err != nil {
		t.Fatalf("ListPendingOutbox: %v", err)
	}
	if len(pending) != 1 || pending[0].OutboxID != "evt-1" {
		t.Fatalf("pending = %+v, want one row evt-1", pending)
	}

	if err := store.MarkOutboxPublished(context.Background(), "evt-1", now.Add(time.Second)); err != nil {
		t.Fatalf("MarkOutboxPublished: %v", err)
	}
	pending, err = store.ListPendingOutbox(context.Background(), 10)
	if err != nil {
		t.Fatalf("ListPendingOutbox after publish: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("published row still pending: %+v", pending)
	}
}
