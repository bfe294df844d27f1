package commands_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"dealdesk/contexts/investment-committee/conviction-polling/adapters/memory"
	"dealdesk/contexts/investment-committee/conviction-polling/application/commands"
	"dealdesk/contexts/investment-committee/conviction-polling/domain/entities"
	domainerrors "dealdesk/contexts/investment-committee/conviction-polling/domain/errors"
	"dealdesk/contexts/investment-committee/conviction-polling/ports"
)

func newFixture(t *testing.T) (*memory.Store, clockwork.FakeClock, commands.PollUseCase) {
	t.Helper()

	store := memory.NewStore(nil)
	store.SetDeal(ports.DealProjection{
		DealID:        "deal-1",
		FirmID:        "firm-1",
		CompanyName:   "Acme Robotics",
		LeadPartnerID: "lead-1",
	})
	store.SetMember(ports.MemberProjection{UserID: "admin-1", FirmID: "firm-1", FullName: "Ada Admin", Role: entities.RoleAdmin})
	store.SetMember(ports.MemberProjection{UserID: "lead-1", FirmID: "firm-1", FullName: "Lena Lead", Role: entities.RolePartner})
	store.SetMember(ports.MemberProjection{UserID: "alice", FirmID: "firm-1", FullName: "Alice", Role: entities.RolePartner})
	store.SetMember(ports.MemberProjection{UserID: "bob", FirmID: "firm-1", FullName: "Bob", Role: entities.RolePrincipal})
	store.SetMember(ports.MemberProjection{UserID: "carol", FirmID: "firm-1", FullName: "Carol", Role: entities.RoleAssociate})

	clock := clockwork.NewFakeClockAt(time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC))
	useCase := commands.PollUseCase{
		Polls:            store,
		Votes:            store,
		Deals:            store,
		Members:          store,
		Outbox:           store,
		Clock:            clock,
		IDGen:            store,
		RepeatRevealNoOp: true,
	}
	return store, clock, useCase
}

func createPoll(t *testing.T, useCase commands.PollUseCase, threshold int) entities.Poll {
	t.Helper()
	poll, err := useCase.CreatePoll(context.Background(), commands.CreatePollCommand{
		FirmID:          "firm-1",
		CreatorID:       "lead-1",
		DealID:          "deal-1",
		Title:           "Series A conviction",
		RevealThreshold: threshold,
	})
	if err != nil {
		t.Fatalf("CreatePoll: %v", err)
	}
	return poll
}

func submit(t *testing.T, useCase commands.PollUseCase, pollID string, voterID string, score int) commands.SubmitVoteResult {
	t.Helper()
	result, err := useCase.SubmitVote(context.Background(), commands.SubmitVoteCommand{
		FirmID:          "firm-1",
		PollID:          pollID,
		VoterID:         voterID,
		ConvictionScore: score,
	})
	if err != nil {
		t.Fatalf("SubmitVote(%s): %v", voterID, err)
	}
	return result
}

func TestCreatePollAppliesDefaultThreshold(t *testing.T) {
	_, _, useCase := newFixture(t)

	poll := createPoll(t, useCase, 0)
	if poll.RevealThreshold != entities.DefaultRevealThreshold {
		t.Fatalf("threshold = %d, want %d", poll.RevealThreshold, entities.DefaultRevealThreshold)
	}
	if !poll.IsActive || poll.IsRevealed {
		t.Fatalf("new poll should be active and concealed, got active=%v revealed=%v", poll.IsActive, poll.IsRevealed)
	}
	if poll.AverageScore != nil || poll.DivergenceScore != nil {
		t.Fatal("new poll must not carry a rollup")
	}
}

func TestCreatePollUnknownDeal(t *testing.T) {
	_, _, useCase := newFixture(t)

	_, err := useCase.CreatePoll(context.Background(), commands.CreatePollCommand{
		FirmID:    "firm-1",
		CreatorID: "lead-1",
		DealID:    "deal-missing",
		Title:     "Poll",
	})
	if !errors.Is(err, domainerrors.ErrDealNotFound) {
		t.Fatalf("err = %v, want ErrDealNotFound", err)
	}
}

func TestSubmitVoteUpsertsSingleRow(t *testing.T) {
	store, clock, useCase := newFixture(t)
	poll := createPoll(t, useCase, 3)

	first := submit(t, useCase, poll.PollID, "alice", 6)
	if first.WasUpdate || first.VoteCount != 1 {
		t.Fatalf("first submit: wasUpdate=%v count=%d", first.WasUpdate, first.VoteCount)
	}

	clock.Advance(time.Minute)
	second := submit(t, useCase, poll.PollID, "alice", 9)
	if !second.WasUpdate {
		t.Fatal("resubmission should report an update")
	}
	if second.VoteCount != 1 {
		t.Fatalf("resubmission created a second row, count = %d", second.VoteCount)
	}
	if second.Vote.VoteID != first.Vote.VoteID {
		t.Fatalf("vote identity changed on update: %s -> %s", first.Vote.VoteID, second.Vote.VoteID)
	}
	if !second.Vote.SubmittedAt.Equal(first.Vote.SubmittedAt) {
		t.Fatal("first-submission timestamp must survive updates")
	}

	vote, found, err := store.GetVoteByVoter(context.Background(), poll.PollID, "alice")
	if err != nil || !found {
		t.Fatalf("GetVoteByVoter: found=%v err=%v", found, err)
	}
	if vote.ConvictionScore != 9 {
		t.Fatalf("stored score = %d, want 9", vote.ConvictionScore)
	}
}

func TestSubmitVoteRejectsOutOfRangeScores(t *testing.T) {
	store, _, useCase := newFixture(t)
	poll := createPoll(t, useCase, 3)

	for _, score := range []int{0, 11, -3} {
		_, err := useCase.SubmitVote(context.Background(), commands.SubmitVoteCommand{
			FirmID:          "firm-1",
			PollID:          poll.PollID,
			VoterID:         "alice",
			ConvictionScore: score,
		})
		if !errors.Is(err, domainerrors.ErrInvalidScore) {
			t.Fatalf("score %d: err = %v, want ErrInvalidScore", score, err)
		}
	}

	count, err := store.CountVotes(context.Background(), poll.PollID)
	if err != nil {
		t.Fatalf("CountVotes: %v", err)
	}
	if count != 0 {
		t.Fatalf("rejected submissions stored %d votes", count)
	}
}

func TestSubmitVoteAfterCloseTimeRejected(t *testing.T) {
	_, clock, useCase := newFixture(t)

	closesAt := clock.Now().Add(time.Hour)
	poll, err := useCase.CreatePoll(context.Background(), commands.CreatePollCommand{
		FirmID:    "firm-1",
		CreatorID: "lead-1",
		DealID:    "deal-1",
		Title:     "Series A conviction",
		ClosesAt:  &closesAt,
	})
	if err != nil {
		t.Fatalf("CreatePoll: %v", err)
	}

	submit(t, useCase, poll.PollID, "alice", 6)

	clock.Advance(2 * time.Hour)
	_, err = useCase.SubmitVote(context.Background(), commands.SubmitVoteCommand{
		FirmID:          "firm-1",
		PollID:          poll.PollID,
		VoterID:         "bob",
		ConvictionScore: 7,
	})
	if !errors.Is(err, domainerrors.ErrPollNotActive) {
		t.Fatalf("submit past closes_at: err = %v, want ErrPollNotActive", err)
	}
}

func TestVoteEventCarriesNoBallotContents(t *testing.T) {
	store, _, useCase := newFixture(t)
	poll := createPoll(t, useCase, 3)

	_, err := useCase.SubmitVote(context.Background(), commands.SubmitVoteCommand{
		FirmID:          "firm-1",
		PollID:          poll.PollID,
		VoterID:         "alice",
		ConvictionScore: 9,
		RedFlags:        []string{"Competition"},
		RedFlagNotes:    "two funded rivals",
		GreenFlags:      []string{"Team"},
		PrivateNotes:    "chase regardless",
	})
	if err != nil {
		t.Fatalf("SubmitVote: %v", err)
	}

	pending, err := store.ListPendingOutbox(context.Background(), 10)
	if err != nil {
		t.Fatalf("ListPendingOutbox: %v", err)
	}

	var data map[string]any
	found := false
	for _, row := range pending {
		if row.EventType != "poll.vote.submitted" {
			continue
		}
		found = true
		var envelope ports.EventEnvelope
		if err := json.Unmarshal(row.Payload, &envelope); err != nil {
			t.Fatalf("decode envelope: %v", err)
		}
		if err := json.Unmarshal(envelope.Data, &data); err != nil {
			t.Fatalf("decode event data: %v", err)
		}
	}
	if !found {
		t.Fatal("no poll.vote.submitted event appended")
	}

	// Outbox rows outlive the concealment window; the event may carry the
	// count but never the ballot itself.
	for _, field := range []string{
		"conviction_score",
		"score",
		"red_flags",
		"red_flag_notes",
		"green_flags",
		"green_flag_notes",
		"private_notes",
	} {
		if _, ok := data[field]; ok {
			t.Fatalf("vote event leaks ballot field %q", field)
		}
	}
	if _, ok := data["vote_count"]; !ok {
		t.Fatal("vote event should carry the vote count")
	}
	if _, ok := data["was_update"]; !ok {
		t.Fatal("vote event should carry the update marker")
	}
}

func TestSubmitVoteRejectsNonMember(t *testing.T) {
	_, _, useCase := newFixture(t)
	poll := createPoll(t, useCase, 3)

	_, err := useCase.SubmitVote(context.Background(), commands.SubmitVoteCommand{
		FirmID:          "firm-1",
		PollID:          poll.PollID,
		VoterID:         "stranger",
		ConvictionScore: 5,
	})
	if !errors.Is(err, domainerrors.ErrUnauthorized) {
		t.Fatalf("err = %v, want ErrUnauthorized", err)
	}
}

func TestRevealBelowThreshold(t *testing.T) {
	_, _, useCase := newFixture(t)
	poll := createPoll(t, useCase, 3)
	submit(t, useCase, poll.PollID, "alice", 7)

	_, err := useCase.RevealPoll(context.Background(), commands.RevealPollCommand{
		FirmID:  "firm-1",
		PollID:  poll.PollID,
		ActorID: "lead-1",
	})
	if !errors.Is(err, domainerrors.ErrThresholdNotMet) {
		t.Fatalf("err = %v, want ErrThresholdNotMet", err)
	}
	if !strings.Contains(err.Error(), "2 more votes needed") {
		t.Fatalf("error should report remaining votes, got %q", err.Error())
	}
}

func TestRevealPersistsRollupAndClosesPoll(t *testing.T) {
	store, _, useCase := newFixture(t)
	poll := createPoll(t, useCase, 3)
	submit(t, useCase, poll.PollID, "alice", 9)
	submit(t, useCase, poll.PollID, "bob", 8)
	submit(t, useCase, poll.PollID, "carol", 7)

	result, err := useCase.RevealPoll(context.Background(), commands.RevealPollCommand{
		FirmID:  "firm-1",
		PollID:  poll.PollID,
		ActorID: "lead-1",
	})
	if err != nil {
		t.Fatalf("RevealPoll: %v", err)
	}
	if result.Repeated {
		t.Fatal("first reveal must not report a replay")
	}
	if !result.Poll.IsRevealed || result.Poll.IsActive {
		t.Fatalf("revealed poll state: revealed=%v active=%v", result.Poll.IsRevealed, result.Poll.IsActive)
	}
	if result.Poll.AverageScore == nil || *result.Poll.AverageScore != 8.0 {
		t.Fatalf("average rollup = %v, want 8.0", result.Poll.AverageScore)
	}
	if result.Poll.DivergenceScore == nil || *result.Poll.DivergenceScore != 2 {
		t.Fatalf("divergence rollup = %v, want 2", result.Poll.DivergenceScore)
	}

	stored, err := store.GetPoll(context.Background(), "firm-1", poll.PollID)
	if err != nil {
		t.Fatalf("GetPoll: %v", err)
	}
	if !stored.IsRevealed {
		t.Fatal("reveal was not persisted")
	}
}

func TestSubmitAfterRevealRejected(t *testing.T) {
	_, _, useCase := newFixture(t)
	poll := createPoll(t, useCase, 3)
	submit(t, useCase, poll.PollID, "alice", 9)
	submit(t, useCase, poll.PollID, "bob", 8)
	submit(t, useCase, poll.PollID, "carol", 7)

	if _, err := useCase.RevealPoll(context.Background(), commands.RevealPollCommand{
		FirmID:  "firm-1",
		PollID:  poll.PollID,
		ActorID: "admin-1",
	}); err != nil {
		t.Fatalf("RevealPoll: %v", err)
	}

	_, err := useCase.SubmitVote(context.Background(), commands.SubmitVoteCommand{
		FirmID:          "firm-1",
		PollID:          poll.PollID,
		VoterID:         "alice",
		ConvictionScore: 2,
	})
	if !errors.Is(err, domainerrors.ErrPollNotActive) {
		t.Fatalf("err = %v, want ErrPollNotActive", err)
	}
}

func TestRevealAuthorization(t *testing.T) {
	_, _, useCase := newFixture(t)
	poll := createPoll(t, useCase, 3)
	submit(t, useCase, poll.PollID, "alice", 9)
	submit(t, useCase, poll.PollID, "bob", 8)
	submit(t, useCase, poll.PollID, "carol", 7)

	// A voter who is neither admin nor lead partner cannot reveal.
	_, err := useCase.RevealPoll(context.Background(), commands.RevealPollCommand{
		FirmID:  "firm-1",
		PollID:  poll.PollID,
		ActorID: "carol",
	})
	if !errors.Is(err, domainerrors.ErrUnauthorized) {
		t.Fatalf("associate reveal: err = %v, want ErrUnauthorized", err)
	}

	if _, err := useCase.RevealPoll(context.Background(), commands.RevealPollCommand{
		FirmID:  "firm-1",
		PollID:  poll.PollID,
		ActorID: "admin-1",
	}); err != nil {
		t.Fatalf("admin reveal: %v", err)
	}
}

func TestRepeatRevealFollowsPolicy(t *testing.T) {
	_, _, useCase := newFixture(t)
	poll := createPoll(t, useCase, 3)
	submit(t, useCase, poll.PollID, "alice", 9)
	submit(t, useCase, poll.PollID, "bob", 8)
	submit(t, useCase, poll.PollID, "carol", 7)

	cmd := commands.RevealPollCommand{FirmID: "firm-1", PollID: poll.PollID, ActorID: "lead-1"}
	if _, err := useCase.RevealPoll(context.Background(), cmd); err != nil {
		t.Fatalf("first reveal: %v", err)
	}

	repeated, err := useCase.RevealPoll(context.Background(), cmd)
	if err != nil {
		t.Fatalf("repeat reveal with no-op policy: %v", err)
	}
	if !repeated.Repeated {
		t.Fatal("repeat reveal should report a replay")
	}

	strict := useCase
	strict.RepeatRevealNoOp = false
	if _, err := strict.RevealPoll(context.Background(), cmd); !errors.Is(err, domainerrors.ErrAlreadyRevealed) {
		t.Fatalf("strict repeat reveal: err = %v, want ErrAlreadyRevealed", err)
	}
}

func TestCrossFirmPollReadsAsNotFound(t *testing.T) {
	_, _, useCase := newFixture(t)
	poll := createPoll(t, useCase, 3)

	_, err := useCase.SubmitVote(context.Background(), commands.SubmitVoteCommand{
		FirmID:          "firm-2",
		PollID:          poll.PollID,
		VoterID:         "alice",
		ConvictionScore: 5,
	})
	if !errors.Is(err, domainerrors.ErrUnauthorized) && !errors.Is(err, domainerrors.ErrPollNotFound) {
		t.Fatalf("cross-firm submit: err = %v", err)
	}
}
