package httpadapter

import (
	"context"
	"log/slog"

	"dealdesk/contexts/investment-committee/conviction-polling/application/commands"
	"dealdesk/contexts/investment-committee/conviction-polling/application/queries"
	"dealdesk/contexts/investment-committee/conviction-polling/domain/entities"
	"dealdesk/contexts/investment-committee/conviction-polling/domain/visibility"
	httptransport "dealdesk/contexts/investment-committee/conviction-polling/transport/http"
)

type Handler struct {
	Polls      commands.PollUseCase
	PollReads  queries.PollsUseCase
	VoteReads  queries.VotesUseCase
	Divergence queries.DivergenceUseCase
	Logger     *slog.Logger
}

func (h Handler) CreatePollHandler(
	ctx context.Context,
	firmID string,
	userID string,
	req httptransport.CreatePollRequest,
) (httptransport.PollResponse, error) {
	poll, err := h.Polls.CreatePoll(ctx, commands.CreatePollCommand{
		FirmID:          firmID,
		CreatorID:       userID,
		DealID:          req.DealID,
		Title:           req.Title,
		Description:     req.Description,
		RevealThreshold: req.RevealThreshold,
		ClosesAt:        req.ClosesAt,
		ICMeetingAt:     req.ICMeetingAt,
	})
	if err != nil {
		return httptransport.PollResponse{}, err
	}
	return mapPoll(queries.PollStatus{Poll: poll}), nil
}

func (h Handler) GetPollHandler(ctx context.Context, firmID string, pollID string) (httptransport.PollResponse, error) {
	status, err := h.PollReads.GetPoll(ctx, firmID, pollID)
	if err != nil {
		return httptransport.PollResponse{}, err
	}
	return mapPoll(status), nil
}

func (h Handler) DealPollsHandler(ctx context.Context, firmID string, dealID string) (httptransport.PollListResponse, error) {
	statuses, err := h.PollReads.DealPolls(ctx, firmID, dealID)
	if err != nil {
		return httptransport.PollListResponse{}, err
	}
	items := make([]httptransport.PollResponse, 0, len(statuses))
	for _, status := range statuses {
		items = append(items, mapPoll(status))
	}
	return httptransport.PollListResponse{Items: items}, nil
}

func (h Handler) SubmitVoteHandler(
	ctx context.Context,
	firmID string,
	userID string,
	pollID string,
	req httptransport.SubmitVoteRequest,
) (httptransport.SubmitVoteResponse, error) {
	result, err := h.Polls.SubmitVote(ctx, commands.SubmitVoteCommand{
		FirmID:          firmID,
		PollID:          pollID,
		VoterID:         userID,
		ConvictionScore: req.ConvictionScore,
		RedFlags:        req.RedFlags,
		RedFlagNotes:    req.RedFlagNotes,
		GreenFlags:      req.GreenFlags,
		GreenFlagNotes:  req.GreenFlagNotes,
		PrivateNotes:    req.PrivateNotes,
	})
	if err != nil {
		return httptransport.SubmitVoteResponse{}, err
	}
	return httptransport.SubmitVoteResponse{
		VoteID:          result.Vote.VoteID,
		PollID:          result.Vote.PollID,
		ConvictionScore: result.Vote.ConvictionScore,
		VoteCount:       result.VoteCount,
		WasUpdate:       result.WasUpdate,
	}, nil
}

func (h Handler) PollVotesHandler(ctx context.Context, firmID string, userID string, pollID string) (httptransport.VoteListResponse, error) {
	views, err := h.VoteReads.PollVotes(ctx, firmID, userID, pollID)
	if err != nil {
		return httptransport.VoteListResponse{}, err
	}
	items := make([]httptransport.VoteViewResponse, 0, len(views))
	for _, view := range views {
		items = append(items, mapVoteView(view))
	}
	return httptransport.VoteListResponse{Items: items}, nil
}

func (h Handler) OwnVoteHandler(ctx context.Context, firmID string, userID string, pollID string) (httptransport.VoteViewResponse, bool, error) {
	view, found, err := h.VoteReads.OwnVote(ctx, firmID, userID, pollID)
	if err != nil || !found {
		return httptransport.VoteViewResponse{}, false, err
	}
	return mapVoteView(view), true, nil
}

func (h Handler) RevealPollHandler(ctx context.Context, firmID string, userID string, pollID string) (httptransport.RevealPollResponse, error) {
	result, err := h.Polls.RevealPoll(ctx, commands.RevealPollCommand{
		FirmID:  firmID,
		PollID:  pollID,
		ActorID: userID,
	})
	if err != nil {
		return httptransport.RevealPollResponse{}, err
	}
	count, err := h.PollReads.VoteCount(ctx, result.Poll.PollID)
	if err != nil {
		return httptransport.RevealPollResponse{}, err
	}
	return httptransport.RevealPollResponse{
		PollID:          result.Poll.PollID,
		Revealed:        result.Poll.IsRevealed,
		AlreadyRevealed: result.Repeated,
		VoteCount:       count,
		AverageScore:    result.Poll.AverageScore,
		DivergenceScore: result.Poll.DivergenceScore,
	}, nil
}

func (h Handler) DivergenceSummaryHandler(ctx context.Context, firmID string, pollID string) (httptransport.DivergenceSummaryResponse, error) {
	summary, err := h.Divergence.Summary(ctx, firmID, pollID)
	if err != nil {
		return httptransport.DivergenceSummaryResponse{}, err
	}
	return httptransport.DivergenceSummaryResponse{
		PollID:          summary.PollID,
		DealID:          summary.DealID,
		CompanyName:     summary.CompanyName,
		TotalVotes:      summary.TotalVotes,
		AverageScore:    summary.AverageScore,
		MinScore:        summary.MinScore,
		MaxScore:        summary.MaxScore,
		Divergence:      summary.Divergence,
		StdDeviation:    summary.StdDeviation,
		Distribution:    summary.Distribution,
		TopRedFlags:     mapFlagCounts(summary.TopRedFlags),
		TopGreenFlags:   mapFlagCounts(summary.TopGreenFlags),
		HasConsensus:    summary.HasConsensus,
		NeedsDiscussion: summary.NeedsDiscussion,
	}, nil
}

func (h Handler) AttentionHandler(ctx context.Context, firmID string, minDivergence int, limit int) (httptransport.AttentionListResponse, error) {
	items, err := h.Divergence.HighDivergence(ctx, firmID, minDivergence, limit)
	if err != nil {
		return httptransport.AttentionListResponse{}, err
	}
	out := make([]httptransport.AttentionItemResponse, 0, len(items))
	for _, item := range items {
		out = append(out, httptransport.AttentionItemResponse{
			PollID:       item.PollID,
			DealID:       item.DealID,
			CompanyName:  item.CompanyName,
			Divergence:   item.Divergence,
			AverageScore: item.AverageScore,
			ICMeetingAt:  item.ICMeetingAt,
		})
	}
	return httptransport.AttentionListResponse{Items: out}, nil
}

func mapPoll(status queries.PollStatus) httptransport.PollResponse {
	poll := status.Poll
	return httptransport.PollResponse{
		PollID:          poll.PollID,
		DealID:          poll.DealID,
		CompanyName:     status.CompanyName,
		OneLiner:        status.OneLiner,
		Title:           poll.Title,
		Description:     poll.Description,
		IsActive:        poll.IsActive,
		IsRevealed:      poll.IsRevealed,
		RevealThreshold: poll.RevealThreshold,
		VoteCount:       status.VoteCount,
		OpensAt:         poll.OpensAt,
		ClosesAt:        poll.ClosesAt,
		ICMeetingAt:     poll.ICMeetingAt,
		AverageScore:    poll.AverageScore,
		DivergenceScore: poll.DivergenceScore,
		CreatedAt:       poll.CreatedAt,
		UpdatedAt:       poll.UpdatedAt,
	}
}

func mapVoteView(view visibility.View) httptransport.VoteViewResponse {
	return httptransport.VoteViewResponse{
		VoteID:          view.VoteID,
		PollID:          view.PollID,
		ConvictionScore: view.ConvictionScore,
		RedFlags:        view.RedFlags,
		RedFlagNotes:    view.RedFlagNotes,
		GreenFlags:      view.GreenFlags,
		GreenFlagNotes:  view.GreenFlagNotes,
		PrivateNotes:    view.PrivateNotes,
		VoterID:         view.VoterID,
		VoterName:       view.VoterName,
		Own:             view.Own,
		SubmittedAt:     view.SubmittedAt,
	}
}

func mapFlagCounts(counts []entities.FlagCount) []httptransport.FlagCountItem {
	if len(counts) == 0 {
		return nil
	}
	items := make([]httptransport.FlagCountItem, 0, len(counts))
	for _, count := range counts {
		items = append(items, httptransport.FlagCountItem{Flag: count.Flag, Count: count.Count})
	}
	return items
}
