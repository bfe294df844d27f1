package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	pollingerrors "dealdesk/contexts/investment-committee/conviction-polling/domain/errors"
	pollinghttp "dealdesk/contexts/investment-committee/conviction-polling/transport/http"
	"dealdesk/internal/platform/metrics"
)

func (s *Server) handleCreatePoll(w http.ResponseWriter, r *http.Request) {
	firmID, userID, ok := resolveIdentity(w, r)
	if !ok {
		return
	}

	var req pollinghttp.CreatePollRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writePollingError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}

	resp, err := s.polling.Handler.CreatePollHandler(r.Context(), firmID, userID, req)
	if err != nil {
		writePollingDomainError(w, err)
		return
	}
	metrics.PollsCreatedTotal.Inc()
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleGetPoll(w http.ResponseWriter, r *http.Request) {
	firmID, _, ok := resolveIdentity(w, r)
	if !ok {
		return
	}

	resp, err := s.polling.Handler.GetPollHandler(r.Context(), firmID, r.PathValue("poll_id"))
	if err != nil {
		writePollingDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDealPolls(w http.ResponseWriter, r *http.Request) {
	firmID, _, ok := resolveIdentity(w, r)
	if !ok {
		return
	}

	resp, err := s.polling.Handler.DealPollsHandler(r.Context(), firmID, r.PathValue("deal_id"))
	if err != nil {
		writePollingDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSubmitVote(w http.ResponseWriter, r *http.Request) {
	firmID, userID, ok := resolveIdentity(w, r)
	if !ok {
		return
	}

	var req pollinghttp.SubmitVoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writePollingError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}

	resp, err := s.polling.Handler.SubmitVoteHandler(r.Context(), firmID, userID, r.PathValue("poll_id"), req)
	if err != nil {
		metrics.VotesSubmittedTotal.WithLabelValues(voteResultLabel(err)).Inc()
		writePollingDomainError(w, err)
		return
	}
	if resp.WasUpdate {
		metrics.VotesSubmittedTotal.WithLabelValues("updated").Inc()
	} else {
		metrics.VotesSubmittedTotal.WithLabelValues("created").Inc()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handlePollVotes(w http.ResponseWriter, r *http.Request) {
	firmID, userID, ok := resolveIdentity(w, r)
	if !ok {
		return
	}

	resp, err := s.polling.Handler.PollVotesHandler(r.Context(), firmID, userID, r.PathValue("poll_id"))
	if err != nil {
		writePollingDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleOwnVote(w http.ResponseWriter, r *http.Request) {
	firmID, userID, ok := resolveIdentity(w, r)
	if !ok {
		return
	}

	resp, found, err := s.polling.Handler.OwnVoteHandler(r.Context(), firmID, userID, r.PathValue("poll_id"))
	if err != nil {
		writePollingDomainError(w, err)
		return
	}
	if !found {
		writePollingError(w, http.StatusNotFound, "vote_not_found", "no vote submitted for this poll")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRevealPoll(w http.ResponseWriter, r *http.Request) {
	firmID, userID, ok := resolveIdentity(w, r)
	if !ok {
		return
	}

	resp, err := s.polling.Handler.RevealPollHandler(r.Context(), firmID, userID, r.PathValue("poll_id"))
	if err != nil {
		metrics.PollRevealsTotal.WithLabelValues(revealResultLabel(err)).Inc()
		writePollingDomainError(w, err)
		return
	}
	if resp.AlreadyRevealed {
		metrics.PollRevealsTotal.WithLabelValues("replayed").Inc()
	} else {
		metrics.PollRevealsTotal.WithLabelValues("revealed").Inc()
		if resp.DivergenceScore != nil {
			metrics.PollDivergence.Observe(float64(*resp.DivergenceScore))
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDivergenceSummary(w http.ResponseWriter, r *http.Request) {
	firmID, _, ok := resolveIdentity(w, r)
	if !ok {
		return
	}

	resp, err := s.polling.Handler.DivergenceSummaryHandler(r.Context(), firmID, r.PathValue("poll_id"))
	if err != nil {
		writePollingDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAttention(w http.ResponseWriter, r *http.Request) {
	firmID, _, ok := resolveIdentity(w, r)
	if !ok {
		return
	}

	query := r.URL.Query()
	minDivergence := 0
	if raw := query.Get("min_divergence"); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil {
			writePollingError(w, http.StatusBadRequest, "invalid_min_divergence", "min_divergence must be an integer")
			return
		}
		minDivergence = value
	}
	limit := 0
	if raw := query.Get("limit"); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil {
			writePollingError(w, http.StatusBadRequest, "invalid_limit", "limit must be an integer")
			return
		}
		limit = value
	}

	resp, err := s.polling.Handler.AttentionHandler(r.Context(), firmID, minDivergence, limit)
	if err != nil {
		writePollingDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func resolveIdentity(w http.ResponseWriter, r *http.Request) (firmID string, userID string, ok bool) {
	userID = strings.TrimSpace(r.Header.Get("X-User-Id"))
	if userID == "" {
		writePollingError(w, http.StatusUnauthorized, "missing_user", "X-User-Id header is required")
		return "", "", false
	}
	firmID = strings.TrimSpace(r.Header.Get("X-Firm-Id"))
	if firmID == "" {
		writePollingError(w, http.StatusUnauthorized, "missing_firm", "X-Firm-Id header is required")
		return "", "", false
	}
	return firmID, userID, true
}

func writePollingDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, pollingerrors.ErrInvalidScore):
		writePollingError(w, http.StatusBadRequest, "invalid_score", err.Error())
	case errors.Is(err, pollingerrors.ErrInvalidPollInput):
		writePollingError(w, http.StatusBadRequest, "invalid_poll_input", err.Error())
	case errors.Is(err, pollingerrors.ErrPollNotFound):
		writePollingError(w, http.StatusNotFound, "poll_not_found", err.Error())
	case errors.Is(err, pollingerrors.ErrDealNotFound):
		writePollingError(w, http.StatusNotFound, "deal_not_found", err.Error())
	case errors.Is(err, pollingerrors.ErrVoteNotFound):
		writePollingError(w, http.StatusNotFound, "vote_not_found", err.Error())
	case errors.Is(err, pollingerrors.ErrUnauthorized):
		writePollingError(w, http.StatusForbidden, "forbidden", err.Error())
	case errors.Is(err, pollingerrors.ErrPollNotActive):
		writePollingError(w, http.StatusConflict, "poll_not_active", err.Error())
	case errors.Is(err, pollingerrors.ErrAlreadyRevealed):
		writePollingError(w, http.StatusConflict, "already_revealed", err.Error())
	case errors.Is(err, pollingerrors.ErrThresholdNotMet):
		writePollingError(w, http.StatusConflict, "threshold_not_met", err.Error())
	case errors.Is(err, pollingerrors.ErrNotRevealed):
		writePollingError(w, http.StatusConflict, "not_revealed", err.Error())
	case errors.Is(err, pollingerrors.ErrInsufficientVotes):
		writePollingError(w, http.StatusConflict, "insufficient_votes", err.Error())
	case errors.Is(err, pollingerrors.ErrVoteConflict):
		writePollingError(w, http.StatusConflict, "vote_conflict", err.Error())
	default:
		writePollingError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func voteResultLabel(err error) string {
	switch {
	case errors.Is(err, pollingerrors.ErrInvalidScore):
		return "invalid_score"
	case errors.Is(err, pollingerrors.ErrPollNotActive):
		return "poll_not_active"
	default:
		return "error"
	}
}

func revealResultLabel(err error) string {
	switch {
	case errors.Is(err, pollingerrors.ErrThresholdNotMet):
		return "threshold_not_met"
	case errors.Is(err, pollingerrors.ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, pollingerrors.ErrAlreadyRevealed):
		return "already_revealed"
	default:
		return "error"
	}
}
