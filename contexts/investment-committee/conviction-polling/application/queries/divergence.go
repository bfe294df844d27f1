package queries

import (
	"context"
	"math"
	"sort"
	"strings"
	"time"

	"dealdesk/contexts/investment-committee/conviction-polling/domain/entities"
	domainerrors "dealdesk/contexts/investment-committee/conviction-polling/domain/errors"
	"dealdesk/contexts/investment-committee/conviction-polling/domain/visibility"
	"dealdesk/contexts/investment-committee/conviction-polling/ports"
)

// DivergencePolicy holds the policy constants with recognized effect on the
// consensus signals. Values are configuration, not derived.
type DivergencePolicy struct {
	// ConsensusMaxDivergence: spread at or below this means agreement.
	ConsensusMaxDivergence int
	// DiscussionMinDivergence: spread at or above this flags the poll for
	// IC discussion. Spreads between the two are mixed views, neither flag.
	DiscussionMinDivergence int
	// TopFlagLimit bounds the ranked red/green flag tables.
	TopFlagLimit int
}

// DefaultDivergencePolicy matches the firm-level defaults.
func DefaultDivergencePolicy() DivergencePolicy {
	return DivergencePolicy{
		ConsensusMaxDivergence:  2,
		DiscussionMinDivergence: 5,
		TopFlagLimit:            5,
	}
}

func (p DivergencePolicy) withDefaults() DivergencePolicy {
	defaults := DefaultDivergencePolicy()
	if p.ConsensusMaxDivergence <= 0 {
		p.ConsensusMaxDivergence = defaults.ConsensusMaxDivergence
	}
	if p.DiscussionMinDivergence <= 0 {
		p.DiscussionMinDivergence = defaults.DiscussionMinDivergence
	}
	if p.TopFlagLimit <= 0 {
		p.TopFlagLimit = defaults.TopFlagLimit
	}
	return p
}

// ComputeSummary aggregates a poll's vote set into its divergence summary.
// The function is pure and deterministic: votes are first put into a
// canonical order (submitted_at, then vote id), so the result is identical
// for any insertion order of the same set and never depends on map
// iteration order.
func ComputeSummary(votes []entities.Vote, policy DivergencePolicy) (entities.DivergenceSummary, error) {
	if len(votes) == 0 {
		// Unreachable through the reveal gate (threshold >= 1), kept as an
		// invariant check rather than a degenerate all-zero summary.
		return entities.DivergenceSummary{}, domainerrors.ErrInsufficientVotes
	}
	policy = policy.withDefaults()

	ordered := make([]entities.Vote, len(votes))
	copy(ordered, votes)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].SubmittedAt.Equal(ordered[j].SubmittedAt) {
			return ordered[i].VoteID < ordered[j].VoteID
		}
		return ordered[i].SubmittedAt.Before(ordered[j].SubmittedAt)
	})

	sum := 0
	minScore := ordered[0].ConvictionScore
	maxScore := ordered[0].ConvictionScore
	distribution := make(map[int]int, entities.MaxConvictionScore)
	for score := entities.MinConvictionScore; score <= entities.MaxConvictionScore; score++ {
		distribution[score] = 0
	}
	for _, vote := range ordered {
		sum += vote.ConvictionScore
		distribution[vote.ConvictionScore]++
		if vote.ConvictionScore < minScore {
			minScore = vote.ConvictionScore
		}
		if vote.ConvictionScore > maxScore {
			maxScore = vote.ConvictionScore
		}
	}

	count := len(ordered)
	mean := float64(sum) / float64(count)

	// Population standard deviation: the vote set is the entire population
	// of interest, not a sample.
	var sumSquares float64
	for _, vote := range ordered {
		delta := float64(vote.ConvictionScore) - mean
		sumSquares += delta * delta
	}
	stdDev := math.Sqrt(sumSquares / float64(count))

	divergence := maxScore - minScore
	return entities.DivergenceSummary{
		TotalVotes:      count,
		AverageScore:    mean,
		MinScore:        minScore,
		MaxScore:        maxScore,
		Divergence:      divergence,
		StdDeviation:    stdDev,
		Distribution:    distribution,
		TopRedFlags:     rankFlags(ordered, func(v entities.Vote) []string { return v.RedFlags }, policy.TopFlagLimit),
		TopGreenFlags:   rankFlags(ordered, func(v entities.Vote) []string { return v.GreenFlags }, policy.TopFlagLimit),
		HasConsensus:    divergence <= policy.ConsensusMaxDivergence,
		NeedsDiscussion: divergence >= policy.DiscussionMinDivergence,
	}, nil
}

// rankFlags counts distinct tags across the canonically ordered votes and
// ranks them by count descending, tie-broken by first-seen order. The
// explicit sort keeps repeated computation over the same vote set stable.
func rankFlags(ordered []entities.Vote, pick func(entities.Vote) []string, limit int) []entities.FlagCount {
	counts := make(map[string]int)
	firstSeen := make(map[string]int)
	next := 0
	for _, vote := range ordered {
		for _, flag := range pick(vote) {
			flag = strings.TrimSpace(flag)
			if flag == "" {
				continue
			}
			if _, seen := counts[flag]; !seen {
				firstSeen[flag] = next
				next++
			}
			counts[flag]++
		}
	}
	if len(counts) == 0 {
		return nil
	}

	ranked := make([]entities.FlagCount, 0, len(counts))
	for flag, count := range counts {
		ranked = append(ranked, entities.FlagCount{Flag: flag, Count: count})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Count == ranked[j].Count {
			return firstSeen[ranked[i].Flag] < firstSeen[ranked[j].Flag]
		}
		return ranked[i].Count > ranked[j].Count
	})
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

// AttentionItem is one row of the high-divergence attention list.
type AttentionItem struct {
	PollID       string
	DealID       string
	CompanyName  string
	Divergence   int
	AverageScore float64
	ICMeetingAt  *time.Time
}

// DivergenceUseCase serves post-reveal aggregate reads.
type DivergenceUseCase struct {
	Polls  ports.PollRepository
	Votes  ports.VoteRepository
	Deals  ports.DealDirectory
	Policy DivergencePolicy
}

// Summary returns the divergence summary for a revealed poll. Concealed
// polls fail with NotRevealed so aggregate reads cannot leak individual
// votes at small voter counts.
func (uc DivergenceUseCase) Summary(ctx context.Context, firmID string, pollID string) (entities.DivergenceSummary, error) {
	poll, err := uc.Polls.GetPoll(ctx, strings.TrimSpace(firmID), strings.TrimSpace(pollID))
	if err != nil {
		return entities.DivergenceSummary{}, err
	}
	if !visibility.SummaryVisible(poll) {
		return entities.DivergenceSummary{}, domainerrors.ErrNotRevealed
	}

	votes, err := uc.Votes.ListVotesByPoll(ctx, poll.PollID)
	if err != nil {
		return entities.DivergenceSummary{}, err
	}
	summary, err := ComputeSummary(votes, uc.Policy)
	if err != nil {
		return entities.DivergenceSummary{}, err
	}

	deal, err := uc.Deals.GetDeal(ctx, poll.FirmID, poll.DealID)
	if err != nil {
		return entities.DivergenceSummary{}, err
	}
	summary.PollID = poll.PollID
	summary.DealID = poll.DealID
	summary.CompanyName = deal.CompanyName
	return summary, nil
}

// HighDivergence lists revealed polls whose persisted divergence is at or
// above minDivergence, highest first, for IC attention.
func (uc DivergenceUseCase) HighDivergence(ctx context.Context, firmID string, minDivergence int, limit int) ([]AttentionItem, error) {
	if minDivergence <= 0 {
		minDivergence = 4
	}
	if limit <= 0 {
		limit = 10
	}
	polls, err := uc.Polls.ListRevealedByDivergence(ctx, strings.TrimSpace(firmID), minDivergence, limit)
	if err != nil {
		return nil, err
	}

	items := make([]AttentionItem, 0, len(polls))
	for _, poll := range polls {
		item := AttentionItem{
			PollID:      poll.PollID,
			DealID:      poll.DealID,
			ICMeetingAt: poll.ICMeetingAt,
		}
		if poll.DivergenceScore != nil {
			item.Divergence = *poll.DivergenceScore
		}
		if poll.AverageScore != nil {
			item.AverageScore = *poll.AverageScore
		}
		if deal, err := uc.Deals.GetDeal(ctx, poll.FirmID, poll.DealID); err == nil {
			item.CompanyName = deal.CompanyName
		}
		items = append(items, item)
	}
	return items, nil
}
