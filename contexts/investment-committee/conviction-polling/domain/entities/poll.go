package entities

import "time"

const (
	// MinConvictionScore and MaxConvictionScore bound the 1-10 conviction scale.
	MinConvictionScore = 1
	MaxConvictionScore = 10

	// DefaultRevealThreshold is the minimum distinct-voter count applied when a
	// poll is created without one.
	DefaultRevealThreshold = 3
)

// Poll is one blind conviction-polling session tied to a single deal.
// is_revealed is one-way: once true it never reverts, and votes become
// immutable from that instant.
type Poll struct {
	PollID          string
	DealID          string
	FirmID          string
	Title           string
	Description     string
	IsActive        bool
	IsRevealed      bool
	RevealThreshold int
	OpensAt         time.Time
	ClosesAt        *time.Time
	ICMeetingAt     *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time

	// Rollup persisted inside the reveal transaction; nil while concealed.
	AverageScore    *float64
	DivergenceScore *int
}

// AcceptsVotes reports whether the poll can take a submit-or-update at the
// given instant. Reveal dominates: a revealed poll never accepts votes.
func (p Poll) AcceptsVotes(now time.Time) bool {
	if p.IsRevealed || !p.IsActive {
		return false
	}
	if p.ClosesAt != nil && now.After(p.ClosesAt.UTC()) {
		return false
	}
	return true
}

// Vote is one partner's concealed assessment of a poll. At most one vote
// exists per (poll, voter); resubmission overwrites in place.
type Vote struct {
	VoteID          string
	PollID          string
	UserID          string
	ConvictionScore int
	RedFlags        []string
	RedFlagNotes    string
	GreenFlags      []string
	GreenFlagNotes  string
	PrivateNotes    string
	SubmittedAt     time.Time
	UpdatedAt       time.Time
}

// ValidScore reports whether a conviction score is an integer in [1,10].
func ValidScore(score int) bool {
	return score >= MinConvictionScore && score <= MaxConvictionScore
}

// Rollup computes the score rollup persisted on the poll row at reveal.
// Both values are order-independent over the vote set.
func Rollup(votes []Vote) (average float64, divergence int) {
	if len(votes) == 0 {
		return 0, 0
	}
	sum := 0
	minScore := votes[0].ConvictionScore
	maxScore := votes[0].ConvictionScore
	for _, vote := range votes {
		sum += vote.ConvictionScore
		if vote.ConvictionScore < minScore {
			minScore = vote.ConvictionScore
		}
		if vote.ConvictionScore > maxScore {
			maxScore = vote.ConvictionScore
		}
	}
	return float64(sum) / float64(len(votes)), maxScore - minScore
}

// FlagCount is one ranked entry of the aggregated flag frequency table.
type FlagCount struct {
	Flag  string
	Count int
}

// DivergenceSummary is the derived post-reveal statistics view. It is
// recomputable from the vote set and must be identical for any insertion
// order of the same votes.
type DivergenceSummary struct {
	PollID       string
	DealID       string
	CompanyName  string
	TotalVotes   int
	AverageScore float64
	MinScore     int
	MaxScore     int
	// Divergence is max-min, the core disagreement signal (0-9).
	Divergence   int
	StdDeviation float64
	// Distribution always carries all ten buckets, zero counts included.
	Distribution    map[int]int
	TopRedFlags     []FlagCount
	TopGreenFlags   []FlagCount
	HasConsensus    bool
	NeedsDiscussion bool
}

// Role values mirror the firm membership model owned by the identity
// collaborator; this context only reads them for capability checks.
type Role string

const (
	RoleAdmin     Role = "admin"
	RolePartner   Role = "partner"
	RolePrincipal Role = "principal"
	RoleAssociate Role = "associate"
	RoleAnalyst   Role = "analyst"
)
