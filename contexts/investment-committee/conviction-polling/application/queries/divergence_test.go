package queries

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dealdesk/contexts/investment-committee/conviction-polling/domain/entities"
	domainerrors "dealdesk/contexts/investment-committee/conviction-polling/domain/errors"
)

func testVote(voteID string, userID string, score int, submittedAt time.Time) entities.Vote {
	return entities.Vote{
		VoteID:          voteID,
		PollID:          "poll-1",
		UserID:          userID,
		ConvictionScore: score,
		SubmittedAt:     submittedAt,
		UpdatedAt:       submittedAt,
	}
}

func TestComputeSummaryThresholdScenario(t *testing.T) {
	base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	votes := []entities.Vote{
		testVote("v1", "alice", 9, base),
		testVote("v2", "bob", 8, base.Add(time.Minute)),
		testVote("v3", "carol", 7, base.Add(2*time.Minute)),
	}
	votes[0].RedFlags = []string{"Competition"}
	votes[1].RedFlags = []string{"Competition", "Burn rate"}
	votes[2].GreenFlags = []string{"Team"}

	summary, err := ComputeSummary(votes, DefaultDivergencePolicy())
	require.NoError(t, err)

	assert.Equal(t, 3, summary.TotalVotes)
	assert.InDelta(t, 8.0, summary.AverageScore, 1e-9)
	assert.Equal(t, 7, summary.MinScore)
	assert.Equal(t, 9, summary.MaxScore)
	assert.Equal(t, 2, summary.Divergence)
	assert.True(t, summary.HasConsensus)
	assert.False(t, summary.NeedsDiscussion)

	require.Len(t, summary.TopRedFlags, 2)
	assert.Equal(t, entities.FlagCount{Flag: "Competition", Count: 2}, summary.TopRedFlags[0])
	assert.Equal(t, entities.FlagCount{Flag: "Burn rate", Count: 1}, summary.TopRedFlags[1])
	require.Len(t, summary.TopGreenFlags, 1)
	assert.Equal(t, entities.FlagCount{Flag: "Team", Count: 1}, summary.TopGreenFlags[0])
}

func TestComputeSummaryOrderIndependent(t *testing.T) {
	base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	votes := []entities.Vote{
		testVote("v1", "alice", 3, base),
		testVote("v2", "bob", 10, base.Add(time.Second)),
		testVote("v3", "carol", 6, base.Add(2*time.Second)),
		testVote("v4", "dave", 6, base.Add(3*time.Second)),
		testVote("v5", "erin", 1, base.Add(4*time.Second)),
	}
	votes[0].RedFlags = []string{"Churn"}
	votes[2].RedFlags = []string{"Margins"}
	votes[4].RedFlags = []string{"Churn", "Margins"}

	expected, err := ComputeSummary(votes, DefaultDivergencePolicy())
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 20; i++ {
		shuffled := make([]entities.Vote, len(votes))
		copy(shuffled, votes)
		rng.Shuffle(len(shuffled), func(a, b int) {
			shuffled[a], shuffled[b] = shuffled[b], shuffled[a]
		})
		got, err := ComputeSummary(shuffled, DefaultDivergencePolicy())
		require.NoError(t, err)
		assert.Equal(t, expected, got)
	}
}

func TestComputeSummaryPopulationStdDeviation(t *testing.T) {
	base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	scores := []int{2, 4, 4, 4, 5, 5, 7, 9}
	votes := make([]entities.Vote, 0, len(scores))
	for i, score := range scores {
		votes = append(votes, testVote(
			"v"+string(rune('a'+i)),
			"user-"+string(rune('a'+i)),
			score,
			base.Add(time.Duration(i)*time.Second),
		))
	}

	summary, err := ComputeSummary(votes, DefaultDivergencePolicy())
	require.NoError(t, err)

	// Divides by N, not N-1.
	assert.InDelta(t, 5.0, summary.AverageScore, 1e-9)
	assert.InDelta(t, 2.0, summary.StdDeviation, 1e-9)
}

func TestComputeSummaryDistributionCoversFullScale(t *testing.T) {
	base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	votes := []entities.Vote{
		testVote("v1", "alice", 5, base),
		testVote("v2", "bob", 5, base.Add(time.Second)),
		testVote("v3", "carol", 10, base.Add(2*time.Second)),
	}

	summary, err := ComputeSummary(votes, DefaultDivergencePolicy())
	require.NoError(t, err)

	require.Len(t, summary.Distribution, 10)
	for score := entities.MinConvictionScore; score <= entities.MaxConvictionScore; score++ {
		_, ok := summary.Distribution[score]
		assert.True(t, ok, "bucket %d missing", score)
	}
	assert.Equal(t, 2, summary.Distribution[5])
	assert.Equal(t, 1, summary.Distribution[10])
	assert.Equal(t, 0, summary.Distribution[1])
}

func TestComputeSummaryNeedsDiscussion(t *testing.T) {
	base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	votes := []entities.Vote{
		testVote("v1", "alice", 2, base),
		testVote("v2", "bob", 9, base.Add(time.Second)),
		testVote("v3", "carol", 5, base.Add(2*time.Second)),
	}

	summary, err := ComputeSummary(votes, DefaultDivergencePolicy())
	require.NoError(t, err)

	assert.Equal(t, 7, summary.Divergence)
	assert.False(t, summary.HasConsensus)
	assert.True(t, summary.NeedsDiscussion)
}

func TestComputeSummaryFlagTieBreakFollowsSubmissionOrder(t *testing.T) {
	base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	first := testVote("v1", "alice", 6, base)
	first.RedFlags = []string{"Churn"}
	second := testVote("v2", "bob", 7, base.Add(time.Second))
	second.RedFlags = []string{"Margins"}
	third := testVote("v3", "carol", 8, base.Add(2*time.Second))
	third.RedFlags = []string{"Margins", "Churn"}

	// Equal counts: the flag first mentioned in canonical vote order wins.
	summary, err := ComputeSummary([]entities.Vote{third, second, first}, DefaultDivergencePolicy())
	require.NoError(t, err)

	require.Len(t, summary.TopRedFlags, 2)
	assert.Equal(t, "Churn", summary.TopRedFlags[0].Flag)
	assert.Equal(t, "Margins", summary.TopRedFlags[1].Flag)
}

func TestComputeSummaryFlagLimit(t *testing.T) {
	base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	vote := testVote("v1", "alice", 6, base)
	vote.RedFlags = []string{"a", "b", "c", "d", "e", "f", "g"}
	other := testVote("v2", "bob", 6, base.Add(time.Second))

	summary, err := ComputeSummary([]entities.Vote{vote, other}, DefaultDivergencePolicy())
	require.NoError(t, err)

	assert.Len(t, summary.TopRedFlags, 5)
}

func TestComputeSummaryEmptyVotes(t *testing.T) {
	_, err := ComputeSummary(nil, DefaultDivergencePolicy())
	assert.ErrorIs(t, err, domainerrors.ErrInsufficientVotes)
}
