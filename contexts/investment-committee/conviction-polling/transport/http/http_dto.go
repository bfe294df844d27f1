package httptransport

import "time"

type CreatePollRequest struct {
	DealID          string     `json:"deal_id"`
	Title           string     `json:"title"`
	Description     string     `json:"description,omitempty"`
	RevealThreshold int        `json:"reveal_threshold,omitempty"`
	ClosesAt        *time.Time `json:"closes_at,omitempty"`
	ICMeetingAt     *time.Time `json:"ic_meeting_at,omitempty"`
}

type PollResponse struct {
	PollID          string     `json:"poll_id"`
	DealID          string     `json:"deal_id"`
	CompanyName     string     `json:"company_name,omitempty"`
	OneLiner        string     `json:"one_liner,omitempty"`
	Title           string     `json:"title"`
	Description     string     `json:"description,omitempty"`
	IsActive        bool       `json:"is_active"`
	IsRevealed      bool       `json:"is_revealed"`
	RevealThreshold int        `json:"reveal_threshold"`
	VoteCount       int        `json:"vote_count"`
	OpensAt         time.Time  `json:"opens_at"`
	ClosesAt        *time.Time `json:"closes_at,omitempty"`
	ICMeetingAt     *time.Time `json:"ic_meeting_at,omitempty"`
	AverageScore    *float64   `json:"average_score,omitempty"`
	DivergenceScore *int       `json:"divergence_score,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

type PollListResponse struct {
	Items []PollResponse `json:"items"`
}

type SubmitVoteRequest struct {
	ConvictionScore int      `json:"conviction_score"`
	RedFlags        []string `json:"red_flags,omitempty"`
	RedFlagNotes    string   `json:"red_flag_notes,omitempty"`
	GreenFlags      []string `json:"green_flags,omitempty"`
	GreenFlagNotes  string   `json:"green_flag_notes,omitempty"`
	PrivateNotes    string   `json:"private_notes,omitempty"`
}

type SubmitVoteResponse struct {
	VoteID          string `json:"vote_id"`
	PollID          string `json:"poll_id"`
	ConvictionScore int    `json:"conviction_score"`
	VoteCount       int    `json:"vote_count"`
	WasUpdate       bool   `json:"was_update"`
}

type VoteViewResponse struct {
	VoteID          string    `json:"vote_id"`
	PollID          string    `json:"poll_id"`
	ConvictionScore int       `json:"conviction_score"`
	RedFlags        []string  `json:"red_flags,omitempty"`
	RedFlagNotes    string    `json:"red_flag_notes,omitempty"`
	GreenFlags      []string  `json:"green_flags,omitempty"`
	GreenFlagNotes  string    `json:"green_flag_notes,omitempty"`
	PrivateNotes    string    `json:"private_notes,omitempty"`
	VoterID         string    `json:"voter_id,omitempty"`
	VoterName       string    `json:"voter_name,omitempty"`
	Own             bool      `json:"own"`
	SubmittedAt     time.Time `json:"submitted_at"`
}

type VoteListResponse struct {
	Items []VoteViewResponse `json:"items"`
}

type RevealPollResponse struct {
	PollID          string   `json:"poll_id"`
	Revealed        bool     `json:"revealed"`
	AlreadyRevealed bool     `json:"already_revealed"`
	VoteCount       int      `json:"vote_count"`
	AverageScore    *float64 `json:"average_score,omitempty"`
	DivergenceScore *int     `json:"divergence_score,omitempty"`
}

type FlagCountItem struct {
	Flag  string `json:"flag"`
	Count int    `json:"count"`
}

type DivergenceSummaryResponse struct {
	PollID          string          `json:"poll_id"`
	DealID          string          `json:"deal_id"`
	CompanyName     string          `json:"company_name,omitempty"`
	TotalVotes      int             `json:"total_votes"`
	AverageScore    float64         `json:"average_score"`
	MinScore        int             `json:"min_score"`
	MaxScore        int             `json:"max_score"`
	Divergence      int             `json:"divergence"`
	StdDeviation    float64         `json:"std_deviation"`
	Distribution    map[int]int     `json:"score_distribution"`
	TopRedFlags     []FlagCountItem `json:"top_red_flags,omitempty"`
	TopGreenFlags   []FlagCountItem `json:"top_green_flags,omitempty"`
	HasConsensus    bool            `json:"has_consensus"`
	NeedsDiscussion bool            `json:"needs_discussion"`
}

type AttentionItemResponse struct {
	PollID       string     `json:"poll_id"`
	DealID       string     `json:"deal_id"`
	CompanyName  string     `json:"company_name,omitempty"`
	Divergence   int        `json:"divergence"`
	AverageScore float64    `json:"average_score"`
	ICMeetingAt  *time.Time `json:"ic_meeting_at,omitempty"`
}

type AttentionListResponse struct {
	Items []AttentionItemResponse `json:"items"`
}

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
