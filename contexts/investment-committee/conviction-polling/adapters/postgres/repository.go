package postgresadapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"dealdesk/contexts/investment-committee/conviction-polling/domain/entities"
	domainerrors "dealdesk/contexts/investment-committee/conviction-polling/domain/errors"
	"dealdesk/contexts/investment-committee/conviction-polling/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	outboxStatusPending   = "pending"
	outboxStatusPublished = "published"
)

type Repository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewRepository(db *gorm.DB, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		db:     db,
		logger: logger,
	}
}

func (r *Repository) CreatePoll(ctx context.Context, poll entities.Poll) error {
	row := pollModelFromEntity(poll)
	create := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoNothing: true,
	}).Create(&row)
	if create.Error != nil {
		return r.logError("polling_repo_create_poll_failed", create.Error,
			"poll_id", row.ID,
			"deal_id", row.DealID,
		)
	}
	return nil
}

func (r *Repository) GetPoll(ctx context.Context, firmID string, pollID string) (entities.Poll, error) {
	var row pollModel
	err := r.db.WithContext(ctx).
		Where("id = ?", strings.TrimSpace(pollID)).
		Where("firm_id = ?", strings.TrimSpace(firmID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Poll{}, domainerrors.ErrPollNotFound
		}
		return entities.Poll{}, r.logError("polling_repo_get_poll_failed", err, "poll_id", strings.TrimSpace(pollID))
	}
	return row.toEntity(), nil
}

func (r *Repository) ListPollsByDeal(ctx context.Context, firmID string, dealID string) ([]entities.Poll, error) {
	var rows []pollModel
	if err := r.db.WithContext(ctx).
		Where("firm_id = ?", strings.TrimSpace(firmID)).
		Where("deal_id = ?", strings.TrimSpace(dealID)).
		Order("created_at DESC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("polling_repo_list_polls_by_deal_failed", err,
			"deal_id", strings.TrimSpace(dealID),
		)
	}
	return toPollEntities(rows), nil
}

func (r *Repository) ListRevealedByDivergence(ctx context.Context, firmID string, minDivergence int, limit int) ([]entities.Poll, error) {
	if limit <= 0 {
		limit = 10
	}
	var rows []pollModel
	if err := r.db.WithContext(ctx).
		Where("firm_id = ?", strings.TrimSpace(firmID)).
		Where("is_revealed = ?", true).
		Where("divergence_score >= ?", minDivergence).
		Order("divergence_score DESC, id ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, r.logError("polling_repo_list_revealed_by_divergence_failed", err,
			"firm_id", strings.TrimSpace(firmID),
			"min_divergence", minDivergence,
		)
	}
	return toPollEntities(rows), nil
}

func (r *Repository) CountVotes(ctx context.Context, pollID string) (int, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&voteModel{}).
		Where("poll_id = ?", strings.TrimSpace(pollID)).
		Count(&count).Error; err != nil {
		return 0, r.logError("polling_repo_count_votes_failed", err, "poll_id", strings.TrimSpace(pollID))
	}
	return int(count), nil
}

// RevealPoll flips the poll to revealed and persists the score rollup in one
// transaction. The poll row is locked FOR UPDATE first, so a reveal and a
// concurrent submit serialize on the same row and the threshold count cannot
// go stale between check and flip.
func (r *Repository) RevealPoll(ctx context.Context, firmID string, pollID string, revealedAt time.Time) (ports.RevealOutcome, error) {
	var outcome ports.RevealOutcome
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row pollModel
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", strings.TrimSpace(pollID)).
			Where("firm_id = ?", strings.TrimSpace(firmID)).
			First(&row).
			Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domainerrors.ErrPollNotFound
			}
			return err
		}

		var voteRows []voteModel
		if err := tx.
			Where("poll_id = ?", row.ID).
			Order("submitted_at ASC, id ASC").
			Find(&voteRows).Error; err != nil {
			return err
		}
		votes, err := toVoteEntities(voteRows)
		if err != nil {
			return err
		}

		if row.IsRevealed {
			outcome = ports.RevealOutcome{Poll: row.toEntity(), Votes: votes, AlreadyRevealed: true}
			return nil
		}
		if len(votes) < row.RevealThreshold {
			return fmt.Errorf("%w: %d more votes needed",
				domainerrors.ErrThresholdNotMet, row.RevealThreshold-len(votes))
		}

		average, divergence := entities.Rollup(votes)
		if err := tx.Model(&pollModel{}).
			Where("id = ?", row.ID).
			Updates(map[string]any{
				"is_revealed":      true,
				"is_active":        false,
				"average_score":    average,
				"divergence_score": divergence,
				"updated_at":       revealedAt.UTC(),
			}).Error; err != nil {
			return err
		}

		row.IsRevealed = true
		row.IsActive = false
		row.AverageScore = &average
		row.DivergenceScore = &divergence
		row.UpdatedAt = revealedAt.UTC()
		outcome = ports.RevealOutcome{Poll: row.toEntity(), Votes: votes}
		return nil
	})
	if err != nil {
		if errors.Is(err, domainerrors.ErrPollNotFound) || errors.Is(err, domainerrors.ErrThresholdNotMet) {
			return ports.RevealOutcome{}, err
		}
		return ports.RevealOutcome{}, r.logError("polling_repo_reveal_poll_failed", err,
			"poll_id", strings.TrimSpace(pollID),
		)
	}
	return outcome, nil
}

// SubmitVote inserts or updates the voter's single ballot for the poll inside
// one transaction. The poll row lock orders submits against a concurrent
// reveal; the unique (poll_id, user_id) index backs the upsert, and a lost
// insert race is recovered as an update inside the same transaction rather
// than surfaced to the caller.
func (r *Repository) SubmitVote(ctx context.Context, firmID string, vote entities.Vote) (ports.SubmitOutcome, error) {
	var outcome ports.SubmitOutcome
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var pollRow pollModel
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", strings.TrimSpace(vote.PollID)).
			Where("firm_id = ?", strings.TrimSpace(firmID)).
			First(&pollRow).
			Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domainerrors.ErrPollNotFound
			}
			return err
		}
		if !pollRow.toEntity().AcceptsVotes(vote.UpdatedAt) {
			return domainerrors.ErrPollNotActive
		}

		row, err := voteModelFromEntity(vote)
		if err != nil {
			return err
		}

		var existing voteModel
		lookup := tx.
			Where("poll_id = ?", row.PollID).
			Where("user_id = ?", row.UserID).
			First(&existing).
			Error
		wasUpdate := lookup == nil
		if lookup != nil && !errors.Is(lookup, gorm.ErrRecordNotFound) {
			return lookup
		}
		if wasUpdate {
			// Identity and first-submission timestamp survive the update.
			row.ID = existing.ID
			row.SubmittedAt = existing.SubmittedAt
		}

		assignments := map[string]any{
			"conviction_score": row.ConvictionScore,
			"red_flags":        row.RedFlags,
			"red_flag_notes":   row.RedFlagNotes,
			"green_flags":      row.GreenFlags,
			"green_flag_notes": row.GreenFlagNotes,
			"private_notes":    row.PrivateNotes,
			"updated_at":       row.UpdatedAt,
		}
		create := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "poll_id"}, {Name: "user_id"}},
			DoUpdates: clause.Assignments(assignments),
		}).Create(&row)
		if create.Error != nil {
			if !isUniqueViolation(create.Error) {
				return create.Error
			}
			// Lost the insert race on (poll_id, user_id); the winner's row is
			// updated in place and keeps its id and submitted_at.
			if err := tx.Model(&voteModel{}).
				Where("poll_id = ?", row.PollID).
				Where("user_id = ?", row.UserID).
				Updates(assignments).Error; err != nil {
				return err
			}
			if err := tx.
				Where("poll_id = ?", row.PollID).
				Where("user_id = ?", row.UserID).
				First(&row).Error; err != nil {
				return err
			}
			wasUpdate = true
		}

		var count int64
		if err := tx.Model(&voteModel{}).
			Where("poll_id = ?", row.PollID).
			Count(&count).Error; err != nil {
			return err
		}

		saved, err := row.toEntity()
		if err != nil {
			return err
		}
		outcome = ports.SubmitOutcome{Vote: saved, VoteCount: int(count), WasUpdate: wasUpdate}
		return nil
	})
	if err != nil {
		if errors.Is(err, domainerrors.ErrPollNotFound) ||
			errors.Is(err, domainerrors.ErrPollNotActive) {
			return ports.SubmitOutcome{}, err
		}
		return ports.SubmitOutcome{}, r.logError("polling_repo_submit_vote_failed", err,
			"poll_id", strings.TrimSpace(vote.PollID),
			"user_id", strings.TrimSpace(vote.UserID),
		)
	}
	return outcome, nil
}

func (r *Repository) GetVoteByVoter(ctx context.Context, pollID string, userID string) (entities.Vote, bool, error) {
	var row voteModel
	err := r.db.WithContext(ctx).
		Where("poll_id = ?", strings.TrimSpace(pollID)).
		Where("user_id = ?", strings.TrimSpace(userID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Vote{}, false, nil
		}
		return entities.Vote{}, false, r.logError("polling_repo_get_vote_by_voter_failed", err,
			"poll_id", strings.TrimSpace(pollID),
			"user_id", strings.TrimSpace(userID),
		)
	}
	vote, err := row.toEntity()
	if err != nil {
		return entities.Vote{}, false, r.logError("polling_repo_decode_vote_failed", err, "vote_id", row.ID)
	}
	return vote, true, nil
}

func (r *Repository) ListVotesByPoll(ctx context.Context, pollID string) ([]entities.Vote, error) {
	var rows []voteModel
	if err := r.db.WithContext(ctx).
		Where("poll_id = ?", strings.TrimSpace(pollID)).
		Order("submitted_at ASC, id ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("polling_repo_list_votes_by_poll_failed", err,
			"poll_id", strings.TrimSpace(pollID),
		)
	}
	votes, err := toVoteEntities(rows)
	if err != nil {
		return nil, r.logError("polling_repo_decode_votes_failed", err, "poll_id", strings.TrimSpace(pollID))
	}
	return votes, nil
}

func (r *Repository) GetDeal(ctx context.Context, firmID string, dealID string) (ports.DealProjection, error) {
	var row dealProjectionModel
	err := r.db.WithContext(ctx).
		Where("deal_id = ?", strings.TrimSpace(dealID)).
		Where("firm_id = ?", strings.TrimSpace(firmID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ports.DealProjection{}, domainerrors.ErrDealNotFound
		}
		return ports.DealProjection{}, r.logError("polling_repo_get_deal_failed", err,
			"deal_id", strings.TrimSpace(dealID),
		)
	}
	return ports.DealProjection{
		DealID:        row.DealID,
		FirmID:        row.FirmID,
		CompanyName:   row.CompanyName,
		OneLiner:      row.OneLiner,
		LeadPartnerID: row.LeadPartnerID,
	}, nil
}

func (r *Repository) GetMember(ctx context.Context, firmID string, userID string) (ports.MemberProjection, bool, error) {
	var row memberProjectionModel
	err := r.db.WithContext(ctx).
		Where("user_id = ?", strings.TrimSpace(userID)).
		Where("firm_id = ?", strings.TrimSpace(firmID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ports.MemberProjection{}, false, nil
		}
		return ports.MemberProjection{}, false, r.logError("polling_repo_get_member_failed", err,
			"user_id", strings.TrimSpace(userID),
		)
	}
	return ports.MemberProjection{
		UserID:   row.UserID,
		FirmID:   row.FirmID,
		FullName: row.FullName,
		Role:     entities.Role(row.Role),
	}, true, nil
}

func (r *Repository) AppendOutbox(ctx context.Context, envelope ports.EventEnvelope) error {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return r.logError("polling_repo_append_outbox_marshal_failed", err,
			"event_id", strings.TrimSpace(envelope.EventID),
			"event_type", strings.TrimSpace(envelope.EventType),
		)
	}
	row := outboxModel{
		OutboxID:     strings.TrimSpace(envelope.EventID),
		EventType:    strings.TrimSpace(envelope.EventType),
		PartitionKey: strings.TrimSpace(envelope.PartitionKey),
		Payload:      payload,
		Status:       outboxStatusPending,
		CreatedAt:    envelope.OccurredAt.UTC(),
	}
	if row.OutboxID == "" {
		row.OutboxID = uuid.NewString()
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	create := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "outbox_id"}},
		DoNothing: true,
	}).Create(&row)
	if create.Error != nil {
		return r.logError("polling_repo_append_outbox_insert_failed", create.Error,
			"outbox_id", row.OutboxID,
		)
	}
	return nil
}

func (r *Repository) ListPendingOutbox(ctx context.Context, limit int) ([]ports.OutboxMessage, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []outboxModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", outboxStatusPending).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, r.logError("polling_repo_list_pending_outbox_failed", err, "limit", limit)
	}
	items := make([]ports.OutboxMessage, 0, len(rows))
	for _, row := range rows {
		items = append(items, ports.OutboxMessage{
			OutboxID:     row.OutboxID,
			EventType:    row.EventType,
			PartitionKey: row.PartitionKey,
			Payload:      append([]byte(nil), row.Payload...),
			CreatedAt:    row.CreatedAt.UTC(),
		})
	}
	return items, nil
}

func (r *Repository) MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&outboxModel{}).
		Where("outbox_id = ?", strings.TrimSpace(outboxID)).
		Updates(map[string]any{
			"status":       outboxStatusPublished,
			"published_at": publishedAt.UTC(),
		})
	if result.Error != nil {
		return r.logError("polling_repo_mark_outbox_published_failed", result.Error,
			"outbox_id", strings.TrimSpace(outboxID),
		)
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrVoteConflict
	}
	return nil
}

func (r *Repository) logError(event string, err error, attrs ...any) error {
	fields := make([]any, 0, len(attrs)+8)
	fields = append(fields,
		"event", event,
		"module", "investment-committee/conviction-polling",
		"layer", "adapter",
		"error", err.Error(),
	)
	fields = append(fields, attrs...)
	r.logger.Error("polling repository operation failed", fields...)
	return err
}

type pollModel struct {
	ID              string     `gorm:"column:id;primaryKey"`
	DealID          string     `gorm:"column:deal_id"`
	FirmID          string     `gorm:"column:firm_id"`
	Title           string     `gorm:"column:title"`
	Description     string     `gorm:"column:description"`
	IsActive        bool       `gorm:"column:is_active"`
	IsRevealed      bool       `gorm:"column:is_revealed"`
	RevealThreshold int        `gorm:"column:reveal_threshold"`
	OpensAt         time.Time  `gorm:"column:opens_at"`
	ClosesAt        *time.Time `gorm:"column:closes_at"`
	ICMeetingAt     *time.Time `gorm:"column:ic_meeting_at"`
	AverageScore    *float64   `gorm:"column:average_score"`
	DivergenceScore *int       `gorm:"column:divergence_score"`
	CreatedAt       time.Time  `gorm:"column:created_at"`
	UpdatedAt       time.Time  `gorm:"column:updated_at"`
}

func (pollModel) TableName() string {
	return "conviction_polls"
}

func pollModelFromEntity(poll entities.Poll) pollModel {
	row := pollModel{
		ID:              strings.TrimSpace(poll.PollID),
		DealID:          strings.TrimSpace(poll.DealID),
		FirmID:          strings.TrimSpace(poll.FirmID),
		Title:           strings.TrimSpace(poll.Title),
		Description:     strings.TrimSpace(poll.Description),
		IsActive:        poll.IsActive,
		IsRevealed:      poll.IsRevealed,
		RevealThreshold: poll.RevealThreshold,
		OpensAt:         poll.OpensAt.UTC(),
		ClosesAt:        normalizeOptionalTime(poll.ClosesAt),
		ICMeetingAt:     normalizeOptionalTime(poll.ICMeetingAt),
		AverageScore:    poll.AverageScore,
		DivergenceScore: poll.DivergenceScore,
		CreatedAt:       poll.CreatedAt.UTC(),
		UpdatedAt:       poll.UpdatedAt.UTC(),
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	if row.UpdatedAt.IsZero() {
		row.UpdatedAt = row.CreatedAt
	}
	return row
}

func (m pollModel) toEntity() entities.Poll {
	return entities.Poll{
		PollID:          m.ID,
		DealID:          m.DealID,
		FirmID:          m.FirmID,
		Title:           m.Title,
		Description:     m.Description,
		IsActive:        m.IsActive,
		IsRevealed:      m.IsRevealed,
		RevealThreshold: m.RevealThreshold,
		OpensAt:         m.OpensAt.UTC(),
		ClosesAt:        normalizeOptionalTime(m.ClosesAt),
		ICMeetingAt:     normalizeOptionalTime(m.ICMeetingAt),
		AverageScore:    m.AverageScore,
		DivergenceScore: m.DivergenceScore,
		CreatedAt:       m.CreatedAt.UTC(),
		UpdatedAt:       m.UpdatedAt.UTC(),
	}
}

type voteModel struct {
	ID              string    `gorm:"column:id;primaryKey"`
	PollID          string    `gorm:"column:poll_id;uniqueIndex:idx_poll_votes_voter"`
	UserID          string    `gorm:"column:user_id;uniqueIndex:idx_poll_votes_voter"`
	ConvictionScore int       `gorm:"column:conviction_score"`
	RedFlags        []byte    `gorm:"column:red_flags;type:jsonb"`
	RedFlagNotes    string    `gorm:"column:red_flag_notes"`
	GreenFlags      []byte    `gorm:"column:green_flags;type:jsonb"`
	GreenFlagNotes  string    `gorm:"column:green_flag_notes"`
	PrivateNotes    string    `gorm:"column:private_notes"`
	SubmittedAt     time.Time `gorm:"column:submitted_at"`
	UpdatedAt       time.Time `gorm:"column:updated_at"`
}

func (voteModel) TableName() string {
	return "poll_votes"
}

func voteModelFromEntity(vote entities.Vote) (voteModel, error) {
	redFlags, err := marshalFlags(vote.RedFlags)
	if err != nil {
		return voteModel{}, err
	}
	greenFlags, err := marshalFlags(vote.GreenFlags)
	if err != nil {
		return voteModel{}, err
	}
	row := voteModel{
		ID:              strings.TrimSpace(vote.VoteID),
		PollID:          strings.TrimSpace(vote.PollID),
		UserID:          strings.TrimSpace(vote.UserID),
		ConvictionScore: vote.ConvictionScore,
		RedFlags:        redFlags,
		RedFlagNotes:    strings.TrimSpace(vote.RedFlagNotes),
		GreenFlags:      greenFlags,
		GreenFlagNotes:  strings.TrimSpace(vote.GreenFlagNotes),
		PrivateNotes:    vote.PrivateNotes,
		SubmittedAt:     vote.SubmittedAt.UTC(),
		UpdatedAt:       vote.UpdatedAt.UTC(),
	}
	if row.SubmittedAt.IsZero() {
		row.SubmittedAt = time.Now().UTC()
	}
	if row.UpdatedAt.IsZero() {
		row.UpdatedAt = row.SubmittedAt
	}
	return row, nil
}

func (m voteModel) toEntity() (entities.Vote, error) {
	redFlags, err := unmarshalFlags(m.RedFlags)
	if err != nil {
		return entities.Vote{}, err
	}
	greenFlags, err := unmarshalFlags(m.GreenFlags)
	if err != nil {
		return entities.Vote{}, err
	}
	return entities.Vote{
		VoteID:          m.ID,
		PollID:          m.PollID,
		UserID:          m.UserID,
		ConvictionScore: m.ConvictionScore,
		RedFlags:        redFlags,
		RedFlagNotes:    m.RedFlagNotes,
		GreenFlags:      greenFlags,
		GreenFlagNotes:  m.GreenFlagNotes,
		PrivateNotes:    m.PrivateNotes,
		SubmittedAt:     m.SubmittedAt.UTC(),
		UpdatedAt:       m.UpdatedAt.UTC(),
	}, nil
}

type dealProjectionModel struct {
	DealID        string `gorm:"column:deal_id;primaryKey"`
	FirmID        string `gorm:"column:firm_id"`
	CompanyName   string `gorm:"column:company_name"`
	OneLiner      string `gorm:"column:one_liner"`
	LeadPartnerID string `gorm:"column:lead_partner_id"`
}

func (dealProjectionModel) TableName() string {
	return "deals"
}

type memberProjectionModel struct {
	UserID   string `gorm:"column:user_id;primaryKey"`
	FirmID   string `gorm:"column:firm_id"`
	FullName string `gorm:"column:full_name"`
	Role     string `gorm:"column:role"`
}

func (memberProjectionModel) TableName() string {
	return "users"
}

type outboxModel struct {
	OutboxID     string     `gorm:"column:outbox_id;primaryKey"`
	EventType    string     `gorm:"column:event_type"`
	PartitionKey string     `gorm:"column:partition_key"`
	Payload      []byte     `gorm:"column:payload"`
	Status       string     `gorm:"column:status"`
	CreatedAt    time.Time  `gorm:"column:created_at"`
	PublishedAt  *time.Time `gorm:"column:published_at"`
}

func (outboxModel) TableName() string {
	return "poll_outbox"
}

func toPollEntities(rows []pollModel) []entities.Poll {
	items := make([]entities.Poll, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items
}

func toVoteEntities(rows []voteModel) ([]entities.Vote, error) {
	items := make([]entities.Vote, 0, len(rows))
	for _, row := range rows {
		vote, err := row.toEntity()
		if err != nil {
			return nil, err
		}
		items = append(items, vote)
	}
	return items, nil
}

func marshalFlags(flags []string) ([]byte, error) {
	if flags == nil {
		flags = []string{}
	}
	return json.Marshal(flags)
}

func unmarshalFlags(raw []byte) ([]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var flags []string
	if err := json.Unmarshal(raw, &flags); err != nil {
		return nil, err
	}
	if len(flags) == 0 {
		return nil, nil
	}
	return flags, nil
}

func normalizeOptionalTime(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	timestamp := value.UTC()
	return &timestamp
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

var _ ports.PollRepository = (*Repository)(nil)
var _ ports.VoteRepository = (*Repository)(nil)
var _ ports.DealDirectory = (*Repository)(nil)
var _ ports.MemberDirectory = (*Repository)(nil)
var _ ports.OutboxWriter = (*Repository)(nil)
var _ ports.OutboxRepository = (*Repository)(nil)
