package errors

import "errors"

var (
	ErrInvalidScore      = errors.New("conviction score must be an integer between 1 and 10")
	ErrInvalidPollInput  = errors.New("invalid poll input")
	ErrPollNotFound      = errors.New("poll not found")
	ErrDealNotFound      = errors.New("deal not found")
	ErrVoteNotFound      = errors.New("vote not found")
	ErrPollNotActive     = errors.New("poll is not accepting votes")
	ErrAlreadyRevealed   = errors.New("poll is already revealed")
	ErrThresholdNotMet   = errors.New("reveal threshold not met")
	ErrUnauthorized      = errors.New("actor is not permitted to perform this action")
	ErrNotRevealed       = errors.New("poll results are not revealed yet")
	ErrInsufficientVotes = errors.New("poll has no votes to aggregate")
	ErrVoteConflict      = errors.New("concurrent vote write conflict")
)
