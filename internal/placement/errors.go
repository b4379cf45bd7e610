package placement

import "errors"

// Guard failures surfaced to handlers. All of them are detected before any
// mutation; none leaves partial state behind.
var (
	ErrNotFound              = errors.New("record not found")
	ErrNotOwner              = errors.New("actor does not own this job posting")
	ErrProfileIncomplete     = errors.New("student profile is incomplete")
	ErrAlreadyApplied        = errors.New("application already exists for this job")
	ErrNotEligible           = errors.New("student does not meet the eligibility criteria")
	ErrInvalidStatus         = errors.New("invalid application status")
	ErrNotSelected           = errors.New("only selected candidates can have interviews created")
	ErrInterviewNotScheduled = errors.New("interview has already been completed")
	ErrMissingField          = errors.New("required field missing")
)
