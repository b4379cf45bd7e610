package placement

import "fmt"

// Status is the closed set of application states. The portal deliberately does
// not accept free-form status strings: everything a recruiter can set goes
// through ParseStatus.
type Status string

const (
	StatusApplied            Status = "Applied"
	StatusShortlisted        Status = "Shortlisted"
	StatusInterviewScheduled Status = "Interview Scheduled"
	StatusSelected           Status = "Selected"
	StatusRejected           Status = "Rejected"
)

var allStatuses = map[Status]struct{}{
	StatusApplied:            {},
	StatusShortlisted:        {},
	StatusInterviewScheduled: {},
	StatusSelected:           {},
	StatusRejected:           {},
}

// ParseStatus validates a recruiter-supplied status value.
func ParseStatus(raw string) (Status, error) {
	s := Status(raw)
	if _, ok := allStatuses[s]; !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, raw)
	}
	return s, nil
}

// String implements fmt.Stringer.
func (s Status) String() string { return string(s) }
