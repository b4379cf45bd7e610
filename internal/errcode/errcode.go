package errcode

// Error code convention:
// - 0: no error
// - 4xxx: recoverable business errors (the request completes with a warning)
// - 5xxx: system errors (processing must stop)
const (
	OK                = 0
	ResumeMissing     = 4004
	TextExtractFailed = 4005
	SummaryDegraded   = 4006
	SystemError       = 5000
)
