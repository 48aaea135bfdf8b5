package crisis

import (
	"CompanionGuard/pkg/errors"
)

// Lifecycle and validation errors. Compare with errors.Is; returned errors
// are copies carrying the alert id as context.
var (
	ErrInvalidSeverity  = errors.Sentinel(errors.CodeInvalidSeverity, "crisis alert requires elevated or immediate severity")
	ErrInvalidSubject   = errors.Sentinel(errors.CodeInvalidSubject, "crisis alert requires a subject code")
	ErrAlreadyNotified  = errors.Sentinel(errors.CodeAlreadyNotified, "crisis alert already notified")
	ErrNotYetNotified   = errors.Sentinel(errors.CodeNotYetNotified, "crisis alert has not been notified")
	ErrAlreadyViewed    = errors.Sentinel(errors.CodeAlreadyViewed, "crisis alert already viewed")
	ErrNotYetViewed     = errors.Sentinel(errors.CodeNotYetViewed, "crisis alert has not been viewed")
	ErrAlreadyResolved  = errors.Sentinel(errors.CodeAlreadyResolved, "crisis alert already resolved")
	ErrAlertNotFound    = errors.Sentinel(errors.CodeAlertNotFound, "crisis alert not found")
	ErrConcurrentUpdate = errors.Sentinel(errors.CodeConcurrentUpdate, "crisis alert changed concurrently")
)
