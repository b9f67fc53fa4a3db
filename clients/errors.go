package clients

import (
	"errors"
	"fmt"
)

// ActionFailureReason classifies why a REST action was rejected. It is only used for
// operational logging; users always see the same generic failure text.
type ActionFailureReason string

const (
	ReasonMissingPermissions ActionFailureReason = "missing_permissions"
	ReasonPinLimitReached    ActionFailureReason = "pin_limit_reached"
	ReasonNotFound           ActionFailureReason = "not_found"
	ReasonUnknown            ActionFailureReason = "unknown"
)

// ActionError wraps a failed REST action with its classified reason
type ActionError struct {
	Op     string
	Reason ActionFailureReason
	Err    error
}

func (e *ActionError) Error() string {
	return fmt.Sprintf("%s failed (%s): %v", e.Op, e.Reason, e.Err)
}

func (e *ActionError) Unwrap() error {
	return e.Err
}

// FailureReason extracts the classified reason from err, ReasonUnknown if it carries none
func FailureReason(err error) ActionFailureReason {
	var actionErr *ActionError
	if errors.As(err, &actionErr) {
		return actionErr.Reason
	}
	return ReasonUnknown
}
