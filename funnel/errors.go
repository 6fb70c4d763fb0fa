package funnel

import "errors"

var (
	ErrMissingSession   = errors.New("sessionId is required")
	ErrInvalidSession   = errors.New("sessionId is malformed")
	ErrUnknownEventType = errors.New("unknown eventType")
	ErrMissingStep      = errors.New("step is required")
	ErrMissingProduct   = errors.New("product is required")
	ErrInvalidEmail     = errors.New("email is invalid")
	ErrNoTags           = errors.New("at least one non-empty tag is required")
	ErrEmptyLeadQuery   = errors.New("one of id, email or phone is required")
	ErrMissingOrderID   = errors.New("orderId is required")
	ErrInvalidComment   = errors.New("comment text must have 1 to 1000 characters")

	// ErrNoVisitorKey means none of session token, fingerprint or traffic id
	// was captured, so prior abandonment rows cannot be located.
	ErrNoVisitorKey = errors.New("no identifying visitor key available")
)

var validationErrors = []error{
	ErrMissingSession,
	ErrInvalidSession,
	ErrUnknownEventType,
	ErrMissingStep,
	ErrMissingProduct,
	ErrInvalidEmail,
	ErrNoTags,
	ErrEmptyLeadQuery,
	ErrMissingOrderID,
	ErrInvalidComment,
}

// IsValidation reports errors caused by the caller's input.
func IsValidation(err error) bool {
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
