package tripgen

import "errors"

var (
	ErrInvalidRequest    = errors.New("invalid trip request")
	ErrTemplate          = errors.New("prompt template error")
	ErrStoreUnavailable  = errors.New("document store unavailable")
	ErrCompletion        = errors.New("completion failed")
	ErrCompletionTimeout = errors.New("completion timed out")
	ErrMalformedPlan     = errors.New("malformed trip plan")
	ErrSchemaMismatch    = errors.New("trip plan schema mismatch")
	ErrCancelled         = errors.New("generation cancelled")
)

// UserMessage turns a failed outcome into the single message shown to the user.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidRequest):
		return "Please check your trip details and try again."
	case errors.Is(err, ErrMalformedPlan), errors.Is(err, ErrSchemaMismatch):
		return "Error processing AI response. Please try again."
	case errors.Is(err, ErrCompletionTimeout):
		return "The trip planner took too long to answer. Please try again."
	case errors.Is(err, ErrCancelled):
		return "Trip generation was cancelled."
	case errors.Is(err, ErrStoreUnavailable):
		return "We could not save your trip. Please try again."
	default:
		return "Error generating trip. Please try again."
	}
}
