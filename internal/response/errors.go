package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// Authentication
	ErrInvalidCredentials ErrCode = "INVALID_CREDENTIALS"
	ErrSessionActive      ErrCode = "SESSION_ALREADY_ACTIVE"
	ErrSessionInvalidated ErrCode = "SESSION_INVALIDATED"
	ErrTokenRequired      ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid       ErrCode = "TOKEN_INVALID"

	// Validation
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// Resources
	ErrNotFound ErrCode = "NOT_FOUND"

	// Exam engine
	ErrNotAssigned       ErrCode = "NOT_ASSIGNED"
	ErrTestUnavailable   ErrCode = "TEST_UNAVAILABLE"
	ErrAlreadyCompleted  ErrCode = "ALREADY_COMPLETED"
	ErrAlreadyInProgress ErrCode = "ALREADY_IN_PROGRESS"
	ErrNoQuestions       ErrCode = "NO_QUESTIONS"
	ErrSessionExpired    ErrCode = "SESSION_EXPIRED"
	ErrInvalidPosition   ErrCode = "INVALID_POSITION"
	ErrUnknownQuestion   ErrCode = "UNKNOWN_QUESTION"
	ErrInvalidAnswer     ErrCode = "INVALID_ANSWER"
	ErrDecryptionFailed  ErrCode = "DECRYPTION_FAILED"

	// Rate limiting
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// Server
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	case ErrInvalidCredentials:
		return "Invalid username or password."
	case ErrSessionActive:
		return "You are already logged in on another device."
	case ErrSessionInvalidated:
		return "Your session has ended. Please log in again."
	case ErrTokenRequired:
		return "An authentication token is required."
	case ErrTokenInvalid:
		return "The authentication token is invalid or expired."

	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidID:
		return "Invalid ID format."
	case ErrInvalidPayload:
		return "Invalid request payload."

	case ErrNotFound:
		return "Resource not found."

	case ErrNotAssigned:
		return "This test is not assigned to you."
	case ErrTestUnavailable:
		return "This test is currently not available."
	case ErrAlreadyCompleted:
		return "You have already completed this test."
	case ErrAlreadyInProgress:
		return "An attempt for this test is already in progress."
	case ErrNoQuestions:
		return "This test has no questions."
	case ErrSessionExpired:
		return "Your exam session has expired."
	case ErrInvalidPosition:
		return "The requested question position is out of range."
	case ErrUnknownQuestion:
		return "The question does not belong to your exam session."
	case ErrInvalidAnswer:
		return "The selected answer is not a valid option."
	case ErrDecryptionFailed:
		return "The exam content could not be read. Please contact a proctor."

	case ErrRateLimitExceeded:
		return "Too many requests. Please try again later."

	case ErrInternal:
		return "An internal server error occurred."
	default:
		return "An unexpected error occurred."
	}
}
