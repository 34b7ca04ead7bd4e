package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrInvalidCredentials ErrCode = "INVALID_CREDENTIALS"
	ErrEmailTaken         ErrCode = "EMAIL_TAKEN"
	ErrRollRequired       ErrCode = "ROLL_REQUIRED"
	ErrSessionInvalidated ErrCode = "SESSION_INVALIDATED"
	ErrTokenRequired      ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid       ErrCode = "TOKEN_INVALID"

	// ─── Authorization ─────────────────────────────────────────────────
	ErrForbidden         ErrCode = "FORBIDDEN"
	ErrTeacherAccessOnly ErrCode = "TEACHER_ACCESS_ONLY"
	ErrStudentAccessOnly ErrCode = "STUDENT_ACCESS_ONLY"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound ErrCode = "NOT_FOUND"
	ErrConflict ErrCode = "CONFLICT"

	// ─── Room / quiz specific ──────────────────────────────────────────
	ErrRoomCodeTaken      ErrCode = "ROOM_CODE_TAKEN"
	ErrRoomClosed         ErrCode = "ROOM_CLOSED"
	ErrNotRoomMember      ErrCode = "NOT_ROOM_MEMBER"
	ErrQuizNotAssigned    ErrCode = "QUIZ_NOT_ASSIGNED"
	ErrQuizNotStarted     ErrCode = "QUIZ_NOT_STARTED"
	ErrQuizAlreadyStarted ErrCode = "QUIZ_ALREADY_STARTED"
	ErrQuizNotRunning     ErrCode = "QUIZ_NOT_RUNNING"
	ErrAlreadySubmitted   ErrCode = "ALREADY_SUBMITTED"
	ErrResultNotReady     ErrCode = "RESULT_NOT_READY"
	ErrInvalidQuizJSON    ErrCode = "INVALID_QUIZ_JSON"
	ErrSheetNotFound      ErrCode = "SHEET_NOT_FOUND"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrInvalidCredentials:
		return "Invalid email or password."
	case ErrEmailTaken:
		return "An account with this email already exists."
	case ErrRollRequired:
		return "Roll number is required for students."
	case ErrSessionInvalidated:
		return "Your session has ended. Please log in again."
	case ErrTokenRequired:
		return "An authentication token is required."
	case ErrTokenInvalid:
		return "The authentication token is invalid."

	// ─── Authorization ─────────────────────────────────────────────────
	case ErrForbidden:
		return "You do not have permission to access this resource."
	case ErrTeacherAccessOnly:
		return "This resource is restricted to teachers."
	case ErrStudentAccessOnly:
		return "This resource is restricted to students."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidID:
		return "Invalid ID format."
	case ErrInvalidPayload:
		return "Invalid request payload."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "Resource not found."
	case ErrConflict:
		return "Resource already exists."

	// ─── Room / quiz specific ──────────────────────────────────────────
	case ErrRoomCodeTaken:
		return "That room code is already taken. Choose another code or leave it blank to auto-generate."
	case ErrRoomClosed:
		return "This room is closed or does not exist."
	case ErrNotRoomMember:
		return "You are not a member of this room."
	case ErrQuizNotAssigned:
		return "No quiz has been uploaded for this room yet."
	case ErrQuizNotStarted:
		return "The quiz has not started yet."
	case ErrQuizAlreadyStarted:
		return "The quiz has already started; the room's quiz can no longer be replaced."
	case ErrQuizNotRunning:
		return "The quiz is not running."
	case ErrAlreadySubmitted:
		return "You have already submitted this quiz."
	case ErrResultNotReady:
		return "Your result will be available once the quiz ends."
	case ErrInvalidQuizJSON:
		return "The uploaded quiz JSON is invalid."
	case ErrSheetNotFound:
		return "No answer sheet found for this student."

	// ─── Rate Limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "Too many requests. Please try again later."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrInternal:
		return "An internal server error occurred."
	default:
		return "An unexpected error occurred."
	}
}
