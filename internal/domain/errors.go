package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies an error for the caller
type ErrorKind string

const (
	KindValidation      ErrorKind = "validation"
	KindTimingViolation ErrorKind = "timing_violation"
	KindQuotaExceeded   ErrorKind = "quota_exceeded"
	KindConflict        ErrorKind = "conflict"
	KindNotFound        ErrorKind = "not_found"
	KindInternal        ErrorKind = "internal"
)

// Error is an expected, user-facing outcome of a wave operation
type Error struct {
	Kind    ErrorKind
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func newError(kind ErrorKind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// Domain errors
var (
	ErrInvalidRequest = newError(KindValidation, "invalid_request", "invalid request")
	ErrUnknownStatus  = newError(KindValidation, "unknown_status", "unknown wave status")

	ErrStaleOrFutureTimestamp = newError(KindTimingViolation, "stale_or_future_timestamp", "timestamp is outside the allowed latency")
	ErrAnswerWindowViolation  = newError(KindTimingViolation, "answer_window_violation", "timestamp does not correlate with question time")

	ErrBoostLimitExceeded         = newError(KindQuotaExceeded, "boost_limit_exceeded", "boosts usage limitation per wave exceeded")
	ErrInsufficientBoostInventory = newError(KindQuotaExceeded, "insufficient_boost_inventory", "user does not have the boost")
	ErrRateLimited                = newError(KindQuotaExceeded, "rate_limited", "too many requests")

	ErrAlreadyAnswered     = newError(KindConflict, "already_answered", "the user already answered")
	ErrBoostAlreadyApplied = newError(KindConflict, "boost_already_applied", "one boost has been already applied in the question")
	ErrNotEnoughOptions    = newError(KindConflict, "not_enough_options", "not enough options")
	ErrBoostRequiresAnswer = newError(KindConflict, "boost_requires_answer", "boost can be applied only after answering")
	ErrWaveInProgress      = newError(KindConflict, "wave_in_progress", "there is already one wave in progress")
	ErrInvalidTransition   = newError(KindConflict, "invalid_transition", "wave status transition is not allowed")
	ErrMatchmakingClosed   = newError(KindConflict, "matchmaking_closed", "lobbies can be assigned only during matchmaking")
	ErrLobbyExists         = newError(KindConflict, "lobby_exists", "lobby already exists")

	ErrWaveNotFound          = newError(KindNotFound, "wave_not_found", "wave not found")
	ErrLobbyNotFound         = newError(KindNotFound, "lobby_not_found", "lobby not found")
	ErrQuestionNotFound      = newError(KindNotFound, "question_not_found", "question not found")
	ErrParticipationNotFound = newError(KindNotFound, "participation_not_found", "user does not participate in the wave")
	ErrBoostNotFound         = newError(KindNotFound, "boost_not_found", "boost does not exist")
	ErrUserNotFound          = newError(KindNotFound, "user_not_found", "user not found")

	ErrInternalError = newError(KindInternal, "internal", "internal server error")
)

// KindOf returns the kind of the first domain error in err's chain
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}

// IsNotFoundError checks if an error is a not-found type error
func IsNotFoundError(err error) bool {
	return KindOf(err) == KindNotFound
}

// IsExpected reports whether err is a user-facing outcome rather than a failure
func IsExpected(err error) bool {
	return err != nil && KindOf(err) != KindInternal
}

// RequestError carries the caller's correlating request id alongside an error
type RequestError struct {
	RequestID string
	Err       error
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("request %s: %v", e.RequestID, e.Err)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// WithRequestID attaches a request id to err. A nil err stays nil.
func WithRequestID(requestID string, err error) error {
	if err == nil {
		return nil
	}
	return &RequestError{RequestID: requestID, Err: err}
}
