package errorvalues

import "errors"

var (
	// auth
	ErrInvalidToken     = errors.New("invalid token")
	ErrWrongCredentials = errors.New("wrong email or password")
	ErrEmailTaken       = errors.New("email already verified")
	ErrPendingNotFound  = errors.New("pending registration missing")
	ErrUserNotFound     = errors.New("user doesn't exist")

	// otp
	ErrOTPNotFound         = errors.New("no otp found")
	ErrOTPExpired          = errors.New("otp expired")
	ErrOTPAttemptsExceeded = errors.New("too many otp attempts")
	ErrWrongOTP            = errors.New("incorrect otp")
	ErrOTPNotValidated     = errors.New("otp not validated")

	// registry
	ErrUsernameTaken = errors.New("username already taken")
	ErrChildNotFound = errors.New("child doesn't exist")

	// workflow
	ErrMissingFields        = errors.New("missing required fields")
	ErrChoreNotFound        = errors.New("chore doesn't exist")
	ErrGoalNotFound         = errors.New("goal doesn't exist")
	ErrGoalNotApproved      = errors.New("goal is not approved")
	ErrSubmissionNotFound   = errors.New("submission doesn't exist")
	ErrNotificationNotFound = errors.New("notification doesn't exist")
	ErrSessionNotFound      = errors.New("chat session doesn't exist")
	ErrNotOwner             = errors.New("resource has different owner")
	ErrOnlyKids             = errors.New("operation allowed for kids only")
)
