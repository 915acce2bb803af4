package apperrors

import (
	"errors"
)

var (
	ErrUserAlreadyExists = errors.New("user already exists")
	ErrUserNotFound      = errors.New("user not found")

	ErrRefreshTokenNotFound = errors.New("refresh token not found")
	ErrRefreshTokenIsUsed   = errors.New("refresh token is used")
	ErrRefreshTokenExpired  = errors.New("refresh token is expired")

	ErrBalanceInsufficient = errors.New("insufficient credits")
	ErrAmountNotPositive   = errors.New("amount must be positive")

	ErrTaskNotFound      = errors.New("task not found")
	ErrTaskAlreadyExists = errors.New("task with this external id already exists")
	ErrTaskAlreadyFinal  = errors.New("task is already in a terminal state")
	ErrTaskStatusInvalid = errors.New("unknown task status")
	ErrNotTaskOwner      = errors.New("task belongs to different user")

	ErrPromptInvalid    = errors.New("prompt is empty or too short")
	ErrQualityInvalid   = errors.New("unknown quality tier")
	ErrSubmissionFailed = errors.New("generation provider submission failed")

	ErrPlanNotFound = errors.New("plan not found")

	ErrNotificationNotFound = errors.New("notification not found")
)
