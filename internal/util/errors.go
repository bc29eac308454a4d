package util

import (
	"errors"
	"fmt"
)

type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindValidation
	KindNotFound
	KindPermissionDenied
	KindConflict
	KindExternalService
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindPermissionDenied:
		return "permission_denied"
	case KindConflict:
		return "conflict"
	case KindExternalService:
		return "external_service"
	default:
		return "internal"
	}
}

// AppError 业务错误，Fields 为字段级错误信息
type AppError struct {
	Kind    ErrorKind
	Message string
	Fields  map[string]string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is 同一个哨兵值，或者种类与消息都相同
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e == t || (e.Kind == t.Kind && e.Message == t.Message)
}

func NewValidationError(message string) *AppError {
	return &AppError{Kind: KindValidation, Message: message}
}

// FieldError 单字段校验失败
func FieldError(field, message string) *AppError {
	return &AppError{Kind: KindValidation, Message: message, Fields: map[string]string{field: message}}
}

func NewNotFoundError(message string) *AppError {
	return &AppError{Kind: KindNotFound, Message: message}
}

func NewConflictError(field, message string) *AppError {
	e := &AppError{Kind: KindConflict, Message: message}
	if field != "" {
		e.Fields = map[string]string{field: message}
	}
	return e
}

func NewExternalError(message string, err error) *AppError {
	return &AppError{Kind: KindExternalService, Message: message, Err: err}
}

// KindOf 非 AppError 一律视为内部错误
func KindOf(err error) ErrorKind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

const FieldRequired = "This field is required."

var (
	ErrPermissionDenied    = &AppError{Kind: KindPermissionDenied, Message: "You do not have permission to perform this action."}
	ErrPostNotFound        = NewNotFoundError("Post not found")
	ErrUserNotFound        = NewNotFoundError("User not found")
	ErrCommentNotFound     = NewNotFoundError("Comment not found")
	ErrReviewNotFound      = NewNotFoundError("Review not found")
	ErrReplyNotFound       = NewNotFoundError("Reply not found")
	ErrChoiceNotFound      = NewNotFoundError("Choice not found")
	ErrCannotFollowSelf    = FieldError("error", "cannot follow himself")
	ErrAlreadyFollowing    = NewConflictError("error", "have already following")
	ErrCannotReviewSelf    = FieldError("user", "Cannot review yourself")
	ErrAlreadyReviewed     = NewConflictError("user", "You have already reviewed")
	ErrAlreadyReplied      = NewValidationError("You have already replied")
	ErrAlreadyVotedInPoll  = NewConflictError("choice", "You have already voted in this poll")
	ErrPostNotEditable     = NewValidationError("Only psa and article posts can be updated")
	ErrInvalidCredentials  = NewValidationError("Unable to log in with provided credentials.")
	ErrInvalidToken        = FieldError("refresh_token", "Invalid token")
	ErrTokenBlacklisted    = NewValidationError("Token is blacklisted")
	ErrInvalidCode         = FieldError("code", "Invalid code")
	ErrCodeExpired         = FieldError("code", "Code is expired")
	ErrEmailNotFound       = FieldError("email", "Email doesn't exist.")
	ErrInvalidResetToken   = FieldError("token", "Invalid or expired token.")
	ErrReportTargetMissing = NewValidationError("Exactly one of user, post, reply or review is required")
)
