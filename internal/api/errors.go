package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sportbuddy/chat-server/internal/database"
	"github.com/sportbuddy/chat-server/internal/group"
	"github.com/sportbuddy/chat-server/internal/server"
)

type ApiError struct {
	StatusCode int    `json:"status_code"`
	Message    string `json:"message"`
	ErrorCode  string `json:"error_code,omitempty"`
	Err        error  `json:"-"`
}

func (e *ApiError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s", e.Message, e.Err.Error())
	}

	return e.Message
}

func (e *ApiError) Unwrap() error {
	return e.Err
}

func lower(s string) string {
	return strings.ToLower(s)
}

func NewBadRequestError() *ApiError {
	return &ApiError{
		StatusCode: http.StatusBadRequest,
		Message:    lower(http.StatusText(http.StatusBadRequest)),
	}
}

func NewNotFoundError() *ApiError {
	return &ApiError{
		StatusCode: http.StatusNotFound,
		Message:    lower(http.StatusText(http.StatusNotFound)),
	}
}

func NewInternalServerError(err error) *ApiError {
	return &ApiError{
		StatusCode: http.StatusInternalServerError,
		Message:    lower(http.StatusText(http.StatusInternalServerError)),
		Err:        err,
	}
}

func NewUnauthorizedError() *ApiError {
	return &ApiError{
		StatusCode: http.StatusUnauthorized,
		Message:    lower(http.StatusText(http.StatusUnauthorized)),
	}
}

func NewForbiddenError() *ApiError {
	return &ApiError{
		StatusCode: http.StatusForbidden,
		Message:    lower(http.StatusText(http.StatusForbidden)),
	}
}

func NewMethodNotAllowedError() *ApiError {
	return &ApiError{
		StatusCode: http.StatusMethodNotAllowed,
		Message:    lower(http.StatusText(http.StatusMethodNotAllowed)),
	}
}

// domainError maps known domain errors to API responses with stable error
// codes clients can switch on. Anything unrecognized is a 500.
func domainError(err error) *ApiError {
	newErr := func(status int, code string) *ApiError {
		return &ApiError{
			StatusCode: status,
			Message:    err.Error(),
			ErrorCode:  code,
			Err:        err,
		}
	}

	switch {
	case errors.Is(err, database.ErrNotFound):
		return NewNotFoundError()
	case errors.Is(err, server.ErrSelfMessage):
		return newErr(http.StatusBadRequest, "self_message")
	case errors.Is(err, server.ErrEmptyMessage):
		return newErr(http.StatusBadRequest, "empty_message")
	case errors.Is(err, server.ErrNotParticipant):
		return newErr(http.StatusForbidden, "not_participant")
	case errors.Is(err, server.ErrNotMember), errors.Is(err, group.ErrNotMember):
		return newErr(http.StatusForbidden, "not_member")
	case errors.Is(err, group.ErrAlreadyMember):
		return newErr(http.StatusConflict, "already_member")
	case errors.Is(err, group.ErrGroupFull):
		return newErr(http.StatusConflict, "group_full")
	case errors.Is(err, group.ErrNotAdmin):
		return newErr(http.StatusForbidden, "not_admin")
	case errors.Is(err, group.ErrCannotKickSelf):
		return newErr(http.StatusBadRequest, "cannot_kick_self")
	case errors.Is(err, group.ErrAlreadyAdmin):
		return newErr(http.StatusConflict, "already_admin")
	case errors.Is(err, group.ErrInvitationClosed):
		return newErr(http.StatusConflict, "invitation_closed")
	case errors.Is(err, group.ErrInvalidMemberCap):
		return newErr(http.StatusBadRequest, "invalid_member_cap")
	default:
		return NewInternalServerError(err)
	}
}
