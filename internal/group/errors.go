package group

import "errors"

var (
	ErrGroupFull        = errors.New("group is full")
	ErrAlreadyMember    = errors.New("user is already a member")
	ErrNotMember        = errors.New("user is not a member")
	ErrNotAdmin         = errors.New("only the admin can do that")
	ErrCannotKickSelf   = errors.New("admin cannot kick themselves")
	ErrAlreadyAdmin     = errors.New("user is already the admin")
	ErrInvitationClosed = errors.New("invitation is no longer pending")
	ErrInvalidMemberCap = errors.New("member cap must be between 2 and 30")
)
