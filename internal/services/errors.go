package services

import "errors"

// Error kinds. Every *Error wraps exactly one of these so callers can
// classify with errors.Is.
var (
	ErrInvalidRequest = errors.New("invalid request")
	ErrNotFound       = errors.New("not found")
	ErrConflict       = errors.New("conflict")
)

// Error is a caller-facing failure with a human readable detail.
type Error struct {
	Kind   error
	Detail string
}

func (e *Error) Error() string {
	return e.Kind.Error() + ": " + e.Detail
}

func (e *Error) Unwrap() error {
	return e.Kind
}

func newError(kind error, detail string) *Error {
	return &Error{Kind: kind, Detail: detail}
}

var (
	ErrCannotFriendSelf    = newError(ErrInvalidRequest, "Cannot send friend request to yourself")
	ErrInvalidStatusFilter = newError(ErrInvalidRequest, "Invalid status. Allowed values: ['accepted', 'all', 'pending', 'rejected']")

	ErrRequesterNotFound     = newError(ErrNotFound, "Requester user not found")
	ErrReceiverNotFound      = newError(ErrNotFound, "Receiver user not found")
	ErrFriendRequestNotFound = newError(ErrNotFound, "Friend request not found")

	ErrFriendRequestAlreadySent = newError(ErrConflict, "Friend request already sent")
	ErrAlreadyFriends           = newError(ErrConflict, "Already friends")
	ErrFriendRequestRejected    = newError(ErrConflict, "Friend request was rejected")
	ErrReverseRequestPending    = newError(ErrConflict, "This user already sent you a friend request. Please accept or reject it first.")
	ErrReverseRequestRejected   = newError(ErrConflict, "Cannot send friend request. Previous request was rejected.")
)
