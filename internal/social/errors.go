package social

import "errors"

var (
	// ErrInvalidTarget indicates a request addressed to the sender themselves.
	ErrInvalidTarget = errors.New("cannot send a friend request to yourself")
	// ErrAlreadyFriends indicates the two users are already linked.
	ErrAlreadyFriends = errors.New("already friends with this user")
	// ErrDuplicateRequest indicates a request already exists for the pair, in either direction.
	ErrDuplicateRequest = errors.New("friend request already exists")
	// ErrNotFound indicates the referenced user or request does not exist.
	ErrNotFound = errors.New("not found")
	// ErrForbidden indicates the acting user may not perform the operation.
	ErrForbidden = errors.New("only the recipient can accept a friend request")
)
