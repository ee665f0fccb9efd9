package signaling

import "errors"

var (
	// ErrSignalingSendFailed indicates an invitation or response could not be sent.
	ErrSignalingSendFailed = errors.New("signaling message send failed")
	// ErrSessionJoinFailed indicates the video session could not be joined.
	ErrSessionJoinFailed = errors.New("video session join failed")
	// ErrSessionTeardownFailed indicates releasing the video session failed.
	ErrSessionTeardownFailed = errors.New("video session teardown failed")
	// ErrCallInProgress indicates a call is already being set up or running.
	ErrCallInProgress = errors.New("a call is already in progress")
	// ErrNoInvitation indicates there is no pending invitation to answer.
	ErrNoInvitation = errors.New("no pending call invitation")
	// ErrNoSession indicates a session operation ran before a client was connected.
	ErrNoSession = errors.New("no active video client")
)
