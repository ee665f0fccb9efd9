package signaling

import "context"

// EventSource is the handler-registration capability of a chat channel or
// video call. On may stack handlers for the same name; Off detaches all of them.
type EventSource interface {
	On(event string, handler Handler)
	Off(event string)
}

// Channel is a watched 1:1 chat channel.
type Channel interface {
	EventSource
	ID() string
	Watch(ctx context.Context) error
	SendMessage(ctx context.Context, msg Message) error
}

// ChatClient is a connection to the chat platform bound to one user.
type ChatClient interface {
	UserID() string
	Channel(kind, id string, members []string) Channel
	Disconnect(ctx context.Context) error
}

// MediaTrack is a locally captured audio or video track.
type MediaTrack interface {
	Kind() string
	Stop()
}

// VideoCall is a handle on one video session.
type VideoCall interface {
	EventSource
	ID() string
	Join(ctx context.Context, create bool) error
	Leave(ctx context.Context) error
	LocalTracks() []MediaTrack
}

// VideoClient is a connection to the video platform bound to one user.
type VideoClient interface {
	UserID() string
	Call(kind, id string) VideoCall
	DisconnectUser(ctx context.Context) error
}

// ChatConnector opens a chat connection for user.
type ChatConnector func(ctx context.Context, user Participant, token string) (ChatClient, error)

// VideoConnector opens a video connection for user.
type VideoConnector func(ctx context.Context, user Participant, token string) (VideoClient, error)
