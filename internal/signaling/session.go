package signaling

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// SessionManager owns the process's chat client and video client/call
// handles. A live handle is reused for the same identity; a handle bound to a
// different identity is disconnected before a new one is created.
type SessionManager struct {
	connectChat  ChatConnector
	connectVideo VideoConnector

	mu    sync.Mutex
	chat  ChatClient
	video VideoClient
	call  VideoCall
}

// NewSessionManager constructs a SessionManager using the given connectors.
func NewSessionManager(chat ChatConnector, video VideoConnector) *SessionManager {
	if chat == nil || video == nil {
		panic("signaling: chat and video connectors must not be nil")
	}
	return &SessionManager{connectChat: chat, connectVideo: video}
}

// Chat returns a chat client bound to user.
func (s *SessionManager) Chat(ctx context.Context, user Participant, token string) (ChatClient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.chat != nil {
		if s.chat.UserID() == user.ID {
			return s.chat, nil
		}
		if err := s.chat.Disconnect(ctx); err != nil {
			return nil, fmt.Errorf("disconnect chat client for %s: %w", s.chat.UserID(), err)
		}
		s.chat = nil
	}

	client, err := s.connectChat(ctx, user, token)
	if err != nil {
		return nil, fmt.Errorf("connect chat client: %w", err)
	}
	s.chat = client
	return client, nil
}

// Video returns a video client bound to user. Switching identity leaves any
// active call of the previous identity.
func (s *SessionManager) Video(ctx context.Context, user Participant, token string) (VideoClient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.video != nil {
		if s.video.UserID() == user.ID {
			return s.video, nil
		}
		if err := s.releaseLocked(ctx); err != nil {
			return nil, err
		}
	}

	client, err := s.connectVideo(ctx, user, token)
	if err != nil {
		return nil, fmt.Errorf("connect video client: %w", err)
	}
	s.video = client
	return client, nil
}

// Call returns the call handle for callID on the current video client. An
// active call with a different id is left first.
func (s *SessionManager) Call(ctx context.Context, callID string) (VideoCall, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.video == nil {
		return nil, ErrNoSession
	}
	if s.call != nil {
		if s.call.ID() == callID {
			return s.call, nil
		}
		stopTracks(s.call)
		if err := s.call.Leave(ctx); err != nil {
			return nil, fmt.Errorf("%w: leave call %s: %w", ErrSessionTeardownFailed, s.call.ID(), err)
		}
		s.call = nil
	}

	s.call = s.video.Call(CallKind, callID)
	return s.call, nil
}

// ActiveCall returns the current call handle, or nil.
func (s *SessionManager) ActiveCall() VideoCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.call
}

// ActiveVideo returns the current video client, or nil.
func (s *SessionManager) ActiveVideo() VideoClient {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.video
}

// ActiveChat returns the current chat client, or nil.
func (s *SessionManager) ActiveChat() ChatClient {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chat
}

// Release stops local media, leaves the active call, disconnects the video
// client and clears both handles. Handles are cleared even when a step fails.
func (s *SessionManager) Release(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.releaseLocked(ctx)
}

// Shutdown releases the video session and disconnects the chat client.
func (s *SessionManager) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.releaseLocked(ctx)
	if s.chat != nil {
		if derr := s.chat.Disconnect(ctx); derr != nil {
			err = errors.Join(err, fmt.Errorf("%w: disconnect chat: %w", ErrSessionTeardownFailed, derr))
		}
		s.chat = nil
	}
	return err
}

func (s *SessionManager) releaseLocked(ctx context.Context) error {
	var errs []error
	if s.call != nil {
		stopTracks(s.call)
		if err := s.call.Leave(ctx); err != nil {
			errs = append(errs, fmt.Errorf("leave call %s: %w", s.call.ID(), err))
		}
		s.call = nil
	}
	if s.video != nil {
		if err := s.video.DisconnectUser(ctx); err != nil {
			errs = append(errs, fmt.Errorf("disconnect video user %s: %w", s.video.UserID(), err))
		}
		s.video = nil
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrSessionTeardownFailed, errors.Join(errs...))
	}
	return nil
}

func stopTracks(call VideoCall) {
	for _, track := range call.LocalTracks() {
		if track != nil {
			track.Stop()
		}
	}
}
