package signaling

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/lingolink/backend/internal/logging"
)

// State is the call state of one participant.
type State string

const (
	StateIdle               State = "idle"
	StateInviting           State = "inviting"
	StateInvitationReceived State = "invitation_received"
	StateJoiningSession     State = "joining_session"
	StateInCall             State = "in_call"
	StateDeclined           State = "declined"
)

// DefaultRejectGrace is how long a declined notice stays up before the call
// view is torn down.
const DefaultRejectGrace = 2 * time.Second

// Invitation is an inbound call invitation awaiting an answer.
type Invitation struct {
	CallID      string
	CallerID    string
	CallerName  string
	CallerImage string
}

// NoticeLevel grades a user-facing notification.
type NoticeLevel string

const (
	NoticeInfo    NoticeLevel = "info"
	NoticeSuccess NoticeLevel = "success"
	NoticeError   NoticeLevel = "error"
)

// Notice is a short-lived user-facing notification.
type Notice struct {
	Level NoticeLevel
	Text  string
}

// Presenter renders what the machine surfaces to the user.
type Presenter interface {
	IncomingCall(inv Invitation)
	Notify(n Notice)
	// CallClosed is called once the call view should be left.
	CallClosed(callID string)
}

type noopPresenter struct{}

func (noopPresenter) IncomingCall(Invitation) {}
func (noopPresenter) Notify(Notice)           {}
func (noopPresenter) CallClosed(string)       {}

// Config wires a Machine to its collaborators.
type Config struct {
	Self     Participant
	PeerID   string
	Token    string
	Sessions *SessionManager

	Presenter   Presenter
	RejectGrace time.Duration
	// AfterFunc schedules f after d. Defaults to time.AfterFunc.
	AfterFunc func(d time.Duration, f func())
	Logger    *slog.Logger
}

// Machine drives one participant's side of a 1:1 call over a chat channel.
// User actions and inbound events are serialized by an internal mutex;
// transport calls are made without holding it.
type Machine struct {
	cfg     Config
	channel Channel
	subs    *Subscriptions

	mu         sync.Mutex
	state      State
	history    []State
	callID     string
	joinCallID string
	pending    *Invitation
	peerAnswer string
	callSubs   *Subscriptions
	// generation advances every time a call is torn down, so timers armed
	// for an earlier call with the same id can tell they are stale.
	generation uint64
}

// NewMachine constructs a Machine for cfg.Self talking to cfg.PeerID on channel.
func NewMachine(channel Channel, cfg Config) *Machine {
	if channel == nil || cfg.Sessions == nil {
		panic("signaling: channel and session manager must not be nil")
	}
	if cfg.Presenter == nil {
		cfg.Presenter = noopPresenter{}
	}
	if cfg.RejectGrace <= 0 {
		cfg.RejectGrace = DefaultRejectGrace
	}
	if cfg.AfterFunc == nil {
		cfg.AfterFunc = func(d time.Duration, f func()) { time.AfterFunc(d, f) }
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	cfg.Logger = cfg.Logger.With("userId", cfg.Self.ID, "peerId", cfg.PeerID)

	return &Machine{
		cfg:     cfg,
		channel: channel,
		subs:    NewSubscriptions(channel),
		state:   StateIdle,
		history: []State{StateIdle},
	}
}

// Dial connects the chat client for cfg.Self, watches the 1:1 channel with
// cfg.PeerID and returns an opened Machine on it.
func Dial(ctx context.Context, cfg Config) (*Machine, error) {
	if cfg.Sessions == nil {
		return nil, fmt.Errorf("dial: %w", ErrNoSession)
	}
	client, err := cfg.Sessions.Chat(ctx, cfg.Self, cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}

	channelID := CallID(cfg.Self.ID, cfg.PeerID)
	channel := client.Channel(ChannelKind, channelID, []string{cfg.Self.ID, cfg.PeerID})
	if err := channel.Watch(ctx); err != nil {
		return nil, fmt.Errorf("watch channel %s: %w", channelID, err)
	}

	m := NewMachine(channel, cfg)
	m.Open()
	return m, nil
}

// Open subscribes the machine to channel messages. Calling it again replaces
// the subscription rather than adding a second one.
func (m *Machine) Open() {
	m.subs.Subscribe(EventMessageNew, m.onMessage)
}

// State returns the current state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// History returns every state entered, oldest first.
func (m *Machine) History() []State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]State(nil), m.history...)
}

// CallID returns the id of the call being set up or in progress.
func (m *Machine) CallID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callID
}

// PendingInvitation returns the invitation awaiting an answer, if any.
func (m *Machine) PendingInvitation() (Invitation, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pending == nil {
		return Invitation{}, false
	}
	return *m.pending, true
}

// PeerAnswer returns the status of the peer's response to our invitation,
// or "" if none arrived.
func (m *Machine) PeerAnswer() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.peerAnswer
}

// StartCall invites the peer and joins the video session right away without
// waiting for an answer.
func (m *Machine) StartCall(ctx context.Context) error {
	callID := CallID(m.cfg.Self.ID, m.cfg.PeerID)

	m.mu.Lock()
	if m.state != StateIdle {
		m.mu.Unlock()
		return ErrCallInProgress
	}
	m.callID = callID
	m.peerAnswer = ""
	m.transitionLocked(StateInviting)
	m.mu.Unlock()

	if err := m.channel.SendMessage(ctx, NewInvitation(m.cfg.Self, m.cfg.PeerID)); err != nil {
		m.mu.Lock()
		if m.callID == callID {
			m.callID = ""
			m.transitionLocked(StateIdle)
		}
		m.mu.Unlock()
		m.cfg.Logger.Error("send call invitation", "callId", callID, "error", err)
		m.cfg.Presenter.Notify(Notice{Level: NoticeError, Text: "Failed to send call invitation"})
		return fmt.Errorf("%w: %w", ErrSignalingSendFailed, err)
	}
	m.cfg.Presenter.Notify(Notice{Level: NoticeSuccess, Text: "Call invitation sent!"})

	m.mu.Lock()
	if m.callID != callID || m.state != StateInviting {
		m.mu.Unlock()
		return nil
	}
	m.transitionLocked(StateJoiningSession)
	m.mu.Unlock()

	return m.join(ctx, callID)
}

// Accept answers the pending invitation and joins its video session.
func (m *Machine) Accept(ctx context.Context) error {
	m.mu.Lock()
	if m.state != StateInvitationReceived || m.pending == nil {
		m.mu.Unlock()
		return ErrNoInvitation
	}
	inv := *m.pending
	m.mu.Unlock()

	if err := m.channel.SendMessage(ctx, NewResponse(inv.CallID, m.cfg.Self.ID, true)); err != nil {
		m.cfg.Logger.Error("send call acceptance", "callId", inv.CallID, "error", err)
		m.cfg.Presenter.Notify(Notice{Level: NoticeError, Text: "Failed to accept call"})
		return fmt.Errorf("%w: %w", ErrSignalingSendFailed, err)
	}

	m.mu.Lock()
	if m.pending == nil || m.pending.CallID != inv.CallID {
		m.mu.Unlock()
		return nil
	}
	m.pending = nil
	m.callID = inv.CallID
	m.transitionLocked(StateJoiningSession)
	m.mu.Unlock()

	return m.join(ctx, inv.CallID)
}

// Decline answers the pending invitation with a refusal. No session is joined.
func (m *Machine) Decline(ctx context.Context) error {
	m.mu.Lock()
	if m.state != StateInvitationReceived || m.pending == nil {
		m.mu.Unlock()
		return ErrNoInvitation
	}
	inv := *m.pending
	m.mu.Unlock()

	if err := m.channel.SendMessage(ctx, NewResponse(inv.CallID, m.cfg.Self.ID, false)); err != nil {
		m.cfg.Logger.Error("send call decline", "callId", inv.CallID, "error", err)
		m.cfg.Presenter.Notify(Notice{Level: NoticeError, Text: "Failed to decline call"})
		return fmt.Errorf("%w: %w", ErrSignalingSendFailed, err)
	}

	m.mu.Lock()
	if m.pending != nil && m.pending.CallID == inv.CallID {
		m.pending = nil
		m.callID = ""
		m.transitionLocked(StateIdle)
	}
	m.mu.Unlock()

	m.cfg.Presenter.Notify(Notice{Level: NoticeInfo, Text: "Call declined"})
	return nil
}

// Hangup leaves the current call.
func (m *Machine) Hangup(ctx context.Context) {
	m.closeCall(ctx, m.CallID())
}

// Close tears down any call, disconnects the chat client and detaches every
// handler. It is safe to call on process exit regardless of state.
func (m *Machine) Close(ctx context.Context) {
	m.subs.Clear()

	m.mu.Lock()
	callSubs := m.resetCallLocked()
	m.mu.Unlock()

	if callSubs != nil {
		callSubs.Clear()
	}
	if err := m.cfg.Sessions.Shutdown(ctx); err != nil {
		m.cfg.Logger.Warn("session shutdown failed", "error", err)
	}
}

func (m *Machine) join(ctx context.Context, callID string) error {
	m.mu.Lock()
	if m.joinCallID == callID {
		m.mu.Unlock()
		return nil
	}
	m.joinCallID = callID
	m.mu.Unlock()

	ctx, span := logging.StartSpan(ctx, "signaling.join")
	defer span.End()

	call, err := m.acquireCall(ctx, callID)
	if err == nil {
		err = call.Join(ctx, true)
	}
	if err != nil {
		logging.FromContext(ctx).Error("join video session", "callId", callID, "error", err)
		m.cfg.Presenter.Notify(Notice{Level: NoticeError, Text: "Failed to join the call."})
		m.closeCall(context.WithoutCancel(ctx), callID)
		return fmt.Errorf("%w: %w", ErrSessionJoinFailed, err)
	}

	logging.FromContext(ctx).Info("joined video session", "callId", callID)
	return nil
}

func (m *Machine) acquireCall(ctx context.Context, callID string) (VideoCall, error) {
	if _, err := m.cfg.Sessions.Video(ctx, m.cfg.Self, m.cfg.Token); err != nil {
		return nil, err
	}
	call, err := m.cfg.Sessions.Call(ctx, callID)
	if err != nil {
		return nil, err
	}

	subs := NewSubscriptions(call)
	subs.Subscribe(EventCallEnded, func(Event) { m.closeCall(context.Background(), callID) })
	subs.Subscribe(EventCallRejected, func(Event) { m.onRejected(callID) })
	subs.Subscribe(EventCallJoined, func(ev Event) { m.onJoined(callID, ev) })

	m.mu.Lock()
	previous := m.callSubs
	m.callSubs = subs
	m.mu.Unlock()
	if previous != nil && previous != subs {
		previous.Clear()
	}
	return call, nil
}

func (m *Machine) onMessage(ev Event) {
	if ev.Message == nil {
		return
	}
	if inv, ok := ev.Message.Invitation(); ok {
		m.onInvitation(inv)
		return
	}
	if resp, ok := ev.Message.Response(); ok {
		m.onResponse(resp)
	}
}

func (m *Machine) onInvitation(a Attachment) {
	if a.ReceiverID != m.cfg.Self.ID || a.CallerID == m.cfg.Self.ID {
		return
	}

	m.mu.Lock()
	if m.state != StateIdle {
		m.mu.Unlock()
		m.cfg.Logger.Info("ignoring call invitation while busy", "callId", a.CallID, "callerId", a.CallerID)
		return
	}
	inv := Invitation{
		CallID:      a.CallID,
		CallerID:    a.CallerID,
		CallerName:  a.CallerName,
		CallerImage: a.CallerImage,
	}
	m.pending = &inv
	m.callID = a.CallID
	m.transitionLocked(StateInvitationReceived)
	m.mu.Unlock()

	m.cfg.Presenter.IncomingCall(inv)
}

func (m *Machine) onResponse(a Attachment) {
	if a.ResponderID == m.cfg.Self.ID {
		return
	}

	m.mu.Lock()
	if a.CallID != m.callID || (m.state != StateJoiningSession && m.state != StateInCall) {
		m.mu.Unlock()
		return
	}
	m.peerAnswer = a.Status
	m.mu.Unlock()

	switch a.Status {
	case StatusAccepted:
		m.cfg.Presenter.Notify(Notice{Level: NoticeSuccess, Text: "Call accepted"})
	case StatusDeclined:
		m.cfg.Presenter.Notify(Notice{Level: NoticeInfo, Text: "Call declined"})
	}
}

func (m *Machine) onJoined(callID string, ev Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.callID != callID || m.state != StateJoiningSession {
		return
	}
	m.cfg.Logger.Info("participant joined call", "callId", callID, "participantId", ev.UserID)
	m.transitionLocked(StateInCall)
}

func (m *Machine) onRejected(callID string) {
	m.mu.Lock()
	if m.callID != callID || m.state == StateDeclined {
		m.mu.Unlock()
		return
	}
	m.transitionLocked(StateDeclined)
	generation := m.generation
	m.mu.Unlock()

	m.cfg.Presenter.Notify(Notice{Level: NoticeError, Text: "Call was declined"})
	m.cfg.AfterFunc(m.cfg.RejectGrace, func() { m.closeDeclined(callID, generation) })
}

// closeDeclined ends a rejected call once its grace period is over. It does
// nothing if that call was already closed, even when a newer call reuses the
// same id.
func (m *Machine) closeDeclined(callID string, generation uint64) {
	m.mu.Lock()
	if m.generation != generation || m.state != StateDeclined || m.callID != callID {
		m.mu.Unlock()
		m.cfg.Logger.Debug("reject grace elapsed for a closed call", "callId", callID)
		return
	}
	callSubs := m.resetCallLocked()
	m.mu.Unlock()

	m.releaseCall(context.Background(), callID, callSubs)
}

// closeCall ends callID if it is still current: handlers are detached, the
// session is released and the machine returns to idle.
func (m *Machine) closeCall(ctx context.Context, callID string) {
	m.mu.Lock()
	if callID == "" || m.callID != callID {
		m.mu.Unlock()
		return
	}
	callSubs := m.resetCallLocked()
	m.mu.Unlock()

	m.releaseCall(ctx, callID, callSubs)
}

// resetCallLocked returns the machine to idle and hands back the call
// subscriptions for the caller to clear outside the lock.
func (m *Machine) resetCallLocked() *Subscriptions {
	callSubs := m.callSubs
	m.callSubs = nil
	m.callID = ""
	m.joinCallID = ""
	m.pending = nil
	m.generation++
	m.transitionLocked(StateIdle)
	return callSubs
}

func (m *Machine) releaseCall(ctx context.Context, callID string, callSubs *Subscriptions) {
	if callSubs != nil {
		callSubs.Clear()
	}
	m.teardown(ctx)
	m.cfg.Presenter.CallClosed(callID)
}

func (m *Machine) teardown(ctx context.Context) {
	if err := m.cfg.Sessions.Release(ctx); err != nil {
		m.cfg.Logger.Warn("call teardown failed", "error", err)
	}
}

func (m *Machine) transitionLocked(next State) {
	if m.state == next {
		return
	}
	m.state = next
	m.history = append(m.history, next)
}
