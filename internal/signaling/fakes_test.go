package signaling

import (
	"context"
	"sync"
	"time"
)

// fakeChannel mimics the chat SDK: On stacks handlers, Off drops every
// handler for the name, and a sent message is delivered to every linked
// channel including the sender's own.
type fakeChannel struct {
	mu       sync.Mutex
	id       string
	handlers map[string][]Handler
	sent     []Message
	sendErr  error
	watched  int
	linked   []*fakeChannel
}

func newFakeChannel(id string) *fakeChannel {
	c := &fakeChannel{id: id, handlers: make(map[string][]Handler)}
	c.linked = []*fakeChannel{c}
	return c
}

func linkChannels(a, b *fakeChannel) {
	a.linked = []*fakeChannel{a, b}
	b.linked = []*fakeChannel{b, a}
}

func (c *fakeChannel) ID() string { return c.id }

func (c *fakeChannel) Watch(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.watched++
	return nil
}

func (c *fakeChannel) On(event string, handler Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[event] = append(c.handlers[event], handler)
}

func (c *fakeChannel) Off(event string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.handlers, event)
}

func (c *fakeChannel) SendMessage(_ context.Context, msg Message) error {
	c.mu.Lock()
	if c.sendErr != nil {
		err := c.sendErr
		c.mu.Unlock()
		return err
	}
	c.sent = append(c.sent, msg)
	targets := append([]*fakeChannel(nil), c.linked...)
	c.mu.Unlock()

	for _, target := range targets {
		delivered := msg
		target.emit(Event{Type: EventMessageNew, Message: &delivered})
	}
	return nil
}

func (c *fakeChannel) emit(ev Event) {
	c.mu.Lock()
	handlers := append([]Handler(nil), c.handlers[ev.Type]...)
	c.mu.Unlock()
	for _, h := range handlers {
		h(ev)
	}
}

func (c *fakeChannel) handlerCount(event string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.handlers[event])
}

func (c *fakeChannel) sentMessages() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Message(nil), c.sent...)
}

type fakeTrack struct {
	kind    string
	stopped bool
}

func (t *fakeTrack) Kind() string { return t.kind }
func (t *fakeTrack) Stop()        { t.stopped = true }

type fakeCall struct {
	mu       sync.Mutex
	id       string
	handlers map[string][]Handler
	tracks   []*fakeTrack
	joinErr  error
	leaveErr error
	joins    []bool
	leaves   int
}

func newFakeCall(id string) *fakeCall {
	return &fakeCall{
		id:       id,
		handlers: make(map[string][]Handler),
		tracks:   []*fakeTrack{{kind: "audio"}, {kind: "video"}},
	}
}

func (c *fakeCall) ID() string { return c.id }

func (c *fakeCall) On(event string, handler Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[event] = append(c.handlers[event], handler)
}

func (c *fakeCall) Off(event string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.handlers, event)
}

func (c *fakeCall) Join(_ context.Context, create bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.joins = append(c.joins, create)
	return c.joinErr
}

func (c *fakeCall) Leave(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.leaves++
	return c.leaveErr
}

func (c *fakeCall) LocalTracks() []MediaTrack {
	out := make([]MediaTrack, 0, len(c.tracks))
	for _, t := range c.tracks {
		out = append(out, t)
	}
	return out
}

func (c *fakeCall) emit(ev Event) {
	c.mu.Lock()
	handlers := append([]Handler(nil), c.handlers[ev.Type]...)
	c.mu.Unlock()
	for _, h := range handlers {
		h(ev)
	}
}

func (c *fakeCall) handlerCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, hs := range c.handlers {
		n += len(hs)
	}
	return n
}

func (c *fakeCall) allTracksStopped() bool {
	for _, t := range c.tracks {
		if !t.stopped {
			return false
		}
	}
	return true
}

type fakeVideo struct {
	userID        string
	calls         map[string]*fakeCall
	joinErr       error
	leaveErr      error
	disconnects   int
	disconnectErr error
}

func (v *fakeVideo) UserID() string { return v.userID }

func (v *fakeVideo) Call(_ string, id string) VideoCall {
	if call, ok := v.calls[id]; ok {
		return call
	}
	call := newFakeCall(id)
	call.joinErr = v.joinErr
	call.leaveErr = v.leaveErr
	v.calls[id] = call
	return call
}

func (v *fakeVideo) DisconnectUser(context.Context) error {
	v.disconnects++
	return v.disconnectErr
}

type fakeChat struct {
	userID      string
	channel     *fakeChannel
	opened      []string
	members     [][]string
	disconnects int
}

func (c *fakeChat) UserID() string { return c.userID }

func (c *fakeChat) Channel(kind, id string, members []string) Channel {
	c.opened = append(c.opened, kind+":"+id)
	c.members = append(c.members, members)
	return c.channel
}

func (c *fakeChat) Disconnect(context.Context) error {
	c.disconnects++
	return nil
}

// fakeTransport hands out fake chat and video clients and remembers them.
type fakeTransport struct {
	channel  *fakeChannel
	chats    []*fakeChat
	videos   []*fakeVideo
	joinErr  error
	leaveErr error
}

func (t *fakeTransport) connectChat(_ context.Context, user Participant, _ string) (ChatClient, error) {
	client := &fakeChat{userID: user.ID, channel: t.channel}
	t.chats = append(t.chats, client)
	return client, nil
}

func (t *fakeTransport) connectVideo(_ context.Context, user Participant, _ string) (VideoClient, error) {
	client := &fakeVideo{
		userID:   user.ID,
		calls:    make(map[string]*fakeCall),
		joinErr:  t.joinErr,
		leaveErr: t.leaveErr,
	}
	t.videos = append(t.videos, client)
	return client, nil
}

func (t *fakeTransport) sessions() *SessionManager {
	return NewSessionManager(t.connectChat, t.connectVideo)
}

// lastCall returns the most recently created call across all video clients.
func (t *fakeTransport) lastCall(id string) *fakeCall {
	for i := len(t.videos) - 1; i >= 0; i-- {
		if call, ok := t.videos[i].calls[id]; ok {
			return call
		}
	}
	return nil
}

type recordingPresenter struct {
	mu          sync.Mutex
	invitations []Invitation
	notices     []Notice
	closed      []string
}

func (p *recordingPresenter) IncomingCall(inv Invitation) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.invitations = append(p.invitations, inv)
}

func (p *recordingPresenter) Notify(n Notice) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.notices = append(p.notices, n)
}

func (p *recordingPresenter) CallClosed(callID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = append(p.closed, callID)
}

func (p *recordingPresenter) hasNotice(text string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, n := range p.notices {
		if n.Text == text {
			return true
		}
	}
	return false
}

// manualTimer collects AfterFunc callbacks so tests can fire them.
type manualTimer struct {
	scheduled []func()
	delays    []time.Duration
}

func (t *manualTimer) AfterFunc(d time.Duration, f func()) {
	t.delays = append(t.delays, d)
	t.scheduled = append(t.scheduled, f)
}

func (t *manualTimer) fire() {
	pending := t.scheduled
	t.scheduled = nil
	for _, f := range pending {
		f()
	}
}
