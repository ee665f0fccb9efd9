// Package signaling implements call invitations layered on a 1:1 chat
// channel. Invitations and responses travel as message attachments; media is
// handled by an external video session joined under a call id both peers
// derive independently.
package signaling

import (
	"sort"
	"strings"
)

// Attachment types carried on chat messages.
const (
	AttachmentCallInvitation = "call_invitation"
	AttachmentCallResponse   = "call_response"
)

// Attachment statuses.
const (
	StatusPending  = "pending"
	StatusAccepted = "accepted"
	StatusDeclined = "declined"
)

// Event names emitted by the chat channel and the video call.
const (
	EventMessageNew   = "message.new"
	EventCallEnded    = "call.ended"
	EventCallRejected = "call.rejected"
	EventCallJoined   = "call.joined"
)

// ChannelKind is the chat channel type used for 1:1 conversations.
const ChannelKind = "messaging"

// CallKind is the video call type used for 1:1 calls.
const CallKind = "default"

// CallIDSeparator joins the sorted participant ids of a call id.
const CallIDSeparator = "-"

// Participant identifies a chat user.
type Participant struct {
	ID    string
	Name  string
	Image string
}

// Attachment is the wire form of a signaling payload.
type Attachment struct {
	Type        string `json:"type"`
	CallID      string `json:"call_id"`
	CallerID    string `json:"caller_id,omitempty"`
	CallerName  string `json:"caller_name,omitempty"`
	CallerImage string `json:"caller_image,omitempty"`
	ReceiverID  string `json:"receiver_id,omitempty"`
	ResponderID string `json:"responder_id,omitempty"`
	Status      string `json:"status"`
}

// Message is a chat message as seen by the signaling layer.
type Message struct {
	ID          string       `json:"id,omitempty"`
	Text        string       `json:"text"`
	UserID      string       `json:"user_id,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

// Event is an inbound notification from the chat channel or video call.
type Event struct {
	Type    string
	Message *Message
	// UserID is the user the event concerns, e.g. who joined a call.
	UserID string
}

// Handler consumes inbound events.
type Handler func(Event)

// CallID derives the call id shared by a and b. The ids are sorted so both
// peers compute the same value without coordinating. The same value names
// their 1:1 chat channel.
func CallID(a, b string) string {
	ids := []string{a, b}
	sort.Strings(ids)
	return strings.Join(ids, CallIDSeparator)
}

// NewInvitation builds the message a caller sends to start a call.
func NewInvitation(caller Participant, receiverID string) Message {
	return Message{
		Text: caller.Name + " is calling you...",
		Attachments: []Attachment{{
			Type:        AttachmentCallInvitation,
			CallID:      CallID(caller.ID, receiverID),
			CallerID:    caller.ID,
			CallerName:  caller.Name,
			CallerImage: caller.Image,
			ReceiverID:  receiverID,
			Status:      StatusPending,
		}},
	}
}

// NewResponse builds the message a callee sends to answer an invitation.
func NewResponse(callID, responderID string, accepted bool) Message {
	status, text := StatusDeclined, "Call declined"
	if accepted {
		status, text = StatusAccepted, "Call accepted"
	}
	return Message{
		Text: text,
		Attachments: []Attachment{{
			Type:        AttachmentCallResponse,
			CallID:      callID,
			ResponderID: responderID,
			Status:      status,
		}},
	}
}

// Invitation returns the first call_invitation attachment on m.
func (m Message) Invitation() (Attachment, bool) {
	return m.find(AttachmentCallInvitation)
}

// Response returns the first call_response attachment on m.
func (m Message) Response() (Attachment, bool) {
	return m.find(AttachmentCallResponse)
}

func (m Message) find(kind string) (Attachment, bool) {
	for _, a := range m.Attachments {
		if a.Type == kind {
			return a, true
		}
	}
	return Attachment{}, false
}
