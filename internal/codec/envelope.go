// Package codec parses and serializes the wire envelope exchanged over a
// chat connection. Decoding is pure; a failure means the single frame is
// dropped, never that the connection dies.
package codec

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/roomchat/relay/internal/domain"
)

const (
	TypeChatMessage = "CHAT_MESSAGE"
	TypeLoadHistory = "LOAD_HISTORY"
)

// DefaultPage is used when a LOAD_HISTORY frame omits the page field.
const DefaultPage = 1

var ErrDecode = errors.New("malformed envelope")

// Envelope is the decoded inbound frame. Exactly one of Chat and History is
// set, according to Type.
type Envelope struct {
	Type    string
	Chat    *ChatPayload
	History *HistoryPayload
}

// ChatPayload carries a new message (ID empty) or an edit (ID set).
type ChatPayload struct {
	ID   string
	Body string
}

// HistoryPayload requests a page of a room's stored messages. Size 0 means
// "use the configured history capacity"; the dispatcher substitutes it.
type HistoryPayload struct {
	Page int
	Size int
}

type wireEnvelope struct {
	Type    string  `json:"type"`
	ID      *string `json:"id"`
	Message *string `json:"message"`
	Page    *int    `json:"page"`
	Size    *int    `json:"size"`
}

func Decode(raw []byte) (Envelope, error) {
	var w wireEnvelope
	if err := json.Unmarshal(raw, &w); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	switch w.Type {
	case TypeChatMessage:
		p := &ChatPayload{}
		if w.Message == nil {
			return Envelope{}, fmt.Errorf("%w: missing message field", ErrDecode)
		}
		p.Body = *w.Message
		if w.ID != nil {
			if _, err := uuid.Parse(*w.ID); err != nil {
				return Envelope{}, fmt.Errorf("%w: invalid message id %q", ErrDecode, *w.ID)
			}
			p.ID = *w.ID
		}
		return Envelope{Type: TypeChatMessage, Chat: p}, nil

	case TypeLoadHistory:
		p := &HistoryPayload{Page: DefaultPage}
		if w.Page != nil {
			if *w.Page < 0 {
				return Envelope{}, fmt.Errorf("%w: negative page", ErrDecode)
			}
			p.Page = *w.Page
		}
		if w.Size != nil {
			if *w.Size < 0 {
				return Envelope{}, fmt.Errorf("%w: negative size", ErrDecode)
			}
			p.Size = *w.Size
		}
		return Envelope{Type: TypeLoadHistory, History: p}, nil

	default:
		return Envelope{}, fmt.Errorf("%w: unknown type %q", ErrDecode, w.Type)
	}
}

// Encode serializes a chat message for broadcast, replay, and history pages.
func Encode(msg domain.ChatMessage) ([]byte, error) {
	return json.Marshal(msg)
}

// DecodeMessage is the inverse of Encode. Used by tests and by clients that
// read broadcast frames.
func DecodeMessage(raw []byte) (domain.ChatMessage, error) {
	var msg domain.ChatMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return domain.ChatMessage{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return msg, nil
}
