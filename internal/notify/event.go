// Package notify delivers membership events to members' devices. Events are
// published on a Redis channel and fanned out by every server's Hub to the
// websocket clients connected with the target device token.
package notify

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

const (
	KindAddedToChat     = "added_to_chat"
	KindContactAccepted = "contact_accepted"
)

var ErrNoToken = errors.New("no push token registered")

type Event struct {
	ID     string    `json:"id"`
	Kind   string    `json:"kind"`
	SentAt time.Time `json:"sentAt"`

	ChatID     int    `json:"chatId,omitempty"`
	ChatName   string `json:"chatName,omitempty"`
	OwnerEmail string `json:"ownerEmail,omitempty"`

	AccepterEmail string `json:"accepterEmail,omitempty"`
}

func AddedToChat(chatID int, chatName, ownerEmail string) Event {
	return Event{
		ID:         uuid.NewString(),
		Kind:       KindAddedToChat,
		SentAt:     time.Now().UTC(),
		ChatID:     chatID,
		ChatName:   chatName,
		OwnerEmail: ownerEmail,
	}
}

func ContactAccepted(accepterEmail string) Event {
	return Event{
		ID:            uuid.NewString(),
		Kind:          KindContactAccepted,
		SentAt:        time.Now().UTC(),
		AccepterEmail: accepterEmail,
	}
}

// Envelope is the wire form on the Redis channel.
type Envelope struct {
	Token string `json:"token"`
	Event Event  `json:"event"`
}

type Dispatcher interface {
	Dispatch(ctx context.Context, token string, ev Event) error
}
