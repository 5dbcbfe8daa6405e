package chat

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/locomproapp/locompro/internal/domain/buyrequest"
	"github.com/locomproapp/locompro/internal/domain/offer"
	"github.com/locomproapp/locompro/internal/domain/shared/events"
)

var (
	ErrIDRequired           = errors.New("chat: id is required")
	ErrParticipantsRequired = errors.New("chat: buyer and seller are required")
	ErrSameParticipant      = errors.New("chat: buyer and seller must differ")
	ErrTextRequired         = errors.New("chat: message text is required")
	ErrNotParticipant       = errors.New("chat: actor is not a participant")
	ErrNotFound             = errors.New("chat: not found")
	ErrAlreadyExists        = errors.New("chat: a chat for this triple already exists")
)

type ChatID string

// Chat is the channel opened between a buyer and a seller when an offer is
// accepted. At most one chat exists per (buy request, buyer, seller) triple;
// it is never deleted by the negotiation flow.
type Chat struct {
	ID           ChatID
	BuyRequestID buyrequest.BuyRequestID
	BuyerID      string
	SellerID     string
	OfferID      offer.OfferID
	CreatedAt    time.Time
	UpdatedAt    time.Time
	events.EventRecorder
}

// Message is an append-only chat entry from either participant.
type Message struct {
	ID        string
	ChatID    ChatID
	SenderID  string
	Text      string
	CreatedAt time.Time
}

// Repository persists chats and their messages. FindByTriple backs the
// idempotent open-on-accept behavior.
type Repository interface {
	ByID(ctx context.Context, id ChatID) (*Chat, error)
	FindByTriple(ctx context.Context, buyRequestID buyrequest.BuyRequestID, buyerID, sellerID string) (*Chat, error)
	Save(ctx context.Context, chat *Chat) error
	ListByParticipant(ctx context.Context, userID string) ([]*Chat, error)
	AppendMessage(ctx context.Context, message *Message) error
	ListMessages(ctx context.Context, chatID ChatID, limit int) ([]*Message, error)
}

type CreateParams struct {
	ID           ChatID
	BuyRequestID buyrequest.BuyRequestID
	BuyerID      string
	SellerID     string
	OfferID      offer.OfferID
	Now          time.Time
}

func NewChat(params CreateParams) (*Chat, error) {
	if strings.TrimSpace(string(params.ID)) == "" {
		return nil, ErrIDRequired
	}
	buyer := strings.TrimSpace(params.BuyerID)
	seller := strings.TrimSpace(params.SellerID)
	if buyer == "" || seller == "" {
		return nil, ErrParticipantsRequired
	}
	if buyer == seller {
		return nil, ErrSameParticipant
	}
	now := params.Now
	if now.IsZero() {
		now = time.Now()
	}
	now = now.UTC()

	c := &Chat{
		ID:           params.ID,
		BuyRequestID: params.BuyRequestID,
		BuyerID:      buyer,
		SellerID:     seller,
		OfferID:      params.OfferID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	c.Record(ChatOpened{ChatID: c.ID, BuyRequestID: c.BuyRequestID, BuyerID: buyer, SellerID: seller, OfferID: c.OfferID, At: now})
	return c, nil
}

// HasParticipant reports whether the user belongs to this chat.
func (c *Chat) HasParticipant(userID string) bool {
	return userID != "" && (c.BuyerID == userID || c.SellerID == userID)
}

// NewMessage validates and builds a message from a participant.
func (c *Chat) NewMessage(id, senderID, text string, now time.Time) (*Message, error) {
	if !c.HasParticipant(senderID) {
		return nil, ErrNotParticipant
	}
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, ErrTextRequired
	}
	if now.IsZero() {
		now = time.Now()
	}
	return &Message{
		ID:        id,
		ChatID:    c.ID,
		SenderID:  senderID,
		Text:      trimmed,
		CreatedAt: now.UTC(),
	}, nil
}

type ChatOpened struct {
	ChatID       ChatID
	BuyRequestID buyrequest.BuyRequestID
	BuyerID      string
	SellerID     string
	OfferID      offer.OfferID
	At           time.Time
}

func (e ChatOpened) EventName() string     { return "chat.opened" }
func (e ChatOpened) AggregateID() string   { return string(e.ChatID) }
func (e ChatOpened) OccurredAt() time.Time { return e.At }
