package chats

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/locomproapp/locompro/internal/app/commands"
	"github.com/locomproapp/locompro/internal/app/middleware"
	"github.com/locomproapp/locompro/internal/app/queries"
	"github.com/locomproapp/locompro/internal/app/uow"
	domainchat "github.com/locomproapp/locompro/internal/domain/chat"
)

const (
	sendMessageKey  = "chats.send_message"
	listChatsKey    = "chats.list_mine"
	listMessagesKey = "chats.list_messages"
)

var ErrUnitOfWorkRequired = errors.New("chats: unit of work required")

type SendMessageCommand struct {
	CommandID string
	ChatID    string
	SenderID  string
	Text      string
}

func (c SendMessageCommand) Key() string { return sendMessageKey }

func (c SendMessageCommand) Validate() error {
	if c.ChatID == "" {
		return fmt.Errorf("%w: chat id", middleware.ErrMissingField)
	}
	if c.SenderID == "" {
		return fmt.Errorf("%w: sender id", middleware.ErrMissingField)
	}
	return nil
}

type SendMessageResult struct {
	MessageID string    `json:"message_id"`
	CreatedAt time.Time `json:"created_at"`
}

type SendMessageHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *SendMessageHandler) Handle(ctx context.Context, cmd SendMessageCommand) (*SendMessageResult, error) {
	unit, managed, ctx, err := resolveUnit(ctx, h.UoWFactory)
	if err != nil {
		return nil, err
	}
	committed := false
	if managed {
		defer func() {
			if !committed {
				_ = unit.Rollback(ctx)
			}
		}()
	}

	thread, err := unit.Chats().ByID(ctx, domainchat.ChatID(cmd.ChatID))
	if err != nil {
		return nil, err
	}
	message, err := thread.NewMessage(cmd.CommandID, cmd.SenderID, cmd.Text, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	if err := unit.Chats().AppendMessage(ctx, message); err != nil {
		return nil, err
	}
	if managed {
		if err := unit.Commit(ctx); err != nil {
			return nil, err
		}
		committed = true
	}
	return &SendMessageResult{MessageID: message.ID, CreatedAt: message.CreatedAt}, nil
}

type ListMyChatsQuery struct {
	UserID string
}

func (q ListMyChatsQuery) Key() string { return listChatsKey }

type ListMyChatsResult struct {
	Items []*domainchat.Chat
}

type ListMyChatsHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *ListMyChatsHandler) Handle(ctx context.Context, q ListMyChatsQuery) (*ListMyChatsResult, error) {
	unit, managed, ctx, err := resolveUnit(ctx, h.UoWFactory)
	if err != nil {
		return nil, err
	}
	if managed {
		defer unit.Rollback(ctx)
	}
	items, err := unit.Chats().ListByParticipant(ctx, q.UserID)
	if err != nil {
		return nil, err
	}
	return &ListMyChatsResult{Items: items}, nil
}

type ListMessagesQuery struct {
	ChatID  string
	ActorID string
	Limit   int
}

func (q ListMessagesQuery) Key() string { return listMessagesKey }

type ListMessagesResult struct {
	Items []*domainchat.Message
}

type ListMessagesHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *ListMessagesHandler) Handle(ctx context.Context, q ListMessagesQuery) (*ListMessagesResult, error) {
	unit, managed, ctx, err := resolveUnit(ctx, h.UoWFactory)
	if err != nil {
		return nil, err
	}
	if managed {
		defer unit.Rollback(ctx)
	}
	thread, err := unit.Chats().ByID(ctx, domainchat.ChatID(q.ChatID))
	if err != nil {
		return nil, err
	}
	if !thread.HasParticipant(q.ActorID) {
		return nil, domainchat.ErrNotParticipant
	}
	items, err := unit.Chats().ListMessages(ctx, thread.ID, q.Limit)
	if err != nil {
		return nil, err
	}
	return &ListMessagesResult{Items: items}, nil
}

func resolveUnit(ctx context.Context, factory uow.UoWFactory) (uow.UnitOfWork, bool, context.Context, error) {
	if unit, ok := uow.FromContext(ctx); ok {
		return unit, false, ctx, nil
	}
	if factory == nil {
		return nil, false, ctx, ErrUnitOfWorkRequired
	}
	unit, err := factory.Begin(ctx, uow.TxOptions{})
	if err != nil {
		return nil, false, ctx, err
	}
	return unit, true, uow.ContextWithUnitOfWork(ctx, unit), nil
}

var _ commands.Handler[SendMessageCommand, *SendMessageResult] = (*SendMessageHandler)(nil)
var _ queries.Handler[ListMyChatsQuery, *ListMyChatsResult] = (*ListMyChatsHandler)(nil)
var _ queries.Handler[ListMessagesQuery, *ListMessagesResult] = (*ListMessagesHandler)(nil)
