package ginserver

import (
	"log/slog"
	"net/http"
	"time"

	gin "github.com/gin-gonic/gin"

	"github.com/locomproapp/locompro/internal/app/commands"
	chatsapp "github.com/locomproapp/locompro/internal/app/handlers/chats"
	"github.com/locomproapp/locompro/internal/app/queries"
	domainchat "github.com/locomproapp/locompro/internal/domain/chat"
)

type ChatHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Logger   *slog.Logger
}

type sendMessageRequest struct {
	Text string `json:"text"`
}

type chatView struct {
	ID           string    `json:"id"`
	BuyRequestID string    `json:"buy_request_id"`
	BuyerID      string    `json:"buyer_id"`
	SellerID     string    `json:"seller_id"`
	OfferID      string    `json:"offer_id"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type messageView struct {
	ID        string    `json:"id"`
	SenderID  string    `json:"sender_id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

func (h ChatHandler) ListMine(c *gin.Context) {
	user, ok := requireRole(c, "")
	if !ok {
		return
	}
	result, err := queries.Ask[chatsapp.ListMyChatsQuery, *chatsapp.ListMyChatsResult](c.Request.Context(), h.Queries, chatsapp.ListMyChatsQuery{UserID: user.ID})
	if err != nil {
		respondError(c, err)
		return
	}
	items := make([]chatView, 0, len(result.Items))
	for _, chat := range result.Items {
		items = append(items, newChatView(chat))
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h ChatHandler) ListMessages(c *gin.Context) {
	user, ok := requireRole(c, "")
	if !ok {
		return
	}
	query := chatsapp.ListMessagesQuery{
		ChatID:  c.Param("id"),
		ActorID: user.ID,
		Limit:   parsePositiveInt(c.Query("limit"), 50),
	}
	result, err := queries.Ask[chatsapp.ListMessagesQuery, *chatsapp.ListMessagesResult](c.Request.Context(), h.Queries, query)
	if err != nil {
		respondError(c, err)
		return
	}
	items := make([]messageView, 0, len(result.Items))
	for _, message := range result.Items {
		items = append(items, messageView{
			ID:        message.ID,
			SenderID:  message.SenderID,
			Text:      message.Text,
			CreatedAt: message.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h ChatHandler) SendMessage(c *gin.Context) {
	user, ok := requireRole(c, "")
	if !ok {
		return
	}
	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cmd := chatsapp.SendMessageCommand{
		CommandID: generateCommandID(),
		ChatID:    c.Param("id"),
		SenderID:  user.ID,
		Text:      req.Text,
	}
	result, err := commands.Dispatch[chatsapp.SendMessageCommand, *chatsapp.SendMessageResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func newChatView(chat *domainchat.Chat) chatView {
	return chatView{
		ID:           string(chat.ID),
		BuyRequestID: string(chat.BuyRequestID),
		BuyerID:      chat.BuyerID,
		SellerID:     chat.SellerID,
		OfferID:      string(chat.OfferID),
		CreatedAt:    chat.CreatedAt,
		UpdatedAt:    chat.UpdatedAt,
	}
}

var _ ChatHTTP = ChatHandler{}
