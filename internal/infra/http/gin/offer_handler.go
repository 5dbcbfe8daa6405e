package ginserver

import (
	"log/slog"
	"net/http"
	"time"

	gin "github.com/gin-gonic/gin"

	"github.com/locomproapp/locompro/internal/app/commands"
	offersapp "github.com/locomproapp/locompro/internal/app/handlers/offers"
	"github.com/locomproapp/locompro/internal/app/queries"
	domainoffer "github.com/locomproapp/locompro/internal/domain/offer"
)

type OfferHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Logger   *slog.Logger
}

type offerPayload struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	PriceCents  int64    `json:"price_cents"`
	Images      []string `json:"images"`
	Delivery    string   `json:"delivery"`
	Zone        string   `json:"zone"`
	Condition   string   `json:"condition"`
}

type rejectPayload struct {
	Reason string `json:"reason"`
	Detail string `json:"detail"`
}

type historyEntryView struct {
	PriceCents int64     `json:"price_cents"`
	At         time.Time `json:"at"`
	Type       string    `json:"type"`
}

type offerView struct {
	ID              string             `json:"id"`
	BuyRequestID    string             `json:"buy_request_id"`
	Seller          string             `json:"seller"`
	Title           string             `json:"title"`
	Description     string             `json:"description,omitempty"`
	PriceCents      int64              `json:"price_cents"`
	Images          []string           `json:"images"`
	Delivery        string             `json:"delivery"`
	Zone            string             `json:"zone,omitempty"`
	Condition       string             `json:"condition,omitempty"`
	Status          string             `json:"status"`
	RejectionReason string             `json:"rejection_reason,omitempty"`
	PriceHistory    []historyEntryView `json:"price_history"`
	CreatedAt       time.Time          `json:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at"`
}

func newOfferView(o *domainoffer.Offer) offerView {
	history := make([]historyEntryView, 0, len(o.PriceHistory))
	for _, entry := range o.PriceHistory {
		history = append(history, historyEntryView{
			PriceCents: entry.PriceCents,
			At:         entry.At,
			Type:       string(entry.Type),
		})
	}
	return offerView{
		ID:              string(o.ID),
		BuyRequestID:    string(o.BuyRequestID),
		Seller:          string(o.Seller),
		Title:           o.Title,
		Description:     o.Description,
		PriceCents:      o.PriceCents,
		Images:          o.Images,
		Delivery:        string(o.Delivery),
		Zone:            o.Zone,
		Condition:       o.Condition,
		Status:          string(o.Status),
		RejectionReason: o.RejectionReason,
		PriceHistory:    history,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
	}
}

func (h OfferHandler) Submit(c *gin.Context) {
	user, ok := requireRole(c, "")
	if !ok {
		return
	}
	var req offerPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cmd := offersapp.SubmitOfferCommand{
		CommandID:       generateCommandID(),
		BuyRequestID:    c.Param("id"),
		SellerID:        user.ID,
		Title:           req.Title,
		Description:     req.Description,
		PriceCents:      req.PriceCents,
		Images:          req.Images,
		Delivery:        req.Delivery,
		Zone:            req.Zone,
		Condition:       req.Condition,
		IdempotencyKeyV: c.GetHeader("Idempotency-Key"),
	}
	result, err := commands.Dispatch[offersapp.SubmitOfferCommand, *offersapp.SubmitOfferResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h OfferHandler) List(c *gin.Context) {
	query := offersapp.ListOffersQuery{
		BuyRequestID: c.Param("id"),
		Sort:         offersapp.OfferSort(c.Query("sort")),
	}
	result, err := queries.Ask[offersapp.ListOffersQuery, *offersapp.ListOffersResult](c.Request.Context(), h.Queries, query)
	if err != nil {
		respondError(c, err)
		return
	}
	items := make([]offerView, 0, len(result.Items))
	for _, item := range result.Items {
		items = append(items, newOfferView(item))
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h OfferHandler) Accept(c *gin.Context) {
	user, ok := requireRole(c, "")
	if !ok {
		return
	}
	cmd := offersapp.AcceptOfferCommand{
		OfferID:         c.Param("id"),
		ActorID:         user.ID,
		IdempotencyKeyV: c.GetHeader("Idempotency-Key"),
	}
	result, err := commands.Dispatch[offersapp.AcceptOfferCommand, *offersapp.AcceptOfferResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h OfferHandler) Reject(c *gin.Context) {
	user, ok := requireRole(c, "")
	if !ok {
		return
	}
	var req rejectPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cmd := offersapp.RejectOfferCommand{
		OfferID:         c.Param("id"),
		ActorID:         user.ID,
		Reason:          req.Reason,
		Detail:          req.Detail,
		IdempotencyKeyV: c.GetHeader("Idempotency-Key"),
	}
	result, err := commands.Dispatch[offersapp.RejectOfferCommand, *offersapp.RejectOfferResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h OfferHandler) Counter(c *gin.Context) {
	user, ok := requireRole(c, "")
	if !ok {
		return
	}
	var req offerPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cmd := offersapp.CounterOfferCommand{
		OfferID:         c.Param("id"),
		ActorID:         user.ID,
		Title:           req.Title,
		Description:     req.Description,
		PriceCents:      req.PriceCents,
		Images:          req.Images,
		Delivery:        req.Delivery,
		Zone:            req.Zone,
		Condition:       req.Condition,
		IdempotencyKeyV: c.GetHeader("Idempotency-Key"),
	}
	result, err := commands.Dispatch[offersapp.CounterOfferCommand, *offersapp.CounterOfferResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h OfferHandler) Delete(c *gin.Context) {
	user, ok := requireRole(c, "")
	if !ok {
		return
	}
	cmd := offersapp.DeleteOfferCommand{
		OfferID: c.Param("id"),
		ActorID: user.ID,
	}
	if _, err := commands.Dispatch[offersapp.DeleteOfferCommand, *offersapp.DeleteOfferResult](c.Request.Context(), h.Commands, cmd); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

var _ OfferHTTP = OfferHandler{}
