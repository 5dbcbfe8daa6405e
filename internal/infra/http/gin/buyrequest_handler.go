package ginserver

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	gin "github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/locomproapp/locompro/internal/app/commands"
	buyrequestsapp "github.com/locomproapp/locompro/internal/app/handlers/buyrequests"
	"github.com/locomproapp/locompro/internal/app/queries"
	domainbuyrequest "github.com/locomproapp/locompro/internal/domain/buyrequest"
)

type BuyRequestHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Logger   *slog.Logger
}

type buyRequestPayload struct {
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	MinPriceCents int64    `json:"min_price_cents"`
	MaxPriceCents int64    `json:"max_price_cents"`
	Zone          string   `json:"zone"`
	Condition     string   `json:"condition"`
	Images        []string `json:"images"`
}

type buyRequestView struct {
	ID            string    `json:"id"`
	Owner         string    `json:"owner"`
	Title         string    `json:"title"`
	Description   string    `json:"description,omitempty"`
	MinPriceCents int64     `json:"min_price_cents"`
	MaxPriceCents int64     `json:"max_price_cents"`
	Zone          string    `json:"zone,omitempty"`
	Condition     string    `json:"condition"`
	Status        string    `json:"status"`
	Images        []string  `json:"images,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func newBuyRequestView(r *domainbuyrequest.BuyRequest) buyRequestView {
	return buyRequestView{
		ID:            string(r.ID),
		Owner:         string(r.Owner),
		Title:         r.Title,
		Description:   r.Description,
		MinPriceCents: r.MinPriceCents,
		MaxPriceCents: r.MaxPriceCents,
		Zone:          r.Zone,
		Condition:     string(r.Condition),
		Status:        string(r.Status),
		Images:        r.Images,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

func (p buyRequestPayload) fields() buyrequestsapp.Fields {
	return buyrequestsapp.Fields{
		Title:         p.Title,
		Description:   p.Description,
		MinPriceCents: p.MinPriceCents,
		MaxPriceCents: p.MaxPriceCents,
		Zone:          p.Zone,
		Condition:     p.Condition,
		Images:        p.Images,
	}
}

func (h BuyRequestHandler) Create(c *gin.Context) {
	user, ok := requireRole(c, "")
	if !ok {
		return
	}
	var req buyRequestPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cmd := buyrequestsapp.CreateCommand{
		CommandID:       generateCommandID(),
		OwnerID:         user.ID,
		Fields:          req.fields(),
		IdempotencyKeyV: c.GetHeader("Idempotency-Key"),
	}
	result, err := commands.Dispatch[buyrequestsapp.CreateCommand, *buyrequestsapp.CreateResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h BuyRequestHandler) Update(c *gin.Context) {
	user, ok := requireRole(c, "")
	if !ok {
		return
	}
	var req buyRequestPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cmd := buyrequestsapp.UpdateCommand{
		BuyRequestID:    c.Param("id"),
		ActorID:         user.ID,
		Fields:          req.fields(),
		IdempotencyKeyV: c.GetHeader("Idempotency-Key"),
	}
	result, err := commands.Dispatch[buyrequestsapp.UpdateCommand, *buyrequestsapp.UpdateResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h BuyRequestHandler) Close(c *gin.Context) {
	user, ok := requireRole(c, "")
	if !ok {
		return
	}
	cmd := buyrequestsapp.CloseCommand{
		BuyRequestID:    c.Param("id"),
		ActorID:         user.ID,
		IdempotencyKeyV: c.GetHeader("Idempotency-Key"),
	}
	result, err := commands.Dispatch[buyrequestsapp.CloseCommand, *buyrequestsapp.CloseResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h BuyRequestHandler) Delete(c *gin.Context) {
	user, ok := requireRole(c, "")
	if !ok {
		return
	}
	cmd := buyrequestsapp.DeleteCommand{
		BuyRequestID: c.Param("id"),
		ActorID:      user.ID,
	}
	if _, err := commands.Dispatch[buyrequestsapp.DeleteCommand, *buyrequestsapp.DeleteResult](c.Request.Context(), h.Commands, cmd); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h BuyRequestHandler) Get(c *gin.Context) {
	query := buyrequestsapp.GetQuery{BuyRequestID: c.Param("id")}
	result, err := queries.Ask[buyrequestsapp.GetQuery, *buyrequestsapp.GetResult](c.Request.Context(), h.Queries, query)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newBuyRequestView(result.Request))
}

func (h BuyRequestHandler) Search(c *gin.Context) {
	params := domainbuyrequest.SearchParams{
		Query:         c.Query("q"),
		Zone:          c.Query("zone"),
		Sort:          domainbuyrequest.Sort(c.Query("sort")),
		MinPriceCents: parsePriceCents(c.Query("min_price_cents")),
		MaxPriceCents: parsePriceCents(c.Query("max_price_cents")),
		Limit:         parsePositiveInt(c.Query("limit"), 0),
		Offset:        parsePositiveInt(c.Query("offset"), 0),
	}
	switch c.Query("status") {
	case "closed":
		params.Status = domainbuyrequest.StatusClosed
	case "all":
	default:
		// Open requests are what sellers browse.
		params.Status = domainbuyrequest.StatusActive
	}
	result, err := queries.Ask[buyrequestsapp.SearchQuery, *buyrequestsapp.SearchResult](c.Request.Context(), h.Queries, buyrequestsapp.SearchQuery{Params: params})
	if err != nil {
		respondError(c, err)
		return
	}
	items := make([]buyRequestView, 0, len(result.Items))
	for _, request := range result.Items {
		items = append(items, newBuyRequestView(request))
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "total": result.Total})
}

func (h BuyRequestHandler) ListMine(c *gin.Context) {
	user, ok := requireRole(c, "")
	if !ok {
		return
	}
	params := domainbuyrequest.SearchParams{
		Owner:  domainbuyrequest.OwnerID(user.ID),
		Sort:   domainbuyrequest.SortByUpdated,
		Limit:  parsePositiveInt(c.Query("limit"), 0),
		Offset: parsePositiveInt(c.Query("offset"), 0),
	}
	result, err := queries.Ask[buyrequestsapp.SearchQuery, *buyrequestsapp.SearchResult](c.Request.Context(), h.Queries, buyrequestsapp.SearchQuery{Params: params})
	if err != nil {
		respondError(c, err)
		return
	}
	items := make([]buyRequestView, 0, len(result.Items))
	for _, request := range result.Items {
		items = append(items, newBuyRequestView(request))
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "total": result.Total})
}

func parsePriceCents(raw string) int64 {
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || value < 0 {
		return 0
	}
	return value
}

func parsePositiveInt(raw string, fallback int) int {
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return fallback
	}
	return value
}

func generateCommandID() string {
	return uuid.NewString()
}

var _ BuyRequestHTTP = BuyRequestHandler{}
