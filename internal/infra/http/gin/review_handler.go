package ginserver

import (
	"log/slog"
	"net/http"
	"time"

	gin "github.com/gin-gonic/gin"

	"github.com/locomproapp/locompro/internal/app/commands"
	reviewsapp "github.com/locomproapp/locompro/internal/app/handlers/reviews"
	"github.com/locomproapp/locompro/internal/app/queries"
)

type ReviewHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Logger   *slog.Logger
}

type submitReviewRequest struct {
	Rating int    `json:"rating"`
	Text   string `json:"text"`
}

type reviewView struct {
	ID        string    `json:"id"`
	OfferID   string    `json:"offer_id"`
	AuthorID  string    `json:"author_id"`
	SubjectID string    `json:"subject_id"`
	Rating    int       `json:"rating"`
	Text      string    `json:"text,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func (h ReviewHandler) Submit(c *gin.Context) {
	user, ok := requireRole(c, "")
	if !ok {
		return
	}
	var req submitReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cmd := reviewsapp.SubmitCommand{
		CommandID:       generateCommandID(),
		OfferID:         c.Param("id"),
		AuthorID:        user.ID,
		Rating:          req.Rating,
		Text:            req.Text,
		IdempotencyKeyV: c.GetHeader("Idempotency-Key"),
	}
	result, err := commands.Dispatch[reviewsapp.SubmitCommand, *reviewsapp.SubmitResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h ReviewHandler) ListForUser(c *gin.Context) {
	query := reviewsapp.ListForUserQuery{
		UserID: c.Param("id"),
		Limit:  parsePositiveInt(c.Query("limit"), 20),
		Offset: parsePositiveInt(c.Query("offset"), 0),
	}
	result, err := queries.Ask[reviewsapp.ListForUserQuery, *reviewsapp.ListForUserResult](c.Request.Context(), h.Queries, query)
	if err != nil {
		respondError(c, err)
		return
	}
	items := make([]reviewView, 0, len(result.Items))
	for _, review := range result.Items {
		items = append(items, reviewView{
			ID:        string(review.ID),
			OfferID:   string(review.OfferID),
			AuthorID:  review.AuthorID,
			SubjectID: review.SubjectID,
			Rating:    review.Rating,
			Text:      review.Text,
			CreatedAt: review.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

var _ ReviewHTTP = ReviewHandler{}
