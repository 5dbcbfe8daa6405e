package review

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
	ErrInvalidRating = errors.New("review: rating must be between 1 and 5")
	ErrSelfReview    = errors.New("review: cannot review yourself")
	ErrNotFound      = errors.New("review: not found")
)

type ReviewID string

// Review is plain stored feedback left after a concluded negotiation. No
// aggregation happens here.
type Review struct {
	ID           ReviewID
	BuyRequestID buyrequest.BuyRequestID
	OfferID      offer.OfferID
	AuthorID     string
	SubjectID    string
	Rating       int
	Text         string
	CreatedAt    time.Time
	events.EventRecorder
}

type Repository interface {
	ByOffer(ctx context.Context, offerID offer.OfferID, authorID string) (*Review, error)
	ListBySubject(ctx context.Context, subjectID string, limit, offset int) ([]*Review, error)
	Save(ctx context.Context, review *Review) error
}

type SubmitParams struct {
	ID           ReviewID
	BuyRequestID buyrequest.BuyRequestID
	OfferID      offer.OfferID
	AuthorID     string
	SubjectID    string
	Rating       int
	Text         string
	Now          time.Time
}

func Submit(params SubmitParams) (*Review, error) {
	if params.Rating < 1 || params.Rating > 5 {
		return nil, ErrInvalidRating
	}
	if params.AuthorID == params.SubjectID {
		return nil, ErrSelfReview
	}
	now := params.Now
	if now.IsZero() {
		now = time.Now()
	}
	r := &Review{
		ID:           params.ID,
		BuyRequestID: params.BuyRequestID,
		OfferID:      params.OfferID,
		AuthorID:     params.AuthorID,
		SubjectID:    params.SubjectID,
		Rating:       params.Rating,
		Text:         strings.TrimSpace(params.Text),
		CreatedAt:    now.UTC(),
	}
	r.Record(ReviewSubmitted{ReviewID: r.ID, OfferID: r.OfferID, SubjectID: r.SubjectID, Rating: r.Rating, At: r.CreatedAt})
	return r, nil
}

type ReviewSubmitted struct {
	ReviewID  ReviewID
	OfferID   offer.OfferID
	SubjectID string
	Rating    int
	At        time.Time
}

func (e ReviewSubmitted) EventName() string     { return "review.submitted" }
func (e ReviewSubmitted) AggregateID() string   { return string(e.ReviewID) }
func (e ReviewSubmitted) OccurredAt() time.Time { return e.At }
