package reviews

import (
	"context"
	"errors"
	"testing"

	"github.com/locomproapp/locompro/internal/app/uow"
	domainbuyrequest "github.com/locomproapp/locompro/internal/domain/buyrequest"
	domainoffer "github.com/locomproapp/locompro/internal/domain/offer"
	domainreview "github.com/locomproapp/locompro/internal/domain/review"
	"github.com/locomproapp/locompro/internal/infra/storage/memory"
)

type fixture struct {
	factory uow.UoWFactory
	reviews *memory.ReviewRepository
}

// newFixture seeds one buy request owned by buyer-1 with one offer from
// seller-1 in the given status.
func newFixture(t *testing.T, offerStatus domainoffer.Status) *fixture {
	t.Helper()
	ctx := context.Background()
	requests := memory.NewBuyRequestRepository()
	offers := memory.NewOfferRepository()
	reviews := memory.NewReviewRepository()

	request, err := domainbuyrequest.NewBuyRequest(domainbuyrequest.CreateParams{
		ID:    "req-1",
		Owner: "buyer-1",
		Title: "Wanted: acoustic guitar",
	})
	if err != nil {
		t.Fatalf("NewBuyRequest() error = %v", err)
	}
	if err := requests.Save(ctx, request); err != nil {
		t.Fatalf("save request error = %v", err)
	}

	created, err := domainoffer.NewOffer(domainoffer.CreateParams{
		ID:           "off-1",
		BuyRequestID: "req-1",
		Seller:       "seller-1",
		Title:        "Yamaha FG800",
		PriceCents:   90000_00,
		Images:       []string{"https://cdn.example/guitar.jpg"},
		Delivery:     domainoffer.DeliveryInPerson,
	})
	if err != nil {
		t.Fatalf("NewOffer() error = %v", err)
	}
	created.Status = offerStatus
	if err := offers.Save(ctx, created); err != nil {
		t.Fatalf("save offer error = %v", err)
	}

	return &fixture{
		factory: memory.Factory{
			BuyRequestRepo: requests,
			OfferRepo:      offers,
			ChatRepo:       memory.NewChatRepository(),
			ReviewRepo:     reviews,
		},
		reviews: reviews,
	}
}

func TestSubmitReview(t *testing.T) {
	ctx := context.Background()
	baseCmd := SubmitCommand{
		CommandID: "rev-1",
		OfferID:   "off-1",
		AuthorID:  "buyer-1",
		Rating:    5,
		Text:      "Great seller, guitar as described",
	}

	t.Run("buyer reviews the seller", func(t *testing.T) {
		f := newFixture(t, domainoffer.StatusAccepted)
		h := &SubmitHandler{UoWFactory: f.factory}
		res, err := h.Handle(ctx, baseCmd)
		if err != nil {
			t.Fatalf("Handle() error = %v", err)
		}
		stored, err := f.reviews.ByOffer(ctx, "off-1", "buyer-1")
		if err != nil {
			t.Fatalf("ByOffer() error = %v", err)
		}
		if string(stored.ID) != res.ReviewID || stored.SubjectID != "seller-1" {
			t.Fatalf("stored review = %+v", stored)
		}
	})

	t.Run("seller reviews the buyer", func(t *testing.T) {
		f := newFixture(t, domainoffer.StatusAccepted)
		h := &SubmitHandler{UoWFactory: f.factory}
		cmd := baseCmd
		cmd.AuthorID = "seller-1"
		if _, err := h.Handle(ctx, cmd); err != nil {
			t.Fatalf("Handle() error = %v", err)
		}
		stored, err := f.reviews.ByOffer(ctx, "off-1", "seller-1")
		if err != nil {
			t.Fatalf("ByOffer() error = %v", err)
		}
		if stored.SubjectID != "buyer-1" {
			t.Fatalf("subject = %s, want buyer-1", stored.SubjectID)
		}
	})

	t.Run("open negotiations cannot be reviewed", func(t *testing.T) {
		for _, status := range []domainoffer.Status{
			domainoffer.StatusPending,
			domainoffer.StatusRejected,
			domainoffer.StatusFinalized,
		} {
			f := newFixture(t, status)
			h := &SubmitHandler{UoWFactory: f.factory}
			if _, err := h.Handle(ctx, baseCmd); !errors.Is(err, ErrNegotiationOpen) {
				t.Fatalf("status %s: error = %v, want %v", status, err, ErrNegotiationOpen)
			}
		}
	})

	t.Run("outsiders are rejected", func(t *testing.T) {
		f := newFixture(t, domainoffer.StatusAccepted)
		h := &SubmitHandler{UoWFactory: f.factory}
		cmd := baseCmd
		cmd.AuthorID = "random-user"
		if _, err := h.Handle(ctx, cmd); !errors.Is(err, ErrNotInvolved) {
			t.Fatalf("Handle() error = %v, want %v", err, ErrNotInvolved)
		}
	})

	t.Run("one review per author per offer", func(t *testing.T) {
		f := newFixture(t, domainoffer.StatusAccepted)
		h := &SubmitHandler{UoWFactory: f.factory}
		if _, err := h.Handle(ctx, baseCmd); err != nil {
			t.Fatalf("first Handle() error = %v", err)
		}
		cmd := baseCmd
		cmd.CommandID = "rev-2"
		if _, err := h.Handle(ctx, cmd); !errors.Is(err, ErrAlreadyReviewed) {
			t.Fatalf("second Handle() error = %v, want %v", err, ErrAlreadyReviewed)
		}
		// The counterparty still gets their own review.
		cmd.CommandID = "rev-3"
		cmd.AuthorID = "seller-1"
		if _, err := h.Handle(ctx, cmd); err != nil {
			t.Fatalf("counterparty Handle() error = %v", err)
		}
	})

	t.Run("rating bounds", func(t *testing.T) {
		f := newFixture(t, domainoffer.StatusAccepted)
		h := &SubmitHandler{UoWFactory: f.factory}
		for _, rating := range []int{0, 6, -1} {
			cmd := baseCmd
			cmd.Rating = rating
			if _, err := h.Handle(ctx, cmd); !errors.Is(err, domainreview.ErrInvalidRating) {
				t.Fatalf("rating %d: error = %v, want %v", rating, err, domainreview.ErrInvalidRating)
			}
		}
	})
}

func TestListForUser(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, domainoffer.StatusAccepted)
	submitHandler := &SubmitHandler{UoWFactory: f.factory}
	if _, err := submitHandler.Handle(ctx, SubmitCommand{
		CommandID: "rev-1",
		OfferID:   "off-1",
		AuthorID:  "buyer-1",
		Rating:    4,
	}); err != nil {
		t.Fatalf("seed review error = %v", err)
	}

	listHandler := &ListForUserHandler{UoWFactory: f.factory}
	res, err := listHandler.Handle(ctx, ListForUserQuery{UserID: "seller-1"})
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if len(res.Items) != 1 || res.Items[0].Rating != 4 {
		t.Fatalf("items = %+v, want the seeded review", res.Items)
	}

	empty, err := listHandler.Handle(ctx, ListForUserQuery{UserID: "buyer-1"})
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if len(empty.Items) != 0 {
		t.Fatalf("buyer has %d reviews, want none", len(empty.Items))
	}
}
