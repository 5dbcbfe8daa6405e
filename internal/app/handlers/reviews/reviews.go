package reviews

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/locomproapp/locompro/internal/app/commands"
	"github.com/locomproapp/locompro/internal/app/middleware"
	"github.com/locomproapp/locompro/internal/app/queries"
	"github.com/locomproapp/locompro/internal/app/uow"
	domainoffer "github.com/locomproapp/locompro/internal/domain/offer"
	domainreview "github.com/locomproapp/locompro/internal/domain/review"
)

const (
	submitKey      = "reviews.submit"
	listSubjectKey = "reviews.list_for_user"
)

var (
	ErrUnitOfWorkRequired = errors.New("reviews: unit of work required")
	ErrAlreadyReviewed    = errors.New("reviews: offer already reviewed by this author")
	// ErrNegotiationOpen blocks reviews until the offer reached accepted.
	ErrNegotiationOpen = errors.New("reviews: offer was not accepted")
	ErrNotInvolved     = errors.New("reviews: author was not part of the negotiation")
)

type SubmitCommand struct {
	CommandID       string
	OfferID         string
	AuthorID        string
	Rating          int
	Text            string
	IdempotencyKeyV string
}

func (c SubmitCommand) Key() string { return submitKey }

func (c SubmitCommand) Validate() error {
	if c.OfferID == "" {
		return fmt.Errorf("%w: offer id", middleware.ErrMissingField)
	}
	if c.AuthorID == "" {
		return fmt.Errorf("%w: author id", middleware.ErrMissingField)
	}
	return nil
}

func (c SubmitCommand) IdempotencyKey() string { return c.IdempotencyKeyV }

func (c SubmitCommand) ResultPrototype() any { return &SubmitResult{} }

type SubmitResult struct {
	ReviewID string `json:"review_id"`
}

type SubmitHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *SubmitHandler) Handle(ctx context.Context, cmd SubmitCommand) (*SubmitResult, error) {
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

	target, err := unit.Offers().ByID(ctx, domainoffer.OfferID(cmd.OfferID))
	if err != nil {
		return nil, err
	}
	if target.Status != domainoffer.StatusAccepted {
		return nil, ErrNegotiationOpen
	}
	request, err := unit.BuyRequests().ByID(ctx, target.BuyRequestID)
	if err != nil {
		return nil, err
	}
	var subject string
	switch cmd.AuthorID {
	case string(request.Owner):
		subject = string(target.Seller)
	case string(target.Seller):
		subject = string(request.Owner)
	default:
		return nil, ErrNotInvolved
	}
	if _, err := unit.Reviews().ByOffer(ctx, target.ID, cmd.AuthorID); err == nil {
		return nil, ErrAlreadyReviewed
	} else if !errors.Is(err, domainreview.ErrNotFound) {
		return nil, err
	}

	entry, err := domainreview.Submit(domainreview.SubmitParams{
		ID:           domainreview.ReviewID(cmd.CommandID),
		BuyRequestID: request.ID,
		OfferID:      target.ID,
		AuthorID:     cmd.AuthorID,
		SubjectID:    subject,
		Rating:       cmd.Rating,
		Text:         cmd.Text,
		Now:          time.Now().UTC(),
	})
	if err != nil {
		return nil, err
	}
	if err := unit.Reviews().Save(ctx, entry); err != nil {
		return nil, err
	}
	if managed {
		if err := unit.Commit(ctx); err != nil {
			return nil, err
		}
		committed = true
	}
	return &SubmitResult{ReviewID: string(entry.ID)}, nil
}

type ListForUserQuery struct {
	UserID string
	Limit  int
	Offset int
}

func (q ListForUserQuery) Key() string { return listSubjectKey }

type ListForUserResult struct {
	Items []*domainreview.Review
}

type ListForUserHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *ListForUserHandler) Handle(ctx context.Context, q ListForUserQuery) (*ListForUserResult, error) {
	unit, managed, ctx, err := resolveUnit(ctx, h.UoWFactory)
	if err != nil {
		return nil, err
	}
	if managed {
		defer unit.Rollback(ctx)
	}
	items, err := unit.Reviews().ListBySubject(ctx, q.UserID, q.Limit, q.Offset)
	if err != nil {
		return nil, err
	}
	return &ListForUserResult{Items: items}, nil
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

var _ commands.Handler[SubmitCommand, *SubmitResult] = (*SubmitHandler)(nil)
var _ middleware.IdempotentCommand = (*SubmitCommand)(nil)
var _ queries.Handler[ListForUserQuery, *ListForUserResult] = (*ListForUserHandler)(nil)
