package offers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/locomproapp/locompro/internal/app/commands"
	"github.com/locomproapp/locompro/internal/app/middleware"
	"github.com/locomproapp/locompro/internal/app/outbox"
	"github.com/locomproapp/locompro/internal/app/uow"
	domainbuyrequest "github.com/locomproapp/locompro/internal/domain/buyrequest"
	domainoffer "github.com/locomproapp/locompro/internal/domain/offer"
)

const submitOfferKey = "offers.submit"

// ErrDuplicateOffer is returned when the seller already has a live offer on
// the same buy request. The seller edits or counteroffers instead.
var ErrDuplicateOffer = errors.New("offers: seller already has an open offer on this request")

type SubmitOfferCommand struct {
	CommandID       string
	BuyRequestID    string
	SellerID        string
	Title           string
	Description     string
	PriceCents      int64
	Images          []string
	Delivery        string
	Zone            string
	Condition       string
	IdempotencyKeyV string
}

func (c SubmitOfferCommand) Key() string { return submitOfferKey }

func (c SubmitOfferCommand) Validate() error {
	if c.BuyRequestID == "" {
		return fmt.Errorf("%w: buy request id", middleware.ErrMissingField)
	}
	if c.SellerID == "" {
		return fmt.Errorf("%w: seller id", middleware.ErrMissingField)
	}
	return nil
}

func (c SubmitOfferCommand) IdempotencyKey() string { return c.IdempotencyKeyV }

func (c SubmitOfferCommand) ResultPrototype() any { return &SubmitOfferResult{} }

type SubmitOfferResult struct {
	OfferID string `json:"offer_id"`
}

type SubmitOfferHandler struct {
	UoWFactory uow.UoWFactory
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
}

func (h *SubmitOfferHandler) Handle(ctx context.Context, cmd SubmitOfferCommand) (*SubmitOfferResult, error) {
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

	request, err := unit.BuyRequests().ByID(ctx, domainbuyrequest.BuyRequestID(cmd.BuyRequestID))
	if err != nil {
		return nil, err
	}
	if request.Status != domainbuyrequest.StatusActive {
		return nil, domainbuyrequest.ErrNotActive
	}
	if request.OwnedBy(cmd.SellerID) {
		return nil, domainoffer.ErrOwnRequest
	}

	siblings, err := unit.Offers().ListByBuyRequest(ctx, request.ID)
	if err != nil {
		return nil, err
	}
	for _, sibling := range siblings {
		if sibling.SoldBy(cmd.SellerID) && sibling.Status != domainoffer.StatusFinalized {
			return nil, ErrDuplicateOffer
		}
	}

	now := time.Now().UTC()
	created, err := domainoffer.NewOffer(domainoffer.CreateParams{
		ID:           domainoffer.OfferID(cmd.CommandID),
		BuyRequestID: request.ID,
		Seller:       domainoffer.SellerID(cmd.SellerID),
		Title:        cmd.Title,
		Description:  cmd.Description,
		PriceCents:   cmd.PriceCents,
		Images:       cmd.Images,
		Delivery:     domainoffer.Delivery(cmd.Delivery),
		Zone:         cmd.Zone,
		Condition:    cmd.Condition,
		Now:          now,
	})
	if err != nil {
		return nil, err
	}
	if err := unit.Offers().Save(ctx, created); err != nil {
		return nil, err
	}
	if err := drainEvents(ctx, h.Outbox, h.encoder(), created); err != nil {
		return nil, err
	}

	if managed {
		if err := unit.Commit(ctx); err != nil {
			return nil, err
		}
		committed = true
	}
	return &SubmitOfferResult{OfferID: string(created.ID)}, nil
}

func (h *SubmitOfferHandler) encoder() outbox.EventEncoder {
	if h.Encoder != nil {
		return h.Encoder
	}
	return outbox.JSONEventEncoder{}
}

var _ commands.Handler[SubmitOfferCommand, *SubmitOfferResult] = (*SubmitOfferHandler)(nil)
var _ middleware.IdempotentCommand = (*SubmitOfferCommand)(nil)
