package offers

import (
	"context"
	"fmt"
	"time"

	"github.com/locomproapp/locompro/internal/app/commands"
	"github.com/locomproapp/locompro/internal/app/middleware"
	"github.com/locomproapp/locompro/internal/app/outbox"
	"github.com/locomproapp/locompro/internal/app/uow"
	domainbuyrequest "github.com/locomproapp/locompro/internal/domain/buyrequest"
	domainoffer "github.com/locomproapp/locompro/internal/domain/offer"
)

const rejectOfferKey = "offers.reject"

type RejectOfferCommand struct {
	OfferID         string
	ActorID         string
	Reason          string
	Detail          string
	IdempotencyKeyV string
}

func (c RejectOfferCommand) Key() string { return rejectOfferKey }

func (c RejectOfferCommand) Validate() error {
	if c.OfferID == "" {
		return fmt.Errorf("%w: offer id", middleware.ErrMissingField)
	}
	if c.ActorID == "" {
		return fmt.Errorf("%w: actor id", middleware.ErrMissingField)
	}
	return nil
}

func (c RejectOfferCommand) IdempotencyKey() string { return c.IdempotencyKeyV }

func (c RejectOfferCommand) ResultPrototype() any { return &RejectOfferResult{} }

type RejectOfferResult struct {
	OfferID string `json:"offer_id"`
	Reason  string `json:"reason"`
}

type RejectOfferHandler struct {
	UoWFactory uow.UoWFactory
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
}

func (h *RejectOfferHandler) Handle(ctx context.Context, cmd RejectOfferCommand) (*RejectOfferResult, error) {
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
	request, err := unit.BuyRequests().ByID(ctx, target.BuyRequestID)
	if err != nil {
		return nil, err
	}
	if !request.OwnedBy(cmd.ActorID) {
		return nil, domainbuyrequest.ErrNotOwner
	}

	if err := target.Reject(domainoffer.Reason(cmd.Reason), cmd.Detail, time.Now().UTC()); err != nil {
		return nil, err
	}
	if err := unit.Offers().Save(ctx, target); err != nil {
		return nil, err
	}
	if err := drainEvents(ctx, h.Outbox, h.encoder(), target); err != nil {
		return nil, err
	}

	if managed {
		if err := unit.Commit(ctx); err != nil {
			return nil, err
		}
		committed = true
	}
	return &RejectOfferResult{OfferID: string(target.ID), Reason: target.RejectionReason}, nil
}

func (h *RejectOfferHandler) encoder() outbox.EventEncoder {
	if h.Encoder != nil {
		return h.Encoder
	}
	return outbox.JSONEventEncoder{}
}

var _ commands.Handler[RejectOfferCommand, *RejectOfferResult] = (*RejectOfferHandler)(nil)
var _ middleware.IdempotentCommand = (*RejectOfferCommand)(nil)
