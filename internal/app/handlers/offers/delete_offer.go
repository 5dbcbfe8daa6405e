package offers

import (
	"context"
	"fmt"
	"time"

	"github.com/locomproapp/locompro/internal/app/commands"
	"github.com/locomproapp/locompro/internal/app/middleware"
	"github.com/locomproapp/locompro/internal/app/outbox"
	"github.com/locomproapp/locompro/internal/app/uow"
	domainoffer "github.com/locomproapp/locompro/internal/domain/offer"
	"github.com/locomproapp/locompro/internal/domain/shared/events"
)

const deleteOfferKey = "offers.delete"

type DeleteOfferCommand struct {
	OfferID string
	ActorID string
}

func (c DeleteOfferCommand) Key() string { return deleteOfferKey }

func (c DeleteOfferCommand) Validate() error {
	if c.OfferID == "" {
		return fmt.Errorf("%w: offer id", middleware.ErrMissingField)
	}
	if c.ActorID == "" {
		return fmt.Errorf("%w: actor id", middleware.ErrMissingField)
	}
	return nil
}

type DeleteOfferResult struct {
	OfferID string `json:"offer_id"`
}

type DeleteOfferHandler struct {
	UoWFactory uow.UoWFactory
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
}

func (h *DeleteOfferHandler) Handle(ctx context.Context, cmd DeleteOfferCommand) (*DeleteOfferResult, error) {
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
	if err := target.DeletableBy(cmd.ActorID); err != nil {
		return nil, err
	}
	if err := unit.Offers().Delete(ctx, target.ID); err != nil {
		return nil, err
	}

	withdrawn := domainoffer.OfferWithdrawn{OfferID: target.ID, BuyRequestID: target.BuyRequestID, Seller: target.Seller, At: time.Now().UTC()}
	if err := outbox.RecordDomainEvents(ctx, h.Outbox, h.encoder(), []events.DomainEvent{withdrawn}); err != nil {
		return nil, err
	}

	if managed {
		if err := unit.Commit(ctx); err != nil {
			return nil, err
		}
		committed = true
	}
	return &DeleteOfferResult{OfferID: string(target.ID)}, nil
}

func (h *DeleteOfferHandler) encoder() outbox.EventEncoder {
	if h.Encoder != nil {
		return h.Encoder
	}
	return outbox.JSONEventEncoder{}
}

var _ commands.Handler[DeleteOfferCommand, *DeleteOfferResult] = (*DeleteOfferHandler)(nil)
