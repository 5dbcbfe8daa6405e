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
)

const counterOfferKey = "offers.counter"

type CounterOfferCommand struct {
	OfferID         string
	ActorID         string
	Title           string
	Description     string
	PriceCents      int64
	Images          []string
	Delivery        string
	Zone            string
	Condition       string
	IdempotencyKeyV string
}

func (c CounterOfferCommand) Key() string { return counterOfferKey }

func (c CounterOfferCommand) Validate() error {
	if c.OfferID == "" {
		return fmt.Errorf("%w: offer id", middleware.ErrMissingField)
	}
	if c.ActorID == "" {
		return fmt.Errorf("%w: actor id", middleware.ErrMissingField)
	}
	return nil
}

func (c CounterOfferCommand) IdempotencyKey() string { return c.IdempotencyKeyV }

func (c CounterOfferCommand) ResultPrototype() any { return &CounterOfferResult{} }

type CounterOfferResult struct {
	OfferID       string `json:"offer_id"`
	PriceCents    int64  `json:"price_cents"`
	HistoryLength int    `json:"history_length"`
}

// CounterOfferHandler reopens a rejected offer as a pending bid with revised
// terms, preserving the negotiation trail in the price history.
type CounterOfferHandler struct {
	UoWFactory uow.UoWFactory
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
}

func (h *CounterOfferHandler) Handle(ctx context.Context, cmd CounterOfferCommand) (*CounterOfferResult, error) {
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
	if !target.SoldBy(cmd.ActorID) {
		return nil, domainoffer.ErrNotSeller
	}

	rev := domainoffer.Revision{
		Title:       cmd.Title,
		Description: cmd.Description,
		PriceCents:  cmd.PriceCents,
		Images:      cmd.Images,
		Delivery:    domainoffer.Delivery(cmd.Delivery),
		Zone:        cmd.Zone,
		Condition:   cmd.Condition,
	}
	if err := target.Counteroffer(rev, time.Now().UTC()); err != nil {
		return nil, err
	}
	// History and revised fields persist in the same write.
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
	return &CounterOfferResult{
		OfferID:       string(target.ID),
		PriceCents:    target.PriceCents,
		HistoryLength: len(target.PriceHistory),
	}, nil
}

func (h *CounterOfferHandler) encoder() outbox.EventEncoder {
	if h.Encoder != nil {
		return h.Encoder
	}
	return outbox.JSONEventEncoder{}
}

var _ commands.Handler[CounterOfferCommand, *CounterOfferResult] = (*CounterOfferHandler)(nil)
var _ middleware.IdempotentCommand = (*CounterOfferCommand)(nil)
