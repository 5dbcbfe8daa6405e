package offers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/locomproapp/locompro/internal/app/commands"
	"github.com/locomproapp/locompro/internal/app/middleware"
	"github.com/locomproapp/locompro/internal/app/outbox"
	"github.com/locomproapp/locompro/internal/app/uow"
	domainbuyrequest "github.com/locomproapp/locompro/internal/domain/buyrequest"
	domainchat "github.com/locomproapp/locompro/internal/domain/chat"
	domainoffer "github.com/locomproapp/locompro/internal/domain/offer"
)

const acceptOfferKey = "offers.accept"

type AcceptOfferCommand struct {
	OfferID         string
	ActorID         string
	IdempotencyKeyV string
}

func (c AcceptOfferCommand) Key() string { return acceptOfferKey }

func (c AcceptOfferCommand) Validate() error {
	if c.OfferID == "" {
		return fmt.Errorf("%w: offer id", middleware.ErrMissingField)
	}
	if c.ActorID == "" {
		return fmt.Errorf("%w: actor id", middleware.ErrMissingField)
	}
	return nil
}

func (c AcceptOfferCommand) IdempotencyKey() string { return c.IdempotencyKeyV }

func (c AcceptOfferCommand) ResultPrototype() any { return &AcceptOfferResult{} }

type AcceptOfferResult struct {
	OfferID         string `json:"offer_id"`
	FinalizedOffers int    `json:"finalized_offers"`
	ChatID          string `json:"chat_id,omitempty"`
	ChatError       string `json:"chat_error,omitempty"`
}

// AcceptOfferHandler runs the full acceptance: the winning offer flips to
// accepted, every pending sibling is finalized, the buy request closes and a
// chat between buyer and seller is opened. All of it commits in one unit of
// work except the chat, whose failure is surfaced in the result instead of
// rolling the acceptance back.
type AcceptOfferHandler struct {
	UoWFactory uow.UoWFactory
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Logger     *slog.Logger
}

func (h *AcceptOfferHandler) Handle(ctx context.Context, cmd AcceptOfferCommand) (*AcceptOfferResult, error) {
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

	now := time.Now().UTC()
	if err := target.Accept(now); err != nil {
		return nil, err
	}
	// Closing the request is the first write on purpose: its conditional
	// Save is the single arbiter between racing accepts. Two owners
	// accepting different offers both reach this point with the same loaded
	// version, exactly one close lands, and the loser errors before its
	// offer is ever written.
	if err := request.Close(now); err != nil {
		return nil, err
	}
	if err := unit.BuyRequests().Save(ctx, request); err != nil {
		return nil, err
	}
	if err := unit.Offers().Save(ctx, target); err != nil {
		return nil, err
	}

	siblings, err := unit.Offers().ListByBuyRequest(ctx, request.ID)
	if err != nil {
		return nil, err
	}
	finalized := 0
	drained := []eventSource{request, target}
	for _, sibling := range siblings {
		if sibling.ID == target.ID || sibling.Status != domainoffer.StatusPending {
			continue
		}
		if err := sibling.Finalize(now); err != nil {
			return nil, err
		}
		if err := unit.Offers().Save(ctx, sibling); err != nil {
			return nil, err
		}
		drained = append(drained, sibling)
		finalized++
	}

	result := &AcceptOfferResult{OfferID: string(target.ID), FinalizedOffers: finalized}
	thread, chatErr := h.openChat(ctx, unit, request, target, now)
	if chatErr != nil {
		if h.Logger != nil {
			h.Logger.Error("chat open failed after acceptance", "offer_id", target.ID, "buy_request_id", request.ID, "error", chatErr)
		}
		result.ChatError = chatErr.Error()
	} else {
		result.ChatID = string(thread.ID)
		drained = append(drained, thread)
	}

	if err := drainEvents(ctx, h.Outbox, h.encoder(), drained...); err != nil {
		return nil, err
	}
	if managed {
		if err := unit.Commit(ctx); err != nil {
			return nil, err
		}
		committed = true
	}
	return result, nil
}

// openChat finds or creates the buyer/seller chat for the accepted offer.
// The (buy request, buyer, seller) triple is the identity, so re-running the
// acceptance never produces a second chat.
func (h *AcceptOfferHandler) openChat(ctx context.Context, unit uow.UnitOfWork, request *domainbuyrequest.BuyRequest, target *domainoffer.Offer, now time.Time) (*domainchat.Chat, error) {
	existing, err := unit.Chats().FindByTriple(ctx, request.ID, string(request.Owner), string(target.Seller))
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, domainchat.ErrNotFound) {
		return nil, err
	}
	thread, err := domainchat.NewChat(domainchat.CreateParams{
		ID:           domainchat.ChatID(uuid.NewString()),
		BuyRequestID: request.ID,
		BuyerID:      string(request.Owner),
		SellerID:     string(target.Seller),
		OfferID:      target.ID,
		Now:          now,
	})
	if err != nil {
		return nil, err
	}
	if err := unit.Chats().Save(ctx, thread); err != nil {
		return nil, err
	}
	return thread, nil
}

func (h *AcceptOfferHandler) encoder() outbox.EventEncoder {
	if h.Encoder != nil {
		return h.Encoder
	}
	return outbox.JSONEventEncoder{}
}

var _ commands.Handler[AcceptOfferCommand, *AcceptOfferResult] = (*AcceptOfferHandler)(nil)
var _ middleware.IdempotentCommand = (*AcceptOfferCommand)(nil)
