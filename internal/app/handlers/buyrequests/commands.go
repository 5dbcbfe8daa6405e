package buyrequests

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/locomproapp/locompro/internal/app/commands"
	"github.com/locomproapp/locompro/internal/app/middleware"
	"github.com/locomproapp/locompro/internal/app/outbox"
	"github.com/locomproapp/locompro/internal/app/uow"
	domainbuyrequest "github.com/locomproapp/locompro/internal/domain/buyrequest"
	domainoffer "github.com/locomproapp/locompro/internal/domain/offer"
	"github.com/locomproapp/locompro/internal/domain/shared/events"
)

const (
	createKey = "buyrequests.create"
	updateKey = "buyrequests.update"
	closeKey  = "buyrequests.close"
	deleteKey = "buyrequests.delete"
)

var (
	ErrUnitOfWorkRequired = errors.New("buyrequests: unit of work required")
	// ErrHasLiveOffers blocks deleting a request that still has pending or
	// accepted offers; the owner closes or resolves them first.
	ErrHasLiveOffers = errors.New("buyrequests: request still has live offers")
)

type Fields struct {
	Title         string
	Description   string
	MinPriceCents int64
	MaxPriceCents int64
	Zone          string
	Condition     string
	Images        []string
}

type CreateCommand struct {
	CommandID       string
	OwnerID         string
	Fields          Fields
	IdempotencyKeyV string
}

func (c CreateCommand) Key() string { return createKey }

func (c CreateCommand) Validate() error {
	if c.OwnerID == "" {
		return fmt.Errorf("%w: owner id", middleware.ErrMissingField)
	}
	return nil
}

func (c CreateCommand) IdempotencyKey() string { return c.IdempotencyKeyV }

func (c CreateCommand) ResultPrototype() any { return &CreateResult{} }

type CreateResult struct {
	BuyRequestID string `json:"buy_request_id"`
}

type CreateHandler struct {
	UoWFactory uow.UoWFactory
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
}

func (h *CreateHandler) Handle(ctx context.Context, cmd CreateCommand) (*CreateResult, error) {
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

	request, err := domainbuyrequest.NewBuyRequest(domainbuyrequest.CreateParams{
		ID:            domainbuyrequest.BuyRequestID(cmd.CommandID),
		Owner:         domainbuyrequest.OwnerID(cmd.OwnerID),
		Title:         cmd.Fields.Title,
		Description:   cmd.Fields.Description,
		MinPriceCents: cmd.Fields.MinPriceCents,
		MaxPriceCents: cmd.Fields.MaxPriceCents,
		Zone:          cmd.Fields.Zone,
		Condition:     domainbuyrequest.Condition(cmd.Fields.Condition),
		Images:        cmd.Fields.Images,
		Now:           time.Now().UTC(),
	})
	if err != nil {
		return nil, err
	}
	if err := unit.BuyRequests().Save(ctx, request); err != nil {
		return nil, err
	}
	if err := drain(ctx, h.Outbox, h.Encoder, request); err != nil {
		return nil, err
	}
	if managed {
		if err := unit.Commit(ctx); err != nil {
			return nil, err
		}
		committed = true
	}
	return &CreateResult{BuyRequestID: string(request.ID)}, nil
}

type UpdateCommand struct {
	BuyRequestID    string
	ActorID         string
	Fields          Fields
	IdempotencyKeyV string
}

func (c UpdateCommand) Key() string { return updateKey }

func (c UpdateCommand) Validate() error {
	if c.BuyRequestID == "" {
		return fmt.Errorf("%w: buy request id", middleware.ErrMissingField)
	}
	if c.ActorID == "" {
		return fmt.Errorf("%w: actor id", middleware.ErrMissingField)
	}
	return nil
}

func (c UpdateCommand) IdempotencyKey() string { return c.IdempotencyKeyV }

func (c UpdateCommand) ResultPrototype() any { return &UpdateResult{} }

type UpdateResult struct {
	BuyRequestID string `json:"buy_request_id"`
}

type UpdateHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *UpdateHandler) Handle(ctx context.Context, cmd UpdateCommand) (*UpdateResult, error) {
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
	if !request.OwnedBy(cmd.ActorID) {
		return nil, domainbuyrequest.ErrNotOwner
	}
	err = request.Update(domainbuyrequest.UpdateParams{
		Title:         cmd.Fields.Title,
		Description:   cmd.Fields.Description,
		MinPriceCents: cmd.Fields.MinPriceCents,
		MaxPriceCents: cmd.Fields.MaxPriceCents,
		Zone:          cmd.Fields.Zone,
		Condition:     domainbuyrequest.Condition(cmd.Fields.Condition),
		Images:        cmd.Fields.Images,
	}, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	if err := unit.BuyRequests().Save(ctx, request); err != nil {
		return nil, err
	}
	if managed {
		if err := unit.Commit(ctx); err != nil {
			return nil, err
		}
		committed = true
	}
	return &UpdateResult{BuyRequestID: string(request.ID)}, nil
}

type CloseCommand struct {
	BuyRequestID    string
	ActorID         string
	IdempotencyKeyV string
}

func (c CloseCommand) Key() string { return closeKey }

func (c CloseCommand) Validate() error {
	if c.BuyRequestID == "" {
		return fmt.Errorf("%w: buy request id", middleware.ErrMissingField)
	}
	if c.ActorID == "" {
		return fmt.Errorf("%w: actor id", middleware.ErrMissingField)
	}
	return nil
}

func (c CloseCommand) IdempotencyKey() string { return c.IdempotencyKeyV }

func (c CloseCommand) ResultPrototype() any { return &CloseResult{} }

type CloseResult struct {
	BuyRequestID    string `json:"buy_request_id"`
	FinalizedOffers int    `json:"finalized_offers"`
}

// CloseHandler lets the owner end the search without accepting anything.
// Pending offers are finalized so sellers see the request concluded.
type CloseHandler struct {
	UoWFactory uow.UoWFactory
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Logger     *slog.Logger
}

func (h *CloseHandler) Handle(ctx context.Context, cmd CloseCommand) (*CloseResult, error) {
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
	if !request.OwnedBy(cmd.ActorID) {
		return nil, domainbuyrequest.ErrNotOwner
	}
	now := time.Now().UTC()
	if err := request.Close(now); err != nil {
		return nil, err
	}
	if err := unit.BuyRequests().Save(ctx, request); err != nil {
		return nil, err
	}

	siblings, err := unit.Offers().ListByBuyRequest(ctx, request.ID)
	if err != nil {
		return nil, err
	}
	finalized := 0
	sources := []recorder{request}
	for _, sibling := range siblings {
		if sibling.Status != domainoffer.StatusPending {
			continue
		}
		if err := sibling.Finalize(now); err != nil {
			return nil, err
		}
		if err := unit.Offers().Save(ctx, sibling); err != nil {
			return nil, err
		}
		sources = append(sources, sibling)
		finalized++
	}
	if err := drain(ctx, h.Outbox, h.Encoder, sources...); err != nil {
		return nil, err
	}

	if managed {
		if err := unit.Commit(ctx); err != nil {
			return nil, err
		}
		committed = true
	}
	return &CloseResult{BuyRequestID: string(request.ID), FinalizedOffers: finalized}, nil
}

type DeleteCommand struct {
	BuyRequestID string
	ActorID      string
}

func (c DeleteCommand) Key() string { return deleteKey }

func (c DeleteCommand) Validate() error {
	if c.BuyRequestID == "" {
		return fmt.Errorf("%w: buy request id", middleware.ErrMissingField)
	}
	if c.ActorID == "" {
		return fmt.Errorf("%w: actor id", middleware.ErrMissingField)
	}
	return nil
}

type DeleteResult struct {
	BuyRequestID string `json:"buy_request_id"`
}

type DeleteHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *DeleteHandler) Handle(ctx context.Context, cmd DeleteCommand) (*DeleteResult, error) {
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
	if !request.OwnedBy(cmd.ActorID) {
		return nil, domainbuyrequest.ErrNotOwner
	}
	siblings, err := unit.Offers().ListByBuyRequest(ctx, request.ID)
	if err != nil {
		return nil, err
	}
	for _, sibling := range siblings {
		if sibling.Status == domainoffer.StatusPending || sibling.Status == domainoffer.StatusAccepted {
			return nil, ErrHasLiveOffers
		}
	}
	if err := unit.BuyRequests().Delete(ctx, request.ID); err != nil {
		return nil, err
	}
	if managed {
		if err := unit.Commit(ctx); err != nil {
			return nil, err
		}
		committed = true
	}
	return &DeleteResult{BuyRequestID: string(request.ID)}, nil
}

type recorder interface {
	PendingEvents() []events.DomainEvent
	ClearEvents()
}

func drain(ctx context.Context, box outbox.Outbox, encoder outbox.EventEncoder, sources ...recorder) error {
	if encoder == nil {
		encoder = outbox.JSONEventEncoder{}
	}
	for _, src := range sources {
		pending := src.PendingEvents()
		src.ClearEvents()
		if err := outbox.RecordDomainEvents(ctx, box, encoder, pending); err != nil {
			return err
		}
	}
	return nil
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

var _ commands.Handler[CreateCommand, *CreateResult] = (*CreateHandler)(nil)
var _ commands.Handler[UpdateCommand, *UpdateResult] = (*UpdateHandler)(nil)
var _ commands.Handler[CloseCommand, *CloseResult] = (*CloseHandler)(nil)
var _ commands.Handler[DeleteCommand, *DeleteResult] = (*DeleteHandler)(nil)
var _ middleware.IdempotentCommand = (*CreateCommand)(nil)
var _ middleware.IdempotentCommand = (*CloseCommand)(nil)
