package offers

import (
	"context"
	"errors"

	"github.com/locomproapp/locompro/internal/app/outbox"
	"github.com/locomproapp/locompro/internal/app/uow"
	"github.com/locomproapp/locompro/internal/domain/shared/events"
)

var ErrUnitOfWorkRequired = errors.New("offers: unit of work required")

// resolveUnit reuses the ambient unit of work when the transaction middleware
// provided one, otherwise begins a managed unit from the factory. The caller
// commits only when managed is true.
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

type eventSource interface {
	PendingEvents() []events.DomainEvent
	ClearEvents()
}

// drainEvents moves recorded domain events from aggregates into the outbox.
func drainEvents(ctx context.Context, box outbox.Outbox, encoder outbox.EventEncoder, sources ...eventSource) error {
	for _, src := range sources {
		pending := src.PendingEvents()
		src.ClearEvents()
		if err := outbox.RecordDomainEvents(ctx, box, encoder, pending); err != nil {
			return err
		}
	}
	return nil
}
