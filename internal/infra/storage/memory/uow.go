package memory

import (
	"context"
	"errors"

	"github.com/locomproapp/locompro/internal/app/uow"
	domainbuyrequest "github.com/locomproapp/locompro/internal/domain/buyrequest"
	domainchat "github.com/locomproapp/locompro/internal/domain/chat"
	domainoffer "github.com/locomproapp/locompro/internal/domain/offer"
	domainreview "github.com/locomproapp/locompro/internal/domain/review"
)

// ErrFactoryMisconfigured indicates missing repositories.
var ErrFactoryMisconfigured = errors.New("memory: unit of work factory misconfigured")

// Factory wires in-memory repositories into a unit-of-work boundary.
type Factory struct {
	BuyRequestRepo domainbuyrequest.Repository
	OfferRepo      domainoffer.Repository
	ChatRepo       domainchat.Repository
	ReviewRepo     domainreview.Repository
}

// Begin starts a lightweight transaction boundary. No isolation is provided
// and Commit/Rollback are no-ops, so multi-aggregate invariants hold only
// when the write that arbitrates a race is issued first. Versioned Saves
// keep racing writers to the same aggregate honest.
func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.BuyRequestRepo == nil || f.OfferRepo == nil || f.ChatRepo == nil || f.ReviewRepo == nil {
		return nil, ErrFactoryMisconfigured
	}
	return &Unit{
		buyRequests: f.BuyRequestRepo,
		offers:      f.OfferRepo,
		chats:       f.ChatRepo,
		reviews:     f.ReviewRepo,
	}, nil
}

// Unit is a lightweight uow.UnitOfWork backed by in-memory stores.
type Unit struct {
	buyRequests domainbuyrequest.Repository
	offers      domainoffer.Repository
	chats       domainchat.Repository
	reviews     domainreview.Repository
}

func (u *Unit) BuyRequests() domainbuyrequest.Repository {
	return u.buyRequests
}

func (u *Unit) Offers() domainoffer.Repository {
	return u.offers
}

func (u *Unit) Chats() domainchat.Repository {
	return u.chats
}

func (u *Unit) Reviews() domainreview.Repository {
	return u.reviews
}

func (u *Unit) Commit(ctx context.Context) error {
	return nil
}

func (u *Unit) Rollback(ctx context.Context) error {
	return nil
}
