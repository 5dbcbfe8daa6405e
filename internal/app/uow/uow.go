package uow

import (
	"context"

	domainbuyrequest "github.com/locomproapp/locompro/internal/domain/buyrequest"
	domainchat "github.com/locomproapp/locompro/internal/domain/chat"
	domainoffer "github.com/locomproapp/locompro/internal/domain/offer"
	domainreview "github.com/locomproapp/locompro/internal/domain/review"
)

// UnitOfWork coordinates repositories inside a transaction boundary. The
// acceptance flow relies on it so that finalizing siblings and closing the
// buy request commit together with the accepted offer.
type UnitOfWork interface {
	BuyRequests() domainbuyrequest.Repository
	Offers() domainoffer.Repository
	Chats() domainchat.Repository
	Reviews() domainreview.Repository

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// UoWFactory starts unit of work instances.
type UoWFactory interface {
	Begin(ctx context.Context, opts TxOptions) (UnitOfWork, error)
}

// TxOptions configure transaction boundaries.
type TxOptions struct {
	ReadOnly bool
}
