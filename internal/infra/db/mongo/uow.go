package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/locomproapp/locompro/internal/app/uow"
	domainbuyrequest "github.com/locomproapp/locompro/internal/domain/buyrequest"
	domainchat "github.com/locomproapp/locompro/internal/domain/chat"
	domainoffer "github.com/locomproapp/locompro/internal/domain/offer"
	domainreview "github.com/locomproapp/locompro/internal/domain/review"
)

var ErrUnitOfWorkNotConfigured = errors.New("mongo: unit of work factory missing database")

// Factory wires Mongo transactions into the generic UnitOfWork interface.
type Factory struct {
	DB *mongo.Database

	BuyRequestRepo domainbuyrequest.Repository
	OfferRepo      domainoffer.Repository
	ChatRepo       domainchat.Repository
	ReviewRepo     domainreview.Repository
}

// Begin starts a MongoDB session/transaction.
func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.DB == nil {
		return nil, ErrUnitOfWorkNotConfigured
	}
	session, err := f.DB.Client().StartSession()
	if err != nil {
		return nil, err
	}
	txnOpts := options.Transaction().SetReadConcern(f.DB.ReadConcern()).SetWriteConcern(f.DB.WriteConcern())
	if err := session.StartTransaction(txnOpts); err != nil {
		session.EndSession(ctx)
		return nil, err
	}
	return &Unit{
		db:          f.DB,
		session:     session,
		buyRequests: f.BuyRequestRepo,
		offers:      f.OfferRepo,
		chats:       f.ChatRepo,
		reviews:     f.ReviewRepo,
	}, nil
}

type Unit struct {
	db      *mongo.Database
	session mongo.Session

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
	defer u.session.EndSession(ctx)
	return u.session.CommitTransaction(ctx)
}

func (u *Unit) Rollback(ctx context.Context) error {
	defer u.session.EndSession(ctx)
	return u.session.AbortTransaction(ctx)
}

// InjectContext ensures the Mongo session is available in context for downstream repos.
func (u *Unit) InjectContext(ctx context.Context) context.Context {
	return mongo.NewSessionContext(ctx, u.session)
}
