package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainbuyrequest "github.com/locomproapp/locompro/internal/domain/buyrequest"
	domainoffer "github.com/locomproapp/locompro/internal/domain/offer"
	"github.com/locomproapp/locompro/internal/domain/shared/storage"
)

type OfferRepository struct {
	col *mongo.Collection
}

func NewOfferRepository(db *mongo.Database) *OfferRepository {
	return &OfferRepository{col: db.Collection("agg_offer")}
}

// EnsureIndexes creates the lookup indexes used by the list queries.
func (r *OfferRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "buy_request_id", Value: 1}, {Key: "created_at", Value: 1}}},
		{Keys: bson.D{{Key: "seller", Value: 1}, {Key: "updated_at", Value: -1}}},
	})
	return err
}

func (r *OfferRepository) ByID(ctx context.Context, id domainoffer.OfferID) (*domainoffer.Offer, error) {
	var doc offerDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainoffer.ErrNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

// Save performs a conditional write keyed on the loaded version. Two actors
// racing on the same offer get exactly one winner; the loser sees
// storage.ErrConcurrentUpdate.
func (r *OfferRepository) Save(ctx context.Context, o *domainoffer.Offer) error {
	doc := newOfferDocument(o)
	filter := bson.M{"_id": doc.ID, "version": o.Version}
	doc.Version = o.Version + 1
	update := bson.M{"$set": doc}
	opts := options.Update().SetUpsert(true)
	res, err := r.col.UpdateOne(ctx, filter, update, opts)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return storage.ErrConcurrentUpdate
		}
		return err
	}
	if res.MatchedCount == 0 && res.UpsertedCount == 0 {
		return storage.ErrConcurrentUpdate
	}
	o.Version = doc.Version
	return nil
}

func (r *OfferRepository) ListByBuyRequest(ctx context.Context, buyRequestID domainbuyrequest.BuyRequestID) ([]*domainoffer.Offer, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cursor, err := r.col.Find(ctx, bson.M{"buy_request_id": string(buyRequestID)}, opts)
	if err != nil {
		return nil, err
	}
	return decodeOffers(ctx, cursor)
}

func (r *OfferRepository) ListBySeller(ctx context.Context, sellerID domainoffer.SellerID) ([]*domainoffer.Offer, error) {
	opts := options.Find().SetSort(bson.D{{Key: "updated_at", Value: -1}})
	cursor, err := r.col.Find(ctx, bson.M{"seller": string(sellerID)}, opts)
	if err != nil {
		return nil, err
	}
	return decodeOffers(ctx, cursor)
}

func (r *OfferRepository) Delete(ctx context.Context, id domainoffer.OfferID) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": string(id)})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return domainoffer.ErrNotFound
	}
	return nil
}

func decodeOffers(ctx context.Context, cursor *mongo.Cursor) ([]*domainoffer.Offer, error) {
	defer cursor.Close(ctx)
	items := make([]*domainoffer.Offer, 0)
	for cursor.Next(ctx) {
		var doc offerDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		items = append(items, doc.toAggregate())
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

type offerDocument struct {
	ID              string                 `bson:"_id"`
	BuyRequestID    string                 `bson:"buy_request_id"`
	Seller          string                 `bson:"seller"`
	Title           string                 `bson:"title"`
	Description     string                 `bson:"description"`
	PriceCents      int64                  `bson:"price_cents"`
	Images          []string               `bson:"images"`
	Delivery        string                 `bson:"delivery"`
	Zone            string                 `bson:"zone"`
	Condition       string                 `bson:"condition"`
	Status          string                 `bson:"status"`
	RejectionReason string                 `bson:"rejection_reason,omitempty"`
	PriceHistory    []historyEntryDocument `bson:"price_history"`
	CreatedAt       int64                  `bson:"created_at"`
	UpdatedAt       int64                  `bson:"updated_at"`
	Version         int64                  `bson:"version"`
}

type historyEntryDocument struct {
	PriceCents int64  `bson:"price_cents"`
	At         int64  `bson:"at"`
	Type       string `bson:"type"`
}

func newOfferDocument(o *domainoffer.Offer) offerDocument {
	history := make([]historyEntryDocument, 0, len(o.PriceHistory))
	for _, entry := range o.PriceHistory {
		history = append(history, historyEntryDocument{
			PriceCents: entry.PriceCents,
			At:         entry.At.UnixMilli(),
			Type:       string(entry.Type),
		})
	}
	return offerDocument{
		ID:              string(o.ID),
		BuyRequestID:    string(o.BuyRequestID),
		Seller:          string(o.Seller),
		Title:           o.Title,
		Description:     o.Description,
		PriceCents:      o.PriceCents,
		Images:          o.Images,
		Delivery:        string(o.Delivery),
		Zone:            o.Zone,
		Condition:       o.Condition,
		Status:          string(o.Status),
		RejectionReason: o.RejectionReason,
		PriceHistory:    history,
		CreatedAt:       o.CreatedAt.UnixMilli(),
		UpdatedAt:       o.UpdatedAt.UnixMilli(),
		Version:         o.Version,
	}
}

func (d offerDocument) toAggregate() *domainoffer.Offer {
	history := make([]domainoffer.HistoryEntry, 0, len(d.PriceHistory))
	for _, entry := range d.PriceHistory {
		history = append(history, domainoffer.HistoryEntry{
			PriceCents: entry.PriceCents,
			At:         timestampToTime(entry.At),
			Type:       domainoffer.HistoryType(entry.Type),
		})
	}
	return &domainoffer.Offer{
		ID:              domainoffer.OfferID(d.ID),
		BuyRequestID:    domainbuyrequest.BuyRequestID(d.BuyRequestID),
		Seller:          domainoffer.SellerID(d.Seller),
		Title:           d.Title,
		Description:     d.Description,
		PriceCents:      d.PriceCents,
		Images:          d.Images,
		Delivery:        domainoffer.Delivery(d.Delivery),
		Zone:            d.Zone,
		Condition:       d.Condition,
		Status:          domainoffer.Status(d.Status),
		RejectionReason: d.RejectionReason,
		PriceHistory:    history,
		CreatedAt:       timestampToTime(d.CreatedAt),
		UpdatedAt:       timestampToTime(d.UpdatedAt),
		Version:         d.Version,
	}
}
