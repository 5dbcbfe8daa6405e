package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainbuyrequest "github.com/locomproapp/locompro/internal/domain/buyrequest"
	"github.com/locomproapp/locompro/internal/domain/shared/storage"
)

type BuyRequestRepository struct {
	col *mongo.Collection
}

func NewBuyRequestRepository(db *mongo.Database) *BuyRequestRepository {
	return &BuyRequestRepository{col: db.Collection("agg_buy_request")}
}

func (r *BuyRequestRepository) ByID(ctx context.Context, id domainbuyrequest.BuyRequestID) (*domainbuyrequest.BuyRequest, error) {
	var doc buyRequestDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainbuyrequest.ErrNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *BuyRequestRepository) Save(ctx context.Context, request *domainbuyrequest.BuyRequest) error {
	doc := newBuyRequestDocument(request)
	filter := bson.M{"_id": doc.ID, "version": request.Version}
	doc.Version = request.Version + 1
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
	request.Version = doc.Version
	return nil
}

func (r *BuyRequestRepository) Delete(ctx context.Context, id domainbuyrequest.BuyRequestID) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": string(id)})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return domainbuyrequest.ErrNotFound
	}
	return nil
}

func (r *BuyRequestRepository) Search(ctx context.Context, params domainbuyrequest.SearchParams) (domainbuyrequest.SearchResult, error) {
	opts := params.Normalized()
	filter := bson.M{}
	if opts.Status != "" {
		filter["status"] = string(opts.Status)
	}
	if opts.Owner != "" {
		filter["owner"] = string(opts.Owner)
	}
	if opts.Zone != "" {
		filter["zone"] = bson.M{"$regex": "^" + opts.Zone + "$", "$options": "i"}
	}
	if opts.Query != "" {
		filter["$or"] = bson.A{
			bson.M{"title": bson.M{"$regex": opts.Query, "$options": "i"}},
			bson.M{"description": bson.M{"$regex": opts.Query, "$options": "i"}},
		}
	}
	if opts.MinPriceCents > 0 {
		filter["max_price_cents"] = bson.M{"$gte": opts.MinPriceCents}
	}
	if opts.MaxPriceCents > 0 {
		filter["min_price_cents"] = bson.M{"$lte": opts.MaxPriceCents}
	}

	total, err := r.col.CountDocuments(ctx, filter)
	if err != nil {
		return domainbuyrequest.SearchResult{}, err
	}

	findOpts := options.Find().
		SetSort(searchSort(opts.Sort)).
		SetSkip(int64(opts.Offset)).
		SetLimit(int64(opts.Limit))
	cursor, err := r.col.Find(ctx, filter, findOpts)
	if err != nil {
		return domainbuyrequest.SearchResult{}, err
	}
	defer cursor.Close(ctx)

	items := make([]*domainbuyrequest.BuyRequest, 0, opts.Limit)
	for cursor.Next(ctx) {
		var doc buyRequestDocument
		if err := cursor.Decode(&doc); err != nil {
			return domainbuyrequest.SearchResult{}, err
		}
		items = append(items, doc.toAggregate())
	}
	if err := cursor.Err(); err != nil {
		return domainbuyrequest.SearchResult{}, err
	}
	return domainbuyrequest.SearchResult{Items: items, Total: int(total)}, nil
}

func searchSort(sort domainbuyrequest.Sort) primitive.D {
	switch sort {
	case domainbuyrequest.SortByUpdated:
		return bson.D{{Key: "updated_at", Value: -1}}
	case domainbuyrequest.SortByPriceAsc:
		return bson.D{{Key: "max_price_cents", Value: 1}, {Key: "created_at", Value: -1}}
	case domainbuyrequest.SortByPriceDesc:
		return bson.D{{Key: "max_price_cents", Value: -1}, {Key: "created_at", Value: -1}}
	default:
		return bson.D{{Key: "created_at", Value: -1}}
	}
}

type buyRequestDocument struct {
	ID            string   `bson:"_id"`
	Owner         string   `bson:"owner"`
	Title         string   `bson:"title"`
	Description   string   `bson:"description"`
	MinPriceCents int64    `bson:"min_price_cents"`
	MaxPriceCents int64    `bson:"max_price_cents"`
	Zone          string   `bson:"zone"`
	Condition     string   `bson:"condition"`
	Status        string   `bson:"status"`
	Images        []string `bson:"images"`
	CreatedAt     int64    `bson:"created_at"`
	UpdatedAt     int64    `bson:"updated_at"`
	Version       int64    `bson:"version"`
}

func newBuyRequestDocument(b *domainbuyrequest.BuyRequest) buyRequestDocument {
	return buyRequestDocument{
		ID:            string(b.ID),
		Owner:         string(b.Owner),
		Title:         b.Title,
		Description:   b.Description,
		MinPriceCents: b.MinPriceCents,
		MaxPriceCents: b.MaxPriceCents,
		Zone:          b.Zone,
		Condition:     string(b.Condition),
		Status:        string(b.Status),
		Images:        b.Images,
		CreatedAt:     b.CreatedAt.UnixMilli(),
		UpdatedAt:     b.UpdatedAt.UnixMilli(),
		Version:       b.Version,
	}
}

func (d buyRequestDocument) toAggregate() *domainbuyrequest.BuyRequest {
	return &domainbuyrequest.BuyRequest{
		ID:            domainbuyrequest.BuyRequestID(d.ID),
		Owner:         domainbuyrequest.OwnerID(d.Owner),
		Title:         d.Title,
		Description:   d.Description,
		MinPriceCents: d.MinPriceCents,
		MaxPriceCents: d.MaxPriceCents,
		Zone:          d.Zone,
		Condition:     domainbuyrequest.Condition(d.Condition),
		Status:        domainbuyrequest.Status(d.Status),
		Images:        d.Images,
		CreatedAt:     timestampToTime(d.CreatedAt),
		UpdatedAt:     timestampToTime(d.UpdatedAt),
		Version:       d.Version,
	}
}

func timestampToTime(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
