package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainbuyrequest "github.com/locomproapp/locompro/internal/domain/buyrequest"
	domainoffer "github.com/locomproapp/locompro/internal/domain/offer"
	domainreview "github.com/locomproapp/locompro/internal/domain/review"
)

type ReviewRepository struct {
	col *mongo.Collection
}

func NewReviewRepository(db *mongo.Database) *ReviewRepository {
	return &ReviewRepository{col: db.Collection("reviews")}
}

func (r *ReviewRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "offer_id", Value: 1}, {Key: "author_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "subject_id", Value: 1}, {Key: "created_at", Value: -1}}},
	})
	return err
}

func (r *ReviewRepository) ByOffer(ctx context.Context, offerID domainoffer.OfferID, authorID string) (*domainreview.Review, error) {
	filter := bson.M{"offer_id": string(offerID), "author_id": authorID}
	var doc reviewDocument
	if err := r.col.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainreview.ErrNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *ReviewRepository) ListBySubject(ctx context.Context, subjectID string, limit, offset int) ([]*domainreview.Review, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(int64(offset))
	if limit > 0 {
		opts = opts.SetLimit(int64(limit))
	}
	cursor, err := r.col.Find(ctx, bson.M{"subject_id": subjectID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	items := make([]*domainreview.Review, 0)
	for cursor.Next(ctx) {
		var doc reviewDocument
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

func (r *ReviewRepository) Save(ctx context.Context, review *domainreview.Review) error {
	doc := reviewDocument{
		ID:           string(review.ID),
		BuyRequestID: string(review.BuyRequestID),
		OfferID:      string(review.OfferID),
		AuthorID:     review.AuthorID,
		SubjectID:    review.SubjectID,
		Rating:       review.Rating,
		Text:         review.Text,
		CreatedAt:    review.CreatedAt.UnixMilli(),
	}
	opts := options.Replace().SetUpsert(true)
	_, err := r.col.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, opts)
	return err
}

type reviewDocument struct {
	ID           string `bson:"_id"`
	BuyRequestID string `bson:"buy_request_id"`
	OfferID      string `bson:"offer_id"`
	AuthorID     string `bson:"author_id"`
	SubjectID    string `bson:"subject_id"`
	Rating       int    `bson:"rating"`
	Text         string `bson:"text"`
	CreatedAt    int64  `bson:"created_at"`
}

func (d reviewDocument) toAggregate() *domainreview.Review {
	return &domainreview.Review{
		ID:           domainreview.ReviewID(d.ID),
		BuyRequestID: domainbuyrequest.BuyRequestID(d.BuyRequestID),
		OfferID:      domainoffer.OfferID(d.OfferID),
		AuthorID:     d.AuthorID,
		SubjectID:    d.SubjectID,
		Rating:       d.Rating,
		Text:         d.Text,
		CreatedAt:    timestampToTime(d.CreatedAt),
	}
}
