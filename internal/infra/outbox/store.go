package outbox

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	appoutbox "github.com/locomproapp/locompro/internal/app/outbox"
)

const (
	statusPending = "pending"
	statusSending = "sending"
	statusSent    = "sent"
)

// EventDocument is a staged integration event awaiting delivery.
type EventDocument struct {
	ID         string            `bson:"_id"`
	Name       string            `bson:"name"`
	Aggregate  string            `bson:"aggregate"`
	Payload    []byte            `bson:"payload"`
	Headers    map[string]string `bson:"headers"`
	Status     string            `bson:"status"`
	Attempts   int               `bson:"attempts"`
	NextRetry  time.Time         `bson:"next_retry"`
	LastError  string            `bson:"last_error,omitempty"`
	ClaimedBy  string            `bson:"claimed_by,omitempty"`
	OccurredAt time.Time         `bson:"occurred_at"`
	SentAt     time.Time         `bson:"sent_at,omitempty"`
}

// Store persists staged events in Mongo. Add runs inside the caller's session
// so events commit atomically with the aggregates that produced them; the
// worker delivers them afterwards.
type Store struct {
	col *mongo.Collection
}

func NewStore(db *mongo.Database) *Store {
	return &Store{col: db.Collection("outbox_events")}
}

func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "status", Value: 1}, {Key: "next_retry", Value: 1}},
	})
	return err
}

func (s *Store) Add(ctx context.Context, record appoutbox.EventRecord) error {
	doc := EventDocument{
		ID:         record.ID,
		Name:       record.Name,
		Aggregate:  record.Aggregate,
		Payload:    record.Payload,
		Headers:    record.Headers,
		Status:     statusPending,
		NextRetry:  time.Now().UTC(),
		OccurredAt: record.OccurredAt,
	}
	_, err := s.col.InsertOne(ctx, doc)
	return err
}

// Flush is a no-op: delivery belongs to the worker, not the request path.
func (s *Store) Flush(ctx context.Context) error {
	return nil
}

// Claim atomically takes one due pending event for the given worker.
func (s *Store) Claim(ctx context.Context, workerID string) (*EventDocument, error) {
	filter := bson.M{
		"status":     statusPending,
		"next_retry": bson.M{"$lte": time.Now().UTC()},
	}
	update := bson.M{
		"$set": bson.M{"status": statusSending, "claimed_by": workerID},
		"$inc": bson.M{"attempts": 1},
	}
	opts := options.FindOneAndUpdate().
		SetSort(bson.D{{Key: "occurred_at", Value: 1}}).
		SetReturnDocument(options.After)
	var doc EventDocument
	if err := s.col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &doc, nil
}

func (s *Store) MarkSent(ctx context.Context, id string) error {
	update := bson.M{"$set": bson.M{
		"status":  statusSent,
		"sent_at": time.Now().UTC(),
	}}
	_, err := s.col.UpdateOne(ctx, bson.M{"_id": id}, update)
	return err
}

func (s *Store) MarkFailed(ctx context.Context, id string, nextRetry time.Time, reason string) error {
	update := bson.M{"$set": bson.M{
		"status":     statusPending,
		"next_retry": nextRetry.UTC(),
		"last_error": reason,
	}}
	_, err := s.col.UpdateOne(ctx, bson.M{"_id": id}, update)
	return err
}

var _ appoutbox.Outbox = (*Store)(nil)
