package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainbuyrequest "github.com/locomproapp/locompro/internal/domain/buyrequest"
	domainchat "github.com/locomproapp/locompro/internal/domain/chat"
	domainoffer "github.com/locomproapp/locompro/internal/domain/offer"
)

type ChatRepository struct {
	chats    *mongo.Collection
	messages *mongo.Collection
}

func NewChatRepository(db *mongo.Database) *ChatRepository {
	return &ChatRepository{
		chats:    db.Collection("agg_chat"),
		messages: db.Collection("chat_messages"),
	}
}

// EnsureIndexes creates the unique triple index that makes find-or-create
// race-safe: concurrent opens for the same triple collapse to one chat.
func (r *ChatRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.chats.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "buy_request_id", Value: 1},
			{Key: "buyer_id", Value: 1},
			{Key: "seller_id", Value: 1},
		},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return err
	}
	_, err = r.messages.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "chat_id", Value: 1}, {Key: "created_at", Value: 1}},
	})
	return err
}

func (r *ChatRepository) ByID(ctx context.Context, id domainchat.ChatID) (*domainchat.Chat, error) {
	var doc chatDocument
	if err := r.chats.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainchat.ErrNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *ChatRepository) FindByTriple(ctx context.Context, buyRequestID domainbuyrequest.BuyRequestID, buyerID, sellerID string) (*domainchat.Chat, error) {
	filter := bson.M{
		"buy_request_id": string(buyRequestID),
		"buyer_id":       buyerID,
		"seller_id":      sellerID,
	}
	var doc chatDocument
	if err := r.chats.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainchat.ErrNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *ChatRepository) Save(ctx context.Context, chat *domainchat.Chat) error {
	doc := newChatDocument(chat)
	opts := options.Replace().SetUpsert(true)
	if _, err := r.chats.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, opts); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domainchat.ErrAlreadyExists
		}
		return err
	}
	return nil
}

func (r *ChatRepository) ListByParticipant(ctx context.Context, userID string) ([]*domainchat.Chat, error) {
	filter := bson.M{"$or": bson.A{
		bson.M{"buyer_id": userID},
		bson.M{"seller_id": userID},
	}}
	opts := options.Find().SetSort(bson.D{{Key: "updated_at", Value: -1}})
	cursor, err := r.chats.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	items := make([]*domainchat.Chat, 0)
	for cursor.Next(ctx) {
		var doc chatDocument
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

func (r *ChatRepository) AppendMessage(ctx context.Context, message *domainchat.Message) error {
	doc := messageDocument{
		ID:        message.ID,
		ChatID:    string(message.ChatID),
		SenderID:  message.SenderID,
		Text:      message.Text,
		CreatedAt: message.CreatedAt.UnixMilli(),
	}
	if _, err := r.messages.InsertOne(ctx, doc); err != nil {
		return err
	}
	update := bson.M{"$max": bson.M{"updated_at": doc.CreatedAt}}
	_, err := r.chats.UpdateOne(ctx, bson.M{"_id": doc.ChatID}, update)
	return err
}

func (r *ChatRepository) ListMessages(ctx context.Context, chatID domainchat.ChatID, limit int) ([]*domainchat.Message, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if limit > 0 {
		opts = opts.SetLimit(int64(limit))
	}
	cursor, err := r.messages.Find(ctx, bson.M{"chat_id": string(chatID)}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	newestFirst := make([]*domainchat.Message, 0)
	for cursor.Next(ctx) {
		var doc messageDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		newestFirst = append(newestFirst, doc.toMessage())
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	// The query walks newest-first to honor the limit; callers read oldest-first.
	out := make([]*domainchat.Message, 0, len(newestFirst))
	for i := len(newestFirst) - 1; i >= 0; i-- {
		out = append(out, newestFirst[i])
	}
	return out, nil
}

type chatDocument struct {
	ID           string `bson:"_id"`
	BuyRequestID string `bson:"buy_request_id"`
	BuyerID      string `bson:"buyer_id"`
	SellerID     string `bson:"seller_id"`
	OfferID      string `bson:"offer_id"`
	CreatedAt    int64  `bson:"created_at"`
	UpdatedAt    int64  `bson:"updated_at"`
}

func newChatDocument(c *domainchat.Chat) chatDocument {
	return chatDocument{
		ID:           string(c.ID),
		BuyRequestID: string(c.BuyRequestID),
		BuyerID:      c.BuyerID,
		SellerID:     c.SellerID,
		OfferID:      string(c.OfferID),
		CreatedAt:    c.CreatedAt.UnixMilli(),
		UpdatedAt:    c.UpdatedAt.UnixMilli(),
	}
}

func (d chatDocument) toAggregate() *domainchat.Chat {
	return &domainchat.Chat{
		ID:           domainchat.ChatID(d.ID),
		BuyRequestID: domainbuyrequest.BuyRequestID(d.BuyRequestID),
		BuyerID:      d.BuyerID,
		SellerID:     d.SellerID,
		OfferID:      domainoffer.OfferID(d.OfferID),
		CreatedAt:    timestampToTime(d.CreatedAt),
		UpdatedAt:    timestampToTime(d.UpdatedAt),
	}
}

type messageDocument struct {
	ID        string `bson:"_id"`
	ChatID    string `bson:"chat_id"`
	SenderID  string `bson:"sender_id"`
	Text      string `bson:"text"`
	CreatedAt int64  `bson:"created_at"`
}

func (d messageDocument) toMessage() *domainchat.Message {
	return &domainchat.Message{
		ID:        d.ID,
		ChatID:    domainchat.ChatID(d.ChatID),
		SenderID:  d.SenderID,
		Text:      d.Text,
		CreatedAt: timestampToTime(d.CreatedAt),
	}
}
