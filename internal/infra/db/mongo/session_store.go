package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainauth "github.com/locomproapp/locompro/internal/domain/auth"
	domainuser "github.com/locomproapp/locompro/internal/domain/user"
)

type SessionStore struct {
	col *mongo.Collection
}

func NewSessionStore(db *mongo.Database) *SessionStore {
	return &SessionStore{col: db.Collection("sessions")}
}

// EnsureIndexes adds a TTL index so Mongo reaps expired sessions on its own;
// Get still checks expiry because the reaper runs with a delay.
func (s *SessionStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0),
		},
		{Keys: bson.D{{Key: "user_id", Value: 1}}},
	})
	return err
}

func (s *SessionStore) Save(ctx context.Context, session *domainauth.Session) error {
	roles := make([]string, 0, len(session.Roles))
	for _, role := range session.Roles {
		roles = append(roles, string(role))
	}
	doc := sessionDocument{
		Token:     string(session.Token),
		UserID:    string(session.UserID),
		Roles:     roles,
		CreatedAt: session.CreatedAt.UnixMilli(),
		ExpiresAt: session.ExpiresAt.UTC(),
	}
	opts := options.Replace().SetUpsert(true)
	_, err := s.col.ReplaceOne(ctx, bson.M{"_id": doc.Token}, doc, opts)
	return err
}

func (s *SessionStore) Get(ctx context.Context, token domainauth.Token) (*domainauth.Session, error) {
	var doc sessionDocument
	if err := s.col.FindOne(ctx, bson.M{"_id": string(token)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainauth.ErrSessionNotFound
		}
		return nil, err
	}
	session := doc.toSession()
	if session.Expired(time.Now()) {
		_, _ = s.col.DeleteOne(ctx, bson.M{"_id": string(token)})
		return nil, domainauth.ErrSessionNotFound
	}
	return session, nil
}

func (s *SessionStore) Delete(ctx context.Context, token domainauth.Token) error {
	_, err := s.col.DeleteOne(ctx, bson.M{"_id": string(token)})
	return err
}

func (s *SessionStore) DeleteByUser(ctx context.Context, userID domainuser.ID) error {
	_, err := s.col.DeleteMany(ctx, bson.M{"user_id": string(userID)})
	return err
}

type sessionDocument struct {
	Token     string    `bson:"_id"`
	UserID    string    `bson:"user_id"`
	Roles     []string  `bson:"roles"`
	CreatedAt int64     `bson:"created_at"`
	ExpiresAt time.Time `bson:"expires_at"`
}

func (d sessionDocument) toSession() *domainauth.Session {
	roles := make([]domainuser.Role, 0, len(d.Roles))
	for _, role := range d.Roles {
		roles = append(roles, domainuser.Role(role))
	}
	return &domainauth.Session{
		Token:     domainauth.Token(d.Token),
		UserID:    domainuser.ID(d.UserID),
		Roles:     roles,
		CreatedAt: timestampToTime(d.CreatedAt),
		ExpiresAt: d.ExpiresAt.UTC(),
	}
}
