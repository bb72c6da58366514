// Package mongo stores authcore identities in a MongoDB collection with a
// unique index on email.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MrEthical07/authcore"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// DefaultCollection is the collection used when none is configured.
const DefaultCollection = "users"

type userDocument struct {
	ID           bson.ObjectID `bson:"_id,omitempty"`
	Email        string        `bson:"email"`
	DisplayName  string        `bson:"display_name"`
	PasswordHash string        `bson:"password_hash"`
	Status       string        `bson:"status"`
	Roles        string        `bson:"roles"`
	CreatedAt    time.Time     `bson:"created_at"`
	UpdatedAt    time.Time     `bson:"updated_at"`
}

func (d userDocument) identity() authcore.Identity {
	return authcore.Identity{
		ID:           d.ID.Hex(),
		Email:        d.Email,
		DisplayName:  d.DisplayName,
		PasswordHash: d.PasswordHash,
		Status:       authcore.AccountStatus(d.Status),
		Roles:        d.Roles,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}

// Store implements authcore.UserStore on a *mongo.Collection.
type Store struct {
	users *mongo.Collection
	now   func() time.Time
}

// Connect dials uri and returns the database handle.
func Connect(uri, database string) (*mongo.Client, *mongo.Database, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, nil, fmt.Errorf("connect mongo: %w", err)
	}
	return client, client.Database(database), nil
}

// New ensures the unique email index and returns a Store on collection
// (DefaultCollection when empty).
func New(ctx context.Context, db *mongo.Database, collection string) (*Store, error) {
	if db == nil {
		return nil, errors.New("nil mongo database")
	}
	if collection == "" {
		collection = DefaultCollection
	}
	users := db.Collection(collection)

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}
	if _, err := users.Indexes().CreateMany(ctx, indexes); err != nil {
		return nil, fmt.Errorf("create user indexes: %w", err)
	}

	return &Store{users: users, now: time.Now}, nil
}

func (s *Store) GetByEmail(ctx context.Context, email string) (authcore.Identity, error) {
	return s.findOne(ctx, bson.M{"email": normalizeEmail(email)})
}

func (s *Store) GetByID(ctx context.Context, id string) (authcore.Identity, error) {
	objectID, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return authcore.Identity{}, authcore.ErrUserNotFound
	}
	return s.findOne(ctx, bson.M{"_id": objectID})
}

func (s *Store) Create(ctx context.Context, input authcore.CreateIdentityInput) (authcore.Identity, error) {
	now := s.now().UTC()
	doc := userDocument{
		Email:        normalizeEmail(input.Email),
		DisplayName:  input.DisplayName,
		PasswordHash: input.PasswordHash,
		Status:       string(input.Status),
		Roles:        input.Roles,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	result, err := s.users.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return authcore.Identity{}, authcore.ErrEmailTaken
		}
		return authcore.Identity{}, err
	}

	objectID, ok := result.InsertedID.(bson.ObjectID)
	if !ok {
		return authcore.Identity{}, errors.New("failed to convert inserted ID to ObjectID")
	}
	doc.ID = objectID
	return doc.identity(), nil
}

func (s *Store) UpdateStatus(ctx context.Context, id string, status authcore.AccountStatus) error {
	return s.set(ctx, id, bson.M{"status": string(status)})
}

func (s *Store) UpdatePasswordHash(ctx context.Context, id string, passwordHash string) error {
	return s.set(ctx, id, bson.M{"password_hash": passwordHash})
}

func (s *Store) UpdateRoles(ctx context.Context, id string, roles string) error {
	return s.set(ctx, id, bson.M{"roles": roles})
}

func (s *Store) findOne(ctx context.Context, filter bson.M) (authcore.Identity, error) {
	var doc userDocument
	if err := s.users.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return authcore.Identity{}, authcore.ErrUserNotFound
		}
		return authcore.Identity{}, err
	}
	return doc.identity(), nil
}

func (s *Store) set(ctx context.Context, id string, fields bson.M) error {
	objectID, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return authcore.ErrUserNotFound
	}
	fields["updated_at"] = s.now().UTC()

	result, err := s.users.UpdateOne(ctx, bson.M{"_id": objectID}, bson.M{"$set": fields})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return authcore.ErrUserNotFound
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

var _ authcore.UserStore = (*Store)(nil)
