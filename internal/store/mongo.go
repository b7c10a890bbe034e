package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/isdelr/accountd/internal/models"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// UsersCollection is the MongoDB collection holding user documents.
const UsersCollection = "users"

// userDocument mirrors the document layout used by earlier deployments, so
// existing collections can be served without migration.
type userDocument struct {
	ID             bson.ObjectID `bson:"_id,omitempty"`
	Email          string        `bson:"email"`
	Username       string        `bson:"username"`
	Authentication authDocument  `bson:"authentication"`
	CreatedAt      time.Time     `bson:"createdAt,omitempty"`
}

type authDocument struct {
	Password     string `bson:"password,omitempty"`
	Salt         string `bson:"salt,omitempty"`
	SessionToken string `bson:"sessionToken,omitempty"`
}

func (d userDocument) toModel() *models.User {
	return &models.User{
		ID:       d.ID.Hex(),
		Email:    d.Email,
		Username: d.Username,
		Authentication: models.Authentication{
			Salt:         d.Authentication.Salt,
			PasswordHash: d.Authentication.Password,
			SessionToken: d.Authentication.SessionToken,
		},
		CreatedAt: d.CreatedAt,
	}
}

// projection excludes every credential field that was not requested.
func (fs fieldSet) projection() bson.D {
	var p bson.D
	if !fs.salt {
		p = append(p, bson.E{Key: "authentication.salt", Value: 0})
	}
	if !fs.passwordHash {
		p = append(p, bson.E{Key: "authentication.password", Value: 0})
	}
	if !fs.sessionToken {
		p = append(p, bson.E{Key: "authentication.sessionToken", Value: 0})
	}
	return p
}

// MongoStore keeps users in a MongoDB collection.
type MongoStore struct {
	coll *mongo.Collection
}

// NewMongoStore creates a MongoStore and ensures the unique email index exists.
func NewMongoStore(ctx context.Context, db *mongo.Database) (*MongoStore, error) {
	coll := db.Collection(UsersCollection)
	_, err := coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return nil, fmt.Errorf("create email index: %w", err)
	}
	return &MongoStore{coll: coll}, nil
}

func (s *MongoStore) findOne(ctx context.Context, filter bson.D, fields []Field) (*models.User, error) {
	opts := options.FindOne()
	if p := selectFields(fields).projection(); len(p) > 0 {
		opts.SetProjection(p)
	}

	var doc userDocument
	if err := s.coll.FindOne(ctx, filter, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return doc.toModel(), nil
}

// List retrieves all users.
func (s *MongoStore) List(ctx context.Context) ([]models.User, error) {
	opts := options.Find().
		SetProjection(selectFields(nil).projection()).
		SetSort(bson.D{{Key: "_id", Value: 1}})
	cur, err := s.coll.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("find users: %w", err)
	}

	var docs []userDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode users: %w", err)
	}
	users := make([]models.User, 0, len(docs))
	for _, d := range docs {
		users = append(users, *d.toModel())
	}
	return users, nil
}

// FindByEmail retrieves a single user by their email.
func (s *MongoStore) FindByEmail(ctx context.Context, email string, fields ...Field) (*models.User, error) {
	return s.findOne(ctx, bson.D{{Key: "email", Value: email}}, fields)
}

// FindByID retrieves a single user by their hex ObjectID.
func (s *MongoStore) FindByID(ctx context.Context, id string, fields ...Field) (*models.User, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	return s.findOne(ctx, bson.D{{Key: "_id", Value: oid}}, fields)
}

// FindBySessionToken retrieves the user holding the given session token.
func (s *MongoStore) FindBySessionToken(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, ErrNotFound
	}
	return s.findOne(ctx, bson.D{{Key: "authentication.sessionToken", Value: token}}, []Field{FieldSessionToken})
}

// Create inserts a new user document.
func (s *MongoStore) Create(ctx context.Context, user *models.User) (*models.User, error) {
	doc := userDocument{
		ID:       bson.NewObjectID(),
		Email:    user.Email,
		Username: user.Username,
		Authentication: authDocument{
			Password:     user.Authentication.PasswordHash,
			Salt:         user.Authentication.Salt,
			SessionToken: user.Authentication.SessionToken,
		},
		CreatedAt: time.Now().UTC().Truncate(time.Millisecond),
	}
	if _, err := s.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return doc.toModel(), nil
}

// Save updates a user's mutable fields in place.
func (s *MongoStore) Save(ctx context.Context, user *models.User) (*models.User, error) {
	oid, err := bson.ObjectIDFromHex(user.ID)
	if err != nil {
		return nil, ErrNotFound
	}

	set := bson.D{
		{Key: "email", Value: user.Email},
		{Key: "username", Value: user.Username},
	}
	if user.Authentication.SessionToken != "" {
		set = append(set, bson.E{Key: "authentication.sessionToken", Value: user.Authentication.SessionToken})
	}

	res, err := s.coll.UpdateOne(ctx, bson.D{{Key: "_id", Value: oid}}, bson.D{{Key: "$set", Value: set}})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("update user: %w", err)
	}
	if res.MatchedCount == 0 {
		return nil, ErrNotFound
	}

	saved := *user
	return &saved, nil
}

// Delete removes a user document and returns it.
func (s *MongoStore) Delete(ctx context.Context, id string) (*models.User, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}

	opts := options.FindOneAndDelete().SetProjection(selectFields(nil).projection())
	var doc userDocument
	if err := s.coll.FindOneAndDelete(ctx, bson.D{{Key: "_id", Value: oid}}, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("delete user: %w", err)
	}
	return doc.toModel(), nil
}
