package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mamadbah2/agritrace/internal/domain/models"
)

const (
	usersCollection    = "users"
	activityCollection = "ledger_activity"
)

// Repository defines the persistence operations for accounts and the
// ledger write-activity trail.
type Repository interface {
	InsertUser(ctx context.Context, user models.User) (string, error)
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	InsertActivity(ctx context.Context, activity models.Activity) error
	BatchIDsSince(ctx context.Context, since time.Time) ([]string, error)
}

// MongoDBRepository implements Repository on top of MongoDB.
type MongoDBRepository struct {
	client *mongo.Client
	dbName string
}

// NewMongoDBRepository connects, verifies the connection and ensures
// the unique email index exists.
func NewMongoDBRepository(ctx context.Context, uri string, dbName string) (*MongoDBRepository, error) {
	clientOptions := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	repo := &MongoDBRepository{client: client, dbName: dbName}

	_, err = repo.users().Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to ensure email index: %w", err)
	}

	return repo, nil
}

// InsertUser stores a new account and returns the assigned id. A
// duplicate email maps to models.ErrEmailTaken.
func (r *MongoDBRepository) InsertUser(ctx context.Context, user models.User) (string, error) {
	res, err := r.users().InsertOne(ctx, user)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return "", models.ErrEmailTaken
		}
		return "", fmt.Errorf("failed to insert user: %w", err)
	}

	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return fmt.Sprintf("%v", res.InsertedID), nil
	}
	return oid.Hex(), nil
}

// FindUserByEmail looks an account up by email. A missing account
// returns (nil, nil).
func (r *MongoDBRepository) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.users().FindOne(ctx, bson.M{"email": email}).Decode(&user)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	return &user, nil
}

// InsertActivity appends one confirmed-write record to the audit trail.
func (r *MongoDBRepository) InsertActivity(ctx context.Context, activity models.Activity) error {
	if _, err := r.activities().InsertOne(ctx, activity); err != nil {
		return fmt.Errorf("failed to insert activity: %w", err)
	}
	return nil
}

// BatchIDsSince returns the distinct batch ids touched by writes on or
// after the given instant.
func (r *MongoDBRepository) BatchIDsSince(ctx context.Context, since time.Time) ([]string, error) {
	raw, err := r.activities().Distinct(ctx, "batch_id", bson.M{
		"created_at": bson.M{"$gte": since},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list batch ids: %w", err)
	}

	ids := make([]string, 0, len(raw))
	for _, v := range raw {
		if id, ok := v.(string); ok {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// Close closes the MongoDB connection.
func (r *MongoDBRepository) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}

func (r *MongoDBRepository) users() *mongo.Collection {
	return r.client.Database(r.dbName).Collection(usersCollection)
}

func (r *MongoDBRepository) activities() *mongo.Collection {
	return r.client.Database(r.dbName).Collection(activityCollection)
}
