package store

//Repository implementation (MongoDB)

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bookseed/internal/entity"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

type MongoStore struct {
	client *mongo.Client
}

func NewMongoStore(client *mongo.Client) *MongoStore {
	return &MongoStore{client: client}
}

// ConnectMongo opens a client and pings the primary within timeout.
func ConnectMongo(ctx context.Context, uri string, timeout time.Duration) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return client, nil
}

// CreateUser runs createUser in the user's database. An existing user makes
// the server reject the command; that error is returned unchanged.
func (s *MongoStore) CreateUser(ctx context.Context, u entity.AdminUser) error {
	if u.Database == "" {
		return errors.New("admin user database is required")
	}
	return s.client.Database(u.Database).RunCommand(ctx, createUserCommand(u)).Err()
}

// InsertBooks inserts books as one ordered batch. The database and collection
// are created by the server on first write.
func (s *MongoStore) InsertBooks(ctx context.Context, ns entity.Namespace, books []entity.Book) (int, error) {
	if len(books) == 0 {
		return 0, nil
	}
	_, err := s.collection(ns).InsertMany(ctx, bookDocuments(books), options.InsertMany().SetOrdered(true))
	return insertedCount(len(books), err), err
}

func (s *MongoStore) CountBooks(ctx context.Context, ns entity.Namespace) (int64, error) {
	return s.collection(ns).CountDocuments(ctx, bson.D{})
}

// ListBooks returns the collection in natural (insertion) order.
func (s *MongoStore) ListBooks(ctx context.Context, ns entity.Namespace) ([]entity.Book, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "$natural", Value: 1}}).
		SetProjection(bson.D{{Key: "_id", Value: 0}})

	cur, err := s.collection(ns).Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	books := []entity.Book{}
	if err := cur.All(ctx, &books); err != nil {
		return nil, err
	}
	return books, nil
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *MongoStore) collection(ns entity.Namespace) *mongo.Collection {
	return s.client.Database(ns.Database).Collection(ns.Collection)
}

func createUserCommand(u entity.AdminUser) bson.D {
	roles := bson.A{}
	for _, r := range u.Roles {
		roles = append(roles, bson.D{{Key: "role", Value: r.Role}, {Key: "db", Value: r.DB}})
	}
	return bson.D{
		{Key: "createUser", Value: u.Username},
		{Key: "pwd", Value: u.Password},
		{Key: "roles", Value: roles},
	}
}

// insertedCount reports how many of n documents an ordered InsertMany wrote.
// The driver's result lists an id for every document even when the batch
// failed, so the count comes from the error: an ordered batch stops at the
// first write error, and a write concern error alone means all were written.
func insertedCount(n int, err error) int {
	if err == nil {
		return n
	}
	var bwe mongo.BulkWriteException
	if !errors.As(err, &bwe) {
		return 0
	}
	if len(bwe.WriteErrors) == 0 {
		return n
	}
	return bwe.WriteErrors[0].Index
}

func bookDocuments(books []entity.Book) []interface{} {
	docs := make([]interface{}, 0, len(books))
	for _, b := range books {
		docs = append(docs, bson.D{{Key: "id", Value: b.ID}, {Key: "title", Value: b.Title}})
	}
	return docs
}
