package clinic

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const mongoCollection = "clinic_documents"

// mongoRecord wraps the encoded document. The body is kept as JSON text so
// every store shares one codec and one key order.
type mongoRecord struct {
	ID        string    `bson:"_id"`
	Body      string    `bson:"body"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// MongoStore keeps the document in a single MongoDB record.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
	id     string
}

// ConnectMongo dials uri and verifies the connection with a ping.
func ConnectMongo(ctx context.Context, uri, database string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return NewMongoStore(client, database, DefaultDocumentID), nil
}

func NewMongoStore(client *mongo.Client, database, id string) *MongoStore {
	if id == "" {
		id = DefaultDocumentID
	}
	return &MongoStore{
		client: client,
		coll:   client.Database(database).Collection(mongoCollection),
		id:     id,
	}
}

func (s *MongoStore) Load(ctx context.Context) (*Document, error) {
	var rec mongoRecord
	err := s.coll.FindOne(ctx, bson.M{"_id": s.id}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return NewDocument(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("find clinic document: %w", err)
	}
	return Decode([]byte(rec.Body))
}

func (s *MongoStore) Save(ctx context.Context, doc *Document) error {
	data, err := Encode(doc)
	if err != nil {
		return err
	}
	rec := mongoRecord{ID: s.id, Body: string(data), UpdatedAt: time.Now().UTC()}
	_, err = s.coll.ReplaceOne(ctx, bson.M{"_id": s.id}, rec, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("replace clinic document: %w", err)
	}
	return nil
}

func (s *MongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
