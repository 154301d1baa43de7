package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tendant/simple-upload/pkg/simpleupload"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// document mirrors the stored shape: filename, filePath, uploadDate.
type document struct {
	ID         primitive.ObjectID `bson:"_id,omitempty"`
	Filename   string             `bson:"filename"`
	FilePath   string             `bson:"filePath"`
	UploadDate time.Time          `bson:"uploadDate"`
}

func (d *document) toRecord() *simpleupload.Record {
	return &simpleupload.Record{
		ID:         d.ID.Hex(),
		Filename:   d.Filename,
		FilePath:   d.FilePath,
		UploadDate: d.UploadDate.UTC(),
	}
}

// Repository implements simpleupload.Repository on a MongoDB collection
type Repository struct {
	collection *mongo.Collection
	now        func() time.Time
}

// Connect opens a client and verifies it with a ping
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}
	return client, nil
}

// New creates a repository over the given collection
func New(collection *mongo.Collection) *Repository {
	return &Repository{
		collection: collection,
		now:        time.Now,
	}
}

// NewWithClient creates a repository over database.collection
func NewWithClient(client *mongo.Client, database, collection string) *Repository {
	return New(client.Database(database).Collection(collection))
}

func (r *Repository) Create(ctx context.Context, filename, filePath string) (*simpleupload.Record, error) {
	doc := &document{
		ID:         primitive.NewObjectID(),
		Filename:   filename,
		FilePath:   filePath,
		UploadDate: r.now().UTC().Truncate(time.Millisecond),
	}

	if _, err := r.collection.InsertOne(ctx, doc); err != nil {
		return nil, fmt.Errorf("failed to insert document: %w", err)
	}
	return doc.toRecord(), nil
}

func (r *Repository) GetByID(ctx context.Context, id string) (*simpleupload.Record, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, simpleupload.ErrNotFound
	}

	var doc document
	if err := r.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		return nil, mapError("find document", err)
	}
	return doc.toRecord(), nil
}

func (r *Repository) Update(ctx context.Context, id string, update simpleupload.RecordUpdate) (*simpleupload.Record, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, simpleupload.ErrNotFound
	}
	if update.IsEmpty() {
		return r.GetByID(ctx, id)
	}

	set := bson.M{}
	if update.Filename != nil {
		set["filename"] = *update.Filename
	}
	if update.FilePath != nil {
		set["filePath"] = *update.FilePath
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var doc document
	err = r.collection.FindOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$set": set}, opts).Decode(&doc)
	if err != nil {
		return nil, mapError("update document", err)
	}
	return doc.toRecord(), nil
}

func (r *Repository) DeleteByID(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return simpleupload.ErrNotFound
	}

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	if result.DeletedCount == 0 {
		return simpleupload.ErrNotFound
	}
	return nil
}

func (r *Repository) List(ctx context.Context) ([]*simpleupload.Record, error) {
	opts := options.Find().SetSort(bson.D{{Key: "uploadDate", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}

	var docs []document
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode documents: %w", err)
	}

	records := make([]*simpleupload.Record, 0, len(docs))
	for i := range docs {
		records = append(records, docs[i].toRecord())
	}
	return records, nil
}

func mapError(op string, err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return simpleupload.ErrNotFound
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}
