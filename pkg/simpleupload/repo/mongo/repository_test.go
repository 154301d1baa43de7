package mongo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/tendant/simple-upload/pkg/simpleupload"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

func TestDocument_BSONShape(t *testing.T) {
	oid := primitive.NewObjectID()
	uploaded := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	doc := document{ID: oid, Filename: "image-1-1.gif", FilePath: "/uploads/image-1-1.gif", UploadDate: uploaded}

	raw, err := bson.Marshal(doc)
	assert.NoError(t, err)

	var fields bson.M
	assert.NoError(t, bson.Unmarshal(raw, &fields))
	assert.Equal(t, oid, fields["_id"])
	assert.Equal(t, "image-1-1.gif", fields["filename"])
	assert.Equal(t, "/uploads/image-1-1.gif", fields["filePath"])
	assert.Contains(t, fields, "uploadDate")

	rec := doc.toRecord()
	assert.Equal(t, oid.Hex(), rec.ID)
	assert.Equal(t, uploaded, rec.UploadDate)
}

func TestRepository_MalformedIDIsNotFound(t *testing.T) {
	// Malformed ids are rejected before touching the collection.
	repo := &Repository{}
	ctx := context.Background()

	_, err := repo.GetByID(ctx, "not-an-object-id")
	assert.ErrorIs(t, err, simpleupload.ErrNotFound)

	_, err = repo.Update(ctx, "xyz", simpleupload.RecordUpdate{})
	assert.ErrorIs(t, err, simpleupload.ErrNotFound)

	assert.ErrorIs(t, repo.DeleteByID(ctx, ""), simpleupload.ErrNotFound)
}

func TestMapError(t *testing.T) {
	assert.ErrorIs(t, mapError("find document", mongo.ErrNoDocuments), simpleupload.ErrNotFound)

	cause := errors.New("server selection timeout")
	err := mapError("find document", cause)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, simpleupload.ErrNotFound)
}
