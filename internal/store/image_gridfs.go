package store

import (
	"context"
	"fmt"
	"io"
	"time"

	"cordfriend.app/server/internal/model"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

type gridFSFileDoc struct {
	ID         int64     `bson:"_id"`
	Length     int64     `bson:"length"`
	UploadDate time.Time `bson:"uploadDate"`
	Filename   string    `bson:"filename"`
	Metadata   struct {
		ContentType string `bson:"contentType"`
	} `bson:"metadata"`
}

type gridFSImageStore struct {
	bucket *mongo.GridFSBucket
	files  *mongo.Collection
}

// NewGridFSImageStore stores images as GridFS files in the named bucket.
func NewGridFSImageStore(database *mongo.Database, bucketName string) ImageStore {
	return &gridFSImageStore{
		bucket: database.GridFSBucket(options.GridFSBucket().SetName(bucketName)),
		files:  database.Collection(bucketName + ".files"),
	}
}

func (s *gridFSImageStore) Put(ctx context.Context, image *model.Image, content io.Reader) error {
	counter := &countingReader{r: content}
	opts := options.GridFSUpload().SetMetadata(bson.D{{Key: "contentType", Value: image.ContentType}})
	if err := s.bucket.UploadFromStreamWithID(ctx, image.ID, image.Filename, counter, opts); err != nil {
		return fmt.Errorf("uploading image %d: %w", image.ID, translate(err))
	}
	image.Length = counter.n
	image.UploadedAt = time.Now().UTC()
	return nil
}

func (s *gridFSImageStore) Open(ctx context.Context, imageID int64) (*model.Image, io.ReadCloser, error) {
	var doc gridFSFileDoc
	if err := s.files.FindOne(ctx, bson.D{{Key: "_id", Value: imageID}}).Decode(&doc); err != nil {
		return nil, nil, translate(err)
	}
	stream, err := s.bucket.OpenDownloadStream(ctx, imageID)
	if err != nil {
		return nil, nil, translate(err)
	}
	return &model.Image{
		ID:          doc.ID,
		Filename:    doc.Filename,
		ContentType: doc.Metadata.ContentType,
		Length:      doc.Length,
		UploadedAt:  doc.UploadDate,
	}, stream, nil
}

func (s *gridFSImageStore) Delete(ctx context.Context, imageID int64) error {
	return translate(s.bucket.Delete(ctx, imageID))
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
