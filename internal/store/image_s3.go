package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"cordfriend.app/server/common/id"
	"cordfriend.app/server/core/config"
	"cordfriend.app/server/internal/model"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

const s3KeyPrefix = "bot-images/"

type s3ImageStore struct {
	client *s3.Client
	bucket string
}

// NewS3ImageStore stores images as objects under bot-images/<id> in an
// S3-compatible bucket.
func NewS3ImageStore(ctx context.Context, cfg config.S3Config) (ImageStore, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	return &s3ImageStore{client: client, bucket: cfg.Bucket}, nil
}

func (s *s3ImageStore) key(imageID int64) *string {
	return aws.String(s3KeyPrefix + id.Format(imageID))
}

func (s *s3ImageStore) Put(ctx context.Context, image *model.Image, content io.Reader) error {
	// PutObject needs a seekable body to sign; images are small enough to buffer.
	data, err := io.ReadAll(content)
	if err != nil {
		return fmt.Errorf("reading image %d: %w", image.ID, err)
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         s.key(image.ID),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(image.ContentType),
		Metadata:    map[string]string{"filename": image.Filename},
	})
	if err != nil {
		return fmt.Errorf("uploading image %d: %w", image.ID, translateS3(err))
	}

	image.Length = int64(len(data))
	image.UploadedAt = time.Now().UTC()
	return nil
}

func (s *s3ImageStore) Open(ctx context.Context, imageID int64) (*model.Image, io.ReadCloser, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    s.key(imageID),
	})
	if err != nil {
		return nil, nil, translateS3(err)
	}

	image := &model.Image{
		ID:          imageID,
		Filename:    out.Metadata["filename"],
		ContentType: aws.ToString(out.ContentType),
		Length:      aws.ToInt64(out.ContentLength),
		UploadedAt:  aws.ToTime(out.LastModified),
	}
	return image, out.Body, nil
}

// Delete reports ErrNotFound for a missing object; S3 itself treats deleting a
// missing key as success.
func (s *s3ImageStore) Delete(ctx context.Context, imageID int64) error {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    s.key(imageID),
	})
	if err != nil {
		return translateS3(err)
	}

	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    s.key(imageID),
	})
	if err != nil {
		return fmt.Errorf("deleting image %d: %w", imageID, translateS3(err))
	}
	return nil
}

func translateS3(err error) error {
	var noSuchKey *types.NoSuchKey
	var notFound *types.NotFound
	if errors.As(err, &noSuchKey) || errors.As(err, &notFound) {
		return ErrNotFound
	}
	return err
}
