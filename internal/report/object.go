package report

import (
	"bytes"
	"context"
	"fmt"
	"path"

	"cloud.google.com/go/storage"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/coder/quartz"

	"gw-audit/internal/domain"
)

// ObjectPutter stores one object and returns its URI.
type ObjectPutter interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// ObjectStore archives tables as CSV objects under a key prefix.
type ObjectStore struct {
	putter ObjectPutter
	prefix string
	clock  quartz.Clock
}

// NewObjectStore creates an archiving writer.
func NewObjectStore(putter ObjectPutter, prefix string, clock quartz.Clock) *ObjectStore {
	return &ObjectStore{putter: putter, prefix: prefix, clock: clock}
}

// WriteTable uploads t as CSV and returns the object URI.
func (o *ObjectStore) WriteTable(ctx context.Context, t domain.Table) (string, error) {
	data, err := EncodeCSV(t)
	if err != nil {
		return "", err
	}
	key := path.Join(o.prefix, objectName(t.Name, o.clock))
	return o.putter.Put(ctx, key, data, "text/csv")
}

// GCSPutter writes objects to a Google Cloud Storage bucket.
type GCSPutter struct {
	client *storage.Client
	bucket string
}

// NewGCSPutter creates a putter for bucket.
func NewGCSPutter(client *storage.Client, bucket string) *GCSPutter {
	return &GCSPutter{client: client, bucket: bucket}
}

// Put uploads data to gs://bucket/key.
func (p *GCSPutter) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	w := p.client.Bucket(p.bucket).Object(key).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("upload gs://%s/%s: %w", p.bucket, key, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("finalize gs://%s/%s: %w", p.bucket, key, err)
	}
	return fmt.Sprintf("gs://%s/%s", p.bucket, key), nil
}

// S3Putter writes objects to an S3-compatible bucket.
type S3Putter struct {
	client *s3.Client
	bucket string
}

// NewS3Putter creates a putter for bucket.
func NewS3Putter(client *s3.Client, bucket string) *S3Putter {
	return &S3Putter{client: client, bucket: bucket}
}

// Put uploads data to s3://bucket/key.
func (p *S3Putter) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	_, err := p.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(p.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("upload s3://%s/%s: %w", p.bucket, key, err)
	}
	return fmt.Sprintf("s3://%s/%s", p.bucket, key), nil
}

var (
	_ domain.TableWriter = (*ObjectStore)(nil)
	_ ObjectPutter       = (*GCSPutter)(nil)
	_ ObjectPutter       = (*S3Putter)(nil)
)
