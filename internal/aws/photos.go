package aws

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// DefaultURLExpiry is how long a presigned photo URL stays valid.
const DefaultURLExpiry = 15 * time.Minute

// PhotoStore writes uploaded photos to an S3 bucket and presigns URLs for
// reading them back.
type PhotoStore struct {
	S3        S3API
	Presign   S3PresignAPI
	Bucket    string
	URLExpiry time.Duration
}

// NewPhotoStore returns a PhotoStore bound to bucket. presign may be nil, in
// which case URL returns keys unchanged.
func NewPhotoStore(client S3API, presign S3PresignAPI, bucket string, expiry time.Duration) *PhotoStore {
	if expiry <= 0 {
		expiry = DefaultURLExpiry
	}
	return &PhotoStore{S3: client, Presign: presign, Bucket: bucket, URLExpiry: expiry}
}

// Put uploads body under key and returns the object key.
func (p *PhotoStore) Put(ctx context.Context, key string, body io.Reader, contentType string) (string, error) {
	input := &s3.PutObjectInput{
		Bucket: &p.Bucket,
		Key:    &key,
		Body:   body,
	}
	if contentType != "" {
		input.ContentType = &contentType
	}
	if _, err := p.S3.PutObject(ctx, input); err != nil {
		return "", fmt.Errorf("put object %s: %w", key, err)
	}
	return key, nil
}

// URL returns a presigned GET URL for key. Empty keys stay empty.
func (p *PhotoStore) URL(ctx context.Context, key string) (string, error) {
	if key == "" || p.Presign == nil {
		return key, nil
	}
	req, err := p.Presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: &p.Bucket,
		Key:    &key,
	}, s3.WithPresignExpires(p.URLExpiry))
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", key, err)
	}
	return req.URL, nil
}
