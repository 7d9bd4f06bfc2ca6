package store

import (
	"bytes"
	"context"
	"errors"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Config selects the bucket artifacts are mirrored to. Region and
// credentials fall back to the standard AWS chain.
type S3Config struct {
	Bucket string
	Prefix string
	Region string
	// Endpoint targets an S3-compatible service; it implies path-style addressing.
	Endpoint string
}

// S3Mirror uploads artifacts with PutObject.
type S3Mirror struct {
	client *s3.Client
	bucket string
	prefix string
}

func NewS3Mirror(ctx context.Context, cfg S3Config) (*S3Mirror, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("s3 mirror: bucket not set")
	}
	var loadOpts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(cfg.Region))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, err
	}
	return newS3Mirror(awsCfg, cfg), nil
}

func newS3Mirror(awsCfg aws.Config, cfg S3Config) *S3Mirror {
	c := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return &S3Mirror{client: c, bucket: cfg.Bucket, prefix: cfg.Prefix}
}

// Key is where name lands in the bucket.
func (m *S3Mirror) Key(name string) string {
	if m.prefix == "" {
		return name
	}
	return path.Join(m.prefix, name)
}

func (m *S3Mirror) Put(ctx context.Context, name string, body []byte, contentType string) error {
	in := &s3.PutObjectInput{
		Bucket: aws.String(m.bucket),
		Key:    aws.String(m.Key(name)),
		Body:   bytes.NewReader(body),
	}
	if contentType != "" {
		in.ContentType = aws.String(contentType)
	}
	_, err := m.client.PutObject(ctx, in)
	return err
}
