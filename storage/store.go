// Package storage talks to the remote object store: it uploads finished
// containers and rebuilds the recordings index the paired app browses.
package storage

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Options configure the remote store namespace for one device.
type Options struct {
	Bucket       string
	Prefix       string // <prefix>/<deviceId>, no trailing slash
	Region       string
	SignedURLTTL time.Duration
	PageSize     int
}

type objectAPI interface {
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type presignAPI interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// Store is the device's view of its remote recording namespace.
type Store struct {
	client  objectAPI
	presign presignAPI
	opts    Options
}

// NewStore builds a Store against the real S3 API using the default
// credential chain.
func NewStore(ctx context.Context, opts Options) (*Store, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(opts.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(cfg)
	return &Store{
		client:  client,
		presign: s3.NewPresignClient(client),
		opts:    opts,
	}, nil
}

// Upload stores the local container under the device namespace. The remote
// key is <prefix>/<basename>.
func (s *Store) Upload(ctx context.Context, localPath string) error {
	file, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", localPath, err)
	}
	defer file.Close()

	key := s.opts.Prefix + "/" + filepath.Base(localPath)
	log.Printf("S3: Uploading %s -> s3://%s/%s", localPath, s.opts.Bucket, key)

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.opts.Bucket),
		Key:         aws.String(key),
		Body:        file,
		ContentType: aws.String("video/mp4"),
	})
	if err != nil {
		return fmt.Errorf("upload of %s failed: %w", key, err)
	}

	log.Printf("S3: Upload successful: %s", key)
	return nil
}

// SignedURL issues a time-limited access URL for the recording with the
// given id. Failures surface as an error the caller converts to an error
// status; no URL ever leaks half-built.
func (s *Store) SignedURL(ctx context.Context, id string) (string, error) {
	key := fmt.Sprintf("%s/%s.mp4", s.opts.Prefix, id)

	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.opts.Bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(s.opts.SignedURLTTL))
	if err != nil {
		log.Printf("URL: Failed to generate signed URL for %s: %v", key, err)
		return "", err
	}

	return req.URL, nil
}
