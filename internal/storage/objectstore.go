package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/rs/zerolog"

	"github.com/JMAlloway/Check-sub001/internal/imaging"
)

// ObjectStoreProvider reads images from an S3-compatible object store, the
// production backend when the bank fronts its image archive with a gateway
// of its own rather than a mounted share.
type ObjectStoreProvider struct {
	logger   zerolog.Logger
	client   *s3.Client
	bucket   string
	maxBytes int64
}

// NewObjectStoreProvider builds a provider whose reads are capped at
// maxBytes, which should match the decoder's input limit.
func NewObjectStoreProvider(logger zerolog.Logger, endpoint, bucket, accessKey, secretKey string, maxBytes int64) *ObjectStoreProvider {
	if maxBytes <= 0 {
		maxBytes = imaging.DefaultMaxBytes
	}
	client := s3.New(s3.Options{
		BaseEndpoint: aws.String(endpoint),
		Region:       "us-east-1",
		Credentials:  credentials.NewStaticCredentialsProvider(accessKey, secretKey, ""),
		UsePathStyle: true,
	})
	return &ObjectStoreProvider{
		logger:   logger.With().Str("component", "object-storage").Logger(),
		client:   client,
		bucket:   bucket,
		maxBytes: maxBytes,
	}
}

func (p *ObjectStoreProvider) Name() string { return "object-store" }

func (p *ObjectStoreProvider) Fetch(ctx context.Context, path string) ([]byte, error) {
	key := objectKey(path)
	p.logger.Debug().Str("key", key).Msg("fetching object")
	return fetchWithRetry(ctx, func(ctx context.Context) ([]byte, error) {
		out, err := p.client.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(p.bucket),
			Key:    aws.String(key),
		})
		if err != nil {
			var noKey *s3types.NoSuchKey
			if errors.As(err, &noKey) {
				return nil, ErrNotFound
			}
			return nil, MarkTransient(fmt.Errorf("get object %s: %w", key, err))
		}
		defer out.Body.Close()

		data, err := readCapped(out.Body, p.maxBytes)
		if err != nil {
			return nil, MarkTransient(fmt.Errorf("read object %s: %w", key, err))
		}
		return data, nil
	})
}

// readCapped reads at most max+1 bytes. An oversized object comes back one
// byte over the cap, enough for the decoder's size check to reject it
// without the whole object ever sitting in memory.
func readCapped(r io.Reader, max int64) ([]byte, error) {
	return io.ReadAll(io.LimitReader(r, max+1))
}

func (p *ObjectStoreProvider) Probe(ctx context.Context) error {
	_, err := p.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(p.bucket)})
	if err != nil {
		return fmt.Errorf("object store unreachable: %w", err)
	}
	return nil
}

// objectKey maps a resolved physical path onto an object key: separators
// become "/" and any leading share prefix is stripped.
func objectKey(path string) string {
	key := strings.ReplaceAll(path, `\`, "/")
	return strings.TrimLeft(key, "/")
}
