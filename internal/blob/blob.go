// Package blob stores uploaded files and images in S3-compatible object
// storage and maps public URLs back to object keys.
package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Object describes an upload.
type Object struct {
	Key                string
	ContentType        string
	ContentDisposition string
	Size               int64
	Body               io.Reader
}

// Store is the blob store used by the upload gateway and the garbage collector.
type Store interface {
	// Put uploads obj and returns its public URL.
	Put(ctx context.Context, obj Object) (string, error)
	// Delete removes key. Deleting a missing key succeeds.
	Delete(ctx context.Context, key string) error
	// KeyFromURL returns the object key a public URL points at. ok is false
	// for URLs that do not belong to this store.
	KeyFromURL(raw string) (key string, ok bool)
}

// Config selects the bucket and how public URLs are built.
type Config struct {
	Bucket string
	Region string
	// Endpoint overrides the S3 endpoint (MinIO, localstack). Path-style
	// addressing is used when set.
	Endpoint string
	// PublicBaseURL prefixes object keys in returned URLs. Defaults to the
	// virtual-hosted AWS URL of the bucket.
	PublicBaseURL string
}

type s3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	HeadBucket(ctx context.Context, in *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
}

// S3 implements Store on top of aws-sdk-go-v2.
type S3 struct {
	api    s3API
	bucket string
	base   *url.URL
}

// NewS3 loads AWS credentials from the default chain and builds a store.
func NewS3(ctx context.Context, cfg Config) (*S3, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("blob: bucket is required")
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("blob: load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return newS3(client, cfg)
}

func newS3(api s3API, cfg Config) (*S3, error) {
	raw := cfg.PublicBaseURL
	if raw == "" {
		raw = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
	}
	base, err := url.Parse(strings.TrimRight(raw, "/"))
	if err != nil || base.Host == "" {
		return nil, fmt.Errorf("blob: bad public base url %q", raw)
	}
	return &S3{api: api, bucket: cfg.Bucket, base: base}, nil
}

// Put implements Store.
func (s *S3) Put(ctx context.Context, obj Object) (string, error) {
	in := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(obj.Key),
		Body:   obj.Body,
	}
	if obj.ContentType != "" {
		in.ContentType = aws.String(obj.ContentType)
	}
	if obj.ContentDisposition != "" {
		in.ContentDisposition = aws.String(obj.ContentDisposition)
	}
	if obj.Size > 0 {
		in.ContentLength = aws.Int64(obj.Size)
	}
	if _, err := s.api.PutObject(ctx, in); err != nil {
		return "", fmt.Errorf("put %s: %w", obj.Key, err)
	}
	return s.URL(obj.Key), nil
}

// Delete implements Store.
func (s *S3) Delete(ctx context.Context, key string) error {
	_, err := s.api.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// Ping checks that the bucket is reachable.
func (s *S3) Ping(ctx context.Context) error {
	_, err := s.api.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)})
	return err
}

// URL returns the public URL of key. Each path segment is escaped.
func (s *S3) URL(key string) string {
	segs := strings.Split(key, "/")
	for i, seg := range segs {
		segs[i] = url.PathEscape(seg)
	}
	return s.base.String() + "/" + strings.Join(segs, "/")
}

// KeyFromURL implements Store. The key is the percent-decoded URL path with
// the base path removed.
func (s *S3) KeyFromURL(raw string) (string, bool) {
	u, err := url.Parse(raw)
	if err != nil || !strings.EqualFold(u.Host, s.base.Host) {
		return "", false
	}
	prefix := s.base.Path + "/"
	if !strings.HasPrefix(u.Path, prefix) {
		return "", false
	}
	key := strings.TrimPrefix(u.Path, prefix)
	if key == "" {
		return "", false
	}
	return key, true
}

// ErrDisabled is returned by Disabled.Put.
var ErrDisabled = errors.New("blob storage is not configured")

// Disabled is the Store used when no bucket is configured. It rejects
// uploads and owns no URLs, so post edits never try to delete anything.
type Disabled struct{}

func (Disabled) Put(context.Context, Object) (string, error) { return "", ErrDisabled }
func (Disabled) Delete(context.Context, string) error        { return nil }
func (Disabled) KeyFromURL(string) (string, bool)            { return "", false }
