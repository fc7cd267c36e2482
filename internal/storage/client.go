package storage

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Client wraps MinIO and provides the blob-store operations the upload
// admission flow needs: presigned single-use write handles, metadata
// lookup at finalize, and fresh presigned read URLs for public serving.
type Client struct {
	mc      *minio.Client
	bucket  string
	enabled bool
}

// Config holds MinIO connection settings.
type Config struct {
	Endpoint        string // e.g. "minio:9000" or "localhost:9000"
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	UseSSL          bool
}

// ErrDisabled is returned when storage is not configured.
var ErrDisabled = fmt.Errorf("storage service not configured")

// ErrObjectMissing is returned when a metadata lookup cannot locate the
// object, i.e. the caller finalized with a handle it never wrote.
var ErrObjectMissing = fmt.Errorf("object not found in storage")

// NewClient creates a storage client. If config has empty Endpoint, the
// client is disabled (all ops return ErrDisabled).
func NewClient(cfg Config) (*Client, error) {
	if cfg.Endpoint == "" {
		return &Client{enabled: false}, nil
	}
	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}
	return &Client{mc: mc, bucket: cfg.Bucket, enabled: true}, nil
}

// EnsureBucket creates the bucket if it does not exist (idempotent).
func (c *Client) EnsureBucket(ctx context.Context) error {
	if !c.enabled {
		return ErrDisabled
	}
	exists, err := c.mc.BucketExists(ctx, c.bucket)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	return c.mc.MakeBucket(ctx, c.bucket, minio.MakeBucketOptions{})
}

// PresignedPut returns a time-bounded URL that accepts exactly one PUT
// of the object bytes for the given key. The expiry is aligned with the
// upload-intent TTL so an abandoned handle dies with its intent.
func (c *Client) PresignedPut(ctx context.Context, key string, expiry time.Duration) (string, error) {
	if !c.enabled {
		return "", ErrDisabled
	}
	u, err := c.mc.PresignedPutObject(ctx, c.bucket, key, expiry)
	if err != nil {
		return "", fmt.Errorf("presign put: %w", err)
	}
	return u.String(), nil
}

// ObjectMetadata is the stored-object metadata checked at finalize.
type ObjectMetadata struct {
	ContentType string
	Size        int64
}

// StatObject looks up metadata for a written object. Returns
// ErrObjectMissing when the key does not exist.
func (c *Client) StatObject(ctx context.Context, key string) (*ObjectMetadata, error) {
	if !c.enabled {
		return nil, ErrDisabled
	}
	info, err := c.mc.StatObject(ctx, c.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		var resp minio.ErrorResponse
		if errors.As(err, &resp) && resp.Code == "NoSuchKey" {
			return nil, ErrObjectMissing
		}
		return nil, fmt.Errorf("stat object: %w", err)
	}
	return &ObjectMetadata{
		ContentType: info.ContentType,
		Size:        info.Size,
	}, nil
}

// PresignedGet returns a fresh time-bounded download URL for the given
// key. A new URL is minted per request; nothing longer-lived than a
// single response ever leaves this package.
func (c *Client) PresignedGet(ctx context.Context, key string, expiry time.Duration) (string, error) {
	if !c.enabled {
		return "", ErrDisabled
	}
	u, err := c.mc.PresignedGetObject(ctx, c.bucket, key, expiry, url.Values{})
	if err != nil {
		return "", fmt.Errorf("presign get: %w", err)
	}
	return u.String(), nil
}

// Enabled reports whether the storage client is configured.
func (c *Client) Enabled() bool {
	return c.enabled
}
