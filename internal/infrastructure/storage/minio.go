package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/dcl-platform/metamorph/internal/domain/repository"
)

// minioClient defines the subset of MinIO operations the artifact store
// needs. The abstraction allows unit testing with mocks.
type minioClient interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// ClientConfig holds configuration for the MinIO-backed artifact store.
type ClientConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool

	// PublicBaseURL is the externally reachable prefix artifact URLs are
	// built from. It must end with a slash.
	PublicBaseURL string

	// CDNHost optionally replaces the authority component of artifact URLs
	// on read.
	CDNHost string
}

// Client implements repository.ObjectStorage on top of MinIO.
type Client struct {
	client        minioClient
	bucket        string
	publicBaseURL string
	cdnHost       string
}

// Compile-time verification that Client implements repository.ObjectStorage.
var _ repository.ObjectStorage = (*Client)(nil)

// NewClient creates a MinIO artifact store. It verifies the bucket exists
// during initialization to fail fast on misconfiguration.
func NewClient(ctx context.Context, cfg ClientConfig) (*Client, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	return newClientWithMinioClient(ctx, client, cfg)
}

// newClientWithMinioClient creates a Client with a given minioClient
// implementation. This is used for dependency injection in tests.
func newClientWithMinioClient(ctx context.Context, client minioClient, cfg ClientConfig) (*Client, error) {
	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", repository.ErrBucketNotFound, cfg.Bucket)
	}

	base := cfg.PublicBaseURL
	if base != "" && !strings.HasSuffix(base, "/") {
		base += "/"
	}

	return &Client{
		client:        client,
		bucket:        cfg.Bucket,
		publicBaseURL: base,
		cdnHost:       cfg.CDNHost,
	}, nil
}

// Upload stores an object under the given key.
func (c *Client) Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error {
	_, err := c.client.PutObject(ctx, c.bucket, key, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("failed to upload object: %w", err)
	}
	return nil
}

// ArtifactURL returns the public URL for a stored key. When a CDN host is
// configured, the authority component is rewritten to it.
func (c *Client) ArtifactURL(key string) string {
	raw := c.publicBaseURL + key
	if c.cdnHost == "" {
		return raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	u.Host = c.cdnHost
	return u.String()
}

// Bucket returns the configured bucket name.
func (c *Client) Bucket() string {
	return c.bucket
}
