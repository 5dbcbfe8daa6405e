package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"path"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Buy-request and offer photos land in a single S3-compatible bucket. The
// store owns the upload policy: images only, capped in size, keyed under the
// uploading user so every object traces back to an account.

// MaxImageBytes caps a single photo upload.
const MaxImageBytes = 10 << 20

var (
	ErrNotImage      = errors.New("s3: content type is not an image")
	ErrImageTooLarge = errors.New("s3: image exceeds the size limit")
	ErrUnavailable   = errors.New("s3: image store is not configured")
)

// Image is one photo upload. Size comes from the multipart header; the
// content type is the client's claim and only its image/ prefix is trusted.
type Image struct {
	OwnerID     string
	Filename    string
	ContentType string
	Size        int64
	Content     io.Reader
}

// ImageStore persists a photo and returns its public URL.
type ImageStore interface {
	StoreImage(ctx context.Context, img Image) (string, error)
}

// Store is a MinIO-backed ImageStore.
type Store struct {
	bucket        string
	publicBaseURL string
	client        *minio.Client
	logger        *slog.Logger
	newID         func() string
	initOnce      sync.Once
	initErr       error
}

// NewStore configures the image store against the provided endpoint and
// credentials. publicBaseURL overrides the endpoint in returned URLs when a
// CDN or reverse proxy fronts the bucket.
func NewStore(endpoint string, useSSL bool, accessKey, secretKey, bucket, publicBaseURL string, logger *slog.Logger) (*Store, error) {
	cleanEndpoint := strings.TrimSpace(endpoint)
	if cleanEndpoint == "" {
		return nil, errors.New("s3: endpoint is required")
	}
	if bucket = strings.TrimSpace(bucket); bucket == "" {
		return nil, errors.New("s3: bucket is required")
	}

	minioClient, err := minio.New(hostOf(cleanEndpoint), &minio.Options{
		Creds:  credentials.NewStaticV4(strings.TrimSpace(accessKey), strings.TrimSpace(secretKey), ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("s3: create client: %w", err)
	}

	base := strings.TrimSpace(publicBaseURL)
	if base == "" {
		base = cleanEndpoint
	}

	return &Store{
		bucket:        bucket,
		publicBaseURL: strings.TrimRight(base, "/"),
		client:        minioClient,
		logger:        logger,
		newID:         uuid.NewString,
	}, nil
}

// StoreImage validates the upload policy, writes the object under an
// owner-scoped key and returns the public URL.
func (s *Store) StoreImage(ctx context.Context, img Image) (string, error) {
	if err := checkImage(img); err != nil {
		return "", err
	}
	if err := s.ensureBucket(ctx); err != nil {
		return "", err
	}

	key := s.objectKey(img.OwnerID, img.Filename)
	size := img.Size
	if size <= 0 {
		size = -1
	}
	_, err := s.client.PutObject(ctx, s.bucket, key, img.Content, size, minio.PutObjectOptions{
		ContentType: img.ContentType,
	})
	if err != nil {
		return "", fmt.Errorf("s3: put object: %w", err)
	}

	publicURL := s.objectURL(key)
	if s.logger != nil {
		s.logger.Info("image stored", "bucket", s.bucket, "object", key, "owner_id", img.OwnerID, "url", publicURL)
	}
	return publicURL, nil
}

func checkImage(img Image) error {
	if img.Content == nil {
		return errors.New("s3: content is required")
	}
	if strings.TrimSpace(img.OwnerID) == "" {
		return errors.New("s3: owner id is required")
	}
	if !strings.HasPrefix(img.ContentType, "image/") {
		return ErrNotImage
	}
	if img.Size > MaxImageBytes {
		return ErrImageTooLarge
	}
	return nil
}

// objectKey scopes objects by owner and keeps only the original extension;
// the filename itself is untrusted client input.
func (s *Store) objectKey(ownerID, filename string) string {
	return fmt.Sprintf("%s/%s%s", strings.Trim(ownerID, "/"), s.newID(), strings.ToLower(path.Ext(filename)))
}

func (s *Store) ensureBucket(ctx context.Context) error {
	s.initOnce.Do(func() {
		exists, err := s.client.BucketExists(ctx, s.bucket)
		if err != nil {
			s.initErr = fmt.Errorf("s3: check bucket: %w", err)
			return
		}
		if exists {
			return
		}
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
			s.initErr = fmt.Errorf("s3: create bucket: %w", err)
			return
		}
		if err := s.allowPublicRead(ctx); err != nil {
			s.initErr = err
		}
	})
	return s.initErr
}

// Photos are served straight from the bucket, so it must be world-readable.
func (s *Store) allowPublicRead(ctx context.Context) error {
	policy := fmt.Sprintf(`{"Version":"2012-10-17","Statement":[{"Effect":"Allow","Principal":{"AWS":["*"]},"Action":["s3:GetObject"],"Resource":["arn:aws:s3:::%s/*"]}]}`, s.bucket)
	if err := s.client.SetBucketPolicy(ctx, s.bucket, policy); err != nil {
		return fmt.Errorf("s3: set bucket policy: %w", err)
	}
	return nil
}

func (s *Store) objectURL(key string) string {
	return fmt.Sprintf("%s/%s/%s", strings.TrimRight(s.publicBaseURL, "/"), s.bucket, strings.TrimLeft(key, "/"))
}

func hostOf(endpoint string) string {
	if parsed, err := url.Parse(endpoint); err == nil && parsed.Host != "" {
		return parsed.Host
	}
	return endpoint
}

// Disabled rejects every upload; it keeps the endpoint wired when no object
// storage is configured.
type Disabled struct{}

func (Disabled) StoreImage(context.Context, Image) (string, error) {
	return "", ErrUnavailable
}

var _ ImageStore = (*Store)(nil)
var _ ImageStore = Disabled{}
