// Package export stores generated report documents.
package export

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/genereveal-server/internal/domain"
)

// Drivers
const (
	DriverFile = "file"
	DriverS3   = "s3"
)

// Sink stores a named document and returns where it ended up
type Sink interface {
	Put(ctx context.Context, name, contentType string, content []byte) (string, error)
}

// New builds the sink selected by config
func New(config domain.ExportConfig) (Sink, error) {
	switch strings.ToLower(strings.TrimSpace(config.Driver)) {
	case "", DriverFile:
		sink, err := NewFileSink(config.Dir)
		if err != nil {
			return nil, err
		}
		return sink, nil
	case DriverS3:
		sink, err := NewS3Sink(config.S3)
		if err != nil {
			return nil, err
		}
		return sink, nil
	default:
		return nil, fmt.Errorf("unknown export driver %q", config.Driver)
	}
}

// ReportName returns the object name of a session report
func ReportName(sessionID string, at time.Time) string {
	return fmt.Sprintf("reports/%s/report-%s.html", sessionID, at.UTC().Format("20060102T150405Z"))
}

// FileSink writes documents below a directory
type FileSink struct {
	dir string
}

// NewFileSink creates the directory if needed
func NewFileSink(dir string) (*FileSink, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		dir = "exports"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create export dir: %w", err)
	}
	return &FileSink{dir: dir}, nil
}

// Put writes content to dir/name. Names may not escape the directory.
func (f *FileSink) Put(_ context.Context, name, _ string, content []byte) (string, error) {
	clean := filepath.Clean("/" + strings.TrimSpace(name))
	if clean == "/" {
		return "", fmt.Errorf("name is required")
	}
	path := filepath.Join(f.dir, clean)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return "", fmt.Errorf("write export: %w", err)
	}
	return path, nil
}

// S3Sink uploads documents to an S3-compatible bucket. The bucket is created
// on first use when missing; a failed check is retried by the next Put.
type S3Sink struct {
	client *minio.Client
	bucket string
	region string

	mu    sync.Mutex
	ready bool
}

// NewS3Sink validates config and creates the client
func NewS3Sink(config domain.S3Config) (*S3Sink, error) {
	endpoint := strings.TrimSpace(config.Endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("s3 endpoint is required")
	}
	access := strings.TrimSpace(config.AccessKey)
	secret := strings.TrimSpace(config.SecretKey)
	if access == "" || secret == "" {
		return nil, fmt.Errorf("s3 access key and secret key are required")
	}
	bucket := strings.TrimSpace(config.Bucket)
	if bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	region := strings.TrimSpace(config.Region)
	if region == "" {
		region = "us-east-1"
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(access, secret, ""),
		Secure: config.UseSSL,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("init s3 client: %w", err)
	}
	return &S3Sink{client: client, bucket: bucket, region: region}, nil
}

func (s *S3Sink) ensureBucket(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ready {
		return nil
	}
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return err
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.region}); err != nil {
			return err
		}
	}
	s.ready = true
	return nil
}

// Put uploads content and returns its s3:// location
func (s *S3Sink) Put(ctx context.Context, name, contentType string, content []byte) (string, error) {
	key := strings.TrimLeft(strings.TrimSpace(name), "/")
	if key == "" {
		return "", fmt.Errorf("name is required")
	}
	if err := s.ensureBucket(ctx); err != nil {
		return "", fmt.Errorf("ensure bucket: %w", err)
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(content), int64(len(content)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("put object: %w", err)
	}
	return fmt.Sprintf("s3://%s/%s", s.bucket, key), nil
}
