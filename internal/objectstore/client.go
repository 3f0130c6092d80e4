// Package objectstore implements the Object store adapter: put, get,
// delete, list_prefix, exists, head against an S3-compatible backend.
// Grounded on vasic-digital-SuperAgent's internal/storage/minio/client.go,
// adapted to the narrower semantic surface this service needs and to the
// teacher's stdlib-log idiom rather than logrus.
package objectstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/graphmemory/graphmemory/internal/apperr"
	"github.com/graphmemory/graphmemory/internal/config"
)

// Store is the object store adapter described by the specification's
// §4.2. Keys are namespaced by callers as
// "memories/{memory_id}/documents/{document_id}" and
// "_backups/{memory_id}/{ts}/...".
type Store struct {
	client *minio.Client
	bucket string
	logger *log.Logger
}

// New connects to the configured S3-compatible endpoint and ensures the
// configured bucket exists.
func New(ctx context.Context, cfg config.ObjectStoreConfig, logger *log.Logger) (*Store, error) {
	if logger == nil {
		logger = log.Default()
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("objectstore: create client: %w", err)
	}

	s := &Store{client: client, bucket: cfg.Bucket, logger: logger}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, apperr.DependencyFailure("objectstore", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, apperr.DependencyFailure("objectstore", err)
		}
		logger.Printf("objectstore: created bucket %s", cfg.Bucket)
	}
	return s, nil
}

// Put uploads bytes under key with the given content type. Idempotent:
// repeated puts to the same key overwrite it.
func (s *Store) Put(ctx context.Context, key string, data []byte, contentType string) error {
	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return apperr.DependencyFailure("objectstore", fmt.Errorf("put %q: %w", key, err))
	}
	return nil
}

// Get downloads the bytes stored at key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, apperr.DependencyFailure("objectstore", fmt.Errorf("get %q: %w", key, err))
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		if isNotFound(err) {
			return nil, apperr.NotFound("object %q not found", key)
		}
		return nil, apperr.DependencyFailure("objectstore", fmt.Errorf("read %q: %w", key, err))
	}
	return data, nil
}

// Delete removes key. Idempotent: deleting a missing key is not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return apperr.DependencyFailure("objectstore", fmt.Errorf("delete %q: %w", key, err))
	}
	return nil
}

// ListPrefix returns every key under prefix.
func (s *Store) ListPrefix(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			return nil, apperr.DependencyFailure("objectstore", fmt.Errorf("list %q: %w", prefix, obj.Err))
		}
		keys = append(keys, obj.Key)
	}
	return keys, nil
}

// Exists reports whether key is present.
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, apperr.DependencyFailure("objectstore", fmt.Errorf("stat %q: %w", key, err))
	}
	return true, nil
}

// Head returns the size in bytes of the object stored at key.
func (s *Store) Head(ctx context.Context, key string) (int64, error) {
	info, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if isNotFound(err) {
			return 0, apperr.NotFound("object %q not found", key)
		}
		return 0, apperr.DependencyFailure("objectstore", fmt.Errorf("stat %q: %w", key, err))
	}
	return info.Size, nil
}

func isNotFound(err error) bool {
	resp := minio.ToErrorResponse(err)
	return resp.Code == "NoSuchKey" || strings.Contains(err.Error(), "key does not exist")
}
