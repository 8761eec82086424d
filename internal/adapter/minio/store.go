// Package minio implements ReadingStore on an S3-compatible object store,
// one JSON document per reading plus a metadata marker.
package minio

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/couchcryptid/uv-feed-service/internal/domain"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const (
	readingsPrefix = "readings/"
	metadataPrefix = "metadata/"
	docSuffix      = ".json"
)

// Config holds MinIO connection settings.
type Config struct {
	Endpoint  string // e.g., "localhost:9000"
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// Store is a ReadingStore backed by a MinIO bucket.
type Store struct {
	client *minio.Client
	bucket string
	logger *slog.Logger
}

// NewStore connects to MinIO and creates the bucket if it does not exist.
func NewStore(ctx context.Context, cfg Config, logger *slog.Logger) (*Store, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
		logger.Info("created bucket", "bucket", cfg.Bucket)
	}

	return &Store{client: client, bucket: cfg.Bucket, logger: logger}, nil
}

func (s *Store) UpsertAll(ctx context.Context, snapshot domain.Snapshot) error {
	for _, r := range snapshot.Readings {
		doc := domain.NewReadingDocument(r, snapshot.FetchedAt)
		if err := s.putJSON(ctx, readingKey(r.ID), doc); err != nil {
			return &domain.StoreError{Op: "upsert reading " + r.ID, Err: err}
		}
	}
	marker := domain.MetadataDocument{Timestamp: snapshot.FetchedAt.UTC()}
	if err := s.putJSON(ctx, metadataKey(domain.MetadataLastUpdateKey), marker); err != nil {
		return &domain.StoreError{Op: "write marker", Err: err}
	}
	return nil
}

// ReadLatest returns readings in object key order, which is ID order.
func (s *Store) ReadLatest(ctx context.Context, limit int) ([]domain.Reading, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel() // stops the listing goroutine on early return

	out := make([]domain.Reading, 0)
	objects := s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    readingsPrefix,
		Recursive: true,
	})
	for obj := range objects {
		if obj.Err != nil {
			return nil, &domain.StoreError{Op: "read latest", Err: obj.Err}
		}
		id, ok := readingID(obj.Key)
		if !ok {
			continue
		}

		var doc domain.ReadingDocument
		if err := s.getJSON(ctx, obj.Key, &doc); err != nil {
			if isNotFound(err) {
				continue // deleted between list and get
			}
			return nil, &domain.StoreError{Op: "read latest", Err: err}
		}
		r, err := doc.Reading(id)
		if err != nil {
			s.logger.Warn("skipping incomplete reading document", "key", obj.Key, "error", err)
			continue
		}
		out = append(out, r)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (s *Store) LastUpdate(ctx context.Context) (time.Time, error) {
	var marker domain.MetadataDocument
	if err := s.getJSON(ctx, metadataKey(domain.MetadataLastUpdateKey), &marker); err != nil {
		if isNotFound(err) {
			return time.Time{}, nil
		}
		return time.Time{}, &domain.StoreError{Op: "read marker", Err: err}
	}
	return marker.Timestamp, nil
}

func (s *Store) putJSON(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	_, err = s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return fmt.Errorf("failed to upload to minio: %w", err)
	}
	return nil
}

func (s *Store) getJSON(ctx context.Context, key string, v any) error {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return err
	}
	defer obj.Close()

	// GetObject is lazy; Stat surfaces a missing key as an ErrorResponse.
	if _, err := obj.Stat(); err != nil {
		return err
	}
	if err := json.NewDecoder(obj).Decode(v); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

func isNotFound(err error) bool {
	return minio.ToErrorResponse(err).Code == "NoSuchKey"
}

func readingKey(id string) string {
	return readingsPrefix + id + docSuffix
}

func metadataKey(name string) string {
	return metadataPrefix + name + docSuffix
}

// readingID extracts the reading ID from an object key under readingsPrefix.
func readingID(key string) (string, bool) {
	if !strings.HasPrefix(key, readingsPrefix) || !strings.HasSuffix(key, docSuffix) {
		return "", false
	}
	id := strings.TrimSuffix(strings.TrimPrefix(key, readingsPrefix), docSuffix)
	if id == "" || path.Base(id) != id {
		return "", false
	}
	return id, true
}
