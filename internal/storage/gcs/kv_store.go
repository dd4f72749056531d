// Package gcs provides a key-value store backed by Google Cloud Storage objects.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"

	kv "github.com/JakeFAU/map-version-watcher/internal/storage"
)

// Config captures the parameters required to connect to GCS.
type Config struct {
	Bucket string
	Prefix string
}

// KVStore stores each entry as an object named <prefix>/<namespace>/<key>.
type KVStore struct {
	client *storage.Client
	bucket string
	prefix string
}

// New creates a GCS-backed key-value store.
func New(client *storage.Client, cfg Config) (*KVStore, error) {
	if client == nil {
		return nil, fmt.Errorf("storage client is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}
	return &KVStore{
		client: client,
		bucket: cfg.Bucket,
		prefix: strings.Trim(cfg.Prefix, "/"),
	}, nil
}

func (s *KVStore) namespacePrefix(namespace string) string {
	if s.prefix == "" {
		return namespace + "/"
	}
	return path.Join(s.prefix, namespace) + "/"
}

func (s *KVStore) objectName(namespace, key string) string {
	return s.namespacePrefix(namespace) + key
}

// Get downloads the object for namespace/key.
func (s *KVStore) Get(ctx context.Context, namespace, key string) (string, bool, error) {
	if err := kv.ValidateNamespace(namespace); err != nil {
		return "", false, fmt.Errorf("get %q: %w", namespace, err)
	}
	name := s.objectName(namespace, key)
	value, err := s.read(ctx, name)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// Put uploads value as the object for namespace/key, replacing any previous generation.
func (s *KVStore) Put(ctx context.Context, namespace, key, value string) error {
	if err := kv.ValidateNamespace(namespace); err != nil {
		return fmt.Errorf("put %q: %w", namespace, err)
	}
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("key is required")
	}
	name := s.objectName(namespace, key)
	writer := s.client.Bucket(s.bucket).Object(name).NewWriter(ctx)
	writer.ContentType = "text/plain; charset=utf-8"
	if _, err := io.WriteString(writer, value); err != nil {
		closeErr := writer.Close()
		if closeErr != nil {
			return fmt.Errorf("write object %s: %w (close writer: %v)", name, err, closeErr)
		}
		return fmt.Errorf("write object %s: %w", name, err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("close writer for %s: %w", name, err)
	}
	return nil
}

// List reads every object under the namespace prefix. Object listings are
// returned in lexicographic order, which is key order.
func (s *KVStore) List(ctx context.Context, namespace string) ([]kv.Entry, error) {
	if err := kv.ValidateNamespace(namespace); err != nil {
		return nil, fmt.Errorf("list %q: %w", namespace, err)
	}
	prefix := s.namespacePrefix(namespace)
	it := s.client.Bucket(s.bucket).Objects(ctx, &storage.Query{Prefix: prefix})
	var out []kv.Entry
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list objects under %s: %w", prefix, err)
		}
		value, err := s.read(ctx, attrs.Name)
		if errors.Is(err, storage.ErrObjectNotExist) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, kv.Entry{Key: strings.TrimPrefix(attrs.Name, prefix), Value: value})
	}
	return out, nil
}

func (s *KVStore) read(ctx context.Context, name string) (string, error) {
	reader, err := s.client.Bucket(s.bucket).Object(name).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return "", err
		}
		return "", fmt.Errorf("open object %s: %w", name, err)
	}
	defer reader.Close() //nolint:errcheck
	data, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("read object %s: %w", name, err)
	}
	return string(data), nil
}

// Ping checks that the bucket is reachable.
func (s *KVStore) Ping(ctx context.Context) error {
	if _, err := s.client.Bucket(s.bucket).Attrs(ctx); err != nil {
		return fmt.Errorf("get bucket %s attributes: %w", s.bucket, err)
	}
	return nil
}

// Close closes the underlying client.
func (s *KVStore) Close() error {
	if err := s.client.Close(); err != nil {
		return fmt.Errorf("close gcs client: %w", err)
	}
	return nil
}
